package booking

import (
	"fmt"
	"html"
	"regexp"
	"strings"
	"time"
)

const (
	// Bookings must be placed at least this far ahead, and no further out
	// than the horizon.
	minLeadTime     = 30 * time.Minute
	bookingHorizon  = 180 * 24 * time.Hour
	maxSlotDuration = 8 * time.Hour

	maxNotesLen = 500
	maxPhoneLen = 20
)

// Permissive international format: optional leading +, digits with common
// separators. Strictness belongs to the notification layer, not here.
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 .\-()]*$`)

// ProcessRequest is a booking attempt as submitted by the caller.
type ProcessRequest struct {
	OwnerID      string
	ServiceID    string
	StartTime    time.Time
	EndTime      time.Time
	Notes        string
	ContactPhone string
}

// ValidateRequest checks every rule independently and returns the normalized
// request along with all violations found. It is pure: no I/O, deterministic
// given now.
func ValidateRequest(now time.Time, req ProcessRequest) (ProcessRequest, []FieldViolation) {
	var violations []FieldViolation

	if req.StartTime.Before(now.Add(minLeadTime)) {
		violations = append(violations, FieldViolation{
			Field:   "startTime",
			Message: "must be at least 30 minutes from now",
		})
	}
	if req.StartTime.After(now.Add(bookingHorizon)) {
		violations = append(violations, FieldViolation{
			Field:   "startTime",
			Message: "must be within 180 days from now",
		})
	}

	if !req.EndTime.After(req.StartTime) {
		violations = append(violations, FieldViolation{
			Field:   "endTime",
			Message: "must be after startTime",
		})
	} else if req.EndTime.Sub(req.StartTime) > maxSlotDuration {
		violations = append(violations, FieldViolation{
			Field:   "endTime",
			Message: "duration must not exceed 8 hours",
		})
	}

	notes := strings.TrimSpace(req.Notes)
	if len([]rune(notes)) > maxNotesLen {
		violations = append(violations, FieldViolation{
			Field:   "notes",
			Message: fmt.Sprintf("must be at most %d characters", maxNotesLen),
		})
	}
	req.Notes = html.EscapeString(notes)

	phone := strings.TrimSpace(req.ContactPhone)
	if phone != "" {
		if len(phone) > maxPhoneLen {
			violations = append(violations, FieldViolation{
				Field:   "clientPhone",
				Message: fmt.Sprintf("must be at most %d characters", maxPhoneLen),
			})
		}
		if !phonePattern.MatchString(phone) {
			violations = append(violations, FieldViolation{
				Field:   "clientPhone",
				Message: "must be a valid phone number",
			})
		}
	}
	req.ContactPhone = phone

	return req, violations
}
