package booking

import (
	"net/http"
	"time"

	"github.com/tidebook/booking-checkout-backend/internal/pkg/apperror"
)

// ReasonSlotConflict is the machine-readable code clients receive when a slot
// is taken. Distinct from validation failures: picking a new interval is the
// only recovery.
const ReasonSlotConflict = "SLOT_NO_LONGER_AVAILABLE"

var (
	ErrSlotConflict = apperror.NewWithReason(http.StatusConflict, ReasonSlotConflict, "time slot no longer available")
	// ErrHoldExpired surfaces to clients exactly like a slot conflict, but is
	// kept as a separate value so the expiry path can be logged distinctly:
	// it indicates a capacity or latency problem, not ordinary contention.
	ErrHoldExpired          = apperror.NewWithReason(http.StatusConflict, ReasonSlotConflict, "time slot no longer available")
	ErrReservationNotFound  = apperror.New(http.StatusNotFound, "reservation not found")
	ErrPaymentIntentUnknown = apperror.New(http.StatusNotFound, "unknown payment intent")
	ErrPermissionDenied     = apperror.New(http.StatusForbidden, "permission denied")
)

type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Reservation is a durable, confirmed claim on a resource's time slot.
// PaymentRef points at the processor-side payment; the payment state machine
// itself lives in the payment module, never here.
type Reservation struct {
	ID           string
	ResourceID   string
	ServiceID    string
	OwnerID      string
	StartTime    time.Time
	EndTime      time.Time
	Status       Status
	PaymentRef   string
	Notes        string
	ContactPhone string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SlotHold is an ephemeral, exclusive claim on a slot while a booking attempt
// is in flight. Created by the availability gate, and either promoted to a
// Reservation or deleted on abort/expiry. No other component mutates holds.
type SlotHold struct {
	ID           string
	ResourceID   string
	ServiceID    string
	HolderID     string
	StartTime    time.Time
	EndTime      time.Time
	ExpiresAt    time.Time
	PaymentRef   string
	Notes        string
	ContactPhone string
	Version      int64
	CreatedAt    time.Time
}

// FieldViolation is a single field-level validation failure.
type FieldViolation struct {
	Field   string
	Message string
}

// ValidationError carries every violation found in a request so the caller
// sees all of them at once.
type ValidationError struct {
	Violations []FieldViolation
}

func (e *ValidationError) Error() string {
	if len(e.Violations) == 1 {
		return "validation failed: " + e.Violations[0].Field + " " + e.Violations[0].Message
	}
	return "validation failed"
}

// Outcome is the terminal result of a confirmation attempt, returned to the
// caller. Not persisted; constructed per request.
type Outcome struct {
	Success               bool
	Reservation           *Reservation
	ErrorKind             string
	CompensationTriggered bool
}
