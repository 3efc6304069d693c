// Package audit publishes terminal booking outcomes to the external audit
// sink. Emission is fire-and-forget: it must never block or fail a booking.
package audit

import "time"

// Outcome values for a finished booking attempt.
const (
	OutcomeConfirmed       = "confirmed"
	OutcomeSlotConflict    = "slot_conflict"
	OutcomePaymentDeclined = "payment_declined"
	OutcomeCompensated     = "failed_compensated"
	OutcomeCancelled       = "cancelled"
)

// AttemptEvent describes the terminal outcome of one booking attempt. It
// carries enough for downstream consumers to log and reconcile without
// querying the primary database.
type AttemptEvent struct {
	AttemptID   string    `json:"attempt_id"`
	Outcome     string    `json:"outcome"`
	ResourceID  string    `json:"resource_id"`
	AmountCents int64     `json:"amount_cents"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	EmittedAt   time.Time `json:"emitted_at"`
}
