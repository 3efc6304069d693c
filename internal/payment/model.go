package payment

import (
	"net/http"
	"time"

	"github.com/tidebook/booking-checkout-backend/internal/pkg/apperror"
)

var (
	ErrAuthorizationNotFound = apperror.New(http.StatusNotFound, "payment authorization not found")
	ErrDeclined              = apperror.NewWithReason(http.StatusPaymentRequired, "PAYMENT_DECLINED", "payment was declined")
	ErrProcessorUnavailable  = apperror.NewWithReason(http.StatusServiceUnavailable, "PROCESSOR_UNAVAILABLE", "payment processor is temporarily unavailable")
	// ErrIdempotencyMismatch means a replayed idempotency key carried a
	// different amount or currency. The key is derived deterministically from
	// the request, so this indicates a bug upstream, never a user error.
	ErrIdempotencyMismatch = apperror.New(http.StatusInternalServerError, "idempotency key replayed with different payment details")
)

type Status string

const (
	StatusCreated    Status = "created"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
	StatusVoided     Status = "voided"
	StatusRefunded   Status = "refunded"
)

// Authorization is the locally persisted view of a processor-side payment.
// The reservation stores only Ref; the payment state machine lives here.
type Authorization struct {
	Ref            string
	IdempotencyKey string
	AmountCents    int64
	Currency       string
	Status         Status
	ClientSecret   string
	DeclineReason  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
