package compensation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tidebook/booking-checkout-backend/internal/payment"
)

const (
	defaultMaxAttempts = 4
	defaultBaseDelay   = 250 * time.Millisecond
)

// Service is the single choke point for money reversals. Every path that
// gives money back (lost races, failed captures, cancellations) ends here,
// so reversals stay centralized and auditable.
type Service interface {
	// Compensate reverses the given authorization. It is idempotent: calling
	// it twice for the same reference is safe. The reversal action depends on
	// the authorization's recorded status: not yet captured means void,
	// captured means refund.
	Compensate(ctx context.Context, authorizationRef, reason string) error
}

type service struct {
	payments    payment.Repository
	processor   payment.ProcessorClient
	outbox      OutboxRepository
	maxAttempts int
	baseDelay   time.Duration
}

func NewService(payments payment.Repository, processor payment.ProcessorClient, outbox OutboxRepository) Service {
	return &service{
		payments:    payments,
		processor:   processor,
		outbox:      outbox,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
	}
}

func (s *service) Compensate(ctx context.Context, authorizationRef, reason string) error {
	a, err := s.payments.GetByRef(ctx, authorizationRef)
	if err != nil {
		return err
	}

	var action Action
	var next payment.Status
	switch a.Status {
	case payment.StatusVoided, payment.StatusRefunded:
		// Already reversed; nothing to do.
		return nil
	case payment.StatusFailed, payment.StatusCreated:
		// No money was ever secured.
		return nil
	case payment.StatusAuthorized:
		action = ActionVoid
		next = payment.StatusVoided
	case payment.StatusCaptured:
		action = ActionRefund
		next = payment.StatusRefunded
	default:
		return fmt.Errorf("cannot compensate authorization %s in status %s", authorizationRef, a.Status)
	}

	attempts, err := s.reverseWithBackoff(ctx, action, a)
	if err != nil {
		// The reversal must not be lost: park it durably for the external
		// reconciliation job and report the gap to the caller for logging.
		row := &PendingCompensation{
			ID:               uuid.NewString(),
			AuthorizationRef: authorizationRef,
			Action:           action,
			Reason:           reason,
			Status:           OutboxStatusPending,
			Attempts:         attempts,
			LastError:        err.Error(),
		}
		if insertErr := s.outbox.Insert(ctx, row); insertErr != nil {
			log.Printf("compensation: failed to record pending %s for %s: %v", action, authorizationRef, insertErr)
			return errors.Join(err, insertErr)
		}
		return fmt.Errorf("%s of %s deferred to reconciliation: %w", action, authorizationRef, err)
	}

	return s.payments.UpdateStatus(ctx, authorizationRef, next, "")
}

func (s *service) reverseWithBackoff(ctx context.Context, action Action, a *payment.Authorization) (int, error) {
	var err error
	delay := s.baseDelay

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		switch action {
		case ActionVoid:
			err = s.processor.Void(ctx, a.Ref)
		case ActionRefund:
			err = s.processor.Refund(ctx, a.Ref, a.AmountCents)
		}
		if err == nil {
			return attempt, nil
		}
		if !errors.Is(err, payment.ErrProcessorUnavailable) {
			return attempt, err
		}
		if attempt == s.maxAttempts {
			return attempt, err
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return s.maxAttempts, err
}
