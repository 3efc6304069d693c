package booking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/tidebook/booking-checkout-backend/internal/audit"
	"github.com/tidebook/booking-checkout-backend/internal/catalog"
	"github.com/tidebook/booking-checkout-backend/internal/clock"
	"github.com/tidebook/booking-checkout-backend/internal/compensation"
	"github.com/tidebook/booking-checkout-backend/internal/payment"
)

// AvailabilityGate is the slot-contention boundary the checkout pipeline
// talks to. *Gate satisfies it; tests substitute fakes.
type AvailabilityGate interface {
	TryHold(ctx context.Context, req HoldRequest) (*SlotHold, error)
	AttachPaymentRef(ctx context.Context, holdID, ref string) error
	FindHoldByPaymentRef(ctx context.Context, ref string) (*SlotHold, error)
	Promote(ctx context.Context, holdID string) (*Reservation, error)
	Release(ctx context.Context, holdID string) error
}

// ReservationStore is the slice of the repository the confirmer needs after
// promotion: idempotency lookups, capture-failure rollback, cancellation.
type ReservationStore interface {
	GetReservationByID(ctx context.Context, id string) (*Reservation, error)
	GetReservationByPaymentRef(ctx context.Context, ref string) (*Reservation, error)
	DeleteReservation(ctx context.Context, id string) error
	UpdateReservationStatus(ctx context.Context, id string, status Status) error
}

type ProcessResult struct {
	PaymentIntentID string
	ClientSecret    string
}

// Service runs a booking attempt through its full pipeline:
// validating → holding → authorizing → confirming → {confirmed | compensating → failed}.
// No state is re-entered.
type Service interface {
	// Process validates the request, claims the slot, and authorizes payment.
	// A conflict at the gate is returned before the processor is ever called.
	Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error)

	// Confirm promotes the held slot into a reservation and captures the
	// payment. When the slot was lost after authorization, it triggers
	// compensation and reports that in the outcome.
	Confirm(ctx context.Context, paymentIntentID string) (*Outcome, error)

	// Cancel reverses a confirmed reservation through the compensator.
	Cancel(ctx context.Context, reservationID, callerID, reason string) error
}

type service struct {
	gate         AvailabilityGate
	reservations ReservationStore
	catalog      catalog.Lookup
	payments     payment.Service
	compensator  compensation.Service
	emitter      audit.Emitter
	clock        clock.Clock
}

func NewService(
	gate AvailabilityGate,
	reservations ReservationStore,
	catalogLookup catalog.Lookup,
	payments payment.Service,
	compensator compensation.Service,
	emitter audit.Emitter,
	clk clock.Clock,
) Service {
	return &service{
		gate:         gate,
		reservations: reservations,
		catalog:      catalogLookup,
		payments:     payments,
		compensator:  compensator,
		emitter:      emitter,
		clock:        clk,
	}
}

func (s *service) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	attemptID := uuid.NewString()

	// 1. Validate: pure rule checks, no holds, no payment.
	normalized, violations := ValidateRequest(s.clock.Now(), req)
	if len(violations) > 0 {
		return nil, &ValidationError{Violations: violations}
	}

	svc, err := s.catalog.GetService(ctx, normalized.ServiceID)
	if err != nil {
		return nil, err
	}

	// 2. Claim the slot. Losing here is terminal and costs nothing: the
	// processor is never contacted.
	hold, err := s.gate.TryHold(ctx, HoldRequest{
		ResourceID:   svc.ResourceID,
		ServiceID:    svc.ID,
		HolderID:     normalized.OwnerID,
		StartTime:    normalized.StartTime,
		EndTime:      normalized.EndTime,
		Notes:        normalized.Notes,
		ContactPhone: normalized.ContactPhone,
	})
	if err != nil {
		if errors.Is(err, ErrSlotConflict) {
			s.emit(attemptID, audit.OutcomeSlotConflict, svc.ResourceID, svc.PriceCents, normalized)
		}
		return nil, err
	}

	// 3. Authorize. The key is derived from the logical request so a client
	// retry replays the same authorization instead of creating a second one.
	auth, err := s.payments.Authorize(ctx, payment.AuthorizeRequest{
		AmountCents:    svc.PriceCents,
		Currency:       svc.Currency,
		IdempotencyKey: deriveIdempotencyKey(normalized.OwnerID, svc.ResourceID, normalized),
	})
	if err != nil {
		if relErr := s.gate.Release(ctx, hold.ID); relErr != nil {
			log.Printf("checkout: release hold %s after authorize failure: %v", hold.ID, relErr)
		}
		if errors.Is(err, payment.ErrDeclined) {
			s.emit(attemptID, audit.OutcomePaymentDeclined, svc.ResourceID, svc.PriceCents, normalized)
		}
		return nil, err
	}

	if err := s.gate.AttachPaymentRef(ctx, hold.ID, auth.Ref); err != nil {
		// Money is authorized but the hold cannot carry the link; reverse
		// rather than strand the authorization.
		s.compensate(ctx, auth.Ref, "failed to link authorization to hold")
		if relErr := s.gate.Release(ctx, hold.ID); relErr != nil {
			log.Printf("checkout: release hold %s after link failure: %v", hold.ID, relErr)
		}
		return nil, fmt.Errorf("link payment to hold: %w", err)
	}

	return &ProcessResult{
		PaymentIntentID: auth.Ref,
		ClientSecret:    auth.ClientSecret,
	}, nil
}

func (s *service) Confirm(ctx context.Context, paymentIntentID string) (*Outcome, error) {
	// The confirmation must run to completion even if the client gives up:
	// money must never stay authorized with no reservation and no reversal.
	ctx = context.WithoutCancel(ctx)

	auth, err := s.payments.GetByRef(ctx, paymentIntentID)
	if err != nil {
		if errors.Is(err, payment.ErrAuthorizationNotFound) {
			return nil, ErrPaymentIntentUnknown
		}
		return nil, err
	}

	hold, err := s.gate.FindHoldByPaymentRef(ctx, paymentIntentID)
	if err != nil {
		return nil, err
	}
	if hold == nil {
		// Either already confirmed (idempotent replay) or the hold was
		// reaped before the client confirmed.
		res, err := s.reservations.GetReservationByPaymentRef(ctx, paymentIntentID)
		if err == nil {
			return &Outcome{Success: true, Reservation: res}, nil
		}
		if !errors.Is(err, ErrReservationNotFound) {
			return nil, err
		}

		log.Printf("checkout: hold for intent %s expired before confirm", paymentIntentID)
		s.compensate(ctx, auth.Ref, "hold expired before confirmation")
		s.emitTerminal(auth, audit.OutcomeCompensated)
		return &Outcome{ErrorKind: ReasonSlotConflict, CompensationTriggered: true}, nil
	}

	res, err := s.gate.Promote(ctx, hold.ID)
	if err != nil {
		switch {
		case errors.Is(err, ErrHoldExpired):
			log.Printf("checkout: hold %s expired before promote (intent %s)", hold.ID, paymentIntentID)
			fallthrough
		case errors.Is(err, ErrSlotConflict):
			// The money is already authorized; reverse it and tell the
			// caller the slot was lost.
			s.compensate(ctx, auth.Ref, "slot lost before confirmation")
			s.emitTerminal(auth, audit.OutcomeCompensated)
			return &Outcome{ErrorKind: ReasonSlotConflict, CompensationTriggered: true}, nil
		}
		return nil, err
	}

	if err := s.payments.Capture(ctx, auth.Ref); err != nil {
		// Promotion already committed; undo it in a second short transaction
		// rather than holding a DB transaction open across the processor call.
		if delErr := s.reservations.DeleteReservation(ctx, res.ID); delErr != nil {
			log.Printf("checkout: rollback reservation %s after capture failure: %v", res.ID, delErr)
		}
		s.compensate(ctx, auth.Ref, "capture failed after promotion")
		s.emitTerminal(auth, audit.OutcomeCompensated)
		return &Outcome{ErrorKind: errorKind(err), CompensationTriggered: true}, nil
	}

	s.emitter.Emit(audit.AttemptEvent{
		AttemptID:   res.ID,
		Outcome:     audit.OutcomeConfirmed,
		ResourceID:  res.ResourceID,
		AmountCents: auth.AmountCents,
		StartTime:   res.StartTime,
		EndTime:     res.EndTime,
		EmittedAt:   s.clock.Now(),
	})

	return &Outcome{Success: true, Reservation: res}, nil
}

func (s *service) Cancel(ctx context.Context, reservationID, callerID, reason string) error {
	res, err := s.reservations.GetReservationByID(ctx, reservationID)
	if err != nil {
		return err
	}
	if res.OwnerID != callerID {
		return ErrPermissionDenied
	}
	if res.Status == StatusCancelled {
		return nil
	}

	// Same choke point as the race-handling path: captured money is
	// refunded, authorized-only money is voided.
	s.compensate(ctx, res.PaymentRef, reason)

	if err := s.reservations.UpdateReservationStatus(ctx, res.ID, StatusCancelled); err != nil {
		return err
	}

	s.emitter.Emit(audit.AttemptEvent{
		AttemptID:   res.ID,
		Outcome:     audit.OutcomeCancelled,
		ResourceID:  res.ResourceID,
		StartTime:   res.StartTime,
		EndTime:     res.EndTime,
		EmittedAt:   s.clock.Now(),
	})
	return nil
}

// compensate invokes the compensator and logs, but never propagates, its
// failure: a compensation gap is recorded durably by the compensator itself
// and must not replace the booking's primary error.
func (s *service) compensate(ctx context.Context, ref, reason string) {
	if err := s.compensator.Compensate(ctx, ref, reason); err != nil {
		log.Printf("checkout: compensation for %s deferred: %v", ref, err)
	}
}

func (s *service) emit(attemptID, outcome, resourceID string, amountCents int64, req ProcessRequest) {
	s.emitter.Emit(audit.AttemptEvent{
		AttemptID:   attemptID,
		Outcome:     outcome,
		ResourceID:  resourceID,
		AmountCents: amountCents,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		EmittedAt:   s.clock.Now(),
	})
}

func (s *service) emitTerminal(auth *payment.Authorization, outcome string) {
	s.emitter.Emit(audit.AttemptEvent{
		AttemptID:   auth.Ref,
		Outcome:     outcome,
		AmountCents: auth.AmountCents,
		EmittedAt:   s.clock.Now(),
	})
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, payment.ErrDeclined):
		return "PAYMENT_DECLINED"
	case errors.Is(err, payment.ErrProcessorUnavailable):
		return "PROCESSOR_UNAVAILABLE"
	default:
		return "PAYMENT_FAILED"
	}
}

// deriveIdempotencyKey hashes the logical request identity so retries of the
// same (requester, resource, interval) can never create two authorizations.
func deriveIdempotencyKey(ownerID, resourceID string, req ProcessRequest) string {
	sum := sha256.Sum256(fmt.Appendf(nil, "%s|%s|%d|%d",
		ownerID, resourceID, req.StartTime.Unix(), req.EndTime.Unix()))
	return hex.EncodeToString(sum[:])
}
