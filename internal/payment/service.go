package payment

import (
	"context"
	"errors"
	"fmt"
	"time"
)

type AuthorizeRequest struct {
	AmountCents    int64
	Currency       string
	IdempotencyKey string
}

// Service is the payment orchestrator: it owns the authorization state
// machine and is the only component that creates or captures payments.
// Reversals (void/refund) go through the compensation choke point instead.
type Service interface {
	Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error)
	Capture(ctx context.Context, ref string) error
	GetByRef(ctx context.Context, ref string) (*Authorization, error)
}

type service struct {
	repo          Repository
	processor     ProcessorClient
	retryAttempts int
	retryBase     time.Duration
}

func NewService(repo Repository, processor ProcessorClient) Service {
	return &service{
		repo:          repo,
		processor:     processor,
		retryAttempts: defaultRetryAttempts,
		retryBase:     defaultRetryBase,
	}
}

func (s *service) Authorize(ctx context.Context, req AuthorizeRequest) (*Authorization, error) {
	// Replay path: the same logical request (same derived key) must return
	// the existing authorization, never create a second one.
	existing, err := s.repo.GetByKey(ctx, req.IdempotencyKey)
	if err != nil && !errors.Is(err, ErrAuthorizationNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.AmountCents != req.AmountCents || existing.Currency != req.Currency {
			return nil, ErrIdempotencyMismatch
		}
		return existing, nil
	}

	var intent *ProcessorIntent
	err = withRetry(ctx, s.retryAttempts, s.retryBase, func() error {
		var callErr error
		intent, callErr = s.processor.CreateIntent(ctx, req.AmountCents, req.Currency, req.IdempotencyKey)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	a := &Authorization{
		Ref:            intent.Ref,
		IdempotencyKey: req.IdempotencyKey,
		AmountCents:    req.AmountCents,
		Currency:       req.Currency,
		Status:         StatusAuthorized,
		ClientSecret:   intent.ClientSecret,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrIdempotencyMismatch) {
			// Lost a race with a concurrent request carrying the same key;
			// the processor deduplicated, so replay the winner's row.
			winner, getErr := s.repo.GetByKey(ctx, req.IdempotencyKey)
			if getErr != nil {
				return nil, getErr
			}
			if winner.AmountCents != req.AmountCents || winner.Currency != req.Currency {
				return nil, ErrIdempotencyMismatch
			}
			return winner, nil
		}
		return nil, fmt.Errorf("persist authorization: %w", err)
	}
	return a, nil
}

func (s *service) Capture(ctx context.Context, ref string) error {
	a, err := s.repo.GetByRef(ctx, ref)
	if err != nil {
		return err
	}
	if a.Status == StatusCaptured {
		return nil
	}
	if a.Status != StatusAuthorized {
		return fmt.Errorf("cannot capture authorization %s in status %s", ref, a.Status)
	}

	err = withRetry(ctx, s.retryAttempts, s.retryBase, func() error {
		return s.processor.Capture(ctx, ref)
	})
	if err != nil {
		return err
	}

	return s.repo.UpdateStatus(ctx, ref, StatusCaptured, "")
}

func (s *service) GetByRef(ctx context.Context, ref string) (*Authorization, error) {
	return s.repo.GetByRef(ctx, ref)
}
