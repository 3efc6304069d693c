package compensation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidebook/booking-checkout-backend/internal/payment"
)

type stubPayments struct {
	mu    sync.Mutex
	byRef map[string]*payment.Authorization
}

func newStubPayments(auths ...*payment.Authorization) *stubPayments {
	s := &stubPayments{byRef: make(map[string]*payment.Authorization)}
	for _, a := range auths {
		s.byRef[a.Ref] = a
	}
	return s
}

func (s *stubPayments) Create(_ context.Context, a *payment.Authorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byRef[a.Ref] = a
	return nil
}

func (s *stubPayments) GetByRef(_ context.Context, ref string) (*payment.Authorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.byRef[ref]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, payment.ErrAuthorizationNotFound
}

func (s *stubPayments) GetByKey(_ context.Context, key string) (*payment.Authorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.byRef {
		if a.IdempotencyKey == key {
			cp := *a
			return &cp, nil
		}
	}
	return nil, payment.ErrAuthorizationNotFound
}

func (s *stubPayments) UpdateStatus(_ context.Context, ref string, status payment.Status, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.byRef[ref]
	if !ok {
		return payment.ErrAuthorizationNotFound
	}
	a.Status = status
	return nil
}

type reversalProcessor struct {
	mu          sync.Mutex
	voidErrs    []error
	refundErrs  []error
	voidCalls   int
	refundCalls int
}

func (p *reversalProcessor) CreateIntent(_ context.Context, _ int64, _, _ string) (*payment.ProcessorIntent, error) {
	return nil, nil
}

func (p *reversalProcessor) Capture(_ context.Context, _ string) error { return nil }

func (p *reversalProcessor) Void(_ context.Context, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voidCalls++
	if len(p.voidErrs) > 0 {
		err := p.voidErrs[0]
		p.voidErrs = p.voidErrs[1:]
		return err
	}
	return nil
}

func (p *reversalProcessor) Refund(_ context.Context, _ string, _ int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refundCalls++
	if len(p.refundErrs) > 0 {
		err := p.refundErrs[0]
		p.refundErrs = p.refundErrs[1:]
		return err
	}
	return nil
}

type memOutbox struct {
	mu   sync.Mutex
	rows []*PendingCompensation
}

func (o *memOutbox) Insert(_ context.Context, row *PendingCompensation) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rows = append(o.rows, row)
	return nil
}

func (o *memOutbox) ListPending(_ context.Context, limit int) ([]*PendingCompensation, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []*PendingCompensation
	for _, r := range o.rows {
		if r.Status == OutboxStatusPending {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (o *memOutbox) MarkDone(_ context.Context, id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, r := range o.rows {
		if r.ID == id {
			r.Status = OutboxStatusDone
			return nil
		}
	}
	return nil
}

func newTestService(payments payment.Repository, processor payment.ProcessorClient, outbox OutboxRepository) *service {
	return &service{
		payments:    payments,
		processor:   processor,
		outbox:      outbox,
		maxAttempts: 3,
		baseDelay:   time.Millisecond,
	}
}

func auth(status payment.Status) *payment.Authorization {
	return &payment.Authorization{
		Ref:         "pi_test",
		AmountCents: 4500,
		Currency:    "usd",
		Status:      status,
	}
}

func TestCompensateVoidsAuthorized(t *testing.T) {
	payments := newStubPayments(auth(payment.StatusAuthorized))
	processor := &reversalProcessor{}
	svc := newTestService(payments, processor, &memOutbox{})

	require.NoError(t, svc.Compensate(context.Background(), "pi_test", "slot lost"))
	assert.Equal(t, 1, processor.voidCalls)
	assert.Zero(t, processor.refundCalls)

	a, err := payments.GetByRef(context.Background(), "pi_test")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusVoided, a.Status)
}

func TestCompensateRefundsCaptured(t *testing.T) {
	payments := newStubPayments(auth(payment.StatusCaptured))
	processor := &reversalProcessor{}
	svc := newTestService(payments, processor, &memOutbox{})

	require.NoError(t, svc.Compensate(context.Background(), "pi_test", "cancellation"))
	assert.Equal(t, 1, processor.refundCalls)
	assert.Zero(t, processor.voidCalls)

	a, err := payments.GetByRef(context.Background(), "pi_test")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusRefunded, a.Status)
}

func TestCompensateIsIdempotent(t *testing.T) {
	payments := newStubPayments(auth(payment.StatusAuthorized))
	processor := &reversalProcessor{}
	svc := newTestService(payments, processor, &memOutbox{})

	require.NoError(t, svc.Compensate(context.Background(), "pi_test", "slot lost"))
	require.NoError(t, svc.Compensate(context.Background(), "pi_test", "slot lost"))
	assert.Equal(t, 1, processor.voidCalls, "already-voided authorization is not reversed again")
}

func TestCompensateNoopWhenNoMoneySecured(t *testing.T) {
	for _, status := range []payment.Status{payment.StatusCreated, payment.StatusFailed} {
		payments := newStubPayments(auth(status))
		processor := &reversalProcessor{}
		svc := newTestService(payments, processor, &memOutbox{})

		require.NoError(t, svc.Compensate(context.Background(), "pi_test", "cleanup"))
		assert.Zero(t, processor.voidCalls)
		assert.Zero(t, processor.refundCalls)
	}
}

func TestCompensateRetriesTransientFailures(t *testing.T) {
	payments := newStubPayments(auth(payment.StatusAuthorized))
	processor := &reversalProcessor{
		voidErrs: []error{payment.ErrProcessorUnavailable, payment.ErrProcessorUnavailable},
	}
	svc := newTestService(payments, processor, &memOutbox{})

	require.NoError(t, svc.Compensate(context.Background(), "pi_test", "slot lost"))
	assert.Equal(t, 3, processor.voidCalls)
}

func TestCompensateParksInOutboxWhenRetriesExhausted(t *testing.T) {
	payments := newStubPayments(auth(payment.StatusCaptured))
	processor := &reversalProcessor{
		refundErrs: []error{
			payment.ErrProcessorUnavailable,
			payment.ErrProcessorUnavailable,
			payment.ErrProcessorUnavailable,
		},
	}
	outbox := &memOutbox{}
	svc := newTestService(payments, processor, outbox)

	err := svc.Compensate(context.Background(), "pi_test", "cancellation")
	require.Error(t, err, "caller must learn the reversal was deferred")
	require.ErrorIs(t, err, payment.ErrProcessorUnavailable)

	pending, listErr := outbox.ListPending(context.Background(), 10)
	require.NoError(t, listErr)
	require.Len(t, pending, 1)
	assert.Equal(t, "pi_test", pending[0].AuthorizationRef)
	assert.Equal(t, ActionRefund, pending[0].Action)
	assert.Equal(t, 3, pending[0].Attempts)
	assert.NotEmpty(t, pending[0].LastError)

	// The authorization keeps its old status: the reconciliation job owns
	// the transition once it drains the outbox.
	a, err := payments.GetByRef(context.Background(), "pi_test")
	require.NoError(t, err)
	assert.Equal(t, payment.StatusCaptured, a.Status)
}

func TestCompensateUnknownRef(t *testing.T) {
	svc := newTestService(newStubPayments(), &reversalProcessor{}, &memOutbox{})

	err := svc.Compensate(context.Background(), "pi_missing", "cleanup")
	require.ErrorIs(t, err, payment.ErrAuthorizationNotFound)
}
