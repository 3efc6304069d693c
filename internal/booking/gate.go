package booking

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/tidebook/booking-checkout-backend/internal/clock"
)

const defaultHoldTTL = 10 * time.Minute

// HoldRequest asks the gate for an exclusive claim on a slot.
type HoldRequest struct {
	ResourceID   string
	ServiceID    string
	HolderID     string
	StartTime    time.Time
	EndTime      time.Time
	Notes        string
	ContactPhone string
}

// Gate is the availability gate: the single point of truth for "is this
// resource free in this interval" and the only component that creates or
// deletes slot holds. All cross-request coordination happens in the store's
// atomic operations; the gate holds no in-process locks.
type Gate struct {
	repo    Repository
	clock   clock.Clock
	holdTTL time.Duration
}

func NewGate(repo Repository, clk clock.Clock, holdTTL time.Duration) *Gate {
	if holdTTL <= 0 {
		holdTTL = defaultHoldTTL
	}
	return &Gate{
		repo:    repo,
		clock:   clk,
		holdTTL: holdTTL,
	}
}

// TryHold claims the slot atomically. On contention it returns
// ErrSlotConflict with no side effect; conflict is terminal for the attempt.
func (g *Gate) TryHold(ctx context.Context, req HoldRequest) (*SlotHold, error) {
	now := g.clock.Now()
	hold := &SlotHold{
		ID:           uuid.NewString(),
		ResourceID:   req.ResourceID,
		ServiceID:    req.ServiceID,
		HolderID:     req.HolderID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		ExpiresAt:    now.Add(g.holdTTL),
		Notes:        req.Notes,
		ContactPhone: req.ContactPhone,
		Version:      1,
	}

	if err := g.repo.CreateHold(ctx, hold, now); err != nil {
		return nil, err
	}
	return hold, nil
}

// AttachPaymentRef links the authorized payment to the hold so a later
// confirm can find it by intent id.
func (g *Gate) AttachPaymentRef(ctx context.Context, holdID, ref string) error {
	return g.repo.SetHoldPaymentRef(ctx, holdID, ref)
}

// FindHoldByPaymentRef returns nil when no live hold is linked to the ref.
func (g *Gate) FindHoldByPaymentRef(ctx context.Context, ref string) (*SlotHold, error) {
	return g.repo.FindHoldByPaymentRef(ctx, ref)
}

// Promote turns the hold into a confirmed reservation in one transaction.
func (g *Gate) Promote(ctx context.Context, holdID string) (*Reservation, error) {
	return g.repo.PromoteHold(ctx, holdID, g.clock.Now())
}

// Release deletes the hold. Safe to call multiple times or after expiry.
func (g *Gate) Release(ctx context.Context, holdID string) error {
	return g.repo.ReleaseHold(ctx, holdID)
}

// ReapExpired deletes every hold past its TTL.
func (g *Gate) ReapExpired(ctx context.Context) (int64, error) {
	return g.repo.DeleteExpiredHolds(ctx, g.clock.Now())
}

// StartReaper sweeps expired holds until ctx is cancelled. The sweep is a
// safety net: a crashed attempt must never leak a hold that blocks a
// resource indefinitely.
func (g *Gate) StartReaper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := g.ReapExpired(ctx)
			if err != nil {
				log.Printf("hold reaper: sweep failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("hold reaper: removed %d expired holds", n)
			}
		}
	}
}
