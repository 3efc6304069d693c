package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tidebook/booking-checkout-backend/internal/clock"
)

type recordingRepo struct {
	Repository
	createdHold *SlotHold
	createdNow  time.Time
	reapedNow   time.Time
	reaped      int64
}

func (r *recordingRepo) CreateHold(_ context.Context, hold *SlotHold, now time.Time) error {
	r.createdHold = hold
	r.createdNow = now
	return nil
}

func (r *recordingRepo) DeleteExpiredHolds(_ context.Context, now time.Time) (int64, error) {
	r.reapedNow = now
	return r.reaped, nil
}

func TestGateTryHoldStampsExpiry(t *testing.T) {
	repo := &recordingRepo{}
	gate := NewGate(repo, clock.NewFixed(testNow), 10*time.Minute)

	hold, err := gate.TryHold(context.Background(), HoldRequest{
		ResourceID: "res-1",
		ServiceID:  "svc-1",
		HolderID:   "user-1",
		StartTime:  testNow.Add(2 * time.Hour),
		EndTime:    testNow.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, hold.ID)
	assert.Equal(t, testNow.Add(10*time.Minute), hold.ExpiresAt)
	assert.Equal(t, testNow, repo.createdNow)
	assert.Same(t, hold, repo.createdHold)
}

func TestGateDefaultsHoldTTL(t *testing.T) {
	repo := &recordingRepo{}
	gate := NewGate(repo, clock.NewFixed(testNow), 0)

	hold, err := gate.TryHold(context.Background(), HoldRequest{
		ResourceID: "res-1",
		StartTime:  testNow.Add(2 * time.Hour),
		EndTime:    testNow.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(defaultHoldTTL), hold.ExpiresAt)
}

func TestGateReapExpiredUsesCurrentTime(t *testing.T) {
	repo := &recordingRepo{reaped: 3}
	gate := NewGate(repo, clock.NewFixed(testNow), 10*time.Minute)

	n, err := gate.ReapExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, testNow, repo.reapedNow)
}
