package sweeper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"urutibiz/internal/bookings/repository"
	"urutibiz/pkg/logger"
	"urutibiz/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSweeper struct {
	mu       sync.Mutex
	calls    []time.Time
	expired  []*model.Booking
	err      error
	deadline bool
}

func (s *countingSweeper) SweepExpired(ctx context.Context, now time.Time) ([]*model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, s.deadline = ctx.Deadline()
	s.calls = append(s.calls, now)
	return s.expired, s.err
}

func (s *countingSweeper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestRunOnce(t *testing.T) {
	sweeper := &countingSweeper{expired: []*model.Booking{{ID: "a"}, {ID: "b"}}}
	runner := NewRunner(sweeper, time.Minute, 10*time.Second, logger.Discard(), WithClock(func() time.Time { return t0 }))

	result, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, result.Expired)
	assert.False(t, result.Skipped)
	require.Len(t, sweeper.calls, 1)
	assert.True(t, sweeper.calls[0].Equal(t0))
	assert.True(t, sweeper.deadline, "sweep should run under a bounded context")
}

func TestRunOnce_PartialFailure(t *testing.T) {
	sweeper := &countingSweeper{
		expired: []*model.Booking{{ID: "a"}},
		err:     errors.New("store unavailable"),
	}
	runner := NewRunner(sweeper, time.Minute, time.Second, logger.Discard())

	result, err := runner.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, result.Expired)
}

func TestRunOnce_LeaseHeldElsewhere(t *testing.T) {
	leases := repository.NewMemoryLeaseRepository()
	ok, err := leases.Acquire(context.Background(), LeaseName, "other-replica", t0, time.Hour)
	require.NoError(t, err)
	require.True(t, ok)

	sweeper := &countingSweeper{}
	runner := NewRunner(sweeper, time.Minute, time.Second, logger.Discard(),
		WithLeases(leases),
		WithClock(func() time.Time { return t0.Add(time.Minute) }),
	)

	result, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Skipped)
	assert.Zero(t, sweeper.callCount())
}

func TestRunOnce_ReleasesLease(t *testing.T) {
	leases := repository.NewMemoryLeaseRepository()
	sweeper := &countingSweeper{}
	runner := NewRunner(sweeper, time.Minute, time.Second, logger.Discard(),
		WithLeases(leases),
		WithClock(func() time.Time { return t0 }),
	)

	_, err := runner.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sweeper.callCount())

	ok, err := leases.Acquire(context.Background(), LeaseName, "other-replica", t0, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "lease should be free after the run")
}

func TestStart_TicksUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	runner := NewRunner(sweeper, 10*time.Millisecond, time.Second, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Start(ctx) }()

	require.Eventually(t, func() bool { return sweeper.callCount() >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop after cancel")
	}
}

func TestStart_RejectsNonPositiveInterval(t *testing.T) {
	runner := NewRunner(&countingSweeper{}, 0, time.Second, logger.Discard())
	assert.Error(t, runner.Start(context.Background()))
}
