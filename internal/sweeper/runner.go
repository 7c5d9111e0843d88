package sweeper

import (
	"context"
	"fmt"
	"os"
	"time"

	"urutibiz/internal/bookings/repository"
	"urutibiz/pkg/logger"
	"urutibiz/pkg/model"

	"github.com/google/uuid"
)

// LeaseName is shared by every sweeper replica.
const LeaseName = "booking-sweep"

type Sweeper interface {
	SweepExpired(ctx context.Context, now time.Time) ([]*model.Booking, error)
}

// Result summarises one run. Skipped is set when another replica held the lease.
type Result struct {
	StartedAt time.Time
	Expired   int
	Skipped   bool
	Duration  time.Duration
}

type Runner struct {
	sweeper  Sweeper
	leases   repository.LeaseRepository
	holder   string
	interval time.Duration
	timeout  time.Duration
	now      func() time.Time
	log      *logger.Logger
}

type Option func(*Runner)

// WithLeases makes each run conditional on holding the shared sweep lease.
func WithLeases(leases repository.LeaseRepository) Option {
	return func(r *Runner) {
		r.leases = leases
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

func NewRunner(sweeper Sweeper, interval, timeout time.Duration, log *logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		sweeper:  sweeper,
		holder:   holderID(),
		interval: interval,
		timeout:  timeout,
		now:      time.Now,
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start runs a sweep immediately and then on every tick until ctx is done.
// Failed runs are logged and retried on the next tick.
func (r *Runner) Start(ctx context.Context) error {
	if r.interval <= 0 {
		return fmt.Errorf("sweep interval must be positive, got: %s", r.interval)
	}

	r.log.Info("Sweeper started", "interval", r.interval, "timeout", r.timeout, "holder", r.holder)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.log.Error("Sweep run failed", "error", err)
		}

		select {
		case <-ctx.Done():
			r.log.Info("Sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single bounded sweep.
func (r *Runner) RunOnce(ctx context.Context) (Result, error) {
	started := r.now().UTC()
	result := Result{StartedAt: started}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if r.leases != nil {
		acquired, err := r.leases.Acquire(ctx, LeaseName, r.holder, started, r.leaseTTL())
		if err != nil {
			return result, fmt.Errorf("failed to acquire sweep lease: %w", err)
		}
		if !acquired {
			result.Skipped = true
			r.log.Debug("Sweep lease held by another replica, skipping run")
			return result, nil
		}
		defer r.release()
	}

	expired, err := r.sweeper.SweepExpired(ctx, started)
	result.Expired = len(expired)
	result.Duration = r.now().Sub(started)
	if err != nil {
		return result, fmt.Errorf("sweep interrupted after %d bookings: %w", result.Expired, err)
	}

	if result.Expired > 0 {
		r.log.Info("Sweep run completed", "expired", result.Expired, "duration", result.Duration)
	} else {
		r.log.Debug("Sweep run completed", "expired", 0, "duration", result.Duration)
	}
	return result, nil
}

// leaseTTL outlives a run that hits its timeout so a crashed holder frees the
// lease by the following tick.
func (r *Runner) leaseTTL() time.Duration {
	if r.timeout > r.interval {
		return r.timeout
	}
	return r.interval
}

func (r *Runner) release() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.leases.Release(ctx, LeaseName, r.holder); err != nil {
		r.log.Warn("Failed to release sweep lease", "holder", r.holder, "error", err)
	}
}

func holderID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "sweeper"
	}
	return host + "-" + uuid.NewString()[:8]
}
