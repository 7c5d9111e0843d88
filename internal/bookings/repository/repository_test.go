package repository_test

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	bookingserrors "urutibiz/internal/bookings/errors"
	"urutibiz/internal/bookings/repository"
	mongomigration "urutibiz/internal/migrations/mongo"
	pgmigration "urutibiz/internal/migrations/postgres"
	"urutibiz/pkg/client"
	"urutibiz/pkg/config"
	"urutibiz/pkg/logger"
	"urutibiz/pkg/model"
	"urutibiz/pkg/money"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	envTestMongoURI    = "TEST_MONGO_URI"
	envTestPostgresURL = "TEST_POSTGRES_URL"
)

type stores struct {
	bookings repository.BookingRepository
	leases   repository.LeaseRepository
}

type storeFactory func(t *testing.T) stores

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"memory":   memoryStores,
		"mongo":    mongoStores,
		"postgres": postgresStores,
	}
}

func memoryStores(t *testing.T) stores {
	return stores{
		bookings: repository.NewMemoryBookingRepository(),
		leases:   repository.NewMemoryLeaseRepository(),
	}
}

func testConfig() *config.Config {
	return &config.Config{
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		Client:       client.NewClient(),
	}
}

func mongoStores(t *testing.T) stores {
	uri := os.Getenv(envTestMongoURI)
	if uri == "" {
		t.Skipf("%s not set", envTestMongoURI)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Client.Mongo = c
	cfg.MongoDatabaseName = "urutibiz_test_" + uuid.NewString()[:8]

	db := c.Database(cfg.MongoDatabaseName)
	require.NoError(t, mongomigration.RunMigration(ctx, db, logger.Discard()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
		_ = c.Disconnect(ctx)
	})

	return stores{
		bookings: repository.NewMongoBookingRepository(cfg),
		leases:   repository.NewMongoLeaseRepository(cfg),
	}
}

func postgresStores(t *testing.T) stores {
	url := os.Getenv(envTestPostgresURL)
	if url == "" {
		t.Skipf("%s not set", envTestPostgresURL)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	require.NoError(t, pgmigration.RunMigration(ctx, pool, logger.Discard()))

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_, _ = pool.Exec(ctx, "TRUNCATE bookings, booking_leases")
		pool.Close()
	})

	cfg := testConfig()
	cfg.Client.Postgres = pool
	return stores{
		bookings: repository.NewPostgresBookingRepository(cfg),
		leases:   repository.NewPostgresLeaseRepository(cfg),
	}
}

var baseTime = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newPending(created time.Time, window time.Duration) *model.Booking {
	expires := created.Add(window)
	return &model.Booking{
		ProductID: "product-" + uuid.NewString()[:8],
		RenterID:  "renter-1",
		Status:    model.BookingStatusPending,
		Amount:    money.MustParse("869728860"),
		Currency:  "RWF",
		CreatedAt: created,
		UpdatedAt: created,
		ExpiresAt: &expires,
	}
}

func forEachStore(t *testing.T, fn func(t *testing.T, s stores)) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			fn(t, factory(t))
		})
	}
}

func TestCreateAndFind(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		b := newPending(baseTime, 2*time.Hour)

		require.NoError(t, s.bookings.Create(ctx, b))
		require.NotEmpty(t, b.ID)

		got, err := s.bookings.FindByID(ctx, b.ID)
		require.NoError(t, err)
		require.Equal(t, model.BookingStatusPending, got.Status)
		require.True(t, got.Amount.Equal(money.MustParse("869728860")), "amount stored without truncation, got %s", got.Amount)
		require.Equal(t, "RWF", got.Currency)
		require.NotNil(t, got.ExpiresAt)
		require.True(t, got.ExpiresAt.Equal(baseTime.Add(2*time.Hour)))
	})
}

func TestFindByID_Errors(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		_, err := s.bookings.FindByID(ctx, "not-an-id")
		require.ErrorIs(t, err, bookingserrors.ErrInvalidID)

		b := newPending(baseTime, time.Hour)
		require.NoError(t, s.bookings.Create(ctx, b))

		// Mongo hands out ObjectIDs, the other stores UUIDs.
		missing := uuid.NewString()
		if len(b.ID) == 24 {
			missing = "0123456789abcdef01234567"
		}
		_, err = s.bookings.FindByID(ctx, missing)
		require.ErrorIs(t, err, bookingserrors.ErrNotFound)
	})
}

func TestTransition_Guards(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		b := newPending(baseTime, 2*time.Hour)
		require.NoError(t, s.bookings.Create(ctx, b))
		deadline := *b.ExpiresAt

		_, err := s.bookings.Transition(ctx, repository.Transition{
			ID: b.ID, To: model.BookingStatusConfirmed, At: deadline, Guard: repository.GuardOpen,
		})
		require.ErrorIs(t, err, bookingserrors.ErrStateConflict, "confirm at the deadline must fail")

		_, err = s.bookings.Transition(ctx, repository.Transition{
			ID: b.ID, To: model.BookingStatusExpired, At: deadline.Add(-time.Millisecond), Guard: repository.GuardElapsed,
		})
		require.ErrorIs(t, err, bookingserrors.ErrStateConflict, "expire before the deadline must fail")

		_, err = s.bookings.Transition(ctx, repository.Transition{
			ID: b.ID, To: model.BookingStatusCompleted, At: baseTime.Add(time.Minute),
		})
		require.ErrorIs(t, err, bookingserrors.ErrStateConflict, "pending cannot complete")

		at := baseTime.Add(time.Minute)
		confirmed, err := s.bookings.Transition(ctx, repository.Transition{
			ID: b.ID, To: model.BookingStatusConfirmed, At: at, Guard: repository.GuardOpen, PaymentReference: "pay-1",
		})
		require.NoError(t, err)
		require.Equal(t, model.BookingStatusConfirmed, confirmed.Status)
		require.Nil(t, confirmed.ExpiresAt)
		require.Equal(t, "pay-1", confirmed.PaymentReference)
		require.NotNil(t, confirmed.ConfirmedAt)
		require.True(t, confirmed.ConfirmedAt.Equal(at))

		_, err = s.bookings.Transition(ctx, repository.Transition{
			ID: b.ID, To: model.BookingStatusConfirmed, At: at, Guard: repository.GuardOpen,
		})
		require.ErrorIs(t, err, bookingserrors.ErrStateConflict, "confirm is not repeatable")
	})
}

func TestTransition_TerminalIsImmutable(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		b := newPending(baseTime, time.Hour)
		require.NoError(t, s.bookings.Create(ctx, b))

		_, err := s.bookings.Transition(ctx, repository.Transition{
			ID: b.ID, To: model.BookingStatusCancelled, At: baseTime.Add(time.Minute), CancellationReason: "changed plans",
		})
		require.NoError(t, err)

		for _, to := range []model.BookingStatus{
			model.BookingStatusConfirmed,
			model.BookingStatusExpired,
			model.BookingStatusCompleted,
			model.BookingStatusCancelled,
		} {
			_, err := s.bookings.Transition(ctx, repository.Transition{ID: b.ID, To: to, At: baseTime.Add(2 * time.Hour)})
			require.ErrorIs(t, err, bookingserrors.ErrStateConflict, "cancelled -> %s", to)
		}

		got, err := s.bookings.FindByID(ctx, b.ID)
		require.NoError(t, err)
		require.Equal(t, model.BookingStatusCancelled, got.Status)
		require.Equal(t, "changed plans", got.CancellationReason)
	})
}

func TestFindExpirable(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		now := baseTime.Add(3 * time.Hour)

		due := newPending(baseTime, 2*time.Hour)
		atDeadline := newPending(baseTime.Add(time.Hour), 2*time.Hour)
		notDue := newPending(baseTime.Add(2*time.Hour), 2*time.Hour)
		for _, b := range []*model.Booking{due, atDeadline, notDue} {
			require.NoError(t, s.bookings.Create(ctx, b))
		}

		found, err := s.bookings.FindExpirable(ctx, now, 10, nil)
		require.NoError(t, err)

		ids := map[string]bool{}
		for _, b := range found {
			ids[b.ID] = true
		}
		require.True(t, ids[due.ID])
		require.True(t, ids[atDeadline.ID], "expires_at == now is due")
		require.False(t, ids[notDue.ID])

		limited, err := s.bookings.FindExpirable(ctx, now, 1, nil)
		require.NoError(t, err)
		require.Len(t, limited, 1)
		require.Equal(t, due.ID, limited[0].ID, "oldest deadline first")

		next, err := s.bookings.FindExpirable(ctx, now, 1, []string{due.ID})
		require.NoError(t, err)
		require.Len(t, next, 1)
		require.Equal(t, atDeadline.ID, next[0].ID, "excluded ids are skipped")
	})
}

func TestFindAllAndCount(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		var ids []string
		for i := 0; i < 3; i++ {
			b := newPending(baseTime.Add(time.Duration(i)*time.Minute), time.Hour)
			require.NoError(t, s.bookings.Create(ctx, b))
			ids = append(ids, b.ID)
		}
		_, err := s.bookings.Transition(ctx, repository.Transition{
			ID: ids[0], To: model.BookingStatusCancelled, At: baseTime.Add(5 * time.Minute),
		})
		require.NoError(t, err)

		pendingFilter := model.BookingFilter{Status: model.BookingStatusPending, RenterID: "renter-1"}
		count, err := s.bookings.Count(ctx, pendingFilter)
		require.NoError(t, err)
		require.Equal(t, int64(2), count)

		page, err := s.bookings.FindAll(ctx, pendingFilter, 1, 0)
		require.NoError(t, err)
		require.Len(t, page, 1)
		require.Equal(t, ids[2], page[0].ID, "newest first")
	})
}

// Exactly one of a racing confirm and expire may win.
func TestTransition_ConfirmExpireRace(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()

		for round := 0; round < 20; round++ {
			b := newPending(baseTime, time.Hour)
			require.NoError(t, s.bookings.Create(ctx, b))

			var wins atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})

			attempts := []repository.Transition{
				{ID: b.ID, To: model.BookingStatusConfirmed, At: b.ExpiresAt.Add(-time.Millisecond), Guard: repository.GuardOpen},
				{ID: b.ID, To: model.BookingStatusExpired, At: *b.ExpiresAt, Guard: repository.GuardElapsed},
				{ID: b.ID, To: model.BookingStatusExpired, At: *b.ExpiresAt, Guard: repository.GuardElapsed},
			}
			for _, tr := range attempts {
				wg.Add(1)
				go func(tr repository.Transition) {
					defer wg.Done()
					<-start
					_, err := s.bookings.Transition(ctx, tr)
					if err == nil {
						wins.Add(1)
						return
					}
					assert.ErrorIs(t, err, bookingserrors.ErrStateConflict)
				}(tr)
			}
			close(start)
			wg.Wait()

			require.Equal(t, int32(1), wins.Load(), "round %d", round)
		}
	})
}

func TestLease(t *testing.T) {
	forEachStore(t, func(t *testing.T, s stores) {
		ctx := context.Background()
		name := "sweep-" + uuid.NewString()[:8]

		ok, err := s.leases.Acquire(ctx, name, "a", baseTime, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.leases.Acquire(ctx, name, "b", baseTime.Add(30*time.Second), time.Minute)
		require.NoError(t, err)
		require.False(t, ok, "live lease belongs to a")

		ok, err = s.leases.Acquire(ctx, name, "a", baseTime.Add(30*time.Second), time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "holder may renew")

		ok, err = s.leases.Acquire(ctx, name, "b", baseTime.Add(2*time.Minute), time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "expired lease can be taken over")

		require.NoError(t, s.leases.Release(ctx, name, "a"))
		ok, err = s.leases.Acquire(ctx, name, "a", baseTime.Add(2*time.Minute), time.Minute)
		require.NoError(t, err)
		require.False(t, ok, "release by a non-holder is a no-op")

		require.NoError(t, s.leases.Release(ctx, name, "b"))
		ok, err = s.leases.Acquire(ctx, name, "a", baseTime.Add(2*time.Minute), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	})
}
