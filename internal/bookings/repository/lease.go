package repository

import (
	"context"
	"sync"
	"time"

	"urutibiz/pkg/config"
	mongodb "urutibiz/pkg/db/mongo"
	"urutibiz/pkg/db/postgres"
	"urutibiz/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const LeaseCollectionName = "Booking_leases"

// LeaseRepository hands out advisory leases. Acquire reports false, without
// error, when another holder owns an unexpired lease of the same name.
type LeaseRepository interface {
	Acquire(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name, holder string) error
}

type mongoLeaseRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoLeaseRepository(cfg *config.Config) LeaseRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLeaseRepository{
		cfg:        cfg,
		collection: db.Collection(LeaseCollectionName),
	}
}

// Acquire upserts the lease only when it is missing, expired or already ours.
// A live lease held by someone else makes the upsert collide on _id.
func (r *mongoLeaseRepository) Acquire(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	filter := bson.M{
		"_id": name,
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$lte": now}},
			bson.M{"holder": holder},
		},
	}
	update := bson.M{
		"$set":         bson.M{"holder": holder, "expires_at": now.Add(ttl)},
		"$setOnInsert": bson.M{"created_at": now},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, wrapMongoErr("acquire lease", err)
	}
	return true, nil
}

func (r *mongoLeaseRepository) Release(ctx context.Context, name, holder string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteOne(ctx, bson.M{"_id": name, "holder": holder}); err != nil {
		return wrapMongoErr("release lease", err)
	}
	return nil
}

type postgresLeaseRepository struct {
	db           postgres.Querier
	writeTimeout time.Duration
}

func NewPostgresLeaseRepository(cfg *config.Config) LeaseRepository {
	return &postgresLeaseRepository{
		db:           cfg.Client.Postgres,
		writeTimeout: cfg.WriteTimeout,
	}
}

func (r *postgresLeaseRepository) Acquire(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error) {
	ctx, cancel := postgres.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	tag, err := r.db.Exec(ctx, `
		INSERT INTO booking_leases (id, holder, expires_at, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET holder = EXCLUDED.holder, expires_at = EXCLUDED.expires_at
		WHERE booking_leases.expires_at <= $4 OR booking_leases.holder = EXCLUDED.holder`,
		name, holder, now.Add(ttl), now,
	)
	if err != nil {
		return false, wrapPostgresErr("acquire lease", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *postgresLeaseRepository) Release(ctx context.Context, name, holder string) error {
	ctx, cancel := postgres.WithTimeout(ctx, r.writeTimeout)
	defer cancel()

	if _, err := r.db.Exec(ctx, `DELETE FROM booking_leases WHERE id = $1 AND holder = $2`, name, holder); err != nil {
		return wrapPostgresErr("release lease", err)
	}
	return nil
}

type memoryLeaseRepository struct {
	mu     sync.Mutex
	leases map[string]model.Lease
}

func NewMemoryLeaseRepository() LeaseRepository {
	return &memoryLeaseRepository{leases: make(map[string]model.Lease)}
}

func (r *memoryLeaseRepository) Acquire(ctx context.Context, name, holder string, now time.Time, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.leases[name]
	if ok && current.Holder != holder && current.ExpiresAt.After(now) {
		return false, nil
	}
	created := now
	if ok {
		created = current.CreatedAt
	}
	r.leases[name] = model.Lease{ID: name, Holder: holder, ExpiresAt: now.Add(ttl), CreatedAt: created}
	return true, nil
}

func (r *memoryLeaseRepository) Release(ctx context.Context, name, holder string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if current, ok := r.leases[name]; ok && current.Holder == holder {
		delete(r.leases, name)
	}
	return nil
}
