package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	settingserrors "urutibiz/internal/settings/errors"
	"urutibiz/pkg/config"
	mongodb "urutibiz/pkg/db/mongo"
	"urutibiz/pkg/db/postgres"
	"urutibiz/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	CollectionName = "System_settings"
	TableName      = "system_settings"
)

type SettingRepository interface {
	Get(ctx context.Context, key string) (*model.SystemSetting, error)
	Upsert(ctx context.Context, setting *model.SystemSetting) error
	Ping(ctx context.Context) error
}

type mongoSettingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
}

func NewMongoSettingRepository(cfg *config.Config) SettingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoSettingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoSettingRepository) Get(ctx context.Context, key string) (*model.SystemSetting, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var setting model.SystemSetting
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&setting)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", settingserrors.ErrNotFound, key)
		}
		return nil, wrapMongoErr("get setting", err)
	}
	return &setting, nil
}

func (r *mongoSettingRepository) Upsert(ctx context.Context, setting *model.SystemSetting) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"value":       setting.Value,
		"category":    setting.Category,
		"description": setting.Description,
		"updated_at":  setting.UpdatedAt,
	}}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": setting.Key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return wrapMongoErr("upsert setting", err)
	}
	return nil
}

func (r *mongoSettingRepository) Ping(ctx context.Context) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := r.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		return wrapMongoErr("ping settings store", err)
	}
	return nil
}

type postgresSettingRepository struct {
	db     postgres.Querier
	pinger postgres.Pinger
	cfg    *config.Config
}

func NewPostgresSettingRepository(cfg *config.Config) SettingRepository {
	return &postgresSettingRepository{
		db:     cfg.Client.Postgres,
		pinger: cfg.Client.Postgres,
		cfg:    cfg,
	}
}

func (r *postgresSettingRepository) Get(ctx context.Context, key string) (*model.SystemSetting, error) {
	ctx, cancel := postgres.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var setting model.SystemSetting
	err := r.db.QueryRow(ctx, `
		SELECT key, value, category, COALESCE(description, ''), updated_at
		FROM system_settings WHERE key = $1`, key,
	).Scan(&setting.Key, &setting.Value, &setting.Category, &setting.Description, &setting.UpdatedAt)
	if err != nil {
		if postgres.IsNoRows(err) {
			return nil, fmt.Errorf("%w: %s", settingserrors.ErrNotFound, key)
		}
		return nil, wrapPostgresErr("get setting", err)
	}
	setting.UpdatedAt = setting.UpdatedAt.UTC()
	return &setting, nil
}

func (r *postgresSettingRepository) Upsert(ctx context.Context, setting *model.SystemSetting) error {
	ctx, cancel := postgres.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO system_settings (key, value, category, description, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5)
		ON CONFLICT (key) DO UPDATE
		SET value = EXCLUDED.value,
		    category = EXCLUDED.category,
		    description = EXCLUDED.description,
		    updated_at = EXCLUDED.updated_at`,
		setting.Key,
		setting.Value,
		setting.Category,
		setting.Description,
		setting.UpdatedAt,
	)
	if err != nil {
		return wrapPostgresErr("upsert setting", err)
	}
	return nil
}

func (r *postgresSettingRepository) Ping(ctx context.Context) error {
	ctx, cancel := postgres.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := r.pinger.Ping(ctx); err != nil {
		return wrapPostgresErr("ping settings store", err)
	}
	return nil
}

type memorySettingRepository struct {
	mu       sync.RWMutex
	settings map[string]model.SystemSetting
}

func NewMemorySettingRepository() SettingRepository {
	return &memorySettingRepository{settings: make(map[string]model.SystemSetting)}
}

func (r *memorySettingRepository) Get(ctx context.Context, key string) (*model.SystemSetting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	setting, ok := r.settings[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", settingserrors.ErrNotFound, key)
	}
	return &setting, nil
}

func (r *memorySettingRepository) Upsert(ctx context.Context, setting *model.SystemSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.settings[setting.Key] = *setting
	return nil
}

func (r *memorySettingRepository) Ping(ctx context.Context) error {
	return nil
}

func wrapMongoErr(op string, err error) error {
	if mongodb.IsUnavailable(err) {
		return fmt.Errorf("failed to %s: %w: %w", op, settingserrors.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func wrapPostgresErr(op string, err error) error {
	if postgres.IsUnavailable(err) {
		return fmt.Errorf("failed to %s: %w: %w", op, settingserrors.ErrStoreUnavailable, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// NewSettingRepository picks the implementation STORE_DRIVER names.
func NewSettingRepository(cfg *config.Config) SettingRepository {
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		return NewPostgresSettingRepository(cfg)
	case config.StoreDriverMemory:
		return NewMemorySettingRepository()
	default:
		return NewMongoSettingRepository(cfg)
	}
}
