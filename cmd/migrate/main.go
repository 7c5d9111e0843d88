package main

import (
	"context"
	"time"

	mongoMigration "urutibiz/internal/migrations/mongo"
	postgresMigration "urutibiz/internal/migrations/postgres"
	"urutibiz/pkg/config"
)

const JobName = "migrate"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetStore()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting migration job", "store", cfg.StoreDriver)

	var err error
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		err = mongoMigration.RunMigration(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.Log)
	case config.StoreDriverPostgres:
		err = postgresMigration.RunMigration(ctx, cfg.Client.Postgres, cfg.Log)
	default:
		cfg.Log.Info("Nothing to migrate for store driver", "store", cfg.StoreDriver)
		return
	}
	if err != nil {
		cancel()
		cfg.Log.Fatal("Migration failed", "error", err)
	}

	cfg.Log.Info("Migration completed successfully")
}
