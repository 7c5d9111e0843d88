package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"urutibiz/pkg/db/postgres"
	"urutibiz/pkg/logger"
)

//go:embed schema.sql
var schema string

// Statements splits the embedded schema on semicolons. The schema holds no
// functions or literals containing semicolons.
func Statements() []string {
	var out []string
	for _, stmt := range strings.Split(schema, ";") {
		if s := strings.TrimSpace(stmt); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func RunMigration(ctx context.Context, db postgres.Querier, log *logger.Logger) error {
	log.Info("Running Postgres migrations")

	for i, stmt := range Statements() {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d failed: %w", i+1, err)
		}
	}

	log.Info("All Postgres migrations applied")
	return nil
}
