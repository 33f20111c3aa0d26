package repo

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	//go:embed schema/postgres.sql
	postgresSchema string

	//go:embed schema/sqlite.sql
	sqliteSchema string
)

// MigratePostgres создает таблицы, если их еще нет
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
