package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const migrationsDir = "migrations"

// RunMigrations applies the embedded schema migrations. A nil database means
// in-memory repositories and is a no-op.
func RunMigrations(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return nil
	}
	if err := useEmbedded(); err != nil {
		return err
	}
	return goose.UpContext(ctx, database, migrationsDir)
}

// MigrationStatus prints the applied state of each embedded migration.
func MigrationStatus(ctx context.Context, database *sql.DB) error {
	if database == nil {
		return errors.New("migration status needs a database")
	}
	if err := useEmbedded(); err != nil {
		return err
	}
	return goose.StatusContext(ctx, database, migrationsDir)
}

func useEmbedded() error {
	goose.SetBaseFS(migrationFiles)
	return goose.SetDialect("postgres")
}
