package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"docchat-backend/internal/shared/config"
	"docchat-backend/internal/shared/telemetry"
)

// Options controls database pool and connectivity behavior.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	PingTimeout     time.Duration
	// ConnectAttempts bounds how many pings Connect tries before giving up.
	ConnectAttempts int
	RetryBackoff    time.Duration
	ApplicationName string
}

var openDB = openPGX

func openPGX(databaseURL, applicationName string) (*sql.DB, error) {
	cfg, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	if applicationName != "" {
		cfg.RuntimeParams["application_name"] = applicationName
	}
	return stdlib.OpenDB(*cfg), nil
}

// DefaultServerOptions returns defaults for the long-running API process.
// Postgres often comes up after the API in local stacks, so it retries.
func DefaultServerOptions() Options {
	return Options{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		ConnectAttempts: 5,
		RetryBackoff:    time.Second,
		ApplicationName: "docchat-api",
	}
}

// DefaultMigrateOptions returns defaults for short-lived CLI migrations.
func DefaultMigrateOptions() Options {
	return Options{
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxIdleTime: 2 * time.Minute,
		ConnMaxLifetime: time.Hour,
		PingTimeout:     5 * time.Second,
		ConnectAttempts: 1,
		ApplicationName: "docchat-migrate",
	}
}

// OptionsFrom applies the configured pool overrides on top of defaults.
// Zero fields in pool keep the default.
func OptionsFrom(pool config.DBPool, defaults Options) Options {
	opts := defaults
	if pool.MaxOpenConns > 0 {
		opts.MaxOpenConns = pool.MaxOpenConns
	}
	if pool.MaxIdleConns > 0 {
		opts.MaxIdleConns = pool.MaxIdleConns
	}
	if pool.ConnMaxLifetime > 0 {
		opts.ConnMaxLifetime = pool.ConnMaxLifetime
	}
	if pool.ConnMaxIdleTime > 0 {
		opts.ConnMaxIdleTime = pool.ConnMaxIdleTime
	}
	if pool.PingTimeout > 0 {
		opts.PingTimeout = pool.PingTimeout
	}
	if pool.ConnectAttempts > 0 {
		opts.ConnectAttempts = pool.ConnectAttempts
	}
	return opts
}

// Connect opens a pgx-backed *sql.DB and waits until it answers a ping.
// The returned *sql.DB should be shared and re-used by callers.
func Connect(ctx context.Context, databaseURL string, opts Options) (*sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := openDB(databaseURL, opts.ApplicationName)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	applyOptions(db, opts)

	if err := pingWithRetry(ctx, db, opts); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logPoolStats(db, "db.init")
	return db, nil
}

func pingWithRetry(ctx context.Context, db *sql.DB, opts Options) error {
	attempts := opts.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	backoff := opts.RetryBackoff
	if backoff <= 0 {
		backoff = time.Second
	}

	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, timeout)
		err := db.PingContext(pingCtx)
		cancel()
		if err == nil || attempt >= attempts {
			return err
		}
		telemetry.Warn("db.ping_retry", map[string]any{"attempt": attempt, "of": attempts, "error": err})
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff * time.Duration(attempt)):
		}
	}
}

func applyOptions(db *sql.DB, opts Options) {
	if opts.MaxOpenConns <= 0 {
		opts.MaxOpenConns = 10
	}
	if opts.MaxIdleConns <= 0 {
		opts.MaxIdleConns = 5
	}
	if opts.ConnMaxLifetime <= 0 {
		opts.ConnMaxLifetime = time.Hour
	}
	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	if opts.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(opts.ConnMaxIdleTime)
	}
}

func logPoolStats(db *sql.DB, label string) {
	stats := db.Stats()
	telemetry.Info(label, map[string]any{
		"open":     stats.OpenConnections,
		"in_use":   stats.InUse,
		"idle":     stats.Idle,
		"wait":     stats.WaitCount,
		"max_open": stats.MaxOpenConnections,
	})
}
