package db

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io/fs"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"docchat-backend/internal/shared/config"
)

type nopDriver struct{}

// flakyFailures is how many more "flaky" opens fail before one succeeds.
var flakyFailures int32

func (d nopDriver) Open(name string) (driver.Conn, error) {
	switch name {
	case "fail-ping":
		return nil, driver.ErrBadConn
	case "flaky":
		if atomic.AddInt32(&flakyFailures, -1) >= 0 {
			return nil, errors.New("connection refused")
		}
	}
	return nopConn{}, nil
}

type nopConn struct{}

func (nopConn) Prepare(query string) (driver.Stmt, error) { return nopStmt{}, nil }
func (nopConn) Close() error                              { return nil }
func (nopConn) Begin() (driver.Tx, error)                 { return nopTx{}, nil }
func (nopConn) Ping(ctx context.Context) error            { return nil }

type nopStmt struct{}

func (nopStmt) Close() error                                    { return nil }
func (nopStmt) NumInput() int                                   { return -1 }
func (nopStmt) Exec(args []driver.Value) (driver.Result, error) { return nopResult{}, nil }
func (nopStmt) Query(args []driver.Value) (driver.Rows, error)  { return nopRows{}, nil }

type nopTx struct{}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

type nopResult struct{}

func (nopResult) LastInsertId() (int64, error) { return 0, nil }
func (nopResult) RowsAffected() (int64, error) { return 0, nil }

type nopRows struct{}

func (nopRows) Columns() []string              { return []string{} }
func (nopRows) Close() error                   { return nil }
func (nopRows) Next(dest []driver.Value) error { return driver.ErrBadConn }

var registerTestDriverOnce sync.Once

func withTestDriver(t *testing.T) {
	t.Helper()
	registerTestDriverOnce.Do(func() {
		sql.Register("dbtest", nopDriver{})
	})
	prev := openDB
	openDB = func(dsn, _ string) (*sql.DB, error) {
		return sql.Open("dbtest", dsn)
	}
	t.Cleanup(func() { openDB = prev })
}

func fastRetry(opts Options) Options {
	opts.RetryBackoff = time.Millisecond
	return opts
}

func TestConnectRejectsEmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), "   ", DefaultServerOptions()); err == nil {
		t.Fatal("expected error for empty DATABASE_URL")
	}
}

func TestConnectSurfacesPingFailure(t *testing.T) {
	withTestDriver(t)
	_, err := Connect(context.Background(), "fail-ping", fastRetry(DefaultServerOptions()))
	if err == nil || !strings.Contains(err.Error(), "ping database") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestConnectRetriesUntilReachable(t *testing.T) {
	withTestDriver(t)
	atomic.StoreInt32(&flakyFailures, 2)

	opts := fastRetry(DefaultServerOptions())
	opts.ConnectAttempts = 3
	db, err := Connect(context.Background(), "flaky", opts)
	if err != nil {
		t.Fatalf("expected third attempt to succeed, got %v", err)
	}
	db.Close()
}

func TestConnectGivesUpAfterAttempts(t *testing.T) {
	withTestDriver(t)
	atomic.StoreInt32(&flakyFailures, 5)

	opts := fastRetry(DefaultServerOptions())
	opts.ConnectAttempts = 2
	if _, err := Connect(context.Background(), "flaky", opts); err == nil {
		t.Fatal("expected failure after two attempts")
	}
}

func TestConnectStopsOnCancel(t *testing.T) {
	withTestDriver(t)
	atomic.StoreInt32(&flakyFailures, 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts := DefaultServerOptions()
	opts.RetryBackoff = time.Hour
	if _, err := Connect(ctx, "flaky", opts); err == nil {
		t.Fatal("expected error on cancelled context")
	}
}

func TestConnectSurfacesOpenFailure(t *testing.T) {
	prev := openDB
	openDB = func(string, string) (*sql.DB, error) { return nil, errors.New("boom") }
	defer func() { openDB = prev }()

	if _, err := Connect(context.Background(), "postgres://x", DefaultServerOptions()); err == nil {
		t.Fatal("expected open error")
	}
}

func TestOpenPGXRejectsMalformedURL(t *testing.T) {
	if _, err := openPGX("postgres://user:pa ss@[bad", "docchat-test"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOptionsFromAppliesOverrides(t *testing.T) {
	withTestDriver(t)

	opts := OptionsFrom(config.DBPool{
		MaxOpenConns:    7,
		MaxIdleConns:    3,
		ConnMaxLifetime: 20 * time.Minute,
		ConnMaxIdleTime: 45 * time.Second,
		PingTimeout:     time.Second,
		ConnectAttempts: 2,
	}, DefaultServerOptions())
	db, err := Connect(context.Background(), "ignored", opts)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if stats := db.Stats(); stats.MaxOpenConnections != 7 {
		t.Fatalf("expected MaxOpenConnections=7, got %d", stats.MaxOpenConnections)
	}
	if opts.MaxIdleConns != 3 || opts.ConnMaxLifetime != 20*time.Minute || opts.ConnMaxIdleTime != 45*time.Second {
		t.Fatalf("unexpected pool options %+v", opts)
	}
	if opts.PingTimeout != time.Second || opts.ConnectAttempts != 2 {
		t.Fatalf("unexpected connect options %+v", opts)
	}
	if opts.ApplicationName != "docchat-api" {
		t.Fatalf("expected default application name, got %q", opts.ApplicationName)
	}
}

func TestOptionsFromZeroKeepsDefaults(t *testing.T) {
	defaults := DefaultMigrateOptions()
	if opts := OptionsFrom(config.DBPool{}, defaults); opts != defaults {
		t.Fatalf("expected defaults to survive empty pool config, got %+v", opts)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.ReadDir(migrationFiles, "migrations")
	if err != nil {
		t.Fatalf("read migrations: %v", err)
	}
	if len(entries) == 0 {
		t.Fatal("expected embedded migrations")
	}
	data, err := fs.ReadFile(migrationFiles, "migrations/"+entries[0].Name())
	if err != nil {
		t.Fatalf("read %s: %v", entries[0].Name(), err)
	}
	if !strings.Contains(string(data), "-- +goose Up") {
		t.Fatalf("migration %s missing goose annotation", entries[0].Name())
	}
}

func TestRunMigrationsNilIsNoop(t *testing.T) {
	if err := RunMigrations(context.Background(), nil); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestMigrationStatusNeedsDatabase(t *testing.T) {
	if err := MigrationStatus(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil database")
	}
}
