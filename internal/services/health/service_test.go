package health

import (
	"context"
	"errors"
	"testing"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) PingContext(ctx context.Context) error { return f(ctx) }

func TestStatus(t *testing.T) {
	cases := []struct {
		name   string
		db     Pinger
		wantOK bool
		wantDB string
	}{
		{name: "memory", db: nil, wantOK: true, wantDB: "memory"},
		{name: "up", db: pingFunc(func(context.Context) error { return nil }), wantOK: true, wantDB: "up"},
		{name: "down", db: pingFunc(func(context.Context) error { return errors.New("refused") }), wantOK: false, wantDB: "down"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, ok := NewService(tc.db).Status(context.Background())
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if body["database"] != tc.wantDB {
				t.Fatalf("database = %v, want %s", body["database"], tc.wantDB)
			}
		})
	}
}
