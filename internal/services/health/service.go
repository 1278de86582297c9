package health

import (
	"context"
	"time"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates health-related checks.
type Service struct {
	db      Pinger
	timeout time.Duration
}

// NewService constructs a new health service. A nil db reports in-memory storage.
func NewService(db Pinger) *Service {
	return &Service{db: db, timeout: 2 * time.Second}
}

// Status reports liveness plus the database state and whether every dependency is up.
func (s *Service) Status(ctx context.Context) (map[string]any, bool) {
	if s == nil || s.db == nil {
		return map[string]any{"ok": true, "database": "memory"}, true
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return map[string]any{"ok": false, "database": "down"}, false
	}
	return map[string]any{"ok": true, "database": "up"}, true
}
