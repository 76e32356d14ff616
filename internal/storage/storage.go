// Package storage persists the transition audit trail to SQLite. Each
// committed registry event becomes one row; the admin API queries them and a
// background loop prunes rows past the retention window.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/intelworks/tool-runtime-manager/internal/config"
	"github.com/intelworks/tool-runtime-manager/internal/registry"
)

const schema = `
CREATE TABLE IF NOT EXISTS transition_events (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	seq        INTEGER NOT NULL,
	tool       TEXT    NOT NULL,
	from_state TEXT    NOT NULL,
	to_state   TEXT    NOT NULL,
	reason     TEXT    NOT NULL,
	timestamp  DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_transition_events_tool ON transition_events(tool);
CREATE INDEX IF NOT EXISTS idx_transition_events_timestamp ON transition_events(timestamp);
`

// Event is one persisted transition audit record.
type Event struct {
	ID        int64     `json:"id"`
	Seq       uint64    `json:"seq"`
	Tool      string    `json:"tool"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// Filter narrows an event query. Zero fields match everything.
type Filter struct {
	Tool   string
	Reason string
	Since  time.Time
	Limit  int
}

// Store is the SQLite-backed audit event store.
type Store struct {
	db     *sql.DB
	logger *zap.Logger

	retention       time.Duration
	cleanupInterval time.Duration
}

// New opens (or creates) the event database and initializes the schema.
func New(cfg config.StorageConfig, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", cfg.DatabasePath)
	if cfg.DatabasePath == ":memory:" {
		dsn = ":memory:"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open event database: %w", err)
	}
	// A single writer keeps SQLite out of SQLITE_BUSY territory.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize event schema: %w", err)
	}

	return &Store{
		db:              db,
		logger:          logger,
		retention:       cfg.Retention,
		cleanupInterval: cfg.CleanupInterval,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// StoreEvent persists one committed transition.
func (s *Store) StoreEvent(ctx context.Context, ev registry.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO transition_events (seq, tool, from_state, to_state, reason, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Seq, ev.Tool, string(ev.From), string(ev.To), string(ev.Reason), ev.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to store transition event: %w", err)
	}
	return nil
}

// Observer adapts the store into a registry audit sink. Persistence failures
// are logged, never propagated into the transition path.
func (s *Store) Observer() registry.Observer {
	return func(ev registry.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.StoreEvent(ctx, ev); err != nil {
			s.logger.Warn("Dropping audit event",
				zap.String("tool", ev.Tool),
				zap.Error(err))
		}
	}
}

// GetEvents returns audit events matching the filter, newest first.
func (s *Store) GetEvents(ctx context.Context, f Filter) ([]Event, error) {
	query := `SELECT id, seq, tool, from_state, to_state, reason, timestamp
		FROM transition_events`
	var conds []string
	var args []interface{}

	if f.Tool != "" {
		conds = append(conds, "tool = ?")
		args = append(args, f.Tool)
	}
	if f.Reason != "" {
		conds = append(conds, "reason = ?")
		args = append(args, f.Reason)
	}
	if !f.Since.IsZero() {
		conds = append(conds, "timestamp >= ?")
		args = append(args, f.Since.UTC())
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id DESC"

	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transition events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Seq, &ev.Tool, &ev.From, &ev.To, &ev.Reason, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan transition event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Cleanup deletes events older than the retention window and returns the
// number of rows removed.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.retention).UTC()
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM transition_events WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune transition events: %w", err)
	}
	return res.RowsAffected()
}

// Run prunes expired events on the configured interval until ctx is
// cancelled.
func (s *Store) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			removed, err := s.Cleanup(ctx)
			if err != nil {
				s.logger.Warn("Event cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				s.logger.Debug("Pruned expired audit events", zap.Int64("removed", removed))
			}
		}
	}
}
