// Package statelog records outbound resource notifications in SQLite.
//
// The log is telemetry, not mirror state: the mirror is rebuilt from
// the bridge on every start, and the log only answers "what changed
// recently" queries from the HTTP API. Suppressed initial-broadcast
// messages are recorded too, flagged so consumers can filter them.
package statelog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// SQLite driver registration.
	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/lumen-bridge/internal/bus"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

const schema = `
CREATE TABLE IF NOT EXISTS update_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	resource_id   TEXT NOT NULL,
	resource_type TEXT NOT NULL,
	updated_type  TEXT NOT NULL,
	services      TEXT NOT NULL DEFAULT '',
	suppressed    INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
);
CREATE INDEX IF NOT EXISTS idx_update_log_resource
	ON update_log(resource_id, created_at);
`

// Entry is one recorded notification.
type Entry struct {
	ID           int64    `json:"id"`
	ResourceID   string   `json:"resource_id"`
	ResourceType string   `json:"resource_type"`
	UpdatedType  string   `json:"updated_type"`
	Services     []string `json:"services,omitempty"`
	Suppressed   bool     `json:"suppressed"`
	CreatedAt    string   `json:"created_at"`
}

// Logger is the minimal logging surface the recorder needs.
type Logger interface {
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Error(string, ...any) {}

// Recorder persists notifications from the bus's global channel.
//
// Writes happen on the publisher's goroutine; SQLite in WAL mode keeps
// them cheap enough for the mirror's event rates.
type Recorder struct {
	db     *sql.DB
	logger Logger
}

// Open creates (or opens) the log database at path and prepares the
// schema.
func Open(path string) (*Recorder, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening state log: %w", err)
	}
	// One writer keeps SQLite lock contention away and makes
	// in-memory databases (one per connection otherwise) usable.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing state log schema: %w", err)
	}
	return &Recorder{db: db, logger: noopLogger{}}, nil
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Record inserts one notification. Shaped as a bus handler so it can
// be subscribed directly to the global channel; insert failures are
// logged and dropped, never propagated into the propagation path.
func (r *Recorder) Record(msg bus.Message) {
	_, err := r.db.Exec(
		`INSERT INTO update_log (resource_id, resource_type, updated_type, services, suppressed)
		 VALUES (?, ?, ?, ?, ?)`,
		msg.ID,
		msg.Type,
		msg.UpdatedType,
		strings.Join(msg.Services, ","),
		boolToInt(msg.Suppress),
	)
	if err != nil {
		r.logger.Error("state log insert failed", "resource", msg.ID, "error", err)
	}
}

// History returns recent entries for one resource, newest first.
// limit defaults to 50 and is capped at 200.
func (r *Recorder) History(ctx context.Context, resourceID string, limit int) ([]Entry, error) {
	if resourceID == "" {
		return nil, fmt.Errorf("resource id is required")
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, resource_id, resource_type, updated_type, services, suppressed, created_at
		 FROM update_log
		 WHERE resource_id = ?
		 ORDER BY id DESC
		 LIMIT ?`,
		resourceID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state log: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var services string
		var suppressed int

		if err := rows.Scan(&entry.ID, &entry.ResourceID, &entry.ResourceType,
			&entry.UpdatedType, &services, &suppressed, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning state log row: %w", err)
		}
		if services != "" {
			entry.Services = strings.Split(services, ",")
		}
		entry.Suppressed = suppressed != 0
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading state log rows: %w", err)
	}
	return entries, nil
}

// Close closes the underlying database.
func (r *Recorder) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
