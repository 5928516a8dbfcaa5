package sqlite

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"screentime/internal/event"
	"screentime/internal/storage"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteStore struct {
	db     *sqlx.DB
	dbPath string
}

func NewSQLiteStore(dbPath string) storage.Storage {
	return &SQLiteStore{dbPath: dbPath}
}

const createEventsTableSQL = `
CREATE TABLE IF NOT EXISTS events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp DATETIME NOT NULL,
	type TEXT NOT NULL,
	app_id TEXT NOT NULL DEFAULT '',
	app_name TEXT NOT NULL DEFAULT '',
	value REAL NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_events_timestamp ON events (timestamp);
CREATE INDEX IF NOT EXISTS idx_events_type ON events (type);
CREATE INDEX IF NOT EXISTS idx_events_app ON events (app_id);
`

func (s *SQLiteStore) Init(ctx context.Context) error {
	dir := filepath.Dir(s.dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create db directory %s: %w", dir, err)
	}

	log.Printf("Initializing SQLite database at: %s", s.dbPath)
	db, err := sqlx.Open("sqlite3", s.dbPath+"?_journal=WAL&_timeout=5000&_fk=true")
	if err != nil {
		return fmt.Errorf("failed to open sqlite database: %w", err)
	}
	s.db = db

	// SQLite is best with a single writer connection
	s.db.SetMaxOpenConns(1)
	s.db.SetMaxIdleConns(1)
	s.db.SetConnMaxLifetime(time.Minute * 5)

	if err := s.db.PingContext(ctx); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, createEventsTableSQL); err != nil {
		s.db.Close()
		return fmt.Errorf("failed to create events table: %w", err)
	}
	log.Println("Database initialized successfully.")
	return nil
}

func (s *SQLiteStore) SaveEvent(ctx context.Context, e event.Event) (int64, error) {
	// Stored in UTC so range queries compare like with like
	e.Timestamp = e.Timestamp.UTC()
	query := `INSERT INTO events (timestamp, type, app_id, app_name, value, notes)
	          VALUES (:timestamp, :type, :app_id, :app_name, :value, :notes)`
	res, err := s.db.NamedExecContext(ctx, query, e)
	if err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) GetEvents(ctx context.Context, start, end time.Time, eventTypes ...event.EventType) ([]event.Event, error) {
	query := `SELECT id, timestamp, type, app_id, app_name, value, notes
	          FROM events
	          WHERE timestamp >= ? AND timestamp <= ?`
	args := []interface{}{start.UTC(), end.UTC()}

	if len(eventTypes) > 0 {
		query += " AND type IN (?)"
		args = append(args, eventTypes)
		var err error
		query, args, err = sqlx.In(query, args...)
		if err != nil {
			return nil, fmt.Errorf("failed to expand event type filter: %w", err)
		}
		query = s.db.Rebind(query)
	}

	query += " ORDER BY timestamp ASC, id ASC"

	events := []event.Event{}
	if err := s.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return events, nil
}

// UsageByApp counts tick events per app in the range, most used first.
func (s *SQLiteStore) UsageByApp(ctx context.Context, start, end time.Time) ([]storage.AppUsage, error) {
	query := `SELECT app_id, MAX(app_name) AS app_name, COUNT(*) AS minutes
	          FROM events
	          WHERE type = ? AND timestamp >= ? AND timestamp <= ?
	          GROUP BY app_id
	          ORDER BY minutes DESC, app_id ASC`
	usage := []storage.AppUsage{}
	if err := s.db.SelectContext(ctx, &usage, query, event.EventTypeTick, start.UTC(), end.UTC()); err != nil {
		return nil, fmt.Errorf("failed to aggregate usage: %w", err)
	}
	return usage, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		log.Println("Closing database connection.")
		return s.db.Close()
	}
	return nil
}
