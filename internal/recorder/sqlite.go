package recorder

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// SQLiteRecorder journals render jobs to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so dashboards can read while the service writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Info().Str("path", dbPath).Msg("sqlite recorder opened")
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS render_jobs (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp   INTEGER NOT NULL,
			request_id  TEXT,
			ticker      TEXT,
			timeframe   TEXT,
			candles     INTEGER,
			path        TEXT,
			duration_ms INTEGER,
			status      TEXT,
			error       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_render_ts ON render_jobs(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_render_ticker ON render_jobs(ticker, timeframe)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordRender inserts one render record.
func (r *SQLiteRecorder) RecordRender(rec *RenderRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(`INSERT INTO render_jobs
		(timestamp, request_id, ticker, timeframe, candles, path, duration_ms, status, error)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		time.Now().Unix(), rec.RequestID, rec.Ticker, rec.Timeframe,
		rec.Candles, rec.Path, rec.Duration.Milliseconds(), rec.Status, rec.Error,
	)
	return err
}

// Close closes the database.
func (r *SQLiteRecorder) Close() error {
	log.Info().Msg("closing sqlite recorder")
	return r.db.Close()
}
