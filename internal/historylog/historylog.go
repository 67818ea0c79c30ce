// Package historylog implements an optional Postgres-backed append log of
// prepare/remove operations, giving operators visibility into processor
// activity across restarts: database/sql over github.com/lib/pq, with a
// CREATE TABLE IF NOT EXISTS + index migration run once on connect.
// Disabled (nil *Recorder's db field) when no DSN is configured; every
// write is best-effort, logged on failure, and never blocks the Processor
// loop it reports from.
package historylog

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq"
)

const createTableSQL = `
CREATE TABLE IF NOT EXISTS prepare_history (
    id BIGSERIAL PRIMARY KEY,
    torrent_hash VARCHAR(64) NOT NULL,
    title VARCHAR(512),
    event VARCHAR(32) NOT NULL,
    faulty BOOLEAN NOT NULL DEFAULT false,
    recorded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_prepare_history_hash ON prepare_history(torrent_hash);
`

// Recorder writes prepare/remove events to Postgres. The zero value (which
// Connect returns for an empty dsn) and a nil *Recorder are inert: every
// method is then a no-op so callers never need a nil check.
type Recorder struct {
	db *sql.DB
}

// Connect opens the history database at dsn and ensures its schema
// exists. An empty dsn returns a disabled *Recorder (nil db), not an
// error, matching config.HistoryDatabaseURL's "empty disables it"
// contract.
func Connect(dsn string) (*Recorder, error) {
	if dsn == "" {
		return &Recorder{}, nil
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("historylog: open: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("historylog: ping: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	if _, err := db.Exec(createTableSQL); err != nil {
		return nil, fmt.Errorf("historylog: migrate: %w", err)
	}

	log.Println("[historylog] connected and migrated")
	return &Recorder{db: db}, nil
}

// Close releases the underlying connection pool, if any.
func (r *Recorder) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// RecordPrepared logs a successful prepare for hash/title. Implements
// processor.HistoryRecorder.
func (r *Recorder) RecordPrepared(hash, title string) {
	r.insert(hash, title, "prepared", false)
}

// RecordRemoved logs a torrent removal, flagging whether it was removed
// because its state was faulty rather than because prepare succeeded.
// Implements processor.HistoryRecorder.
func (r *Recorder) RecordRemoved(hash string, faulty bool) {
	r.insert(hash, "", "removed", faulty)
}

func (r *Recorder) insert(hash, title, event string, faulty bool) {
	if r == nil || r.db == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO prepare_history (torrent_hash, title, event, faulty) VALUES ($1, $2, $3, $4)`,
			hash, title, event, faulty)
		if err != nil {
			log.Printf("[historylog] insert %s/%s: %v", event, hash, err)
		}
	}()
}
