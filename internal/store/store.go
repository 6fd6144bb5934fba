// Package store is the embedded catalogue: a single SQLite file opened
// through the pure-Go ncruces/go-sqlite3 driver (no cgo), WAL-mode
// journaling, a configurable busy-timeout, and a FIFO write queue so the
// three periodic workers never contend for the one writer connection at the
// Go level (spec.md §4.1).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"time"

	"github.com/gofrs/flock"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/rs/zerolog"
)

// Store is the catalogue handle passed explicitly to every worker and HTTP
// handler, replacing the module-level singleton the teacher keeps for its
// own storage package (spec.md §9 "mutable global singletons → explicit
// context").
type Store struct {
	db    *sql.DB
	queue *writeQueue
	path  string
	lock  *flock.Flock
	log   zerolog.Logger
}

// Open opens (creating if absent) the catalogue file at path, applies the
// base schema and every additive migration, and starts the write queue.
// busyTimeout is clamped to [0, 60s] by the caller (config.Load already
// does this per spec.md §4.1).
func Open(path string, busyTimeout time.Duration, log zerolog.Logger) (*Store, error) {
	lock, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)",
		url.PathEscape(path), busyTimeout.Milliseconds())

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("opening catalogue: %w", err)
	}
	// SQLite's single-writer model means a pool beyond 1 just adds
	// cross-connection lock contention that the driver reports as "database
	// is locked"; callers serialize writes explicitly via the FIFO queue
	// instead of relying on the pool.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, fmt.Errorf("pinging catalogue: %w", err)
	}

	if err := runMigrations(db, log); err != nil {
		log.Error().Err(err).Msg("migration failed; serving with partially-initialized schema")
	}

	return &Store{
		db:    db,
		queue: newWriteQueue(),
		path:  path,
		lock:  lock,
		log:   log,
	}, nil
}

// Path returns the catalogue file path the store was opened against.
func (s *Store) Path() string { return s.path }

// Close stops the write queue, closes the underlying connection, and
// releases the startup lock.
func (s *Store) Close() error {
	s.queue.close()
	err := s.db.Close()
	_ = s.lock.Unlock()
	return err
}

// Do runs fn as a single enqueued write, or inline if ctx already carries an
// active transaction (so callers composing multiple store calls inside a
// WithTx block don't double-enqueue).
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if h, ok := ctx.Value(txKey{}).(*txHandle); ok && h.tx != nil {
		return fn(ctx)
	}
	return s.queue.enqueue(func() error { return fn(ctx) })
}
