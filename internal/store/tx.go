package store

import (
	"context"
	"database/sql"
	"fmt"
)

// txHandle carries the active transaction and a reference count through a
// context value so nested callers participate in the outermost transaction
// instead of deadlocking against the single-writer connection. BEGIN runs on
// depth 0→1; COMMIT runs on 1→0. This is the scoped-transaction context
// described in spec.md §4.1 / §9 ("mutable global singletons → explicit
// context").
type txHandle struct {
	tx    *sql.Tx
	depth int
}

type txKey struct{}

// queryer is satisfied by both *sql.DB and *sql.Tx, letting CRUD helpers
// read/write through whichever is active without branching on call sites.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// q returns the queryer active for ctx: the scoped transaction if one is in
// progress, otherwise the store's plain connection (a direct read, bypassing
// the write queue, per spec.md §4.1 "reads bypass the queue only when no
// transaction context is active").
func (s *Store) q(ctx context.Context) queryer {
	if h, ok := ctx.Value(txKey{}).(*txHandle); ok && h.tx != nil {
		return h.tx
	}
	return s.db
}

// WithTx runs fn with a transaction scoped to ctx. If ctx already carries an
// active transaction, fn reuses it (depth+1, no nested BEGIN/COMMIT). At
// depth 0 the whole call is routed through the write queue so concurrent
// callers never contend for the single SQLite writer at the Go level.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if h, ok := ctx.Value(txKey{}).(*txHandle); ok && h.tx != nil {
		h.depth++
		defer func() { h.depth-- }()
		return fn(ctx)
	}

	return s.queue.enqueue(func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			if isBusyError(err) {
				return fmt.Errorf("%w: %v", ErrBusy, err)
			}
			return fmt.Errorf("begin transaction: %w", err)
		}

		h := &txHandle{tx: tx, depth: 1}
		scoped := context.WithValue(ctx, txKey{}, h)

		if err := fn(scoped); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}
