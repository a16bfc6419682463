package database

import (
	"context"
	"database/sql"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type afterCommitEffect struct {
	key string
	fn  func(ctx context.Context)
}

// Tx is the storage scope handed to receive-pipeline code. All table
// accessors run inside the enclosing transaction.
type Tx struct {
	ctx     context.Context
	q       querier
	effects []afterCommitEffect
	keys    map[string]struct{}
}

func newTx(ctx context.Context, q querier) *Tx {
	return &Tx{ctx: ctx, q: q, keys: make(map[string]struct{})}
}

func (t *Tx) Context() context.Context {
	return t.ctx
}

// AfterCommit queues fn to run after a successful commit. Only the first
// registration for a key is kept; it reports whether fn was queued.
func (t *Tx) AfterCommit(key string, fn func(ctx context.Context)) bool {
	if _, exists := t.keys[key]; exists {
		return false
	}
	t.keys[key] = struct{}{}
	t.effects = append(t.effects, afterCommitEffect{key: key, fn: fn})
	return true
}

func (t *Tx) exec(query string, args ...any) (sql.Result, error) {
	return t.q.ExecContext(t.ctx, query, args...)
}

func (t *Tx) queryRow(query string, args ...any) *sql.Row {
	return t.q.QueryRowContext(t.ctx, query, args...)
}

func (t *Tx) query(query string, args ...any) (*sql.Rows, error) {
	return t.q.QueryContext(t.ctx, query, args...)
}

func (t *Tx) execAffected(query string, args ...any) (int64, error) {
	res, err := t.exec(query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
