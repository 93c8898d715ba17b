// Package tx carries a SQL transaction through a context so store methods
// called inside Run share it.
package tx

import (
	"context"
	"database/sql"
	"fmt"
)

type ctxKey struct{}

// Beginner starts transactions. *sql.DB satisfies it.
type Beginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}

// Run executes fn in a transaction and commits when fn returns nil. If ctx
// already carries a transaction fn joins it and commit is left to the owner.
// fn's error is returned unchanged.
func Run(ctx context.Context, db Beginner, fn func(ctx context.Context) error) error {
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	t, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = t.Rollback()
	}()
	if err := fn(WithTx(ctx, t)); err != nil {
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
