package tx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBeginner struct{ calls int }

func (b *failingBeginner) BeginTx(context.Context, *sql.TxOptions) (*sql.Tx, error) {
	b.calls++
	return nil, errors.New("connection reset")
}

func TestWithTx(t *testing.T) {
	t.Run("nil transaction leaves context untouched", func(t *testing.T) {
		ctx := context.Background()
		assert.Equal(t, ctx, WithTx(ctx, nil))

		_, ok := From(ctx)
		assert.False(t, ok)
	})

	t.Run("stored transaction is returned", func(t *testing.T) {
		sqlTx := &sql.Tx{}
		ctx := WithTx(context.Background(), sqlTx)

		got, ok := From(ctx)
		assert.True(t, ok)
		assert.Same(t, sqlTx, got)
	})
}

func TestRun(t *testing.T) {
	t.Run("begin failure is wrapped and fn is skipped", func(t *testing.T) {
		db := &failingBeginner{}
		called := false
		err := Run(context.Background(), db, func(context.Context) error {
			called = true
			return nil
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "begin tx")
		assert.False(t, called)
	})

	t.Run("existing transaction is joined", func(t *testing.T) {
		db := &failingBeginner{}
		outer := &sql.Tx{}
		sentinel := errors.New("from fn")
		err := Run(WithTx(context.Background(), outer), db, func(ctx context.Context) error {
			got, ok := From(ctx)
			assert.True(t, ok)
			assert.Same(t, outer, got)
			return sentinel
		})
		assert.ErrorIs(t, err, sentinel)
		assert.Zero(t, db.calls)
	})
}
