//go:build integration

package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"recensement/pkg/testutil/containers"
)

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	pg := containers.GetManager().GetPostgres(t)
	store, err := OpenPostgres(context.Background(), pg.DSN)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	suite.Run(t, &StoreSuite{newStore: func() Store {
		// kv_store is created lazily; make sure it exists before truncating
		require.NoError(t, store.ensureReady(context.Background()))
		require.NoError(t, pg.TruncateTables(context.Background(), "kv_store"))
		return store
	}})
}

func TestRedisStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	rc := containers.GetManager().GetRedis(t)

	suite.Run(t, &StoreSuite{newStore: func() Store {
		require.NoError(t, rc.FlushAll(context.Background()))
		return NewRedis(rc.Client)
	}})
}
