package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recensement/internal/platform/config"
)

func TestNewWithoutURLReturnsNil(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRejectsMalformedURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "http://not-redis"})
	assert.ErrorContains(t, err, "parse redis URL")
}

func TestOptionsOverrideOnlyWhenSet(t *testing.T) {
	opts, err := options(config.RedisConfig{URL: "redis://localhost:6379/2"})
	require.NoError(t, err)
	assert.Equal(t, 2, opts.DB)
	assert.Zero(t, opts.PoolSize)

	opts, err = options(config.RedisConfig{
		URL:          "redis://localhost:6379/0",
		PoolSize:     8,
		MinIdleConns: 2,
		DialTimeout:  time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, 2, opts.MinIdleConns)
	assert.Equal(t, time.Second, opts.DialTimeout)
}
