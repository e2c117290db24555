//go:build integration

package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"huanbo/internal/platform/config"
	"huanbo/pkg/testutil/containers"
)

func TestNewConnectsAndReportsHealth(t *testing.T) {
	rc := containers.NewRedisContainer(t)
	ctx := context.Background()

	client, err := New(ctx, config.RedisConfig{URL: rc.URL, PoolSize: 4, DialTimeout: time.Second})
	require.NoError(t, err)
	require.NotNil(t, client)
	t.Cleanup(func() { _ = client.Close() })

	assert.NoError(t, client.Health(ctx))
}

func TestNewWithoutURLKeepsStateLocal(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "not-a-url://"})
	require.Error(t, err)
}
