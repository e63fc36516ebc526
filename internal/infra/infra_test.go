package infra

import (
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient(t *testing.T) {
	ctx := context.Background()

	client, err := NewRedisClient(ctx, "")
	require.NoError(t, err)
	require.Nil(t, client)

	_, err = NewRedisClient(ctx, "not a url")
	require.Error(t, err)

	mr := miniredis.RunT(t)
	client, err = NewRedisClient(ctx, "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	require.NotNil(t, client)
	require.NoError(t, client.Close())
}

func TestNewPostgresPoolOptional(t *testing.T) {
	pool, err := NewPostgresPool(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, pool)

	_, err = NewPostgresPool(context.Background(), "postgres://%zz")
	require.Error(t, err)
}
