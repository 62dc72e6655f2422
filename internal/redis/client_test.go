package redisclient

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/rehabplatform/scheduling-service/internal/config"
)

func TestNewRedisClientConnects(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(config.Config{
		RedisAddr: mr.Addr(),
		LockTTL:   time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
}

func TestNewRedisClientFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(config.Config{RedisAddr: addr})
	require.Error(t, err)
}
