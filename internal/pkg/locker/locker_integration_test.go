//go:build integration

package locker

import (
	"context"
	"testing"
	"time"

	"github.com/airenas/wardrep/internal/pkg/test"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	require.Nil(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	ep, err := c.Endpoint(ctx, "")
	require.Nil(t, err)
	return "redis://" + ep + "/0"
}

func TestLock_Serializes(t *testing.T) {
	url := startRedis(t)
	l, err := NewFromURL(test.Ctx(t), url, time.Second*5)
	require.Nil(t, err)
	l.retry = nil

	unlock, err := l.Lock(test.Ctx(t), "k")
	require.Nil(t, err)
	_, err = l.Lock(test.Ctx(t), "k")
	assert.ErrorIs(t, err, ErrNotObtained)

	unlock()
	unlock2, err := l.Lock(test.Ctx(t), "k")
	require.Nil(t, err)
	unlock2()

	opt, _ := redis.ParseURL(url)
	n, err := redis.NewClient(opt).Exists(test.Ctx(t), "k").Result()
	require.Nil(t, err)
	assert.Equal(t, int64(0), n)
}
