package cache

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jeremytraini/auscal/internal/config"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func configWithAddr(addr string) config.RedisConfig {
	return config.RedisConfig{Addr: addr}
}

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	cmd := new(redis.StringCmd)
	if value, ok := f.values[key]; ok {
		cmd.SetVal(value)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := new(redis.StatusCmd)
	f.values[key] = string(value.([]byte))
	f.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func TestRedisPrefixesKeysAndMapsNil(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	r := &Redis{client: fake}

	_, ok, err := r.Get(ctx, "holidays:2024")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, r.Set(ctx, "holidays:2024", []byte(`[]`), 24*time.Hour))
	require.Equal(t, "[]", fake.values["auscal:holidays:2024"])
	require.Equal(t, 24*time.Hour, fake.ttls["auscal:holidays:2024"])

	value, ok, err := r.Get(ctx, "holidays:2024")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("[]"), value)
	require.NoError(t, r.Close())
}

func TestRedisIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer func() { _ = container.Terminate(ctx) }()

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	c, closeFn, err := New(ctx, configWithAddr(host+":"+port.Port()))
	require.NoError(t, err)
	defer func() { _ = closeFn() }()
	require.IsType(t, &Redis{}, c)

	require.NoError(t, SetJSON(ctx, c, "forecast", "-33.87,151.21", map[string]string{"weather": "clearday"}, time.Minute))

	var got map[string]string
	ok, err := GetJSON(ctx, c, "forecast", "-33.87,151.21", &got)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "clearday", got["weather"])

	require.NoError(t, c.Set(ctx, "short", []byte("x"), time.Second))
	require.Eventually(t, func() bool {
		_, ok, err := c.Get(ctx, "short")
		return err == nil && !ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestNewRedisFailsWhenUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, _, err := New(ctx, configWithAddr("127.0.0.1:1"))
	require.Error(t, err)
}
