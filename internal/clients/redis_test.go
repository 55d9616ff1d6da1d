package clients

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRedis is a test double for redisBackend.
type mockRedis struct {
	pingVal string
	err     error
	data    map[string][]byte
}

func newMockRedis() *mockRedis {
	return &mockRedis{pingVal: "PONG", data: map[string][]byte{}}
}

func (m *mockRedis) PingResult(_ context.Context) (string, error) {
	return m.pingVal, m.err
}

func (m *mockRedis) GetBytes(_ context.Context, key string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (m *mockRedis) SetBytes(_ context.Context, key string, val []byte, _ time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = val
	return nil
}

func (m *mockRedis) Del(_ context.Context, key string) error {
	if m.err != nil {
		return m.err
	}
	delete(m.data, key)
	return nil
}

func (m *mockRedis) Close() error { return nil }

func TestRedisProbe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		pingVal    string
		pingErr    error
		wantOK     bool
		wantErrSub string
	}{
		{
			name:    "success: PING returns PONG",
			pingVal: "PONG",
			wantOK:  true,
		},
		{
			name:       "failure: PING returns error",
			pingErr:    errors.New("connection refused"),
			wantOK:     false,
			wantErrSub: "connection refused",
		},
		{
			name:       "failure: PING returns unexpected value",
			pingVal:    "WHOOPS",
			wantOK:     false,
			wantErrSub: "unexpected PING response",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := &RedisClient{
				cb:      NewCircuitBreaker("redis-test-" + tc.name),
				backend: &mockRedis{pingVal: tc.pingVal, err: tc.pingErr},
			}

			result := client.Probe(context.Background())

			assert.Equal(t, redisProbeName, result.Name)
			assert.Equal(t, tc.wantOK, result.OK)
			if tc.wantErrSub != "" {
				assert.Contains(t, result.Error, tc.wantErrSub)
			}
			if tc.wantOK {
				assert.Empty(t, result.Error)
			}
		})
	}
}

func TestRedisCache_RoundTrip(t *testing.T) {
	t.Parallel()

	client := &RedisClient{cb: NewCircuitBreaker("redis-cache"), backend: newMockRedis()}
	ctx := context.Background()

	_, ok, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, client.Set(ctx, "k", []byte(`[1]`), time.Minute))
	val, ok, err := client.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`[1]`), val)

	require.NoError(t, client.Delete(ctx, "k"))
	_, ok, err = client.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCache_MissesDoNotTripBreaker(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker("redis-misses")
	client := &RedisClient{cb: cb, backend: newMockRedis()}

	for range 5 {
		_, ok, err := client.Get(context.Background(), "absent")
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Zero(t, cb.Counts().ConsecutiveFailures)
}

func TestRedisProbeCircuitBreaker_OpensAfterThreeFailures(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker("redis-cb-open-test")
	client := &RedisClient{cb: cb, backend: &mockRedis{err: errors.New("connection refused")}}

	for i := range 3 {
		result := client.Probe(context.Background())
		assert.False(t, result.OK, "probe %d should fail", i+1)
		assert.NotEqual(t, "circuit open", result.Error,
			"probe %d should not be circuit-open yet", i+1)
	}

	result := client.Probe(context.Background())
	assert.False(t, result.OK)
	assert.Equal(t, "circuit open", result.Error)

	// Cache calls share the breaker and fail fast too.
	_, _, err := client.Get(context.Background(), "k")
	assert.Error(t, err)
}
