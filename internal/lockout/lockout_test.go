package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) Now() time.Time { return c.t }

func newTestLimiter(threshold int, window time.Duration) (*Limiter, *clock, *logtest.Hook) {
	c := &clock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewMemoryStore()
	store.now = c.Now
	logger, hook := logtest.NewNullLogger()
	l := NewLimiter(store, threshold, window, logger)
	l.now = c.Now
	return l, c, hook
}

func TestLimiter_LocksAfterThreshold(t *testing.T) {
	ctx := context.Background()
	l, _, hook := newTestLimiter(3, 15*time.Minute)
	key := Key("token", "10.0.0.1")

	for i := 0; i < 2; i++ {
		require.NoError(t, l.Fail(ctx, key))
		ok, err := l.Allowed(ctx, key)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	require.NoError(t, l.Fail(ctx, key))
	ok, err := l.Allowed(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.Len(t, hook.Entries, 1)
	assert.Equal(t, "share password lockout triggered", hook.LastEntry().Message)

	// 其他地址不受影响
	ok, err = l.Allowed(ctx, Key("token", "10.0.0.2"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_WindowExpires(t *testing.T) {
	ctx := context.Background()
	l, c, _ := newTestLimiter(2, 10*time.Minute)
	key := Key("token", "10.0.0.1")

	require.NoError(t, l.Fail(ctx, key))
	require.NoError(t, l.Fail(ctx, key))
	ok, err := l.Allowed(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	c.t = c.t.Add(10 * time.Minute)
	ok, err = l.Allowed(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)

	// 计数也随窗口清零
	require.NoError(t, l.Fail(ctx, key))
	ok, err = l.Allowed(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_ResetClearsCounter(t *testing.T) {
	ctx := context.Background()
	l, _, _ := newTestLimiter(2, time.Minute)
	key := Key("token", "10.0.0.1")

	require.NoError(t, l.Fail(ctx, key))
	require.NoError(t, l.Reset(ctx, key))
	require.NoError(t, l.Fail(ctx, key))

	ok, err := l.Allowed(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_Disabled(t *testing.T) {
	ctx := context.Background()

	var nilLimiter *Limiter
	ok, err := nilLimiter.Allowed(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, nilLimiter.Fail(ctx, "k"))
	assert.NoError(t, nilLimiter.Reset(ctx, "k"))

	l, _, _ := newTestLimiter(0, time.Minute)
	for i := 0; i < 20; i++ {
		require.NoError(t, l.Fail(ctx, "k"))
	}
	ok, err = l.Allowed(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestKey(t *testing.T) {
	k := Key("secret-token", "10.0.0.1")
	assert.Len(t, k, 64)
	assert.NotContains(t, k, "secret-token")
	assert.Equal(t, k, Key("secret-token", "10.0.0.1"))
	assert.NotEqual(t, k, Key("secret-token", "10.0.0.2"))
}

func TestParseState(t *testing.T) {
	assert.Equal(t, State{}, parseState(map[string]string{}))

	s := parseState(map[string]string{"failed_count": "4", "locked_until": "1700000000"})
	assert.Equal(t, 4, s.FailedCount)
	require.NotNil(t, s.LockedUntil)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), *s.LockedUntil)

	s = parseState(map[string]string{"failed_count": "x", "locked_until": ""})
	assert.Equal(t, State{}, s)
}

func TestRedisStore_SurfacesConnectionErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	store := NewRedisStore(client)
	ctx := context.Background()

	_, err := store.Get(ctx, "k")
	assert.Error(t, err)
	_, err = store.RecordFailure(ctx, "k", time.Now(), 3, time.Minute)
	assert.Error(t, err)
	assert.Error(t, store.Clear(ctx, "k"))
}
