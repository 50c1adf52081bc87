package journal

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string]string
	ttl    time.Duration
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	switch v := value.(type) {
	case []byte:
		f.values[key] = string(v)
	case string:
		f.values[key] = v
	}
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Close() error { return nil }

func TestRedisMirror_PublishAndRead(t *testing.T) {
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	fake := &fakeRedis{values: map[string]string{}}
	m := newRedisMirrorWithClient(fake, "luxprima:status", func() time.Time { return now })
	ctx := context.Background()

	_, ok, err := m.ReadStatus(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.PublishStatus(ctx, StatusFinalizing))

	var stored MirroredStatus
	require.NoError(t, json.Unmarshal([]byte(fake.values["luxprima:status"]), &stored))
	assert.Equal(t, StatusFinalizing, stored.Status)

	got, ok, err := m.ReadStatus(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, StatusFinalizing, got.Status)
	assert.True(t, now.Equal(got.UpdatedAt))
}

func TestRedisMirror_AsBoardSink(t *testing.T) {
	fake := &fakeRedis{values: map[string]string{}}
	m := newRedisMirrorWithClient(fake, "k", time.Now)

	b := NewBoard(m)
	b.Set(StatusError)

	got, ok, err := m.ReadStatus(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, StatusError, got.Status)
}
