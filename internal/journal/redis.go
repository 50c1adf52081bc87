package journal

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// mirrorTimeout bounds a single status write.
const mirrorTimeout = 2 * time.Second

// MirroredStatus is the record stored in Redis.
type MirroredStatus struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

type statusClient interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Close() error
}

// RedisMirror copies the current status into a Redis key so other processes
// can read it.
type RedisMirror struct {
	client statusClient
	key    string
	now    func() time.Time
}

// NewRedisMirror connects a mirror to addr.
func NewRedisMirror(addr, key string) *RedisMirror {
	return &RedisMirror{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		key:    key,
		now:    time.Now,
	}
}

// newRedisMirrorWithClient builds a mirror around a custom client (tests).
func newRedisMirrorWithClient(client statusClient, key string, now func() time.Time) *RedisMirror {
	return &RedisMirror{client: client, key: key, now: now}
}

// Close closes the Redis client.
func (m *RedisMirror) Close() error {
	return m.client.Close()
}

// PublishStatus implements Sink.
func (m *RedisMirror) PublishStatus(ctx context.Context, status string) error {
	payload, err := json.Marshal(MirroredStatus{Status: status, UpdatedAt: m.now().UTC()})
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, mirrorTimeout)
	defer cancel()
	return m.client.Set(ctx, m.key, payload, 0).Err()
}

// ReadStatus returns the mirrored status; ok is false if none was ever written.
func (m *RedisMirror) ReadStatus(ctx context.Context) (MirroredStatus, bool, error) {
	val, err := m.client.Get(ctx, m.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return MirroredStatus{}, false, nil
		}
		return MirroredStatus{}, false, err
	}

	var st MirroredStatus
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		return MirroredStatus{}, false, err
	}
	return st, true, nil
}
