package journal

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu       sync.Mutex
	statuses []string
	err      error
}

func (s *recordingSink) PublishStatus(_ context.Context, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, status)
	return s.err
}

func TestBoard_SetAndCurrent(t *testing.T) {
	b := NewBoard()
	assert.Equal(t, StatusIdle, b.Current())

	b.Set("Processing Source: https://a.test")
	assert.Equal(t, "Processing Source: https://a.test", b.Current())
}

func TestBoard_SubscriberSeesLatestValueOnly(t *testing.T) {
	b := NewBoard()
	ch, cancel := b.Subscribe()
	defer cancel()

	assert.Equal(t, StatusIdle, <-ch)

	b.Set(StatusInitializing)
	b.Set("Processing Source: https://a.test")
	b.Set(StatusFinalizing)

	assert.Equal(t, StatusFinalizing, <-ch)
	select {
	case v := <-ch:
		t.Fatalf("unexpected backlog value %q", v)
	default:
	}
}

func TestBoard_CancelClosesChannel(t *testing.T) {
	b := NewBoard()
	ch, cancel := b.Subscribe()
	<-ch

	cancel()
	cancel() // idempotent

	_, ok := <-ch
	assert.False(t, ok)

	// Setting after unsubscribe must not panic
	b.Set(StatusIdle)
}

func TestBoard_Sinks(t *testing.T) {
	ok := &recordingSink{}
	failing := &recordingSink{err: errors.New("redis down")}
	b := NewBoard(ok, failing)

	b.Set(StatusInitializing)
	b.Set(StatusIdle)

	require.Len(t, ok.statuses, 2)
	assert.Equal(t, []string{StatusInitializing, StatusIdle}, ok.statuses)
	assert.Len(t, failing.statuses, 2, "a failing sink does not stop updates")
	assert.Equal(t, StatusIdle, b.Current())
}

func TestBoard_ConcurrentReadersAndWriters(t *testing.T) {
	b := NewBoard()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch, cancel := b.Subscribe()
			<-ch
			cancel()
		}()
		go func() {
			defer wg.Done()
			b.Set(StatusFinalizing)
			_ = b.Current()
		}()
	}
	wg.Wait()
	assert.Equal(t, StatusFinalizing, b.Current())
}
