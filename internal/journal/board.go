package journal

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
)

// Status values observers can rely on. Working states are free text.
const (
	StatusIdle         = "Idle"
	StatusError        = "Error"
	StatusInitializing = "Initializing Analysis..."
	StatusFinalizing   = "Finalizing Briefing..."
)

// Sink receives every status change, e.g. to mirror it outside the process.
type Sink interface {
	PublishStatus(ctx context.Context, status string) error
}

// Board holds the process-wide current status. Reads never block and always
// see a whole value. Subscribers get a single-slot channel: a slow reader
// only ever sees the latest status, never a backlog.
type Board struct {
	current atomic.Value // string

	mu    sync.Mutex
	subs  map[chan string]struct{}
	sinks []Sink
}

// NewBoard creates a Board reading Idle.
func NewBoard(sinks ...Sink) *Board {
	b := &Board{subs: make(map[chan string]struct{}), sinks: sinks}
	b.current.Store(StatusIdle)
	return b
}

// Current returns the latest status.
func (b *Board) Current() string {
	return b.current.Load().(string)
}

// Set replaces the status and notifies subscribers and sinks.
func (b *Board) Set(status string) {
	b.mu.Lock()
	b.current.Store(status)
	for ch := range b.subs {
		// drop the unread value, last value wins
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- status:
		default:
		}
	}
	sinks := b.sinks
	b.mu.Unlock()

	for _, s := range sinks {
		if err := s.PublishStatus(context.Background(), status); err != nil {
			log.Printf("[BRIEFING] status mirror failed: %v", err)
		}
	}
}

// Subscribe returns a channel that immediately holds the current status and
// then the latest value after each change. Call cancel to unsubscribe; the
// channel is closed.
func (b *Board) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 1)

	b.mu.Lock()
	ch <- b.Current()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			close(ch)
			b.mu.Unlock()
		})
	}
	return ch, cancel
}
