// Package journal records what a briefing run did and broadcasts its current status.
package journal

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Timestamp layouts. The first entry of a run carries the full date so readers
// of a stored journal can recover when the run started.
const (
	firstEntryLayout = "2006-01-02 15:04:05"
	entryLayout      = "15:04:05"
)

// Journal is the append-only, timestamped log of one run.
type Journal struct {
	mu      sync.Mutex
	entries []string
	loc     *time.Location
	now     func() time.Time
	quiet   bool
}

// Option configures a Journal.
type Option func(*Journal)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(j *Journal) { j.now = now }
}

// Quiet stops entries from being echoed to the process log.
func Quiet() Option {
	return func(j *Journal) { j.quiet = true }
}

// New creates an empty journal stamping entries in loc.
func New(loc *time.Location, opts ...Option) *Journal {
	if loc == nil {
		loc = time.UTC
	}
	j := &Journal{loc: loc, now: time.Now}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Log appends msg with a timestamp.
func (j *Journal) Log(msg string) {
	j.mu.Lock()
	layout := entryLayout
	if len(j.entries) == 0 {
		layout = firstEntryLayout
	}
	entry := fmt.Sprintf("[%s] %s", j.now().In(j.loc).Format(layout), msg)
	j.entries = append(j.entries, entry)
	j.mu.Unlock()

	if !j.quiet {
		log.Printf("[BRIEFING] %s", msg)
	}
}

// Entries returns a copy of the journal so far.
func (j *Journal) Entries() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]string, len(j.entries))
	copy(out, j.entries)
	return out
}
