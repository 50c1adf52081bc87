// Package scheduler keeps one live daily trigger per active schedule record.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonathan/luxprima/internal/types"
)

// ErrInvalidTimeOfDay is returned by Add for times that are not "HH:MM".
var ErrInvalidTimeOfDay = types.ErrInvalidTimeOfDay

// RunFunc starts one briefing run.
type RunFunc func(ctx context.Context) error

// ScheduleLister reads persisted schedules.
type ScheduleLister interface {
	ListSchedules(ctx context.Context) ([]types.Schedule, error)
}

// Job is a live trigger.
type Job struct {
	ScheduleID int64     `json:"schedule_id"`
	Time       string    `json:"time"`
	Next       time.Time `json:"next_run"`
}

type entry struct {
	id   cron.EntryID
	time string
}

// Registry maps schedule IDs to cron entries. At most one entry exists per
// schedule ID.
type Registry struct {
	mu   sync.Mutex
	cron *cron.Cron
	loc  *time.Location
	jobs map[int64]entry
	run  RunFunc
	now  func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock overrides time.Now for next-run calculations.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// New creates a Registry firing run in loc. Call Start to begin firing.
func New(loc *time.Location, run RunFunc, opts ...Option) *Registry {
	if loc == nil {
		loc = time.UTC
	}
	logger := cron.PrintfLogger(log.New(log.Writer(), "[SCHEDULER] ", log.LstdFlags))
	r := &Registry{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(logger)),
		),
		loc:  loc,
		jobs: make(map[int64]entry),
		run:  run,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Location returns the zone triggers fire in.
func (r *Registry) Location() *time.Location {
	return r.loc
}

// Add installs a daily trigger for scheduleID at timeOfDay, replacing any
// trigger the ID already has.
func (r *Registry) Add(scheduleID int64, timeOfDay string) error {
	hour, minute, err := types.ParseTimeOfDay(timeOfDay)
	if err != nil {
		return err
	}
	spec := fmt.Sprintf("%d %d * * *", minute, hour)

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.jobs[scheduleID]; ok {
		r.cron.Remove(old.id)
		delete(r.jobs, scheduleID)
	}

	id, err := r.cron.AddFunc(spec, func() { r.RunDueJob(context.Background()) })
	if err != nil {
		return fmt.Errorf("failed to schedule job %d: %w", scheduleID, err)
	}
	r.jobs[scheduleID] = entry{id: id, time: timeOfDay}
	log.Printf("[SCHEDULER] Scheduled job %d for %s", scheduleID, timeOfDay)
	return nil
}

// Remove cancels the trigger for scheduleID. Unknown IDs are ignored.
func (r *Registry) Remove(scheduleID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old, ok := r.jobs[scheduleID]
	if !ok {
		return
	}
	r.cron.Remove(old.id)
	delete(r.jobs, scheduleID)
	log.Printf("[SCHEDULER] Removed job %d", scheduleID)
}

// Rehydrate adds a trigger for every active persisted schedule and returns
// how many were installed. Rows with a malformed time are logged and skipped.
func (r *Registry) Rehydrate(ctx context.Context, lister ScheduleLister) (int, error) {
	schedules, err := lister.ListSchedules(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load schedules: %w", err)
	}
	added := 0
	for _, s := range schedules {
		if !s.IsActive {
			continue
		}
		if err := r.Add(s.ID, s.Time); err != nil {
			log.Printf("[SCHEDULER] Skipping schedule %d: %v", s.ID, err)
			continue
		}
		added++
	}
	return added, nil
}

// RunDueJob is the body of every trigger. Failures are logged and never
// propagate, so later fires are unaffected.
func (r *Registry) RunDueJob(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("[SCHEDULER] Scheduled report failed: panic: %v", rec)
		}
	}()

	log.Printf("[SCHEDULER] Running scheduled report generation...")
	if err := r.run(ctx); err != nil {
		log.Printf("[SCHEDULER] Scheduled report failed: %v", err)
	}
}

// Jobs lists the live triggers ordered by next fire time.
func (r *Registry) Jobs() []Job {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	jobs := make([]Job, 0, len(r.jobs))
	for scheduleID, e := range r.jobs {
		jobs = append(jobs, Job{
			ScheduleID: scheduleID,
			Time:       e.time,
			Next:       r.cron.Entry(e.id).Schedule.Next(now.In(r.loc)),
		})
	}
	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].Next.Equal(jobs[j].Next) {
			return jobs[i].ScheduleID < jobs[j].ScheduleID
		}
		return jobs[i].Next.Before(jobs[j].Next)
	})
	return jobs
}

// NextRun returns the soonest fire time across all triggers.
func (r *Registry) NextRun() (time.Time, bool) {
	jobs := r.Jobs()
	if len(jobs) == 0 {
		return time.Time{}, false
	}
	return jobs[0].Next, true
}

// Len returns the number of live triggers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

// Start begins firing triggers.
func (r *Registry) Start() {
	r.cron.Start()
	log.Printf("[SCHEDULER] Started in %s", r.loc)
}

// Stop stops firing triggers and returns a context that is done once any
// running trigger returns.
func (r *Registry) Stop() context.Context {
	return r.cron.Stop()
}
