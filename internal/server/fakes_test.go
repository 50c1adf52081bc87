package server

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonathan/luxprima/internal/config"
	"github.com/jonathan/luxprima/internal/db"
	"github.com/jonathan/luxprima/internal/journal"
	"github.com/jonathan/luxprima/internal/llm"
	"github.com/jonathan/luxprima/internal/pipeline"
	"github.com/jonathan/luxprima/internal/server/ratelimit"
	"github.com/jonathan/luxprima/internal/types"
)

// memStore is an in-memory Store.
type memStore struct {
	mu        sync.Mutex
	nextID    int64
	sources   []types.Source
	settings  map[string]string
	schedules map[int64]types.Schedule
	reports   map[int64]types.Report
	err       error
	deleteErr error // DeleteSchedule only
}

func newMemStore() *memStore {
	return &memStore{
		settings:  map[string]string{},
		schedules: map[int64]types.Schedule{},
		reports:   map[int64]types.Report{},
	}
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) Ping(context.Context) error { return m.err }

func (m *memStore) ListSources(context.Context) ([]types.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]types.Source(nil), m.sources...), m.err
}

func (m *memStore) CreateSource(_ context.Context, src types.Source) (*types.Source, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sources {
		if s.URL == src.URL {
			return nil, fmt.Errorf("source %s: %w", src.URL, db.ErrDuplicate)
		}
	}
	src.ID = m.id()
	m.sources = append(m.sources, src)
	return &src, nil
}

func (m *memStore) DeleteSource(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range m.sources {
		if s.ID == id {
			m.sources = append(m.sources[:i], m.sources[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListSettings(context.Context) ([]types.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]types.Setting, 0, len(m.settings))
	for k, v := range m.settings {
		out = append(out, types.Setting{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *memStore) UpsertSettings(_ context.Context, updates []types.SettingUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range updates {
		m.settings[u.Key] = u.Value
	}
	return nil
}

func (m *memStore) ListSchedules(context.Context) ([]types.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Schedule, 0, len(m.schedules))
	for _, s := range m.schedules {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) GetSchedule(_ context.Context, id int64) (*types.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memStore) CreateSchedule(_ context.Context, timeOfDay string, active bool) (*types.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := types.Schedule{ID: m.id(), Time: timeOfDay, IsActive: active}
	m.schedules[s.ID] = s
	return &s, nil
}

func (m *memStore) UpdateSchedule(_ context.Context, id int64, timeOfDay string, active bool) (*types.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, nil
	}
	s.Time, s.IsActive = timeOfDay, active
	m.schedules[id] = s
	return &s, nil
}

func (m *memStore) DeleteSchedule(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return false, m.deleteErr
	}
	_, ok := m.schedules[id]
	delete(m.schedules, id)
	return ok, nil
}

func (m *memStore) ListReports(_ context.Context, offset, limit int) ([]types.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]types.Report, 0, len(m.reports))
	for _, r := range m.reports {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GeneratedAt.After(out[j].GeneratedAt) })
	return page(out, offset, limit), nil
}

func (m *memStore) GetReport(_ context.Context, id int64) (*types.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.reports[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memStore) DeleteReport(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.reports[id]
	delete(m.reports, id)
	return ok, nil
}

func (m *memStore) addReport(title string, at time.Time, logs ...string) types.Report {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := types.Report{ID: m.id(), Title: title, GeneratedAt: at, ContentMarkdown: "# " + title, Logs: logs}
	m.reports[r.ID] = r
	return r
}

// fakeBriefings records Start calls and serves a Board for status.
type fakeBriefings struct {
	board    *journal.Board
	startErr error
	starts   int
	last     *pipeline.RunSummary
}

func (b *fakeBriefings) Start(context.Context) error {
	if b.startErr != nil {
		return b.startErr
	}
	b.starts++
	return nil
}

func (b *fakeBriefings) Status() string                     { return b.board.Current() }
func (b *fakeBriefings) LastRun() *pipeline.RunSummary      { return b.last }
func (b *fakeBriefings) Subscribe() (<-chan string, func()) { return b.board.Subscribe() }

// fakeScheduler tracks registered schedules by ID.
type fakeScheduler struct {
	mu   sync.Mutex
	jobs map[int64]string
	next time.Time
}

func (s *fakeScheduler) Add(id int64, timeOfDay string) error {
	if _, _, err := types.ParseTimeOfDay(timeOfDay); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = timeOfDay
	return nil
}

func (s *fakeScheduler) Remove(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

func (s *fakeScheduler) NextRun() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.jobs) == 0 {
		return time.Time{}, false
	}
	return s.next, true
}

func (s *fakeScheduler) has(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.jobs[id]
	return ok
}

type testServer struct {
	*Server
	store     *memStore
	briefings *fakeBriefings
	scheduler *fakeScheduler
	jwt       *JWTService
}

func newTestServer(t *testing.T, mutate ...func(*Config)) *testServer {
	t.Helper()
	ts := &testServer{
		store:     newMemStore(),
		briefings: &fakeBriefings{board: journal.NewBoard()},
		scheduler: &fakeScheduler{jobs: map[int64]string{}},
	}
	cfg := Config{
		Port:      0,
		Store:     ts.store,
		Briefings: ts.briefings,
		Scheduler: ts.scheduler,
		RateLimit: &ratelimit.Config{Enabled: false},
		ListModels: func(context.Context, string) ([]llm.Model, error) {
			return nil, errors.New("connection refused")
		},
	}
	for _, m := range mutate {
		m(&cfg)
	}
	srv, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.Stop)
	ts.Server = srv
	ts.jwt = cfg.JWT
	return ts
}

func withAuth(cfg *Config) {
	cfg.JWT = NewJWTService(&config.JWTConfig{
		Secret:          "test-secret-for-luxprima-tokens",
		ExpirationHours: 1,
		Issuer:          config.DefaultJWTIssuer,
	})
}
