package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/luxprima/internal/journal"
	"github.com/jonathan/luxprima/internal/llm"
	"github.com/jonathan/luxprima/internal/pipeline"
	"github.com/jonathan/luxprima/internal/types"
)

func TestSources_CRUD(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/sources", map[string]any{"url": "https://news.test/markets", "name": "Markets"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[types.Source](t, rec)
	assert.Equal(t, "https://news.test/markets", created.URL)
	assert.Equal(t, types.DefaultSourceType, created.SourceType)
	assert.True(t, created.IsActive)

	rec = ts.do(t, http.MethodPost, "/api/sources", map[string]any{"url": "https://news.test/markets"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/sources", map[string]any{"url": "not a url"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodPost, "/api/sources", map[string]any{"url": "https://wire.test", "is_active": false, "source_type": "secondary"})
	require.Equal(t, http.StatusCreated, rec.Code)
	second := decode[types.Source](t, rec)
	assert.False(t, second.IsActive)
	assert.Equal(t, "secondary", second.SourceType)

	rec = ts.do(t, http.MethodGet, "/api/sources?skip=1&limit=5", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	listed := decode[[]types.Source](t, rec)
	require.Len(t, listed, 1)
	assert.Equal(t, "https://wire.test", listed[0].URL)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/sources/%d", created.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/sources/%d", created.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSources_EmptyListIsArray(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/sources", nil)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestSettings_UpsertReturnsMap(t *testing.T) {
	ts := newTestServer(t)
	ts.store.settings[types.SettingLLMProvider] = "openai"

	rec := ts.do(t, http.MethodPost, "/api/settings", []map[string]string{
		{"key": types.SettingLLMProvider, "value": "gemini"},
		{"key": types.SettingResearchDepth, "value": "2"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, map[string]string{
		types.SettingLLMProvider:   "gemini",
		types.SettingResearchDepth: "2",
	}, decode[map[string]string](t, rec))

	rec = ts.do(t, http.MethodGet, "/api/settings", nil)
	assert.Equal(t, "gemini", decode[map[string]string](t, rec)[types.SettingLLMProvider])

	rec = ts.do(t, http.MethodPost, "/api/settings", []map[string]string{{"key": " ", "value": "x"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettings_ListError(t *testing.T) {
	ts := newTestServer(t)
	ts.store.err = errors.New("db down")
	rec := ts.do(t, http.MethodGet, "/api/settings", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSettings_LocalModels(t *testing.T) {
	var gotURL string
	ts := newTestServer(t, func(cfg *Config) {
		cfg.LocalBaseURL = "http://llm.local/v1"
		cfg.ListModels = func(_ context.Context, baseURL string) ([]llm.Model, error) {
			gotURL = baseURL
			return []llm.Model{{ID: "llama-3"}}, nil
		}
	})

	rec := ts.do(t, http.MethodGet, "/api/settings/local-models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://llm.local/v1", gotURL)
	assert.JSONEq(t, `{"models":[{"id":"llama-3"}]}`, rec.Body.String())

	ts.do(t, http.MethodGet, "/api/settings/local-models?base_url=http://other:1234/v1", nil)
	assert.Equal(t, "http://other:1234/v1", gotURL)
}

func TestSettings_LocalModelsUnreachable(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/settings/local-models", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "connection refused", body["error"])
	assert.Equal(t, []any{}, body["models"])
}

func TestSchedules_CreateRegistersActive(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/schedules", map[string]any{"time": "08:30"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	active := decode[types.Schedule](t, rec)
	assert.True(t, active.IsActive)
	assert.True(t, ts.scheduler.has(active.ID))

	rec = ts.do(t, http.MethodPost, "/api/schedules", map[string]any{"time": "18:00", "is_active": false})
	require.Equal(t, http.StatusCreated, rec.Code)
	inactive := decode[types.Schedule](t, rec)
	assert.False(t, ts.scheduler.has(inactive.ID))

	rec = ts.do(t, http.MethodGet, "/api/schedules", nil)
	assert.Len(t, decode[[]types.Schedule](t, rec), 2)
}

func TestSchedules_RejectsBadTime(t *testing.T) {
	ts := newTestServer(t)
	for _, bad := range []string{"25:00", "8", "ab:cd", ""} {
		rec := ts.do(t, http.MethodPost, "/api/schedules", map[string]any{"time": bad})
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
	assert.Empty(t, ts.store.schedules)
}

func TestSchedules_UpdateTogglesRegistration(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/schedules", map[string]any{"time": "08:30"})
	sched := decode[types.Schedule](t, rec)
	path := fmt.Sprintf("/api/schedules/%d", sched.ID)

	rec = ts.do(t, http.MethodPut, path, map[string]any{"time": "09:15", "is_active": false})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ts.scheduler.has(sched.ID))

	rec = ts.do(t, http.MethodPut, path, map[string]any{"time": "10:45"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10:45", ts.scheduler.jobs[sched.ID])
	assert.Equal(t, "10:45", decode[types.Schedule](t, rec).Time)

	rec = ts.do(t, http.MethodPut, "/api/schedules/999", map[string]any{"time": "10:45"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchedules_DeleteRemovesTrigger(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/schedules", map[string]any{"time": "08:30"})
	sched := decode[types.Schedule](t, rec)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d", sched.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, ts.scheduler.has(sched.ID))
	assert.Empty(t, ts.store.schedules)

	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d", sched.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSchedules_DeleteFailureKeepsTrigger(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodPost, "/api/schedules", map[string]any{"time": "08:30"})
	sched := decode[types.Schedule](t, rec)

	ts.store.deleteErr = errors.New("connection reset")
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/schedules/%d", sched.ID), nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, ts.scheduler.has(sched.ID))
	assert.Contains(t, ts.store.schedules, sched.ID)
}

func TestSchedules_NextRun(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/schedules/next-run", nil)
	assert.JSONEq(t, `{"next_run":null}`, rec.Body.String())

	ts.scheduler.next = time.Date(2026, 3, 3, 8, 30, 0, 0, time.UTC)
	ts.do(t, http.MethodPost, "/api/schedules", map[string]any{"time": "08:30"})
	rec = ts.do(t, http.MethodGet, "/api/schedules/next-run", nil)
	assert.JSONEq(t, `{"next_run":"2026-03-03T08:30:00Z"}`, rec.Body.String())
}

func TestReports_ListNewestFirst(t *testing.T) {
	ts := newTestServer(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ts.store.addReport(fmt.Sprintf("Daily Briefing %d", i), base.Add(time.Duration(i)*time.Hour))
	}

	rec := ts.do(t, http.MethodGet, "/api/reports?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reports := decode[[]types.Report](t, rec)
	require.Len(t, reports, 2)
	assert.Equal(t, "Daily Briefing 2", reports[0].Title)
	assert.Equal(t, "Daily Briefing 1", reports[1].Title)

	rec = ts.do(t, http.MethodGet, "/api/reports?skip=2", nil)
	assert.Len(t, decode[[]types.Report](t, rec), 1)
}

func TestReports_GetIncludesMetadata(t *testing.T) {
	ts := newTestServer(t)
	r := ts.store.addReport("Daily Briefing", time.Now(),
		"[2026-03-02 09:30:00] Initializing Analysis...",
		"[09:30:00] Initializing LLM Provider: openai (gpt-4o)",
		"[09:30:01] Processing Source: https://a.test",
		"[09:30:02] Processing Source: https://b.test",
		"[09:30:03] Processing Depth Level 1 Source: https://a.test",
	)

	rec := ts.do(t, http.MethodGet, fmt.Sprintf("/api/reports/%d", r.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "Daily Briefing", body["title"])
	assert.Equal(t, map[string]any{"model": "openai (gpt-4o)", "sources": float64(2)}, body["metadata"])
	assert.Len(t, body["logs"], 5)

	rec = ts.do(t, http.MethodGet, "/api/reports/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReports_Delete(t *testing.T) {
	ts := newTestServer(t)
	r := ts.store.addReport("Daily Briefing", time.Now())

	rec := ts.do(t, http.MethodDelete, fmt.Sprintf("/api/reports/%d", r.ID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/reports/%d", r.ID), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestReports_Generate(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/reports/generate", nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, ts.briefings.starts)

	ts.briefings.startErr = pipeline.ErrRunInProgress
	rec = ts.do(t, http.MethodPost, "/api/reports/generate", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	ts.briefings.startErr = errors.New("failed to list active sources: db down")
	rec = ts.do(t, http.MethodPost, "/api/reports/generate", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReports_Status(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/reports/status", nil)
	assert.JSONEq(t, `{"status":"Idle","last_run":null}`, rec.Body.String())

	ts.briefings.board.Set("Finalizing Briefing...")
	ts.briefings.last = &pipeline.RunSummary{RunID: "run-1", Outcome: pipeline.RunSucceeded, ReportID: 4}
	rec = ts.do(t, http.MethodGet, "/api/reports/status", nil)
	body := decode[StatusResponse](t, rec)
	assert.Equal(t, "Finalizing Briefing...", body.Status)
	require.NotNil(t, body.LastRun)
	assert.Equal(t, int64(4), body.LastRun.ReportID)
}

func TestReports_StatusStream(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.Handler())
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/reports/status/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 16)
	go func() {
		sc := bufio.NewScanner(resp.Body)
		for sc.Scan() {
			if strings.HasPrefix(sc.Text(), "data: ") {
				lines <- strings.TrimPrefix(sc.Text(), "data: ")
			}
		}
		close(lines)
	}()

	next := func() string {
		select {
		case l := <-lines:
			return l
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for status event")
			return ""
		}
	}

	assert.JSONEq(t, `{"status":"Idle"}`, next())
	ts.briefings.board.Set(journal.StatusInitializing)
	assert.JSONEq(t, fmt.Sprintf(`{"status":%q}`, journal.StatusInitializing), next())
}
