package server

import (
	"log"
	"net/http"
	"time"

	"github.com/jonathan/luxprima/internal/types"
)

func (s *Server) handleListSchedules(w http.ResponseWriter, r *http.Request) {
	schedules, err := s.store.ListSchedules(r.Context())
	if err != nil {
		s.failure(w, err)
		return
	}
	if schedules == nil {
		schedules = []types.Schedule{}
	}
	s.jsonResponse(w, http.StatusOK, schedules)
}

func (s *Server) handleCreateSchedule(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSchedule(r)
	if err != nil {
		s.failure(w, err)
		return
	}

	created, err := s.store.CreateSchedule(r.Context(), req.Time, req.Active())
	if err != nil {
		s.failure(w, err)
		return
	}
	if err := s.sync(created); err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.failure(w, err)
		return
	}
	req, err := decodeSchedule(r)
	if err != nil {
		s.failure(w, err)
		return
	}

	updated, err := s.store.UpdateSchedule(r.Context(), id, req.Time, req.Active())
	if err != nil {
		s.failure(w, err)
		return
	}
	if updated == nil {
		s.failure(w, &ErrNotFound{Resource: "schedule", ID: id})
		return
	}
	if err := s.sync(updated); err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.failure(w, err)
		return
	}
	existing, err := s.store.GetSchedule(r.Context(), id)
	if err != nil {
		s.failure(w, err)
		return
	}
	if existing == nil {
		s.failure(w, &ErrNotFound{Resource: "schedule", ID: id})
		return
	}

	if _, err := s.store.DeleteSchedule(r.Context(), id); err != nil {
		s.failure(w, err)
		return
	}
	s.scheduler.Remove(id)
	s.jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleNextRun(w http.ResponseWriter, _ *http.Request) {
	next, ok := s.scheduler.NextRun()
	if !ok {
		s.jsonResponse(w, http.StatusOK, map[string]any{"next_run": nil})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"next_run": next.Format(time.RFC3339)})
}

// sync registers an active schedule with the scheduler or drops an inactive one.
func (s *Server) sync(sched *types.Schedule) error {
	if !sched.IsActive {
		s.scheduler.Remove(sched.ID)
		return nil
	}
	if err := s.scheduler.Add(sched.ID, sched.Time); err != nil {
		log.Printf("[SERVER] Failed to register schedule %d: %v", sched.ID, err)
		return err
	}
	return nil
}

func decodeSchedule(r *http.Request) (*types.ScheduleRequest, error) {
	var req types.ScheduleRequest
	if err := decodeJSON(r, &req); err != nil {
		return nil, err
	}
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}
	return &req, nil
}
