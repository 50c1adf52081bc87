package server

import (
	"net/http"

	"github.com/jonathan/luxprima/internal/types"
)

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	skip := parseQueryInt(r, "skip", 0, 0)
	limit := parseQueryInt(r, "limit", 100, 1000)

	sources, err := s.store.ListSources(r.Context())
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, page(sources, skip, limit))
}

func (s *Server) handleCreateSource(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSourceRequest
	if err := decodeJSON(r, &req); err != nil {
		s.failure(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.failure(w, validationError(err))
		return
	}

	created, err := s.store.CreateSource(r.Context(), req.ToSource())
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.failure(w, err)
		return
	}
	deleted, err := s.store.DeleteSource(r.Context(), id)
	if err != nil {
		s.failure(w, err)
		return
	}
	if !deleted {
		s.failure(w, &ErrNotFound{Resource: "source", ID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// page returns items[skip:skip+limit], never nil.
func page[T any](items []T, skip, limit int) []T {
	if skip >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && skip+limit < end {
		end = skip + limit
	}
	return items[skip:end]
}
