package server

import (
	"errors"
	"log"
	"net/http"

	"github.com/jonathan/luxprima/internal/journal"
	"github.com/jonathan/luxprima/internal/pipeline"
	"github.com/jonathan/luxprima/internal/types"
)

// ReportResponse is a stored report plus metadata recovered from its journal.
type ReportResponse struct {
	*types.Report
	Metadata journal.Metadata `json:"metadata"`
}

// StatusResponse is the body of GET /api/reports/status.
type StatusResponse struct {
	Status  string                `json:"status"`
	LastRun *pipeline.RunSummary `json:"last_run"`
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	skip := parseQueryInt(r, "skip", 0, 0)
	limit := parseQueryInt(r, "limit", 20, 100)

	reports, err := s.store.ListReports(r.Context(), skip, limit)
	if err != nil {
		s.failure(w, err)
		return
	}
	if reports == nil {
		reports = []types.Report{}
	}
	s.jsonResponse(w, http.StatusOK, reports)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.failure(w, err)
		return
	}
	report, err := s.store.GetReport(r.Context(), id)
	if err != nil {
		s.failure(w, err)
		return
	}
	if report == nil {
		s.failure(w, &ErrNotFound{Resource: "report", ID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, ReportResponse{
		Report:   report,
		Metadata: journal.ParseMetadata(report.Logs),
	})
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.failure(w, err)
		return
	}
	deleted, err := s.store.DeleteReport(r.Context(), id)
	if err != nil {
		s.failure(w, err)
		return
	}
	if !deleted {
		s.failure(w, &ErrNotFound{Resource: "report", ID: id})
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if err := s.briefings.Start(r.Context()); err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			s.errorResponse(w, http.StatusConflict, "Report generation already in progress")
			return
		}
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusAccepted, map[string]string{"message": "Report generation started"})
}

func (s *Server) handleReportStatus(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, StatusResponse{
		Status:  s.briefings.Status(),
		LastRun: s.briefings.LastRun(),
	})
}

// handleStatusStream pushes every status change as an SSE "status" event until
// the client disconnects.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	updates, cancel := s.briefings.Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case status, ok := <-updates:
			if !ok {
				return
			}
			if err := sse.WriteStatus(status); err != nil {
				log.Printf("[SERVER] Status stream closed: %v", err)
				return
			}
		}
	}
}
