package server

import (
	"net/http"
	"strings"

	"github.com/jonathan/luxprima/internal/llm"
	"github.com/jonathan/luxprima/internal/types"
)

func (s *Server) handleListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.settingsMap(r)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, settings)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var updates []types.SettingUpdate
	if err := decodeJSON(r, &updates); err != nil {
		s.failure(w, err)
		return
	}
	for i := range updates {
		updates[i].Key = strings.TrimSpace(updates[i].Key)
		if err := updates[i].Validate(); err != nil {
			s.failure(w, validationError(err))
			return
		}
	}

	if err := s.store.UpsertSettings(r.Context(), updates); err != nil {
		s.failure(w, err)
		return
	}

	settings, err := s.settingsMap(r)
	if err != nil {
		s.failure(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, settings)
}

// handleLocalModels lists the models of an OpenAI-compatible server. Discovery
// failures are reported in the body with a 200 so the settings UI can show them.
func (s *Server) handleLocalModels(w http.ResponseWriter, r *http.Request) {
	baseURL := strings.TrimSpace(r.URL.Query().Get("base_url"))
	if baseURL == "" {
		baseURL = s.localBaseURL
	}

	models, err := s.listModels(r.Context(), baseURL)
	if err != nil {
		s.jsonResponse(w, http.StatusOK, map[string]any{"error": err.Error(), "models": []llm.Model{}})
		return
	}
	if models == nil {
		models = []llm.Model{}
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"models": models})
}

func (s *Server) settingsMap(r *http.Request) (map[string]string, error) {
	settings, err := s.store.ListSettings(r.Context())
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(settings))
	for _, st := range settings {
		out[st.Key] = st.Value
	}
	return out, nil
}
