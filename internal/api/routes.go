package api

import (
	"log/slog"
	"net/http"

	"github.com/hashicorp/go-version"
	"github.com/sugawarayuuta/sonnet"

	"github.com/wsecho/wsecho/internal/statistics"
)

type sessionsResponse struct {
	Active []statistics.SessionInfo `json:"active"`
	Recent []statistics.SessionInfo `json:"recent"`
}

func writeJSON(w http.ResponseWriter, v any) {
	data, err := sonnet.Marshal(v)
	if err != nil {
		slog.Error("sonnet.Marshal", slog.Any("error", err))
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(data, '\n'))
}

// handleVersion reports the build version, plus its normalised semantic
// version when it parses as one. Development builds have no semver.
func (s *APIServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"version": s.version,
	}
	if v, err := version.NewVersion(s.version); err == nil {
		body["semver"] = v.String()
	}
	writeJSON(w, body)
}

func (s *APIServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.cfg)
}

func (s *APIServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	resp := sessionsResponse{
		Active: []statistics.SessionInfo{},
		Recent: []statistics.SessionInfo{},
	}
	if s.recorder != nil {
		if active := s.recorder.SessionRecordList.Active(); len(active) > 0 {
			resp.Active = active
		}
		if recent := s.recorder.SessionRecordList.Recent(); len(recent) > 0 {
			resp.Recent = recent
		}
	}
	writeJSON(w, resp)
}
