// Package api provides the HTTP API handlers for repwatch.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/ayusman/repwatch/internal/store"
)

// SessionHandler handles HTTP requests for sessions and their detections.
type SessionHandler struct {
	store *store.Store
}

// NewSessionHandler creates a new SessionHandler with the given store.
func NewSessionHandler(s *store.Store) *SessionHandler {
	return &SessionHandler{store: s}
}

// ServeHTTP routes /api/sessions, /api/sessions/{id} and
// /api/sessions/{id}/detections.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/sessions")
	path = strings.Trim(path, "/")

	if path == "" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.list(w, r)
		return
	}

	id, sub, _ := strings.Cut(path, "/")
	switch sub {
	case "":
		switch r.Method {
		case http.MethodGet:
			h.get(w, r, id)
		case http.MethodDelete:
			h.delete(w, r, id)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "detections":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.detections(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type sessionResponse struct {
	ID             string  `json:"id"`
	Source         string  `json:"source"`
	WindowSize     int     `json:"window_size"`
	Threshold      float64 `json:"threshold"`
	CountMode      string  `json:"count_mode"`
	Samples        int     `json:"samples"`
	InvalidSamples int     `json:"invalid_samples"`
	Events         int     `json:"events"`
	Episodes       int     `json:"episodes"`
	StartedAt      string  `json:"started_at"`
	EndedAt        string  `json:"ended_at,omitempty"`
	Running        bool    `json:"running"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type detectionResponse struct {
	Seq          int     `json:"seq"`
	Sample       float64 `json:"sample"`
	StdDev       float64 `json:"std_dev"`
	EpisodeStart bool    `json:"episode_start"`
	DetectedAt   string  `json:"detected_at"`
}

type listDetectionsResponse struct {
	SessionID  string              `json:"session_id"`
	Detections []detectionResponse `json:"detections"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:             s.ID,
		Source:         s.Source,
		WindowSize:     s.WindowSize,
		Threshold:      s.Threshold,
		CountMode:      s.CountMode,
		Samples:        s.Samples,
		InvalidSamples: s.InvalidSamples,
		Events:         s.Events,
		Episodes:       s.Episodes,
		StartedAt:      s.StartedAt.Format(time.RFC3339),
		Running:        s.EndedAt == nil,
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(time.RFC3339)
	}
	return resp
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// list handles GET /api/sessions, newest first.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{
		Sessions: make([]sessionResponse, 0, len(sessions)),
	}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	session, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// delete removes a session together with its detections.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Sessions().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) detections(w http.ResponseWriter, r *http.Request, id string) {
	if _, err := h.store.Sessions().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	detections, err := h.store.Detections().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list detections")
		return
	}

	response := listDetectionsResponse{
		SessionID:  id,
		Detections: make([]detectionResponse, 0, len(detections)),
	}
	for _, d := range detections {
		response.Detections = append(response.Detections, detectionResponse{
			Seq:          d.Seq,
			Sample:       d.Sample,
			StdDev:       d.StdDev,
			EpisodeStart: d.EpisodeStart,
			DetectedAt:   d.DetectedAt.Format(time.RFC3339Nano),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
