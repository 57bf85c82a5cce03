package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/insideout/internal/store"
)

// LiveSession reports the session the render loop is journaling into.
type LiveSession interface {
	SessionID() string
}

// SessionHandler serves the session journal.
type SessionHandler struct {
	store *store.Store
	live  LiveSession
}

// NewSessionHandler creates a new SessionHandler with the given store. live may be nil;
// when set, its session cannot be deleted.
func NewSessionHandler(s *store.Store, live LiveSession) *SessionHandler {
	return &SessionHandler{store: s, live: live}
}

// ServeHTTP routes requests to appropriate methods.
// Expected paths: /api/sessions, /api/sessions/{id}, /api/sessions/{id}/strokes,
// /api/sessions/{id}/triggers
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
	case "strokes":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.strokes(w, r, id)
	case "triggers":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.triggers(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

type sessionResponse struct {
	ID             string             `json:"id"`
	DefaultEmotion string             `json:"default_emotion"`
	Seed           string             `json:"seed"`
	Bias           map[string]float64 `json:"bias"`
	StartedAt      string             `json:"started_at"`
	EndedAt        string             `json:"ended_at,omitempty"`
	Strokes        *int               `json:"strokes,omitempty"`
	Triggers       map[string]int     `json:"triggers,omitempty"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type listStrokesResponse struct {
	Strokes []*store.Stroke `json:"strokes"`
}

type listTriggersResponse struct {
	Triggers []*store.Trigger `json:"triggers"`
}

// toSessionResponse converts a store.Session. Seeds are strings so 64-bit values
// survive JavaScript clients.
func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:             s.ID,
		DefaultEmotion: s.DefaultEmotion,
		Seed:           strconv.FormatUint(s.Seed, 10),
		Bias:           s.Bias,
		StartedAt:      s.StartedAt.Format(timeFormat),
	}
	if s.EndedAt != nil {
		resp.EndedAt = s.EndedAt.Format(timeFormat)
	}
	return resp
}

// list handles GET /api/sessions.
func (h *SessionHandler) list(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/sessions/{id} with stroke and trigger tallies.
func (h *SessionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sess, ok := h.lookup(w, id)
	if !ok {
		return
	}

	strokes, err := h.store.Strokes().CountBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count strokes")
		return
	}
	triggers, err := h.store.Triggers().CountByEmotion(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count triggers")
		return
	}

	resp := toSessionResponse(sess)
	resp.Strokes = &strokes
	resp.Triggers = triggers
	writeJSON(w, http.StatusOK, resp)
}

// delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if h.live != nil && h.live.SessionID() == id {
		writeError(w, http.StatusConflict, "Session is in progress")
		return
	}
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

// strokes handles GET /api/sessions/{id}/strokes?limit=N, the redraw history.
func (h *SessionHandler) strokes(w http.ResponseWriter, r *http.Request, id string) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	if _, ok := h.lookup(w, id); !ok {
		return
	}

	strokes, err := h.store.Strokes().ListBySession(id, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list strokes")
		return
	}
	if strokes == nil {
		strokes = []*store.Stroke{}
	}
	writeJSON(w, http.StatusOK, listStrokesResponse{Strokes: strokes})
}

// triggers handles GET /api/sessions/{id}/triggers.
func (h *SessionHandler) triggers(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.lookup(w, id); !ok {
		return
	}

	triggers, err := h.store.Triggers().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list triggers")
		return
	}
	if triggers == nil {
		triggers = []*store.Trigger{}
	}
	writeJSON(w, http.StatusOK, listTriggersResponse{Triggers: triggers})
}

func (h *SessionHandler) lookup(w http.ResponseWriter, id string) (*store.Session, bool) {
	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return nil, false
	}
	return sess, true
}
