package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ayusman/insideout/internal/canvas"
	"github.com/ayusman/insideout/internal/emotion"
)

// Canvas is the live render loop as seen by the API.
type Canvas interface {
	State() emotion.State
	Profiles() []emotion.Profile
	Brushes() map[string]emotion.BrushSpec
	Bias() map[string]float64
	IsEnabled() bool
	SetEnabled(enabled bool)
	SessionID() string
	PaintAt(x, y float64) (canvas.Stroke, error)
}

// EmotionHandler serves the live emotion state, the profile table, the brush
// registry, the drawing toggle and pointer painting.
type EmotionHandler struct {
	canvas      Canvas
	disabledErr error
}

// NewEmotionHandler creates a handler over c. disabledErr is the error PaintAt returns
// while drawing is off.
func NewEmotionHandler(c Canvas, disabledErr error) *EmotionHandler {
	return &EmotionHandler{canvas: c, disabledErr: disabledErr}
}

// ServeHTTP routes /api/state, /api/profiles, /api/brushes, /api/drawing and /api/paint.
func (h *EmotionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/api/state":
		h.onlyGet(w, r, h.state)
	case "/api/profiles":
		h.onlyGet(w, r, h.profiles)
	case "/api/brushes":
		h.onlyGet(w, r, h.brushes)
	case "/api/drawing":
		switch r.Method {
		case http.MethodGet:
			h.drawing(w, r)
		case http.MethodPut, http.MethodPost:
			h.setDrawing(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	case "/api/paint":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.paint(w, r)
	default:
		writeError(w, http.StatusNotFound, "Not found")
	}
}

func (h *EmotionHandler) onlyGet(w http.ResponseWriter, r *http.Request, fn http.HandlerFunc) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	fn(w, r)
}

type stateResponse struct {
	Emotion       string              `json:"emotion"`
	Mode          emotion.TriggerMode `json:"mode"`
	Render        emotion.Render      `json:"render"`
	Triggered     bool                `json:"triggered"`
	LastTriggerAt int64               `json:"last_trigger_at_ms"`
	Drawing       bool                `json:"drawing"`
	SessionID     string              `json:"session_id,omitempty"`
}

type profileResponse struct {
	emotion.Profile
	Bias float64 `json:"bias"`
}

type listProfilesResponse struct {
	Profiles []profileResponse `json:"profiles"`
}

type drawingRequest struct {
	Enabled *bool `json:"enabled"`
}

type drawingResponse struct {
	Enabled bool `json:"enabled"`
}

type paintRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// state handles GET /api/state.
func (h *EmotionHandler) state(w http.ResponseWriter, r *http.Request) {
	st := h.canvas.State()
	writeJSON(w, http.StatusOK, stateResponse{
		Emotion:       st.Emotion(),
		Mode:          st.Profile.Mode,
		Render:        st.Render,
		Triggered:     st.Triggered,
		LastTriggerAt: st.LastTriggerAt,
		Drawing:       h.canvas.IsEnabled(),
		SessionID:     h.canvas.SessionID(),
	})
}

// profiles handles GET /api/profiles.
func (h *EmotionHandler) profiles(w http.ResponseWriter, r *http.Request) {
	bias := h.canvas.Bias()
	profiles := h.canvas.Profiles()

	response := listProfilesResponse{Profiles: make([]profileResponse, 0, len(profiles))}
	for _, p := range profiles {
		response.Profiles = append(response.Profiles, profileResponse{Profile: p, Bias: bias[p.Name]})
	}
	writeJSON(w, http.StatusOK, response)
}

// brushes handles GET /api/brushes.
func (h *EmotionHandler) brushes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.canvas.Brushes())
}

// drawing handles GET /api/drawing.
func (h *EmotionHandler) drawing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, drawingResponse{Enabled: h.canvas.IsEnabled()})
}

// setDrawing handles PUT /api/drawing.
func (h *EmotionHandler) setDrawing(w http.ResponseWriter, r *http.Request) {
	var req drawingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	h.canvas.SetEnabled(*req.Enabled)
	writeJSON(w, http.StatusOK, drawingResponse{Enabled: *req.Enabled})
}

// paint handles POST /api/paint.
func (h *EmotionHandler) paint(w http.ResponseWriter, r *http.Request) {
	var req paintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.X == nil || req.Y == nil {
		writeError(w, http.StatusBadRequest, "x and y are required")
		return
	}

	stroke, err := h.canvas.PaintAt(*req.X, *req.Y)
	if err != nil {
		if h.disabledErr != nil && errors.Is(err, h.disabledErr) {
			writeError(w, http.StatusConflict, "Drawing is disabled")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to paint")
		return
	}
	writeJSON(w, http.StatusCreated, stroke)
}
