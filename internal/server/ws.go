package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/ayusman/insideout/internal/app"
	"github.com/ayusman/insideout/internal/emotion"
	"github.com/ayusman/insideout/internal/log"
	"github.com/gorilla/websocket"
)

// Messages only the websocket emits.
const (
	EventHello = "hello"
	EventError = "error"
)

const (
	writeWait     = 2 * time.Second
	eventBuffer   = 64
	maxMessageLen = 4096
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// HelloData is the snapshot a browser receives when it connects.
type HelloData struct {
	Emotion   app.EmotionEvent             `json:"emotion"`
	Brushes   map[string]emotion.BrushSpec `json:"brushes"`
	Drawing   bool                         `json:"drawing"`
	SessionID string                       `json:"session_id,omitempty"`
}

// ClientMessage is what a browser may send: {"type":"paint","x":..,"y":..} or
// {"type":"drawing","enabled":..}.
type ClientMessage struct {
	Type    string   `json:"type"`
	X       *float64 `json:"x,omitempty"`
	Y       *float64 `json:"y,omitempty"`
	Enabled *bool    `json:"enabled,omitempty"`
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func (c *client) writeEvent(ev app.Event) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.write(msg)
}

// CanvasHandler relays render loop events to every connected browser and
// accepts pointer paint and drawing toggle messages back.
type CanvasHandler struct {
	canvas  Canvas
	clients map[*websocket.Conn]*client
	mu      sync.RWMutex

	cancel    func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewCanvasHandler subscribes to c and starts broadcasting.
func NewCanvasHandler(c Canvas) *CanvasHandler {
	events, cancel := c.Subscribe(eventBuffer)
	h := &CanvasHandler{
		canvas:  c,
		clients: make(map[*websocket.Conn]*client),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go h.broadcast(events)
	return h
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *CanvasHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "Server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageLen)

	// Hello and registration share the lock, so no event lands between them.
	c := &client{conn: conn}
	h.mu.Lock()
	if err := c.writeEvent(app.Event{Type: EventHello, Data: h.hello()}); err != nil {
		h.mu.Unlock()
		log.Debug("websocket hello failed", "error", err)
		return
	}
	h.clients[conn] = c
	h.mu.Unlock()
	log.Debug("canvas client connected", "remote", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		log.Debug("canvas client disconnected", "remote", r.RemoteAddr)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if err := h.handleMessage(data); err != nil {
			c.writeEvent(app.Event{Type: EventError, Data: map[string]string{"error": err.Error()}})
		}
	}
}

func (h *CanvasHandler) hello() HelloData {
	st := h.canvas.State()
	return HelloData{
		Emotion: app.EmotionEvent{
			Emotion: st.Emotion(),
			Mode:    st.Profile.Mode,
			At:      st.LastTriggerAt,
			Render:  st.Render,
		},
		Brushes:   h.canvas.Brushes(),
		Drawing:   h.canvas.IsEnabled(),
		SessionID: h.canvas.SessionID(),
	}
}

var (
	errBadMessage  = errors.New("invalid message")
	errMissingArgs = errors.New("missing fields")
	errUnknownType = errors.New("unknown message type")
)

// handleMessage applies one client message. Strokes and toggles come back to
// every client through the broadcast.
func (h *CanvasHandler) handleMessage(data []byte) error {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return errBadMessage
	}

	switch msg.Type {
	case "paint":
		if msg.X == nil || msg.Y == nil {
			return errMissingArgs
		}
		_, err := h.canvas.PaintAt(*msg.X, *msg.Y)
		return err
	case "drawing":
		if msg.Enabled == nil {
			return errMissingArgs
		}
		h.canvas.SetEnabled(*msg.Enabled)
		return nil
	default:
		return errUnknownType
	}
}

// broadcast sends every event to all connected clients until the subscription closes.
func (h *CanvasHandler) broadcast(events <-chan app.Event) {
	for ev := range events {
		msg, err := json.Marshal(ev)
		if err != nil {
			log.Warn("failed to encode event", "type", ev.Type, "error", err)
			continue
		}

		h.mu.RLock()
		for conn, c := range h.clients {
			if err := c.write(msg); err != nil {
				// The reader loop notices and deregisters.
				conn.Close()
			}
		}
		h.mu.RUnlock()
	}
}

// Clients returns the number of connected browsers.
func (h *CanvasHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops the broadcast and disconnects every client.
func (h *CanvasHandler) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
		h.cancel()

		h.mu.RLock()
		for conn, c := range h.clients {
			c.mu.Lock()
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			c.mu.Unlock()
			conn.Close()
		}
		h.mu.RUnlock()
	})
}
