package server

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/insideout/internal/app"
	"github.com/ayusman/insideout/internal/canvas"
	"github.com/ayusman/insideout/internal/emotion"
	"github.com/ayusman/insideout/internal/store"
	"github.com/gorilla/websocket"
	"gocv.io/x/gocv"
)

// fakeCanvas is a Canvas whose events are pushed by the test.
type fakeCanvas struct {
	mu      sync.Mutex
	state   emotion.State
	enabled bool
	painted [][2]float64
	frame   *gocv.Mat
	events  chan app.Event
	subs    int
	onState func()
}

func newFakeCanvas() *fakeCanvas {
	p := emotion.DefaultProfiles()[0]
	return &fakeCanvas{
		state:   emotion.State{Profile: p, Render: emotion.Base(p)},
		enabled: true,
		events:  make(chan app.Event, 8),
	}
}

func (f *fakeCanvas) State() emotion.State {
	if f.onState != nil {
		f.onState()
	}
	return f.state
}

func (f *fakeCanvas) Profiles() []emotion.Profile { return emotion.DefaultProfiles() }
func (f *fakeCanvas) Brushes() map[string]emotion.BrushSpec {
	return emotion.NewBrushSet(emotion.DefaultProfiles(), emotion.NewConstantSource(0.5))
}
func (f *fakeCanvas) Bias() map[string]float64 { return map[string]float64{} }
func (f *fakeCanvas) SessionID() string        { return "session-1" }

func (f *fakeCanvas) IsEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

func (f *fakeCanvas) SetEnabled(enabled bool) {
	f.mu.Lock()
	f.enabled = enabled
	f.mu.Unlock()
}

func (f *fakeCanvas) PaintAt(x, y float64) (canvas.Stroke, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.enabled {
		return canvas.Stroke{}, app.ErrDrawingDisabled
	}
	f.painted = append(f.painted, [2]float64{x, y})
	return canvas.Stroke{ID: "s1", Emotion: f.state.Emotion()}, nil
}

func (f *fakeCanvas) paints() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.painted)
}

func (f *fakeCanvas) Subscribe(int) (<-chan app.Event, func()) {
	f.mu.Lock()
	f.subs++
	f.mu.Unlock()
	var once sync.Once
	return f.events, func() {
		once.Do(func() {
			f.mu.Lock()
			f.subs--
			f.mu.Unlock()
			close(f.events)
		})
	}
}

func (f *fakeCanvas) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.subs
}

func (f *fakeCanvas) LatestFrame() (*gocv.Mat, bool) {
	if f.frame == nil {
		return nil, false
	}
	m := f.frame.Clone()
	return &m, true
}

func TestServer_Health(t *testing.T) {
	s := New(Config{})

	t.Run("returns 200 with JSON response", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		rec := httptest.NewRecorder()

		s.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		contentType := rec.Header().Get("Content-Type")
		if contentType != "application/json" {
			t.Errorf("expected Content-Type application/json, got %s", contentType)
		}

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}

		if response["status"] != "ok" {
			t.Errorf("expected status 'ok', got %v", response["status"])
		}

		if _, exists := response["uptime"]; !exists {
			t.Error("expected 'uptime' field in response")
		}
	})

	t.Run("only allows GET method", func(t *testing.T) {
		for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
			req := httptest.NewRequest(method, "/api/health", nil)
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != http.StatusMethodNotAllowed {
				t.Errorf("method %s: expected status %d, got %d", method, http.StatusMethodNotAllowed, rec.Code)
			}
		}
	})

	t.Run("reports the canvas", func(t *testing.T) {
		fc := newFakeCanvas()
		s := New(Config{Canvas: fc})
		defer s.Shutdown(context.Background())

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

		var response map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if response["emotion"] != "happy" || response["drawing"] != true {
			t.Errorf("unexpected health %v", response)
		}
		if response["clients"] != float64(0) {
			t.Errorf("clients = %v, want 0", response["clients"])
		}
		// The websocket hub holds the only subscription.
		if response["subscribers"] != float64(1) {
			t.Errorf("subscribers = %v, want 1", response["subscribers"])
		}
	})
}

func TestServer_NotFound(t *testing.T) {
	s := New(Config{})

	for _, path := range []string{"/api/nonexistent", "/api/state", "/api/sessions"} {
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("%s: expected status %d, got %d", path, http.StatusNotFound, rec.Code)
		}
	}
}

func TestServer_Routes(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer st.Close()

	fc := newFakeCanvas()
	s := New(Config{Store: st, Canvas: fc})
	defer s.Shutdown(context.Background())

	tests := []struct {
		method string
		path   string
		body   string
		want   int
	}{
		{http.MethodGet, "/api/state", "", http.StatusOK},
		{http.MethodGet, "/api/profiles", "", http.StatusOK},
		{http.MethodGet, "/api/brushes", "", http.StatusOK},
		{http.MethodGet, "/api/drawing", "", http.StatusOK},
		{http.MethodPost, "/api/paint", `{"x":10,"y":20}`, http.StatusCreated},
		{http.MethodGet, "/api/sessions", "", http.StatusOK},
		{http.MethodGet, "/api/sessions/missing", "", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			rec := httptest.NewRecorder()

			s.ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	t.Run("paint while disabled conflicts", func(t *testing.T) {
		fc.SetEnabled(false)
		defer fc.SetEnabled(true)

		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/paint", strings.NewReader(`{"x":1,"y":1}`)))
		if rec.Code != http.StatusConflict {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusConflict)
		}
	})
}

func TestServer_StaticFiles(t *testing.T) {
	tmpDir := t.TempDir()

	testContent := "<html><body>Hello, canvas!</body></html>"
	if err := os.WriteFile(filepath.Join(tmpDir, "index.html"), []byte(testContent), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	jsContent := "console.log('brush')"
	if err := os.WriteFile(filepath.Join(tmpDir, "canvas.js"), []byte(jsContent), 0644); err != nil {
		t.Fatalf("failed to create test JS file: %v", err)
	}

	s := New(Config{StaticDir: tmpDir})

	tests := []struct {
		name string
		path string
		code int
		body string
	}{
		{"serves index.html at root path", "/", http.StatusOK, testContent},
		{"serves static files from configured directory", "/canvas.js", http.StatusOK, jsContent},
		{"returns 404 for non-existent static files", "/nonexistent.html", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			if rec.Code != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, rec.Code)
			}
			if tt.body != "" && rec.Body.String() != tt.body {
				t.Errorf("expected body %q, got %q", tt.body, rec.Body.String())
			}
		})
	}
}

func TestServer_NoStaticDir(t *testing.T) {
	s := New(Config{})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

func TestNew(t *testing.T) {
	t.Run("creates server with config", func(t *testing.T) {
		cfg := Config{StaticDir: "/some/path"}
		s := New(cfg)

		if s == nil {
			t.Fatal("expected non-nil server")
		}
		if s.config.StaticDir != cfg.StaticDir {
			t.Errorf("expected StaticDir %s, got %s", cfg.StaticDir, s.config.StaticDir)
		}
	})

	t.Run("server implements http.Handler", func(t *testing.T) {
		var _ http.Handler = New(Config{})
	})

	t.Run("shutdown before listen", func(t *testing.T) {
		if err := New(Config{}).Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
	})
}

func dialCanvas(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/canvas"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev map[string]any
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	return ev
}

func waitClients(t *testing.T, h *CanvasHandler, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("Clients() = %d, want %d", h.Clients(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCanvasHandler(t *testing.T) {
	fc := newFakeCanvas()
	s := New(Config{Canvas: fc})
	ts := httptest.NewServer(s)
	defer ts.Close()
	defer s.Shutdown(context.Background())

	conn := dialCanvas(t, ts)

	t.Run("hello snapshot", func(t *testing.T) {
		ev := readEvent(t, conn)
		if ev["type"] != EventHello {
			t.Fatalf("first message type = %v, want hello", ev["type"])
		}
		data := ev["data"].(map[string]any)
		if data["drawing"] != true || data["session_id"] != "session-1" {
			t.Errorf("unexpected hello %v", data)
		}
		if data["emotion"].(map[string]any)["emotion"] != "happy" {
			t.Errorf("hello emotion = %v", data["emotion"])
		}
		if _, ok := data["brushes"].(map[string]any)["anxiety"]; !ok {
			t.Error("hello brushes missing anxiety")
		}
	})

	waitClients(t, s.hub, 1)

	t.Run("broadcasts events", func(t *testing.T) {
		fc.events <- app.Event{Type: app.EventEmotion, Data: app.EmotionEvent{Emotion: "anxiety", At: 5000}}

		ev := readEvent(t, conn)
		if ev["type"] != app.EventEmotion {
			t.Fatalf("type = %v, want emotion", ev["type"])
		}
		if ev["data"].(map[string]any)["emotion"] != "anxiety" {
			t.Errorf("data = %v", ev["data"])
		}
	})

	t.Run("paint message", func(t *testing.T) {
		if err := conn.WriteJSON(map[string]any{"type": "paint", "x": 100, "y": 200}); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
		deadline := time.Now().Add(2 * time.Second)
		for fc.paints() != 1 {
			if time.Now().After(deadline) {
				t.Fatal("paint message was not applied")
			}
			time.Sleep(5 * time.Millisecond)
		}
	})

	t.Run("drawing message", func(t *testing.T) {
		if err := conn.WriteJSON(map[string]any{"type": "drawing", "enabled": false}); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
		deadline := time.Now().Add(2 * time.Second)
		for fc.IsEnabled() {
			if time.Now().After(deadline) {
				t.Fatal("drawing message was not applied")
			}
			time.Sleep(5 * time.Millisecond)
		}
	})

	t.Run("paint while disabled replies with error", func(t *testing.T) {
		if err := conn.WriteJSON(map[string]any{"type": "paint", "x": 1, "y": 1}); err != nil {
			t.Fatalf("WriteJSON() error = %v", err)
		}
		ev := readEvent(t, conn)
		if ev["type"] != EventError {
			t.Fatalf("type = %v, want error", ev["type"])
		}
		if msg := ev["data"].(map[string]any)["error"]; msg != app.ErrDrawingDisabled.Error() {
			t.Errorf("error = %v", msg)
		}
	})

	t.Run("unknown and malformed messages", func(t *testing.T) {
		for _, raw := range []string{`{"type":"erase"}`, `not json`, `{"type":"paint","x":1}`} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
				t.Fatalf("WriteMessage() error = %v", err)
			}
			if ev := readEvent(t, conn); ev["type"] != EventError {
				t.Errorf("%s: type = %v, want error", raw, ev["type"])
			}
		}
	})

	t.Run("close disconnects clients", func(t *testing.T) {
		s.hub.Close()
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err := conn.ReadMessage(); err == nil {
			t.Error("expected read error after Close")
		}
		waitClients(t, s.hub, 0)
	})
}

func TestCanvasHandler_EventDuringHello(t *testing.T) {
	fc := newFakeCanvas()
	var once sync.Once
	fc.onState = func() {
		// A trigger fires while the snapshot is being taken.
		once.Do(func() {
			fc.events <- app.Event{Type: app.EventEmotion, Data: app.EmotionEvent{Emotion: "shame"}}
		})
	}
	h := NewCanvasHandler(fc)
	defer h.Close()

	ts := httptest.NewServer(h)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	if ev := readEvent(t, conn); ev["type"] != EventHello {
		t.Fatalf("first message type = %v, want hello", ev["type"])
	}
	ev := readEvent(t, conn)
	if ev["type"] != app.EventEmotion || ev["data"].(map[string]any)["emotion"] != "shame" {
		t.Errorf("second message = %v, want the emotion published during hello", ev)
	}
}

func TestHandleMessage(t *testing.T) {
	fc := newFakeCanvas()
	h := &CanvasHandler{canvas: fc}

	tests := []struct {
		name string
		msg  string
		want error
	}{
		{"paint", `{"type":"paint","x":3,"y":4}`, nil},
		{"paint missing y", `{"type":"paint","x":3}`, errMissingArgs},
		{"drawing missing enabled", `{"type":"drawing"}`, errMissingArgs},
		{"unknown", `{"type":"clear"}`, errUnknownType},
		{"malformed", `{`, errBadMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := h.handleMessage([]byte(tt.msg)); !errors.Is(err, tt.want) {
				t.Errorf("handleMessage() error = %v, want %v", err, tt.want)
			}
		})
	}
	if fc.paints() != 1 || fc.painted[0] != [2]float64{3, 4} {
		t.Errorf("painted = %v", fc.painted)
	}
}

func TestStreamHandler(t *testing.T) {
	t.Run("rejects non-GET", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NewStreamHandler(newFakeCanvas()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/stream", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})

	t.Run("streams JPEG parts", func(t *testing.T) {
		fc := newFakeCanvas()
		frame := gocv.NewMatWithSize(48, 64, gocv.MatTypeCV8UC3)
		defer frame.Close()
		fc.frame = &frame

		ts := httptest.NewServer(NewStreamHandler(fc))
		defer ts.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL, nil)
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("GET error = %v", err)
		}
		defer resp.Body.Close()

		if ct := resp.Header.Get("Content-Type"); ct != "multipart/x-mixed-replace; boundary=frame" {
			t.Errorf("Content-Type = %q", ct)
		}

		r := bufio.NewReader(resp.Body)
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read error = %v", err)
		}
		if line != "--frame\r\n" {
			t.Errorf("first line = %q, want boundary", line)
		}
		line, _ = r.ReadString('\n')
		if line != "Content-Type: image/jpeg\r\n" {
			t.Errorf("part header = %q", line)
		}
	})
}
