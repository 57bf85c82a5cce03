package app

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/insideout/internal/canvas"
	"github.com/ayusman/insideout/internal/capture"
	"github.com/ayusman/insideout/internal/detector"
	"github.com/ayusman/insideout/internal/emotion"
	"github.com/ayusman/insideout/internal/store"
	"gocv.io/x/gocv"
)

func testProfile(name string, mode emotion.TriggerMode, color string) emotion.Profile {
	side := emotion.Range{Min: 100, Max: 100}
	return emotion.Profile{
		Name:          name,
		Mode:          mode,
		Color:         color,
		Brush:         name,
		Width:         side,
		Height:        side,
		Opacity:       emotion.Range{Min: 80, Max: 140},
		Bleed:         emotion.Range{Min: 0.05, Max: 0.4},
		Texture:       emotion.Range{Min: 0.55, Max: 0.55},
		TextureBorder: 0.5,
	}
}

type fixture struct {
	app      *App
	store    *store.Store
	camera   *capture.MockCamera
	detector *detector.MockDetector
}

func newFixture(t *testing.T, profiles []emotion.Profile) *fixture {
	t.Helper()

	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cam := capture.NewBlankCamera(640, 480)
	t.Cleanup(cam.Release)
	det := detector.NewMockDetector()

	a, err := New(Config{
		Store:      st,
		Profiles:   profiles,
		Seed:       7,
		Camera:     cam,
		Perception: det,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	a.mu.Lock()
	a.beginSessionLocked()
	a.mu.Unlock()

	return &fixture{app: a, store: st, camera: cam, detector: det}
}

func observedOnly() []emotion.Profile {
	return []emotion.Profile{
		testProfile("happy", emotion.ModeObserved, "#ffde59"),
		testProfile("sad", emotion.ModeObserved, "#38b6ff"),
	}
}

func blankFrame() *gocv.Mat {
	m := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	return &m
}

func drain(ch <-chan Event) []Event {
	var out []Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func ofType(events []Event, typ string) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

func TestNew_InvalidTable(t *testing.T) {
	_, err := New(Config{
		Profiles:       observedOnly(),
		DefaultEmotion: "calm",
		Camera:         capture.NewMockCamera(nil, false),
		Perception:     detector.NewMockDetector(),
	})
	if !errors.Is(err, emotion.ErrConfig) {
		t.Errorf("New() error = %v, want ErrConfig", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(Config{Camera: capture.NewMockCamera(nil, false), Perception: detector.NewMockDetector()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.State().Emotion() != emotion.DefaultEmotion {
		t.Errorf("initial emotion = %q", a.State().Emotion())
	}
	if len(a.Brushes()) != len(emotion.DefaultProfiles()) {
		t.Errorf("Brushes() has %d entries", len(a.Brushes()))
	}
	if a.Seed() == 0 {
		t.Error("a zero seed should be replaced")
	}
	if !a.IsEnabled() {
		t.Error("drawing should start enabled")
	}
}

func TestProcessTick_ObservedTransitions(t *testing.T) {
	f := newFixture(t, observedOnly())
	events, cancel := f.app.Subscribe(16)
	defer cancel()

	f.detector.SetExpressions(detector.ExpressionOf(detector.Sad, 0.9))
	f.app.processTick(blankFrame(), 0, 0)

	if got := f.app.State().Emotion(); got != "sad" {
		t.Fatalf("emotion after first gate = %q, want sad", got)
	}
	emo := ofType(drain(events), EventEmotion)
	if len(emo) != 1 {
		t.Fatalf("got %d emotion events, want 1", len(emo))
	}
	if ev := emo[0].Data.(EmotionEvent); ev.Mode != emotion.ModeObserved || ev.Render.Color != "#38b6ff" {
		t.Errorf("unexpected event %+v", ev)
	}

	// Closed gate: no inference.
	f.detector.SetExpressions(detector.ExpressionOf(detector.Happy, 0.9))
	f.app.processTick(blankFrame(), 1, 16)
	if _, faces := f.detector.Calls(); faces != 1 {
		t.Errorf("expression calls = %d, want 1", faces)
	}

	// Open gate but inside the observed interval.
	f.app.processTick(blankFrame(), 6, 100)
	if got := f.app.State().Emotion(); got != "sad" {
		t.Errorf("emotion at 100ms = %q, want sad", got)
	}

	f.app.processTick(blankFrame(), 12, 6000)
	if got := f.app.State().Emotion(); got != "happy" {
		t.Errorf("emotion at 6000ms = %q, want happy", got)
	}

	triggers, err := f.store.Triggers().ListBySession(f.app.SessionID())
	if err != nil {
		t.Fatalf("ListBySession() error = %v", err)
	}
	if len(triggers) != 2 || triggers[0].Emotion != "sad" || triggers[1].AtMs != 6000 {
		t.Errorf("journal = %+v", triggers)
	}
}

func TestProcessTick_SyntheticCooldown(t *testing.T) {
	surge := testProfile("anxiety", emotion.ModeSynthetic, "#f67122")
	surge.Probability = 1
	surge.Cooldown = 3000
	f := newFixture(t, append(observedOnly(), surge))

	for i, now := range []int64{0, 1000, 2000, 3000} {
		f.app.processTick(nil, int64(i), now)
	}

	triggers, _ := f.store.Triggers().ListBySession(f.app.SessionID())
	if len(triggers) != 2 {
		t.Fatalf("got %d triggers, want 2", len(triggers))
	}
	if triggers[0].AtMs != 0 || triggers[1].AtMs != 3000 || triggers[1].Mode != "synthetic" {
		t.Errorf("journal = %+v", triggers)
	}
}

func TestProcessTick_PinchPaints(t *testing.T) {
	f := newFixture(t, observedOnly())
	events, cancel := f.app.Subscribe(16)
	defer cancel()

	f.detector.SetHands(detector.OpenPalmLandmarks())
	f.app.processTick(blankFrame(), 1, 16)

	got := drain(events)
	if len(ofType(got, EventCursor)) != 1 || len(ofType(got, EventStroke)) != 0 {
		t.Fatalf("open palm events = %+v", got)
	}

	f.detector.SetHands(detector.PinchLandmarks())
	f.app.processTick(blankFrame(), 2, 32)

	strokes := ofType(drain(events), EventStroke)
	if len(strokes) != 1 {
		t.Fatalf("got %d stroke events, want 1", len(strokes))
	}
	s := strokes[0].Data.(canvas.Stroke)
	if s.Source != canvas.SourceHand || s.Emotion != "happy" || s.ID == "" {
		t.Errorf("unexpected stroke %+v", s)
	}
	if s.Opacity < 80 || s.Opacity > 140 {
		t.Errorf("opacity %v outside profile range", s.Opacity)
	}

	n, _ := f.store.Strokes().CountBySession(f.app.SessionID())
	if n != 1 {
		t.Errorf("journaled %d strokes, want 1", n)
	}

	if frame, ok := f.app.LatestFrame(); !ok {
		t.Error("LatestFrame() should hold the last tick's frame")
	} else {
		frame.Close()
	}
}

func TestSetEnabled(t *testing.T) {
	f := newFixture(t, observedOnly())
	events, cancel := f.app.Subscribe(4)
	defer cancel()

	f.app.SetEnabled(false)
	if ev := ofType(drain(events), EventDrawing); len(ev) != 1 || ev[0].Data.(DrawingEvent).Enabled {
		t.Errorf("drawing events = %+v", ev)
	}

	f.detector.SetHands(detector.PinchLandmarks())
	f.app.processTick(blankFrame(), 1, 16)
	if hands, _ := f.detector.Calls(); hands != 0 {
		t.Errorf("hand detection ran %d times while disabled", hands)
	}

	if _, err := f.app.PaintAt(10, 10); !errors.Is(err, ErrDrawingDisabled) {
		t.Errorf("PaintAt() error = %v, want ErrDrawingDisabled", err)
	}

	// The toggle survives a restart.
	again, err := New(Config{Store: f.store, Camera: f.camera, Perception: f.detector, Profiles: observedOnly()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if again.IsEnabled() {
		t.Error("drawing setting was not restored")
	}
}

func TestPaintAt(t *testing.T) {
	f := newFixture(t, observedOnly())

	s, err := f.app.PaintAt(DefaultCanvasW/2+10, DefaultCanvasH/2-20)
	if err != nil {
		t.Fatalf("PaintAt() error = %v", err)
	}
	if s.X != 10 || s.Y != -20 || s.Source != canvas.SourcePointer {
		t.Errorf("unexpected stroke %+v", s)
	}

	list, _ := f.store.Strokes().ListBySession(f.app.SessionID(), 0)
	if len(list) != 1 || list[0].ID != s.ID {
		t.Errorf("journal = %+v", list)
	}
}

func TestApp_StartStop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	f := newFixture(t, observedOnly())
	f.detector.SetExpressions(detector.ExpressionOf(detector.Sad, 0.9))

	if err := f.app.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := f.app.Start(); err != nil {
		t.Errorf("second Start() error = %v", err)
	}
	id := f.app.SessionID()

	deadline := time.Now().Add(2 * time.Second)
	for f.camera.Reads() < 10 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	f.app.Stop()
	f.app.Stop()

	if f.camera.Reads() < 10 {
		t.Fatalf("loop read only %d frames", f.camera.Reads())
	}
	if got := f.app.State().Emotion(); got != "sad" {
		t.Errorf("emotion = %q, want sad", got)
	}

	sess, err := f.store.Sessions().GetByID(id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if sess.EndedAt == nil || sess.Seed != 7 {
		t.Errorf("session = %+v", sess)
	}
}

func TestBroker(t *testing.T) {
	b := newBroker()
	ch, cancel := b.subscribe(1)

	b.publish(Event{Type: EventCursor})
	b.publish(Event{Type: EventStroke}) // dropped, buffer full

	if ev := <-ch; ev.Type != EventCursor {
		t.Errorf("got %q, want cursor", ev.Type)
	}
	if b.count() != 1 {
		t.Errorf("count() = %d, want 1", b.count())
	}

	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Error("channel should be closed after cancel")
	}
	if b.count() != 0 {
		t.Errorf("count() = %d, want 0", b.count())
	}
}
