// Package app runs the insideout render loop: it reads camera frames, lets the emotion
// controller pick the active emotion, and turns pinch gestures into brush strokes.
package app

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"sync"
	"time"

	"github.com/ayusman/insideout/internal/canvas"
	"github.com/ayusman/insideout/internal/capture"
	"github.com/ayusman/insideout/internal/detector"
	"github.com/ayusman/insideout/internal/emotion"
	"github.com/ayusman/insideout/internal/log"
	"github.com/ayusman/insideout/internal/store"
	"gocv.io/x/gocv"
)

// Loop defaults.
const (
	DefaultFPS       = 60
	DefaultGateEvery = 6
	DefaultCanvasW   = 1280
	DefaultCanvasH   = 720
)

// ErrDrawingDisabled is returned by PaintAt while drawing is switched off.
var ErrDrawingDisabled = errors.New("drawing is disabled")

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store

	CameraID int
	FPS      int

	// GateEvery and GateIntervalMs select the inference gate, see NewGate.
	GateEvery      int
	GateIntervalMs int64

	ObservedIntervalMs int64
	DefaultEmotion     string
	// Profiles replaces the built-in emotion table when non-empty.
	Profiles []emotion.Profile
	// Seed makes a session reproducible. Zero picks a time based seed.
	Seed uint64

	CanvasWidth  float64
	CanvasHeight float64

	Detector detector.Config

	// Camera and Perception override the webcam and the MediaPipe service.
	Camera     capture.Camera
	Perception detector.Detector
	// UnmirroredInput marks frames that reach the detector unflipped. Canvas X is
	// then mirrored so drawing still follows the hand like a mirror.
	UnmirroredInput bool
}

// App is the main application that orchestrates perception, emotion and drawing.
type App struct {
	config     Config
	camera     capture.Camera
	detector   detector.Detector
	controller *emotion.Controller
	brushes    map[string]emotion.BrushSpec
	gate       Gate
	tracker    *canvas.Tracker
	events     *broker
	seed       uint64
	start      time.Time

	mu        sync.RWMutex
	enabled   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	state     emotion.State
	sessionID string
	lastFrame *gocv.Mat

	paintMu  sync.Mutex
	paintSrc emotion.Source
}

// New creates a new App instance with the given configuration.
// It fails when the emotion table is invalid.
func New(config Config) (*App, error) {
	if config.FPS <= 0 {
		config.FPS = DefaultFPS
	}
	if config.GateEvery <= 0 {
		config.GateEvery = DefaultGateEvery
	}
	if config.CanvasWidth <= 0 || config.CanvasHeight <= 0 {
		config.CanvasWidth, config.CanvasHeight = DefaultCanvasW, DefaultCanvasH
	}
	if config.DefaultEmotion == "" {
		config.DefaultEmotion = emotion.DefaultEmotion
	}

	profiles := config.Profiles
	if len(profiles) == 0 {
		profiles = emotion.DefaultProfiles()
	}

	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	controller, err := emotion.New(profiles, config.DefaultEmotion,
		emotion.WithSource(emotion.NewSource(seed)),
		emotion.WithObservedInterval(config.ObservedIntervalMs),
	)
	if err != nil {
		return nil, fmt.Errorf("emotion table: %w", err)
	}

	a := &App{
		config:     config,
		camera:     config.Camera,
		detector:   config.Perception,
		controller: controller,
		brushes:    emotion.NewBrushSet(controller.Profiles(), emotion.NewSource(seed+1)),
		gate:       NewGate(config.GateEvery, config.GateIntervalMs),
		events:     newBroker(),
		seed:       seed,
		start:      time.Now(),
		enabled:    true,
		state:      controller.State(),
		paintSrc:   emotion.NewSource(seed + 2),
	}

	if a.camera == nil {
		camCfg := capture.DefaultConfig()
		camCfg.DeviceID = config.CameraID
		camCfg.FPS = config.FPS
		a.camera = capture.NewCamera(camCfg)
	}

	// Try MediaPipe first, fall back to mock detector
	if a.detector == nil {
		if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
			a.detector = mp
			log.Info("using MediaPipe perception service")
		} else {
			log.Warn("perception service not available, using mock detector", "error", err)
			a.detector = detector.NewMockDetector()
		}
	}

	a.tracker = canvas.NewTracker(a.mapper())
	a.loadSettings()

	return a, nil
}

func (a *App) mapper() canvas.Mapper {
	w, h := a.camera.Size()
	return canvas.Mapper{
		VideoW:  float64(w),
		VideoH:  float64(h),
		CanvasW: a.config.CanvasWidth,
		CanvasH: a.config.CanvasHeight,
		Mirror:  a.config.UnmirroredInput,
	}
}

func (a *App) loadSettings() {
	if a.config.Store == nil {
		return
	}
	v, err := a.config.Store.Settings().Get(store.SettingDrawing)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Warn("failed to load drawing setting", "error", err)
		}
		return
	}
	if enabled, err := strconv.ParseBool(v); err == nil {
		a.enabled = enabled
	}
}

// SetEnabled switches drawing on or off. The emotion controller keeps running either way.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	changed := a.enabled != enabled
	a.enabled = enabled
	a.mu.Unlock()

	if a.config.Store != nil {
		if err := a.config.Store.Settings().Set(store.SettingDrawing, strconv.FormatBool(enabled)); err != nil {
			log.Error("failed to save drawing setting", "error", err)
		}
	}
	if changed {
		a.events.publish(Event{Type: EventDrawing, Data: DrawingEvent{Enabled: enabled}})
	}
}

// IsEnabled returns whether drawing is currently enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Start opens the camera, begins a journal session and runs the render loop.
func (a *App) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopCh != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.camera.SetFPS(a.config.FPS)

	// The negotiated frame size is known only after Open.
	a.tracker = canvas.NewTracker(a.mapper())
	a.beginSessionLocked()

	a.stopCh = make(chan struct{})
	a.doneCh = make(chan struct{})
	go a.runPipeline(a.stopCh, a.doneCh)

	log.Info("render loop started", "fps", a.config.FPS, "seed", a.seed, "session", a.sessionID)
	return nil
}

// Stop halts the render loop and releases resources.
func (a *App) Stop() {
	a.mu.Lock()
	stopCh, doneCh := a.stopCh, a.doneCh
	a.stopCh, a.doneCh = nil, nil
	a.mu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-doneCh

	if err := a.camera.Close(); err != nil {
		log.Error("failed to close camera", "error", err)
	}
	if err := a.detector.Close(); err != nil {
		log.Error("failed to close detector", "error", err)
	}

	a.mu.Lock()
	if a.lastFrame != nil {
		a.lastFrame.Close()
		a.lastFrame = nil
	}
	id := a.sessionID
	a.mu.Unlock()

	if a.config.Store != nil && id != "" {
		if err := a.config.Store.Sessions().End(id, time.Now()); err != nil {
			log.Error("failed to end session", "session", id, "error", err)
		}
	}

	log.Info("render loop stopped", "session", id)
}

// beginSessionLocked journals a new session. a.mu must be held.
func (a *App) beginSessionLocked() {
	a.sessionID = newID()
	if a.config.Store == nil {
		return
	}
	sess := &store.Session{
		ID:             a.sessionID,
		DefaultEmotion: a.config.DefaultEmotion,
		Seed:           a.seed,
		Bias:           a.controller.Bias(),
	}
	if err := a.config.Store.Sessions().Create(sess); err != nil {
		log.Error("failed to create session", "error", err)
		a.sessionID = ""
	}
}

// Subscribe returns a channel of canvas events and a function that cancels the subscription.
func (a *App) Subscribe(buffer int) (<-chan Event, func()) {
	return a.events.subscribe(buffer)
}

// Subscribers returns how many event subscriptions are active.
func (a *App) Subscribers() int {
	return a.events.count()
}

// State returns a snapshot of the active emotion.
func (a *App) State() emotion.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// Profiles returns the emotion table in priority order.
func (a *App) Profiles() []emotion.Profile {
	return a.controller.Profiles()
}

// Brushes returns the brush registry for this session.
func (a *App) Brushes() map[string]emotion.BrushSpec {
	return maps.Clone(a.brushes)
}

// Bias returns the per-session synthetic bias weights.
func (a *App) Bias() map[string]float64 {
	return a.controller.Bias()
}

// Seed returns the seed all session randomness derives from.
func (a *App) Seed() uint64 {
	return a.seed
}

// SessionID returns the journal session of the current run, or "" before Start.
func (a *App) SessionID() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.sessionID
}

// LatestFrame returns a copy of the most recent camera frame. The caller must close it.
func (a *App) LatestFrame() (*gocv.Mat, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.lastFrame == nil || a.lastFrame.Empty() {
		return nil, false
	}
	m := a.lastFrame.Clone()
	return &m, true
}

// now is the loop clock: monotonic milliseconds since New.
func (a *App) now() int64 {
	return time.Since(a.start).Milliseconds()
}
