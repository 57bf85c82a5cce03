// Package tray provides a system tray menu for the insideout canvas.
package tray

import (
	"sync"

	"github.com/ayusman/insideout/internal/app"
	"github.com/getlantern/systray"
)

// Menu labels.
const (
	labelEnabled  = "● Drawing on"
	labelDisabled = "○ Drawing off"
	labelNoMood   = "Feeling: none"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	enabled  bool
	emotion  string
	mu       sync.RWMutex

	menuToggle  *systray.MenuItem
	menuEmotion *systray.MenuItem
}

// New creates a new Tray showing the given drawing state.
func New(enabled bool) *Tray {
	return &Tray{enabled: enabled}
}

// OnToggle sets the callback invoked when the user flips the drawing toggle.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpenCanvas sets the callback invoked by the "Open Canvas" item.
func (t *Tray) OnOpenCanvas(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback invoked by the "Quit" item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, func() {})
}

// Quit stops the tray loop.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("InsideOut")
	systray.SetTooltip("InsideOut emotion canvas")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleLabel(t.enabled), "Toggle pinch drawing")
	systray.AddSeparator()
	t.menuEmotion = systray.AddMenuItem(emotionLabel(t.emotion), "Active emotion")
	t.menuEmotion.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Canvas...", "Open the canvas in the browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit InsideOut")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// handleToggle flips the local state and reports it.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled
	t.setToggleTitleLocked()
	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetEnabled reflects a drawing toggle made elsewhere, e.g. from the browser.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	t.setToggleTitleLocked()
}

// SetEmotion updates the active emotion display in the menu.
func (t *Tray) SetEmotion(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.emotion = name
	if t.menuEmotion != nil {
		t.menuEmotion.SetTitle(emotionLabel(name))
	}
}

// Follow keeps the menu in sync with render loop events until events closes.
func (t *Tray) Follow(events <-chan app.Event) {
	for ev := range events {
		t.apply(ev)
	}
}

func (t *Tray) apply(ev app.Event) {
	switch data := ev.Data.(type) {
	case app.EmotionEvent:
		t.SetEmotion(data.Emotion)
	case app.DrawingEvent:
		t.SetEnabled(data.Enabled)
	}
}

// IsEnabled returns the current drawing state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Emotion returns the emotion currently shown.
func (t *Tray) Emotion() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.emotion
}

func (t *Tray) setToggleTitleLocked() {
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleLabel(t.enabled))
	}
}

func toggleLabel(enabled bool) string {
	if enabled {
		return labelEnabled
	}
	return labelDisabled
}

func emotionLabel(name string) string {
	if name == "" {
		return labelNoMood
	}
	return "Feeling: " + name
}
