package app

import (
	"sync"

	"github.com/ayusman/insideout/internal/emotion"
)

// Event types published to subscribers.
const (
	EventEmotion = "emotion"
	EventCursor  = "cursor"
	EventStroke  = "stroke"
	EventDrawing = "drawing"
)

// Event is one message for the browser canvas. Data is JSON encodable.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EmotionEvent announces the active emotion and the renderer parameters it paints with.
type EmotionEvent struct {
	Emotion string              `json:"emotion"`
	Mode    emotion.TriggerMode `json:"mode,omitempty"`
	At      int64               `json:"at_ms"`
	Render  emotion.Render      `json:"render"`
}

// DrawingEvent announces the drawing toggle.
type DrawingEvent struct {
	Enabled bool `json:"enabled"`
}

// broker fans events out to subscribers. Slow subscribers miss events rather than
// stall the render loop.
type broker struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func newBroker() *broker {
	return &broker{subs: make(map[chan Event]struct{})}
}

func (b *broker) subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, ch)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (b *broker) publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

func (b *broker) count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
