package app

import (
	"time"

	"github.com/ayusman/insideout/internal/canvas"
	"github.com/ayusman/insideout/internal/detector"
	"github.com/ayusman/insideout/internal/emotion"
	"github.com/ayusman/insideout/internal/log"
	"gocv.io/x/gocv"
)

// runPipeline is the render loop. Each tick:
//  1. read a frame
//  2. on an open gate, score facial expressions
//  3. let the controller adopt at most one emotion
//  4. when drawing is enabled, track the hand and paint while pinching
func (a *App) runPipeline(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(time.Second / time.Duration(a.config.FPS))
	defer ticker.Stop()

	var tick int64
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			frame, err := a.camera.ReadFrame()
			if err != nil {
				log.Debug("failed to read frame", "error", err)
				frame = nil
			}
			a.processTick(frame, tick, a.now())
			tick++
		}
	}
}

// processTick runs one iteration of the loop. It takes ownership of frame, which may be nil
// when the camera had nothing to deliver; the controller still ticks so synthetic emotions
// keep flowing.
func (a *App) processTick(frame *gocv.Mat, tick, now int64) {
	gateOpen := a.gate.Open(tick, now)

	var observed map[string]float64
	if gateOpen && frame != nil {
		faces, err := a.detector.DetectExpressions(frame)
		if err != nil {
			log.Debug("expression detection failed", "error", err)
		} else if len(faces) > 0 {
			observed = faces[0]
			name, score := faces[0].Dominant()
			log.Debug("expressions", "faces", len(faces), "dominant", name, "score", score)
		}
	}

	state, trig := a.controller.Evaluate(emotion.Input{
		Observed: observed,
		Now:      now,
		GateOpen: gateOpen,
	})

	a.mu.Lock()
	a.state = state
	enabled := a.enabled
	a.mu.Unlock()

	if trig != nil {
		a.onTrigger(state, trig)
	}

	if enabled && frame != nil {
		a.trackHand(frame, state, now)
	}

	a.keepFrame(frame)
}

func (a *App) onTrigger(state emotion.State, trig *emotion.Trigger) {
	log.Info("emotion triggered", "emotion", trig.Emotion, "mode", trig.Mode, "at_ms", trig.At, "color", state.Render.Color)
	a.journalTrigger(state, trig)
	a.events.publish(Event{Type: EventEmotion, Data: EmotionEvent{
		Emotion: trig.Emotion,
		Mode:    trig.Mode,
		At:      trig.At,
		Render:  state.Render,
	}})
}

func (a *App) trackHand(frame *gocv.Mat, state emotion.State, now int64) {
	hands, err := a.detector.Detect(frame)
	if err != nil {
		log.Debug("hand detection failed", "error", err)
		return
	}

	track, ok := a.tracker.Update(hands)
	if !ok {
		return
	}
	a.events.publish(Event{Type: EventCursor, Data: track})

	if !track.Pinching {
		return
	}
	a.paint(state, track.Brush, canvas.SourceHand, now)
}

// paint builds, journals and publishes a stroke at a center-origin position.
func (a *App) paint(state emotion.State, pos detector.Point2D, source string, now int64) canvas.Stroke {
	a.paintMu.Lock()
	stroke := canvas.NewStroke(state, pos, source, now, a.paintSrc)
	a.paintMu.Unlock()

	stroke.ID = newID()
	log.Debug("stroke", "emotion", stroke.Emotion, "source", source, "x", stroke.X, "y", stroke.Y)

	a.journalStroke(stroke)
	a.events.publish(Event{Type: EventStroke, Data: stroke})
	return stroke
}

// keepFrame replaces the preview frame.
func (a *App) keepFrame(frame *gocv.Mat) {
	if frame == nil {
		return
	}
	a.mu.Lock()
	prev := a.lastFrame
	a.lastFrame = frame
	a.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
}
