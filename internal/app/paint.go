package app

import (
	"github.com/ayusman/insideout/internal/canvas"
	"github.com/ayusman/insideout/internal/detector"
	"github.com/ayusman/insideout/internal/emotion"
	"github.com/ayusman/insideout/internal/log"
	"github.com/ayusman/insideout/internal/store"
	"github.com/google/uuid"
)

// PaintAt paints one shape with the active emotion at canvas position (x, y), measured
// from the top left corner. It serves pointer drawing from the browser.
func (a *App) PaintAt(x, y float64) (canvas.Stroke, error) {
	if !a.IsEnabled() {
		return canvas.Stroke{}, ErrDrawingDisabled
	}
	m := canvas.Mapper{CanvasW: a.config.CanvasWidth, CanvasH: a.config.CanvasHeight}
	pos := m.Centered(detector.Point2D{X: x, Y: y})
	return a.paint(a.State(), pos, canvas.SourcePointer, a.now()), nil
}

func (a *App) journalTrigger(state emotion.State, trig *emotion.Trigger) {
	st, id := a.config.Store, a.SessionID()
	if st == nil || id == "" {
		return
	}
	err := st.Triggers().Create(&store.Trigger{
		SessionID: id,
		Emotion:   trig.Emotion,
		Mode:      string(trig.Mode),
		Color:     state.Render.Color,
		AtMs:      trig.At,
	})
	if err != nil {
		log.Error("failed to journal trigger", "emotion", trig.Emotion, "error", err)
	}
}

func (a *App) journalStroke(s canvas.Stroke) {
	st, id := a.config.Store, a.SessionID()
	if st == nil || id == "" {
		return
	}
	err := st.Strokes().Create(&store.Stroke{
		ID:            s.ID,
		SessionID:     id,
		Emotion:       s.Emotion,
		Source:        s.Source,
		Brush:         s.Brush,
		Color:         s.Color,
		Opacity:       s.Opacity,
		Bleed:         s.Bleed,
		Texture:       s.Texture,
		TextureBorder: s.TextureBorder,
		Width:         s.Width,
		Height:        s.Height,
		X:             s.X,
		Y:             s.Y,
		AtMs:          s.At,
	})
	if err != nil {
		log.Error("failed to journal stroke", "error", err)
	}
}

func newID() string {
	return uuid.New().String()
}
