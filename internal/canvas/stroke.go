package canvas

import (
	"github.com/ayusman/insideout/internal/detector"
	"github.com/ayusman/insideout/internal/emotion"
)

// Stroke sources.
const (
	SourceHand    = "hand"
	SourcePointer = "pointer"
)

// Stroke is one filled rectangle handed to the brush renderer.
// X and Y are center-origin canvas coordinates.
type Stroke struct {
	ID            string  `json:"id"`
	Emotion       string  `json:"emotion"`
	Source        string  `json:"source"`
	Brush         string  `json:"brush"`
	Color         string  `json:"color"`
	Opacity       float64 `json:"opacity"`
	Bleed         float64 `json:"bleed"`
	Texture       float64 `json:"texture"`
	TextureBorder float64 `json:"texture_border"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	At            int64   `json:"at_ms"`
}

// NewStroke paints at pos with the active emotion. Opacity and bleed are redrawn per
// shape within the profile's ranges; everything else comes from the adopted render.
func NewStroke(st emotion.State, pos detector.Point2D, source string, at int64, src emotion.Source) Stroke {
	r := emotion.Jitter(st.Render, st.Profile, src)
	return Stroke{
		Emotion:       st.Emotion(),
		Source:        source,
		Brush:         r.Brush,
		Color:         r.Color,
		Opacity:       r.Opacity,
		Bleed:         r.Bleed,
		Texture:       r.Texture,
		TextureBorder: r.TextureBorder,
		Width:         r.Width,
		Height:        r.Height,
		X:             pos.X,
		Y:             pos.Y,
		At:            at,
	}
}
