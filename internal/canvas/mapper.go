package canvas

import "github.com/ayusman/insideout/internal/detector"

// Mapper converts video pixel positions to canvas positions.
type Mapper struct {
	VideoW, VideoH   float64
	CanvasW, CanvasH float64
	// Mirror flips X. Set it when the frames reaching the detector are not mirrored already.
	Mirror bool
}

// ToCanvas maps p from video space to canvas space with the origin at the top left.
func (m Mapper) ToCanvas(p detector.Point2D) detector.Point2D {
	if m.VideoW <= 0 || m.VideoH <= 0 {
		return detector.Point2D{}
	}
	x := p.X * m.CanvasW / m.VideoW
	if m.Mirror {
		x = m.CanvasW - x
	}
	return detector.Point2D{X: x, Y: p.Y * m.CanvasH / m.VideoH}
}

// Centered shifts a top-left canvas position to the renderer's center origin.
func (m Mapper) Centered(p detector.Point2D) detector.Point2D {
	return detector.Point2D{X: p.X - m.CanvasW/2, Y: p.Y - m.CanvasH/2}
}
