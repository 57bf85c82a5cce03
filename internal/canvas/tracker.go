package canvas

import "github.com/ayusman/insideout/internal/detector"

// Track is the outcome of one hand detection.
type Track struct {
	// Cursor is the raw index tip in top-left canvas coordinates.
	Cursor detector.Point2D `json:"cursor"`
	// Pinching is true when the hand is in the drawing pose.
	Pinching bool `json:"pinching"`
	// Brush is the smoothed, center-origin position to paint at. Valid when Pinching.
	Brush detector.Point2D `json:"brush"`
}

// Tracker follows the first detected hand across frames.
type Tracker struct {
	mapper   Mapper
	smoother *Smoother
}

// NewTracker creates a tracker using m for coordinates.
func NewTracker(m Mapper) *Tracker {
	return &Tracker{mapper: m, smoother: NewSmoother(DefaultSmoothing)}
}

// Update consumes a detection result. It returns false when no hand is visible.
// Smoothing restarts whenever the pinch is released or the hand is lost, so a new
// stroke does not inherit the tail of the previous one.
func (t *Tracker) Update(hands []detector.HandLandmarks) (Track, bool) {
	if len(hands) == 0 {
		t.smoother.Reset()
		return Track{}, false
	}

	hand := &hands[0]
	m := t.mapper
	tip := m.ToCanvas(hand.Pixel(detector.IndexTip, m.VideoW, m.VideoH))

	track := Track{Cursor: tip}
	if !Pinching(hand, m.VideoW, m.VideoH) {
		t.smoother.Reset()
		return track, true
	}

	track.Pinching = true
	track.Brush = m.Centered(t.smoother.Add(tip))
	return track, true
}
