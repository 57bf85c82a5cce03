// Package canvas turns hand landmarks into canvas positions and emotion state into
// brush strokes for the browser renderer.
package canvas

import "github.com/ayusman/insideout/internal/detector"

// Pinch thresholds in video pixels.
const (
	// TouchDistance is the thumb-index tip distance below which the fingers touch.
	TouchDistance = 40.0
	// SpreadDistance is the index-middle tip distance above which the middle finger is clear.
	SpreadDistance = 30.0
)

// Pinching reports whether the hand is in the drawing pose: thumb and index tips touching
// while the middle finger is held away. This rejects a closed fist, where all tips meet.
func Pinching(h *detector.HandLandmarks, videoW, videoH float64) bool {
	if h == nil {
		return false
	}
	touch := h.PixelDistance(detector.ThumbTip, detector.IndexTip, videoW, videoH)
	spread := h.PixelDistance(detector.IndexTip, detector.MiddleTip, videoW, videoH)
	return touch < TouchDistance && spread > SpreadDistance
}
