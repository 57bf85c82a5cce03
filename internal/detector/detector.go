package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// HandDetector finds hands in a video frame.
type HandDetector interface {
	// Detect returns the hands found in frame, or an empty slice.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)
}

// ExpressionDetector scores facial expressions in a video frame.
type ExpressionDetector interface {
	// DetectExpressions returns one score map per detected face, or an empty slice.
	DetectExpressions(frame *gocv.Mat) ([]Expressions, error)
}

// Detector is a perception backend serving both hands and faces.
type Detector interface {
	HandDetector
	ExpressionDetector

	// Close releases any resources held by the detector.
	Close() error
}

// Config holds configuration options for the perception backend.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 1).
	MaxHands int

	// MaxFaces is the maximum number of faces to score (default: 1).
	MaxFaces int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath points at the perception service. Searched for when empty.
	ScriptPath string

	// PythonPath is the interpreter. A virtualenv python is preferred when empty.
	PythonPath string

	// IdleTimeout stops the service after this long without requests.
	IdleTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        1,
		MaxFaces:        1,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		IdleTimeout:     30 * time.Second,
	}
}
