package detector

import (
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu          sync.Mutex
	hands       []HandLandmarks
	expressions []Expressions
	err         error
	handCalls   int
	faceCalls   int
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector() *MockDetector {
	return &MockDetector{}
}

// SetHands sets the hands that will be returned by Detect.
func (m *MockDetector) SetHands(hands ...HandLandmarks) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hands = hands
}

// SetExpressions sets the faces that will be returned by DetectExpressions.
func (m *MockDetector) SetExpressions(faces ...Expressions) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expressions = faces
}

// SetError sets the error that will be returned by both detection calls.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Detect returns the pre-configured hands or error.
func (m *MockDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handCalls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]HandLandmarks(nil), m.hands...), nil
}

// DetectExpressions returns the pre-configured faces or error.
func (m *MockDetector) DetectExpressions(frame *gocv.Mat) ([]Expressions, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faceCalls++
	if m.err != nil {
		return nil, m.err
	}
	out := make([]Expressions, len(m.expressions))
	for i, e := range m.expressions {
		out[i] = e.Clone()
	}
	return out, nil
}

// Calls reports how many hand and expression requests were made.
func (m *MockDetector) Calls() (hands, faces int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.handCalls, m.faceCalls
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}

// ExpressionOf returns scores where name has confidence score and neutral takes the rest.
func ExpressionOf(name string, score float64) Expressions {
	e := Expressions{name: score}
	if name != Neutral {
		e[Neutral] = 1 - score
	}
	return e
}

// PinchLandmarks returns a hand whose thumb and index tips touch while the
// middle finger stays extended.
func PinchLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()

	h.Points[ThumbIP] = Point3D{X: 0.55, Y: 0.47, Z: 0.02}
	h.Points[ThumbTip] = Point3D{X: 0.57, Y: 0.37, Z: 0.01}

	h.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.41, Z: 0.0}
	h.Points[IndexTip] = Point3D{X: 0.58, Y: 0.36, Z: 0.0}

	return h
}

// FistLandmarks returns a closed hand: thumb over the curled index, middle finger folded
// against it.
func FistLandmarks() HandLandmarks {
	h := OpenPalmLandmarks()

	h.Points[ThumbTip] = Point3D{X: 0.55, Y: 0.66, Z: -0.02}
	h.Points[IndexTip] = Point3D{X: 0.55, Y: 0.67, Z: -0.02}
	h.Points[MiddleTip] = Point3D{X: 0.53, Y: 0.68, Z: -0.02}
	h.Points[RingTip] = Point3D{X: 0.46, Y: 0.70, Z: -0.02}
	h.Points[PinkyTip] = Point3D{X: 0.41, Y: 0.72, Z: -0.02}

	return h
}

// OpenPalmLandmarks returns a preset HandLandmarks representing an open palm.
// All fingers are extended outward.
func OpenPalmLandmarks() HandLandmarks {
	landmarks := HandLandmarks{
		Handedness: "Right",
		Score:      0.95,
	}

	landmarks.Points[Wrist] = Point3D{X: 0.5, Y: 0.8, Z: 0.0}

	landmarks.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	landmarks.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	landmarks.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	landmarks.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	landmarks.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68, Z: 0.0}
	landmarks.Points[IndexPIP] = Point3D{X: 0.57, Y: 0.55, Z: 0.0}
	landmarks.Points[IndexDIP] = Point3D{X: 0.58, Y: 0.45, Z: 0.0}
	landmarks.Points[IndexTip] = Point3D{X: 0.58, Y: 0.35, Z: 0.0}

	landmarks.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66, Z: 0.0}
	landmarks.Points[MiddlePIP] = Point3D{X: 0.50, Y: 0.52, Z: 0.0}
	landmarks.Points[MiddleDIP] = Point3D{X: 0.50, Y: 0.40, Z: 0.0}
	landmarks.Points[MiddleTip] = Point3D{X: 0.50, Y: 0.28, Z: 0.0}

	landmarks.Points[RingMCP] = Point3D{X: 0.45, Y: 0.68, Z: 0.0}
	landmarks.Points[RingPIP] = Point3D{X: 0.43, Y: 0.55, Z: 0.0}
	landmarks.Points[RingDIP] = Point3D{X: 0.42, Y: 0.45, Z: 0.0}
	landmarks.Points[RingTip] = Point3D{X: 0.42, Y: 0.35, Z: 0.0}

	landmarks.Points[PinkyMCP] = Point3D{X: 0.40, Y: 0.70, Z: 0.0}
	landmarks.Points[PinkyPIP] = Point3D{X: 0.37, Y: 0.60, Z: 0.0}
	landmarks.Points[PinkyDIP] = Point3D{X: 0.35, Y: 0.50, Z: 0.0}
	landmarks.Points[PinkyTip] = Point3D{X: 0.34, Y: 0.42, Z: 0.0}

	return landmarks
}
