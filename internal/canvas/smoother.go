package canvas

import "github.com/ayusman/insideout/internal/detector"

// DefaultSmoothing is the number of positions averaged by a Smoother.
const DefaultSmoothing = 5

// Smoother is a moving average over the most recent positions.
type Smoother struct {
	size int
	buf  []detector.Point2D
}

// NewSmoother averages over size positions. Sizes below one mean DefaultSmoothing.
func NewSmoother(size int) *Smoother {
	if size < 1 {
		size = DefaultSmoothing
	}
	return &Smoother{size: size, buf: make([]detector.Point2D, 0, size)}
}

// Add records p and returns the average of the buffered positions.
func (s *Smoother) Add(p detector.Point2D) detector.Point2D {
	if len(s.buf) == s.size {
		copy(s.buf, s.buf[1:])
		s.buf = s.buf[:s.size-1]
	}
	s.buf = append(s.buf, p)

	var avg detector.Point2D
	n := float64(len(s.buf))
	for _, q := range s.buf {
		avg.X += q.X / n
		avg.Y += q.Y / n
	}
	return avg
}

// Reset drops the buffered positions.
func (s *Smoother) Reset() {
	s.buf = s.buf[:0]
}

// Len returns how many positions are buffered.
func (s *Smoother) Len() int {
	return len(s.buf)
}
