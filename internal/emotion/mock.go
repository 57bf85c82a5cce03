package emotion

// FixedSource replays a fixed sequence of draws for tests.
// Once the sequence is exhausted it keeps returning Fallback.
type FixedSource struct {
	values   []float64
	next     int
	Fallback float64
}

// NewFixedSource creates a source that yields values in order, then 0.999.
func NewFixedSource(values ...float64) *FixedSource {
	return &FixedSource{values: values, Fallback: 0.999}
}

// NewConstantSource creates a source that always yields v.
func NewConstantSource(v float64) *FixedSource {
	return &FixedSource{Fallback: v}
}

// Float64 returns the next value.
func (s *FixedSource) Float64() float64 {
	if s.next < len(s.values) {
		v := s.values[s.next]
		s.next++
		return v
	}
	s.next++
	return s.Fallback
}

// Draws returns how many values have been consumed.
func (s *FixedSource) Draws() int {
	return s.next
}
