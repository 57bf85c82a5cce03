package emotion

import "math/rand/v2"

// Source yields uniform values in [0, 1).
type Source interface {
	Float64() float64
}

// NewSource returns a seeded PCG source. Two sources with the same seed yield the same
// sequence.
func NewSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// between draws one value from r, or returns r.Min without drawing when r is fixed.
func between(r Range, src Source) float64 {
	if r.Fixed() {
		return r.Min
	}
	return r.Min + src.Float64()*(r.Max-r.Min)
}
