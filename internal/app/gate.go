package app

// Gate decides on which ticks expression inference runs and observed emotions may be adopted.
type Gate interface {
	// Open is called once per tick with the tick number and the loop clock in milliseconds.
	Open(tick, nowMs int64) bool
}

// FrameGate opens on every Every-th tick, starting with tick 0.
type FrameGate struct {
	Every int64
}

// Open reports whether tick falls on the divider.
func (g FrameGate) Open(tick, _ int64) bool {
	if g.Every <= 1 {
		return true
	}
	return tick%g.Every == 0
}

// IntervalGate opens at most once per Interval milliseconds of wall time,
// independent of the frame rate.
type IntervalGate struct {
	Interval int64
	last     int64
	primed   bool
}

// Open reports whether Interval has elapsed since it last opened.
func (g *IntervalGate) Open(_, nowMs int64) bool {
	if g.primed && nowMs-g.last < g.Interval {
		return false
	}
	g.last = nowMs
	g.primed = true
	return true
}

// NewGate returns an IntervalGate when intervalMs is positive, a FrameGate otherwise.
func NewGate(every int, intervalMs int64) Gate {
	if intervalMs > 0 {
		return &IntervalGate{Interval: intervalMs}
	}
	return FrameGate{Every: int64(every)}
}
