// Package emotion selects the active emotion of the canvas on every render tick and derives
// the brush parameters the browser renderer paints with.
//
// Emotions come from two places: the dominant facial expression reported by the perception
// service (observed emotions), and a random process that simulates spontaneous mood shifts
// (synthetic emotions). Observed emotions take priority within a tick; synthetic emotions are
// gated by their own cooldowns.
package emotion

// TriggerMode describes how a profile can become active.
type TriggerMode string

const (
	// ModeObserved profiles are adopted when their expression dominates the observed scores.
	ModeObserved TriggerMode = "observed"
	// ModeSynthetic profiles are adopted by a random draw, subject to a cooldown.
	ModeSynthetic TriggerMode = "synthetic"
)

// DefaultObservedInterval is the minimum time in milliseconds between an accepted trigger and
// the next observed adoption.
const DefaultObservedInterval int64 = 5000

// Range is a closed interval for a uniformly drawn parameter.
// A range with Max == Min is fixed at Min and consumes no random draw. Profiles with
// Max < Min are rejected by New.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Fixed reports whether the range collapses to a single value.
func (r Range) Fixed() bool {
	return r.Max <= r.Min
}

// Mid returns the midpoint of the range.
func (r Range) Mid() float64 {
	if r.Fixed() {
		return r.Min
	}
	return (r.Min + r.Max) / 2
}

// Profile is the static configuration of one emotional state.
type Profile struct {
	Name string      `json:"name"`
	Mode TriggerMode `json:"mode"`

	// Expression is the key looked up in the observed scores. Defaults to Name.
	Expression string `json:"expression,omitempty"`

	// Color is the base fill color as a hex string.
	Color string `json:"color"`
	// ShadeJitter, when positive, shifts the HSL lightness of Color by up to this amount
	// on every adoption.
	ShadeJitter float64 `json:"shade_jitter,omitempty"`

	// Brush names the brush in the renderer's registry.
	Brush     string     `json:"brush"`
	BrushSpec *BrushSpec `json:"brush_spec,omitempty"`

	Width         Range   `json:"width"`
	Height        Range   `json:"height"`
	Opacity       Range   `json:"opacity"`
	Bleed         Range   `json:"bleed"`
	Texture       Range   `json:"texture"`
	TextureBorder float64 `json:"texture_border"`

	// Probability is the per-tick chance of a synthetic trigger.
	Probability float64 `json:"probability,omitempty"`
	// Cooldown is the minimum time in milliseconds between two synthetic adoptions.
	Cooldown int64 `json:"cooldown_ms,omitempty"`
	// BiasMax bounds a per-session weight added to Probability. The weight is sampled
	// once when the controller is created.
	BiasMax float64 `json:"bias_max,omitempty"`
}

// clone copies p without sharing its brush spec.
func (p Profile) clone() Profile {
	if p.BrushSpec != nil {
		spec := *p.BrushSpec
		p.BrushSpec = &spec
	}
	return p
}

func (p Profile) expression() string {
	if p.Expression != "" {
		return p.Expression
	}
	return p.Name
}

// Render holds the parameters handed to the brush renderer for the active emotion.
type Render struct {
	Brush         string  `json:"brush"`
	Color         string  `json:"color"`
	Opacity       float64 `json:"opacity"`
	Bleed         float64 `json:"bleed"`
	Texture       float64 `json:"texture"`
	TextureBorder float64 `json:"texture_border"`
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
}

// State is a snapshot of the controller. It is a value; callers may keep it freely.
type State struct {
	Profile Profile
	Render  Render

	// LastTriggerAt is the time of the latest trigger of any emotion.
	// It is meaningful only when Triggered is true.
	LastTriggerAt int64
	Triggered     bool
}

// Emotion returns the active emotion name.
func (s State) Emotion() string {
	return s.Profile.Name
}

// Input is what the render loop feeds the controller once per tick.
type Input struct {
	// Observed maps expression names to confidences. It may be empty.
	Observed map[string]float64
	// Now is a monotonic clock reading in milliseconds.
	Now int64
	// GateOpen is true on ticks where the inference cadence allows an observed decision.
	GateOpen bool
}

// Trigger describes an adoption that happened during Evaluate.
type Trigger struct {
	Emotion string      `json:"emotion"`
	Mode    TriggerMode `json:"mode"`
	At      int64       `json:"at_ms"`
}
