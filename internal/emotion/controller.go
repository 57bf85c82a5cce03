package emotion

import (
	"fmt"
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// Controller owns the active emotion, the synthetic cooldowns and the session bias weights.
// It is not safe for concurrent use; the render loop calls Evaluate serially.
type Controller struct {
	profiles  []Profile
	byName    map[string]int
	observed  []int
	synthetic []int

	bias      map[string]float64
	cooldowns Cooldowns
	state     State

	src              Source
	observedInterval int64
}

// Option configures a Controller.
type Option func(*Controller)

// WithSource sets the random source used for synthetic draws, bias sampling and render
// parameters.
func WithSource(src Source) Option {
	return func(c *Controller) {
		if src != nil {
			c.src = src
		}
	}
}

// WithObservedInterval sets the minimum milliseconds between the last trigger and an
// observed adoption. Non-positive values are ignored.
func WithObservedInterval(ms int64) Option {
	return func(c *Controller) {
		if ms > 0 {
			c.observedInterval = ms
		}
	}
}

// New validates profiles and returns a controller with defaultEmotion active.
// Errors wrap ErrConfig.
func New(profiles []Profile, defaultEmotion string, opts ...Option) (*Controller, error) {
	if len(profiles) == 0 {
		return nil, ErrNoProfiles
	}

	c := &Controller{
		profiles:         make([]Profile, len(profiles)),
		byName:           make(map[string]int, len(profiles)),
		bias:             make(map[string]float64),
		cooldowns:        make(Cooldowns),
		observedInterval: DefaultObservedInterval,
	}
	copy(c.profiles, profiles)

	for i, p := range c.profiles {
		if err := validateProfile(p); err != nil {
			return nil, err
		}
		c.profiles[i] = p.clone()
		if _, dup := c.byName[p.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProfile, p.Name)
		}
		c.byName[p.Name] = i

		switch p.Mode {
		case ModeObserved:
			c.observed = append(c.observed, i)
		case ModeSynthetic:
			c.synthetic = append(c.synthetic, i)
		}
	}

	def, ok := c.byName[defaultEmotion]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDefault, defaultEmotion)
	}

	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		c.src = NewSource(uint64(time.Now().UnixNano()))
	}

	// Bias weights are drawn once, in table order, before any tick.
	for _, i := range c.synthetic {
		p := c.profiles[i]
		if p.BiasMax > 0 {
			c.bias[p.Name] = c.src.Float64() * p.BiasMax
		}
	}

	c.state = State{
		Profile: c.profiles[def],
		Render:  Base(c.profiles[def]),
	}
	return c, nil
}

func validateProfile(p Profile) error {
	if p.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidProfile)
	}
	if p.Mode != ModeObserved && p.Mode != ModeSynthetic {
		return fmt.Errorf("%w: %q has unknown mode %q", ErrInvalidProfile, p.Name, p.Mode)
	}
	if p.Brush == "" {
		return fmt.Errorf("%w: %q has no brush", ErrInvalidProfile, p.Name)
	}
	if _, err := colorful.Hex(p.Color); err != nil {
		return fmt.Errorf("%w: %q color %q: %v", ErrInvalidProfile, p.Name, p.Color, err)
	}
	if math.IsNaN(p.Probability) || p.Probability < 0 || p.Probability > 1 {
		return fmt.Errorf("%w: %q probability %v outside [0,1]", ErrInvalidProfile, p.Name, p.Probability)
	}
	if p.Cooldown < 0 || p.BiasMax < 0 || p.ShadeJitter < 0 {
		return fmt.Errorf("%w: %q has a negative cooldown, bias or jitter", ErrInvalidProfile, p.Name)
	}
	for _, v := range []float64{p.BiasMax, p.ShadeJitter, p.TextureBorder} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %q has a non-finite bias, jitter or texture border", ErrInvalidProfile, p.Name)
		}
	}
	for _, r := range []Range{p.Width, p.Height, p.Opacity, p.Bleed, p.Texture} {
		if r.Min < 0 || math.IsNaN(r.Min) || math.IsNaN(r.Max) {
			return fmt.Errorf("%w: %q has a negative or NaN range", ErrInvalidProfile, p.Name)
		}
		if r.Max < r.Min {
			return fmt.Errorf("%w: %q has an inverted range [%v,%v]", ErrInvalidProfile, p.Name, r.Min, r.Max)
		}
	}
	return nil
}

// Evaluate runs one tick of the selection process and returns the resulting state.
// The returned trigger is nil when the active emotion did not change.
func (c *Controller) Evaluate(in Input) (State, *Trigger) {
	if t := c.evaluateObserved(in); t != nil {
		return c.state, t
	}
	if t := c.evaluateSynthetic(in.Now); t != nil {
		return c.state, t
	}
	return c.state, nil
}

func (c *Controller) evaluateObserved(in Input) *Trigger {
	if len(in.Observed) == 0 || !in.GateOpen || len(c.observed) == 0 {
		return nil
	}
	if c.state.Triggered && in.Now-c.state.LastTriggerAt < c.observedInterval {
		return nil
	}

	best := c.observed[0]
	bestScore := ClampConfidence(in.Observed[c.profiles[best].expression()])
	for _, i := range c.observed[1:] {
		// Strict comparison keeps the earlier profile on ties.
		if score := ClampConfidence(in.Observed[c.profiles[i].expression()]); score > bestScore {
			best, bestScore = i, score
		}
	}

	c.adopt(best, in.Now)
	return &Trigger{Emotion: c.profiles[best].Name, Mode: ModeObserved, At: in.Now}
}

func (c *Controller) evaluateSynthetic(now int64) *Trigger {
	for _, i := range c.synthetic {
		p := c.profiles[i]
		draw := c.src.Float64()
		if draw < p.Probability+c.bias[p.Name] && c.cooldowns.Ready(p.Name, now, p.Cooldown) {
			c.cooldowns.Mark(p.Name, now)
			c.adopt(i, now)
			return &Trigger{Emotion: p.Name, Mode: ModeSynthetic, At: now}
		}
	}
	return nil
}

// adopt replaces the whole state in one assignment.
func (c *Controller) adopt(i int, now int64) {
	p := c.profiles[i]
	c.state = State{
		Profile:       p,
		Render:        Derive(p, c.src),
		LastTriggerAt: now,
		Triggered:     true,
	}
}

// State returns the current snapshot.
func (c *Controller) State() State {
	return c.state
}

// Cooldowns returns a copy of the synthetic cooldown table.
func (c *Controller) Cooldowns() Cooldowns {
	return c.cooldowns.Clone()
}

// Bias returns a copy of the per-session synthetic bias weights.
func (c *Controller) Bias() map[string]float64 {
	out := make(map[string]float64, len(c.bias))
	for k, v := range c.bias {
		out[k] = v
	}
	return out
}

// Profiles returns the profile table in priority order.
func (c *Controller) Profiles() []Profile {
	out := make([]Profile, len(c.profiles))
	for i, p := range c.profiles {
		out[i] = p.clone()
	}
	return out
}

// Profile looks up a profile by name.
func (c *Controller) Profile(name string) (Profile, bool) {
	i, ok := c.byName[name]
	if !ok {
		return Profile{}, false
	}
	return c.profiles[i].clone(), true
}

// ClampConfidence bounds a score to [0,1]. NaN becomes 0.
func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
