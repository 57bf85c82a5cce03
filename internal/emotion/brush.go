package emotion

import "math"

// Pressure describes how stroke weight reacts to pointer speed in the renderer.
type Pressure struct {
	Type   string     `json:"type"`
	MinMax [2]float64 `json:"min_max"`
	Curve  [2]float64 `json:"curve"`
}

// BrushSpec is the brush definition registered with the browser renderer.
type BrushSpec struct {
	Type      string   `json:"type"`
	Weight    float64  `json:"weight"`
	Vibration float64  `json:"vibration"`
	Opacity   int      `json:"opacity"`
	Spacing   float64  `json:"spacing"`
	Blend     bool     `json:"blend"`
	Pressure  Pressure `json:"pressure"`
	Rotate    string   `json:"rotate"`
}

// standardPressure is shared by the hand-tuned brushes.
var standardPressure = Pressure{
	Type:   "standard",
	MinMax: [2]float64{1.35, 1},
	Curve:  [2]float64{0.35, 0.25},
}

// RandomBrush samples a brush with eight draws in field order.
func RandomBrush(src Source) BrushSpec {
	spec := BrushSpec{
		Type:      "custom",
		Weight:    src.Float64() * 10,
		Vibration: src.Float64() * 0.2,
		Opacity:   int(math.Floor(src.Float64() * 100)),
		Spacing:   src.Float64() * 5,
		Blend:     src.Float64() < 0.5,
		Rotate:    "natural",
	}
	spec.Pressure = Pressure{
		Type:   "standard",
		MinMax: [2]float64{src.Float64() * 2, 0.5},
	}
	spec.Pressure.Curve = [2]float64{src.Float64(), src.Float64()}
	return spec
}

// NewBrushSet resolves one spec per brush id. Profiles carrying a BrushSpec use it as is;
// the others get a random spec drawn from src, once per session. When several profiles
// share a brush id, the first one wins.
func NewBrushSet(profiles []Profile, src Source) map[string]BrushSpec {
	set := make(map[string]BrushSpec, len(profiles))
	for _, p := range profiles {
		if _, ok := set[p.Brush]; ok {
			continue
		}
		if p.BrushSpec != nil {
			set[p.Brush] = *p.BrushSpec
			continue
		}
		set[p.Brush] = RandomBrush(src)
	}
	return set
}
