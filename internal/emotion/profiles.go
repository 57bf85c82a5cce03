package emotion

// DefaultEmotion is the emotion active before the first trigger.
const DefaultEmotion = "happy"

// Shape defaults shared by the built-in table.
var (
	defaultOpacity = Range{Min: 80, Max: 140}
	defaultBleed   = Range{Min: 0.05, Max: 0.4}
	defaultTexture = Range{Min: 0.55, Max: 0.55}
	squareSide     = Range{Min: 100, Max: 100}
	looseSide      = Range{Min: 60, Max: 140}
)

const (
	defaultTextureBorder = 0.5
	syntheticProbability = 0.02
	syntheticCooldown    = 3000
	syntheticBiasMax     = 0.01
	syntheticShade       = 0.08
)

func observed(name, expression, color string, spec *BrushSpec) Profile {
	return Profile{
		Name:          name,
		Mode:          ModeObserved,
		Expression:    expression,
		Color:         color,
		Brush:         name,
		BrushSpec:     spec,
		Width:         squareSide,
		Height:        squareSide,
		Opacity:       defaultOpacity,
		Bleed:         defaultBleed,
		Texture:       defaultTexture,
		TextureBorder: defaultTextureBorder,
	}
}

func synthetic(name, color string, probability float64) Profile {
	return Profile{
		Name:          name,
		Mode:          ModeSynthetic,
		Color:         color,
		ShadeJitter:   syntheticShade,
		Brush:         name,
		Width:         looseSide,
		Height:        looseSide,
		Opacity:       defaultOpacity,
		Bleed:         defaultBleed,
		Texture:       defaultTexture,
		TextureBorder: defaultTextureBorder,
		Probability:   probability,
		Cooldown:      syntheticCooldown,
		BiasMax:       syntheticBiasMax,
	}
}

// DefaultProfiles returns the built-in table in priority order: the five recognized
// expressions first, then the synthetic emotions.
func DefaultProfiles() []Profile {
	return []Profile{
		observed("happy", "happy", "#ffde59", &BrushSpec{
			Type: "custom", Weight: 5, Vibration: 0.08, Opacity: 23, Spacing: 0.6,
			Blend: true, Pressure: standardPressure, Rotate: "natural",
		}),
		observed("sad", "sad", "#38b6ff", &BrushSpec{
			Type: "custom", Weight: 5, Vibration: 0.08, Opacity: 10, Spacing: 3,
			Blend: true, Pressure: standardPressure, Rotate: "natural",
		}),
		observed("angry", "angry", "#ff1717", &BrushSpec{
			Type: "custom", Weight: 10, Vibration: 0.5, Opacity: 28, Spacing: 1,
			Blend: true, Pressure: standardPressure, Rotate: "natural",
		}),
		observed("disgust", "disgusted", "#c9e165", nil),
		observed("fear", "fearful", "#9b6bd3", nil),

		synthetic("anxiety", "#f67122", 0.05),
		synthetic("envy", "#3f8f6b", syntheticProbability),
		synthetic("embarrassment", "#f85ebe", syntheticProbability),
		synthetic("boredom", "#5e69b9", syntheticProbability),
		synthetic("nostalgia", "#ae8175", syntheticProbability),
		synthetic("skepticism", "#7f832e", syntheticProbability),
		synthetic("jealousy", "#a5cd98", syntheticProbability),
		synthetic("schadenfreude", "#c4a35a", syntheticProbability),
		synthetic("shame", "#6c959f", syntheticProbability),
		synthetic("greed", "#29c784", syntheticProbability),
	}
}

// DefaultTable returns the built-in table with its default emotion.
func DefaultTable() Table {
	return Table{Default: DefaultEmotion, Profiles: DefaultProfiles()}
}
