package detector

// Expression names reported by the face model.
const (
	Neutral   = "neutral"
	Happy     = "happy"
	Sad       = "sad"
	Angry     = "angry"
	Fearful   = "fearful"
	Disgusted = "disgusted"
)

// Expressions maps expression names to confidences for one face.
type Expressions map[string]float64

// Dominant returns the highest scoring expression. Ties go to the
// alphabetically first name so the result is stable.
func (e Expressions) Dominant() (string, float64) {
	var (
		best  string
		score float64
		found bool
	)
	for name, s := range e {
		if !found || s > score || (s == score && name < best) {
			best, score, found = name, s, true
		}
	}
	return best, score
}

// Clone returns an independent copy.
func (e Expressions) Clone() Expressions {
	if e == nil {
		return nil
	}
	out := make(Expressions, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
