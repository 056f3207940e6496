package scoring

import (
	"math"

	"github.com/artem13815/cvflow/pkg/cv"
)

// Clamp bounds a component score to [0, 100]. NaN counts as 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// FinalScore is Σ clamp(component) × weight / 100, rounded to two decimals.
func FinalScore(b cv.Breakdown, w cv.Weights) float64 {
	sum := Clamp(b.Skills)*float64(w.Skills) +
		Clamp(b.Experience)*float64(w.Experience) +
		Clamp(b.Qualifications)*float64(w.Qualifications) +
		Clamp(b.Projects)*float64(w.Projects)
	return math.Round(sum) / 100
}
