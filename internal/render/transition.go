package render

import (
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

const DefaultTransitionDuration = 500 * time.Millisecond

// Transition blends linearly in RGB from From to To over Duration.
type Transition struct {
	From     colorful.Color
	To       colorful.Color
	Start    time.Time
	Duration time.Duration
}

// At returns the color at now and whether the transition has finished.
func (t Transition) At(now time.Time) (colorful.Color, bool) {
	if t.Duration <= 0 {
		return t.To, true
	}
	elapsed := now.Sub(t.Start)
	if elapsed <= 0 {
		return t.From, false
	}
	if elapsed >= t.Duration {
		return t.To, true
	}
	frac := float64(elapsed) / float64(t.Duration)
	return t.From.BlendRgb(t.To, frac).Clamped(), false
}
