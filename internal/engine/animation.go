package engine

import (
	"math"
	"time"
)

// FadeDuration is the length of one fade in or fade out.
const FadeDuration = 150 * time.Millisecond

// easeInCirc maps linear progress t in [0, 1] onto the ease-in circular curve.
func easeInCirc(t float64) float64 {
	return 1 - math.Sqrt(1-t*t)
}

// animation interpolates the displayed word's opacity toward a target.
// The zero value is settled at 0.
type animation struct {
	from, to float64
	start    time.Time
}

func shown() animation { return animation{from: 1, to: 1} }

func (a animation) progress(now time.Time) float64 {
	if a.start.IsZero() {
		return 1
	}
	t := float64(now.Sub(a.start)) / float64(FadeDuration)
	return math.Max(0, math.Min(1, t))
}

// value returns the opacity at now.
func (a animation) value(now time.Time) float64 {
	t := a.progress(now)
	if t >= 1 {
		return a.to
	}
	return a.from + (a.to-a.from)*easeInCirc(t)
}

// done reports whether the animation has reached its target at now.
func (a animation) done(now time.Time) bool {
	return a.progress(now) >= 1
}

// goTo retargets the animation, starting from its value at now.
func (a *animation) goTo(target float64, now time.Time) {
	a.from = a.value(now)
	a.to = target
	a.start = now
}
