// Package animation drives the short sweep that hides a desktop switch and
// runs the switch itself at a fixed point of the sweep.
package animation

import (
	"fmt"
	"math"
	"time"
)

// Direction selects the sweep orientation and gradient direction.
type Direction int

const (
	Left Direction = iota
	Right
)

func (d Direction) String() string {
	switch d {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// ParseDirection accepts "left" or "right".
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	default:
		return 0, fmt.Errorf("invalid direction %q (expected left or right)", s)
	}
}

// Frame is the overlay state at one point of the sweep.
type Frame struct {
	Direction Direction
	// Progress is in [0,1].
	Progress float64
	// Alpha is the overlay opacity, 0 transparent.
	Alpha uint8
	// Position is the overlay's left edge in screen widths: -1 is fully
	// off-screen to the left, +1 fully off-screen to the right.
	Position float64
}

// Progress maps elapsed time onto [0,1]. A non-positive duration is complete
// immediately.
func Progress(elapsed, duration time.Duration) float64 {
	if duration <= 0 {
		return 1
	}
	p := float64(elapsed) / float64(duration)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// EaseOutCubic is 1-(1-p)^3.
func EaseOutCubic(p float64) float64 {
	q := 1 - clamp01(p)
	return 1 - q*q*q
}

// Alpha ramps linearly from 0 to maxAlpha until trigger, then back to 0 at 1.
func Alpha(p, trigger float64, maxAlpha uint8) uint8 {
	p = clamp01(p)
	peak := float64(maxAlpha)
	var a float64
	switch {
	case trigger <= 0:
		a = peak * (1 - p)
	case trigger >= 1:
		a = peak * p
	case p < trigger:
		a = peak * (p / trigger)
	default:
		a = peak * (1 - (p-trigger)/(1-trigger))
	}
	return uint8(math.Round(math.Max(0, math.Min(peak, a))))
}

// Position returns the overlay offset in screen widths. Left sweeps from -1 to
// +1, Right from +1 to -1, both eased out.
func Position(dir Direction, p float64) float64 {
	e := EaseOutCubic(p)
	if dir == Right {
		return 1 - 2*e
	}
	return -1 + 2*e
}

// EnvelopeAt computes the frame for progress p under cfg.
func EnvelopeAt(dir Direction, p float64, cfg Config) Frame {
	p = clamp01(p)
	return Frame{
		Direction: dir,
		Progress:  p,
		Alpha:     Alpha(p, cfg.TriggerFraction, cfg.MaxAlpha),
		Position:  Position(dir, p),
	}
}

func clamp01(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
