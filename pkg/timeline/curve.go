package timeline

import (
	"math"

	"soundstage/internal/util"
)

// Automation curve names accepted in timeline assets
const (
	CurveLinear  = "linear"
	CurveSmooth  = "smooth"
	CurveEaseIn  = "easeIn"
	CurveEaseOut = "easeOut"
	CurvePulse   = "pulse"
)

func validCurve(name string) bool {
	switch name {
	case "", CurveLinear, CurveSmooth, CurveEaseIn, CurveEaseOut, CurvePulse:
		return true
	}
	return false
}

// Evaluate maps normalized progress t through a named curve. Every curve
// starts at 0 and, except for pulse, ends at 1. Unknown names fall back
// to linear so a stale asset degrades instead of breaking playback.
func Evaluate(curve string, t float64) float64 {
	t = util.Clamp01(t)
	switch curve {
	case CurveSmooth:
		return util.SmoothStep(0, 1, t)
	case CurveEaseIn:
		return util.CubicBezier(0, 0, 0, 1, t)
	case CurveEaseOut:
		return util.CubicBezier(0, 1, 1, 1, t)
	case CurvePulse:
		return math.Sin(math.Pi * t)
	}
	return t
}
