package util

import (
	"math"
	"math/rand"
	"os"
)

// Lerp performs linear interpolation between a and b with t in [0,1]
func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// Clamp restricts a value to be between min and max
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// Clamp01 restricts a value to the [0,1] interval
func Clamp01(value float64) float64 {
	return Clamp(value, 0, 1)
}

// Map remaps a value from one range to another
func Map(value, inMin, inMax, outMin, outMax float64) float64 {
	// Normalized position in the input range, clamped for out-of-range values
	t := (value - inMin) / (inMax - inMin)
	t = Clamp(t, 0, 1)
	return outMin + t*(outMax-outMin)
}

// SmoothStep performs cubic interpolation between a and b
func SmoothStep(a, b, t float64) float64 {
	t = Clamp(t, 0, 1)
	// Cubic interpolation formula: 3t² - 2t³
	t = t * t * (3 - 2*t)
	return a + t*(b-a)
}

// CubicBezier calculates a point on a cubic Bezier curve at time t
func CubicBezier(p0, p1, p2, p3, t float64) float64 {
	t = Clamp(t, 0, 1)

	// Bernstein basis polynomials
	b0 := (1 - t) * (1 - t) * (1 - t)
	b1 := 3 * t * (1 - t) * (1 - t)
	b2 := 3 * t * t * (1 - t)
	b3 := t * t * t

	return p0*b0 + p1*b1 + p2*b2 + p3*b3
}

// Distance3D calculates the Euclidean distance between two 3D points
func Distance3D(x1, y1, z1, x2, y2, z2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	dz := z2 - z1
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}

// RandRange returns a random float64 between min and max using the given source
func RandRange(r *rand.Rand, min, max float64) float64 {
	if max <= min {
		return min
	}
	return min + r.Float64()*(max-min)
}

// WeightedRandom returns a random index based on the weights.
// Non-positive weights never win. Returns -1 when the total weight is zero.
func WeightedRandom(r *rand.Rand, weights []float64) int {
	if len(weights) == 0 {
		return -1
	}

	total := 0.0
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}

	value := r.Float64() * total
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		value -= w
		if value <= 0 {
			return i
		}
	}

	// Failsafe for accumulated rounding
	for i := len(weights) - 1; i >= 0; i-- {
		if weights[i] > 0 {
			return i
		}
	}
	return -1
}

// FileExists checks if a file exists and is not a directory
func FileExists(filename string) bool {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return false
	}
	return !info.IsDir()
}
