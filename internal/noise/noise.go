// Package noise provides seeded one-dimensional gradient noise for
// procedural clip synthesis. Equal inputs always produce equal outputs,
// so synthesized clips are repeatable across runs.
package noise

import (
	"math"
	"math/rand"
)

// Generator produces repeatable noise streams from a fixed seed
type Generator struct {
	seed int64
	rng  *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{seed: seed, rng: rand.New(rand.NewSource(seed))}
}

// Float returns a random float in [0, 1)
func (g *Generator) Float() float64 {
	return g.rng.Float64()
}

// Range returns a random float in [min, max)
func (g *Generator) Range(min, max float64) float64 {
	return min + g.rng.Float64()*(max-min)
}

// Perlin returns gradient noise in roughly [-1, 1] for a position on a
// one-dimensional line. The lane seed selects an independent field within
// the generator's own seed, so two generators disagree everywhere.
func (g *Generator) Perlin(x float64, seed int64) float64 {
	x0 := math.Floor(x)
	x1 := x0 + 1

	sx := fade(x - x0)

	g0 := gradient(hash(int(x0), int(g.seed^seed)))
	g1 := gradient(hash(int(x1), int(g.seed^seed)))

	v0 := g0 * (x - x0)
	v1 := g1 * (x - x1)

	return lerp(v0, v1, sx) * 2
}

// FBM stacks several Perlin octaves for a rougher texture. Lacunarity
// scales each octave's frequency, gain its amplitude.
func (g *Generator) FBM(x float64, octaves int, lacunarity, gain float64, seed int64) float64 {
	sum := 0.0
	amp := 1.0
	freq := 1.0
	total := 0.0

	for i := 0; i < octaves; i++ {
		sum += g.Perlin(x*freq, seed+int64(i)) * amp
		total += amp
		amp *= gain
		freq *= lacunarity
	}
	if total == 0 {
		return 0
	}
	return sum / total
}

func hash(x, seed int) int {
	h := seed + x*374761393
	h = (h ^ (h >> 13)) * 1274126177
	return h ^ (h >> 16)
}

func gradient(h int) float64 {
	if h&1 == 0 {
		return 1
	}
	return -1
}

func lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// fade is the quintic Perlin smoothing curve
func fade(t float64) float64 {
	return t * t * t * (t*(t*6-15) + 10)
}
