// Package clip holds decoded audio data and the loaders that produce it.
// A Clip is immutable once loaded; playback code reads samples but never
// writes them.
package clip

import (
	"math"
)

// Clip is a fully decoded audio asset: interleaved float32 samples in [-1,1]
type Clip struct {
	Name       string
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames in the clip
func (c *Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}
	return len(c.Samples) / c.Channels
}

// Duration returns the clip length in seconds
func (c *Clip) Duration() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return float64(c.Frames()) / float64(c.SampleRate)
}

// FromSamples wraps raw interleaved samples in a Clip
func FromSamples(name string, samples []float32, sampleRate, channels int) *Clip {
	return &Clip{
		Name:       name,
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Silence creates a clip of the given length containing only zero samples
func Silence(name string, seconds float64, sampleRate, channels int) *Clip {
	frames := int(seconds * float64(sampleRate))
	if frames < 0 {
		frames = 0
	}
	return &Clip{
		Name:       name,
		Samples:    make([]float32, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// Sine creates a test tone at the given frequency with a short attack and
// release ramp to avoid clicks
func Sine(name string, freq, seconds float64, sampleRate, channels int) *Clip {
	frames := int(seconds * float64(sampleRate))
	if frames < 0 {
		frames = 0
	}
	samples := make([]float32, frames*channels)

	ramp := sampleRate / 100 // 10ms
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(sampleRate)
		v := float32(math.Sin(2 * math.Pi * freq * t))

		// Envelope the edges
		if i < ramp {
			v *= float32(i) / float32(ramp)
		}
		if rem := frames - i; rem < ramp {
			v *= float32(rem) / float32(ramp)
		}

		for ch := 0; ch < channels; ch++ {
			samples[i*channels+ch] = v
		}
	}

	return &Clip{
		Name:       name,
		Samples:    samples,
		SampleRate: sampleRate,
		Channels:   channels,
	}
}
