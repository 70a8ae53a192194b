package clip

import (
	"math"

	"soundstage/internal/noise"
)

// Synth procedurally renders placeholder and test clips: mono,
// normalized, deterministic for a given seed. The demo catalog is built
// from these so the engine runs without audio files on disk.
type Synth struct {
	rate int
	n    *noise.Generator
}

func NewSynth(sampleRate int, seed int64) *Synth {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &Synth{rate: sampleRate, n: noise.New(seed)}
}

// Drone renders a dark layered pad: a sine stack breathing against a slow
// oscillator, with a perlin wobble on top. The length is trimmed to a
// whole number of base periods to soften the loop seam.
func (s *Synth) Drone(name string, freq, seconds float64) *Clip {
	periods := math.Max(1, math.Floor(seconds*freq))
	frames := int(periods / freq * float64(s.rate))
	samples := make([]float32, frames)

	for i := range samples {
		t := float64(i) / float64(s.rate)
		lfo := 0.5 + 0.5*math.Sin(2*math.Pi*0.25*t)

		v := 0.5 * math.Sin(2*math.Pi*freq*t)
		v += 0.25 * lfo * math.Sin(2*math.Pi*freq*1.5*t)
		v += 0.15 * (1 - lfo) * math.Sin(2*math.Pi*freq*2*t)
		v += 0.1 * s.n.Perlin(t*3, 11)

		samples[i] = float32(v)
	}
	normalize(samples)
	return FromSamples(name, samples, s.rate, 1)
}

// Pulse renders a kick pattern, one hit per beat at the given tempo. The
// pitch sweeps down through each hit's decay.
func (s *Synth) Pulse(name string, freq, bpm, seconds float64) *Clip {
	if bpm <= 0 {
		bpm = 120
	}
	spb := 60 / bpm
	frames := int(seconds * float64(s.rate))
	samples := make([]float32, frames)

	for i := range samples {
		t := float64(i) / float64(s.rate)
		bt := math.Mod(t, spb)
		env := math.Exp(-bt * 18)

		sweep := freq * (1 + 2*env)
		v := math.Sin(2*math.Pi*sweep*bt) * env
		v += (s.n.Float()*2 - 1) * 0.08 * env

		samples[i] = float32(v)
	}
	normalize(samples)
	return FromSamples(name, samples, s.rate, 1)
}

// Impact renders a short hit: a pitched thump with a noise tail under an
// exponential decay. Footsteps, clicks and body falls all start here.
func (s *Synth) Impact(name string, freq, seconds float64) *Clip {
	const attack = 0.008
	frames := int(seconds * float64(s.rate))
	samples := make([]float32, frames)

	for i := range samples {
		t := float64(i) / float64(s.rate)
		var env float64
		if t < attack {
			env = t / attack
		} else {
			env = math.Exp(-(t - attack) * 14)
		}

		v := math.Sin(2*math.Pi*freq*t) * env
		v += (s.n.Float()*2 - 1) * 0.35 * env * env

		samples[i] = float32(v)
	}
	normalize(samples)
	return FromSamples(name, samples, s.rate, 1)
}

// Chime renders a struck tone with slightly inharmonic partials, the
// kind of sting used for pickups and notifications
func (s *Synth) Chime(name string, freq, seconds float64) *Clip {
	frames := int(seconds * float64(s.rate))
	samples := make([]float32, frames)

	for i := range samples {
		t := float64(i) / float64(s.rate)
		env := math.Exp(-t * 3)

		v := 0.5 * math.Sin(2*math.Pi*freq*t)
		v += 0.3 * math.Sin(2*math.Pi*freq*math.Sqrt2*t) * env
		v += 0.2 * math.Sin(2*math.Pi*freq*1.732*t) * env * env

		samples[i] = float32(v * env)
	}
	normalize(samples)
	return FromSamples(name, samples, s.rate, 1)
}

// Wind renders a filtered noise bed. Fractal noise shapes the gust
// contour; a one-pole lowpass takes the hiss off the texture.
func (s *Synth) Wind(name string, seconds, intensity float64) *Clip {
	frames := int(seconds * float64(s.rate))
	samples := make([]float32, frames)

	prev := 0.0
	for i := range samples {
		t := float64(i) / float64(s.rate)
		gust := 0.5 + 0.5*s.n.FBM(t*0.7, 3, 2, 0.5, 77)

		v := (s.n.Float()*2 - 1) * gust * intensity
		prev += 0.04 * (v - prev)

		samples[i] = float32(prev)
	}
	normalize(samples)
	return FromSamples(name, samples, s.rate, 1)
}

// Vox renders breathy syllable bursts, a stand-in for narration lines.
// Each syllable gets its own formant drift so repeats do not sound
// copy-pasted.
func (s *Synth) Vox(name string, seconds float64, syllables int) *Clip {
	if syllables <= 0 {
		syllables = 2
	}
	frames := int(seconds * float64(s.rate))
	samples := make([]float32, frames)
	sylLen := seconds / float64(syllables)

	for i := range samples {
		t := float64(i) / float64(s.rate)
		k := int(t / sylLen)
		if k >= syllables {
			k = syllables - 1
		}
		st := t - float64(k)*sylLen
		env := 0.5 - 0.5*math.Cos(2*math.Pi*st/sylLen)

		formant := 400 + 250*s.n.Perlin(t*3, 50+int64(k))
		v := (s.n.Float()*2 - 1) * env
		v *= 0.6 + 0.4*math.Sin(2*math.Pi*formant*t)

		samples[i] = float32(v)
	}
	normalize(samples)
	return FromSamples(name, samples, s.rate, 1)
}

// Static renders digital interference: noise and tone bursts scattered
// over silence, edges ramped against clicks
func (s *Synth) Static(name string, seconds, density float64) *Clip {
	frames := int(seconds * float64(s.rate))
	samples := make([]float32, frames)

	bursts := 3 + int(density*8)
	for b := 0; b < bursts; b++ {
		start := int(s.n.Float() * 0.8 * float64(frames))
		length := int((0.01 + s.n.Float()*0.06) * float64(s.rate))
		end := start + length
		if end > frames {
			end = frames
		}

		if s.n.Float() < 0.5 {
			for i := start; i < end; i++ {
				samples[i] = float32((s.n.Float()*2 - 1) * 0.8)
			}
		} else {
			f := s.n.Range(600, 2200)
			for i := start; i < end; i++ {
				t := float64(i-start) / float64(s.rate)
				samples[i] = float32(0.6 * math.Sin(2*math.Pi*f*t))
			}
		}

		edge := s.rate / 200 // 5ms
		for i := 0; i < edge; i++ {
			if start+i < frames {
				samples[start+i] *= float32(i) / float32(edge)
			}
			if end-1-i >= 0 && end-1-i < frames {
				samples[end-1-i] *= float32(i) / float32(edge)
			}
		}
	}
	normalize(samples)
	return FromSamples(name, samples, s.rate, 1)
}

// normalize rescales peaks to 0.9, leaving headroom for bus and master
// gain downstream
func normalize(samples []float32) {
	peak := float32(0)
	for _, v := range samples {
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return
	}
	gain := 0.9 / peak
	for i := range samples {
		samples[i] *= gain
	}
}
