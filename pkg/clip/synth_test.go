package clip

import (
	"math"
	"testing"
)

func TestSynthDeterministic(t *testing.T) {
	a := NewSynth(44100, 7).Drone("pad", 55, 2)
	b := NewSynth(44100, 7).Drone("pad", 55, 2)

	if a.Frames() != b.Frames() {
		t.Fatalf("frame counts differ: %d vs %d", a.Frames(), b.Frames())
	}
	for i := range a.Samples {
		if a.Samples[i] != b.Samples[i] {
			t.Fatalf("sample %d differs across identically seeded synths", i)
		}
	}

	c := NewSynth(44100, 8).Drone("pad", 55, 2)
	same := true
	for i := range a.Samples {
		if a.Samples[i] != c.Samples[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical drones")
	}
}

func TestSynthLeavesHeadroom(t *testing.T) {
	s := NewSynth(44100, 3)
	clips := []*Clip{
		s.Drone("pad", 55, 1),
		s.Pulse("kick", 60, 120, 1),
		s.Impact("hit", 140, 0.4),
		s.Chime("ding", 880, 1),
		s.Wind("wind", 1, 0.8),
		s.Vox("line", 1, 3),
		s.Static("glitch", 1, 0.7),
	}
	for _, c := range clips {
		if c.Frames() == 0 {
			t.Errorf("%s rendered no frames", c.Name)
			continue
		}
		peak := float32(0)
		for _, v := range c.Samples {
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
		if peak > 0.9001 {
			t.Errorf("%s peaks at %v, want at most 0.9", c.Name, peak)
		}
		if peak == 0 {
			t.Errorf("%s is all silence", c.Name)
		}
	}
}

func TestDroneLoopsOnWholePeriods(t *testing.T) {
	c := NewSynth(44100, 1).Drone("pad", 55, 2)
	cycles := c.Duration() * 55
	if math.Abs(cycles-math.Round(cycles)) > 0.01 {
		t.Errorf("drone spans %.3f base periods, want a whole number", cycles)
	}
}

func TestPulsePutsEnergyOnBeats(t *testing.T) {
	c := NewSynth(44100, 2).Pulse("kick", 60, 120, 1)

	window := 44100 / 50 // 20ms
	energy := func(from int) float64 {
		sum := 0.0
		for i := from; i < from+window && i < len(c.Samples); i++ {
			sum += float64(c.Samples[i]) * float64(c.Samples[i])
		}
		return sum
	}

	// 120 BPM puts hits at 0 and 0.5s
	onBeat := energy(0) + energy(22050)
	offBeat := energy(11025) + energy(33075)
	if onBeat <= offBeat*4 {
		t.Errorf("beat energy %v vs off-beat %v, want a clear pulse", onBeat, offBeat)
	}
}

func TestVoxSyllableCountShapesEnvelope(t *testing.T) {
	c := NewSynth(44100, 4).Vox("line", 1, 4)

	// Syllable boundaries at 0.25s intervals come back to near silence
	for _, at := range []int{0, 11025, 22050, 33075} {
		v := math.Abs(float64(c.Samples[at]))
		if v > 0.05 {
			t.Errorf("sample at boundary %d = %v, want near zero", at, v)
		}
	}
}
