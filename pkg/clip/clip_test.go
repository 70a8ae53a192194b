package clip

import (
	"bytes"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"soundstage/internal/logger"
)

func TestClipMath(t *testing.T) {
	c := Silence("s", 2.0, 44100, 2)
	if got := c.Frames(); got != 88200 {
		t.Errorf("Frames() = %d, want 88200", got)
	}
	if got := c.Duration(); math.Abs(got-2.0) > 1e-9 {
		t.Errorf("Duration() = %v, want 2.0", got)
	}

	for _, v := range c.Samples {
		if v != 0 {
			t.Fatal("silence clip contains a non-zero sample")
		}
	}

	empty := &Clip{}
	if empty.Frames() != 0 || empty.Duration() != 0 {
		t.Error("zero-value clip should report zero frames and duration")
	}
}

func TestSineBounded(t *testing.T) {
	c := Sine("tone", 440, 0.25, 44100, 1)
	if c.Frames() == 0 {
		t.Fatal("sine clip has no frames")
	}
	for _, v := range c.Samples {
		if v < -1 || v > 1 {
			t.Fatalf("sample out of range: %v", v)
		}
	}
	// Ramped edges start and end near zero
	if math.Abs(float64(c.Samples[0])) > 0.01 {
		t.Errorf("attack ramp missing, first sample = %v", c.Samples[0])
	}
}

func TestLoadUnknownFormat(t *testing.T) {
	_, err := Load("sound.flac")
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Load(.flac) error = %v, want ErrUnknownFormat", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.wav"))
	if err == nil {
		t.Error("expected an error for a missing file")
	}
}

// writeTestWav encodes a short mono 16-bit tone so the decoder path can be
// exercised without binary fixtures.
func writeTestWav(t *testing.T, path string, frames int) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, 1, 1)
	data := make([]int, frames)
	for i := range data {
		data[i] = int(16000 * math.Sin(2*math.Pi*440*float64(i)/44100))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
}

func TestWavRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeTestWav(t, path, 4410)

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if c.SampleRate != 44100 {
		t.Errorf("sample rate = %d, want 44100", c.SampleRate)
	}
	if c.Channels != 1 {
		t.Errorf("channels = %d, want 1", c.Channels)
	}
	if c.Frames() != 4410 {
		t.Errorf("frames = %d, want 4410", c.Frames())
	}
	if c.Name != "tone" {
		t.Errorf("name = %q, want tone", c.Name)
	}
	for _, v := range c.Samples {
		if v < -1 || v > 1 {
			t.Fatalf("decoded sample out of range: %v", v)
		}
	}
}

func TestStoreCachesFailures(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewLogger("warn")
	log.SetOutput(&buf)
	log.EnableColors(false)

	s := NewStore(t.TempDir(), log)

	if c := s.Get("ghost.wav"); c != nil {
		t.Error("missing clip should resolve to nil")
	}
	warns := strings.Count(buf.String(), "ghost.wav")

	if c := s.Get("ghost.wav"); c != nil {
		t.Error("cached failure should stay nil")
	}
	if again := strings.Count(buf.String(), "ghost.wav"); again != warns {
		t.Errorf("missing clip warned more than once: %d then %d", warns, again)
	}
}

func TestStorePutAndIdentity(t *testing.T) {
	s := NewStore("", nil)

	tone := Sine("tone", 220, 0.1, 44100, 1)
	s.Put("mem/tone.wav", tone)

	if got := s.Get("mem/tone.wav"); got != tone {
		t.Error("Get should return the registered clip instance")
	}
	if got := s.Get("mem/tone.wav"); got != tone {
		t.Error("second Get should hit the cache")
	}
	if s.Get("") != nil {
		t.Error("empty path should resolve to nil")
	}
}

func TestStoreRootJoin(t *testing.T) {
	dir := t.TempDir()
	writeTestWav(t, filepath.Join(dir, "click.wav"), 441)

	s := NewStore(dir, nil)
	c := s.Get("click.wav")
	if c == nil {
		t.Fatal("clip under the store root did not load")
	}
	if c.Frames() != 441 {
		t.Errorf("frames = %d, want 441", c.Frames())
	}
}
