package timeline

import (
	"testing"
	"time"

	"soundstage/pkg/config"
	"soundstage/pkg/engine"
	"soundstage/pkg/registry"
)

type playCall struct {
	name     string
	layer    int
	pos      engine.Vec3
	followed bool
}

type busSet struct {
	bus, param string
	value      float64
}

// fakePlayback records the commands a timeline issues and owns the test
// clock. Channel creation is delegated to a real engine so automation
// tests can read channel state back.
type fakePlayback struct {
	eng *engine.Engine
	reg *registry.Registry
	t   time.Time

	effects []playCall
	musics  []playCall
	narrs   []playCall
	busSets []busSet
	lastCh  *engine.Channel
}

func newFakePlayback() *fakePlayback {
	cfg := config.AudioConfig{
		Backend:           "none",
		SampleRate:        44100,
		BufferSize:        256,
		MasterVolume:      1,
		EffectChannels:    4,
		NarrationChannels: 2,
		MusicLayers:       2,
		Seed:              1,
	}
	reg := registry.New(timelineSounds(), quietLog())
	return &fakePlayback{
		eng: engine.New(cfg, reg, quietLog()),
		reg: reg,
		t:   time.Unix(200, 0),
	}
}

func (f *fakePlayback) Now() time.Time { return f.t }

func (f *fakePlayback) advance(d time.Duration) { f.t = f.t.Add(d) }

func (f *fakePlayback) PlayEffect(name string, opts engine.PlayOptions) *engine.Channel {
	f.effects = append(f.effects, playCall{name: name, pos: opts.Position, followed: opts.Follow != nil})
	f.lastCh = f.eng.PlayEffect(name, opts)
	return f.lastCh
}

func (f *fakePlayback) PlayEffectEntry(entry registry.Entry, opts engine.PlayOptions) *engine.Channel {
	f.effects = append(f.effects, playCall{name: entry.Info().Name, pos: opts.Position, followed: opts.Follow != nil})
	f.lastCh = f.eng.PlayEffectEntry(entry, opts)
	return f.lastCh
}

func (f *fakePlayback) PlayMusicLayer(index int, name string, opts engine.PlayOptions) *engine.Channel {
	f.musics = append(f.musics, playCall{name: name, layer: index, pos: opts.Position})
	f.lastCh = f.eng.PlayMusicLayer(index, name, opts)
	return f.lastCh
}

func (f *fakePlayback) PlayMusicLayerEntry(index int, m *registry.Music, opts engine.PlayOptions) *engine.Channel {
	f.musics = append(f.musics, playCall{name: m.Name, layer: index, pos: opts.Position})
	f.lastCh = f.eng.PlayMusicLayerEntry(index, m, opts)
	return f.lastCh
}

func (f *fakePlayback) PlayNarration(name string, opts engine.PlayOptions) *engine.Channel {
	f.narrs = append(f.narrs, playCall{name: name, pos: opts.Position})
	f.lastCh = f.eng.PlayNarration(name, opts)
	return f.lastCh
}

func (f *fakePlayback) PlayNarrationEntry(entry registry.Entry, opts engine.PlayOptions) *engine.Channel {
	f.narrs = append(f.narrs, playCall{name: entry.Info().Name, pos: opts.Position})
	f.lastCh = f.eng.PlayNarrationEntry(entry, opts)
	return f.lastCh
}

func (f *fakePlayback) SetBusParameter(bus, param string, value float64) {
	f.busSets = append(f.busSets, busSet{bus: bus, param: param, value: value})
}

// source is a stationary emitter for anchoring tests
type source struct {
	pos engine.Vec3
}

func (s *source) Position() engine.Vec3 { return s.pos }

func newTestPlayer(t *testing.T, src string) (*Player, *fakePlayback) {
	t.Helper()
	f := newFakePlayback()
	p := NewPlayer(mustParse(t, src), f, f.reg, quietLog())
	return p, f
}

func startPlayer(t *testing.T, p *Player) {
	t.Helper()
	if err := p.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
}

func TestPlayerFiresEachEventOnce(t *testing.T) {
	p, f := newTestPlayer(t, `
events:
  - id: hit
    kind: effect
    sound: Click
    start: 0.5
`)
	startPlayer(t, p)

	f.advance(400 * time.Millisecond)
	p.Update()
	if len(f.effects) != 0 {
		t.Fatalf("fired %d effects before the start time", len(f.effects))
	}

	f.advance(200 * time.Millisecond)
	p.Update()
	if len(f.effects) != 1 {
		t.Fatalf("fired %d effects, want 1", len(f.effects))
	}

	p.Update()
	f.advance(100 * time.Millisecond)
	p.Update()
	if len(f.effects) != 1 {
		t.Errorf("event fired again on later updates, got %d", len(f.effects))
	}
}

func TestPlayerBeatCallback(t *testing.T) {
	p, f := newTestPlayer(t, `
tempo:
  bpm: 120
  beatsPerBar: 2
events:
  - id: far
    kind: marker
    start: 100
`)
	var beats []Beat
	p.OnBeat(func(b Beat) { beats = append(beats, b) })
	startPlayer(t, p)

	p.Update()
	if len(beats) != 1 || beats[0].Index != 0 {
		t.Fatalf("beats after start = %+v, want just beat 0", beats)
	}

	// A slow frame crosses three boundaries at once
	f.advance(1600 * time.Millisecond)
	p.Update()
	if len(beats) != 4 {
		t.Fatalf("got %d beats, want 4", len(beats))
	}
	for i, b := range beats {
		if b.Index != i {
			t.Errorf("beat %d has index %d, want ascending order", i, b.Index)
		}
	}
	if beats[2].Bar != 1 || beats[2].InBar != 0 {
		t.Errorf("beat 2 = %+v, want bar 1 position 0", beats[2])
	}
	if beats[3].Bar != 1 || beats[3].InBar != 1 {
		t.Errorf("beat 3 = %+v, want bar 1 position 1", beats[3])
	}
}

func TestPlayerMarkerCallback(t *testing.T) {
	p, f := newTestPlayer(t, `
tempo:
  bpm: 120
events:
  - id: drop
    kind: marker
    start: 2
    inBeats: true
    marker: the-drop
`)
	var marks []Marker
	p.OnMarker(func(m Marker) { marks = append(marks, m) })
	startPlayer(t, p)

	f.advance(1050 * time.Millisecond)
	p.Update()
	if len(marks) != 1 {
		t.Fatalf("got %d markers, want 1", len(marks))
	}
	if marks[0].Name != "the-drop" || marks[0].ID != "drop" {
		t.Errorf("marker = %+v, want the-drop/drop", marks[0])
	}
	// Beats tick before events on each update
	if marks[0].Beat != 2 {
		t.Errorf("marker saw beat %d, want 2", marks[0].Beat)
	}
}

func TestBeatAlignedMusicWaitsForBoundary(t *testing.T) {
	p, f := newTestPlayer(t, `
tempo:
  bpm: 120
events:
  - id: bed
    kind: music
    sound: Theme
    start: 0.3
    beatAligned: true
`)
	startPlayer(t, p)

	f.advance(350 * time.Millisecond)
	p.Update()
	if len(f.musics) != 0 {
		t.Fatal("beat-aligned music started off the beat")
	}

	f.advance(100 * time.Millisecond) // 0.45, still short of the boundary
	p.Update()
	if len(f.musics) != 0 {
		t.Fatal("beat-aligned music started before the next boundary")
	}

	f.advance(100 * time.Millisecond) // 0.55, past the 0.5 boundary
	p.Update()
	if len(f.musics) != 1 {
		t.Fatalf("got %d music plays, want 1", len(f.musics))
	}
	if f.musics[0].name != "Theme" || f.musics[0].layer != 0 {
		t.Errorf("played %q on layer %d, want Theme on 0", f.musics[0].name, f.musics[0].layer)
	}
}

func TestInstantAutomationAppliesEndValue(t *testing.T) {
	p, f := newTestPlayer(t, `
events:
  - id: duck
    kind: automate
    target: "bus:music"
    param: volume
    curve: easeOut
    max: 0.25
`)
	startPlayer(t, p)
	p.Update()

	if len(f.busSets) != 1 {
		t.Fatalf("got %d bus writes, want 1", len(f.busSets))
	}
	got := f.busSets[0]
	if got.bus != "music" || got.param != "volume" || got.value != 0.25 {
		t.Errorf("bus write = %+v, want music volume 0.25", got)
	}
}

func TestAutomationRampsAndCompletes(t *testing.T) {
	p, f := newTestPlayer(t, `
events:
  - id: swell
    kind: automate
    target: "bus:music"
    param: volume
    duration: 2
`)
	startPlayer(t, p)
	p.Update()

	f.advance(1 * time.Second)
	p.Update()
	mid := f.busSets[len(f.busSets)-1]
	if !near(mid.value, 0.5) {
		t.Errorf("midpoint value = %v, want 0.5", mid.value)
	}

	f.advance(1 * time.Second)
	p.Update()
	end := f.busSets[len(f.busSets)-1]
	if end.value != 1.0 {
		t.Errorf("end value = %v, want exactly 1", end.value)
	}

	// Completed automations stop writing
	n := len(f.busSets)
	f.advance(1 * time.Second)
	p.Update()
	if len(f.busSets) != n {
		t.Errorf("finished automation kept writing, %d new sets", len(f.busSets)-n)
	}
}

func TestAutomationDrivesChannelParams(t *testing.T) {
	p, f := newTestPlayer(t, `
events:
  - id: hit
    kind: effect
    sound: Click
  - id: vol
    kind: automate
    target: hit
    param: volume
    duration: 1
  - id: bend
    kind: automate
    target: hit
    param: pitch
    min: 1
    max: 2
    duration: 1
`)
	startPlayer(t, p)
	p.Update()

	ch := f.lastCh
	if ch == nil {
		t.Fatal("effect did not claim a channel")
	}
	if ch.Volume() != 0 {
		t.Fatalf("volume at t=0 is %v, want 0", ch.Volume())
	}

	f.advance(500 * time.Millisecond)
	p.Update()
	if !near(ch.Volume(), 0.5) {
		t.Errorf("volume at midpoint = %v, want 0.5", ch.Volume())
	}
	if !near(ch.Pitch(), 1.5) {
		t.Errorf("pitch at midpoint = %v, want 1.5", ch.Pitch())
	}

	f.advance(600 * time.Millisecond)
	p.Update()
	if ch.Volume() != 1 || ch.Pitch() != 2 {
		t.Errorf("final params = %v/%v, want 1/2", ch.Volume(), ch.Pitch())
	}
}

func TestLoopWrapRefiresAndDropsPending(t *testing.T) {
	p, f := newTestPlayer(t, `
tempo:
  bpm: 120
playback:
  loop: true
  loopBeats: 16
events:
  - id: hit
    kind: effect
    sound: Click
    start: 0.1
  - id: bed
    kind: music
    sound: Theme
    start: 7.9
    beatAligned: true
`)
	var beats []Beat
	p.OnBeat(func(b Beat) { beats = append(beats, b) })
	startPlayer(t, p)

	f.advance(7950 * time.Millisecond)
	p.Update()
	if len(f.effects) != 1 {
		t.Fatalf("got %d effects before the wrap, want 1", len(f.effects))
	}

	// Crossing the loop end discards the pending beat-aligned play and
	// rewinds the cursor, so the effect fires again
	f.advance(200 * time.Millisecond)
	p.Update()
	if len(f.musics) != 0 {
		t.Errorf("pending music survived the wrap, got %d plays", len(f.musics))
	}
	if len(f.effects) != 2 {
		t.Errorf("got %d effects after the wrap, want 2", len(f.effects))
	}
	if last := beats[len(beats)-1]; last.Index != 0 {
		t.Errorf("beat counter after wrap = %d, want 0", last.Index)
	}

	// A stall spanning two whole loops still lands inside the period
	f.advance(16 * time.Second)
	p.Update()
	if len(f.effects) != 3 {
		t.Errorf("got %d effects after the long stall, want 3", len(f.effects))
	}
}

func TestPlayerRunsOutWithoutLoop(t *testing.T) {
	p, f := newTestPlayer(t, `
events:
  - id: hit
    kind: effect
    sound: Click
    start: 0.2
`)
	startPlayer(t, p)

	f.advance(300 * time.Millisecond)
	p.Update()
	if len(f.effects) != 1 {
		t.Fatalf("got %d effects, want 1", len(f.effects))
	}
	if p.Playing() {
		t.Error("player still playing after the last event")
	}

	f.advance(1 * time.Second)
	p.Update()
	if len(f.effects) != 1 {
		t.Error("stopped player kept firing")
	}
}

func TestEmitterAnchorsOffsets(t *testing.T) {
	p, f := newTestPlayer(t, `
events:
  - id: hit
    kind: effect
    sound: Click
    offset: [2, 0, 0]
    follow: true
`)
	p.SetEmitter(&source{pos: engine.Vec3{X: 10}})
	startPlayer(t, p)
	p.Update()

	if len(f.effects) != 1 {
		t.Fatalf("got %d effects, want 1", len(f.effects))
	}
	if f.effects[0].pos.X != 12 {
		t.Errorf("position X = %v, want 12", f.effects[0].pos.X)
	}
	if !f.effects[0].followed {
		t.Error("follow flag did not attach the emitter")
	}
}

func TestClockBeforeStartIdles(t *testing.T) {
	p, f := newTestPlayer(t, `
events:
  - id: hit
    kind: effect
    sound: Click
`)
	startPlayer(t, p)

	f.t = f.t.Add(-time.Second)
	p.Update()
	if len(f.effects) != 0 {
		t.Error("events fired with the clock before the start time")
	}
	if !p.Playing() {
		t.Error("player gave up while waiting for its start time")
	}

	f.advance(1100 * time.Millisecond)
	p.Update()
	if len(f.effects) != 1 {
		t.Errorf("got %d effects once time caught up, want 1", len(f.effects))
	}
}

func TestStopDiscardsRun(t *testing.T) {
	p, f := newTestPlayer(t, `
playback:
  loop: true
  loopBeats: 8
events:
  - id: hit
    kind: effect
    sound: Click
    start: 0.1
`)
	startPlayer(t, p)
	f.advance(200 * time.Millisecond)
	p.Update()
	if len(f.effects) != 1 {
		t.Fatalf("got %d effects, want 1", len(f.effects))
	}

	p.Stop()
	if p.Playing() {
		t.Error("Playing() true after Stop")
	}
	if p.Schedule() != nil {
		t.Error("schedule survived Stop")
	}

	f.advance(5 * time.Second)
	p.Update()
	if len(f.effects) != 1 {
		t.Error("stopped player kept firing")
	}
}

func TestPlayReportsCompileErrors(t *testing.T) {
	a := &Asset{
		ID:     "broken",
		Tempo:  Tempo{BeatsPerBar: 4, FallbackBars: 4},
		Events: []*Event{{ID: "hole", Kind: KindNested, TimeScale: 1}},
	}
	f := newFakePlayback()
	p := NewPlayer(a, f, f.reg, quietLog())

	if err := p.Play(); err == nil {
		t.Fatal("expected a compile error")
	}
	if p.Playing() {
		t.Error("player playing after a failed compile")
	}
}
