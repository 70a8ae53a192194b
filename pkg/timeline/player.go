package timeline

import (
	"fmt"
	"math"
	"strings"
	"time"

	"soundstage/internal/logger"
	"soundstage/internal/util"
	"soundstage/pkg/engine"
	"soundstage/pkg/registry"
)

// Playback is the slice of the playback engine a timeline drives.
// *engine.Engine satisfies it.
type Playback interface {
	PlayEffect(name string, opts engine.PlayOptions) *engine.Channel
	PlayEffectEntry(entry registry.Entry, opts engine.PlayOptions) *engine.Channel
	PlayMusicLayer(index int, name string, opts engine.PlayOptions) *engine.Channel
	PlayMusicLayerEntry(index int, m *registry.Music, opts engine.PlayOptions) *engine.Channel
	PlayNarration(name string, opts engine.PlayOptions) *engine.Channel
	PlayNarrationEntry(entry registry.Entry, opts engine.PlayOptions) *engine.Channel
	SetBusParameter(bus, param string, value float64)
	Now() time.Time
}

// Beat is delivered to the beat callback once per crossed beat boundary
type Beat struct {
	Index int // beats since timeline start
	Bar   int
	InBar int
}

// Marker is delivered to the marker callback when a marker event fires
type Marker struct {
	ID   string
	Name string
	Beat int
}

type automation struct {
	target   string
	param    string
	curve    string
	min, max float64
	start    float64 // elapsed seconds when scheduled
	duration float64
}

// pendingPlay is a beat-aligned music start waiting for the next boundary
type pendingPlay struct {
	event *Scheduled
	due   float64
}

// Player runs one compiled timeline against a playback engine. All
// methods belong on the update goroutine; nothing here is called from
// the audio render path.
type Player struct {
	asset *Asset
	eng   Playback
	reg   *registry.Registry
	log   *logger.Logger

	sched    *Schedule
	playing  bool
	start    time.Time
	cursor   int
	lastBeat int

	channels map[string]*engine.Channel
	autos    []*automation
	pending  []pendingPlay

	emitter  engine.Positioner
	onBeat   func(Beat)
	onMarker func(Marker)
}

func NewPlayer(a *Asset, eng Playback, reg *registry.Registry, log *logger.Logger) *Player {
	return &Player{asset: a, eng: eng, reg: reg, log: log}
}

// OnBeat registers the beat callback. Set it before Play.
func (p *Player) OnBeat(fn func(Beat)) { p.onBeat = fn }

// OnMarker registers the marker callback. Set it before Play.
func (p *Player) OnMarker(fn func(Marker)) { p.onMarker = fn }

// SetEmitter anchors positioned events to a moving source. Event offsets
// become relative to the emitter's position at fire time.
func (p *Player) SetEmitter(src engine.Positioner) { p.emitter = src }

func (p *Player) Playing() bool { return p.playing }

// Schedule returns the compiled schedule of the current run, nil when
// the player is stopped.
func (p *Player) Schedule() *Schedule { return p.sched }

// Play compiles the asset and starts the run at the engine clock's now.
// Tempo, nesting and loop length are all fixed at this point; editing
// the asset afterwards has no effect until the next Play.
func (p *Player) Play() error {
	sched, err := BuildSchedule(p.asset, p.reg, p.log)
	if err != nil {
		return fmt.Errorf("failed to compile timeline: %v", err)
	}
	p.sched = sched
	p.playing = true
	p.start = p.eng.Now()
	p.cursor = 0
	p.lastBeat = -1
	p.channels = make(map[string]*engine.Channel)
	p.autos = nil
	p.pending = nil
	p.log.Infof("Timeline %q: %d events, %.1f BPM, loop %.2fs",
		p.asset.ID, len(sched.Events), 60/sched.SecondsPerBeat, sched.LoopLength)
	return nil
}

// Stop discards the compiled schedule and all run state. Sounds the
// timeline already started keep playing; stop them through the engine.
func (p *Player) Stop() {
	p.playing = false
	p.sched = nil
	p.channels = nil
	p.autos = nil
	p.pending = nil
}

// Update advances the run to the engine clock's now. Call it once per
// frame from the same goroutine as Engine.Update.
func (p *Player) Update() {
	if !p.playing || p.sched == nil {
		return
	}
	elapsed := p.eng.Now().Sub(p.start).Seconds()
	if elapsed < 0 {
		return
	}

	if p.sched.Loop && p.sched.LoopLength > 0 && elapsed >= p.sched.LoopLength {
		// One pass handles any number of whole periods missed by a stall
		for elapsed >= p.sched.LoopLength {
			p.start = p.start.Add(time.Duration(p.sched.LoopLength * float64(time.Second)))
			elapsed -= p.sched.LoopLength
		}
		p.cursor = 0
		p.lastBeat = -1
		p.autos = nil
		p.pending = nil
	}

	p.tickBeats(elapsed)
	p.fireDue(elapsed)
	p.firePending(elapsed)
	p.tickAutomations(elapsed)

	if !p.sched.Loop && p.finished(elapsed) {
		p.log.Debugf("Timeline %q ran out", p.asset.ID)
		p.playing = false
	}
}

// tickBeats fires the callback for every boundary crossed since the last
// update, in ascending order, so slow frames drop no beats
func (p *Player) tickBeats(elapsed float64) {
	spb := p.sched.SecondsPerBeat
	if spb <= 0 {
		return
	}
	reached := int(math.Floor(elapsed / spb))
	for b := p.lastBeat + 1; b <= reached; b++ {
		p.lastBeat = b
		if p.onBeat != nil {
			p.onBeat(Beat{Index: b, Bar: b / p.sched.BeatsPerBar, InBar: b % p.sched.BeatsPerBar})
		}
	}
}

// fireDue fires every schedule entry whose start time has passed. The
// cursor only moves forward, so an entry fires exactly once per loop
// even when updates jitter around its start time.
func (p *Player) fireDue(elapsed float64) {
	for p.cursor < len(p.sched.Events) && p.sched.Events[p.cursor].Start <= elapsed {
		p.fire(&p.sched.Events[p.cursor], elapsed)
		p.cursor++
	}
}

func (p *Player) fire(s *Scheduled, elapsed float64) {
	ev := s.Event
	switch ev.Kind {
	case KindEffect:
		if ch := p.playEffect(ev); ch != nil {
			p.channels[s.ID] = ch
		}
	case KindMusic:
		if ev.BeatAligned {
			spb := p.sched.SecondsPerBeat
			due := (math.Floor(elapsed/spb) + 1) * spb
			p.pending = append(p.pending, pendingPlay{event: s, due: due})
			return
		}
		p.playMusic(s)
	case KindNarration:
		if ch := p.playNarration(ev); ch != nil {
			p.channels[s.ID] = ch
		}
	case KindAutomate:
		if s.Duration <= 0 {
			p.applyAutomation(ev.Target, ev.Param, util.Lerp(ev.Min, ev.Max, Evaluate(ev.Curve, 1)))
			return
		}
		p.autos = append(p.autos, &automation{
			target:   ev.Target,
			param:    ev.Param,
			curve:    ev.Curve,
			min:      ev.Min,
			max:      ev.Max,
			start:    s.Start,
			duration: s.Duration,
		})
	case KindMarker:
		if p.onMarker != nil {
			p.onMarker(Marker{ID: s.ID, Name: ev.Marker, Beat: p.lastBeat})
		}
	case KindNested:
		// Flattened away at compile time
	}
}

func (p *Player) playOpts(ev *Event) engine.PlayOptions {
	opts := engine.PlayOptions{Position: ev.Offset}
	if p.emitter != nil {
		opts.Position = p.emitter.Position().Add(ev.Offset)
		if ev.Follow {
			opts.Follow = p.emitter
		}
	}
	return opts
}

func (p *Player) playEffect(ev *Event) *engine.Channel {
	if ev.Ref != nil {
		return p.eng.PlayEffectEntry(ev.Ref, p.playOpts(ev))
	}
	return p.eng.PlayEffect(ev.Sound, p.playOpts(ev))
}

func (p *Player) playNarration(ev *Event) *engine.Channel {
	if ev.Ref != nil {
		return p.eng.PlayNarrationEntry(ev.Ref, p.playOpts(ev))
	}
	return p.eng.PlayNarration(ev.Sound, p.playOpts(ev))
}

func (p *Player) playMusic(s *Scheduled) {
	ev := s.Event
	var ch *engine.Channel
	if m, ok := ev.Ref.(*registry.Music); ok && m != nil {
		ch = p.eng.PlayMusicLayerEntry(ev.Layer, m, p.playOpts(ev))
	} else {
		ch = p.eng.PlayMusicLayer(ev.Layer, ev.Sound, p.playOpts(ev))
	}
	if ch != nil {
		p.channels[s.ID] = ch
	}
}

func (p *Player) firePending(elapsed float64) {
	keep := p.pending[:0]
	for _, pe := range p.pending {
		if elapsed >= pe.due {
			p.playMusic(pe.event)
		} else {
			keep = append(keep, pe)
		}
	}
	p.pending = keep
}

// tickAutomations applies every running automation at the current
// elapsed time. Iteration runs backwards so finished entries can be
// removed in place.
func (p *Player) tickAutomations(elapsed float64) {
	for i := len(p.autos) - 1; i >= 0; i-- {
		a := p.autos[i]
		t := util.Clamp01((elapsed - a.start) / a.duration)
		p.applyAutomation(a.target, a.param, util.Lerp(a.min, a.max, Evaluate(a.curve, t)))
		if t >= 1 {
			p.autos = append(p.autos[:i], p.autos[i+1:]...)
		}
	}
}

func (p *Player) applyAutomation(target, param string, value float64) {
	if bus, ok := strings.CutPrefix(target, "bus:"); ok {
		p.eng.SetBusParameter(bus, param, value)
		return
	}
	ch := p.channels[target]
	if ch == nil {
		p.log.Debugf("automation target %q has no live channel", target)
		return
	}
	switch param {
	case "volume":
		ch.SetVolume(value)
	case "pitch":
		ch.SetPitch(value)
	default:
		p.log.Warnf("unknown automation parameter %q on %q", param, target)
	}
}

func (p *Player) finished(elapsed float64) bool {
	return p.cursor >= len(p.sched.Events) &&
		len(p.autos) == 0 &&
		len(p.pending) == 0 &&
		elapsed >= p.sched.LoopLength
}
