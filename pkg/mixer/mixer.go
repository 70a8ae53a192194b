// Package mixer turns a small set of named variables into per-layer
// play/mute decisions and animates music layer volumes toward them
// through the playback engine.
package mixer

import (
	"math"
	"time"

	"soundstage/internal/logger"
	"soundstage/internal/util"
	"soundstage/pkg/engine"
)

// MusicEngine is the slice of the playback engine the mixer drives
type MusicEngine interface {
	PlayMusicLayer(index int, name string, opts engine.PlayOptions) *engine.Channel
	StopMusicLayer(index int, fadeSeconds float64)
	FadeMusicLayerVolume(index int, target, fadeSeconds float64)
	Now() time.Time
}

// decision is one layer's pending on/off verdict during a recompute
type decision struct {
	play     bool
	priority int
}

// layerState tracks what was last applied to a configured layer
type layerState struct {
	cfg     LayerConfig
	playing bool
	applied bool
}

// Mixer owns the mix variables and the configured layers. Create one with
// New, call Update once per frame, drive it through SetVariable.
type Mixer struct {
	eng   MusicEngine
	log   *logger.Logger
	setup Setup

	vars   []*Variable // declaration order, the tie-break depends on it
	byName map[string]*Variable
	layers []*layerState

	started        bool
	pendingStart   *time.Time
	pendingRestart *time.Time
}

// New builds a mixer from its setup. Variables keep their declaration
// order; duplicate names keep the first and log.
func New(setup Setup, eng MusicEngine, log *logger.Logger) *Mixer {
	m := &Mixer{
		eng:    eng,
		log:    log,
		setup:  setup,
		byName: make(map[string]*Variable),
	}
	for i := range setup.Variables {
		v := &setup.Variables[i]
		if _, exists := m.byName[v.Name]; exists {
			log.Warnf("duplicate mix variable %q, keeping the first", v.Name)
			continue
		}
		v.value = v.Initial
		m.vars = append(m.vars, v)
		m.byName[v.Name] = v
	}
	for _, lc := range setup.Layers {
		m.layers = append(m.layers, &layerState{cfg: lc})
	}
	return m
}

// SetVariable updates a variable's value and recomputes the whole mix.
// Unknown names log a warning and change nothing.
func (m *Mixer) SetVariable(name string, value float64) {
	v, ok := m.byName[name]
	if !ok {
		m.log.Warnf("unknown mix variable %q", name)
		return
	}
	v.value = value
	m.recompute(false)
}

// Variable reads a variable's current value
func (m *Mixer) Variable(name string) (float64, bool) {
	v, ok := m.byName[name]
	if !ok {
		return 0, false
	}
	return v.value, true
}

// Started reports whether the mixer currently drives its layers
func (m *Mixer) Started() bool {
	return m.started
}

// StartMusic starts every configured layer muted and fades the mix in
// according to the current variable values. With a configured start delay
// the actual start waits that long.
func (m *Mixer) StartMusic() {
	m.pendingRestart = nil
	if m.setup.StartDelay > 0 {
		due := m.eng.Now().Add(seconds(m.setup.StartDelay))
		m.pendingStart = &due
		return
	}
	m.pendingStart = nil
	m.startNow()
}

// StopMusic stops every configured layer, immediately or over a fade, and
// cancels any pending start
func (m *Mixer) StopMusic(fadeSeconds float64) {
	m.pendingStart = nil
	m.pendingRestart = nil
	m.started = false
	for _, ls := range m.layers {
		m.eng.StopMusicLayer(ls.cfg.Index, fadeSeconds)
		ls.playing = false
		ls.applied = false
	}
}

// RestartAfterInterruption hard-stops the music and restarts it after the
// configured restart delay, skipping the normal start delay
func (m *Mixer) RestartAfterInterruption() {
	m.StopMusic(0)
	due := m.eng.Now().Add(seconds(m.setup.RestartDelay))
	m.pendingRestart = &due
}

// Update fires pending delayed starts. Call once per frame.
func (m *Mixer) Update() {
	now := m.eng.Now()
	if m.pendingStart != nil && !now.Before(*m.pendingStart) {
		m.pendingStart = nil
		m.startNow()
	}
	if m.pendingRestart != nil && !now.Before(*m.pendingRestart) {
		m.pendingRestart = nil
		m.startNow()
	}
}

// startNow plays every configured layer muted, then force-applies the
// current decisions so the audible layers fade in
func (m *Mixer) startNow() {
	for _, ls := range m.layers {
		ch := m.eng.PlayMusicLayer(ls.cfg.Index, ls.cfg.Music, engine.PlayOptions{})
		if ch != nil {
			ch.SetVolume(0)
		}
		ls.playing = false
		ls.applied = false
	}
	m.started = true
	m.recompute(true)
}

// recompute resolves every variable to layer decisions and fades layers
// whose decision changed (all of them when forced). Does nothing while
// the music is stopped.
func (m *Mixer) recompute(force bool) {
	if !m.started {
		return
	}

	decisions := make(map[string]decision)
	for _, v := range m.vars {
		if len(v.Entries) == 0 {
			continue
		}
		idx := v.resolveIndex()
		from := idx
		if v.PlayAllAhead {
			from = 0
		}
		for i := from; i <= idx; i++ {
			for _, r := range v.Entries[i].Rules {
				d, claimed := decisions[r.Layer]
				// Non-strict comparison: among equal priorities the
				// later-declared variable wins.
				if !claimed || v.Priority >= d.priority {
					decisions[r.Layer] = decision{play: r.Play, priority: v.Priority}
				}
			}
		}
	}

	for _, ls := range m.layers {
		want := false
		if d, ok := decisions[ls.cfg.Name]; ok {
			want = d.play
		}
		if force || !ls.applied || ls.playing != want {
			target := 0.0
			if want {
				target = ls.cfg.Volume
			}
			m.eng.FadeMusicLayerVolume(ls.cfg.Index, target, m.setup.FadeTime)
			ls.playing = want
			ls.applied = true
		}
	}
}

// resolveIndex maps the variable's current value to an entry index.
// Integer variables round and clamp; float variables map their configured
// range onto the entry list and floor.
func (v *Variable) resolveIndex() int {
	n := len(v.Entries)
	if v.Integer {
		i := int(math.Round(v.value))
		if i < 0 {
			i = 0
		}
		if i >= n {
			i = n - 1
		}
		return i
	}
	t := util.Map(v.value, v.FloatMin, v.FloatMax, 0, float64(n))
	i := int(math.Floor(t))
	if i < 0 {
		i = 0
	}
	if i >= n {
		i = n - 1
	}
	return i
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
