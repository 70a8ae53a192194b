package engine

import (
	"time"

	"soundstage/internal/util"
	"soundstage/pkg/registry"
)

// introSwap is a pending intro-to-loop continuation. When the deadline
// passes and the captured token is still current, the channel's clip is
// swapped for the looping main clip and the captured parameters are
// applied again.
type introSwap struct {
	ch     *Channel
	music  *registry.Music
	volume float64
	pitch  float64
	due    time.Time
	token  int64
}

// MusicLayerCount returns the number of fixed music layer slots
func (e *Engine) MusicLayerCount() int {
	return len(e.layers)
}

// MusicLayer returns the channel bound to a layer index, nil out of range
func (e *Engine) MusicLayer(index int) *Channel {
	if index < 0 || index >= len(e.layers) {
		return nil
	}
	return e.layers[index]
}

// PlayMusicLayer starts a music definition on the given layer slot,
// replacing whatever the slot played before. Definitions with an intro
// play it once, then swap to the looping main clip after the intro's real
// duration. Returns the layer channel, or nil when the name does not
// resolve to music.
func (e *Engine) PlayMusicLayer(index int, name string, opts PlayOptions) *Channel {
	entry := e.resolve(name)
	if entry == nil {
		return nil
	}
	m, ok := entry.(*registry.Music)
	if !ok {
		e.log.Warnf("sound %q is a %s, not music", entry.Info().Name, registry.KindOf(entry))
		return nil
	}
	return e.PlayMusicLayerEntry(index, m, opts)
}

// PlayMusicLayerEntry starts an already resolved music definition on a
// layer slot
func (e *Engine) PlayMusicLayerEntry(index int, m *registry.Music, opts PlayOptions) *Channel {
	if m == nil {
		return nil
	}
	if index < 0 || index >= len(e.layers) {
		e.log.Warnf("music layer %d out of range (have %d)", index, len(e.layers))
		return nil
	}
	if m.Clip == nil && m.Intro == nil {
		e.log.Warnf("music %q has no clip", m.Name)
		return nil
	}

	pitch := util.RandRange(e.rng, m.PitchMin, m.PitchMax)
	volume := m.Volume * opts.scale()

	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.layers[index]
	token := e.assignChannel(ch)

	switch {
	case m.Intro != nil && m.Clip != nil:
		// Intro first, non-looping; the swap continuation brings in the
		// looping main clip after the intro's real duration.
		ch.configure(m.Intro, volume, pitch, false, m.Bus, m.Spatial, now)
		due := now.Add(seconds(realDuration(m.Intro, pitch)))
		e.swaps = append(e.swaps, &introSwap{
			ch:     ch,
			music:  m,
			volume: volume,
			pitch:  pitch,
			due:    due,
			token:  token,
		})
	case m.Intro != nil:
		// Intro only, play it through once
		ch.configure(m.Intro, volume, pitch, false, m.Bus, m.Spatial, now)
	default:
		ch.configure(m.Clip, volume, pitch, m.Loop, m.Bus, m.Spatial, now)
	}
	ch.position = opts.Position
	ch.follow = opts.Follow
	return ch
}

// stepSwaps fires due intro-to-loop swaps and drops the orphaned ones.
// Caller holds the engine lock.
func (e *Engine) stepSwaps(now time.Time) {
	keep := e.swaps[:0]
	for _, s := range e.swaps {
		if s.ch.token != s.token {
			continue
		}
		if now.Before(s.due) {
			keep = append(keep, s)
			continue
		}
		s.ch.clip = s.music.Clip
		s.ch.pos = 0
		s.ch.volume = util.Clamp01(s.volume)
		s.ch.pitch = s.pitch
		s.ch.bus = s.music.Bus
		s.ch.loop = s.music.Loop
		s.ch.startedAt = now
	}
	e.swaps = keep
}

// StopMusicLayer stops a layer, immediately or over a fade
func (e *Engine) StopMusicLayer(index int, fadeSeconds float64) {
	if index < 0 || index >= len(e.layers) {
		e.log.Warnf("music layer %d out of range (have %d)", index, len(e.layers))
		return
	}
	e.StopEffect(e.layers[index], fadeSeconds)
}

// FadeMusicLayerVolume fades a layer's volume to target. The layer keeps
// playing at the target volume, so a muted layer can be brought back later.
func (e *Engine) FadeMusicLayerVolume(index int, target, fadeSeconds float64) {
	if index < 0 || index >= len(e.layers) {
		e.log.Warnf("music layer %d out of range (have %d)", index, len(e.layers))
		return
	}
	e.FadeChannelVolume(e.layers[index], target, fadeSeconds)
}
