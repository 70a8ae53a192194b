package engine

import (
	"soundstage/internal/util"
	"soundstage/pkg/clip"
	"soundstage/pkg/registry"
)

// PlayOptions carries per-call playback overrides. The zero value plays
// flat at the definition's own volume.
type PlayOptions struct {
	Position    Vec3
	Follow      Positioner // tracked every frame when non-nil
	VolumeScale float64    // multiplier on the definition volume, <=0 means 1
	Loop        *bool      // overrides the definition's loop flag when set
}

func (o PlayOptions) scale() float64 {
	if o.VolumeScale <= 0 {
		return 1
	}
	return o.VolumeScale
}

// PlayEffect resolves a sound name (plain or dotted variant path) and
// plays it on a free effect channel. Returns the channel, or nil when the
// name does not resolve to something playable.
func (e *Engine) PlayEffect(name string, opts PlayOptions) *Channel {
	entry := e.resolve(name)
	if entry == nil {
		return nil
	}
	return e.PlayEffectEntry(entry, opts)
}

// PlayEffectEntry plays an already resolved registry entry as an effect
func (e *Engine) PlayEffectEntry(entry registry.Entry, opts PlayOptions) *Channel {
	switch n := entry.(type) {
	case *registry.Sfx:
		if n.Clip == nil {
			e.log.Warnf("sound %q has no clip", n.Name)
			return nil
		}
		return e.playEffectClip(n.Clip, n.PlayParams, 1, 1, opts)
	case *registry.SfxVariantGroup:
		v := e.pickVariant(n)
		if v == nil {
			e.log.Debugf("variant group %q has no playable variants", n.Name)
			return nil
		}
		return e.playEffectClip(v.Clip, n.PlayParams, v.Volume, v.Pitch, opts)
	case *registry.SfxVariant:
		if n.Clip == nil {
			e.log.Warnf("sound variant %q has no clip", n.Name)
			return nil
		}
		params := registry.PlayParams{Volume: 1, PitchMin: 1, PitchMax: 1}
		if g := n.Group(); g != nil {
			params = g.PlayParams
		}
		return e.playEffectClip(n.Clip, params, n.Volume, n.Pitch, opts)
	default:
		e.log.Warnf("sound %q is a %s, not playable as an effect", entry.Info().Name, registry.KindOf(entry))
		return nil
	}
}

// pickVariant draws one variant weighted by probability. Variants without
// a clip or with probability <= 0 never win. Returns nil when nothing can
// play.
func (e *Engine) pickVariant(g *registry.SfxVariantGroup) *registry.SfxVariant {
	weights := make([]float64, len(g.Variants))
	for i, v := range g.Variants {
		if v.Clip != nil {
			weights[i] = v.Probability
		}
	}
	i := util.WeightedRandom(e.rng, weights)
	if i < 0 {
		return nil
	}
	return g.Variants[i]
}

// playEffectClip claims an effect channel and starts the clip on it.
// variantVolume and variantPitch multiply into the group parameters; pass
// 1 for plain effects.
func (e *Engine) playEffectClip(c *clip.Clip, p registry.PlayParams, variantVolume, variantPitch float64, opts PlayOptions) *Channel {
	pitch := util.RandRange(e.rng, p.PitchMin, p.PitchMax) * variantPitch
	volume := p.Volume * variantVolume * opts.scale()
	loop := p.Loop
	if opts.Loop != nil {
		loop = *opts.Loop
	}

	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.takeChannel(e.effects)
	if ch == nil {
		return nil
	}
	e.assignChannel(ch)
	ch.configure(c, volume, pitch, loop, p.Bus, p.Spatial, now)
	ch.position = opts.Position
	ch.follow = opts.Follow
	return ch
}

// StopEffect stops a channel, immediately or over a fade. Safe to call
// with nil or with a channel that already went idle.
func (e *Engine) StopEffect(ch *Channel, fadeSeconds float64) {
	if ch == nil {
		return
	}
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	if ch.state == StateIdle {
		return
	}
	e.startChannelFade(ch, 0, fadeSeconds, now, true)
}

// FadeChannelVolume fades a channel's volume to target. The channel keeps
// playing when the fade completes, even at volume zero.
func (e *Engine) FadeChannelVolume(ch *Channel, target, fadeSeconds float64) {
	if ch == nil {
		return
	}
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()
	if ch.state == StateIdle {
		return
	}
	e.startChannelFade(ch, target, fadeSeconds, now, false)
}
