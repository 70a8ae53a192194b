package engine

import (
	"math"

	"soundstage/internal/util"
)

// Render mixes every live channel into an interleaved stereo float32
// buffer. The output backend calls it from its own thread; everything the
// mix reads is guarded by the engine lock.
func (e *Engine) Render(out []float32) {
	for i := range out {
		out[i] = 0
	}
	frames := len(out) / 2
	if frames == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, pool := range [][]*Channel{e.effects, e.narration, e.layers} {
		for _, ch := range pool {
			e.renderChannel(ch, out, frames)
		}
	}

	// Hard limit, keeps a loud mix from wrapping around
	for i, v := range out {
		if v > 1 {
			out[i] = 1
		} else if v < -1 {
			out[i] = -1
		}
	}
}

// renderChannel advances one channel's cursor and accumulates its samples.
// Caller holds the engine lock.
func (e *Engine) renderChannel(ch *Channel, out []float32, frames int) {
	if ch.state == StateIdle || ch.clip == nil {
		return
	}
	total := float64(ch.clip.Frames())
	if total == 0 {
		return
	}

	gain := ch.volume * e.busGain(ch.bus) * e.master
	left, right := e.spatialGains(ch, gain)
	step := ch.pitch * float64(ch.clip.SampleRate) / float64(e.cfg.SampleRate)

	for f := 0; f < frames; f++ {
		pos := ch.pos
		if ch.loop {
			pos = math.Mod(pos, total)
			if pos < 0 {
				pos += total
			}
		} else if pos < 0 || pos >= total {
			// Clip played out, the update tick reclaims the channel
			return
		}
		idx := int(pos)

		var l, r float32
		if ch.clip.Channels >= 2 {
			l = ch.clip.Samples[idx*ch.clip.Channels]
			r = ch.clip.Samples[idx*ch.clip.Channels+1]
		} else {
			s := ch.clip.Samples[idx]
			l, r = s, s
		}
		out[2*f] += l * float32(left)
		out[2*f+1] += r * float32(right)
		ch.pos += step
	}

	if ch.loop {
		ch.pos = math.Mod(ch.pos, total)
		if ch.pos < 0 {
			ch.pos += total
		}
	}
}

// spatialGains splits a channel gain into left/right gains from distance
// attenuation and a linear pan, blended by the channel's spatial blend.
// Caller holds the engine lock.
func (e *Engine) spatialGains(ch *Channel, gain float64) (float64, float64) {
	sp := ch.spatial
	blend := util.Clamp01(sp.Blend)
	if blend <= 0 {
		return gain, gain
	}

	dist := e.listener.DistanceTo(ch.position)
	att := 1.0
	if sp.MaxDistance > sp.MinDistance {
		att = 1 - util.Clamp01((dist-sp.MinDistance)/(sp.MaxDistance-sp.MinDistance))
	}
	att = util.Lerp(1, att, blend)

	panRange := sp.MaxDistance
	if panRange <= 0 {
		panRange = 10
	}
	pan := util.Clamp((ch.position.X-e.listener.X)/panRange, -1, 1) * blend

	g := gain * att
	return g * util.Clamp01(1 - pan), g * util.Clamp01(1 + pan)
}
