package engine

import (
	"time"

	"soundstage/internal/util"
)

// fade is one linear parameter ramp in flight. Channel fades target a
// channel's volume and carry that channel's token; bus fades target a bus
// parameter and carry the token stored under its (bus, parameter) key.
type fade struct {
	ch    *Channel // nil for bus fades
	bus   string
	param string

	from, to float64
	start    time.Time
	duration float64
	token    int64
	stopDone bool // hard-stop the channel when the fade completes
}

// startChannelFade begins a volume fade on a channel. Bumps the token
// first, so any earlier fade, swap or task on the channel is orphaned.
// The start value is captured here, not at the first step. Caller holds
// the engine lock.
func (e *Engine) startChannelFade(ch *Channel, target, seconds float64, now time.Time, stopDone bool) {
	ch.token++
	target = util.Clamp01(target)
	if seconds <= 0 {
		ch.volume = target
		if stopDone {
			e.stopChannel(ch)
		}
		return
	}
	if stopDone {
		ch.state = StateFadingOut
	}
	e.fades = append(e.fades, &fade{
		ch:       ch,
		from:     ch.volume,
		to:       target,
		start:    now,
		duration: seconds,
		token:    ch.token,
		stopDone: stopDone,
	})
}

// FadeBusParameter fades a bus parameter linearly to target over the given
// duration. A second fade on the same (bus, parameter) supersedes the
// first; fades on other parameters of the same bus are unaffected.
func (e *Engine) FadeBusParameter(bus, param string, target, seconds float64) {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	b, ok := e.buses[bus]
	if !ok {
		e.log.Warnf("unknown bus %q", bus)
		return
	}
	if param == BusParamVolume {
		target = util.Clamp01(target)
	}
	key := busKey{bus, param}
	e.busTokens[key]++
	from, ok := b.parameter(param)
	if !ok {
		from = 0
	}
	if seconds <= 0 {
		b.params[param] = target
		return
	}
	e.fades = append(e.fades, &fade{
		bus:      bus,
		param:    param,
		from:     from,
		to:       target,
		start:    now,
		duration: seconds,
		token:    e.busTokens[key],
	})
}

// stepFades advances every live fade and drops the finished and the
// orphaned ones. Caller holds the engine lock.
func (e *Engine) stepFades(now time.Time) {
	keep := e.fades[:0]
	for _, f := range e.fades {
		if e.fadeStale(f) {
			continue
		}
		t := now.Sub(f.start).Seconds() / f.duration
		if t >= 1 {
			e.applyFade(f, 1)
			if f.stopDone {
				e.stopChannel(f.ch)
			}
			continue
		}
		if t < 0 {
			t = 0
		}
		e.applyFade(f, t)
		keep = append(keep, f)
	}
	e.fades = keep
}

// fadeStale reports whether the fade's target was claimed by a later
// command. Caller holds the engine lock.
func (e *Engine) fadeStale(f *fade) bool {
	if f.ch != nil {
		return f.ch.token != f.token
	}
	return e.busTokens[busKey{f.bus, f.param}] != f.token
}

// applyFade writes the interpolated value at progress t in [0,1].
// Caller holds the engine lock.
func (e *Engine) applyFade(f *fade, t float64) {
	v := util.Lerp(f.from, f.to, t)
	if f.ch != nil {
		f.ch.volume = v
		return
	}
	if b, ok := e.buses[f.bus]; ok {
		b.params[f.param] = v
	}
}
