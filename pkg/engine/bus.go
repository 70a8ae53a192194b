package engine

import "soundstage/internal/util"

// BusParamVolume is the bus parameter every bus carries by default
const BusParamVolume = "volume"

// Bus is a named mixing group. Channels route through at most one bus;
// bus parameters scale or shape everything routed through them.
type Bus struct {
	name   string
	params map[string]float64
}

func newBus(name string, volume float64) *Bus {
	return &Bus{
		name:   name,
		params: map[string]float64{BusParamVolume: util.Clamp01(volume)},
	}
}

// Name returns the bus name
func (b *Bus) Name() string {
	return b.name
}

// parameter reads a bus parameter. Caller holds the engine lock.
func (b *Bus) parameter(name string) (float64, bool) {
	v, ok := b.params[name]
	return v, ok
}

// busKey identifies one fadeable bus parameter
type busKey struct {
	bus   string
	param string
}

// BusParameter reads a parameter of a named bus. The second return is false
// when the bus or the parameter does not exist.
func (e *Engine) BusParameter(bus, param string) (float64, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.buses[bus]
	if !ok {
		return 0, false
	}
	return b.parameter(param)
}

// SetBusParameter writes a bus parameter immediately, superseding any fade
// in flight on the same parameter.
func (e *Engine) SetBusParameter(bus, param string, value float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.buses[bus]
	if !ok {
		e.log.Warnf("unknown bus %q", bus)
		return
	}
	e.busTokens[busKey{bus, param}]++
	if param == BusParamVolume {
		value = util.Clamp01(value)
	}
	b.params[param] = value
}

// busGain returns the volume multiplier contributed by a channel's bus.
// Channels routed to no bus, or to an unknown bus, pass through at unity.
// Caller holds the engine lock.
func (e *Engine) busGain(bus string) float64 {
	if bus == "" {
		return 1
	}
	b, ok := e.buses[bus]
	if !ok {
		return 1
	}
	v, ok := b.parameter(BusParamVolume)
	if !ok {
		return 1
	}
	return v
}
