package engine

import (
	"fmt"
	"time"

	"soundstage/internal/util"
	"soundstage/pkg/clip"
	"soundstage/pkg/registry"
)

// Vec3 is a position in world space
type Vec3 struct {
	X, Y, Z float64
}

// Add returns the component-wise sum of two vectors
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// DistanceTo returns the Euclidean distance to another point
func (v Vec3) DistanceTo(o Vec3) float64 {
	return util.Distance3D(v.X, v.Y, v.Z, o.X, o.Y, o.Z)
}

// Positioner supplies a world position, usually an emitter or the listener's
// follow target
type Positioner interface {
	Position() Vec3
}

// ChannelState is the lifecycle state of a playback channel
type ChannelState int

// Channel states
const (
	StateIdle ChannelState = iota
	StatePlaying
	StateFadingOut
)

func (s ChannelState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePlaying:
		return "playing"
	case StateFadingOut:
		return "fading out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Channel is one reusable playback slot. Channels are owned by the engine;
// callers hold them only as opaque handles for stop/fade/automation calls.
type Channel struct {
	eng  *Engine
	id   int
	name string // pool label for diagnostics

	state    ChannelState
	clip     *clip.Clip
	pos      float64 // render cursor in source frames
	volume   float64
	pitch    float64
	loop     bool
	bus      string
	spatial  registry.SpatialParams
	position Vec3
	follow   Positioner

	// Generation token: bumped by every superseding command, checked by
	// every in-flight continuation touching this channel.
	token int64

	assignedAt uint64    // assignment sequence, for least-recently-assigned reuse
	startedAt  time.Time // engine clock when the current clip started
	taskActive bool      // narration sequencing task attached
}

// configure assigns a clip and playback parameters. Caller holds the engine
// lock and has already bumped the token.
func (ch *Channel) configure(c *clip.Clip, volume, pitch float64, loop bool, bus string, spatial registry.SpatialParams, now time.Time) {
	ch.state = StatePlaying
	ch.clip = c
	ch.pos = 0
	ch.volume = util.Clamp01(volume)
	ch.pitch = pitch
	ch.loop = loop
	ch.bus = bus
	ch.spatial = spatial
	ch.startedAt = now
}

// reset returns the channel to idle. Caller holds the engine lock.
func (ch *Channel) reset() {
	ch.state = StateIdle
	ch.clip = nil
	ch.pos = 0
	ch.follow = nil
	ch.taskActive = false
}

// realDuration is the wall-clock length of a clip at the given pitch
func realDuration(c *clip.Clip, pitch float64) float64 {
	if c == nil {
		return 0
	}
	p := pitch
	if p < 0 {
		p = -p
	}
	if p == 0 {
		return c.Duration()
	}
	return c.Duration() / p
}

// State returns the channel's lifecycle state
func (ch *Channel) State() ChannelState {
	ch.eng.mu.Lock()
	defer ch.eng.mu.Unlock()
	return ch.state
}

// Volume returns the channel's current volume
func (ch *Channel) Volume() float64 {
	ch.eng.mu.Lock()
	defer ch.eng.mu.Unlock()
	return ch.volume
}

// SetVolume writes the channel volume directly, clamped to [0,1].
// Used by parameter automation; fades go through the engine instead.
func (ch *Channel) SetVolume(v float64) {
	ch.eng.mu.Lock()
	defer ch.eng.mu.Unlock()
	ch.volume = util.Clamp01(v)
}

// Pitch returns the channel's playback pitch
func (ch *Channel) Pitch() float64 {
	ch.eng.mu.Lock()
	defer ch.eng.mu.Unlock()
	return ch.pitch
}

// SetPitch writes the channel pitch directly
func (ch *Channel) SetPitch(p float64) {
	ch.eng.mu.Lock()
	defer ch.eng.mu.Unlock()
	ch.pitch = p
}

// Position returns the channel's world position
func (ch *Channel) Position() Vec3 {
	ch.eng.mu.Lock()
	defer ch.eng.mu.Unlock()
	return ch.position
}

// SetPosition moves the channel in world space
func (ch *Channel) SetPosition(p Vec3) {
	ch.eng.mu.Lock()
	defer ch.eng.mu.Unlock()
	ch.position = p
}

// Clip returns the clip currently assigned to the channel, nil when silent
func (ch *Channel) Clip() *clip.Clip {
	ch.eng.mu.Lock()
	defer ch.eng.mu.Unlock()
	return ch.clip
}

// Bus returns the name of the bus the channel routes through
func (ch *Channel) Bus() string {
	ch.eng.mu.Lock()
	defer ch.eng.mu.Unlock()
	return ch.bus
}
