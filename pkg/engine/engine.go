// Package engine is the playback core. It owns fixed pools of effect,
// narration and music-layer channels, mixes them into the output backend,
// and runs every time-based behaviour (fades, intro-to-loop swaps,
// narration sequencing) from a single per-frame Update tick.
//
// Playback commands follow a soft-fail contract: an unknown sound name, a
// missing clip or an exhausted pool logs a warning and returns nil instead
// of an error, so a broken sound reference never takes down the caller.
package engine

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"soundstage/internal/logger"
	"soundstage/internal/util"
	"soundstage/pkg/config"
	"soundstage/pkg/registry"
)

// Engine drives all sound playback. Public methods are safe to call from
// the update goroutine; the audio backend calls Render from its own thread.
type Engine struct {
	cfg config.AudioConfig
	reg *registry.Registry
	log *logger.Logger
	rng *rand.Rand
	now func() time.Time

	mu        sync.Mutex
	master    float64
	listener  Vec3
	effects   []*Channel
	narration []*Channel
	layers    []*Channel
	buses     map[string]*Bus
	busTokens map[busKey]int64
	fades     []*fade
	swaps     []*introSwap
	tasks     []*narrationTask
	assignSeq uint64
	rotation  int
	output    Output
}

// New builds an engine from the audio configuration. The registry may be
// nil; every play call then soft-fails. Call Start to open the output
// device and Update once per frame.
func New(cfg config.AudioConfig, reg *registry.Registry, log *logger.Logger) *Engine {
	if cfg.EffectChannels <= 0 {
		cfg.EffectChannels = 1
	}
	if cfg.NarrationChannels <= 0 {
		cfg.NarrationChannels = 1
	}
	if cfg.MusicLayers <= 0 {
		cfg.MusicLayers = 1
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 44100
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		cfg:       cfg,
		reg:       reg,
		log:       log,
		rng:       rand.New(rand.NewSource(seed)),
		now:       time.Now,
		master:    util.Clamp01(cfg.MasterVolume),
		buses:     make(map[string]*Bus),
		busTokens: make(map[busKey]int64),
	}
	e.effects = e.makePool("effect", cfg.EffectChannels)
	e.narration = e.makePool("narration", cfg.NarrationChannels)
	e.layers = e.makePool("music layer", cfg.MusicLayers)
	for _, bc := range cfg.Buses {
		if _, exists := e.buses[bc.Name]; exists {
			log.Warnf("duplicate bus %q in config, keeping the first", bc.Name)
			continue
		}
		e.buses[bc.Name] = newBus(bc.Name, bc.Volume)
	}
	return e
}

func (e *Engine) makePool(name string, size int) []*Channel {
	pool := make([]*Channel, size)
	for i := range pool {
		pool[i] = &Channel{eng: e, id: i, name: name, volume: 1, pitch: 1}
	}
	return pool
}

// Start opens the configured output backend and begins pulling rendered
// audio. With audio disabled it is a no-op, the engine then runs silently
// and every time-based behaviour still works.
func (e *Engine) Start() error {
	backend := e.cfg.Backend
	if !e.cfg.Enabled {
		backend = "none"
	}
	out, err := NewOutput(backend, e.cfg.SampleRate, e.cfg.BufferSize, e.log)
	if err != nil {
		return fmt.Errorf("failed to create audio output: %v", err)
	}
	if err := out.Start(e.Render); err != nil {
		return fmt.Errorf("failed to start audio output: %v", err)
	}
	e.output = out
	e.log.Infof("Audio output started (%s, %d Hz)", backend, e.cfg.SampleRate)
	return nil
}

// Shutdown stops the output backend and releases the device
func (e *Engine) Shutdown() {
	if e.output != nil {
		if err := e.output.Close(); err != nil {
			e.log.Warnf("failed to close audio output: %v", err)
		}
		e.output = nil
	}
	e.log.Info("Audio engine shut down")
}

// Now returns the engine clock. All deadlines for fades, pre-delays and
// intro swaps come from this clock.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Registry returns the sound registry the engine resolves names against
func (e *Engine) Registry() *registry.Registry {
	return e.reg
}

// SetListener moves the listener position used for spatial attenuation
func (e *Engine) SetListener(p Vec3) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = p
}

// MasterVolume returns the master gain applied after bus gains
func (e *Engine) MasterVolume() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.master
}

// SetMasterVolume sets the master gain, clamped to [0,1]
func (e *Engine) SetMasterVolume(v float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.master = util.Clamp01(v)
}

// Update advances every time-based behaviour to the current engine time:
// follow targets, narration sequencing, intro-to-loop swaps, fades, then
// end-of-clip detection. Call it once per frame from the update loop.
func (e *Engine) Update() {
	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.stepFollows()
	e.stepTasks(now)
	e.stepSwaps(now)
	e.stepFades(now)
	e.sweepFinished(now)
}

// stepFollows pulls channel positions from their follow targets.
// Caller holds the engine lock.
func (e *Engine) stepFollows() {
	for _, pool := range [][]*Channel{e.effects, e.narration, e.layers} {
		for _, ch := range pool {
			if ch.state != StateIdle && ch.follow != nil {
				ch.position = ch.follow.Position()
			}
		}
	}
}

// sweepFinished stops non-looping channels whose clip has played out.
// Narration channels are skipped, their sequencing task owns the
// lifecycle. Caller holds the engine lock.
func (e *Engine) sweepFinished(now time.Time) {
	for _, pool := range [][]*Channel{e.effects, e.layers} {
		for _, ch := range pool {
			if ch.state != StatePlaying || ch.loop || ch.clip == nil {
				continue
			}
			if now.Sub(ch.startedAt).Seconds() >= realDuration(ch.clip, ch.pitch) {
				e.stopChannel(ch)
			}
		}
	}
}

// takeChannel returns an idle channel from the pool, or reuses the least
// recently assigned one after hard-stopping it. Caller holds the engine
// lock.
func (e *Engine) takeChannel(pool []*Channel) *Channel {
	for _, ch := range pool {
		if ch.state == StateIdle && !ch.taskActive {
			return ch
		}
	}
	var oldest *Channel
	for _, ch := range pool {
		if oldest == nil || ch.assignedAt < oldest.assignedAt {
			oldest = ch
		}
	}
	if oldest == nil {
		return nil
	}
	e.log.Debugf("%s pool exhausted, reusing channel %d", oldest.name, oldest.id)
	e.stopChannel(oldest)
	return oldest
}

// assignChannel marks a channel as newly claimed. Bumps the token so every
// continuation belonging to the previous occupant dies at its next step.
// Caller holds the engine lock.
func (e *Engine) assignChannel(ch *Channel) int64 {
	ch.token++
	e.assignSeq++
	ch.assignedAt = e.assignSeq
	return ch.token
}

// stopChannel hard-stops a channel. Bumps the token so in-flight fades and
// tasks on it are orphaned. Caller holds the engine lock.
func (e *Engine) stopChannel(ch *Channel) {
	ch.token++
	ch.reset()
}

// resolve looks a name up in the registry, soft-failing with a warning
func (e *Engine) resolve(name string) registry.Entry {
	if e.reg == nil {
		e.log.Warn("no sound registry attached")
		return nil
	}
	entry := e.reg.Lookup(name)
	if entry == nil {
		e.log.Warnf("sound %q not found", name)
	}
	return entry
}
