package engine

import (
	"time"

	"soundstage/internal/util"
	"soundstage/pkg/clip"
	"soundstage/pkg/registry"
)

// taskPhase is the current step of a narration sequencing task
type taskPhase int

const (
	taskResolve taskPhase = iota // pick the next item's clip
	taskDelay                    // waiting out the item's pre-delay
	taskPlay                     // line is sounding until its deadline
)

// resolvedLine is one narration item resolved to a concrete clip
type resolvedLine struct {
	c        *clip.Clip
	volume   float64
	pitch    float64
	preDelay float64
}

// narrationTask walks a narration group item by item on its channel:
// resolve a clip, wait the pre-delay, play the line for its real duration,
// move on. The task checks the channel token at every step, so any later
// command on the channel ends it silently.
type narrationTask struct {
	ch    *Channel
	label string
	items []registry.NarrationItem
	idx   int
	token int64
	phase taskPhase
	due   time.Time
	scale float64
	line  *resolvedLine
	done  bool
}

// PlayNarration resolves a narration group (or a single dotted-path line)
// and sequences it on a free narration channel. Returns the channel, or
// nil when the name does not resolve to narration content.
func (e *Engine) PlayNarration(name string, opts PlayOptions) *Channel {
	entry := e.resolve(name)
	if entry == nil {
		return nil
	}
	return e.PlayNarrationEntry(entry, opts)
}

// PlayNarrationEntry sequences an already resolved narration entry.
// A NarrationGroup plays all its items in order; a single item plays as a
// one-line sequence.
func (e *Engine) PlayNarrationEntry(entry registry.Entry, opts PlayOptions) *Channel {
	var (
		items []registry.NarrationItem
		bus   string
		label string
	)
	switch n := entry.(type) {
	case *registry.NarrationGroup:
		items = n.Items
		bus = n.Bus
		label = n.Name
	case registry.NarrationItem:
		items = []registry.NarrationItem{n}
		label = n.Info().Name
	default:
		e.log.Warnf("sound %q is a %s, not narration", entry.Info().Name, registry.KindOf(entry))
		return nil
	}
	if len(items) == 0 {
		e.log.Debugf("narration %q has no items", label)
		return nil
	}

	now := e.now()
	e.mu.Lock()
	defer e.mu.Unlock()

	ch := e.takeChannel(e.narration)
	if ch == nil {
		return nil
	}
	token := e.assignChannel(ch)
	ch.state = StatePlaying
	ch.clip = nil
	ch.pos = 0
	ch.bus = bus
	ch.spatial = registry.SpatialParams{}
	ch.position = opts.Position
	ch.follow = opts.Follow
	ch.loop = false
	ch.pitch = 1
	ch.taskActive = true
	ch.startedAt = now

	t := &narrationTask{
		ch:    ch,
		label: label,
		items: items,
		token: token,
		phase: taskResolve,
		due:   now,
		scale: opts.scale(),
	}
	e.tasks = append(e.tasks, t)
	// First item's pre-delay starts counting now, not next frame
	e.stepTask(t, now)
	return ch
}

// StopNarration stops a narration channel, immediately or over a fade.
// The sequencing task dies with the channel's token.
func (e *Engine) StopNarration(ch *Channel, fadeSeconds float64) {
	e.StopEffect(ch, fadeSeconds)
}

// stepTasks advances every narration task and drops finished and orphaned
// ones. Caller holds the engine lock.
func (e *Engine) stepTasks(now time.Time) {
	keep := e.tasks[:0]
	for _, t := range e.tasks {
		if t.ch.token != t.token {
			continue
		}
		e.stepTask(t, now)
		if !t.done {
			keep = append(keep, t)
		}
	}
	e.tasks = keep
}

// stepTask runs a task forward until its next deadline lies in the future.
// Zero pre-delays and zero-length clips advance multiple steps in one
// call. Caller holds the engine lock.
func (e *Engine) stepTask(t *narrationTask, now time.Time) {
	for !t.done && t.ch.token == t.token && !now.Before(t.due) {
		switch t.phase {
		case taskResolve:
			if t.idx >= len(t.items) {
				e.finishTask(t)
				return
			}
			line := e.resolveLine(t.items[t.idx])
			if line == nil {
				t.idx++
				continue
			}
			t.line = line
			t.phase = taskDelay
			t.due = now.Add(seconds(line.preDelay))
		case taskDelay:
			ch := t.ch
			ch.clip = t.line.c
			ch.pos = 0
			ch.volume = util.Clamp01(t.line.volume * t.scale)
			ch.pitch = t.line.pitch
			ch.startedAt = now
			t.phase = taskPlay
			t.due = now.Add(seconds(realDuration(t.line.c, t.line.pitch)))
		case taskPlay:
			t.ch.clip = nil
			t.line = nil
			t.idx++
			t.phase = taskResolve
		}
	}
}

// finishTask releases the channel after the last item. Caller holds the
// engine lock.
func (e *Engine) finishTask(t *narrationTask) {
	t.done = true
	t.ch.taskActive = false
	t.ch.state = StateIdle
	t.ch.clip = nil
	e.log.Debugf("narration %q finished", t.label)
}

// resolveLine turns a narration item into a playable line. Variant groups
// pick uniformly among variants that have a clip, offset by a rotating
// counter so that consecutive picks walk different starting points.
// Returns nil when the item has nothing playable.
func (e *Engine) resolveLine(item registry.NarrationItem) *resolvedLine {
	switch n := item.(type) {
	case *registry.NarrationClip:
		if n.Clip == nil {
			e.log.Debugf("narration line %q has no clip, skipping", n.Name)
			return nil
		}
		pitch := n.Pitch
		if pitch == 0 {
			pitch = 1
		}
		return &resolvedLine{c: n.Clip, volume: n.Volume, pitch: pitch, preDelay: n.PreDelay}
	case *registry.NarrationVariantGroup:
		var candidates []*registry.NarrationVariant
		for _, v := range n.Variants {
			if v.Clip != nil {
				candidates = append(candidates, v)
			}
		}
		if len(candidates) == 0 {
			e.log.Debugf("narration group %q has no playable variants, skipping", n.Name)
			return nil
		}
		e.rotation++
		pick := candidates[(e.rng.Intn(len(candidates))+e.rotation)%len(candidates)]
		return &resolvedLine{c: pick.Clip, volume: n.Volume * pick.Volume, pitch: 1, preDelay: n.PreDelay}
	default:
		return nil
	}
}

// seconds converts a float second count to a time.Duration
func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
