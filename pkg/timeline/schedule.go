package timeline

import (
	"fmt"
	"sort"

	"soundstage/internal/logger"
	"soundstage/pkg/clip"
	"soundstage/pkg/registry"
)

// DefaultBPM applies when a timeline has no explicit tempo and
// auto-detection is off or finds nothing
const DefaultBPM = 120

// Nested timelines deeper than this indicate a self-referencing asset
const maxNesting = 16

// Scheduled is one compiled event: absolute time in seconds and a
// fully-qualified id unique across the whole flattened schedule.
type Scheduled struct {
	ID       string
	Start    float64
	Duration float64
	Event    *Event
}

// Schedule is a timeline compiled to a flat, time-sorted event list
type Schedule struct {
	Events         []Scheduled
	SecondsPerBeat float64
	BeatsPerBar    int
	Loop           bool
	LoopLength     float64 // seconds
}

// BuildSchedule flattens an asset's event tree into absolute seconds.
// The tempo is resolved once: explicit BPM, else auto-detected from the
// first music event whose clip resolves, else the default. Nested
// timelines contribute their events shifted by the nesting event's start,
// scaled by the compounded time scale, and id-prefixed so repeated
// inclusion of one sub-timeline cannot collide.
func BuildSchedule(a *Asset, reg *registry.Registry, log *logger.Logger) (*Schedule, error) {
	if a == nil {
		return nil, fmt.Errorf("no timeline asset")
	}
	bpm := resolveBPM(a, reg, log)
	s := &Schedule{
		SecondsPerBeat: 60 / bpm,
		BeatsPerBar:    a.Tempo.BeatsPerBar,
		Loop:           a.Loop,
	}
	if s.BeatsPerBar <= 0 {
		s.BeatsPerBar = 4
	}

	if err := flatten(a, 0, 1, "", s.SecondsPerBeat, &s.Events, 0); err != nil {
		return nil, err
	}
	sort.SliceStable(s.Events, func(i, j int) bool {
		return s.Events[i].Start < s.Events[j].Start
	})

	if a.LoopBeats > 0 {
		s.LoopLength = a.LoopBeats * s.SecondsPerBeat
	} else {
		for _, ev := range s.Events {
			if end := ev.Start + ev.Duration; end > s.LoopLength {
				s.LoopLength = end
			}
		}
	}
	return s, nil
}

func flatten(a *Asset, offset, scale float64, prefix string, spb float64, out *[]Scheduled, depth int) error {
	if depth > maxNesting {
		return fmt.Errorf("timeline %q nests deeper than %d levels", a.ID, maxNesting)
	}
	for _, ev := range a.Events {
		start, dur := ev.Start, ev.Duration
		if ev.InBeats {
			start *= spb
			dur *= spb
		}
		abs := offset + start*scale
		qualified := prefix + ev.ID

		if ev.Kind == KindNested {
			child := ev.Child
			if child == nil {
				return fmt.Errorf("nested event %q has no timeline", qualified)
			}
			childScale := scale * ev.TimeScale
			childOffset := abs
			if ev.ApplyStartOffset {
				childOffset += child.StartOffset * spb * childScale
			}
			childPrefix := qualified + "/"
			if ev.Prefix != "" {
				childPrefix = prefix + ev.Prefix
			}
			if err := flatten(child, childOffset, childScale, childPrefix, spb, out, depth+1); err != nil {
				return err
			}
			continue
		}

		*out = append(*out, Scheduled{
			ID:       qualified,
			Start:    abs,
			Duration: dur * scale,
			Event:    ev,
		})
	}
	return nil
}

// resolveBPM picks the tempo for one compilation pass
func resolveBPM(a *Asset, reg *registry.Registry, log *logger.Logger) float64 {
	if a.Tempo.BPM > 0 {
		return a.Tempo.BPM
	}
	if a.Tempo.AutoDetect {
		if c := findReferenceClip(a, reg, 0); c != nil && c.Duration() > 0 {
			beats := float64(a.Tempo.FallbackBars * a.Tempo.BeatsPerBar)
			if beats > 0 {
				bpm := 60 * beats / c.Duration()
				log.Debugf("auto-detected %.1f BPM from clip %q (%d beats over %.2fs)",
					bpm, c.Name, int(beats), c.Duration())
				return bpm
			}
		}
		log.Warnf("tempo auto-detection found no usable music clip, falling back to %d BPM", DefaultBPM)
	}
	return DefaultBPM
}

// findReferenceClip returns the first music event's resolvable clip in
// declaration order, descending into nested timelines. The main clip is
// preferred over the intro since it spans whole bars.
func findReferenceClip(a *Asset, reg *registry.Registry, depth int) *clip.Clip {
	if depth > maxNesting {
		return nil
	}
	for _, ev := range a.Events {
		switch ev.Kind {
		case KindMusic:
			var m *registry.Music
			if ref, ok := ev.Ref.(*registry.Music); ok {
				m = ref
			} else if reg != nil {
				m = reg.Music(ev.Sound)
			}
			if m != nil {
				if m.Clip != nil {
					return m.Clip
				}
				if m.Intro != nil {
					return m.Intro
				}
			}
		case KindNested:
			if ev.Child != nil {
				if c := findReferenceClip(ev.Child, reg, depth+1); c != nil {
					return c
				}
			}
		}
	}
	return nil
}
