// Package timeline compiles authored, possibly nested event timelines
// into flat time-sorted schedules and plays them against the playback
// engine on a drift-free clock, with beat ticking, loop wraparound and
// parameter automation.
package timeline

import (
	"fmt"

	"soundstage/pkg/engine"
	"soundstage/pkg/registry"
)

// Kind discriminates the closed set of timeline event types
type Kind int

// Event kinds
const (
	KindEffect Kind = iota
	KindMusic
	KindNarration
	KindAutomate
	KindMarker
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindEffect:
		return "effect"
	case KindMusic:
		return "music"
	case KindNarration:
		return "narration"
	case KindAutomate:
		return "automate"
	case KindMarker:
		return "marker"
	case KindNested:
		return "timeline"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Event is one authored timeline entry. Start and Duration are in beats
// when InBeats is set, otherwise in seconds; which other fields matter
// depends on Kind.
type Event struct {
	ID       string
	Kind     Kind
	Start    float64
	Duration float64
	InBeats  bool

	// Playback events
	Sound       string
	Ref         registry.Entry // in-memory reference, wins over Sound
	Layer       int            // music layer slot
	BeatAligned bool           // defer the play to the next beat boundary
	Offset      engine.Vec3    // emission offset from the emitter
	Follow      bool           // attach the emitter as follow target

	// Automation events
	Target string // qualified event id, or "bus:<name>"
	Param  string // "volume" or "pitch" for channels, any name for buses
	Curve  string
	Min    float64
	Max    float64

	// Marker events
	Marker string

	// Nested timelines
	Child            *Asset
	ChildPath        string  // resolved to Child at load time
	TimeScale        float64 // compounds with ancestors, 1 when unset
	ApplyStartOffset bool    // add the child's own start offset
	Prefix           string  // id prefix override, default parent id + "/"
}

// Tempo is a timeline's beat timing configuration
type Tempo struct {
	BPM          float64 // explicit tempo, 0 means unset
	AutoDetect   bool    // infer tempo from the first resolvable music clip
	BeatsPerBar  int     // default 4
	FallbackBars int     // assumed bar count for auto-detection, default 4
}

// Asset is one authored timeline: tempo and playback settings plus an
// ordered event list
type Asset struct {
	ID          string
	Tempo       Tempo
	Loop        bool
	LoopBeats   float64 // explicit loop length, 0 derives it from content
	StartOffset float64 // beats, applied when nested with applyStartOffset
	Events      []*Event
}
