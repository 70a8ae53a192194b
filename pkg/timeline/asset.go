package timeline

import (
	"fmt"
	"io/ioutil"
	"path/filepath"

	"gopkg.in/yaml.v2"

	"soundstage/pkg/engine"
)

type tempoNode struct {
	BPM          float64 `yaml:"bpm,omitempty"`
	AutoDetect   bool    `yaml:"autoDetect,omitempty"`
	BeatsPerBar  int     `yaml:"beatsPerBar,omitempty"`
	FallbackBars int     `yaml:"fallbackBars,omitempty"`
}

type playbackNode struct {
	StartOffset float64 `yaml:"startOffset,omitempty"`
	Loop        bool    `yaml:"loop,omitempty"`
	LoopBeats   float64 `yaml:"loopBeats,omitempty"`
}

type eventNode struct {
	ID       string  `yaml:"id,omitempty"`
	Kind     string  `yaml:"kind"`
	Start    float64 `yaml:"start,omitempty"`
	Duration float64 `yaml:"duration,omitempty"`
	InBeats  bool    `yaml:"inBeats,omitempty"`

	Sound       string    `yaml:"sound,omitempty"`
	Layer       int       `yaml:"layer,omitempty"`
	BeatAligned bool      `yaml:"beatAligned,omitempty"`
	Offset      []float64 `yaml:"offset,omitempty,flow"`
	Follow      bool      `yaml:"follow,omitempty"`

	Target string   `yaml:"target,omitempty"`
	Param  string   `yaml:"param,omitempty"`
	Curve  string   `yaml:"curve,omitempty"`
	Min    float64  `yaml:"min,omitempty"`
	Max    *float64 `yaml:"max,omitempty"`

	Marker string `yaml:"marker,omitempty"`

	Timeline         *assetNode `yaml:"timeline,omitempty"`
	Path             string     `yaml:"path,omitempty"`
	TimeScale        float64    `yaml:"timeScale,omitempty"`
	ApplyStartOffset bool       `yaml:"applyStartOffset,omitempty"`
	Prefix           string     `yaml:"prefix,omitempty"`
}

type assetNode struct {
	ID       string       `yaml:"id,omitempty"`
	Tempo    tempoNode    `yaml:"tempo,omitempty"`
	Playback playbackNode `yaml:"playback,omitempty"`
	Events   []eventNode  `yaml:"events"`
}

// LoadAsset reads a timeline from a YAML file. Nested timelines given as
// file paths are loaded relative to the parent file; inclusion cycles are
// an error.
func LoadAsset(path string) (*Asset, error) {
	return loadAsset(path, make(map[string]bool))
}

func loadAsset(path string, loading map[string]bool) (*Asset, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve timeline path: %v", err)
	}
	if loading[abs] {
		return nil, fmt.Errorf("timeline inclusion cycle through %s", path)
	}
	loading[abs] = true
	defer delete(loading, abs)

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timeline: %v", err)
	}
	var n assetNode
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to parse timeline: %v", err)
	}
	return convertAsset(&n, filepath.Dir(abs), loading)
}

// ParseAsset parses a timeline from YAML. Nested timelines must be
// inline; path references require LoadAsset.
func ParseAsset(data []byte) (*Asset, error) {
	var n assetNode
	if err := yaml.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("failed to parse timeline: %v", err)
	}
	return convertAsset(&n, "", nil)
}

func convertAsset(n *assetNode, baseDir string, loading map[string]bool) (*Asset, error) {
	a := &Asset{
		ID: n.ID,
		Tempo: Tempo{
			BPM:          n.Tempo.BPM,
			AutoDetect:   n.Tempo.AutoDetect,
			BeatsPerBar:  n.Tempo.BeatsPerBar,
			FallbackBars: n.Tempo.FallbackBars,
		},
		Loop:        n.Playback.Loop,
		LoopBeats:   n.Playback.LoopBeats,
		StartOffset: n.Playback.StartOffset,
	}
	if a.ID == "" {
		a.ID = "timeline"
	}
	if a.Tempo.BeatsPerBar <= 0 {
		a.Tempo.BeatsPerBar = 4
	}
	if a.Tempo.FallbackBars <= 0 {
		a.Tempo.FallbackBars = 4
	}

	ids := make(map[string]bool)
	for i := range n.Events {
		ev, err := convertEvent(&n.Events[i], baseDir, loading)
		if err != nil {
			return nil, fmt.Errorf("event %d: %v", i, err)
		}
		if ev.ID == "" {
			ev.ID = fmt.Sprintf("e%02d", i)
		}
		if ev.Kind == KindMarker && ev.Marker == "" {
			ev.Marker = ev.ID
		}
		if ids[ev.ID] {
			return nil, fmt.Errorf("duplicate event id %q", ev.ID)
		}
		ids[ev.ID] = true
		a.Events = append(a.Events, ev)
	}
	return a, nil
}

func convertEvent(n *eventNode, baseDir string, loading map[string]bool) (*Event, error) {
	ev := &Event{
		ID:       n.ID,
		Start:    n.Start,
		Duration: n.Duration,
		InBeats:  n.InBeats,

		Sound:       n.Sound,
		Layer:       n.Layer,
		BeatAligned: n.BeatAligned,
		Follow:      n.Follow,

		Target: n.Target,
		Param:  n.Param,
		Curve:  n.Curve,
		Min:    n.Min,
		Max:    1,

		Marker: n.Marker,

		ChildPath:        n.Path,
		TimeScale:        n.TimeScale,
		ApplyStartOffset: n.ApplyStartOffset,
		Prefix:           n.Prefix,
	}
	if n.Max != nil {
		ev.Max = *n.Max
	}
	if ev.TimeScale == 0 {
		ev.TimeScale = 1
	}
	if len(n.Offset) > 3 {
		return nil, fmt.Errorf("offset has %d components, want at most 3", len(n.Offset))
	}
	coords := []*float64{&ev.Offset.X, &ev.Offset.Y, &ev.Offset.Z}
	for i, v := range n.Offset {
		*coords[i] = v
	}

	switch n.Kind {
	case "effect":
		ev.Kind = KindEffect
	case "music":
		ev.Kind = KindMusic
	case "narration":
		ev.Kind = KindNarration
	case "automate":
		ev.Kind = KindAutomate
		if ev.Target == "" || ev.Param == "" {
			return nil, fmt.Errorf("automate event needs target and param")
		}
		if !validCurve(ev.Curve) {
			return nil, fmt.Errorf("unknown automation curve %q", ev.Curve)
		}
	case "marker":
		ev.Kind = KindMarker
	case "timeline":
		ev.Kind = KindNested
		switch {
		case n.Timeline != nil:
			child, err := convertAsset(n.Timeline, baseDir, loading)
			if err != nil {
				return nil, err
			}
			ev.Child = child
		case n.Path != "":
			if loading == nil {
				return nil, fmt.Errorf("timeline path %q needs LoadAsset", n.Path)
			}
			child, err := loadAsset(filepath.Join(baseDir, n.Path), loading)
			if err != nil {
				return nil, err
			}
			ev.Child = child
		default:
			return nil, fmt.Errorf("nested timeline needs an inline timeline or a path")
		}
	default:
		return nil, fmt.Errorf("unknown event kind %q", n.Kind)
	}

	if ev.Kind == KindEffect || ev.Kind == KindMusic || ev.Kind == KindNarration {
		if ev.Sound == "" {
			return nil, fmt.Errorf("%s event needs a sound name", ev.Kind)
		}
	}
	return ev, nil
}

// SaveAsset writes a timeline as YAML. Nested timelines loaded from
// separate files are written back as path references.
func SaveAsset(a *Asset, path string) error {
	data, err := yaml.Marshal(assetToNode(a))
	if err != nil {
		return fmt.Errorf("failed to marshal timeline: %v", err)
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timeline: %v", err)
	}
	return nil
}

func assetToNode(a *Asset) *assetNode {
	n := &assetNode{
		ID: a.ID,
		Tempo: tempoNode{
			BPM:          a.Tempo.BPM,
			AutoDetect:   a.Tempo.AutoDetect,
			BeatsPerBar:  a.Tempo.BeatsPerBar,
			FallbackBars: a.Tempo.FallbackBars,
		},
		Playback: playbackNode{
			StartOffset: a.StartOffset,
			Loop:        a.Loop,
			LoopBeats:   a.LoopBeats,
		},
	}
	for _, ev := range a.Events {
		n.Events = append(n.Events, eventToNode(ev))
	}
	return n
}

func eventToNode(ev *Event) eventNode {
	n := eventNode{
		ID:       ev.ID,
		Kind:     ev.Kind.String(),
		Start:    ev.Start,
		Duration: ev.Duration,
		InBeats:  ev.InBeats,

		Sound:       ev.Sound,
		Layer:       ev.Layer,
		BeatAligned: ev.BeatAligned,
		Follow:      ev.Follow,

		Target: ev.Target,
		Param:  ev.Param,
		Curve:  ev.Curve,
		Min:    ev.Min,

		Marker: ev.Marker,

		Path:             ev.ChildPath,
		ApplyStartOffset: ev.ApplyStartOffset,
		Prefix:           ev.Prefix,
	}
	if ev.Max != 1 {
		max := ev.Max
		n.Max = &max
	}
	if ev.TimeScale != 1 {
		n.TimeScale = ev.TimeScale
	}
	if ev.Offset != (engine.Vec3{}) {
		n.Offset = []float64{ev.Offset.X, ev.Offset.Y, ev.Offset.Z}
	}
	if ev.Kind == KindNested && ev.ChildPath == "" && ev.Child != nil {
		n.Timeline = assetToNode(ev.Child)
	}
	return n
}
