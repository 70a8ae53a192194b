package main

import (
	"soundstage/internal/logger"
	"soundstage/pkg/clip"
	"soundstage/pkg/config"
	"soundstage/pkg/engine"
	"soundstage/pkg/mixer"
	"soundstage/pkg/registry"
	"soundstage/pkg/timeline"
)

// demoCatalog synthesizes a small sound set so the engine can run with
// nothing on disk. Music layer clips are all eight seconds so they stay
// in phase while the mixer blends them.
func demoCatalog(cfg config.AudioConfig, log *logger.Logger) *registry.Registry {
	s := clip.NewSynth(cfg.SampleRate, cfg.Seed)

	root := &registry.Folder{
		EntryInfo: registry.EntryInfo{Name: "Demo"},
		Children: []registry.Entry{
			&registry.Sfx{
				EntryInfo:  registry.EntryInfo{Name: "Click"},
				PlayParams: registry.PlayParams{Volume: 0.8, PitchMin: 1, PitchMax: 1, Bus: "sfx"},
				Clip:       s.Chime("click", 880, 0.4),
			},
			&registry.SfxVariantGroup{
				EntryInfo: registry.EntryInfo{Name: "Steps"},
				PlayParams: registry.PlayParams{
					Volume: 0.9, PitchMin: 0.9, PitchMax: 1.1, Bus: "sfx",
					Spatial: registry.SpatialParams{MinDistance: 1, MaxDistance: 25, Blend: 1},
				},
				Variants: []*registry.SfxVariant{
					{EntryInfo: registry.EntryInfo{Name: "Soft"}, Volume: 1, Pitch: 1, Probability: 1, Clip: s.Impact("step-soft", 110, 0.25)},
					{EntryInfo: registry.EntryInfo{Name: "Hard"}, Volume: 0.8, Pitch: 1.1, Probability: 1, Clip: s.Impact("step-hard", 150, 0.2)},
				},
			},
			&registry.Sfx{
				EntryInfo:  registry.EntryInfo{Name: "Wind"},
				PlayParams: registry.PlayParams{Volume: 0.5, PitchMin: 1, PitchMax: 1, Bus: "sfx"},
				Clip:       s.Wind("wind", 6, 0.8),
			},
			&registry.Music{
				EntryInfo:  registry.EntryInfo{Name: "Bass"},
				PlayParams: registry.PlayParams{Volume: 0.9, PitchMin: 1, PitchMax: 1, Loop: true, Bus: "music"},
				Clip:       s.Drone("bass", 55, 8),
			},
			&registry.Music{
				EntryInfo:  registry.EntryInfo{Name: "Drums"},
				PlayParams: registry.PlayParams{Volume: 1, PitchMin: 1, PitchMax: 1, Loop: true, Bus: "music"},
				Clip:       s.Pulse("drums", 60, 120, 8),
			},
			&registry.Music{
				EntryInfo:  registry.EntryInfo{Name: "Lead"},
				PlayParams: registry.PlayParams{Volume: 0.7, PitchMin: 1, PitchMax: 1, Loop: true, Bus: "music"},
				Clip:       s.Drone("lead", 220, 8),
			},
			&registry.NarrationGroup{
				EntryInfo: registry.EntryInfo{Name: "Opening"},
				Bus:       "voice",
				Items: []registry.NarrationItem{
					&registry.NarrationClip{
						EntryInfo: registry.EntryInfo{Name: "Hello"},
						Volume:    1, Pitch: 1, PreDelay: 0.3,
						Clip: s.Vox("line-1", 1.2, 3),
					},
					&registry.NarrationVariantGroup{
						EntryInfo: registry.EntryInfo{Name: "Reply"},
						Volume:    0.9, PreDelay: 0.4,
						Variants: []*registry.NarrationVariant{
							{EntryInfo: registry.EntryInfo{Name: "A"}, Volume: 1, Clip: s.Vox("line-2a", 0.9, 2)},
							{EntryInfo: registry.EntryInfo{Name: "B"}, Volume: 1, Clip: s.Vox("line-2b", 1.1, 2)},
						},
					},
				},
			},
		},
	}
	return registry.New(root, log)
}

// demoSetup maps one integer intensity variable onto the three demo
// layers: 0 plays bass alone, 2 brings in everything
func demoSetup() mixer.Setup {
	s := mixer.DefaultSetup()
	s.Layers = []mixer.LayerConfig{
		{Name: "Bass", Index: 0, Music: "Bass", Volume: 0.9},
		{Name: "Drums", Index: 1, Music: "Drums", Volume: 1},
		{Name: "Lead", Index: 2, Music: "Lead", Volume: 0.7},
	}
	s.Variables = []mixer.Variable{
		{
			Name:         "intensity",
			Priority:     1,
			Integer:      true,
			PlayAllAhead: true,
			Entries: []mixer.Entry{
				{Rules: []mixer.Rule{{Layer: "Bass", Play: true}}},
				{Rules: []mixer.Rule{{Layer: "Drums", Play: true}}},
				{Rules: []mixer.Rule{{Layer: "Lead", Play: true}}},
			},
		},
	}
	return s
}

// demoTimeline loops a 16 second arrangement: ambience and narration up
// front, accents on beats, markers stepping the mixer intensity, and a
// music bus swell at the top of each pass
func demoTimeline() *timeline.Asset {
	return &timeline.Asset{
		ID:        "demo",
		Tempo:     timeline.Tempo{BPM: 120, BeatsPerBar: 4, FallbackBars: 4},
		Loop:      true,
		LoopBeats: 32,
		Events: []*timeline.Event{
			{ID: "amb", Kind: timeline.KindEffect, Sound: "Wind", Start: 0},
			{ID: "hello", Kind: timeline.KindNarration, Sound: "Opening", Start: 1},
			{ID: "rise", Kind: timeline.KindAutomate, Target: "bus:music", Param: "volume",
				Min: 0.5, Max: 1, Curve: timeline.CurveSmooth, Start: 0, Duration: 4, InBeats: true},
			{ID: "tick", Kind: timeline.KindEffect, Sound: "Click", Start: 4, InBeats: true},
			{ID: "steps", Kind: timeline.KindEffect, Sound: "Steps", Start: 6, InBeats: true,
				Offset: engine.Vec3{X: 4}},
			{ID: "verse", Kind: timeline.KindMarker, Marker: "verse", Start: 8, InBeats: true},
			{ID: "tock", Kind: timeline.KindEffect, Sound: "Click", Start: 12, InBeats: true},
			{ID: "drop", Kind: timeline.KindMarker, Marker: "drop", Start: 16, InBeats: true},
			{ID: "outro", Kind: timeline.KindMarker, Marker: "outro", Start: 24, InBeats: true},
			{ID: "duck", Kind: timeline.KindAutomate, Target: "bus:music", Param: "volume",
				Min: 1, Max: 0.5, Curve: timeline.CurveEaseOut, Start: 28, Duration: 4, InBeats: true},
		},
	}
}
