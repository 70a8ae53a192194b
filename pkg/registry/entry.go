package registry

import (
	"soundstage/pkg/clip"
)

// EntryInfo is the identity shared by every registry entry
type EntryInfo struct {
	ID   string
	Name string
}

// Info returns the entry's identity
func (e *EntryInfo) Info() *EntryInfo { return e }

func (e *EntryInfo) entry() {}

// Entry is one node of the sound catalog. The set of implementations is
// closed: Folder, Sfx, SfxVariantGroup, SfxVariant, Music, NarrationGroup,
// NarrationClip, NarrationVariantGroup and NarrationVariant.
type Entry interface {
	Info() *EntryInfo
	entry()
}

// SpatialParams controls distance attenuation for positional playback
type SpatialParams struct {
	MinDistance float64 // Full volume inside this radius
	MaxDistance float64 // Silent beyond this radius
	Blend       float64 // 0 = flat, 1 = fully positional
}

// PlayParams are the playback parameters shared by playable entries
type PlayParams struct {
	Volume   float64
	PitchMin float64
	PitchMax float64
	Loop     bool
	Bus      string
	Spatial  SpatialParams
}

// Folder is a pure grouping node, never playable itself
type Folder struct {
	EntryInfo
	Children []Entry
}

// Sfx is a single-clip effect definition
type Sfx struct {
	EntryInfo
	PlayParams
	ClipPath string
	Clip     *clip.Clip
}

// SfxVariant is one alternative inside an SfxVariantGroup. Variants are
// addressed by dotted path only and never enter the flat lookup.
type SfxVariant struct {
	EntryInfo
	Volume      float64 // Multiplied with the group volume
	Pitch       float64 // Multiplied with the drawn group pitch
	Probability float64
	ClipPath    string
	Clip        *clip.Clip

	group *SfxVariantGroup // set by BuildLookup
}

// Group returns the variant group this variant belongs to, nil before the
// registry's lookup table has been built
func (v *SfxVariant) Group() *SfxVariantGroup { return v.group }

// SfxVariantGroup plays one randomly selected variant using shared
// spatial/volume/pitch/loop parameters
type SfxVariantGroup struct {
	EntryInfo
	PlayParams
	Variants []*SfxVariant
}

// Music is a background music definition, either a single clip or a
// non-looping intro followed by a looping main clip
type Music struct {
	EntryInfo
	PlayParams
	ClipPath  string
	Clip      *clip.Clip
	IntroPath string
	Intro     *clip.Clip
}

// NarrationItem is an element of a NarrationGroup: a concrete line or a
// variant sub-group picked at play time
type NarrationItem interface {
	Entry
	narrationItem()
}

// NarrationClip is a single narration line
type NarrationClip struct {
	EntryInfo
	Volume   float64
	Pitch    float64
	PreDelay float64 // Seconds of silence before the line starts
	ClipPath string
	Clip     *clip.Clip
}

func (*NarrationClip) narrationItem() {}

// NarrationVariant is one alternative line inside a NarrationVariantGroup
type NarrationVariant struct {
	EntryInfo
	Volume   float64
	ClipPath string
	Clip     *clip.Clip
}

// NarrationVariantGroup picks one of its variants each time the group is
// sequenced
type NarrationVariantGroup struct {
	EntryInfo
	Volume   float64
	PreDelay float64
	Variants []*NarrationVariant
}

func (*NarrationVariantGroup) narrationItem() {}

// NarrationGroup is an ordered sequence of narration items played back to
// back by the engine
type NarrationGroup struct {
	EntryInfo
	Bus   string
	Items []NarrationItem
}

// KindOf names an entry's concrete type for diagnostics
func KindOf(e Entry) string {
	switch e.(type) {
	case *Folder:
		return "folder"
	case *Sfx:
		return "sfx"
	case *SfxVariantGroup:
		return "sfx variant group"
	case *SfxVariant:
		return "sfx variant"
	case *Music:
		return "music"
	case *NarrationGroup:
		return "narration group"
	case *NarrationClip:
		return "narration clip"
	case *NarrationVariantGroup:
		return "narration variant group"
	case *NarrationVariant:
		return "narration variant"
	default:
		return "unknown"
	}
}
