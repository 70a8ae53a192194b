package registry

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"soundstage/internal/logger"
	"soundstage/pkg/clip"
)

// node is the serialized form of an entry. One struct covers every kind;
// the kind field selects which fields are meaningful.
type node struct {
	Kind        string       `yaml:"kind,omitempty"`
	ID          string       `yaml:"id,omitempty"`
	Name        string       `yaml:"name"`
	Clip        string       `yaml:"clip,omitempty"`
	Intro       string       `yaml:"intro,omitempty"`
	Volume      *float64     `yaml:"volume,omitempty"`
	Pitch       []float64    `yaml:"pitch,omitempty"` // [fixed] or [min, max]
	Probability *float64     `yaml:"probability,omitempty"`
	PreDelay    float64      `yaml:"predelay,omitempty"`
	Loop        *bool        `yaml:"loop,omitempty"`
	Bus         string       `yaml:"bus,omitempty"`
	Spatial     *spatialNode `yaml:"spatial,omitempty"`
	Children    []node       `yaml:"children,omitempty"`
	Variants    []node       `yaml:"variants,omitempty"`
	Items       []node       `yaml:"items,omitempty"`
}

type spatialNode struct {
	Min   float64 `yaml:"min"`
	Max   float64 `yaml:"max"`
	Blend float64 `yaml:"blend"`
}

type assetFile struct {
	Root node `yaml:"root"`
}

// Entry kinds accepted in the asset file
const (
	kindFolder    = "folder"
	kindSfx       = "sfx"
	kindVariants  = "variants"
	kindMusic     = "music"
	kindNarration = "narration"
	kindLine      = "line"
)

// LoadAsset reads a registry asset file, builds the lookup, and resolves
// clips through the store when one is given
func LoadAsset(path string, store *clip.Store, log *logger.Logger) (*Registry, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry asset: %v", err)
	}
	return ParseAsset(data, store, log)
}

// ParseAsset builds a registry from serialized asset bytes
func ParseAsset(data []byte, store *clip.Store, log *logger.Logger) (*Registry, error) {
	var af assetFile
	if err := yaml.Unmarshal(data, &af); err != nil {
		return nil, fmt.Errorf("error parsing registry asset: %v", err)
	}

	// The root node is a folder whether or not it says so
	if af.Root.Kind == "" {
		af.Root.Kind = kindFolder
	}

	entry, err := convertNode(af.Root)
	if err != nil {
		return nil, err
	}
	root, ok := entry.(*Folder)
	if !ok {
		return nil, fmt.Errorf("registry root %q must be a folder, got %s", af.Root.Name, KindOf(entry))
	}

	r := New(root, log)
	if store != nil {
		r.ResolveClips(store)
	}
	return r, nil
}

// SaveAsset writes the registry tree back to a file
func SaveAsset(r *Registry, path string) error {
	if r.Root == nil {
		return fmt.Errorf("registry has no root to save")
	}

	af := assetFile{Root: entryToNode(r.Root)}
	data, err := yaml.Marshal(&af)
	if err != nil {
		return fmt.Errorf("error serializing registry asset: %v", err)
	}

	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing registry asset: %v", err)
	}
	return nil
}

// convertNode turns a serialized node into a typed entry
func convertNode(n node) (Entry, error) {
	if n.Name == "" {
		return nil, fmt.Errorf("registry entry of kind %q has no name", n.Kind)
	}

	switch n.Kind {
	case kindFolder:
		f := &Folder{EntryInfo: EntryInfo{ID: n.ID, Name: n.Name}}
		for _, c := range n.Children {
			child, err := convertNode(c)
			if err != nil {
				return nil, err
			}
			f.Children = append(f.Children, child)
		}
		return f, nil

	case kindSfx:
		params, err := playParams(n, false)
		if err != nil {
			return nil, err
		}
		return &Sfx{
			EntryInfo:  EntryInfo{ID: n.ID, Name: n.Name},
			PlayParams: params,
			ClipPath:   n.Clip,
		}, nil

	case kindVariants:
		params, err := playParams(n, false)
		if err != nil {
			return nil, err
		}
		g := &SfxVariantGroup{
			EntryInfo:  EntryInfo{ID: n.ID, Name: n.Name},
			PlayParams: params,
		}
		for _, vn := range n.Variants {
			v, err := convertVariant(vn)
			if err != nil {
				return nil, fmt.Errorf("group %q: %v", n.Name, err)
			}
			g.Variants = append(g.Variants, v)
		}
		return g, nil

	case kindMusic:
		params, err := playParams(n, true)
		if err != nil {
			return nil, err
		}
		return &Music{
			EntryInfo:  EntryInfo{ID: n.ID, Name: n.Name},
			PlayParams: params,
			ClipPath:   n.Clip,
			IntroPath:  n.Intro,
		}, nil

	case kindNarration:
		g := &NarrationGroup{
			EntryInfo: EntryInfo{ID: n.ID, Name: n.Name},
			Bus:       n.Bus,
		}
		for _, in := range n.Items {
			item, err := convertNarrationItem(in)
			if err != nil {
				return nil, fmt.Errorf("narration %q: %v", n.Name, err)
			}
			g.Items = append(g.Items, item)
		}
		return g, nil

	default:
		return nil, fmt.Errorf("entry %q: unknown kind %q", n.Name, n.Kind)
	}
}

func convertVariant(n node) (*SfxVariant, error) {
	if n.Name == "" {
		return nil, fmt.Errorf("variant with clip %q has no name", n.Clip)
	}

	pitch, err := fixedPitch(n.Pitch, n.Name)
	if err != nil {
		return nil, err
	}

	return &SfxVariant{
		EntryInfo:   EntryInfo{ID: n.ID, Name: n.Name},
		Volume:      volumeOrDefault(n.Volume),
		Pitch:       pitch,
		Probability: probabilityOrDefault(n.Probability),
		ClipPath:    n.Clip,
	}, nil
}

func convertNarrationItem(n node) (NarrationItem, error) {
	switch n.Kind {
	case kindLine, "":
		if n.Name == "" {
			return nil, fmt.Errorf("narration line with clip %q has no name", n.Clip)
		}
		pitch, err := fixedPitch(n.Pitch, n.Name)
		if err != nil {
			return nil, err
		}
		return &NarrationClip{
			EntryInfo: EntryInfo{ID: n.ID, Name: n.Name},
			Volume:    volumeOrDefault(n.Volume),
			Pitch:     pitch,
			PreDelay:  n.PreDelay,
			ClipPath:  n.Clip,
		}, nil

	case kindVariants:
		if n.Name == "" {
			return nil, fmt.Errorf("narration variant group has no name")
		}
		g := &NarrationVariantGroup{
			EntryInfo: EntryInfo{ID: n.ID, Name: n.Name},
			Volume:    volumeOrDefault(n.Volume),
			PreDelay:  n.PreDelay,
		}
		for _, vn := range n.Variants {
			if vn.Name == "" {
				return nil, fmt.Errorf("variant group %q: variant with clip %q has no name", n.Name, vn.Clip)
			}
			g.Variants = append(g.Variants, &NarrationVariant{
				EntryInfo: EntryInfo{ID: vn.ID, Name: vn.Name},
				Volume:    volumeOrDefault(vn.Volume),
				ClipPath:  vn.Clip,
			})
		}
		return g, nil

	default:
		return nil, fmt.Errorf("item %q: unknown kind %q", n.Name, n.Kind)
	}
}

// playParams extracts the shared playback parameters. Music loops unless the
// asset says otherwise; everything else defaults to one-shot.
func playParams(n node, music bool) (PlayParams, error) {
	p := PlayParams{
		Volume:   volumeOrDefault(n.Volume),
		PitchMin: 1,
		PitchMax: 1,
		Loop:     music,
		Bus:      n.Bus,
	}

	switch len(n.Pitch) {
	case 0:
	case 1:
		p.PitchMin, p.PitchMax = n.Pitch[0], n.Pitch[0]
	case 2:
		p.PitchMin, p.PitchMax = n.Pitch[0], n.Pitch[1]
	default:
		return p, fmt.Errorf("entry %q: pitch must be [fixed] or [min, max]", n.Name)
	}

	if n.Loop != nil {
		p.Loop = *n.Loop
	}
	if n.Spatial != nil {
		p.Spatial = SpatialParams{
			MinDistance: n.Spatial.Min,
			MaxDistance: n.Spatial.Max,
			Blend:       n.Spatial.Blend,
		}
	}
	return p, nil
}

func fixedPitch(pitch []float64, name string) (float64, error) {
	switch len(pitch) {
	case 0:
		return 1, nil
	case 1:
		return pitch[0], nil
	default:
		return 1, fmt.Errorf("entry %q: only a single pitch value is allowed here", name)
	}
}

func volumeOrDefault(v *float64) float64 {
	if v == nil {
		return 1
	}
	return *v
}

func probabilityOrDefault(p *float64) float64 {
	if p == nil {
		return 1
	}
	return *p
}

// entryToNode is the inverse of convertNode
func entryToNode(e Entry) node {
	switch n := e.(type) {
	case *Folder:
		out := node{Kind: kindFolder, ID: n.ID, Name: n.Name}
		for _, c := range n.Children {
			out.Children = append(out.Children, entryToNode(c))
		}
		return out

	case *Sfx:
		out := node{Kind: kindSfx, ID: n.ID, Name: n.Name, Clip: n.ClipPath}
		writePlayParams(&out, n.PlayParams, false)
		return out

	case *SfxVariantGroup:
		out := node{Kind: kindVariants, ID: n.ID, Name: n.Name}
		writePlayParams(&out, n.PlayParams, false)
		for _, v := range n.Variants {
			vn := node{ID: v.ID, Name: v.Name, Clip: v.ClipPath}
			if v.Volume != 1 {
				vn.Volume = &v.Volume
			}
			if v.Pitch != 1 {
				vn.Pitch = []float64{v.Pitch}
			}
			if v.Probability != 1 {
				vn.Probability = &v.Probability
			}
			out.Variants = append(out.Variants, vn)
		}
		return out

	case *Music:
		out := node{Kind: kindMusic, ID: n.ID, Name: n.Name, Clip: n.ClipPath, Intro: n.IntroPath}
		writePlayParams(&out, n.PlayParams, true)
		return out

	case *NarrationGroup:
		out := node{Kind: kindNarration, ID: n.ID, Name: n.Name, Bus: n.Bus}
		for _, item := range n.Items {
			out.Items = append(out.Items, narrationItemToNode(item))
		}
		return out

	default:
		// Unreachable for well-formed trees
		return node{Name: e.Info().Name}
	}
}

func narrationItemToNode(item NarrationItem) node {
	switch n := item.(type) {
	case *NarrationClip:
		out := node{Kind: kindLine, ID: n.ID, Name: n.Name, Clip: n.ClipPath, PreDelay: n.PreDelay}
		if n.Volume != 1 {
			out.Volume = &n.Volume
		}
		if n.Pitch != 1 {
			out.Pitch = []float64{n.Pitch}
		}
		return out

	case *NarrationVariantGroup:
		out := node{Kind: kindVariants, ID: n.ID, Name: n.Name, PreDelay: n.PreDelay}
		if n.Volume != 1 {
			out.Volume = &n.Volume
		}
		for _, v := range n.Variants {
			vn := node{ID: v.ID, Name: v.Name, Clip: v.ClipPath}
			if v.Volume != 1 {
				vn.Volume = &v.Volume
			}
			out.Variants = append(out.Variants, vn)
		}
		return out

	default:
		return node{Name: item.Info().Name}
	}
}

func writePlayParams(out *node, p PlayParams, music bool) {
	if p.Volume != 1 {
		out.Volume = &p.Volume
	}
	if p.PitchMin != 1 || p.PitchMax != 1 {
		if p.PitchMin == p.PitchMax {
			out.Pitch = []float64{p.PitchMin}
		} else {
			out.Pitch = []float64{p.PitchMin, p.PitchMax}
		}
	}
	if p.Loop != music {
		loop := p.Loop
		out.Loop = &loop
	}
	out.Bus = p.Bus
	if p.Spatial != (SpatialParams{}) {
		out.Spatial = &spatialNode{
			Min:   p.Spatial.MinDistance,
			Max:   p.Spatial.MaxDistance,
			Blend: p.Spatial.Blend,
		}
	}
}
