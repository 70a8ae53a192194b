// Package registry holds the catalog of authored sound definitions. The
// catalog is a tree for authoring purposes and is flattened into a
// name-to-entry table for runtime resolution. Unresolved names are "nothing
// to play", never errors.
package registry

import (
	"fmt"
	"strings"

	"soundstage/internal/logger"
	"soundstage/pkg/clip"
)

// Registry resolves logical sound names into concrete definitions
type Registry struct {
	Root *Folder

	lookup map[string]Entry
	log    *logger.Logger
	nextID int
}

// New creates a registry around an entry tree and builds the flat lookup
func New(root *Folder, log *logger.Logger) *Registry {
	r := &Registry{
		Root: root,
		log:  log,
	}
	r.BuildLookup()
	return r
}

// BuildLookup walks the tree once, assigns ids to entries lacking one, and
// fills the flat name table. Duplicate names keep the first entry seen in
// traversal order; later ones are reported and skipped.
func (r *Registry) BuildLookup() {
	r.lookup = make(map[string]Entry)
	if r.Root == nil {
		return
	}
	r.visit(r.Root)
}

func (r *Registry) visit(e Entry) {
	r.ensureID(e)
	r.insert(e)

	switch n := e.(type) {
	case *Folder:
		for _, c := range n.Children {
			r.visit(c)
		}
	case *NarrationGroup:
		for _, item := range n.Items {
			r.visit(item)
		}
	case *NarrationVariantGroup:
		for _, v := range n.Variants {
			r.visit(v)
		}
	case *SfxVariantGroup:
		// Members stay out of the lookup, addressed by dotted path only,
		// but they still receive stable ids.
		for _, v := range n.Variants {
			r.ensureID(v)
			v.group = n
		}
	}
}

func (r *Registry) ensureID(e Entry) {
	info := e.Info()
	if info.ID == "" {
		r.nextID++
		info.ID = fmt.Sprintf("e%04d", r.nextID)
	}
}

func (r *Registry) insert(e Entry) {
	name := e.Info().Name
	if name == "" {
		return
	}

	if prev, exists := r.lookup[name]; exists {
		if r.log != nil {
			r.log.Warnf("duplicate sound name %q: keeping the first (%s), ignoring a later %s",
				name, KindOf(prev), KindOf(e))
		}
		return
	}
	r.lookup[name] = e
}

// Len returns the number of entries in the flat lookup
func (r *Registry) Len() int {
	return len(r.lookup)
}

// Lookup resolves a name to an entry. Plain names hit the flat table; names
// containing a dot fall back to variant-path and narration-path resolution.
// Returns nil when nothing matches.
func (r *Registry) Lookup(name string) Entry {
	if e, ok := r.lookup[name]; ok {
		return e
	}

	if i := strings.Index(name, "."); i > 0 && i < len(name)-1 {
		if v := r.ResolveVariantPath(name); v != nil {
			return v
		}
		if n := r.ResolveNarrationPath(name); n != nil {
			return n
		}
	}

	return nil
}

// ResolveVariantPath resolves "Group.Item" to a specific member of an sfx
// variant group, bypassing random selection. Both halves of the path match
// case-insensitively.
func (r *Registry) ResolveVariantPath(path string) *SfxVariant {
	groupName, itemName, ok := splitPath(path)
	if !ok {
		return nil
	}

	group, _ := r.findFold(groupName).(*SfxVariantGroup)
	if group == nil {
		return nil
	}

	for _, v := range group.Variants {
		if strings.EqualFold(v.Name, itemName) {
			return v
		}
	}
	return nil
}

// ResolveNarrationPath resolves "Group.Item" to a specific item of a
// narration group, case-insensitively
func (r *Registry) ResolveNarrationPath(path string) NarrationItem {
	groupName, itemName, ok := splitPath(path)
	if !ok {
		return nil
	}

	group, _ := r.findFold(groupName).(*NarrationGroup)
	if group == nil {
		return nil
	}

	for _, item := range group.Items {
		if strings.EqualFold(item.Info().Name, itemName) {
			return item
		}
	}
	return nil
}

// splitPath cuts a dotted path at the first dot
func splitPath(path string) (group, item string, ok bool) {
	i := strings.Index(path, ".")
	if i <= 0 || i >= len(path)-1 {
		return "", "", false
	}
	return path[:i], path[i+1:], true
}

// findFold finds an entry by name, first exactly, then case-insensitively
func (r *Registry) findFold(name string) Entry {
	if e, ok := r.lookup[name]; ok {
		return e
	}
	for key, e := range r.lookup {
		if strings.EqualFold(key, name) {
			return e
		}
	}
	return nil
}

// Sfx returns the named entry if it is a single-clip effect
func (r *Registry) Sfx(name string) *Sfx {
	e, _ := r.Lookup(name).(*Sfx)
	return e
}

// SfxGroup returns the named entry if it is an sfx variant group
func (r *Registry) SfxGroup(name string) *SfxVariantGroup {
	e, _ := r.Lookup(name).(*SfxVariantGroup)
	return e
}

// Music returns the named entry if it is a music definition
func (r *Registry) Music(name string) *Music {
	e, _ := r.Lookup(name).(*Music)
	return e
}

// Narration returns the named entry if it is a narration group
func (r *Registry) Narration(name string) *NarrationGroup {
	e, _ := r.Lookup(name).(*NarrationGroup)
	return e
}

// ResolveClips loads every entry's clip through the store. Entries whose
// clip cannot load keep a nil clip and are skipped at play time.
func (r *Registry) ResolveClips(store *clip.Store) {
	if r.Root == nil || store == nil {
		return
	}
	resolveClips(r.Root, store)
}

func resolveClips(e Entry, store *clip.Store) {
	switch n := e.(type) {
	case *Folder:
		for _, c := range n.Children {
			resolveClips(c, store)
		}
	case *Sfx:
		n.Clip = store.Get(n.ClipPath)
	case *SfxVariantGroup:
		for _, v := range n.Variants {
			v.Clip = store.Get(v.ClipPath)
		}
	case *Music:
		n.Clip = store.Get(n.ClipPath)
		if n.IntroPath != "" {
			n.Intro = store.Get(n.IntroPath)
		}
	case *NarrationGroup:
		for _, item := range n.Items {
			resolveClips(item, store)
		}
	case *NarrationClip:
		n.Clip = store.Get(n.ClipPath)
	case *NarrationVariantGroup:
		for _, v := range n.Variants {
			v.Clip = store.Get(v.ClipPath)
		}
	}
}
