package clip

import (
	"path/filepath"

	"soundstage/internal/logger"
)

// Store loads clips relative to an asset root and caches them by path.
// A failed load is reported once and resolves to nil, which playback code
// treats as "nothing to play".
type Store struct {
	root  string
	cache map[string]*Clip
	log   *logger.Logger
}

// NewStore creates a clip store rooted at the given directory
func NewStore(root string, log *logger.Logger) *Store {
	return &Store{
		root:  root,
		cache: make(map[string]*Clip),
		log:   log,
	}
}

// Get returns the cached clip for a path, loading it on first use.
// Returns nil when the clip cannot be loaded.
func (s *Store) Get(path string) *Clip {
	if path == "" {
		return nil
	}

	if c, ok := s.cache[path]; ok {
		return c
	}

	full := path
	if s.root != "" && !filepath.IsAbs(path) {
		full = filepath.Join(s.root, path)
	}

	c, err := Load(full)
	if err != nil {
		if s.log != nil {
			s.log.Warnf("clip %q not loaded: %v", path, err)
		}
		c = nil
	}

	// Failures are cached too so a missing file warns only once
	s.cache[path] = c
	return c
}

// Put registers an in-memory clip under a path key, replacing any cached
// entry. Used by tests and by code that synthesizes clips.
func (s *Store) Put(path string, c *Clip) {
	s.cache[path] = c
}

// Len returns the number of cached entries, including negative ones
func (s *Store) Len() int {
	return len(s.cache)
}
