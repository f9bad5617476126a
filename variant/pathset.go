package variant

import (
	"slices"
	"sync"
)

// PathSet is a concurrency-safe set of artifact paths.
type PathSet struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// NewPathSet creates an empty set.
func NewPathSet() *PathSet {
	return &PathSet{paths: make(map[string]struct{})}
}

// Add inserts paths, ignoring duplicates.
func (s *PathSet) Add(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		s.paths[p] = struct{}{}
	}
}

// Len returns the number of distinct paths.
func (s *PathSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

// Sorted returns the paths in lexical order.
func (s *PathSet) Sorted() []string {
	s.mu.Lock()
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	s.mu.Unlock()
	slices.Sort(out)
	return out
}
