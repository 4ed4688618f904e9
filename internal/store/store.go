package store

import (
	"sort"
	"sync"
	"time"

	"github.com/obsidianstack/upperlimit/internal/engine"
)

// Entry is a result together with the time it was stored.
type Entry struct {
	Result    *engine.Result
	UpdatedAt time.Time
}

// Store is a thread-safe in-memory result store, keyed by analysis name.
type Store struct {
	mu         sync.RWMutex
	data       map[string]*Entry
	generation uint64
	now        func() time.Time // injectable for deterministic tests
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		data: make(map[string]*Entry),
		now:  time.Now,
	}
}

// Replace swaps the stored results for results and returns the number of
// analyses that were dropped because they are no longer present.
// Callers must not modify the results afterwards.
func (s *Store) Replace(results []*engine.Result) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	next := make(map[string]*Entry, len(results))
	for _, r := range results {
		next[r.Analysis] = &Entry{Result: r, UpdatedAt: now}
	}
	removed := 0
	for name := range s.data {
		if _, ok := next[name]; !ok {
			removed++
		}
	}
	s.data = next
	s.generation++
	return removed
}

// Get returns the Entry for the named analysis and whether it was found.
func (s *Store) Get(name string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[name]
	return e, ok
}

// List returns all entries ordered by analysis name.
func (s *Store) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Entry, 0, len(s.data))
	for _, e := range s.data {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Result.Analysis < out[j].Result.Analysis })
	return out
}

// Generation increases on every Replace.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}
