package places

import (
	"strings"
	"time"
)

// Snapshot is an immutable, validated view of the dataset. It is shared read-only by every
// session handler; a refresh builds a new Snapshot instead of touching this one.
type Snapshot struct {
	places     []Place
	byCategory map[string][]Place
	counts     map[string]int
	categories []string

	available bool
	loadedAt  time.Time
	source    string
}

func emptySnapshot(categories []string) *Snapshot {
	return newSnapshot(nil, categories, false, "", time.Time{})
}

func newSnapshot(list []Place, categories []string, available bool, source string, loadedAt time.Time) *Snapshot {
	s := &Snapshot{
		places:     list,
		byCategory: make(map[string][]Place),
		counts:     make(map[string]int),
		categories: categories,
		available:  available,
		loadedAt:   loadedAt,
		source:     source,
	}
	for _, c := range categories {
		s.counts[c] = 0
	}
	for _, p := range list {
		key := strings.ToLower(p.Category)
		s.byCategory[key] = append(s.byCategory[key], p)
		s.counts[p.Category]++
	}
	return s
}

// Places returns every place in dataset order. The slice is shared; callers must not modify it.
func (s *Snapshot) Places() []Place {
	return s.places
}

// ByCategory returns the places of one category, matched case-insensitively.
func (s *Snapshot) ByCategory(category string) []Place {
	return s.byCategory[strings.ToLower(category)]
}

// CountsByCategory returns the number of places per category. Configured categories with no
// places are present with a zero count.
func (s *Snapshot) CountsByCategory() map[string]int {
	out := make(map[string]int, len(s.counts))
	for k, v := range s.counts {
		out[k] = v
	}
	return out
}

// Categories returns the configured category order.
func (s *Snapshot) Categories() []string {
	return s.categories
}

// Len returns the number of places
func (s *Snapshot) Len() int {
	return len(s.places)
}

// Available is false until a dataset has been read successfully.
func (s *Snapshot) Available() bool {
	return s.available
}

// LoadedAt returns when the snapshot was built
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// Source names the dataset the snapshot was read from
func (s *Snapshot) Source() string {
	return s.source
}
