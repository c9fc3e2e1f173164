package catalog

import (
	"slices"
	"sync"

	"github.com/agentstation/enginelink/pkg/resources"
)

// View is the merged sequence of one category: the union of its sources,
// deduplicated by id with the highest-precedence source winning, sorted by
// the category's key. Recompute is expected to run on a single goroutine;
// Records may be called from anywhere.
type View struct {
	category resources.Category
	mode     resources.SortMode
	sources  []*Source

	mu      sync.RWMutex
	records []resources.Record
	version uint64
}

// NewView creates a view over sources; precedence follows origin order,
// and sources of the same origin keep their given order.
func NewView(category resources.Category, sources ...*Source) *View {
	ordered := slices.Clone(sources)
	slices.SortStableFunc(ordered, func(a, b *Source) int {
		return int(a.Origin()) - int(b.Origin())
	})
	return &View{
		category: category,
		mode:     resources.InfoFor(category).Sort,
		sources:  ordered,
	}
}

// Category returns the category of the view.
func (v *View) Category() resources.Category {
	return v.category
}

// Sources returns the constituent sources in precedence order.
func (v *View) Sources() []*Source {
	return slices.Clone(v.sources)
}

// Recompute rebuilds the sequence from the sources and reports whether it changed.
func (v *View) Recompute() bool {
	next := Merge(v.mode, v.sources...)

	v.mu.Lock()
	defer v.mu.Unlock()
	if slices.Equal(v.records, next) {
		return false
	}
	v.records = next
	v.version++
	return true
}

// Records returns a copy of the last computed sequence.
func (v *View) Records() []resources.Record {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.Clone(v.records)
}

// Len returns the length of the last computed sequence.
func (v *View) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.records)
}

// Version increments every time Recompute changes the sequence.
func (v *View) Version() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.version
}

// Contains reports whether the last computed sequence holds id.
func (v *View) Contains(id string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return slices.ContainsFunc(v.records, func(r resources.Record) bool { return r.ID == id })
}

// Merge computes sort(dedup(union(sources))). Sources must be given in
// precedence order; for duplicate ids the first source holding it wins.
func Merge(mode resources.SortMode, sources ...*Source) []resources.Record {
	seen := make(map[string]struct{})
	var out []resources.Record
	for _, src := range sources {
		for _, r := range src.Records() {
			if _, dup := seen[r.ID]; dup {
				continue
			}
			seen[r.ID] = struct{}{}
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b resources.Record) int {
		switch {
		case resources.Less(mode, a, b):
			return -1
		case resources.Less(mode, b, a):
			return 1
		}
		return 0
	})
	return out
}
