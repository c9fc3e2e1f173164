package catalog

import (
	"maps"
	"slices"
	"strings"
	"sync"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/agentstation/enginelink/pkg/resources"
)

// Source is a keyed set of records from one origin for one category.
// DiffApply and AdditiveMerge are atomic with respect to readers of the
// same Source. Writers are expected to be serialized by the caller.
type Source struct {
	category resources.Category
	origin   resources.Origin

	mu      sync.RWMutex
	records map[string]resources.Record

	subsMu sync.RWMutex
	subs   []func(*Changeset)
}

// NewSource creates an empty source.
func NewSource(category resources.Category, origin resources.Origin) *Source {
	return &Source{
		category: category,
		origin:   origin,
		records:  make(map[string]resources.Record),
	}
}

// Category returns the category of the source.
func (s *Source) Category() resources.Category {
	return s.category
}

// Origin returns the origin of the source.
func (s *Source) Origin() resources.Origin {
	return s.origin
}

// OnChange registers a callback invoked after every mutation that produced
// at least one change event. Callbacks run on the mutating goroutine.
func (s *Source) OnChange(fn func(*Changeset)) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	s.subs = append(s.subs, fn)
}

// DiffApply makes the contents equal to items. Records that eq reports as
// unchanged produce no event, so applying the same input twice yields an
// empty changeset the second time. On duplicate ids the last item wins.
func (s *Source) DiffApply(items []resources.Record, eq EqualityPolicy) *Changeset {
	if eq == nil {
		eq = EqualStrict
	}
	incoming := s.index(items)

	s.mu.Lock()
	cs := s.newChangeset()
	for id, existing := range s.records {
		if _, keep := incoming[id]; !keep {
			cs.Removed = append(cs.Removed, existing)
			delete(s.records, id)
		}
	}
	for _, id := range sortedKeys(incoming) {
		s.upsert(cs, incoming[id], eq)
	}
	s.mu.Unlock()

	sortChangeset(cs)
	s.notify(cs)
	return cs
}

// AdditiveMerge inserts or updates items without removing anything.
func (s *Source) AdditiveMerge(items []resources.Record, eq EqualityPolicy, conflict ConflictPolicy) *Changeset {
	if eq == nil {
		eq = EqualStrict
	}
	incoming := s.index(items)

	s.mu.Lock()
	cs := s.newChangeset()
	for _, id := range sortedKeys(incoming) {
		if _, exists := s.records[id]; exists && conflict == KeepExisting {
			continue
		}
		s.upsert(cs, incoming[id], eq)
	}
	s.mu.Unlock()

	sortChangeset(cs)
	s.notify(cs)
	return cs
}

// Clear removes every record.
func (s *Source) Clear() *Changeset {
	return s.DiffApply(nil, EqualStrict)
}

// Lookup returns the record with the given id.
func (s *Source) Lookup(id string) (resources.Record, bool) {
	s.mu.RLock()
	r, ok := s.records[id]
	s.mu.RUnlock()
	return r, ok
}

// Len returns the number of records.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Records returns a copy of the contents ordered by id.
func (s *Source) Records() []resources.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]resources.Record, 0, len(s.records))
	for _, id := range sortedKeys(s.records) {
		out = append(out, s.records[id])
	}
	return out
}

// IDs returns the set of ids currently held.
func (s *Source) IDs() mapset.Set[string] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := mapset.NewThreadUnsafeSetWithSize[string](len(s.records))
	for id := range s.records {
		ids.Add(id)
	}
	return ids
}

// index stamps category and origin onto items and keys them by id.
func (s *Source) index(items []resources.Record) map[string]resources.Record {
	incoming := make(map[string]resources.Record, len(items))
	for _, r := range items {
		if r.ID == "" {
			continue
		}
		r.Category = s.category
		r.Origin = s.origin
		incoming[r.ID] = r
	}
	return incoming
}

// upsert must be called with s.mu held.
func (s *Source) upsert(cs *Changeset, r resources.Record, eq EqualityPolicy) {
	existing, exists := s.records[r.ID]
	switch {
	case !exists:
		cs.Added = append(cs.Added, r)
		s.records[r.ID] = r
	case !eq(existing, r):
		cs.Updated = append(cs.Updated, RecordUpdate{Existing: existing, New: r})
		s.records[r.ID] = r
	}
}

func (s *Source) newChangeset() *Changeset {
	return &Changeset{Category: s.category, Origin: s.origin}
}

func (s *Source) notify(cs *Changeset) {
	if !cs.HasChanges() {
		return
	}
	s.subsMu.RLock()
	subs := slices.Clone(s.subs)
	s.subsMu.RUnlock()
	for _, fn := range subs {
		fn(cs)
	}
}

func sortedKeys(m map[string]resources.Record) []string {
	return slices.Sorted(maps.Keys(m))
}

func sortChangeset(cs *Changeset) {
	slices.SortFunc(cs.Removed, func(a, b resources.Record) int {
		return strings.Compare(a.ID, b.ID)
	})
}
