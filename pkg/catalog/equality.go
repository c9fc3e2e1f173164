package catalog

import "github.com/agentstation/enginelink/pkg/resources"

// EqualityPolicy decides whether an incoming record leaves an existing
// record with the same id unchanged. Policies must be reflexive.
type EqualityPolicy func(existing, incoming resources.Record) bool

// EqualByID treats any two records with the same id as equal, so a record
// that moves between origins or changes rank produces no event.
func EqualByID(existing, incoming resources.Record) bool {
	return existing.ID == incoming.ID
}

// EqualStrict compares every field.
func EqualStrict(existing, incoming resources.Record) bool {
	return existing == incoming
}

// EqualIgnoringOrigin compares every field except the origin.
func EqualIgnoringOrigin(existing, incoming resources.Record) bool {
	incoming.Origin = existing.Origin
	return existing == incoming
}

// ConflictPolicy resolves an id present in both the current contents and an
// additive merge input.
type ConflictPolicy int

const (
	// Overwrite replaces the existing record when the equality policy says it differs.
	Overwrite ConflictPolicy = iota
	// KeepExisting leaves the existing record in place.
	KeepExisting
)

// String returns the string representation of a conflict policy.
func (p ConflictPolicy) String() string {
	if p == KeepExisting {
		return "keep-existing"
	}
	return "overwrite"
}

// Combine appends extra to base in memory, resolving ids present in both
// with the conflict policy. Ranks of extra records continue after base.
func Combine(base, extra []resources.Record, conflict ConflictPolicy) []resources.Record {
	out := make([]resources.Record, 0, len(base)+len(extra))
	index := make(map[string]int, len(base)+len(extra))
	for _, r := range base {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}

	next := 0
	for _, r := range out {
		if r.Rank >= next {
			next = r.Rank + 1
		}
	}
	for _, r := range extra {
		r.Rank += next
		if i, ok := index[r.ID]; ok {
			if conflict == Overwrite {
				r.Rank = out[i].Rank
				out[i] = r
			}
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
