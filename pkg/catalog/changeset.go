// Package catalog provides the keyed record sets kept per (category, origin)
// and the merged, deterministically ordered view derived from them.
package catalog

import (
	"fmt"
	"strings"

	"github.com/agentstation/enginelink/pkg/resources"
)

// RecordUpdate represents a replaced record.
type RecordUpdate struct {
	Existing resources.Record
	New      resources.Record
}

// Changeset lists the change events produced by one mutation of a Source.
type Changeset struct {
	Category resources.Category
	Origin   resources.Origin
	Added    []resources.Record
	Updated  []RecordUpdate
	Removed  []resources.Record
}

// HasChanges reports whether the changeset contains any change.
func (c *Changeset) HasChanges() bool {
	return c != nil && (len(c.Added) > 0 || len(c.Updated) > 0 || len(c.Removed) > 0)
}

// Len returns the number of change events.
func (c *Changeset) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Added) + len(c.Updated) + len(c.Removed)
}

// String returns a short summary for logs.
func (c *Changeset) String() string {
	if !c.HasChanges() {
		return "no changes"
	}
	var parts []string
	if n := len(c.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("%d added", n))
	}
	if n := len(c.Updated); n > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", n))
	}
	if n := len(c.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	return strings.Join(parts, ", ")
}
