package resources

import (
	"strings"

	"golang.org/x/text/cases"
)

// Origin says where a record came from. Lower values take precedence.
type Origin int

const (
	// Local records were found by the local filesystem index.
	Local Origin = iota
	// Remote records were reported by the connected backend.
	Remote
	// DownloadableDefault records come from the curated defaults catalog.
	DownloadableDefault
	// Placeholder records are sentinel options such as "None".
	Placeholder
)

// String returns the string representation of an origin.
func (o Origin) String() string {
	switch o {
	case Local:
		return "local"
	case Remote:
		return "remote"
	case DownloadableDefault:
		return "downloadable"
	case Placeholder:
		return "placeholder"
	default:
		return "unknown"
	}
}

// Origins returns all origins in precedence order.
func Origins() []Origin {
	return []Origin{Local, Remote, DownloadableDefault, Placeholder}
}

// displayRank orders origins inside a view sorted by origin: sentinel
// options first, then what is usable now, then what could be downloaded.
func (o Origin) displayRank() int {
	switch o {
	case Placeholder:
		return 0
	case Local:
		return 1
	case Remote:
		return 2
	default:
		return 3
	}
}

// Record describes one selectable option of a category.
type Record struct {
	ID          string   `json:"id" yaml:"id"`
	DisplayName string   `json:"display_name" yaml:"display_name"`
	SortKey     string   `json:"sort_key" yaml:"sort_key"`
	Origin      Origin   `json:"origin" yaml:"origin"`
	Category    Category `json:"category" yaml:"category"`
	Rank        int      `json:"rank" yaml:"rank"`
	Path        string   `json:"path,omitempty" yaml:"path,omitempty"`
	DownloadURL string   `json:"download_url,omitempty" yaml:"download_url,omitempty"`
}

// FoldKey returns the case-folded sort key of a display name.
// A Caser keeps state, so one is created per call.
func FoldKey(name string) string {
	return cases.Fold().String(name)
}

// NormalizeName makes backend and filesystem names comparable.
func NormalizeName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
}

// RecordID derives the stable id of a named option in a category.
func RecordID(c Category, name string) string {
	return string(c) + "/" + NormalizeName(name)
}

// NewRecord creates a record for a named option.
func NewRecord(c Category, origin Origin, name string) Record {
	n := NormalizeName(name)
	return Record{
		ID:          RecordID(c, n),
		DisplayName: n,
		SortKey:     FoldKey(n),
		Origin:      origin,
		Category:    c,
	}
}

// NewRecords creates ranked records from an ordered listing.
func NewRecords(c Category, origin Origin, names ...string) []Record {
	records := make([]Record, 0, len(names))
	for i, name := range names {
		if NormalizeName(name) == "" {
			continue
		}
		r := NewRecord(c, origin, name)
		r.Rank = i
		records = append(records, r)
	}
	return records
}

// Placeholders returns the sentinel records of a category.
func Placeholders(c Category) []Record {
	return NewRecords(c, Placeholder, InfoFor(c).Placeholders...)
}

// Less orders two records of the same category for display:
// primary key by the category sort mode, then SortKey, then ID.
func Less(mode SortMode, a, b Record) bool {
	if pa, pb := primaryKey(mode, a), primaryKey(mode, b); pa != pb {
		return pa < pb
	}
	if a.SortKey != b.SortKey {
		return a.SortKey < b.SortKey
	}
	return a.ID < b.ID
}

func primaryKey(mode SortMode, r Record) int {
	if mode == SortByRank {
		// placeholders still lead
		if r.Origin == Placeholder {
			return -1
		}
		return r.Rank
	}
	return r.Origin.displayRank()
}
