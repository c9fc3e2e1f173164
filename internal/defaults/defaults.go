// Package defaults holds the curated catalog of downloadable models offered
// when an option is neither available locally nor on the backend.
package defaults

import (
	_ "embed"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/resources"
)

//go:embed defaults.yaml
var embedded []byte

// Entry is one downloadable model.
type Entry struct {
	Name        string `yaml:"name" json:"name"`
	URL         string `yaml:"url" json:"url"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Catalog maps categories to their downloadable entries.
type Catalog struct {
	entries map[resources.Category][]Entry
}

// New creates a catalog from entries.
func New(entries map[resources.Category][]Entry) *Catalog {
	c := &Catalog{entries: make(map[resources.Category][]Entry, len(entries))}
	for category, list := range entries {
		c.entries[category] = append([]Entry(nil), list...)
	}
	return c
}

// Load returns the built-in catalog.
func Load() (*Catalog, error) {
	return Parse(embedded, "defaults.yaml")
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a YAML catalog keyed by category name.
func Parse(data []byte, file string) (*Catalog, error) {
	var raw map[string][]Entry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.WrapParse("yaml", file, err)
	}

	entries := make(map[resources.Category][]Entry, len(raw))
	for key, list := range raw {
		category, err := resources.ParseCategory(key)
		if err != nil {
			return nil, errors.NewParseError("yaml", file, err.Error(), err)
		}
		for _, e := range list {
			if e.Name == "" {
				return nil, errors.NewParseError("yaml", file, "entry of "+key+" has no name", nil)
			}
		}
		entries[category] = list
	}
	return &Catalog{entries: entries}, nil
}

// For returns the entries of a category.
func (c *Catalog) For(category resources.Category) []Entry {
	if c == nil {
		return nil
	}
	return append([]Entry(nil), c.entries[category]...)
}

// Records returns the entries of a category as downloadable records.
func (c *Catalog) Records(category resources.Category) []resources.Record {
	entries := c.For(category)
	records := make([]resources.Record, 0, len(entries))
	for i, e := range entries {
		r := resources.NewRecord(category, resources.DownloadableDefault, e.Name)
		r.Rank = i
		r.DownloadURL = e.URL
		records = append(records, r)
	}
	return records
}

// Len returns the total number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, list := range c.entries {
		n += len(list)
	}
	return n
}
