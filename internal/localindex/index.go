// Package localindex discovers model files available on the local machine
// and signals when that set changes.
package localindex

import (
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/agentstation/enginelink/pkg/errors"
	"github.com/agentstation/enginelink/pkg/resources"
)

// Index is the local filesystem index consumed by the connection controller.
type Index interface {
	// List returns the names of the local options of a category.
	List(category resources.Category) []string
	// Changes delivers a signal whenever the index contents changed.
	Changes() <-chan struct{}
}

// ModelExtensions are the file extensions treated as model files.
var ModelExtensions = []string{".safetensors", ".ckpt", ".pt", ".pth", ".bin", ".gguf", ".onnx", ".sft"}

func isModelFile(name string) bool {
	return slices.Contains(ModelExtensions, strings.ToLower(filepath.Ext(name)))
}

// FSIndex indexes a models directory laid out with one folder per category,
// using the folder names of resources.Info.
type FSIndex struct {
	root    string
	changes chan struct{}

	mu      sync.RWMutex
	entries map[resources.Category][]string
}

// NewFSIndex creates an index of root. Call Scan to populate it.
func NewFSIndex(root string) *FSIndex {
	return &FSIndex{
		root:    root,
		changes: make(chan struct{}, 1),
		entries: make(map[resources.Category][]string),
	}
}

// Root returns the indexed directory.
func (i *FSIndex) Root() string {
	return i.root
}

// List implements Index.
func (i *FSIndex) List(category resources.Category) []string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return slices.Clone(i.entries[category])
}

// Changes implements Index.
func (i *FSIndex) Changes() <-chan struct{} {
	return i.changes
}

// Scan rescans the models directory and signals Changes if the contents
// differ from the previous scan. It reports whether they did.
func (i *FSIndex) Scan() (bool, error) {
	if _, err := os.Stat(i.root); err != nil {
		return false, errors.WrapIO("scan", i.root, err)
	}

	next := make(map[resources.Category][]string)
	for _, c := range resources.Categories() {
		names, err := i.scanCategory(c)
		if err != nil {
			return false, err
		}
		if len(names) > 0 {
			next[c] = names
		}
	}

	i.mu.Lock()
	changed := !maps.EqualFunc(i.entries, next, slices.Equal[[]string])
	i.entries = next
	i.mu.Unlock()

	if changed {
		signal(i.changes)
	}
	return changed, nil
}

func (i *FSIndex) scanCategory(c resources.Category) ([]string, error) {
	seen := make(map[string]struct{})
	for _, folder := range resources.InfoFor(c).Folders {
		dir := filepath.Join(i.root, folder)
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			continue
		}
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != dir && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if !isModelFile(d.Name()) {
				return nil
			}
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			seen[filepath.ToSlash(rel)] = struct{}{}
			return nil
		})
		if err != nil {
			return nil, errors.WrapIO("scan", dir, err)
		}
	}
	return slices.Sorted(maps.Keys(seen)), nil
}

// dirs returns the existing directories a watcher must observe.
func (i *FSIndex) dirs() []string {
	dirs := []string{i.root}
	for _, c := range resources.Categories() {
		for _, folder := range resources.InfoFor(c).Folders {
			dir := filepath.Join(i.root, folder)
			_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return filepath.SkipDir
				}
				if d.IsDir() {
					dirs = append(dirs, path)
				}
				return nil
			})
		}
	}
	return dirs
}

// signal performs a non-blocking send. A pending signal already covers
// the new change.
func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Static is an in-memory index, for tests and for hosts without a models directory.
type Static struct {
	changes chan struct{}

	mu      sync.RWMutex
	entries map[resources.Category][]string
}

// NewStatic creates an in-memory index with initial contents.
func NewStatic(entries map[resources.Category][]string) *Static {
	s := &Static{
		changes: make(chan struct{}, 1),
		entries: make(map[resources.Category][]string, len(entries)),
	}
	for c, names := range entries {
		s.entries[c] = slices.Clone(names)
	}
	return s
}

// List implements Index.
func (s *Static) List(category resources.Category) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.entries[category])
}

// Changes implements Index.
func (s *Static) Changes() <-chan struct{} {
	return s.changes
}

// Set replaces the names of one category and signals Changes.
func (s *Static) Set(category resources.Category, names ...string) {
	s.mu.Lock()
	s.entries[category] = slices.Clone(names)
	s.mu.Unlock()
	signal(s.changes)
}
