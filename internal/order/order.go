package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"

	"github.com/chainguard-dev/clog"
	"gopkg.in/yaml.v3"
)

const (
	// FileName is the order file inside the rules directory.
	FileName = "order.yml"

	// Unlisted is the order value of a rule absent from its category list.
	Unlisted = 1000

	CategoryCommunity = "community"
	CategoryTeam      = "team"
)

const fileHeader = `# Rule ordering - position determines priority
# Later in list = higher priority = overrides earlier

`

// Categories lists the known categories in the order they are written.
var Categories = []string{CategoryCommunity, CategoryTeam}

// Entry is one listed rule with its computed order value.
type Entry struct {
	Category string `json:"category"`
	ID       string `json:"id"`
	Order    int    `json:"order"`
}

// Store holds the ordering for one rules directory.
type Store struct {
	path  string
	order map[string][]string
}

// Open loads the order file under rulesDir. It never fails: an absent or
// corrupt file yields an empty ordering for every known category.
func Open(ctx context.Context, rulesDir string) *Store {
	s := &Store{path: filepath.Join(rulesDir, FileName)}
	s.order = s.Load(ctx)
	return s
}

// Path returns the order file location.
func (s *Store) Path() string {
	return s.path
}

func defaultOrder() map[string][]string {
	m := make(map[string][]string, len(Categories))
	for _, c := range Categories {
		m[c] = []string{}
	}
	return m
}

// Load reads the order file from disk without touching the in-memory state.
func (s *Store) Load(ctx context.Context) map[string][]string {
	log := clog.FromContext(ctx).With("path", s.path)
	result := defaultOrder()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warnf("Cannot read order file, using empty ordering: %v", err)
		}
		return result
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		log.Warnf("Order file is corrupt, custom ordering ignored: %v", err)
		return result
	}

	for _, c := range Categories {
		v, ok := raw[c]
		if !ok || v == nil {
			continue
		}
		items, ok := v.([]any)
		if !ok {
			log.Warnf("Order file category %q is not a list, ignoring it", c)
			continue
		}
		ids := make([]string, 0, len(items))
		for _, item := range items {
			id, ok := item.(string)
			if !ok {
				log.Warnf("Order file category %q has non-string entry %v, skipping it", c, item)
				continue
			}
			ids = append(ids, id)
		}
		result[c] = ids
	}
	return result
}

// Save writes the current ordering to disk.
func (s *Store) Save() error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range s.categories() {
		var seq yaml.Node
		ids := s.order[c]
		if ids == nil {
			ids = []string{}
		}
		if err := seq.Encode(ids); err != nil {
			return fmt.Errorf("encoding %s order: %w", c, err)
		}
		root.Content = append(root.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: c},
			&seq,
		)
	}

	var buf bytes.Buffer
	buf.WriteString(fileHeader)
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return fmt.Errorf("encoding order file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding order file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("creating rules directory: %w", err)
	}
	if err := os.WriteFile(s.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing order file: %w", err)
	}
	return nil
}

// categories returns known categories first, then any added at runtime in
// name order.
func (s *Store) categories() []string {
	out := slices.Clone(Categories)
	var extra []string
	for c := range s.order {
		if !slices.Contains(Categories, c) {
			extra = append(extra, c)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// Add appends id to category unless it is already listed. Adding an existing
// id is a no-op and does not rewrite the file.
func (s *Store) Add(category, id string) error {
	if slices.Contains(s.order[category], id) {
		return nil
	}
	s.order[category] = append(s.order[category], id)
	return s.Save()
}

// Remove deletes id from category. It reports whether anything was removed.
func (s *Store) Remove(category, id string) (bool, error) {
	ids := s.order[category]
	idx := slices.Index(ids, id)
	if idx < 0 {
		return false, nil
	}
	s.order[category] = slices.Delete(ids, idx, idx+1)
	return true, s.Save()
}

// MoveUp swaps id with its predecessor, lowering its priority. It reports
// false when id is missing or already first.
func (s *Store) MoveUp(category, id string) (bool, error) {
	return s.swap(category, id, -1)
}

// MoveDown swaps id with its successor, raising its priority. It reports
// false when id is missing or already last.
func (s *Store) MoveDown(category, id string) (bool, error) {
	return s.swap(category, id, 1)
}

func (s *Store) swap(category, id string, delta int) (bool, error) {
	ids := s.order[category]
	idx := slices.Index(ids, id)
	if idx < 0 {
		return false, nil
	}
	next := idx + delta
	if next < 0 || next >= len(ids) {
		return false, nil
	}
	ids[idx], ids[next] = ids[next], ids[idx]
	return true, s.Save()
}

// Value returns the 1-based position of id in category, or Unlisted.
func (s *Store) Value(category, id string) int {
	if idx := slices.Index(s.order[category], id); idx >= 0 {
		return idx + 1
	}
	return Unlisted
}

// List returns a copy of the ordering for category.
func (s *Store) List(category string) []string {
	return slices.Clone(s.order[category])
}

// Entries returns every listed rule across all categories.
func (s *Store) Entries() []Entry {
	var out []Entry
	for _, c := range s.categories() {
		for i, id := range s.order[c] {
			out = append(out, Entry{Category: c, ID: id, Order: i + 1})
		}
	}
	return out
}
