package rules

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/chainguard-dev/clog"

	"github.com/dshills/ccr/internal/order"
)

// DefaultDir is the rules directory name looked up in a project root.
const DefaultDir = ".cleancoderules"

// ErrNotFound is returned by lookups that match no rule.
var ErrNotFound = errors.New("rule not found")

const (
	prosePattern      = "**/*.md"
	structuredPattern = "**/*.{yml,yaml}"
)

// reservedNames are files that are never rules, at any depth of the rules
// directory.
var reservedNames = map[string]bool{
	"order.yml":   true,
	"order.yaml":  true,
	"config.yml":  true,
	"config.yaml": true,
}

// Engine loads and merges the rules of one directory.
type Engine struct {
	dir    string
	rules  []*Rule
	loaded bool
}

// New returns an engine for dir. Nothing is read until first use.
func New(dir string) *Engine {
	return &Engine{dir: dir}
}

// Dir returns the rules directory.
func (e *Engine) Dir() string {
	return e.dir
}

// Rules returns the loaded collection, scanning the directory on first call.
func (e *Engine) Rules(ctx context.Context) []*Rule {
	if !e.loaded {
		e.Load(ctx)
	}
	return e.rules
}

// Reload discards the collection and scans again.
func (e *Engine) Reload(ctx context.Context) []*Rule {
	e.rules = nil
	e.loaded = false
	return e.Load(ctx)
}

// Load scans the rules directory and replaces the collection. A missing
// directory and unparsable files are logged, never returned as errors.
func (e *Engine) Load(ctx context.Context) []*Rule {
	log := clog.FromContext(ctx)
	e.rules = nil
	e.loaded = true

	info, err := os.Stat(e.dir)
	if err != nil || !info.IsDir() {
		log.Warnf("Rules directory not found: %s", e.dir)
		return e.rules
	}

	store := order.Open(ctx, e.dir)
	files := e.candidates(ctx)

	stems := make([]string, 0, len(files))
	for stem := range files {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	for _, stem := range stems {
		rel := files[stem]
		r := e.loadFile(ctx, rel)
		if r == nil {
			continue
		}
		category := categoryFor(rel)
		r.Order = store.Value(category, orderKey(rel, category))
		e.rules = append(e.rules, r)
		log.Debugf("Loaded rule: %s from %s", r.Name, r.Source)
	}

	slices.SortFunc(e.rules, compareRules)
	log.Infof("Loaded %d rules from %s", len(e.rules), e.dir)
	return e.rules
}

// candidates maps each path stem to the file that will be loaded for it.
// Prose files go in first so a structured file with the same stem replaces
// its prose twin.
func (e *Engine) candidates(ctx context.Context) map[string]string {
	log := clog.FromContext(ctx)
	fsys := os.DirFS(e.dir)
	files := make(map[string]string)

	for _, pattern := range []string{prosePattern, structuredPattern} {
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			log.Warnf("Scanning %s for %s: %v", e.dir, pattern, err)
			continue
		}
		for _, rel := range matches {
			if reserved(rel) {
				continue
			}
			files[strings.TrimSuffix(rel, path.Ext(rel))] = rel
		}
	}
	return files
}

func reserved(rel string) bool {
	name := strings.ToLower(path.Base(rel))
	return name == "readme.md" || reservedNames[name]
}

func (e *Engine) loadFile(ctx context.Context, rel string) *Rule {
	log := clog.FromContext(ctx)
	full := filepath.Join(e.dir, filepath.FromSlash(rel))

	data, err := os.ReadFile(full)
	if err != nil {
		log.Warnf("Cannot read rule file %s: %v", full, err)
		return nil
	}
	r, err := Parse(ctx, full, data)
	if err != nil {
		log.Warnf("Skipping rule file: %v", err)
		return nil
	}

	inferred := inferLevel(rel)
	switch {
	case r.Level == 0:
		r.Level = inferred
	case r.Level != inferred:
		log.Warnf("Rule %s declares level %d but its location implies level %d; using the declared level",
			full, r.Level, inferred)
	}
	return r
}

// inferLevel maps a slash-separated path relative to the rules directory to
// a level: a root file named base is level 1, anything under community/ is
// level 2, under team/ level 3, and everything else falls back to level 2.
func inferLevel(rel string) Level {
	parts := strings.Split(rel, "/")
	if len(parts) == 1 {
		if strings.EqualFold(strings.TrimSuffix(parts[0], path.Ext(parts[0])), "base") {
			return LevelBase
		}
		return LevelCommunity
	}
	switch strings.ToLower(parts[0]) {
	case order.CategoryTeam:
		return LevelTeam
	default:
		return LevelCommunity
	}
}

// categoryFor returns the order store category for a rule file.
func categoryFor(rel string) string {
	first, _, nested := strings.Cut(rel, "/")
	if nested && strings.EqualFold(first, order.CategoryTeam) {
		return order.CategoryTeam
	}
	return order.CategoryCommunity
}

// orderKey is the identifier a rule is listed under in the order store: its
// relative path without the category directory and without extension.
func orderKey(rel, category string) string {
	key := strings.TrimSuffix(rel, path.Ext(rel))
	if first, rest, ok := strings.Cut(key, "/"); ok && strings.EqualFold(first, category) {
		return rest
	}
	return key
}

// OrderRef returns the order store category and identifier of a rule loaded
// by this engine.
func (e *Engine) OrderRef(r *Rule) (category, id string, err error) {
	rel, err := filepath.Rel(e.dir, r.Source)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("rule %s is outside %s", r.Source, e.dir)
	}
	rel = filepath.ToSlash(rel)
	category = categoryFor(rel)
	return category, orderKey(rel, category), nil
}

// Select returns the loaded rules matching language and tags.
func (e *Engine) Select(ctx context.Context, language string, tags []string) []*Rule {
	return Select(e.Rules(ctx), language, tags)
}

// ForLanguage returns universal rules plus rules for language.
func (e *Engine) ForLanguage(ctx context.Context, language string) []*Rule {
	return Select(e.Rules(ctx), language, nil)
}

// ByTags returns rules carrying any of tags, or every rule if tags is empty.
func (e *Engine) ByTags(ctx context.Context, tags []string) []*Rule {
	return Select(e.Rules(ctx), "", tags)
}

// Lookup finds a rule by name, ignoring case.
func (e *Engine) Lookup(ctx context.Context, name string) (*Rule, error) {
	for _, r := range e.Rules(ctx) {
		if strings.EqualFold(r.Name, name) {
			return r, nil
		}
	}
	return nil, ErrNotFound
}

// Summaries lists every loaded rule.
func (e *Engine) Summaries(ctx context.Context) []Summary {
	rs := e.Rules(ctx)
	out := make([]Summary, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Summarize())
	}
	return out
}

// Merge merges the loaded rules. See [Merge].
func (e *Engine) Merge(ctx context.Context, opts MergeOptions) (string, error) {
	return Merge(e.Rules(ctx), opts)
}
