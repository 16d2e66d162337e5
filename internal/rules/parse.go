package rules

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/chainguard-dev/clog"
	"gopkg.in/yaml.v3"
)

// metaKey holds name, language and tags in structured rules.
const metaKey = "_meta"

var frontmatterPattern = regexp.MustCompile(`(?s)\A---[ \t]*\r?\n(.*?)\r?\n---[ \t]*(?:\r?\n|\z)`)

// IsStructured reports whether path names a structured rule file.
func IsStructured(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return true
	default:
		return false
	}
}

// tagList accepts either a single tag or a list of tags.
type tagList []string

func (t *tagList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		if n.ShortTag() == "!!null" {
			*t = nil
			return nil
		}
		*t = tagList{n.Value}
		return nil
	case yaml.SequenceNode:
		var s []string
		if err := n.Decode(&s); err != nil {
			return err
		}
		*t = s
		return nil
	default:
		return fmt.Errorf("line %d: tags must be a string or a list of strings", n.Line)
	}
}

type ruleMeta struct {
	Name     string  `yaml:"name"`
	Language string  `yaml:"language"`
	Tags     tagList `yaml:"tags"`
}

type frontmatter struct {
	ruleMeta `yaml:",inline"`
	Level    *yaml.Node `yaml:"level"`
}

// Parse builds a Rule from one file. The format is chosen by extension:
// .yml and .yaml are structured, everything else is prose.
//
// The returned rule has Level 0 unless a prose frontmatter block declared a
// valid level; the loader fills the rest in from the file location. Order is
// left at zero.
func Parse(ctx context.Context, path string, content []byte) (*Rule, error) {
	if IsStructured(path) {
		return parseStructured(path, content)
	}
	return parseProse(ctx, path, content), nil
}

func baseName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func parseStructured(path string, content []byte) (*Rule, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	root := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if doc.Kind == yaml.DocumentNode && len(doc.Content) > 0 {
		root = doc.Content[0]
	}
	if root.Kind == yaml.AliasNode && root.Alias != nil {
		root = root.Alias
	}
	switch {
	case root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null":
		root = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	case root.Kind != yaml.MappingNode:
		return nil, fmt.Errorf("parsing %s: top level must be a mapping", path)
	}
	// Decoding rejects self-referencing anchors and malformed merge keys.
	if err := root.Decode(new(any)); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	expandMergeKeys(root)

	var meta ruleMeta
	var raw map[string]any
	if metaNode := takeKey(root, metaKey); metaNode != nil {
		if err := metaNode.Decode(&meta); err != nil {
			return nil, fmt.Errorf("parsing %s %s: %w", path, metaKey, err)
		}
		if err := metaNode.Decode(&raw); err != nil {
			return nil, fmt.Errorf("parsing %s %s: %w", path, metaKey, err)
		}
	}

	r := &Rule{
		Name:       meta.Name,
		Data:       root,
		Language:   meta.Language,
		Tags:       meta.Tags,
		Source:     path,
		Structured: true,
		Metadata:   raw,
	}
	if r.Name == "" {
		r.Name = baseName(path)
	}
	return r, nil
}

// expandMergeKeys replaces every "<<" merge key under n with the entries it
// pulls in, so merging only ever sees plain keys. Keys written in the mapping
// win over merged ones, and earlier mappings in a merge list win over later
// ones.
func expandMergeKeys(n *yaml.Node) {
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.SequenceNode:
		for _, c := range n.Content {
			expandMergeKeys(c)
		}
		return
	case yaml.MappingNode:
	default:
		return
	}

	hasMerge := false
	seen := make(map[string]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		expandMergeKeys(n.Content[i+1])
		if k := n.Content[i]; isMergeKey(k) {
			hasMerge = true
		} else {
			seen[k.Value] = true
		}
	}
	if !hasMerge {
		return
	}

	out := make([]*yaml.Node, 0, len(n.Content))
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !isMergeKey(k) {
			out = append(out, k, v)
			continue
		}
		for _, src := range mergeSources(v) {
			for j := 0; j+1 < len(src.Content); j += 2 {
				sk := resolveAlias(src.Content[j])
				if seen[sk.Value] {
					continue
				}
				seen[sk.Value] = true
				out = append(out, cloneNode(sk), cloneNode(src.Content[j+1]))
			}
		}
	}
	n.Content = out
}

func isMergeKey(k *yaml.Node) bool {
	return k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge"
}

// mergeSources returns the mappings a merge key value refers to: one mapping
// or a list of them.
func mergeSources(v *yaml.Node) []*yaml.Node {
	v = resolveAlias(v)
	switch v.Kind {
	case yaml.MappingNode:
		return []*yaml.Node{v}
	case yaml.SequenceNode:
		var out []*yaml.Node
		for _, c := range v.Content {
			if c = resolveAlias(c); c.Kind == yaml.MappingNode {
				out = append(out, c)
			}
		}
		return out
	}
	return nil
}

// takeKey removes key from the mapping m and returns its value node.
func takeKey(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		k := m.Content[i]
		if k.Kind == yaml.ScalarNode && k.Value == key {
			v := m.Content[i+1]
			m.Content = append(m.Content[:i], m.Content[i+2:]...)
			return resolveAlias(v)
		}
	}
	return nil
}

func parseProse(ctx context.Context, path string, content []byte) *Rule {
	text := string(content)
	body := text

	var fm frontmatter
	var raw map[string]any
	if m := frontmatterPattern.FindStringSubmatchIndex(text); m != nil {
		block := text[m[2]:m[3]]
		err := yaml.Unmarshal([]byte(block), &raw)
		if err == nil {
			err = yaml.Unmarshal([]byte(block), &fm)
		}
		if err != nil {
			clog.FromContext(ctx).Warnf("Failed to parse frontmatter in %s, treating it as body: %v", path, err)
			fm, raw = frontmatter{}, nil
		} else {
			body = text[m[1]:]
		}
	}

	r := &Rule{
		Name:     fm.Name,
		Content:  strings.TrimSpace(body),
		Language: fm.Language,
		Tags:     fm.Tags,
		Source:   path,
		Metadata: raw,
	}
	if r.Name == "" {
		r.Name = baseName(path)
	}
	if fm.Level != nil {
		lvl, err := declaredLevel(fm.Level)
		if err != nil {
			clog.FromContext(ctx).Warnf("Ignoring level in %s: %v", path, err)
		} else {
			r.Level = lvl
		}
	}
	return r
}

var errBadLevel = errors.New("level must be 1, 2 or 3")

func declaredLevel(n *yaml.Node) (Level, error) {
	if n.Kind != yaml.ScalarNode || n.ShortTag() != "!!int" {
		return 0, fmt.Errorf("%w, got %q", errBadLevel, n.Value)
	}
	v, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("%w, got %q", errBadLevel, n.Value)
	}
	lvl := Level(v)
	if !lvl.Valid() {
		return 0, fmt.Errorf("%w, got %d", errBadLevel, v)
	}
	return lvl, nil
}
