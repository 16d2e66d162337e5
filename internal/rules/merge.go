package rules

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	structuredHeader = "# Merged Coding Rules\n# Higher-level rules have already overridden lower-level rules.\n"
	legacyHeader     = "# --- Legacy Markdown Rules ---"
	conflictNote     = "---\n\n" +
		"**CONFLICT RESOLUTION:** If rules conflict, higher levels override lower levels. " +
		"Team rules (Level 3) always take precedence."
)

var levelHeadings = map[Level]string{
	LevelBase:      "## LEVEL 1: Base Principles",
	LevelCommunity: "## LEVEL 2: Community Rules",
	LevelTeam:      "## LEVEL 3: Team Rules (HIGHEST PRIORITY)",
}

// MergeOptions selects and orders the rules that go into a merge.
type MergeOptions struct {
	// Language keeps universal rules plus rules for this language. Empty
	// keeps everything.
	Language string

	// Tags keeps only rules carrying at least one of these tags. Empty
	// disables tag filtering.
	Tags []string

	// TagOrder re-sorts the selection by the position of each rule's first
	// matching tag in this list, then by order and name. Rules matching none
	// go last. The order store is not touched.
	TagOrder []string

	// UniversalOnly drops every rule bound to a language.
	UniversalOnly bool
}

// compareRules is the canonical collection order: level, order, lower-cased
// name. Source path settles the rare remaining tie so the order is total.
func compareRules(a, b *Rule) int {
	return cmp.Or(
		cmp.Compare(a.Level, b.Level),
		cmp.Compare(a.Order, b.Order),
		cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
		cmp.Compare(a.Source, b.Source),
	)
}

// Select filters rules by language and tags, keeping their relative order.
func Select(rules []*Rule, language string, tags []string) []*Rule {
	out := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		if !r.MatchesLanguage(language) {
			continue
		}
		if len(tags) > 0 && !r.HasAnyTag(tags) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func tagPosition(r *Rule, tagOrder []string) int {
	for i, t := range tagOrder {
		if r.HasTag(t) {
			return i
		}
	}
	return len(tagOrder)
}

// SortByTagOrder returns a copy of rules sorted by (first matching tag
// position, order, lower-cased name). Level is deliberately not part of the
// key: the caller is reprioritising by tag.
func SortByTagOrder(rules []*Rule, tagOrder []string) []*Rule {
	pos := make(map[*Rule]int, len(rules))
	for _, r := range rules {
		pos[r] = tagPosition(r, tagOrder)
	}
	out := slices.Clone(rules)
	slices.SortStableFunc(out, func(a, b *Rule) int {
		return cmp.Or(
			cmp.Compare(pos[a], pos[b]),
			cmp.Compare(a.Order, b.Order),
			cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
		)
	})
	return out
}

// Merge produces the merged rules document for the given rules, which must
// already be in collection order.
//
// If any structured rule survives the filters, the result is the field-level
// merge of all structured rules as YAML, followed by the prose rules as a
// legacy appendix. Otherwise the prose rules are concatenated under level
// headings. No surviving rules yields an empty string.
func Merge(rules []*Rule, opts MergeOptions) (string, error) {
	selected := Select(rules, opts.Language, opts.Tags)
	if opts.UniversalOnly {
		selected = slices.DeleteFunc(selected, func(r *Rule) bool { return r.Language != "" })
	}
	if len(opts.TagOrder) > 0 {
		selected = SortByTagOrder(selected, opts.TagOrder)
	}

	var structured, prose []*Rule
	for _, r := range selected {
		if r.Structured {
			structured = append(structured, r)
		} else {
			prose = append(prose, r)
		}
	}

	if len(structured) > 0 {
		return renderStructured(structured, prose)
	}
	return renderProse(prose), nil
}

// MergeStructured deep-merges the Data of rules in order, later rules
// winning, and returns the resulting mapping. Inputs are not modified.
func MergeStructured(rules []*Rule) *yaml.Node {
	acc := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, r := range rules {
		if r.Data == nil {
			continue
		}
		mergeMapping(acc, r.Data)
	}
	return acc
}

// mergeMapping merges src into dst. Mappings on both sides recurse; any other
// incoming value, lists included, replaces what dst had. Keys only in dst are
// kept. dst must own its nodes: everything taken from src is copied.
func mergeMapping(dst, src *yaml.Node) {
	for i := 0; i+1 < len(src.Content); i += 2 {
		key := resolveAlias(src.Content[i])
		val := resolveAlias(src.Content[i+1])

		j := findKey(dst, key)
		if j < 0 {
			dst.Content = append(dst.Content, cloneNode(key), cloneNode(val))
			continue
		}
		cur := dst.Content[j+1]
		if cur.Kind == yaml.MappingNode && val.Kind == yaml.MappingNode {
			mergeMapping(cur, val)
			continue
		}
		dst.Content[j+1] = cloneNode(val)
	}
}

func findKey(m *yaml.Node, key *yaml.Node) int {
	if key.Kind != yaml.ScalarNode {
		return -1
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		k := m.Content[i]
		if k.Kind == yaml.ScalarNode && k.Value == key.Value {
			return i
		}
	}
	return -1
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

// cloneNode deep-copies n with aliases expanded. Anchors and comments are
// dropped so fragments from different files can be emitted together.
func cloneNode(n *yaml.Node) *yaml.Node {
	n = resolveAlias(n)
	c := &yaml.Node{
		Kind:  n.Kind,
		Style: n.Style,
		Tag:   n.Tag,
		Value: n.Value,
	}
	if len(n.Content) > 0 {
		c.Content = make([]*yaml.Node, len(n.Content))
		for i, child := range n.Content {
			c.Content[i] = cloneNode(child)
		}
	}
	return c
}

// EncodeYAML renders a node as two-space indented YAML.
func EncodeYAML(n *yaml.Node) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return "", fmt.Errorf("encoding merged rules: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("encoding merged rules: %w", err)
	}
	return buf.String(), nil
}

func renderStructured(structured, prose []*Rule) (string, error) {
	body, err := EncodeYAML(MergeStructured(structured))
	if err != nil {
		return "", err
	}

	parts := []string{structuredHeader, body}
	if len(prose) > 0 {
		parts = append(parts, "", legacyHeader)
		for _, r := range prose {
			parts = append(parts, "\n## "+r.Name)
			if r.Language != "" {
				parts = append(parts, "Language: "+r.Language)
			}
			parts = append(parts, "", r.Content)
		}
	}
	return strings.Join(parts, "\n"), nil
}

func renderProse(rules []*Rule) string {
	byLevel := make(map[Level][]*Rule)
	for _, r := range rules {
		byLevel[r.Level] = append(byLevel[r.Level], r)
	}

	var parts []string
	for _, lvl := range []Level{LevelBase, LevelCommunity, LevelTeam} {
		group := byLevel[lvl]
		if len(group) == 0 {
			continue
		}
		parts = append(parts, levelHeadings[lvl])
		for _, r := range group {
			heading := "### " + r.Name
			if r.Language != "" {
				heading += " (" + r.Language + ")"
			}
			parts = append(parts, heading+"\n\n"+r.Content)
		}
	}
	if len(parts) > 0 {
		parts = append(parts, conflictNote)
	}
	return strings.Join(parts, "\n\n")
}
