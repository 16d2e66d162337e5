package rules

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Level is a rule's priority tier. Higher levels override lower ones.
type Level int

const (
	LevelBase      Level = 1
	LevelCommunity Level = 2
	LevelTeam      Level = 3
)

// String returns the human-readable level name.
func (l Level) String() string {
	switch l {
	case LevelBase:
		return "Base"
	case LevelCommunity:
		return "Community"
	case LevelTeam:
		return "Team"
	default:
		return "Unknown"
	}
}

// Valid reports whether l is one of the three known tiers.
func (l Level) Valid() bool {
	return l >= LevelBase && l <= LevelTeam
}

// Rule is a single coding-standard unit.
type Rule struct {
	// Name identifies the rule within a merge. Defaults to the file's base
	// name without extension.
	Name string

	// Data is the structured body: a YAML mapping node with _meta removed.
	// Nil for prose rules.
	Data *yaml.Node

	// Content is the prose body, trimmed. Empty for structured rules.
	Content string

	Level Level

	// Order breaks ties within a level. It always comes from the order store.
	Order int

	// Language restricts the rule to one language. Empty means universal.
	Language string

	Tags []string

	// Source is the file the rule was read from.
	Source string

	Structured bool

	// Metadata is the raw _meta mapping or prose frontmatter, for display.
	Metadata map[string]any
}

// MatchesLanguage reports whether the rule applies to language. Universal
// rules match everything, and an empty language matches every rule.
func (r *Rule) MatchesLanguage(language string) bool {
	if r.Language == "" || language == "" {
		return true
	}
	return strings.EqualFold(r.Language, language)
}

// HasTag reports whether the rule carries tag, ignoring case.
func (r *Rule) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// HasAnyTag reports whether the rule carries at least one of tags.
func (r *Rule) HasAnyTag(tags []string) bool {
	for _, t := range tags {
		if r.HasTag(t) {
			return true
		}
	}
	return false
}

// Decode returns the structured body as plain Go values. It returns nil for
// prose rules.
func (r *Rule) Decode() (map[string]any, error) {
	if r.Data == nil {
		return nil, nil
	}
	m := map[string]any{}
	if err := r.Data.Decode(&m); err != nil {
		return nil, fmt.Errorf("decoding rule %s: %w", r.Name, err)
	}
	return m, nil
}

// Summary is the listing view of a rule.
type Summary struct {
	Name       string   `json:"name"`
	Level      Level    `json:"level"`
	LevelName  string   `json:"levelName"`
	Language   string   `json:"language,omitempty"`
	Tags       []string `json:"tags"`
	Order      int      `json:"order"`
	Source     string   `json:"source"`
	Structured bool     `json:"structured"`
}

// Summarize returns the listing view of r.
func (r *Rule) Summarize() Summary {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return Summary{
		Name:       r.Name,
		Level:      r.Level,
		LevelName:  r.Level.String(),
		Language:   r.Language,
		Tags:       tags,
		Order:      r.Order,
		Source:     r.Source,
		Structured: r.Structured,
	}
}
