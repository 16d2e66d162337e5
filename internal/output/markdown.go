package output

import (
	"io"
	"strings"
)

// MarkdownWriter outputs listings as markdown tables for docs and PR comments.
type MarkdownWriter struct{}

func (m *MarkdownWriter) WriteRules(w io.Writer, l *Listing) error {
	ew := &errWriter{w: w}
	ew.printf("## Coding Rules\n\n")
	ew.printf("Source: `%s`", l.RulesDir)
	if l.Query != "" {
		ew.printf(" | Filter: `%s`", l.Query)
	}
	ew.printf("\n\n")

	if len(l.Rules) == 0 {
		ew.println("No rules found.")
		return ew.err
	}

	ew.println("| Name | Level | Order | Language | Tags |")
	ew.println("|------|-------|-------|----------|------|")
	for _, s := range l.Rules {
		ew.printf("| %s | %d %s | %s | %s | %s |\n",
			mdEscape(s.Name), s.Level, s.LevelName, orderCell(s.Order),
			dash(s.Language), mdEscape(dash(strings.Join(s.Tags, ", "))))
	}
	return ew.err
}

func (m *MarkdownWriter) WriteRule(w io.Writer, d *Detail) error {
	ew := &errWriter{w: w}
	ew.printf("## %s\n\n", d.Name)
	ew.printf("**Level %d** (%s) | Order: %s | Language: %s\n\n",
		d.Level, d.LevelName, orderCell(d.Order), dash(d.Language))
	if len(d.Tags) > 0 {
		ew.printf("Tags: %s\n\n", "`"+strings.Join(d.Tags, "`, `")+"`")
	}
	if d.Structured {
		ew.printf("```yaml\n%s", d.Body)
		if !strings.HasSuffix(d.Body, "\n") {
			ew.println("")
		}
		ew.println("```")
	} else {
		ew.println(d.Body)
	}
	ew.printf("\n*Source: `%s`*\n", d.Source)
	return ew.err
}

func (m *MarkdownWriter) WriteOrder(w io.Writer, l *OrderListing) error {
	ew := &errWriter{w: w}
	ew.printf("## Rule Order\n\n")
	var current string
	for _, e := range l.Entries {
		if e.Category != current {
			if current != "" {
				ew.println("")
			}
			current = e.Category
			ew.printf("### %s\n\n", e.Category)
		}
		ew.printf("%d. %s\n", e.Order, mdEscape(e.ID))
	}
	if len(l.Entries) == 0 {
		ew.println("No ordered rules.")
	}
	return ew.err
}

func mdEscape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
