package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/dshills/ccr/internal/order"
)

// TextWriter outputs human-readable tables.
type TextWriter struct{}

func (t *TextWriter) WriteRules(w io.Writer, l *Listing) error {
	ew := &errWriter{w: w}

	ew.printf("Rules in %s", l.RulesDir)
	if l.Query != "" {
		ew.printf(" matching %q", l.Query)
	}
	ew.printf(": %d\n", len(l.Rules))
	if len(l.Rules) == 0 {
		ew.println("\nNo rules found. Run 'ccr init' to create a rules directory.")
		return ew.err
	}
	ew.println("")
	if ew.err != nil {
		return ew.err
	}

	table := newTable(w, []string{"Name", "Level", "Order", "Language", "Tags", "Format"})
	for _, s := range l.Rules {
		err := table.Append([]string{
			s.Name,
			fmt.Sprintf("%d %s", s.Level, s.LevelName),
			orderCell(s.Order),
			dash(s.Language),
			dash(strings.Join(s.Tags, ", ")),
			formatName(s.Structured),
		})
		if err != nil {
			return err
		}
	}
	return table.Render()
}

func (t *TextWriter) WriteRule(w io.Writer, d *Detail) error {
	ew := &errWriter{w: w}
	ew.printf("Name:     %s\n", d.Name)
	ew.printf("Level:    %d (%s)\n", d.Level, d.LevelName)
	ew.printf("Order:    %s\n", orderCell(d.Order))
	ew.printf("Language: %s\n", dash(d.Language))
	ew.printf("Tags:     %s\n", dash(strings.Join(d.Tags, ", ")))
	ew.printf("Format:   %s\n", formatName(d.Structured))
	ew.printf("Source:   %s\n", d.Source)
	ew.println(strings.Repeat("─", 60))
	ew.printf("%s", d.Body)
	if !strings.HasSuffix(d.Body, "\n") {
		ew.println("")
	}
	return ew.err
}

func (t *TextWriter) WriteOrder(w io.Writer, l *OrderListing) error {
	ew := &errWriter{w: w}
	ew.printf("Order file: %s\n\n", l.Path)
	if ew.err != nil {
		return ew.err
	}
	if len(l.Entries) == 0 {
		ew.println("No ordered rules. Rules sort by level and name.")
		return ew.err
	}

	table := newTable(w, []string{"Category", "Position", "Rule"})
	for _, e := range l.Entries {
		if err := table.Append([]string{e.Category, strconv.Itoa(e.Order), e.ID}); err != nil {
			return err
		}
	}
	return table.Render()
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	cfg := tablewriter.Config{
		Header: tw.CellConfig{
			Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			Formatting: tw.CellFormatting{AutoFormat: tw.Off},
		},
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{Global: tw.AlignLeft},
		},
		MaxWidth: 120,
		Behavior: tw.Behavior{TrimSpace: tw.Off},
	}
	return tablewriter.NewTable(w,
		tablewriter.WithConfig(cfg),
		tablewriter.WithHeader(headers),
		tablewriter.WithRenderer(renderer.NewBlueprint()),
		tablewriter.WithRendition(tw.Rendition{
			Symbols: tw.NewSymbols(tw.StyleMarkdown),
			Borders: tw.Border{
				Left:   tw.On,
				Top:    tw.Off,
				Right:  tw.On,
				Bottom: tw.Off,
			},
		}),
		tablewriter.WithRowAutoWrap(tw.WrapNone),
	)
}

func orderCell(n int) string {
	if n == order.Unlisted {
		return "-"
	}
	return strconv.Itoa(n)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatName(structured bool) string {
	if structured {
		return "yaml"
	}
	return "markdown"
}
