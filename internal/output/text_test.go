package output

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/ccr/internal/order"
	"github.com/dshills/ccr/internal/rules"
)

func sampleListing() *Listing {
	return &Listing{
		RulesDir: ".cleancoderules",
		Rules: []rules.Summary{
			{Name: "base", Level: rules.LevelBase, LevelName: "Base", Tags: []string{}, Order: order.Unlisted, Source: ".cleancoderules/base.yml", Structured: true},
			{Name: "python", Level: rules.LevelTeam, LevelName: "Team", Language: "python", Tags: []string{"style", "naming"}, Order: 2, Source: ".cleancoderules/team/python.md"},
		},
	}
}

func sampleOrder() *OrderListing {
	return &OrderListing{
		Path: ".cleancoderules/order.yml",
		Entries: []order.Entry{
			{Category: "community", ID: "google/python", Order: 1},
			{Category: "team", ID: "example", Order: 1},
			{Category: "team", ID: "security", Order: 2},
		},
	}
}

func TestTextWriter_Rules(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).WriteRules(&buf, sampleListing()))

	out := buf.String()
	assert.Contains(t, out, "Rules in .cleancoderules: 2")
	assert.Contains(t, out, "Name")
	assert.Contains(t, out, "1 Base")
	assert.Contains(t, out, "3 Team")
	assert.Contains(t, out, "style, naming")
	assert.Contains(t, out, "yaml")
	assert.Contains(t, out, "markdown")
	assert.NotContains(t, out, "1000")
}

func TestTextWriter_NoRules(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).WriteRules(&buf, &Listing{RulesDir: "rules", Query: "sec"}))
	assert.Contains(t, buf.String(), `Rules in rules matching "sec": 0`)
	assert.Contains(t, buf.String(), "ccr init")
}

func TestTextWriter_Rule(t *testing.T) {
	d := &Detail{
		Summary: rules.Summary{Name: "python", Level: rules.LevelTeam, LevelName: "Team", Order: order.Unlisted, Source: "team/python.yml", Structured: true},
		Body:    "naming: snake_case\n",
	}
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).WriteRule(&buf, d))

	out := buf.String()
	assert.Contains(t, out, "Name:     python\n")
	assert.Contains(t, out, "Level:    3 (Team)\n")
	assert.Contains(t, out, "Order:    -\n")
	assert.Contains(t, out, "Language: -\n")
	assert.Contains(t, out, "Format:   yaml\n")
	assert.Contains(t, out, "naming: snake_case\n")
}

func TestTextWriter_Order(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextWriter{}).WriteOrder(&buf, sampleOrder()))
	out := buf.String()
	assert.Contains(t, out, "Order file: .cleancoderules/order.yml")
	assert.Contains(t, out, "google/python")
	assert.Contains(t, out, "security")

	buf.Reset()
	require.NoError(t, (&TextWriter{}).WriteOrder(&buf, &OrderListing{Path: "order.yml"}))
	assert.Contains(t, buf.String(), "No ordered rules.")
}

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestTextWriter_PropagatesWriteError(t *testing.T) {
	err := (&TextWriter{}).WriteRule(failWriter{}, &Detail{Body: "x"})
	assert.EqualError(t, err, "disk full")

	err = (&TextWriter{}).WriteRules(failWriter{}, sampleListing())
	assert.EqualError(t, err, "disk full")

	err = (&TextWriter{}).WriteOrder(failWriter{}, sampleOrder())
	assert.EqualError(t, err, "disk full")
}

func TestGetWriter(t *testing.T) {
	for format, want := range map[string]Writer{
		"":         &TextWriter{},
		"text":     &TextWriter{},
		"json":     &JSONWriter{},
		"markdown": &MarkdownWriter{},
		"md":       &MarkdownWriter{},
	} {
		w, err := GetWriter(format)
		require.NoError(t, err, format)
		assert.IsType(t, want, w, format)
	}

	_, err := GetWriter("sarif")
	assert.EqualError(t, err, "unsupported output format: sarif")
}
