package output

import (
	"fmt"
	"io"
	"os"

	"github.com/dshills/ccr/internal/order"
	"github.com/dshills/ccr/internal/rules"
)

// Listing is a set of rule summaries read from one rules directory.
type Listing struct {
	RulesDir string          `json:"rulesDir"`
	Query    string          `json:"query,omitempty"`
	Rules    []rules.Summary `json:"rules"`
}

// OrderListing is the content of an order file.
type OrderListing struct {
	Path    string        `json:"path"`
	Entries []order.Entry `json:"entries"`
}

// Detail is a single rule with its body.
type Detail struct {
	rules.Summary
	Metadata map[string]any `json:"metadata,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
	Content  string         `json:"content,omitempty"`

	// Body is the rule as it reads on disk: YAML for structured rules, the
	// prose text otherwise.
	Body string `json:"-"`
}

// NewDetail builds a Detail for r.
func NewDetail(r *rules.Rule) (*Detail, error) {
	d := &Detail{
		Summary:  r.Summarize(),
		Metadata: r.Metadata,
		Content:  r.Content,
		Body:     r.Content,
	}
	if r.Structured {
		data, err := r.Decode()
		if err != nil {
			return nil, err
		}
		d.Data = data
		body, err := rules.EncodeYAML(r.Data)
		if err != nil {
			return nil, err
		}
		d.Body = body
	}
	return d, nil
}

// Writer writes rule listings in a specific format.
type Writer interface {
	WriteRules(w io.Writer, l *Listing) error
	WriteRule(w io.Writer, d *Detail) error
	WriteOrder(w io.Writer, l *OrderListing) error
}

// GetWriter returns a writer for the specified format.
func GetWriter(format string) (Writer, error) {
	switch format {
	case "text", "":
		return &TextWriter{}, nil
	case "json":
		return &JSONWriter{}, nil
	case "markdown", "md":
		return &MarkdownWriter{}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteFile writes data to outPath.
func WriteFile(outPath, data string) error {
	if err := os.WriteFile(outPath, []byte(data), 0o644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
