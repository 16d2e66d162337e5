package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// JSONWriter outputs listings as indented JSON.
type JSONWriter struct{}

func (j *JSONWriter) WriteRules(w io.Writer, l *Listing) error {
	return writeJSON(w, l)
}

func (j *JSONWriter) WriteRule(w io.Writer, d *Detail) error {
	return writeJSON(w, d)
}

func (j *JSONWriter) WriteOrder(w io.Writer, l *OrderListing) error {
	return writeJSON(w, l)
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = w.Write(data)
	if err != nil {
		return fmt.Errorf("writing JSON: %w", err)
	}
	_, err = fmt.Fprintln(w)
	return err
}
