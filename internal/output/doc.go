// Package output formats rule listings for display or machine consumption.
//
// Three formats are supported:
//   - text: aligned tables for the terminal (default)
//   - json: indented JSON of the same data
//   - markdown: tables and fenced rule bodies for docs and PR comments
//
// Use [GetWriter] to obtain a [Writer] for a format string, then call one of
// its methods with an [io.Writer] and a [Listing], [Detail] or [OrderListing].
package output
