// Package report renders aggregated analysis results in several output
// formats.
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output:
//   - SimpleWriter: human-readable text for terminal display
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with tables and charts for sharing
package report
