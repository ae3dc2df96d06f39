package report

import (
	"io"

	"github.com/nao1215/cmsfreq/internal/model"
)

// Writer defines the interface for report output. Implementations render
// aggregated analysis results to files, stdout, or network connections
// with the same API.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(results *model.AggregatedResults) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously, typically both
// terminal and file. Our Writer interface writes reports rather than raw
// bytes, so io.MultiWriter cannot serve here.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(results *model.AggregatedResults) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(results)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
