// Package model defines the core data structures shared across the
// frequency-analysis pipeline: site records, the corpus, analysis options,
// pattern tables, analyzer results, and the aggregated output handed to
// the reporting layer.
package model
