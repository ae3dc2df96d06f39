// Package aggregate orchestrates the analysis stages and folds their
// results into a single aggregated output. Two strategies produce the
// identical result shape: the progressive strategy threads an immutable
// stage context through the pipeline, while the legacy strategy wires
// stage dependencies through explicit typed calls.
package aggregate
