package config

import "errors"

// Configuration validation errors returned by Config.Validate().
// Package-level sentinel errors let callers use errors.Is() for
// programmatic handling while keeping human-readable messages.
var (
	// ErrNoIndexPath is returned when no crawl index path is specified.
	ErrNoIndexPath = errors.New("no crawl index specified: provide a path to index.json")

	// ErrInvalidMinOccurrences is returned when the occurrence threshold
	// is not positive. A threshold of zero would keep every singleton
	// pattern and drown the output in noise.
	ErrInvalidMinOccurrences = errors.New("invalid min occurrences: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid workers: must be positive")

	// ErrInvalidMaxExamples is returned when the example cap is negative.
	// Use 0 to disable examples entirely.
	ErrInvalidMaxExamples = errors.New("invalid max examples: must be non-negative")

	// ErrInvalidLastDays is returned when the trailing-window size is negative.
	ErrInvalidLastDays = errors.New("invalid last days: must be non-negative")

	// ErrInvalidStrategy is returned when the strategy name is not
	// "progressive" or "legacy".
	ErrInvalidStrategy = errors.New("invalid strategy: must be progressive or legacy")

	// ErrConflictingReportFormats is returned when both --json and
	// --markdown are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
