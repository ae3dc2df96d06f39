package preprocess

import "errors"

// Preprocessing errors.
//
// Only the index itself is load-critical: a missing or unreadable index
// aborts the run, while individual artifact failures are tallied in the
// filtering stats and skipped.
var (
	// ErrIndexNotFound is returned when the crawl index file does not exist.
	ErrIndexNotFound = errors.New("crawl index not found")

	// ErrIndexMalformed is returned when the crawl index cannot be parsed.
	ErrIndexMalformed = errors.New("crawl index malformed")
)
