// Package log provides logging functionality with automatic truncation of
// oversized values, built on top of the standard slog package.
//
// Analysis runs log crawl-derived values: header contents, script URLs,
// inline-script fingerprints, raw HTML fragments. These routinely run to
// kilobytes and would drown the useful parts of a log line. The
// TruncatingHandler caps every string attribute at a fixed length before
// passing the record to the underlying handler.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, true) // verbose=true
//
//	logger.Info("artifact loaded",
//	    "url", "https://example.com",
//	    "html", htmlContent, // truncated to the cap with a marker
//	)
//
//	slog.SetDefault(logger)
package log
