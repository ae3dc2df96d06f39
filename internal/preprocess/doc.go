// Package preprocess loads the crawl index and per-site artifact files,
// filters low-quality captures, normalizes the survivors into canonical
// site records, and caches the resulting corpus by query signature.
package preprocess
