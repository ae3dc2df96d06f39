// Package database provides SQLite-based storage for analysis run history.
//
// Each completed analysis run is recorded with its headline statistics so
// successive runs over a growing crawl corpus can be compared without
// re-reading full report files.
package database
