// Package main provides the entry point for the cmsfreq CLI.
//
// cmsfreq analyzes a web crawl corpus for CMS fingerprinting patterns:
// it computes frequency statistics over HTTP headers, meta tags, and
// script references, and derives vendor attributions, co-occurrence
// statistics, dataset-bias warnings, and per-platform signatures.
//
// Usage:
//
//	cmsfreq analyze --index crawl/index.json
//	cmsfreq history
//
// See --help for all available options.
package main

// main is the entry point for cmsfreq.
func main() {
	Execute()
}
