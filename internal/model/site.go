package model

import (
	"time"
)

// SiteRecord holds the normalized crawl data for one distinct site.
// Exactly one SiteRecord exists per normalized URL; when the crawl index
// contains duplicates, the record with the highest detection confidence
// survives preprocessing.
type SiteRecord struct {
	// URL is the original URL as it appeared in the crawl index.
	URL string `json:"url"`

	// NormalizedURL is the canonical deduplication key: lowercase host
	// plus path with protocol, www prefix, default port, and non-root
	// trailing slash stripped.
	NormalizedURL string `json:"normalized_url"`

	// CMS is the detected content-management system label.
	// Empty when no detection was recorded.
	CMS string `json:"cms,omitempty"`

	// Confidence is the detection confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// Headers maps lowercase header names to the set of distinct values
	// observed for that header across all fetched pages.
	Headers map[string]StringSet `json:"headers"`

	// HeadersByPageType splits Headers by the page the value was seen on.
	// When empty, all headers are treated as main-page observations.
	HeadersByPageType map[PageType]map[string]StringSet `json:"headers_by_page_type,omitempty"`

	// MetaTags maps lowercase meta tag names to their distinct content values.
	MetaTags map[string]StringSet `json:"meta_tags,omitempty"`

	// Scripts holds absolute script URLs plus inline-script fingerprints.
	// Inline fingerprints carry the InlineScriptPrefix to keep them
	// distinguishable from URLs.
	Scripts StringSet `json:"scripts,omitempty"`

	// Technologies holds technology labels attached by the crawler.
	Technologies StringSet `json:"technologies,omitempty"`

	// CapturedAt is the crawl timestamp from the index.
	// Zero when the index timestamp was missing or unparsable.
	CapturedAt time.Time `json:"captured_at"`
}

// InlineScriptPrefix tags inline-script fingerprints in SiteRecord.Scripts
// so they never collide with script URLs.
const InlineScriptPrefix = "inline:"

// HasHeader reports whether the site observed the given lowercase header name.
func (s *SiteRecord) HasHeader(name string) bool {
	_, ok := s.Headers[name]
	return ok
}

// HeaderPageCounts returns how many page fetches (main page, robots.txt)
// observed the given header. When no page-type split was recorded the
// header counts as a single main-page observation, so statistics degrade
// gracefully for older captures.
func (s *SiteRecord) HeaderPageCounts(name string) (mainpage, robots int) {
	if len(s.HeadersByPageType) == 0 {
		if s.HasHeader(name) {
			return 1, 0
		}
		return 0, 0
	}
	if hdrs, ok := s.HeadersByPageType[PageTypeMain]; ok {
		if _, ok := hdrs[name]; ok {
			mainpage = 1
		}
	}
	if hdrs, ok := s.HeadersByPageType[PageTypeRobots]; ok {
		if _, ok := hdrs[name]; ok {
			robots = 1
		}
	}
	// A header recorded only in the flat map still counts as main page.
	if mainpage == 0 && robots == 0 && s.HasHeader(name) {
		mainpage = 1
	}
	return mainpage, robots
}

// CMSLabel returns the CMS label, substituting "Unknown" for empty values
// so distribution statistics always have a bucket to count into.
func (s *SiteRecord) CMSLabel() string {
	if s.CMS == "" {
		return "Unknown"
	}
	return s.CMS
}

// FilteringStats records how many index entries were excluded and why.
type FilteringStats struct {
	// FilteredCount is the total number of excluded entries.
	FilteredCount int `json:"filtered_count"`

	// Reasons tallies exclusions per filter reason.
	Reasons map[FilterReason]int `json:"reasons"`
}

// Add records one exclusion for the given reason.
func (f *FilteringStats) Add(reason FilterReason) {
	if f.Reasons == nil {
		f.Reasons = make(map[FilterReason]int)
	}
	f.Reasons[reason]++
	f.FilteredCount++
}

// ValidationSummary is attached to the corpus metadata by the validation
// stage and consumed by later analyzers.
type ValidationSummary struct {
	// QualityScore grades the statistical adequacy of the corpus in [0,1].
	QualityScore float64 `json:"quality_score"`

	// ValidatedPatterns lists pattern keys that passed validation.
	ValidatedPatterns []string `json:"validated_patterns"`

	// TotalPatterns is the number of patterns examined.
	TotalPatterns int `json:"total_patterns"`

	// PassedPatterns is the number of patterns that passed.
	PassedPatterns int `json:"passed_patterns"`
}

// SemanticSummary is attached to the corpus metadata by the semantic stage.
type SemanticSummary struct {
	// ClassifiedHeaders is the number of headers classified.
	ClassifiedHeaders int `json:"classified_headers"`

	// CategoryCounts tallies classified headers per category.
	CategoryCounts map[HeaderCategory]int `json:"category_counts"`
}

// CorpusMetadata describes a corpus build. Later stages append their
// summaries here without mutating fields written by earlier stages.
type CorpusMetadata struct {
	// Version is the preprocessor schema version.
	Version string `json:"version"`

	// GeneratedAt is when the corpus was built.
	GeneratedAt time.Time `json:"generated_at"`

	// Validation is appended by the validation stage.
	Validation *ValidationSummary `json:"validation,omitempty"`

	// Semantic is appended by the semantic stage.
	Semantic *SemanticSummary `json:"semantic,omitempty"`
}

// Corpus is the full normalized, filtered collection of site records for
// one analysis run. It is built once per preprocessor load and never
// mutated by analyzers except for append-only metadata summaries.
type Corpus struct {
	// Sites maps normalized URL to its site record.
	Sites map[string]*SiteRecord `json:"sites"`

	// TotalSites is len(Sites), kept explicit because every frequency in
	// the pipeline is defined as siteCount/TotalSites.
	TotalSites int `json:"total_sites"`

	// FilteringStats records what preprocessing excluded.
	FilteringStats FilteringStats `json:"filtering_stats"`

	// Metadata describes the corpus build.
	Metadata CorpusMetadata `json:"metadata"`
}

// DateRange filters index entries by capture timestamp.
// The zero value means no filtering.
type DateRange struct {
	// Start is the inclusive lower bound. Zero means unbounded.
	Start time.Time `json:"start,omitempty"`

	// End is the inclusive upper bound. Zero means unbounded.
	End time.Time `json:"end,omitempty"`

	// LastDays restricts to captures within the trailing N days.
	// Zero means no trailing-window restriction.
	LastDays int `json:"last_days,omitempty"`
}

// IsZero reports whether the range imposes no restriction.
func (d DateRange) IsZero() bool {
	return d.Start.IsZero() && d.End.IsZero() && d.LastDays == 0
}

// Contains reports whether the timestamp falls inside the range.
/// A zero timestamp always passes: the preprocessor tolerates malformed
// index dates rather than dropping otherwise-valid records.
func (d DateRange) Contains(t time.Time, now time.Time) bool {
	if t.IsZero() {
		return true
	}
	if !d.Start.IsZero() && t.Before(d.Start) {
		return false
	}
	if !d.End.IsZero() && t.After(d.End) {
		return false
	}
	if d.LastDays > 0 {
		cutoff := now.AddDate(0, 0, -d.LastDays)
		if t.Before(cutoff) {
			return false
		}
	}
	return true
}

// AnalysisOptions controls analyzer behavior. The same options value is
// passed to every stage of a run.
type AnalysisOptions struct {
	// MinOccurrences is the minimum unique-site count for a pattern to be
	// kept. It always filters on unique sites, never raw value occurrences.
	MinOccurrences int `json:"min_occurrences"`

	// IncludeExamples attaches example observations to pattern records.
	IncludeExamples bool `json:"include_examples"`

	// MaxExamples caps the number of examples per pattern.
	MaxExamples int `json:"max_examples"`

	// SemanticFiltering drops known-uninformative headers (date, etag,
	// content-length, ...) before counting.
	SemanticFiltering bool `json:"semantic_filtering"`

	// FocusPlatformDiscrimination enables the discrimination metrics in
	// the frequency summary.
	FocusPlatformDiscrimination bool `json:"focus_platform_discrimination"`
}

// Default analysis option values.
const (
	// DefaultMinOccurrences requires a pattern on at least 10 unique sites.
	DefaultMinOccurrences = 10

	// DefaultMaxExamples caps examples per pattern.
	DefaultMaxExamples = 5
)

// DefaultAnalysisOptions returns the option set used when the caller does
// not override anything.
func DefaultAnalysisOptions() AnalysisOptions {
	return AnalysisOptions{
		MinOccurrences:    DefaultMinOccurrences,
		IncludeExamples:   true,
		MaxExamples:       DefaultMaxExamples,
		SemanticFiltering: true,
	}
}
