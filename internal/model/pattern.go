package model

import (
	"sort"
	"time"
)

// PageLocation describes where a pattern's observations occurred.
type PageLocation struct {
	// Mainpage is the number of main-page observations across sites.
	Mainpage int `json:"mainpage"`

	// Robots is the number of robots.txt observations across sites.
	Robots int `json:"robots"`

	// MainpagePercent is Mainpage / (Mainpage + Robots) * 100.
	// Sites without a page-type split count as 100% main page.
	MainpagePercent float64 `json:"mainpage_percent"`
}

// PatternMetadata carries analyzer-specific annotations on a pattern.
type PatternMetadata struct {
	// Type names the pattern dimension (header, meta, script, pair, ...).
	Type string `json:"type,omitempty"`

	// Vendor is the matched vendor label when known.
	Vendor string `json:"vendor,omitempty"`

	// Category is the semantic category when classified.
	Category HeaderCategory `json:"category,omitempty"`

	// ValueDistribution maps each distinct observed value to the number of
	// unique sites that observed it.
	ValueDistribution map[string]int `json:"value_distribution,omitempty"`

	// PageLocation is the main-page vs robots.txt breakdown.
	PageLocation *PageLocation `json:"page_location,omitempty"`

	// DiscriminationScore is the platform specificity in [0,1] when computed.
	DiscriminationScore float64 `json:"discrimination_score,omitempty"`
}

// PatternRecord is one discovered pattern within one analyzer.
// Invariant: len(Sites) == SiteCount and Frequency == SiteCount/totalSites,
// so Frequency is always in [0,1].
type PatternRecord struct {
	// Pattern is the pattern key (header name, meta name, script
	// fingerprint, header pair, platform name, ...).
	Pattern string `json:"pattern"`

	// SiteCount is the number of unique sites exhibiting the pattern.
	// Each site contributes at most once regardless of how many values it
	// has for the underlying key.
	SiteCount int `json:"site_count"`

	// Sites holds the normalized URLs of contributing sites.
	Sites StringSet `json:"sites"`

	// Frequency is SiteCount divided by the corpus total.
	Frequency float64 `json:"frequency"`

	// Examples is a bounded list of example observations.
	Examples []string `json:"examples,omitempty"`

	// Metadata carries analyzer-specific annotations.
	Metadata PatternMetadata `json:"metadata"`
}

// ResultMetadata describes one analyzer invocation.
type ResultMetadata struct {
	// GeneratedAt is when the analyzer ran.
	GeneratedAt time.Time `json:"generated_at"`

	// PatternsBeforeFilter counts patterns before the minOccurrences filter.
	PatternsBeforeFilter int `json:"patterns_before_filter"`

	// PatternsAfterFilter counts patterns that survived filtering.
	PatternsAfterFilter int `json:"patterns_after_filter"`

	// Options echoes the options the analyzer ran with.
	Options AnalysisOptions `json:"options"`
}

// AnalysisResult is the uniform output shape of every analyzer.
// Results are created fresh per invocation and never mutated after return.
type AnalysisResult struct {
	// Analyzer is the stable analyzer name.
	Analyzer string `json:"analyzer"`

	// Patterns maps pattern key to its record.
	Patterns map[string]*PatternRecord `json:"patterns"`

	// TotalSites is the corpus size the frequencies were computed against.
	TotalSites int `json:"total_sites"`

	// Metadata describes the invocation.
	Metadata ResultMetadata `json:"metadata"`

	// Payload is the analyzer-specific typed output, nil for analyzers
	// whose full output fits the pattern table.
	Payload Payload `json:"payload,omitempty"`
}

// SortedPatterns returns the pattern records ordered by descending
// frequency, breaking ties by pattern key for deterministic output.
func (r *AnalysisResult) SortedPatterns() []*PatternRecord {
	patterns := make([]*PatternRecord, 0, len(r.Patterns))
	for _, p := range r.Patterns {
		patterns = append(patterns, p)
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Frequency != patterns[j].Frequency {
			return patterns[i].Frequency > patterns[j].Frequency
		}
		return patterns[i].Pattern < patterns[j].Pattern
	})
	return patterns
}

// TopPatterns returns up to n pattern summaries in frequency order.
func (r *AnalysisResult) TopPatterns(n int) []PatternSummary {
	sorted := r.SortedPatterns()
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	out := make([]PatternSummary, 0, len(sorted))
	for _, p := range sorted {
		out = append(out, PatternSummary{
			Pattern:             p.Pattern,
			SiteCount:           p.SiteCount,
			Frequency:           p.Frequency,
			DiscriminationScore: p.Metadata.DiscriminationScore,
		})
	}
	return out
}
