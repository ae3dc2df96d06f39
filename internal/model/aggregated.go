package model

import "time"

// PatternSummary is a compact view of one pattern for summaries and reports.
type PatternSummary struct {
	// Pattern is the pattern key.
	Pattern string `json:"pattern"`

	// SiteCount is the unique-site count.
	SiteCount int `json:"site_count"`

	// Frequency is SiteCount over the corpus total.
	Frequency float64 `json:"frequency"`

	// DiscriminationScore is the platform specificity when computed.
	DiscriminationScore float64 `json:"discrimination_score,omitempty"`

	// Dimension names the source dimension for cross-dimension lists.
	Dimension string `json:"dimension,omitempty"`
}

// DiscriminationSummary holds the platform-discrimination metrics computed
// when FocusPlatformDiscrimination is enabled.
type DiscriminationSummary struct {
	// DiscriminatoryCount is the number of patterns confined to one platform.
	DiscriminatoryCount int `json:"discriminatory_count"`

	// NoiseCount is the number of infrastructure-noise patterns.
	NoiseCount int `json:"noise_count"`

	// AverageScore is the mean discrimination score across scored patterns.
	AverageScore float64 `json:"average_score"`

	// NoiseReductionPercent is the share of patterns a discrimination
	// filter would remove, in percent.
	NoiseReductionPercent float64 `json:"noise_reduction_percent"`

	// TopDiscriminatory lists up to 25 cross-dimension discriminatory patterns.
	TopDiscriminatory []PatternSummary `json:"top_discriminatory"`

	// SpecificityDistribution buckets scored patterns by confidence grade.
	SpecificityDistribution map[ConfidenceLevel]int `json:"specificity_distribution"`

	// SignalToNoise is discriminatory count over noise count.
	SignalToNoise float64 `json:"signal_to_noise"`

	// Coverage is the fraction of sites exhibiting at least one
	// discriminatory pattern.
	Coverage float64 `json:"coverage"`

	// ConfidenceBoost is the average score gain of the top discriminatory
	// patterns over the overall average, floored at zero.
	ConfidenceBoost float64 `json:"confidence_boost"`
}

// FrequencySummary is the cross-stage summary attached to AggregatedResults.
type FrequencySummary struct {
	// TopHeaders lists the most frequent header patterns.
	TopHeaders []PatternSummary `json:"top_headers"`

	// TopMetaTags lists the most frequent meta tag patterns.
	TopMetaTags []PatternSummary `json:"top_meta_tags"`

	// TopScripts lists the most frequent script patterns.
	TopScripts []PatternSummary `json:"top_scripts"`

	// Discrimination is present only when FocusPlatformDiscrimination was set.
	Discrimination *DiscriminationSummary `json:"discrimination,omitempty"`
}

// AggregatedResults is the terminal, write-once output of an analysis run.
// Both orchestration strategies produce this identical shape.
type AggregatedResults struct {
	// Results maps stage name to the stage's analysis result.
	Results map[string]*AnalysisResult `json:"results"`

	// Summary is the cross-stage frequency summary.
	Summary *FrequencySummary `json:"summary"`

	// Strategy names the orchestration strategy that produced the run.
	Strategy StrategyName `json:"strategy"`

	// TotalSites is the corpus size.
	TotalSites int `json:"total_sites"`

	// GeneratedAt is when the run finished.
	GeneratedAt time.Time `json:"generated_at"`

	// Timings records per-stage wall time.
	Timings map[string]time.Duration `json:"timings,omitempty"`
}

// Result returns the named stage result, nil when the stage did not run.
func (a *AggregatedResults) Result(stage string) *AnalysisResult {
	return a.Results[stage]
}
