package analyzer

import (
	"context"
	"fmt"
	"sort"

	"github.com/nao1215/cmsfreq/internal/model"
)

// Validation thresholds.
const (
	// minValidationSampleSize is the floor on unique-site counts for a
	// pattern to be statistically meaningful, applied on top of the
	// caller's MinOccurrences.
	minValidationSampleSize = 5

	// maxUbiquitousFrequency rejects near-constant patterns: a pattern on
	// essentially every site separates nothing.
	maxUbiquitousFrequency = 0.98

	// goodSampleSize is the unique-site count at which a pattern's sample
	// contribution to the quality score saturates.
	goodSampleSize = 30
)

// ValidationAnalyzer filters dimension-analyzer output down to
// statistically meaningful patterns and grades the corpus with a quality
// score consumed by later stages.
type ValidationAnalyzer struct{}

// NewValidationAnalyzer creates a ValidationAnalyzer.
func NewValidationAnalyzer() *ValidationAnalyzer {
	return &ValidationAnalyzer{}
}

// Name returns the stage name.
func (a *ValidationAnalyzer) Name() string {
	return StageValidation
}

// Analyze satisfies the plain analyzer contract. Without injected
// dimension results it validates a freshly computed header dimension.
func (a *ValidationAnalyzer) Analyze(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions) (*model.AnalysisResult, error) {
	headers, err := NewHeaderAnalyzer().Analyze(ctx, corpus, opts)
	if err != nil {
		return nil, err
	}
	return a.AnalyzeWithDimensions(ctx, corpus, opts, []*model.AnalysisResult{headers})
}

// AnalyzeWithDimensions validates the supplied dimension results.
// The validated pattern list and quality score are returned in the
// payload; the aggregator mirrors them into the corpus metadata.
func (a *ValidationAnalyzer) AnalyzeWithDimensions(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions, dimensions []*model.AnalysisResult) (*model.AnalysisResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := newResult(StageValidation, corpus, opts)
	payload := &model.ValidationPayload{Rejected: make(map[string]string)}

	minSample := opts.MinOccurrences
	if minSample < minValidationSampleSize {
		minSample = minValidationSampleSize
	}

	var total, passed int
	var sampleScore float64

	for _, dim := range dimensions {
		if dim == nil {
			continue
		}
		for key, pattern := range dim.Patterns {
			total++
			if reason, ok := a.reject(pattern, minSample); ok {
				payload.Rejected[key] = reason
				continue
			}
			passed++
			payload.Validated = append(payload.Validated, key)
			sampleScore += sampleAdequacy(pattern.SiteCount)

			result.Patterns[key] = &model.PatternRecord{
				Pattern:   pattern.Pattern,
				SiteCount: pattern.SiteCount,
				Sites:     pattern.Sites,
				Frequency: pattern.Frequency,
				Metadata: model.PatternMetadata{
					Type:              "validated-" + pattern.Metadata.Type,
					ValueDistribution: pattern.Metadata.ValueDistribution,
					PageLocation:      pattern.Metadata.PageLocation,
				},
			}
		}
	}
	sort.Strings(payload.Validated)

	// Quality blends the pass rate with the average sample adequacy of
	// the survivors, both in [0,1].
	if total > 0 {
		passRate := float64(passed) / float64(total)
		avgSample := 0.0
		if passed > 0 {
			avgSample = sampleScore / float64(passed)
		}
		payload.QualityScore = 0.5*passRate + 0.5*avgSample
	}

	result.Payload = payload
	result.Metadata.PatternsBeforeFilter = total
	result.Metadata.PatternsAfterFilter = passed
	return result, nil
}

// Summary converts a validation payload into the corpus metadata form.
func (a *ValidationAnalyzer) Summary(payload *model.ValidationPayload, total int) *model.ValidationSummary {
	return &model.ValidationSummary{
		QualityScore:      payload.QualityScore,
		ValidatedPatterns: payload.Validated,
		TotalPatterns:     total,
		PassedPatterns:    len(payload.Validated),
	}
}

// reject returns the rejection reason for statistically inadequate patterns.
func (a *ValidationAnalyzer) reject(pattern *model.PatternRecord, minSample int) (string, bool) {
	if pattern.SiteCount < minSample {
		return fmt.Sprintf("sample size %d below %d", pattern.SiteCount, minSample), true
	}
	if pattern.Frequency > maxUbiquitousFrequency {
		return fmt.Sprintf("ubiquitous at %.1f%% of sites", pattern.Frequency*100), true
	}
	if len(pattern.Metadata.ValueDistribution) == 0 && pattern.Metadata.Type == "header" {
		return "no observed values", true
	}
	return "", false
}

// sampleAdequacy scales a unique-site count into [0,1].
func sampleAdequacy(siteCount int) float64 {
	score := float64(siteCount) / float64(goodSampleSize)
	if score > 1 {
		return 1
	}
	return score
}
