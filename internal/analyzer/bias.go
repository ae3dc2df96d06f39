package analyzer

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/nao1215/cmsfreq/internal/model"
)

// Bias analysis thresholds.
const (
	// strictSampleSize switches specificity scoring from the
	// coefficient-of-variation estimate to the strict discriminative
	// formula.
	strictSampleSize = 30

	// highSpecificity marks a header as platform-discriminative.
	highSpecificity = 0.7

	// mediumSpecificity is the floor for a medium confidence grade.
	mediumSpecificity = 0.4

	// noiseSpecificity marks a header as infrastructure noise.
	noiseSpecificity = 0.2

	// biasWarningFrequency is the overall frequency above which a
	// platform-specific header starts to masquerade as generic.
	biasWarningFrequency = 0.5

	// dominantShare is the corpus share above which one platform
	// dominates the dataset.
	dominantShare = 0.5
)

// BiasAnalyzer measures dataset skew: the CMS distribution, its
// concentration, per-header CMS correlations, and the filter
// recommendations that follow from them.
type BiasAnalyzer struct{}

// NewBiasAnalyzer creates a BiasAnalyzer.
func NewBiasAnalyzer() *BiasAnalyzer {
	return &BiasAnalyzer{}
}

// Name returns the stage name.
func (a *BiasAnalyzer) Name() string {
	return StageBias
}

// Analyze satisfies the plain analyzer contract without upstream payloads.
func (a *BiasAnalyzer) Analyze(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions) (*model.AnalysisResult, error) {
	return a.AnalyzeWithInputs(ctx, corpus, opts, nil, nil, nil)
}

// AnalyzeWithInputs computes the bias statistics, using the vendor,
// semantic, and discovery payloads to sharpen recommendations.
func (a *BiasAnalyzer) AnalyzeWithInputs(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions,
	vendor *model.VendorPayload, semantic *model.SemanticPayload, discovery *model.DiscoveryPayload,
) (*model.AnalysisResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := newResult(StageBias, corpus, opts)
	payload := &model.BiasPayload{
		Distribution: cmsDistribution(corpus),
		Correlations: make(map[string]*model.HeaderCorrelation),
	}
	payload.ConcentrationScore = ConcentrationScore(payload.Distribution, corpus.TotalSites)

	dominantCMS, dominantPct := dominantPlatform(payload.Distribution)
	classCount := len(payload.Distribution)

	occurrences := headerOccurrences(corpus, opts)
	result.Metadata.PatternsBeforeFilter = len(occurrences)

	emerging := emergingHeaderSet(discovery)

	for header, sites := range occurrences {
		if sites.Len() < opts.MinOccurrences {
			continue
		}

		correlation := a.correlate(header, sites, corpus, classCount)
		overallFreq := frequency(sites.Len(), corpus.TotalSites)

		if correlation.Specificity >= highSpecificity &&
			overallFreq >= biasWarningFrequency &&
			dominantPct >= dominantShare*100 {
			correlation.Warning = fmt.Sprintf(
				"header %q looks generic at %.0f%% overall frequency, but the corpus is %.0f%% %s; its popularity tracks platform concentration, not genericity",
				header, overallFreq*100, dominantPct, dominantCMS)
			payload.Warnings = append(payload.Warnings, correlation.Warning)
		}

		payload.Correlations[header] = correlation
		payload.Recommendations = append(payload.Recommendations,
			a.recommend(correlation, vendor, semantic, emerging))

		result.Patterns[header] = &model.PatternRecord{
			Pattern:   header,
			SiteCount: sites.Len(),
			Sites:     sites,
			Frequency: overallFreq,
			Metadata: model.PatternMetadata{
				Type:                "bias",
				DiscriminationScore: correlation.Specificity,
			},
		}
	}
	result.Metadata.PatternsAfterFilter = len(result.Patterns)

	sort.Strings(payload.Warnings)
	sort.Slice(payload.Recommendations, func(i, j int) bool {
		return payload.Recommendations[i].Header < payload.Recommendations[j].Header
	})

	result.Payload = payload
	return result, nil
}

// cmsDistribution counts sites per CMS label.
func cmsDistribution(corpus *model.Corpus) map[string]model.CMSShare {
	counts := make(map[string]int)
	for _, site := range corpus.Sites {
		counts[site.CMSLabel()]++
	}
	dist := make(map[string]model.CMSShare, len(counts))
	for cms, count := range counts {
		dist[cms] = model.CMSShare{
			Count:      count,
			Percentage: frequency(count, corpus.TotalSites) * 100,
		}
	}
	return dist
}

// ConcentrationScore is the Herfindahl index of the CMS distribution:
// the sum of squared shares. 0 means perfectly balanced, 1 means a
// single-platform corpus.
func ConcentrationScore(distribution map[string]model.CMSShare, totalSites int) float64 {
	if totalSites == 0 {
		return 0
	}
	var score float64
	for _, share := range distribution {
		s := float64(share.Count) / float64(totalSites)
		score += s * s
	}
	return score
}

// dominantPlatform returns the largest distribution bucket.
func dominantPlatform(distribution map[string]model.CMSShare) (string, float64) {
	var (
		cms string
		pct float64
	)
	names := make([]string, 0, len(distribution))
	for name := range distribution {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if distribution[name].Percentage > pct {
			cms, pct = name, distribution[name].Percentage
		}
	}
	return cms, pct
}

// correlate computes the per-CMS correlation for one header.
func (a *BiasAnalyzer) correlate(header string, sites model.StringSet, corpus *model.Corpus, classCount int) *model.HeaderCorrelation {
	perCMS := make(map[string]int)
	for url := range sites {
		if site, ok := corpus.Sites[url]; ok {
			perCMS[site.CMSLabel()]++
		}
	}

	conditional := make(map[string]float64, len(perCMS))
	n := sites.Len()
	for cms, count := range perCMS {
		conditional[cms] = float64(count) / float64(n)
	}

	correlation := &model.HeaderCorrelation{
		Header:      header,
		SiteCount:   n,
		PerCMS:      perCMS,
		Conditional: conditional,
		Specificity: PlatformSpecificity(conditional, n, classCount),
	}
	correlation.Confidence = confidenceGrade(n, correlation.Specificity)
	return correlation
}

// PlatformSpecificity scores how confined a pattern is to one CMS class,
// in [0,1]. With an adequate sample (>= strictSampleSize) the strict
// discriminative score is the maximum conditional probability rescaled
// against the uniform baseline 1/k. Smaller samples fall back to the
// coefficient of variation of the conditional distribution, normalized by
// its one-hot maximum sqrt(k-1).
func PlatformSpecificity(conditional map[string]float64, sampleSize, classCount int) float64 {
	if classCount <= 1 || len(conditional) == 0 {
		return 0
	}
	k := float64(classCount)

	if sampleSize >= strictSampleSize {
		var max float64
		for _, p := range conditional {
			if p > max {
				max = p
			}
		}
		score := (max - 1/k) / (1 - 1/k)
		return clamp01(score)
	}

	mean := 1 / k
	var variance float64
	for _, p := range conditional {
		variance += (p - mean) * (p - mean)
	}
	// Classes absent from the conditional map contribute (0 - mean)^2.
	variance += float64(classCount-len(conditional)) * mean * mean
	variance /= k

	cv := math.Sqrt(variance) / mean
	return clamp01(cv / math.Sqrt(k-1))
}

// clamp01 bounds a score to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// confidenceGrade combines sample size and specificity into a grade.
func confidenceGrade(sampleSize int, specificity float64) model.ConfidenceLevel {
	switch {
	case sampleSize >= strictSampleSize && specificity >= highSpecificity:
		return model.ConfidenceHigh
	case sampleSize >= model.DefaultMinOccurrences && specificity >= mediumSpecificity:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}

// emergingHeaderSet collects headers claimed by emerging-vendor clusters.
func emergingHeaderSet(discovery *model.DiscoveryPayload) model.StringSet {
	set := make(model.StringSet)
	if discovery == nil {
		return set
	}
	for _, vendor := range discovery.EmergingVendors {
		for _, header := range vendor.Headers {
			set.Add(header)
		}
	}
	return set
}

// recommend produces the confidence-graded filter recommendation for one
// header correlation.
func (a *BiasAnalyzer) recommend(c *model.HeaderCorrelation,
	vendor *model.VendorPayload, semantic *model.SemanticPayload, emerging model.StringSet,
) model.FilterRecommendation {
	rec := model.FilterRecommendation{Header: c.Header, Confidence: c.Confidence}

	vendorLabel := ""
	if vendor != nil {
		if match, ok := vendor.Matches[c.Header]; ok {
			vendorLabel = match.Vendor
		}
	}
	category := model.CategoryUnknown
	if semantic != nil {
		if cls, ok := semantic.Classifications[c.Header]; ok {
			category = cls.Category
		}
	}

	switch {
	case emerging.Has(c.Header):
		rec.Action = "review"
		rec.Reason = "belongs to an emerging vendor cluster; signature table may need an entry"
	case c.Specificity >= highSpecificity:
		rec.Action = "keep"
		rec.Reason = fmt.Sprintf("platform-discriminative (specificity %.2f)", c.Specificity)
		if vendorLabel != "" {
			rec.Reason += ", attributed to " + vendorLabel
		}
	case c.Specificity < noiseSpecificity && c.Confidence != model.ConfidenceLow:
		rec.Action = "drop"
		rec.Reason = fmt.Sprintf("shared across platforms (specificity %.2f)", c.Specificity)
		if category == model.CategoryInfrastructure {
			rec.Reason = "infrastructure noise: " + rec.Reason
		}
	default:
		rec.Action = "review"
		rec.Reason = fmt.Sprintf("inconclusive (specificity %.2f, %d sites)", c.Specificity, c.SiteCount)
	}
	return rec
}
