package aggregate

import (
	"sort"

	"github.com/nao1215/cmsfreq/internal/analyzer"
	"github.com/nao1215/cmsfreq/internal/model"
)

// Summary thresholds.
const (
	// topPatternCount is how many patterns each dimension contributes to
	// the frequency summary.
	topPatternCount = 10

	// topDiscriminatoryCount caps the cross-dimension discriminatory list.
	topDiscriminatoryCount = 25

	// discriminatorySpecificity marks a pattern as platform-discriminative
	// for summary purposes.
	discriminatorySpecificity = 0.6

	// noiseSpecificity marks a pattern as cross-platform noise.
	noiseSpecificity = 0.2
)

// buildSummary produces the cross-stage frequency summary from the
// aggregated stage results.
func buildSummary(corpus *model.Corpus, results map[string]*model.AnalysisResult, opts model.AnalysisOptions) *model.FrequencySummary {
	summary := &model.FrequencySummary{}
	if headers := results[analyzer.StageHeader]; headers != nil {
		summary.TopHeaders = headers.TopPatterns(topPatternCount)
	}
	if meta := results[analyzer.StageMeta]; meta != nil {
		summary.TopMetaTags = meta.TopPatterns(topPatternCount)
	}
	if scripts := results[analyzer.StageScript]; scripts != nil {
		summary.TopScripts = scripts.TopPatterns(topPatternCount)
	}
	if opts.FocusPlatformDiscrimination {
		summary.Discrimination = buildDiscrimination(corpus, results)
	}
	return summary
}

// scoredPattern pairs a pattern with its platform-specificity score.
type scoredPattern struct {
	summary model.PatternSummary
	sites   model.StringSet
	score   float64
}

// buildDiscrimination computes the platform-discrimination metrics over
// the three dimension results.
func buildDiscrimination(corpus *model.Corpus, results map[string]*model.AnalysisResult) *model.DiscriminationSummary {
	classCount := cmsClassCount(corpus)

	var scored []scoredPattern
	for _, stage := range []string{analyzer.StageHeader, analyzer.StageMeta, analyzer.StageScript} {
		dim := results[stage]
		if dim == nil {
			continue
		}
		for key, pattern := range dim.Patterns {
			score := patternSpecificity(pattern, corpus, classCount)
			scored = append(scored, scoredPattern{
				summary: model.PatternSummary{
					Pattern:             key,
					SiteCount:           pattern.SiteCount,
					Frequency:           pattern.Frequency,
					DiscriminationScore: score,
					Dimension:           stage,
				},
				sites: pattern.Sites,
				score: score,
			})
		}
	}
	if len(scored) == 0 {
		return &model.DiscriminationSummary{
			SpecificityDistribution: map[model.ConfidenceLevel]int{},
		}
	}

	ds := &model.DiscriminationSummary{
		SpecificityDistribution: make(map[model.ConfidenceLevel]int),
	}

	var totalScore float64
	covered := make(model.StringSet)
	for _, sp := range scored {
		totalScore += sp.score
		ds.SpecificityDistribution[specificityGrade(sp.score)]++
		switch {
		case sp.score >= discriminatorySpecificity:
			ds.DiscriminatoryCount++
			for site := range sp.sites {
				covered.Add(site)
			}
		case sp.score < noiseSpecificity:
			ds.NoiseCount++
		}
	}
	ds.AverageScore = totalScore / float64(len(scored))
	ds.NoiseReductionPercent = float64(ds.NoiseCount) / float64(len(scored)) * 100

	if ds.NoiseCount > 0 {
		ds.SignalToNoise = float64(ds.DiscriminatoryCount) / float64(ds.NoiseCount)
	} else {
		ds.SignalToNoise = float64(ds.DiscriminatoryCount)
	}
	if corpus.TotalSites > 0 {
		ds.Coverage = float64(covered.Len()) / float64(corpus.TotalSites)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].summary.Pattern < scored[j].summary.Pattern
	})
	var topScore float64
	for _, sp := range scored {
		if sp.score < discriminatorySpecificity {
			break
		}
		if len(ds.TopDiscriminatory) == topDiscriminatoryCount {
			break
		}
		ds.TopDiscriminatory = append(ds.TopDiscriminatory, sp.summary)
		topScore += sp.score
	}
	if len(ds.TopDiscriminatory) > 0 {
		boost := topScore/float64(len(ds.TopDiscriminatory)) - ds.AverageScore
		if boost > 0 {
			ds.ConfidenceBoost = boost
		}
	}
	return ds
}

// patternSpecificity scores one pattern's platform specificity from its
// contributing sites.
func patternSpecificity(pattern *model.PatternRecord, corpus *model.Corpus, classCount int) float64 {
	counts := make(map[string]int)
	total := 0
	for url := range pattern.Sites {
		if site, ok := corpus.Sites[url]; ok {
			counts[site.CMSLabel()]++
			total++
		}
	}
	if total == 0 {
		return 0
	}
	conditional := make(map[string]float64, len(counts))
	for cms, count := range counts {
		conditional[cms] = float64(count) / float64(total)
	}
	return analyzer.PlatformSpecificity(conditional, total, classCount)
}

// cmsClassCount counts distinct CMS labels in the corpus.
func cmsClassCount(corpus *model.Corpus) int {
	labels := make(model.StringSet)
	for _, site := range corpus.Sites {
		labels.Add(site.CMSLabel())
	}
	return labels.Len()
}

// specificityGrade buckets a specificity score into a confidence grade.
func specificityGrade(score float64) model.ConfidenceLevel {
	switch {
	case score >= 0.7:
		return model.ConfidenceHigh
	case score >= 0.4:
		return model.ConfidenceMedium
	default:
		return model.ConfidenceLow
	}
}
