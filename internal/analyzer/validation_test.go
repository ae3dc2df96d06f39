package analyzer

import (
	"context"
	"testing"

	"github.com/nao1215/cmsfreq/internal/model"
)

// dimensionResult builds a fake dimension result from pattern specs.
func dimensionResult(totalSites int, patterns map[string]*model.PatternRecord) *model.AnalysisResult {
	return &model.AnalysisResult{
		Analyzer:   StageHeader,
		Patterns:   patterns,
		TotalSites: totalSites,
	}
}

// headerPattern builds a header pattern record with n synthetic sites.
func headerPattern(name string, siteCount, totalSites int) *model.PatternRecord {
	sites := make(model.StringSet)
	for i := 0; i < siteCount; i++ {
		sites.Add(string(rune('a'+i)) + ".example.com/")
	}
	return &model.PatternRecord{
		Pattern:   name,
		SiteCount: siteCount,
		Sites:     sites,
		Frequency: float64(siteCount) / float64(totalSites),
		Metadata: model.PatternMetadata{
			Type:              "header",
			ValueDistribution: map[string]int{"v": siteCount},
		},
	}
}

func TestValidationAnalyzer(t *testing.T) {
	t.Parallel()

	const totalSites = 20
	dim := dimensionResult(totalSites, map[string]*model.PatternRecord{
		"x-good":       headerPattern("x-good", 10, totalSites),
		"x-thin":       headerPattern("x-thin", 2, totalSites),
		"x-everywhere": headerPattern("x-everywhere", 20, totalSites),
	})

	corpus := &model.Corpus{TotalSites: totalSites, Sites: map[string]*model.SiteRecord{}}
	opts := testOpts()
	opts.MinOccurrences = 5

	result, err := NewValidationAnalyzer().AnalyzeWithDimensions(context.Background(), corpus, opts, []*model.AnalysisResult{dim})
	if err != nil {
		t.Fatalf("AnalyzeWithDimensions() unexpected error: %v", err)
	}

	payload := ValidationFrom(result)
	if payload == nil {
		t.Fatal("result carries no validation payload")
	}

	if len(payload.Validated) != 1 || payload.Validated[0] != "x-good" {
		t.Errorf("Validated = %v, want [x-good]", payload.Validated)
	}
	if _, ok := payload.Rejected["x-thin"]; !ok {
		t.Error("Rejected missing x-thin (sample too small)")
	}
	// 20/20 sites exceeds the ubiquity ceiling.
	if _, ok := payload.Rejected["x-everywhere"]; !ok {
		t.Error("Rejected missing x-everywhere (ubiquitous)")
	}

	if payload.QualityScore <= 0 || payload.QualityScore > 1 {
		t.Errorf("QualityScore = %v, want (0,1]", payload.QualityScore)
	}

	if _, ok := result.Patterns["x-good"]; !ok {
		t.Error("Patterns missing validated x-good")
	}
	if _, ok := result.Patterns["x-thin"]; ok {
		t.Error("Patterns contains rejected x-thin")
	}
}

func TestValidationRejectsValuelessHeaders(t *testing.T) {
	t.Parallel()

	const totalSites = 40
	pattern := headerPattern("x-empty", 10, totalSites)
	pattern.Metadata.ValueDistribution = nil
	dim := dimensionResult(totalSites, map[string]*model.PatternRecord{"x-empty": pattern})

	corpus := &model.Corpus{TotalSites: totalSites, Sites: map[string]*model.SiteRecord{}}

	result, err := NewValidationAnalyzer().AnalyzeWithDimensions(context.Background(), corpus, testOpts(), []*model.AnalysisResult{dim})
	if err != nil {
		t.Fatalf("AnalyzeWithDimensions() unexpected error: %v", err)
	}

	payload := ValidationFrom(result)
	if got, ok := payload.Rejected["x-empty"]; !ok || got != "no observed values" {
		t.Errorf("Rejected[x-empty] = %q (present %v), want no-observed-values rejection", got, ok)
	}
}

func TestValidationSummary(t *testing.T) {
	t.Parallel()

	payload := &model.ValidationPayload{
		QualityScore: 0.8,
		Validated:    []string{"a", "b"},
	}

	summary := NewValidationAnalyzer().Summary(payload, 5)
	if summary.QualityScore != 0.8 {
		t.Errorf("QualityScore = %v, want 0.8", summary.QualityScore)
	}
	if summary.TotalPatterns != 5 || summary.PassedPatterns != 2 {
		t.Errorf("Total/Passed = %d/%d, want 5/2", summary.TotalPatterns, summary.PassedPatterns)
	}
}

func TestSampleAdequacy(t *testing.T) {
	t.Parallel()

	if got := sampleAdequacy(15); got != 0.5 {
		t.Errorf("sampleAdequacy(15) = %v, want 0.5", got)
	}
	if got := sampleAdequacy(90); got != 1 {
		t.Errorf("sampleAdequacy(90) = %v, want 1 (saturated)", got)
	}
}
