package analyzer

import (
	"context"
	"sort"
	"strings"

	"github.com/nao1215/cmsfreq/internal/model"
)

// maxSignatureMarkers caps the markers kept per dimension in a platform
// signature.
const maxSignatureMarkers = 10

// SignatureAnalyzer synthesizes one cross-dimensional signature per
// platform from the upstream stage results: discriminative headers from
// the bias correlations, discriminative meta tags and scripts from the
// dimension results, and exclusive combinations from the co-occurrence
// stage.
type SignatureAnalyzer struct{}

// NewSignatureAnalyzer creates a SignatureAnalyzer.
func NewSignatureAnalyzer() *SignatureAnalyzer {
	return &SignatureAnalyzer{}
}

// Name returns the stage name.
func (a *SignatureAnalyzer) Name() string {
	return StageSignature
}

// Analyze satisfies the plain analyzer contract by running the stages it
// depends on against the corpus first.
func (a *SignatureAnalyzer) Analyze(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions) (*model.AnalysisResult, error) {
	results := make(map[string]*model.AnalysisResult, 4)
	stages := []Analyzer{
		NewMetaAnalyzer(),
		NewScriptAnalyzer(),
		NewCooccurrenceAnalyzer(),
		NewBiasAnalyzer(),
	}
	for _, stage := range stages {
		result, err := stage.Analyze(ctx, corpus, opts)
		if err != nil {
			return nil, err
		}
		results[stage.Name()] = result
	}
	return a.AnalyzeWithResults(ctx, corpus, opts, results)
}

// AnalyzeWithResults synthesizes platform signatures from the supplied
// stage results. Missing stages degrade the signature rather than fail it.
func (a *SignatureAnalyzer) AnalyzeWithResults(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions, results map[string]*model.AnalysisResult) (*model.AnalysisResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := newResult(StageSignature, corpus, opts)
	payload := &model.SignaturePayload{Signatures: make(map[string]*model.PlatformSignature)}

	cmsSites := make(map[string]model.StringSet)
	for _, site := range corpus.Sites {
		cms := site.CMSLabel()
		if cmsSites[cms] == nil {
			cmsSites[cms] = make(model.StringSet)
		}
		cmsSites[cms].Add(site.NormalizedURL)
	}
	classCount := len(cmsSites)

	bias := BiasFrom(results[StageBias])
	cooc := CooccurrenceFrom(results[StageCooccurrence])

	for cms, sites := range cmsSites {
		if cms == "Unknown" || sites.Len() < opts.MinOccurrences {
			continue
		}
		sig := &model.PlatformSignature{
			CMS:       cms,
			SiteCount: sites.Len(),
		}
		sig.Headers = discriminativeHeaders(cms, bias)
		sig.MetaTags = discriminativeMarkers(cms, corpus, results[StageMeta], classCount)
		sig.Scripts = discriminativeMarkers(cms, corpus, results[StageScript], classCount)
		sig.ExclusiveCombinations = exclusiveCombinations(cms, cooc)
		sig.Confidence = signatureConfidence(sig)

		if signatureEmpty(sig) {
			continue
		}
		payload.Signatures[cms] = sig

		key := "signature:" + cms
		result.Patterns[key] = &model.PatternRecord{
			Pattern:   key,
			SiteCount: sites.Len(),
			Sites:     sites,
			Frequency: frequency(sites.Len(), corpus.TotalSites),
			Metadata: model.PatternMetadata{
				Type:                "platform-signature",
				Vendor:              cms,
				DiscriminationScore: sig.Confidence,
			},
		}
	}

	result.Metadata.PatternsBeforeFilter = classCount
	result.Metadata.PatternsAfterFilter = len(result.Patterns)
	result.Payload = payload
	return result, nil
}

// discriminativeHeaders picks the bias correlations whose dominant class
// is the given CMS and whose specificity clears the discriminative bar.
func discriminativeHeaders(cms string, bias *model.BiasPayload) []string {
	if bias == nil {
		return nil
	}
	var out []string
	for header, correlation := range bias.Correlations {
		if correlation.Specificity < highSpecificity {
			continue
		}
		if dominantClass(correlation.Conditional) != cms {
			continue
		}
		out = append(out, header)
	}
	sort.Slice(out, func(i, j int) bool {
		ci, cj := bias.Correlations[out[i]], bias.Correlations[out[j]]
		if ci.Specificity != cj.Specificity {
			return ci.Specificity > cj.Specificity
		}
		return out[i] < out[j]
	})
	return truncateMarkers(out)
}

// dominantClass returns the CMS with the largest conditional probability.
func dominantClass(conditional map[string]float64) string {
	var (
		cms string
		max float64
	)
	names := make([]string, 0, len(conditional))
	for name := range conditional {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if conditional[name] > max {
			cms, max = name, conditional[name]
		}
	}
	return cms
}

// discriminativeMarkers scores one dimension's patterns against the CMS
// classes and keeps those confined to the given platform.
func discriminativeMarkers(cms string, corpus *model.Corpus, dim *model.AnalysisResult, classCount int) []string {
	if dim == nil {
		return nil
	}
	type scored struct {
		pattern string
		score   float64
	}
	var out []scored
	for key, pattern := range dim.Patterns {
		conditional := conditionalByCMS(pattern.Sites, corpus)
		if dominantClass(conditional) != cms {
			continue
		}
		score := PlatformSpecificity(conditional, pattern.SiteCount, classCount)
		if score < highSpecificity {
			continue
		}
		out = append(out, scored{pattern: key, score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].pattern < out[j].pattern
	})
	markers := make([]string, 0, len(out))
	for _, s := range out {
		markers = append(markers, s.pattern)
	}
	return truncateMarkers(markers)
}

// conditionalByCMS computes P(CMS | pattern) over the pattern's sites.
func conditionalByCMS(sites model.StringSet, corpus *model.Corpus) map[string]float64 {
	counts := make(map[string]int)
	total := 0
	for url := range sites {
		if site, ok := corpus.Sites[url]; ok {
			counts[site.CMSLabel()]++
			total++
		}
	}
	conditional := make(map[string]float64, len(counts))
	if total == 0 {
		return conditional
	}
	for cms, count := range counts {
		conditional[cms] = float64(count) / float64(total)
	}
	return conditional
}

// exclusiveCombinations renders the co-occurrence platform combinations
// owned by the given CMS as "a + b" strings.
func exclusiveCombinations(cms string, cooc *model.CooccurrencePayload) []string {
	if cooc == nil {
		return nil
	}
	var out []string
	for _, combo := range cooc.PlatformCombinations {
		if combo.CMS != cms {
			continue
		}
		out = append(out, strings.Join(combo.Headers, " + "))
	}
	sort.Strings(out)
	return truncateMarkers(out)
}

// truncateMarkers caps a marker list at maxSignatureMarkers.
func truncateMarkers(markers []string) []string {
	if len(markers) > maxSignatureMarkers {
		return markers[:maxSignatureMarkers]
	}
	return markers
}

// signatureConfidence grades a signature by the breadth of evidence
// behind it: each populated dimension contributes, combinations weigh
// the most.
func signatureConfidence(sig *model.PlatformSignature) float64 {
	var confidence float64
	if len(sig.Headers) > 0 {
		confidence += 0.35
	}
	if len(sig.MetaTags) > 0 {
		confidence += 0.2
	}
	if len(sig.Scripts) > 0 {
		confidence += 0.2
	}
	if len(sig.ExclusiveCombinations) > 0 {
		confidence += 0.25
	}
	return confidence
}

// signatureEmpty reports whether a signature carries no evidence at all.
func signatureEmpty(sig *model.PlatformSignature) bool {
	return len(sig.Headers) == 0 && len(sig.MetaTags) == 0 &&
		len(sig.Scripts) == 0 && len(sig.ExclusiveCombinations) == 0
}
