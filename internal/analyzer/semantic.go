package analyzer

import (
	"context"
	"strings"

	"github.com/nao1215/cmsfreq/internal/model"
)

// securityHeaders are browser security policy headers.
var securityHeaders = map[string]bool{
	"content-security-policy":             true,
	"content-security-policy-report-only": true,
	"strict-transport-security":           true,
	"x-frame-options":                     true,
	"x-xss-protection":                    true,
	"x-content-type-options":              true,
	"referrer-policy":                     true,
	"permissions-policy":                  true,
	"cross-origin-opener-policy":          true,
	"cross-origin-resource-policy":        true,
	"cross-origin-embedder-policy":        true,
}

// infrastructureHeaders are CDN, cache, and proxy headers without an
// x- prefix.
var infrastructureHeaders = map[string]bool{
	"server":           true,
	"via":              true,
	"x-cache":          true,
	"x-cache-hits":     true,
	"x-served-by":      true,
	"x-proxy-cache":    true,
	"x-varnish":        true,
	"x-timer":          true,
	"x-request-id":     true,
	"x-correlation-id": true,
}

// vendorTokens are name prefixes that mark a vendor-specific namespace.
var vendorTokens = []string{
	"cf-", "x-amz-", "x-azure-", "x-goog-", "x-shopify-", "x-wix-",
	"x-drupal-", "x-vercel-", "x-fastly-", "x-akamai-", "x-sucuri-",
	"x-github-", "fly-", "x-nf-",
}

// SemanticAnalyzer classifies headers by category, naming convention, and
// vendor. Vendor labels require vendor evidence, supplied either through
// AnalyzeWithVendor or by the aggregator's stage context.
type SemanticAnalyzer struct{}

// NewSemanticAnalyzer creates a SemanticAnalyzer.
func NewSemanticAnalyzer() *SemanticAnalyzer {
	return &SemanticAnalyzer{}
}

// Name returns the stage name.
func (a *SemanticAnalyzer) Name() string {
	return StageSemantic
}

// Analyze satisfies the plain analyzer contract; classifications carry no
// vendor labels when vendor evidence is absent.
func (a *SemanticAnalyzer) Analyze(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions) (*model.AnalysisResult, error) {
	return a.AnalyzeWithVendor(ctx, corpus, opts, nil)
}

// AnalyzeWithVendor classifies every counted header, labeling vendors
// from the supplied vendor payload.
func (a *SemanticAnalyzer) AnalyzeWithVendor(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions, vendor *model.VendorPayload) (*model.AnalysisResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := newResult(StageSemantic, corpus, opts)
	payload := &model.SemanticPayload{
		Classifications: make(map[string]model.HeaderClassification),
		CategoryCounts:  make(map[model.HeaderCategory]int),
	}

	occurrences := headerOccurrences(corpus, opts)
	result.Metadata.PatternsBeforeFilter = len(occurrences)

	// Restrict to validated patterns when the validation stage has run.
	validated := validatedSet(corpus)

	for header, sites := range occurrences {
		if validated != nil && !validated.Has(header) {
			continue
		}

		classification := model.HeaderClassification{
			Header:     header,
			Category:   ClassifyHeader(header),
			Convention: classifyConvention(header),
		}
		if vendor != nil {
			if match, ok := vendor.Matches[header]; ok {
				classification.Vendor = match.Vendor
			}
		}
		payload.Classifications[header] = classification
		payload.CategoryCounts[classification.Category]++

		if sites.Len() < opts.MinOccurrences {
			continue
		}
		result.Patterns[header] = &model.PatternRecord{
			Pattern:   header,
			SiteCount: sites.Len(),
			Sites:     sites,
			Frequency: frequency(sites.Len(), corpus.TotalSites),
			Metadata: model.PatternMetadata{
				Type:     "semantic",
				Category: classification.Category,
				Vendor:   classification.Vendor,
			},
		}
	}

	result.Payload = payload
	result.Metadata.PatternsAfterFilter = len(result.Patterns)
	return result, nil
}

// Summary converts a semantic payload into the corpus metadata form.
func (a *SemanticAnalyzer) Summary(payload *model.SemanticPayload) *model.SemanticSummary {
	return &model.SemanticSummary{
		ClassifiedHeaders: len(payload.Classifications),
		CategoryCounts:    payload.CategoryCounts,
	}
}

// validatedSet returns the validated pattern keys recorded in the corpus
// metadata, nil when the validation stage has not run.
func validatedSet(corpus *model.Corpus) model.StringSet {
	if corpus.Metadata.Validation == nil {
		return nil
	}
	return model.NewStringSet(corpus.Metadata.Validation.ValidatedPatterns...)
}

// ClassifyHeader assigns the semantic category for a header name.
func ClassifyHeader(header string) model.HeaderCategory {
	if securityHeaders[header] {
		return model.CategorySecurity
	}
	for _, token := range vendorTokens {
		if strings.HasPrefix(header, token) {
			if strings.HasPrefix(token, "x-sucuri") {
				return model.CategorySecurity
			}
			return platformOrInfrastructure(token)
		}
	}
	if infrastructureHeaders[header] {
		return model.CategoryInfrastructure
	}
	if strings.HasPrefix(header, "x-") {
		return model.CategoryCustom
	}
	return model.CategoryGeneric
}

// platformOrInfrastructure decides whether a vendor namespace signals the
// serving platform or the infrastructure in front of it.
func platformOrInfrastructure(token string) model.HeaderCategory {
	switch token {
	case "x-shopify-", "x-wix-", "x-drupal-":
		return model.CategoryPlatform
	default:
		return model.CategoryInfrastructure
	}
}

// classifyConvention buckets a header name by naming style.
func classifyConvention(header string) model.NamingConvention {
	for _, token := range vendorTokens {
		if strings.HasPrefix(header, token) {
			return model.ConventionVendorPrefixed
		}
	}
	if strings.HasPrefix(header, "x-") {
		return model.ConventionXPrefixed
	}
	if strings.Contains(header, "-") {
		return model.ConventionHyphenated
	}
	return model.ConventionSimple
}
