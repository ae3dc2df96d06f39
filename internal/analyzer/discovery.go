package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nao1215/cmsfreq/internal/model"
)

// Discovery thresholds.
const (
	// minClusterHeaders is the minimum number of distinct headers sharing
	// a token before the cluster counts as a vendor candidate.
	minClusterHeaders = 2

	// clusterSaturationSites is the unique-site count at which cluster
	// confidence stops growing.
	clusterSaturationSites = 50
)

// genericPrefixes never identify a vendor on their own.
var genericPrefixes = map[string]bool{
	"x":       true,
	"x-cache": true,
	"content": true,
	"accept":  true,
	"access":  true,
	"cross":   true,
}

// genericSuffixes are trailing segments too common to mark a vendor family.
var genericSuffixes = map[string]bool{
	"id":       true,
	"by":       true,
	"time":     true,
	"type":     true,
	"cache":    true,
	"status":   true,
	"version":  true,
	"control":  true,
	"options":  true,
	"policy":   true,
	"length":   true,
	"encoding": true,
}

// DiscoveryAnalyzer finds emergent vendor patterns: clusters of header
// names absent from the known-vendor table that share a namespace token,
// plus headers whose semantic classification conflicts with their vendor
// expectation.
type DiscoveryAnalyzer struct {
	vendor *VendorAnalyzer
}

// NewDiscoveryAnalyzer creates a DiscoveryAnalyzer. The vendor analyzer
// supplies the signature table used to decide what is already known.
func NewDiscoveryAnalyzer(vendor *VendorAnalyzer) *DiscoveryAnalyzer {
	if vendor == nil {
		vendor = NewVendorAnalyzer()
	}
	return &DiscoveryAnalyzer{vendor: vendor}
}

// Name returns the stage name.
func (a *DiscoveryAnalyzer) Name() string {
	return StageDiscovery
}

// Analyze satisfies the plain analyzer contract using the analyzer's own
// signature table for known-vendor decisions.
func (a *DiscoveryAnalyzer) Analyze(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions) (*model.AnalysisResult, error) {
	return a.AnalyzeWithVendor(ctx, corpus, opts, nil)
}

// AnalyzeWithVendor discovers emergent patterns, using the supplied vendor
// payload to mark headers as already attributed.
func (a *DiscoveryAnalyzer) AnalyzeWithVendor(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions, vendor *model.VendorPayload) (*model.AnalysisResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := newResult(StageDiscovery, corpus, opts)
	payload := &model.DiscoveryPayload{}

	occurrences := headerOccurrences(corpus, opts)
	result.Metadata.PatternsBeforeFilter = len(occurrences)

	unknown := make(map[string]model.StringSet)
	for header, sites := range occurrences {
		if a.isKnown(header, vendor) {
			continue
		}
		unknown[header] = sites
	}

	payload.EmergingVendors = a.clusterByToken(unknown, opts)
	payload.Anomalies = a.findAnomalies(occurrences, vendor)

	for _, emerging := range payload.EmergingVendors {
		sites := make(model.StringSet)
		for _, header := range emerging.Headers {
			for site := range unknown[header] {
				sites.Add(site)
			}
		}
		key := "emerging:" + emerging.Token
		result.Patterns[key] = &model.PatternRecord{
			Pattern:   key,
			SiteCount: sites.Len(),
			Sites:     sites,
			Frequency: frequency(sites.Len(), corpus.TotalSites),
			Metadata: model.PatternMetadata{
				Type:   "emerging-vendor",
				Vendor: emerging.Token,
			},
		}
	}
	result.Metadata.PatternsAfterFilter = len(result.Patterns)

	result.Payload = payload
	return result, nil
}

// isKnown reports whether a header is already attributed to a vendor.
func (a *DiscoveryAnalyzer) isKnown(header string, vendor *model.VendorPayload) bool {
	if vendor != nil {
		_, ok := vendor.Matches[header]
		return ok
	}
	_, ok := a.vendor.Match(header)
	return ok
}

// clusterByToken groups unknown headers into emerging-vendor candidates.
// Shared namespace prefixes are the primary grouping; headers left
// unclaimed are grouped again by trailing segment, which catches vendor
// families spread across unrelated prefixes (x-one-varnish, cdn-varnish).
func (a *DiscoveryAnalyzer) clusterByToken(unknown map[string]model.StringSet, opts model.AnalysisOptions) []model.EmergingVendor {
	prefixGroups := make(map[string]model.StringSet) // token -> header names
	for header := range unknown {
		token, ok := namespaceToken(header)
		if !ok {
			continue
		}
		addToGroup(prefixGroups, token, header)
	}

	claimed := make(model.StringSet)
	var out []model.EmergingVendor
	for token, headers := range prefixGroups {
		emerging, ok := a.newCluster(token, "namespace", headers, unknown, opts)
		if !ok {
			continue
		}
		for header := range headers {
			claimed.Add(header)
		}
		out = append(out, emerging)
	}

	suffixGroups := make(map[string]model.StringSet)
	for header := range unknown {
		if claimed.Has(header) {
			continue
		}
		token, ok := suffixToken(header)
		if !ok {
			continue
		}
		addToGroup(suffixGroups, token, header)
	}
	for token, headers := range suffixGroups {
		emerging, ok := a.newCluster("*-"+token, "suffix", headers, unknown, opts)
		if !ok {
			continue
		}
		out = append(out, emerging)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Token < out[j].Token
	})
	return out
}

// addToGroup inserts a header into the named group, creating it on first use.
func addToGroup(groups map[string]model.StringSet, token, header string) {
	set, ok := groups[token]
	if !ok {
		set = make(model.StringSet)
		groups[token] = set
	}
	set.Add(header)
}

// newCluster builds one emerging-vendor entry when the group clears the
// header-count and site-count thresholds.
func (a *DiscoveryAnalyzer) newCluster(token, shape string, headers model.StringSet, unknown map[string]model.StringSet, opts model.AnalysisOptions) (model.EmergingVendor, bool) {
	if headers.Len() < minClusterHeaders {
		return model.EmergingVendor{}, false
	}
	sites := make(model.StringSet)
	for header := range headers {
		for site := range unknown[header] {
			sites.Add(site)
		}
	}
	if sites.Len() < opts.MinOccurrences {
		return model.EmergingVendor{}, false
	}
	return model.EmergingVendor{
		Token:      token,
		Headers:    headers.Values(),
		SiteCount:  sites.Len(),
		Confidence: clusterConfidence(headers.Len(), sites.Len()),
		Description: fmt.Sprintf("%d unlisted headers sharing %s %q across %d sites",
			headers.Len(), shape, strings.TrimPrefix(token, "*-"), sites.Len()),
	}, true
}

// namespaceToken extracts the candidate vendor namespace from a header
// name: the first two segments for x- names, otherwise the first segment.
func namespaceToken(header string) (string, bool) {
	parts := strings.Split(header, "-")
	if len(parts) < 2 {
		return "", false
	}
	token := parts[0]
	if token == "x" && len(parts) >= 3 {
		token = parts[0] + "-" + parts[1]
	}
	if genericPrefixes[token] || len(token) < 2 {
		return "", false
	}
	return token, true
}

// suffixToken extracts the trailing segment of a multi-segment header
// name. Suffix clusters are marked with a "*-" token prefix so their
// pattern keys never collide with namespace clusters.
func suffixToken(header string) (string, bool) {
	parts := strings.Split(header, "-")
	if len(parts) < 2 {
		return "", false
	}
	token := parts[len(parts)-1]
	if genericSuffixes[token] || len(token) < 3 {
		return "", false
	}
	return token, true
}

// clusterConfidence grades a cluster by header diversity and site reach.
func clusterConfidence(headerCount, siteCount int) float64 {
	diversity := float64(headerCount) / 5
	if diversity > 1 {
		diversity = 1
	}
	reach := float64(siteCount) / clusterSaturationSites
	if reach > 1 {
		reach = 1
	}
	confidence := 0.3 + 0.4*diversity + 0.3*reach
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

// findAnomalies flags headers whose semantic category conflicts with the
// category the vendor table expects.
func (a *DiscoveryAnalyzer) findAnomalies(occurrences map[string]model.StringSet, vendor *model.VendorPayload) []model.SemanticAnomaly {
	var anomalies []model.SemanticAnomaly
	for header := range occurrences {
		expected, vendorName, ok := a.expectedCategory(header, vendor)
		if !ok {
			continue
		}
		actual := ClassifyHeader(header)
		if actual == expected {
			continue
		}
		// Custom is the fallback bucket, not a conflict.
		if actual == model.CategoryCustom || expected == model.CategoryCustom {
			continue
		}
		anomalies = append(anomalies, model.SemanticAnomaly{
			Header:           header,
			Vendor:           vendorName,
			ExpectedCategory: expected,
			ActualCategory:   actual,
		})
	}
	sort.Slice(anomalies, func(i, j int) bool {
		return anomalies[i].Header < anomalies[j].Header
	})
	return anomalies
}

// expectedCategory returns the vendor-table category for a header.
func (a *DiscoveryAnalyzer) expectedCategory(header string, vendor *model.VendorPayload) (model.HeaderCategory, string, bool) {
	if vendor != nil {
		if match, ok := vendor.Matches[header]; ok {
			return match.Category, match.Vendor, true
		}
		return "", "", false
	}
	if sig, ok := a.vendor.Match(header); ok {
		return sig.Category, sig.Vendor, true
	}
	return "", "", false
}
