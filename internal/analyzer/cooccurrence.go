package analyzer

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/nao1215/cmsfreq/internal/model"
)

// Co-occurrence thresholds.
const (
	// minInPlatformFrequency keeps platform combinations seen on more
	// than 30% of the owning platform's sites.
	minInPlatformFrequency = 0.30

	// minExclusivity keeps combinations rarely seen outside the owning
	// platform.
	minExclusivity = 0.80
)

// StackSignature is a known technology-stack co-occurrence signature.
type StackSignature struct {
	// Name labels the stack, e.g. "WordPress + Cloudflare".
	Name string

	// Required headers must all be present on a matching site.
	Required []string

	// Conflicts disqualify a site when any is present: they indicate a
	// different vendor serving the same role.
	Conflicts []string
}

// builtinStackSignatures is the static stack-signature table.
var builtinStackSignatures = []StackSignature{
	{
		Name:      "WordPress + Cloudflare",
		Required:  []string{"x-pingback", "cf-ray"},
		Conflicts: []string{"x-drupal-cache", "x-shopify-stage"},
	},
	{
		Name:      "Shopify + Cloudflare",
		Required:  []string{"x-shopify-stage", "cf-ray"},
		Conflicts: []string{"x-pingback", "x-drupal-cache"},
	},
	{
		Name:      "Drupal + Varnish",
		Required:  []string{"x-drupal-cache", "x-varnish"},
		Conflicts: []string{"x-pingback", "x-shopify-stage"},
	},
	{
		Name:      "Fastly-fronted platform",
		Required:  []string{"x-served-by", "x-timer"},
		Conflicts: []string{"cf-ray"},
	},
}

// pairKey is an ordered header pair: a < b.
type pairKey struct{ a, b string }

// CooccurrenceAnalyzer builds the pairwise header-presence matrix and the
// statistics derived from it: mutual information, conditional probability,
// known stack signatures, platform-exclusive combinations, and
// mutually-exclusive header groups.
type CooccurrenceAnalyzer struct {
	signatures []StackSignature
}

// NewCooccurrenceAnalyzer creates a CooccurrenceAnalyzer with the built-in
// stack-signature table.
func NewCooccurrenceAnalyzer() *CooccurrenceAnalyzer {
	return &CooccurrenceAnalyzer{signatures: builtinStackSignatures}
}

// Name returns the stage name.
func (a *CooccurrenceAnalyzer) Name() string {
	return StageCooccurrence
}

// Analyze satisfies the plain analyzer contract.
func (a *CooccurrenceAnalyzer) Analyze(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions) (*model.AnalysisResult, error) {
	return a.AnalyzeWithVendor(ctx, corpus, opts, nil)
}

// AnalyzeWithVendor computes the co-occurrence statistics. The vendor
// payload, when supplied, annotates pair records with vendor labels.
func (a *CooccurrenceAnalyzer) AnalyzeWithVendor(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions, vendor *model.VendorPayload) (*model.AnalysisResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := newResult(StageCooccurrence, corpus, opts)
	payload := &model.CooccurrencePayload{Pairs: make(map[string]*model.HeaderPair)}

	occurrences := headerOccurrences(corpus, opts)

	// Joint unique-site counts for every pair appearing together at
	// least once. Pair keys are ordered so (a,b) and (b,a) collapse.
	joint := make(map[pairKey]model.StringSet)
	for _, site := range corpus.Sites {
		headers := make([]string, 0, len(site.Headers))
		for h := range site.Headers {
			if opts.SemanticFiltering && IsUninformativeHeader(h) {
				continue
			}
			headers = append(headers, h)
		}
		sort.Strings(headers)
		for i := 0; i < len(headers); i++ {
			for j := i + 1; j < len(headers); j++ {
				key := pairKey{headers[i], headers[j]}
				set, ok := joint[key]
				if !ok {
					set = make(model.StringSet)
					joint[key] = set
				}
				set.Add(site.NormalizedURL)
			}
		}
	}

	result.Metadata.PatternsBeforeFilter = len(joint)
	total := corpus.TotalSites

	for key, sites := range joint {
		count := sites.Len()
		if count < opts.MinOccurrences {
			continue
		}
		n1 := occurrences[key.a].Len()
		n2 := occurrences[key.b].Len()

		pair := &model.HeaderPair{
			Header1:               key.a,
			Header2:               key.b,
			CooccurrenceCount:     count,
			CooccurrenceFrequency: frequency(count, total) * 100,
			MutualInformation:     mutualInformation(count, n1, n2, total),
		}
		if n1 > 0 {
			pair.ConditionalProbability = float64(count) / float64(n1)
		}

		patternKey := key.a + "|" + key.b
		payload.Pairs[patternKey] = pair
		result.Patterns[patternKey] = &model.PatternRecord{
			Pattern:   patternKey,
			SiteCount: count,
			Sites:     sites,
			Frequency: frequency(count, total),
			Metadata: model.PatternMetadata{
				Type:   "pair",
				Vendor: pairVendor(vendor, key.a, key.b),
			},
		}
	}
	result.Metadata.PatternsAfterFilter = len(result.Patterns)

	payload.StackSignatures = a.matchStackSignatures(corpus, opts)
	payload.PlatformCombinations = platformCombinations(corpus, joint, opts)
	payload.ExclusiveGroups = exclusiveGroups(occurrences, joint, opts)

	result.Payload = payload
	return result, nil
}

// mutualInformation computes the mutual information of two binary
// presence signals over the 2x2 joint distribution, in bits.
// Zero-probability cells contribute nothing, so the result is always
// finite and never NaN.
func mutualInformation(both, n1, n2, total int) float64 {
	if total == 0 {
		return 0
	}
	t := float64(total)
	p11 := float64(both) / t
	p1 := float64(n1) / t
	p2 := float64(n2) / t
	p10 := p1 - p11
	p01 := p2 - p11
	p00 := 1 - p1 - p2 + p11

	cells := []struct{ pxy, px, py float64 }{
		{p11, p1, p2},
		{p10, p1, 1 - p2},
		{p01, 1 - p1, p2},
		{p00, 1 - p1, 1 - p2},
	}

	var mi float64
	for _, c := range cells {
		if c.pxy <= 0 || c.px <= 0 || c.py <= 0 {
			continue
		}
		mi += c.pxy * math.Log2(c.pxy/(c.px*c.py))
	}
	return mi
}

// pairVendor labels a pair with its members' vendors when both are known.
func pairVendor(vendor *model.VendorPayload, h1, h2 string) string {
	if vendor == nil {
		return ""
	}
	m1, ok1 := vendor.Matches[h1]
	m2, ok2 := vendor.Matches[h2]
	switch {
	case ok1 && ok2 && m1.Vendor != m2.Vendor:
		return m1.Vendor + " + " + m2.Vendor
	case ok1 && ok2:
		return m1.Vendor
	case ok1:
		return m1.Vendor
	case ok2:
		return m2.Vendor
	default:
		return ""
	}
}

// matchStackSignatures evaluates every known stack signature against the
// corpus. A site matches when all required headers are present and no
// conflicting header is. Confidence is matches over candidates, where a
// candidate has any nonempty subset of the required headers.
func (a *CooccurrenceAnalyzer) matchStackSignatures(corpus *model.Corpus, opts model.AnalysisOptions) []model.StackSignatureMatch {
	var out []model.StackSignatureMatch
	for _, sig := range a.signatures {
		var candidates, matches int
		for _, site := range corpus.Sites {
			present := 0
			for _, required := range sig.Required {
				if site.HasHeader(required) {
					present++
				}
			}
			if present == 0 {
				continue
			}
			candidates++
			if present < len(sig.Required) {
				continue
			}
			conflicted := false
			for _, conflict := range sig.Conflicts {
				if site.HasHeader(conflict) {
					conflicted = true
					break
				}
			}
			if !conflicted {
				matches++
			}
		}
		if matches < opts.MinOccurrences {
			continue
		}
		match := model.StackSignatureMatch{
			Name:      sig.Name,
			Required:  sig.Required,
			SiteCount: matches,
		}
		if candidates > 0 {
			match.Confidence = float64(matches) / float64(candidates)
		}
		out = append(out, match)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// platformCombinations keeps header pairs whose frequency within one CMS
// class exceeds the in-platform threshold and whose presence outside that
// class stays below the exclusivity threshold.
func platformCombinations(corpus *model.Corpus, joint map[pairKey]model.StringSet, opts model.AnalysisOptions) []model.PlatformCombination {
	cmsSites := make(map[string]int)
	for _, site := range corpus.Sites {
		cmsSites[site.CMSLabel()]++
	}

	var out []model.PlatformCombination
	for key, sites := range joint {
		if sites.Len() < opts.MinOccurrences {
			continue
		}
		perCMS := make(map[string]int)
		for url := range sites {
			if site, ok := corpus.Sites[url]; ok {
				perCMS[site.CMSLabel()]++
			}
		}
		for cms, count := range perCMS {
			classTotal := cmsSites[cms]
			if classTotal == 0 {
				continue
			}
			inPlatform := float64(count) / float64(classTotal)
			if inPlatform <= minInPlatformFrequency {
				continue
			}
			exclusivity := 1 - float64(sites.Len()-count)/float64(sites.Len())
			if exclusivity < minExclusivity {
				continue
			}
			out = append(out, model.PlatformCombination{
				CMS:                 cms,
				Headers:             []string{key.a, key.b},
				SiteCount:           sites.Len(),
				InPlatformFrequency: inPlatform,
				Exclusivity:         exclusivity,
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CMS != out[j].CMS {
			return out[i].CMS < out[j].CMS
		}
		return strings.Join(out[i].Headers, "|") < strings.Join(out[j].Headers, "|")
	})
	return out
}

// exclusiveGroups finds mutually-exclusive header groups: headers that
// individually meet the occurrence threshold but never co-occur, grouped
// as connected components of the never-co-occurs relation.
func exclusiveGroups(occurrences map[string]model.StringSet, joint map[pairKey]model.StringSet, opts model.AnalysisOptions) [][]string {
	eligible := make([]string, 0, len(occurrences))
	for header, sites := range occurrences {
		if sites.Len() >= opts.MinOccurrences {
			eligible = append(eligible, header)
		}
	}
	sort.Strings(eligible)

	// Union-find over headers connected by a never-co-occurs edge.
	parent := make(map[string]string, len(eligible))
	var find func(string) string
	find = func(h string) string {
		if parent[h] != h {
			parent[h] = find(parent[h])
		}
		return parent[h]
	}
	union := func(a, b string) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	for _, h := range eligible {
		parent[h] = h
	}

	connected := make(map[string]bool)
	for i := 0; i < len(eligible); i++ {
		for j := i + 1; j < len(eligible); j++ {
			key := pairKey{eligible[i], eligible[j]}
			if set, ok := joint[key]; ok && set.Len() > 0 {
				continue
			}
			union(eligible[i], eligible[j])
			connected[eligible[i]] = true
			connected[eligible[j]] = true
		}
	}

	components := make(map[string][]string)
	for _, h := range eligible {
		if !connected[h] {
			continue
		}
		root := find(h)
		components[root] = append(components[root], h)
	}

	var out [][]string
	for _, members := range components {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		out = append(out, members)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
