package analyzer

import (
	"context"
	"sort"
	"strings"

	"github.com/nao1215/cmsfreq/internal/model"
)

// Signature is one row of the known-vendor signature table.
type Signature struct {
	// Pattern is the lowercase header-name pattern.
	Pattern string

	// Vendor is the technology or vendor label.
	Vendor string

	// Category classifies what the vendor provides.
	Category model.HeaderCategory

	// Role refines the category for stack inference.
	Role StackRole

	// Kind is how Pattern matches a header name.
	Kind model.MatchKind
}

// StackRole positions a vendor inside an inferred technology stack.
type StackRole string

// Stack role constants.
const (
	// RoleCMS marks content-management platforms.
	RoleCMS StackRole = "cms"
	// RoleCDN marks content-delivery networks.
	RoleCDN StackRole = "cdn"
	// RoleFramework marks application frameworks.
	RoleFramework StackRole = "framework"
	// RoleAnalytics marks analytics vendors.
	RoleAnalytics StackRole = "analytics"
	// RoleHosting marks hosting providers.
	RoleHosting StackRole = "hosting"
	// RoleSecurity marks security vendors.
	RoleSecurity StackRole = "security"
)

// builtinSignatures is the static known-vendor table. Exact entries come
// first so the most specific match wins for any header name.
var builtinSignatures = []Signature{
	// Content-management platforms and site builders.
	{Pattern: "x-pingback", Vendor: "WordPress", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchExact},
	{Pattern: "x-drupal-cache", Vendor: "Drupal", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchExact},
	{Pattern: "x-drupal-", Vendor: "Drupal", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchPrefix},
	{Pattern: "x-generator", Vendor: "Generic CMS", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchExact},
	{Pattern: "x-shopify-", Vendor: "Shopify", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchPrefix},
	{Pattern: "x-sorting-hat-", Vendor: "Shopify", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchPrefix},
	{Pattern: "x-shardid", Vendor: "Shopify", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchExact},
	{Pattern: "x-wix-", Vendor: "Wix", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchPrefix},
	{Pattern: "x-contextid", Vendor: "Wix", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchExact},
	{Pattern: "x-squarespace-", Vendor: "Squarespace", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchPrefix},
	{Pattern: "x-contentful-", Vendor: "Contentful", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchPrefix},
	{Pattern: "x-ghost-", Vendor: "Ghost", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchPrefix},
	{Pattern: "dm_", Vendor: "Duda", Category: model.CategoryPlatform, Role: RoleCMS, Kind: model.MatchPrefix},

	// Content-delivery networks.
	{Pattern: "cf-ray", Vendor: "Cloudflare", Category: model.CategoryInfrastructure, Role: RoleCDN, Kind: model.MatchExact},
	{Pattern: "cf-", Vendor: "Cloudflare", Category: model.CategoryInfrastructure, Role: RoleCDN, Kind: model.MatchPrefix},
	{Pattern: "x-timer", Vendor: "Fastly", Category: model.CategoryInfrastructure, Role: RoleCDN, Kind: model.MatchExact},
	{Pattern: "x-fastly-", Vendor: "Fastly", Category: model.CategoryInfrastructure, Role: RoleCDN, Kind: model.MatchPrefix},
	{Pattern: "x-served-by", Vendor: "Fastly", Category: model.CategoryInfrastructure, Role: RoleCDN, Kind: model.MatchExact},
	{Pattern: "x-akamai-", Vendor: "Akamai", Category: model.CategoryInfrastructure, Role: RoleCDN, Kind: model.MatchPrefix},
	{Pattern: "x-amz-cf-", Vendor: "CloudFront", Category: model.CategoryInfrastructure, Role: RoleCDN, Kind: model.MatchPrefix},
	{Pattern: "x-cdn", Vendor: "Generic CDN", Category: model.CategoryInfrastructure, Role: RoleCDN, Kind: model.MatchExact},
	{Pattern: "x-varnish", Vendor: "Varnish", Category: model.CategoryInfrastructure, Role: RoleCDN, Kind: model.MatchExact},

	// Application frameworks.
	{Pattern: "x-aspnet-version", Vendor: "ASP.NET", Category: model.CategoryPlatform, Role: RoleFramework, Kind: model.MatchExact},
	{Pattern: "x-aspnetmvc-version", Vendor: "ASP.NET", Category: model.CategoryPlatform, Role: RoleFramework, Kind: model.MatchExact},
	{Pattern: "x-runtime", Vendor: "Rails", Category: model.CategoryPlatform, Role: RoleFramework, Kind: model.MatchExact},
	{Pattern: "x-laravel-", Vendor: "Laravel", Category: model.CategoryPlatform, Role: RoleFramework, Kind: model.MatchPrefix},
	{Pattern: "x-nextjs-", Vendor: "Next.js", Category: model.CategoryPlatform, Role: RoleFramework, Kind: model.MatchPrefix},
	{Pattern: "x-powered-by", Vendor: "Generic Framework", Category: model.CategoryPlatform, Role: RoleFramework, Kind: model.MatchExact},

	// Hosting providers.
	{Pattern: "x-github-request-id", Vendor: "GitHub Pages", Category: model.CategoryInfrastructure, Role: RoleHosting, Kind: model.MatchExact},
	{Pattern: "x-vercel-", Vendor: "Vercel", Category: model.CategoryInfrastructure, Role: RoleHosting, Kind: model.MatchPrefix},
	{Pattern: "x-nf-request-id", Vendor: "Netlify", Category: model.CategoryInfrastructure, Role: RoleHosting, Kind: model.MatchExact},
	{Pattern: "fly-request-id", Vendor: "Fly.io", Category: model.CategoryInfrastructure, Role: RoleHosting, Kind: model.MatchExact},
	{Pattern: "x-amz-", Vendor: "AWS", Category: model.CategoryInfrastructure, Role: RoleHosting, Kind: model.MatchPrefix},
	{Pattern: "x-azure-", Vendor: "Azure", Category: model.CategoryInfrastructure, Role: RoleHosting, Kind: model.MatchPrefix},
	{Pattern: "x-goog-", Vendor: "Google Cloud", Category: model.CategoryInfrastructure, Role: RoleHosting, Kind: model.MatchPrefix},

	// Security vendors.
	{Pattern: "x-sucuri-", Vendor: "Sucuri", Category: model.CategorySecurity, Role: RoleSecurity, Kind: model.MatchPrefix},
	{Pattern: "x-ddos-", Vendor: "DDoS-Guard", Category: model.CategorySecurity, Role: RoleSecurity, Kind: model.MatchPrefix},
	{Pattern: "x-iinfo", Vendor: "Imperva", Category: model.CategorySecurity, Role: RoleSecurity, Kind: model.MatchExact},
	{Pattern: "incap", Vendor: "Imperva", Category: model.CategorySecurity, Role: RoleSecurity, Kind: model.MatchSubstring},

	// Analytics vendors (rarely header-borne, but some proxies tag).
	{Pattern: "x-ga-", Vendor: "Google Analytics", Category: model.CategoryCustom, Role: RoleAnalytics, Kind: model.MatchPrefix},
	{Pattern: "x-matomo-", Vendor: "Matomo", Category: model.CategoryCustom, Role: RoleAnalytics, Kind: model.MatchPrefix},
}

// VendorAnalyzer matches header names against the vendor signature table
// and infers the corpus-level technology stack.
type VendorAnalyzer struct {
	signatures []Signature
}

// VendorOption configures a VendorAnalyzer.
type VendorOption func(*VendorAnalyzer)

// WithExtraSignatures appends user-configured signatures to the built-in
// table. Extra signatures are matched after built-ins of the same kind.
func WithExtraSignatures(extra []Signature) VendorOption {
	return func(a *VendorAnalyzer) {
		a.signatures = append(a.signatures, extra...)
	}
}

// NewVendorAnalyzer creates a VendorAnalyzer with the built-in table.
func NewVendorAnalyzer(opts ...VendorOption) *VendorAnalyzer {
	a := &VendorAnalyzer{
		signatures: append([]Signature(nil), builtinSignatures...),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the stage name.
func (a *VendorAnalyzer) Name() string {
	return StageVendor
}

// Signatures returns the active signature table.
func (a *VendorAnalyzer) Signatures() []Signature {
	return a.signatures
}

// Match looks up the most specific signature for a header name.
// Exact matches beat prefix matches, which beat substring matches.
func (a *VendorAnalyzer) Match(header string) (Signature, bool) {
	var (
		best  Signature
		found bool
	)
	for _, sig := range a.signatures {
		switch sig.Kind {
		case model.MatchExact:
			if header == sig.Pattern {
				return sig, true
			}
		case model.MatchPrefix:
			if strings.HasPrefix(header, sig.Pattern) {
				if !found || best.Kind == model.MatchSubstring {
					best, found = sig, true
				}
			}
		case model.MatchSubstring:
			if strings.Contains(header, sig.Pattern) && !found {
				best, found = sig, true
			}
		}
	}
	return best, found
}

// Analyze matches every counted header against the signature table.
func (a *VendorAnalyzer) Analyze(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions) (*model.AnalysisResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := newResult(StageVendor, corpus, opts)
	occurrences := headerOccurrences(corpus, opts)
	result.Metadata.PatternsBeforeFilter = len(occurrences)

	payload := &model.VendorPayload{Matches: make(map[string]model.VendorMatch)}

	for header, sites := range occurrences {
		sig, ok := a.Match(header)
		if !ok {
			continue
		}
		match := model.VendorMatch{
			Header:     header,
			Vendor:     sig.Vendor,
			Category:   sig.Category,
			MatchKind:  sig.Kind,
			SiteCount:  sites.Len(),
			Confidence: matchConfidence(sig.Kind, sites.Len(), opts.MinOccurrences),
		}
		payload.Matches[header] = match

		if sites.Len() < opts.MinOccurrences {
			continue
		}
		result.Patterns[header] = &model.PatternRecord{
			Pattern:   header,
			SiteCount: sites.Len(),
			Sites:     sites,
			Frequency: frequency(sites.Len(), corpus.TotalSites),
			Metadata: model.PatternMetadata{
				Type:     "vendor",
				Vendor:   sig.Vendor,
				Category: sig.Category,
			},
		}
	}

	payload.Stack = a.inferStack(payload.Matches)
	result.Payload = payload
	result.Metadata.PatternsAfterFilter = len(result.Patterns)
	return result, nil
}

// matchConfidence combines match specificity with sample size.
// The sample factor saturates at three times the occurrence threshold, so
// an exact match on a well-represented header approaches its base
// specificity while thin samples are discounted.
func matchConfidence(kind model.MatchKind, siteCount, minOccurrences int) float64 {
	if minOccurrences <= 0 {
		minOccurrences = model.DefaultMinOccurrences
	}
	sample := float64(siteCount) / float64(minOccurrences*3)
	if sample > 1 {
		sample = 1
	}
	return kind.Specificity() * (0.5 + 0.5*sample)
}

// roleVendor aggregates evidence for one vendor within one stack role.
type roleVendor struct {
	vendor     string
	confidence float64
}

// inferStack derives the overall technology stack from the vendor matches.
// For singular roles (CMS, framework, hosting) the vendor with the highest
// summed confidence wins; list roles (CDN, analytics, security) keep every
// matched vendor.
func (a *VendorAnalyzer) inferStack(matches map[string]model.VendorMatch) model.TechnologyStack {
	byRole := make(map[StackRole]map[string]float64)
	var total float64
	var contributing int

	for header, match := range matches {
		sig, ok := a.Match(header)
		if !ok {
			continue
		}
		if byRole[sig.Role] == nil {
			byRole[sig.Role] = make(map[string]float64)
		}
		byRole[sig.Role][match.Vendor] += match.Confidence
		total += match.Confidence
		contributing++
	}

	stack := model.TechnologyStack{
		CMS:       strongestVendor(byRole[RoleCMS]),
		Framework: strongestVendor(byRole[RoleFramework]),
		Hosting:   strongestVendor(byRole[RoleHosting]),
		CDN:       allVendors(byRole[RoleCDN]),
		Analytics: allVendors(byRole[RoleAnalytics]),
		Security:  allVendors(byRole[RoleSecurity]),
	}
	if contributing > 0 {
		stack.Confidence = total / float64(contributing)
	}
	return stack
}

// strongestVendor returns the vendor with the highest summed confidence.
func strongestVendor(candidates map[string]float64) string {
	var (
		best     string
		bestConf float64
	)
	names := make([]string, 0, len(candidates))
	for name := range candidates {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if candidates[name] > bestConf {
			best, bestConf = name, candidates[name]
		}
	}
	return best
}

// allVendors returns every matched vendor sorted by name.
func allVendors(candidates map[string]float64) []string {
	if len(candidates) == 0 {
		return nil
	}
	names := make([]string, 0, len(candidates))
	for name := range candidates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// headerOccurrences maps each counted header name to the set of sites
// observing it, honoring semantic filtering.
func headerOccurrences(corpus *model.Corpus, opts model.AnalysisOptions) map[string]model.StringSet {
	occ := make(map[string]model.StringSet)
	for _, site := range corpus.Sites {
		for header := range site.Headers {
			if opts.SemanticFiltering && IsUninformativeHeader(header) {
				continue
			}
			set, ok := occ[header]
			if !ok {
				set = make(model.StringSet)
				occ[header] = set
			}
			set.Add(site.NormalizedURL)
		}
	}
	return occ
}
