package model

// PayloadKind identifies the concrete type of an analyzer payload.
type PayloadKind string

// Payload kind constants, one per analyzer that emits a typed payload.
const (
	// PayloadValidation is emitted by the validation stage.
	PayloadValidation PayloadKind = "validation"
	// PayloadSemantic is emitted by the semantic analyzer.
	PayloadSemantic PayloadKind = "semantic"
	// PayloadVendor is emitted by the vendor analyzer.
	PayloadVendor PayloadKind = "vendor"
	// PayloadDiscovery is emitted by the pattern-discovery analyzer.
	PayloadDiscovery PayloadKind = "discovery"
	// PayloadCooccurrence is emitted by the co-occurrence analyzer.
	PayloadCooccurrence PayloadKind = "cooccurrence"
	// PayloadBias is emitted by the bias analyzer.
	PayloadBias PayloadKind = "bias"
	// PayloadSignature is emitted by the platform-signature analyzer.
	PayloadSignature PayloadKind = "signature"
)

// Payload is the analyzer-specific portion of an AnalysisResult.
// Each analyzer emits exactly one concrete payload type, so consumers
// type-switch on the concrete type instead of probing an open-ended map.
type Payload interface {
	// Kind returns the payload's kind tag.
	Kind() PayloadKind
}

// ValidationPayload carries the validation stage output.
type ValidationPayload struct {
	// QualityScore grades corpus adequacy in [0,1].
	QualityScore float64 `json:"quality_score"`

	// Validated lists pattern keys that passed validation.
	Validated []string `json:"validated"`

	// Rejected maps failed pattern keys to the rejection reason.
	Rejected map[string]string `json:"rejected,omitempty"`
}

// Kind returns PayloadValidation.
func (*ValidationPayload) Kind() PayloadKind { return PayloadValidation }

// HeaderClassification is the semantic classification of one header.
type HeaderClassification struct {
	// Header is the lowercase header name.
	Header string `json:"header"`

	// Category is the semantic category.
	Category HeaderCategory `json:"category"`

	// Convention is the naming-convention bucket.
	Convention NamingConvention `json:"convention"`

	// Vendor is the vendor label when vendor evidence was supplied.
	Vendor string `json:"vendor,omitempty"`
}

// SemanticPayload carries the semantic analyzer output.
type SemanticPayload struct {
	// Classifications maps header name to its classification.
	Classifications map[string]HeaderClassification `json:"classifications"`

	// CategoryCounts tallies headers per category.
	CategoryCounts map[HeaderCategory]int `json:"category_counts"`
}

// Kind returns PayloadSemantic.
func (*SemanticPayload) Kind() PayloadKind { return PayloadSemantic }

// VendorMatch records a header matched against the vendor signature table.
type VendorMatch struct {
	// Header is the matched lowercase header name.
	Header string `json:"header"`

	// Vendor is the matched vendor or technology label.
	Vendor string `json:"vendor"`

	// Category is the signature's category.
	Category HeaderCategory `json:"category"`

	// MatchKind is how the signature matched.
	MatchKind MatchKind `json:"match_kind"`

	// SiteCount is the number of unique sites with the header.
	SiteCount int `json:"site_count"`

	// Confidence combines match specificity with sample size, in [0,1].
	Confidence float64 `json:"confidence"`
}

// TechnologyStack is the overall stack inferred from vendor matches.
type TechnologyStack struct {
	// CMS is the strongest platform vendor, empty when none matched.
	CMS string `json:"cms,omitempty"`

	// CDN lists matched content-delivery vendors.
	CDN []string `json:"cdn,omitempty"`

	// Framework is the strongest application-framework vendor.
	Framework string `json:"framework,omitempty"`

	// Analytics lists matched analytics vendors.
	Analytics []string `json:"analytics,omitempty"`

	// Hosting is the strongest hosting vendor.
	Hosting string `json:"hosting,omitempty"`

	// Security lists matched security vendors.
	Security []string `json:"security,omitempty"`

	// Confidence is the combined confidence over contributing matches.
	Confidence float64 `json:"confidence"`
}

// VendorPayload carries the vendor analyzer output.
type VendorPayload struct {
	// Matches maps header name to its vendor match.
	Matches map[string]VendorMatch `json:"matches"`

	// Stack is the inferred technology stack.
	Stack TechnologyStack `json:"stack"`
}

// Kind returns PayloadVendor.
func (*VendorPayload) Kind() PayloadKind { return PayloadVendor }

// EmergingVendor is a cluster of unlisted headers that looks like a vendor.
type EmergingVendor struct {
	// Token is the shared prefix or suffix that binds the cluster.
	Token string `json:"token"`

	// Headers lists the clustered header names.
	Headers []string `json:"headers"`

	// SiteCount is the number of unique sites with any clustered header.
	SiteCount int `json:"site_count"`

	// Confidence grades the cluster in [0,1].
	Confidence float64 `json:"confidence"`

	// Description is a human-readable characterization.
	Description string `json:"description"`
}

// SemanticAnomaly flags a header whose semantic classification conflicts
// with its vendor-table expectation.
type SemanticAnomaly struct {
	// Header is the anomalous header name.
	Header string `json:"header"`

	// Vendor is the vendor the signature table assigns.
	Vendor string `json:"vendor"`

	// ExpectedCategory is the category from the signature table.
	ExpectedCategory HeaderCategory `json:"expected_category"`

	// ActualCategory is the category from semantic classification.
	ActualCategory HeaderCategory `json:"actual_category"`
}

// DiscoveryPayload carries the pattern-discovery analyzer output.
type DiscoveryPayload struct {
	// EmergingVendors lists candidate unlisted vendors.
	EmergingVendors []EmergingVendor `json:"emerging_vendors"`

	// Anomalies lists semantic anomalies.
	Anomalies []SemanticAnomaly `json:"anomalies,omitempty"`
}

// Kind returns PayloadDiscovery.
func (*DiscoveryPayload) Kind() PayloadKind { return PayloadDiscovery }

// HeaderPair is one cell of the co-occurrence matrix.
type HeaderPair struct {
	// Header1 and Header2 are the pair members, Header1 < Header2.
	Header1 string `json:"header1"`
	Header2 string `json:"header2"`

	// CooccurrenceCount is the number of unique sites with both headers.
	CooccurrenceCount int `json:"cooccurrence_count"`

	// CooccurrenceFrequency is CooccurrenceCount/totalSites*100.
	CooccurrenceFrequency float64 `json:"cooccurrence_frequency"`

	// ConditionalProbability is P(Header2 | Header1).
	ConditionalProbability float64 `json:"conditional_probability"`

	// MutualInformation is computed over the 2x2 presence/absence joint
	// distribution in log base 2. Always finite, never NaN.
	MutualInformation float64 `json:"mutual_information"`
}

// StackSignatureMatch is a matched known technology-stack signature.
type StackSignatureMatch struct {
	// Name is the signature name, e.g. "WordPress + Cloudflare".
	Name string `json:"name"`

	// Required lists the headers the signature requires.
	Required []string `json:"required"`

	// SiteCount is the number of sites with all required headers present
	// and no conflicting-vendor header.
	SiteCount int `json:"site_count"`

	// Confidence is SiteCount over the number of candidate sites having
	// any subset of the required headers.
	Confidence float64 `json:"confidence"`
}

// PlatformCombination is a header group largely exclusive to one CMS.
type PlatformCombination struct {
	// CMS is the owning platform.
	CMS string `json:"cms"`

	// Headers lists the combined headers.
	Headers []string `json:"headers"`

	// SiteCount is the number of sites exhibiting the combination.
	SiteCount int `json:"site_count"`

	// InPlatformFrequency is the combination frequency within the CMS class.
	InPlatformFrequency float64 `json:"in_platform_frequency"`

	// Exclusivity is 1 - (combination sites on other CMS / combination sites).
	Exclusivity float64 `json:"exclusivity"`
}

// CooccurrencePayload carries the co-occurrence analyzer output.
type CooccurrencePayload struct {
	// Pairs maps "header1|header2" to the pair statistics.
	Pairs map[string]*HeaderPair `json:"pairs"`

	// StackSignatures lists matched known stack signatures.
	StackSignatures []StackSignatureMatch `json:"stack_signatures,omitempty"`

	// PlatformCombinations lists platform-exclusive header groups.
	PlatformCombinations []PlatformCombination `json:"platform_combinations,omitempty"`

	// ExclusiveGroups lists mutually-exclusive header groups, each a
	// connected component of the never-co-occurs relation.
	ExclusiveGroups [][]string `json:"exclusive_groups,omitempty"`
}

// Kind returns PayloadCooccurrence.
func (*CooccurrencePayload) Kind() PayloadKind { return PayloadCooccurrence }

// CMSShare is one bucket of the CMS distribution.
type CMSShare struct {
	// Count is the number of sites with this CMS label.
	Count int `json:"count"`

	// Percentage is Count/totalSites*100.
	Percentage float64 `json:"percentage"`
}

// HeaderCorrelation is the per-header CMS correlation computed by the
// bias analyzer.
type HeaderCorrelation struct {
	// Header is the lowercase header name.
	Header string `json:"header"`

	// SiteCount is the number of unique sites with the header.
	SiteCount int `json:"site_count"`

	// PerCMS maps CMS label to the number of header sites on that CMS.
	PerCMS map[string]int `json:"per_cms"`

	// Conditional maps CMS label to P(CMS|header). Values sum to 1.
	Conditional map[string]float64 `json:"conditional"`

	// Specificity is the platform specificity in [0,1].
	Specificity float64 `json:"specificity"`

	// Confidence grades the correlation by sample size and specificity.
	Confidence ConfidenceLevel `json:"confidence"`

	// Warning is set when raw frequency would overstate genericity due to
	// corpus concentration.
	Warning string `json:"warning,omitempty"`
}

// FilterRecommendation suggests how to treat a header in detection rules.
type FilterRecommendation struct {
	// Header is the lowercase header name.
	Header string `json:"header"`

	// Action is "keep", "drop", or "review".
	Action string `json:"action"`

	// Confidence grades the recommendation.
	Confidence ConfidenceLevel `json:"confidence"`

	// Reason explains the recommendation.
	Reason string `json:"reason"`
}

// BiasPayload carries the bias analyzer output.
type BiasPayload struct {
	// Distribution maps CMS label to its share of the corpus.
	Distribution map[string]CMSShare `json:"distribution"`

	// ConcentrationScore is the Herfindahl index of the distribution:
	// 0 is perfectly balanced, 1 is a single-platform corpus.
	ConcentrationScore float64 `json:"concentration_score"`

	// Correlations maps header name to its CMS correlation.
	Correlations map[string]*HeaderCorrelation `json:"correlations"`

	// Warnings lists corpus-bias warnings.
	Warnings []string `json:"warnings,omitempty"`

	// Recommendations lists confidence-graded filter recommendations.
	Recommendations []FilterRecommendation `json:"recommendations,omitempty"`
}

// Kind returns PayloadBias.
func (*BiasPayload) Kind() PayloadKind { return PayloadBias }

// PlatformSignature is a cross-dimensional signature for one platform.
type PlatformSignature struct {
	// CMS is the platform label.
	CMS string `json:"cms"`

	// SiteCount is the number of corpus sites on the platform.
	SiteCount int `json:"site_count"`

	// Headers lists discriminative header names for the platform.
	Headers []string `json:"headers,omitempty"`

	// MetaTags lists discriminative meta tag names.
	MetaTags []string `json:"meta_tags,omitempty"`

	// Scripts lists discriminative script fingerprints.
	Scripts []string `json:"scripts,omitempty"`

	// ExclusiveCombinations lists platform-exclusive header combos.
	ExclusiveCombinations []string `json:"exclusive_combinations,omitempty"`

	// Confidence is the combined signature confidence in [0,1].
	Confidence float64 `json:"confidence"`
}

// SignaturePayload carries the platform-signature analyzer output.
type SignaturePayload struct {
	// Signatures maps CMS label to its synthesized signature.
	Signatures map[string]*PlatformSignature `json:"signatures"`
}

// Kind returns PayloadSignature.
func (*SignaturePayload) Kind() PayloadKind { return PayloadSignature }
