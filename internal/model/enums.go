package model

// enumUnknownStr is the string representation for unknown enum values.
const enumUnknownStr = "unknown"

// FilterReason identifies why a site record was excluded during preprocessing.
type FilterReason string

// Filter reason constants. The preprocessor applies filters in this
// precedence order; the first matching reason wins.
const (
	// FilterReasonNone means the record was not filtered.
	FilterReasonNone FilterReason = ""
	// FilterReasonInvalidURL means the record URL failed to parse or used
	// a non-HTTP protocol.
	FilterReasonInvalidURL FilterReason = "invalid-url"
	// FilterReasonBotDetection means the capture hit a bot challenge page.
	FilterReasonBotDetection FilterReason = "bot-detection"
	// FilterReasonErrorPage means the capture was an HTTP error or soft-404.
	FilterReasonErrorPage FilterReason = "error-page"
	// FilterReasonInsufficientData means the capture was too small to analyze.
	FilterReasonInsufficientData FilterReason = "insufficient-data"
	// FilterReasonUnreadable means the artifact file could not be read or parsed.
	FilterReasonUnreadable FilterReason = "unreadable-artifact"
)

// String returns the string representation of the FilterReason.
func (r FilterReason) String() string {
	if r == FilterReasonNone {
		return "none"
	}
	return string(r)
}

// IsValid returns true if this is a known filter reason.
func (r FilterReason) IsValid() bool {
	switch r {
	case FilterReasonInvalidURL, FilterReasonBotDetection,
		FilterReasonErrorPage, FilterReasonInsufficientData,
		FilterReasonUnreadable:
		return true
	default:
		return false
	}
}

// PageType identifies which fetched page a header was observed on.
type PageType string

// Page type constants.
const (
	// PageTypeMain represents the main page fetch.
	PageTypeMain PageType = "mainpage"
	// PageTypeRobots represents the robots.txt fetch.
	PageTypeRobots PageType = "robots"
)

// String returns the string representation of the PageType.
func (p PageType) String() string {
	return string(p)
}

// IsValid returns true if this is a known page type.
func (p PageType) IsValid() bool {
	switch p {
	case PageTypeMain, PageTypeRobots:
		return true
	default:
		return false
	}
}

// HeaderCategory classifies a header name by its semantic role.
type HeaderCategory string

// Header category constants.
const (
	// CategoryUnknown represents an unclassified header.
	CategoryUnknown HeaderCategory = ""
	// CategorySecurity covers browser security policy headers.
	CategorySecurity HeaderCategory = "security"
	// CategoryCustom covers non-standard x-prefixed headers.
	CategoryCustom HeaderCategory = "custom"
	// CategoryInfrastructure covers CDN, cache, and proxy headers.
	CategoryInfrastructure HeaderCategory = "infrastructure"
	// CategoryPlatform covers headers emitted by a CMS or site builder.
	CategoryPlatform HeaderCategory = "platform"
	// CategoryGeneric covers standard HTTP headers with no platform signal.
	CategoryGeneric HeaderCategory = "generic"
)

// String returns the string representation of the HeaderCategory.
func (c HeaderCategory) String() string {
	if c == CategoryUnknown {
		return enumUnknownStr
	}
	return string(c)
}

// IsValid returns true if this is a known category.
func (c HeaderCategory) IsValid() bool {
	switch c {
	case CategorySecurity, CategoryCustom, CategoryInfrastructure,
		CategoryPlatform, CategoryGeneric:
		return true
	default:
		return false
	}
}

// ParseHeaderCategory converts a string to HeaderCategory.
func ParseHeaderCategory(s string) HeaderCategory {
	switch s {
	case "security":
		return CategorySecurity
	case "custom":
		return CategoryCustom
	case "infrastructure":
		return CategoryInfrastructure
	case "platform":
		return CategoryPlatform
	case "generic":
		return CategoryGeneric
	default:
		return CategoryUnknown
	}
}

// MatchKind describes how a vendor signature matches a header name.
type MatchKind string

// Match kind constants, ordered from most to least specific.
const (
	// MatchExact requires the full header name to equal the pattern.
	MatchExact MatchKind = "exact"
	// MatchPrefix requires the header name to start with the pattern.
	MatchPrefix MatchKind = "prefix"
	// MatchSubstring requires the header name to contain the pattern.
	MatchSubstring MatchKind = "substring"
)

// String returns the string representation of the MatchKind.
func (k MatchKind) String() string {
	return string(k)
}

// IsValid returns true if this is a known match kind.
func (k MatchKind) IsValid() bool {
	switch k {
	case MatchExact, MatchPrefix, MatchSubstring:
		return true
	default:
		return false
	}
}

// Specificity returns the base confidence contributed by this match kind.
// Exact matches carry more evidence than prefix matches, which carry more
// than bare substring matches.
func (k MatchKind) Specificity() float64 {
	switch k {
	case MatchExact:
		return 0.9
	case MatchPrefix:
		return 0.7
	case MatchSubstring:
		return 0.5
	default:
		return 0
	}
}

// ParseMatchKind converts a string to MatchKind.
func ParseMatchKind(s string) MatchKind {
	switch s {
	case "exact":
		return MatchExact
	case "prefix":
		return MatchPrefix
	case "substring":
		return MatchSubstring
	default:
		return ""
	}
}

// ConfidenceLevel grades statistical confidence in a derived signal.
type ConfidenceLevel string

// Confidence level constants.
const (
	// ConfidenceHigh indicates a large sample with strong specificity.
	ConfidenceHigh ConfidenceLevel = "high"
	// ConfidenceMedium indicates a moderate sample or specificity.
	ConfidenceMedium ConfidenceLevel = "medium"
	// ConfidenceLow indicates a small sample or weak specificity.
	ConfidenceLow ConfidenceLevel = "low"
)

// String returns the string representation of the ConfidenceLevel.
func (c ConfidenceLevel) String() string {
	return string(c)
}

// IsValid returns true if this is a known confidence level.
func (c ConfidenceLevel) IsValid() bool {
	switch c {
	case ConfidenceHigh, ConfidenceMedium, ConfidenceLow:
		return true
	default:
		return false
	}
}

// NamingConvention buckets a header name by its naming style.
type NamingConvention string

// Naming convention constants.
const (
	// ConventionXPrefixed covers names starting with "x-".
	ConventionXPrefixed NamingConvention = "x-prefixed"
	// ConventionVendorPrefixed covers names starting with a known vendor token.
	ConventionVendorPrefixed NamingConvention = "vendor-prefixed"
	// ConventionHyphenated covers multi-word hyphenated names.
	ConventionHyphenated NamingConvention = "hyphenated"
	// ConventionSimple covers single-word names.
	ConventionSimple NamingConvention = "simple"
)

// String returns the string representation of the NamingConvention.
func (n NamingConvention) String() string {
	return string(n)
}

// IsValid returns true if this is a known naming convention.
func (n NamingConvention) IsValid() bool {
	switch n {
	case ConventionXPrefixed, ConventionVendorPrefixed,
		ConventionHyphenated, ConventionSimple:
		return true
	default:
		return false
	}
}

// StrategyName identifies which orchestration strategy the aggregator used.
type StrategyName string

// Strategy constants.
const (
	// StrategyProgressive threads a shared stage context through every stage.
	StrategyProgressive StrategyName = "progressive"
	// StrategyLegacy runs stages in order with explicit dependency injection.
	StrategyLegacy StrategyName = "legacy"
)

// String returns the string representation of the StrategyName.
func (s StrategyName) String() string {
	return string(s)
}

// IsValid returns true if this is a known strategy.
func (s StrategyName) IsValid() bool {
	switch s {
	case StrategyProgressive, StrategyLegacy:
		return true
	default:
		return false
	}
}

// ParseStrategy converts a string to StrategyName.
func ParseStrategy(s string) StrategyName {
	switch s {
	case "progressive":
		return StrategyProgressive
	case "legacy":
		return StrategyLegacy
	default:
		return ""
	}
}
