package analyzer

import (
	"context"
	"fmt"
	"sort"

	"github.com/nao1215/cmsfreq/internal/model"
)

// uninformativeHeaders are content-negotiation and caching headers that
// carry no platform signal. They are excluded before counting when
// SemanticFiltering is enabled.
var uninformativeHeaders = map[string]bool{
	"date":              true,
	"etag":              true,
	"content-length":    true,
	"content-type":      true,
	"connection":        true,
	"keep-alive":        true,
	"transfer-encoding": true,
	"vary":              true,
	"expires":           true,
	"last-modified":     true,
	"accept-ranges":     true,
	"cache-control":     true,
	"age":               true,
	"pragma":            true,
}

// extraUninformativeHeaders holds user-configured additions to the
// built-in semantic filter list.
var extraUninformativeHeaders = map[string]bool{}

// RegisterUninformativeHeaders extends the semantic filter list.
// Called once at startup from configuration loading.
func RegisterUninformativeHeaders(names []string) {
	for _, name := range names {
		extraUninformativeHeaders[name] = true
	}
}

// IsUninformativeHeader reports whether semantic filtering drops the header.
func IsUninformativeHeader(name string) bool {
	return uninformativeHeaders[name] || extraUninformativeHeaders[name]
}

// extractFunc yields the pattern keys and their observed values for one
// site within one dimension.
type extractFunc func(site *model.SiteRecord) map[string]model.StringSet

// pageCountFunc yields the per-page observation counts for one pattern key
// on one site. Dimensions without a page split report main-page only.
type pageCountFunc func(site *model.SiteRecord, key string) (mainpage, robots int)

// dimensionAnalyzer implements the shared counting logic of the header,
// meta, and script analyzers. The critical invariant is that each site
// increments a pattern's site count at most once, no matter how many
// values the site has for the pattern's key.
type dimensionAnalyzer struct {
	name        string
	patternType string
	extract     extractFunc
	pageCounts  pageCountFunc
	filterKey   func(key string, opts model.AnalysisOptions) bool
}

// Name returns the stage name.
func (d *dimensionAnalyzer) Name() string {
	return d.name
}

// Analyze computes the dimension's frequency table.
func (d *dimensionAnalyzer) Analyze(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions) (*model.AnalysisResult, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	result := newResult(d.name, corpus, opts)

	type accumulator struct {
		sites     model.StringSet
		valueDist map[string]int
		mainpage  int
		robots    int
		examples  []string
	}
	acc := make(map[string]*accumulator)

	// Iterate sites in sorted order so bounded example lists are
	// deterministic. All counting below is order-independent.
	urls := make([]string, 0, len(corpus.Sites))
	for u := range corpus.Sites {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	for _, u := range urls {
		site := corpus.Sites[u]
		for key, values := range d.extract(site) {
			if d.filterKey != nil && d.filterKey(key, opts) {
				continue
			}
			a, ok := acc[key]
			if !ok {
				a = &accumulator{sites: make(model.StringSet), valueDist: make(map[string]int)}
				acc[key] = a
			}

			// One count per site per key, regardless of value multiplicity.
			a.sites.Add(site.NormalizedURL)
			for v := range values {
				a.valueDist[v]++
			}

			main, robots := d.pageCounts(site, key)
			a.mainpage += main
			a.robots += robots

			if opts.IncludeExamples && len(a.examples) < opts.MaxExamples {
				a.examples = append(a.examples, exampleFor(site, values))
			}
		}
	}

	result.Metadata.PatternsBeforeFilter = len(acc)
	for key, a := range acc {
		if a.sites.Len() < opts.MinOccurrences {
			continue
		}
		record := &model.PatternRecord{
			Pattern:   key,
			SiteCount: a.sites.Len(),
			Sites:     a.sites,
			Frequency: frequency(a.sites.Len(), corpus.TotalSites),
			Examples:  a.examples,
			Metadata: model.PatternMetadata{
				Type:              d.patternType,
				ValueDistribution: a.valueDist,
				PageLocation:      pageLocation(a.mainpage, a.robots),
			},
		}
		result.Patterns[key] = record
	}
	result.Metadata.PatternsAfterFilter = len(result.Patterns)

	return result, nil
}

// frequency is siteCount/totalSites, zero for an empty corpus.
func frequency(siteCount, totalSites int) float64 {
	if totalSites == 0 {
		return 0
	}
	return float64(siteCount) / float64(totalSites)
}

// pageLocation builds the main-page vs robots.txt breakdown.
// A pattern with no recorded page observations counts as 100% main page.
func pageLocation(mainpage, robots int) *model.PageLocation {
	loc := &model.PageLocation{Mainpage: mainpage, Robots: robots}
	total := mainpage + robots
	if total == 0 {
		loc.MainpagePercent = 100
		return loc
	}
	loc.MainpagePercent = float64(mainpage) / float64(total) * 100
	return loc
}

// exampleFor renders one bounded example observation.
func exampleFor(site *model.SiteRecord, values model.StringSet) string {
	sorted := values.Values()
	if len(sorted) == 0 {
		return site.NormalizedURL
	}
	value := sorted[0]
	if len(value) > 80 {
		value = value[:80]
	}
	return fmt.Sprintf("%s: %s", site.NormalizedURL, value)
}

// NewHeaderAnalyzer creates the header dimension analyzer.
func NewHeaderAnalyzer() Analyzer {
	return &dimensionAnalyzer{
		name:        StageHeader,
		patternType: "header",
		extract: func(site *model.SiteRecord) map[string]model.StringSet {
			return site.Headers
		},
		pageCounts: func(site *model.SiteRecord, key string) (int, int) {
			return site.HeaderPageCounts(key)
		},
		filterKey: func(key string, opts model.AnalysisOptions) bool {
			return opts.SemanticFiltering && IsUninformativeHeader(key)
		},
	}
}

// NewMetaAnalyzer creates the meta tag dimension analyzer.
func NewMetaAnalyzer() Analyzer {
	return &dimensionAnalyzer{
		name:        StageMeta,
		patternType: "meta",
		extract: func(site *model.SiteRecord) map[string]model.StringSet {
			return site.MetaTags
		},
		pageCounts: func(site *model.SiteRecord, key string) (int, int) {
			// Meta tags only exist on the main page.
			return 1, 0
		},
	}
}

// NewScriptAnalyzer creates the script dimension analyzer.
// Pattern keys are script URLs and inline fingerprints; each key maps to
// itself as its single observed value.
func NewScriptAnalyzer() Analyzer {
	return &dimensionAnalyzer{
		name:        StageScript,
		patternType: "script",
		extract: func(site *model.SiteRecord) map[string]model.StringSet {
			out := make(map[string]model.StringSet, site.Scripts.Len())
			for script := range site.Scripts {
				out[script] = model.NewStringSet(script)
			}
			return out
		},
		pageCounts: func(site *model.SiteRecord, key string) (int, int) {
			return 1, 0
		},
	}
}
