package preprocess

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"github.com/nao1215/cmsfreq/internal/model"
)

// Inline script handling constants.
const (
	// minInlineScriptLength drops trivial inline snippets.
	minInlineScriptLength = 10

	// maxInlineFingerprintLength truncates inline bodies so fingerprints
	// stay comparable and small.
	maxInlineFingerprintLength = 200
)

// NormalizeURL converts a raw URL into the canonical deduplication key:
// lowercase host plus path with the protocol, www prefix, default port,
// and non-root trailing slash removed.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("normalize url %q: %w", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("normalize url %q: unsupported protocol %q", rawURL, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host += ":" + port
	}

	path := strings.ToLower(u.EscapedPath())
	if path == "" {
		path = "/"
	}
	if len(path) > 1 {
		path = strings.TrimSuffix(path, "/")
	}

	return host + path, nil
}

// BuildSiteRecord converts a surviving index entry and its artifact into a
// normalized SiteRecord.
func BuildSiteRecord(entry IndexEntry, artifact *Artifact) (*model.SiteRecord, error) {
	normalized, err := NormalizeURL(entry.URL)
	if err != nil {
		return nil, err
	}

	site := &model.SiteRecord{
		URL:           entry.URL,
		NormalizedURL: normalized,
		CMS:           entry.CMS,
		Confidence:    entry.Confidence,
		Headers:       make(map[string]model.StringSet),
		MetaTags:      normalizeMetaTags(artifact.MetaTags),
		Scripts:       extractScripts(artifact),
		Technologies:  model.NewStringSet(artifact.Technologies...),
		CapturedAt:    entry.CapturedAt(),
	}

	mainpage := normalizeHeaderMap(artifact.MainPageHeaders())
	for name, values := range mainpage {
		site.Headers[name] = values.Clone()
	}

	if artifact.RobotsTxt != nil && len(artifact.RobotsTxt.HTTPHeaders) > 0 {
		robots := normalizeHeaderMap(artifact.RobotsTxt.HTTPHeaders)
		site.HeadersByPageType = map[model.PageType]map[string]model.StringSet{
			model.PageTypeMain:   mainpage,
			model.PageTypeRobots: robots,
		}
		for name, values := range robots {
			if existing, ok := site.Headers[name]; ok {
				for v := range values {
					existing.Add(v)
				}
			} else {
				site.Headers[name] = values.Clone()
			}
		}
	}

	return site, nil
}

// normalizeHeaderMap lowercases header names and collapses values into
// per-name sets, discarding duplicate observations.
func normalizeHeaderMap(raw map[string]json.RawMessage) map[string]model.StringSet {
	out := make(map[string]model.StringSet, len(raw))
	for name, rawValue := range raw {
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower == "" {
			continue
		}
		set, ok := out[lower]
		if !ok {
			set = make(model.StringSet)
			out[lower] = set
		}
		for _, v := range headerValues(rawValue) {
			if v = strings.TrimSpace(v); v != "" {
				set.Add(v)
			}
		}
	}
	return out
}

// normalizeMetaTags lowercases meta tag names and collapses content values
// into per-name sets.
func normalizeMetaTags(raw map[string]json.RawMessage) map[string]model.StringSet {
	out := make(map[string]model.StringSet, len(raw))
	for name, rawValue := range raw {
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower == "" {
			continue
		}
		set, ok := out[lower]
		if !ok {
			set = make(model.StringSet)
			out[lower] = set
		}
		for _, v := range headerValues(rawValue) {
			if v = strings.TrimSpace(v); v != "" {
				set.Add(v)
			}
		}
	}
	return out
}

// extractScripts collects the site's script fingerprints: absolute script
// URLs from the structured inventory and the raw HTML, plus truncated
// inline-script fingerprints.
func extractScripts(artifact *Artifact) model.StringSet {
	scripts := make(model.StringSet)

	for _, entry := range artifact.Scripts {
		if entry.Src != "" {
			if abs, ok := absoluteScriptURL(entry.Src); ok {
				scripts.Add(abs)
			}
			continue
		}
		if fp, ok := inlineFingerprint(entry.Inline); ok {
			scripts.Add(fp)
		}
	}

	for _, src := range scriptSourcesFromHTML(artifact.HTMLContent) {
		if abs, ok := absoluteScriptURL(src); ok {
			scripts.Add(abs)
		}
	}

	return scripts
}

// absoluteScriptURL validates a script src and returns it when absolute.
// Relative URLs carry no cross-site signal and are discarded.
func absoluteScriptURL(src string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return "", false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}
	if u.Host == "" {
		return "", false
	}
	return u.String(), true
}

// inlineFingerprint converts an inline script body into a bounded
// fingerprint. Bodies shorter than minInlineScriptLength are dropped.
func inlineFingerprint(body string) (string, bool) {
	body = strings.TrimSpace(body)
	if len(body) < minInlineScriptLength {
		return "", false
	}
	if len(body) > maxInlineFingerprintLength {
		body = body[:maxInlineFingerprintLength]
	}
	return model.InlineScriptPrefix + body, true
}

// scriptSourcesFromHTML tokenizes raw HTML and returns every <script src>
// attribute value. Tokenizing handles the malformed markup common in the
// wild better than pattern matching on the raw text.
func scriptSourcesFromHTML(content string) []string {
	if content == "" {
		return nil
	}

	var sources []string
	tokenizer := html.NewTokenizer(strings.NewReader(content))
	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			return sources
		}
		if tokenType != html.StartTagToken && tokenType != html.SelfClosingTagToken {
			continue
		}
		name, hasAttr := tokenizer.TagName()
		if string(name) != "script" || !hasAttr {
			continue
		}
		for {
			key, value, more := tokenizer.TagAttr()
			if string(key) == "src" {
				sources = append(sources, string(value))
			}
			if !more {
				break
			}
		}
	}
}
