package preprocess

import (
	"encoding/json"
	"fmt"
	"time"
)

// IndexEntry is one row of the crawl index file.
// Field names follow the artifact producer's schema and must be read
// exactly as named.
type IndexEntry struct {
	// URL is the crawled site URL.
	URL string `json:"url"`

	// Timestamp is the capture time. Unparsable timestamps are tolerated:
	// date-range filtering treats them as passing.
	Timestamp string `json:"timestamp"`

	// CMS is the detected CMS label, empty when unknown.
	CMS string `json:"cms"`

	// Confidence is the detection confidence in [0,1].
	Confidence float64 `json:"confidence"`

	// FilePath is the artifact file location relative to the index.
	FilePath string `json:"filePath"`
}

// CapturedAt parses the entry timestamp. It returns the zero time for
// missing or malformed timestamps rather than an error.
func (e IndexEntry) CapturedAt() time.Time {
	if e.Timestamp == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, e.Timestamp); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ScriptEntry is one script observation inside an artifact.
type ScriptEntry struct {
	// Src is the script URL, empty for inline scripts.
	Src string `json:"src"`

	// Inline is the inline script body, empty for external scripts.
	Inline string `json:"inline,omitempty"`
}

// RobotsArtifact is the robots.txt portion of an artifact.
type RobotsArtifact struct {
	// HTTPHeaders holds the headers returned for the robots.txt fetch.
	HTTPHeaders map[string]json.RawMessage `json:"httpHeaders"`
}

// HTTPInfo is the nested header container inside pageData.
type HTTPInfo struct {
	// Headers holds the main-page response headers.
	Headers map[string]json.RawMessage `json:"headers"`
}

// PageData is the page-specific nested form of an artifact.
type PageData struct {
	// HTTPInfo carries the nested main-page HTTP metadata.
	HTTPInfo *HTTPInfo `json:"httpInfo"`
}

// Artifact is one per-site artifact file as produced by the crawler.
// Header values may be encoded as a single string or an array of strings,
// so they are kept raw and decoded via headerValues.
type Artifact struct {
	// HTTPHeaders is the flat main-page header map.
	HTTPHeaders map[string]json.RawMessage `json:"httpHeaders"`

	// MetaTags maps meta tag name to content (string or array).
	MetaTags map[string]json.RawMessage `json:"metaTags"`

	// Scripts is the structured script inventory.
	Scripts []ScriptEntry `json:"scripts"`

	// HTMLContent is the raw main-page HTML.
	HTMLContent string `json:"htmlContent"`

	// StatusCode is the main-page HTTP status.
	StatusCode int `json:"statusCode"`

	// Technologies lists technology labels attached by the crawler.
	Technologies []string `json:"technologies,omitempty"`

	// RobotsTxt carries the optional robots.txt fetch.
	RobotsTxt *RobotsArtifact `json:"robotsTxt,omitempty"`

	// PageData carries the optional page-specific nested form. The flat
	// HTTPHeaders map is preferred; this is the fallback when it is absent.
	PageData *PageData `json:"pageData,omitempty"`
}

// MainPageHeaders returns the main-page header map, preferring the flat
// form and falling back to the nested pageData.httpInfo.headers form.
func (a *Artifact) MainPageHeaders() map[string]json.RawMessage {
	if len(a.HTTPHeaders) > 0 {
		return a.HTTPHeaders
	}
	if a.PageData != nil && a.PageData.HTTPInfo != nil {
		return a.PageData.HTTPInfo.Headers
	}
	return nil
}

// headerValues decodes a raw header value into its distinct string values.
// Artifact producers encode multi-valued headers either as a JSON array or
// as a single comma-free string; anything else is stringified.
func headerValues(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return []string{fmt.Sprint(v)}
	}
	return nil
}
