package preprocess

import (
	"net/url"
	"strings"

	"github.com/nao1215/cmsfreq/internal/model"
)

// MinHTMLLength is the minimum HTML body length for a capture to be
// analyzable. Shorter bodies are parked pages, blank responses, or
// challenge stubs with no fingerprinting value.
const MinHTMLLength = 100

// botChallengeMarkers are body substrings that identify bot-challenge
// pages served instead of real content.
var botChallengeMarkers = []string{
	"security check",
	"ddos protection",
	"browser check",
	"enable javascript",
	"access denied",
}

// cdnChallengeHeaders are header names whose presence marks a CDN
// bot-challenge response.
var cdnChallengeHeaders = []string{
	"cf-mitigated",
	"cf-chl-bypass",
	"x-sucuri-block",
	"x-ddos-protection",
}

// softNotFoundMarkers are body substrings that identify a soft-404: an
// HTTP 200 response whose content is a not-found page.
var softNotFoundMarkers = []string{
	"page not found",
	"404 not found",
	"error 404",
	"could not be found",
	"cannot be found",
}

// errorStatusCodes are statuses classified as error pages.
var errorStatusCodes = map[int]bool{
	400: true, 401: true, 403: true, 404: true,
	500: true, 502: true, 503: true, 504: true,
}

// botStatusCodes are statuses a bot challenge can hide behind.
var botStatusCodes = map[int]bool{403: true, 503: true}

// Classify applies the exclusion filters to a capture in precedence order
// and returns the first matching reason. The boolean is false when the
// capture survives all filters.
//
// Ordering note: bot detection runs before the generic error-page check,
// but it only fires when challenge content or a CDN challenge header is
// present, so a bare 403 still classifies as error-page.
func Classify(rawURL string, artifact *Artifact) (model.FilterReason, bool) {
	if !validSiteURL(rawURL) {
		return model.FilterReasonInvalidURL, true
	}
	if isBotChallenge(artifact) {
		return model.FilterReasonBotDetection, true
	}
	if isErrorPage(artifact) {
		return model.FilterReasonErrorPage, true
	}
	if isInsufficient(artifact) {
		return model.FilterReasonInsufficientData, true
	}
	return model.FilterReasonNone, false
}

// validSiteURL reports whether the URL parses and uses an HTTP protocol.
func validSiteURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}

// isBotChallenge reports whether the capture is a bot-challenge response:
// a 403/503 status combined with challenge content or a CDN challenge header.
func isBotChallenge(a *Artifact) bool {
	if !botStatusCodes[a.StatusCode] {
		return false
	}
	content := strings.ToLower(a.HTMLContent)
	for _, marker := range botChallengeMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	for name := range a.MainPageHeaders() {
		lower := strings.ToLower(name)
		for _, challenge := range cdnChallengeHeaders {
			if lower == challenge {
				return true
			}
		}
	}
	return false
}

// isErrorPage reports whether the capture is an HTTP error or a soft-404.
func isErrorPage(a *Artifact) bool {
	if errorStatusCodes[a.StatusCode] {
		return true
	}
	if a.StatusCode != 200 {
		return false
	}
	content := strings.ToLower(a.HTMLContent)
	for _, marker := range softNotFoundMarkers {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}

// isInsufficient reports whether the capture lacks enough data to analyze:
// a body shorter than MinHTMLLength or no captured headers at all.
func isInsufficient(a *Artifact) bool {
	if len(a.HTMLContent) < MinHTMLLength {
		return true
	}
	return len(a.MainPageHeaders()) == 0
}
