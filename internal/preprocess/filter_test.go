package preprocess

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/nao1215/cmsfreq/internal/model"
)

// rawHeaders builds a flat header map with single string values.
func rawHeaders(pairs map[string]string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(pairs))
	for name, value := range pairs {
		data, _ := json.Marshal(value)
		out[name] = data
	}
	return out
}

// goodHTML returns an HTML body longer than MinHTMLLength.
func goodHTML() string {
	return "<html><head><title>welcome</title></head><body>" +
		strings.Repeat("content ", 20) + "</body></html>"
}

func TestClassify(t *testing.T) {
	t.Parallel()

	defaultHeaders := rawHeaders(map[string]string{"server": "nginx"})

	tests := []struct {
		name       string
		url        string
		artifact   *Artifact
		wantReason model.FilterReason
		wantFilter bool
	}{
		{
			name: "healthy capture survives",
			url:  "https://example.com/",
			artifact: &Artifact{
				HTTPHeaders: defaultHeaders,
				HTMLContent: goodHTML(),
				StatusCode:  200,
			},
			wantReason: model.FilterReasonNone,
			wantFilter: false,
		},
		{
			name:       "unparsable url",
			url:        "://not a url",
			artifact:   &Artifact{HTTPHeaders: defaultHeaders, HTMLContent: goodHTML(), StatusCode: 200},
			wantReason: model.FilterReasonInvalidURL,
			wantFilter: true,
		},
		{
			name:       "non-http protocol",
			url:        "ftp://example.com/",
			artifact:   &Artifact{HTTPHeaders: defaultHeaders, HTMLContent: goodHTML(), StatusCode: 200},
			wantReason: model.FilterReasonInvalidURL,
			wantFilter: true,
		},
		{
			name: "403 with challenge content is bot detection",
			url:  "https://example.com/",
			artifact: &Artifact{
				HTTPHeaders: defaultHeaders,
				HTMLContent: "<html>Checking your browser. Security check in progress.</html>",
				StatusCode:  403,
			},
			wantReason: model.FilterReasonBotDetection,
			wantFilter: true,
		},
		{
			name: "503 with cdn challenge header is bot detection",
			url:  "https://example.com/",
			artifact: &Artifact{
				HTTPHeaders: rawHeaders(map[string]string{"cf-mitigated": "challenge"}),
				HTMLContent: goodHTML(),
				StatusCode:  503,
			},
			wantReason: model.FilterReasonBotDetection,
			wantFilter: true,
		},
		{
			name: "bare 403 is an error page, not bot detection",
			url:  "https://example.com/",
			artifact: &Artifact{
				HTTPHeaders: defaultHeaders,
				HTMLContent: goodHTML(),
				StatusCode:  403,
			},
			wantReason: model.FilterReasonErrorPage,
			wantFilter: true,
		},
		{
			name: "500 is an error page",
			url:  "https://example.com/",
			artifact: &Artifact{
				HTTPHeaders: defaultHeaders,
				HTMLContent: goodHTML(),
				StatusCode:  500,
			},
			wantReason: model.FilterReasonErrorPage,
			wantFilter: true,
		},
		{
			name: "soft 404 at status 200",
			url:  "https://example.com/",
			artifact: &Artifact{
				HTTPHeaders: defaultHeaders,
				HTMLContent: "<html><body>Sorry, this page could not be found. " + strings.Repeat("x", 120) + "</body></html>",
				StatusCode:  200,
			},
			wantReason: model.FilterReasonErrorPage,
			wantFilter: true,
		},
		{
			name: "thin body is insufficient data",
			url:  "https://example.com/",
			artifact: &Artifact{
				HTTPHeaders: defaultHeaders,
				HTMLContent: "<html></html>",
				StatusCode:  200,
			},
			wantReason: model.FilterReasonInsufficientData,
			wantFilter: true,
		},
		{
			name: "body at the minimum length is kept",
			url:  "https://example.com/",
			artifact: &Artifact{
				HTTPHeaders: defaultHeaders,
				HTMLContent: strings.Repeat("a", MinHTMLLength),
				StatusCode:  200,
			},
			wantReason: model.FilterReasonNone,
			wantFilter: false,
		},
		{
			name: "body one byte under the minimum is insufficient data",
			url:  "https://example.com/",
			artifact: &Artifact{
				HTTPHeaders: defaultHeaders,
				HTMLContent: strings.Repeat("a", MinHTMLLength-1),
				StatusCode:  200,
			},
			wantReason: model.FilterReasonInsufficientData,
			wantFilter: true,
		},
		{
			name: "no headers is insufficient data",
			url:  "https://example.com/",
			artifact: &Artifact{
				HTMLContent: goodHTML(),
				StatusCode:  200,
			},
			wantReason: model.FilterReasonInsufficientData,
			wantFilter: true,
		},
		{
			name: "invalid url wins over bot detection",
			url:  "gopher://example.com/",
			artifact: &Artifact{
				HTTPHeaders: rawHeaders(map[string]string{"cf-mitigated": "challenge"}),
				HTMLContent: "ddos protection by example",
				StatusCode:  503,
			},
			wantReason: model.FilterReasonInvalidURL,
			wantFilter: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			reason, filtered := Classify(tt.url, tt.artifact)
			if reason != tt.wantReason {
				t.Errorf("Classify() reason = %q, want %q", reason, tt.wantReason)
			}
			if filtered != tt.wantFilter {
				t.Errorf("Classify() filtered = %v, want %v", filtered, tt.wantFilter)
			}
		})
	}
}

func TestClassifyNestedHeaders(t *testing.T) {
	t.Parallel()

	// Headers only present in the nested pageData form still count.
	artifact := &Artifact{
		HTMLContent: goodHTML(),
		StatusCode:  200,
		PageData: &PageData{
			HTTPInfo: &HTTPInfo{
				Headers: rawHeaders(map[string]string{"server": "Apache"}),
			},
		},
	}

	reason, filtered := Classify("https://example.com/", artifact)
	if filtered {
		t.Errorf("Classify() filtered = true (reason %q), want capture to survive", reason)
	}
}
