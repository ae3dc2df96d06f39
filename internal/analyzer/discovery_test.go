package analyzer

import (
	"context"
	"testing"

	"github.com/nao1215/cmsfreq/internal/model"
)

func TestNamespaceToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{header: "acme-trace-id", want: "acme", wantOK: true},
		{header: "x-acme-node", want: "x-acme", wantOK: true},
		{header: "server", wantOK: false},
		{header: "x-cache", wantOK: false},
		{header: "content-type", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			t.Parallel()

			got, ok := namespaceToken(tt.header)
			if ok != tt.wantOK {
				t.Fatalf("namespaceToken(%q) ok = %v, want %v", tt.header, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("namespaceToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestDiscoveryAnalyzerClusters(t *testing.T) {
	t.Parallel()

	// Three sites share a two-header namespace absent from the vendor table.
	headers := map[string][]string{
		"x-acme-node":  {"n1"},
		"x-acme-trace": {"t1"},
	}
	corpus := corpusOf(
		siteSpec{url: "a.example.com/", cms: "WordPress", headers: headers},
		siteSpec{url: "b.example.com/", cms: "WordPress", headers: headers},
		siteSpec{url: "c.example.com/", cms: "Drupal", headers: headers},
		siteSpec{url: "d.example.com/", cms: "Drupal", headers: map[string][]string{
			"cf-ray": {"abc"},
		}},
	)

	opts := testOpts()
	opts.MinOccurrences = 2

	result, err := NewDiscoveryAnalyzer(nil).Analyze(context.Background(), corpus, opts)
	if err != nil {
		t.Fatalf("Analyze() unexpected error: %v", err)
	}

	payload := DiscoveryFrom(result)
	if payload == nil {
		t.Fatal("result carries no discovery payload")
	}

	if len(payload.EmergingVendors) != 1 {
		t.Fatalf("EmergingVendors = %v, want one cluster", payload.EmergingVendors)
	}
	cluster := payload.EmergingVendors[0]
	if cluster.Token != "x-acme" {
		t.Errorf("cluster token = %q, want x-acme", cluster.Token)
	}
	if len(cluster.Headers) != 2 {
		t.Errorf("cluster headers = %v, want 2", cluster.Headers)
	}
	if cluster.SiteCount != 3 {
		t.Errorf("cluster SiteCount = %d, want 3", cluster.SiteCount)
	}
	if cluster.Confidence <= 0 || cluster.Confidence > 1 {
		t.Errorf("cluster Confidence = %v, want (0,1]", cluster.Confidence)
	}

	if _, ok := result.Patterns["emerging:x-acme"]; !ok {
		t.Errorf("Patterns missing emerging:x-acme: %v", result.Patterns)
	}
}

func TestSuffixToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		header string
		want   string
		wantOK bool
	}{
		{header: "x-one-varnish", want: "varnish", wantOK: true},
		{header: "cdn-varnish", want: "varnish", wantOK: true},
		{header: "server", wantOK: false},
		{header: "x-trace-id", wantOK: false},
		{header: "cache-control", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			t.Parallel()

			got, ok := suffixToken(tt.header)
			if ok != tt.wantOK {
				t.Fatalf("suffixToken(%q) ok = %v, want %v", tt.header, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("suffixToken(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestDiscoveryAnalyzerSuffixClusters(t *testing.T) {
	t.Parallel()

	// Two unlisted headers share a trailing segment but no namespace, so
	// only the suffix pass can group them.
	headers := map[string][]string{
		"x-one-varnish": {"v1"},
		"cdn-varnish":   {"v2"},
	}
	corpus := corpusOf(
		siteSpec{url: "a.example.com/", cms: "WordPress", headers: headers},
		siteSpec{url: "b.example.com/", cms: "Drupal", headers: headers},
	)

	opts := testOpts()
	opts.MinOccurrences = 2

	result, err := NewDiscoveryAnalyzer(nil).Analyze(context.Background(), corpus, opts)
	if err != nil {
		t.Fatalf("Analyze() unexpected error: %v", err)
	}

	payload := DiscoveryFrom(result)
	if len(payload.EmergingVendors) != 1 {
		t.Fatalf("EmergingVendors = %v, want one suffix cluster", payload.EmergingVendors)
	}
	cluster := payload.EmergingVendors[0]
	if cluster.Token != "*-varnish" {
		t.Errorf("cluster token = %q, want *-varnish", cluster.Token)
	}
	if len(cluster.Headers) != 2 || cluster.SiteCount != 2 {
		t.Errorf("cluster = %+v, want both headers across both sites", cluster)
	}

	if _, ok := result.Patterns["emerging:*-varnish"]; !ok {
		t.Errorf("Patterns missing emerging:*-varnish: %v", result.Patterns)
	}
}

func TestDiscoveryAnalyzerSuffixSkipsClaimedHeaders(t *testing.T) {
	t.Parallel()

	// Both headers join the x-acme namespace cluster; the shared -trace
	// suffix must not produce a second cluster from the same headers.
	headers := map[string][]string{
		"x-acme-trace": {"t1"},
		"x-acme-node":  {"n1"},
	}
	corpus := corpusOf(
		siteSpec{url: "a.example.com/", cms: "WordPress", headers: headers},
		siteSpec{url: "b.example.com/", cms: "Drupal", headers: headers},
	)

	opts := testOpts()
	opts.MinOccurrences = 2

	result, err := NewDiscoveryAnalyzer(nil).Analyze(context.Background(), corpus, opts)
	if err != nil {
		t.Fatalf("Analyze() unexpected error: %v", err)
	}

	payload := DiscoveryFrom(result)
	if len(payload.EmergingVendors) != 1 {
		t.Fatalf("EmergingVendors = %v, want the namespace cluster only", payload.EmergingVendors)
	}
	if payload.EmergingVendors[0].Token != "x-acme" {
		t.Errorf("cluster token = %q, want x-acme", payload.EmergingVendors[0].Token)
	}
}

func TestDiscoveryAnalyzerIgnoresKnownVendors(t *testing.T) {
	t.Parallel()

	// cf- headers are already attributed, so no cluster should form.
	headers := map[string][]string{
		"cf-ray":       {"abc"},
		"cf-cache-tag": {"tag"},
	}
	corpus := corpusOf(
		siteSpec{url: "a.example.com/", cms: "WordPress", headers: headers},
		siteSpec{url: "b.example.com/", cms: "WordPress", headers: headers},
	)

	result, err := NewDiscoveryAnalyzer(nil).Analyze(context.Background(), corpus, testOpts())
	if err != nil {
		t.Fatalf("Analyze() unexpected error: %v", err)
	}

	payload := DiscoveryFrom(result)
	if len(payload.EmergingVendors) != 0 {
		t.Errorf("EmergingVendors = %v, want none for known vendor headers", payload.EmergingVendors)
	}
}

func TestClusterConfidenceBounds(t *testing.T) {
	t.Parallel()

	if got := clusterConfidence(100, 1000); got != 1 {
		t.Errorf("clusterConfidence(100, 1000) = %v, want saturated 1", got)
	}
	if got := clusterConfidence(2, 2); got <= 0.3 || got >= 1 {
		t.Errorf("clusterConfidence(2, 2) = %v, want in (0.3, 1)", got)
	}
}

func TestDiscoveryAnomalies(t *testing.T) {
	t.Parallel()

	// Vendor payload claims x-frame-options belongs to infrastructure,
	// but semantically it is a security header.
	vendor := &model.VendorPayload{Matches: map[string]model.VendorMatch{
		"x-frame-options": {Header: "x-frame-options", Vendor: "SomeProxy", Category: model.CategoryInfrastructure},
	}}

	corpus := corpusOf(
		siteSpec{url: "a.example.com/", cms: "WordPress", headers: map[string][]string{
			"x-frame-options": {"DENY"},
		}},
	)

	result, err := NewDiscoveryAnalyzer(nil).AnalyzeWithVendor(context.Background(), corpus, testOpts(), vendor)
	if err != nil {
		t.Fatalf("AnalyzeWithVendor() unexpected error: %v", err)
	}

	payload := DiscoveryFrom(result)
	if len(payload.Anomalies) != 1 {
		t.Fatalf("Anomalies = %v, want one conflict", payload.Anomalies)
	}
	anomaly := payload.Anomalies[0]
	if anomaly.Header != "x-frame-options" ||
		anomaly.ExpectedCategory != model.CategoryInfrastructure ||
		anomaly.ActualCategory != model.CategorySecurity {
		t.Errorf("anomaly = %+v, want infrastructure vs security conflict", anomaly)
	}
}
