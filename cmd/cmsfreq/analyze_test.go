package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/cmsfreq/internal/config"
)

func TestNewAnalyzeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCmd()

	if cmd.Use != "analyze" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}

	// Verify flags exist with their short options
	flagsWithShort := map[string]string{
		"index":           "i",
		"workers":         "w",
		"min-occurrences": "n",
		"strategy":        "s",
		"config":          "c",
		"json":            "j",
		"markdown":        "m",
		"output":          "o",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}

	for _, flag := range []string{"last-days", "force-reload", "max-examples",
		"no-examples", "no-semantic-filter", "discrimination", "no-db"} {
		if cmd.Flags().Lookup(flag) == nil {
			t.Errorf("expected flag %q to exist", flag)
		}
	}
}

func TestBuildConfig(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCmd()
	for flag, value := range map[string]string{
		"index":              "/data/index.json",
		"last-days":          "30",
		"workers":            "4",
		"min-occurrences":    "25",
		"no-examples":        "true",
		"no-semantic-filter": "true",
		"discrimination":     "true",
		"strategy":           "legacy",
		"markdown":           "true",
		"output":             "report.md",
		"no-db":              "true",
	} {
		if err := cmd.Flags().Set(flag, value); err != nil {
			t.Fatalf("set flag %s: %v", flag, err)
		}
	}

	cfg, err := buildConfig(cmd)
	if err != nil {
		t.Fatalf("buildConfig() unexpected error: %v", err)
	}

	if cfg.IndexPath != "/data/index.json" {
		t.Errorf("IndexPath = %q", cfg.IndexPath)
	}
	if cfg.LastDays != 30 || cfg.Workers != 4 || cfg.MinOccurrences != 25 {
		t.Errorf("numeric flags = %d/%d/%d, want 30/4/25",
			cfg.LastDays, cfg.Workers, cfg.MinOccurrences)
	}
	// Negated flags invert into the config
	if cfg.IncludeExamples {
		t.Error("IncludeExamples = true with --no-examples")
	}
	if cfg.SemanticFiltering {
		t.Error("SemanticFiltering = true with --no-semantic-filter")
	}
	if cfg.SaveToDB {
		t.Error("SaveToDB = true with --no-db")
	}
	if !cfg.FocusPlatformDiscrimination {
		t.Error("FocusPlatformDiscrimination = false")
	}
	if cfg.Strategy != "legacy" || !cfg.MarkdownReport || cfg.ReportFile != "report.md" {
		t.Errorf("report flags = %q/%v/%q", cfg.Strategy, cfg.MarkdownReport, cfg.ReportFile)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() unexpected error: %v", err)
	}
}

func TestBuildConfigMissingConfigFile(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCmd()
	if err := cmd.Flags().Set("config", filepath.Join(t.TempDir(), "absent")); err != nil {
		t.Fatal(err)
	}

	if _, err := buildConfig(cmd); err == nil {
		t.Error("buildConfig() with a missing explicit config file = nil error")
	}
}

func TestAnalyzeCmdRequiresIndex(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	if err == nil {
		t.Fatal("Execute() without --index = nil error")
	}
	if !strings.Contains(err.Error(), "no crawl index") {
		t.Errorf("error = %v, want the missing-index message", err)
	}
}

func TestAnalyzeCmdEndToEnd(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	artifact, err := json.Marshal(map[string]any{
		"httpHeaders": map[string]any{
			"server":     "nginx",
			"x-pingback": "https://example.com/xmlrpc.php",
		},
		"metaTags":    map[string]any{"generator": "WordPress 6.4"},
		"htmlContent": "<html><body>" + strings.Repeat("a", 200) + "</body></html>",
		"statusCode":  200,
	})
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"site1.json", "site2.json"} {
		if err := os.WriteFile(filepath.Join(dir, name), artifact, 0600); err != nil {
			t.Fatal(err)
		}
	}
	index, err := json.Marshal([]map[string]any{
		{"url": "https://one.example.com/", "timestamp": "2024-01-15T10:00:00Z", "cms": "WordPress", "confidence": 0.9, "filePath": "site1.json"},
		{"url": "https://two.example.com/", "timestamp": "2024-01-16T10:00:00Z", "cms": "WordPress", "confidence": 0.8, "filePath": "site2.json"},
	})
	if err != nil {
		t.Fatal(err)
	}
	indexPath := filepath.Join(dir, "index.json")
	if err := os.WriteFile(indexPath, index, 0600); err != nil {
		t.Fatal(err)
	}

	reportPath := filepath.Join(dir, "out", "report.json")
	cmd := NewAnalyzeCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	for flag, value := range map[string]string{
		"index":           indexPath,
		"min-occurrences": "1",
		"json":            "true",
		"output":          reportPath,
		"no-db":           "true",
	} {
		if err := cmd.Flags().Set(flag, value); err != nil {
			t.Fatal(err)
		}
	}

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() unexpected error: %v", err)
	}

	data, err := os.ReadFile(reportPath) //nolint:gosec // test-owned path
	if err != nil {
		t.Fatalf("report file missing: %v", err)
	}
	var decoded struct {
		Version string `json:"version"`
		Results struct {
			TotalSites int `json:"total_sites"`
		} `json:"results"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if decoded.Results.TotalSites != 2 {
		t.Errorf("report TotalSites = %d, want 2", decoded.Results.TotalSites)
	}
}

func TestGetVerboseFlagDefault(t *testing.T) {
	t.Parallel()

	// A command without the flag defined falls back to false.
	if getVerboseFlag(NewVersionCmd()) {
		t.Error("getVerboseFlag() = true for a command without the flag")
	}
}

func TestDefaultWorkersFlag(t *testing.T) {
	t.Parallel()

	cmd := NewAnalyzeCmd()
	cfg, err := buildConfig(cmd)
	if err != nil {
		t.Fatalf("buildConfig() unexpected error: %v", err)
	}
	if cfg.Workers != config.DefaultWorkers {
		t.Errorf("Workers = %d, want default %d", cfg.Workers, config.DefaultWorkers)
	}
	if cfg.Strategy != config.DefaultStrategy {
		t.Errorf("Strategy = %q, want default %q", cfg.Strategy, config.DefaultStrategy)
	}
}
