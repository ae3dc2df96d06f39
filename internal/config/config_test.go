package config

import (
	"errors"
	"testing"

	"github.com/nao1215/cmsfreq/internal/model"
)

func validConfig() *Config {
	c := NewConfig()
	c.IndexPath = "/data/crawl/index.json"
	return c
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{
			name:    "defaults with an index path",
			mutate:  func(*Config) {},
			wantErr: nil,
		},
		{
			name:    "missing index path",
			mutate:  func(c *Config) { c.IndexPath = "" },
			wantErr: ErrNoIndexPath,
		},
		{
			name:    "zero min occurrences",
			mutate:  func(c *Config) { c.MinOccurrences = 0 },
			wantErr: ErrInvalidMinOccurrences,
		},
		{
			name:    "negative workers",
			mutate:  func(c *Config) { c.Workers = -1 },
			wantErr: ErrInvalidWorkers,
		},
		{
			name:    "negative max examples",
			mutate:  func(c *Config) { c.MaxExamples = -1 },
			wantErr: ErrInvalidMaxExamples,
		},
		{
			name:    "zero max examples disables examples",
			mutate:  func(c *Config) { c.MaxExamples = 0 },
			wantErr: nil,
		},
		{
			name:    "negative last days",
			mutate:  func(c *Config) { c.LastDays = -7 },
			wantErr: ErrInvalidLastDays,
		},
		{
			name:    "unknown strategy",
			mutate:  func(c *Config) { c.Strategy = "turbo" },
			wantErr: ErrInvalidStrategy,
		},
		{
			name:    "legacy strategy accepted",
			mutate:  func(c *Config) { c.Strategy = "legacy" },
			wantErr: nil,
		},
		{
			name: "conflicting report formats",
			mutate: func(c *Config) {
				c.JSONReport = true
				c.MarkdownReport = true
			},
			wantErr: ErrConflictingReportFormats,
		},
		{
			name: "first failure wins",
			mutate: func(c *Config) {
				c.IndexPath = ""
				c.Workers = -1
			},
			wantErr: ErrNoIndexPath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validConfig()
			tt.mutate(c)

			if err := c.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfigAnalysisOptions(t *testing.T) {
	t.Parallel()

	c := validConfig()
	c.MinOccurrences = 7
	c.IncludeExamples = false
	c.MaxExamples = 2
	c.SemanticFiltering = false
	c.FocusPlatformDiscrimination = true

	opts := c.AnalysisOptions()
	if opts.MinOccurrences != 7 {
		t.Errorf("MinOccurrences = %d, want 7", opts.MinOccurrences)
	}
	if opts.IncludeExamples {
		t.Error("IncludeExamples = true, want false")
	}
	if opts.MaxExamples != 2 {
		t.Errorf("MaxExamples = %d, want 2", opts.MaxExamples)
	}
	if opts.SemanticFiltering {
		t.Error("SemanticFiltering = true, want false")
	}
	if !opts.FocusPlatformDiscrimination {
		t.Error("FocusPlatformDiscrimination = false, want true")
	}
}

func TestConfigStrategyName(t *testing.T) {
	t.Parallel()

	c := validConfig()
	if got := c.StrategyName(); got != model.StrategyProgressive {
		t.Errorf("StrategyName() = %q, want progressive by default", got)
	}

	c.Strategy = "legacy"
	if got := c.StrategyName(); got != model.StrategyLegacy {
		t.Errorf("StrategyName() = %q, want legacy", got)
	}
}

func TestNewConfigDefaults(t *testing.T) {
	t.Parallel()

	c := NewConfig()
	if c.Workers != DefaultWorkers {
		t.Errorf("Workers = %d, want %d", c.Workers, DefaultWorkers)
	}
	if c.MinOccurrences != model.DefaultMinOccurrences {
		t.Errorf("MinOccurrences = %d, want %d", c.MinOccurrences, model.DefaultMinOccurrences)
	}
	if !c.IncludeExamples || !c.SemanticFiltering {
		t.Error("example collection and semantic filtering should default on")
	}
	if c.Strategy != DefaultStrategy {
		t.Errorf("Strategy = %q, want %q", c.Strategy, DefaultStrategy)
	}
	if c.DBDir == "" {
		t.Error("DBDir is empty, want the XDG data directory")
	}
}
