package config

import (
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/nao1215/cmsfreq/internal/model"
)

// Default configuration values.
const (
	// DefaultWorkers is the number of concurrent artifact loaders.
	// Artifact loading is I/O bound, so a moderate pool keeps disks busy
	// without exhausting file descriptors on large crawls.
	DefaultWorkers = 8

	// DefaultStrategy is the orchestration strategy used when none is
	// requested.
	DefaultStrategy = "progressive"

	// AppName is the application name used for XDG directory paths.
	AppName = "cmsfreq"
)

// Config holds all configuration options for cmsfreq.
// A single flat struct keeps the option surface easy to scan; the count
// is manageable and nesting would add complexity without benefit.
type Config struct {
	// IndexPath is the path to the crawl index JSON file. The artifact
	// files it references are resolved relative to its directory.
	IndexPath string

	// Workers is the number of concurrent artifact loaders.
	Workers int

	// MinOccurrences is the minimum unique-site count for a pattern to
	// be kept by the analyzers.
	MinOccurrences int

	// IncludeExamples attaches example observations to pattern records.
	IncludeExamples bool

	// MaxExamples caps the number of examples per pattern.
	MaxExamples int

	// SemanticFiltering drops known-uninformative headers before counting.
	SemanticFiltering bool

	// FocusPlatformDiscrimination enables the discrimination metrics in
	// the frequency summary.
	FocusPlatformDiscrimination bool

	// Strategy selects the orchestration strategy: progressive or legacy.
	Strategy string

	// LastDays restricts analysis to captures within the trailing N days.
	// Zero means no restriction.
	LastDays int

	// ForceReload bypasses the preprocessor cache.
	ForceReload bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// JSONReport enables JSON report output instead of human-readable
	// format. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of
	// human-readable format. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// DBDir is the directory path for the run-history SQLite database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB indicates whether to record the run in the history database.
	SaveToDB bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, the tool searches for .cmsfreq in the current directory,
	// the user's home directory, and the XDG config directory.
	ConfigFilePath string

	// FileConfig holds settings loaded from the config file.
	// Populated by LoadConfigFile.
	FileConfig *File
}

// NewConfig creates a new Config with default values. Many defaults are
// non-zero, so a constructor beats relying on zero values and doubles as
// documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		Workers:           DefaultWorkers,
		MinOccurrences:    model.DefaultMinOccurrences,
		IncludeExamples:   true,
		MaxExamples:       model.DefaultMaxExamples,
		SemanticFiltering: true,
		Strategy:          DefaultStrategy,
		DBDir:             XDGDataDir(),
	}
}

// AnalysisOptions converts the configuration into the option set passed
// to every analyzer stage.
func (c *Config) AnalysisOptions() model.AnalysisOptions {
	return model.AnalysisOptions{
		MinOccurrences:              c.MinOccurrences,
		IncludeExamples:             c.IncludeExamples,
		MaxExamples:                 c.MaxExamples,
		SemanticFiltering:           c.SemanticFiltering,
		FocusPlatformDiscrimination: c.FocusPlatformDiscrimination,
	}
}

// StrategyName returns the parsed orchestration strategy.
func (c *Config) StrategyName() model.StrategyName {
	return model.ParseStrategy(c.Strategy)
}

// XDGDataDir returns the XDG data directory for cmsfreq.
// On Linux: ~/.local/share/cmsfreq
// On macOS: ~/Library/Application Support/cmsfreq
// On Windows: %LOCALAPPDATA%\cmsfreq
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for cmsfreq.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for cmsfreq.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid, returning the first
// error found. Validating once after CLI parsing fails fast with a clear
// message before any analysis begins.
func (c *Config) Validate() error {
	if c.IndexPath == "" {
		return ErrNoIndexPath
	}
	if c.MinOccurrences <= 0 {
		return ErrInvalidMinOccurrences
	}
	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxExamples < 0 {
		return ErrInvalidMaxExamples
	}
	if c.LastDays < 0 {
		return ErrInvalidLastDays
	}
	if !model.ParseStrategy(c.Strategy).IsValid() {
		return ErrInvalidStrategy
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}
