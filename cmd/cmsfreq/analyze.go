package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/cmsfreq/internal/aggregate"
	"github.com/nao1215/cmsfreq/internal/analyzer"
	"github.com/nao1215/cmsfreq/internal/config"
	"github.com/nao1215/cmsfreq/internal/database"
	"github.com/nao1215/cmsfreq/internal/log"
	"github.com/nao1215/cmsfreq/internal/model"
	"github.com/nao1215/cmsfreq/internal/preprocess"
	"github.com/nao1215/cmsfreq/internal/report"
)

// NewAnalyzeCmd creates the analyze command.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full frequency analysis over a crawl corpus",
		Long: `Analyze loads crawl artifacts referenced by the index file, filters and
deduplicates them into a corpus, and runs every analysis stage:
header, meta tag, and script frequency tables; statistical validation;
vendor attribution; semantic classification; emergent-pattern discovery;
header co-occurrence; dataset-bias measurement; and per-platform
signature synthesis.

Examples:
  # Analyze a crawl corpus
  cmsfreq analyze --index crawl/index.json

  # Only captures from the last 30 days, at least 25 sites per pattern
  cmsfreq analyze --index crawl/index.json --last-days 30 --min-occurrences 25

  # Markdown report with discrimination metrics, written to a file
  cmsfreq analyze --index crawl/index.json --markdown --discrimination -o report.md

  # Legacy orchestration strategy
  cmsfreq analyze --index crawl/index.json --strategy legacy

Configuration file (.cmsfreq) example:
  filtered_headers:
    - x-internal-trace
  vendor_signatures:
    - pattern: x-acme-
      vendor: Acme CMS
      category: platform
      role: cms
      kind: prefix`,
		Args: cobra.NoArgs,
		RunE: runAnalyzeCmd,
	}

	// Input flags
	cmd.Flags().StringP("index", "i", "", "Path to the crawl index JSON file (required)")
	cmd.Flags().Int("last-days", 0, "Restrict analysis to captures within the trailing N days")
	cmd.Flags().Bool("force-reload", false, "Bypass the corpus cache and reload artifacts")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Number of concurrent artifact loaders")

	// Analysis flags
	cmd.Flags().IntP("min-occurrences", "n", model.DefaultMinOccurrences,
		"Minimum unique-site count for a pattern to be kept")
	cmd.Flags().Int("max-examples", model.DefaultMaxExamples, "Maximum examples per pattern")
	cmd.Flags().Bool("no-examples", false, "Do not attach example observations to patterns")
	cmd.Flags().Bool("no-semantic-filter", false,
		"Keep uninformative headers (date, etag, ...) in the counts")
	cmd.Flags().Bool("discrimination", false,
		"Compute platform-discrimination metrics in the summary")
	cmd.Flags().StringP("strategy", "s", config.DefaultStrategy,
		"Orchestration strategy: progressive or legacy")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .cmsfreq in current or home directory)")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().Bool("no-db", false, "Do not record the run in the history database")

	return cmd
}

// runAnalyzeCmd executes the analyze command.
func runAnalyzeCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewLogger(os.Stderr, cfg.Verbose)
	slog.SetDefault(logger)

	// Context with signal handling for graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runAnalyze(ctx, cfg, logger)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from cobra command flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getVerboseFlag(cmd)

	var err error

	cfg.IndexPath, err = cmd.Flags().GetString("index")
	if err != nil {
		return nil, err
	}
	cfg.LastDays, err = cmd.Flags().GetInt("last-days")
	if err != nil {
		return nil, err
	}
	cfg.ForceReload, err = cmd.Flags().GetBool("force-reload")
	if err != nil {
		return nil, err
	}
	cfg.Workers, err = cmd.Flags().GetInt("workers")
	if err != nil {
		return nil, err
	}
	cfg.MinOccurrences, err = cmd.Flags().GetInt("min-occurrences")
	if err != nil {
		return nil, err
	}
	cfg.MaxExamples, err = cmd.Flags().GetInt("max-examples")
	if err != nil {
		return nil, err
	}

	noExamples, err := cmd.Flags().GetBool("no-examples")
	if err != nil {
		return nil, err
	}
	cfg.IncludeExamples = !noExamples

	noSemanticFilter, err := cmd.Flags().GetBool("no-semantic-filter")
	if err != nil {
		return nil, err
	}
	cfg.SemanticFiltering = !noSemanticFilter

	cfg.FocusPlatformDiscrimination, err = cmd.Flags().GetBool("discrimination")
	if err != nil {
		return nil, err
	}
	cfg.Strategy, err = cmd.Flags().GetString("strategy")
	if err != nil {
		return nil, err
	}
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// Load the config file. An explicitly specified path must exist; an
	// absent default file is not an error.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		cfg.FileConfig, err = config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	} else if explicitConfigPath {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	cfg.JSONReport, err = cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	cfg.MarkdownReport, err = cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}
	cfg.ReportFile, err = cmd.Flags().GetString("output")
	if err != nil {
		return nil, err
	}

	noDB, err := cmd.Flags().GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	return cfg, nil
}

// runAnalyze executes the analysis.
func runAnalyze(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting analysis",
		"index", cfg.IndexPath,
		"strategy", cfg.Strategy,
		"min_occurrences", cfg.MinOccurrences,
		"last_days", cfg.LastDays,
	)

	if cfg.FileConfig != nil {
		analyzer.RegisterUninformativeHeaders(cfg.FileConfig.FilteredHeaders)
	}

	pre := preprocess.New(cfg.IndexPath,
		preprocess.WithLogger(logger),
		preprocess.WithWorkers(cfg.Workers),
	)
	corpus, err := pre.Load(ctx, preprocess.Query{
		Range:       model.DateRange{LastDays: cfg.LastDays},
		ForceReload: cfg.ForceReload,
	})
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	logger.Info("corpus loaded",
		"total_sites", corpus.TotalSites,
		"filtered", corpus.FilteringStats.FilteredCount,
	)

	aggOpts := []aggregate.Option{aggregate.WithLogger(logger)}
	if cfg.FileConfig != nil {
		if extra := cfg.FileConfig.Signatures(); len(extra) > 0 {
			aggOpts = append(aggOpts, aggregate.WithExtraSignatures(extra))
		}
	}
	results, err := aggregate.New(aggOpts...).Run(ctx, corpus, cfg.AnalysisOptions(), cfg.StrategyName())
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	if err := writeReport(cfg, results); err != nil {
		return err
	}

	if cfg.SaveToDB {
		if err := saveRun(ctx, cfg, results, logger); err != nil {
			// History persistence is best effort; the report already
			// reached the user.
			logger.Error("failed to record run history", "error", err)
		}
	}
	return nil
}

// writeReport renders the results in the configured format and destination.
func writeReport(cfg *config.Config, results *model.AggregatedResults) error {
	output := io.Writer(os.Stdout)
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return fmt.Errorf("failed to create report directory: %w", err)
			}
		}
		f, err := os.Create(cfg.ReportFile)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer f.Close()
		output = f
	}

	var writer report.Writer
	switch {
	case cfg.JSONReport:
		writer = report.NewFullJSONWriter(output, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		writer = report.NewMarkdownWriter(output)
	default:
		writer = report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}

	if _, err := writer.Write(results); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// saveRun records the completed run in the history database.
func saveRun(ctx context.Context, cfg *config.Config, results *model.AggregatedResults, logger *slog.Logger) error {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.SaveRun(ctx, results)
	if err != nil {
		return err
	}
	logger.Info("run recorded", "id", id, "db", db.Path())
	return nil
}
