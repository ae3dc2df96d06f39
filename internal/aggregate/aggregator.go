package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/cmsfreq/internal/analyzer"
	"github.com/nao1215/cmsfreq/internal/model"
)

// ErrUnknownStrategy is returned when the requested orchestration
// strategy is not recognized.
var ErrUnknownStrategy = errors.New("aggregate: unknown strategy")

// Aggregator runs the full analysis pipeline over a corpus.
type Aggregator struct {
	logger     *slog.Logger
	clock      func() time.Time
	signatures []analyzer.Signature
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(clock func() time.Time) Option {
	return func(a *Aggregator) {
		a.clock = clock
	}
}

// WithExtraSignatures appends user-configured vendor signatures to the
// built-in table for every run.
func WithExtraSignatures(signatures []analyzer.Signature) Option {
	return func(a *Aggregator) {
		a.signatures = signatures
	}
}

// newVendorAnalyzer builds the vendor analyzer with any configured extra
// signatures.
func (a *Aggregator) newVendorAnalyzer() *analyzer.VendorAnalyzer {
	if len(a.signatures) == 0 {
		return analyzer.NewVendorAnalyzer()
	}
	return analyzer.NewVendorAnalyzer(analyzer.WithExtraSignatures(a.signatures))
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		logger: slog.Default(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes every analysis stage against the corpus using the named
// strategy and aggregates the results. Both strategies run the same
// stages in the same order and produce the identical output shape.
func (a *Aggregator) Run(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions, strategy model.StrategyName) (*model.AggregatedResults, error) {
	var (
		results map[string]*model.AnalysisResult
		timings map[string]time.Duration
		err     error
	)
	switch strategy {
	case model.StrategyProgressive:
		results, timings, err = a.runProgressive(ctx, corpus, opts)
	case model.StrategyLegacy:
		results, timings, err = a.runLegacy(ctx, corpus, opts)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
	if err != nil {
		return nil, err
	}

	aggregated := &model.AggregatedResults{
		Results:     results,
		Summary:     buildSummary(corpus, results, opts),
		Strategy:    strategy,
		TotalSites:  corpus.TotalSites,
		GeneratedAt: a.clock(),
		Timings:     timings,
	}
	a.logger.InfoContext(ctx, "analysis complete",
		"strategy", strategy.String(),
		"stages", len(results),
		"total_sites", corpus.TotalSites)
	return aggregated, nil
}

// stageContext is the accumulator the progressive strategy threads
// through the pipeline. Each stage receives a context holding every
// earlier result and yields a new context; earlier contexts are never
// mutated.
type stageContext struct {
	results map[string]*model.AnalysisResult
}

// with returns a new context extended by one stage result.
func (c stageContext) with(name string, result *model.AnalysisResult) stageContext {
	next := make(map[string]*model.AnalysisResult, len(c.results)+1)
	for k, v := range c.results {
		next[k] = v
	}
	next[name] = result
	return stageContext{results: next}
}

// runProgressive folds the pipeline over a stage context. Stages pull
// their upstream payloads out of the accumulated context instead of
// being handed them explicitly.
func (a *Aggregator) runProgressive(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions) (map[string]*model.AnalysisResult, map[string]time.Duration, error) {
	validation := analyzer.NewValidationAnalyzer()
	vendor := a.newVendorAnalyzer()
	semantic := analyzer.NewSemanticAnalyzer()
	discovery := analyzer.NewDiscoveryAnalyzer(vendor)
	cooccurrence := analyzer.NewCooccurrenceAnalyzer()
	bias := analyzer.NewBiasAnalyzer()
	signature := analyzer.NewSignatureAnalyzer()

	stages := []struct {
		name string
		run  func(context.Context, stageContext) (*model.AnalysisResult, error)
	}{
		{analyzer.StageHeader, func(ctx context.Context, _ stageContext) (*model.AnalysisResult, error) {
			return analyzer.NewHeaderAnalyzer().Analyze(ctx, corpus, opts)
		}},
		{analyzer.StageMeta, func(ctx context.Context, _ stageContext) (*model.AnalysisResult, error) {
			return analyzer.NewMetaAnalyzer().Analyze(ctx, corpus, opts)
		}},
		{analyzer.StageScript, func(ctx context.Context, _ stageContext) (*model.AnalysisResult, error) {
			return analyzer.NewScriptAnalyzer().Analyze(ctx, corpus, opts)
		}},
		{analyzer.StageValidation, func(ctx context.Context, sc stageContext) (*model.AnalysisResult, error) {
			dims := []*model.AnalysisResult{
				sc.results[analyzer.StageHeader],
				sc.results[analyzer.StageMeta],
				sc.results[analyzer.StageScript],
			}
			result, err := validation.AnalyzeWithDimensions(ctx, corpus, opts, dims)
			if err != nil {
				return nil, err
			}
			attachValidationSummary(corpus, validation, result)
			return result, nil
		}},
		{analyzer.StageVendor, func(ctx context.Context, _ stageContext) (*model.AnalysisResult, error) {
			return vendor.Analyze(ctx, corpus, opts)
		}},
		{analyzer.StageSemantic, func(ctx context.Context, sc stageContext) (*model.AnalysisResult, error) {
			result, err := semantic.AnalyzeWithVendor(ctx, corpus, opts, analyzer.VendorFrom(sc.results[analyzer.StageVendor]))
			if err != nil {
				return nil, err
			}
			attachSemanticSummary(corpus, semantic, result)
			return result, nil
		}},
		{analyzer.StageDiscovery, func(ctx context.Context, sc stageContext) (*model.AnalysisResult, error) {
			return discovery.AnalyzeWithVendor(ctx, corpus, opts, analyzer.VendorFrom(sc.results[analyzer.StageVendor]))
		}},
		{analyzer.StageCooccurrence, func(ctx context.Context, sc stageContext) (*model.AnalysisResult, error) {
			return cooccurrence.AnalyzeWithVendor(ctx, corpus, opts, analyzer.VendorFrom(sc.results[analyzer.StageVendor]))
		}},
		{analyzer.StageBias, func(ctx context.Context, sc stageContext) (*model.AnalysisResult, error) {
			return bias.AnalyzeWithInputs(ctx, corpus, opts,
				analyzer.VendorFrom(sc.results[analyzer.StageVendor]),
				analyzer.SemanticFrom(sc.results[analyzer.StageSemantic]),
				analyzer.DiscoveryFrom(sc.results[analyzer.StageDiscovery]))
		}},
		{analyzer.StageSignature, func(ctx context.Context, sc stageContext) (*model.AnalysisResult, error) {
			return signature.AnalyzeWithResults(ctx, corpus, opts, sc.results)
		}},
	}

	sc := stageContext{results: map[string]*model.AnalysisResult{}}
	timings := make(map[string]time.Duration, len(stages))
	for _, stage := range stages {
		start := a.clock()
		result, err := stage.run(ctx, sc)
		if err != nil {
			return nil, nil, fmt.Errorf("stage %s: %w", stage.name, err)
		}
		timings[stage.name] = a.clock().Sub(start)
		sc = sc.with(stage.name, result)
		a.logger.DebugContext(ctx, "stage complete",
			"stage", stage.name,
			"patterns", len(result.Patterns),
			"elapsed", timings[stage.name])
	}
	return sc.results, timings, nil
}

// runLegacy wires the same stages through explicit typed calls, each
// dependency named in the call site rather than pulled from a context.
func (a *Aggregator) runLegacy(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions) (map[string]*model.AnalysisResult, map[string]time.Duration, error) {
	results := make(map[string]*model.AnalysisResult, 10)
	timings := make(map[string]time.Duration, 10)

	timed := func(name string, run func() (*model.AnalysisResult, error)) error {
		start := a.clock()
		result, err := run()
		if err != nil {
			return fmt.Errorf("stage %s: %w", name, err)
		}
		results[name] = result
		timings[name] = a.clock().Sub(start)
		a.logger.DebugContext(ctx, "stage complete",
			"stage", name,
			"patterns", len(result.Patterns),
			"elapsed", timings[name])
		return nil
	}

	if err := timed(analyzer.StageHeader, func() (*model.AnalysisResult, error) {
		return analyzer.NewHeaderAnalyzer().Analyze(ctx, corpus, opts)
	}); err != nil {
		return nil, nil, err
	}
	if err := timed(analyzer.StageMeta, func() (*model.AnalysisResult, error) {
		return analyzer.NewMetaAnalyzer().Analyze(ctx, corpus, opts)
	}); err != nil {
		return nil, nil, err
	}
	if err := timed(analyzer.StageScript, func() (*model.AnalysisResult, error) {
		return analyzer.NewScriptAnalyzer().Analyze(ctx, corpus, opts)
	}); err != nil {
		return nil, nil, err
	}

	validation := analyzer.NewValidationAnalyzer()
	if err := timed(analyzer.StageValidation, func() (*model.AnalysisResult, error) {
		result, err := validation.AnalyzeWithDimensions(ctx, corpus, opts, []*model.AnalysisResult{
			results[analyzer.StageHeader],
			results[analyzer.StageMeta],
			results[analyzer.StageScript],
		})
		if err != nil {
			return nil, err
		}
		attachValidationSummary(corpus, validation, result)
		return result, nil
	}); err != nil {
		return nil, nil, err
	}

	vendor := a.newVendorAnalyzer()
	if err := timed(analyzer.StageVendor, func() (*model.AnalysisResult, error) {
		return vendor.Analyze(ctx, corpus, opts)
	}); err != nil {
		return nil, nil, err
	}
	vendorPayload := analyzer.VendorFrom(results[analyzer.StageVendor])

	semantic := analyzer.NewSemanticAnalyzer()
	if err := timed(analyzer.StageSemantic, func() (*model.AnalysisResult, error) {
		result, err := semantic.AnalyzeWithVendor(ctx, corpus, opts, vendorPayload)
		if err != nil {
			return nil, err
		}
		attachSemanticSummary(corpus, semantic, result)
		return result, nil
	}); err != nil {
		return nil, nil, err
	}

	if err := timed(analyzer.StageDiscovery, func() (*model.AnalysisResult, error) {
		return analyzer.NewDiscoveryAnalyzer(vendor).AnalyzeWithVendor(ctx, corpus, opts, vendorPayload)
	}); err != nil {
		return nil, nil, err
	}
	if err := timed(analyzer.StageCooccurrence, func() (*model.AnalysisResult, error) {
		return analyzer.NewCooccurrenceAnalyzer().AnalyzeWithVendor(ctx, corpus, opts, vendorPayload)
	}); err != nil {
		return nil, nil, err
	}
	if err := timed(analyzer.StageBias, func() (*model.AnalysisResult, error) {
		return analyzer.NewBiasAnalyzer().AnalyzeWithInputs(ctx, corpus, opts,
			vendorPayload,
			analyzer.SemanticFrom(results[analyzer.StageSemantic]),
			analyzer.DiscoveryFrom(results[analyzer.StageDiscovery]))
	}); err != nil {
		return nil, nil, err
	}
	if err := timed(analyzer.StageSignature, func() (*model.AnalysisResult, error) {
		return analyzer.NewSignatureAnalyzer().AnalyzeWithResults(ctx, corpus, opts, results)
	}); err != nil {
		return nil, nil, err
	}

	return results, timings, nil
}

// attachValidationSummary appends the validation summary to the corpus
// metadata so later stages can restrict themselves to validated patterns.
func attachValidationSummary(corpus *model.Corpus, validation *analyzer.ValidationAnalyzer, result *model.AnalysisResult) {
	payload := analyzer.ValidationFrom(result)
	if payload == nil {
		return
	}
	corpus.Metadata.Validation = validation.Summary(payload, result.Metadata.PatternsBeforeFilter)
}

// attachSemanticSummary appends the semantic summary to the corpus metadata.
func attachSemanticSummary(corpus *model.Corpus, semantic *analyzer.SemanticAnalyzer, result *model.AnalysisResult) {
	payload := analyzer.SemanticFrom(result)
	if payload == nil {
		return
	}
	corpus.Metadata.Semantic = semantic.Summary(payload)
}
