package analyzer

import (
	"context"
	"time"

	"github.com/nao1215/cmsfreq/internal/model"
)

// Stage name constants. The aggregator keys stage results by these names.
const (
	// StageHeader is the header dimension analyzer.
	StageHeader = "header"
	// StageMeta is the meta tag dimension analyzer.
	StageMeta = "meta"
	// StageScript is the script dimension analyzer.
	StageScript = "script"
	// StageValidation is the statistical validation stage.
	StageValidation = "validation"
	// StageVendor is the vendor signature analyzer.
	StageVendor = "vendor"
	// StageSemantic is the semantic classification analyzer.
	StageSemantic = "semantic"
	// StageDiscovery is the emergent-pattern discovery analyzer.
	StageDiscovery = "discovery"
	// StageCooccurrence is the header co-occurrence analyzer.
	StageCooccurrence = "cooccurrence"
	// StageBias is the dataset-bias analyzer.
	StageBias = "bias"
	// StageSignature is the platform-signature analyzer.
	StageSignature = "platform-signature"
)

// Analyzer is the uniform contract every analysis stage implements.
type Analyzer interface {
	// Name returns the stable stage name.
	Name() string

	// Analyze runs the stage against the corpus. Results are created
	// fresh per invocation and never mutated after return.
	Analyze(ctx context.Context, corpus *model.Corpus, opts model.AnalysisOptions) (*model.AnalysisResult, error)
}

// newResult builds the result skeleton shared by all analyzers.
func newResult(name string, corpus *model.Corpus, opts model.AnalysisOptions) *model.AnalysisResult {
	return &model.AnalysisResult{
		Analyzer:   name,
		Patterns:   make(map[string]*model.PatternRecord),
		TotalSites: corpus.TotalSites,
		Metadata: model.ResultMetadata{
			GeneratedAt: time.Now(),
			Options:     opts,
		},
	}
}

// VendorFrom extracts the vendor payload from a stage result, nil when the
// result is absent or carries a different payload.
func VendorFrom(result *model.AnalysisResult) *model.VendorPayload {
	if result == nil {
		return nil
	}
	payload, _ := result.Payload.(*model.VendorPayload)
	return payload
}

// SemanticFrom extracts the semantic payload from a stage result.
func SemanticFrom(result *model.AnalysisResult) *model.SemanticPayload {
	if result == nil {
		return nil
	}
	payload, _ := result.Payload.(*model.SemanticPayload)
	return payload
}

// DiscoveryFrom extracts the discovery payload from a stage result.
func DiscoveryFrom(result *model.AnalysisResult) *model.DiscoveryPayload {
	if result == nil {
		return nil
	}
	payload, _ := result.Payload.(*model.DiscoveryPayload)
	return payload
}

// ValidationFrom extracts the validation payload from a stage result.
func ValidationFrom(result *model.AnalysisResult) *model.ValidationPayload {
	if result == nil {
		return nil
	}
	payload, _ := result.Payload.(*model.ValidationPayload)
	return payload
}

// CooccurrenceFrom extracts the co-occurrence payload from a stage result.
func CooccurrenceFrom(result *model.AnalysisResult) *model.CooccurrencePayload {
	if result == nil {
		return nil
	}
	payload, _ := result.Payload.(*model.CooccurrencePayload)
	return payload
}

// BiasFrom extracts the bias payload from a stage result.
func BiasFrom(result *model.AnalysisResult) *model.BiasPayload {
	if result == nil {
		return nil
	}
	payload, _ := result.Payload.(*model.BiasPayload)
	return payload
}
