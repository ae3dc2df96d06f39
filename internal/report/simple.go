package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nao1215/cmsfreq/internal/analyzer"
	"github.com/nao1215/cmsfreq/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
// Plain ASCII formatting keeps the output pipe-friendly and portable
// across terminals.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no content are shown.
	showEmpty bool

	// verbose enables additional detail in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the aggregated results in human-readable format.
func (w *SimpleWriter) Write(results *model.AggregatedResults) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, results)
	w.writeDistribution(&sb, results)
	w.writeTopPatterns(&sb, results)
	w.writeDiscrimination(&sb, results)
	w.writeWarnings(&sb, results)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, results *model.AggregatedResults) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    CMS FREQUENCY ANALYSIS REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Strategy:     %s\n", results.Strategy)
	fmt.Fprintf(sb, "Total Sites:  %d\n", results.TotalSites)
	fmt.Fprintf(sb, "Stages:       %d\n", len(results.Results))
	fmt.Fprintf(sb, "Generated:    %s\n", results.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	sb.WriteString("\n")
}

// writeDistribution writes the CMS distribution section.
func (w *SimpleWriter) writeDistribution(sb *strings.Builder, results *model.AggregatedResults) {
	bias := analyzer.BiasFrom(results.Result(analyzer.StageBias))
	if bias == nil || (len(bias.Distribution) == 0 && !w.showEmpty) {
		return
	}

	w.writeSectionHeader(sb, "CMS DISTRIBUTION")

	names := make([]string, 0, len(bias.Distribution))
	for name := range bias.Distribution {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		ci, cj := bias.Distribution[names[i]].Count, bias.Distribution[names[j]].Count
		if ci != cj {
			return ci > cj
		}
		return names[i] < names[j]
	})
	for _, name := range names {
		share := bias.Distribution[name]
		fmt.Fprintf(sb, "  %-20s %6d sites (%5.1f%%)\n", name, share.Count, share.Percentage)
	}
	fmt.Fprintf(sb, "\n  Concentration score: %.3f\n\n", bias.ConcentrationScore)
}

// writeTopPatterns writes the per-dimension top pattern sections.
func (w *SimpleWriter) writeTopPatterns(sb *strings.Builder, results *model.AggregatedResults) {
	if results.Summary == nil {
		return
	}
	sections := []struct {
		title    string
		patterns []model.PatternSummary
	}{
		{"TOP HEADERS", results.Summary.TopHeaders},
		{"TOP META TAGS", results.Summary.TopMetaTags},
		{"TOP SCRIPTS", results.Summary.TopScripts},
	}
	for _, section := range sections {
		if len(section.patterns) == 0 && !w.showEmpty {
			continue
		}
		w.writeSectionHeader(sb, section.title)
		if len(section.patterns) == 0 {
			sb.WriteString("  No patterns above the occurrence threshold\n\n")
			continue
		}
		for _, p := range section.patterns {
			fmt.Fprintf(sb, "  %5.1f%%  %-50s (%d sites)\n",
				p.Frequency*100, truncateString(p.Pattern, 50), p.SiteCount)
		}
		sb.WriteString("\n")
	}
}

// writeDiscrimination writes the discrimination metrics when computed.
func (w *SimpleWriter) writeDiscrimination(sb *strings.Builder, results *model.AggregatedResults) {
	if results.Summary == nil || results.Summary.Discrimination == nil {
		return
	}
	ds := results.Summary.Discrimination

	w.writeSectionHeader(sb, "PLATFORM DISCRIMINATION")
	fmt.Fprintf(sb, "  Discriminatory: %d\n", ds.DiscriminatoryCount)
	fmt.Fprintf(sb, "  Noise:          %d\n", ds.NoiseCount)
	fmt.Fprintf(sb, "  Average score:  %.3f\n", ds.AverageScore)
	fmt.Fprintf(sb, "  Signal/noise:   %.2f\n", ds.SignalToNoise)
	fmt.Fprintf(sb, "  Coverage:       %.1f%%\n", ds.Coverage*100)
	sb.WriteString("\n")

	if w.verbose {
		for _, p := range ds.TopDiscriminatory {
			fmt.Fprintf(sb, "  [%s] %.3f  %s\n", p.Dimension, p.DiscriminationScore,
				truncateString(p.Pattern, 50))
		}
		sb.WriteString("\n")
	}
}

// writeWarnings writes dataset-bias warnings.
func (w *SimpleWriter) writeWarnings(sb *strings.Builder, results *model.AggregatedResults) {
	bias := analyzer.BiasFrom(results.Result(analyzer.StageBias))
	if bias == nil || (len(bias.Warnings) == 0 && !w.showEmpty) {
		return
	}

	w.writeSectionHeader(sb, "DATASET BIAS WARNINGS")
	if len(bias.Warnings) == 0 {
		sb.WriteString("  No warnings\n\n")
		return
	}
	for _, warning := range bias.Warnings {
		fmt.Fprintf(sb, "  [!] %s\n", warning)
	}
	sb.WriteString("\n")
}

// writeSectionHeader writes a dashed section delimiter.
func (w *SimpleWriter) writeSectionHeader(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by cmsfreq\n")
	sb.WriteString("https://github.com/nao1215/cmsfreq\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
