package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/cmsfreq/internal/analyzer"
	"github.com/nao1215/cmsfreq/internal/model"
)

// MarkdownWriter outputs reports in Markdown format, designed for
// documentation and sharing. It uses the nao1215/markdown library for
// fluent, type-safe markdown generation.
type MarkdownWriter struct {
	baseWriter

	titleCaser cases.Caser
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		titleCaser: cases.Title(language.English),
	}
}

// Write outputs the aggregated results in Markdown format.
func (w *MarkdownWriter) Write(results *model.AggregatedResults) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, results)
	w.writeDistribution(md, results)
	w.writeTopPatterns(md, results)
	w.writeDiscrimination(md, results)
	w.writeCooccurrence(md, results)
	w.writeSignatures(md, results)
	w.writeWarnings(md, results)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, results *model.AggregatedResults) {
	md.H1("CMS Frequency Analysis Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Strategy", results.Strategy.String()},
			{"Total Sites", strconv.Itoa(results.TotalSites)},
			{"Stages", strconv.Itoa(len(results.Results))},
			{"Generated", results.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
		},
	})
	md.PlainText("")
}

// writeDistribution writes the CMS distribution table and pie chart.
func (w *MarkdownWriter) writeDistribution(md *markdown.Markdown, results *model.AggregatedResults) {
	bias := analyzer.BiasFrom(results.Result(analyzer.StageBias))
	if bias == nil || len(bias.Distribution) == 0 {
		return
	}

	md.H2("CMS Distribution")
	md.PlainText("")

	names := make([]string, 0, len(bias.Distribution))
	for name := range bias.Distribution {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return bias.Distribution[names[i]].Count > bias.Distribution[names[j]].Count ||
			(bias.Distribution[names[i]].Count == bias.Distribution[names[j]].Count && names[i] < names[j])
	})

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		share := bias.Distribution[name]
		rows = append(rows, []string{
			name,
			strconv.Itoa(share.Count),
			fmt.Sprintf("%.1f%%", share.Percentage),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"CMS", "Sites", "Share"},
		Rows:   rows,
	})
	md.PlainText("")
	md.PlainTextf("Concentration score (Herfindahl): %.3f", bias.ConcentrationScore)
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("CMS Distribution"),
		piechart.WithShowData(true),
	)
	for _, name := range names {
		chart.LabelAndIntValue(name, uint64(bias.Distribution[name].Count))
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeTopPatterns writes the per-dimension top pattern tables.
func (w *MarkdownWriter) writeTopPatterns(md *markdown.Markdown, results *model.AggregatedResults) {
	if results.Summary == nil {
		return
	}
	sections := []struct {
		title    string
		patterns []model.PatternSummary
	}{
		{"Top Headers", results.Summary.TopHeaders},
		{"Top Meta Tags", results.Summary.TopMetaTags},
		{"Top Scripts", results.Summary.TopScripts},
	}
	for _, section := range sections {
		if len(section.patterns) == 0 {
			continue
		}
		md.H2(section.title)
		md.PlainText("")
		md.Table(markdown.TableSet{
			Header: []string{"Pattern", "Sites", "Frequency"},
			Rows:   patternRows(section.patterns),
		})
		md.PlainText("")
	}
}

// patternRows renders pattern summaries as table rows.
func patternRows(patterns []model.PatternSummary) [][]string {
	rows := make([][]string, 0, len(patterns))
	for _, p := range patterns {
		rows = append(rows, []string{
			"`" + truncateString(p.Pattern, 60) + "`",
			strconv.Itoa(p.SiteCount),
			fmt.Sprintf("%.1f%%", p.Frequency*100),
		})
	}
	return rows
}

// writeDiscrimination writes the platform-discrimination section when the
// run computed it.
func (w *MarkdownWriter) writeDiscrimination(md *markdown.Markdown, results *model.AggregatedResults) {
	if results.Summary == nil || results.Summary.Discrimination == nil {
		return
	}
	ds := results.Summary.Discrimination

	md.H2("Platform Discrimination")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Discriminatory Patterns", strconv.Itoa(ds.DiscriminatoryCount)},
			{"Noise Patterns", strconv.Itoa(ds.NoiseCount)},
			{"Average Score", fmt.Sprintf("%.3f", ds.AverageScore)},
			{"Noise Reduction", fmt.Sprintf("%.1f%%", ds.NoiseReductionPercent)},
			{"Signal To Noise", fmt.Sprintf("%.2f", ds.SignalToNoise)},
			{"Coverage", fmt.Sprintf("%.1f%%", ds.Coverage*100)},
			{"Confidence Boost", fmt.Sprintf("%.3f", ds.ConfidenceBoost)},
		},
	})
	md.PlainText("")

	if len(ds.TopDiscriminatory) == 0 {
		return
	}
	rows := make([][]string, 0, len(ds.TopDiscriminatory))
	for _, p := range ds.TopDiscriminatory {
		rows = append(rows, []string{
			"`" + truncateString(p.Pattern, 60) + "`",
			w.titleCaser.String(p.Dimension),
			strconv.Itoa(p.SiteCount),
			fmt.Sprintf("%.3f", p.DiscriminationScore),
		})
	}
	md.H3("Top Discriminatory Patterns")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Pattern", "Dimension", "Sites", "Score"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeCooccurrence writes stack signatures and platform combinations.
func (w *MarkdownWriter) writeCooccurrence(md *markdown.Markdown, results *model.AggregatedResults) {
	cooc := analyzer.CooccurrenceFrom(results.Result(analyzer.StageCooccurrence))
	if cooc == nil {
		return
	}

	if len(cooc.StackSignatures) > 0 {
		md.H2("Known Stack Signatures")
		md.PlainText("")
		rows := make([][]string, 0, len(cooc.StackSignatures))
		for _, sig := range cooc.StackSignatures {
			rows = append(rows, []string{
				sig.Name,
				strconv.Itoa(sig.SiteCount),
				fmt.Sprintf("%.2f", sig.Confidence),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Stack", "Sites", "Confidence"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	if len(cooc.PlatformCombinations) > 0 {
		md.H2("Platform-Exclusive Combinations")
		md.PlainText("")
		rows := make([][]string, 0, len(cooc.PlatformCombinations))
		for _, combo := range cooc.PlatformCombinations {
			rows = append(rows, []string{
				combo.CMS,
				"`" + joinHeaders(combo.Headers) + "`",
				fmt.Sprintf("%.1f%%", combo.InPlatformFrequency*100),
				fmt.Sprintf("%.2f", combo.Exclusivity),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"CMS", "Headers", "In-Platform", "Exclusivity"},
			Rows:   rows,
		})
		md.PlainText("")
	}
}

// writeSignatures writes the per-platform signature sections.
func (w *MarkdownWriter) writeSignatures(md *markdown.Markdown, results *model.AggregatedResults) {
	result := results.Result(analyzer.StageSignature)
	if result == nil {
		return
	}
	payload, ok := result.Payload.(*model.SignaturePayload)
	if !ok || len(payload.Signatures) == 0 {
		return
	}

	md.H2("Platform Signatures")
	md.PlainText("")

	names := make([]string, 0, len(payload.Signatures))
	for name := range payload.Signatures {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sig := payload.Signatures[name]
		md.H3(name)
		md.PlainText("")
		md.PlainTextf("%d sites, confidence %.2f", sig.SiteCount, sig.Confidence)
		md.PlainText("")
		if len(sig.Headers) > 0 {
			md.PlainText("Headers: `" + joinHeaders(sig.Headers) + "`")
			md.PlainText("")
		}
		if len(sig.MetaTags) > 0 {
			md.PlainText("Meta tags: `" + joinHeaders(sig.MetaTags) + "`")
			md.PlainText("")
		}
		if len(sig.Scripts) > 0 {
			md.PlainText("Scripts: `" + joinHeaders(sig.Scripts) + "`")
			md.PlainText("")
		}
		if len(sig.ExclusiveCombinations) > 0 {
			md.BulletList(sig.ExclusiveCombinations...)
			md.PlainText("")
		}
	}
}

// writeWarnings writes bias warnings as alerts.
func (w *MarkdownWriter) writeWarnings(md *markdown.Markdown, results *model.AggregatedResults) {
	bias := analyzer.BiasFrom(results.Result(analyzer.StageBias))
	if bias == nil || len(bias.Warnings) == 0 {
		return
	}
	md.H2("Dataset Bias Warnings")
	md.PlainText("")
	for _, warning := range bias.Warnings {
		md.Warningf("%s", warning)
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [cmsfreq](https://github.com/nao1215/cmsfreq)*")
}

// joinHeaders joins names with commas for inline display.
func joinHeaders(names []string) string {
	out := ""
	for i, name := range names {
		if i > 0 {
			out += ", "
		}
		out += name
	}
	return out
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
