// Package analyzer implements the frequency-analysis stages: the
// dimension analyzers (header, meta, script), the validation stage, and
// the semantic, vendor, discovery, co-occurrence, bias, and
// platform-signature analyzers.
//
// Every analyzer satisfies the plain Analyzer contract. Analyzers with
// cross-stage data dependencies additionally expose typed AnalyzeWith*
// methods that take the producing stage's payload as an explicit argument,
// so the dependency graph is part of the type signature rather than a
// setter side effect.
package analyzer
