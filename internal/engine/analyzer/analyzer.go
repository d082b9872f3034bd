// Package analyzer runs the full pipeline over ST source files: parse,
// extract, score. Single files are analyzed synchronously; projects fan
// out per file and merge into an order-independent summary.
package analyzer

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"stmigrate/internal/core/config"
	"stmigrate/internal/engine/extract"
	"stmigrate/internal/engine/score"
	"stmigrate/internal/engine/stparse"
	"stmigrate/internal/shared/observability"
)

// FileResult is the complete analysis of one source file.
type FileResult struct {
	Path          string                        `json:"path"`
	POUs          []stparse.POU                 `json:"pous"`
	Errors        []stparse.ParseIssue          `json:"errors,omitempty"`
	Warnings      []stparse.ParseIssue          `json:"warnings,omitempty"`
	Docstrings    []stparse.Docstring           `json:"docstrings,omitempty"`
	Variables     []stparse.Variable            `json:"variables,omitempty"`
	StateMachines []stparse.StateMachine        `json:"stateMachines,omitempty"`
	Interlocks    []stparse.SafetyInterlock     `json:"interlocks,omitempty"`
	Tribal        []stparse.TribalKnowledgeItem `json:"tribalKnowledge,omitempty"`
	Scores        []score.MigrationScore        `json:"scores,omitempty"`
}

// AnalyzeFile runs parser, all extractors and the scorer over one file.
// The input text is never modified and the result depends only on it, so
// repeated runs yield identical output.
func AnalyzeFile(path, source string, cfg *config.Config) FileResult {
	parseStart := time.Now()
	parsed := stparse.Parse(path, source)
	observability.ParsingDuration.Observe(time.Since(parseStart).Seconds())
	observability.POUsParsedTotal.Add(float64(len(parsed.POUs)))
	observability.ParseIssuesTotal.WithLabelValues("error").Add(float64(len(parsed.Errors)))
	observability.ParseIssuesTotal.WithLabelValues("warning").Add(float64(len(parsed.Warnings)))

	safetyOpts := safetyOptions(cfg)
	pous := extract.AnnotateSafetyCritical(parsed.POUs, safetyOpts)

	res := FileResult{
		Path:     path,
		Errors:   parsed.Errors,
		Warnings: parsed.Warnings,
	}
	res.Docstrings = timedExtract("docstring", func() []stparse.Docstring {
		return extract.ExtractDocstrings(path, source)
	})
	res.Variables = timedExtract("variable", func() []stparse.Variable {
		return extract.ExtractVariables(pous, safetyOpts)
	})
	res.StateMachines = timedExtract("statemachine", func() []stparse.StateMachine {
		return extract.ExtractStateMachines(path, source, pous, stateMachineOptions(cfg))
	})
	res.Interlocks = timedExtract("safety", func() []stparse.SafetyInterlock {
		return extract.ExtractSafetyInterlocks(path, source, pous, safetyOpts)
	})
	res.Tribal = timedExtract("tribal", func() []stparse.TribalKnowledgeItem {
		return extract.ExtractTribalKnowledge(path, source)
	})

	res.POUs = attachDocumentation(pous, res.Docstrings)

	for _, pou := range res.POUs {
		res.Scores = append(res.Scores, score.Score(pou, score.Inputs{
			Docstrings:    res.Docstrings,
			StateMachines: res.StateMachines,
			Interlocks:    res.Interlocks,
			Tribal:        res.Tribal,
		}, scoreConfig(cfg)))
	}

	recordFindings(res)
	observability.FilesAnalyzedTotal.Inc()
	return res
}

// FileInput is one unit of work for project analysis. Reading files is
// the caller's concern; the analyzer only sees text.
type FileInput struct {
	Path   string
	Source string
}

// ProjectResult aggregates per-file results with an associative summary:
// parallel and sequential processing produce identical output.
type ProjectResult struct {
	Files   []FileResult   `json:"files"`
	Summary ProjectSummary `json:"summary"`
}

type ProjectSummary struct {
	FileCount        int            `json:"fileCount"`
	POUCount         int            `json:"pouCount"`
	POUsByKind       map[string]int `json:"pousByKind"`
	VariableCount    int            `json:"variableCount"`
	DocstringCount   int            `json:"docstringCount"`
	DocumentedPOUs   int            `json:"documentedPous"`
	StateMachines    int            `json:"stateMachines"`
	InterlocksByType map[string]int `json:"interlocksByType"`
	BypassedCount    int            `json:"bypassedCount"`
	TribalByLevel    map[string]int `json:"tribalByImportance"`
	ParseErrors      int            `json:"parseErrors"`
	ParseWarnings    int            `json:"parseWarnings"`
	Blockers         int            `json:"blockers"`
	GradeCounts      map[string]int `json:"gradeCounts"`
}

// AnalyzeProject analyzes the given files with bounded parallelism and
// merges the results. Output ordering is by path, independent of
// completion order. Cancellation applies at file granularity: files not
// yet started are skipped once ctx is done.
func AnalyzeProject(ctx context.Context, inputs []FileInput, cfg *config.Config) (ProjectResult, error) {
	results := make([]FileResult, len(inputs))

	g, ctx := errgroup.WithContext(ctx)
	if cfg.Scan.MaxWorkers > 0 {
		g.SetLimit(cfg.Scan.MaxWorkers)
	}
	for i, in := range inputs {
		i, in := i, in
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = AnalyzeFile(in.Path, in.Source, cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ProjectResult{}, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })

	summary := ProjectSummary{
		POUsByKind:       map[string]int{},
		InterlocksByType: map[string]int{},
		TribalByLevel:    map[string]int{},
		GradeCounts:      map[string]int{},
	}
	for _, fr := range results {
		mergeSummary(&summary, fr)
	}
	return ProjectResult{Files: results, Summary: summary}, nil
}

// mergeSummary folds one file into the project summary. Every update is
// a count increment, so the fold is associative and commutative.
func mergeSummary(s *ProjectSummary, fr FileResult) {
	s.FileCount++
	s.POUCount += len(fr.POUs)
	s.VariableCount += len(fr.Variables)
	s.DocstringCount += len(fr.Docstrings)
	s.StateMachines += len(fr.StateMachines)
	s.ParseErrors += len(fr.Errors)
	s.ParseWarnings += len(fr.Warnings)

	for _, pou := range fr.POUs {
		s.POUsByKind[string(pou.Kind)]++
		if pou.Documentation != nil {
			s.DocumentedPOUs++
		}
	}
	for typ, n := range extract.CountInterlocksByType(fr.Interlocks) {
		s.InterlocksByType[typ] += n
	}
	for _, il := range fr.Interlocks {
		if il.IsBypassed {
			s.BypassedCount++
		}
	}
	for _, item := range fr.Tribal {
		s.TribalByLevel[string(item.Importance)]++
	}
	for _, sc := range fr.Scores {
		s.GradeCounts[sc.Grade]++
		s.Blockers += len(sc.Blockers)
	}
}

func attachDocumentation(pous []stparse.POU, docs []stparse.Docstring) []stparse.POU {
	out := make([]stparse.POU, len(pous))
	copy(out, pous)
	for i := range out {
		if out[i].Documentation != nil {
			continue
		}
		for j := range docs {
			if docs[j].AssociatedBlock == out[i].Name {
				doc := docs[j]
				out[i].Documentation = &doc
				break
			}
		}
	}
	return out
}

func timedExtract[T any](kind string, fn func() []T) []T {
	start := time.Now()
	out := fn()
	observability.ExtractionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	return out
}

func recordFindings(res FileResult) {
	observability.FindingsTotal.WithLabelValues("docstring").Add(float64(len(res.Docstrings)))
	observability.FindingsTotal.WithLabelValues("statemachine").Add(float64(len(res.StateMachines)))
	observability.FindingsTotal.WithLabelValues("interlock").Add(float64(len(res.Interlocks)))
	observability.FindingsTotal.WithLabelValues("tribal").Add(float64(len(res.Tribal)))
	for typ, n := range extract.CountInterlocksByType(res.Interlocks) {
		observability.SafetyInterlocksTotal.WithLabelValues(typ).Add(float64(n))
	}
}

func safetyOptions(cfg *config.Config) extract.SafetyOptions {
	return extract.SafetyOptions{
		ExtraInterlockPatterns: cfg.Safety.InterlockPatterns,
		ExtraBypassPatterns:    cfg.Safety.BypassPatterns,
		IOChannelPrefixes:      cfg.Safety.IOChannelPrefixes,
	}
}

func stateMachineOptions(cfg *config.Config) extract.StateMachineOptions {
	return extract.StateMachineOptions{ExtraNamePatterns: cfg.StateMachine.ExtraNamePatterns}
}

func scoreConfig(cfg *config.Config) score.Config {
	return score.Config{
		Weights: score.Weights{
			Complexity:    cfg.Scoring.Weights.Complexity,
			SafetyRisk:    cfg.Scoring.Weights.SafetyRisk,
			Documentation: cfg.Scoring.Weights.Documentation,
			Determinism:   cfg.Scoring.Weights.Determinism,
		},
		Thresholds: score.Thresholds{
			UndocumentedStateRatio: cfg.Scoring.Thresholds.UndocumentedStateRatio,
			MaxStates:              cfg.Scoring.Thresholds.MaxStates,
			MaxVariables:           cfg.Scoring.Thresholds.MaxVariables,
		},
	}
}
