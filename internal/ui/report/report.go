// Package report renders analysis results for consumers. JSON is the
// machine-readable contract; markdown is a human summary for migration
// planning meetings.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"stmigrate/internal/engine/aicontext"
	"stmigrate/internal/engine/analyzer"
	"stmigrate/internal/shared/util"
)

// Document is the top-level report payload. The context package is only
// present when context generation was requested.
type Document struct {
	Project *aicontext.ProjectInfo `json:"project,omitempty"`
	Result  analyzer.ProjectResult `json:"result"`
	Context *aicontext.Package     `json:"aiContext,omitempty"`
}

// WriteJSON emits the document as indented JSON. Map keys serialize in
// sorted order, so identical analyses produce byte-identical reports.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// WriteMarkdown renders a compact human summary of the project result.
func WriteMarkdown(w io.Writer, doc Document) error {
	var b strings.Builder
	s := doc.Result.Summary

	b.WriteString("# ST Migration Analysis\n\n")
	if doc.Project != nil && doc.Project.Name != "" {
		fmt.Fprintf(&b, "Project: %s\n\n", doc.Project.Name)
	}

	fmt.Fprintf(&b, "- Files analyzed: %d\n", s.FileCount)
	fmt.Fprintf(&b, "- POUs: %d (documented: %d)\n", s.POUCount, s.DocumentedPOUs)
	fmt.Fprintf(&b, "- Variables: %d\n", s.VariableCount)
	fmt.Fprintf(&b, "- State machines: %d\n", s.StateMachines)
	fmt.Fprintf(&b, "- Parse issues: %d errors, %d warnings\n", s.ParseErrors, s.ParseWarnings)
	fmt.Fprintf(&b, "- Migration blockers: %d\n\n", s.Blockers)

	if len(s.InterlocksByType) > 0 {
		b.WriteString("## Safety interlocks\n\n")
		for _, typ := range util.SortedStringKeys(s.InterlocksByType) {
			fmt.Fprintf(&b, "- %s: %d\n", typ, s.InterlocksByType[typ])
		}
		if s.BypassedCount > 0 {
			fmt.Fprintf(&b, "- bypassed: %d (resolve before migration)\n", s.BypassedCount)
		}
		b.WriteString("\n")
	}

	if len(s.GradeCounts) > 0 {
		b.WriteString("## Readiness grades\n\n")
		b.WriteString("| Grade | POUs |\n|---|---|\n")
		for _, g := range util.SortedStringKeys(s.GradeCounts) {
			fmt.Fprintf(&b, "| %s | %d |\n", g, s.GradeCounts[g])
		}
		b.WriteString("\n")
	}

	blockers := collectBlockers(doc.Result)
	if len(blockers) > 0 {
		b.WriteString("## Blockers\n\n")
		for _, line := range blockers {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func collectBlockers(result analyzer.ProjectResult) []string {
	var out []string
	for _, fr := range result.Files {
		for _, sc := range fr.Scores {
			for _, blocker := range sc.Blockers {
				out = append(out, fmt.Sprintf("%s (%s): %s", sc.POUName, blocker.Category, blocker.Rationale))
			}
		}
	}
	return out
}
