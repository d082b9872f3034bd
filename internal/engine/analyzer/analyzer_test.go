package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"stmigrate/internal/core/config"
	"stmigrate/internal/engine/score"
	"stmigrate/internal/engine/stparse"
)

const doorSource = `(*
 * Controls the cell door lock.
 * @param bSensor door closed feedback
 *)
FUNCTION_BLOCK FB_Door
VAR_INPUT
    bSensor : BOOL;
END_VAR
CASE nState OF
0: bLock := FALSE;
1: bLock := TRUE;
END_CASE
END_FUNCTION_BLOCK`

func TestAnalyzeFileEndToEnd(t *testing.T) {
	res := AnalyzeFile("door.st", doorSource, config.Default())

	if len(res.POUs) != 1 || res.POUs[0].Name != "FB_Door" {
		t.Fatalf("POUs = %+v", res.POUs)
	}
	if len(res.Docstrings) != 1 || len(res.Docstrings[0].Params) != 1 {
		t.Errorf("docstrings = %+v", res.Docstrings)
	}
	if len(res.Variables) != 1 || res.Variables[0].Section != stparse.SectionInput {
		t.Errorf("variables = %+v", res.Variables)
	}
	if len(res.StateMachines) != 1 {
		t.Fatalf("state machines = %+v", res.StateMachines)
	}
	if res.StateMachines[0].HasGaps {
		t.Errorf("dense two-state machine reported gaps: %+v", res.StateMachines[0])
	}
	if res.POUs[0].Documentation == nil {
		t.Error("docstring not attached to POU")
	}
	if len(res.Scores) != 1 {
		t.Fatalf("scores = %+v", res.Scores)
	}
	undocBlocker := false
	for _, b := range res.Scores[0].Blockers {
		if b.Category == score.BlockerDocumentation {
			undocBlocker = true
		}
	}
	if !undocBlocker {
		t.Errorf("0 of 2 commented states produced no blocker: %+v", res.Scores[0].Blockers)
	}
}

func TestAnalyzeFileEmptySource(t *testing.T) {
	res := AnalyzeFile("empty.st", "", config.Default())
	if len(res.POUs) != 0 || len(res.Scores) != 0 {
		t.Errorf("empty source produced results: %+v", res)
	}
}

func projectInputs() []FileInput {
	return []FileInput{
		{Path: "b/door.st", Source: doorSource},
		{Path: "a/valve.st", Source: `FUNCTION_BLOCK FB_Valve
VAR_INPUT
    bIL_Air : BOOL;
END_VAR
END_FUNCTION_BLOCK`},
		{Path: "c/main.st", Source: `PROGRAM Main
VAR
    nStep : INT;
END_VAR
CASE nStep OF
0: nStep := 1; (* startup *)
1: nStep := 0;
END_CASE
END_PROGRAM`},
	}
}

func TestAnalyzeProjectMergesDeterministically(t *testing.T) {
	cfg := config.Default()
	cfg.Scan.MaxWorkers = 2

	a, err := AnalyzeProject(context.Background(), projectInputs(), cfg)
	if err != nil {
		t.Fatalf("AnalyzeProject: %v", err)
	}
	b, err := AnalyzeProject(context.Background(), projectInputs(), cfg)
	if err != nil {
		t.Fatalf("AnalyzeProject: %v", err)
	}

	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if !bytes.Equal(ja, jb) {
		t.Error("two runs over identical input produced different results")
	}

	if a.Files[0].Path != "a/valve.st" || a.Files[2].Path != "c/main.st" {
		t.Errorf("results not ordered by path: %s, %s, %s",
			a.Files[0].Path, a.Files[1].Path, a.Files[2].Path)
	}
}

func TestProjectSummaryCounts(t *testing.T) {
	res, err := AnalyzeProject(context.Background(), projectInputs(), config.Default())
	if err != nil {
		t.Fatalf("AnalyzeProject: %v", err)
	}
	s := res.Summary
	if s.FileCount != 3 || s.POUCount != 3 {
		t.Errorf("counts: %+v", s)
	}
	if s.POUsByKind["FUNCTION_BLOCK"] != 2 || s.POUsByKind["PROGRAM"] != 1 {
		t.Errorf("kinds: %+v", s.POUsByKind)
	}
	if s.StateMachines != 2 {
		t.Errorf("state machines: %+v", s)
	}
	if s.InterlocksByType["interlock"] != 1 {
		t.Errorf("interlocks: %+v", s.InterlocksByType)
	}
	if s.DocumentedPOUs != 1 {
		t.Errorf("documented POUs: %d", s.DocumentedPOUs)
	}
	if s.GradeCounts == nil || s.Blockers == 0 {
		t.Errorf("scores not merged: %+v", s)
	}
}

func TestAnalyzeProjectSequentialMatchesParallel(t *testing.T) {
	seq := config.Default()
	seq.Scan.MaxWorkers = 1
	par := config.Default()
	par.Scan.MaxWorkers = 4

	a, err := AnalyzeProject(context.Background(), projectInputs(), seq)
	if err != nil {
		t.Fatal(err)
	}
	b, err := AnalyzeProject(context.Background(), projectInputs(), par)
	if err != nil {
		t.Fatal(err)
	}
	ja, _ := json.Marshal(a.Summary)
	jb, _ := json.Marshal(b.Summary)
	if !bytes.Equal(ja, jb) {
		t.Errorf("sequential and parallel summaries differ:\n%s\n%s", ja, jb)
	}
}

func TestAnalyzeProjectCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := AnalyzeProject(ctx, projectInputs(), config.Default()); err == nil {
		t.Error("cancelled context reported no error")
	}
}

func TestResolveHierarchy(t *testing.T) {
	inputs := []FileInput{
		{Path: "base.st", Source: `FUNCTION_BLOCK FB_Base
VAR
    nId : INT;
END_VAR
END_FUNCTION_BLOCK`},
		{Path: "child.st", Source: `FUNCTION_BLOCK FB_Child EXTENDS fb_base IMPLEMENTS I_Missing
VAR
    bOn : BOOL;
END_VAR
END_FUNCTION_BLOCK`},
	}
	res, err := AnalyzeProject(context.Background(), inputs, config.Default())
	if err != nil {
		t.Fatal(err)
	}
	h := ResolveHierarchy(res)

	var baseID, childID string
	for _, fr := range res.Files {
		for _, pou := range fr.POUs {
			switch pou.Name {
			case "FB_Base":
				baseID = pou.ID
			case "FB_Child":
				childID = pou.ID
			}
		}
	}
	if h.Parents[childID] != baseID {
		t.Errorf("case-insensitive extends not resolved: %+v", h.Parents)
	}
	if len(h.Unresolved) != 1 || h.Unresolved[0] != "I_Missing" {
		t.Errorf("unresolved = %v", h.Unresolved)
	}
}
