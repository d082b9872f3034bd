package score

import (
	"fmt"
	"sort"

	"stmigrate/internal/engine/stparse"
)

// Weights tune the four readiness dimensions. They come from configuration
// so scoring policy changes without touching this package; validation
// happens at config load, not here.
type Weights struct {
	Complexity    float64
	SafetyRisk    float64
	Documentation float64
	Determinism   float64
}

func DefaultWeights() Weights {
	return Weights{Complexity: 0.25, SafetyRisk: 0.35, Documentation: 0.2, Determinism: 0.2}
}

// Thresholds gate blocker emission.
type Thresholds struct {
	// UndocumentedStateRatio blocks when the share of uncommented states
	// in any of the POU's state machines exceeds it.
	UndocumentedStateRatio float64
	// MaxStates blocks when a single state machine grows beyond it.
	MaxStates int
	// MaxVariables blocks when the declared interface grows beyond it.
	MaxVariables int
}

func DefaultThresholds() Thresholds {
	return Thresholds{UndocumentedStateRatio: 0.5, MaxStates: 25, MaxVariables: 40}
}

type Config struct {
	Weights    Weights
	Thresholds Thresholds
}

func DefaultConfig() Config {
	return Config{Weights: DefaultWeights(), Thresholds: DefaultThresholds()}
}

// Inputs carries the extraction results relevant to one POU's score.
type Inputs struct {
	Docstrings    []stparse.Docstring
	StateMachines []stparse.StateMachine
	Interlocks    []stparse.SafetyInterlock
	Tribal        []stparse.TribalKnowledgeItem
}

type Dimensions struct {
	Complexity    float64 `json:"complexity"`
	SafetyRisk    float64 `json:"safetyRisk"`
	Documentation float64 `json:"documentation"`
	Determinism   float64 `json:"determinism"`
}

type Blocker struct {
	Category  string `json:"category"`
	Rationale string `json:"rationale"`
}

type MigrationScore struct {
	POUID      string     `json:"pouId"`
	POUName    string     `json:"pouName"`
	Dimensions Dimensions `json:"dimensions"`
	Overall    float64    `json:"overall"`
	Grade      string     `json:"grade"`
	Blockers   []Blocker  `json:"blockers"`
}

const (
	BlockerSafety        = "safety"
	BlockerDocumentation = "documentation"
	BlockerComplexity    = "complexity"
)

// Score computes a POU's migration readiness. It is a pure function of its
// inputs: identical POU and extraction results always produce identical
// scores.
func Score(pou stparse.POU, in Inputs, cfg Config) MigrationScore {
	machines := machinesOf(pou, in.StateMachines)
	interlocks := interlocksOf(pou, in.Interlocks)
	doc := docstringOf(pou, in.Docstrings)
	tribal := tribalOf(pou, in.Tribal)

	dims := Dimensions{
		Complexity:    complexityScore(pou, machines),
		SafetyRisk:    safetyScore(interlocks),
		Documentation: documentationScore(pou, doc, machines),
		Determinism:   determinismScore(machines, interlocks, tribal),
	}

	s := MigrationScore{
		POUID:      pou.ID,
		POUName:    pou.Name,
		Dimensions: dims,
		Overall:    weightedOverall(dims, cfg.Weights),
		Blockers:   blockers(pou, doc, machines, interlocks, cfg.Thresholds),
	}
	s.Grade = grade(s.Overall)
	return s
}

func machinesOf(pou stparse.POU, machines []stparse.StateMachine) []stparse.StateMachine {
	var out []stparse.StateMachine
	for _, sm := range machines {
		if sm.POUID == pou.ID {
			out = append(out, sm)
			continue
		}
		if sm.POUID == "" && sm.Location.Line >= pou.BodyStartLine && sm.Location.Line <= pou.BodyEndLine {
			out = append(out, sm)
		}
	}
	return out
}

func interlocksOf(pou stparse.POU, interlocks []stparse.SafetyInterlock) []stparse.SafetyInterlock {
	var out []stparse.SafetyInterlock
	for _, il := range interlocks {
		if il.POUID == pou.ID {
			out = append(out, il)
			continue
		}
		if il.POUID == "" && il.Location.Line >= pou.Location.Line && il.Location.Line <= pou.BodyEndLine {
			out = append(out, il)
		}
	}
	return out
}

func docstringOf(pou stparse.POU, docs []stparse.Docstring) *stparse.Docstring {
	if pou.Documentation != nil {
		return pou.Documentation
	}
	for i := range docs {
		if docs[i].AssociatedBlock == pou.Name {
			return &docs[i]
		}
	}
	return nil
}

func tribalOf(pou stparse.POU, items []stparse.TribalKnowledgeItem) []stparse.TribalKnowledgeItem {
	var out []stparse.TribalKnowledgeItem
	for _, item := range items {
		if item.Location.Line >= pou.Location.Line && item.Location.Line <= pou.BodyEndLine {
			out = append(out, item)
		}
	}
	return out
}

func complexityScore(pou stparse.POU, machines []stparse.StateMachine) float64 {
	s := 100.0
	s -= float64(len(pou.Variables)) * 1.5
	bodyLines := pou.BodyEndLine - pou.BodyStartLine
	if bodyLines > 50 {
		s -= float64(bodyLines-50) * 0.5
	}
	for _, sm := range machines {
		s -= float64(sm.StateCount) * 2
	}
	return clamp(s)
}

func safetyScore(interlocks []stparse.SafetyInterlock) float64 {
	s := 100.0
	for _, il := range interlocks {
		switch il.Severity {
		case "critical":
			s -= 20
		case "high":
			s -= 12
		default:
			s -= 6
		}
		if il.IsBypassed {
			s -= 25
		}
	}
	return clamp(s)
}

func documentationScore(pou stparse.POU, doc *stparse.Docstring, machines []stparse.StateMachine) float64 {
	s := 0.0
	if doc != nil {
		s += 40
		if len(doc.Params) > 0 {
			s += 15
		}
		if doc.Description != "" {
			s += 10
		}
	}
	if len(pou.Variables) > 0 {
		commented := 0
		for _, v := range pou.Variables {
			if v.Comment != "" {
				commented++
			}
		}
		s += 20 * float64(commented) / float64(len(pou.Variables))
	} else {
		s += 20
	}
	total, documented := stateDocCounts(machines)
	if total > 0 {
		s += 15 * float64(documented) / float64(total)
	} else {
		s += 15
	}
	return clamp(s)
}

func determinismScore(machines []stparse.StateMachine, interlocks []stparse.SafetyInterlock, tribal []stparse.TribalKnowledgeItem) float64 {
	s := 100.0
	for _, sm := range machines {
		if sm.HasGaps {
			s -= 10 * float64(len(sm.GapValues))
		}
	}
	for _, il := range interlocks {
		if il.IsBypassed {
			s -= 20
		}
	}
	for _, item := range tribal {
		if item.Type == "timing" {
			s -= 15
		}
	}
	return clamp(s)
}

func stateDocCounts(machines []stparse.StateMachine) (total, documented int) {
	for _, sm := range machines {
		for _, st := range sm.States {
			total++
			if st.HasComment {
				documented++
			}
		}
	}
	return total, documented
}

func weightedOverall(dims Dimensions, w Weights) float64 {
	sum := w.Complexity + w.SafetyRisk + w.Documentation + w.Determinism
	if sum <= 0 {
		return 0
	}
	weighted := dims.Complexity*w.Complexity +
		dims.SafetyRisk*w.SafetyRisk +
		dims.Documentation*w.Documentation +
		dims.Determinism*w.Determinism
	return weighted / sum
}

func blockers(pou stparse.POU, doc *stparse.Docstring, machines []stparse.StateMachine, interlocks []stparse.SafetyInterlock, th Thresholds) []Blocker {
	out := []Blocker{}

	for _, il := range interlocks {
		if il.IsBypassed {
			out = append(out, Blocker{
				Category:  BlockerSafety,
				Rationale: fmt.Sprintf("contains unresolved safety bypass on %s", il.Name),
			})
		}
	}

	for _, sm := range machines {
		total := len(sm.States)
		if total == 0 {
			continue
		}
		documented := 0
		for _, st := range sm.States {
			if st.HasComment {
				documented++
			}
		}
		ratio := float64(total-documented) / float64(total)
		if ratio > th.UndocumentedStateRatio {
			out = append(out, Blocker{
				Category: BlockerDocumentation,
				Rationale: fmt.Sprintf("state machine on %s has %d of %d states undocumented (%.0f%%)",
					sm.Variable, total-documented, total, ratio*100),
			})
		}
		if th.MaxStates > 0 && total > th.MaxStates {
			out = append(out, Blocker{
				Category:  BlockerComplexity,
				Rationale: fmt.Sprintf("state machine on %s has %d states, limit %d", sm.Variable, total, th.MaxStates),
			})
		}
	}

	if doc == nil && len(pou.Variables) > 0 {
		out = append(out, Blocker{
			Category:  BlockerDocumentation,
			Rationale: fmt.Sprintf("%s has no block documentation", pou.Name),
		})
	}

	if th.MaxVariables > 0 && len(pou.Variables) > th.MaxVariables {
		out = append(out, Blocker{
			Category:  BlockerComplexity,
			Rationale: fmt.Sprintf("%s declares %d variables, limit %d", pou.Name, len(pou.Variables), th.MaxVariables),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Rationale < out[j].Rationale
	})
	return out
}

func grade(overall float64) string {
	switch {
	case overall >= 90:
		return "A"
	case overall >= 80:
		return "B"
	case overall >= 70:
		return "C"
	case overall >= 60:
		return "D"
	default:
		return "F"
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
