package extract

import (
	"regexp"
	"sort"
	"strconv"

	"stmigrate/internal/engine/stparse"
)

// State-variable naming conventions. A CASE block only counts as a state
// machine when its controlling variable matches one of these; everything
// else (range dispatch, error-code switches) is ignored. Data-driven so
// site conventions can be appended from config.
var defaultStatePatterns = []string{
	`(?i)^[a-z]{0,3}_?(state|step|mode|phase|seq|sequence)`,
	`(?i)(state|step|mode|phase|seq)\w{0,3}$`,
}

// Dense-numbering rule: gaps are only reported when the average spacing of
// sorted distinct numeric values is at most this. Sparse intentional
// numbering (0, 10, 20) is never flagged.
const denseSpacingMax = 2.0

// Bounded lookahead for END_CASE so malformed input without a terminator
// cannot trigger an unbounded scan.
const maxCaseScanTokens = 4000

type StateMachineOptions struct {
	ExtraNamePatterns []string
}

// ExtractStateMachines finds CASE-based state machines in raw source. The
// pous slice is optional and only used to attach owning POU ids.
func ExtractStateMachines(path, source string, pous []stparse.POU, opts StateMachineOptions) []stparse.StateMachine {
	toks := stparse.Tokens(path, source)
	patterns := compileStatePatterns(opts)
	commented := commentLines(toks)

	machines := []stparse.StateMachine{}
	for i := 0; i < len(toks); i++ {
		if !toks[i].IsKeyword("CASE") {
			continue
		}
		if i+2 >= len(toks) || toks[i+1].Kind != stparse.TokenIdent || !toks[i+2].IsKeyword("OF") {
			continue
		}
		variable := toks[i+1].Text
		if !matchesStateName(variable, patterns) {
			continue
		}
		states, ranges := scanCaseArms(toks, i+3, commented)
		if len(states) == 0 {
			continue
		}
		sm := stparse.StateMachine{
			Variable:   variable,
			StateCount: len(states),
			States:     states,
			Location:   toks[i].Location,
			POUID:      pouAtLine(pous, toks[i].Location.Line),
		}
		sm.HasGaps, sm.GapValues = gapAnalysis(states, ranges)
		machines = append(machines, sm)
	}
	return machines
}

func compileStatePatterns(opts StateMachineOptions) []*regexp.Regexp {
	raw := append(append([]string{}, defaultStatePatterns...), opts.ExtraNamePatterns...)
	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, expr := range raw {
		re, err := regexp.Compile(expr)
		if err != nil {
			continue
		}
		patterns = append(patterns, re)
	}
	return patterns
}

func matchesStateName(name string, patterns []*regexp.Regexp) bool {
	for _, re := range patterns {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}

// scanCaseArms walks tokens after `CASE <var> OF` and collects each label
// atom before a ':' as one state. Range labels (`0..5:`) record their
// endpoints as states and the covered interval separately for gap
// analysis. Nested CASE blocks are skipped by depth counting; the scan is
// abandoned at the lookahead limit when no END_CASE terminates the block.
func scanCaseArms(toks []stparse.Token, start int, commented map[int]bool) ([]stparse.State, [][2]int) {
	states := []stparse.State{}
	ranges := [][2]int{}
	depth := 0
	limit := start + maxCaseScanTokens
	if limit > len(toks) {
		limit = len(toks)
	}

	for i := start; i < limit; i++ {
		tok := toks[i]
		switch {
		case tok.IsKeyword("CASE"):
			depth++
		case tok.IsKeyword("END_CASE"):
			if depth == 0 {
				return states, ranges
			}
			depth--
		case depth > 0:
			// Inside a nested CASE; its arms belong to its own machine.
		case tok.Kind == stparse.TokenNumber || tok.Kind == stparse.TokenIdent:
			if i+1 < limit && toks[i+1].IsPunct(":") && isLabelPosition(toks, i) {
				states = append(states, makeState(tok, commented))
			} else if i+1 < limit && (toks[i+1].IsPunct(",") || toks[i+1].IsPunct("..")) && labelListLeadsToColon(toks, i, limit) {
				states = append(states, makeState(tok, commented))
				if toks[i+1].IsPunct("..") && i+2 < limit {
					if r, ok := labelRange(tok, toks[i+2]); ok {
						ranges = append(ranges, r)
					}
				}
			}
		}
	}
	return states, ranges
}

// isLabelPosition distinguishes `0:` arm labels from `x : BOOL` style
// noise: a label follows the OF keyword, a ';', another label's ':'
// (comment-only and empty arms leave the prior colon as the nearest
// token; inside a CASE window a bare ':' only terminates labels), or a
// preceding label separator.
func isLabelPosition(toks []stparse.Token, i int) bool {
	for j := i - 1; j >= 0; j-- {
		prev := toks[j]
		if prev.Kind == stparse.TokenComment || prev.Kind == stparse.TokenPragma {
			continue
		}
		if prev.IsPunct(";") || prev.IsPunct(":") || prev.IsKeyword("OF") || prev.IsPunct(",") || prev.IsPunct("..") {
			return true
		}
		if prev.IsKeyword("END_IF") || prev.IsKeyword("END_CASE") || prev.IsKeyword("END_FOR") || prev.IsKeyword("END_WHILE") {
			return true
		}
		return false
	}
	return false
}

// labelRange reads both endpoints of a `lo..hi` range label. Symbolic or
// descending ranges are ignored.
func labelRange(lo, hi stparse.Token) ([2]int, bool) {
	a, err := strconv.Atoi(lo.Text)
	if err != nil {
		return [2]int{}, false
	}
	b, err := strconv.Atoi(hi.Text)
	if err != nil || b < a {
		return [2]int{}, false
	}
	return [2]int{a, b}, true
}

func labelListLeadsToColon(toks []stparse.Token, i, limit int) bool {
	if !isLabelPosition(toks, i) {
		return false
	}
	for j := i + 1; j < limit && j < i+16; j++ {
		tok := toks[j]
		if tok.IsPunct(":") {
			return true
		}
		if tok.IsPunct(",") || tok.IsPunct("..") || tok.Kind == stparse.TokenNumber || tok.Kind == stparse.TokenIdent {
			continue
		}
		return false
	}
	return false
}

func makeState(tok stparse.Token, commented map[int]bool) stparse.State {
	st := stparse.State{
		Value:      tok.Text,
		Line:       tok.Location.Line,
		HasComment: commented[tok.Location.Line],
	}
	if n, err := strconv.Atoi(tok.Text); err == nil {
		st.Numeric = n
		st.IsNumeric = true
	}
	return st
}

// Range labels wider than this disable gap reporting instead of being
// expanded value by value.
const maxRangeSpan = 256

// gapAnalysis reports missing values in the sorted distinct numeric subset
// of states, but only under the dense-numbering rule. Values covered by a
// range label count as present even though only the endpoints appear as
// states.
func gapAnalysis(states []stparse.State, ranges [][2]int) (bool, []int) {
	seen := map[int]bool{}
	values := []int{}
	for _, st := range states {
		if st.IsNumeric && !seen[st.Numeric] {
			seen[st.Numeric] = true
			values = append(values, st.Numeric)
		}
	}
	for _, r := range ranges {
		if r[1]-r[0] > maxRangeSpan {
			return false, nil
		}
		for v := r[0]; v <= r[1]; v++ {
			if !seen[v] {
				seen[v] = true
				values = append(values, v)
			}
		}
	}
	if len(values) < 2 {
		return false, nil
	}
	sort.Ints(values)
	span := values[len(values)-1] - values[0]
	avg := float64(span) / float64(len(values)-1)
	if avg > denseSpacingMax {
		return false, nil
	}
	gaps := []int{}
	for v := values[0]; v <= values[len(values)-1]; v++ {
		if !seen[v] {
			gaps = append(gaps, v)
		}
	}
	if len(gaps) == 0 {
		return false, nil
	}
	return true, gaps
}
