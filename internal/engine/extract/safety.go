package extract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"

	"stmigrate/internal/engine/stparse"
)

// Interlock and bypass naming conventions, one table entry per rule.
// Classification is heuristic: names, not semantics. Confidence stays an
// explicit field so consumers can weigh findings instead of trusting a
// boolean.
type safetyPattern struct {
	expr       string
	typ        stparse.InterlockType
	severity   string
	confidence float64
	re         *regexp.Regexp
}

var interlockPatterns = []safetyPattern{
	{expr: `(?i)\b\w*(e_?stop|emergency_?stop|not_?aus)\w*\b`, typ: stparse.InterlockEStop, severity: "critical", confidence: 0.9},
	{expr: `(?i)\b[a-z]{0,3}IL_\w+\b`, typ: stparse.InterlockPlain, severity: "high", confidence: 0.85},
	{expr: `(?i)\b\w*interlock\w*\b`, typ: stparse.InterlockPlain, severity: "high", confidence: 0.8},
	{expr: `(?i)\b\w*(safety_?relay|k_?safe\w*)\b`, typ: stparse.InterlockRelay, severity: "critical", confidence: 0.8},
	{expr: `(?i)\b\w*(light_?curtain|safety_?(gate|door|mat)|two_?hand|muting)\w*\b`, typ: stparse.InterlockDevice, severity: "high", confidence: 0.8},
	{expr: `(?i)\b\w*(permissive|permit_\w+|enable_?chain)\w*\b`, typ: stparse.InterlockPermit, severity: "medium", confidence: 0.7},
}

var bypassPatterns = []safetyPattern{
	{expr: `(?i)\b\w*(bypass|override|skip_?il|dbg_?skip\w*|defeat)\w*\b`, typ: stparse.InterlockBypass, severity: "critical", confidence: 0.75},
	{expr: `(?i)\b(jumper_?\w+|\w+_forced?)\b`, typ: stparse.InterlockBypass, severity: "high", confidence: 0.6},
}

// Bypass co-occurrence idioms. This is a small fixed set of textual
// templates, best-effort by design: bypass logic spelled through other
// boolean shapes (parenthesised, multi-line) is not detected.
var bypassIdioms = []string{
	`(?i)\b%s\s+OR\s+%s\b`,     // bypass OR interlock
	`(?i)\b%s\s+OR\s+%s\b`,     // interlock OR bypass (args swapped below)
	`(?i)NOT\s+%s\s+OR\s+%s\b`, // NOT interlock OR bypass
	`(?i)\b%s\s+AND\s+NOT\s+%s\b`,
}

func init() {
	for i := range interlockPatterns {
		interlockPatterns[i].re = regexp.MustCompile(interlockPatterns[i].expr)
	}
	for i := range bypassPatterns {
		bypassPatterns[i].re = regexp.MustCompile(bypassPatterns[i].expr)
	}
}

type SafetyOptions struct {
	// ExtraInterlockPatterns and ExtraBypassPatterns extend the built-in
	// tables; invalid expressions are skipped.
	ExtraInterlockPatterns []string
	ExtraBypassPatterns    []string
	// IOChannelPrefixes marks direct addresses as safety channels
	// (site-specific, e.g. "%IX100").
	IOChannelPrefixes []string
}

func (o SafetyOptions) interlockTable() []safetyPattern {
	table := append([]safetyPattern{}, interlockPatterns...)
	for _, expr := range o.ExtraInterlockPatterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			continue
		}
		table = append(table, safetyPattern{expr: expr, typ: stparse.InterlockPlain, severity: "high", confidence: 0.6, re: re})
	}
	return table
}

func (o SafetyOptions) bypassTable() []safetyPattern {
	table := append([]safetyPattern{}, bypassPatterns...)
	for _, expr := range o.ExtraBypassPatterns {
		re, err := regexp.Compile(expr)
		if err != nil {
			continue
		}
		table = append(table, safetyPattern{expr: expr, typ: stparse.InterlockBypass, severity: "critical", confidence: 0.6, re: re})
	}
	return table
}

// ExtractSafetyInterlocks runs the interlock pattern family and then the
// bypass family over raw source. Names are deduplicated case-insensitively,
// first occurrence wins; a name captured as an interlock is never
// re-classified as bypass, but is still flagged bypassed when a bypass
// idiom touches it. Detection is best-effort, not exhaustive.
func ExtractSafetyInterlocks(path, source string, pous []stparse.POU, opts SafetyOptions) []stparse.SafetyInterlock {
	if strings.TrimSpace(source) == "" {
		return []stparse.SafetyInterlock{}
	}
	index := buildLineIndex(source)

	var ordered []candidate
	seen := map[string]bool{}

	collect := func(table []safetyPattern, markBypassed bool) {
		for _, pattern := range table {
			for _, loc := range pattern.re.FindAllStringIndex(source, -1) {
				name := source[loc[0]:loc[1]]
				key := strings.ToLower(name)
				if seen[key] {
					continue
				}
				seen[key] = true
				line, col := index.lineCol(loc[0])
				ordered = append(ordered, candidate{
					offset: loc[0],
					interlock: stparse.SafetyInterlock{
						ID:         deterministicInterlockID(path, key),
						Name:       name,
						Type:       pattern.typ,
						Severity:   pattern.severity,
						Confidence: pattern.confidence,
						IsBypassed: markBypassed,
						Location:   stparse.Location{File: path, Line: line, Column: col},
						POUID:      pouAtLine(pous, line),
					},
				})
			}
		}
	}

	// Order matters for the dedup rule: interlock families first.
	collect(opts.interlockTable(), false)
	collect(opts.bypassTable(), true)

	// The bypass-name set is built by an independent scan, so a name the
	// interlock family already captured still counts as a known bypass
	// variable for idiom matching.
	bypassNames := knownBypassNames(source, opts)

	out := []stparse.SafetyInterlock{}
	for _, c := range ordered {
		il := c.interlock
		if il.Type != stparse.InterlockBypass {
			if bypassNames[strings.ToLower(il.Name)] {
				il.IsBypassed = true
			}
			if cond := findBypassCondition(source, il.Name, bypassNames); cond != "" {
				il.IsBypassed = true
				il.BypassCondition = cond
			}
		}
		il.RelatedInterlocks = relatedOnLine(ordered, c, il.Location.Line)
		out = append(out, il)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Location.Line != out[j].Location.Line {
			return out[i].Location.Line < out[j].Location.Line
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func deterministicInterlockID(path, key string) string {
	seed := fmt.Sprintf("interlock:%s:%s", path, key)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

type candidate struct {
	interlock stparse.SafetyInterlock
	offset    int
}

// knownBypassNames scans the bypass pattern family over the whole source,
// independent of interlock-family dedup.
func knownBypassNames(source string, opts SafetyOptions) map[string]bool {
	names := map[string]bool{}
	for _, pattern := range opts.bypassTable() {
		for _, m := range pattern.re.FindAllString(source, -1) {
			names[strings.ToLower(m)] = true
		}
	}
	return names
}

// findBypassCondition checks the known co-occurrence idioms between the
// interlock and every known bypass variable.
func findBypassCondition(source, interlockName string, bypassNames map[string]bool) string {
	il := regexp.QuoteMeta(interlockName)
	sorted := make([]string, 0, len(bypassNames))
	for name := range bypassNames {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)
	for _, name := range sorted {
		if strings.EqualFold(name, interlockName) {
			continue
		}
		bp := regexp.QuoteMeta(name)
		checks := []string{
			fmt.Sprintf(bypassIdioms[0], bp, il),
			fmt.Sprintf(bypassIdioms[1], il, bp),
			fmt.Sprintf(bypassIdioms[2], il, bp),
			fmt.Sprintf(bypassIdioms[3], bp, il),
		}
		for _, expr := range checks {
			re, err := regexp.Compile(expr)
			if err != nil {
				continue
			}
			if m := re.FindString(source); m != "" {
				return strings.TrimSpace(m)
			}
		}
	}
	return ""
}

func relatedOnLine(ordered []candidate, self candidate, line int) []string {
	var related []string
	for _, c := range ordered {
		if c.interlock.Name == self.interlock.Name {
			continue
		}
		if c.interlock.Location.Line == line {
			related = append(related, c.interlock.Name)
		}
	}
	sort.Strings(related)
	return related
}

// CountInterlocksByType aggregates counts for downstream reporting. The
// result merges associatively with other files' counts.
func CountInterlocksByType(interlocks []stparse.SafetyInterlock) map[string]int {
	counts := make(map[string]int)
	for _, il := range interlocks {
		counts[string(il.Type)]++
	}
	return counts
}
