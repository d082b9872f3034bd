package extract

import (
	"regexp"
	"strings"

	"stmigrate/internal/engine/stparse"
)

// Tribal knowledge lives in comments: warnings, workarounds, magic numbers
// and names of the one person who knows why. Rules are table entries
// (pattern, type, importance); the first matching rule classifies the
// comment.
type tribalRule struct {
	expr       string
	typ        string
	importance stparse.Importance
	re         *regexp.Regexp
}

var tribalRules = []tribalRule{
	{expr: `(?i)(do\s*not\s*touch|don'?t\s*(touch|change|modify|remove)|never\s+(change|remove|delete)|leave\s+this\s+alone)`, typ: "do-not-touch", importance: stparse.ImportanceCritical},
	{expr: `(?i)(safety|injur|death|explos|crush)`, typ: "do-not-touch", importance: stparse.ImportanceCritical},
	{expr: `(?i)(workaround|work-around|hack|kludge|temporary\s+fix|quick\s+fix|todo|fixme)`, typ: "workaround", importance: stparse.ImportanceHigh},
	{expr: `(?i)(race\s+condition|timing\s+(issue|critical)|must\s+wait|scan\s+time|don'?t\s+reduce\s+th(e|is)\s+delay)`, typ: "timing", importance: stparse.ImportanceHigh},
	{expr: `(?i)(firmware\s+bug|vendor|siemens|beckhoff|allen.?bradley|rockwell|codesys|twincat|quirk)`, typ: "vendor-quirk", importance: stparse.ImportanceMedium},
	{expr: `(?i)(magic\s+(number|value)|empirical|trial\s+and\s+error|tuned\s+(by\s+hand|on\s+site)|don'?t\s+ask)`, typ: "magic-number", importance: stparse.ImportanceMedium},
	{expr: `(?i)(ask\s+[A-Z][a-z]+|call\s+[A-Z][a-z]+|contact\s+\w+|check\s+with\s+\w+)`, typ: "contact-person", importance: stparse.ImportanceLow},
}

func init() {
	for i := range tribalRules {
		tribalRules[i].re = regexp.MustCompile(tribalRules[i].expr)
	}
}

// ExtractTribalKnowledge mines comments for informal operational knowledge.
// Purely additive: items carry no cross-references.
func ExtractTribalKnowledge(path, source string) []stparse.TribalKnowledgeItem {
	toks := stparse.Tokens(path, source)
	items := []stparse.TribalKnowledgeItem{}

	for _, tok := range toks {
		if tok.Kind != stparse.TokenComment {
			continue
		}
		content := stparse.CleanComment(tok.Text)
		if content == "" {
			continue
		}
		for _, rule := range tribalRules {
			if !rule.re.MatchString(content) {
				continue
			}
			items = append(items, stparse.TribalKnowledgeItem{
				Type:       rule.typ,
				Importance: rule.importance,
				Content:    condense(content),
				Location:   tok.Location,
			})
			break
		}
	}
	return items
}

// condense flattens a multi-line comment body into one line of content.
func condense(content string) string {
	lines := strings.Split(content, "\n")
	var parts []string
	for _, line := range lines {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "*"))
		if line == "" {
			continue
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, " ")
}
