package extract

import (
	"regexp"
	"strconv"
	"strings"

	"stmigrate/internal/engine/stparse"
)

// Substantial-comment rule: a block comment counts as a docstring only if
// it spans multiple lines or carries at least this many characters of raw
// text. Short inline remarks never qualify.
const substantialMinChars = 100

var (
	paramTagRe   = regexp.MustCompile(`(?i)^@param\s+(\S+)\s*(.*)$`)
	returnsTagRe = regexp.MustCompile(`(?i)^@returns?\s*(.*)$`)
	authorTagRe  = regexp.MustCompile(`(?i)^@author\s*:?\s*(.*)$`)
	dateTagRe    = regexp.MustCompile(`(?i)^@date\s*:?\s*(.*)$`)
	isoDateRe    = regexp.MustCompile(`^(\d{4})-\d{2}-\d{2}\b`)
	warningRe    = regexp.MustCompile(`(?i)\b(WARNING|DANGER|CAUTION)\b`)
	separatorRe  = regexp.MustCompile(`^[*=\-_#~+ ]+$`)
)

// ExtractDocstrings scans raw source for substantial block comments and
// classifies their content. Processing order follows source order, so the
// output is deterministic for identical input.
func ExtractDocstrings(path, source string) []stparse.Docstring {
	toks := stparse.Tokens(path, source)
	docs := []stparse.Docstring{}

	for i, tok := range toks {
		if tok.Kind != stparse.TokenComment || !strings.HasPrefix(tok.Text, "(*") {
			continue
		}
		if !isSubstantial(tok.Text) {
			continue
		}
		doc := parseDocstring(tok)
		doc.AssociatedBlock = associatedBlock(toks, i)
		docs = append(docs, doc)
	}
	return docs
}

func isSubstantial(raw string) bool {
	return strings.Contains(raw, "\n") || len(raw) >= substantialMinChars
}

// associatedBlock returns the name of the POU declared immediately after
// the comment at toks[i], skipping only whitespace (which the lexer has
// already discarded between tokens).
func associatedBlock(toks []stparse.Token, i int) string {
	if i+2 >= len(toks) {
		return ""
	}
	next := toks[i+1]
	if next.Kind != stparse.TokenKeyword {
		return ""
	}
	switch next.Upper() {
	case "FUNCTION_BLOCK", "PROGRAM", "FUNCTION":
	default:
		return ""
	}
	if toks[i+2].Kind != stparse.TokenIdent {
		return ""
	}
	return toks[i+2].Text
}

func parseDocstring(tok stparse.Token) stparse.Docstring {
	raw := tok.Text
	doc := stparse.Docstring{
		Raw:     raw,
		Line:    tok.Location.Line,
		EndLine: tok.Location.Line + strings.Count(raw, "\n"),
	}

	var description []string
	for _, line := range strings.Split(raw, "\n") {
		content := stripDecoration(line)
		if content == "" || separatorRe.MatchString(content) {
			continue
		}
		switch {
		case paramTagRe.MatchString(content):
			m := paramTagRe.FindStringSubmatch(content)
			doc.Params = append(doc.Params, stparse.DocParam{Name: m[1], Description: strings.TrimSpace(m[2])})
		case returnsTagRe.MatchString(content):
			doc.Returns = strings.TrimSpace(returnsTagRe.FindStringSubmatch(content)[1])
		case authorTagRe.MatchString(content):
			doc.Author = strings.TrimSpace(authorTagRe.FindStringSubmatch(content)[1])
		case dateTagRe.MatchString(content):
			doc.Date = strings.TrimSpace(dateTagRe.FindStringSubmatch(content)[1])
		case isoDateRe.MatchString(content):
			year, _ := strconv.Atoi(isoDateRe.FindStringSubmatch(content)[1])
			doc.History = append(doc.History, stparse.HistoryEntry{Year: year, Entry: content})
		case warningRe.MatchString(content):
			doc.Warnings = append(doc.Warnings, content)
		case doc.Summary == "":
			doc.Summary = content
		default:
			description = append(description, content)
		}
	}
	doc.Description = strings.Join(description, "\n")
	return doc
}

// stripDecoration removes comment delimiters and per-line banner
// decoration (leading asterisks) from one line of a block comment.
func stripDecoration(line string) string {
	s := strings.TrimSpace(line)
	s = strings.TrimPrefix(s, "(*")
	s = strings.TrimSuffix(s, "*)")
	trimmed := strings.TrimLeft(s, "* \t")
	// A line that was pure decoration collapses to empty.
	if trimmed == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimRight(trimmed, "*"))
}
