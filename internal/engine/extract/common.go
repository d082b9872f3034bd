package extract

import (
	"strings"

	"stmigrate/internal/engine/stparse"
)

type lineIndex struct {
	starts []int
}

func buildLineIndex(content string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{starts: starts}
}

func (i lineIndex) lineCol(offset int) (int, int) {
	if offset < 0 {
		return 1, 1
	}
	line := 1
	for idx, start := range i.starts {
		if offset < start {
			break
		}
		line = idx + 1
	}
	col := offset - i.starts[line-1] + 1
	return line, col
}

// commentLines returns the set of source lines carrying a comment token.
func commentLines(toks []stparse.Token) map[int]bool {
	lines := make(map[int]bool)
	for _, tok := range toks {
		if tok.Kind != stparse.TokenComment {
			continue
		}
		start := tok.Location.Line
		for n := 0; n <= strings.Count(tok.Text, "\n"); n++ {
			lines[start+n] = true
		}
	}
	return lines
}

// pouAtLine finds the POU whose span covers the given line, if any.
func pouAtLine(pous []stparse.POU, line int) string {
	for _, pou := range pous {
		if line >= pou.Location.Line && line <= pou.BodyEndLine {
			return pou.ID
		}
	}
	return ""
}
