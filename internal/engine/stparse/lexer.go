package stparse

import (
	"strings"
)

// Lexer scans raw ST source into tokens. It never fails: malformed input
// produces an error token and scanning resumes at the next recoverable
// position. The same source always yields the same token sequence.
type Lexer struct {
	file   string
	src    string
	pos    int
	line   int
	col    int
}

func NewLexer(file, source string) *Lexer {
	return &Lexer{file: file, src: source, line: 1, col: 1}
}

// Tokens scans the whole input. The returned slice always ends with an
// EOF token.
func Tokens(file, source string) []Token {
	lx := NewLexer(file, source)
	var out []Token
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == TokenEOF {
			return out
		}
	}
}

func (l *Lexer) loc() Location {
	return Location{File: l.file, Line: l.line, Column: l.col}
}

func (l *Lexer) peek() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *Lexer) peekAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *Lexer) advance() byte {
	ch := l.src[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// Next returns the next token, skipping whitespace.
func (l *Lexer) Next() Token {
	for l.pos < len(l.src) && isSpace(l.peek()) {
		l.advance()
	}
	if l.pos >= len(l.src) {
		return Token{Kind: TokenEOF, Location: l.loc()}
	}

	start := l.loc()
	ch := l.peek()

	switch {
	case ch == '(' && l.peekAt(1) == '*':
		return l.scanBlockComment(start)
	case ch == '/' && l.peekAt(1) == '/':
		return l.scanLineComment(start)
	case ch == '{':
		return l.scanPragma(start)
	case ch == '\'' || ch == '"':
		return l.scanString(start, ch)
	case ch == '%':
		return l.scanAddress(start)
	case isDigit(ch):
		return l.scanNumber(start)
	case isIdentStart(ch):
		return l.scanWord(start)
	default:
		return l.scanPunct(start)
	}
}

// scanBlockComment consumes `(* ... *)`. Decorated banner comments such as
// `(******* text *******)` are plain block comments here; decoration is
// stripped by the docstring extractor, not the lexer. An unterminated
// comment yields an error token covering the rest of the input.
func (l *Lexer) scanBlockComment(start Location) Token {
	from := l.pos
	l.advance() // (
	l.advance() // *
	for l.pos < len(l.src) {
		if l.peek() == '*' && l.peekAt(1) == ')' {
			l.advance()
			l.advance()
			return Token{Kind: TokenComment, Text: l.src[from:l.pos], Location: start}
		}
		l.advance()
	}
	return Token{Kind: TokenError, Text: l.src[from:], Location: start}
}

func (l *Lexer) scanLineComment(start Location) Token {
	from := l.pos
	for l.pos < len(l.src) && l.peek() != '\n' {
		l.advance()
	}
	return Token{Kind: TokenComment, Text: l.src[from:l.pos], Location: start}
}

// scanPragma consumes a vendor pragma `{...}` (TwinCAT attributes and the
// like). Unterminated pragmas recover at end of line.
func (l *Lexer) scanPragma(start Location) Token {
	from := l.pos
	l.advance() // {
	for l.pos < len(l.src) {
		ch := l.peek()
		if ch == '}' {
			l.advance()
			return Token{Kind: TokenPragma, Text: l.src[from:l.pos], Location: start}
		}
		if ch == '\n' {
			return Token{Kind: TokenError, Text: l.src[from:l.pos], Location: start}
		}
		l.advance()
	}
	return Token{Kind: TokenError, Text: l.src[from:], Location: start}
}

func (l *Lexer) scanString(start Location, quote byte) Token {
	from := l.pos
	l.advance() // opening quote
	for l.pos < len(l.src) {
		ch := l.peek()
		if ch == '$' && l.pos+1 < len(l.src) {
			// $-escapes, including $' and $"
			l.advance()
			l.advance()
			continue
		}
		if ch == quote {
			l.advance()
			return Token{Kind: TokenString, Text: l.src[from:l.pos], Location: start}
		}
		if ch == '\n' {
			return Token{Kind: TokenError, Text: l.src[from:l.pos], Location: start}
		}
		l.advance()
	}
	return Token{Kind: TokenError, Text: l.src[from:], Location: start}
}

// scanAddress consumes a direct I/O address such as `%IX0.1` or `%QW12`.
func (l *Lexer) scanAddress(start Location) Token {
	from := l.pos
	l.advance() // %
	for l.pos < len(l.src) {
		ch := l.peek()
		if isAlnum(ch) || ch == '.' || ch == '*' {
			l.advance()
			continue
		}
		break
	}
	text := l.src[from:l.pos]
	if len(text) == 1 {
		return Token{Kind: TokenError, Text: text, Location: start}
	}
	return Token{Kind: TokenAddress, Text: text, Location: start}
}

// scanNumber consumes integers, reals, based literals (16#FF) and typed
// literals (T#5s, INT#42). All are kept as raw text.
func (l *Lexer) scanNumber(start Location) Token {
	from := l.pos
	for l.pos < len(l.src) {
		ch := l.peek()
		if isAlnum(ch) || ch == '#' || ch == '_' {
			l.advance()
			continue
		}
		// 1.5 but not the 1..10 range punctuation
		if ch == '.' && isDigit(l.peekAt(1)) {
			l.advance()
			continue
		}
		break
	}
	return Token{Kind: TokenNumber, Text: l.src[from:l.pos], Location: start}
}

func (l *Lexer) scanWord(start Location) Token {
	from := l.pos
	for l.pos < len(l.src) && (isAlnum(l.peek()) || l.peek() == '_') {
		l.advance()
	}
	// Time/date literals spelled with a type prefix: T#200ms, DT#...
	if l.peek() == '#' {
		l.advance()
		for l.pos < len(l.src) && (isAlnum(l.peek()) || l.peek() == '_' || l.peek() == '.' || l.peek() == '-' || l.peek() == ':') {
			l.advance()
		}
		return Token{Kind: TokenNumber, Text: l.src[from:l.pos], Location: start}
	}
	text := l.src[from:l.pos]
	if keywords[strings.ToUpper(text)] {
		return Token{Kind: TokenKeyword, Text: text, Location: start}
	}
	return Token{Kind: TokenIdent, Text: text, Location: start}
}

var twoBytePunct = map[string]bool{
	":=": true, "=>": true, "<=": true, ">=": true, "<>": true, "..": true, "**": true,
}

func (l *Lexer) scanPunct(start Location) Token {
	ch := l.peek()
	if !isPunct(ch) {
		// Stray byte outside the language alphabet.
		l.advance()
		return Token{Kind: TokenError, Text: string(ch), Location: start}
	}
	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	if twoBytePunct[two] {
		l.advance()
		l.advance()
		return Token{Kind: TokenPunct, Text: two, Location: start}
	}
	l.advance()
	return Token{Kind: TokenPunct, Text: string(ch), Location: start}
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isAlnum(ch byte) bool {
	return isDigit(ch) || isIdentStart(ch)
}

func isPunct(ch byte) bool {
	switch ch {
	case ':', ';', ',', '.', '(', ')', '[', ']', '+', '-', '*', '/', '<', '>', '=', '&', '^':
		return true
	}
	return false
}
