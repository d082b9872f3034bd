package stparse

import "strings"

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenKeyword
	TokenIdent
	TokenNumber
	TokenString
	TokenComment
	TokenPragma
	TokenAddress
	TokenPunct
	TokenError
)

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "eof"
	case TokenKeyword:
		return "keyword"
	case TokenIdent:
		return "identifier"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenComment:
		return "comment"
	case TokenPragma:
		return "pragma"
	case TokenAddress:
		return "address"
	case TokenPunct:
		return "punctuation"
	case TokenError:
		return "error"
	}
	return "unknown"
}

type Token struct {
	Kind     TokenKind
	Text     string
	Location Location
}

// Upper returns the token text upper-cased, the form ST keywords are
// compared in (the language is case-insensitive).
func (t Token) Upper() string {
	return strings.ToUpper(t.Text)
}

// IsKeyword reports whether the token is the given keyword, ignoring case.
func (t Token) IsKeyword(kw string) bool {
	return t.Kind == TokenKeyword && strings.EqualFold(t.Text, kw)
}

// IsPunct reports whether the token is the given punctuation text.
func (t Token) IsPunct(p string) bool {
	return t.Kind == TokenPunct && t.Text == p
}

var keywords = map[string]bool{
	"PROGRAM": true, "END_PROGRAM": true,
	"FUNCTION_BLOCK": true, "END_FUNCTION_BLOCK": true,
	"FUNCTION": true, "END_FUNCTION": true,
	"METHOD": true, "END_METHOD": true,
	"INTERFACE": true, "END_INTERFACE": true,
	"VAR": true, "VAR_INPUT": true, "VAR_OUTPUT": true, "VAR_IN_OUT": true,
	"VAR_GLOBAL": true, "VAR_TEMP": true, "VAR_STAT": true, "VAR_EXTERNAL": true,
	"END_VAR": true,
	"CONSTANT": true, "RETAIN": true, "PERSISTENT": true,
	"EXTENDS": true, "IMPLEMENTS": true,
	"TYPE": true, "END_TYPE": true, "STRUCT": true, "END_STRUCT": true,
	"ARRAY": true, "OF": true, "AT": true, "STRING": true, "WSTRING": true,
	"IF": true, "THEN": true, "ELSIF": true, "ELSE": true, "END_IF": true,
	"CASE": true, "END_CASE": true,
	"FOR": true, "TO": true, "BY": true, "DO": true, "END_FOR": true,
	"WHILE": true, "END_WHILE": true,
	"REPEAT": true, "UNTIL": true, "END_REPEAT": true,
	"RETURN": true, "EXIT": true,
	"NOT": true, "AND": true, "OR": true, "XOR": true, "MOD": true,
	"TRUE": true, "FALSE": true,
}
