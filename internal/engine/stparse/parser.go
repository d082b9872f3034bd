package stparse

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Parse consumes the token stream for one file and produces zero or more
// POUs plus recoverable errors and warnings. A syntax problem inside one
// POU never suppresses later POUs: the parser resynchronizes at the next
// POU header.
func Parse(path, source string) Result {
	p := &parser{
		file: path,
		unit: unitName(path),
		toks: Tokens(path, source),
	}
	p.run()
	res := Result{POUs: p.pous, Errors: p.errors, Warnings: p.warnings}
	if res.POUs == nil {
		res.POUs = []POU{}
	}
	if res.Errors == nil {
		res.Errors = []ParseIssue{}
	}
	if res.Warnings == nil {
		res.Warnings = []ParseIssue{}
	}
	return res
}

type parser struct {
	file string
	unit string
	toks []Token
	i    int

	pous     []POU
	errors   []ParseIssue
	warnings []ParseIssue

	pendingAttrs map[string]string
}

var attrRe = regexp.MustCompile(`(?i)^\{\s*attribute\s+'([^']+)'(?:\s*:=\s*'([^']*)')?\s*\}$`)

func unitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func (p *parser) cur() Token { return p.toks[p.i] }
func (p *parser) done() bool { return p.cur().Kind == TokenEOF }

func (p *parser) advance() {
	if p.i < len(p.toks)-1 {
		p.i++
	}
}

func (p *parser) peekNext() Token {
	if p.i+1 < len(p.toks) {
		return p.toks[p.i+1]
	}
	return p.toks[len(p.toks)-1]
}

func (p *parser) errorf(loc Location, format string, args ...interface{}) {
	p.errors = append(p.errors, ParseIssue{
		Severity: SeverityError,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

func (p *parser) warnf(loc Location, format string, args ...interface{}) {
	p.warnings = append(p.warnings, ParseIssue{
		Severity: SeverityWarning,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

func (p *parser) run() {
	for !p.done() {
		tok := p.cur()
		switch {
		case tok.Kind == TokenPragma:
			p.collectAttribute(tok)
			p.advance()
		case tok.Kind == TokenError:
			p.errorf(tok.Location, "unrecognized input %q", clip(tok.Text, 20))
			p.advance()
		case isPOUHeader(tok):
			p.parsePOU()
		default:
			p.advance()
		}
	}
}

func (p *parser) collectAttribute(tok Token) {
	m := attrRe.FindStringSubmatch(tok.Text)
	if m == nil {
		return
	}
	if p.pendingAttrs == nil {
		p.pendingAttrs = make(map[string]string)
	}
	value := m[2]
	if value == "" {
		value = "true"
	}
	p.pendingAttrs[m[1]] = value
}

func isPOUHeader(tok Token) bool {
	if tok.Kind != TokenKeyword {
		return false
	}
	switch tok.Upper() {
	case "FUNCTION_BLOCK", "PROGRAM", "FUNCTION":
		return true
	}
	return false
}

func pouKind(tok Token) POUKind {
	switch tok.Upper() {
	case "FUNCTION_BLOCK":
		return KindFunctionBlock
	case "PROGRAM":
		return KindProgram
	default:
		return KindFunction
	}
}

func endKeyword(kind POUKind) string {
	return "END_" + string(kind)
}

func (p *parser) parsePOU() {
	header := p.cur()
	kind := pouKind(header)
	p.advance()

	if p.cur().Kind != TokenIdent {
		p.errorf(p.cur().Location, "%s missing name", header.Upper())
		p.resyncToHeader()
		return
	}
	name := p.cur().Text
	nameLoc := header.Location
	p.advance()

	pou := POU{
		ID:            deterministicID("pou", p.file, name, nameLoc.Line),
		QualifiedName: p.unit + "." + name,
		Kind:          kind,
		Name:          name,
		Location:      nameLoc,
		Attributes:    p.pendingAttrs,
	}
	p.pendingAttrs = nil

	// FUNCTION Name : ReturnType
	if kind == KindFunction && p.cur().IsPunct(":") {
		p.advance()
		pou.ReturnType = p.parseTypeName(&pou)
	}

	for p.cur().IsKeyword("EXTENDS") || p.cur().IsKeyword("IMPLEMENTS") {
		isExtends := p.cur().IsKeyword("EXTENDS")
		p.advance()
		for p.cur().Kind == TokenIdent {
			ref := p.parseDottedName()
			if isExtends {
				if pou.Extends != "" {
					p.warnf(p.cur().Location, "%s extends more than one supertype", name)
				} else {
					pou.Extends = ref
				}
			} else {
				pou.Implements = append(pou.Implements, ref)
			}
			if !p.cur().IsPunct(",") {
				break
			}
			p.advance()
		}
	}

	end := endKeyword(kind)
	bodyStart := 0
	lastLine := nameLoc.Line

	for !p.done() {
		tok := p.cur()
		switch {
		case tok.IsKeyword(end):
			pou.BodyStartLine = orLine(bodyStart, tok.Location.Line)
			pou.BodyEndLine = tok.Location.Line
			p.advance()
			p.finishPOU(pou)
			return
		case isPOUHeader(tok):
			// Missing terminator: close this POU at the next header.
			p.warnf(tok.Location, "%s %s has no %s before next declaration", header.Upper(), name, end)
			pou.BodyStartLine = orLine(bodyStart, lastLine)
			pou.BodyEndLine = lastLine
			p.finishPOU(pou)
			return
		case isVarSection(tok):
			p.parseVarSection(&pou)
		case tok.IsKeyword("METHOD"):
			p.parseMethod(&pou)
		case tok.Kind == TokenPragma:
			p.advance()
		case tok.Kind == TokenComment:
			p.advance()
		case tok.Kind == TokenError:
			p.errorf(tok.Location, "unrecognized input %q in %s", clip(tok.Text, 20), name)
			p.advance()
		default:
			if bodyStart == 0 {
				bodyStart = tok.Location.Line
			}
			lastLine = tok.Location.Line
			p.advance()
		}
	}

	p.warnf(nameLoc, "%s %s not terminated before end of file", header.Upper(), name)
	pou.BodyStartLine = orLine(bodyStart, lastLine)
	pou.BodyEndLine = lastLine
	p.finishPOU(pou)
}

func (p *parser) finishPOU(pou POU) {
	if pou.Variables == nil {
		pou.Variables = []Variable{}
	}
	p.pous = append(p.pous, pou)
}

func orLine(line, fallback int) int {
	if line > 0 {
		return line
	}
	return fallback
}

func (p *parser) parseMethod(pou *POU) {
	p.advance() // METHOD
	// Access modifiers come through as identifiers (PUBLIC, PRIVATE, ...).
	for p.cur().Kind == TokenIdent && isAccessModifier(p.cur().Text) {
		p.advance()
	}
	if p.cur().Kind == TokenIdent {
		pou.Methods = append(pou.Methods, p.cur().Text)
		p.advance()
	} else {
		p.errorf(p.cur().Location, "METHOD missing name in %s", pou.Name)
	}
	for !p.done() {
		tok := p.cur()
		if tok.IsKeyword("END_METHOD") {
			p.advance()
			return
		}
		if isPOUHeader(tok) || tok.IsKeyword(endKeyword(pou.Kind)) {
			p.warnf(tok.Location, "METHOD in %s has no END_METHOD", pou.Name)
			return
		}
		if isVarSection(tok) {
			// Method-local declarations are not part of the POU interface.
			p.skipVarSection()
			continue
		}
		p.advance()
	}
}

func isAccessModifier(text string) bool {
	switch strings.ToUpper(text) {
	case "PUBLIC", "PRIVATE", "PROTECTED", "INTERNAL", "FINAL", "ABSTRACT":
		return true
	}
	return false
}

func isVarSection(tok Token) bool {
	if tok.Kind != TokenKeyword {
		return false
	}
	switch tok.Upper() {
	case "VAR", "VAR_INPUT", "VAR_OUTPUT", "VAR_IN_OUT", "VAR_GLOBAL", "VAR_TEMP", "VAR_STAT", "VAR_EXTERNAL":
		return true
	}
	return false
}

func sectionOf(raw string) VarSection {
	switch raw {
	case "VAR_INPUT":
		return SectionInput
	case "VAR_OUTPUT":
		return SectionOutput
	case "VAR_IN_OUT":
		return SectionInOut
	default:
		return SectionLocal
	}
}

func (p *parser) skipVarSection() {
	p.advance()
	for !p.done() {
		tok := p.cur()
		if tok.IsKeyword("END_VAR") {
			p.advance()
			return
		}
		if isPOUHeader(tok) {
			return
		}
		p.advance()
	}
}

func (p *parser) parseVarSection(pou *POU) {
	secTok := p.cur()
	rawSection := secTok.Upper()
	section := sectionOf(rawSection)
	p.advance()

	for p.cur().IsKeyword("CONSTANT") || p.cur().IsKeyword("RETAIN") || p.cur().IsKeyword("PERSISTENT") {
		rawSection += " " + p.cur().Upper()
		p.advance()
	}

	for !p.done() {
		tok := p.cur()
		switch {
		case tok.IsKeyword("END_VAR"):
			p.advance()
			return
		case isPOUHeader(tok) || tok.IsKeyword(endKeyword(pou.Kind)):
			p.warnf(tok.Location, "%s section in %s has no END_VAR", rawSection, pou.Name)
			return
		case tok.Kind == TokenComment || tok.Kind == TokenPragma:
			p.advance()
		case tok.Kind == TokenIdent:
			p.parseDeclaration(pou, section, rawSection)
		default:
			p.errorf(tok.Location, "unexpected %s %q in %s section of %s", tok.Kind, clip(tok.Text, 20), rawSection, pou.Name)
			p.resyncDeclaration()
		}
	}
	p.warnf(secTok.Location, "%s section in %s not terminated before end of file", rawSection, pou.Name)
}

// parseDeclaration handles one `name1, name2 [AT %addr] : TYPE [:= init];`
// with an optional trailing comment on the same line.
func (p *parser) parseDeclaration(pou *POU, section VarSection, rawSection string) {
	type declName struct {
		name string
		loc  Location
	}
	var names []declName
	names = append(names, declName{p.cur().Text, p.cur().Location})
	p.advance()
	for p.cur().IsPunct(",") {
		p.advance()
		if p.cur().Kind != TokenIdent {
			p.errorf(p.cur().Location, "expected variable name after comma in %s", pou.Name)
			p.resyncDeclaration()
			return
		}
		names = append(names, declName{p.cur().Text, p.cur().Location})
		p.advance()
	}

	ioAddress := ""
	if p.cur().IsKeyword("AT") {
		p.advance()
		if p.cur().Kind == TokenAddress {
			ioAddress = p.cur().Text
			p.advance()
		} else {
			p.errorf(p.cur().Location, "AT without I/O address for %s in %s", names[0].name, pou.Name)
		}
	}

	if !p.cur().IsPunct(":") {
		p.errorf(p.cur().Location, "declaration of %s in %s missing ':'", names[0].name, pou.Name)
		p.resyncDeclaration()
		return
	}
	p.advance()

	isArray := false
	arrayBounds := ""
	if p.cur().IsKeyword("ARRAY") {
		isArray = true
		arrayBounds = p.parseArrayBounds(pou)
	}
	dataType := p.parseTypeName(pou)
	if dataType == "" {
		p.errorf(p.cur().Location, "declaration of %s in %s missing type", names[0].name, pou.Name)
		p.resyncDeclaration()
		return
	}

	initial := ""
	if p.cur().IsPunct(":=") {
		p.advance()
		initial = p.collectUntilSemicolon()
	}

	endLine := names[len(names)-1].loc.Line
	if p.cur().IsPunct(";") {
		endLine = p.cur().Location.Line
		p.advance()
	} else {
		p.errorf(p.cur().Location, "declaration of %s in %s missing ';'", names[0].name, pou.Name)
	}

	comment := ""
	if p.cur().Kind == TokenComment && p.cur().Location.Line == endLine {
		comment = CleanComment(p.cur().Text)
		p.advance()
	}

	for _, n := range names {
		pou.Variables = append(pou.Variables, Variable{
			ID:           deterministicID("var", p.file, pou.Name+"."+n.name, n.loc.Line),
			Name:         n.name,
			DataType:     dataType,
			Section:      section,
			RawSection:   rawSection,
			InitialValue: initial,
			Comment:      comment,
			IsArray:      isArray,
			ArrayBounds:  arrayBounds,
			IOAddress:    ioAddress,
			Location:     n.loc,
			POUID:        pou.ID,
		})
	}
}

func (p *parser) parseArrayBounds(pou *POU) string {
	p.advance() // ARRAY
	bounds := ""
	if p.cur().IsPunct("[") {
		p.advance()
		var parts []string
		for !p.done() && !p.cur().IsPunct("]") {
			if p.cur().IsKeyword("END_VAR") || isPOUHeader(p.cur()) {
				p.errorf(p.cur().Location, "unterminated array bounds in %s", pou.Name)
				return bounds
			}
			parts = append(parts, p.cur().Text)
			p.advance()
		}
		p.advance() // ]
		bounds = strings.Join(parts, "")
	}
	if p.cur().IsKeyword("OF") {
		p.advance()
	}
	return bounds
}

// parseTypeName reads a type reference: a keyword type (STRING, WSTRING),
// an identifier, optionally dotted (Lib.FB_Type) and optionally sized
// (STRING(80)).
func (p *parser) parseTypeName(pou *POU) string {
	tok := p.cur()
	if tok.Kind != TokenIdent && !tok.IsKeyword("STRING") && !tok.IsKeyword("WSTRING") {
		return ""
	}
	name := tok.Text
	p.advance()
	for p.cur().IsPunct(".") && p.peekNext().Kind == TokenIdent {
		p.advance()
		name += "." + p.cur().Text
		p.advance()
	}
	if p.cur().IsPunct("(") {
		depth := 0
		for !p.done() {
			t := p.cur()
			name += t.Text
			if t.IsPunct("(") {
				depth++
			}
			if t.IsPunct(")") {
				depth--
			}
			p.advance()
			if depth == 0 {
				break
			}
		}
	}
	return name
}

func (p *parser) parseDottedName() string {
	name := p.cur().Text
	p.advance()
	for p.cur().IsPunct(".") && p.peekNext().Kind == TokenIdent {
		p.advance()
		name += "." + p.cur().Text
		p.advance()
	}
	return name
}

func (p *parser) collectUntilSemicolon() string {
	var parts []string
	depth := 0
	for !p.done() {
		tok := p.cur()
		if tok.IsPunct("(") || tok.IsPunct("[") {
			depth++
		}
		if tok.IsPunct(")") || tok.IsPunct("]") {
			depth--
		}
		if depth == 0 && tok.IsPunct(";") {
			break
		}
		if tok.IsKeyword("END_VAR") || isPOUHeader(tok) {
			break
		}
		parts = append(parts, tok.Text)
		p.advance()
	}
	return strings.Join(parts, " ")
}

func (p *parser) resyncDeclaration() {
	for !p.done() {
		tok := p.cur()
		if tok.IsPunct(";") {
			p.advance()
			return
		}
		if tok.IsKeyword("END_VAR") || isPOUHeader(tok) {
			return
		}
		p.advance()
	}
}

func (p *parser) resyncToHeader() {
	for !p.done() && !isPOUHeader(p.cur()) {
		p.advance()
	}
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// deterministicID derives a stable UUID from the entity's identity so that
// repeated analysis of identical source yields byte-identical results.
func deterministicID(kind, file, name string, line int) string {
	seed := fmt.Sprintf("%s:%s:%s:%d", kind, file, name, line)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}

// CleanComment strips comment delimiters and banner decoration from a
// single comment's raw text.
func CleanComment(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "//") {
		return strings.TrimSpace(strings.TrimPrefix(text, "//"))
	}
	text = strings.TrimPrefix(text, "(*")
	text = strings.TrimSuffix(text, "*)")
	text = strings.Trim(text, "*")
	return strings.TrimSpace(text)
}
