package stparse

// Data model for one analysis pass over an IEC 61131-3 Structured Text
// source file. Entities are created during parsing/extraction and are not
// mutated afterwards; nothing here is shared across passes.

type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column,omitempty"`
}

type POUKind string

const (
	KindFunctionBlock POUKind = "FUNCTION_BLOCK"
	KindProgram       POUKind = "PROGRAM"
	KindFunction      POUKind = "FUNCTION"
)

// POU is one Program Organization Unit.
type POU struct {
	ID            string            `json:"id"`
	QualifiedName string            `json:"qualifiedName"`
	Kind          POUKind           `json:"kind"`
	Name          string            `json:"name"`
	Location      Location          `json:"location"`
	Documentation *Docstring        `json:"documentation,omitempty"`
	Variables     []Variable        `json:"variables"`
	Extends       string            `json:"extends,omitempty"`
	Implements    []string          `json:"implements,omitempty"`
	Methods       []string          `json:"methods,omitempty"`
	ReturnType    string            `json:"returnType,omitempty"`
	BodyStartLine int               `json:"bodyStartLine"`
	BodyEndLine   int               `json:"bodyEndLine"`
	Attributes    map[string]string `json:"attributes,omitempty"`
}

type VarSection string

const (
	SectionInput  VarSection = "VAR_INPUT"
	SectionOutput VarSection = "VAR_OUTPUT"
	SectionInOut  VarSection = "VAR_IN_OUT"
	SectionLocal  VarSection = "VAR"
)

type Variable struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	DataType         string     `json:"dataType"`
	Section          VarSection `json:"section"`
	RawSection       string     `json:"rawSection,omitempty"`
	InitialValue     string     `json:"initialValue,omitempty"`
	Comment          string     `json:"comment,omitempty"`
	IsArray          bool       `json:"isArray,omitempty"`
	ArrayBounds      string     `json:"arrayBounds,omitempty"`
	IsSafetyCritical bool       `json:"isSafetyCritical,omitempty"`
	IOAddress        string     `json:"ioAddress,omitempty"`
	Location         Location   `json:"location"`
	POUID            string     `json:"pouId"`
}

// Docstring is a substantial block comment, optionally associated with the
// POU declared immediately after it.
type Docstring struct {
	Summary         string         `json:"summary,omitempty"`
	Description     string         `json:"description,omitempty"`
	Params          []DocParam     `json:"params,omitempty"`
	Returns         string         `json:"returns,omitempty"`
	Author          string         `json:"author,omitempty"`
	Date            string         `json:"date,omitempty"`
	History         []HistoryEntry `json:"history,omitempty"`
	Warnings        []string       `json:"warnings,omitempty"`
	Raw             string         `json:"raw"`
	Line            int            `json:"line"`
	EndLine         int            `json:"endLine"`
	AssociatedBlock string         `json:"associatedBlock,omitempty"`
}

type DocParam struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type HistoryEntry struct {
	Year  int    `json:"year"`
	Entry string `json:"entry"`
}

// StateMachine describes one CASE block recognized as a state machine by
// its controlling variable's naming convention.
type StateMachine struct {
	Variable   string   `json:"variable"`
	StateCount int      `json:"stateCount"`
	States     []State  `json:"states"`
	HasGaps    bool     `json:"hasGaps"`
	GapValues  []int    `json:"gapValues,omitempty"`
	Location   Location `json:"location"`
	POUID      string   `json:"pouId,omitempty"`
}

type State struct {
	Value      string `json:"value"`
	Numeric    int    `json:"numeric,omitempty"`
	IsNumeric  bool   `json:"isNumeric"`
	Line       int    `json:"line"`
	HasComment bool   `json:"hasComment"`
}

type InterlockType string

const (
	InterlockPlain  InterlockType = "interlock"
	InterlockPermit InterlockType = "permissive"
	InterlockEStop  InterlockType = "estop"
	InterlockRelay  InterlockType = "safety-relay"
	InterlockDevice InterlockType = "safety-device"
	InterlockBypass InterlockType = "bypass"
)

type SafetyInterlock struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Type              InterlockType `json:"type"`
	Location          Location      `json:"location"`
	POUID             string        `json:"pouId,omitempty"`
	IsBypassed        bool          `json:"isBypassed"`
	BypassCondition   string        `json:"bypassCondition,omitempty"`
	Confidence        float64       `json:"confidence"`
	Severity          string        `json:"severity"`
	RelatedInterlocks []string      `json:"relatedInterlocks,omitempty"`
}

type Importance string

const (
	ImportanceCritical Importance = "critical"
	ImportanceHigh     Importance = "high"
	ImportanceMedium   Importance = "medium"
	ImportanceLow      Importance = "low"
)

type TribalKnowledgeItem struct {
	Type       string     `json:"type"`
	Importance Importance `json:"importance"`
	Content    string     `json:"content"`
	Location   Location   `json:"location"`
}

type IssueSeverity string

const (
	SeverityError   IssueSeverity = "error"
	SeverityWarning IssueSeverity = "warning"
)

// ParseIssue is a recoverable syntax problem. Issues are data, not Go
// errors: parsing always continues past them.
type ParseIssue struct {
	Severity IssueSeverity `json:"severity"`
	Message  string        `json:"message"`
	Location Location      `json:"location"`
}

// Result is the best-effort outcome of parsing one file.
type Result struct {
	POUs     []POU        `json:"pous"`
	Errors   []ParseIssue `json:"errors"`
	Warnings []ParseIssue `json:"warnings"`
}
