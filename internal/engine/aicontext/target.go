package aicontext

import (
	"strings"

	cerrors "stmigrate/internal/core/errors"
)

// TargetLanguage is a closed tagged variant; each value carries its own
// immutable mapping tables built once at package init. Unknown selectors
// are a reportable error, never a silent default.
type TargetLanguage string

const (
	TargetPython     TargetLanguage = "python"
	TargetRust       TargetLanguage = "rust"
	TargetTypeScript TargetLanguage = "typescript"
	TargetCSharp     TargetLanguage = "csharp"
	TargetGo         TargetLanguage = "go"
)

var allTargets = []TargetLanguage{TargetPython, TargetRust, TargetTypeScript, TargetCSharp, TargetGo}

// Targets returns the closed set of supported target languages.
func Targets() []TargetLanguage {
	return append([]TargetLanguage(nil), allTargets...)
}

// ParseTarget validates a selector against the closed set.
func ParseTarget(s string) (TargetLanguage, error) {
	normalized := TargetLanguage(strings.ToLower(strings.TrimSpace(s)))
	for _, t := range allTargets {
		if normalized == t {
			return t, nil
		}
	}
	return "", cerrors.Newf(cerrors.CodeNotSupported, "unknown target language %q; supported: %s", s, supportedList())
}

func supportedList() string {
	names := make([]string, len(allTargets))
	for i, t := range allTargets {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// typeMappings maps IEC 61131-3 elementary types to each target language.
// Per-target tables are fixed lookup data; missing entries fall back to
// the raw ST type name so exotic vendor types surface visibly instead of
// disappearing.
var typeMappings = map[TargetLanguage]map[string]string{
	TargetPython: {
		"BOOL": "bool", "BYTE": "int", "WORD": "int", "DWORD": "int", "LWORD": "int",
		"SINT": "int", "INT": "int", "DINT": "int", "LINT": "int",
		"USINT": "int", "UINT": "int", "UDINT": "int", "ULINT": "int",
		"REAL": "float", "LREAL": "float",
		"STRING": "str", "WSTRING": "str",
		"TIME": "datetime.timedelta", "DATE": "datetime.date", "TOD": "datetime.time", "DT": "datetime.datetime",
	},
	TargetRust: {
		"BOOL": "bool", "BYTE": "u8", "WORD": "u16", "DWORD": "u32", "LWORD": "u64",
		"SINT": "i8", "INT": "i16", "DINT": "i32", "LINT": "i64",
		"USINT": "u8", "UINT": "u16", "UDINT": "u32", "ULINT": "u64",
		"REAL": "f32", "LREAL": "f64",
		"STRING": "String", "WSTRING": "String",
		"TIME": "std::time::Duration", "DATE": "chrono::NaiveDate", "TOD": "chrono::NaiveTime", "DT": "chrono::NaiveDateTime",
	},
	TargetTypeScript: {
		"BOOL": "boolean", "BYTE": "number", "WORD": "number", "DWORD": "number", "LWORD": "bigint",
		"SINT": "number", "INT": "number", "DINT": "number", "LINT": "bigint",
		"USINT": "number", "UINT": "number", "UDINT": "number", "ULINT": "bigint",
		"REAL": "number", "LREAL": "number",
		"STRING": "string", "WSTRING": "string",
		"TIME": "number", "DATE": "Date", "TOD": "Date", "DT": "Date",
	},
	TargetCSharp: {
		"BOOL": "bool", "BYTE": "byte", "WORD": "ushort", "DWORD": "uint", "LWORD": "ulong",
		"SINT": "sbyte", "INT": "short", "DINT": "int", "LINT": "long",
		"USINT": "byte", "UINT": "ushort", "UDINT": "uint", "ULINT": "ulong",
		"REAL": "float", "LREAL": "double",
		"STRING": "string", "WSTRING": "string",
		"TIME": "TimeSpan", "DATE": "DateOnly", "TOD": "TimeOnly", "DT": "DateTime",
	},
	TargetGo: {
		"BOOL": "bool", "BYTE": "uint8", "WORD": "uint16", "DWORD": "uint32", "LWORD": "uint64",
		"SINT": "int8", "INT": "int16", "DINT": "int32", "LINT": "int64",
		"USINT": "uint8", "UINT": "uint16", "UDINT": "uint32", "ULINT": "uint64",
		"REAL": "float32", "LREAL": "float64",
		"STRING": "string", "WSTRING": "string",
		"TIME": "time.Duration", "DATE": "time.Time", "TOD": "time.Time", "DT": "time.Time",
	},
}

// patternMappings describes how common ST idioms translate per target.
var patternMappings = map[TargetLanguage][]PatternMapping{
	TargetPython: {
		{Pattern: "CASE state machine", Guidance: "enum.Enum states with a match statement or transition dict"},
		{Pattern: "FUNCTION_BLOCK instance", Guidance: "class with __call__ keeping in/out fields as attributes"},
		{Pattern: "TON/TOF timers", Guidance: "monotonic-clock comparisons, never wall-clock sleep"},
		{Pattern: "safety interlock", Guidance: "guard clause raising or returning early; never drop the check"},
	},
	TargetRust: {
		{Pattern: "CASE state machine", Guidance: "enum with match; non-exhaustive arms are compile errors, cover gaps explicitly"},
		{Pattern: "FUNCTION_BLOCK instance", Guidance: "struct with a cycle() method taking &mut self"},
		{Pattern: "TON/TOF timers", Guidance: "std::time::Instant comparisons"},
		{Pattern: "safety interlock", Guidance: "early-return guard; model bypass flags as explicit types, not bools"},
	},
	TargetTypeScript: {
		{Pattern: "CASE state machine", Guidance: "discriminated union with exhaustive switch and never-check"},
		{Pattern: "FUNCTION_BLOCK instance", Guidance: "class with update() method; inputs/outputs as typed fields"},
		{Pattern: "TON/TOF timers", Guidance: "performance.now() deltas, not setTimeout"},
		{Pattern: "safety interlock", Guidance: "guard clause; keep the interlock condition verbatim in one place"},
	},
	TargetCSharp: {
		{Pattern: "CASE state machine", Guidance: "enum with switch expression"},
		{Pattern: "FUNCTION_BLOCK instance", Guidance: "class with Execute() method"},
		{Pattern: "TON/TOF timers", Guidance: "Stopwatch comparisons"},
		{Pattern: "safety interlock", Guidance: "guard clause; log every bypass evaluation"},
	},
	TargetGo: {
		{Pattern: "CASE state machine", Guidance: "typed int states with switch; table-driven transitions for dense machines"},
		{Pattern: "FUNCTION_BLOCK instance", Guidance: "struct with a Cycle() method; inputs as fields set before the call"},
		{Pattern: "TON/TOF timers", Guidance: "time.Since on a stored start, not time.Sleep"},
		{Pattern: "safety interlock", Guidance: "guard clause returning early; keep bypass conditions greppable"},
	},
}

// TypeMap returns the fixed ST-to-target type table for the variant.
func (t TargetLanguage) TypeMap() map[string]string {
	return typeMappings[t]
}

// MapType resolves one raw ST type name, falling back to the raw name.
func (t TargetLanguage) MapType(stType string) string {
	key := strings.ToUpper(strings.TrimSpace(stType))
	if mapped, ok := typeMappings[t][key]; ok {
		return mapped
	}
	return stType
}

func (t TargetLanguage) patterns() []PatternMapping {
	return patternMappings[t]
}
