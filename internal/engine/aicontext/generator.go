package aicontext

import (
	"fmt"
	"sort"
	"strings"

	"stmigrate/internal/engine/stparse"
	"stmigrate/internal/shared/util"
)

// PackageVersion is the schema version of the emitted context package.
// Bump when downstream consumers need to distinguish layouts.
const PackageVersion = "1.0"

// ProjectInfo is optional caller-supplied metadata.
type ProjectInfo struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	Vendor      string `json:"vendor,omitempty"`
	SourceRoot  string `json:"sourceRoot,omitempty"`
}

// Package is the translation context handed to a downstream code
// generator. Pure data, safe to serialize.
type Package struct {
	Version        string                        `json:"version"`
	TargetLanguage TargetLanguage                `json:"targetLanguage"`
	Project        *ProjectInfo                  `json:"project,omitempty"`
	Types          TypeSection                   `json:"types"`
	POUs           []POUContext                  `json:"pous"`
	Safety         SafetySection                 `json:"safety"`
	Tribal         []stparse.TribalKnowledgeItem `json:"tribalKnowledge,omitempty"`
	Guide          TranslationGuide              `json:"translationGuide"`
	Verification   []VerificationRequirement     `json:"verificationRequirements"`
}

type TypeSection struct {
	PLCToTarget map[string]string `json:"plcToTarget"`
}

// POUContext describes one POU's interface for the translator. Interface
// sections are derived strictly from each variable's declared section.
type POUContext struct {
	Name          string                 `json:"name"`
	QualifiedName string                 `json:"qualifiedName"`
	Kind          stparse.POUKind        `json:"kind"`
	Documentation *stparse.Docstring     `json:"documentation,omitempty"`
	Inputs        []VariableContext      `json:"inputs"`
	Outputs       []VariableContext      `json:"outputs"`
	InOuts        []VariableContext      `json:"inOuts"`
	Locals        []VariableContext      `json:"locals"`
	StateMachines []stparse.StateMachine `json:"stateMachines,omitempty"`
	Extends       string                 `json:"extends,omitempty"`
	Implements    []string               `json:"implements,omitempty"`
	ReturnType    string                 `json:"returnType,omitempty"`
	MappedReturn  string                 `json:"mappedReturnType,omitempty"`
}

type VariableContext struct {
	Name             string `json:"name"`
	STType           string `json:"stType"`
	TargetType       string `json:"targetType"`
	Comment          string `json:"comment,omitempty"`
	InitialValue     string `json:"initialValue,omitempty"`
	IsArray          bool   `json:"isArray,omitempty"`
	ArrayBounds      string `json:"arrayBounds,omitempty"`
	IsSafetyCritical bool   `json:"isSafetyCritical,omitempty"`
	IOAddress        string `json:"ioAddress,omitempty"`
}

type SafetySection struct {
	Interlocks   []stparse.SafetyInterlock `json:"interlocks"`
	MustPreserve []string                  `json:"mustPreserve"`
}

type TranslationGuide struct {
	TypeMappings    map[string]string `json:"typeMappings"`
	PatternMappings []PatternMapping  `json:"patternMappings"`
}

type PatternMapping struct {
	Pattern  string `json:"pattern"`
	Guidance string `json:"guidance"`
}

type VerificationRequirement struct {
	Category    string `json:"category"`
	Requirement string `json:"requirement"`
}

// Inputs bundles the extraction results the generator consumes.
type Inputs struct {
	POUs          []stparse.POU
	Docstrings    []stparse.Docstring
	StateMachines []stparse.StateMachine
	Interlocks    []stparse.SafetyInterlock
	Tribal        []stparse.TribalKnowledgeItem
}

// Generate assembles the context package for one target language. The
// output depends only on the inputs; repeated calls yield identical
// packages.
func Generate(in Inputs, target TargetLanguage, project *ProjectInfo) (Package, error) {
	if _, err := ParseTarget(string(target)); err != nil {
		return Package{}, err
	}

	pkg := Package{
		Version:        PackageVersion,
		TargetLanguage: target,
		Project:        project,
		Types:          TypeSection{PLCToTarget: usedTypeMap(in.POUs, target)},
		Safety:         safetySection(in.Interlocks),
		Tribal:         in.Tribal,
		Guide: TranslationGuide{
			TypeMappings:    target.TypeMap(),
			PatternMappings: target.patterns(),
		},
	}

	for _, pou := range in.POUs {
		pkg.POUs = append(pkg.POUs, pouContext(pou, in, target))
	}
	pkg.Verification = verificationRequirements(in)
	return pkg, nil
}

// usedTypeMap restricts the mapping table to types the project actually
// declares, so the package stays readable on large type systems.
func usedTypeMap(pous []stparse.POU, target TargetLanguage) map[string]string {
	out := map[string]string{}
	for _, pou := range pous {
		for _, v := range pou.Variables {
			key := strings.ToUpper(v.DataType)
			out[key] = target.MapType(v.DataType)
		}
		if pou.ReturnType != "" {
			key := strings.ToUpper(pou.ReturnType)
			out[key] = target.MapType(pou.ReturnType)
		}
	}
	return out
}

func pouContext(pou stparse.POU, in Inputs, target TargetLanguage) POUContext {
	ctx := POUContext{
		Name:          pou.Name,
		QualifiedName: pou.QualifiedName,
		Kind:          pou.Kind,
		Documentation: documentationFor(pou, in.Docstrings),
		Inputs:        []VariableContext{},
		Outputs:       []VariableContext{},
		InOuts:        []VariableContext{},
		Locals:        []VariableContext{},
		Extends:       pou.Extends,
		Implements:    pou.Implements,
		ReturnType:    pou.ReturnType,
	}
	if pou.ReturnType != "" {
		ctx.MappedReturn = target.MapType(pou.ReturnType)
	}
	for _, v := range pou.Variables {
		vc := VariableContext{
			Name:             v.Name,
			STType:           v.DataType,
			TargetType:       target.MapType(v.DataType),
			Comment:          v.Comment,
			InitialValue:     v.InitialValue,
			IsArray:          v.IsArray,
			ArrayBounds:      v.ArrayBounds,
			IsSafetyCritical: v.IsSafetyCritical,
			IOAddress:        v.IOAddress,
		}
		switch v.Section {
		case stparse.SectionInput:
			ctx.Inputs = append(ctx.Inputs, vc)
		case stparse.SectionOutput:
			ctx.Outputs = append(ctx.Outputs, vc)
		case stparse.SectionInOut:
			ctx.InOuts = append(ctx.InOuts, vc)
		default:
			ctx.Locals = append(ctx.Locals, vc)
		}
	}
	for _, sm := range in.StateMachines {
		if sm.POUID == pou.ID {
			ctx.StateMachines = append(ctx.StateMachines, sm)
		}
	}
	return ctx
}

func documentationFor(pou stparse.POU, docs []stparse.Docstring) *stparse.Docstring {
	if pou.Documentation != nil {
		return pou.Documentation
	}
	for i := range docs {
		if docs[i].AssociatedBlock == pou.Name {
			return &docs[i]
		}
	}
	return nil
}

// safetySection lists every interlock and derives mustPreserve rules from
// the ones with non-trivial severity. A translated program dropping or
// weakening any of these is a rejected translation.
func safetySection(interlocks []stparse.SafetyInterlock) SafetySection {
	sec := SafetySection{Interlocks: interlocks, MustPreserve: []string{}}
	for _, il := range interlocks {
		if il.Severity != "critical" && il.Severity != "high" {
			continue
		}
		rule := fmt.Sprintf("preserve %s check %s (%s severity)", il.Type, il.Name, il.Severity)
		if il.IsBypassed {
			rule += "; resolve its bypass before translating"
		}
		sec.MustPreserve = append(sec.MustPreserve, rule)
	}
	if deduped := util.UniqueSorted(sec.MustPreserve); deduped != nil {
		sec.MustPreserve = deduped
	}
	return sec
}

func verificationRequirements(in Inputs) []VerificationRequirement {
	var out []VerificationRequirement

	if len(in.Interlocks) > 0 {
		out = append(out, VerificationRequirement{
			Category: "safety",
			Requirement: fmt.Sprintf("verify all %d detected safety interlocks behave identically in the translated code",
				len(in.Interlocks)),
		})
		for _, il := range in.Interlocks {
			if il.IsBypassed {
				out = append(out, VerificationRequirement{
					Category:    "safety",
					Requirement: fmt.Sprintf("review bypass on %s before sign-off", il.Name),
				})
			}
		}
	}

	stateMachines := 0
	for _, sm := range in.StateMachines {
		stateMachines++
		if sm.HasGaps {
			out = append(out, VerificationRequirement{
				Category:    "behavior",
				Requirement: fmt.Sprintf("confirm gap values %v in state machine %s are intentionally unreachable", sm.GapValues, sm.Variable),
			})
		}
	}
	if stateMachines > 0 {
		out = append(out, VerificationRequirement{
			Category:    "behavior",
			Requirement: fmt.Sprintf("exercise every state transition of %d state machines against the original scan-cycle behavior", stateMachines),
		})
	}

	for _, item := range in.Tribal {
		if item.Importance == stparse.ImportanceCritical {
			out = append(out, VerificationRequirement{
				Category:    "knowledge",
				Requirement: fmt.Sprintf("critical note at %s:%d: %s", item.Location.File, item.Location.Line, item.Content),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Requirement < out[j].Requirement
	})
	return out
}
