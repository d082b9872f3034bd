package aicontext

import (
	"reflect"
	"testing"

	cerrors "stmigrate/internal/core/errors"
	"stmigrate/internal/engine/extract"
	"stmigrate/internal/engine/stparse"
)

func analyzeSource(t *testing.T, src string) Inputs {
	t.Helper()
	res := stparse.Parse("ctx.st", src)
	return Inputs{
		POUs:          res.POUs,
		Docstrings:    extract.ExtractDocstrings("ctx.st", src),
		StateMachines: extract.ExtractStateMachines("ctx.st", src, res.POUs, extract.StateMachineOptions{}),
		Interlocks:    extract.ExtractSafetyInterlocks("ctx.st", src, res.POUs, extract.SafetyOptions{}),
		Tribal:        extract.ExtractTribalKnowledge("ctx.st", src),
	}
}

const valveSource = `FUNCTION_BLOCK FB_Valve
VAR_INPUT
    bIL_Air : BOOL;
    nSetpoint : DINT;
    sLabel : STRING;
END_VAR
VAR_OUTPUT
    bOpen : BOOL;
END_VAR
VAR
    rRamp : REAL;
END_VAR
END_FUNCTION_BLOCK`

func TestRustTypeMapping(t *testing.T) {
	in := analyzeSource(t, valveSource)
	pkg, err := Generate(in, TargetRust, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	want := map[string]string{"DINT": "i32", "BOOL": "bool", "STRING": "String", "REAL": "f32"}
	for st, target := range want {
		if got := pkg.Types.PLCToTarget[st]; got != target {
			t.Errorf("rust mapping %s = %q, want %q", st, got, target)
		}
	}
	if got := TargetRust.MapType("INT"); got != "i16" {
		t.Errorf("rust INT = %q, want i16", got)
	}
}

func TestTypeScriptTypeMapping(t *testing.T) {
	in := analyzeSource(t, valveSource)
	pkg, err := Generate(in, TargetTypeScript, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := pkg.Types.PLCToTarget["BOOL"]; got != "boolean" {
		t.Errorf("typescript BOOL = %q, want boolean", got)
	}
	if got := pkg.Types.PLCToTarget["STRING"]; got != "string" {
		t.Errorf("typescript STRING = %q, want string", got)
	}
}

func TestUnknownTargetIsError(t *testing.T) {
	if _, err := ParseTarget("cobol"); !cerrors.IsCode(err, cerrors.CodeNotSupported) {
		t.Errorf("unknown target returned %v, want NOT_SUPPORTED", err)
	}
	if _, err := Generate(Inputs{}, TargetLanguage("cobol"), nil); !cerrors.IsCode(err, cerrors.CodeNotSupported) {
		t.Errorf("Generate with unknown target returned %v", err)
	}
}

func TestParseTargetNormalizes(t *testing.T) {
	got, err := ParseTarget("  Rust ")
	if err != nil || got != TargetRust {
		t.Errorf("ParseTarget(\"  Rust \") = %v, %v", got, err)
	}
}

func TestInterfaceSectionsFollowDeclarations(t *testing.T) {
	in := analyzeSource(t, valveSource)
	pkg, err := Generate(in, TargetPython, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(pkg.POUs) != 1 {
		t.Fatalf("expected 1 POU context, got %d", len(pkg.POUs))
	}
	pc := pkg.POUs[0]
	if len(pc.Inputs) != 3 || len(pc.Outputs) != 1 || len(pc.Locals) != 1 || len(pc.InOuts) != 0 {
		t.Errorf("section split inputs=%d outputs=%d locals=%d inouts=%d",
			len(pc.Inputs), len(pc.Outputs), len(pc.Locals), len(pc.InOuts))
	}
	if pc.Inputs[1].TargetType != "int" {
		t.Errorf("python DINT = %q, want int", pc.Inputs[1].TargetType)
	}
}

func TestUnknownSTTypePassesThrough(t *testing.T) {
	src := `FUNCTION_BLOCK FB_Drive
VAR_INPUT
    stAxis : AXIS_REF;
END_VAR
END_FUNCTION_BLOCK`
	in := analyzeSource(t, src)
	pkg, err := Generate(in, TargetRust, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got := pkg.POUs[0].Inputs[0].TargetType; got != "AXIS_REF" {
		t.Errorf("vendor type mapped to %q, want raw passthrough", got)
	}
}

func TestSafetyRequirementsAlwaysPresentWithInterlocks(t *testing.T) {
	src := `FUNCTION_BLOCK FB_Press
VAR_INPUT
    bEStop : BOOL;
    bMaintBypass : BOOL;
END_VAR
IF bMaintBypass OR bEStop THEN
    bRun := TRUE;
END_IF
END_FUNCTION_BLOCK`
	in := analyzeSource(t, src)
	if len(in.Interlocks) == 0 {
		t.Fatal("test source produced no interlocks")
	}
	pkg, err := Generate(in, TargetGo, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	safety := 0
	for _, vr := range pkg.Verification {
		if vr.Category == "safety" {
			safety++
		}
	}
	if safety == 0 {
		t.Errorf("interlocks present but no safety verification requirement: %+v", pkg.Verification)
	}
	if len(pkg.Safety.MustPreserve) == 0 {
		t.Errorf("critical estop produced no mustPreserve rule: %+v", pkg.Safety)
	}
}

func TestNoInterlocksNoSafetyRequirement(t *testing.T) {
	src := `FUNCTION_BLOCK FB_Counter
VAR
    nCount : INT;
END_VAR
END_FUNCTION_BLOCK`
	in := analyzeSource(t, src)
	pkg, err := Generate(in, TargetGo, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, vr := range pkg.Verification {
		if vr.Category == "safety" {
			t.Errorf("safety requirement without interlocks: %+v", vr)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	src := valveSource + "\n" + `PROGRAM MainSeq
VAR
    nStep : INT;
END_VAR
CASE nStep OF
0: nStep := 1;
1: nStep := 0;
END_CASE
END_PROGRAM`
	in := analyzeSource(t, src)
	info := &ProjectInfo{Name: "line4", Vendor: "beckhoff"}
	a, errA := Generate(in, TargetCSharp, info)
	b, errB := Generate(in, TargetCSharp, info)
	if errA != nil || errB != nil {
		t.Fatalf("Generate: %v %v", errA, errB)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated generation diverged")
	}
}

func TestDocstringAttachedToPOUContext(t *testing.T) {
	src := `(*
 * Controls the air valve on station 4.
 * @param bIL_Air air pressure interlock
 *)
` + valveSource
	in := analyzeSource(t, src)
	pkg, err := Generate(in, TargetPython, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	doc := pkg.POUs[0].Documentation
	if doc == nil || len(doc.Params) != 1 {
		t.Errorf("documentation not attached: %+v", doc)
	}
}
