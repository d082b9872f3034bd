package score

import (
	"reflect"
	"testing"

	"stmigrate/internal/engine/extract"
	"stmigrate/internal/engine/stparse"
)

func analyze(t *testing.T, src string) (stparse.POU, Inputs) {
	t.Helper()
	res := stparse.Parse("t.st", src)
	if len(res.POUs) != 1 {
		t.Fatalf("expected 1 POU, got %d", len(res.POUs))
	}
	pou := res.POUs[0]
	return pou, Inputs{
		Docstrings:    extract.ExtractDocstrings("t.st", src),
		StateMachines: extract.ExtractStateMachines("t.st", src, res.POUs, extract.StateMachineOptions{}),
		Interlocks:    extract.ExtractSafetyInterlocks("t.st", src, res.POUs, extract.SafetyOptions{}),
		Tribal:        extract.ExtractTribalKnowledge("t.st", src),
	}
}

const undocumentedSource = `FUNCTION_BLOCK FB_Door
VAR_INPUT
    bSensor : BOOL;
END_VAR
CASE nState OF
0: x := 1;
1: x := 2;
END_CASE
END_FUNCTION_BLOCK`

func TestUndocumentedStatesBlocker(t *testing.T) {
	pou, in := analyze(t, undocumentedSource)
	s := Score(pou, in, DefaultConfig())
	found := false
	for _, b := range s.Blockers {
		if b.Category == BlockerDocumentation {
			found = true
		}
	}
	if !found {
		t.Errorf("0 of 2 documented states produced no documentation blocker: %+v", s.Blockers)
	}
}

func TestBypassProducesSafetyBlocker(t *testing.T) {
	src := `FUNCTION_BLOCK FB_Valve
VAR_INPUT
    bIL_Air : BOOL;
    bDbg_SkipIL : BOOL;
END_VAR
IF bDbg_SkipIL OR bIL_Air THEN
    bOpen := TRUE;
END_IF
END_FUNCTION_BLOCK`
	pou, in := analyze(t, src)
	s := Score(pou, in, DefaultConfig())
	found := false
	for _, b := range s.Blockers {
		if b.Category == BlockerSafety {
			found = true
		}
	}
	if !found {
		t.Errorf("bypassed interlock produced no safety blocker: %+v", s.Blockers)
	}
	if s.Dimensions.SafetyRisk >= 100 {
		t.Errorf("safety dimension unaffected by interlocks: %+v", s.Dimensions)
	}
}

func TestWellDocumentedScoresHigher(t *testing.T) {
	documented := `(*
 * Door control with both sensors checked.
 * @param bSensor door closed feedback
 *)
FUNCTION_BLOCK FB_Door
VAR_INPUT
    bSensor : BOOL; (* door closed feedback *)
END_VAR
CASE nState OF
0: x := 1; (* idle *)
1: x := 2; (* locked *)
END_CASE
END_FUNCTION_BLOCK`
	pouA, inA := analyze(t, documented)
	pouB, inB := analyze(t, undocumentedSource)
	cfg := DefaultConfig()
	a := Score(pouA, inA, cfg)
	b := Score(pouB, inB, cfg)
	if a.Dimensions.Documentation <= b.Dimensions.Documentation {
		t.Errorf("documented POU %f not above undocumented %f",
			a.Dimensions.Documentation, b.Dimensions.Documentation)
	}
	if a.Overall <= b.Overall {
		t.Errorf("documented POU overall %f not above %f", a.Overall, b.Overall)
	}
}

func TestScoreIsPure(t *testing.T) {
	pou, in := analyze(t, undocumentedSource)
	cfg := DefaultConfig()
	a := Score(pou, in, cfg)
	b := Score(pou, in, cfg)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("repeated scoring diverged:\n%+v\n%+v", a, b)
	}
}

func TestWeightsShiftOverall(t *testing.T) {
	src := `FUNCTION_BLOCK FB_Safe
VAR_INPUT
    bEStop : BOOL;
END_VAR
END_FUNCTION_BLOCK`
	pou, in := analyze(t, src)

	safetyHeavy := Config{
		Weights:    Weights{Complexity: 0.05, SafetyRisk: 0.85, Documentation: 0.05, Determinism: 0.05},
		Thresholds: DefaultThresholds(),
	}
	safetyLight := Config{
		Weights:    Weights{Complexity: 0.4, SafetyRisk: 0.0, Documentation: 0.3, Determinism: 0.3},
		Thresholds: DefaultThresholds(),
	}
	heavy := Score(pou, in, safetyHeavy)
	light := Score(pou, in, safetyLight)
	if heavy.Overall == light.Overall {
		t.Errorf("weight changes had no effect on overall: heavy=%f light=%f",
			heavy.Overall, light.Overall)
	}
	if heavy.Dimensions != light.Dimensions {
		t.Error("weights must not change dimension scores, only the aggregate")
	}
}

func TestGradeBands(t *testing.T) {
	cases := []struct {
		overall float64
		want    string
	}{
		{95, "A"}, {85, "B"}, {75, "C"}, {65, "D"}, {30, "F"}, {90, "A"}, {89.9, "B"},
	}
	for _, tc := range cases {
		if got := grade(tc.overall); got != tc.want {
			t.Errorf("grade(%f) = %s, want %s", tc.overall, got, tc.want)
		}
	}
}
