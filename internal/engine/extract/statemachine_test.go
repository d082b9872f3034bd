package extract

import (
	"reflect"
	"testing"
)

func TestDenseNumberingReportsGaps(t *testing.T) {
	src := `CASE nState OF
0: a := 1;
1: a := 2;
2: a := 3;
4: a := 4;
END_CASE`
	machines := ExtractStateMachines("a.st", src, nil, StateMachineOptions{})
	if len(machines) != 1 {
		t.Fatalf("expected 1 state machine, got %d", len(machines))
	}
	sm := machines[0]
	if sm.Variable != "nState" || sm.StateCount != 4 {
		t.Errorf("machine %+v", sm)
	}
	if !sm.HasGaps || !reflect.DeepEqual(sm.GapValues, []int{3}) {
		t.Errorf("gap analysis: hasGaps=%v gaps=%v, want gap {3}", sm.HasGaps, sm.GapValues)
	}
}

func TestSparseNumberingNeverFlagged(t *testing.T) {
	src := `CASE nStep OF
0: a := 1;
10: a := 2;
20: a := 3;
30: a := 4;
END_CASE`
	machines := ExtractStateMachines("a.st", src, nil, StateMachineOptions{})
	if len(machines) != 1 {
		t.Fatalf("expected 1 state machine, got %d", len(machines))
	}
	if machines[0].HasGaps || len(machines[0].GapValues) != 0 {
		t.Errorf("sparse numbering flagged: %+v", machines[0])
	}
}

func TestUnrecognizedVariableNameIgnored(t *testing.T) {
	src := `CASE nErrorCode OF
0: a := 1;
1: a := 2;
END_CASE`
	machines := ExtractStateMachines("a.st", src, nil, StateMachineOptions{})
	if len(machines) != 0 {
		t.Errorf("error-code CASE misread as state machine: %+v", machines)
	}
}

func TestExtraNamePatternFromConfig(t *testing.T) {
	src := `CASE nSchritt OF
0: a := 1;
1: a := 2;
END_CASE`
	opts := StateMachineOptions{ExtraNamePatterns: []string{`(?i)schritt`}}
	machines := ExtractStateMachines("a.st", src, nil, opts)
	if len(machines) != 1 {
		t.Fatalf("configured pattern not honored: %+v", machines)
	}
}

func TestSymbolicStatesAndComments(t *testing.T) {
	src := `CASE eMode OF
MODE_IDLE: a := 1; (* waiting for start *)
MODE_RUN: a := 2;
END_CASE`
	machines := ExtractStateMachines("a.st", src, nil, StateMachineOptions{})
	if len(machines) != 1 {
		t.Fatalf("expected 1 state machine, got %d", len(machines))
	}
	sm := machines[0]
	if sm.StateCount != 2 {
		t.Fatalf("states %+v", sm.States)
	}
	if sm.States[0].IsNumeric || sm.States[0].Value != "MODE_IDLE" {
		t.Errorf("symbolic state %+v", sm.States[0])
	}
	if !sm.States[0].HasComment {
		t.Error("inline comment on first arm not recorded")
	}
	if sm.States[1].HasComment {
		t.Error("second arm has no comment but was marked")
	}
	if sm.HasGaps {
		t.Error("symbolic-only machine cannot have numeric gaps")
	}
}

func TestCommentOnlyArmStillCounted(t *testing.T) {
	src := `CASE nState OF
0: (* idle, nothing to do *)
1: a := 1;
2: a := 2;
END_CASE`
	machines := ExtractStateMachines("a.st", src, nil, StateMachineOptions{})
	if len(machines) != 1 {
		t.Fatalf("expected 1 state machine, got %d", len(machines))
	}
	sm := machines[0]
	if sm.StateCount != 3 {
		t.Fatalf("comment-only arm dropped: states %+v", sm.States)
	}
	if !sm.States[0].HasComment {
		t.Error("comment on the empty arm not recorded")
	}
	if sm.HasGaps {
		t.Errorf("contiguous states reported gaps %v", sm.GapValues)
	}
}

func TestEmptyArmStillCounted(t *testing.T) {
	src := `CASE nStep OF
0:
1:
2: a := 1;
END_CASE`
	machines := ExtractStateMachines("a.st", src, nil, StateMachineOptions{})
	if len(machines) != 1 {
		t.Fatalf("expected 1 state machine, got %d", len(machines))
	}
	if machines[0].StateCount != 3 {
		t.Errorf("empty arms dropped: states %+v", machines[0].States)
	}
	if machines[0].HasGaps {
		t.Errorf("contiguous states reported gaps %v", machines[0].GapValues)
	}
}

func TestRangeLabelCoversGapValues(t *testing.T) {
	src := `CASE nState OF
0..2: a := 1;
4: a := 2;
END_CASE`
	machines := ExtractStateMachines("a.st", src, nil, StateMachineOptions{})
	if len(machines) != 1 {
		t.Fatalf("expected 1 state machine, got %d", len(machines))
	}
	sm := machines[0]
	if !sm.HasGaps || !reflect.DeepEqual(sm.GapValues, []int{3}) {
		t.Errorf("range not expanded: hasGaps=%v gaps=%v, want gap {3}", sm.HasGaps, sm.GapValues)
	}
}

func TestContiguousRangeLabelsNoGaps(t *testing.T) {
	src := `CASE nState OF
0..2: a := 1;
3: a := 2;
END_CASE`
	machines := ExtractStateMachines("a.st", src, nil, StateMachineOptions{})
	if len(machines) != 1 {
		t.Fatalf("expected 1 state machine, got %d", len(machines))
	}
	if machines[0].HasGaps {
		t.Errorf("values inside the range reported as gaps: %v", machines[0].GapValues)
	}
}

func TestOversizedRangeDisablesGapReport(t *testing.T) {
	src := `CASE nState OF
0..1000: a := 1;
1002: a := 2;
END_CASE`
	machines := ExtractStateMachines("a.st", src, nil, StateMachineOptions{})
	if len(machines) != 1 {
		t.Fatalf("expected 1 state machine, got %d", len(machines))
	}
	if machines[0].HasGaps {
		t.Errorf("oversized range produced gap report: %v", machines[0].GapValues)
	}
}

func TestMissingEndCaseBoundedScan(t *testing.T) {
	src := `CASE nState OF
0: a := 1;
1: a := 2;`
	machines := ExtractStateMachines("a.st", src, nil, StateMachineOptions{})
	// Still best-effort: arms found so far are returned.
	if len(machines) != 1 {
		t.Fatalf("missing END_CASE dropped the machine entirely: %+v", machines)
	}
	if machines[0].StateCount != 2 {
		t.Errorf("states %+v", machines[0].States)
	}
}

func TestNestedCaseSeparatedMachines(t *testing.T) {
	src := `CASE nState OF
0:
    CASE nSubStep OF
    0: b := 1;
    1: b := 2;
    END_CASE
1: a := 2;
END_CASE`
	machines := ExtractStateMachines("a.st", src, nil, StateMachineOptions{})
	if len(machines) != 2 {
		t.Fatalf("expected outer and nested machines, got %d", len(machines))
	}
	outer := machines[0]
	if outer.Variable != "nState" || outer.StateCount != 2 {
		t.Errorf("outer machine %+v", outer)
	}
	inner := machines[1]
	if inner.Variable != "nSubStep" || inner.StateCount != 2 {
		t.Errorf("inner machine %+v", inner)
	}
}
