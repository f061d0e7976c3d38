package utility

import (
	"testing"
	"time"
)

func TestUtilityTraceID_Unique(t *testing.T) {
	seen := make(map[TraceID]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := CreateTraceID()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate trace id after %d iterations", i)
		}
		seen[id] = struct{}{}
	}
}

func TestUtilityTraceID_Parse(t *testing.T) {
	before := time.Now().Truncate(time.Millisecond)
	id := CreateTraceID()
	after := time.Now()

	ts, machine, seq := ParseTraceID(id)

	if ts.Before(before.Add(-time.Millisecond)) || ts.After(after.Add(time.Millisecond)) {
		t.Errorf("timestamp %v outside [%v, %v]", ts, before, after)
	}
	if machine > maxMachine {
		t.Errorf("machine id %d out of range", machine)
	}
	if seq > maxSequence {
		t.Errorf("sequence %d out of range", seq)
	}
}

func TestUtilityExecutionID_Stable(t *testing.T) {
	first := GetExecutionID()
	second := GetExecutionID()
	if first != second {
		t.Error("execution id changed between calls")
	}

	reset := ResetExecutionID()
	if reset == first {
		t.Error("reset did not produce a new execution id")
	}
	if got := GetExecutionID(); got != reset {
		t.Error("execution id not stable after reset")
	}
}
