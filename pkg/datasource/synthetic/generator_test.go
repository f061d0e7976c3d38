package synthetic

import (
	"errors"
	"testing"
	"time"

	"github.com/peter-kozarec/vigil/pkg/datasource"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

func TestSyntheticPointGenerator_FiniteStream(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewPointGenerator(42, start, fixed.FromInt(100, 0), 0.5, 10)

	for i := 0; i < 10; i++ {
		point, err := g.GetNext()
		if err != nil {
			t.Fatalf("GetNext %d: %v", i, err)
		}
		if !point.TimeStamp.After(start.Add(time.Duration(i) * time.Second).Add(-time.Millisecond)) {
			t.Errorf("point %d: timestamp %v not advancing", i, point.TimeStamp)
		}
	}

	if _, err := g.GetNext(); !errors.Is(err, datasource.ErrEof) {
		t.Errorf("expected ErrEof after steps exhausted, got %v", err)
	}
}

func TestSyntheticPointGenerator_ResetReplaysSequence(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewPointGenerator(7, start, fixed.FromInt(50, 0), 1.0, 25)

	var first []string
	for i := 0; i < 25; i++ {
		point, err := g.GetNext()
		if err != nil {
			t.Fatalf("GetNext %d: %v", i, err)
		}
		first = append(first, point.Value.String())
	}

	if err := g.Reset(); err != nil {
		t.Fatalf("reset: %v", err)
	}

	for i := 0; i < 25; i++ {
		point, err := g.GetNext()
		if err != nil {
			t.Fatalf("GetNext after reset %d: %v", i, err)
		}
		if point.Value.String() != first[i] {
			t.Fatalf("point %d differs after reset: got %s, want %s", i, point.Value, first[i])
		}
	}
}

func TestSyntheticPointGenerator_OutOfRangeBaseline(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewPointGenerator(3, start, fixed.FromFloat64(5e9), 1.0, 5)

	if _, err := g.GetNext(); !errors.Is(err, fixed.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange, got %v", err)
	}
}

func TestSyntheticPointGenerator_InfiniteStream(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	g := NewPointGenerator(1, start, fixed.FromInt(10, 0), 0.1, 0)

	for i := 0; i < 1000; i++ {
		if _, err := g.GetNext(); err != nil {
			t.Fatalf("GetNext %d: %v", i, err)
		}
	}
}
