package stream

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/peter-kozarec/vigil/pkg/bus"
	"github.com/peter-kozarec/vigil/pkg/common"
	"github.com/peter-kozarec/vigil/pkg/datasource"
	"github.com/peter-kozarec/vigil/pkg/utility/fixed"
)

func testPoints(values ...float64) []common.DataPoint {
	points := make([]common.DataPoint, 0, len(values))
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, v := range values {
		points = append(points, common.DataPoint{
			Value:     fixed.FromFloat64(v),
			TimeStamp: base.Add(time.Duration(i) * time.Second),
		})
	}
	return points
}

func TestReplayer_FeedStopsAtEof(t *testing.T) {
	router := bus.NewRouter(16)

	var received []common.DataPoint
	router.OnPoint = func(_ context.Context, point common.DataPoint) {
		received = append(received, point)
	}

	source := datasource.NewSliceSource(testPoints(1, 2, 3))
	replayer := NewReplayer(router, source, 0, false)

	done := router.ExecLoop(context.Background(), replayer.Feed)

	select {
	case err := <-done:
		if !errors.Is(err, datasource.ErrEof) {
			t.Fatalf("expected ErrEof, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("replay did not finish")
	}

	if len(received) != 3 {
		t.Fatalf("received %d points, want 3", len(received))
	}
	for i, want := range []float64{1, 2, 3} {
		if !received[i].Value.Eq(fixed.FromFloat64(want)) {
			t.Errorf("point %d: got %v, want %v", i, received[i].Value, want)
		}
	}
	if replayer.Pass() != 0 {
		t.Errorf("pass: got %d, want 0", replayer.Pass())
	}
}

func TestReplayer_LoopRewindsSource(t *testing.T) {
	router := bus.NewRouter(64)

	var pointCount atomic.Int64
	var resetCount atomic.Int64
	router.OnPoint = func(_ context.Context, _ common.DataPoint) {
		pointCount.Add(1)
	}
	router.OnReset = func(_ context.Context, _ common.StreamReset) {
		resetCount.Add(1)
	}

	source := datasource.NewSliceSource(testPoints(1, 2))
	replayer := NewReplayer(router, source, 0, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := router.ExecLoop(ctx, replayer.Feed)

	deadline := time.After(5 * time.Second)
	for pointCount.Load() < 6 {
		select {
		case <-deadline:
			t.Fatal("loop did not wrap the source in time")
		case <-time.After(time.Millisecond):
		}
	}
	cancel()
	<-done

	if resetCount.Load() < 2 {
		t.Errorf("reset count: got %d, want at least 2", resetCount.Load())
	}
	if replayer.Pass() < 2 {
		t.Errorf("pass: got %d, want at least 2", replayer.Pass())
	}
}

type faultySource struct {
	points []common.DataPoint
	errAt  int
	err    error
	idx    int
}

func (s *faultySource) GetNext() (common.DataPoint, error) {
	if s.idx == s.errAt {
		s.idx++
		return common.DataPoint{}, s.err
	}
	if s.idx >= len(s.points)+1 {
		return common.DataPoint{}, datasource.ErrEof
	}
	i := s.idx
	if i > s.errAt {
		i--
	}
	s.idx++
	return s.points[i], nil
}

func (s *faultySource) Reset() error {
	s.idx = 0
	return nil
}

func TestReplayer_SkipsBadEntries(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "non-finite value",
			err:  fixed.ErrNotFinite,
		},
		{
			name: "out-of-range value",
			err:  fixed.ErrOutOfRange,
		},
		{
			name: "malformed row",
			err:  fmt.Errorf("bad timestamp at row 2: %w", datasource.ErrBadRow),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := bus.NewRouter(16)

			var received []common.DataPoint
			var rejections []common.Rejection
			router.OnPoint = func(_ context.Context, point common.DataPoint) {
				received = append(received, point)
			}
			router.OnRejection = func(_ context.Context, rejection common.Rejection) {
				rejections = append(rejections, rejection)
			}

			source := &faultySource{points: testPoints(1, 2), errAt: 1, err: tt.err}
			replayer := NewReplayer(router, source, 0, false)

			done := router.ExecLoop(context.Background(), replayer.Feed)

			select {
			case err := <-done:
				if !errors.Is(err, datasource.ErrEof) {
					t.Fatalf("expected ErrEof, got %v", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("replay did not finish")
			}

			if len(received) != 2 {
				t.Errorf("received %d points, want 2", len(received))
			}
			if len(rejections) != 1 {
				t.Fatalf("rejections: got %d, want 1", len(rejections))
			}
			if rejections[0].Reason == "" {
				t.Error("rejection reason is empty")
			}
		})
	}
}

func TestReplayer_IntervalHonorsContext(t *testing.T) {
	router := bus.NewRouter(16)
	source := datasource.NewSliceSource(testPoints(1))
	replayer := NewReplayer(router, source, time.Hour, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := replayer.Feed(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
