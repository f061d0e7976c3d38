package fixed

import (
	"testing"
)

func assertRingBufferEqual(t *testing.T, rb *RingBuffer, expected []float64, msg string) {
	t.Helper()
	if rb.Size() != len(expected) {
		t.Errorf("%s: size mismatch - got %d, want %d", msg, rb.Size(), len(expected))
		return
	}

	for i, exp := range expected {
		got := rb.Get(i)
		want := FromFloat64(exp)
		if !got.Eq(want) {
			t.Errorf("%s: at index %d - got %v, want %v", msg, i, got, want)
		}
	}
}

func TestFixedRingBuffer_NewRingBuffer(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		wantPanic bool
	}{
		{
			name:      "positive capacity",
			capacity:  10,
			wantPanic: false,
		},
		{
			name:      "capacity of 1",
			capacity:  1,
			wantPanic: false,
		},
		{
			name:      "zero capacity",
			capacity:  0,
			wantPanic: true,
		},
		{
			name:      "negative capacity",
			capacity:  -5,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("expected panic for capacity %d", tt.capacity)
					}
				}()
			}

			rb := NewRingBuffer(tt.capacity)

			if !tt.wantPanic {
				if rb.Capacity() != tt.capacity {
					t.Errorf("capacity: got %d, want %d", rb.Capacity(), tt.capacity)
				}
				if rb.Size() != 0 {
					t.Errorf("initial size: got %d, want 0", rb.Size())
				}
				if !rb.IsEmpty() {
					t.Error("new buffer should be empty")
				}
				if rb.IsFull() {
					t.Error("new buffer should not be full")
				}
			}
		})
	}
}

func TestFixedRingBuffer_Add(t *testing.T) {
	rb := NewRingBuffer(3)

	rb.Add(FromFloat64(1.0))
	assertRingBufferEqual(t, rb, []float64{1.0}, "after first add")

	rb.Add(FromFloat64(2.0))
	assertRingBufferEqual(t, rb, []float64{2.0, 1.0}, "after second add")

	rb.Add(FromFloat64(3.0))
	assertRingBufferEqual(t, rb, []float64{3.0, 2.0, 1.0}, "after third add")

	rb.Add(FromFloat64(4.0))
	assertRingBufferEqual(t, rb, []float64{4.0, 3.0, 2.0}, "after wraparound")

	rb.Add(FromFloat64(5.0))
	assertRingBufferEqual(t, rb, []float64{5.0, 4.0, 3.0}, "after second wraparound")
}

func TestFixedRingBuffer_LatestOldest(t *testing.T) {
	rb := NewRingBuffer(3)

	rb.Add(FromFloat64(10.0))
	rb.Add(FromFloat64(20.0))

	if !rb.Latest().Eq(FromFloat64(20.0)) {
		t.Errorf("latest: got %v, want 20", rb.Latest())
	}
	if !rb.Oldest().Eq(FromFloat64(10.0)) {
		t.Errorf("oldest: got %v, want 10", rb.Oldest())
	}

	rb.Add(FromFloat64(30.0))
	rb.Add(FromFloat64(40.0))

	if !rb.Latest().Eq(FromFloat64(40.0)) {
		t.Errorf("latest after eviction: got %v, want 40", rb.Latest())
	}
	if !rb.Oldest().Eq(FromFloat64(20.0)) {
		t.Errorf("oldest after eviction: got %v, want 20", rb.Oldest())
	}
}

func TestFixedRingBuffer_ToSliceFifo(t *testing.T) {
	rb := NewRingBuffer(4)

	if got := rb.ToSliceFifo(); got != nil {
		t.Errorf("empty buffer: got %v, want nil", got)
	}

	for _, v := range []float64{1.0, 2.0, 3.0, 4.0, 5.0} {
		rb.Add(FromFloat64(v))
	}

	fifo := rb.ToSliceFifo()
	expected := []float64{2.0, 3.0, 4.0, 5.0}
	for i, exp := range expected {
		if !fifo[i].Eq(FromFloat64(exp)) {
			t.Errorf("fifo[%d]: got %v, want %v", i, fifo[i], exp)
		}
	}
}

func TestFixedRingBuffer_Statistics(t *testing.T) {
	tests := []struct {
		name       string
		capacity   int
		values     []float64
		wantMean   float64
		wantStdDev float64
	}{
		{
			name:       "empty buffer",
			capacity:   5,
			values:     nil,
			wantMean:   0,
			wantStdDev: 0,
		},
		{
			name:       "single value",
			capacity:   5,
			values:     []float64{42.0},
			wantMean:   42.0,
			wantStdDev: 0,
		},
		{
			name:       "identical values",
			capacity:   5,
			values:     []float64{7.0, 7.0, 7.0},
			wantMean:   7.0,
			wantStdDev: 0,
		},
		{
			name:       "known population deviation",
			capacity:   5,
			values:     []float64{10.0, 12.0, 11.0, 13.0},
			wantMean:   11.5,
			wantStdDev: 1.118033988749895,
		},
		{
			name:       "eviction drops oldest from statistics",
			capacity:   2,
			values:     []float64{100.0, 4.0, 6.0},
			wantMean:   5.0,
			wantStdDev: 1.0,
		},
		{
			name:       "full-range magnitudes",
			capacity:   5,
			values:     []float64{1e9, -1e9, 1e9, -1e9},
			wantMean:   0,
			wantStdDev: 1e9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rb := NewRingBuffer(tt.capacity)
			for _, v := range tt.values {
				rb.Add(FromFloat64(v))
			}

			gotMean, _ := rb.Mean().Float64()
			if diff := gotMean - tt.wantMean; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("mean: got %v, want %v", gotMean, tt.wantMean)
			}

			gotStdDev, _ := rb.StdDev().Float64()
			if diff := gotStdDev - tt.wantStdDev; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("stddev: got %v, want %v", gotStdDev, tt.wantStdDev)
			}
		})
	}
}

func TestFixedRingBuffer_MinMax(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, v := range []float64{5.0, 1.0, 9.0} {
		rb.Add(FromFloat64(v))
	}

	if !rb.Min().Eq(FromFloat64(1.0)) {
		t.Errorf("min: got %v, want 1", rb.Min())
	}
	if !rb.Max().Eq(FromFloat64(9.0)) {
		t.Errorf("max: got %v, want 9", rb.Max())
	}
}

func TestFixedRingBuffer_Clear(t *testing.T) {
	rb := NewRingBuffer(3)
	rb.Add(FromFloat64(1.0))
	rb.Add(FromFloat64(2.0))

	rb.Clear()

	if !rb.IsEmpty() {
		t.Error("buffer should be empty after clear")
	}
	if rb.Size() != 0 {
		t.Errorf("size after clear: got %d, want 0", rb.Size())
	}
}
