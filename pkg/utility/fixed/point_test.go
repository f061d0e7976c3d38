package fixed

import (
	"errors"
	"math"
	"testing"
)

func TestFixedPoint_Arithmetic(t *testing.T) {
	a := FromInt64(385, 1) // 38.5
	b := FromFloat64(1.25).Sqrt()

	z := a.Div(b)
	f, _ := z.Float64()
	if diff := f - 34.43544685349676; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("div: got %v", f)
	}

	if !FromInt(2, 0).Mul(FromInt(3, 0)).Eq(FromInt(6, 0)) {
		t.Error("2*3 != 6")
	}
	if !FromInt(5, 0).Sub(FromInt(7, 0)).Eq(FromInt(-2, 0)) {
		t.Error("5-7 != -2")
	}
	if !FromInt(-4, 0).Abs().Eq(FromInt(4, 0)) {
		t.Error("abs(-4) != 4")
	}
	if !FromInt(4, 0).Neg().Eq(FromInt(-4, 0)) {
		t.Error("neg(4) != -4")
	}
	if !FromInt(9, 0).Sqrt().Eq(FromInt(3, 0)) {
		t.Error("sqrt(9) != 3")
	}
}

func TestFixedPoint_ParseFloat64(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		wantErr error
	}{
		{
			name:  "finite value",
			value: 12.5,
		},
		{
			name:  "zero",
			value: 0,
		},
		{
			name:  "range boundary",
			value: 1e9,
		},
		{
			name:  "negative range boundary",
			value: -1e9,
		},
		{
			name:    "NaN",
			value:   math.NaN(),
			wantErr: ErrNotFinite,
		},
		{
			name:    "positive infinity",
			value:   math.Inf(1),
			wantErr: ErrNotFinite,
		},
		{
			name:    "negative infinity",
			value:   math.Inf(-1),
			wantErr: ErrNotFinite,
		},
		{
			name:    "above range",
			value:   1e10,
			wantErr: ErrOutOfRange,
		},
		{
			name:    "below range",
			value:   -1e10,
			wantErr: ErrOutOfRange,
		},
		{
			name:    "unrepresentable magnitude",
			value:   1e300,
			wantErr: ErrOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseFloat64(tt.value)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			f, _ := p.Float64()
			if f != tt.value {
				t.Errorf("roundtrip: got %v, want %v", f, tt.value)
			}
		})
	}
}

func TestFixedPoint_TextMarshalling(t *testing.T) {
	p := FromInt64(23, 1)

	data, err := p.MarshalText()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "2.3" {
		t.Errorf("marshal: got %q, want %q", data, "2.3")
	}

	var q Point
	if err := q.UnmarshalText(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !q.Eq(p) {
		t.Errorf("roundtrip: got %v, want %v", q, p)
	}
}

func TestFixedPoint_Comparisons(t *testing.T) {
	small := FromInt(1, 0)
	large := FromInt(2, 0)

	if !small.Lt(large) || !small.Lte(large) || !small.Lte(small) {
		t.Error("less-than comparisons failed")
	}
	if !large.Gt(small) || !large.Gte(small) || !large.Gte(large) {
		t.Error("greater-than comparisons failed")
	}
	if !Zero.IsZero() {
		t.Error("Zero should be zero")
	}
}
