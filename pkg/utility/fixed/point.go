package fixed

import (
	"errors"
	"math"

	"github.com/govalues/decimal"
)

// ErrNotFinite is reported when a float conversion receives NaN or ±Inf.
var ErrNotFinite = errors.New("not a finite number")

// ErrOutOfRange is reported for finite values whose magnitude exceeds
// MaxAbsValue.
var ErrOutOfRange = errors.New("value magnitude out of range")

// MaxAbsValue bounds the magnitude ParseFloat64 accepts. The deviation
// of two in-range values squares to at most 4e18, which fits the
// 19-digit decimal coefficient, so window statistics over in-range
// values never overflow.
var MaxAbsValue = FromInt64(1_000_000_000, 0)

// Point is an unsafe wrapper around decimal implementation. Caller must make sure the calculations
// are correct and will not result in an error state, otherwise it will panic
type Point struct {
	v decimal.Decimal
}

func FromInt(value int, scale int) Point {
	return Point{must(decimal.New(int64(value), scale))}
}

func FromInt64(value int64, scale int) Point {
	return Point{must(decimal.New(value, scale))}
}

func FromFloat64(value float64) Point {
	return Point{must(decimal.NewFromFloat64(value))}
}

// ParseFloat64 converts a float to a Point, reporting ErrNotFinite for
// NaN and ±Inf and ErrOutOfRange for magnitudes above MaxAbsValue
// instead of panicking. Use it on untrusted inputs.
func ParseFloat64(value float64) (Point, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Point{}, ErrNotFinite
	}
	v, err := decimal.NewFromFloat64(value)
	if err != nil {
		return Point{}, ErrOutOfRange
	}
	p := Point{v}
	if p.Abs().Gt(MaxAbsValue) {
		return Point{}, ErrOutOfRange
	}
	return p, nil
}

func (p Point) String() string           { return p.v.String() }
func (p Point) Float64() (float64, bool) { return p.v.Float64() }

func (p Point) Abs() Point { return Point{p.v.Abs()} }
func (p Point) Neg() Point { return Point{p.v.Neg()} }

func (p Point) Add(o Point) Point { return Point{must(p.v.Add(o.v))} }
func (p Point) Sub(o Point) Point { return Point{must(p.v.Sub(o.v))} }
func (p Point) Mul(o Point) Point { return Point{must(p.v.Mul(o.v))} }
func (p Point) Div(o Point) Point { return Point{must(p.v.Quo(o.v))} }

func (p Point) MulInt(o int) Point { return Point{must(p.v.Mul(decimal.MustNew(int64(o), 0)))} }
func (p Point) DivInt(o int) Point { return Point{must(p.v.Quo(decimal.MustNew(int64(o), 0)))} }

func (p Point) Eq(o Point) bool  { return p.v.Cmp(o.v) == 0 }
func (p Point) Gt(o Point) bool  { return p.v.Cmp(o.v) > 0 }
func (p Point) Lt(o Point) bool  { return p.v.Cmp(o.v) < 0 }
func (p Point) Gte(o Point) bool { return p.v.Cmp(o.v) >= 0 }
func (p Point) Lte(o Point) bool { return p.v.Cmp(o.v) <= 0 }

func (p Point) IsZero() bool            { return p.v.IsZero() }
func (p Point) Rescale(scale int) Point { return Point{p.v.Rescale(scale)} }

func (p Point) Sqrt() Point { return Point{must(p.v.Sqrt())} }
func (p Point) Exp() Point  { return Point{must(p.v.Exp())} }

func (p Point) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// MarshalJSON renders the value as a bare JSON number.
func (p Point) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Point) UnmarshalJSON(data []byte) error {
	if len(data) >= 2 && data[0] == '"' && data[len(data)-1] == '"' {
		data = data[1 : len(data)-1]
	}
	return p.UnmarshalText(data)
}

func (p *Point) UnmarshalText(data []byte) error {
	v, err := decimal.Parse(string(data))
	if err != nil {
		return err
	}
	p.v = v
	return nil
}

func must(v decimal.Decimal, err error) decimal.Decimal {
	if err == nil {
		// Return in the happy path
		return v
	}
	panic(err)
}
