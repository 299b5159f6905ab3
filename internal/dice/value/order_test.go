package value

import (
	"math"
	"testing"
)

func TestCompare(t *testing.T) {
	nan := Float(math.NaN())
	tests := []struct {
		name string
		a, b Deep
		want int
	}{
		{name: "ints", a: NewInt(2), b: NewInt(3), want: -1},
		{name: "int float equal", a: NewInt(2), b: Float(2), want: 0},
		{name: "float int", a: Float(2.5), b: NewInt(2), want: 1},
		{name: "char int", a: Char('a'), b: NewInt(97), want: 0},
		{name: "char float", a: Char('a'), b: Float(97.5), want: -1},
		{name: "normalized floats", a: Float(0.1 + 0.2), b: Float(0.3), want: 0},
		{name: "nan nan", a: nan, b: nan, want: 0},
		{name: "nan below float", a: nan, b: Float(math.Inf(-1)), want: -1},
		{name: "float above nan", a: Float(-1e300), b: nan, want: 1},
		{name: "nan below int", a: nan, b: NewInt(-5), want: -1},
		{name: "int above nan", a: NewInt(-5), b: nan, want: 1},
		{name: "array length first", a: Ints(9, 9), b: Ints(1, 1, 1), want: -1},
		{name: "array lexicographic", a: Ints(1, 2, 4), b: Ints(1, 3, 0), want: -1},
		{name: "array equal", a: Ints(1, 2), b: Array{Float(1), NewInt(2)}, want: 0},
		{name: "scalar vs array first", a: NewInt(5), b: Ints(4, 100), want: 1},
		{name: "array first vs scalar", a: Ints(4, 100), b: NewInt(5), want: -1},
		{name: "scalar vs empty", a: NewInt(5), b: Array{}, want: 1},
		{name: "empty vs scalar", a: Array{}, b: NewInt(5), want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Compare(tt.a, tt.b); got != tt.want {
				t.Fatalf("Compare(%s, %s) = %d, want %d", Format(tt.a), Format(tt.b), got, tt.want)
			}
		})
	}
}

func TestNaNSortsBelowEverything(t *testing.T) {
	nan := Float(math.NaN())
	for _, v := range []Deep{NewInt(math.MinInt64), Float(math.Inf(-1)), Char(0), Float(0)} {
		if Compare(nan, v) >= 0 {
			t.Fatalf("Compare(NaN, %s) >= 0", Format(v))
		}
		if Compare(v, nan) <= 0 {
			t.Fatalf("Compare(%s, NaN) <= 0", Format(v))
		}
	}
	if !Equal(nan, nan) {
		t.Fatal("NaN should equal NaN")
	}
}

func TestNormFloat(t *testing.T) {
	if got := NormFloat(1.0000004); got != 1 {
		t.Fatalf("NormFloat(1.0000004) = %v, want 1", got)
	}
	if got := NormFloat(1e300); got != 1e300 {
		t.Fatalf("NormFloat(1e300) = %v, want 1e300", got)
	}
	// past 1e15 the scaled value loses its fraction, so it is left alone
	for _, f := range []float64{1e15 + 0.5, -1e15 - 0.5} {
		if got := NormFloat(f); got != f {
			t.Fatalf("NormFloat(%v) = %v, want unchanged", f, got)
		}
	}
}
