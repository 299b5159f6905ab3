package value

import (
	"math"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		v    Deep
		want string
	}{
		{name: "int", v: NewInt(-42), want: "-42"},
		{name: "float", v: Float(0.03), want: "0.03"},
		{name: "small float", v: Float(3e-6), want: "0.000003"},
		{name: "whole float", v: Float(7), want: "7"},
		{name: "nan", v: Float(math.NaN()), want: "NaN"},
		{name: "inf", v: Float(math.Inf(-1)), want: "-inf"},
		{name: "char", v: Char('x'), want: "'x'"},
		{name: "empty", v: Array{}, want: "[]"},
		{name: "single", v: Ints(2), want: "[2]"},
		{name: "nested", v: Array{Ints(1, 2), Ints(3), Ints(4, 5)}, want: "[[1, 2], [3], [4, 5]]"},
		{name: "string", v: Str(`say "hi"`), want: `"say \"hi\""`},
		{name: "mixed chars", v: Array{Char('a'), NewInt(1)}, want: "['a', 1]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.v); got != tt.want {
				t.Fatalf("Format = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestText(t *testing.T) {
	if s, ok := Text(Str("héllo")); !ok || s != "héllo" {
		t.Fatalf("Text = %q, %v, want héllo", s, ok)
	}
	if _, ok := Text(Array{}); ok {
		t.Fatal("empty array should not be text")
	}
	if _, ok := Text(NewInt(1)); ok {
		t.Fatal("int should not be text")
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		name    string
		v       Deep
		want    int
		wantErr bool
	}{
		{name: "int", v: NewInt(12), want: 12},
		{name: "whole float", v: Float(6.0000001), want: 6},
		{name: "fraction", v: Float(6.5), wantErr: true},
		{name: "char", v: Char('A'), want: 65},
		{name: "huge", v: NewInt(1 << 40), wantErr: true},
		{name: "array", v: Ints(1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToInt(tt.v)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ToInt(%s) expected error", Format(tt.v))
				}
				return
			}
			if err != nil {
				t.Fatalf("ToInt(%s) error = %v", Format(tt.v), err)
			}
			if got != tt.want {
				t.Fatalf("ToInt(%s) = %d, want %d", Format(tt.v), got, tt.want)
			}
		})
	}
}
