package value

import (
	"errors"
	"slices"
	"testing"

	"github.com/louisbranch/dicebox/internal/dice/evalerr"
)

func TestEnvGetErrors(t *testing.T) {
	env := NewEnv()
	if err := env.Set(Place{Name: "x"}, Array{Ints(1, 2), NewInt(3)}); err != nil {
		t.Fatalf("Set error = %v", err)
	}

	tests := []struct {
		name   string
		place  Place
		reason ResolveReason
		path   []int
		msg    string
	}{
		{name: "undefined", place: Place{Name: "y"}, reason: UndefinedVariable, msg: "undefined variable `y`"},
		{name: "out of bounds", place: Place{Name: "x", Index: []int{0, 5, 1}}, reason: IndexOutOfBounds, path: []int{0, 5}, msg: "index out of bounds: `x[0][5]`"},
		{name: "negative", place: Place{Name: "x", Index: []int{-1}}, reason: IndexOutOfBounds, path: []int{-1}, msg: "index out of bounds: `x[-1]`"},
		{name: "non array", place: Place{Name: "x", Index: []int{1, 0, 0}}, reason: IndexIntoNonArray, path: []int{1, 0}, msg: "cannot index into non-array: `x[1][0]`"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.Get(tt.place)
			var resolveErr *ResolveError
			if !errors.As(err, &resolveErr) {
				t.Fatalf("Get error = %v, want ResolveError", err)
			}
			if resolveErr.Reason != tt.reason || resolveErr.Name != tt.place.Name || !slices.Equal(resolveErr.Path, tt.path) {
				t.Fatalf("ResolveError = %+v, want reason %v path %v", resolveErr, tt.reason, tt.path)
			}
			if resolveErr.Error() != tt.msg {
				t.Fatalf("message = %q, want %q", resolveErr.Error(), tt.msg)
			}
			if evalerr.KindOf(err) != evalerr.Resolve {
				t.Fatalf("kind = %v, want resolve", evalerr.KindOf(err))
			}
		})
	}
}

func TestEnvSetIndexed(t *testing.T) {
	env := NewEnv()
	if err := env.Set(Place{Name: "x"}, Array{Ints(1, 2), NewInt(3)}); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	before, _ := env.Get(Place{Name: "x"})

	if err := env.Set(Place{Name: "x", Index: []int{0, 1}}, NewInt(9)); err != nil {
		t.Fatalf("Set indexed error = %v", err)
	}
	got, err := env.Get(Place{Name: "x"})
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if want := "[[1, 9], 3]"; Format(got) != want {
		t.Fatalf("x = %s, want %s", Format(got), want)
	}
	if want := "[[1, 2], 3]"; Format(before) != want {
		t.Fatalf("earlier read mutated to %s, want %s", Format(before), want)
	}

	if err := env.Set(Place{Name: "x", Index: []int{4}}, NewInt(1)); err == nil {
		t.Fatal("expected out of bounds error")
	}
	if err := env.Set(Place{Name: "nope", Index: []int{0}}, NewInt(1)); err == nil {
		t.Fatal("expected undefined variable error")
	}
}

func TestEnvNamesKeepDefinitionOrder(t *testing.T) {
	env := NewEnv()
	for _, name := range []string{"b", "a", "b", "c"} {
		if err := env.Set(Place{Name: name}, NewInt(1)); err != nil {
			t.Fatalf("Set error = %v", err)
		}
	}
	if got, want := env.Names(), []string{"b", "a", "c"}; !slices.Equal(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}
	if env.Len() != 3 {
		t.Fatalf("Len = %d, want 3", env.Len())
	}
}

func TestResolverForcesPlaces(t *testing.T) {
	r := newResolver(&scripted{values: []int{0}})
	if err := r.Env.Set(Place{Name: "x"}, Ints(4, 5)); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	resolved, err := r.Resolve(Place{Name: "x"})
	if err != nil {
		t.Fatalf("Resolve error = %v", err)
	}
	if _, ok := resolved.(LazyArray); !ok {
		t.Fatalf("Resolve = %T, want LazyArray", resolved)
	}
	deep, err := r.Deep(LazyArray{Place{Name: "x", Index: []int{1}}, NewDice(2, SidesUpTo(1))})
	if err != nil {
		t.Fatalf("Deep error = %v", err)
	}
	if want := "[5, 2]"; Format(deep) != want {
		t.Fatalf("Deep = %s, want %s", Format(deep), want)
	}
}

func TestEnvCloneIsIndependent(t *testing.T) {
	env := NewEnv()
	if err := env.Set(Place{Name: "x"}, Ints(1, 2)); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	clone := env.Clone()
	if err := clone.Set(Place{Name: "x", Index: []int{0}}, NewInt(9)); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	if err := clone.Set(Place{Name: "y"}, NewInt(3)); err != nil {
		t.Fatalf("Set error = %v", err)
	}

	got, err := env.Get(Place{Name: "x"})
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if !Equal(got, Ints(1, 2)) {
		t.Fatalf("original x = %s, want [1, 2]", Format(got))
	}
	if env.Len() != 1 {
		t.Fatalf("original Len = %d, want 1", env.Len())
	}

	env.Replace(clone)
	if names := env.Names(); !slices.Equal(names, []string{"x", "y"}) {
		t.Fatalf("Names after Replace = %v, want [x y]", names)
	}
}
