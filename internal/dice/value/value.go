// Package value holds the runtime values of the dice engine.
//
// Values exist in three stages, each its own closed set of types:
//
//   - Lazy: what the evaluator passes around. Dice terms and variable
//     references stay unforced. Int, Float, Char, LazyArray, Place and Dice.
//   - Resolved: the top level is concrete but array elements may still be
//     lazy. Int, Float, Char and LazyArray.
//   - Deep: fully concrete. Int, Float, Char and Array.
//
// Conversions from a later stage to an earlier one never fail; the other
// direction goes through a Resolver.
package value

import (
	"math/big"
	"strconv"
	"strings"
)

// Lazy is a value that may contain unforced dice or variable references.
type Lazy interface {
	lazy()
}

// Resolved is a value whose top level is concrete.
type Resolved interface {
	resolved()
}

// Deep is a fully concrete value.
type Deep interface {
	deep()
}

// Int is an arbitrary precision integer. The wrapped *big.Int is never
// mutated after construction.
type Int struct {
	V *big.Int
}

// Float is a 64-bit float.
type Float float64

// Char is a single Unicode code point.
type Char rune

// Array is a deep-resolved array.
type Array []Deep

// LazyArray is an array whose elements are not yet resolved.
type LazyArray []Lazy

// Place references a variable, optionally indexed into nested arrays.
type Place struct {
	Name  string
	Index []int
}

func (Int) lazy()       {}
func (Float) lazy()     {}
func (Char) lazy()      {}
func (LazyArray) lazy() {}
func (Place) lazy()     {}
func (Dice) lazy()      {}

func (Int) resolved()       {}
func (Float) resolved()     {}
func (Char) resolved()      {}
func (LazyArray) resolved() {}

func (Int) deep()   {}
func (Float) deep() {}
func (Char) deep()  {}
func (Array) deep() {}

// NewInt returns n as an Int.
func NewInt(n int64) Int {
	return Int{V: big.NewInt(n)}
}

// BigInt wraps n. The caller must not mutate n afterwards.
func BigInt(n *big.Int) Int {
	return Int{V: n}
}

func (n Int) big() *big.Int {
	if n.V == nil {
		return new(big.Int)
	}
	return n.V
}

// String returns the decimal form of n.
func (n Int) String() string {
	return n.big().String()
}

// Float64 widens n, returning ±Inf when it does not fit.
func (n Int) Float64() float64 {
	f, _ := new(big.Float).SetInt(n.big()).Float64()
	return f
}

// Str converts s into an array of characters.
func Str(s string) Array {
	arr := make(Array, 0, len(s))
	for _, r := range s {
		arr = append(arr, Char(r))
	}
	return arr
}

// Ints builds an array of integers.
func Ints(ns ...int64) Array {
	arr := make(Array, len(ns))
	for i, n := range ns {
		arr[i] = NewInt(n)
	}
	return arr
}

// String renders p as written in source, e.g. `x[0][2]`.
func (p Place) String() string {
	return p.Name + indexPath(p.Index)
}

// At returns a copy of p indexed one level further.
func (p Place) At(i int) Place {
	index := make([]int, len(p.Index), len(p.Index)+1)
	copy(index, p.Index)
	return Place{Name: p.Name, Index: append(index, i)}
}

func indexPath(index []int) string {
	var b strings.Builder
	for _, i := range index {
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(']')
	}
	return b.String()
}

// Lift converts a deep value into a lazy one.
func Lift(v Deep) Lazy {
	switch v := v.(type) {
	case Int:
		return v
	case Float:
		return v
	case Char:
		return v
	case Array:
		arr := make(LazyArray, len(v))
		for i, elem := range v {
			arr[i] = Lift(elem)
		}
		return arr
	default:
		panic("value: unknown deep value")
	}
}

// Shallow converts a deep value into a resolved one.
func Shallow(v Deep) Resolved {
	switch v := v.(type) {
	case Int:
		return v
	case Float:
		return v
	case Char:
		return v
	case Array:
		return Lift(v).(LazyArray)
	default:
		panic("value: unknown deep value")
	}
}

// Unresolve converts a resolved value back into a lazy one.
func Unresolve(v Resolved) Lazy {
	switch v := v.(type) {
	case Int:
		return v
	case Float:
		return v
	case Char:
		return v
	case LazyArray:
		return v
	default:
		panic("value: unknown resolved value")
	}
}

// Truthy reports whether v counts as true for `||` and `&&`.
func Truthy(v Deep) bool {
	switch v := v.(type) {
	case Int:
		return v.big().Sign() != 0
	case Float:
		return v != 0
	case Char:
		return v != 0
	case Array:
		return len(v) > 0
	default:
		return false
	}
}

// TypeName names the kind of v for error messages.
func TypeName(v any) string {
	switch v.(type) {
	case Int:
		return "integer"
	case Float:
		return "number"
	case Char:
		return "character"
	case Array, LazyArray:
		return "array"
	case Place:
		return "variable"
	case Dice:
		return "dice"
	default:
		return "value"
	}
}
