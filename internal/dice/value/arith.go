package value

import (
	"math/big"

	"github.com/louisbranch/dicebox/internal/dice/evalerr"
)

// MaxIntBits bounds the size of integer results.
const MaxIntBits = 1 << 16

// Yield is called at every broadcast and explode iteration. A non-nil error
// aborts the computation and is returned unchanged.
type Yield func() error

func (y Yield) call() error {
	if y == nil {
		return nil
	}
	return y()
}

// Op is a binary operation over deep values.
type Op uint8

const (
	Add Op = iota
	Sub
	Mul
	Div
	// Eq yields Int 1 or 0.
	Eq
	// Or yields the left operand when truthy, else the right one.
	Or
	// And yields the left operand when falsy, else the right one.
	And
)

func (op Op) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	case Eq:
		return "=="
	case Or:
		return "||"
	case And:
		return "&&"
	default:
		return "?"
	}
}

// Binary applies op to a and b. Arrays broadcast: two arrays are zipped with
// the shorter one cycled, and a scalar is paired with every element.
func Binary(op Op, a, b Deep, yield Yield) (Deep, error) {
	aa, aIsArray := a.(Array)
	bb, bIsArray := b.(Array)
	switch {
	case aIsArray && bIsArray:
		if len(aa) == 0 || len(bb) == 0 {
			return Array{}, nil
		}
		out := make(Array, max(len(aa), len(bb)))
		for i := range out {
			v, err := Binary(op, aa[i%len(aa)], bb[i%len(bb)], yield)
			if err != nil {
				return nil, err
			}
			out[i] = v
			if err := yield.call(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case aIsArray:
		out := make(Array, len(aa))
		for i, x := range aa {
			v, err := Binary(op, x, b, yield)
			if err != nil {
				return nil, err
			}
			out[i] = v
			if err := yield.call(); err != nil {
				return nil, err
			}
		}
		return out, nil
	case bIsArray:
		out := make(Array, len(bb))
		for i, y := range bb {
			v, err := Binary(op, a, y, yield)
			if err != nil {
				return nil, err
			}
			out[i] = v
			if err := yield.call(); err != nil {
				return nil, err
			}
		}
		return out, nil
	}
	return scalar(op, a, b)
}

// Neg negates v, broadcasting over arrays. A Char negates to an Int.
func Neg(v Deep, yield Yield) (Deep, error) {
	switch v := v.(type) {
	case Int:
		return BigInt(new(big.Int).Neg(v.big())), nil
	case Float:
		return -v, nil
	case Char:
		return NewInt(-int64(v)), nil
	case Array:
		out := make(Array, len(v))
		for i, x := range v {
			n, err := Neg(x, yield)
			if err != nil {
				return nil, err
			}
			out[i] = n
			if err := yield.call(); err != nil {
				return nil, err
			}
		}
		return out, nil
	default:
		return v, nil
	}
}

func scalar(op Op, a, b Deep) (Deep, error) {
	switch op {
	case Eq:
		if Equal(a, b) {
			return NewInt(1), nil
		}
		return NewInt(0), nil
	case Or:
		if Truthy(a) {
			return a, nil
		}
		return b, nil
	case And:
		if !Truthy(a) {
			return a, nil
		}
		return b, nil
	}

	ca, aIsChar := a.(Char)
	cb, bIsChar := b.(Char)
	if aIsChar && bIsChar && op != Div {
		n, _ := intOp(op, big.NewInt(int64(ca)), big.NewInt(int64(cb)))
		return charOrSpace(n), nil
	}

	_, aIsFloat := a.(Float)
	_, bIsFloat := b.(Float)
	if aIsFloat || bIsFloat || op == Div {
		return Float(floatOp(op, toFloat(a), toFloat(b))), nil
	}
	n, err := intOp(op, scalarBig(a), scalarBig(b))
	if err != nil {
		return nil, err
	}
	return BigInt(n), nil
}

func intOp(op Op, a, b *big.Int) (*big.Int, error) {
	bits := max(a.BitLen(), b.BitLen()) + 1
	if op == Mul {
		bits = a.BitLen() + b.BitLen()
	}
	if bits > MaxIntBits {
		return nil, evalerr.New(evalerr.Range, "integer result exceeds %d bits", MaxIntBits)
	}
	switch op {
	case Add:
		return new(big.Int).Add(a, b), nil
	case Sub:
		return new(big.Int).Sub(a, b), nil
	default:
		return new(big.Int).Mul(a, b), nil
	}
}

func floatOp(op Op, a, b float64) float64 {
	switch op {
	case Add:
		return a + b
	case Sub:
		return a - b
	case Mul:
		return a * b
	default:
		return a / b
	}
}

func toFloat(v Deep) float64 {
	switch v := v.(type) {
	case Float:
		return float64(v)
	case Int:
		return v.Float64()
	case Char:
		return float64(v)
	default:
		return 0
	}
}

// charOrSpace maps a code point back to a Char, substituting a space when
// n is not a valid Unicode scalar value.
func charOrSpace(n *big.Int) Char {
	if !n.IsInt64() {
		return ' '
	}
	cp := n.Int64()
	if cp < 0 || cp > 0x10FFFF || (cp >= 0xD800 && cp <= 0xDFFF) {
		return ' '
	}
	return Char(cp)
}
