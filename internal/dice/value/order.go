package value

import (
	"cmp"
	"math"
	"math/big"
)

// NormFloat rounds f to six decimal places so accumulated division error
// does not break equality. Magnitudes too large to carry six decimals are
// returned unchanged.
func NormFloat(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) >= 1e15 {
		return f
	}
	return math.Round(f*1e6) / 1e6
}

// Compare is the total order over deep values. It returns -1, 0 or +1.
//
// Numbers compare by value across Int, Float and Char (by code point), with
// floats normalized by NormFloat. NaN equals NaN and sorts below every other
// number. Arrays compare by length, then element by element. A scalar against
// an array compares against the array's first element. The empty array rule
// is asymmetric: Compare(scalar, []) is +1, so an empty array on the right
// sorts below the scalar, and Compare([], scalar) is also +1.
func Compare(a, b Deep) int {
	aa, aIsArray := a.(Array)
	bb, bIsArray := b.(Array)
	switch {
	case aIsArray && bIsArray:
		if len(aa) != len(bb) {
			return cmp.Compare(len(aa), len(bb))
		}
		for i := range aa {
			if c := Compare(aa[i], bb[i]); c != 0 {
				return c
			}
		}
		return 0
	case bIsArray:
		if len(bb) == 0 {
			return 1
		}
		return Compare(a, bb[0])
	case aIsArray:
		if len(aa) == 0 {
			return 1
		}
		return Compare(aa[0], b)
	}
	return compareScalar(a, b)
}

// Equal reports whether Compare(a, b) == 0.
func Equal(a, b Deep) bool {
	return Compare(a, b) == 0
}

func compareScalar(a, b Deep) int {
	fa, aIsFloat := a.(Float)
	fb, bIsFloat := b.(Float)
	switch {
	case aIsFloat && bIsFloat:
		return compareFloat(float64(fa), float64(fb))
	case aIsFloat:
		return compareFloatInt(float64(fa), scalarBig(b))
	case bIsFloat:
		return -compareFloatInt(float64(fb), scalarBig(a))
	default:
		return scalarBig(a).Cmp(scalarBig(b))
	}
}

func compareFloat(a, b float64) int {
	aNaN, bNaN := math.IsNaN(a), math.IsNaN(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return -1
	case bNaN:
		return 1
	}
	return cmp.Compare(NormFloat(a), NormFloat(b))
}

func compareFloatInt(f float64, n *big.Int) int {
	if math.IsNaN(f) {
		return -1
	}
	return big.NewFloat(NormFloat(f)).Cmp(new(big.Float).SetInt(n))
}

// scalarBig returns the integer value of an Int or Char.
func scalarBig(v Deep) *big.Int {
	switch v := v.(type) {
	case Int:
		return v.big()
	case Char:
		return big.NewInt(int64(v))
	default:
		return new(big.Int)
	}
}
