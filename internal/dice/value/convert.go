package value

import (
	"math"

	"github.com/louisbranch/dicebox/internal/dice/evalerr"
)

// ToInt converts v to a 32-bit integer. Floats must be whole after
// normalization; characters convert to their code point.
func ToInt(v Deep) (int, error) {
	switch v := v.(type) {
	case Int:
		n := v.big()
		if !n.IsInt64() || n.Int64() > math.MaxInt32 || n.Int64() < math.MinInt32 {
			return 0, evalerr.New(evalerr.Range, "integer %s too large for a 32-bit integer", n)
		}
		return int(n.Int64()), nil
	case Float:
		f := NormFloat(float64(v))
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Trunc(f) != f {
			return 0, evalerr.New(evalerr.Type, "%s is not an integer value", Format(v))
		}
		if f > math.MaxInt32 || f < math.MinInt32 {
			return 0, evalerr.New(evalerr.Range, "%s too large for a 32-bit integer", Format(v))
		}
		return int(f), nil
	case Char:
		return int(v), nil
	default:
		return 0, evalerr.New(evalerr.Type, "cannot cast %s to integer", TypeName(v))
	}
}
