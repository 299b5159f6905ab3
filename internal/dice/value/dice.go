package value

import (
	"slices"
	"strconv"
	"strings"
)

// Limits on dice terms and arrays.
const (
	MaxDice     = 65535
	MaxSides    = 65535
	MaxArrayLen = 1 << 20
)

// Dice is an unforced dice term: Count dice whose faces are Sides. After
// rolling, the results are sorted and only the closed index range
// [Lowest, Highest] is summed. A face equal to a member of Explode is
// rerolled and the new face added to the same die.
type Dice struct {
	Count   int
	Sides   []Deep
	Lowest  int
	Highest int
	Explode []Deep
}

// NewDice returns count dice over sides, keeping every die.
func NewDice(count int, sides []Deep) Dice {
	return Dice{
		Count:   count,
		Sides:   sides,
		Lowest:  0,
		Highest: count - 1,
	}
}

// SidesUpTo returns the faces 1..n.
func SidesUpTo(n int) []Deep {
	sides := make([]Deep, n)
	for i := range sides {
		sides[i] = NewInt(int64(i + 1))
	}
	return sides
}

// KeepHighest narrows the kept range to the top k dice.
func (d Dice) KeepHighest(k int) Dice {
	d.Lowest = max(d.Lowest, d.Highest+1-k)
	return d
}

// KeepLowest narrows the kept range to the bottom k dice.
func (d Dice) KeepLowest(k int) Dice {
	d.Highest = min(d.Highest, d.Lowest+k-1)
	return d
}

// WithExplode returns d with members added to its explode set.
func (d Dice) WithExplode(members ...Deep) Dice {
	d.Explode = append(slices.Clip(d.Explode), members...)
	return d
}

// MaxSide returns the greatest face by Compare.
func (d Dice) MaxSide() (Deep, bool) {
	if len(d.Sides) == 0 {
		return nil, false
	}
	return slices.MaxFunc(d.Sides, Compare), true
}

// Kept returns how many dice contribute to the sum.
func (d Dice) Kept() int {
	if len(d.Sides) == 0 || d.Highest < d.Lowest {
		return 0
	}
	return d.Highest - d.Lowest + 1
}

func (d Dice) exploding(face Deep) bool {
	return slices.ContainsFunc(d.Explode, func(m Deep) bool {
		return Compare(face, m) == 0
	})
}

// String renders d in dice notation, e.g. `4d6` or `3d[1, 4, 5]`.
func (d Dice) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(d.Count))
	b.WriteByte('d')
	if n, ok := standardSides(d.Sides); ok {
		b.WriteString(strconv.Itoa(n))
	} else {
		b.WriteString(Format(Array(d.Sides)))
	}
	return b.String()
}

// standardSides reports whether sides are exactly 1..n.
func standardSides(sides []Deep) (int, bool) {
	for i, s := range sides {
		n, ok := s.(Int)
		if !ok || !n.big().IsInt64() || n.big().Int64() != int64(i+1) {
			return 0, false
		}
	}
	return len(sides), true
}

// Roll forces d.
//
// # Determinism
//
// Roll consumes exactly one value from r.Rand per face drawn, so the same
// Source state and dice yield the same result. r.Yield runs once per die and
// once after sorting.
func (r *Resolver) Roll(d Dice) (Deep, error) {
	if d.Kept() == 0 {
		return NewInt(0), nil
	}
	if d.Lowest == 0 && d.Highest == d.Count-1 {
		if len(d.Explode) == 0 {
			if faces, ok := smallInts(d.Sides); ok {
				var sum int64
				for range d.Count {
					if err := r.Yield.call(); err != nil {
						return nil, err
					}
					sum += faces[r.Rand.Intn(len(faces))]
				}
				return NewInt(sum), nil
			}
		}
		var sum Deep
		for range d.Count {
			if err := r.Yield.call(); err != nil {
				return nil, err
			}
			face, err := r.rollDie(d)
			if err != nil {
				return nil, err
			}
			if sum, err = r.accumulate(sum, face); err != nil {
				return nil, err
			}
		}
		return sum, nil
	}

	results := make([]Deep, d.Count)
	for i := range results {
		if err := r.Yield.call(); err != nil {
			return nil, err
		}
		face, err := r.rollDie(d)
		if err != nil {
			return nil, err
		}
		results[i] = face
	}
	slices.SortFunc(results, Compare)
	if err := r.Yield.call(); err != nil {
		return nil, err
	}
	var sum Deep
	for _, face := range results[d.Lowest : d.Highest+1] {
		var err error
		if sum, err = r.accumulate(sum, face); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// rollDie draws one die, folding explosions into its result.
func (r *Resolver) rollDie(d Dice) (Deep, error) {
	face := d.Sides[r.Rand.Intn(len(d.Sides))]
	total := face
	for len(d.Explode) > 0 && d.exploding(face) {
		if err := r.Yield.call(); err != nil {
			return nil, err
		}
		face = d.Sides[r.Rand.Intn(len(d.Sides))]
		var err error
		if total, err = Binary(Add, total, face, r.Yield); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func (r *Resolver) accumulate(sum, face Deep) (Deep, error) {
	if sum == nil {
		return face, nil
	}
	return Binary(Add, sum, face, r.Yield)
}

// smallInts returns the faces as int64 when a full roll of MaxDice of them
// cannot overflow.
func smallInts(sides []Deep) ([]int64, bool) {
	const limit = 1 << 46
	faces := make([]int64, len(sides))
	for i, s := range sides {
		n, ok := s.(Int)
		if !ok || !n.big().IsInt64() {
			return nil, false
		}
		v := n.big().Int64()
		if v >= limit || v <= -limit {
			return nil, false
		}
		faces[i] = v
	}
	return faces, true
}
