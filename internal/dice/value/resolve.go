package value

// Source draws uniform random integers in [0, n). *math/rand.Rand satisfies
// it.
type Source interface {
	Intn(n int) int
}

// Resolver forces lazy values. It is owned by a single evaluation.
type Resolver struct {
	Env   *Env
	Rand  Source
	Yield Yield
}

// Resolve forces the top level of v. Array elements stay lazy.
func (r *Resolver) Resolve(v Lazy) (Resolved, error) {
	switch v := v.(type) {
	case Int:
		return v, nil
	case Float:
		return v, nil
	case Char:
		return v, nil
	case LazyArray:
		return v, nil
	case Place:
		d, err := r.Env.Get(v)
		if err != nil {
			return nil, err
		}
		return Shallow(d), nil
	case Dice:
		d, err := r.Roll(v)
		if err != nil {
			return nil, err
		}
		return Shallow(d), nil
	default:
		panic("value: unknown lazy value")
	}
}

// Deep forces v completely, rolling every dice term and substituting every
// variable reference.
func (r *Resolver) Deep(v Lazy) (Deep, error) {
	switch v := v.(type) {
	case Int:
		return v, nil
	case Float:
		return v, nil
	case Char:
		return v, nil
	case LazyArray:
		arr := make(Array, len(v))
		for i, elem := range v {
			d, err := r.Deep(elem)
			if err != nil {
				return nil, err
			}
			arr[i] = d
		}
		return arr, nil
	case Place:
		return r.Env.Get(v)
	case Dice:
		return r.Roll(v)
	default:
		panic("value: unknown lazy value")
	}
}

// DeepResolved forces the lazy elements of an already resolved value.
func (r *Resolver) DeepResolved(v Resolved) (Deep, error) {
	return r.Deep(Unresolve(v))
}
