package value

import (
	"fmt"
	"maps"
	"slices"

	"github.com/louisbranch/dicebox/internal/dice/evalerr"
)

// ResolveReason classifies a variable lookup failure.
type ResolveReason uint8

const (
	UndefinedVariable ResolveReason = iota + 1
	IndexOutOfBounds
	IndexIntoNonArray
)

// ResolveError reports a failed variable lookup. Path holds the indices up to
// and including the first invalid one.
type ResolveError struct {
	Reason ResolveReason
	Name   string
	Path   []int
}

func (e *ResolveError) Error() string {
	place := Place{Name: e.Name, Index: e.Path}
	switch e.Reason {
	case UndefinedVariable:
		return fmt.Sprintf("undefined variable `%s`", e.Name)
	case IndexOutOfBounds:
		return fmt.Sprintf("index out of bounds: `%s`", place)
	case IndexIntoNonArray:
		return fmt.Sprintf("cannot index into non-array: `%s`", place)
	default:
		return fmt.Sprintf("cannot resolve `%s`", place)
	}
}

func resolveError(reason ResolveReason, p Place, depth int) error {
	return evalerr.Wrap(evalerr.Resolve, &ResolveError{
		Reason: reason,
		Name:   p.Name,
		Path:   slices.Clone(p.Index[:depth]),
	})
}

// Env maps variable names to deep values, remembering definition order.
// The zero value is not usable; call NewEnv.
type Env struct {
	names []string
	vars  map[string]Deep
}

// NewEnv returns an empty environment.
func NewEnv() *Env {
	return &Env{vars: make(map[string]Deep)}
}

// Get returns the value at p.
func (e *Env) Get(p Place) (Deep, error) {
	v, ok := e.vars[p.Name]
	if !ok {
		return nil, resolveError(UndefinedVariable, p, 0)
	}
	for depth, i := range p.Index {
		arr, ok := v.(Array)
		if !ok {
			return nil, resolveError(IndexIntoNonArray, p, depth+1)
		}
		if i < 0 || i >= len(arr) {
			return nil, resolveError(IndexOutOfBounds, p, depth+1)
		}
		v = arr[i]
	}
	return v, nil
}

// Set stores v at p. A new name is created; an indexed place overwrites one
// element of the existing variable without touching the rest of it.
func (e *Env) Set(p Place, v Deep) error {
	current, ok := e.vars[p.Name]
	if !ok {
		if len(p.Index) > 0 {
			return resolveError(UndefinedVariable, p, 0)
		}
		e.names = append(e.names, p.Name)
		e.vars[p.Name] = v
		return nil
	}
	updated, err := setAt(current, p, 0, v)
	if err != nil {
		return err
	}
	e.vars[p.Name] = updated
	return nil
}

// setAt rebuilds the arrays along p's path so values previously read from
// the environment are never mutated.
func setAt(current Deep, p Place, depth int, v Deep) (Deep, error) {
	if depth == len(p.Index) {
		return v, nil
	}
	arr, ok := current.(Array)
	if !ok {
		return nil, resolveError(IndexIntoNonArray, p, depth+1)
	}
	i := p.Index[depth]
	if i < 0 || i >= len(arr) {
		return nil, resolveError(IndexOutOfBounds, p, depth+1)
	}
	elem, err := setAt(arr[i], p, depth+1, v)
	if err != nil {
		return nil, err
	}
	out := slices.Clone(arr)
	out[i] = elem
	return out, nil
}

// Names returns the defined variable names in definition order.
func (e *Env) Names() []string {
	return slices.Clone(e.names)
}

// Len returns the number of defined variables.
func (e *Env) Len() int {
	return len(e.names)
}

// Clone returns an independent copy of e. Stored values are shared; Set
// never mutates them.
func (e *Env) Clone() *Env {
	return &Env{names: slices.Clone(e.names), vars: maps.Clone(e.vars)}
}

// Replace makes e hold the variables of other. other must not be used
// afterwards.
func (e *Env) Replace(other *Env) {
	e.names = other.names
	e.vars = other.vars
}
