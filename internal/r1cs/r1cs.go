// Package r1cs is the constraint-system collaborator of spec section
// 6: alloc/enforce/namespace, nothing more. The executor (internal/vm)
// depends only on the System type defined here; swapping in a
// production proving backend means implementing the same shape
// against a real curve, without touching the executor.
package r1cs

import (
	"fmt"
	"strings"

	"github.com/sentra-lang/zincvm/internal/field"
)

// Variable is an opaque handle into a System's witness vector. The
// zero Variable is the reserved constant `1` wire, the one System.One()
// returns and every linear combination may reference.
type Variable struct {
	id uint64
}

// Term is one coefficient*variable summand of a linear combination.
type Term struct {
	Coeff    field.Element
	Variable Variable
}

// LinearCombination is a sum of Terms, i.e. one side of a rank-1
// constraint (Σ aᵢxᵢ).
type LinearCombination []Term

// LC builds a LinearCombination inline: LC(Term{...}, Term{...}).
func LC(terms ...Term) LinearCombination { return LinearCombination(terms) }

// Const returns a linear combination that evaluates to a fixed
// constant, coeff*1.
func Const(sys *System, v field.Element) LinearCombination {
	return LinearCombination{{Coeff: v, Variable: sys.One()}}
}

// FromVar returns a linear combination equal to 1*v.
func FromVar(v Variable) LinearCombination {
	return LinearCombination{{Coeff: field.One(), Variable: v}}
}

type constraint struct {
	name    string
	a, b, c LinearCombination
}

// System is the in-repo reference constraint system: it records every
// allocated variable's witness value and every enforced constraint, so
// that a finished run can be checked for satisfiability by an
// independent re-evaluation — useful for tests, and a faithful stand-in
// for what a real backend's `ConstraintSystem` trait provides.
type System struct {
	values      map[uint64]field.Element
	names       map[uint64]string
	constraints []constraint
	namespace   []string
	nextID      uint64
	oneID       uint64
}

// New creates a System with the reserved `one` wire already allocated.
func New() *System {
	s := &System{
		values: make(map[uint64]field.Element),
		names:  make(map[uint64]string),
	}
	s.oneID = s.nextID
	s.values[s.oneID] = field.One()
	s.names[s.oneID] = "ONE"
	s.nextID++
	return s
}

// One returns the constant-1 variable every system carries.
func (s *System) One() Variable { return Variable{id: s.oneID} }

func (s *System) path(name string) string {
	if len(s.namespace) == 0 {
		return name
	}
	return strings.Join(s.namespace, "/") + "/" + name
}

// Namespace pushes name onto the path used to qualify subsequently
// allocated variables and constraints, and returns a function that
// pops it — callers defer the pop, exactly as spec section 4.H
// requires one namespace per executed instruction.
func (s *System) Namespace(name string) func() {
	s.namespace = append(s.namespace, name)
	return func() {
		s.namespace = s.namespace[:len(s.namespace)-1]
	}
}

// Alloc allocates a fresh private witness variable, computing its
// value with compute under the system's current namespace.
func (s *System) Alloc(name string, compute func() (field.Element, error)) (Variable, error) {
	v, err := compute()
	if err != nil {
		return Variable{}, fmt.Errorf("r1cs: alloc %s: %w", s.path(name), err)
	}
	id := s.nextID
	s.nextID++
	s.values[id] = v
	s.names[id] = s.path(name)
	return Variable{id: id}, nil
}

// AllocInput allocates a public input/output variable with a known
// value (no deferred computation needed).
func (s *System) AllocInput(name string, value field.Element) (Variable, error) {
	return s.Alloc(name, func() (field.Element, error) { return value, nil })
}

// Value returns the witness value assigned to v.
func (s *System) Value(v Variable) field.Element { return s.values[v.id] }

// Evaluate computes Σ coeff*value over a linear combination.
func (s *System) Evaluate(lc LinearCombination) field.Element {
	acc := field.Zero()
	for _, t := range lc {
		acc = acc.Add(t.Coeff.Mul(s.values[t.Variable.id]))
	}
	return acc
}

// Enforce records the rank-1 constraint (a)*(b) = (c) under the
// current namespace.
func (s *System) Enforce(name string, a, b, c LinearCombination) {
	s.constraints = append(s.constraints, constraint{name: s.path(name), a: a, b: b, c: c})
}

// NumConstraints reports how many constraints have been enforced —
// used by the structure-independence test in spec section 8.
func (s *System) NumConstraints() int { return len(s.constraints) }

// NumVariables reports the witness vector's size, including `one`.
func (s *System) NumVariables() int { return len(s.values) }

// IsSatisfied re-evaluates every enforced constraint against the
// recorded witness and reports the first violation, if any.
func (s *System) IsSatisfied() (bool, error) {
	for _, c := range s.constraints {
		av := s.Evaluate(c.a)
		bv := s.Evaluate(c.b)
		cv := s.Evaluate(c.c)
		if !av.Mul(bv).Equal(cv) {
			return false, fmt.Errorf("r1cs: constraint %q unsatisfied: (%s)*(%s) != (%s)", c.name, av, bv, cv)
		}
	}
	return true, nil
}
