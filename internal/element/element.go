// Package element implements the analyzer's value universe (spec
// section 3/4.A): a closed sum of Value, Constant, Place, TypeElement,
// ModuleElement, ArgumentList, MemberString and MemberInteger, plus the
// total algebraic operations defined over pairs of them. Grounded on
// the teacher's closed-interface/visitor idiom, generalized per spec
// section 9 to dispatch by matching on the variant *pair* rather than
// single-receiver double dispatch, since every operation here is
// binary (or unary) over this one sum, not a visitor crossing two
// unrelated hierarchies.
package element

import (
	"math/big"

	"github.com/sentra-lang/zincvm/internal/types"
)

// Element is implemented by every member of the closed sum.
type Element interface {
	// Type reports the static type this element would have if pushed
	// to the data stack (Constants report their narrowest admissible
	// type; Places report their sliced type).
	Type() types.Type
	isElement()
}

// Value is a runtime value of statically-known type, already resolved
// to a position on the evaluation stack (its bytes live on the data
// stack; Value itself only remembers the type).
type Value struct {
	Ty types.Type
}

func (v Value) Type() types.Type { return v.Ty }
func (Value) isElement()         {}

// NewValue wraps a type as a Value element.
func NewValue(t types.Type) Value { return Value{Ty: t} }

// ConstKind tags which payload a Constant carries.
type ConstKind int

const (
	ConstBool ConstKind = iota
	ConstInt
	ConstString
	ConstUnit
)

// Constant is a compile-time-known value. Integer constants track
// their inferred signedness/bitlength only once they have been pinned
// down by coercion against a typed peer or an explicit annotation; an
// untyped literal carries Bits == 0 to mean "not yet pinned".
type Constant struct {
	Kind    ConstKind
	Bool    bool
	Int     *big.Int
	Signed  bool
	Bits    int
	Str     string
}

func (c Constant) isElement() {}

// Type reports the Constant's type; an untyped integer constant
// reports the narrowest integer type of its own signedness that holds
// its value, per the
// "most general admissible type" coercion rule of spec section 4.A.
func (c Constant) Type() types.Type {
	switch c.Kind {
	case ConstBool:
		return types.Bool{}
	case ConstInt:
		bits := c.Bits
		if bits == 0 {
			bits = narrowestBits(c.Int, c.Signed)
		}
		return types.Integer{Bits: bits, Signed: c.Signed}
	case ConstString:
		return types.Array{Element: types.U(8), Length: len(c.Str)}
	default:
		return types.Unit{}
	}
}

func narrowestBits(v *big.Int, signed bool) int {
	bits := v.BitLen()
	if signed {
		bits++
	}
	for _, n := range []int{8, 16, 32, 64, 128} {
		if bits <= n {
			return n
		}
	}
	return 128
}

// BoolConstant builds a boolean compile-time constant.
func BoolConstant(v bool) Constant { return Constant{Kind: ConstBool, Bool: v} }

// IntConstant builds an integer compile-time constant. bits == 0
// means "untyped", pinned down later by coercion.
func IntConstant(v *big.Int, signed bool, bits int) Constant {
	return Constant{Kind: ConstInt, Int: v, Signed: signed, Bits: bits}
}

// StringConstant builds a string literal constant.
func StringConstant(s string) Constant { return Constant{Kind: ConstString, Str: s} }

// UnitConstant builds the unit constant.
func UnitConstant() Constant { return Constant{Kind: ConstUnit} }

// Pinned returns a copy of an untyped integer constant with its type
// pinned to bits/signed — used once the constant is coerced against a
// concretely-typed peer.
func (c Constant) Pinned(bits int, signed bool) Constant {
	c.Bits = bits
	c.Signed = signed
	return c
}

// Selector is one step (field or index) in a Place's access path.
type Selector interface{ isSelector() }

// FieldSelector accesses a named struct field.
type FieldSelector struct {
	Name   string
	Offset int
}

func (FieldSelector) isSelector() {}

// TupleIndexSelector accesses the i-th tuple/struct member by position
// (`.0`, `.1`, ...).
type TupleIndexSelector struct {
	Index  int
	Offset int
}

func (TupleIndexSelector) isSelector() {}

// ConstIndexSelector accesses a compile-time-constant array index.
type ConstIndexSelector struct {
	Index  int
	Offset int // Index * element size
}

func (ConstIndexSelector) isSelector() {}

// DynamicIndexSelector accesses an array at a runtime-computed index;
// it must be the last selector in a path (spec section 4.A: a dynamic
// indexing instruction range-constrains 0 <= i < N).
type DynamicIndexSelector struct {
	IndexType types.Type // the index value's integer type
	ElemSize  int
	ArrayLen  int
}

func (DynamicIndexSelector) isSelector() {}

// Place is a compile-time-known (or, with one trailing dynamic
// selector, partially compile-time-known) location on the data stack:
// a base identifier plus an ordered path of member/index selectors,
// with the resolved offset and sliced type cached on the Place itself
// (spec section 9, design decision 2) rather than recomputed inline.
type Place struct {
	Name       string
	Address    int
	Mutable    bool
	BaseType   types.Type
	Path       []Selector
	StaticOff  int        // sum of every selector's static offset
	SlicedType types.Type // type after applying the full path
	Dynamic    *DynamicIndexSelector
}

func (p Place) Type() types.Type { return p.SlicedType }
func (Place) isElement()         {}

// ResolvedAddress is the base address plus every static offset; valid
// even when Dynamic != nil (the dynamic selector adds a runtime offset
// on top at instruction-emission time).
func (p Place) ResolvedAddress() int { return p.Address + p.StaticOff }

// TypeElement wraps a Type so it can flow through the evaluation stack
// (e.g. the RHS operand of `as`, or a type name used as a match-arm
// scrutinee type).
type TypeElement struct{ Ty types.Type }

func (t TypeElement) Type() types.Type { return t.Ty }
func (TypeElement) isElement()         {}

// ModuleElement names a resolved module; further path resolution
// against it happens in the scope/analyzer layer.
type ModuleElement struct{ Name string }

func (ModuleElement) Type() types.Type { return types.Unit{} }
func (ModuleElement) isElement()       {}

// ArgumentList accumulates already-evaluated call arguments.
type ArgumentList struct{ Elements []Element }

func (ArgumentList) Type() types.Type { return types.Unit{} }
func (ArgumentList) isElement()       {}

// MemberString is an unresolved `.name` selector awaiting application.
type MemberString struct{ Name string }

func (MemberString) Type() types.Type { return types.Unit{} }
func (MemberString) isElement()       {}

// MemberInteger is an unresolved `.N` selector awaiting application.
type MemberInteger struct{ Index int }

func (MemberInteger) Type() types.Type { return types.Unit{} }
func (MemberInteger) isElement()       {}
