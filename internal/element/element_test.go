package element

import (
	"math/big"
	"testing"

	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

func mustInt(t *testing.T, v int64, signed bool, bits int) Constant {
	t.Helper()
	return IntConstant(big.NewInt(v), signed, bits)
}

func TestAddFoldsConstants(t *testing.T) {
	a := mustInt(t, 2, false, 8)
	b := mustInt(t, 3, false, 8)
	e, folded, err := Add(zerr.Location{}, a, b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !folded {
		t.Fatalf("expected constant fold")
	}
	c := e.(Constant)
	if c.Int.Int64() != 5 {
		t.Fatalf("got %s, want 5", c.Int)
	}
}

func TestAddMismatchedTypesRejected(t *testing.T) {
	a := NewValue(types.U(8))
	b := NewValue(types.U(16))
	if _, _, err := Add(zerr.Location{}, a, b); err == nil {
		t.Fatalf("expected type error for mismatched widths")
	} else if !zerr.Is(err, zerr.KindType) {
		t.Fatalf("expected TypeError, got %v", err)
	}
}

func TestAddUntypedConstantCoercesToPeer(t *testing.T) {
	untyped := mustInt(t, 7, false, 0)
	typed := NewValue(types.U(16))
	e, folded, err := Add(zerr.Location{}, untyped, typed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if folded {
		t.Fatalf("expected non-fold since one operand is a Value")
	}
	if e.Type() != (types.Integer{Bits: 16, Signed: false}) {
		t.Fatalf("got %s, want u16", e.Type())
	}
}

func TestAddUntypedConstantOutOfRangeRejected(t *testing.T) {
	untyped := mustInt(t, 1000, false, 0)
	typed := NewValue(types.U(8))
	if _, _, err := Add(zerr.Location{}, untyped, typed); err == nil {
		t.Fatalf("expected constant-range error")
	} else if !zerr.Is(err, zerr.KindConstant) {
		t.Fatalf("expected ConstantError, got %v", err)
	}
}

func TestDivByZeroConstantRejected(t *testing.T) {
	a := mustInt(t, 10, false, 0)
	b := mustInt(t, 0, false, 0)
	if _, _, err := Div(zerr.Location{}, a, b); err == nil {
		t.Fatalf("expected runtime error")
	} else if !zerr.Is(err, zerr.KindRuntime) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
}

// TestEuclideanDivisionLaw checks n = q*d + r, 0 <= r < |d|, across a
// spread of signed dividends and divisors (spec section 4.A).
func TestEuclideanDivisionLaw(t *testing.T) {
	cases := []struct{ n, d int64 }{
		{7, 3}, {-7, 3}, {7, -3}, {-7, -3},
		{0, 5}, {1, 1}, {-1, 1}, {10, 4}, {-10, 4},
	}
	for _, c := range cases {
		q, r := euclidean(big.NewInt(c.n), big.NewInt(c.d))
		n := new(big.Int).Add(new(big.Int).Mul(q, big.NewInt(c.d)), r)
		if n.Int64() != c.n {
			t.Errorf("euclidean(%d,%d): q=%s r=%s does not reconstruct n", c.n, c.d, q, r)
		}
		absD := new(big.Int).Abs(big.NewInt(c.d))
		if r.Sign() < 0 || r.Cmp(absD) >= 0 {
			t.Errorf("euclidean(%d,%d): remainder %s out of [0,%s)", c.n, c.d, r, absD)
		}
	}
}

func TestNegRequiresSigned(t *testing.T) {
	v := NewValue(types.U(32))
	if _, _, err := Neg(zerr.Location{}, v); err == nil {
		t.Fatalf("expected type error negating unsigned integer")
	}
}

func TestNegFoldsConstant(t *testing.T) {
	c := mustInt(t, 5, true, 32)
	e, folded, err := Neg(zerr.Location{}, c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !folded {
		t.Fatalf("expected fold")
	}
	if e.(Constant).Int.Int64() != -5 {
		t.Fatalf("got %s, want -5", e.(Constant).Int)
	}
}

func TestCastSameTypeIsNoop(t *testing.T) {
	v := NewValue(types.U(8))
	e, folded, err := Cast(zerr.Location{}, v, types.U(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if folded {
		t.Fatalf("same-type cast of a Value should not fold")
	}
	if e != Element(v) {
		t.Fatalf("expected identity result for same-type cast")
	}
}

func TestCastWrapsConstantToNarrowerWidth(t *testing.T) {
	c := mustInt(t, 300, false, 16)
	e, folded, err := Cast(zerr.Location{}, c, types.U(8))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !folded {
		t.Fatalf("expected constant fold")
	}
	if got := e.(Constant).Int.Int64(); got != 300%256 {
		t.Fatalf("got %d, want %d", got, 300%256)
	}
}

func TestCastRejectsBoolToInteger(t *testing.T) {
	v := NewValue(types.Bool{})
	if _, _, err := Cast(zerr.Location{}, v, types.U(8)); err == nil {
		t.Fatalf("expected type error casting bool to integer")
	}
}

func TestIndexConstantOutOfBounds(t *testing.T) {
	arr := Place{BaseType: types.Array{Element: types.U(8), Length: 4}, SlicedType: types.Array{Element: types.U(8), Length: 4}, Mutable: true}
	idx := mustInt(t, 9, false, 0)
	if _, err := Index(zerr.Location{}, arr, idx); err == nil {
		t.Fatalf("expected out-of-bounds constant error")
	} else if !zerr.Is(err, zerr.KindConstant) {
		t.Fatalf("expected ConstantError, got %v", err)
	}
}

func TestIndexDynamicMustBeLastSelector(t *testing.T) {
	inner := types.Array{Element: types.U(8), Length: 4}
	outer := types.Array{Element: inner, Length: 4}
	arr := Place{BaseType: outer, SlicedType: outer, Mutable: true}
	dynIdx := NewValue(types.U(8))

	e, err := Index(zerr.Location{}, arr, dynIdx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := Index(zerr.Location{}, e, dynIdx); err == nil {
		t.Fatalf("expected place error indexing past a dynamic selector")
	} else if !zerr.Is(err, zerr.KindPlace) {
		t.Fatalf("expected PlaceError, got %v", err)
	}
}

func TestFieldAccessResolvesOffset(t *testing.T) {
	st := types.Struct{Identifier: "Point", Fields: []types.StructField{
		{Name: "x", Type: types.U(32)},
		{Name: "y", Type: types.U(32)},
	}}
	p := Place{BaseType: st, SlicedType: st, Mutable: true}
	e, err := Field(zerr.Location{}, p, "y")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	place := e.(Place)
	if place.StaticOff != 1 {
		t.Fatalf("got offset %d, want 1", place.StaticOff)
	}
	if !types.Equal(place.SlicedType, types.U(32)) {
		t.Fatalf("got sliced type %s, want u32", place.SlicedType)
	}
}

func TestAssignRejectsImmutablePlace(t *testing.T) {
	p := Place{Name: "x", Mutable: false, SlicedType: types.U(8)}
	rhs := NewValue(types.U(8))
	if _, err := Assign(zerr.Location{}, p, rhs); err == nil {
		t.Fatalf("expected place error assigning to immutable binding")
	} else if !zerr.Is(err, zerr.KindPlace) {
		t.Fatalf("expected PlaceError, got %v", err)
	}
}

func TestAssignRejectsTypeMismatch(t *testing.T) {
	p := Place{Name: "x", Mutable: true, SlicedType: types.U(8)}
	rhs := NewValue(types.U(16))
	if _, err := Assign(zerr.Location{}, p, rhs); err == nil {
		t.Fatalf("expected type error assigning mismatched type")
	} else if !zerr.Is(err, zerr.KindType) {
		t.Fatalf("expected TypeError, got %v", err)
	}
}

func TestAssignAcceptsMatchingMutablePlace(t *testing.T) {
	p := Place{Name: "x", Mutable: true, SlicedType: types.U(8)}
	rhs := NewValue(types.U(8))
	if _, err := Assign(zerr.Location{}, p, rhs); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
