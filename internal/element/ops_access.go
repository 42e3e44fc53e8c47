package element

import (
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// placeOf adapts a bare Value into a non-addressable, immutable Place
// so access selectors can thread uniformly through an rvalue produced
// by an intermediate expression (e.g. a function call's returned
// struct), even though it cannot be assigned to afterwards.
func placeOf(e Element) (Place, bool) {
	switch v := e.(type) {
	case Place:
		return v, true
	case Value:
		return Place{Mutable: false, BaseType: v.Ty, SlicedType: v.Ty}, true
	default:
		return Place{}, false
	}
}

// Index implements `a[i]` (spec section 4.A): a constant index resolves
// to a ConstIndexSelector at analysis time; a non-constant index
// resolves to a DynamicIndexSelector, which must be the last selector
// appended to Path (the executor range-constrains it at 0 <= i < N).
func Index(loc zerr.Location, a, index Element) (Element, error) {
	base, ok := placeOf(a)
	if !ok {
		return nil, zerr.Type(loc, "cannot index %s", a.Type())
	}
	arr, ok := base.SlicedType.(types.Array)
	if !ok {
		return nil, zerr.Type(loc, "cannot index non-array type %s", base.SlicedType)
	}
	if base.Dynamic != nil {
		return nil, zerr.Place(loc, "cannot index past a dynamic selector")
	}

	if c, ok := isConstant(index); ok {
		i := int(c.Int.Int64())
		if i < 0 || i >= arr.Length {
			return nil, zerr.Constant(loc, "index %d out of bounds for %s", i, arr)
		}
		base.Path = append(base.Path, ConstIndexSelector{Index: i, Offset: i * arr.Element.Size()})
		base.StaticOff += i * arr.Element.Size()
		base.SlicedType = arr.Element
		return base, nil
	}

	it, ok := types.IsInteger(index.Type())
	if !ok {
		return nil, zerr.Type(loc, "array index must be an integer, got %s", index.Type())
	}
	sel := DynamicIndexSelector{IndexType: it, ElemSize: arr.Element.Size(), ArrayLen: arr.Length}
	base.Path = append(base.Path, sel)
	base.Dynamic = &sel
	base.SlicedType = arr.Element
	return base, nil
}

// Field implements `a.name`, resolving against a Struct's named
// layout.
func Field(loc zerr.Location, a Element, name string) (Element, error) {
	base, ok := placeOf(a)
	if !ok {
		return nil, zerr.Type(loc, "cannot access field %q of %s", name, a.Type())
	}
	if base.Dynamic != nil {
		return nil, zerr.Place(loc, "cannot access a field past a dynamic selector")
	}
	st, ok := base.SlicedType.(types.Struct)
	if !ok {
		return nil, zerr.Type(loc, "cannot access field %q of non-struct type %s", name, base.SlicedType)
	}
	off, ft, ok := st.FieldOffset(name)
	if !ok {
		return nil, zerr.Type(loc, "type %s has no field %q", st, name)
	}
	base.Path = append(base.Path, FieldSelector{Name: name, Offset: off})
	base.StaticOff += off
	base.SlicedType = ft
	return base, nil
}

// TupleIndex implements `a.N`, resolving against a Tuple's or
// Struct's positional layout.
func TupleIndex(loc zerr.Location, a Element, index int) (Element, error) {
	base, ok := placeOf(a)
	if !ok {
		return nil, zerr.Type(loc, "cannot access member %d of %s", index, a.Type())
	}
	if base.Dynamic != nil {
		return nil, zerr.Place(loc, "cannot access a member past a dynamic selector")
	}

	switch st := base.SlicedType.(type) {
	case types.Tuple:
		if index < 0 || index >= len(st.Elements) {
			return nil, zerr.Type(loc, "tuple %s has no member %d", st, index)
		}
		off := 0
		for i := 0; i < index; i++ {
			off += st.Elements[i].Size()
		}
		base.Path = append(base.Path, TupleIndexSelector{Index: index, Offset: off})
		base.StaticOff += off
		base.SlicedType = st.Elements[index]
		return base, nil
	case types.Struct:
		off, ft, ok := st.FieldAt(index)
		if !ok {
			return nil, zerr.Type(loc, "struct %s has no member %d", st, index)
		}
		base.Path = append(base.Path, TupleIndexSelector{Index: index, Offset: off})
		base.StaticOff += off
		base.SlicedType = ft
		return base, nil
	default:
		return nil, zerr.Type(loc, "cannot access member %d of non-tuple type %s", index, base.SlicedType)
	}
}
