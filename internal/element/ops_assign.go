package element

import (
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// Assign implements `lhs = rhs` (spec section 4.A): the left operand
// must resolve to a mutable Place and the right operand's type must
// equal the place's sliced type exactly — no implicit coercion, not
// even an untyped integer constant, since by the time an assignment is
// analyzed the constant has already been pinned to a concrete type by
// whatever produced it.
func Assign(loc zerr.Location, lhs, rhs Element) (Place, error) {
	place, ok := lhs.(Place)
	if !ok {
		return Place{}, zerr.Place(loc, "left-hand side of assignment is not a place")
	}
	if !place.Mutable {
		return Place{}, zerr.Place(loc, "cannot assign to immutable binding %q", place.Name)
	}
	if !types.Equal(place.SlicedType, rhs.Type()) {
		return Place{}, zerr.Type(loc, "cannot assign %s to place of type %s", rhs.Type(), place.SlicedType)
	}
	return place, nil
}
