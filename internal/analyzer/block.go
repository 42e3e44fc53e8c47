package analyzer

import (
	"github.com/sentra-lang/zincvm/internal/ast"
	"github.com/sentra-lang/zincvm/internal/element"
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// analyzeSubExpr dispatches a complex operand (spec section 4.D step
// 1: "complex operands... recurse into a sub-analyzer") to the
// handler matching its shape. Each handler shares this analyzer's
// emitter and scope table by reference, only ever pushing/popping a
// child scope of its own.
func (a *Analyzer) analyzeSubExpr(sub *ast.SubExpr) (element.Element, error) {
	switch sub.Kind {
	case ast.SubBlock:
		ty, err := a.analyzeBlockBody(sub.Statements)
		if err != nil {
			return nil, err
		}
		return element.NewValue(ty), nil
	case ast.SubConditional:
		return a.analyzeConditional(sub)
	case ast.SubMatch:
		return a.analyzeMatch(sub)
	case ast.SubLoop:
		return a.analyzeLoop(sub)
	case ast.SubArrayLiteral:
		return a.analyzeArrayLiteral(sub)
	case ast.SubTupleLiteral:
		return a.analyzeTupleLiteral(sub)
	case ast.SubStructLiteral:
		return a.analyzeStructLiteral(sub)
	case ast.SubList:
		return a.analyzeArrayLiteral(sub)
	default:
		return nil, zerr.Type(zerr.Location{}, "unrecognized sub-expression")
	}
}

// analyzeArrayLiteral evaluates each element left-to-right and
// requires they all share one element type; the result is a Value of
// Array type (arrays are rvalues here — they get a Place only once
// bound by `let`).
func (a *Analyzer) analyzeArrayLiteral(sub *ast.SubExpr) (element.Element, error) {
	if len(sub.Elements) == 0 {
		return nil, zerr.Type(zerr.Location{}, "array literal must have at least one element")
	}
	var elemType types.Type
	for i, e := range sub.Elements {
		val, err := a.analyzeExpr(e)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			elemType = val.Type()
		} else if !types.Equal(val.Type(), elemType) {
			return nil, zerr.Type(zerr.Location{}, "array literal element %d has type %s, expected %s", i, val.Type(), elemType)
		}
	}
	return element.NewValue(types.Array{Element: elemType, Length: len(sub.Elements)}), nil
}

// analyzeTupleLiteral evaluates each element left-to-right and
// returns a Value of Tuple type over their computed types.
func (a *Analyzer) analyzeTupleLiteral(sub *ast.SubExpr) (element.Element, error) {
	elems := make([]types.Type, len(sub.Elements))
	for i, e := range sub.Elements {
		val, err := a.analyzeExpr(e)
		if err != nil {
			return nil, err
		}
		elems[i] = val.Type()
	}
	return element.NewValue(types.Tuple{Elements: elems}), nil
}

// analyzeStructLiteral resolves the named struct type, evaluates
// each field initializer in the struct's declared field order
// (regardless of the literal's source order), and checks each
// against the field's declared type.
func (a *Analyzer) analyzeStructLiteral(sub *ast.SubExpr) (element.Element, error) {
	tyEl, err := a.resolveTypeExpr(ast.TypeExpr{Name: sub.StructName})
	if err != nil {
		return nil, err
	}
	st, ok := tyEl.(types.Struct)
	if !ok {
		return nil, zerr.Type(zerr.Location{}, "%q is not a struct type", sub.StructName)
	}
	byName := map[string]ast.Expr{}
	for _, init := range sub.FieldValues {
		byName[init.Name] = init.Value
	}

	// Evaluate in the struct's declared field order, not the
	// literal's source order, so emitted code matches the type's
	// data-stack layout regardless of how the literal lists fields.
	for _, f := range st.Fields {
		expr, ok := byName[f.Name]
		if !ok {
			return nil, zerr.Type(zerr.Location{}, "struct literal %s missing field %q", st.Identifier, f.Name)
		}
		val, err := a.analyzeExpr(expr)
		if err != nil {
			return nil, err
		}
		if !types.Equal(val.Type(), f.Type) {
			return nil, zerr.Type(zerr.Location{}, "struct literal %s field %q: expected %s, got %s", st.Identifier, f.Name, f.Type, val.Type())
		}
	}
	return element.NewValue(st), nil
}
