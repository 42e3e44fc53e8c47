package analyzer

import (
	"github.com/sentra-lang/zincvm/internal/ast"
	"github.com/sentra-lang/zincvm/internal/element"
	"github.com/sentra-lang/zincvm/internal/scope"
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// hoistTypeDecl declares a single top-level type/struct/enum
// statement's name in the current scope, so later declarations
// (including function signatures) may reference it regardless of
// source order.
func (a *Analyzer) hoistTypeDecl(s ast.Statement) error {
	switch decl := s.(type) {
	case *ast.StructStmt:
		if a.sc.DeclaredInCurrent(decl.Name) {
			return zerr.Scope(decl.Loc, "duplicate type declaration %q", decl.Name)
		}
		st := types.Struct{Identifier: decl.Name}
		for _, f := range decl.Fields {
			t, err := a.resolveTypeExpr(f.Type)
			if err != nil {
				return err
			}
			st.Fields = append(st.Fields, types.StructField{Name: f.Name, Type: t})
		}
		a.sc.Declare(scope.Binding{Name: decl.Name, Kind: scope.KindType, Type: element.TypeElement{Ty: st}})
	case *ast.EnumStmt:
		if a.sc.DeclaredInCurrent(decl.Name) {
			return zerr.Scope(decl.Loc, "duplicate type declaration %q", decl.Name)
		}
		en := types.Enumeration{Identifier: decl.Name}
		for _, v := range decl.Variants {
			en.Variants = append(en.Variants, types.EnumVariant{Name: v.Name, Value: v.Value})
		}
		a.sc.Declare(scope.Binding{Name: decl.Name, Kind: scope.KindType, Type: element.TypeElement{Ty: en}})
	case *ast.TypeStmt:
		if a.sc.DeclaredInCurrent(decl.Name) {
			return zerr.Scope(decl.Loc, "duplicate type declaration %q", decl.Name)
		}
		t, err := a.resolveTypeExpr(decl.Type)
		if err != nil {
			return err
		}
		a.sc.Declare(scope.Binding{Name: decl.Name, Kind: scope.KindType, Type: element.TypeElement{Ty: t}})
	}
	return nil
}

// resolveTypeExpr turns a source-level ast.TypeExpr into a concrete
// types.Type, resolving named struct/enum/alias types against the
// scope table.
func (a *Analyzer) resolveTypeExpr(te ast.TypeExpr) (types.Type, error) {
	switch te.Name {
	case "":
		if te.ArrayOf != nil {
			elem, err := a.resolveTypeExpr(*te.ArrayOf)
			if err != nil {
				return nil, err
			}
			return types.Array{Element: elem, Length: te.ArrayLen}, nil
		}
		if te.TupleOf != nil {
			var elems []types.Type
			for _, sub := range te.TupleOf {
				t, err := a.resolveTypeExpr(sub)
				if err != nil {
					return nil, err
				}
				elems = append(elems, t)
			}
			return types.Tuple{Elements: elems}, nil
		}
		return types.Unit{}, nil
	case "bool":
		return types.Bool{}, nil
	case "field":
		return types.Field{}, nil
	case "u":
		return types.U(te.Bits), nil
	case "i":
		return types.I(te.Bits), nil
	default:
		b, ok := a.sc.Resolve(te.Name)
		if !ok || b.Kind != scope.KindType {
			return nil, zerr.Scope(te.Loc, "undeclared type %q", te.Name)
		}
		tyEl, ok := b.Type.(element.TypeElement)
		if !ok {
			return nil, zerr.Scope(te.Loc, "%q does not name a type", te.Name)
		}
		return tyEl.Ty, nil
	}
}
