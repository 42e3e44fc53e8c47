package analyzer

import (
	"math/big"

	"github.com/sentra-lang/zincvm/internal/ast"
	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/element"
	"github.com/sentra-lang/zincvm/internal/scope"
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// analyzeMatch implements spec section 4.D's Match expression:
// evaluate the scrutinee into a temporary stack slot, then walk the
// arms as a chain of Eq/If/Else tests, one per literal pattern, with
// a trailing Binding or Wildcard arm (required unless the literal
// patterns already exhaust the scrutinee's type) as the final else.
func (a *Analyzer) analyzeMatch(sub *ast.SubExpr) (element.Element, error) {
	scrutVal, err := a.analyzeExpr(*sub.Scrutinee)
	if err != nil {
		return nil, err
	}
	addr := a.emit.Allocate(scrutVal.Type().Size())
	scrutPlace := element.Place{Name: "<match-scrutinee>", Address: addr, Mutable: false, BaseType: scrutVal.Type(), SlicedType: scrutVal.Type()}
	a.emitPopStore(scrutPlace)

	if err := checkArmsWellFormed(sub.Arms); err != nil {
		return nil, err
	}
	if !isExhaustive(scrutVal.Type(), sub.Arms) {
		loc := zerr.Location{}
		if len(sub.Arms) > 0 {
			loc = sub.Arms[len(sub.Arms)-1].Loc
		}
		return nil, zerr.Match(loc, "match is not exhaustive")
	}

	ty, err := a.matchArm(scrutPlace, sub.Arms, 0)
	if err != nil {
		return nil, err
	}
	return element.NewValue(ty), nil
}

// checkArmsWellFormed rejects any pattern appearing after a terminal
// Binding/Wildcard arm (spec section 7: MatchError "unreachable
// branch after exhaustive pattern").
func checkArmsWellFormed(arms []ast.MatchArm) error {
	for i, arm := range arms {
		if isTerminalPattern(arm.Pattern) && i != len(arms)-1 {
			return zerr.Match(arm.Loc, "unreachable match arm after an exhaustive pattern")
		}
	}
	return nil
}

func isTerminalPattern(p ast.Pattern) bool {
	return p.Kind == ast.PatternBinding || p.Kind == ast.PatternWildcard
}

// isExhaustive reports whether the arm list covers every value of
// scrutType: a final Binding/Wildcard arm covers everything;
// otherwise the bool type is covered once both true and false are
// matched; an
// Enumeration is covered once every variant is named by a Path
// pattern.
func isExhaustive(scrutType types.Type, arms []ast.MatchArm) bool {
	if len(arms) > 0 && isTerminalPattern(arms[len(arms)-1].Pattern) {
		return true
	}
	switch t := scrutType.(type) {
	case types.Bool:
		seenTrue, seenFalse := false, false
		for _, arm := range arms {
			if arm.Pattern.Kind == ast.PatternBool {
				if arm.Pattern.Bool {
					seenTrue = true
				} else {
					seenFalse = true
				}
			}
		}
		return seenTrue && seenFalse
	case types.Enumeration:
		covered := map[string]bool{}
		for _, arm := range arms {
			if arm.Pattern.Kind == ast.PatternPath && len(arm.Pattern.Path) > 0 {
				covered[arm.Pattern.Path[len(arm.Pattern.Path)-1]] = true
			}
		}
		for _, v := range t.Variants {
			if !covered[v.Name] {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// matchArm emits the If/Else chain for arms[idx:] and returns the
// branch's result type.
func (a *Analyzer) matchArm(scrutPlace element.Place, arms []ast.MatchArm, idx int) (types.Type, error) {
	arm := arms[idx]

	if isTerminalPattern(arm.Pattern) {
		a.sc.Push()
		defer a.sc.Pop()
		if arm.Pattern.Kind == ast.PatternBinding {
			a.sc.Declare(scope.Binding{Name: arm.Pattern.Binding, Kind: scope.KindValue, Place: scrutPlace})
		}
		val, err := a.analyzeExpr(arm.Body)
		if err != nil {
			return nil, err
		}
		return val.Type(), nil
	}

	a.emitLoadPush(scrutPlace)
	lit, err := patternConstant(arm.Pattern, scrutPlace.SlicedType)
	if err != nil {
		return nil, err
	}
	a.emitPushConst(lit)
	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpEq})
	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpIf})

	a.sc.Push()
	thenType, err := a.analyzeExpr(arm.Body)
	a.sc.Pop()
	if err != nil {
		return nil, err
	}

	if idx == len(arms)-1 {
		// no further arms and no terminal pattern: isExhaustive
		// established that the literal arms cover every value, so
		// this arm's If is closed without an Else and its body's
		// type is the type of the whole chain.
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpEndIf})
		return thenType.Type(), nil
	}

	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpElse})
	elseType, err := a.matchArm(scrutPlace, arms, idx+1)
	if err != nil {
		return nil, err
	}
	if !types.Equal(thenType.Type(), elseType) {
		return nil, zerr.Match(arm.Loc, "match arms have mismatched types: %s vs %s", thenType.Type(), elseType)
	}
	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpEndIf})
	return elseType, nil
}

func patternConstant(p ast.Pattern, scrutType types.Type) (element.Constant, error) {
	switch p.Kind {
	case ast.PatternBool:
		return element.BoolConstant(p.Bool), nil
	case ast.PatternInt:
		it, ok := types.IsInteger(scrutType)
		if !ok {
			return element.Constant{}, zerr.Match(zerr.Location{}, "integer pattern against non-integer scrutinee %s", scrutType)
		}
		return element.IntConstant(big.NewInt(p.Int), it.Signed, it.Bits), nil
	case ast.PatternPath:
		en, ok := scrutType.(types.Enumeration)
		if !ok || len(p.Path) == 0 {
			return element.Constant{}, zerr.Match(zerr.Location{}, "path pattern against non-enum scrutinee %s", scrutType)
		}
		v, ok := en.Variant(p.Path[len(p.Path)-1])
		if !ok {
			return element.Constant{}, zerr.Match(zerr.Location{}, "enum %s has no variant %q", en.Identifier, p.Path[len(p.Path)-1])
		}
		return element.IntConstant(big.NewInt(v), false, 1), nil
	default:
		return element.Constant{}, zerr.Match(zerr.Location{}, "non-constant pattern")
	}
}
