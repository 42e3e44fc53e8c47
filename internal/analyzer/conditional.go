package analyzer

import (
	"github.com/sentra-lang/zincvm/internal/ast"
	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/element"
	"github.com/sentra-lang/zincvm/internal/types"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// analyzeConditional implements spec section 4.D's Conditional
// expression: evaluate the condition with hint Value, require
// Boolean, emit If; analyze the then-block in a child scope; if an
// else exists emit Else and analyze it; require both branches'
// result types to match; emit EndIf.
func (a *Analyzer) analyzeConditional(sub *ast.SubExpr) (element.Element, error) {
	cond, err := a.analyzeExpr(*sub.Condition)
	if err != nil {
		return nil, err
	}
	if _, ok := cond.Type().(types.Bool); !ok {
		return nil, zerr.Type(zerr.Location{}, "if condition must be bool, got %s", cond.Type())
	}
	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpIf})

	thenType, err := a.analyzeBlockBody(sub.Then.Statements)
	if err != nil {
		return nil, err
	}

	resultType := thenType
	if sub.Else != nil {
		a.emit.Emit(bytecode.Instruction{Op: bytecode.OpElse})
		var elseType types.Type
		if sub.Else.Kind == ast.SubConditional {
			elseEl, err := a.analyzeConditional(sub.Else)
			if err != nil {
				return nil, err
			}
			elseType = elseEl.Type()
		} else {
			elseType, err = a.analyzeBlockBody(sub.Else.Statements)
			if err != nil {
				return nil, err
			}
		}
		if !types.Equal(thenType, elseType) {
			return nil, zerr.Type(zerr.Location{}, "if/else branches have mismatched types: %s vs %s", thenType, elseType)
		}
		resultType = elseType
	} else if !types.Equal(thenType, types.Unit{}) {
		return nil, zerr.Type(zerr.Location{}, "if without else must produce unit, got %s", thenType)
	}

	a.emit.Emit(bytecode.Instruction{Op: bytecode.OpEndIf})
	return element.NewValue(resultType), nil
}
