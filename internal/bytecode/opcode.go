// Package bytecode implements the instruction set of spec section
// 4.F/4.C: a tagged sum of instruction variants with typed operand
// payloads, an append-only emitter with a data-stack address
// allocator, and a self-describing binary encoding. Grounded on the
// teacher's internal/buildutil/build.go magic-number/version
// framing and internal/compiler/compiler.go's emit/patch idiom,
// generalized from an untyped scripting-language opcode set to the
// ~50-variant constraint-synthesizing instruction set this toolchain
// needs.
package bytecode

// Op is the closed opcode sum.
type Op byte

const (
	OpNoOp Op = iota

	// Stack manipulation / memory.
	OpLoadPush
	OpLoadPushArray
	OpLoadPushByIndex
	OpPopStore
	OpPopStoreArray
	OpPopStoreByIndex
	OpCopy
	OpSlice

	// Arithmetic.
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg

	// Boolean.
	OpAnd
	OpOr
	OpXor
	OpNot

	// Comparison.
	OpLt
	OpLe
	OpEq
	OpNe
	OpGe
	OpGt

	// Bitwise.
	OpBitwiseAnd
	OpBitwiseOr
	OpBitwiseXor
	OpBitwiseNot
	OpShiftLeft
	OpShiftRight

	// Casting.
	OpCast

	// Conditional select / flow control.
	OpConditionalSelect
	OpIf
	OpElse
	OpEndIf
	OpLoopBegin
	OpLoopEnd

	// Calls.
	OpCall
	OpReturn
	OpExit

	// Constants and built-ins.
	OpPushConst
	OpAssert
	OpDbg

	// Debug markers.
	OpFile
	OpFunction
	OpLine
	OpColumn
)

var opNames = map[Op]string{
	OpNoOp:               "NoOp",
	OpLoadPush:           "LoadPush",
	OpLoadPushArray:      "LoadPushArray",
	OpLoadPushByIndex:    "LoadPushByIndex",
	OpPopStore:           "PopStore",
	OpPopStoreArray:      "PopStoreArray",
	OpPopStoreByIndex:    "PopStoreByIndex",
	OpCopy:               "Copy",
	OpSlice:              "Slice",
	OpAdd:                "Add",
	OpSub:                "Sub",
	OpMul:                "Mul",
	OpDiv:                "Div",
	OpRem:                "Rem",
	OpNeg:                "Neg",
	OpAnd:                "And",
	OpOr:                 "Or",
	OpXor:                "Xor",
	OpNot:                "Not",
	OpLt:                 "Lt",
	OpLe:                 "Le",
	OpEq:                 "Eq",
	OpNe:                 "Ne",
	OpGe:                 "Ge",
	OpGt:                 "Gt",
	OpBitwiseAnd:         "BitwiseAnd",
	OpBitwiseOr:          "BitwiseOr",
	OpBitwiseXor:         "BitwiseXor",
	OpBitwiseNot:         "BitwiseNot",
	OpShiftLeft:          "ShiftLeft",
	OpShiftRight:         "ShiftRight",
	OpCast:               "Cast",
	OpConditionalSelect:  "ConditionalSelect",
	OpIf:                 "If",
	OpElse:               "Else",
	OpEndIf:              "EndIf",
	OpLoopBegin:          "LoopBegin",
	OpLoopEnd:            "LoopEnd",
	OpCall:               "Call",
	OpReturn:             "Return",
	OpExit:               "Exit",
	OpPushConst:          "PushConst",
	OpAssert:             "Assert",
	OpDbg:                "Dbg",
	OpFile:               "File",
	OpFunction:           "Function",
	OpLine:               "Line",
	OpColumn:             "Column",
}

func (o Op) String() string {
	if n, ok := opNames[o]; ok {
		return n
	}
	return "Unknown"
}
