package bytecode

import "github.com/sentra-lang/zincvm/internal/field"

// Instruction is one bytecode instruction: Op discriminates which of
// the typed operand fields below are meaningful, mirroring the
// source's tagged enum while staying a single concrete Go struct (the
// same flat-payload shape the teacher's bytecode.Chunk.Code array
// encodes one opcode-plus-operands at a time).
type Instruction struct {
	Op Op

	Addr     int // data-stack address (LoadPush*, PopStore*, Call target)
	Size     int // operand/element size in cells (*Array, *ByIndex, Return, Exit, Call input size)
	Index    int // Copy index; Call: callee's function index (Addr is the resolved pc)
	SliceLen int // Slice: resulting slice length
	Offset   int // Slice: starting element offset

	Signed bool // Cast
	Bits   int  // Cast

	Const     field.Element // PushConst
	ConstType ConstType      // PushConst: how Const should be interpreted

	Count int // LoopBegin iteration count

	Format string // Dbg format string
	Argc   int    // Dbg argument count; LoadPushByIndex/PopStoreByIndex: array length

	Debug DebugInfo
}

// ConstType tags the semantic type of a PushConst payload, since
// field.Element alone cannot distinguish "the integer 0" from
// "the boolean false" — both are the zero field element.
type ConstType int

const (
	ConstTypeBool ConstType = iota
	ConstTypeUnsignedInt
	ConstTypeSignedInt
	ConstTypeField
)

// DebugInfo attaches source-location metadata to an instruction, the
// same per-instruction debug line the teacher's bytecode.DebugInfo
// carries, extended with file/function/column per the File/Function/
// Line/Column debug-marker instructions of spec section 4.F.
type DebugInfo struct {
	File     string
	Function string
	Line     int
	Column   int
}
