package bytecode

// Emitter is the append-only instruction buffer of spec section 4.C:
// a data-stack address allocator plus a function-address table,
// grounded on the teacher's compiler.StmtCompiler emitOp/emitByte
// pattern (one owner appends instructions and tracks a stack-position
// counter), generalized to also allocate the two bootstrap
// placeholders patched at Finalize.
type Emitter struct {
	prog          *Program
	stackPosition int

	bootstrapCallIdx int
	bootstrapExitIdx int
}

// New creates an emitter with the two NoOp bootstrap placeholders
// already appended (spec section 4.C): they are overwritten by
// Finalize with Call(main_addr, main_input_size) and
// Exit(main_return_size).
func New() *Emitter {
	e := &Emitter{
		prog: &Program{
			FunctionAddrs: map[int]int{},
		},
	}
	e.bootstrapCallIdx = e.emitRaw(Instruction{Op: OpNoOp})
	e.bootstrapExitIdx = e.emitRaw(Instruction{Op: OpNoOp})
	return e
}

// Allocate reserves size data-stack cells and returns the address of
// the first one, advancing the function-local stack-position counter.
func (e *Emitter) Allocate(size int) int {
	addr := e.stackPosition
	e.stackPosition += size
	return addr
}

// StackPosition reports the current function-local data-stack
// ceiling (used by the statement analyzer to size a function's
// frame).
func (e *Emitter) StackPosition() int { return e.stackPosition }

func (e *Emitter) emitRaw(instr Instruction) int {
	e.prog.Instructions = append(e.prog.Instructions, instr)
	return len(e.prog.Instructions) - 1
}

// Emit appends instr to the stream and returns its index (the
// instruction's address, used as a jump/call target).
func (e *Emitter) Emit(instr Instruction) int {
	return e.emitRaw(instr)
}

// FunctionEnter records funcIdx's entry address as the next
// instruction and resets the stack-position counter to 0 (a fresh
// function frame always starts empty).
func (e *Emitter) FunctionEnter(funcIdx int) {
	e.prog.FunctionAddrs[funcIdx] = len(e.prog.Instructions)
	e.stackPosition = 0
}

// FunctionExit emits the function's Return instruction.
func (e *Emitter) FunctionExit(returnSize int) int {
	return e.Emit(Instruction{Op: OpReturn, Size: returnSize})
}

// ResolveCallTargets rewrites every emitted Call instruction's Addr
// from the function index the analyzer had on hand at the call site
// to that function's resolved entry pc, looked up in FunctionAddrs.
// Calls are analyzed in source order, so a call to a function declared
// later in the program (or a mutually-recursive call) is emitted
// before that function's FunctionEnter has recorded its pc; this
// two-pass patch (mirroring the bootstrap NoOp-then-patch idiom above)
// lets every Call instruction end up carrying a real pc without
// requiring the analyzer to process functions in dependency order.
// Must run after every function has been emitted and before Finalize.
func (e *Emitter) ResolveCallTargets() {
	for i := range e.prog.Instructions {
		instr := &e.prog.Instructions[i]
		if instr.Op != OpCall {
			continue
		}
		if pc, ok := e.prog.FunctionAddrs[instr.Addr]; ok {
			instr.Addr = pc
		}
	}
}

// Finalize patches the two bootstrap placeholders into
// Call(mainAddr, mainInputSize) followed by Exit(mainReturnSize), and
// returns the completed Program. Must be called exactly once, after
// every function (including main) has been emitted.
func (e *Emitter) Finalize(mainInputSize, mainReturnSize int) *Program {
	mainAddr, ok := e.prog.FunctionAddrs[FuncMain]
	if !ok {
		panic("bytecode: main function was never emitted")
	}
	e.prog.Instructions[e.bootstrapCallIdx] = Instruction{Op: OpCall, Addr: mainAddr, Index: FuncMain, Size: mainInputSize}
	e.prog.Instructions[e.bootstrapExitIdx] = Instruction{Op: OpExit, Size: mainReturnSize}
	e.prog.MainFunc = FuncMain
	e.prog.MainInputSize = mainInputSize
	e.prog.MainReturnSize = mainReturnSize
	return e.prog
}
