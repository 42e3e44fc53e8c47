package vm

import "github.com/sentra-lang/zincvm/internal/bytecode"

// TraceHook is notified once per executed instruction, and at call
// boundaries; the trace-streaming service and tests attach to it.
// Grounded on the teacher's debugger.DebugHook interface shape
// (internal/debugger/vm_hook.go), trimmed from a full breakpoint/step
// debugger — not meaningful for a pure constraint synthesizer with no
// interactive stepping — down to plain observation.
type TraceHook interface {
	// OnInstruction is called before an instruction executes. A false
	// return has no effect (this executor has no interactive
	// breakpoints); the return value exists so a hook written against
	// the teacher's step/continue convention still type-checks.
	OnInstruction(vm *VM, pc int, instr *bytecode.Instruction) bool
	OnCall(vm *VM, funcIdx int, pc int)
	OnReturn(vm *VM, pc int)
	OnError(vm *VM, err error, pc int)
}

// NullHook discards every notification; used when no tracing is
// wanted.
type NullHook struct{}

func (NullHook) OnInstruction(*VM, int, *bytecode.Instruction) bool { return true }
func (NullHook) OnCall(*VM, int, int)                               {}
func (NullHook) OnReturn(*VM, int)                                  {}
func (NullHook) OnError(*VM, error, int)                            {}
