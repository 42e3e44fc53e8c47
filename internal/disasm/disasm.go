// Package disasm renders a bytecode.Program as canonical text (spec
// section 4.F: "Every instruction has a canonical textual
// disassembly"). Grounded on the teacher's debugger/vm_hook.go trace
// formatting idiom (one line per executed instruction, address-first),
// adapted here to a static listing rather than a live trace.
package disasm

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sentra-lang/zincvm/internal/bytecode"
)

// Program renders every instruction of prog, one per line, prefixed
// by its address, with function-entry labels inserted before the
// first instruction of each recorded function address.
func Program(prog *bytecode.Program) string {
	entryAt := map[int][]int{}
	for idx, addr := range prog.FunctionAddrs {
		entryAt[addr] = append(entryAt[addr], idx)
	}

	var sb strings.Builder
	for addr, instr := range prog.Instructions {
		if labels, ok := entryAt[addr]; ok {
			sort.Ints(labels)
			for _, idx := range labels {
				fmt.Fprintf(&sb, "; function %s\n", funcLabel(idx))
			}
		}
		fmt.Fprintf(&sb, "%04d  %s\n", addr, Instruction(&instr))
	}
	return sb.String()
}

func funcLabel(idx int) string {
	switch idx {
	case bytecode.FuncDbg:
		return "dbg (#0)"
	case bytecode.FuncAssert:
		return "assert (#1)"
	case bytecode.FuncMain:
		return "main (#2)"
	default:
		return fmt.Sprintf("#%d", idx)
	}
}

// Instruction renders one instruction as a single canonical line:
// mnemonic followed by its populated operands.
func Instruction(instr *bytecode.Instruction) string {
	switch instr.Op {
	case bytecode.OpLoadPush, bytecode.OpPopStore:
		return fmt.Sprintf("%-18s addr=%d", instr.Op, instr.Addr)
	case bytecode.OpLoadPushArray, bytecode.OpPopStoreArray:
		return fmt.Sprintf("%-18s addr=%d size=%d", instr.Op, instr.Addr, instr.Size)
	case bytecode.OpLoadPushByIndex, bytecode.OpPopStoreByIndex:
		return fmt.Sprintf("%-18s base=%d size=%d", instr.Op, instr.Addr, instr.Size)
	case bytecode.OpCopy:
		return fmt.Sprintf("%-18s index=%d", instr.Op, instr.Index)
	case bytecode.OpSlice:
		return fmt.Sprintf("%-18s offset=%d len=%d", instr.Op, instr.Offset, instr.SliceLen)
	case bytecode.OpCast:
		sign := "u"
		if instr.Signed {
			sign = "i"
		}
		return fmt.Sprintf("%-18s %s%d", instr.Op, sign, instr.Bits)
	case bytecode.OpPushConst:
		return fmt.Sprintf("%-18s %s (%s)", instr.Op, instr.Const.String(), constTypeName(instr.ConstType))
	case bytecode.OpLoopBegin:
		return fmt.Sprintf("%-18s count=%d", instr.Op, instr.Count)
	case bytecode.OpCall:
		return fmt.Sprintf("%-18s addr=%d input_size=%d", instr.Op, instr.Addr, instr.Size)
	case bytecode.OpReturn, bytecode.OpExit:
		return fmt.Sprintf("%-18s size=%d", instr.Op, instr.Size)
	case bytecode.OpDbg:
		return fmt.Sprintf("%-18s %q argc=%d", instr.Op, instr.Format, instr.Argc)
	case bytecode.OpFile:
		return fmt.Sprintf("%-18s %q", instr.Op, instr.Debug.File)
	case bytecode.OpFunction:
		return fmt.Sprintf("%-18s %q", instr.Op, instr.Debug.Function)
	case bytecode.OpLine, bytecode.OpColumn:
		return fmt.Sprintf("%-18s %d", instr.Op, instr.Index)
	default:
		return instr.Op.String()
	}
}

func constTypeName(t bytecode.ConstType) string {
	switch t {
	case bytecode.ConstTypeBool:
		return "bool"
	case bytecode.ConstTypeUnsignedInt:
		return "uint"
	case bytecode.ConstTypeSignedInt:
		return "int"
	case bytecode.ConstTypeField:
		return "field"
	default:
		return "?"
	}
}
