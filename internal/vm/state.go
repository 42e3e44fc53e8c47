package vm

import (
	"math/big"

	"github.com/sentra-lang/zincvm/internal/bytecode"
	"github.com/sentra-lang/zincvm/internal/field"
	"github.com/sentra-lang/zincvm/internal/merkletree"
	"github.com/sentra-lang/zincvm/internal/r1cs"
	"github.com/sentra-lang/zincvm/internal/zerr"
)

// blockKind discriminates a Frame's open Block (spec section 3:
// "Block ∈ {Loop{...} | Branch{...}}").
type blockKind int

const (
	blockBranch blockKind = iota
	blockLoop
)

// block is one open If or LoopBegin on a frame's block stack.
type block struct {
	kind blockKind

	// blockBranch fields.
	condVar      r1cs.Variable
	elseSeen     bool
	dataSnapshot []Cell // copy of vm.data at If time
	thenData     []Cell // copy of vm.data at Else time (then branch's result)
	evalBase     int    // len(vm.eval) at If time
	thenEval     []Cell // vm.eval[evalBase:] at Else time

	// blockLoop fields.
	startPC        int
	iterationsLeft int
}

// frame is one call's activation record (spec section 3).
type frame struct {
	base       int // data_stack_begin: this frame's addresses are base+Addr
	returnPC   int
	funcIdx    int
	blocks     []block
}

// VM is the constraint-synthesizing executor of spec sections 4.G/H.
type VM struct {
	prog *bytecode.Program
	cs   *r1cs.System
	hook TraceHook

	storage *merkletree.Tree // contract-mode-only Merkle storage gadget

	data []Cell // the single flat addressable data stack
	eval []Cell // the evaluation stack

	cond []r1cs.Variable // condition stack; bottom is always constant 1
	frames []frame

	pc   int
	step int

	zero Cell // a cached witness of field.Zero, used to pad merged arrays
	one  Cell // a cached witness of field.One
}

// Option configures a VM at construction.
type Option func(*VM)

// WithHook attaches a TraceHook.
func WithHook(h TraceHook) Option { return func(v *VM) { v.hook = h } }

// WithStorage attaches the Merkle-backed storage gadget for
// contract-mode programs.
func WithStorage(t *merkletree.Tree) Option { return func(v *VM) { v.storage = t } }

// New builds a VM ready to execute prog against a fresh constraint
// system. inputs supplies the program's declared input cells in
// order; nil entries are allocated as free witnesses (spec section
// 4.H: "Root-frame initialization... for each [input], allocate an
// R1CS witness (either from the supplied inputs or as a free
// witness)").
func New(prog *bytecode.Program, inputs []*big.Int, opts ...Option) (*VM, error) {
	cs := r1cs.New()
	v := &VM{
		prog: prog,
		cs:   cs,
		hook: NullHook{},
	}
	for _, o := range opts {
		o(v)
	}

	zeroVar, err := cs.AllocInput("zero", field.Zero())
	if err != nil {
		return nil, err
	}
	v.zero = Cell{Val: field.Zero(), Var: zeroVar}
	v.one = Cell{Val: field.One(), Var: cs.One()}

	v.cond = []r1cs.Variable{cs.One()}
	v.frames = []frame{{base: 0, returnPC: -1, funcIdx: prog.MainFunc}}

	for i := 0; i < prog.MainInputSize; i++ {
		var value field.Element
		if i < len(inputs) && inputs[i] != nil {
			value = field.FromBigInt(inputs[i])
		} else {
			r, err := field.Random()
			if err != nil {
				return nil, err
			}
			value = r
		}
		variable, err := cs.AllocInput("input", value)
		if err != nil {
			return nil, err
		}
		v.data = append(v.data, Cell{Val: value, Var: variable})
	}

	v.pc = 0
	return v, nil
}

// ConstraintSystem exposes the underlying R1CS, for tests and the
// witness-persistence layer.
func (v *VM) ConstraintSystem() *r1cs.System { return v.cs }

func (v *VM) curFrame() *frame { return &v.frames[len(v.frames)-1] }

func (v *VM) curCond() r1cs.Variable { return v.cond[len(v.cond)-1] }

func (v *VM) ensureData(addr int) {
	for len(v.data) <= addr {
		v.data = append(v.data, v.zero)
	}
}

func (v *VM) loadCell(addr int) (Cell, error) {
	if addr < 0 {
		return Cell{}, zerr.Runtime(zerr.Location{}, "negative data-stack address %d", addr)
	}
	v.ensureData(addr)
	return v.data[addr], nil
}

func (v *VM) storeCell(addr int, c Cell) {
	v.ensureData(addr)
	v.data[addr] = c
}

func (v *VM) pushEval(c Cell) { v.eval = append(v.eval, c) }

func (v *VM) popEval() (Cell, error) {
	if len(v.eval) == 0 {
		return Cell{}, zerr.Runtime(zerr.Location{}, "evaluation stack underflow")
	}
	c := v.eval[len(v.eval)-1]
	v.eval = v.eval[:len(v.eval)-1]
	return c, nil
}
