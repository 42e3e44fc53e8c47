// Package scope implements the analyzer's nested symbol table: a
// stack of lexical scopes, each a flat list of named bindings, chained
// to an enclosing parent the way a nested block or function body
// looks up an outer variable. Grounded on the teacher's
// compiler.StmtCompiler locals slice plus its parent *StmtCompiler
// pointer for closures (internal/compiler/stmt_compiler.go),
// generalized from a single flat slice into a push/pop stack of
// scopes so block-local bindings can be dropped at block exit without
// disturbing the enclosing function's locals.
package scope

import "github.com/sentra-lang/zincvm/internal/element"

// Kind distinguishes what a binding names.
type Kind int

const (
	KindValue Kind = iota
	KindType
	KindFunction
	KindModule
	KindConst
	KindStatic
)

// Binding is one declared name.
type Binding struct {
	Name    string
	Kind    Kind
	Place   element.Place    // valid when Kind == KindValue, or KindStatic for a `static`
	Const   element.Constant // valid when Kind == KindConst
	Type    element.Element  // TypeElement, valid when Kind == KindType
	Func    element.Element  // holds a function signature element, when Kind == KindFunction
	Mutable bool
}

// frame is one lexical scope: an ordered, append-only list of
// bindings (shadowing resolves to the most recently declared binding
// of a given name, scanning back to front).
type frame struct {
	bindings []Binding
}

// Table is a stack of lexical frames. The outermost frame (index 0)
// is the root/global scope and is never popped.
type Table struct {
	frames []*frame
}

// New builds a symbol table with just the root scope open.
func New() *Table {
	return &Table{frames: []*frame{{}}}
}

// Push opens a new nested scope (entering a block, function body, or
// loop body).
func (t *Table) Push() {
	t.frames = append(t.frames, &frame{})
}

// Pop closes the innermost scope, discarding every binding declared
// in it. Popping the root scope is a programming error and panics.
func (t *Table) Pop() {
	if len(t.frames) <= 1 {
		panic("scope: cannot pop root scope")
	}
	t.frames = t.frames[:len(t.frames)-1]
}

// Depth reports how many scopes are currently open, root included.
func (t *Table) Depth() int { return len(t.frames) }

func (t *Table) top() *frame { return t.frames[len(t.frames)-1] }

// Declare adds a new binding to the innermost scope. It does not
// reject shadowing an outer binding (shadowing is legal); the caller
// is responsible for rejecting a duplicate declaration within the
// same scope, if the surface language forbids it.
func (t *Table) Declare(b Binding) {
	f := t.top()
	f.bindings = append(f.bindings, b)
}

// Resolve looks up name from the innermost scope outward, returning
// the nearest (most-shadowing) binding.
func (t *Table) Resolve(name string) (Binding, bool) {
	for i := len(t.frames) - 1; i >= 0; i-- {
		bindings := t.frames[i].bindings
		for j := len(bindings) - 1; j >= 0; j-- {
			if bindings[j].Name == name {
				return bindings[j], true
			}
		}
	}
	return Binding{}, false
}

// ResolvePlace resolves name and asserts it names an addressable
// value (KindValue or KindStatic), returning its Place. Mutability is
// inherited from the base binding through every selector later
// appended to the Place's Path (an access path never widens what the
// base binding allows).
func (t *Table) ResolvePlace(name string) (element.Place, bool) {
	b, ok := t.Resolve(name)
	if !ok || (b.Kind != KindValue && b.Kind != KindStatic) {
		return element.Place{}, false
	}
	return b.Place, true
}

// DeclaredInCurrent reports whether name is already bound in the
// innermost scope only (used to reject a duplicate `let` within one
// block).
func (t *Table) DeclaredInCurrent(name string) bool {
	for _, b := range t.top().bindings {
		if b.Name == name {
			return true
		}
	}
	return false
}
