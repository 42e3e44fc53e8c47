// Package zerr implements the error taxonomy of the circuit toolchain:
// analyzer errors (scope, type, function, match, constant, place) and
// executor/bytecode errors, each carrying source location and an
// optional call stack the way a compiler diagnostic should.
package zerr

import (
	"fmt"
	"strings"
)

// Kind is the closed error taxonomy.
type Kind string

const (
	KindScope    Kind = "ScopeError"
	KindType     Kind = "TypeError"
	KindFunction Kind = "FunctionError"
	KindMatch    Kind = "MatchError"
	KindConstant Kind = "ConstantError"
	KindPlace    Kind = "PlaceError"
	KindRuntime  Kind = "RuntimeError"
	KindBytecode Kind = "BytecodeError"
)

// Location is a position in the source the AST boundary reports.
type Location struct {
	File   string
	Line   int
	Column int
}

func (l Location) String() string {
	if l.File == "" && l.Line == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Frame is a single call-stack entry, recorded by the executor when an
// error surfaces from inside a function call chain.
type Frame struct {
	Function string
	Location Location
}

// Error is the single error type every CORE component returns; its
// Kind selects the taxonomy bucket from spec section 7.
type Error struct {
	Kind      Kind
	Message   string
	Location  Location
	Source    string
	CallStack []Frame
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(string(e.Kind))
	sb.WriteString(": ")
	sb.WriteString(e.Message)
	if loc := e.Location.String(); loc != "" {
		sb.WriteString("\n  at ")
		sb.WriteString(loc)
	}
	if e.Source != "" {
		fmt.Fprintf(&sb, "\n\n  %d | %s\n", e.Location.Line, e.Source)
		pad := len(fmt.Sprintf("%d | ", e.Location.Line))
		if e.Location.Column > 0 {
			pad += e.Location.Column - 1
		}
		sb.WriteString(strings.Repeat(" ", pad))
		sb.WriteString("^")
	}
	for _, f := range e.CallStack {
		sb.WriteString("\n  in ")
		if f.Function != "" {
			sb.WriteString(f.Function)
			sb.WriteString(" ")
		}
		sb.WriteString("(")
		sb.WriteString(f.Location.String())
		sb.WriteString(")")
	}
	return sb.String()
}

// WithSource attaches the offending source line for display.
func (e *Error) WithSource(src string) *Error {
	e.Source = src
	return e
}

// WithStack attaches a call stack, outermost frame first.
func (e *Error) WithStack(stack []Frame) *Error {
	e.CallStack = stack
	return e
}

// AddFrame appends one call-stack frame.
func (e *Error) AddFrame(function string, loc Location) *Error {
	e.CallStack = append(e.CallStack, Frame{Function: function, Location: loc})
	return e
}

func newErr(kind Kind, loc Location, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Location: loc}
}

// Scope errors: undeclared names, duplicate declarations, kind
// mismatches, assignment to immutable memory.
func Scope(loc Location, format string, args ...interface{}) *Error {
	return newErr(KindScope, loc, format, args...)
}

// Type errors: incompatible operand types, disallowed casts, unequal
// branch types, loop-bound inference failure.
func Type(loc Location, format string, args ...interface{}) *Error {
	return newErr(KindType, loc, format, args...)
}

// Function errors: non-callable operand, arity/type mismatch, unknown
// builtin, immutable-receiver mutation.
func Function(loc Location, format string, args ...interface{}) *Error {
	return newErr(KindFunction, loc, format, args...)
}

// Match errors: pattern/scrutinee mismatch, unreachable branch,
// non-exhaustive match.
func Match(loc Location, format string, args ...interface{}) *Error {
	return newErr(KindMatch, loc, format, args...)
}

// Constant errors: literal out of range, non-constant expression in a
// constant context, non-constant match pattern.
func Constant(loc Location, format string, args ...interface{}) *Error {
	return newErr(KindConstant, loc, format, args...)
}

// Place errors: missing field, static index out of bounds, indexing a
// non-array.
func Place(loc Location, format string, args ...interface{}) *Error {
	return newErr(KindPlace, loc, format, args...)
}

// Runtime errors: stack underflow, division by zero, unexpected
// else/endif, assertion failure, dynamic index out of bounds,
// branch-stack mismatch.
func Runtime(loc Location, format string, args ...interface{}) *Error {
	return newErr(KindRuntime, loc, format, args...)
}

// Bytecode errors: malformed encoding on decode, unknown opcode.
func Bytecode(format string, args ...interface{}) *Error {
	return newErr(KindBytecode, Location{}, format, args...)
}

// Is reports whether err is a *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}
