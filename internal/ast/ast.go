// Package ast defines the input boundary the semantic analyzer
// consumes (spec section 6): a CircuitProgram is an ordered sequence
// of outer statements; an expression is not a recursive tree but the
// flat operand/operator token stream a shunting-yard linearization
// produces. Building ast.CircuitProgram values is the external
// parser's job — this package has no lexer/parser attached, the same
// boundary the teacher's vm_test.go draws by hand-building
// bytecode.Chunk values instead of compiling source.
package ast

import "github.com/sentra-lang/zincvm/internal/zerr"

// CircuitProgram is the analyzer's entry point: the root AST node,
// an ordered sequence of top-level statements.
type CircuitProgram struct {
	Statements []Statement
}

// Statement is implemented by every outer (top-level or block-level)
// statement variant.
type Statement interface{ isStatement() }

// LetStmt declares a mutable or immutable local binding.
type LetStmt struct {
	Loc      zerr.Location
	Name     string
	Mutable  bool
	Type     *TypeExpr // nil when the type is to be inferred from Value
	Value    Expr
}

func (*LetStmt) isStatement() {}

// ConstStmt declares a compile-time constant.
type ConstStmt struct {
	Loc   zerr.Location
	Name  string
	Type  *TypeExpr
	Value Expr
}

func (*ConstStmt) isStatement() {}

// StaticStmt declares an immutable global: data-stack cells are
// allocated where the statement is analyzed and initialized from the
// value expression, which need not be a compile-time constant.
type StaticStmt struct {
	Loc   zerr.Location
	Name  string
	Type  *TypeExpr
	Value Expr
}

func (*StaticStmt) isStatement() {}

// TypeStmt introduces a type alias.
type TypeStmt struct {
	Loc  zerr.Location
	Name string
	Type TypeExpr
}

func (*TypeStmt) isStatement() {}

// StructFieldDecl is one ordered, named field of a StructStmt.
type StructFieldDecl struct {
	Name string
	Type TypeExpr
}

// StructStmt declares a structure type.
type StructStmt struct {
	Loc    zerr.Location
	Name   string
	Fields []StructFieldDecl
}

func (*StructStmt) isStatement() {}

// EnumVariantDecl is one named, integer-valued member of an EnumStmt.
type EnumVariantDecl struct {
	Name  string
	Value int64
}

// EnumStmt declares an enumeration type.
type EnumStmt struct {
	Loc      zerr.Location
	Name     string
	Variants []EnumVariantDecl
}

func (*EnumStmt) isStatement() {}

// ParamDecl is one function argument.
type ParamDecl struct {
	Name string
	Type TypeExpr
}

// FnStmt declares a function.
type FnStmt struct {
	Loc    zerr.Location
	Name   string
	Params []ParamDecl
	Return *TypeExpr // nil means unit return
	Body   []Statement
}

func (*FnStmt) isStatement() {}

// ModStmt declares a nested module whose body is analyzed in a child
// scope.
type ModStmt struct {
	Loc  zerr.Location
	Name string
	Body []Statement
}

func (*ModStmt) isStatement() {}

// UseStmt imports a name or path from a sibling module.
type UseStmt struct {
	Loc  zerr.Location
	Path []string
}

func (*UseStmt) isStatement() {}

// ExprStmt evaluates an expression for its side effects (or as the
// trailing value of a block).
type ExprStmt struct {
	Loc  zerr.Location
	Expr Expr
}

func (*ExprStmt) isStatement() {}

// TypeExpr names a type as written in source, before resolution
// against the scope table. An empty Name selects ArrayOf/ArrayLen or
// TupleOf (an empty Name with neither is unit).
type TypeExpr struct {
	Loc        zerr.Location
	Name       string    // builtin or declared name ("u"/"i" with Bits, bool, field, MyStruct, ...)
	Bits       int       // set when Name is "u"/"i" sized builtin
	Signed     bool      // not read by the analyzer; Name "i" selects a signed integer
	ArrayOf    *TypeExpr
	ArrayLen   int
	TupleOf    []TypeExpr
}

// Expr is the flat operand/operator token stream consumed by the
// expression analyzer: a sequence of Tokens in shunting-yard
// postfix order.
type Expr struct {
	Tokens []Token
}

// Token is a closed sum of Operand and Operator.
type Token interface{ isToken() }

// Hint tells the analyzer how to resolve an identifier Operand once
// it is popped off the evaluation stack (spec section 4.D's
// "translation hint").
type Hint int

const (
	HintValue Hint = iota
	HintPlace
	HintType
	HintPathExpression
	HintCompoundTypeMember
)

// Operand is a leaf token: a literal, an identifier, or a nested
// sub-expression (block/conditional/match/array/tuple/struct-literal/
// list), each carrying the translation hint that governs its
// resolution.
type Operand struct {
	Loc  zerr.Location
	Hint Hint

	// Exactly one of the following is populated, selected by Kind.
	Kind       OperandKind
	IntLit     int64
	BoolLit    bool
	StrLit     string
	Ident      string
	Member     string // MemberString selector, e.g. `.name`
	MemberIdx  int    // MemberInteger selector, e.g. `.0`
	Sub        *SubExpr
}

func (Operand) isToken() {}

// OperandKind discriminates an Operand's populated field.
type OperandKind int

const (
	OperandInt OperandKind = iota
	OperandBool
	OperandString
	OperandIdent
	OperandMemberString
	OperandMemberInteger
	OperandSub
)

// SubExprKind discriminates the shape of a nested sub-expression.
type SubExprKind int

const (
	SubBlock SubExprKind = iota
	SubConditional
	SubMatch
	SubArrayLiteral
	SubTupleLiteral
	SubStructLiteral
	SubList
	SubLoop
)

// SubExpr is a nested AST node a complex operand recurses into; the
// expression analyzer dispatches a sub-analyzer over it rather than
// flattening it into the parent token stream.
type SubExpr struct {
	Kind SubExprKind

	// SubBlock / function and loop bodies.
	Statements []Statement
	Tail       *Expr // not read by the analyzer: a block's value is its final ExprStmt

	// SubConditional
	Condition *Expr
	Then      *SubExpr // always SubBlock
	Else      *SubExpr // nil, or SubBlock, or SubConditional (else-if chain)

	// SubMatch
	Scrutinee *Expr
	Arms      []MatchArm

	// SubArrayLiteral / SubTupleLiteral / SubList
	Elements []Expr

	// SubStructLiteral
	StructName   string
	FieldValues  []StructFieldInit

	// SubLoop
	LoopVar      string
	RangeFrom    Expr
	RangeTo      Expr
	RangeInclusive bool
	While        *Expr
	Body         *SubExpr // always SubBlock
}

// StructFieldInit is one `name: value` pair of a struct literal.
type StructFieldInit struct {
	Name  string
	Value Expr
}

// Pattern is one match arm's scrutinee pattern.
type Pattern struct {
	Kind    PatternKind
	Bool    bool
	Int     int64
	Path    []string // Path-to-constant pattern, e.g. Color::Red
	Binding string   // identifier bound to the scrutinee's value
}

// PatternKind discriminates a Pattern's populated fields.
type PatternKind int

const (
	PatternBool PatternKind = iota
	PatternInt
	PatternPath
	PatternBinding
	PatternWildcard
)

// MatchArm pairs a pattern with the expression/block it selects.
type MatchArm struct {
	Loc     zerr.Location
	Pattern Pattern
	Body    Expr
}

// Operator is a non-leaf token: a binary/unary operator, or an
// auxiliary marker such as CallBuiltIn that retags the following
// Call as an intrinsic invocation.
type Operator struct {
	Loc  zerr.Location
	Kind OperatorKind

	// Populated for OpField/OpTupleIndex/OpCast/OpCall.
	Name     string
	Index    int
	TypeName *TypeExpr
	Argc     int
}

func (Operator) isToken() {}

// OperatorKind enumerates every binary, unary, and auxiliary operator
// the analyzer recognizes.
type OperatorKind int

const (
	OpAdd OperatorKind = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpNeg
	OpAnd
	OpOr
	OpXor
	OpNot
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpBitAnd
	OpBitOr
	OpBitXor
	OpBitNot
	OpShl
	OpShr
	OpCast
	OpIndex
	OpField
	OpTupleIndex
	OpAssign
	OpCall
	OpCallBuiltIn // auxiliary: marks the following OpCall as an intrinsic
)
