package ast

import "github.com/kennedyshead/prove/internal/sourcemap"

// IntegerLiteral: `42`, `0x2A`, `0b101010`, `0o52`.
type IntegerLiteral struct {
	exprBase
	Value int64
	IsHex, IsBin, IsOct bool
}

func (e *IntegerLiteral) Accept(v Visitor) { v.VisitIntegerLiteral(e) }

// DecimalLiteral: `1.0`.
type DecimalLiteral struct {
	exprBase
	Value float64
}

func (e *DecimalLiteral) Accept(v Visitor) { v.VisitDecimalLiteral(e) }

// BooleanLiteral: `true` / `false`.
type BooleanLiteral struct {
	exprBase
	Value bool
}

func (e *BooleanLiteral) Accept(v Visitor) { v.VisitBooleanLiteral(e) }

// StringSegmentKind distinguishes literal text from an interpolated
// expression inside a format string.
type StringSegmentKind int

const (
	StrSegText StringSegmentKind = iota
	StrSegExpr
)

// StringSegment is one piece of a (possibly interpolated) string literal.
type StringSegment struct {
	Kind StringSegmentKind
	Text string
	Expr Expression // non-nil when Kind == StrSegExpr
}

// StringLiteralKind distinguishes plain/triple/format/raw strings.
type StringLiteralKind int

const (
	StrPlain StringLiteralKind = iota
	StrTriple
	StrFormat
	StrRaw
)

// StringLiteral carries a sequence of segments so interpolation survives
// to the parser (spec.md §3 "Token").
type StringLiteral struct {
	exprBase
	StrKind  StringLiteralKind
	Segments []StringSegment
}

func (e *StringLiteral) Accept(v Visitor) { v.VisitStringLiteral(e) }

// RegexLiteral: `/pattern/`.
type RegexLiteral struct {
	exprBase
	Pattern string
}

func (e *RegexLiteral) Accept(v Visitor) { v.VisitRegexLiteral(e) }

// Identifier: a snake_case variable/function reference.
type Identifier struct {
	exprBase
	Name string
}

func (e *Identifier) Accept(v Visitor) { v.VisitIdentifier(e) }

// TypeIdentifier: a CamelCase type/constructor reference.
type TypeIdentifier struct {
	exprBase
	Name string
}

func (e *TypeIdentifier) Accept(v Visitor) { v.VisitTypeIdentifier(e) }

// Call: `callee(args...)`.
type Call struct {
	exprBase
	Callee Expression
	Args   []Expression
	// ResolvedVerb is filled in by the resolver's context-aware call
	// resolution (spec.md §4.3) once the candidate verb-variant is chosen.
	ResolvedVerb string
}

func (e *Call) Accept(v Visitor) { v.VisitCall(e) }

// Field: `expr.name`.
type Field struct {
	exprBase
	Receiver Expression
	Name     string
}

func (e *Field) Accept(v Visitor) { v.VisitField(e) }

// Pipe: `a |> f` (spec.md §4.2, desugared at typed-AST stage per §4.6).
type Pipe struct {
	exprBase
	Left  Expression
	Right Expression
}

func (e *Pipe) Accept(v Visitor) { v.VisitPipe(e) }

// FailProp: postfix `!` (spec.md §4.4 "Fallibility propagation").
type FailProp struct {
	exprBase
	Inner Expression
}

func (e *FailProp) Accept(v Visitor) { v.VisitFailProp(e) }

// Lambda: a captureless anonymous function (spec.md §4.4 "Lambdas must be
// pure and may not capture...").
type Lambda struct {
	exprBase
	Params []Param
	Body   Expression
}

func (e *Lambda) Accept(v Visitor) { v.VisitLambda(e) }

// Valid is the `valid f` / `valid f(x)` form binding or forcing a
// function's `validates` variant (spec.md §4.3).
type Valid struct {
	exprBase
	Target Expression // Identifier (bare reference) or Call (forced + evaluated)
}

func (e *Valid) Accept(v Visitor) { v.VisitValid(e) }

// MatchArm: `pattern => expression`.
type MatchArm struct {
	Pattern Pattern
	Guard   Expression // optional `where` guard, nil if absent
	Body    Expression
	Span    sourcemap.Span
}

// Match: explicit `match scrutinee  pattern => expr  ...`.
type Match struct {
	exprBase
	Scrutinee Expression
	Arms      []MatchArm
}

func (e *Match) Accept(v Visitor) { v.VisitMatch(e) }

// If is accepted only inside `comptime` blocks (spec.md §9 Open Question a;
// SPEC_FULL.md §10).
type If struct {
	exprBase
	Cond Expression
	Then Expression
	Else Expression // nil if no else
}

func (e *If) Accept(v Visitor) { v.VisitIf(e) }

// BinaryOpKind enumerates the precedence table of spec.md §4.2.
type BinaryOpKind int

const (
	OpPipeInto BinaryOpKind = iota
	OpOr
	OpAnd
	OpEq
	OpNotEq
	OpLt
	OpGt
	OpLe
	OpGe
	OpRange
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
)

// BinaryOp: `left OP right`.
type BinaryOp struct {
	exprBase
	Op    BinaryOpKind
	Left  Expression
	Right Expression
}

func (e *BinaryOp) Accept(v Visitor) { v.VisitBinaryOp(e) }

// UnaryOpKind enumerates prefix operators.
type UnaryOpKind int

const (
	OpNeg UnaryOpKind = iota
	OpNot
)

// UnaryOp: `-x`, `!x` (prefix, i.e. logical-not; see spec.md §4.1 "Fail
// marker vs. boolean-not").
type UnaryOp struct {
	exprBase
	Op    UnaryOpKind
	Inner Expression
}

func (e *UnaryOp) Accept(v Visitor) { v.VisitUnaryOp(e) }

// Parenthesized wraps an expression so its original grouping survives
// pretty-printing and precedence-sensitive lowering.
type Parenthesized struct {
	exprBase
	Inner Expression
}

func (e *Parenthesized) Accept(v Visitor) { v.VisitParenthesized(e) }

// ListLiteral: `[e1, e2, ...]`.
type ListLiteral struct {
	exprBase
	Elements []Expression
}

func (e *ListLiteral) Accept(v Visitor) { v.VisitListLiteral(e) }

// Range: `a..b`.
type Range struct {
	exprBase
	Low, High Expression
}

func (e *Range) Accept(v Visitor) { v.VisitRange(e) }
