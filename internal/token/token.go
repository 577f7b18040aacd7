// Package token defines the lexical token kinds and the Token value the
// lexer produces and the parser consumes.
package token

import "github.com/kennedyshead/prove/internal/sourcemap"

// Kind discriminates the roughly eighty token variants the lexer produces.
type Kind int

const (
	ILLEGAL Kind = iota
	EOF

	NEWLINE
	INDENT
	DEDENT

	IDENT      // snake_case
	TYPE_IDENT // CamelCase
	CONST_IDENT
	INT
	DECIMAL
	STRING
	TRIPLE_STRING
	FORMAT_STRING
	RAW_STRING
	REGEX
	BOOLEAN

	// Keywords
	KW_MODULE
	KW_TYPE
	KW_IS
	KW_AS
	KW_WITH
	KW_USE
	KW_WHERE
	KW_MATCH
	KW_IF
	KW_ELSE
	KW_FROM
	KW_ENSURES
	KW_REQUIRES
	KW_PROOF
	KW_EXPLAIN
	KW_TERMINATES
	KW_TRUSTED
	KW_WHY_NOT
	KW_CHOSEN
	KW_NEAR_MISS
	KW_KNOW
	KW_ASSUME
	KW_BELIEVE
	KW_INTENT
	KW_NARRATIVE
	KW_TEMPORAL
	KW_SATISFIES
	KW_INVARIANT_NETWORK
	KW_VALID
	KW_COMPTIME
	KW_FOREIGN
	KW_TRANSFORMS
	KW_VALIDATES
	KW_READS
	KW_CREATES
	KW_MATCHES
	KW_INPUTS
	KW_OUTPUTS
	KW_MAIN
	KW_TRUE
	KW_FALSE

	// Punctuation
	LPAREN
	RPAREN
	LBRACE
	RBRACE
	LBRACKET
	RBRACKET
	COMMA
	COLON
	DOT
	DOT_DOT
	ELLIPSIS
	ARROW     // ->
	FAT_ARROW // =>
	PIPE      // |>
	BAR       // | (algebraic-variant separator)
	ASSIGN    // =
	BANG      // !
	AT        // @

	// Operators
	PLUS
	MINUS
	STAR
	SLASH
	PERCENT
	EQ
	NOT_EQ
	LT
	GT
	LE
	GE
	AND_AND
	OR_OR

	COMMENT
	DOC_COMMENT
)

var kindNames = map[Kind]string{
	ILLEGAL: "ILLEGAL", EOF: "EOF",
	NEWLINE: "NEWLINE", INDENT: "INDENT", DEDENT: "DEDENT",
	IDENT: "IDENT", TYPE_IDENT: "TYPE_IDENT", CONST_IDENT: "CONST_IDENT",
	INT: "INT", DECIMAL: "DECIMAL", STRING: "STRING",
	TRIPLE_STRING: "TRIPLE_STRING", FORMAT_STRING: "FORMAT_STRING",
	RAW_STRING: "RAW_STRING", REGEX: "REGEX", BOOLEAN: "BOOLEAN",
	LPAREN: "(", RPAREN: ")", LBRACE: "{", RBRACE: "}",
	LBRACKET: "[", RBRACKET: "]", COMMA: ",", COLON: ":", DOT: ".",
	DOT_DOT: "..", ELLIPSIS: "...", ARROW: "->", FAT_ARROW: "=>",
	PIPE: "|>", BAR: "|", ASSIGN: "=", BANG: "!", AT: "@",
	PLUS: "+", MINUS: "-", STAR: "*", SLASH: "/", PERCENT: "%",
	EQ: "==", NOT_EQ: "!=", LT: "<", GT: ">", LE: "<=", GE: ">=",
	AND_AND: "&&", OR_OR: "||",
	COMMENT: "COMMENT", DOC_COMMENT: "DOC_COMMENT",
}

// Keywords maps reserved words to their Kind, per spec.md §6.1.
var Keywords = map[string]Kind{
	"module": KW_MODULE, "type": KW_TYPE, "is": KW_IS, "as": KW_AS,
	"with": KW_WITH, "use": KW_USE, "where": KW_WHERE, "match": KW_MATCH,
	"if": KW_IF, "else": KW_ELSE, "from": KW_FROM, "ensures": KW_ENSURES,
	"requires": KW_REQUIRES, "proof": KW_PROOF, "explain": KW_EXPLAIN,
	"terminates": KW_TERMINATES, "trusted": KW_TRUSTED, "why_not": KW_WHY_NOT,
	"chosen": KW_CHOSEN, "near_miss": KW_NEAR_MISS, "know": KW_KNOW,
	"assume": KW_ASSUME, "believe": KW_BELIEVE, "intent": KW_INTENT,
	"narrative": KW_NARRATIVE, "temporal": KW_TEMPORAL, "satisfies": KW_SATISFIES,
	"invariant_network": KW_INVARIANT_NETWORK, "valid": KW_VALID,
	"comptime": KW_COMPTIME, "foreign": KW_FOREIGN,
	"transforms": KW_TRANSFORMS, "validates": KW_VALIDATES, "reads": KW_READS,
	"creates": KW_CREATES, "matches": KW_MATCHES, "inputs": KW_INPUTS,
	"outputs": KW_OUTPUTS, "main": KW_MAIN,
	"true": KW_TRUE, "false": KW_FALSE,
}

// Verbs is the set of keywords that begin a FunctionDef (main excluded: it
// has its own MainDef node).
var Verbs = map[Kind]string{
	KW_TRANSFORMS: "transforms", KW_VALIDATES: "validates", KW_READS: "reads",
	KW_CREATES: "creates", KW_MATCHES: "matches", KW_INPUTS: "inputs",
	KW_OUTPUTS: "outputs",
}

// PureVerbs is the subset of Verbs forbidden from IO and fallibility.
var PureVerbs = map[string]bool{
	"transforms": true, "validates": true, "reads": true,
	"creates": true, "matches": true,
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "UNKNOWN"
}

// StringSegmentKind distinguishes a literal run from an interpolated
// expression inside a format string.
type StringSegmentKind int

const (
	SegLiteral StringSegmentKind = iota
	SegExpr
)

// StringSegment is one piece of a (possibly interpolated) string literal.
type StringSegment struct {
	Kind StringSegmentKind
	Text string // literal text, or the raw source of the embedded expression
}

// Token is a discriminated lexical unit: its Kind, source Span, and an
// optional payload depending on Kind (identifier text, numeric value,
// string segments, or an indentation width for INDENT/DEDENT).
type Token struct {
	Kind Kind
	Span sourcemap.Span

	Text string // identifier / keyword / raw lexeme text

	Doc string // accumulated `///` doc-comment text immediately preceding this token, if any

	IntValue   int64
	IsHex      bool
	IsBin      bool
	IsOct      bool
	FloatValue float64

	Segments []StringSegment // for STRING/TRIPLE_STRING/FORMAT_STRING

	IndentWidth int // for INDENT/DEDENT

	ImmediatePrefix bool // true if no whitespace separates this token from the previous one (used to disambiguate postfix `!`)
}

// IsVerb reports whether t begins a FunctionDef.
func (t Token) IsVerb() bool {
	_, ok := Verbs[t.Kind]
	return ok
}
