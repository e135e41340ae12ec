package clause

import "strconv"

// LiteralKind reports which form a Literal carries.
type LiteralKind int

const (
	LiteralEmpty LiteralKind = iota
	LiteralString
	LiteralNumber
)

// Literal is a concrete value produced by resolving an operand. It carries
// a string form, a numeric form, or neither.
type Literal struct {
	Kind   LiteralKind
	Str    string
	Num    int64
	Source Operand
}

// StringLiteral builds a string literal.
func StringLiteral(source Operand, s string) Literal {
	return Literal{Kind: LiteralString, Str: s, Source: source}
}

// NumberLiteral builds a numeric literal.
func NumberLiteral(source Operand, n int64) Literal {
	return Literal{Kind: LiteralNumber, Num: n, Source: source}
}

// EmptyLiteral builds a literal with no value.
func EmptyLiteral(source Operand) Literal {
	return Literal{Kind: LiteralEmpty, Source: source}
}

func (l Literal) IsEmpty() bool {
	return l.Kind == LiteralEmpty
}

// StringValue returns the string form, if present.
func (l Literal) StringValue() (string, bool) {
	return l.Str, l.Kind == LiteralString
}

// NumberValue returns the numeric form, if present.
func (l Literal) NumberValue() (int64, bool) {
	return l.Num, l.Kind == LiteralNumber
}

// String renders whichever form is present; empty literals render as "".
func (l Literal) String() string {
	switch l.Kind {
	case LiteralString:
		return l.Str
	case LiteralNumber:
		return strconv.FormatInt(l.Num, 10)
	default:
		return ""
	}
}
