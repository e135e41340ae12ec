package clause

import (
	"strconv"
	"strings"
)

// Format renders a clause tree as query text. It is meant for logs and
// command output; no parser for the text form exists in this module.
func Format(c Clause) string {
	var b strings.Builder
	writeClause(&b, c, false)
	return b.String()
}

// FormatOperand renders an operand the way it appears in query text.
func FormatOperand(o Operand) string {
	var b strings.Builder
	writeOperand(&b, o)
	return b.String()
}

func writeClause(b *strings.Builder, c Clause, nested bool) {
	switch node := c.(type) {
	case nil:
	case TerminalClause:
		b.WriteString(node.Name)
		b.WriteByte(' ')
		b.WriteString(strings.ToUpper(string(node.Operator)))
		b.WriteByte(' ')
		writeOperand(b, node.Operand)
	case AndClause:
		writeJoined(b, node.Clauses, " AND ", nested)
	case OrClause:
		writeJoined(b, node.Clauses, " OR ", nested)
	case NotClause:
		b.WriteString("NOT ")
		writeClause(b, node.Clause, true)
	}
}

func writeJoined(b *strings.Builder, children []Clause, sep string, nested bool) {
	if nested && len(children) > 1 {
		b.WriteByte('(')
		defer b.WriteByte(')')
	}
	for i, child := range children {
		if i > 0 {
			b.WriteString(sep)
		}
		writeClause(b, child, true)
	}
}

func writeOperand(b *strings.Builder, o Operand) {
	switch op := o.(type) {
	case SingleValueOperand:
		if n, ok := op.NumberValue(); ok {
			b.WriteString(strconv.FormatInt(n, 10))
			return
		}
		b.WriteString(strconv.Quote(op.Str))
	case MultiValueOperand:
		b.WriteByte('(')
		for i, v := range op.Values {
			if i > 0 {
				b.WriteString(", ")
			}
			writeOperand(b, v)
		}
		b.WriteByte(')')
	case FunctionOperand:
		b.WriteString(op.Name)
		b.WriteByte('(')
		for i, arg := range op.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Quote(arg))
		}
		b.WriteByte(')')
	case EmptyOperand:
		b.WriteString("EMPTY")
	}
}
