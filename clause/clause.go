package clause

// Clause is the predicate AST node interface.
type Clause interface {
	isClause()
}

// AndClause matches when every child matches.
type AndClause struct {
	Clauses []Clause
}

func (AndClause) isClause() {}

// OrClause matches when any child matches.
type OrClause struct {
	Clauses []Clause
}

func (OrClause) isClause() {}

// NotClause negates a child clause.
type NotClause struct {
	Clause Clause
}

func (NotClause) isClause() {}

// TerminalClause compares a named field against an operand.
type TerminalClause struct {
	Name     string
	Operator Operator
	Operand  Operand
}

func (TerminalClause) isClause() {}

// And constructs an AND clause.
func And(clauses ...Clause) Clause {
	cp := make([]Clause, len(clauses))
	copy(cp, clauses)
	return AndClause{Clauses: cp}
}

// Or constructs an OR clause.
func Or(clauses ...Clause) Clause {
	cp := make([]Clause, len(clauses))
	copy(cp, clauses)
	return OrClause{Clauses: cp}
}

// Not constructs a NOT clause.
func Not(child Clause) Clause {
	return NotClause{Clause: child}
}

// Terminal constructs a field comparison.
func Terminal(name string, op Operator, operand Operand) TerminalClause {
	return TerminalClause{Name: name, Operator: op, Operand: operand}
}

// Equal reports whether two clause trees are structurally identical.
func Equal(a, b Clause) bool {
	switch left := a.(type) {
	case nil:
		return b == nil
	case AndClause:
		right, ok := b.(AndClause)
		return ok && clausesEqual(left.Clauses, right.Clauses)
	case OrClause:
		right, ok := b.(OrClause)
		return ok && clausesEqual(left.Clauses, right.Clauses)
	case NotClause:
		right, ok := b.(NotClause)
		return ok && Equal(left.Clause, right.Clause)
	case TerminalClause:
		right, ok := b.(TerminalClause)
		return ok &&
			left.Name == right.Name &&
			left.Operator == right.Operator &&
			OperandsEqual(left.Operand, right.Operand)
	default:
		return false
	}
}

func clausesEqual(a, b []Clause) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}
