package clause

// Operand is the right-hand side of a terminal clause.
type Operand interface {
	isOperand()
}

// SingleValueOperand carries one string or numeric value.
type SingleValueOperand struct {
	Str      string
	Num      int64
	IsNumber bool
}

func (SingleValueOperand) isOperand() {}

// StringValue returns the string form, if the operand holds one.
func (o SingleValueOperand) StringValue() (string, bool) {
	return o.Str, !o.IsNumber
}

// NumberValue returns the numeric form, if the operand holds one.
func (o SingleValueOperand) NumberValue() (int64, bool) {
	return o.Num, o.IsNumber
}

// MultiValueOperand is an ordered list of operands.
type MultiValueOperand struct {
	Values []Operand
}

func (MultiValueOperand) isOperand() {}

// FunctionOperand is resolved dynamically by an OperandResolver.
type FunctionOperand struct {
	Name string
	Args []string
}

func (FunctionOperand) isOperand() {}

// EmptyOperand is the explicit EMPTY marker.
type EmptyOperand struct{}

func (EmptyOperand) isOperand() {}

// String builds a string single-value operand.
func String(s string) SingleValueOperand {
	return SingleValueOperand{Str: s}
}

// Number builds a numeric single-value operand.
func Number(n int64) SingleValueOperand {
	return SingleValueOperand{Num: n, IsNumber: true}
}

// Values builds a list operand.
func Values(values ...Operand) MultiValueOperand {
	cp := make([]Operand, len(values))
	copy(cp, values)
	return MultiValueOperand{Values: cp}
}

// Strings builds a list operand of string values.
func Strings(values ...string) MultiValueOperand {
	out := make([]Operand, 0, len(values))
	for _, v := range values {
		out = append(out, String(v))
	}
	return MultiValueOperand{Values: out}
}

// Numbers builds a list operand of numeric values.
func Numbers(values ...int64) MultiValueOperand {
	out := make([]Operand, 0, len(values))
	for _, v := range values {
		out = append(out, Number(v))
	}
	return MultiValueOperand{Values: out}
}

// Function builds a function operand.
func Function(name string, args ...string) FunctionOperand {
	cp := make([]string, len(args))
	copy(cp, args)
	return FunctionOperand{Name: name, Args: cp}
}

// Empty builds the EMPTY operand.
func Empty() EmptyOperand {
	return EmptyOperand{}
}

// OperandsEqual compares operands structurally. Function names compare
// case-insensitively, matching how functions are looked up.
func OperandsEqual(a, b Operand) bool {
	switch left := a.(type) {
	case nil:
		return b == nil
	case SingleValueOperand:
		right, ok := b.(SingleValueOperand)
		return ok && left == right
	case MultiValueOperand:
		right, ok := b.(MultiValueOperand)
		if !ok || len(left.Values) != len(right.Values) {
			return false
		}
		for i := range left.Values {
			if !OperandsEqual(left.Values[i], right.Values[i]) {
				return false
			}
		}
		return true
	case FunctionOperand:
		right, ok := b.(FunctionOperand)
		if !ok || !equalFold(left.Name, right.Name) || len(left.Args) != len(right.Args) {
			return false
		}
		for i := range left.Args {
			if left.Args[i] != right.Args[i] {
				return false
			}
		}
		return true
	case EmptyOperand:
		_, ok := b.(EmptyOperand)
		return ok
	default:
		return false
	}
}
