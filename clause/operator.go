package clause

import (
	"fmt"
	"strings"
)

// Operator is the comparison between a terminal's field and its operand.
type Operator string

const (
	OperatorEquals            Operator = "="
	OperatorNotEquals         Operator = "!="
	OperatorIn                Operator = "in"
	OperatorNotIn             Operator = "not in"
	OperatorLike              Operator = "~"
	OperatorNotLike           Operator = "!~"
	OperatorIs                Operator = "is"
	OperatorIsNot             Operator = "is not"
	OperatorLessThan          Operator = "<"
	OperatorLessThanEquals    Operator = "<="
	OperatorGreaterThan       Operator = ">"
	OperatorGreaterThanEquals Operator = ">="
)

var knownOperators = map[Operator]struct{}{
	OperatorEquals:            {},
	OperatorNotEquals:         {},
	OperatorIn:                {},
	OperatorNotIn:             {},
	OperatorLike:              {},
	OperatorNotLike:           {},
	OperatorIs:                {},
	OperatorIsNot:             {},
	OperatorLessThan:          {},
	OperatorLessThanEquals:    {},
	OperatorGreaterThan:       {},
	OperatorGreaterThanEquals: {},
}

// Validate rejects operators outside the query language.
func (o Operator) Validate() error {
	if _, ok := knownOperators[o]; !ok {
		return fmt.Errorf("%w: unsupported operator %q", ErrInvalidClause, string(o))
	}
	return nil
}

// ParseOperator accepts the display form of an operator, case-insensitively.
func ParseOperator(raw string) (Operator, error) {
	op := Operator(strings.ToLower(strings.Join(strings.Fields(raw), " ")))
	if err := op.Validate(); err != nil {
		return "", err
	}
	return op, nil
}
