package clause

import (
	"errors"
	"strings"
)

var (
	ErrInvalidClause  = errors.New("clause: invalid clause")
	ErrInvalidOperand = errors.New("clause: invalid operand")
)

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
