package clause

import (
	"context"
	"time"
)

// User is the identity a query is evaluated for.
type User struct {
	Name     string
	Location *time.Location
}

// Loc returns the user's location, defaulting to UTC.
func (u User) Loc() *time.Location {
	if u.Location == nil {
		return time.UTC
	}
	return u.Location
}

// OperandResolver classifies operands and expands them to literals.
//
// Values may return a nil slice to signal that the operand could not be
// resolved at all; callers decide whether that rejects or contributes nothing.
type OperandResolver interface {
	IsEmptyOperand(operand Operand) bool
	IsFunctionOperand(operand Operand) bool
	IsListOperand(operand Operand) bool
	Values(ctx context.Context, user User, operand Operand, terminal TerminalClause) ([]Literal, error)
}

// FlagRegistry maps function operands to stable navigator tokens.
type FlagRegistry interface {
	FlagsForOperand(field string, operand Operand) []string
	OperandForFlag(field string, flag string) (Operand, bool)
}

// IndexValueResolver maps a literal to the values stored in the index.
type IndexValueResolver interface {
	IndexedValues(ctx context.Context, s string) ([]string, error)
	IndexedValuesForID(ctx context.Context, id int64) ([]string, error)
}

// NameResolver maps a numeric identity to its display name.
type NameResolver interface {
	NameForID(ctx context.Context, field string, id int64) (string, bool, error)
}
