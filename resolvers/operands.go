package resolvers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/gabisonia/go-clausenav/clause"
)

// FunctionHandler expands one function operand into literals.
type FunctionHandler interface {
	// IsList reports whether the function yields a list of values.
	IsList() bool
	Values(ctx context.Context, user clause.User, fn clause.FunctionOperand, terminal clause.TerminalClause) ([]clause.Literal, error)
}

// OperandResolver is the default clause.OperandResolver. Functions are
// dispatched by case-insensitive name to registered handlers; unknown
// functions resolve to nil.
type OperandResolver struct {
	mu        sync.RWMutex
	functions map[string]FunctionHandler
}

// NewOperandResolver creates a resolver with the given handlers keyed by
// function name.
func NewOperandResolver(functions map[string]FunctionHandler) *OperandResolver {
	r := &OperandResolver{functions: map[string]FunctionHandler{}}
	for name, handler := range functions {
		r.Register(name, handler)
	}
	return r
}

// Register adds or replaces the handler for a function name.
func (r *OperandResolver) Register(name string, handler FunctionHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.functions[strings.ToLower(strings.TrimSpace(name))] = handler
}

func (r *OperandResolver) handler(name string) (FunctionHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.functions[strings.ToLower(name)]
	return h, ok
}

func (r *OperandResolver) IsEmptyOperand(operand clause.Operand) bool {
	_, ok := operand.(clause.EmptyOperand)
	return ok
}

func (r *OperandResolver) IsFunctionOperand(operand clause.Operand) bool {
	_, ok := operand.(clause.FunctionOperand)
	return ok
}

func (r *OperandResolver) IsListOperand(operand clause.Operand) bool {
	switch op := operand.(type) {
	case clause.MultiValueOperand:
		return true
	case clause.FunctionOperand:
		h, ok := r.handler(op.Name)
		return ok && h.IsList()
	default:
		return false
	}
}

func (r *OperandResolver) Values(ctx context.Context, user clause.User, operand clause.Operand, terminal clause.TerminalClause) ([]clause.Literal, error) {
	switch op := operand.(type) {
	case clause.SingleValueOperand:
		if n, ok := op.NumberValue(); ok {
			return []clause.Literal{clause.NumberLiteral(op, n)}, nil
		}
		return []clause.Literal{clause.StringLiteral(op, op.Str)}, nil
	case clause.EmptyOperand:
		return []clause.Literal{clause.EmptyLiteral(op)}, nil
	case clause.MultiValueOperand:
		out := make([]clause.Literal, 0, len(op.Values))
		for _, element := range op.Values {
			values, err := r.Values(ctx, user, element, terminal)
			if err != nil {
				return nil, err
			}
			out = append(out, values...)
		}
		return out, nil
	case clause.FunctionOperand:
		h, ok := r.handler(op.Name)
		if !ok {
			return nil, nil
		}
		values, err := h.Values(ctx, user, op, terminal)
		if err != nil {
			return nil, fmt.Errorf("function %s: %w", op.Name, err)
		}
		return values, nil
	default:
		return nil, fmt.Errorf("%w: unsupported operand type %T", clause.ErrInvalidOperand, operand)
	}
}
