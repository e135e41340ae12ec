package resolvers

import (
	"context"
	"time"

	"github.com/gabisonia/go-clausenav/clause"
)

// Built-in function names.
const (
	FunctionCurrentUser = "currentUser"
	FunctionNow         = "now"
)

// CurrentUser resolves to the evaluating user's name, or to nothing for an
// anonymous user.
type CurrentUser struct{}

func (CurrentUser) IsList() bool { return false }

func (CurrentUser) Values(_ context.Context, user clause.User, fn clause.FunctionOperand, _ clause.TerminalClause) ([]clause.Literal, error) {
	if user.Name == "" {
		return []clause.Literal{}, nil
	}
	return []clause.Literal{clause.StringLiteral(fn, user.Name)}, nil
}

// Now resolves to the current time as epoch milliseconds.
type Now struct {
	Clock func() time.Time
}

func (Now) IsList() bool { return false }

func (n Now) Values(_ context.Context, _ clause.User, fn clause.FunctionOperand, _ clause.TerminalClause) ([]clause.Literal, error) {
	clock := n.Clock
	if clock == nil {
		clock = time.Now
	}
	return []clause.Literal{clause.NumberLiteral(fn, clock().UnixMilli())}, nil
}

// Constant resolves to a fixed list of values, such as the members of a
// named group or the released versions of a project.
type Constant struct {
	List  bool
	Items []clause.Operand
}

func (c Constant) IsList() bool { return c.List }

func (c Constant) Values(_ context.Context, _ clause.User, fn clause.FunctionOperand, _ clause.TerminalClause) ([]clause.Literal, error) {
	out := make([]clause.Literal, 0, len(c.Items))
	for _, v := range c.Items {
		single, ok := v.(clause.SingleValueOperand)
		if !ok {
			continue
		}
		if n, ok := single.NumberValue(); ok {
			out = append(out, clause.NumberLiteral(fn, n))
			continue
		}
		out = append(out, clause.StringLiteral(fn, single.Str))
	}
	return out, nil
}

// DefaultFunctions returns handlers for the built-in functions.
func DefaultFunctions() map[string]FunctionHandler {
	return map[string]FunctionHandler{
		FunctionCurrentUser: CurrentUser{},
		FunctionNow:         Now{},
	}
}
