package navigator

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/gabisonia/go-clausenav/clause"
)

// OperandBuilder turns one navigator string into an operand.
type OperandBuilder interface {
	Build(ctx context.Context, field, value string) (clause.Operand, error)
}

// OperandBuilderFunc adapts a function to OperandBuilder.
type OperandBuilderFunc func(ctx context.Context, field, value string) (clause.Operand, error)

func (f OperandBuilderFunc) Build(ctx context.Context, field, value string) (clause.Operand, error) {
	return f(ctx, field, value)
}

// DefaultOperandBuilder produces a numeric operand when the value parses as
// an integer and a string operand otherwise.
var DefaultOperandBuilder OperandBuilder = OperandBuilderFunc(func(_ context.Context, _ string, value string) (clause.Operand, error) {
	if n, ok := parseID(value); ok {
		return clause.Number(n), nil
	}
	return clause.String(value), nil
})

// NameResolvingBuilder writes numeric identities as their display name so
// the rebuilt clause reads naturally. Identities without a name stay
// numeric, and non-numeric values pass through as strings.
type NameResolvingBuilder struct {
	Names clause.NameResolver
}

func (b NameResolvingBuilder) Build(ctx context.Context, field, value string) (clause.Operand, error) {
	n, ok := parseID(value)
	if !ok {
		return clause.String(value), nil
	}
	name, found, err := b.Names.NameForID(ctx, field, n)
	if err != nil {
		return nil, fmt.Errorf("resolve name for %s %d: %w", field, n, err)
	}
	if !found {
		return clause.Number(n), nil
	}
	return clause.String(name), nil
}

func parseID(value string) (int64, bool) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	return n, err == nil
}
