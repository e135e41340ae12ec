package navigator

import (
	"context"
	"fmt"

	"github.com/gabisonia/go-clausenav/clause"
)

const indexedTranslatorName = "indexed"

// ValueMode selects what ValuesForClause produces.
type ValueMode int

const (
	// ModeIndex yields index values only.
	ModeIndex ValueMode = iota
	// ModeNavigator yields registered flag tokens in place of the operands
	// they stand for, and index values for everything else.
	ModeNavigator
)

// IndexedConfig wires the collaborators of an IndexedInputTranslator.
type IndexedConfig struct {
	Operands clause.OperandResolver
	Index    clause.IndexValueResolver
	// Flags is optional; nil means the field has no flags.
	Flags clause.FlagRegistry
	// Builder is optional; nil uses DefaultOperandBuilder.
	Builder OperandBuilder
}

// IndexedInputTranslator converts between clauses on an indexed field and
// the set of values shown by the navigator.
type IndexedInputTranslator struct {
	operands clause.OperandResolver
	index    clause.IndexValueResolver
	flags    clause.FlagRegistry
	builder  OperandBuilder
	opts     Options
}

// NewIndexedInputTranslator validates cfg and creates a translator.
func NewIndexedInputTranslator(cfg IndexedConfig, opts Options) (*IndexedInputTranslator, error) {
	if cfg.Operands == nil {
		return nil, fmt.Errorf("%w: nil operand resolver", ErrMisconfigured)
	}
	if cfg.Index == nil {
		return nil, fmt.Errorf("%w: nil index value resolver", ErrMisconfigured)
	}
	if cfg.Builder == nil {
		cfg.Builder = DefaultOperandBuilder
	}
	return &IndexedInputTranslator{
		operands: cfg.Operands,
		index:    cfg.Index,
		flags:    cfg.Flags,
		builder:  cfg.Builder,
		opts:     opts.withDefaults(indexedTranslatorName),
	}, nil
}

// ValuesForClause collects the terminals naming one of names anywhere in
// root and returns the values they resolve to, deduplicated in first-seen
// order. Placement of the terminals is not checked.
func (t *IndexedInputTranslator) ValuesForClause(ctx context.Context, user clause.User, names []string, root clause.Clause, mode ValueMode) ([]string, error) {
	collected := clause.Collect(root, names, t.opts.Policy)
	out := newOrderedSet()
	for _, term := range collected.Terminals {
		if err := t.collectOperand(ctx, user, term, term.Operand, mode, out); err != nil {
			t.opts.Metrics.ObserveConversion(indexedTranslatorName, outcomeError)
			return nil, err
		}
	}
	if out.len() == 0 {
		t.opts.Metrics.ObserveConversion(indexedTranslatorName, outcomeNoMatch)
	} else {
		t.opts.Metrics.ObserveConversion(indexedTranslatorName, outcomeFit)
	}
	return out.slice(), nil
}

func (t *IndexedInputTranslator) collectOperand(ctx context.Context, user clause.User, term clause.TerminalClause, operand clause.Operand, mode ValueMode, out *orderedSet) error {
	if mode == ModeNavigator {
		if flags := t.flagsFor(term.Name, operand); len(flags) > 0 {
			out.add(flags...)
			return nil
		}
	}

	if multi, ok := operand.(clause.MultiValueOperand); ok {
		for _, element := range multi.Values {
			if err := t.collectOperand(ctx, user, term, element, mode, out); err != nil {
				return err
			}
		}
		return nil
	}

	literals, err := t.operands.Values(ctx, user, operand, term)
	if err != nil {
		return fmt.Errorf("resolve values for %q: %w", term.Name, err)
	}
	for _, literal := range literals {
		values, err := t.indexValues(ctx, literal)
		if err != nil {
			return fmt.Errorf("index values for %q: %w", term.Name, err)
		}
		out.add(values...)
	}
	return nil
}

func (t *IndexedInputTranslator) indexValues(ctx context.Context, literal clause.Literal) ([]string, error) {
	if s, ok := literal.StringValue(); ok {
		return t.index.IndexedValues(ctx, s)
	}
	if n, ok := literal.NumberValue(); ok {
		return t.index.IndexedValuesForID(ctx, n)
	}
	return nil, nil
}

// ClauseForNavigatorValues rebuilds a terminal for field from navigator
// values. Registered flags become their operand; anything else goes through
// the operand builder. A single operand uses "=" unless it is list shaped,
// several are combined under "in". No values yields nil.
func (t *IndexedInputTranslator) ClauseForNavigatorValues(ctx context.Context, field string, values []string) (clause.Clause, error) {
	unique := newOrderedSet()
	unique.add(values...)
	if unique.len() == 0 {
		return nil, nil
	}

	operands := make([]clause.Operand, 0, unique.len())
	listShaped := false
	for _, value := range unique.slice() {
		if t.flags != nil {
			if operand, ok := t.flags.OperandForFlag(field, value); ok {
				if t.operands.IsListOperand(operand) {
					listShaped = true
				}
				operands = append(operands, operand)
				continue
			}
		}
		operand, err := t.builder.Build(ctx, field, value)
		if err != nil {
			return nil, err
		}
		operands = append(operands, operand)
	}

	if len(operands) == 1 {
		op := clause.OperatorEquals
		if listShaped {
			op = clause.OperatorIn
		}
		return clause.Terminal(field, op, operands[0]), nil
	}
	return clause.Terminal(field, clause.OperatorIn, clause.Values(operands...)), nil
}

func (t *IndexedInputTranslator) flagsFor(field string, operand clause.Operand) []string {
	if t.flags == nil {
		return nil
	}
	return t.flags.FlagsForOperand(field, operand)
}
