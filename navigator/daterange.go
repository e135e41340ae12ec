package navigator

import (
	"context"
	"fmt"

	"github.com/gabisonia/go-clausenav/clause"
)

const dateTranslatorName = "date_range"

// DateRange is the navigator form of a date field. Empty slots are unset.
type DateRange struct {
	Before   string
	After    string
	Previous string
	Next     string
	// Equals is reserved and never populated by the translator.
	Equals string
	// Fits is false when a time of day had to be dropped.
	Fits bool
}

// IsZero reports whether no slot is populated.
func (r DateRange) IsZero() bool {
	return r.Before == "" && r.After == "" && r.Previous == "" && r.Next == "" && r.Equals == ""
}

// DateRangeTranslator converts between clauses on one date field and the
// before/after/previous/next navigator form.
type DateRangeTranslator struct {
	config   DateSearcherConfig
	operands clause.OperandResolver
	support  *DateSupport
	opts     Options
}

// NewDateRangeTranslator creates a translator for a single date field.
func NewDateRangeTranslator(config DateSearcherConfig, operands clause.OperandResolver, opts Options) (*DateRangeTranslator, error) {
	if operands == nil {
		return nil, fmt.Errorf("%w: nil operand resolver", ErrMisconfigured)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	normalized := opts.withDefaults(dateTranslatorName)
	return &DateRangeTranslator{
		config:   config,
		operands: operands,
		support:  NewDateSupport(normalized.Layouts),
		opts:     normalized,
	}, nil
}

// Config returns the field the translator was built for.
func (t *DateRangeTranslator) Config() DateSearcherConfig {
	return t.config
}

// Convert translates root into the navigator form. It returns nil when the
// clauses for the field cannot be represented, or when there are none.
// Errors come only from the operand resolver.
func (t *DateRangeTranslator) Convert(ctx context.Context, user clause.User, root clause.Clause, allowTimeComponent bool) (*DateRange, error) {
	collected := clause.Collect(root, t.config.ClauseNames.All(), t.opts.Policy)
	if !collected.Valid {
		return t.notFit("invalid structure", nil)
	}
	if !collected.Found() {
		t.opts.Metrics.ObserveConversion(dateTranslatorName, outcomeNoMatch)
		return nil, nil
	}

	out := DateRange{Fits: true}
	for _, term := range collected.Terminals {
		if t.operands.IsEmptyOperand(term.Operand) {
			return t.notFit("empty operand", &term)
		}
		if t.operands.IsFunctionOperand(term.Operand) {
			return t.notFit("function operand", &term)
		}

		literals, err := t.operands.Values(ctx, user, term.Operand, term)
		if err != nil {
			t.opts.Metrics.ObserveConversion(dateTranslatorName, outcomeError)
			return nil, fmt.Errorf("resolve values for %q: %w", term.Name, err)
		}
		if len(literals) != 1 {
			return t.notFit("expected exactly one value", &term)
		}
		literal := literals[0]
		if literal.IsEmpty() {
			return t.notFit("empty value", &term)
		}

		if term.Operator != clause.OperatorLessThanEquals && term.Operator != clause.OperatorGreaterThanEquals {
			return t.notFit("unsupported operator", &term)
		}
		upper := term.Operator == clause.OperatorLessThanEquals

		if s, ok := literal.StringValue(); ok && IsDuration(s) {
			slot := &out.Previous
			if upper {
				slot = &out.Next
			}
			if *slot != "" {
				return t.notFit("duplicate relative bound", &term)
			}
			*slot = s
			continue
		}

		when, ok := t.support.ParseLiteral(literal, user.Loc())
		if !ok {
			return t.notFit("unparseable date", &term)
		}
		slot := &out.After
		if upper {
			slot = &out.Before
		}
		if *slot != "" {
			return t.notFit("duplicate absolute bound", &term)
		}
		display, fits := t.support.Display(when, allowTimeComponent)
		if !fits {
			out.Fits = false
		}
		*slot = display
	}

	if out.Fits {
		t.opts.Metrics.ObserveConversion(dateTranslatorName, outcomeFit)
	} else {
		t.opts.Metrics.ObserveConversion(dateTranslatorName, outcomeLossy)
	}
	return &out, nil
}

func (t *DateRangeTranslator) notFit(reason string, term *clause.TerminalClause) (*DateRange, error) {
	attrs := []any{"field", t.config.ID, "reason", reason}
	if term != nil {
		attrs = append(attrs, "clause", clause.Format(*term))
	}
	t.opts.Logger.Debug("clause does not fit date navigator", attrs...)
	t.opts.Metrics.ObserveConversion(dateTranslatorName, outcomeNotFit)
	return nil, nil
}

// ClauseFor rebuilds a clause from the navigator form. Terminals are
// emitted in previous, next, after, before order and joined with AND when
// more than one slot is set. Absolute values are read with the display
// layouts in the user's location and written in query format; values that
// do not parse are written unchanged. An empty range yields nil.
func (t *DateRangeTranslator) ClauseFor(user clause.User, r DateRange) clause.Clause {
	name := t.config.ClauseNames.Primary
	var terms []clause.Clause
	if r.Previous != "" {
		terms = append(terms, clause.Terminal(name, clause.OperatorGreaterThanEquals, clause.String(r.Previous)))
	}
	if r.Next != "" {
		terms = append(terms, clause.Terminal(name, clause.OperatorLessThanEquals, clause.String(r.Next)))
	}
	if r.After != "" {
		terms = append(terms, clause.Terminal(name, clause.OperatorGreaterThanEquals, clause.String(t.queryValue(r.After, user))))
	}
	if r.Before != "" {
		terms = append(terms, clause.Terminal(name, clause.OperatorLessThanEquals, clause.String(t.queryValue(r.Before, user))))
	}

	switch len(terms) {
	case 0:
		return nil
	case 1:
		return terms[0]
	default:
		return clause.And(terms...)
	}
}

func (t *DateRangeTranslator) queryValue(display string, user clause.User) string {
	when, ok := t.support.ParseDisplay(display, user.Loc())
	if !ok {
		return display
	}
	return FormatQuery(when)
}
