package navigator

import "github.com/gabisonia/go-clausenav/clause"

// FitsNavigator reports whether the clauses naming one of names can be shown
// by the value-list navigator: at most one terminal, placed validly, using
// "=" or "in" with literal or flag operands. "is" is accepted only with a
// flag operand such as the one standing for EMPTY. A tree without such
// terminals fits.
func (t *IndexedInputTranslator) FitsNavigator(names []string, root clause.Clause) bool {
	collected := clause.Collect(root, names, t.opts.Policy)
	if !collected.Valid {
		t.opts.Logger.Debug("clause does not fit navigator", "reason", "invalid structure")
		return false
	}
	switch len(collected.Terminals) {
	case 0:
		return true
	case 1:
	default:
		t.opts.Logger.Debug("clause does not fit navigator", "reason", "more than one clause")
		return false
	}

	term := collected.Terminals[0]
	var fits bool
	switch term.Operator {
	case clause.OperatorEquals, clause.OperatorIn:
		fits = t.operandFits(term.Name, term.Operand)
	case clause.OperatorIs:
		fits = len(t.flagsFor(term.Name, term.Operand)) > 0
	}
	if !fits {
		t.opts.Logger.Debug("clause does not fit navigator", "reason", "unsupported operand or operator", "clause", clause.Format(term))
	}
	return fits
}

func (t *IndexedInputTranslator) operandFits(field string, operand clause.Operand) bool {
	if len(t.flagsFor(field, operand)) > 0 {
		return true
	}
	switch op := operand.(type) {
	case clause.SingleValueOperand:
		return true
	case clause.MultiValueOperand:
		for _, element := range op.Values {
			if !t.operandFits(field, element) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
