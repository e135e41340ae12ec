package clause

import "strings"

// Policy decides where terminals naming the collected field may appear.
// The zero value is strict: such terminals are only valid under AND nodes.
type Policy struct {
	// AllowOr accepts an OR whose subtree consists solely of named terminals.
	// An OR mixing named and unrelated terminals is always invalid.
	AllowOr bool
	// AllowNot accepts named terminals below a NOT.
	AllowNot bool
}

// Collected is the result of folding a clause tree for a set of names.
type Collected struct {
	Terminals []TerminalClause
	Valid     bool
}

// Found reports whether any terminal matched.
func (c Collected) Found() bool {
	return len(c.Terminals) > 0
}

type foldResult struct {
	terminals []TerminalClause
	valid     bool
	unnamed   bool
}

// Collect walks root and returns the terminals whose name is one of names,
// in encounter order, together with the structural validity of their
// placement under policy. Names compare case-insensitively. A nil root
// collects nothing and is valid.
func Collect(root Clause, names []string, policy Policy) Collected {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		set[normalizeName(name)] = struct{}{}
	}
	res := policy.fold(root, set)
	return Collected{Terminals: res.terminals, Valid: res.valid}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (p Policy) fold(c Clause, names map[string]struct{}) foldResult {
	switch node := c.(type) {
	case nil:
		return foldResult{valid: true}
	case TerminalClause:
		if _, ok := names[normalizeName(node.Name)]; ok {
			return foldResult{terminals: []TerminalClause{node}, valid: true}
		}
		return foldResult{valid: true, unnamed: true}
	case AndClause:
		return p.foldChildren(node.Clauses, names)
	case OrClause:
		res := p.foldChildren(node.Clauses, names)
		if len(res.terminals) > 0 && (!p.AllowOr || res.unnamed) {
			res.valid = false
		}
		return res
	case NotClause:
		res := p.fold(node.Clause, names)
		if len(res.terminals) > 0 && !p.AllowNot {
			res.valid = false
		}
		return res
	default:
		return foldResult{valid: false}
	}
}

func (p Policy) foldChildren(children []Clause, names map[string]struct{}) foldResult {
	out := foldResult{valid: true}
	for _, child := range children {
		res := p.fold(child, names)
		out.terminals = append(out.terminals, res.terminals...)
		out.valid = out.valid && res.valid
		out.unnamed = out.unnamed || res.unnamed
	}
	return out
}
