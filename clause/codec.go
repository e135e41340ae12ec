package clause

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a clause. Exactly one of And, Or, Not
// or Field is set. JSON input decodes as well, being a subset of YAML.
type Document struct {
	And []Document `yaml:"and,omitempty"`
	Or  []Document `yaml:"or,omitempty"`
	Not *Document  `yaml:"not,omitempty"`

	Field string `yaml:"field,omitempty"`
	Op    string `yaml:"op,omitempty"`
	OperandSpec `yaml:",inline"`
}

// OperandSpec is the serialized form of an operand. Value is unset when
// its Kind is zero.
type OperandSpec struct {
	Value    yaml.Node     `yaml:"value,omitempty"`
	Values   []yaml.Node   `yaml:"values,omitempty"`
	Function *FunctionSpec `yaml:"function,omitempty"`
	Empty    bool          `yaml:"empty,omitempty"`
}

// FunctionSpec is the serialized form of a function operand.
type FunctionSpec struct {
	Name string   `yaml:"name"`
	Args []string `yaml:"args,omitempty"`
}

// Decode parses a YAML or JSON clause document.
func Decode(data []byte) (Clause, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidClause, err)
	}
	return doc.Clause()
}

// Encode renders a clause as a YAML document.
func Encode(c Clause) ([]byte, error) {
	doc, err := DocumentFor(c)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// Clause converts the document into a clause tree.
func (d Document) Clause() (Clause, error) {
	set := 0
	if d.And != nil {
		set++
	}
	if d.Or != nil {
		set++
	}
	if d.Not != nil {
		set++
	}
	if d.Field != "" {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: node must have exactly one of and, or, not, field", ErrInvalidClause)
	}

	switch {
	case d.And != nil:
		children, err := documentsToClauses(d.And)
		if err != nil {
			return nil, err
		}
		return AndClause{Clauses: children}, nil
	case d.Or != nil:
		children, err := documentsToClauses(d.Or)
		if err != nil {
			return nil, err
		}
		return OrClause{Clauses: children}, nil
	case d.Not != nil:
		child, err := d.Not.Clause()
		if err != nil {
			return nil, err
		}
		return NotClause{Clause: child}, nil
	}

	op, err := ParseOperator(d.Op)
	if err != nil {
		return nil, err
	}
	operand, err := d.OperandSpec.Operand()
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", d.Field, err)
	}
	return Terminal(strings.TrimSpace(d.Field), op, operand), nil
}

func documentsToClauses(docs []Document) ([]Clause, error) {
	out := make([]Clause, 0, len(docs))
	for _, doc := range docs {
		c, err := doc.Clause()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Operand converts the serialized form into an operand.
func (s OperandSpec) Operand() (Operand, error) {
	set := 0
	if s.Value.Kind != 0 {
		set++
	}
	if s.Values != nil {
		set++
	}
	if s.Function != nil {
		set++
	}
	if s.Empty {
		set++
	}
	if set != 1 {
		return nil, fmt.Errorf("%w: operand must have exactly one of value, values, function, empty", ErrInvalidOperand)
	}

	switch {
	case s.Value.Kind != 0:
		return scalarOperand(&s.Value)
	case s.Values != nil:
		values := make([]Operand, 0, len(s.Values))
		for i := range s.Values {
			node := &s.Values[i]
			if node.Kind == yaml.MappingNode {
				var nested OperandSpec
				if err := node.Decode(&nested); err != nil {
					return nil, fmt.Errorf("%w: %v", ErrInvalidOperand, err)
				}
				op, err := nested.Operand()
				if err != nil {
					return nil, err
				}
				values = append(values, op)
				continue
			}
			op, err := scalarOperand(node)
			if err != nil {
				return nil, err
			}
			values = append(values, op)
		}
		return MultiValueOperand{Values: values}, nil
	case s.Function != nil:
		name := strings.TrimSpace(s.Function.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: function name is empty", ErrInvalidOperand)
		}
		return Function(name, s.Function.Args...), nil
	default:
		return EmptyOperand{}, nil
	}
}

func scalarOperand(node *yaml.Node) (Operand, error) {
	if node.Kind != yaml.ScalarNode || node.ShortTag() == "!!null" {
		return nil, fmt.Errorf("%w: value must be a scalar", ErrInvalidOperand)
	}
	if node.ShortTag() == "!!int" {
		n, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOperand, err)
		}
		return Number(n), nil
	}
	return String(node.Value), nil
}

// DocumentFor converts a clause tree into its serialized form.
func DocumentFor(c Clause) (Document, error) {
	switch node := c.(type) {
	case AndClause:
		children, err := clausesToDocuments(node.Clauses)
		if err != nil {
			return Document{}, err
		}
		return Document{And: children}, nil
	case OrClause:
		children, err := clausesToDocuments(node.Clauses)
		if err != nil {
			return Document{}, err
		}
		return Document{Or: children}, nil
	case NotClause:
		child, err := DocumentFor(node.Clause)
		if err != nil {
			return Document{}, err
		}
		return Document{Not: &child}, nil
	case TerminalClause:
		spec, err := SpecFor(node.Operand)
		if err != nil {
			return Document{}, err
		}
		return Document{Field: node.Name, Op: string(node.Operator), OperandSpec: spec}, nil
	default:
		return Document{}, fmt.Errorf("%w: unsupported clause type %T", ErrInvalidClause, c)
	}
}

func clausesToDocuments(clauses []Clause) ([]Document, error) {
	out := make([]Document, 0, len(clauses))
	for _, c := range clauses {
		doc, err := DocumentFor(c)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// SpecFor converts an operand into its serialized form.
func SpecFor(o Operand) (OperandSpec, error) {
	switch op := o.(type) {
	case SingleValueOperand:
		return OperandSpec{Value: *scalarNode(op)}, nil
	case MultiValueOperand:
		nodes := make([]yaml.Node, 0, len(op.Values))
		for _, v := range op.Values {
			if single, ok := v.(SingleValueOperand); ok {
				nodes = append(nodes, *scalarNode(single))
				continue
			}
			nested, err := SpecFor(v)
			if err != nil {
				return OperandSpec{}, err
			}
			var node yaml.Node
			if err := node.Encode(nested); err != nil {
				return OperandSpec{}, fmt.Errorf("%w: %v", ErrInvalidOperand, err)
			}
			nodes = append(nodes, node)
		}
		return OperandSpec{Values: nodes}, nil
	case FunctionOperand:
		return OperandSpec{Function: &FunctionSpec{Name: op.Name, Args: op.Args}}, nil
	case EmptyOperand:
		return OperandSpec{Empty: true}, nil
	default:
		return OperandSpec{}, fmt.Errorf("%w: unsupported operand type %T", ErrInvalidOperand, o)
	}
}

func scalarNode(op SingleValueOperand) *yaml.Node {
	if n, ok := op.NumberValue(); ok {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(n, 10)}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: op.Str}
}

// MarshalYAML writes only the keys that are set, keeping empty and, or and
// values lists that would otherwise be dropped as empty.
func (d Document) MarshalYAML() (any, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	switch {
	case d.And != nil:
		return m, appendPair(m, "and", d.And)
	case d.Or != nil:
		return m, appendPair(m, "or", d.Or)
	case d.Not != nil:
		return m, appendPair(m, "not", d.Not)
	}
	if err := appendPair(m, "field", d.Field); err != nil {
		return nil, err
	}
	if err := appendPair(m, "op", d.Op); err != nil {
		return nil, err
	}
	if err := d.OperandSpec.appendPairs(m); err != nil {
		return nil, err
	}
	return m, nil
}

// MarshalYAML is the OperandSpec counterpart of Document.MarshalYAML.
func (s OperandSpec) MarshalYAML() (any, error) {
	m := &yaml.Node{Kind: yaml.MappingNode}
	if err := s.appendPairs(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s OperandSpec) appendPairs(m *yaml.Node) error {
	if s.Value.Kind != 0 {
		value := s.Value
		m.Content = append(m.Content, keyNode("value"), &value)
	}
	if s.Values != nil {
		seq := &yaml.Node{Kind: yaml.SequenceNode, Content: make([]*yaml.Node, 0, len(s.Values))}
		for i := range s.Values {
			item := s.Values[i]
			seq.Content = append(seq.Content, &item)
		}
		m.Content = append(m.Content, keyNode("values"), seq)
	}
	if s.Function != nil {
		if err := appendPair(m, "function", s.Function); err != nil {
			return err
		}
	}
	if s.Empty {
		m.Content = append(m.Content, keyNode("empty"), &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"})
	}
	return nil
}

func appendPair(m *yaml.Node, key string, value any) error {
	var node yaml.Node
	if err := node.Encode(value); err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrInvalidClause, key, err)
	}
	m.Content = append(m.Content, keyNode(key), &node)
	return nil
}

func keyNode(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}
