package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/gabisonia/go-clausenav/clause"
)

// readClause decodes a clause document from path, or stdin for "-".
func readClause(path string) (clause.Clause, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("couldn't read clause: %w", err)
	}
	return clause.Decode(data)
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// clauseOutput is how a rebuilt clause is printed.
type clauseOutput struct {
	Text     string         `json:"text" yaml:"text"`
	Document map[string]any `json:"document,omitempty" yaml:"document,omitempty"`
}

func newClauseOutput(c clause.Clause) (clauseOutput, error) {
	if c == nil {
		return clauseOutput{}, nil
	}
	data, err := clause.Encode(c)
	if err != nil {
		return clauseOutput{}, err
	}
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return clauseOutput{}, err
	}
	return clauseOutput{Text: clause.Format(c), Document: doc}, nil
}
