package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"--config", filepath.Join("..", "..", "configs", "clausenav.example.yaml"), "--log-level", "error", "--output", "yaml"}, args...))
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func writeClause(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clause.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestValuesCommand(t *testing.T) {
	path := writeClause(t, `
and:
  - {field: fixVersion, op: in, values: ["1.1", 10002]}
  - {field: component, op: "=", empty: true}
`)

	out := run(t, "values", "--clause", path, "--mode", "navigator")

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "fixfor", got[0]["id"])
	assert.Equal(t, []any{"10001", "10002"}, got[0]["values"])
	assert.Equal(t, []any{"-1"}, got[1]["values"])
}

func TestClauseCommand(t *testing.T) {
	out := run(t, "clause", "--field", "fixfor", "--", "10000", "-2")

	var got clauseOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, `fixVersion IN ("1.0", releasedVersions())`, got.Text)
	assert.Equal(t, "fixVersion", got.Document["field"])
}

func TestDateCommands(t *testing.T) {
	path := writeClause(t, `
and:
  - {field: created, op: ">=", value: "-2w"}
  - {field: updatedDate, op: "<=", value: "2024/02/29"}
`)

	out := run(t, "date", "--clause", path, "--output", "json")
	assert.JSONEq(t, `{
		"params": {"created:previous": "-2w", "updated:before": "2024-02-29"},
		"fits": {"created": true, "updated": true}
	}`, out)

	out = run(t, "date-clause", "--field", "created", "--previous", "-1w", "--before", "2024-02-29")
	var got clauseOutput
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	assert.Equal(t, `created >= "-1w" AND created <= "2024-02-29"`, got.Text)
}

func TestDateCommandReportsDroppedTime(t *testing.T) {
	path := writeClause(t, `{field: created, op: ">=", value: "2024/02/29 13:45"}`)

	out := run(t, "date", "--clause", path, "--output", "json")
	assert.JSONEq(t, `{"params": {"created:after": "2024-02-29 13:45"}, "fits": {"created": true}}`, out)

	t.Setenv("CLAUSENAV_NAVIGATOR_ALLOW_TIME_COMPONENT", "false")
	out = run(t, "date", "--clause", path, "--output", "json")
	assert.JSONEq(t, `{"params": {"created:after": "2024-02-29"}, "fits": {"created": false}}`, out)
}
