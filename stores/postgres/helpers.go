package postgres

import "strings"

const (
	fieldColumn = "field"
	idColumn    = "id"
	nameColumn  = "name"
)

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func qualifiedTable(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}
