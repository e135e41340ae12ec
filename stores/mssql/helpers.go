package mssql

import (
	"strconv"
	"strings"
)

const (
	fieldColumn         = "field"
	idColumn            = "id"
	nameColumn          = "name"
	maxRowsPerStatement = 500
)

func quoteIdent(ident string) string {
	return "[" + strings.ReplaceAll(ident, "]", "]]") + "]"
}

func qualifiedTable(schema, table string) string {
	return quoteIdent(schema) + "." + quoteIdent(table)
}

func escapeSQLString(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

func isStringType(dataType string) bool {
	switch strings.ToLower(strings.TrimSpace(dataType)) {
	case "varchar", "nvarchar", "char", "nchar":
		return true
	default:
		return false
	}
}

func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "@p" + strconv.Itoa(start+i)
	}
	return strings.Join(parts, ", ")
}
