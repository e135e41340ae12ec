package mssql

import (
	"reflect"
	"testing"
)

func TestNewCatalog_NilDB(t *testing.T) {
	if _, err := NewCatalog(nil, DefaultStoreOptions()); err == nil {
		t.Fatalf("expected error for nil db")
	}
}

func TestStoreOptions_Defaults(t *testing.T) {
	opts := StoreOptions{}.withDefaults()
	if opts.Schema != "dbo" || opts.Table != "clause_values" {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
	if err := opts.validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestQuoteIdent(t *testing.T) {
	if got := quoteIdent("odd]name"); got != "[odd]]name]" {
		t.Fatalf("unexpected quoting: %s", got)
	}
	if got := qualifiedTable("dbo", "clause_values"); got != "[dbo].[clause_values]" {
		t.Fatalf("unexpected table: %s", got)
	}
}

func TestBuildDelete(t *testing.T) {
	catalog := &MSSQLCatalog{opts: DefaultStoreOptions()}

	query, args := catalog.buildDelete("component", []int64{3, 7})

	want := "DELETE FROM [dbo].[clause_values] WHERE [field] = @p1 AND [id] IN (@p2, @p3)"
	if query != want {
		t.Fatalf("unexpected query:\n%s\nwant:\n%s", query, want)
	}
	if !reflect.DeepEqual(args, []any{"component", int64(3), int64(7)}) {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestDeleteStatements_StayUnderParameterLimit(t *testing.T) {
	catalog := &MSSQLCatalog{opts: DefaultStoreOptions()}
	ids := make([]int64, 2500)
	for i := range ids {
		ids[i] = int64(i)
	}

	stmts := catalog.deleteStatements("component", ids)

	if len(stmts) != 5 {
		t.Fatalf("expected 5 statements, got %d", len(stmts))
	}
	var total int
	for _, stmt := range stmts {
		if len(stmt.args) >= 2100 {
			t.Fatalf("statement has %d parameters", len(stmt.args))
		}
		if stmt.args[0] != "component" {
			t.Fatalf("unexpected field argument: %#v", stmt.args[0])
		}
		total += len(stmt.args) - 1
	}
	if total != len(ids) {
		t.Fatalf("expected %d ids across statements, got %d", len(ids), total)
	}
	if last := stmts[4].args[len(stmts[4].args)-1]; last != int64(2499) {
		t.Fatalf("unexpected last id: %#v", last)
	}
}

func TestIsStringType(t *testing.T) {
	for _, dataType := range []string{"nvarchar", "VARCHAR", " nchar "} {
		if !isStringType(dataType) {
			t.Fatalf("expected %q to be a string type", dataType)
		}
	}
	if isStringType("bigint") {
		t.Fatalf("bigint is not a string type")
	}
}
