package mssql

import (
	"context"
	"fmt"
	"strings"

	"github.com/gabisonia/go-clausenav/stores"
)

func (s *MSSQLCatalog) ensureBaseSchema(ctx context.Context) error {
	schemaLiteral := escapeSQLString(s.opts.Schema)
	query := fmt.Sprintf("IF SCHEMA_ID(N'%s') IS NULL EXEC(N'CREATE SCHEMA %s')", schemaLiteral, escapeSQLString(quoteIdent(s.opts.Schema)))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure schema %q: %w", s.opts.Schema, err)
	}
	return nil
}

func (s *MSSQLCatalog) tableExists(ctx context.Context) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1)
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
	`, s.opts.Schema, s.opts.Table).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}

	return count > 0, nil
}

func (s *MSSQLCatalog) createCatalogTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		IF OBJECT_ID(N'%s', N'U') IS NULL
		BEGIN
			CREATE TABLE %s (
				%s NVARCHAR(255) NOT NULL,
				%s BIGINT NOT NULL,
				%s NVARCHAR(450) NOT NULL DEFAULT N'',
				PRIMARY KEY (%s, %s)
			);
			CREATE INDEX %s ON %s (%s, %s);
		END
	`,
		escapeSQLString(s.tableName()),
		s.tableName(),
		quoteIdent(fieldColumn),
		quoteIdent(idColumn),
		quoteIdent(nameColumn),
		quoteIdent(fieldColumn),
		quoteIdent(idColumn),
		quoteIdent(s.nameIndex()),
		s.tableName(),
		quoteIdent(fieldColumn),
		quoteIdent(nameColumn),
	)

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create catalog table %q: %w", s.opts.Table, err)
	}
	return nil
}

func (s *MSSQLCatalog) validateCatalogSchema(ctx context.Context, mode stores.EnsureMode) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COLUMN_NAME, DATA_TYPE
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
	`, s.opts.Schema, s.opts.Table)
	if err != nil {
		return fmt.Errorf("read schema columns: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]string)
	for rows.Next() {
		var columnName string
		var dataType string
		if err := rows.Scan(&columnName, &dataType); err != nil {
			return fmt.Errorf("scan schema columns: %w", err)
		}
		columns[columnName] = dataType
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate schema columns: %w", err)
	}

	fieldType, ok := columns[fieldColumn]
	if !ok {
		return fmt.Errorf("%w: missing column %q", stores.ErrSchemaMismatch, fieldColumn)
	}
	if !isStringType(fieldType) {
		return fmt.Errorf("%w: expected %q to be string-compatible type, got %q", stores.ErrSchemaMismatch, fieldColumn, fieldType)
	}

	idType, ok := columns[idColumn]
	if !ok {
		return fmt.Errorf("%w: missing column %q", stores.ErrSchemaMismatch, idColumn)
	}
	if !strings.EqualFold(idType, "bigint") {
		return fmt.Errorf("%w: expected %q data type bigint, got %q", stores.ErrSchemaMismatch, idColumn, idType)
	}

	if err := s.ensurePrimaryKey(ctx); err != nil {
		return err
	}

	nameType, hasName := columns[nameColumn]
	if !hasName {
		if mode == stores.EnsureStrict {
			return fmt.Errorf("%w: missing column %q", stores.ErrSchemaMismatch, nameColumn)
		}
		return s.addNameColumn(ctx)
	}
	if !isStringType(nameType) {
		return fmt.Errorf("%w: expected %q to be string-compatible type, got %q", stores.ErrSchemaMismatch, nameColumn, nameType)
	}
	return nil
}

func (s *MSSQLCatalog) ensurePrimaryKey(ctx context.Context) error {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1)
		FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
		INNER JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
			ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			AND tc.TABLE_SCHEMA = kcu.TABLE_SCHEMA
			AND tc.TABLE_NAME = kcu.TABLE_NAME
		WHERE tc.TABLE_SCHEMA = @p1
			AND tc.TABLE_NAME = @p2
			AND tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
			AND kcu.COLUMN_NAME IN (@p3, @p4)
	`, s.opts.Schema, s.opts.Table, fieldColumn, idColumn).Scan(&count)
	if err != nil {
		return fmt.Errorf("check primary key: %w", err)
	}
	if count != 2 {
		return fmt.Errorf("%w: primary key on (%q, %q) is required", stores.ErrSchemaMismatch, fieldColumn, idColumn)
	}
	return nil
}

func (s *MSSQLCatalog) addNameColumn(ctx context.Context) error {
	query := fmt.Sprintf("ALTER TABLE %s ADD %s NVARCHAR(450) NOT NULL DEFAULT N''", s.tableName(), quoteIdent(nameColumn))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("auto-migrate name column: %w", err)
	}
	return nil
}

func (s *MSSQLCatalog) nameIndex() string {
	return "idx_" + s.opts.Table + "_name"
}
