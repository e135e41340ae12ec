package postgres

import (
	"context"
	"fmt"

	"github.com/gabisonia/go-clausenav/stores"
)

func (s *PostgresCatalog) ensureBaseSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %s`, quoteIdent(s.opts.Schema))
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure schema %q: %w", s.opts.Schema, err)
	}
	return nil
}

func (s *PostgresCatalog) tableExists(ctx context.Context) (bool, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = $1 AND table_name = $2
		)`,
		s.opts.Schema,
		s.opts.Table,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return exists, nil
}

func (s *PostgresCatalog) createCatalogTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			%s text NOT NULL,
			%s bigint NOT NULL,
			%s text NOT NULL DEFAULT '',
			PRIMARY KEY (%s, %s)
		)
	`,
		s.tableName(),
		quoteIdent(fieldColumn),
		quoteIdent(idColumn),
		quoteIdent(nameColumn),
		quoteIdent(fieldColumn),
		quoteIdent(idColumn),
	)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create catalog table %q: %w", s.opts.Table, err)
	}
	return nil
}

func (s *PostgresCatalog) validateCatalogSchema(ctx context.Context, mode stores.EnsureMode) error {
	rows, err := s.pool.Query(ctx,
		`SELECT column_name, data_type
		 FROM information_schema.columns
		 WHERE table_schema = $1 AND table_name = $2`,
		s.opts.Schema,
		s.opts.Table,
	)
	if err != nil {
		return fmt.Errorf("read schema columns: %w", err)
	}
	defer rows.Close()

	cols := map[string]string{}
	for rows.Next() {
		var name, dataType string
		if err := rows.Scan(&name, &dataType); err != nil {
			return fmt.Errorf("scan schema columns: %w", err)
		}
		cols[name] = dataType
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate schema columns: %w", err)
	}

	expected := []struct {
		column   string
		dataType string
	}{
		{fieldColumn, "text"},
		{idColumn, "bigint"},
	}
	for _, want := range expected {
		got, ok := cols[want.column]
		if !ok {
			return fmt.Errorf("%w: missing column %q", stores.ErrSchemaMismatch, want.column)
		}
		if got != want.dataType {
			return fmt.Errorf("%w: expected %q data type %s, got %q", stores.ErrSchemaMismatch, want.column, want.dataType, got)
		}
	}

	if err := s.ensurePrimaryKey(ctx); err != nil {
		return err
	}

	if dataType, ok := cols[nameColumn]; !ok {
		if mode == stores.EnsureStrict {
			return fmt.Errorf("%w: missing column %q", stores.ErrSchemaMismatch, nameColumn)
		}
		if err := s.addNameColumn(ctx); err != nil {
			return err
		}
	} else if dataType != "text" {
		return fmt.Errorf("%w: expected %q data type text, got %q", stores.ErrSchemaMismatch, nameColumn, dataType)
	}
	return nil
}

func (s *PostgresCatalog) ensurePrimaryKey(ctx context.Context) error {
	var keyColumns int
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.table_constraints tc
		JOIN information_schema.key_column_usage kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
			AND tc.table_name = kcu.table_name
		WHERE tc.table_schema = $1
			AND tc.table_name = $2
			AND tc.constraint_type = 'PRIMARY KEY'
			AND kcu.column_name IN ($3, $4)
	`, s.opts.Schema, s.opts.Table, fieldColumn, idColumn).Scan(&keyColumns)
	if err != nil {
		return fmt.Errorf("check primary key: %w", err)
	}
	if keyColumns != 2 {
		return fmt.Errorf("%w: primary key on (%q, %q) is required", stores.ErrSchemaMismatch, fieldColumn, idColumn)
	}
	return nil
}

func (s *PostgresCatalog) addNameColumn(ctx context.Context) error {
	query := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s text NOT NULL DEFAULT ''`,
		s.tableName(),
		quoteIdent(nameColumn),
	)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("auto-migrate name column: %w", err)
	}
	return nil
}

func (s *PostgresCatalog) ensureNameIndex(ctx context.Context) error {
	query := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s ON %s (%s, lower(%s))",
		quoteIdent("idx_"+s.opts.Table+"_name"),
		s.tableName(),
		quoteIdent(fieldColumn),
		quoteIdent(nameColumn),
	)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("ensure name index: %w", err)
	}
	return nil
}
