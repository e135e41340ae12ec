package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gabisonia/go-clausenav/clause"
	"github.com/gabisonia/go-clausenav/resolvers"
	"github.com/gabisonia/go-clausenav/stores"
)

// StoreOptions configures MSSQLCatalog behavior.
type StoreOptions struct {
	Schema          string
	Table           string
	StrictByDefault bool
}

// DefaultStoreOptions returns production-safe defaults.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		Schema:          "dbo",
		Table:           "clause_values",
		StrictByDefault: true,
	}
}

// MSSQLCatalog is a field value catalog on SQL Server using database/sql.
type MSSQLCatalog struct {
	db   *sql.DB
	opts StoreOptions
}

var _ resolvers.Catalog = (*MSSQLCatalog)(nil)

// NewCatalog creates a SQL Server-backed catalog.
func NewCatalog(db *sql.DB, opts StoreOptions) (*MSSQLCatalog, error) {
	if db == nil {
		return nil, fmt.Errorf("nil sql db")
	}

	normalized := opts.withDefaults()
	if err := normalized.validate(); err != nil {
		return nil, err
	}

	return &MSSQLCatalog{db: db, opts: normalized}, nil
}

// EnsureSchema creates or validates the catalog table.
func (s *MSSQLCatalog) EnsureSchema(ctx context.Context, mode stores.EnsureMode) error {
	mode, err := stores.DefaultMode(mode, s.opts.StrictByDefault)
	if err != nil {
		return err
	}
	if err := s.ensureBaseSchema(ctx); err != nil {
		return err
	}

	exists, err := s.tableExists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		return s.createCatalogTable(ctx)
	}
	return s.validateCatalogSchema(ctx, mode)
}

// Field returns the index resolver for one field.
func (s *MSSQLCatalog) Field(name string) clause.IndexValueResolver {
	return stores.NewFieldResolver(s, name)
}

// Put writes entries inside one transaction, updating existing identities
// and inserting the rest.
func (s *MSSQLCatalog) Put(ctx context.Context, entries []resolvers.Entry) error {
	normalized, err := stores.NormalizeEntries(entries)
	if err != nil {
		return err
	}
	if len(normalized) == 0 {
		return nil
	}

	insertQuery := fmt.Sprintf("INSERT INTO %s (%s, %s, %s) VALUES (@p1, @p2, @p3)",
		s.tableName(), quoteIdent(fieldColumn), quoteIdent(idColumn), quoteIdent(nameColumn))
	updateQuery := fmt.Sprintf("UPDATE %s SET %s = @p3 WHERE %s = @p1 AND %s = @p2",
		s.tableName(), quoteIdent(nameColumn), quoteIdent(fieldColumn), quoteIdent(idColumn))

	for start := 0; start < len(normalized); start += maxRowsPerStatement {
		end := start + maxRowsPerStatement
		if end > len(normalized) {
			end = len(normalized)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := writeBatch(ctx, tx, normalized[start:end], insertQuery, updateQuery); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("write catalog entries: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit catalog entries: %w", err)
		}
	}
	return nil
}

func writeBatch(ctx context.Context, tx *sql.Tx, entries []resolvers.Entry, insertQuery, updateQuery string) error {
	for _, e := range entries {
		result, err := tx.ExecContext(ctx, updateQuery, e.Field, e.ID, e.Name)
		if err != nil {
			return err
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rowsAffected > 0 {
			continue
		}
		if _, err := tx.ExecContext(ctx, insertQuery, e.Field, e.ID, e.Name); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the given identities of field.
func (s *MSSQLCatalog) Delete(ctx context.Context, field string, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	field = stores.NormalizeField(field)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	for _, stmt := range s.deleteStatements(field, ids) {
		if _, err := tx.ExecContext(ctx, stmt.query, stmt.args...); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete catalog entries: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog deletes: %w", err)
	}
	return nil
}

type statement struct {
	query string
	args  []any
}

// deleteStatements splits ids so no statement exceeds the server's
// parameter limit.
func (s *MSSQLCatalog) deleteStatements(field string, ids []int64) []statement {
	out := make([]statement, 0, (len(ids)+maxRowsPerStatement-1)/maxRowsPerStatement)
	for start := 0; start < len(ids); start += maxRowsPerStatement {
		end := min(start+maxRowsPerStatement, len(ids))
		query, args := s.buildDelete(field, ids[start:end])
		out = append(out, statement{query: query, args: args})
	}
	return out
}

func (s *MSSQLCatalog) buildDelete(field string, ids []int64) (string, []any) {
	args := make([]any, 0, len(ids)+1)
	args = append(args, field)
	for _, id := range ids {
		args = append(args, id)
	}
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = @p1 AND %s IN (%s)",
		s.tableName(), quoteIdent(fieldColumn), quoteIdent(idColumn), placeholders(2, len(ids)))
	return query, args
}

func (s *MSSQLCatalog) NameForID(ctx context.Context, field string, id int64) (string, bool, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = @p1 AND %s = @p2",
		quoteIdent(nameColumn), s.tableName(), quoteIdent(fieldColumn), quoteIdent(idColumn))
	var name string
	if err := s.db.QueryRowContext(ctx, query, stores.NormalizeField(field), id).Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return name, true, nil
}

func (s *MSSQLCatalog) IDsByName(ctx context.Context, field, name string) ([]int64, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = @p1 AND LOWER(%s) = LOWER(@p2) ORDER BY %s",
		quoteIdent(idColumn), s.tableName(), quoteIdent(fieldColumn), quoteIdent(nameColumn), quoteIdent(idColumn))
	rows, err := s.db.QueryContext(ctx, query, field, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *MSSQLCatalog) HasID(ctx context.Context, field string, id int64) (bool, error) {
	query := fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE %s = @p1 AND %s = @p2",
		s.tableName(), quoteIdent(fieldColumn), quoteIdent(idColumn))
	var count int
	if err := s.db.QueryRowContext(ctx, query, field, id).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *MSSQLCatalog) tableName() string {
	return qualifiedTable(s.opts.Schema, s.opts.Table)
}

func (s StoreOptions) withDefaults() StoreOptions {
	if strings.TrimSpace(s.Schema) == "" {
		s.Schema = "dbo"
	}
	if strings.TrimSpace(s.Table) == "" {
		s.Table = "clause_values"
	}
	return s
}

func (s StoreOptions) validate() error {
	if strings.TrimSpace(s.Schema) == "" {
		return fmt.Errorf("%w: schema is empty", stores.ErrSchemaMismatch)
	}
	if strings.TrimSpace(s.Table) == "" {
		return fmt.Errorf("%w: table is empty", stores.ErrSchemaMismatch)
	}
	return nil
}
