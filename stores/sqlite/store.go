// Package sqlite is a cgo-free value catalog on modernc.org/sqlite,
// suited to single-node deployments and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gabisonia/go-clausenav/clause"
	"github.com/gabisonia/go-clausenav/resolvers"
	"github.com/gabisonia/go-clausenav/stores"

	_ "modernc.org/sqlite"
)

const maxRowsPerStatement = 300

// StoreOptions configures SQLiteCatalog behavior.
type StoreOptions struct {
	Table           string
	StrictByDefault bool
}

// DefaultStoreOptions returns production-safe defaults.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{Table: "clause_values", StrictByDefault: true}
}

// SQLiteCatalog is a field value catalog in a SQLite file.
type SQLiteCatalog struct {
	db   *sql.DB
	opts StoreOptions
}

var _ resolvers.Catalog = (*SQLiteCatalog)(nil)

// Open opens (or creates) the database at path and applies the
// connection pragmas. ":memory:" is accepted.
func Open(path string, opts StoreOptions) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if path == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pragma failed: %w", err)
		}
	}

	catalog, err := NewCatalog(db, opts)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return catalog, nil
}

// NewCatalog wraps an already opened database.
func NewCatalog(db *sql.DB, opts StoreOptions) (*SQLiteCatalog, error) {
	if db == nil {
		return nil, fmt.Errorf("nil sql db")
	}
	if strings.TrimSpace(opts.Table) == "" {
		opts.Table = "clause_values"
	}
	return &SQLiteCatalog{db: db, opts: opts}, nil
}

func (s *SQLiteCatalog) Close() error { return s.db.Close() }

// EnsureSchema creates or validates the catalog table.
func (s *SQLiteCatalog) EnsureSchema(ctx context.Context, mode stores.EnsureMode) error {
	mode, err := stores.DefaultMode(mode, s.opts.StrictByDefault)
	if err != nil {
		return err
	}

	columns, err := s.tableColumns(ctx)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return s.createCatalogTable(ctx)
	}

	for _, want := range []string{"field", "id"} {
		if _, ok := columns[want]; !ok {
			return fmt.Errorf("%w: missing column %q", stores.ErrSchemaMismatch, want)
		}
	}
	if columns["field"] == 0 || columns["id"] == 0 {
		return fmt.Errorf("%w: primary key on (\"field\", \"id\") is required", stores.ErrSchemaMismatch)
	}
	if _, ok := columns["name"]; !ok {
		if mode == stores.EnsureStrict {
			return fmt.Errorf("%w: missing column %q", stores.ErrSchemaMismatch, "name")
		}
		query := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN name TEXT NOT NULL DEFAULT ''`, s.tableName())
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("auto-migrate name column: %w", err)
		}
	}
	return s.ensureNameIndex(ctx)
}

// tableColumns maps column names to their primary key position, zero
// when the column is not part of the key.
func (s *SQLiteCatalog) tableColumns(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, s.tableName()))
	if err != nil {
		return nil, fmt.Errorf("read schema columns: %w", err)
	}
	defer rows.Close()

	columns := make(map[string]int)
	for rows.Next() {
		var (
			cid       int
			name      string
			dataType  string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &dataType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan schema columns: %w", err)
		}
		columns[strings.ToLower(name)] = pk
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schema columns: %w", err)
	}
	return columns, nil
}

func (s *SQLiteCatalog) createCatalogTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			field TEXT NOT NULL,
			id INTEGER NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (field, id)
		)`, s.tableName())
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("create catalog table %q: %w", s.opts.Table, err)
	}
	return s.ensureNameIndex(ctx)
}

func (s *SQLiteCatalog) ensureNameIndex(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (field, name COLLATE NOCASE)`,
		quoteIdent("idx_"+s.opts.Table+"_name"), s.tableName())
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("ensure name index: %w", err)
	}
	return nil
}

// Field returns the index resolver for one field.
func (s *SQLiteCatalog) Field(name string) clause.IndexValueResolver {
	return stores.NewFieldResolver(s, name)
}

// Put upserts entries in batches.
func (s *SQLiteCatalog) Put(ctx context.Context, entries []resolvers.Entry) error {
	normalized, err := stores.NormalizeEntries(entries)
	if err != nil {
		return err
	}
	for start := 0; start < len(normalized); start += maxRowsPerStatement {
		end := start + maxRowsPerStatement
		if end > len(normalized) {
			end = len(normalized)
		}
		query, args := s.buildUpsertBatch(normalized[start:end])
		if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert catalog entries: %w", err)
		}
	}
	return nil
}

func (s *SQLiteCatalog) buildUpsertBatch(entries []resolvers.Entry) (string, []any) {
	args := make([]any, 0, len(entries)*3)
	values := make([]string, 0, len(entries))
	for _, e := range entries {
		values = append(values, "(?, ?, ?)")
		args = append(args, e.Field, e.ID, e.Name)
	}
	query := fmt.Sprintf(`INSERT INTO %s (field, id, name) VALUES %s ON CONFLICT (field, id) DO UPDATE SET name = excluded.name`,
		s.tableName(), strings.Join(values, ", "))
	return query, args
}

// Delete removes the given identities of field.
func (s *SQLiteCatalog) Delete(ctx context.Context, field string, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, 0, len(ids)+1)
	args = append(args, stores.NormalizeField(field))
	for _, id := range ids {
		args = append(args, id)
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := fmt.Sprintf(`DELETE FROM %s WHERE field = ? AND id IN (%s)`, s.tableName(), marks)
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete catalog entries: %w", err)
	}
	return nil
}

func (s *SQLiteCatalog) NameForID(ctx context.Context, field string, id int64) (string, bool, error) {
	query := fmt.Sprintf(`SELECT name FROM %s WHERE field = ? AND id = ?`, s.tableName())
	var name string
	if err := s.db.QueryRowContext(ctx, query, stores.NormalizeField(field), id).Scan(&name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return name, true, nil
}

func (s *SQLiteCatalog) IDsByName(ctx context.Context, field, name string) ([]int64, error) {
	query := fmt.Sprintf(`SELECT id FROM %s WHERE field = ? AND lower(name) = lower(?) ORDER BY id`, s.tableName())
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
	return ids, rows.Err()
}

func (s *SQLiteCatalog) HasID(ctx context.Context, field string, id int64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE field = ? AND id = ?)`, s.tableName())
	var exists bool
	if err := s.db.QueryRowContext(ctx, query, field, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *SQLiteCatalog) tableName() string {
	return quoteIdent(s.opts.Table)
}

func quoteIdent(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
