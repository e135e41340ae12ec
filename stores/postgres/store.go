package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gabisonia/go-clausenav/clause"
	"github.com/gabisonia/go-clausenav/resolvers"
	"github.com/gabisonia/go-clausenav/stores"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const maxRowsPerStatement = 500

// StoreOptions configures PostgresCatalog behavior.
type StoreOptions struct {
	Schema          string
	Table           string
	StrictByDefault bool
}

// DefaultStoreOptions returns production-safe defaults.
func DefaultStoreOptions() StoreOptions {
	return StoreOptions{
		Schema:          "public",
		Table:           "clause_values",
		StrictByDefault: true,
	}
}

// PostgresCatalog is a field value catalog backed by pgxpool.
type PostgresCatalog struct {
	pool *pgxpool.Pool
	opts StoreOptions
}

var _ resolvers.Catalog = (*PostgresCatalog)(nil)

// NewCatalog creates a Postgres-backed catalog.
func NewCatalog(pool *pgxpool.Pool, opts StoreOptions) (*PostgresCatalog, error) {
	if pool == nil {
		return nil, fmt.Errorf("nil pgx pool")
	}
	normalized := opts.withDefaults()
	if err := normalized.validate(); err != nil {
		return nil, err
	}
	return &PostgresCatalog{pool: pool, opts: normalized}, nil
}

// EnsureSchema creates or validates the catalog table.
func (s *PostgresCatalog) EnsureSchema(ctx context.Context, mode stores.EnsureMode) error {
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
		if err := s.createCatalogTable(ctx); err != nil {
			return err
		}
	} else if err := s.validateCatalogSchema(ctx, mode); err != nil {
		return err
	}
	return s.ensureNameIndex(ctx)
}

// Field returns the index resolver for one field.
func (s *PostgresCatalog) Field(name string) clause.IndexValueResolver {
	return stores.NewFieldResolver(s, name)
}

// Put upserts entries in batches.
func (s *PostgresCatalog) Put(ctx context.Context, entries []resolvers.Entry) error {
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
		if _, err := s.pool.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert catalog entries: %w", err)
		}
	}
	return nil
}

func (s *PostgresCatalog) buildUpsertBatch(entries []resolvers.Entry) (string, []any) {
	args := make([]any, 0, len(entries)*3)
	values := make([]string, 0, len(entries))
	for i, e := range entries {
		base := i*3 + 1
		values = append(values, fmt.Sprintf("($%d, $%d, $%d)", base, base+1, base+2))
		args = append(args, e.Field, e.ID, e.Name)
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(s.tableName())
	b.WriteString(" (")
	b.WriteString(strings.Join([]string{quoteIdent(fieldColumn), quoteIdent(idColumn), quoteIdent(nameColumn)}, ", "))
	b.WriteString(") VALUES ")
	b.WriteString(strings.Join(values, ", "))
	b.WriteString(" ON CONFLICT (")
	b.WriteString(quoteIdent(fieldColumn) + ", " + quoteIdent(idColumn))
	b.WriteString(") DO UPDATE SET ")
	b.WriteString(quoteIdent(nameColumn) + " = EXCLUDED." + quoteIdent(nameColumn))
	return b.String(), args
}

// Delete removes the given identities of field.
func (s *PostgresCatalog) Delete(ctx context.Context, field string, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND %s = ANY($2)`,
		s.tableName(), quoteIdent(fieldColumn), quoteIdent(idColumn))
	if _, err := s.pool.Exec(ctx, query, stores.NormalizeField(field), ids); err != nil {
		return fmt.Errorf("delete catalog entries: %w", err)
	}
	return nil
}

func (s *PostgresCatalog) NameForID(ctx context.Context, field string, id int64) (string, bool, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		quoteIdent(nameColumn), s.tableName(), quoteIdent(fieldColumn), quoteIdent(idColumn))
	var name string
	if err := s.pool.QueryRow(ctx, query, stores.NormalizeField(field), id).Scan(&name); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return name, true, nil
}

func (s *PostgresCatalog) IDsByName(ctx context.Context, field, name string) ([]int64, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND lower(%s) = lower($2) ORDER BY %s`,
		quoteIdent(idColumn), s.tableName(), quoteIdent(fieldColumn), quoteIdent(nameColumn), quoteIdent(idColumn))
	rows, err := s.pool.Query(ctx, query, field, name)
	if err != nil {
		return nil, err
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *PostgresCatalog) HasID(ctx context.Context, field string, id int64) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE %s = $1 AND %s = $2)`,
		s.tableName(), quoteIdent(fieldColumn), quoteIdent(idColumn))
	var exists bool
	if err := s.pool.QueryRow(ctx, query, field, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (s *PostgresCatalog) tableName() string {
	return qualifiedTable(s.opts.Schema, s.opts.Table)
}

func (o StoreOptions) withDefaults() StoreOptions {
	if strings.TrimSpace(o.Schema) == "" {
		o.Schema = "public"
	}
	if strings.TrimSpace(o.Table) == "" {
		o.Table = "clause_values"
	}
	return o
}

func (o StoreOptions) validate() error {
	if strings.TrimSpace(o.Schema) == "" {
		return fmt.Errorf("%w: schema is empty", stores.ErrSchemaMismatch)
	}
	if strings.TrimSpace(o.Table) == "" {
		return fmt.Errorf("%w: table is empty", stores.ErrSchemaMismatch)
	}
	return nil
}
