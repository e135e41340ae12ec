// Package stores holds what the SQL value catalogs share: schema errors,
// ensure modes, entry validation and the lookup rules every backend applies.
package stores

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gabisonia/go-clausenav/clause"
	"github.com/gabisonia/go-clausenav/resolvers"
)

var ErrSchemaMismatch = errors.New("stores: schema mismatch")

// EnsureMode controls what EnsureSchema does with an existing table.
type EnsureMode string

const (
	// EnsureStrict fails when the table differs from the expected shape.
	EnsureStrict EnsureMode = "strict"
	// EnsureAutoMigrate adds what is missing where that is safe.
	EnsureAutoMigrate EnsureMode = "auto_migrate"
)

// DefaultMode resolves an unset mode.
func DefaultMode(mode EnsureMode, strictByDefault bool) (EnsureMode, error) {
	if mode == "" {
		if strictByDefault {
			return EnsureStrict, nil
		}
		return EnsureAutoMigrate, nil
	}
	if mode != EnsureStrict && mode != EnsureAutoMigrate {
		return "", fmt.Errorf("%w: unsupported ensure mode %q", ErrSchemaMismatch, mode)
	}
	return mode, nil
}

// NormalizeEntries trims and lower-cases field names, rejects entries
// without a field and keeps the last name given for a repeated identity.
func NormalizeEntries(entries []resolvers.Entry) ([]resolvers.Entry, error) {
	type key struct {
		field string
		id    int64
	}
	out := make([]resolvers.Entry, 0, len(entries))
	positions := make(map[key]int, len(entries))
	for _, e := range entries {
		field := NormalizeField(e.Field)
		if field == "" {
			return nil, fmt.Errorf("entry %d has an empty field", e.ID)
		}
		k := key{field: field, id: e.ID}
		if i, ok := positions[k]; ok {
			out[i].Name = e.Name
			continue
		}
		positions[k] = len(out)
		out = append(out, resolvers.Entry{Field: field, ID: e.ID, Name: e.Name})
	}
	return out, nil
}

// NormalizeField is the stored form of a field name.
func NormalizeField(field string) string {
	return strings.ToLower(strings.TrimSpace(field))
}

// Lookup is implemented by each SQL backend.
type Lookup interface {
	IDsByName(ctx context.Context, field, name string) ([]int64, error)
	HasID(ctx context.Context, field string, id int64) (bool, error)
}

// FieldResolver applies the catalog lookup rules on top of a backend:
// names match case-insensitively, a known identity written as text
// resolves to itself, and an unknown identity is retried as a name.
type FieldResolver struct {
	lookup Lookup
	field  string
}

// NewFieldResolver returns the index resolver for one field.
func NewFieldResolver(lookup Lookup, field string) *FieldResolver {
	return &FieldResolver{lookup: lookup, field: NormalizeField(field)}
}

var _ clause.IndexValueResolver = (*FieldResolver)(nil)

func (r *FieldResolver) IndexedValues(ctx context.Context, s string) ([]string, error) {
	ids, err := r.lookup.IDsByName(ctx, r.field, s)
	if err != nil {
		return nil, fmt.Errorf("lookup %s by name: %w", r.field, err)
	}
	if len(ids) > 0 {
		return resolvers.FormatIDs(ids), nil
	}

	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return []string{}, nil
	}
	ok, err := r.lookup.HasID(ctx, r.field, id)
	if err != nil {
		return nil, fmt.Errorf("lookup %s by id: %w", r.field, err)
	}
	if !ok {
		return []string{}, nil
	}
	return []string{strconv.FormatInt(id, 10)}, nil
}

func (r *FieldResolver) IndexedValuesForID(ctx context.Context, id int64) ([]string, error) {
	ok, err := r.lookup.HasID(ctx, r.field, id)
	if err != nil {
		return nil, fmt.Errorf("lookup %s by id: %w", r.field, err)
	}
	if ok {
		return []string{strconv.FormatInt(id, 10)}, nil
	}
	ids, err := r.lookup.IDsByName(ctx, r.field, strconv.FormatInt(id, 10))
	if err != nil {
		return nil, fmt.Errorf("lookup %s by name: %w", r.field, err)
	}
	return resolvers.FormatIDs(ids), nil
}
