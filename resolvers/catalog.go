package resolvers

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/gabisonia/go-clausenav/clause"
)

// Entry is one value of a field: a stable identity and its display name.
type Entry struct {
	Field string `yaml:"field" json:"field"`
	ID    int64  `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
}

// Catalog stores field values and hands out per-field index resolvers.
// The SQL stores implement it as well as MemoryCatalog.
type Catalog interface {
	clause.NameResolver
	Field(name string) clause.IndexValueResolver
	Put(ctx context.Context, entries []Entry) error
	Delete(ctx context.Context, field string, ids ...int64) error
}

// MemoryCatalog is an in-process Catalog.
type MemoryCatalog struct {
	mu     sync.RWMutex
	fields map[string]map[int64]string
}

// NewMemoryCatalog creates a catalog seeded with entries.
func NewMemoryCatalog(entries ...Entry) *MemoryCatalog {
	c := &MemoryCatalog{fields: map[string]map[int64]string{}}
	_ = c.Put(context.Background(), entries)
	return c
}

func (c *MemoryCatalog) Put(_ context.Context, entries []Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		key := fieldKey(e.Field)
		values, ok := c.fields[key]
		if !ok {
			values = map[int64]string{}
			c.fields[key] = values
		}
		values[e.ID] = e.Name
	}
	return nil
}

func (c *MemoryCatalog) Delete(_ context.Context, field string, ids ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	values := c.fields[fieldKey(field)]
	for _, id := range ids {
		delete(values, id)
	}
	return nil
}

func (c *MemoryCatalog) NameForID(_ context.Context, field string, id int64) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.fields[fieldKey(field)][id]
	return name, ok, nil
}

// Field returns the index resolver for one field.
func (c *MemoryCatalog) Field(name string) clause.IndexValueResolver {
	return &memoryField{catalog: c, field: fieldKey(name)}
}

type memoryField struct {
	catalog *MemoryCatalog
	field   string
}

// IndexedValues returns the identities whose name matches s, ignoring
// case. When none match and s is a known identity, s itself is returned.
func (f *memoryField) IndexedValues(_ context.Context, s string) ([]string, error) {
	f.catalog.mu.RLock()
	defer f.catalog.mu.RUnlock()
	values := f.catalog.fields[f.field]

	var ids []int64
	for id, name := range values {
		if strings.EqualFold(name, s) {
			ids = append(ids, id)
		}
	}
	if len(ids) > 0 {
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		return FormatIDs(ids), nil
	}
	if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
		if _, ok := values[id]; ok {
			return []string{strconv.FormatInt(id, 10)}, nil
		}
	}
	return []string{}, nil
}

// IndexedValuesForID returns id when it is known, and otherwise treats its
// decimal form as a name.
func (f *memoryField) IndexedValuesForID(ctx context.Context, id int64) ([]string, error) {
	f.catalog.mu.RLock()
	_, ok := f.catalog.fields[f.field][id]
	f.catalog.mu.RUnlock()
	if ok {
		return []string{strconv.FormatInt(id, 10)}, nil
	}
	return f.IndexedValues(ctx, strconv.FormatInt(id, 10))
}

// FormatIDs renders identities as index values.
func FormatIDs(ids []int64) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.FormatInt(id, 10))
	}
	return out
}
