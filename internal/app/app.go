// Package app assembles translators, catalogs and caches from a config.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/gabisonia/go-clausenav/clause"
	"github.com/gabisonia/go-clausenav/config"
	"github.com/gabisonia/go-clausenav/metrics"
	"github.com/gabisonia/go-clausenav/navigator"
	"github.com/gabisonia/go-clausenav/resolvers"
	"github.com/gabisonia/go-clausenav/stores"
	"github.com/gabisonia/go-clausenav/stores/mssql"
	"github.com/gabisonia/go-clausenav/stores/postgres"
	"github.com/gabisonia/go-clausenav/stores/rediscache"
	"github.com/gabisonia/go-clausenav/stores/sqlite"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/microsoft/go-mssqldb"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// IndexedField is a configured indexed field and its translator.
type IndexedField struct {
	Config     config.FieldConfig
	Translator *navigator.IndexedInputTranslator
}

// DateField is a configured date field and its translator.
type DateField struct {
	Config     config.FieldConfig
	Translator *navigator.DateRangeTranslator
}

// App holds everything a command needs.
type App struct {
	cfg      *config.Config
	loc      *time.Location
	catalog  resolvers.Catalog
	operands *resolvers.OperandResolver
	flags    *resolvers.Flags
	cache    *rediscache.Cache
	registry *prometheus.Registry
	metrics  *metrics.Metrics
	indexed  []IndexedField
	dates    []DateField
	closers  []func() error
	logger   *slog.Logger
}

// New opens the configured catalog and builds one translator per field.
func New(ctx context.Context, cfg *config.Config) (a *App, err error) {
	loc, err := cfg.Navigator.Loc()
	if err != nil {
		return nil, err
	}
	a = &App{
		cfg:    cfg,
		loc:    loc,
		flags:  resolvers.NewFlags(),
		logger: slog.Default().With("component", "app"),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.metrics = metrics.New(a.registry)
		if cfg.Metrics.Addr != "" {
			shutdown := metrics.StartServer(cfg.Metrics.Addr, a.registry)
			a.closers = append(a.closers, func() error {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return shutdown(shutdownCtx)
			})
		}
	}

	if err := a.openCatalog(ctx); err != nil {
		return nil, err
	}
	if cfg.Redis.Enabled {
		if err := a.openCache(ctx); err != nil {
			return nil, err
		}
	}

	functions := resolvers.DefaultFunctions()
	for _, fn := range cfg.Functions {
		items, err := fn.Items()
		if err != nil {
			return nil, fmt.Errorf("function %q: %w", fn.Name, err)
		}
		functions[fn.Name] = resolvers.Constant{List: fn.List, Items: items}
	}
	a.operands = resolvers.NewOperandResolver(functions)

	for _, f := range cfg.Fields {
		if err := a.addField(f); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (a *App) openCatalog(ctx context.Context) error {
	c := a.cfg.Catalog
	mode := stores.EnsureMode(c.EnsureMode)

	switch c.Driver {
	case config.DriverMemory:
		a.catalog = resolvers.NewMemoryCatalog(a.cfg.Seed...)
		return nil

	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, c.DSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })
		if err := pool.Ping(ctx); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		opts := postgres.DefaultStoreOptions()
		if c.Schema != "" {
			opts.Schema = c.Schema
		}
		if c.Table != "" {
			opts.Table = c.Table
		}
		catalog, err := postgres.NewCatalog(pool, opts)
		if err != nil {
			return err
		}
		if err := catalog.EnsureSchema(ctx, mode); err != nil {
			return err
		}
		a.catalog = catalog

	case config.DriverMSSQL:
		db, err := sql.Open("sqlserver", c.DSN)
		if err != nil {
			return fmt.Errorf("connect sql server: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping sql server: %w", err)
		}
		opts := mssql.DefaultStoreOptions()
		if c.Schema != "" {
			opts.Schema = c.Schema
		}
		if c.Table != "" {
			opts.Table = c.Table
		}
		catalog, err := mssql.NewCatalog(db, opts)
		if err != nil {
			return err
		}
		if err := catalog.EnsureSchema(ctx, mode); err != nil {
			return err
		}
		a.catalog = catalog

	case config.DriverSQLite:
		opts := sqlite.DefaultStoreOptions()
		if c.Table != "" {
			opts.Table = c.Table
		}
		catalog, err := sqlite.Open(c.DSN, opts)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, catalog.Close)
		if err := catalog.EnsureSchema(ctx, mode); err != nil {
			return err
		}
		a.catalog = catalog

	default:
		return fmt.Errorf("%w: unknown catalog driver %q", config.ErrInvalidConfig, c.Driver)
	}

	a.logger.Debug("catalog ready", "driver", c.Driver)
	return nil
}

func (a *App) openCache(ctx context.Context) error {
	r := a.cfg.Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     r.Addr,
		Password: r.Password,
		DB:       r.DB,
	})
	a.closers = append(a.closers, rdb.Close)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	cache, err := rediscache.New(rdb, rediscache.Options{
		Prefix:  r.Prefix,
		TTL:     r.CacheTTL,
		Metrics: a.metrics,
	})
	if err != nil {
		return err
	}
	a.cache = cache
	return nil
}

func (a *App) options() navigator.Options {
	opts := navigator.DefaultOptions()
	opts.Policy = a.cfg.Navigator.Policy()
	opts.Layouts = a.cfg.Navigator.Layouts()
	if a.metrics != nil {
		opts.Metrics = a.metrics
	}
	return opts
}

func (a *App) addField(f config.FieldConfig) error {
	names := f.ClauseNames()

	switch f.Kind {
	case config.KindDate:
		t, err := navigator.NewDateRangeTranslator(navigator.DateSearcherConfig{
			ID:          f.ID,
			ClauseNames: names,
			FieldName:   f.CatalogField(),
		}, a.operands, a.options())
		if err != nil {
			return fmt.Errorf("field %q: %w", f.ID, err)
		}
		a.dates = append(a.dates, DateField{Config: f, Translator: t})
		return nil

	case config.KindIndexed:
		for _, flag := range f.Flags {
			operand, err := flag.Operand()
			if err != nil {
				return fmt.Errorf("flag %q of field %q: %w", flag.Flag, f.ID, err)
			}
			a.flags.Register(flag.Flag, operand, names.All()...)
		}

		catalogField := f.CatalogField()
		var index clause.IndexValueResolver = a.catalog.Field(catalogField)
		if a.metrics != nil {
			index = a.metrics.InstrumentIndex(catalogField, index)
		}
		if a.cache != nil {
			index = a.cache.Wrap(catalogField, index)
		}

		var builder navigator.OperandBuilder
		if f.ResolveNames {
			names := navigator.NameResolvingBuilder{Names: a.catalog}
			builder = navigator.OperandBuilderFunc(func(ctx context.Context, _ string, value string) (clause.Operand, error) {
				return names.Build(ctx, catalogField, value)
			})
		}

		t, err := navigator.NewIndexedInputTranslator(navigator.IndexedConfig{
			Operands: a.operands,
			Index:    index,
			Flags:    a.flags,
			Builder:  builder,
		}, a.options())
		if err != nil {
			return fmt.Errorf("field %q: %w", f.ID, err)
		}
		a.indexed = append(a.indexed, IndexedField{Config: f, Translator: t})
		return nil

	default:
		return fmt.Errorf("%w: field %q has unknown kind %q", config.ErrInvalidConfig, f.ID, f.Kind)
	}
}

// Close releases connections in reverse order of opening.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// User returns a requesting user in the configured location.
func (a *App) User(name string) clause.User {
	return clause.User{Name: name, Location: a.loc}
}

// Catalog returns the value catalog.
func (a *App) Catalog() resolvers.Catalog { return a.catalog }

// Cache returns the Redis cache, or nil when disabled.
func (a *App) Cache() *rediscache.Cache { return a.cache }

// Registry returns the metrics registry, or nil when disabled.
func (a *App) Registry() *prometheus.Registry { return a.registry }

// IndexedFields returns the indexed fields in configuration order.
func (a *App) IndexedFields() []IndexedField { return a.indexed }

// DateFields returns the date fields in configuration order.
func (a *App) DateFields() []DateField { return a.dates }

// Indexed finds an indexed field by id.
func (a *App) Indexed(id string) (IndexedField, error) {
	for _, f := range a.indexed {
		if f.Config.ID == id {
			return f, nil
		}
	}
	return IndexedField{}, fmt.Errorf("no indexed field %q", id)
}

// Date finds a date field by id.
func (a *App) Date(id string) (DateField, error) {
	for _, f := range a.dates {
		if f.Config.ID == id {
			return f, nil
		}
	}
	return DateField{}, fmt.Errorf("no date field %q", id)
}

// FieldValues is the navigator state of one indexed field.
type FieldValues struct {
	ID     string   `json:"id" yaml:"id"`
	Values []string `json:"values" yaml:"values"`
	Fits   bool     `json:"fits" yaml:"fits"`
}

// Values evaluates every indexed field against root concurrently. The
// first lookup failure cancels the rest.
func (a *App) Values(ctx context.Context, user clause.User, root clause.Clause, mode navigator.ValueMode) ([]FieldValues, error) {
	out := make([]FieldValues, len(a.indexed))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range a.indexed {
		i, f := i, f
		g.Go(func() error {
			names := f.Config.ClauseNames().All()
			values, err := f.Translator.ValuesForClause(ctx, user, names, root, mode)
			if err != nil {
				return fmt.Errorf("field %q: %w", f.Config.ID, err)
			}
			out[i] = FieldValues{
				ID:     f.Config.ID,
				Values: values,
				Fits:   f.Translator.FitsNavigator(names, root),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// DateRanges converts root for every date field concurrently. Fields whose
// clauses cannot be represented are absent from the result.
func (a *App) DateRanges(ctx context.Context, user clause.User, root clause.Clause) (map[string]navigator.DateRange, error) {
	ranges := make([]*navigator.DateRange, len(a.dates))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range a.dates {
		i, f := i, f
		g.Go(func() error {
			r, err := f.Translator.Convert(ctx, user, root, a.cfg.Navigator.AllowTimeComponent)
			if err != nil {
				return fmt.Errorf("field %q: %w", f.Config.ID, err)
			}
			ranges[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]navigator.DateRange, len(ranges))
	for i, r := range ranges {
		if r != nil {
			out[a.dates[i].Config.ID] = *r
		}
	}
	return out, nil
}

// Params flattens date ranges into the keyed navigator parameter form.
func Params(ranges map[string]navigator.DateRange) map[string]string {
	ids := make([]string, 0, len(ranges))
	for id := range ranges {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := map[string]string{}
	for _, id := range ids {
		for k, v := range ranges[id].Params(id) {
			out[k] = v
		}
	}
	return out
}

// Fits reports per field whether its range represents the clauses exactly.
// A false entry means a time of day was dropped from an absolute bound.
func Fits(ranges map[string]navigator.DateRange) map[string]bool {
	out := make(map[string]bool, len(ranges))
	for id, r := range ranges {
		out[id] = r.Fits
	}
	return out
}

// Seed writes the configured seed entries to the catalog and drops any
// cached lookups for the fields it touched.
func (a *App) Seed(ctx context.Context) (int, error) {
	if len(a.cfg.Seed) == 0 {
		return 0, nil
	}
	if err := a.catalog.Put(ctx, a.cfg.Seed); err != nil {
		return 0, err
	}
	if a.cache != nil {
		touched := map[string]struct{}{}
		for _, e := range a.cfg.Seed {
			touched[stores.NormalizeField(e.Field)] = struct{}{}
		}
		for field := range touched {
			if _, err := a.cache.Invalidate(ctx, field); err != nil {
				a.logger.Warn("cache invalidation failed", "field", field, "error", err)
			}
		}
	}
	return len(a.cfg.Seed), nil
}
