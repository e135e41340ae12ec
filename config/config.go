// Package config loads the clausenav configuration from a YAML file with
// CLAUSENAV_* environment-variable overrides. It describes the navigator
// fields, the value catalog backend and the optional Redis cache.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gabisonia/go-clausenav/clause"
	"github.com/gabisonia/go-clausenav/navigator"
	"github.com/gabisonia/go-clausenav/resolvers"
	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// Catalog drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMSSQL    = "mssql"
	DriverSQLite   = "sqlite"
)

// Field kinds.
const (
	KindIndexed = "indexed"
	KindDate    = "date"
)

// Config is the top-level configuration.
type Config struct {
	Logging   LoggingConfig    `yaml:"logging"`
	Navigator NavigatorConfig  `yaml:"navigator"`
	Catalog   CatalogConfig    `yaml:"catalog"`
	Redis     RedisConfig      `yaml:"redis"`
	Metrics   MetricsConfig    `yaml:"metrics"`
	Fields    []FieldConfig    `yaml:"fields"`
	Functions []FunctionConfig `yaml:"functions"`
	// Seed is loaded into the catalog by "catalog seed" and at startup
	// for the memory driver.
	Seed []resolvers.Entry `yaml:"seed"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NavigatorConfig holds translator settings shared by every field.
type NavigatorConfig struct {
	AllowTimeComponent bool   `yaml:"allowTimeComponent"`
	DateLayout         string `yaml:"dateLayout"`
	DateTimeLayout     string `yaml:"dateTimeLayout"`
	AllowOr            bool   `yaml:"allowOr"`
	AllowNot           bool   `yaml:"allowNot"`
	// Location is the IANA zone of the requesting user.
	Location string `yaml:"location"`
}

// Policy returns the placement policy for named terminals.
func (n NavigatorConfig) Policy() clause.Policy {
	return clause.Policy{AllowOr: n.AllowOr, AllowNot: n.AllowNot}
}

// Layouts returns the navigator display layouts.
func (n NavigatorConfig) Layouts() navigator.DateLayouts {
	return navigator.DateLayouts{Date: n.DateLayout, DateTime: n.DateTimeLayout}
}

// Loc loads the configured location.
func (n NavigatorConfig) Loc() (*time.Location, error) {
	if n.Location == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(n.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: location %q: %v", ErrInvalidConfig, n.Location, err)
	}
	return loc, nil
}

// CatalogConfig selects and configures the value catalog.
type CatalogConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
	// EnsureMode is strict or auto_migrate; empty keeps the store default.
	EnsureMode string `yaml:"ensureMode"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Prefix   string        `yaml:"prefix"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// FieldConfig describes one navigator field. The first name is the
// primary clause name, the rest are aliases.
type FieldConfig struct {
	ID        string       `yaml:"id"`
	Names     []string     `yaml:"names"`
	Kind      string       `yaml:"kind"`
	FieldName string       `yaml:"fieldName"`
	Flags     []FlagConfig `yaml:"flags"`
	// ResolveNames rebuilds numeric navigator values as catalog names.
	ResolveNames bool `yaml:"resolveNames"`
}

// ClauseNames returns the clause names of the field.
func (f FieldConfig) ClauseNames() navigator.ClauseNames {
	if len(f.Names) == 0 {
		return navigator.NewClauseNames(f.ID)
	}
	return navigator.NewClauseNames(f.Names[0], f.Names[1:]...)
}

// CatalogField is the catalog field backing the navigator field.
func (f FieldConfig) CatalogField() string {
	if f.FieldName != "" {
		return f.FieldName
	}
	return f.ClauseNames().Primary
}

// FlagConfig maps a navigator token to the operand it stands for.
type FlagConfig struct {
	Flag               string `yaml:"flag"`
	clause.OperandSpec `yaml:",inline"`
}

// FunctionConfig defines a function resolving to fixed values.
type FunctionConfig struct {
	Name               string `yaml:"name"`
	List               bool   `yaml:"list"`
	clause.OperandSpec `yaml:",inline"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. Missing values keep their defaults.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaultConfig() *Config {
	layouts := navigator.DefaultDateLayouts()
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Navigator: NavigatorConfig{
			DateLayout:     layouts.Date,
			DateTimeLayout: layouts.DateTime,
			Location:       "UTC",
		},
		Catalog: CatalogConfig{
			Driver: DriverMemory,
			Table:  "clause_values",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Prefix:   "clausenav:",
			CacheTTL: 5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
	}
}

// applyEnvOverrides reads CLAUSENAV_* environment variables and overrides
// the corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CLAUSENAV_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CLAUSENAV_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("CLAUSENAV_NAVIGATOR_LOCATION"); v != "" {
		cfg.Navigator.Location = v
	}
	if v := os.Getenv("CLAUSENAV_NAVIGATOR_ALLOW_TIME_COMPONENT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Navigator.AllowTimeComponent = b
		}
	}
	if v := os.Getenv("CLAUSENAV_CATALOG_DRIVER"); v != "" {
		cfg.Catalog.Driver = v
	}
	if v := os.Getenv("CLAUSENAV_CATALOG_DSN"); v != "" {
		cfg.Catalog.DSN = v
	}
	if v := os.Getenv("CLAUSENAV_CATALOG_SCHEMA"); v != "" {
		cfg.Catalog.Schema = v
	}
	if v := os.Getenv("CLAUSENAV_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("CLAUSENAV_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("CLAUSENAV_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("CLAUSENAV_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("CLAUSENAV_REDIS_CACHE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			cfg.Redis.CacheTTL = ttl
		}
	}
	if v := os.Getenv("CLAUSENAV_METRICS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Metrics.Enabled = b
		}
	}
	if v := os.Getenv("CLAUSENAV_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// Validate checks the configuration for values no component can use.
func (c *Config) Validate() error {
	switch c.Catalog.Driver {
	case DriverMemory:
	case DriverPostgres, DriverMSSQL, DriverSQLite:
		if strings.TrimSpace(c.Catalog.DSN) == "" {
			return fmt.Errorf("%w: catalog driver %q needs a dsn", ErrInvalidConfig, c.Catalog.Driver)
		}
	default:
		return fmt.Errorf("%w: unknown catalog driver %q", ErrInvalidConfig, c.Catalog.Driver)
	}
	if _, err := c.Navigator.Loc(); err != nil {
		return err
	}
	if c.Redis.CacheTTL < 0 {
		return fmt.Errorf("%w: redis cacheTTL must be >= 0", ErrInvalidConfig)
	}

	seen := make(map[string]struct{}, len(c.Fields))
	for i, f := range c.Fields {
		id := strings.TrimSpace(f.ID)
		if id == "" {
			return fmt.Errorf("%w: field %d has no id", ErrInvalidConfig, i)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate field id %q", ErrInvalidConfig, id)
		}
		seen[id] = struct{}{}

		switch f.Kind {
		case KindIndexed:
		case KindDate:
			if len(f.Flags) > 0 {
				return fmt.Errorf("%w: date field %q cannot have flags", ErrInvalidConfig, id)
			}
		default:
			return fmt.Errorf("%w: field %q has unknown kind %q", ErrInvalidConfig, id, f.Kind)
		}
		for _, flag := range f.Flags {
			if strings.TrimSpace(flag.Flag) == "" {
				return fmt.Errorf("%w: field %q has a flag without a token", ErrInvalidConfig, id)
			}
			if _, err := flag.Operand(); err != nil {
				return fmt.Errorf("%w: flag %q of field %q: %v", ErrInvalidConfig, flag.Flag, id, err)
			}
		}
	}

	for _, fn := range c.Functions {
		if strings.TrimSpace(fn.Name) == "" {
			return fmt.Errorf("%w: function without a name", ErrInvalidConfig)
		}
		if _, err := fn.Items(); err != nil {
			return fmt.Errorf("%w: function %q: %v", ErrInvalidConfig, fn.Name, err)
		}
	}
	return nil
}

// Field returns the field with the given id.
func (c *Config) Field(id string) (FieldConfig, bool) {
	for _, f := range c.Fields {
		if strings.EqualFold(f.ID, id) {
			return f, true
		}
	}
	return FieldConfig{}, false
}

// Items returns the values a constant function resolves to.
func (f FunctionConfig) Items() ([]clause.Operand, error) {
	operand, err := f.Operand()
	if err != nil {
		return nil, err
	}
	switch o := operand.(type) {
	case clause.SingleValueOperand:
		return []clause.Operand{o}, nil
	case clause.MultiValueOperand:
		for _, v := range o.Values {
			if _, ok := v.(clause.SingleValueOperand); !ok {
				return nil, fmt.Errorf("function values must be scalars")
			}
		}
		return o.Values, nil
	default:
		return nil, fmt.Errorf("function must define value or values")
	}
}
