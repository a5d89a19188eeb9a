// Package config loads the server configuration.
//
// Configuration comes from three layers, later ones winning:
//
//  1. Built-in defaults (the Default* constants)
//  2. A TOML file with [server], [generation], [store], [cache] and
//     [metrics] sections
//  3. GASKET_* environment variables
//
// Load applies all three and validates the result. Validation collects
// every problem rather than stopping at the first.
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/gasket/pkg/errors"
	"github.com/matzehuels/gasket/pkg/gasket"
	"github.com/matzehuels/gasket/pkg/pipeline"
)

// =============================================================================
// Defaults
// =============================================================================

const (
	DefaultAddr            = ":8080"
	DefaultRequestTimeout  = 60 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
	DefaultStoreDriver     = StoreSQLite
	DefaultSQLitePath      = "gasket.db"
	DefaultCacheBackend    = CacheMemory
	DefaultRedisAddr       = "localhost:6379"
)

// Store drivers.
const (
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
	StoreNone   = "none"
)

// Cache backends.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
	CacheFile   = "file"
	CacheNone   = "none"
)

// Environment variables read by Load.
const (
	EnvAddr           = "GASKET_ADDR"
	EnvDatabaseURL    = "GASKET_DATABASE_URL"
	EnvMongoURI       = "GASKET_MONGO_URI"
	EnvRedisAddr      = "GASKET_REDIS_ADDR"
	EnvRedisPassword  = "GASKET_REDIS_PASSWORD"
	EnvAllowedOrigins = "GASKET_ALLOWED_ORIGINS"
	EnvMaxDepthLimit  = "GASKET_MAX_DEPTH_LIMIT"
	EnvMetricsAddr    = "GASKET_METRICS_ADDR"
)

// =============================================================================
// Types
// =============================================================================

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Generation GenerationConfig `toml:"generation"`
	Store      StoreConfig      `toml:"store"`
	Cache      CacheConfig      `toml:"cache"`
	Metrics    MetricsConfig    `toml:"metrics"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `toml:"addr"`
	AllowedOrigins  []string      `toml:"allowed_origins"`
	RequestTimeout  time.Duration `toml:"request_timeout"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
}

// GenerationConfig bounds the work a single request may ask for.
type GenerationConfig struct {
	MaxDepthLimit int     `toml:"max_depth_limit"`
	Tolerance     float64 `toml:"tolerance"`
}

// StoreConfig selects the persistent store.
type StoreConfig struct {
	Driver        string        `toml:"driver"`
	Path          string        `toml:"path"`
	MongoURI      string        `toml:"mongo_uri"`
	MongoDatabase string        `toml:"mongo_database"`
	Timeout       time.Duration `toml:"timeout"`
}

// CacheConfig selects the cache tier.
type CacheConfig struct {
	Backend       string `toml:"backend"`
	Dir           string `toml:"dir"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`

	// Prefix scopes every cache key, letting deployments share a Redis.
	Prefix string `toml:"prefix"`
}

// MetricsConfig enables the Prometheus endpoint. An empty Addr serves
// /metrics on the API listener.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            DefaultAddr,
			RequestTimeout:  DefaultRequestTimeout,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Generation: GenerationConfig{
			MaxDepthLimit: pipeline.MaxDepthLimit,
			Tolerance:     gasket.DefaultTolerance,
		},
		Store: StoreConfig{
			Driver: DefaultStoreDriver,
			Path:   DefaultSQLitePath,
		},
		Cache: CacheConfig{
			Backend: DefaultCacheBackend,
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// =============================================================================
// Loading
// =============================================================================

// Load reads the file at path (if any), applies environment overrides and
// validates. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.decodeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode reads TOML from r on top of the defaults without consulting the
// environment.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "parse config")
	}
	if err := undecoded(md); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) decodeFile(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, err, "parse config %s", path)
	}
	return undecoded(md)
}

// undecoded rejects keys the Config does not know, which are usually typos.
func undecoded(md toml.MetaData) error {
	keys := md.Undecoded()
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
	}
	return errors.New(errors.ErrCodeInvalidConfiguration, "unknown config keys: %s", strings.Join(names, ", "))
}

// applyEnv overrides fields from the environment. Setting a connection
// variable also selects its backend.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvAllowedOrigins); ok && v != "" {
		c.Server.AllowedOrigins = splitList(v)
	}
	if v, ok := lookup(EnvDatabaseURL); ok && v != "" {
		c.Store.Driver = StoreSQLite
		c.Store.Path = strings.TrimPrefix(v, "sqlite://")
	}
	if v, ok := lookup(EnvMongoURI); ok && v != "" {
		c.Store.Driver = StoreMongo
		c.Store.MongoURI = v
	}
	if v, ok := lookup(EnvRedisAddr); ok && v != "" {
		c.Cache.Backend = CacheRedis
		c.Cache.RedisAddr = v
	}
	if v, ok := lookup(EnvRedisPassword); ok {
		c.Cache.RedisPassword = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok && v != "" {
		c.Metrics.Enabled = true
		c.Metrics.Addr = v
	}
	if v, ok := lookup(EnvMaxDepthLimit); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New(errors.ErrCodeInvalidConfiguration, "%s must be an integer, got %q", EnvMaxDepthLimit, v)
		}
		c.Generation.MaxDepthLimit = n
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Generation.MaxDepthLimit == 0 {
		c.Generation.MaxDepthLimit = pipeline.MaxDepthLimit
	}
	if c.Generation.Tolerance == 0 {
		c.Generation.Tolerance = gasket.DefaultTolerance
	}
	if c.Store.Driver == "" {
		c.Store.Driver = DefaultStoreDriver
	}
	if c.Store.Driver == StoreSQLite && c.Store.Path == "" {
		c.Store.Path = DefaultSQLitePath
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = DefaultCacheBackend
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = DefaultRedisAddr
	}
}

// =============================================================================
// Validation
// =============================================================================

// Validate reports every invalid setting in one error.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Server.RequestTimeout < 0 {
		problems = append(problems, "server.request_timeout must not be negative")
	}
	if c.Generation.MaxDepthLimit < 1 || c.Generation.MaxDepthLimit > pipeline.MaxDepthLimit {
		problems = append(problems, fmt.Sprintf("generation.max_depth_limit must be between 1 and %d", pipeline.MaxDepthLimit))
	}
	if c.Generation.Tolerance <= 0 || c.Generation.Tolerance >= 1 {
		problems = append(problems, "generation.tolerance must be in (0, 1)")
	}

	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for the sqlite driver")
		}
	case StoreMongo:
		if c.Store.MongoURI == "" {
			problems = append(problems, "store.mongo_uri is required for the mongo driver")
		}
	case StoreNone:
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q is not one of sqlite, mongo, none", c.Store.Driver))
	}

	switch c.Cache.Backend {
	case CacheRedis:
		if c.Cache.RedisAddr == "" {
			problems = append(problems, "cache.redis_addr is required for the redis backend")
		}
	case CacheFile:
		if c.Cache.Dir == "" {
			problems = append(problems, "cache.dir is required for the file backend")
		}
	case CacheMemory, CacheNone:
	default:
		problems = append(problems, fmt.Sprintf("cache.backend %q is not one of redis, memory, file, none", c.Cache.Backend))
	}

	if c.Metrics.Enabled && c.Metrics.Addr != "" && c.Metrics.Addr == c.Server.Addr {
		problems = append(problems, "metrics.addr must differ from server.addr")
	}

	if len(problems) > 0 {
		return errors.New(errors.ErrCodeInvalidConfiguration, "invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Write encodes the configuration as TOML.
func (c *Config) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
