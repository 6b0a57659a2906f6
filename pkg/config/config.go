// Package config loads the TOML configuration shared by the CLI and the
// admin server.
package config

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/ponchocards/ponchocards/pkg/cache"
	"github.com/ponchocards/ponchocards/pkg/deck/layout"
	"github.com/ponchocards/ponchocards/pkg/errors"
	"github.com/ponchocards/ponchocards/pkg/pipeline"
	"github.com/ponchocards/ponchocards/pkg/qrcode"
	"github.com/ponchocards/ponchocards/pkg/store/mongo"
)

// AppName names the configuration, data and cache directories.
const AppName = "ponchocards"

// EnvAdminToken overrides Server.AdminToken.
const EnvAdminToken = "PONCHOCARDS_ADMIN_TOKEN"

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverMongo  = "mongo"
)

// Cache backends.
const (
	CacheFile  = "file"
	CacheRedis = "redis"
	CacheNone  = "none"
)

//go:embed config.example.toml
var exampleConf []byte

// Config is the application configuration.
type Config struct {
	Deck   DeckConfig     `toml:"deck"`
	QR     qrcode.Options `toml:"qr"`
	Store  StoreConfig    `toml:"store"`
	Cache  CacheConfig    `toml:"cache"`
	Server ServerConfig   `toml:"server"`
}

// DeckConfig holds layout and rendering settings.
type DeckConfig struct {
	Geometry        layout.Geometry `toml:"geometry"`
	ShowOrdinals    bool            `toml:"show_ordinals"`
	Mirror          bool            `toml:"mirror"`
	YearPlaceholder string          `toml:"year_placeholder"`
	Concurrency     int             `toml:"concurrency"`
	DPI             int             `toml:"dpi"`
}

// StoreConfig selects the catalog backend.
type StoreConfig struct {
	Driver string       `toml:"driver"`
	Path   string       `toml:"path"`
	Mongo  mongo.Config `toml:"mongo"`
}

// CacheConfig selects the cache backend.
type CacheConfig struct {
	Backend string            `toml:"backend"`
	Dir     string            `toml:"dir"`
	Redis   cache.RedisConfig `toml:"redis"`
}

// ServerConfig configures the admin API.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	AdminToken  string `toml:"admin_token"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

// Default returns the configuration of the embedded example file.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &cfg
}

// Example returns the embedded example file.
func Example() []byte { return exampleConf }

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path selects DefaultPath; a missing
// default file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "locate config")
		}
		path = p
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
		}
	case os.IsNotExist(err) && !explicit:
	default:
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if tok := os.Getenv(EnvAdminToken); tok != "" {
		c.Server.AdminToken = tok
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Deck.Geometry.Validate(); err != nil {
		return err
	}
	if c.Deck.Concurrency < 0 {
		return invalid("deck.concurrency must not be negative (got %d)", c.Deck.Concurrency)
	}
	if c.Deck.DPI < 36 || c.Deck.DPI > 1200 {
		return invalid("deck.dpi must be between 36 and 1200 (got %d)", c.Deck.DPI)
	}

	qr := c.QR
	if err := qr.ValidateAndSetDefaults(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "qr")
	}

	switch c.Store.Driver {
	case DriverSQLite:
	case DriverMongo:
		if c.Store.Mongo.URI == "" {
			return invalid("store.mongo.uri is required for the mongo driver")
		}
	default:
		return invalid("unknown store.driver %q (want sqlite or mongo)", c.Store.Driver)
	}

	switch c.Cache.Backend {
	case CacheFile, CacheNone:
	case CacheRedis:
		if c.Cache.Redis.Addr == "" {
			return invalid("cache.redis.addr is required for the redis backend")
		}
	default:
		return invalid("unknown cache.backend %q (want file, redis or none)", c.Cache.Backend)
	}

	if c.Server.Addr == "" {
		return invalid("server.addr is required")
	}
	if c.Server.MaxUploadMB <= 0 {
		return invalid("server.max_upload_mb must be positive (got %d)", c.Server.MaxUploadMB)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidConfig, format, args...)
}

// PipelineOptions converts the deck and qr sections into run options.
// Formats and logger are left for the caller.
func (c *Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Geometry = c.Deck.Geometry
	opts.ShowOrdinals = c.Deck.ShowOrdinals
	opts.Mirror = c.Deck.Mirror
	opts.YearPlaceholder = c.Deck.YearPlaceholder
	opts.Concurrency = c.Deck.Concurrency
	opts.DPI = c.Deck.DPI
	opts.QR = c.QR
	return opts
}

// StorePath returns the sqlite file, defaulting to the data directory.
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// CacheDir returns the file cache directory, defaulting to the XDG cache
// directory.
func (c *Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	return xdgDir("XDG_CACHE_HOME", ".cache")
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	return toml.NewEncoder(w).Encode(c)
}

// Create writes the example configuration to path, creating parent
// directories. An existing file is never overwritten.
func Create(path string) error {
	if _, err := os.Stat(path); err == nil {
		return errors.New(errors.ErrCodeConflict, "config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// DefaultPath is $XDG_CONFIG_HOME/ponchocards/config.toml.
func DefaultPath() (string, error) {
	dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// DataDir is $XDG_DATA_HOME/ponchocards.
func DataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, AppName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, fallback, AppName), nil
}
