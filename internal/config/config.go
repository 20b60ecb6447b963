// Package config loads the memorykeep service configuration from a YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/youssefsiam38/memorykeep"
	"gopkg.in/yaml.v3"
)

// Database drivers.
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Capability providers.
const (
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
	ProviderNone   = "none"
)

// Defaults.
const (
	DefaultDatabaseURL     = "file:memorykeep.db?_pragma=busy_timeout(5000)"
	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultLogLevel        = "info"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid service configuration")

// Config is the service configuration.
type Config struct {
	Database DatabaseConfig    `yaml:"database"`
	Provider ProviderConfig    `yaml:"provider"`
	Memory   memorykeep.Config `yaml:"memory"`
	Server   ServerConfig      `yaml:"server"`
	Logging  LoggingConfig     `yaml:"logging"`

	// DirectivesDir holds core_memory.txt and directives.txt.
	// Empty disables directives.
	DirectivesDir string `yaml:"directives_dir"`
}

// DatabaseConfig selects the store.
type DatabaseConfig struct {
	// Driver is one of pgx, postgres, sqlite or memory.
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

// ProviderConfig selects the model backend of the capabilities.
type ProviderConfig struct {
	// Name is one of claude, gemini or none.
	Name   string `yaml:"name"`
	APIKey string `yaml:"api_key"`

	// Empty model names use the provider defaults.
	AuthorityModel string `yaml:"authority_model"`
	SidecarModel   string `yaml:"sidecar_model"`
	ResponderModel string `yaml:"responder_model"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Driver: DriverSQLite, URL: DefaultDatabaseURL},
		Provider: ProviderConfig{Name: ProviderClaude},
		Memory:   *memorykeep.DefaultConfig(),
		Server:   ServerConfig{Addr: DefaultAddr, ShutdownTimeout: DefaultShutdownTimeout},
		Logging:  LoggingConfig{Level: DefaultLogLevel},
	}
}

// Load reads path (if non-empty), applies environment overrides and
// validates the result. A missing file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with the environment.
func (c *Config) applyEnv() {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		c.Database.URL = url
		if isPostgresURL(url) && c.Database.Driver == DriverSQLite {
			c.Database.Driver = DriverPgx
		}
	}
	if driver := os.Getenv("MEMORYKEEP_DB_DRIVER"); driver != "" {
		c.Database.Driver = driver
	}
	if addr := os.Getenv("MEMORYKEEP_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv("MEMORYKEEP_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if dir := os.Getenv("MEMORYKEEP_DIRECTIVES_DIR"); dir != "" {
		c.DirectivesDir = dir
	}

	if c.Provider.APIKey != "" {
		return
	}
	switch c.Provider.Name {
	case ProviderClaude:
		c.Provider.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	case ProviderGemini:
		c.Provider.APIKey = os.Getenv("GEMINI_API_KEY")
	}
}

func (c *Config) applyDefaults() {
	c.Memory.ApplyDefaults()
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.URL == "" && c.Database.Driver == DriverSQLite {
		c.Database.URL = DefaultDatabaseURL
	}
	if c.Provider.Name == "" {
		c.Provider.Name = ProviderNone
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPgx, DriverPostgres, DriverSQLite:
		if c.Database.URL == "" {
			return fmt.Errorf("%w: database.url is required for driver %q", ErrInvalid, c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown database driver %q", ErrInvalid, c.Database.Driver)
	}

	switch c.Provider.Name {
	case ProviderClaude, ProviderGemini:
		if c.Provider.APIKey == "" {
			return fmt.Errorf("%w: provider %q needs an API key", ErrInvalid, c.Provider.Name)
		}
	case ProviderNone:
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrInvalid, c.Provider.Name)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalid, c.Logging.Level)
	}

	if err := c.Memory.Validate(); err != nil {
		return fmt.Errorf("%w: memory: %v", ErrInvalid, err)
	}
	return nil
}

func isPostgresURL(url string) bool {
	return strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://")
}
