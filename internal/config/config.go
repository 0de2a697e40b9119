// Package config loads reelgen settings from .env, an optional YAML file and
// REELGEN_* environment variables, in that order of precedence (last wins).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/reelgen/reelgen/internal/engine"
	"github.com/reelgen/reelgen/internal/spin"
)

const (
	envConfigFile  = "REELGEN_CONFIG"
	envDBDriver    = "REELGEN_DB_DRIVER"
	envDBPath      = "REELGEN_DB_PATH"
	envPGDSN       = "REELGEN_PG_DSN"
	envHTTPAddr    = "REELGEN_HTTP_ADDR"
	envCORSOrigins = "REELGEN_CORS_ORIGINS"
	envServerSeed  = "REELGEN_SERVER_SEED"
	envClientSeed  = "REELGEN_CLIENT_SEED"
	envSpeed       = "REELGEN_SPEED"
	envLogLevel    = "REELGEN_LOG_LEVEL"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Spin  spin.Config `yaml:"spin"`
	Store StoreConfig `yaml:"store"`
	HTTP  HTTPConfig  `yaml:"http"`
	Seeds SeedConfig  `yaml:"seeds"`
	Log   LogConfig   `yaml:"log"`
	// Speed divides every phase delay; 0 spins without waiting.
	Speed float64 `yaml:"speed"`
}

type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
	DSN    string `yaml:"dsn"`
}

type HTTPConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SeedConfig pins the seeds. Empty values are generated at startup.
type SeedConfig struct {
	Server string `yaml:"server"`
	Client string `yaml:"client"`
}

// Resolve returns the pinned seeds, generating whichever half is empty.
func (c SeedConfig) Resolve() (engine.Seeds, error) {
	seeds := engine.Seeds{Server: c.Server, Client: c.Client}
	if seeds.Server != "" && seeds.Client != "" {
		return seeds, nil
	}
	gen, err := engine.NewSeeds()
	if err != nil {
		return engine.Seeds{}, err
	}
	if seeds.Server == "" {
		seeds.Server = gen.Server
	}
	if seeds.Client == "" {
		seeds.Client = gen.Client
	}
	return seeds, nil
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in settings. The sqlite file lives under the
// user config directory.
func Default() Config {
	return Config{
		Spin: spin.DefaultConfig(),
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   DefaultDBPath(),
		},
		HTTP: HTTPConfig{
			Addr:           "127.0.0.1:8077",
			AllowedOrigins: []string{"http://localhost:*", "wails://wails"},
		},
		Log:   LogConfig{Level: "info"},
		Speed: 1,
	}
}

// DefaultDBPath is <user config dir>/reelgen/reelgen.db, or a file in the
// working directory when the config dir is unknown.
func DefaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "reelgen.db"
	}
	return filepath.Join(dir, "reelgen", "reelgen.db")
}

// Load reads envFile (missing is fine), then the YAML file named by yamlPath
// or REELGEN_CONFIG, then environment overrides.
func Load(envFile, yamlPath string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Default()

	if yamlPath == "" {
		yamlPath = os.Getenv(envConfigFile)
	}
	if yamlPath != "" {
		if err := cfg.mergeYAML(yamlPath); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(envDBDriver); v != "" {
		c.Store.Driver = strings.ToLower(v)
	}
	if v := os.Getenv(envDBPath); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(envPGDSN); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv(envHTTPAddr); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv(envCORSOrigins); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.HTTP.AllowedOrigins = origins
	}
	if v := os.Getenv(envServerSeed); v != "" {
		c.Seeds.Server = v
	}
	if v := os.Getenv(envClientSeed); v != "" {
		c.Seeds.Client = v
	}
	if v := os.Getenv(envSpeed); v != "" {
		s, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envSpeed, err)
		}
		c.Speed = s
	}
	if v := os.Getenv(envLogLevel); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	return nil
}

// Validate checks the merged settings.
func (c Config) Validate() error {
	if err := c.Spin.Validate(); err != nil {
		return fmt.Errorf("spin: %w", err)
	}
	switch c.Store.Driver {
	case DriverSQLite:
		if c.Store.Path == "" {
			return errors.New("store: sqlite path is empty")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return errors.New("store: postgres dsn is empty")
		}
	default:
		return fmt.Errorf("store: unknown driver %q", c.Store.Driver)
	}
	if c.Speed < 0 {
		return fmt.Errorf("speed must not be negative, got %g", c.Speed)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Log.Level)
	}
	return nil
}
