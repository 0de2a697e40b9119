package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reelgen/reelgen/internal/spin"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"), "")
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.NotEmpty(t, cfg.Store.Path)
	assert.Equal(t, spin.DefaultConfig(), cfg.Spin)
	assert.Equal(t, 1.0, cfg.Speed)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "reelgen.yaml", `
spin:
  dimensions:
    rows: 4
    columns: 20
    highlight: 10
  plan:
    - delay: 10ms
      count: 3
    - delay: 1s
      count: 1
  max_steps: 5
store:
  path: /tmp/reels.db
speed: 2.5
`)

	cfg, err := Load("", path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Spin.Dimensions.Rows)
	assert.Equal(t, 50, cfg.Spin.Dimensions.Length, "unset fields keep defaults")
	assert.Equal(t, 20, cfg.Spin.Dimensions.Columns)
	assert.Equal(t, 10, cfg.Spin.Dimensions.Highlight)
	assert.Equal(t, spin.Plan{
		{Delay: 10 * time.Millisecond, Count: 3},
		{Delay: time.Second, Count: 1},
	}, cfg.Spin.Plan)
	assert.Equal(t, 5, cfg.Spin.MaxSteps)
	assert.Equal(t, "/tmp/reels.db", cfg.Store.Path)
	assert.Equal(t, 2.5, cfg.Speed)
}

func TestLoadYAMLFromEnv(t *testing.T) {
	path := writeFile(t, "reelgen.yaml", "speed: 0\n")
	t.Setenv(envConfigFile, path)

	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Zero(t, cfg.Speed)
}

func TestLoadDotEnvAndOverrides(t *testing.T) {
	envFile := writeFile(t, ".env", "REELGEN_DB_DRIVER=postgres\nREELGEN_PG_DSN=postgres://u:p@localhost:5432/reels\n")
	path := writeFile(t, "reelgen.yaml", "http:\n  addr: 0.0.0.0:9000\n")

	t.Setenv(envCORSOrigins, "http://a.test, http://b.test ,")
	t.Setenv(envServerSeed, "fixed-server")
	t.Setenv(envLogLevel, "DEBUG")
	// godotenv does not override variables that are already set.
	t.Setenv(envDBDriver, "")
	t.Setenv(envPGDSN, "")
	os.Unsetenv(envDBDriver)
	os.Unsetenv(envPGDSN)

	cfg, err := Load(envFile, path)
	require.NoError(t, err)

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://u:p@localhost:5432/reels", cfg.Store.DSN)
	assert.Equal(t, "0.0.0.0:9000", cfg.HTTP.Addr)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.AllowedOrigins)
	assert.Equal(t, "fixed-server", cfg.Seeds.Server)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		path := writeFile(t, "bad.yaml", "spin: [")
		_, err := Load("", path)
		assert.Error(t, err)
	})

	t.Run("missing yaml", func(t *testing.T) {
		_, err := Load("", filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad speed", func(t *testing.T) {
		t.Setenv(envSpeed, "fast")
		_, err := Load("", "")
		assert.Error(t, err)
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		t.Setenv(envDBDriver, "postgres")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "dsn")
	})
}

func TestValidate(t *testing.T) {
	require.NoError(t, Default().Validate())

	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Store.Driver = "mysql" }},
		{"empty sqlite path", func(c *Config) { c.Store.Path = "" }},
		{"negative speed", func(c *Config) { c.Speed = -1 }},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }},
		{"bad highlight", func(c *Config) { c.Spin.Dimensions.Highlight = 99 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mut(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestSeedResolve(t *testing.T) {
	pinned, err := SeedConfig{Server: "s", Client: "c"}.Resolve()
	require.NoError(t, err)
	assert.Equal(t, "s", pinned.Server)
	assert.Equal(t, "c", pinned.Client)

	half, err := SeedConfig{Client: "mine"}.Resolve()
	require.NoError(t, err)
	assert.Len(t, half.Server, 64)
	assert.Equal(t, "mine", half.Client)

	a, err := SeedConfig{}.Resolve()
	require.NoError(t, err)
	b, err := SeedConfig{}.Resolve()
	require.NoError(t, err)
	assert.NotEqual(t, a.Server, b.Server)
	assert.Len(t, a.Client, 10)
}
