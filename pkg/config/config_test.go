package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg := New()
	assert.Equal(t, "postgres", cfg.Driver)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.Equal(t, "snappy", cfg.Compression)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Encoding)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := New()
		cfg.DSN = "postgres://localhost/db"
		cfg.Query = "SELECT 1"
		cfg.Output = "out.parquet"
		return cfg
	}
	require.NoError(t, valid().Validate())

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing dsn", func(c *Config) { c.DSN = "" }, "dsn"},
		{"missing query", func(c *Config) { c.Query = "" }, "query"},
		{"missing output", func(c *Config) { c.Output = "" }, "output"},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, "batch_size"},
		{"negative batch size", func(c *Config) { c.BatchSize = -1 }, "batch_size"},
		{"negative batches per file", func(c *Config) { c.BatchesPerFile = -1 }, "batches_per_file"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quarry.yaml")
	content := `
driver: mysql
dsn: user:pass@tcp(localhost:3306)/db
query: SELECT * FROM sales
output: sales.parquet
batch_size: 500
compression: zstd
no_native_int64: true
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := New()
	require.NoError(t, Load(path, cfg))
	assert.Equal(t, "mysql", cfg.Driver)
	assert.Equal(t, "SELECT * FROM sales", cfg.Query)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.Equal(t, "zstd", cfg.Compression)
	assert.True(t, cfg.NoNativeInt64)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadSubstitutesEnvVars(t *testing.T) {
	t.Setenv("QUARRY_TEST_DSN", "postgres://env/db")

	path := filepath.Join(t.TempDir(), "quarry.yaml")
	content := "dsn: ${QUARRY_TEST_DSN}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := New()
	require.NoError(t, Load(path, cfg))
	assert.Equal(t, "postgres://env/db", cfg.DSN)
}

func TestLoadMissingFile(t *testing.T) {
	err := Load(filepath.Join(t.TempDir(), "absent.yaml"), New())
	require.Error(t, err)
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("QUARRY_TEST_VAR", "value")

	assert.Equal(t, "a value b", substituteEnvVars("a ${QUARRY_TEST_VAR} b"))
	assert.Equal(t, "no vars here", substituteEnvVars("no vars here"))
	// Unset variables collapse to empty.
	assert.Equal(t, "x  y", substituteEnvVars("x ${QUARRY_TEST_UNSET_VAR} y"))
}
