// Package config provides the run configuration for Quarry. A single Config
// describes one query-to-Parquet transfer; values come from defaults, an
// optional YAML file, and command-line flag overrides, in that order.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/quarrydata/quarry/pkg/errors"
)

// DefaultBatchSize is the number of rows staged per fetch when none is
// configured. Together with the per-column buffer shapes it fixes the memory
// budget of a transfer.
const DefaultBatchSize = 10000

// Config describes one transfer run.
type Config struct {
	// Driver selects the source database driver (postgres, mysql, snowflake)
	Driver string `yaml:"driver" json:"driver"`
	// DSN is the driver-specific connection string
	DSN string `yaml:"dsn" json:"dsn"`
	// Query is the SQL text whose result set is transferred
	Query string `yaml:"query" json:"query"`
	// Output is the destination Parquet file path
	Output string `yaml:"output" json:"output"`

	// BatchSize is the fixed row capacity of the row-set buffer
	BatchSize int `yaml:"batch_size" json:"batch_size"`
	// BatchesPerFile rotates output files after this many batches (0 = single file)
	BatchesPerFile int `yaml:"batches_per_file" json:"batches_per_file"`
	// Compression selects the Parquet column codec (snappy, gzip, zstd, none)
	Compression string `yaml:"compression" json:"compression"`
	// NoNativeInt64 forces the text-fallback path for 10-18 digit decimals,
	// for sources that misbind 64-bit integers
	NoNativeInt64 bool `yaml:"no_native_int64" json:"no_native_int64"`

	// Log configures structured logging
	Log LogConfig `yaml:"log" json:"log"`
}

// LogConfig configures the logger.
type LogConfig struct {
	// Level is the minimum level emitted (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`
	// Development switches to a human-readable console encoding
	Development bool `yaml:"development" json:"development"`
	// Encoding is json or console
	Encoding string `yaml:"encoding" json:"encoding"`
}

// New returns a Config with defaults applied.
func New() *Config {
	return &Config{
		Driver:      "postgres",
		BatchSize:   DefaultBatchSize,
		Compression: "snappy",
		Log: LogConfig{
			Level:    "info",
			Encoding: "json",
		},
	}
}

// Validate checks the configuration for a transfer run.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return errors.New(errors.ErrorTypeConfig, "dsn is required")
	}
	if c.Query == "" {
		return errors.New(errors.ErrorTypeConfig, "query is required")
	}
	if c.Output == "" {
		return errors.New(errors.ErrorTypeConfig, "output is required")
	}
	if c.BatchSize <= 0 {
		return errors.Newf(errors.ErrorTypeConfig, "batch_size must be positive, got %d", c.BatchSize)
	}
	if c.BatchesPerFile < 0 {
		return errors.Newf(errors.ErrorTypeConfig, "batches_per_file must not be negative, got %d", c.BatchesPerFile)
	}
	return nil
}

// Load reads a YAML file into config, substituting ${VAR} references from the
// environment before parsing.
func Load(filePath string, config any) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: path is operator-supplied
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to read config file")
	}

	content := substituteEnvVars(string(data))
	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse config file")
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		content = content[:start] + os.Getenv(content[start+2:end]) + content[end+1:]
	}
	return content
}
