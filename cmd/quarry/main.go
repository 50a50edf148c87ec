package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/quarrydata/quarry/internal/pipeline"
	"github.com/quarrydata/quarry/pkg/config"
	"github.com/quarrydata/quarry/pkg/logger"
)

var version = "0.1.0"

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:   "quarry",
		Short: "Quarry - Query results to Parquet",
		Long: `Quarry executes a SQL query against a relational database and writes the
result set to Parquet, preserving exact decimal semantics under a fixed
memory budget.`,
	}

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Quarry v%s\n", version)
			fmt.Printf("Go version: %s\n", runtime.Version())
			fmt.Printf("OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	})

	root.AddCommand(newRunCommand())
	root.AddCommand(newPlanCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// registerFlags wires the shared source/output flags into cfg.
func registerFlags(cmd *cobra.Command, cfg *config.Config, configFile *string) {
	flags := cmd.Flags()
	flags.StringVarP(configFile, "config", "c", "", "YAML configuration file")
	flags.StringVar(&cfg.Driver, "driver", cfg.Driver, "source driver (postgres, mysql, snowflake)")
	flags.StringVar(&cfg.DSN, "dsn", cfg.DSN, "driver connection string (or QUARRY_DSN)")
	flags.StringVarP(&cfg.Query, "query", "q", cfg.Query, "SQL query to execute")
	flags.IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize, "rows fetched per batch")
	flags.BoolVar(&cfg.NoNativeInt64, "no-native-int64", cfg.NoNativeInt64,
		"stage 10-18 digit decimals as text instead of native 64-bit integers")
	flags.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	flags.BoolVar(&cfg.Log.Development, "dev", cfg.Log.Development, "human-readable console logging")
}

// resolve layers the config file under the flag values already applied to
// cfg, then fills the DSN from the environment if still unset.
func resolve(cmd *cobra.Command, cfg *config.Config, configFile string) error {
	if configFile != "" {
		fileCfg := config.New()
		if err := config.Load(configFile, fileCfg); err != nil {
			return err
		}
		applyFileConfig(cmd, cfg, fileCfg)
	}
	if cfg.DSN == "" {
		cfg.DSN = os.Getenv("QUARRY_DSN")
	}
	return nil
}

// applyFileConfig copies file values for every flag the user did not set
// explicitly.
func applyFileConfig(cmd *cobra.Command, cfg, fileCfg *config.Config) {
	flags := cmd.Flags()
	if !flags.Changed("driver") {
		cfg.Driver = fileCfg.Driver
	}
	if !flags.Changed("dsn") && fileCfg.DSN != "" {
		cfg.DSN = fileCfg.DSN
	}
	if !flags.Changed("query") && fileCfg.Query != "" {
		cfg.Query = fileCfg.Query
	}
	if !flags.Changed("output") && fileCfg.Output != "" {
		cfg.Output = fileCfg.Output
	}
	if !flags.Changed("batch-size") {
		cfg.BatchSize = fileCfg.BatchSize
	}
	if !flags.Changed("batches-per-file") {
		cfg.BatchesPerFile = fileCfg.BatchesPerFile
	}
	if !flags.Changed("compression") {
		cfg.Compression = fileCfg.Compression
	}
	if !flags.Changed("no-native-int64") {
		cfg.NoNativeInt64 = fileCfg.NoNativeInt64
	}
	if !flags.Changed("log-level") {
		cfg.Log.Level = fileCfg.Log.Level
	}
}

func initLogger(cfg *config.Config) error {
	encoding := cfg.Log.Encoding
	if cfg.Log.Development {
		encoding = "console"
	}
	return logger.Init(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		Encoding:    encoding,
	})
}

func newRunCommand() *cobra.Command {
	cfg := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a query and write its result set to Parquet",
		Long: `Run executes the configured query and writes the result set to the output
file, one Parquet row group per fetched batch.

Example:
  quarry run --driver postgres --dsn $QUARRY_DSN \
    --query "SELECT * FROM sales" --output sales.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolve(cmd, cfg, configFile); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := initLogger(cfg); err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			res, err := pipeline.Transfer(ctx, cfg)
			if err != nil {
				logger.Error("transfer failed", zap.Error(err))
				return err
			}
			fmt.Printf("wrote %d rows in %d row groups to %s\n",
				res.Rows, res.RowGroups, cfg.Output)
			return nil
		},
	}

	registerFlags(cmd, cfg, &configFile)
	flags := cmd.Flags()
	flags.StringVarP(&cfg.Output, "output", "o", cfg.Output, "destination Parquet file")
	flags.IntVar(&cfg.BatchesPerFile, "batches-per-file", cfg.BatchesPerFile,
		"rotate output files after this many batches (0 = single file)")
	flags.StringVar(&cfg.Compression, "compression", cfg.Compression,
		"column compression codec (snappy, gzip, zstd, none)")
	return cmd
}

func newPlanCommand() *cobra.Command {
	cfg := config.New()
	var configFile string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the resolved per-column plan without fetching data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := resolve(cmd, cfg, configFile); err != nil {
				return err
			}
			// Plan does not write anything, so no output path is required.
			cfg.Output = "-"
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := initLogger(cfg); err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			plan, err := pipeline.Describe(ctx, cfg)
			if err != nil {
				logger.Error("plan failed", zap.Error(err))
				return err
			}
			data, err := json.MarshalIndent(plan.Summary(), "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}

	registerFlags(cmd, cfg, &configFile)
	return cmd
}
