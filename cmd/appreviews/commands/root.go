package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"appreviews/internal/batch"
	"appreviews/internal/config"
	"appreviews/internal/metrics"
	"appreviews/internal/sink"
	"appreviews/internal/storefront"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

var (
	configPath string
	logLevel   string

	// cfg is loaded once by the root command before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:          "appreviews",
	Short:        "appreviews scrapes storefront app reviews into CSV files.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load .env: %w", err)
		}

		c, err := loadConfig(configPath, cmd.Flags().Changed("config"))
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := c.LogLevel
		if cmd.Flags().Changed("log-level") {
			level = logLevel
		}
		if err := setupLogging(level); err != nil {
			return err
		}

		cfg = c
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfigPath, "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (overrides the config file)")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads path. A missing default config file is not an error: the
// run is then configured from defaults and the environment only. Any other
// failure, including a missing apps_file, is returned.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			logrus.Debugf("%s not found, using defaults and environment", path)
			return config.FromEnv()
		}
	}
	return config.Load(path)
}

func setupLogging(level string) error {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(lvl)
	return nil
}

// newRunner assembles the storefront client, the retrying CSV sink and the
// batch runner, with metrics registered on reg.
func newRunner(c *config.Config, reg prometheus.Registerer) (*batch.Runner, error) {
	m := metrics.New(reg)

	opts := storefront.OptionsFromConfig(c)
	opts.Metrics = m
	client := storefront.New(opts)

	csvSink, err := sink.NewCSVSink(c.Storage.OutputDir, c.DelimiterRune())
	if err != nil {
		return nil, fmt.Errorf("failed to initialise csv sink: %w", err)
	}
	sk := sink.NewRetrySink(csvSink, c.Storage.WriteAttempts, time.Duration(c.Storage.WriteDelayMS)*time.Millisecond)

	return batch.New(client, sk, batch.Options{
		Columns:  c.Columns,
		MaxPages: c.MaxPages,
		Metrics:  m,
	}), nil
}
