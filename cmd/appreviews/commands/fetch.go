package commands

import (
	"errors"
	"fmt"

	"appreviews/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var fetchApps string

func init() {
	fetchCmd.Flags().StringVar(&fetchApps, "apps", "", "App list file (JSON or JSON5), replaces the configured apps")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--apps <path/to/app_list.json>]",
	Short: "Scrapes reviews for every configured app and writes the CSV files.",
	RunE: func(cmd *cobra.Command, args []string) error {
		apps := cfg.Apps
		if fetchApps != "" {
			loaded, err := config.LoadApps(fetchApps)
			if err != nil {
				return err
			}
			apps = loaded
		}
		if len(apps) == 0 {
			return errors.New("no apps configured: set apps, apps_file or --apps")
		}

		runner, err := newRunner(cfg, prometheus.NewRegistry())
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		summary, err := runner.Run(ctx, apps)
		if summary != nil {
			renderSummary(cmd.OutOrStdout(), summary, cfg.Storage.OutputDir)
		}
		switch {
		case ctx.Err() != nil:
			logrus.Warn("interrupted, partial results only")
			return nil
		case err != nil:
			return fmt.Errorf("batch failed: %w", err)
		}
		return nil
	},
}
