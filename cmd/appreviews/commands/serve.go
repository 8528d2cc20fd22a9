package commands

import (
	"os"

	"appreviews/internal/api"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address (API_PORT sets the port when the flag is absent)")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve [--addr :8080]",
	Short: "Runs the HTTP job server that queues batch runs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if port := os.Getenv("API_PORT"); port != "" && !cmd.Flags().Changed("addr") {
			addr = ":" + port
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)

		runner, err := newRunner(cfg, reg)
		if err != nil {
			return err
		}
		return api.NewServer(runner, reg).Run(cmd.Context(), addr)
	},
}
