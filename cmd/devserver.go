package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/sentiment-cli/internal/devserver"
)

var devserverPort int

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local analysis service for development",
	Long:  "Serves GET /health and POST /analyze with the analysis service's response shapes, scoring text locally with VADER.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		port := devserverPort
		if port == 0 {
			port = cfg.Server.Port
		}
		cfg.Server.Port = port
		if err := cfg.Validate("devserver"); err != nil {
			return err
		}

		srv := devserver.New(devserver.Options{AllowedOrigins: cfg.Server.AllowedOrigins})
		return srv.Run(ctx, fmt.Sprintf(":%d", port))
	},
}

func init() {
	devserverCmd.Flags().IntVar(&devserverPort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(devserverCmd)
}
