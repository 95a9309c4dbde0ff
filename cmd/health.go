package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/sentiment-cli/internal/monitoring"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the analysis service is reachable",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initSession()
		if err != nil {
			return err
		}

		state := monitoring.NewLiveness(env.Client).Probe(cmd.Context())
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", cfg.Service.BaseURL, state)
		if state != monitoring.StateUp {
			return eris.Errorf("health: service at %s is %s", cfg.Service.BaseURL, state)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
