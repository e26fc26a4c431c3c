package main

import (
	"fmt"
	"os"

	"github.com/akeren/acs-site/config"
	"github.com/akeren/acs-site/internal/log"
	"github.com/spf13/cobra"
)

var logger *log.Logger

var rootCmd = &cobra.Command{
	Use:           "cli",
	Short:         "Operational commands for the ACS site",
	Long:          "Run migrations, check the email relay and inspect contact dispatch records.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		bootstrap := log.NewLoggerWithJSONOutput()
		config.InitializeEnvFile(bootstrap) // Load envs early for CLI consistency
		logger = log.NewLogger(log.OptionsFromEnv())
	},
}

func main() {
	rootCmd.AddCommand(newMigrateCmd(), newRelayCmd(), newDispatchesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
