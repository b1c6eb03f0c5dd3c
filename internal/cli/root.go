package cli

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "fleetwatch",
	Short: "Guardrail and dispatch layer between MCP agents and network devices",
	Long: "Sits between an LLM-driven agent and a router fleet: every command and\n" +
		"configuration line passes a blocklist check before it reaches a device,\n" +
		"and batch runs fan out concurrently with per-device timeouts.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Optional .env for webhook secrets and the like.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.fleetwatch/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
