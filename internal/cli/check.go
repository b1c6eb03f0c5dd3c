package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fleetwatch/internal/config"
	"github.com/ppiankov/fleetwatch/internal/guard"
)

var checkKind string

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkKind, "kind", "command", "What to check: command or config")
}

var checkCmd = &cobra.Command{
	Use:   "check <candidate>",
	Short: "Test a command or config line against the blocklists",
	Long: "Runs one candidate through the same guardrail the MCP tools use and\n" +
		"reports the verdict.\n\n" +
		"Exit code 0 if admitted, 1 if blocked.\n" +
		"A malformed blocklist rule is an error, not a verdict.",
	Args: cobra.ExactArgs(1),
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	engine := guard.NewEngine(cfg.ConfigBlocklist, cfg.CommandBlocklist)

	var verdict guard.Verdict
	switch checkKind {
	case "command":
		verdict, err = engine.CheckCommand(args[0])
	case "config":
		verdict, err = engine.CheckConfig(args[0])
	default:
		return fmt.Errorf("unknown kind %q: want command or config", checkKind)
	}
	if err != nil {
		return err
	}

	if verdict.Blocked {
		fmt.Printf("BLOCKED: %s\n", verdict.Reason)
		os.Exit(1)
	}
	fmt.Println("admitted")
	return nil
}
