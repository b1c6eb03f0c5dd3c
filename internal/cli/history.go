package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fleetwatch/internal/config"
	"github.com/ppiankov/fleetwatch/internal/history"
)

var (
	historyLimit  int
	historyFormat string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of recent executions to show")
	historyCmd.Flags().StringVarP(&historyFormat, "format", "f", "text", "Output format (text|json)")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent device executions",
	Long:  "Reads the execution history database and prints the most recent\nrows, newest first.",
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.HistoryDB == "" {
		return errors.New("history is not configured: set history_db in the config")
	}

	store, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(historyLimit)
	if err != nil {
		return err
	}

	if historyFormat == "json" {
		out, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	if len(entries) == 0 {
		fmt.Println("No executions recorded.")
		return nil
	}
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-6s  %-16s  %-7s  %6dms  %s",
			e.ExecutedAt, e.Source, e.Router, e.Status, e.DurationMS, e.Command)
		if e.Detail != "" {
			line += fmt.Sprintf("  (%s)", e.Detail)
		}
		fmt.Println(line)
	}
	return nil
}
