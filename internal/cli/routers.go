package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fleetwatch/internal/config"
	"github.com/ppiankov/fleetwatch/internal/inventory"
)

func init() {
	rootCmd.AddCommand(routersCmd)
}

var routersCmd = &cobra.Command{
	Use:   "routers",
	Short: "List devices from the inventory, credentials stripped",
	Long: "Prints the device directory the way the fleetwatch_routers tool\n" +
		"surfaces it to agents: connection details and metadata, no secrets.",
	RunE: runRouters,
}

func runRouters(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	directory, err := inventory.Load(cfg.DevicesFile)
	if err != nil {
		return err
	}
	out, err := json.MarshalIndent(directory.Redacted(), "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
