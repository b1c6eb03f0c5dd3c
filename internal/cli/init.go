package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fleetwatch/internal/blocklist"
	"github.com/ppiankov/fleetwatch/internal/config"
	"github.com/ppiankov/fleetwatch/internal/guard"
	"github.com/ppiankov/fleetwatch/internal/inventory"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap fleetwatch configuration",
	Long: `Creates ~/.fleetwatch with a commented config.yaml, the default
blocklists, and an example device inventory.

The inventory ships with placeholder credentials; edit devices.json
before pointing agents at real hardware.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("cannot determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".fleetwatch")

	var created []string

	files := []struct {
		name    string
		content string
	}{
		{"config.yaml", config.DefaultYAML(dir)},
		{guard.DefaultConfigBlocklist, blocklist.DefaultConfigRules},
		{guard.DefaultCommandBlocklist, blocklist.DefaultCommandRules},
		{"devices.json", inventory.ExampleJSON},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		wrote, err := writeIfMissing(path, f.content)
		if err != nil {
			return err
		}
		if wrote {
			created = append(created, path)
		}
	}

	fmt.Println("fleetwatch init complete.")
	fmt.Println()
	if len(created) > 0 {
		fmt.Println("Created:")
		for _, path := range created {
			fmt.Printf("  %s\n", path)
		}
		fmt.Println()
	} else {
		fmt.Println("All files already exist (use --force to overwrite).")
		fmt.Println()
	}

	fmt.Println("Edit the device inventory:")
	fmt.Printf("  %s\n", filepath.Join(dir, "devices.json"))
	fmt.Println()
	fmt.Println("Try a guardrail check:")
	fmt.Println(`  fleetwatch check "request system reboot"`)
	fmt.Println()
	fmt.Println("Start the MCP server:")
	fmt.Println("  fleetwatch serve")

	return nil
}

// writeIfMissing writes content to path if it doesn't exist or --force is set.
// Returns true if the file was written.
func writeIfMissing(path, content string) (bool, error) {
	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return false, nil
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, fmt.Errorf("create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}
