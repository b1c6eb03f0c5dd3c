package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/fleetwatch/internal/audit"
)

var (
	showRouter   string
	showKind     string
	showDecision string
	showSince    string
	showFormat   string
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditShowCmd)
	auditShowCmd.Flags().StringVar(&showRouter, "router", "", "Only entries for this router")
	auditShowCmd.Flags().StringVar(&showKind, "kind", "", "Only entries of this kind (command_check|config_check|batch_dispatch|policy_file_change)")
	auditShowCmd.Flags().StringVar(&showDecision, "decision", "", "Only entries with this decision (admit|reject)")
	auditShowCmd.Flags().StringVar(&showSince, "since", "", "Only entries at or after this RFC3339 timestamp")
	auditShowCmd.Flags().StringVarP(&showFormat, "format", "f", "text", "Output format (text|json)")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Audit log operations",
	Long:  "Commands for verifying and inspecting the hash-chained audit log.",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify <path>",
	Short: "Verify hash chain integrity of an audit log",
	Long:  "Walks the JSONL audit log and validates that every entry's prev_hash\nmatches the SHA-256 of the previous entry. Exits 0 if valid, 1 if tampered.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditVerify,
}

var auditShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "Show guardrail decisions from an audit log",
	Long:  "Reads the audit log, applies the filters, and prints a decision\ntimeline with summary counts.",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditShow,
}

func runAuditVerify(cmd *cobra.Command, args []string) error {
	result := audit.Verify(args[0])
	if result.Valid {
		fmt.Printf("OK: %d entries verified\n", result.Lines)
		return nil
	}
	fmt.Fprintf(os.Stderr, "FAILED at line %d: %s\n", result.ErrorLine, result.Error)
	os.Exit(1)
	return nil
}

func runAuditShow(cmd *cobra.Command, args []string) error {
	filter := audit.Filter{
		Router:   showRouter,
		Kind:     showKind,
		Decision: showDecision,
	}
	if showSince != "" {
		from, err := time.Parse(time.RFC3339, showSince)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		filter.From = from
	}

	result, err := audit.Read(args[0], filter)
	if err != nil {
		return err
	}

	switch showFormat {
	case "json":
		out, err := audit.FormatJSON(result)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(audit.FormatTimeline(result))
	}
	return nil
}
