package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ppiankov/fleetwatch/internal/config"
	"github.com/ppiankov/fleetwatch/internal/mcp"
	"github.com/ppiankov/fleetwatch/internal/watch"
)

var (
	serveDevices      string
	serveConfigBlock  string
	serveCommandBlock string
	serveListen       string
	serveAuditLog     string
	serveHistoryDB    string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveDevices, "devices", "", "Path to device inventory JSON")
	serveCmd.Flags().StringVar(&serveConfigBlock, "config-blocklist", "", "Path to configuration blocklist")
	serveCmd.Flags().StringVar(&serveCommandBlock, "command-blocklist", "", "Path to command blocklist")
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "HTTP listen address (default: stdio transport)")
	serveCmd.Flags().StringVar(&serveAuditLog, "audit-log", "", "Path to audit log JSONL file")
	serveCmd.Flags().StringVar(&serveHistoryDB, "history-db", "", "Path to execution history database")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP guardrail server",
	Long: "Runs fleetwatch as an MCP server over stdio (default) or streamable\n" +
		"HTTP with --listen. Agents call its tools to run commands and push\n" +
		"configuration; every candidate passes the blocklists first.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyServeFlags(cfg)

	logger := newLogger(cfg.LogLevel)

	srv, err := mcp.New(mcp.Config{
		DevicesFile:      cfg.DevicesFile,
		ConfigBlocklist:  cfg.ConfigBlocklist,
		CommandBlocklist: cfg.CommandBlocklist,
		CommandTimeout:   cfg.CommandWait(),
		BatchTimeout:     cfg.BatchWait(),
		AuditLogPath:     cfg.AuditLog,
		HistoryDBPath:    cfg.HistoryDB,
		Alerts:           cfg.Alerts,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Blocklist edits land in the audit trail and alerts; checks always
	// re-read the files, so nothing needs reloading.
	watcher, err := watch.New(srv.PolicyPaths(), srv.RecordPolicyChange, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("policy file watch disabled")
	} else {
		go watcher.Run(ctx)
	}

	return srv.Run(ctx, cfg.Listen)
}

// applyServeFlags overlays command-line flags on the file configuration.
func applyServeFlags(cfg *config.Config) {
	if serveDevices != "" {
		cfg.DevicesFile = serveDevices
	}
	if serveConfigBlock != "" {
		cfg.ConfigBlocklist = serveConfigBlock
	}
	if serveCommandBlock != "" {
		cfg.CommandBlocklist = serveCommandBlock
	}
	if serveListen != "" {
		cfg.Listen = serveListen
	}
	if serveAuditLog != "" {
		cfg.AuditLog = serveAuditLog
	}
	if serveHistoryDB != "" {
		cfg.HistoryDB = serveHistoryDB
	}
}

// newLogger builds a console logger on stderr. Stdout stays clean: it is
// the MCP wire when serving over stdio.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}
