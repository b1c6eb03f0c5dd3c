// Package mcp exposes the guardrail engine and batch dispatcher as MCP
// tools over stdio or streamable HTTP.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/ppiankov/fleetwatch/internal/alert"
	"github.com/ppiankov/fleetwatch/internal/audit"
	"github.com/ppiankov/fleetwatch/internal/batch"
	"github.com/ppiankov/fleetwatch/internal/guard"
	"github.com/ppiankov/fleetwatch/internal/history"
	"github.com/ppiankov/fleetwatch/internal/inventory"
	"github.com/ppiankov/fleetwatch/internal/transport"
)

// Version reported to MCP clients.
const Version = "1.0.0"

// shutdownGrace bounds how long the HTTP listener drains on shutdown.
const shutdownGrace = 5 * time.Second

// Config holds MCP server configuration.
type Config struct {
	DevicesFile      string
	ConfigBlocklist  string
	CommandBlocklist string
	CommandTimeout   time.Duration
	BatchTimeout     time.Duration
	AuditLogPath     string
	HistoryDBPath    string
	Alerts           []alert.Config
	Logger           zerolog.Logger
}

// Server wraps the MCP SDK server with fleetwatch guardrail enforcement.
type Server struct {
	mcpServer      *mcpsdk.Server
	engine         *guard.Engine
	directory      *inventory.Directory
	executor       *batch.Executor
	dialer         transport.Dialer
	historyStore   *history.Store
	auditLog       *audit.Log
	dispatcher     *alert.Dispatcher
	logger         zerolog.Logger
	commandTimeout time.Duration
	batchTimeout   time.Duration
}

// New creates an MCP server with a loaded inventory and wired guardrails.
func New(cfg Config) (*Server, error) {
	directory, err := inventory.Load(cfg.DevicesFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load device directory: %w", err)
	}

	var auditLog *audit.Log
	if cfg.AuditLogPath != "" {
		auditLog, err = audit.Open(cfg.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit log: %w", err)
		}
	}

	var historyStore *history.Store
	if cfg.HistoryDBPath != "" {
		historyStore, err = history.Open(cfg.HistoryDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open history db: %w", err)
		}
	}

	commandTimeout := cfg.CommandTimeout
	if commandTimeout <= 0 {
		commandTimeout = 30 * time.Second
	}
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = batch.DefaultTimeout
	}

	s := &Server{
		engine:         guard.NewEngine(cfg.ConfigBlocklist, cfg.CommandBlocklist),
		directory:      directory,
		dialer:         transport.NewSSHDialer(),
		historyStore:   historyStore,
		auditLog:       auditLog,
		dispatcher:     alert.NewDispatcher(cfg.Alerts),
		logger:         cfg.Logger,
		commandTimeout: commandTimeout,
		batchTimeout:   batchTimeout,
	}
	s.executor = batch.New(s.directory, s.dialer, s.engine.Command, s.logger)

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "fleetwatch",
			Version: Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run serves MCP on stdio, or on the listen address over streamable HTTP
// when one is given. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context, listen string) error {
	if listen == "" {
		s.logger.Info().Msg("mcp server listening on stdio")
		return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
	}

	handler := mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return s.mcpServer
	}, nil)
	mux := http.NewServeMux()
	mux.Handle("/mcp", handler)

	httpServer := &http.Server{Addr: listen, Handler: mux}
	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		_ = httpServer.Shutdown(sctx)
	}()

	s.logger.Info().Str("listen", listen).Msg("mcp server listening on http")
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close releases the audit log and history store.
func (s *Server) Close() error {
	var firstErr error
	if s.auditLog != nil {
		if err := s.auditLog.Close(); err != nil {
			firstErr = err
		}
	}
	if s.historyStore != nil {
		if err := s.historyStore.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// PolicyPaths returns the blocklist locations for the file watcher.
func (s *Server) PolicyPaths() []string {
	var paths []string
	if p, ok := s.engine.Config.Resolve(); ok {
		paths = append(paths, p)
	}
	if p, ok := s.engine.Command.Resolve(); ok {
		paths = append(paths, p)
	}
	return paths
}

// RecordPolicyChange notes an edit to a watched policy file. Rules are
// re-read on every check, so the edit is already live; this feeds the
// audit trail and alert stream.
func (s *Server) RecordPolicyChange(path string) {
	s.logger.Info().Str("path", path).Msg("policy file changed")
	s.recordAudit(audit.KindPolicyChange, "", path, "", "")
	s.dispatchAlert(audit.KindPolicyChange, "", path, "", "")
}

func (s *Server) recordAudit(kind, router, candidate, decision, reason string) {
	if s.auditLog == nil {
		return
	}
	if err := s.auditLog.Record(audit.Entry{
		Kind:      kind,
		Router:    router,
		Candidate: candidate,
		Decision:  decision,
		Reason:    reason,
	}); err != nil {
		s.logger.Error().Err(err).Msg("audit write failed")
	}
}

func (s *Server) dispatchAlert(kind, router, candidate, decision, reason string) {
	s.dispatcher.Dispatch(alert.Event{
		Timestamp: time.Now().UTC().Format(audit.TimestampFormat),
		Kind:      kind,
		Router:    router,
		Candidate: candidate,
		Decision:  decision,
		Reason:    reason,
	})
}

func (s *Server) recordHistory(e history.Entry) {
	if s.historyStore == nil {
		return
	}
	if err := s.historyStore.Record(e); err != nil {
		s.logger.Error().Err(err).Msg("history write failed")
	}
}

// registerTools adds all fleetwatch tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "fleetwatch_exec",
		Description: "Execute an operational command on one router. Blocked commands return an error naming the matched pattern.",
	}, s.handleExec)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "fleetwatch_exec_batch",
		Description: "Execute one command on many routers in parallel. Results come back in the order the routers were named.",
	}, s.handleExecBatch)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "fleetwatch_load_config",
		Description: "Load configuration lines onto one router. Every line is checked against the configuration blocklist before anything is sent.",
	}, s.handleLoadConfig)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "fleetwatch_routers",
		Description: "List the device inventory with credentials stripped.",
	}, s.handleRouters)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "fleetwatch_check",
		Description: "Check a command or configuration line against the blocklists without touching any device (dry-run).",
	}, s.handleCheck)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "fleetwatch_history",
		Description: "Show recent device executions from the history database.",
	}, s.handleHistory)
}
