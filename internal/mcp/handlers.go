package mcp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/ppiankov/fleetwatch/internal/audit"
	"github.com/ppiankov/fleetwatch/internal/batch"
	"github.com/ppiankov/fleetwatch/internal/classify"
	"github.com/ppiankov/fleetwatch/internal/guard"
	"github.com/ppiankov/fleetwatch/internal/history"
	"github.com/ppiankov/fleetwatch/internal/inventory"
)

// --- Input/Output types ---

// ExecInput defines parameters for the fleetwatch_exec tool.
type ExecInput struct {
	RouterName string `json:"router_name" jsonschema:"router name from the device inventory"`
	Command    string `json:"command" jsonschema:"operational command to execute"`
	Timeout    int    `json:"timeout,omitempty" jsonschema:"timeout in seconds, 0 for the server default"`
}

// ExecOutput contains the device output or rejection details.
type ExecOutput struct {
	RouterName string  `json:"router_name"`
	Output     string  `json:"output,omitempty"`
	Blocked    bool    `json:"blocked,omitempty"`
	Reason     string  `json:"reason,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
}

// ExecBatchInput defines parameters for the fleetwatch_exec_batch tool.
type ExecBatchInput struct {
	RouterNames []string `json:"router_names" jsonschema:"router names from the device inventory"`
	Command     string   `json:"command" jsonschema:"operational command to execute on every router"`
	Timeout     int      `json:"timeout,omitempty" jsonschema:"per-router timeout in seconds, 0 for the server default"`
}

// ExecBatchOutput is the aggregated batch report.
type ExecBatchOutput struct {
	Summary batch.Summary  `json:"summary"`
	Results []batch.Record `json:"results"`
}

// LoadConfigInput defines parameters for the fleetwatch_load_config tool.
type LoadConfigInput struct {
	RouterName string `json:"router_name" jsonschema:"router name from the device inventory"`
	Config     string `json:"config" jsonschema:"configuration lines, one per line"`
	Timeout    int    `json:"timeout,omitempty" jsonschema:"timeout in seconds, 0 for the server default"`
}

// LoadConfigOutput contains the commit output or rejection details.
type LoadConfigOutput struct {
	RouterName string `json:"router_name"`
	Output     string `json:"output,omitempty"`
	Blocked    bool   `json:"blocked,omitempty"`
	Line       string `json:"line,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

// RoutersInput is empty; the tool takes no parameters.
type RoutersInput struct{}

// RoutersOutput is the redacted inventory keyed by router name.
type RoutersOutput struct {
	Routers map[string]map[string]any `json:"routers"`
}

// CheckInput defines parameters for the fleetwatch_check tool.
type CheckInput struct {
	Kind      string `json:"kind,omitempty" jsonschema:"what to check: command or config, default command"`
	Candidate string `json:"candidate" jsonschema:"the command or configuration line to evaluate"`
}

// CheckOutput contains the guardrail verdict.
type CheckOutput struct {
	Blocked bool   `json:"blocked"`
	Reason  string `json:"reason,omitempty"`
}

// HistoryInput defines parameters for the fleetwatch_history tool.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum entries to return, default 50"`
}

// HistoryOutput lists recent executions, newest first.
type HistoryOutput struct {
	Entries []history.Entry `json:"entries"`
}

// --- Handlers ---

func (s *Server) handleExec(ctx context.Context, req *mcpsdk.CallToolRequest, input ExecInput) (*mcpsdk.CallToolResult, ExecOutput, error) {
	verdict, err := s.engine.CheckCommand(input.Command)
	if err != nil {
		return nil, ExecOutput{}, err
	}
	decision, reason := decisionOf(verdict)
	s.recordAudit(audit.KindCommandCheck, input.RouterName, input.Command, decision, reason)
	if verdict.Blocked {
		s.dispatchAlert(audit.KindCommandCheck, input.RouterName, input.Command, decision, reason)
		msg := classify.BlockedCommand(input.Command, verdict.Reason)
		out := ExecOutput{RouterName: input.RouterName, Blocked: true, Reason: verdict.Reason}
		return textResult(msg), out, nil
	}

	timeout := s.commandTimeout
	if input.Timeout > 0 {
		timeout = time.Duration(input.Timeout) * time.Second
	}

	rec, err := s.executor.RunOne(ctx, input.RouterName, input.Command, timeout)
	if err != nil {
		return nil, ExecOutput{}, err
	}
	s.recordHistory(history.Entry{
		Router:     input.RouterName,
		Source:     history.SourceExec,
		Command:    input.Command,
		Status:     string(rec.Status),
		DurationMS: durationMS(rec.Duration),
		Detail:     failureDetail(rec),
	})

	out := ExecOutput{RouterName: input.RouterName, Output: rec.Output, Duration: rec.Duration}
	if rec.Status != batch.StatusSuccess {
		return textResult(rec.Output), out, nil
	}
	return nil, out, nil
}

func (s *Server) handleExecBatch(ctx context.Context, req *mcpsdk.CallToolRequest, input ExecBatchInput) (*mcpsdk.CallToolResult, ExecBatchOutput, error) {
	verdict, err := s.engine.CheckCommand(input.Command)
	if err != nil {
		return nil, ExecBatchOutput{}, err
	}
	decision, reason := decisionOf(verdict)
	s.recordAudit(audit.KindBatchDispatch, "", input.Command, decision, reason)
	if verdict.Blocked {
		s.dispatchAlert(audit.KindBatchDispatch, "", input.Command, decision, reason)
	}

	timeout := s.batchTimeout
	if input.Timeout > 0 {
		timeout = time.Duration(input.Timeout) * time.Second
	}

	report, err := s.executor.Run(ctx, input.RouterNames, input.Command, timeout)
	if err != nil {
		return nil, ExecBatchOutput{}, err
	}
	for _, rec := range report.Results {
		s.recordHistory(history.Entry{
			Router:     rec.RouterName,
			Source:     history.SourceBatch,
			Command:    input.Command,
			Status:     string(rec.Status),
			DurationMS: durationMS(rec.Duration),
			Detail:     failureDetail(rec),
		})
	}

	return nil, ExecBatchOutput{Summary: report.Summary, Results: report.Results}, nil
}

func (s *Server) handleLoadConfig(ctx context.Context, req *mcpsdk.CallToolRequest, input LoadConfigInput) (*mcpsdk.CallToolResult, LoadConfigOutput, error) {
	lines := configLines(input.Config)

	// Every line is judged before anything reaches the device.
	for _, line := range lines {
		verdict, err := s.engine.CheckConfig(line)
		if err != nil {
			return nil, LoadConfigOutput{}, err
		}
		if verdict.Blocked {
			s.recordAudit(audit.KindConfigCheck, input.RouterName, line, audit.DecisionReject, verdict.Reason)
			s.dispatchAlert(audit.KindConfigCheck, input.RouterName, line, audit.DecisionReject, verdict.Reason)
			msg := classify.BlockedConfig(line, verdict.Reason)
			out := LoadConfigOutput{RouterName: input.RouterName, Blocked: true, Line: line, Reason: verdict.Reason}
			return textResult(msg), out, nil
		}
	}
	s.recordAudit(audit.KindConfigCheck, input.RouterName,
		fmt.Sprintf("config push: %d lines", len(lines)), audit.DecisionAdmit, "")

	dev, ok := s.directory.Lookup(input.RouterName)
	if !ok {
		msg := fmt.Sprintf("Device %s not found in device directory", input.RouterName)
		return textResult(msg), LoadConfigOutput{RouterName: input.RouterName, Output: msg}, nil
	}

	timeout := s.commandTimeout
	if input.Timeout > 0 {
		timeout = time.Duration(input.Timeout) * time.Second
	}

	start := time.Now()
	output, pushed := s.pushConfig(ctx, dev, lines, timeout)
	s.recordHistory(history.Entry{
		Router:     input.RouterName,
		Source:     history.SourceConfig,
		Command:    fmt.Sprintf("config push: %d lines", len(lines)),
		Status:     pushStatus(pushed),
		DurationMS: time.Since(start).Milliseconds(),
		Detail:     pushDetail(output, pushed),
	})

	out := LoadConfigOutput{RouterName: input.RouterName, Output: output}
	if !pushed {
		return textResult(output), out, nil
	}
	return nil, out, nil
}

// pushConfig dials the device and streams the configuration. The returned
// bool reports whether the push reached a commit; on failure the string is
// the failure message, not device output.
func (s *Server) pushConfig(ctx context.Context, dev inventory.Device, lines []string, timeout time.Duration) (string, bool) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	sess, err := s.dialer.Dial(cctx, dev)
	if err != nil {
		return connectFailure(dev.Name, err, timeout), false
	}
	defer sess.Close()

	output, err := sess.LoadConfig(cctx, lines)
	if err != nil {
		return connectFailure(dev.Name, err, timeout), false
	}
	return output, true
}

func (s *Server) handleRouters(ctx context.Context, req *mcpsdk.CallToolRequest, input RoutersInput) (*mcpsdk.CallToolResult, RoutersOutput, error) {
	return nil, RoutersOutput{Routers: s.directory.Redacted()}, nil
}

func (s *Server) handleCheck(ctx context.Context, req *mcpsdk.CallToolRequest, input CheckInput) (*mcpsdk.CallToolResult, CheckOutput, error) {
	kind := input.Kind
	if kind == "" {
		kind = "command"
	}

	var verdict guard.Verdict
	var err error
	var auditKind string
	switch kind {
	case "command":
		verdict, err = s.engine.CheckCommand(input.Candidate)
		auditKind = audit.KindCommandCheck
	case "config":
		verdict, err = s.engine.CheckConfig(input.Candidate)
		auditKind = audit.KindConfigCheck
	default:
		return nil, CheckOutput{}, fmt.Errorf("unknown kind %q: want command or config", input.Kind)
	}
	if err != nil {
		return nil, CheckOutput{}, err
	}

	decision, reason := decisionOf(verdict)
	s.recordAudit(auditKind, "", input.Candidate, decision, reason)

	return nil, CheckOutput{Blocked: verdict.Blocked, Reason: verdict.Reason}, nil
}

func (s *Server) handleHistory(ctx context.Context, req *mcpsdk.CallToolRequest, input HistoryInput) (*mcpsdk.CallToolResult, HistoryOutput, error) {
	if s.historyStore == nil {
		return nil, HistoryOutput{}, errors.New("history is not configured")
	}
	entries, err := s.historyStore.Recent(input.Limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return nil, HistoryOutput{Entries: entries}, nil
}

// --- Helpers ---

// textResult builds a tool result whose error flag follows the rejection
// classifier, so blocked messages surface as errors and plain failures
// surface as ordinary output.
func textResult(text string) *mcpsdk.CallToolResult {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		IsError: classify.IsError(text),
	}
}

func decisionOf(v guard.Verdict) (decision, reason string) {
	if v.Blocked {
		return audit.DecisionReject, v.Reason
	}
	return audit.DecisionAdmit, ""
}

// configLines keeps the non-blank lines of a configuration payload.
func configLines(config string) []string {
	var lines []string
	for _, line := range strings.Split(config, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func connectFailure(name string, err error, timeout time.Duration) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Sprintf("Timed out waiting for %s after %s", name, timeout)
	}
	return fmt.Sprintf("Connection error to %s: %v", name, err)
}

func durationMS(seconds float64) int64 {
	return int64(math.Round(seconds * 1000))
}

func failureDetail(rec batch.Record) string {
	if rec.Status == batch.StatusSuccess {
		return ""
	}
	return rec.Output
}

func pushStatus(pushed bool) string {
	if pushed {
		return string(batch.StatusSuccess)
	}
	return string(batch.StatusFailed)
}

func pushDetail(output string, pushed bool) string {
	if pushed {
		return ""
	}
	return output
}
