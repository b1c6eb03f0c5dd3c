// Package guard evaluates outgoing configuration lines and operational
// commands against on-disk blocklists before anything reaches a device.
//
// Rules are reloaded from disk on every check, so edits to a blocklist
// apply immediately. A blocklist that cannot be found fails closed: the
// candidate is blocked rather than waved through.
package guard

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/fleetwatch/internal/blocklist"
)

// Default blocklist locations, resolved relative to the working directory
// first and the executable's directory second.
const (
	DefaultConfigBlocklist  = "block.cfg"
	DefaultCommandBlocklist = "block.cmd"
)

// Verdict is the outcome of one guardrail check. Reason is set only when
// Blocked and names the pattern that matched.
type Verdict struct {
	Blocked bool
	Reason  string
}

// Checker evaluates candidates against a single blocklist file.
type Checker struct {
	path      string
	normalize bool // collapse whitespace runs before matching
	annotate  bool // append (literal prefix) / (regex) to reasons
}

// NewConfigChecker returns a checker for configuration lines. Candidates
// and literal patterns are whitespace-normalized before comparison.
func NewConfigChecker(path string) Checker {
	if path == "" {
		path = DefaultConfigBlocklist
	}
	return Checker{path: path, normalize: true, annotate: true}
}

// NewCommandChecker returns a checker for operational commands. Candidates
// are matched exactly as given.
func NewCommandChecker(path string) Checker {
	if path == "" {
		path = DefaultCommandBlocklist
	}
	return Checker{path: path}
}

// Path returns the blocklist location as configured, before resolution.
func (c Checker) Path() string {
	return c.path
}

// Resolve returns the on-disk location of the blocklist: the path as given
// first, then the same relative path next to the fleetwatch executable.
func (c Checker) Resolve() (string, bool) {
	exeDir := ""
	if exe, err := os.Executable(); err == nil {
		exeDir = filepath.Dir(exe)
	}
	return resolveIn(c.path, exeDir)
}

func resolveIn(path, fallbackDir string) (string, bool) {
	if _, err := os.Stat(path); err == nil {
		return path, true
	}
	if filepath.IsAbs(path) || fallbackDir == "" {
		return "", false
	}
	fallback := filepath.Join(fallbackDir, path)
	if _, err := os.Stat(fallback); err == nil {
		return fallback, true
	}
	return "", false
}

// Check evaluates one candidate. Rules are read from the file in order and
// the first match wins. A missing or unreadable blocklist blocks the
// candidate; a malformed rule is a configuration error and returns non-nil.
func (c Checker) Check(candidate string) (Verdict, error) {
	path, ok := c.Resolve()
	if !ok {
		return Verdict{Blocked: true, Reason: "blocklist file not found: " + c.path}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Verdict{Blocked: true, Reason: "blocklist file not found: " + c.path}, nil
		}
		return Verdict{Blocked: true, Reason: "blocklist file not readable: " + c.path}, nil
	}
	rules, err := blocklist.Parse(data, c.normalize)
	if err != nil {
		return Verdict{}, fmt.Errorf("blocklist %s: %w", path, err)
	}

	if c.normalize {
		candidate = blocklist.Normalize(candidate)
	}
	for _, r := range rules {
		if r.Match(candidate) {
			return Verdict{Blocked: true, Reason: c.reason(r)}, nil
		}
	}
	return Verdict{}, nil
}

func (c Checker) reason(r blocklist.Rule) string {
	if !c.annotate {
		return fmt.Sprintf("matches blocked pattern '%s'", r.Raw)
	}
	if r.Kind == blocklist.KindRegex {
		return fmt.Sprintf("matches blocked pattern '%s' (regex)", r.Raw)
	}
	return fmt.Sprintf("matches blocked pattern '%s' (literal prefix)", r.Raw)
}

// Engine pairs the two guardrail checkers. Configuration lines and
// operational commands are judged against separate files with no shared
// state.
type Engine struct {
	Config  Checker
	Command Checker
}

// NewEngine builds an engine from the two blocklist paths. Empty paths
// fall back to the defaults.
func NewEngine(configPath, commandPath string) *Engine {
	return &Engine{
		Config:  NewConfigChecker(configPath),
		Command: NewCommandChecker(commandPath),
	}
}

// CheckConfig evaluates one configuration line.
func (e *Engine) CheckConfig(line string) (Verdict, error) {
	return e.Config.Check(line)
}

// CheckCommand evaluates one operational command.
func (e *Engine) CheckCommand(command string) (Verdict, error) {
	return e.Command.Check(command)
}
