// Package batch dispatches one approved command to many devices in
// parallel and aggregates per-device outcomes into a deterministic report.
//
// Each device runs in its own goroutine with its own timeout. A failure on
// one device never aborts the others, and the report lists results in the
// caller's device order no matter which device finished first.
package batch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ppiankov/fleetwatch/internal/guard"
	"github.com/ppiankov/fleetwatch/internal/inventory"
	"github.com/ppiankov/fleetwatch/internal/transport"
)

// Status of one device execution.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// timestampFormat renders UTC wall-clock times on the wire.
const timestampFormat = "2006-01-02T15:04:05.000Z"

// DefaultTimeout bounds each device execution when the caller passes none.
const DefaultTimeout = 60 * time.Second

// Record is the outcome of one device execution.
type Record struct {
	RouterName string  `json:"router_name"`
	Status     Status  `json:"status"`
	Output     string  `json:"output"`
	StartTime  string  `json:"start_time"`
	EndTime    string  `json:"end_time"`
	Duration   float64 `json:"duration"`
}

// Summary aggregates one batch run. TotalDuration is the wall-clock span
// of the whole batch, not the sum of the per-device durations.
type Summary struct {
	Command       string  `json:"command"`
	TotalRouters  int     `json:"total_routers"`
	Successful    int     `json:"successful"`
	Failed        int     `json:"failed"`
	TotalDuration float64 `json:"total_duration"`
}

// Report is the full batch result.
type Report struct {
	Summary Summary  `json:"summary"`
	Results []Record `json:"results"`
}

// Directory resolves device names. *inventory.Directory satisfies it.
type Directory interface {
	Lookup(name string) (inventory.Device, bool)
}

// Checker admits or rejects a command before dispatch. guard.Checker
// satisfies it.
type Checker interface {
	Check(candidate string) (guard.Verdict, error)
}

// Executor fans one command out to many devices.
type Executor struct {
	directory Directory
	dialer    transport.Dialer
	guard     Checker
	logger    zerolog.Logger
}

// New builds an executor.
func New(directory Directory, dialer transport.Dialer, guard Checker, logger zerolog.Logger) *Executor {
	return &Executor{directory: directory, dialer: dialer, guard: guard, logger: logger}
}

type outcome struct {
	status Status
	output string
	start  time.Time
	end    time.Time
	fatal  error
}

func (o outcome) record(name string) Record {
	return Record{
		RouterName: name,
		Status:     o.status,
		Output:     o.output,
		StartTime:  o.start.Format(timestampFormat),
		EndTime:    o.end.Format(timestampFormat),
		Duration:   roundSeconds(o.end.Sub(o.start)),
	}
}

func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*1000) / 1000
}

// Run executes the command on every named device concurrently. The report
// is complete even when every device fails; the only run-level error is a
// malformed guardrail rule, reported once for the whole batch.
func (e *Executor) Run(ctx context.Context, routers []string, command string, timeout time.Duration) (*Report, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	e.logger.Info().
		Int("routers", len(routers)).
		Str("command", command).
		Dur("timeout", timeout).
		Msg("batch started")

	outcomes := make([]outcome, len(routers))
	var wg sync.WaitGroup
	for i, name := range routers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outcomes[i] = e.execute(ctx, name, command, timeout)
		}()
	}
	wg.Wait()

	report := &Report{
		Summary: Summary{Command: command, TotalRouters: len(routers)},
		Results: make([]Record, len(routers)),
	}
	var fatal error
	var first, last time.Time
	for i, o := range outcomes {
		if o.fatal != nil && fatal == nil {
			fatal = o.fatal
		}
		report.Results[i] = o.record(routers[i])
		if o.status == StatusSuccess {
			report.Summary.Successful++
		} else {
			report.Summary.Failed++
		}
		if first.IsZero() || o.start.Before(first) {
			first = o.start
		}
		if o.end.After(last) {
			last = o.end
		}
	}
	if fatal != nil {
		return nil, fatal
	}
	if !first.IsZero() {
		report.Summary.TotalDuration = roundSeconds(last.Sub(first))
	}

	e.logger.Info().
		Int("successful", report.Summary.Successful).
		Int("failed", report.Summary.Failed).
		Float64("total_duration", report.Summary.TotalDuration).
		Msg("batch finished")
	return report, nil
}

// RunOne executes the command on a single device with the same guard,
// timeout, and failure semantics as a batch unit.
func (e *Executor) RunOne(ctx context.Context, name, command string, timeout time.Duration) (Record, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	o := e.execute(ctx, name, command, timeout)
	if o.fatal != nil {
		return Record{}, o.fatal
	}
	return o.record(name), nil
}

func (e *Executor) execute(ctx context.Context, name, command string, timeout time.Duration) outcome {
	o := outcome{start: time.Now().UTC()}
	o.status, o.output, o.fatal = e.attempt(ctx, name, command, timeout)
	o.end = time.Now().UTC()
	return o
}

// attempt runs the full unit for one device: resolve, guard, dial, send.
// Every failure is terminal for this device only.
func (e *Executor) attempt(ctx context.Context, name, command string, timeout time.Duration) (Status, string, error) {
	dev, ok := e.directory.Lookup(name)
	if !ok {
		return StatusFailed, fmt.Sprintf("Device %s not found in device directory", name), nil
	}

	verdict, err := e.guard.Check(command)
	if err != nil {
		return StatusFailed, "", err
	}
	if verdict.Blocked {
		e.logger.Warn().
			Str("router", name).
			Str("command", command).
			Str("reason", verdict.Reason).
			Msg("command rejected")
		return StatusFailed, verdict.Reason, nil
	}

	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		sess, err := e.dialer.Dial(cctx, dev)
		if err != nil {
			done <- result{err: err}
			return
		}
		defer sess.Close()
		out, err := sess.Run(cctx, command)
		done <- result{out: out, err: err}
	}()

	// The select, not the transport, decides when the unit is over.
	select {
	case <-cctx.Done():
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return StatusFailed, fmt.Sprintf("Timed out waiting for %s after %s", name, timeout), nil
		}
		return StatusFailed, fmt.Sprintf("Aborted waiting for %s: %v", name, cctx.Err()), nil
	case r := <-done:
		if r.err != nil {
			if errors.Is(r.err, context.DeadlineExceeded) {
				return StatusFailed, fmt.Sprintf("Timed out waiting for %s after %s", name, timeout), nil
			}
			return StatusFailed, fmt.Sprintf("Connection error to %s: %v", name, r.err), nil
		}
		e.logger.Debug().Str("router", name).Msg("command completed")
		return StatusSuccess, r.out, nil
	}
}
