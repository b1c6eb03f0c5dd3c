// Package transport opens control channels to fleet devices.
package transport

import (
	"context"

	"github.com/ppiankov/fleetwatch/internal/inventory"
)

// Session is an open control channel to one device.
type Session interface {
	// Run executes one operational command and returns its output.
	Run(ctx context.Context, command string) (string, error)

	// LoadConfig enters configuration mode, applies the lines, and
	// commits. Device output is returned verbatim, success or not.
	LoadConfig(ctx context.Context, lines []string) (string, error)

	Close() error
}

// Dialer opens sessions to inventory devices.
type Dialer interface {
	Dial(ctx context.Context, dev inventory.Device) (Session, error)
}
