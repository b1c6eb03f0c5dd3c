// Package classify builds guardrail rejection messages and decides which
// tool results are surfaced as errors.
package classify

import (
	"fmt"
	"strings"
)

// Marker prefixes that identify a guardrail rejection in result content.
const (
	blockedConfigMarker  = "Blocked configuration rejected"
	blockedCommandMarker = "Blocked command rejected"
)

// BlockedConfig formats the rejection text for one configuration line.
func BlockedConfig(line, reason string) string {
	return fmt.Sprintf("%s: line '%s' %s", blockedConfigMarker, line, reason)
}

// BlockedCommand formats the rejection text for one operational command.
func BlockedCommand(command, reason string) string {
	return fmt.Sprintf("%s: command '%s' %s", blockedCommandMarker, command, reason)
}

// IsError reports whether any of the texts starts with a rejection marker.
// Ordinary device output is never an error, whatever words it contains.
func IsError(texts ...string) bool {
	for _, text := range texts {
		if strings.HasPrefix(text, blockedConfigMarker) || strings.HasPrefix(text, blockedCommandMarker) {
			return true
		}
	}
	return false
}
