// fleetwatch — guardrail and dispatch layer for MCP-driven network automation.
// Agents propose commands and configuration; fleetwatch checks every
// candidate against blocklists before anything touches a device.
package main

import "github.com/ppiankov/fleetwatch/internal/cli"

func main() {
	cli.Execute()
}
