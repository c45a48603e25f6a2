// Package main is the entry point for the vobuild CLI.
//
// Usage:
//
//	vobuild [flags] <command> [args]
//
// Commands:
//
//	build      - Record a voice prompt and build an app from it
//	patch      - Apply a change instruction to a built app
//	voice      - Live voice conversation with the agent
//	sessions   - List and inspect archived builds
//	config     - Configuration management (contexts, services)
//	version    - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/vobuild/vobuild/cmd/vobuild/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
