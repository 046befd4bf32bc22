// Package main provides the entry point for the Relay CLI.
package main

import (
	"fmt"
	"os"

	"github.com/relaycode/relay/cmd/relay/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
