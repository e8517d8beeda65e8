// Command ragbot is the entry point for the ragbot document Q&A service.
// It provides a CLI interface (via Cobra) and an HTTP server exposing the
// query and document management API.
package main

import (
	"fmt"
	"os"

	"github.com/ragstack/ragbot/cmd/ragbot/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
