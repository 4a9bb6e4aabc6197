// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Command-line entrypoint for keyfob.
//
// Usage:
//
//	go run . [flags]
//	./keyfob [flags]
//	./keyfob --mock
//
// Without a subcommand the reader loop and the TUI start. See --help.
package main

import (
	"os"

	"github.com/toeirei/keyfob/internal/logging"
	"github.com/toeirei/keyfob/ui/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		logging.Errorf("keyfob: %v", err)
		os.Exit(1)
	}
}
