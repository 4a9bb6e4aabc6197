// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package cli implements the command-line interface for keyfob using Cobra.
// It loads the configuration, opens the database and wires the reader, the
// tap engine and the services for the TUI and the subcommands. Business
// logic stays in the internal packages.
package cli
