// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package buildvars contains variables injected at build time.
package buildvars

// Version is set at link time via `-ldflags -X github.com/toeirei/keyfob/buildvars.Version=...`.
// Empty for local builds.
var Version string

// Commit is the short VCS revision, also injected by the linker.
var Commit string

// VersionOrDefault returns `Version` if set, otherwise returns the provided default.
func VersionOrDefault(def string) string {
	if len(Version) > 0 {
		return Version
	}
	return def
}
