// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// Package db is the persistence layer for keyfob.
//
// A single bun-backed Store serves SQLite (default, modernc driver),
// PostgreSQL (pgx) and MySQL. Schemas live in migrations/<dialect> and are
// applied with golang-migrate on every open.
//
// Tables
//   - tag_contents: encrypted display names and labels keyed by content UUID.
//     Written once.
//   - tags: registered RFID cards with their kind and activation flag.
//   - check_events: append-only check-out/check-in log. An "in" row points
//     at the "out" row it closes through checkout_id.
//   - open_checkouts: one row per key that is currently out. Its primary key
//     stops a key from being checked out twice.
//
// Testing notes
//   - WithTestStore opens a named in-memory SQLite database per test.
//   - Package-level helpers (InitDB, IsInitialized) mirror the Store held in
//     the package variable for callers that do not inject one.
package db
