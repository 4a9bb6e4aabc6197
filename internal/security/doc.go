// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.
//
// Package security holds the redacting wrapper used for AES key material and
// passphrases so they never end up in logs, JSON or config dumps.
package security
