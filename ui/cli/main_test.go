// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package cli

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/keyfob/internal/config"
	"github.com/toeirei/keyfob/internal/db"
	"github.com/toeirei/keyfob/internal/i18n"
)

// setupTestEnv points the config search, the key file and the database at
// throwaway locations and returns the temp dir.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("HOME", dir)
	t.Setenv("KEYFOB_SECRET_KEY_PATH", filepath.Join(dir, "secret.key"))

	dsn := fmt.Sprintf("file:cli_%d?mode=memory&cache=shared", time.Now().UnixNano())
	s, err := db.New("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to initialize test database: %v", err)
	}
	i18n.Init("en")

	t.Cleanup(func() {
		_ = s.Close()
		appConfig = config.Config{}
		fullRestore = false
		mockFlag = false
		askPassphrase = false
	})
	return dir
}

// executeCommand runs a fresh root command with args and returns everything
// written to its output streams.
func executeCommand(t *testing.T, stdin io.Reader, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	if stdin != nil {
		root.SetIn(stdin)
	}
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func mustExecute(t *testing.T, stdin io.Reader, args ...string) string {
	t.Helper()
	out, err := executeCommand(t, stdin, args...)
	if err != nil {
		t.Fatalf("keyfob %s failed: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func TestVersionCmd(t *testing.T) {
	out := mustExecute(t, nil, "version")
	if !strings.Contains(out, "version:") || !strings.Contains(out, "commit:") {
		t.Fatalf("unexpected version output: %q", out)
	}
}

func TestRegisterAndTagsCommands_Mock(t *testing.T) {
	setupTestEnv(t)

	out := mustExecute(t, strings.NewReader("A1B2\n"), "--mock", "register", "--kind", "employee", "--label", "Alice")
	if !strings.Contains(out, "UID A1B2") {
		t.Fatalf("expected registered UID in output, got %q", out)
	}

	out = mustExecute(t, nil, "tags", "list")
	if !strings.Contains(out, "Alice") || !strings.Contains(out, "A1B2") || !strings.Contains(out, "employee") {
		t.Fatalf("tag missing from list: %q", out)
	}

	mustExecute(t, nil, "tags", "deactivate", "0xA1B2")
	tag, err := db.Default().GetTag(t.Context(), 0xA1B2)
	if err != nil || tag == nil {
		t.Fatalf("GetTag: %v %v", tag, err)
	}
	if tag.Active {
		t.Fatalf("expected tag to be inactive after deactivate")
	}

	mustExecute(t, nil, "tags", "activate", "a1b2")
	tag, _ = db.Default().GetTag(t.Context(), 0xA1B2)
	if !tag.Active {
		t.Fatalf("expected tag to be active again")
	}
}

func TestRegisterCmd_RejectsBadKind(t *testing.T) {
	setupTestEnv(t)
	if _, err := executeCommand(t, nil, "--mock", "register", "--kind", "door", "--label", "x"); err == nil {
		t.Fatalf("expected an error for an unknown kind")
	}
}

func TestTagsActivate_UnknownUID(t *testing.T) {
	setupTestEnv(t)
	if _, err := executeCommand(t, nil, "tags", "activate", "FFFF"); err == nil {
		t.Fatalf("expected an error for an unknown tag")
	}
	if _, err := executeCommand(t, nil, "tags", "activate", "not-hex"); err == nil {
		t.Fatalf("expected an error for a malformed UID")
	}
}

func TestBackupAndRestoreCommands(t *testing.T) {
	dir := setupTestEnv(t)
	mustExecute(t, strings.NewReader("C0FFEE\n"), "--mock", "register", "--kind", "key", "--label", "Van 1")

	file := filepath.Join(dir, "backup.json.zst")
	out := mustExecute(t, nil, "backup", file)
	if !strings.Contains(out, file) {
		t.Fatalf("expected backup file name in output, got %q", out)
	}

	// A full restore wipes the database first and asks before doing so.
	out = mustExecute(t, strings.NewReader("n\n"), "restore", "--full", file)
	if !strings.Contains(out, i18n.T("restore.cli_aborted")) {
		t.Fatalf("expected the restore to be aborted, got %q", out)
	}
	mustExecute(t, nil, "restore", "--full", "--yes", file)

	tag, err := db.Default().GetTag(t.Context(), 0xC0FFEE)
	if err != nil || tag == nil {
		t.Fatalf("expected restored tag, got %v %v", tag, err)
	}
}

func TestDBMaintainCmd(t *testing.T) {
	setupTestEnv(t)
	out := mustExecute(t, nil, "db", "maintain", "--skip-integrity")
	if !strings.Contains(out, i18n.T("cli.maintain_done")) {
		t.Fatalf("unexpected maintain output: %q", out)
	}
}

func TestDBMigrateCmd(t *testing.T) {
	setupTestEnv(t)
	mustExecute(t, strings.NewReader("BEEF\n"), "--mock", "register", "--kind", "employee", "--label", "Bob")

	target := fmt.Sprintf("file:cli_target_%d?mode=memory&cache=shared", time.Now().UnixNano())
	// Keep the target open so the shared in-memory database survives the
	// command closing its own handle.
	keep, err := db.NewStoreFromDSN("sqlite", target)
	if err != nil {
		t.Fatalf("open target: %v", err)
	}
	defer func() { _ = keep.Close() }()

	mustExecute(t, nil, "db", "migrate", "--to-type", "sqlite", "--to-dsn", target)

	tag, err := keep.GetTag(t.Context(), 0xBEEF)
	if err != nil || tag == nil {
		t.Fatalf("expected migrated tag, got %v %v", tag, err)
	}
}

func TestDBMigrateCmd_RequiresTarget(t *testing.T) {
	setupTestEnv(t)
	if _, err := executeCommand(t, nil, "db", "migrate", "--to-type", "", "--to-dsn", ""); err == nil {
		t.Fatalf("expected an error without a target")
	}
}
