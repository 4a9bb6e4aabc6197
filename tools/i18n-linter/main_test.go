package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadLocale_FlattensNestedKeys(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "en.yaml")
	writeFile(t, p, "tap.idle: \"Tap a tag\"\nexport:\n  done: \"Wrote %d rows\"\n")

	keys, err := loadLocale(p)
	if err != nil {
		t.Fatalf("loadLocale: %v", err)
	}
	if keys["tap.idle"] != "Tap a tag" {
		t.Fatalf("flat key missing: %v", keys)
	}
	if keys["export.done"] != "Wrote %d rows" {
		t.Fatalf("nested key not flattened: %v", keys)
	}
}

func TestSameVerbs(t *testing.T) {
	if !sameVerbs("Checked out %s by %s", "%s von %s ausgeliehen") {
		t.Fatalf("equal verb lists should match")
	}
	if sameVerbs("Wrote %d rows to %s", "%s Zeilen") {
		t.Fatalf("differing verb counts should not match")
	}
	if !sameVerbs("100%% done", "100%% fertig") {
		t.Fatalf("escaped percent signs should be ignored")
	}
}

func TestLint_ReportsEachProblem(t *testing.T) {
	root := t.TempDir()
	locales := filepath.Join(root, "internal", "i18n", "locales")

	writeFile(t, filepath.Join(root, "app", "app.go"), `package app

import "example/i18n"

func f(kind string) {
	_ = i18n.T("tap.idle")
	_ = i18n.T("tap.unknown")
	_ = i18n.T("kind." + kind)
	_ = "logs.filter_all"
}
`)
	// Test files and the tools tree are never scanned.
	writeFile(t, filepath.Join(root, "app", "app_test.go"), `package app
var _ = i18n.T("test.only")
`)
	writeFile(t, filepath.Join(root, "tools", "x.go"), `package x
var _ = i18n.T("tools.only")
`)

	writeFile(t, filepath.Join(locales, "en.yaml"), `tap.idle: "Tap a tag"
kind.key: "Key"
kind.employee: "Employee"
logs.filter_all: "All"
export.done: "Wrote %d rows"
stale.key: "unused"
`)
	writeFile(t, filepath.Join(locales, "de.yaml"), `tap.idle: "Tag vorhalten"
kind.key: "Schlüssel"
logs.filter_all: "Alle"
export.done: "%s Zeilen geschrieben"
stale.key: "unbenutzt"
`)

	r, err := lint(root, locales)
	if err != nil {
		t.Fatalf("lint: %v", err)
	}

	if _, ok := r.Undefined["tap.unknown"]; !ok || len(r.Undefined) != 1 {
		t.Fatalf("expected only tap.unknown undefined, got %v", r.Undefined)
	}
	if got := r.Missing["de.yaml"]; len(got) != 1 || got[0] != "kind.employee" {
		t.Fatalf("expected kind.employee missing from de.yaml, got %v", got)
	}
	if got := r.Verbs["de.yaml"]; len(got) != 1 || got[0] != "export.done" {
		t.Fatalf("expected export.done verb mismatch, got %v", got)
	}
	// kind.* is covered by the computed prefix; export.done is never used.
	want := []string{"export.done", "stale.key"}
	if len(r.Orphaned) != len(want) {
		t.Fatalf("orphaned = %v, want %v", r.Orphaned, want)
	}
	for i := range want {
		if r.Orphaned[i] != want[i] {
			t.Fatalf("orphaned = %v, want %v", r.Orphaned, want)
		}
	}
	if !r.failed() {
		t.Fatalf("report with undefined keys should fail")
	}
}

func TestLint_MissingPrimaryLocale(t *testing.T) {
	root := t.TempDir()
	if _, err := lint(root, filepath.Join(root, "nope")); err == nil {
		t.Fatalf("expected an error without a primary locale")
	}
}
