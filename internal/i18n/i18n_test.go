package i18n

import (
	"embed"
	"io/fs"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestT_FallsBackToID(t *testing.T) {
	Init("en")
	if got := T("no.such.message"); got != "no.such.message" {
		t.Fatalf("expected ID fallback, got %q", got)
	}
}

func TestT_FormatsArgs(t *testing.T) {
	Init("en")
	got := T("tap.too_soon", "Van key", "1m10s")
	if !strings.Contains(got, "Van key") || !strings.Contains(got, "1m10s") {
		t.Fatalf("expected formatted message, got %q", got)
	}
}

func TestSetLang_German(t *testing.T) {
	Init("en")
	english := T("logs.title")
	SetLang("de")
	defer SetLang("en")
	if Lang() != "de" {
		t.Fatalf("expected de, got %q", Lang())
	}
	if got := T("logs.title"); got == english || got == "logs.title" {
		t.Fatalf("expected German translation for logs.title, got %q", got)
	}
}

func TestLanguages(t *testing.T) {
	Init("en")
	langs := Languages()
	if len(langs) < 2 {
		t.Fatalf("expected at least en and de, got %v", langs)
	}
}

// TestLocalesHaveSameKeys keeps the German file in step with the English one.
func TestLocalesHaveSameKeys(t *testing.T) {
	en := loadKeys(t, localeFS, "locales/en.yaml")
	de := loadKeys(t, localeFS, "locales/de.yaml")
	for k := range en {
		if _, ok := de[k]; !ok {
			t.Fatalf("de.yaml is missing %q", k)
		}
	}
	for k := range de {
		if _, ok := en[k]; !ok {
			t.Fatalf("en.yaml is missing %q", k)
		}
	}
}

func loadKeys(t *testing.T, fsys embed.FS, name string) map[string]any {
	t.Helper()
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	m := map[string]any{}
	if err := yaml.Unmarshal(data, &m); err != nil {
		t.Fatalf("parse %s: %v", name, err)
	}
	return m
}
