// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

// i18n-linter checks the locale files against the source code. It reports
// keys used in code but missing from the primary locale, keys the other
// locales lack, format verbs that differ between translations and keys
// nobody uses.
//
// Run it from the repository root:
//
//	go run ./tools/i18n-linter
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Location stores the file and line number of a found string.
type Location struct {
	Filepath string
	Line     int
}

const (
	localesDir    = "internal/i18n/locales"
	primaryLocale = "en.yaml"
	projectRoot   = "."
)

var (
	// i18n.T("some.key") and i18n.T("prefix." + x) for computed keys.
	reCall = regexp.MustCompile(`i18n\.T\("([a-z0-9_.]+)"(\s*\+)?`)
	// Key names passed around as plain literals, e.g. FilterI18nKeys fields.
	reLiteralKey = regexp.MustCompile(`"((?:logs|tags|tap|export|register|mock|status|main|common)\.[a-z_.]+)"`)
	// Printf verbs, ignoring %%.
	reVerb = regexp.MustCompile(`%[-+# 0]*[0-9]*(?:\.[0-9]+)?[a-zA-Z]`)
)

// usage collects the keys referenced from code.
type usage struct {
	keys     map[string][]Location
	prefixes map[string][]Location
}

// report is the outcome of one lint run.
type report struct {
	Undefined map[string][]Location // used in code, absent from the primary locale
	Missing   map[string][]string   // locale file -> keys it lacks
	Verbs     map[string][]string   // locale file -> keys whose verbs differ
	Orphaned  []string              // in the primary locale, never used
}

func (r report) failed() bool {
	return len(r.Undefined) > 0 || len(r.Missing) > 0 || len(r.Verbs) > 0
}

func main() {
	fmt.Println("🔍 Running i18n linter...")
	r, err := lint(projectRoot, localesDir)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	printReport(r)
	if r.failed() {
		fmt.Println("❌ Found issues that need to be addressed.")
		os.Exit(1)
	}
	if len(r.Orphaned) > 0 {
		fmt.Println("⚠️  Found orphaned keys. Please consider removing them.")
		return
	}
	fmt.Println("✅ All translation files are consistent!")
}

// lint scans the Go sources under root and the locale files in dir.
func lint(root, dir string) (report, error) {
	r := report{
		Undefined: map[string][]Location{},
		Missing:   map[string][]string{},
		Verbs:     map[string][]string{},
	}

	used, err := findUsedKeys(root)
	if err != nil {
		return r, fmt.Errorf("scan sources: %w", err)
	}
	primary, err := loadLocale(filepath.Join(dir, primaryLocale))
	if err != nil {
		return r, fmt.Errorf("load primary locale %s: %w", primaryLocale, err)
	}

	for key, locs := range used.keys {
		if _, ok := primary[key]; !ok {
			r.Undefined[key] = locs
		}
	}
	for key := range primary {
		if !used.covers(key) {
			r.Orphaned = append(r.Orphaned, key)
		}
	}
	sort.Strings(r.Orphaned)

	files, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return r, err
	}
	for _, file := range files {
		name := filepath.Base(file)
		if name == primaryLocale {
			continue
		}
		other, err := loadLocale(file)
		if err != nil {
			return r, fmt.Errorf("load %s: %w", name, err)
		}
		for key, text := range primary {
			translated, ok := other[key]
			if !ok {
				r.Missing[name] = append(r.Missing[name], key)
				continue
			}
			if !sameVerbs(text, translated) {
				r.Verbs[name] = append(r.Verbs[name], key)
			}
		}
		sort.Strings(r.Missing[name])
		sort.Strings(r.Verbs[name])
		if len(r.Missing[name]) == 0 {
			delete(r.Missing, name)
		}
		if len(r.Verbs[name]) == 0 {
			delete(r.Verbs, name)
		}
	}
	return r, nil
}

// covers reports whether key is used literally or through a computed prefix.
func (u usage) covers(key string) bool {
	if _, ok := u.keys[key]; ok {
		return true
	}
	for p := range u.prefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

// findUsedKeys scans all non-test .go files below root.
func findUsedKeys(root string) (usage, error) {
	u := usage{keys: map[string][]Location{}, prefixes: map[string][]Location{}}
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (name == "tools" || name == "vendor" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		content, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		for i, line := range strings.Split(string(content), "\n") {
			loc := Location{Filepath: path, Line: i + 1}
			for _, m := range reCall.FindAllStringSubmatch(line, -1) {
				if m[2] != "" || strings.HasSuffix(m[1], ".") {
					u.prefixes[m[1]] = append(u.prefixes[m[1]], loc)
					continue
				}
				u.keys[m[1]] = append(u.keys[m[1]], loc)
			}
			if strings.Contains(line, "i18n.T(") {
				continue
			}
			for _, m := range reLiteralKey.FindAllStringSubmatch(line, -1) {
				u.keys[m[1]] = append(u.keys[m[1]], loc)
			}
		}
		return nil
	})
	return u, err
}

// sameVerbs compares the printf verbs of two translations in order.
func sameVerbs(a, b string) bool {
	va := reVerb.FindAllString(strings.ReplaceAll(a, "%%", ""), -1)
	vb := reVerb.FindAllString(strings.ReplaceAll(b, "%%", ""), -1)
	if len(va) != len(vb) {
		return false
	}
	for i := range va {
		if va[i] != vb[i] {
			return false
		}
	}
	return true
}

// loadLocale reads a flat locale file into key -> text. Nested maps are
// flattened with dots.
func loadLocale(path string) (map[string]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := yaml.Unmarshal(content, &data); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	flattenYAML("", data, out)
	return out, nil
}

func flattenYAML(prefix string, node interface{}, out map[string]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		for k, val := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			flattenYAML(key, val, out)
		}
	default:
		if prefix != "" {
			out[prefix] = fmt.Sprint(v)
		}
	}
}

func printReport(r report) {
	fmt.Println("--- Keys used in code but not defined ---")
	if len(r.Undefined) == 0 {
		fmt.Println("  ✨ None found.")
	}
	for _, key := range sortedKeys(r.Undefined) {
		loc := r.Undefined[key][0]
		fmt.Printf("  - Undefined: %s (%s:%d)\n", key, loc.Filepath, loc.Line)
	}

	fmt.Println("\n--- Keys missing from translations ---")
	if len(r.Missing) == 0 {
		fmt.Println("  ✨ All keys present.")
	}
	for _, file := range sortedKeys(r.Missing) {
		for _, key := range r.Missing[file] {
			fmt.Printf("  - %s: missing %s\n", file, key)
		}
	}

	fmt.Println("\n--- Format verbs that differ ---")
	if len(r.Verbs) == 0 {
		fmt.Println("  ✨ None found.")
	}
	for _, file := range sortedKeys(r.Verbs) {
		for _, key := range r.Verbs[file] {
			fmt.Printf("  - %s: %s\n", file, key)
		}
	}

	fmt.Println("\n--- Orphaned keys ---")
	if len(r.Orphaned) == 0 {
		fmt.Println("  ✨ None found.")
	}
	for _, key := range r.Orphaned {
		fmt.Printf("  - Orphaned: %s\n", key)
	}
	fmt.Println()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
