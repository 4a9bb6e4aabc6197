package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/toeirei/keyfob/internal/service"
)

func TestRunSeedsAndExports(t *testing.T) {
	opts := options{
		dbType: "sqlite",
		dsn:    fmt.Sprintf("file:demo_%d?mode=memory&cache=shared", time.Now().UnixNano()),
		key:    filepath.Join(t.TempDir(), "demo.key"),
		days:   7,
		seed:   42,
		now:    time.Date(2026, 5, 20, 18, 0, 0, 0, time.Local),
	}

	var out bytes.Buffer
	if err := run(context.Background(), &out, opts); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"tags: 3 employees, 4 keys", "events:", strings.Join(service.CSVHeader, ","), "exported rows for today:"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
}
