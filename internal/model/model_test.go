// Copyright (c) 2026 Keymaster Team
// Keyfob - RFID key check-out logger
// This source code is licensed under the MIT license found in the LICENSE file.

package model

import (
	"testing"
	"time"
)

func TestParseTagKind(t *testing.T) {
	cases := map[string]TagKind{"employee": KindEmployee, "EMP": KindEmployee, " key ": KindKey, "k": KindKey}
	for in, want := range cases {
		got, err := ParseTagKind(in)
		if err != nil || got != want {
			t.Errorf("ParseTagKind(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseTagKind("visitor"); err == nil {
		t.Errorf("expected error for unknown kind")
	}
}

func TestLogRowStatusAndElapsed(t *testing.T) {
	out := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	r := LogRow{CheckedOut: out}
	if r.Status() != StatusOut {
		t.Errorf("expected OUT without check-in")
	}
	if got := r.Elapsed(out.Add(90 * time.Second)); got != 90*time.Second {
		t.Errorf("open elapsed = %s", got)
	}

	in := out.Add(3 * time.Hour)
	r.CheckedIn = &in
	if r.Status() != StatusIn {
		t.Errorf("expected IN with check-in")
	}
	if got := r.Elapsed(out.Add(10 * time.Hour)); got != 3*time.Hour {
		t.Errorf("closed elapsed should ignore now, got %s", got)
	}
}

func TestFormatElapsed(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{7 * time.Second, "7s"},
		{5*time.Minute + 6*time.Second, "5m 6s"},
		{3*time.Hour + 4*time.Minute + 59*time.Second, "3h 4m"},
		{26 * time.Hour, "1d 2h"},
	}
	for _, c := range cases {
		if got := FormatElapsed(c.d); got != c.want {
			t.Errorf("FormatElapsed(%s) = %q, want %q", c.d, got, c.want)
		}
	}
}
