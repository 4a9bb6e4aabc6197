package frame

import (
	"strings"
	"testing"
	"time"
)

func TestFooterAlignsRight(t *testing.T) {
	got := Footer("left", "right", 20)
	if len(got) != 20 || !strings.HasPrefix(got, "left") || !strings.HasSuffix(got, "right") {
		t.Fatalf("unexpected footer %q", got)
	}
}

func TestFooterTruncatesLeft(t *testing.T) {
	got := Footer("a very long left token", "end", 12)
	if !strings.HasSuffix(got, " end") || len([]rune(got)) != 12 {
		t.Fatalf("unexpected footer %q", got)
	}
}

func TestDatePickerSteps(t *testing.T) {
	dp := NewDatePicker("From", time.Date(2026, 1, 31, 15, 30, 0, 0, time.UTC))
	if got := dp.GetDate(); got.Hour() != 0 || got.Day() != 31 {
		t.Fatalf("expected midnight of the 31st, got %v", got)
	}

	dp.Focused = FocusDay
	dp.IncrementField()
	if got := dp.GetDate(); got.Month() != time.February || got.Day() != 1 {
		t.Fatalf("expected Feb 1, got %v", got)
	}

	dp.FocusPrev() // month
	dp.DecrementField()
	if got := dp.GetDate(); got.Month() != time.January {
		t.Fatalf("expected January, got %v", got)
	}

	dp.Focused = FocusCancel
	dp.FocusNext()
	if dp.Focused != FocusYear {
		t.Fatalf("focus should wrap to year, got %d", dp.Focused)
	}
	dp.FocusPrev()
	if !dp.IsFocusedCancel() {
		t.Fatalf("focus should wrap back to cancel")
	}
}

func TestDialogRendersButtons(t *testing.T) {
	d := NewDialog("Deactivate", "Deactivate tag?", "Yes", "No")
	out := d.Render()
	if !strings.Contains(out, "Yes") || !strings.Contains(out, "No") {
		t.Fatalf("expected both buttons in %q", out)
	}
	d.Toggle()
	if !d.IsFocusedRight() {
		t.Fatalf("toggle should focus the right button")
	}

	e := NewErrorDialog("Error", "database is locked", "OK")
	e.Toggle()
	if e.IsFocusedRight() {
		t.Fatalf("single-button dialog must not move focus")
	}
}
