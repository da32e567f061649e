package bot

import (
	"testing"
	"time"
)

func TestParseUserDate(t *testing.T) {
	want := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)

	for _, in := range []string{"15.09.2026", "15/09/2026", "15-09-2026", "15.09.26", " 15.09.2026 "} {
		got, err := ParseUserDate(in)
		if err != nil {
			t.Fatalf("ParseUserDate(%q): %v", in, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseUserDate(%q) = %v, want %v", in, got, want)
		}
	}

	for _, in := range []string{"", "завтра", "2026-09-15", "40.13.2026"} {
		if _, err := ParseUserDate(in); err == nil {
			t.Fatalf("ParseUserDate(%q) succeeded, want error", in)
		}
	}
}

func TestInPast(t *testing.T) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	if InPast(today) {
		t.Fatal("today is in past")
	}
	if !InPast(today.AddDate(0, 0, -1)) {
		t.Fatal("yesterday is not in past")
	}
	if InPast(today.AddDate(0, 0, 1)) {
		t.Fatal("tomorrow is in past")
	}
}
