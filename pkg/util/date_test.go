package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseIntDefault(t *testing.T) {
	if got := ParseIntDefault("", 252); got != 252 {
		t.Fatalf("expected default, got %d", got)
	}
	if got := ParseIntDefault("abc", 7); got != 7 {
		t.Fatalf("expected default on garbage, got %d", got)
	}
	if got := ParseIntDefault("365", 252); got != 365 {
		t.Fatalf("expected 365, got %d", got)
	}
}

func TestParseDateLayouts(t *testing.T) {
	want := time.Date(2024, 11, 21, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2024-11-21", "2024-11-21 00:00:00", "2024-11-21 13:45:00", " 2024-11-21 ", "2024-11-21T09:00:00Z"} {
		got, ok := ParseDate(s)
		if !ok {
			t.Fatalf("%q: expected ok", s)
		}
		if !got.Equal(want) {
			t.Fatalf("%q: got %v want %v", s, got, want)
		}
	}
}

func TestParseDateRejects(t *testing.T) {
	for _, s := range []string{"", "21/11/2024", "2024-13-01", "yesterday"} {
		if _, ok := ParseDate(s); ok {
			t.Fatalf("%q: expected failure", s)
		}
	}
}
