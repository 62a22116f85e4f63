package humantime

import (
	"testing"
	"time"
)

func TestFormatToday(t *testing.T) {
	now := time.Date(2025, 6, 10, 18, 30, 0, 0, time.UTC)
	at := time.Date(2025, 6, 10, 15, 4, 0, 0, time.UTC)

	got := Format(at, now)
	if got != "today at 3:04 PM" {
		t.Fatalf("Format = %q", got)
	}
}

func TestFormatYesterday(t *testing.T) {
	now := time.Date(2025, 6, 10, 1, 0, 0, 0, time.UTC)
	at := time.Date(2025, 6, 9, 9, 5, 0, 0, time.UTC)

	got := Format(at, now)
	if got != "yesterday at 9:05 AM" {
		t.Fatalf("Format = %q", got)
	}
}

func TestFormatOlderFallsBackToDate(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	at := time.Date(2025, 1, 2, 12, 0, 0, 0, time.UTC)

	got := Format(at, now)
	if got != "01/02/2025" {
		t.Fatalf("Format = %q", got)
	}
}

func TestFormatMidnightBoundary(t *testing.T) {
	// 23:59 vs 00:01 the next day is "yesterday", not "today".
	now := time.Date(2025, 6, 11, 0, 1, 0, 0, time.UTC)
	at := time.Date(2025, 6, 10, 23, 59, 0, 0, time.UTC)

	got := Format(at, now)
	if got != "yesterday at 11:59 PM" {
		t.Fatalf("Format = %q", got)
	}
}

func TestNatural(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	cases := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "just now"},
		{90 * time.Second, "a minute ago"},
		{10 * time.Minute, "10 minutes ago"},
		{90 * time.Minute, "an hour ago"},
		{5 * time.Hour, "5 hours ago"},
	}
	for _, c := range cases {
		got := Natural(now.Add(-c.ago), now)
		if got != c.want {
			t.Errorf("Natural(-%v) = %q, want %q", c.ago, got, c.want)
		}
	}
}
