package timeutil

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestTruncateHourAndDay(t *testing.T) {
	ts := date(2024, 1, 15, 14, 37)

	if got := Truncate(ts, Hour); !got.Equal(date(2024, 1, 15, 14, 0)) {
		t.Errorf("hour truncate = %v", got)
	}
	if got := Truncate(ts, Day); !got.Equal(date(2024, 1, 15, 0, 0)) {
		t.Errorf("day truncate = %v", got)
	}
	if got := Truncate(ts, Month); !got.Equal(date(2024, 1, 1, 0, 0)) {
		t.Errorf("month truncate = %v", got)
	}
}

func TestTruncateWeekStartsMonday(t *testing.T) {
	// 2024-01-15 is a Monday
	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{date(2024, 1, 15, 10, 0), date(2024, 1, 15, 0, 0)}, // Monday maps to itself
		{date(2024, 1, 17, 10, 0), date(2024, 1, 15, 0, 0)}, // Wednesday
		{date(2024, 1, 21, 23, 59), date(2024, 1, 15, 0, 0)}, // Sunday belongs to the preceding Monday
		{date(2024, 1, 22, 0, 0), date(2024, 1, 22, 0, 0)},  // next Monday starts a new week
	}
	for _, c := range cases {
		if got := Truncate(c.in, Week); !got.Equal(c.want) {
			t.Errorf("Truncate(%v, Week) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestBucketsAreDenseAndOrdered(t *testing.T) {
	start := date(2024, 1, 15, 0, 0)
	end := date(2024, 1, 18, 12, 0)

	buckets := Buckets(start, end, Day)
	if len(buckets) != 4 {
		t.Fatalf("expected 4 day buckets, got %d", len(buckets))
	}
	for i := 1; i < len(buckets); i++ {
		if !buckets[i].After(buckets[i-1]) {
			t.Errorf("buckets not strictly ordered at %d", i)
		}
		if buckets[i].Sub(buckets[i-1]) != 24*time.Hour {
			t.Errorf("gap between buckets %d and %d", i-1, i)
		}
	}
}

func TestBucketsEmptyOnInvertedWindow(t *testing.T) {
	if got := Buckets(date(2024, 1, 2, 0, 0), date(2024, 1, 1, 0, 0), Day); got != nil {
		t.Errorf("expected nil for inverted window, got %v", got)
	}
}

func TestBucketKeyFormats(t *testing.T) {
	ts := date(2024, 3, 7, 9, 30)
	cases := []struct {
		g    Granularity
		want string
	}{
		{Hour, "2024-03-07 09:00"},
		{Day, "2024-03-07"},
		{Week, "2024-03-04"}, // Monday of that week
		{Month, "2024-03"},
	}
	for _, c := range cases {
		if got := BucketKey(ts, c.g); got != c.want {
			t.Errorf("BucketKey(%s) = %q, want %q", c.g, got, c.want)
		}
	}
}

func TestPreviousWindow(t *testing.T) {
	start := date(2024, 1, 8, 0, 0)
	end := date(2024, 1, 15, 0, 0)

	prevStart, prevEnd := PreviousWindow(start, end)
	if !prevEnd.Equal(start) {
		t.Errorf("prevEnd = %v, want %v", prevEnd, start)
	}
	if !prevStart.Equal(date(2024, 1, 1, 0, 0)) {
		t.Errorf("prevStart = %v", prevStart)
	}
	if prevEnd.Sub(prevStart) != end.Sub(start) {
		t.Error("previous window length differs from requested window")
	}
}

func TestParseGranularity(t *testing.T) {
	if g, err := ParseGranularity(""); err != nil || g != Day {
		t.Errorf("empty granularity should default to day, got %v %v", g, err)
	}
	if _, err := ParseGranularity("fortnight"); err == nil {
		t.Error("expected error for unknown granularity")
	}
}

func TestBucketerSundayWeeks(t *testing.T) {
	b := Bucketer{WeekStart: time.Sunday}
	wed := time.Date(2025, 6, 4, 15, 30, 0, 0, time.UTC)

	got := b.Truncate(wed, Week)
	want := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) // Sunday
	if !got.Equal(want) {
		t.Errorf("Truncate(Wed, Week) with Sunday start = %v, want %v", got, want)
	}

	// A Sunday timestamp is already a bucket start.
	sun := time.Date(2025, 6, 8, 9, 0, 0, 0, time.UTC)
	if got := b.Truncate(sun, Week); !got.Equal(time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Truncate(Sun, Week) = %v, want same day", got)
	}

	if key := b.BucketKey(wed, Week); key != "2025-06-01" {
		t.Errorf("BucketKey = %s, want 2025-06-01", key)
	}

	// Non-week granularities ignore the week start.
	if got := b.Truncate(wed, Day); !got.Equal(Truncate(wed, Day)) {
		t.Errorf("Day truncation diverged between bucketers")
	}

	buckets := b.Buckets(wed, time.Date(2025, 6, 18, 0, 0, 0, 0, time.UTC), Week)
	if len(buckets) != 3 || !buckets[0].Equal(want) {
		t.Errorf("Buckets = %v, want 3 starting at %v", buckets, want)
	}
}

func TestPackageFuncsKeepISOWeeks(t *testing.T) {
	wed := time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC)
	if got := Truncate(wed, Week); !got.Equal(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("package Truncate week = %v, want Monday 2025-06-02", got)
	}
}
