package timeutil

import (
	"fmt"
	"time"
)

// Granularity is the time unit records are bucketed by for trend reporting
type Granularity string

const (
	Hour  Granularity = "hour"
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
)

// ParseGranularity validates a query-string granularity, defaulting to day
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case Hour, Day, Week, Month:
		return Granularity(s), nil
	case "":
		return Day, nil
	}
	return "", fmt.Errorf("invalid granularity %q (expected hour, day, week or month)", s)
}

// Bucketer maps timestamps onto reporting buckets. WeekStart picks the
// weekday a week bucket begins on; only week-granularity results depend
// on it. SQL-side bucketing must use the same week start or the two
// disagree at week boundaries.
type Bucketer struct {
	WeekStart time.Weekday
}

// Truncate maps a timestamp to the start of its bucket
func (b Bucketer) Truncate(t time.Time, g Granularity) time.Time {
	switch g {
	case Hour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
	case Day:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	case Week:
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
		offset := (int(day.Weekday()) - int(b.WeekStart) + 7) % 7
		return day.AddDate(0, 0, -offset)
	case Month:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	}
	return t
}

// BucketKey renders the canonical string key for the bucket containing t
func (b Bucketer) BucketKey(t time.Time, g Granularity) string {
	start := b.Truncate(t, g)
	switch g {
	case Hour:
		return start.Format("2006-01-02 15:00")
	case Month:
		return start.Format("2006-01")
	default:
		return start.Format("2006-01-02")
	}
}

// Buckets enumerates every bucket start covering [start, end], in order.
// The result is dense: buckets with no data still appear, so the buckets
// partition the window exhaustively and disjointly.
func (b Bucketer) Buckets(start, end time.Time, g Granularity) []time.Time {
	if end.Before(start) {
		return nil
	}
	var out []time.Time
	for cur := b.Truncate(start, g); !cur.After(end); cur = Next(cur, g) {
		out = append(out, cur)
	}
	return out
}

// isoWeek backs the package-level convenience funcs, matching Postgres
// DATE_TRUNC('week').
var isoWeek = Bucketer{WeekStart: time.Monday}

// Truncate maps a timestamp to the start of its bucket with ISO Monday weeks
func Truncate(t time.Time, g Granularity) time.Time {
	return isoWeek.Truncate(t, g)
}

// Next returns the start of the bucket following the one starting at t
func Next(t time.Time, g Granularity) time.Time {
	switch g {
	case Hour:
		return t.Add(time.Hour)
	case Day:
		return t.AddDate(0, 0, 1)
	case Week:
		return t.AddDate(0, 0, 7)
	case Month:
		return t.AddDate(0, 1, 0)
	}
	return t
}

// BucketKey renders the canonical bucket key with ISO Monday weeks
func BucketKey(t time.Time, g Granularity) string {
	return isoWeek.BucketKey(t, g)
}

// Buckets enumerates bucket starts covering [start, end] with ISO Monday weeks
func Buckets(start, end time.Time, g Granularity) []time.Time {
	return isoWeek.Buckets(start, end, g)
}

// PreviousWindow returns the equal-length window immediately preceding
// [start, end): prevEnd = start, prevStart = start - (end - start).
func PreviousWindow(start, end time.Time) (time.Time, time.Time) {
	length := end.Sub(start)
	return start.Add(-length), start
}
