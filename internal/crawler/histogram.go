package crawler

import (
	"math"
	"time"

	"github.com/kurihiro0119/github-org-insights/internal/domain"
)

// BuildDailyHistogram buckets timestamps into a trailing window of calendar
// days ending today. The result has one slot per day, oldest first, and
// timestamps outside the window are dropped.
func BuildDailyHistogram(timestamps []time.Time, days int, now time.Time) domain.Histogram {
	h := make(domain.Histogram, days)
	today := truncateToDay(now)
	for _, ts := range timestamps {
		day := truncateToDay(ts.In(now.Location()))
		diff := int(math.Round(today.Sub(day).Hours() / 24))
		if diff < 0 || diff >= days {
			continue
		}
		h[days-1-diff]++
	}
	return h
}

// WithinWindow reports whether ts falls inside the trailing window of
// calendar days ending today.
func WithinWindow(ts time.Time, days int, now time.Time) bool {
	day := truncateToDay(ts.In(now.Location()))
	diff := int(math.Round(truncateToDay(now).Sub(day).Hours() / 24))
	return diff >= 0 && diff < days
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
