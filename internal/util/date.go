package util

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeDatePattern = regexp.MustCompile(`(?i)(\d+)\s+(second|minute|hour|day|week|month|year)s?\s+ago`)

// ParseRelativeDate resolves a phrase like "2 months ago" against the current
// time. Month and year offsets shift the calendar field instead of subtracting
// a fixed number of days. Returns nil when the text doesn't carry a relative
// date, which callers treat as "no date available".
func ParseRelativeDate(text string) *time.Time {
	match := relativeDatePattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}

	amount, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}

	now := time.Now().UTC()
	var resolved time.Time
	switch strings.ToLower(match[2]) {
	case "second":
		resolved = now.Add(-time.Duration(amount) * time.Second)
	case "minute":
		resolved = now.Add(-time.Duration(amount) * time.Minute)
	case "hour":
		resolved = now.Add(-time.Duration(amount) * time.Hour)
	case "day":
		resolved = now.AddDate(0, 0, -amount)
	case "week":
		resolved = now.AddDate(0, 0, -amount*7)
	case "month":
		resolved = now.AddDate(0, -amount, 0)
	case "year":
		resolved = now.AddDate(-amount, 0, 0)
	default:
		return nil
	}

	return &resolved
}

// TruncateToUTCDay drops the time-of-day component, keeping midnight UTC.
func TruncateToUTCDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
