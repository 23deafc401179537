package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var relativeTimeRe = regexp.MustCompile(`^(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?$`)

// absoluteLayouts are tried in order; layouts without a zone are read as UTC.
var absoluteLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04 -0700",
	"2006-01-02 3:04pm -0700",
	"2006-01-02 3pm -0700",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 3:04pm",
	"2006-01-02 3pm",
	"2006-01-02",
	"1-2 15:04 -0700",
	"1-2 3:04pm -0700",
	"1-2 3pm -0700",
	"1-2 15:04",
	"1-2 3:04pm",
	"1-2 3pm",
}

// ParseDuration parses a compound "%dd%hh%mm%ss" expression such as "2h10m" or "1d".
func ParseDuration(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	m := relativeTimeRe.FindStringSubmatch(s)
	if s == "" || m == nil {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}
	units := []time.Duration{24 * time.Hour, time.Hour, time.Minute, time.Second}
	var d time.Duration
	for i, part := range m[1:] {
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %q", s)
		}
		d += time.Duration(n) * units[i]
	}
	return d, nil
}

// ParseAbsoluteTime parses a formatted date/time. A missing year means the year of now,
// a missing zone means UTC.
func ParseAbsoluteTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range absoluteLayouts {
		for _, candidate := range []string{s, strings.ToLower(s)} {
			t, err := time.ParseInLocation(layout, candidate, time.UTC)
			if err != nil {
				continue
			}
			if t.Year() == 0 {
				t = t.AddDate(now.UTC().Year(), 0, 0)
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time: %q", s)
}

// ParseFutureTime reads either a relative duration added to now or an absolute time.
func ParseFutureTime(s string, now time.Time) (time.Time, error) {
	if d, err := ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	return ParseAbsoluteTime(s, now)
}

// ParsePastTime reads either a relative duration subtracted from now or an absolute time.
func ParsePastTime(s string, now time.Time) (time.Time, error) {
	if d, err := ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	return ParseAbsoluteTime(s, now)
}

// FormatTime renders t the way mod-log embeds show times.
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05") + " UTC"
}
