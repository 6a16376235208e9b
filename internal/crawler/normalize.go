package crawler

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	leadingJunkRe  = regexp.MustCompile(`^[^0-9]*`)
	minutesAgoRe   = regexp.MustCompile(`(\d+)\s*minute`)
	relativeDateRe = regexp.MustCompile(`^(\d+)\s+(hour|day|week|month|year)s?\s+ago$`)
	clockRe        = regexp.MustCompile(`^(?:(\d+):)?(\d{1,2}):(\d{2})$`)
)

// ParseCompactCount converts compact-count text such as "3.2K views",
// "1.2M subscribers" or "1,234 views" into an integer. Handle-like tokens
// ("@somechannel") and anything else unparseable yield ErrParse; an explicit
// "No subscribers" yields 0. Callers must treat ErrParse as absent, never
// as zero.
func ParseCompactCount(text string) (int64, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, fmt.Errorf("empty count: %w", ErrParse)
	}
	if strings.HasPrefix(s, "@") {
		return 0, fmt.Errorf("handle %q is not a count: %w", text, ErrParse)
	}
	s = strings.ReplaceAll(s, "subscribers", "")
	s = strings.ReplaceAll(s, "subscriber", "")
	s = strings.ReplaceAll(s, "views", "")
	s = strings.ReplaceAll(s, "view", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if s == "no" {
		return 0, nil
	}

	// Drop any leading badge or name text before the first digit.
	s = leadingJunkRe.ReplaceAllString(s, "")
	if s == "" {
		return 0, fmt.Errorf("no digits in %q: %w", text, ErrParse)
	}

	multiplier := 1.0
	switch {
	case strings.Contains(s, "k"):
		multiplier = 1_000
		s = strings.ReplaceAll(s, "k", "")
	case strings.Contains(s, "m"):
		multiplier = 1_000_000
		s = strings.ReplaceAll(s, "m", "")
	}
	number, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse count %q: %w", text, ErrParse)
	}
	if number < 0 {
		return 0, fmt.Errorf("negative count %q: %w", text, ErrParse)
	}
	return int64(number * multiplier), nil
}

// ParseRelativeDate converts relative-date text such as "3 hours ago" into
// an absolute timestamp anchored at now. "1 month ago" deliberately maps to
// now minus 29 days so borderline items stay inside the 30-day retention
// window; older months and any year count fail with ErrOutOfWindow, which
// callers feed into the session's out-of-window counter. Any other shape
// fails with ErrParse and is silently skippable.
func ParseRelativeDate(text string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	s = strings.TrimSpace(strings.ReplaceAll(s, "streamed", ""))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date: %w", ErrParse)
	}

	if s == "just now" || s == "moments ago" {
		return now, nil
	}

	if strings.Contains(s, "minute") {
		if m := minutesAgoRe.FindStringSubmatch(s); m != nil {
			minutes, _ := strconv.Atoi(m[1])
			return now.Add(-time.Duration(minutes) * time.Minute), nil
		}
	}

	m := relativeDateRe.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, fmt.Errorf("relative date %q: %w", text, ErrParse)
	}
	n, _ := strconv.Atoi(m[1])

	switch m[2] {
	case "hour":
		return now.Add(-time.Duration(n) * time.Hour), nil
	case "day":
		return now.AddDate(0, 0, -n), nil
	case "week":
		return now.AddDate(0, 0, -n*7), nil
	case "month":
		if n == 1 {
			// Boundary hack: keep items showing "1 month ago" inside the
			// 30-day retention window.
			return now.AddDate(0, 0, -29), nil
		}
		return time.Time{}, fmt.Errorf("%d months ago: %w", n, ErrOutOfWindow)
	case "year":
		return time.Time{}, fmt.Errorf("%d years ago: %w", n, ErrOutOfWindow)
	}
	return time.Time{}, fmt.Errorf("unit %q: %w", m[2], ErrParse)
}

// ParseClockDuration converts a duration badge such as "12:34" or "1:02:03"
// into seconds.
func ParseClockDuration(text string) (int64, error) {
	s := strings.TrimSpace(text)
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("duration %q: %w", text, ErrParse)
	}
	var hours int64
	if m[1] != "" {
		h, _ := strconv.ParseInt(m[1], 10, 64)
		hours = h
	}
	minutes, _ := strconv.ParseInt(m[2], 10, 64)
	seconds, _ := strconv.ParseInt(m[3], 10, 64)
	if seconds > 59 || (m[1] != "" && minutes > 59) {
		return 0, fmt.Errorf("duration %q: %w", text, ErrParse)
	}
	return hours*3600 + minutes*60 + seconds, nil
}
