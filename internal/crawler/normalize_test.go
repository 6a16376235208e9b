package crawler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCompactCount(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int64
	}{
		{"millions with suffix", "1.2M subscribers", 1_200_000},
		{"thousands with suffix", "500K subscribers", 500_000},
		{"views plain", "1,234 views", 1234},
		{"views compact", "3.2K views", 3200},
		{"single view", "1 view", 1},
		{"explicit zero", "No subscribers", 0},
		{"leading badge text", "• 12K views", 12_000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCompactCount(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCompactCountRejects(t *testing.T) {
	for _, in := range []string{"", "@somehandle", "garbage", "views"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseCompactCount(in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrParse), "want ErrParse, got %v", err)
		})
	}
}

func TestParseRelativeDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		in   string
		want time.Time
	}{
		{"just now", "just now", now},
		{"minutes", "5 minutes ago", now.Add(-5 * time.Minute)},
		{"hours", "3 hours ago", now.Add(-3 * time.Hour)},
		{"single day", "1 day ago", now.AddDate(0, 0, -1)},
		{"weeks", "2 weeks ago", now.AddDate(0, 0, -14)},
		{"streamed prefix", "Streamed 4 hours ago", now.Add(-4 * time.Hour)},
		// "1 month ago" maps to 29 days so it stays within retention.
		{"one month", "1 month ago", now.AddDate(0, 0, -29)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseRelativeDate(tc.in, now)
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "want %v, got %v", tc.want, got)
		})
	}
}

func TestParseRelativeDateOutOfWindow(t *testing.T) {
	now := time.Now()
	for _, in := range []string{"2 months ago", "11 months ago", "1 year ago", "3 years ago"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseRelativeDate(in, now)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOutOfWindow), "want ErrOutOfWindow, got %v", err)
		})
	}
}

func TestParseRelativeDateRejects(t *testing.T) {
	now := time.Now()
	for _, in := range []string{"", "yesterday", "soon", "ago"} {
		_, err := ParseRelativeDate(in, now)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrParse), "want ErrParse for %q, got %v", in, err)
	}
}

func TestParseClockDuration(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0:45", 45},
		{"12:34", 754},
		{"1:02:03", 3723},
	}
	for _, tc := range cases {
		got, err := ParseClockDuration(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.in)
	}

	for _, in := range []string{"", "SHORTS", "1:99", "12:34:99"} {
		_, err := ParseClockDuration(in)
		require.Error(t, err, in)
	}
}
