package source

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const day = 24 * time.Hour

// DefaultRelativeInterval is the lookback used when a request gives none.
const DefaultRelativeInterval = "7d"

var relativeIntervalPattern = regexp.MustCompile(`^(\d+)([hdmMyY])$`)

// ParseRelativeInterval converts "<n><unit>" into a duration. Units are h
// (hours), d (days), m or M (30 days) and y or Y (365 days).
func ParseRelativeInterval(s string) (time.Duration, error) {
	m := relativeIntervalPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid relative interval format: %q", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid relative interval %q: %w", s, err)
	}

	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "h":
		unit = time.Hour
	case "d":
		unit = day
	case "m":
		unit = 30 * day
	case "y":
		unit = 365 * day
	}
	if n > int64(1<<63-1)/int64(unit) {
		return 0, fmt.Errorf("relative interval %q is too large", s)
	}
	return time.Duration(n) * unit, nil
}

// Interval is a closed date range.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DateIntervals splits [start, end) into pages of stepDays days. Each page
// runs from its start to stepDays-1 days later, capped at end, and the next
// page starts stepDays after the previous one. A start at or after end
// yields no pages.
func DateIntervals(start, end time.Time, stepDays int) ([]Interval, error) {
	if stepDays <= 0 {
		return nil, fmt.Errorf("step_days must be greater than zero, got %d", stepDays)
	}

	step := time.Duration(stepDays) * day
	width := time.Duration(stepDays-1) * day

	var out []Interval
	for cur := start; cur.Before(end); cur = cur.Add(step) {
		stop := cur.Add(width)
		if stop.After(end) {
			stop = end
		}
		out = append(out, Interval{Start: cur, End: stop})
	}
	return out, nil
}

// Window is the resolved time range of a lookup.
type Window struct {
	Since time.Time
	Until time.Time
}

// resolveWindow applies the lookup window rules: a relative interval ends
// now and overrides explicit bounds; otherwise until defaults to now and
// since to seven days before until.
func resolveWindow(relative *string, since, until *Timestamp, now time.Time) (Window, error) {
	if relative != nil && *relative != "" {
		d, err := ParseRelativeInterval(*relative)
		if err != nil {
			return Window{}, err
		}
		return Window{Since: now.Add(-d), Until: now}, nil
	}

	w := Window{Until: now}
	if until != nil {
		w.Until = until.Time
	}
	w.Since = w.Until.Add(-7 * day)
	if since != nil {
		w.Since = since.Time
	}
	return w, nil
}

// Timestamp is a time that also decodes from a bare date or a zone-less
// date-time, both read as UTC.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ParseTimestamp parses s with the accepted layouts.
func ParseTimestamp(s string) (Timestamp, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Timestamp{Time: t.UTC()}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("invalid datetime %q", s)
}

// MarshalJSON renders the time as an RFC 3339 string in UTC.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}

// UnmarshalJSON accepts any of the layouts ParseTimestamp accepts.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("invalid datetime %s", b)
	}
	ts, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = ts
	return nil
}
