// Package dates turns user-typed dates and times into instants in the
// user's zone.
package dates

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrUnparseable is returned when no accepted format matches.
	ErrUnparseable = errors.New("dates: could not understand the date")
	// ErrNoTime is returned when a date-time is missing its clock part.
	ErrNoTime = errors.New("dates: no time of day given")
	// ErrInPast is returned for instants earlier than now minus the grace.
	ErrInPast = errors.New("dates: time is in the past")
)

// DefaultGrace absorbs processing latency when rejecting past instants.
const DefaultGrace = 30 * time.Second

// Clock is a time of day.
type Clock struct {
	Hour   int
	Minute int
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// On returns the instant at c on day's calendar date, in day's location.
func (c Clock) On(day time.Time) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, c.Hour, c.Minute, 0, 0, day.Location())
}

// ClockOf returns the time of day of t.
func ClockOf(t time.Time) Clock {
	return Clock{Hour: t.Hour(), Minute: t.Minute()}
}

// clockRe matches a time of day inside free text: 15:30, 15h30, 15h,
// 15.30, 3pm, 3:30 pm.
var clockRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:([:h.])(\d{2})?)?\s*(am|pm)?\b`)

// ParseClock parses a whole string as a time of day. A bare hour is
// accepted here since the prompt asked for a time.
func ParseClock(s string) (Clock, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	m := clockRe.FindStringSubmatch(s)
	if m == nil || m[0] != s {
		return Clock{}, fmt.Errorf("%w: %q is not a time", ErrUnparseable, s)
	}
	c, ok := clockFromMatch(m)
	if !ok {
		return Clock{}, fmt.Errorf("%w: %q is not a time", ErrUnparseable, s)
	}
	return c, nil
}

// FindClock locates the first explicit time of day in free text. Bare
// numbers are not times here; a separator or am/pm is required.
func FindClock(s string) (Clock, string, bool) {
	for _, loc := range clockRe.FindAllStringSubmatchIndex(s, -1) {
		m := submatches(s, loc)
		if m[2] == "" && m[4] == "" {
			continue
		}
		if m[2] == "." && m[3] == "" {
			continue
		}
		if partOfDate(s, loc[0], loc[1]) {
			continue
		}
		if c, ok := clockFromMatch(m); ok {
			return c, m[0], true
		}
	}
	return Clock{}, "", false
}

// StripClocks removes every explicit time of day from s.
func StripClocks(s string) string {
	for {
		_, match, ok := FindClock(s)
		if !ok {
			return s
		}
		s = strings.Replace(s, match, " ", 1)
	}
}

// partOfDate reports whether s[start:end] is a piece of a dotted or slashed
// date such as 10.03.2026.
func partOfDate(s string, start, end int) bool {
	if start > 0 && (s[start-1] == '.' || s[start-1] == '/') {
		return true
	}
	return dateTailRe.MatchString(s[end:])
}

var dateTailRe = regexp.MustCompile(`^[./]\d`)

func submatches(s string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}

func clockFromMatch(m []string) (Clock, bool) {
	h, err := strconv.Atoi(m[1])
	if err != nil {
		return Clock{}, false
	}
	minute := 0
	if m[3] != "" {
		minute, _ = strconv.Atoi(m[3])
	}
	switch strings.ToLower(m[4]) {
	case "am":
		if h < 1 || h > 12 {
			return Clock{}, false
		}
		if h == 12 {
			h = 0
		}
	case "pm":
		if h < 1 || h > 12 {
			return Clock{}, false
		}
		if h != 12 {
			h += 12
		}
	}
	if h > 23 || minute > 59 {
		return Clock{}, false
	}
	return Clock{Hour: h, Minute: minute}, true
}

// CheckFuture rejects t when it is earlier than now minus grace.
func CheckFuture(t, now time.Time, grace time.Duration) error {
	if t.Before(now.Add(-grace)) {
		return ErrInPast
	}
	return nil
}
