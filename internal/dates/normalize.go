package dates

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/zulandar/agenda/internal/fuzzy"
)

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday, "domingo": time.Sunday, "dom": time.Sunday,
	"monday": time.Monday, "mon": time.Monday, "segunda": time.Monday, "seg": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "terca": time.Tuesday, "ter": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday, "quarta": time.Wednesday, "qua": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "quinta": time.Thursday, "qui": time.Thursday,
	"friday": time.Friday, "fri": time.Friday, "sexta": time.Friday, "sex": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday, "sabado": time.Saturday, "sab": time.Saturday,
}

// Day-first layouts; users of this bot write dd/mm.
var dayFirstLayouts = []string{
	"2/1/2006", "2-1-2006", "2.1.2006", "2006-01-02", "2/1/06",
}

var dayMonthRe = regexp.MustCompile(`^(\d{1,2})[/.-](\d{1,2})$`)

var relativeRe = regexp.MustCompile(`^(?:in|em|daqui a)\s+(\d+)\s+(minutes?|mins?|hours?|hrs?|days?|weeks?|minutos?|horas?|dias?|semanas?)$`)

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ParseDate resolves a user-typed date relative to now, in now's location,
// and returns midnight of that day. Relative words and weekday names are
// tried first, then day-first numeric layouts, then a general parser.
func ParseDate(text string, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(strings.ToLower(text))
	norm := fuzzy.Normalize(text)
	today := StartOfDay(now)
	if norm == "" {
		return time.Time{}, ErrUnparseable
	}

	switch norm {
	case "today", "hoje":
		return today, nil
	case "tomorrow", "amanha":
		return today.AddDate(0, 0, 1), nil
	case "day after tomorrow", "depois de amanha":
		return today.AddDate(0, 0, 2), nil
	}
	if m := relativeRe.FindStringSubmatch(norm); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch unit := m[2]; {
		case strings.HasPrefix(unit, "d"):
			return today.AddDate(0, 0, n), nil
		case strings.HasPrefix(unit, "w"), strings.HasPrefix(unit, "s"):
			return today.AddDate(0, 0, 7*n), nil
		}
	}
	if wd, ok := weekdayIn(norm); ok {
		return nextWeekday(today, wd), nil
	}

	if m := dayMonthRe.FindStringSubmatch(raw); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		if t, ok := dayInYear(now.Year(), mo, d, now.Location()); ok {
			if t.Before(today) {
				t, _ = dayInYear(now.Year()+1, mo, d, now.Location())
			}
			return t, nil
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, text)
	}
	for _, layout := range dayFirstLayouts {
		if t, err := time.ParseInLocation(layout, raw, now.Location()); err == nil {
			return t, nil
		}
	}
	if t, err := dateparse.ParseIn(strings.TrimSpace(text), now.Location()); err == nil {
		return StartOfDay(t.In(now.Location())), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, text)
}

func weekdayIn(norm string) (time.Weekday, bool) {
	for _, w := range strings.Fields(norm) {
		switch w {
		case "next", "proxima", "proximo", "on", "na", "no", "this", "essa", "esta", "feira":
			continue
		}
		wd, ok := weekdays[w]
		return wd, ok
	}
	return 0, false
}

// nextWeekday returns the next date after today falling on wd.
func nextWeekday(today time.Time, wd time.Weekday) time.Time {
	diff := (int(wd) - int(today.Weekday()) + 7) % 7
	if diff == 0 {
		diff = 7
	}
	return today.AddDate(0, 0, diff)
}

func dayInYear(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ParseDateTime resolves text holding a date and a time of day, or a
// relative offset such as "in 2 hours". When only a time is given it means
// today, or tomorrow once that time has passed.
func ParseDateTime(text string, now time.Time) (time.Time, error) {
	norm := fuzzy.Normalize(text)
	if m := relativeRe.FindStringSubmatch(norm); m != nil {
		n, _ := strconv.Atoi(m[1])
		switch unit := m[2]; {
		case strings.HasPrefix(unit, "min"):
			return now.Add(time.Duration(n) * time.Minute).Truncate(time.Minute), nil
		case strings.HasPrefix(unit, "h"):
			return now.Add(time.Duration(n) * time.Hour).Truncate(time.Minute), nil
		}
	}

	clock, match, ok := FindClock(text)
	if !ok {
		// Absolute timestamps ("2026-03-10 15:00") carry their own clock.
		if t, err := dateparse.ParseIn(strings.TrimSpace(text), now.Location()); err == nil && (t.Hour() != 0 || t.Minute() != 0) {
			return t.In(now.Location()), nil
		}
		if _, err := ParseDate(text, now); err == nil {
			return time.Time{}, ErrNoTime
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, text)
	}

	rest := strings.TrimSpace(strings.Replace(text, match, " ", 1))
	rest = strings.TrimSpace(stripConnectives(rest))
	if rest == "" {
		t := clock.On(now)
		if t.Before(now) {
			t = clock.On(now.AddDate(0, 0, 1))
		}
		return t, nil
	}
	day, err := ParseDate(rest, now)
	if err != nil {
		return time.Time{}, err
	}
	return clock.On(day), nil
}

var connectiveRe = regexp.MustCompile(`(?i)(^|\s)(at|as|às|a|@|on|em|no|na|de)(\s|$)`)

func stripConnectives(s string) string {
	prev := ""
	for prev != s {
		prev = s
		s = connectiveRe.ReplaceAllString(s, " ")
	}
	return strings.Join(strings.Fields(s), " ")
}
