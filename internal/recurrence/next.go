// Package recurrence computes occurrences of repeating reminders and splits
// time changes between a single occurrence and the whole series.
package recurrence

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zulandar/agenda/internal/models"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// Expr returns the cron expression that repeats r at anchor's wall-clock
// time. Monthly series anchored on the 29th-31st skip months without that
// day.
func Expr(r models.Recurrence, anchor time.Time) (string, error) {
	m, h := anchor.Minute(), anchor.Hour()
	switch r {
	case models.RecurDaily:
		return fmt.Sprintf("%d %d * * *", m, h), nil
	case models.RecurWeekdays:
		return fmt.Sprintf("%d %d * * 1-5", m, h), nil
	case models.RecurWeekly:
		return fmt.Sprintf("%d %d * * %d", m, h, int(anchor.Weekday())), nil
	case models.RecurMonthly:
		return fmt.Sprintf("%d %d %d * *", m, h, anchor.Day()), nil
	case models.RecurYearly:
		return fmt.Sprintf("%d %d %d %d *", m, h, anchor.Day(), int(anchor.Month())), nil
	}
	return "", fmt.Errorf("recurrence: %q does not repeat", r)
}

// Next returns the first occurrence of the series at or after
// max(anchor, now), in anchor's location. A one-shot returns its anchor.
// The result is never before now for a repeating series.
func Next(r models.Recurrence, anchor, now time.Time) (time.Time, error) {
	if r == "" || r == models.RecurNone {
		return anchor, nil
	}
	expr, err := Expr(r, anchor)
	if err != nil {
		return time.Time{}, err
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("recurrence: parse %q: %w", expr, err)
	}
	from := now
	if anchor.After(now) {
		from = anchor
	}
	// Next is strictly after its argument; step back so an occurrence
	// exactly at from counts.
	next := sched.Next(from.In(anchor.Location()).Add(-time.Second))
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("recurrence: no future occurrence for %q", expr)
	}
	return next, nil
}

// After returns the occurrence following the one at prev.
func After(r models.Recurrence, anchor, prev time.Time) (time.Time, error) {
	return Next(r, anchor, prev.Add(time.Minute))
}
