package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/dates"
	"github.com/zulandar/agenda/internal/models"
	"github.com/zulandar/agenda/internal/scheduler"
)

// ErrNotRecurring is returned when a split targets a one-shot reminder.
var ErrNotRecurring = errors.New("recurrence: reminder does not repeat")

// Scope says which occurrences a time change applies to.
type Scope int

const (
	// ThisOccurrence creates a one-shot copy at the new time and leaves the
	// series alone.
	ThisOccurrence Scope = iota + 1
	// AllOccurrences moves the series anchor and reschedules its job.
	AllOccurrences
)

// ReminderPayload is the scheduler payload for r.
func ReminderPayload(r models.Reminder) scheduler.Payload {
	return scheduler.Payload{Kind: string(models.KindReminder), UserID: r.UserID, EntityID: r.ID}
}

// Arm schedules r's job at its next occurrence from now, in loc, and returns
// that time. One-shot reminders fire at RemindAt, immediately when overdue.
func Arm(ctx context.Context, sch scheduler.Scheduler, r models.Reminder, loc *time.Location, now time.Time) (time.Time, error) {
	at, err := Next(r.Recurrence, r.RemindAt.In(loc), now)
	if err != nil {
		return time.Time{}, err
	}
	if err := sch.Schedule(ctx, r.JobID(), ReminderPayload(r), at); err != nil {
		return time.Time{}, err
	}
	return at, nil
}

// Retime returns the next occurrence of r, from now, once its time of day
// is moved to clock. Days follow the series in loc.
func Retime(r models.Reminder, clock dates.Clock, loc *time.Location, now time.Time) (time.Time, error) {
	return Next(r.Recurrence, clock.On(r.RemindAt.In(loc)), now)
}

// SplitterOpts holds parameters for creating a Splitter.
type SplitterOpts struct {
	DB        *gorm.DB
	Scheduler scheduler.Scheduler
	Now       func() time.Time
	// Grace is how far in the past a new time may be and still be taken.
	Grace  time.Duration
	Logger *zap.Logger
}

// Splitter applies a time change to a recurring reminder.
type Splitter struct {
	db     *gorm.DB
	sch    scheduler.Scheduler
	now    func() time.Time
	grace  time.Duration
	logger *zap.Logger
}

// NewSplitter creates a Splitter.
func NewSplitter(opts SplitterOpts) (*Splitter, error) {
	if opts.DB == nil {
		return nil, errors.New("recurrence: db is required")
	}
	if opts.Scheduler == nil {
		return nil, errors.New("recurrence: scheduler is required")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Splitter{db: opts.DB, sch: opts.Scheduler, now: opts.Now, grace: opts.Grace, logger: opts.Logger}, nil
}

// Result describes the reminder a split produced or changed.
type Result struct {
	Reminder *models.Reminder
	At       time.Time // next fire time
	// Previous is when the series would have fired next before the change.
	Previous time.Time
}

// Split moves reminderID to at for scope. ThisOccurrence adds a one-shot
// reminder at exactly at and leaves the series alone. AllOccurrences
// re-anchors the series on at, so later occurrences keep at's time of day
// and, for weekly and longer series, its day. Times are read in loc so
// weekdays and days of month follow the user's calendar. A time in the past
// returns dates.ErrInPast.
func (s *Splitter) Split(ctx context.Context, userID, reminderID string, scope Scope, at time.Time, loc *time.Location) (*Result, error) {
	db := s.db.WithContext(ctx)
	rem, err := calendar.GetReminder(db, userID, reminderID)
	if err != nil {
		return nil, err
	}
	if !rem.Recurring() {
		return nil, ErrNotRecurring
	}
	now := s.now()
	if err := dates.CheckFuture(at, now, s.grace); err != nil {
		return nil, err
	}
	at = at.In(loc)
	prev, err := Next(rem.Recurrence, rem.RemindAt.In(loc), now)
	if err != nil {
		return nil, err
	}

	switch scope {
	case ThisOccurrence:
		one, err := calendar.CreateReminder(db, calendar.ReminderOpts{
			UserID:   userID,
			Title:    rem.Title,
			RemindAt: at,
			ParentID: rem.ID,
		})
		if err != nil {
			return nil, err
		}
		if err := s.sch.Schedule(ctx, one.JobID(), ReminderPayload(*one), at); err != nil {
			if derr := calendar.DeleteReminder(db, userID, one.ID); derr != nil {
				s.logger.Warn("occurrence rollback failed", zap.String("occurrence_id", one.ID), zap.Error(derr))
			}
			return nil, fmt.Errorf("recurrence: schedule occurrence: %w", err)
		}
		s.logger.Info("occurrence split",
			zap.String("reminder_id", rem.ID), zap.String("occurrence_id", one.ID), zap.Time("at", at))
		return &Result{Reminder: one, At: at, Previous: prev}, nil

	case AllOccurrences:
		next, err := Next(rem.Recurrence, at, now)
		if err != nil {
			return nil, err
		}
		if err := calendar.SetReminderAnchor(db, userID, rem.ID, at); err != nil {
			return nil, err
		}
		if err := s.sch.Cancel(ctx, rem.JobID()); err != nil {
			return nil, fmt.Errorf("recurrence: cancel series job: %w", err)
		}
		rem.RemindAt = at.UTC()
		if err := s.sch.Schedule(ctx, rem.JobID(), ReminderPayload(*rem), next); err != nil {
			return nil, fmt.Errorf("recurrence: reschedule series: %w", err)
		}
		s.logger.Info("series moved", zap.String("reminder_id", rem.ID), zap.Time("at", next))
		return &Result{Reminder: rem, At: next, Previous: prev}, nil
	}
	return nil, fmt.Errorf("recurrence: unknown scope %d", scope)
}
