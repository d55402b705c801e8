package assistant

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/chat"
	"github.com/zulandar/agenda/internal/logging"
	"github.com/zulandar/agenda/internal/models"
	"github.com/zulandar/agenda/internal/recurrence"
	"github.com/zulandar/agenda/internal/scheduler"
	"github.com/zulandar/agenda/internal/session"
)

// Deliver sends a due reminder. It is the scheduler's job handler. A
// recurring reminder is rescheduled for its following occurrence; a
// one-shot is retired once the user has it.
func (a *Assistant) Deliver(ctx context.Context, jobID string, p scheduler.Payload) {
	log := a.logger.With(zap.String("job_id", jobID), logging.UserID(p.UserID))
	if p.Kind != string(models.KindReminder) {
		log.Warn("unknown job kind", zap.String("kind", p.Kind))
		return
	}
	db := a.db.WithContext(ctx)

	rem, err := calendar.GetReminder(db, p.UserID, p.EntityID)
	if errors.Is(err, calendar.ErrNotFound) {
		log.Debug("reminder gone before it fired")
		return
	}
	if err != nil {
		a.metrics.StoreErrors.WithLabelValues("reminder").Inc()
		log.Error("load reminder failed", zap.Error(err))
		return
	}
	if !rem.Active {
		return
	}
	user, err := calendar.GetUser(db, rem.UserID)
	if err != nil {
		log.Error("load reminder owner failed", zap.Error(err))
		return
	}
	loc := a.location(user.Timezone)
	now := a.now()

	text := fmt.Sprintf("⏰ Reminder: %s", rem.Title)
	id, sendErr := chat.Send(ctx, a.adapter, user.Phone, text)
	if sendErr != nil {
		log.Error("send reminder failed", zap.Error(sendErr))
	} else {
		a.metrics.RemindersFired.Inc()
		a.metrics.Replies.Inc()
		ref := models.EntityRef{Kind: models.KindReminder, ID: rem.ID}
		if err := a.quick.Map(ctx, id, []models.EntityRef{ref}); err != nil {
			a.metrics.StoreErrors.WithLabelValues("map").Inc()
			log.Warn("store entity mapping failed", zap.Error(err))
		}
		if err := a.sessions.AddHistory(ctx, user.ID, session.RoleAssistant, text); err != nil {
			log.Warn("record history failed", zap.Error(err))
		}
	}

	if rem.Recurring() {
		next, err := recurrence.After(rem.Recurrence, rem.RemindAt.In(loc), now)
		if err != nil {
			log.Error("compute next occurrence failed", zap.Error(err))
			return
		}
		if err := a.sch.Schedule(ctx, rem.JobID(), recurrence.ReminderPayload(*rem), next); err != nil {
			log.Error("schedule next occurrence failed", zap.Error(err))
			return
		}
		log.Debug("reminder rescheduled", zap.Time("next", next))
		return
	}
	// An undelivered one-shot stays active and fires again on the next Reload.
	if sendErr != nil {
		return
	}
	if err := calendar.DeactivateReminder(db, rem.UserID, rem.ID); err != nil {
		log.Error("retire reminder failed", zap.Error(err))
	}
}

// Reload schedules every active reminder. It runs at startup because
// scheduled jobs live in memory.
func (a *Assistant) Reload(ctx context.Context) (int, error) {
	db := a.db.WithContext(ctx)
	rems, err := calendar.ActiveReminders(db)
	if err != nil {
		return 0, fmt.Errorf("assistant: load reminders: %w", err)
	}
	locs := make(map[string]*time.Location)
	now := a.now()
	armed := 0
	for _, r := range rems {
		loc, ok := locs[r.UserID]
		if !ok {
			loc = a.defaultLoc
			if u, err := calendar.GetUser(db, r.UserID); err == nil {
				loc = a.location(u.Timezone)
			}
			locs[r.UserID] = loc
		}
		if _, err := recurrence.Arm(ctx, a.sch, r, loc, now); err != nil {
			a.logger.Warn("arm reminder failed", zap.String("reminder_id", r.ID), zap.Error(err))
			continue
		}
		armed++
	}
	a.logger.Info("reminders scheduled", zap.Int("count", armed), zap.Int("active", len(rems)))
	return armed, nil
}
