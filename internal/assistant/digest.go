package assistant

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/chat"
	"github.com/zulandar/agenda/internal/logging"
	"github.com/zulandar/agenda/internal/models"
)

// digestParser reads standard 5-field cron expressions (minute, hour, dom, month, dow).
var digestParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// nextCronDuration returns the time from now until expr next fires in loc.
// It returns 0 when expr does not parse.
func nextCronDuration(expr string, now time.Time, loc *time.Location) time.Duration {
	sched, err := digestParser.Parse(expr)
	if err != nil {
		return 0
	}
	d := sched.Next(now.In(loc)).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// runDigest sends the morning agenda on the configured cron until ctx is
// cancelled. It returns immediately when the digest is disabled.
func (a *Assistant) runDigest(ctx context.Context) {
	cfg := a.cfg.Digest
	if !cfg.Enabled {
		return
	}
	d := nextCronDuration(cfg.Cron, a.now(), a.defaultLoc)
	if d <= 0 {
		a.logger.Warn("digest disabled: bad cron expression", zap.String("cron", cfg.Cron))
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			sent := a.SendDigests(ctx)
			a.logger.Info("digest sent", zap.Int("users", sent))
			if d := nextCronDuration(cfg.Cron, a.now(), a.defaultLoc); d > 0 {
				timer.Reset(d)
			}
		}
	}
}

// SendDigests sends each user today's agenda, in the user's own zone.
// Users with an empty day get nothing. It returns how many were sent.
func (a *Assistant) SendDigests(ctx context.Context) int {
	db := a.db.WithContext(ctx)
	users, err := calendar.ListUsers(db)
	if err != nil {
		a.logger.Error("digest: list users failed", zap.Error(err))
		return 0
	}
	sent := 0
	for _, u := range users {
		if ctx.Err() != nil {
			break
		}
		if a.sendDigest(ctx, u) {
			sent++
		}
	}
	return sent
}

func (a *Assistant) sendDigest(ctx context.Context, u models.User) bool {
	log := a.logger.With(logging.UserID(u.ID))
	loc := a.location(u.Timezone)
	n := a.now().In(loc)
	today := time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)

	items, err := calendar.Agenda(a.db.WithContext(ctx), u.ID, today, today.AddDate(0, 0, 1))
	if err != nil {
		log.Error("digest: load agenda failed", zap.Error(err))
		return false
	}
	if len(items) == 0 {
		return false
	}
	text := enumerate(fmt.Sprintf("Good morning, %s! Today you have:", u.Name), items, loc)
	id, err := chat.Send(ctx, a.adapter, u.Phone, text)
	if err != nil {
		log.Warn("digest: send failed", zap.Error(err))
		return false
	}
	a.metrics.Replies.Inc()
	if err := a.quick.Map(ctx, id, refsOf(items)); err != nil {
		a.metrics.StoreErrors.WithLabelValues("map").Inc()
		log.Warn("digest: store entity mapping failed", zap.Error(err))
	}
	return true
}
