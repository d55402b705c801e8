package assistant

import (
	"context"
	"fmt"

	"github.com/zulandar/agenda/internal/confirm"
	"github.com/zulandar/agenda/internal/session"
)

// handlePending answers the user's pending confirmation, if any. Yes runs
// the action, no discards it; anything else repeats the question and keeps
// the record until it expires.
func (a *Assistant) handlePending(ctx context.Context, t *turn) (bool, error) {
	p, err := a.confirms.Peek(ctx, t.userID)
	if err != nil {
		return false, err
	}
	if p == nil {
		return false, nil
	}

	answer := confirm.Match(t.text)
	a.metrics.Confirmations.WithLabelValues(answer.String()).Inc()
	switch answer {
	case confirm.Yes:
		taken, err := a.confirms.Take(ctx, t.userID)
		if err != nil {
			return true, err
		}
		if taken == nil {
			// Expired or answered by a concurrent message.
			a.metrics.Confirmations.WithLabelValues("expired").Inc()
			t.say(msgKeptAsIs)
			return true, nil
		}
		next, err := a.execute(ctx, t, taken)
		if err != nil {
			return true, err
		}
		return true, a.keep(ctx, t, next)

	case confirm.No:
		if _, err := a.confirms.Take(ctx, t.userID); err != nil {
			return true, err
		}
		t.say(msgKeptAsIs)
		return true, nil
	}

	t.say(pendingPrompt(p), msgYesNo)
	return true, nil
}

// keep stores next unless it is the menu, so an action taken outside the
// wizard does not wipe a flow in progress.
func (a *Assistant) keep(ctx context.Context, t *turn, next session.Record) error {
	if next == nil {
		return nil
	}
	if _, idle := next.(session.Idle); idle {
		return nil
	}
	return a.sessions.Set(ctx, t.userID, next)
}

func pendingPrompt(p *confirm.Pending) string {
	switch p.Action {
	case confirm.ActionDelete:
		return deletePrompt(p.EntityLabel)
	case confirm.ActionReschedule:
		if p.NewTime != nil {
			return reschedulePrompt(p.EntityLabel, *p.NewTime)
		}
	case confirm.ActionComplete:
		return fmt.Sprintf("Mark %q as done? (yes/no)", p.EntityLabel)
	}
	return fmt.Sprintf("Confirm %q? (yes/no)", p.EntityLabel)
}
