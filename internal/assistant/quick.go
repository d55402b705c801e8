package assistant

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zulandar/agenda/internal/models"
	"github.com/zulandar/agenda/internal/quickaction"
)

// handleQuick acts on a reply to a message that listed entities. Replies it
// cannot read leave an entity context for the classifier and fall through.
func (a *Assistant) handleQuick(ctx context.Context, t *turn) (bool, error) {
	res, err := a.resolver.Resolve(ctx, t.userID, t.msg.Quoted.MessageID, t.text)
	if err != nil {
		a.metrics.StoreErrors.WithLabelValues("quick_action").Inc()
		t.log.Warn("quick action lookup failed", zap.Error(err))
		return false, nil
	}
	a.metrics.QuickActions.WithLabelValues(res.Outcome.String()).Inc()

	switch res.Outcome {
	case quickaction.NeedIndex:
		t.say(fmt.Sprintf("That message lists %d items. Which one? For example: \"%s 2\".", res.Count, res.Action))
		return true, nil
	case quickaction.OutOfRange:
		t.say(outOfRange(res.Count))
		return true, nil
	case quickaction.Resolved:
	default:
		return false, nil
	}

	it, ok, err := a.resolve(ctx, t, res.Target)
	if err != nil || !ok {
		return true, err
	}
	switch res.Action {
	case quickaction.ActionDelete:
		return true, a.askDelete(ctx, t, it)

	case quickaction.ActionComplete:
		if it.Ref.Kind != models.KindTask {
			t.say(msgOnlyTasks)
			return true, nil
		}
		_, err := a.completeNow(ctx, t, it.Ref.ID, it.Title)
		return true, err

	case quickaction.ActionUpdate:
		next, err := a.moveTo(ctx, t, it, a.onItemDay(t, it, res.Clock))
		if err != nil {
			return true, err
		}
		return true, a.keep(ctx, t, next)
	}
	return false, nil
}
