package assistant

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zulandar/agenda/internal/auth"
	"github.com/zulandar/agenda/internal/calendar"
	"github.com/zulandar/agenda/internal/chat"
	"github.com/zulandar/agenda/internal/idempotency"
	"github.com/zulandar/agenda/internal/logging"
	"github.com/zulandar/agenda/internal/session"
)

// Handle processes one inbound message end to end. Routing order:
//  1. Duplicate or in-flight message id → drop silently
//  2. Unauthenticated sender → registration / login flow
//  3. Control command (menu, cancel, help, logout) → command handler
//  4. Pending yes/no confirmation → confirmation handler
//  5. Reply to a message that listed entities → quick action
//  6. Current wizard state → state handler (idle falls through to the
//     numeric menu and then the classifier)
//
// Handle never returns an error: failures become one apology and release
// the message for a retry.
func (a *Assistant) Handle(ctx context.Context, msg chat.InboundMessage) {
	start := time.Now()
	log := a.logger.With(logging.MessageID(msg.MessageID), zap.String("from", msg.From))

	ticket, decision := a.guard.Admit(ctx, msg.MessageID)
	switch decision {
	case idempotency.Processed:
		a.metrics.Inbound.WithLabelValues("duplicate").Inc()
		log.Debug("dropping processed message")
		return
	case idempotency.InFlight:
		a.metrics.Inbound.WithLabelValues("busy").Inc()
		log.Debug("dropping in-flight duplicate")
		return
	}
	if ticket.FailOpen {
		a.metrics.StoreErrors.WithLabelValues("admit").Inc()
	}
	defer func() {
		a.metrics.HandleLatency.Observe(time.Since(start).Seconds())
	}()

	defer func() {
		if p := recover(); p != nil {
			log.Error("panic while handling message", zap.Any("panic", p), zap.ByteString("stack", debug.Stack()))
			a.metrics.Inbound.WithLabelValues("error").Inc()
			a.apologize(ctx, msg, log)
			ticket.Abort(ctx)
		}
	}()

	if err := a.handle(ctx, msg, log); err != nil {
		log.Error("handling message failed", zap.Error(err))
		a.metrics.Inbound.WithLabelValues("error").Inc()
		a.apologize(ctx, msg, log)
		ticket.Abort(ctx)
		return
	}
	a.metrics.Inbound.WithLabelValues("handled").Inc()
	ticket.Complete(ctx)
}

func (a *Assistant) apologize(ctx context.Context, msg chat.InboundMessage, log *zap.Logger) {
	if _, err := chat.Send(ctx, a.adapter, msg.From, msgApology); err != nil {
		log.Warn("send apology failed", zap.Error(err))
	}
}

func (a *Assistant) handle(ctx context.Context, msg chat.InboundMessage, log *zap.Logger) error {
	text := strings.TrimSpace(msg.Text)

	res, err := a.gate.Check(ctx, msg.From, text)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if res.Outcome != auth.Pass {
		a.deliver(ctx, msg, "", log, []reply{{text: authReply(res)}}, false)
		return nil
	}

	user, err := calendar.GetUser(a.db.WithContext(ctx), res.UserID)
	if err != nil {
		// The auth record outlived the account; force a fresh login.
		log.Warn("authenticated user missing", logging.UserID(res.UserID), zap.Error(err))
		if err := a.gate.Logout(ctx, msg.From); err != nil {
			return err
		}
		a.deliver(ctx, msg, "", log, []reply{{text: msgLoggedOut}}, false)
		return nil
	}

	t := &turn{
		msg:    msg,
		text:   text,
		userID: user.ID,
		name:   user.Name,
		loc:    a.location(user.Timezone),
		now:    a.now(),
		log:    log.With(logging.UserID(user.ID)),
	}
	if err := a.sessions.AddHistory(ctx, t.userID, session.RoleUser, text); err != nil {
		t.log.Warn("record history failed", zap.Error(err))
	}

	if err := a.dispatch(ctx, t); err != nil {
		return err
	}
	a.deliver(ctx, msg, t.userID, t.log, t.replies, t.react)
	return nil
}

// dispatch runs the routing chain for an authenticated turn.
func (a *Assistant) dispatch(ctx context.Context, t *turn) error {
	if cmd, ok := parseCommand(t.text); ok {
		return a.runCommand(ctx, t, cmd)
	}

	handled, err := a.handlePending(ctx, t)
	if err != nil || handled {
		return err
	}

	if t.msg.Quoted != nil && t.msg.Quoted.MessageID != "" {
		handled, err := a.handleQuick(ctx, t)
		if err != nil || handled {
			return err
		}
	}

	sess, err := a.sessions.Get(ctx, t.userID)
	if err != nil {
		return err
	}
	next, err := a.runState(ctx, t, sess)
	if err != nil {
		return err
	}
	if next != nil {
		return a.sessions.Set(ctx, t.userID, next)
	}
	return nil
}

// authReply renders a non-pass auth outcome.
func authReply(res auth.Result) string {
	switch res.Outcome {
	case auth.AskName:
		return msgAskName
	case auth.InvalidName:
		return msgInvalidName
	case auth.AskNewPIN:
		return msgAskNewPIN
	case auth.InvalidPIN:
		return msgInvalidPIN
	case auth.Registered:
		return fmt.Sprintf("All set, %s! You're registered.\n\n%s", res.Name, menuText)
	case auth.AskPIN:
		return msgAskPIN
	case auth.WrongPIN:
		return fmt.Sprintf("Wrong PIN. %d attempt(s) left.", res.Remaining)
	case auth.LoggedIn:
		return "You're in.\n\n" + menuText
	case auth.LockedOut:
		return msgLockedOut
	}
	return msgApology
}

// deliver sends replies in order once the turn's effects are committed,
// so a failed send is logged and never retried. Listings are mapped to the
// sent message so replies can act on them, and carry the usage hint while
// the user has seen it fewer times than the cap.
func (a *Assistant) deliver(ctx context.Context, msg chat.InboundMessage, userID string, log *zap.Logger, replies []reply, react bool) {
	for _, r := range replies {
		text := r.text
		if len(r.refs) > 0 && userID != "" {
			hint, err := a.quick.ShouldHint(ctx, userID)
			if err != nil {
				a.metrics.StoreErrors.WithLabelValues("hint").Inc()
				log.Warn("hint counter failed", zap.Error(err))
			}
			if hint {
				text += "\n\n" + msgHint
			}
		}
		id, err := chat.Send(ctx, a.adapter, msg.From, text)
		if err != nil {
			log.Error("send reply failed", zap.Error(err))
			return
		}
		a.metrics.Replies.Inc()
		if len(r.refs) > 0 && id != "" {
			if err := a.quick.Map(ctx, id, r.refs); err != nil {
				a.metrics.StoreErrors.WithLabelValues("map").Inc()
				log.Warn("store entity mapping failed", zap.Error(err))
			}
		}
		if userID != "" {
			if err := a.sessions.AddHistory(ctx, userID, session.RoleAssistant, text); err != nil {
				log.Warn("record history failed", zap.Error(err))
			}
		}
	}
	if react && msg.MessageID != "" {
		if err := a.adapter.ReactToMessage(ctx, msg.From, msg.MessageID, "✅"); err != nil {
			log.Warn("react failed", zap.Error(err))
		}
	}
}
