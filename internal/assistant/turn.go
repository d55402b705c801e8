package assistant

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zulandar/agenda/internal/chat"
	"github.com/zulandar/agenda/internal/models"
)

// turn is one admitted message from an authenticated user, and the replies
// built while handling it.
type turn struct {
	msg    chat.InboundMessage
	text   string
	userID string
	name   string
	loc    *time.Location
	now    time.Time
	log    *zap.Logger

	replies []reply
	react   bool
}

// reply is one outbound message. Listing replies carry the entities they
// enumerate so the sent message can be quoted later.
type reply struct {
	text string
	refs []models.EntityRef
}

func (t *turn) say(lines ...string) {
	t.replies = append(t.replies, reply{text: strings.Join(lines, "\n")})
}

func (t *turn) list(text string, refs []models.EntityRef) {
	t.replies = append(t.replies, reply{text: text, refs: refs})
}

// done marks the turn as a completed action, acknowledged with a reaction
// on the user's message.
func (t *turn) done(text string) {
	t.react = true
	t.say(text)
}

// local converts an instant to the user's zone.
func (t *turn) local(at time.Time) time.Time {
	return at.In(t.loc)
}

// today returns midnight of the user's current day.
func (t *turn) today() time.Time {
	n := t.now.In(t.loc)
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, t.loc)
}
