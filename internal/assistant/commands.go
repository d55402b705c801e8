package assistant

import (
	"context"

	"github.com/zulandar/agenda/internal/fuzzy"
)

// command is a control command. Commands match the whole message exactly
// and run before anything else, so a stuck flow can always be left.
type command int

const (
	cmdMenu command = iota + 1
	cmdCancel
	cmdHelp
	cmdLogout
)

var commands = map[string]command{
	"menu":     cmdMenu,
	"reset":    cmdMenu,
	"start":    cmdMenu,
	"inicio":   cmdMenu,
	"cancel":   cmdCancel,
	"cancelar": cmdCancel,
	"stop":     cmdCancel,
	"parar":    cmdCancel,
	"help":     cmdHelp,
	"ajuda":    cmdHelp,
	"logout":   cmdLogout,
	"sair":     cmdLogout,
}

// parseCommand reports the command text names, ignoring case, accents and a
// leading slash.
func parseCommand(text string) (command, bool) {
	t := fuzzy.Normalize(text)
	if len(text) > 0 && text[0] == '/' {
		t = fuzzy.Normalize(text[1:])
	}
	cmd, ok := commands[t]
	return cmd, ok
}

func (a *Assistant) runCommand(ctx context.Context, t *turn, cmd command) error {
	switch cmd {
	case cmdMenu:
		if err := a.discardFlow(ctx, t.userID); err != nil {
			return err
		}
		t.say(menuText)

	case cmdCancel:
		if err := a.discardFlow(ctx, t.userID); err != nil {
			return err
		}
		t.say(msgCancelled, "", menuText)

	case cmdHelp:
		t.say(helpText)

	case cmdLogout:
		if err := a.confirms.Clear(ctx, t.userID); err != nil {
			return err
		}
		if err := a.sessions.Clear(ctx, t.userID); err != nil {
			return err
		}
		if err := a.gate.Logout(ctx, t.msg.From); err != nil {
			return err
		}
		t.say(msgLoggedOut)
	}
	return nil
}

// discardFlow drops the wizard context and any pending confirmation.
func (a *Assistant) discardFlow(ctx context.Context, userID string) error {
	if err := a.confirms.Clear(ctx, userID); err != nil {
		return err
	}
	return a.sessions.Reset(ctx, userID)
}
