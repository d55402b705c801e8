package quickaction

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/zulandar/agenda/internal/dates"
	"github.com/zulandar/agenda/internal/fuzzy"
	"github.com/zulandar/agenda/internal/models"
)

// Action is the operation a reply asks for.
type Action int

const (
	ActionNone Action = iota
	ActionDelete
	ActionComplete
	ActionUpdate
)

func (a Action) String() string {
	switch a {
	case ActionDelete:
		return "delete"
	case ActionComplete:
		return "complete"
	case ActionUpdate:
		return "update"
	}
	return "none"
}

// Outcome classifies a resolution.
type Outcome int

const (
	// NotHandled means normal dispatch should continue.
	NotHandled Outcome = iota
	// Resolved carries an action and its target.
	Resolved
	// NeedIndex means the quoted message listed several entities and the
	// reply named none of them.
	NeedIndex
	// OutOfRange means the reply named a position the message never listed.
	OutOfRange
)

func (o Outcome) String() string {
	switch o {
	case Resolved:
		return "resolved"
	case NeedIndex:
		return "need_index"
	case OutOfRange:
		return "out_of_range"
	}
	return "not_handled"
}

// Resolution is the result of matching a reply against a mapping.
type Resolution struct {
	Outcome Outcome
	Action  Action
	Target  models.EntityRef
	Clock   dates.Clock // set for ActionUpdate
	Count   int         // entities listed by the quoted message
}

// Vocabulary is matched against normalized words, so accents are optional.
var (
	deleteWords   = words("delete remove cancel del rm apagar apaga apague deletar deleta excluir exclui exclua remover remova cancelar cancela cancele")
	completeWords = words("done complete completed finish finished check concluir conclui concluida concluido feito feita pronto pronta terminei fiz")
	updateWords   = words("move change reschedule update edit postpone push mudar muda mude alterar altera altere remarcar remarca remarque adiar adia adie mover move passar passa")
)

func words(s string) map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		m[w] = true
	}
	return m
}

// Parse matches text against refs without touching any store.
func Parse(text string, refs []models.EntityRef) Resolution {
	res := Resolution{Count: len(refs)}
	if len(refs) == 0 {
		return res
	}
	clock, _, hasClock := dates.FindClock(text)
	tokens := strings.Fields(fuzzy.Normalize(dates.StripClocks(text)))

	action := ActionNone
	for _, t := range tokens {
		switch {
		case deleteWords[t]:
			action = ActionDelete
		case completeWords[t]:
			action = ActionComplete
		case updateWords[t] && hasClock:
			action = ActionUpdate
		}
		if action != ActionNone {
			break
		}
	}
	if action == ActionNone {
		return res
	}

	target := refs[0]
	if len(refs) > 1 {
		idx, ok := index(tokens)
		if !ok {
			res.Outcome = NeedIndex
			res.Action = action
			return res
		}
		if idx < 1 || idx > len(refs) {
			res.Outcome = OutOfRange
			res.Action = action
			return res
		}
		target = refs[idx-1]
	}
	if action == ActionComplete && target.Kind != models.KindTask {
		return res
	}

	res.Outcome = Resolved
	res.Action = action
	res.Target = target
	if action == ActionUpdate {
		res.Clock = clock
	}
	return res
}

// index returns the first one- or two-digit number among tokens.
func index(tokens []string) (int, bool) {
	for _, t := range tokens {
		if len(t) == 0 || len(t) > 2 {
			continue
		}
		if n, err := strconv.Atoi(t); err == nil {
			return n, true
		}
	}
	return 0, false
}

// Resolver ties Parse to the stored mappings.
type Resolver struct {
	store *Store
}

// NewResolver creates a Resolver.
func NewResolver(store *Store) (*Resolver, error) {
	if store == nil {
		return nil, errors.New("quickaction: store is required")
	}
	return &Resolver{store: store}, nil
}

// Resolve handles a reply to quotedID. A mapped reply without a recognised
// action seeds the entity context for the next classifier call and reports
// NotHandled. Unmapped messages are NotHandled with nothing seeded.
func (r *Resolver) Resolve(ctx context.Context, userID, quotedID, text string) (Resolution, error) {
	refs, err := r.store.Lookup(ctx, quotedID)
	if err != nil {
		return Resolution{}, err
	}
	res := Parse(text, refs)
	if res.Outcome == NotHandled && len(refs) > 0 {
		if err := r.store.SeedContext(ctx, userID, refs); err != nil {
			return res, err
		}
	}
	return res, nil
}
