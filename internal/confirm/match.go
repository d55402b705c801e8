package confirm

import (
	"strings"

	"github.com/zulandar/agenda/internal/fuzzy"
)

// Answer is the interpretation of a reply to a yes/no prompt.
type Answer int

const (
	Unknown Answer = iota
	Yes
	No
)

func (a Answer) String() string {
	switch a {
	case Yes:
		return "yes"
	case No:
		return "no"
	}
	return "unknown"
}

// Canonical tokens, already normalized (lowercase, no accents).
var (
	yesWords = []string{"yes", "y", "yeah", "yep", "yup", "sure", "ok", "okay", "confirm", "confirmed",
		"sim", "s", "claro", "pode", "isso", "confirmo", "confirma", "certo"}
	noWords = []string{"no", "n", "nope", "nah", "cancel", "stop", "dont",
		"nao", "negativo", "cancela", "cancelar"}
)

func exact(words []string, w string) bool {
	for _, c := range words {
		if c == w {
			return true
		}
	}
	return false
}

func near(words []string, w string) bool {
	if len([]rune(w)) < 2 {
		return false
	}
	for _, c := range words {
		if len([]rune(c)) < 2 {
			continue
		}
		if fuzzy.Distance(c, w) <= 1 {
			return true
		}
	}
	return false
}

// Match interprets text as yes, no or neither. Exact canonical tokens win,
// as whole replies or as the first word ("yes please"). Otherwise a
// one-word reply within one edit of a canonical token is accepted, unless
// it is that close to both sides.
func Match(text string) Answer {
	t := fuzzy.Normalize(text)
	if t == "" {
		return Unknown
	}
	if a := exactAnswer(t); a != Unknown {
		return a
	}
	words := strings.Fields(t)
	if a := exactAnswer(words[0]); a != Unknown {
		return a
	}
	if len(words) > 1 {
		return Unknown
	}
	y, n := near(yesWords, t), near(noWords, t)
	switch {
	case y && !n:
		return Yes
	case n && !y:
		return No
	}
	return Unknown
}

func exactAnswer(w string) Answer {
	switch {
	case exact(yesWords, w):
		return Yes
	case exact(noWords, w):
		return No
	}
	return Unknown
}
