// Package chat defines the transport contract between the assistant and a
// chat platform (WhatsApp, Slack, Discord, a local console).
package chat

import (
	"context"
	"time"
)

// Adapter is the interface that platform-specific implementations must
// satisfy. Each adapter handles connection management and message
// sending/receiving for a single chat platform.
type Adapter interface {
	// Connect establishes a connection to the chat platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages from the platform.
	// The channel is closed when the adapter is closed. Listen must only
	// be called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// SendMessage delivers text to a conversation and returns the
	// platform id of the sent message.
	SendMessage(ctx context.Context, to, text string) (string, error)

	// ReactToMessage attaches an emoji reaction to a received message.
	ReactToMessage(ctx context.Context, to, messageID, emoji string) error

	// Close gracefully shuts down the adapter connection.
	Close() error
}

// InboundMessage represents a message received from the chat platform.
type InboundMessage struct {
	Platform  string         // e.g. "whatsapp", "slack"
	From      string         // conversation address; replies go here
	FromName  string         // human-readable sender name, if known
	Text      string         // raw message text
	MessageID string         // platform message id, used for idempotency
	Quoted    *QuotedMessage // set when the message replies to another one
	Timestamp time.Time      // when the message was sent
}

// QuotedMessage identifies the message an inbound message replied to.
type QuotedMessage struct {
	MessageID   string
	Participant string
}

// BotUserIDer is an optional interface that adapters can implement to
// expose the bot's own user ID. This enables self-message filtering.
type BotUserIDer interface {
	BotUserID() string
}

// Limiter is an optional interface exposing the platform's maximum message
// length. Adapters without it get DefaultMaxLen.
type Limiter interface {
	MaxLen() int
}

// DefaultMaxLen is the chunk size used when an adapter has no Limiter.
const DefaultMaxLen = 2000

// Send chunks text to the adapter's limit and sends every chunk in order.
// It returns the id of the last chunk, which is the message a user sees
// nearest the bottom and is most likely to reply to.
func Send(ctx context.Context, a Adapter, to, text string) (string, error) {
	limit := DefaultMaxLen
	if l, ok := a.(Limiter); ok && l.MaxLen() > 0 {
		limit = l.MaxLen()
	}
	var last string
	for _, chunk := range Chunk(text, limit) {
		id, err := a.SendMessage(ctx, to, chunk)
		if err != nil {
			return last, err
		}
		last = id
	}
	return last, nil
}

// Chunk splits text into chunks of at most maxLen bytes.
// It prefers breaking at newlines when possible.
func Chunk(text string, maxLen int) []string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var chunks []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			chunks = append(chunks, text)
			break
		}

		// Look for a newline in the second half of the chunk, or right after
		// it, to break at.
		breakAt := -1
		for i := maxLen; i >= maxLen/2; i-- {
			if text[i] == '\n' {
				breakAt = i
				break
			}
		}
		if breakAt >= 0 {
			chunks = append(chunks, text[:breakAt])
			text = text[breakAt+1:]
			continue
		}

		// Never split a UTF-8 sequence.
		cut := maxLen
		for cut > 0 && !startsRune(text[cut]) {
			cut--
		}
		if cut == 0 {
			cut = maxLen
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	return chunks
}

func startsRune(b byte) bool { return b&0xC0 != 0x80 }
