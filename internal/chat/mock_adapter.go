package chat

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"
)

// Sent is one message recorded by MockAdapter.
type Sent struct {
	To        string
	Text      string
	MessageID string
}

// Reaction is one reaction recorded by MockAdapter.
type Reaction struct {
	To        string
	MessageID string
	Emoji     string
}

// MockAdapter implements Adapter for testing. It records sent messages and
// reactions and allows simulating inbound messages via SimulateInbound.
type MockAdapter struct {
	mu        sync.Mutex
	connected bool
	closed    bool
	inbound   chan InboundMessage
	sent      []Sent
	reactions []Reaction
	counter   int
	maxLen    int
	sendErr   error
}

var _ Adapter = (*MockAdapter)(nil)

// NewMockAdapter creates a connected MockAdapter with a buffered inbound
// channel.
func NewMockAdapter() *MockAdapter {
	return &MockAdapter{
		inbound:   make(chan InboundMessage, 100),
		connected: true,
	}
}

// Connect marks the adapter as connected.
func (m *MockAdapter) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("mock adapter: already closed")
	}
	m.connected = true
	return nil
}

// Listen returns the inbound message channel. Must be called after Connect.
func (m *MockAdapter) Listen(ctx context.Context) (<-chan InboundMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return nil, fmt.Errorf("mock adapter: not connected")
	}
	return m.inbound, nil
}

// SendMessage records the message and returns a sequential id
// ("sent-1", "sent-2", ...).
func (m *MockAdapter) SendMessage(ctx context.Context, to, text string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return "", fmt.Errorf("mock adapter: not connected")
	}
	if m.sendErr != nil {
		return "", m.sendErr
	}
	m.counter++
	id := "sent-" + strconv.Itoa(m.counter)
	m.sent = append(m.sent, Sent{To: to, Text: text, MessageID: id})
	return id, nil
}

// ReactToMessage records the reaction.
func (m *MockAdapter) ReactToMessage(ctx context.Context, to, messageID, emoji string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return fmt.Errorf("mock adapter: not connected")
	}
	m.reactions = append(m.reactions, Reaction{To: to, MessageID: messageID, Emoji: emoji})
	return nil
}

// Close shuts down the mock adapter and closes the inbound channel.
func (m *MockAdapter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.connected = false
	close(m.inbound)
	return nil
}

// MaxLen implements Limiter. Zero means DefaultMaxLen.
func (m *MockAdapter) MaxLen() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.maxLen
}

// --- Test helpers ---

// SetMaxLen sets the chunk limit reported by MaxLen.
func (m *MockAdapter) SetMaxLen(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.maxLen = n
}

// SetSendError makes every following SendMessage fail with err.
func (m *MockAdapter) SetSendError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sendErr = err
}

// SimulateInbound sends a message into the inbound channel as if it came
// from the chat platform. Safe to call from any goroutine.
func (m *MockAdapter) SimulateInbound(msg InboundMessage) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	m.inbound <- msg
}

// LastSent returns the most recently sent message.
// Returns zero value and false if no messages have been sent.
func (m *MockAdapter) LastSent() (Sent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return Sent{}, false
	}
	return m.sent[len(m.sent)-1], true
}

// SentCount returns the number of messages sent.
func (m *MockAdapter) SentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// AllSent returns a copy of all sent messages.
func (m *MockAdapter) AllSent() []Sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Sent, len(m.sent))
	copy(out, m.sent)
	return out
}

// Reactions returns a copy of all recorded reactions.
func (m *MockAdapter) Reactions() []Reaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Reaction, len(m.reactions))
	copy(out, m.reactions)
	return out
}

// Reset forgets every recorded message and reaction.
func (m *MockAdapter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
	m.reactions = nil
}
