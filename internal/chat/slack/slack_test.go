package slack

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	slackapi "github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/zulandar/agenda/internal/chat"
)

// --- Mock Slack client ---

type mockSlackClient struct {
	mu        sync.Mutex
	authResp  *slackapi.AuthTestResponse
	authErr   error
	posted    []string // channel IDs
	postErr   error
	reactions []string
	users     map[string]*slackapi.User
}

func newMockSlackClient() *mockSlackClient {
	return &mockSlackClient{
		authResp: &slackapi.AuthTestResponse{UserID: "U_BOT_123"},
		users:    make(map[string]*slackapi.User),
	}
}

func (m *mockSlackClient) AuthTest() (*slackapi.AuthTestResponse, error) {
	return m.authResp, m.authErr
}

func (m *mockSlackClient) PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.postErr != nil {
		return "", "", m.postErr
	}
	m.posted = append(m.posted, channelID)
	return channelID, fmt.Sprintf("1700000000.%06d", len(m.posted)), nil
}

func (m *mockSlackClient) AddReaction(name string, item slackapi.ItemRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reactions = append(m.reactions, name+"@"+item.Channel+"/"+item.Timestamp)
	return nil
}

func (m *mockSlackClient) GetUserInfo(userID string) (*slackapi.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[userID]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user not found: %s", userID)
}

// --- Mock Socket Mode client ---

type mockSocketClient struct {
	events chan socketmode.Event
	mu     sync.Mutex
	acked  int
	done   chan struct{}
}

func newMockSocketClient() *mockSocketClient {
	return &mockSocketClient{
		events: make(chan socketmode.Event, 100),
		done:   make(chan struct{}),
	}
}

func (m *mockSocketClient) Run() error {
	<-m.done
	return nil
}

func (m *mockSocketClient) EventsChan() chan socketmode.Event { return m.events }

func (m *mockSocketClient) Ack(req socketmode.Request, payload ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked++
}

func newTestAdapter(t *testing.T) (*Adapter, *mockSlackClient, *mockSocketClient) {
	t.Helper()
	client := newMockSlackClient()
	socket := newMockSocketClient()
	a, err := New(AdapterOpts{Client: client, Socket: socket})
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		close(socket.done)
		a.Close()
	})
	return a, client, socket
}

func messageEvent(ev *slackevents.MessageEvent) socketmode.Event {
	return socketmode.Event{
		Type: socketmode.EventTypeEventsAPI,
		Data: slackevents.EventsAPIEvent{
			Type:       slackevents.CallbackEvent,
			InnerEvent: slackevents.EventsAPIInnerEvent{Data: ev},
		},
		Request: &socketmode.Request{EnvelopeID: "env-1"},
	}
}

func receive(t *testing.T, ch <-chan chat.InboundMessage) chat.InboundMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
	return chat.InboundMessage{}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(AdapterOpts{AppToken: "xapp"}); err == nil {
		t.Error("expected error without bot token")
	}
	if _, err := New(AdapterOpts{BotToken: "xoxb"}); err == nil {
		t.Error("expected error without app token")
	}
}

func TestConnect_CapturesBotUserID(t *testing.T) {
	a, _, _ := newTestAdapter(t)
	if a.BotUserID() != "U_BOT_123" {
		t.Errorf("BotUserID = %q", a.BotUserID())
	}
}

func TestListen_DirectMessages(t *testing.T) {
	a, client, socket := newTestAdapter(t)
	client.users["U1"] = &slackapi.User{Profile: slackapi.UserProfile{DisplayName: "ana"}}
	ch, err := a.Listen(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	// Filtered: channel message, bot echo, edit.
	socket.events <- messageEvent(&slackevents.MessageEvent{User: "U1", Channel: "C1", ChannelType: "channel", Text: "x", TimeStamp: "1.1"})
	socket.events <- messageEvent(&slackevents.MessageEvent{User: "U_BOT_123", Channel: "D1", ChannelType: "im", Text: "x", TimeStamp: "1.2"})
	socket.events <- messageEvent(&slackevents.MessageEvent{User: "U1", Channel: "D1", ChannelType: "im", SubType: "message_changed", TimeStamp: "1.3"})

	socket.events <- messageEvent(&slackevents.MessageEvent{
		User: "U1", Channel: "D1", ChannelType: "im", Text: "delete 2",
		TimeStamp: "1700000001.000200", ThreadTimeStamp: "1700000000.000100",
	})
	msg := receive(t, ch)
	if msg.From != "D1" || msg.FromName != "ana" || msg.Text != "delete 2" || msg.MessageID != "1700000001.000200" {
		t.Errorf("msg = %+v", msg)
	}
	if msg.Quoted == nil || msg.Quoted.MessageID != "1700000000.000100" {
		t.Errorf("Quoted = %+v", msg.Quoted)
	}
	if msg.Timestamp.Unix() != 1700000001 {
		t.Errorf("Timestamp = %v", msg.Timestamp)
	}
}

func TestSendMessage_ReturnsTimestamp(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	id, err := a.SendMessage(context.Background(), "D1", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if id != "1700000000.000001" || len(client.posted) != 1 || client.posted[0] != "D1" {
		t.Errorf("id = %q, posted = %v", id, client.posted)
	}
	if _, err := a.SendMessage(context.Background(), "", "hello"); err == nil {
		t.Error("expected error without channel")
	}
}

func TestSendMessage_RateLimitRetry(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		if calls == 1 {
			return &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Errorf("err = %v, calls = %d", err, calls)
	}
	client.postErr = fmt.Errorf("channel_not_found")
	if _, err := a.SendMessage(context.Background(), "D1", "x"); err == nil {
		t.Error("expected post error")
	}
}

func TestReactToMessage_MapsEmoji(t *testing.T) {
	a, client, _ := newTestAdapter(t)
	if err := a.ReactToMessage(context.Background(), "D1", "1.5", "✅"); err != nil {
		t.Fatal(err)
	}
	if len(client.reactions) != 1 || client.reactions[0] != "white_check_mark@D1/1.5" {
		t.Errorf("reactions = %v", client.reactions)
	}
	if emojiName(":tada:") != "tada" {
		t.Errorf("emojiName(:tada:) = %q", emojiName(":tada:"))
	}
}

func TestNotConnected(t *testing.T) {
	a, err := New(AdapterOpts{Client: newMockSlackClient(), Socket: newMockSocketClient()})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Listen(context.Background()); err == nil {
		t.Error("Listen before Connect should fail")
	}
	if _, err := a.SendMessage(context.Background(), "D1", "x"); err == nil {
		t.Error("SendMessage before Connect should fail")
	}
}

func TestParseSlackTimestamp(t *testing.T) {
	if got := parseSlackTimestamp("1234567890.123456"); got.Unix() != 1234567890 {
		t.Errorf("got %v", got)
	}
	if got := parseSlackTimestamp("garbage"); !got.IsZero() {
		t.Errorf("got %v", got)
	}
}
