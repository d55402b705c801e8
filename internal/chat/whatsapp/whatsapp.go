// Package whatsapp implements the chat Adapter for the WhatsApp Cloud API.
// Inbound messages arrive on a webhook served by gin; outbound calls go to
// the Graph API with a bearer-token client.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/zulandar/agenda/internal/chat"
)

const (
	// DefaultAPIBase is the Graph API root.
	DefaultAPIBase = "https://graph.facebook.com/v19.0"
	// WebhookPath is where Meta delivers message notifications.
	WebhookPath = "/webhook/whatsapp"
	// maxMessageLen is the Cloud API text body limit.
	maxMessageLen = 4096
)

// AdapterOpts holds parameters for creating a WhatsApp Adapter.
type AdapterOpts struct {
	PhoneNumberID string
	AccessToken   string
	VerifyToken   string
	APIBase       string
	Logger        *zap.Logger
	// For testing: inject an HTTP client instead of the bearer-token one.
	HTTPClient *http.Client
}

// Adapter implements chat.Adapter for WhatsApp. Conversation addresses are
// phone numbers in international format without "+".
type Adapter struct {
	phoneNumberID string
	verifyToken   string
	apiBase       string
	http          *http.Client
	logger        *zap.Logger

	mu        sync.RWMutex
	connected bool
	closed    bool
	inbound   chan chat.InboundMessage
}

var (
	_ chat.Adapter = (*Adapter)(nil)
	_ chat.Limiter = (*Adapter)(nil)
)

// New creates a WhatsApp Adapter.
func New(opts AdapterOpts) (*Adapter, error) {
	if opts.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp: phone number id is required")
	}
	if opts.VerifyToken == "" {
		return nil, fmt.Errorf("whatsapp: verify token is required")
	}
	client := opts.HTTPClient
	if client == nil {
		if opts.AccessToken == "" {
			return nil, fmt.Errorf("whatsapp: access token is required")
		}
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.AccessToken, TokenType: "Bearer"})
		client = oauth2.NewClient(context.Background(), src)
		client.Timeout = 15 * time.Second
	}
	if opts.APIBase == "" {
		opts.APIBase = DefaultAPIBase
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		phoneNumberID: opts.PhoneNumberID,
		verifyToken:   opts.VerifyToken,
		apiBase:       strings.TrimRight(opts.APIBase, "/"),
		http:          client,
		logger:        logger.Named("whatsapp"),
		inbound:       make(chan chat.InboundMessage, 100),
	}, nil
}

// Connect marks the adapter ready. The webhook must be registered on an
// HTTP server with RegisterRoutes for messages to arrive.
func (a *Adapter) Connect(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return fmt.Errorf("whatsapp: adapter already closed")
	}
	a.connected = true
	return nil
}

// Listen returns the channel fed by the webhook.
func (a *Adapter) Listen(ctx context.Context) (<-chan chat.InboundMessage, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if !a.connected {
		return nil, fmt.Errorf("whatsapp: not connected")
	}
	return a.inbound, nil
}

// Close stops accepting webhook deliveries and closes the inbound channel.
func (a *Adapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil
	}
	a.closed = true
	a.connected = false
	close(a.inbound)
	return nil
}

// MaxLen implements chat.Limiter.
func (a *Adapter) MaxLen() int { return maxMessageLen }

type textBody struct {
	Body string `json:"body"`
}

type reactionBody struct {
	MessageID string `json:"message_id"`
	Emoji     string `json:"emoji"`
}

type outbound struct {
	MessagingProduct string        `json:"messaging_product"`
	RecipientType    string        `json:"recipient_type,omitempty"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Text             *textBody     `json:"text,omitempty"`
	Reaction         *reactionBody `json:"reaction,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendMessage sends a text message and returns its wamid.
func (a *Adapter) SendMessage(ctx context.Context, to, text string) (string, error) {
	resp, err := a.post(ctx, outbound{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             &textBody{Body: text},
	})
	if err != nil {
		return "", fmt.Errorf("whatsapp: send message: %w", err)
	}
	if len(resp.Messages) == 0 {
		return "", errors.New("whatsapp: send message: no message id in response")
	}
	return resp.Messages[0].ID, nil
}

// ReactToMessage reacts to a received message.
func (a *Adapter) ReactToMessage(ctx context.Context, to, messageID, emoji string) error {
	_, err := a.post(ctx, outbound{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "reaction",
		Reaction:         &reactionBody{MessageID: messageID, Emoji: emoji},
	})
	if err != nil {
		return fmt.Errorf("whatsapp: react: %w", err)
	}
	return nil
}

func (a *Adapter) post(ctx context.Context, msg outbound) (*sendResponse, error) {
	a.mu.RLock()
	connected := a.connected
	a.mu.RUnlock()
	if !connected {
		return nil, errors.New("not connected")
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	url := a.apiBase + "/" + a.phoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	res, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var out sendResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", res.StatusCode, err)
	}
	if res.StatusCode >= 300 {
		if out.Error != nil {
			return nil, fmt.Errorf("status %d: %s (code %d)", res.StatusCode, out.Error.Message, out.Error.Code)
		}
		return nil, fmt.Errorf("status %d", res.StatusCode)
	}
	return &out, nil
}

// RegisterRoutes adds the webhook verification and delivery handlers.
func (a *Adapter) RegisterRoutes(r gin.IRoutes) {
	r.GET(WebhookPath, a.handleVerify)
	r.POST(WebhookPath, a.handleDelivery)
}

// handleVerify answers Meta's subscription handshake.
func (a *Adapter) handleVerify(c *gin.Context) {
	if c.Query("hub.mode") != "subscribe" || c.Query("hub.verify_token") != a.verifyToken {
		c.Status(http.StatusForbidden)
		return
	}
	c.String(http.StatusOK, c.Query("hub.challenge"))
}

type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Field string       `json:"field"`
			Value webhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookValue struct {
	Contacts []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []webhookMessage `json:"messages"`
}

type webhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      struct {
		Body string `json:"body"`
	} `json:"text"`
	Button struct {
		Text string `json:"text"`
	} `json:"button"`
	Context *struct {
		From string `json:"from"`
		ID   string `json:"id"`
	} `json:"context"`
}

// handleDelivery accepts a notification and queues every text message.
// Status updates and unsupported message types are acknowledged and
// dropped.
func (a *Adapter) handleDelivery(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		a.logger.Warn("bad webhook payload", zap.Error(err))
		c.Status(http.StatusBadRequest)
		return
	}
	for _, msg := range payload.messages() {
		if !a.enqueue(c.Request.Context(), msg) {
			c.Status(http.StatusServiceUnavailable)
			return
		}
	}
	c.Status(http.StatusOK)
}

// messages flattens a payload into inbound messages.
func (p webhookPayload) messages() []chat.InboundMessage {
	var out []chat.InboundMessage
	for _, e := range p.Entry {
		for _, ch := range e.Changes {
			names := make(map[string]string)
			for _, ct := range ch.Value.Contacts {
				names[ct.WaID] = ct.Profile.Name
			}
			for _, m := range ch.Value.Messages {
				text := m.Text.Body
				switch m.Type {
				case "text":
				case "button":
					text = m.Button.Text
				default:
					continue
				}
				msg := chat.InboundMessage{
					Platform:  "whatsapp",
					From:      m.From,
					FromName:  names[m.From],
					Text:      text,
					MessageID: m.ID,
					Timestamp: parseUnix(m.Timestamp),
				}
				if m.Context != nil && m.Context.ID != "" {
					msg.Quoted = &chat.QuotedMessage{MessageID: m.Context.ID, Participant: m.Context.From}
				}
				out = append(out, msg)
			}
		}
	}
	return out
}

// enqueue hands msg to the listener, giving up when the request ends or
// the adapter is closed.
func (a *Adapter) enqueue(ctx context.Context, msg chat.InboundMessage) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return false
	}
	select {
	case a.inbound <- msg:
		return true
	case <-ctx.Done():
		a.logger.Warn("dropping inbound message", zap.String("message_id", msg.MessageID))
		return false
	}
}

func parseUnix(s string) time.Time {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(n, 0)
}
