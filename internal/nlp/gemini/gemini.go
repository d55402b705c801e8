// Package gemini implements nlp.Classifier on the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/zulandar/agenda/internal/nlp"
)

// DefaultModel is used when Opts.Model is empty.
const DefaultModel = "gemini-2.0-flash"

type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// Opts holds parameters for creating a Classifier.
type Opts struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	Now     func() time.Time
	Logger  *zap.Logger
}

// Classifier asks Gemini for a JSON classification of each message.
type Classifier struct {
	generate generateFunc
	model    string
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

var _ nlp.Classifier = (*Classifier)(nil)

// New creates a Classifier backed by the Gemini API.
func New(ctx context.Context, opts Opts) (*Classifier, error) {
	if opts.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return newClassifier(client.Models.GenerateContent, opts), nil
}

func newClassifier(gen generateFunc, opts Opts) *Classifier {
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Classifier{
		generate: gen,
		model:    opts.Model,
		timeout:  opts.Timeout,
		now:      opts.Now,
		logger:   opts.Logger,
	}
}

// Classify sends one classification request and decodes the answer.
func (c *Classifier) Classify(ctx context.Context, req nlp.Request) (nlp.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt(req, c.now()), genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    resultSchema,
		Temperature:       genai.Ptr[float32](0),
	}
	resp, err := c.generate(ctx, c.model, contents(req), cfg)
	if err != nil {
		return nlp.Result{}, fmt.Errorf("gemini: generate: %w", err)
	}
	res, err := decode(resp.Text())
	if err != nil {
		return nlp.Result{}, err
	}
	c.logger.Debug("classified",
		zap.String("intent", string(res.Intent)),
		zap.Float64("confidence", res.Confidence))
	return res, nil
}

// contents renders recent history followed by the new message.
func contents(req nlp.Request) []*genai.Content {
	out := make([]*genai.Content, 0, len(req.History)+1)
	for _, t := range req.History {
		var role genai.Role = genai.RoleUser
		if t.Role == "assistant" {
			role = genai.RoleModel
		}
		out = append(out, genai.NewContentFromText(t.Content, role))
	}
	return append(out, genai.NewContentFromText(req.Text, genai.RoleUser))
}

func systemPrompt(req nlp.Request, now time.Time) string {
	loc, err := time.LoadLocation(req.Timezone)
	if err != nil {
		loc = time.UTC
	}
	var b strings.Builder
	b.WriteString("You classify messages sent to a personal calendar assistant. ")
	b.WriteString("Users write in English or Portuguese.\n")
	fmt.Fprintf(&b, "Current local time: %s (%s).\n", now.In(loc).Format("Monday 2006-01-02 15:04"), loc)
	b.WriteString("Intents: ")
	labels := make([]string, len(nlp.Intents))
	for i, in := range nlp.Intents {
		labels[i] = string(in)
	}
	b.WriteString(strings.Join(labels, ", "))
	b.WriteString(".\n")
	b.WriteString("Copy dates and times into slots exactly as written; do not compute them. ")
	b.WriteString("recurrence is one of none, daily, weekdays, weekly, monthly, yearly. ")
	b.WriteString("range is one of today, tomorrow, week. kind is one of event, reminder, task. ")
	b.WriteString("confidence is your probability that the intent is right.\n")
	if len(req.Contacts) > 0 {
		b.WriteString("Known contacts: ")
		names := make([]string, len(req.Contacts))
		for i, c := range req.Contacts {
			names[i] = c.Name
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString(".\n")
	}
	if len(req.Focus) > 0 {
		b.WriteString("The user is replying about: ")
		b.WriteString(strings.Join(req.Focus, "; "))
		b.WriteString(". Use it as the title when the message does not name one.\n")
	}
	return b.String()
}

var resultSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"intent":     {Type: genai.TypeString},
		"confidence": {Type: genai.TypeNumber},
		"slots": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"title":      {Type: genai.TypeString},
				"date":       {Type: genai.TypeString},
				"time":       {Type: genai.TypeString},
				"recurrence": {Type: genai.TypeString},
				"query":      {Type: genai.TypeString},
				"range":      {Type: genai.TypeString},
				"kind":       {Type: genai.TypeString},
				"contact":    {Type: genai.TypeString},
			},
		},
	},
	Required: []string{"intent", "confidence"},
}

// decode parses a model answer. Labels outside the vocabulary become
// unknown and confidences are clamped to [0,1].
func decode(text string) (nlp.Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	var raw struct {
		Intent     string    `json:"intent"`
		Confidence float64   `json:"confidence"`
		Slots      nlp.Slots `json:"slots"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &raw); err != nil {
		return nlp.Result{}, fmt.Errorf("gemini: decode answer: %w", err)
	}
	res := nlp.Result{
		Intent:     nlp.ParseIntent(raw.Intent),
		Confidence: min(max(raw.Confidence, 0), 1),
		Slots:      raw.Slots,
	}
	return res, nil
}
