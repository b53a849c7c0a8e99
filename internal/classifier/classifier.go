// Package classifier detects work commitments in Slack messages using an
// OpenAI-compatible chat model. The prompt is grounded with the current
// date so relative deadlines ("hoy", "mañana", weekday names) come back as
// resolvable expressions.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/nomadicseo/slack-asana-bridge/internal/biz/domain"
)

const defaultModel = "gpt-4o-mini"

// Classifier calls the reasoning service and extracts a structured verdict.
type Classifier struct {
	client *openai.Client
	model  string
}

// Option customizes the classifier.
type Option func(*Classifier)

// WithBaseURL points the client at a different API endpoint (tests, proxies).
func WithBaseURL(apiKey, baseURL string) Option {
	return func(c *Classifier) {
		cfg := openai.DefaultConfig(apiKey)
		cfg.BaseURL = baseURL
		c.client = openai.NewClientWithConfig(cfg)
	}
}

// New creates a classifier. An empty apiKey yields a classifier whose
// Classify always fails with domain.ErrNoProvider.
func New(apiKey, model string, opts ...Option) *Classifier {
	c := &Classifier{model: model}
	if c.model == "" {
		c.model = defaultModel
	}
	if apiKey != "" {
		c.client = openai.NewClient(apiKey)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify evaluates a message. Fails closed: any error means the caller
// must treat the message as not a commitment.
func (c *Classifier) Classify(ctx context.Context, messageText string, now time.Time) (*domain.Classification, error) {
	if c.client == nil {
		return nil, domain.ErrNoProvider
	}

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: SystemPrompt(now)},
			{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Mensaje a evaluar:\n```%s```", messageText)},
		},
		Temperature: 0,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion: %w", domain.ErrUnparseable)
	}

	return ExtractJSON(resp.Choices[0].Message.Content)
}

// ExtractJSON decodes the model's answer defensively: first the whole text,
// then the first-"{" to last-"}" substring, then domain.ErrUnparseable.
func ExtractJSON(text string) (*domain.Classification, error) {
	var cls domain.Classification
	if err := json.Unmarshal([]byte(text), &cls); err == nil {
		return &cls, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		if err := json.Unmarshal([]byte(text[start:end+1]), &cls); err == nil {
			return &cls, nil
		}
	}

	return nil, domain.ErrUnparseable
}
