package provider

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/petasbytes/code-whisperer/session"
)

const DefaultAnthropicModel = anthropic.ModelClaude3_7SonnetLatest

// Anthropic talks to the Anthropic Messages API.
type Anthropic struct {
	client *anthropic.Client
	model  anthropic.Model
}

// NewAnthropic returns a client using the API key from the env unless cfg
// carries one. Extra request options are appended (tests inject transports).
func NewAnthropic(cfg Config, opts ...option.RequestOption) *Anthropic {
	var base []option.RequestOption
	if cfg.APIKey != "" {
		base = append(base, option.WithAPIKey(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	c := anthropic.NewClient(append(base, opts...)...)

	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = DefaultAnthropicModel
	}
	return &Anthropic{client: &c, model: model}
}

// Generate sends history and returns the concatenated text blocks of the reply.
func (a *Anthropic) Generate(ctx context.Context, history []session.Message, cfg session.GenerationConfig) (reply string, err error) {
	start := time.Now()
	defer func() { observe(ctx, NameAnthropic, string(a.model), start, err) }()

	params := anthropic.MessageNewParams{
		Model:       a.model,
		MaxTokens:   int64(cfg.MaxOutputTokens),
		Messages:    anthropicMessages(history),
		Temperature: anthropic.Float(cfg.Temperature),
		TopP:        anthropic.Float(cfg.TopP),
		TopK:        anthropic.Int(int64(cfg.TopK)),
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", invocationError(NameAnthropic, apiErr.StatusCode, apiErr.RawJSON(), err)
		}
		return "", invocationError(NameAnthropic, 0, "", err)
	}

	var texts []string
	for _, block := range msg.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok && tb.Text != "" {
			texts = append(texts, tb.Text)
		}
	}
	if len(texts) == 0 {
		return "", invocationError(NameAnthropic, 0, "", ErrEmptyReply)
	}
	return strings.Join(texts, "\n"), nil
}

func anthropicMessages(history []session.Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(history))
	for _, m := range history {
		block := anthropic.NewTextBlock(m.Text())
		if m.Role == session.RoleModel {
			out = append(out, anthropic.NewAssistantMessage(block))
		} else {
			out = append(out, anthropic.NewUserMessage(block))
		}
	}
	return out
}
