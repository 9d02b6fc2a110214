package provider

import (
	"context"
	"errors"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/petasbytes/code-whisperer/session"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAI talks to any OpenAI-compatible chat completions endpoint
// (api.openai.com, ollama, vLLM...).
type OpenAI struct {
	client openai.Client
	model  string
	// sendTopK is set for custom base URLs; api.openai.com rejects unknown fields.
	sendTopK bool
}

// NewOpenAI returns a client for cfg.BaseURL, or the SDK default when empty.
func NewOpenAI(cfg Config, opts ...option.RequestOption) *OpenAI {
	var base []option.RequestOption
	if cfg.BaseURL != "" {
		base = append(base, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		base = append(base, option.WithAPIKey(cfg.APIKey))
	}
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{
		client:   openai.NewClient(append(base, opts...)...),
		model:    model,
		sendTopK: cfg.BaseURL != "",
	}
}

// Generate sends history and returns the first choice's content.
func (o *OpenAI) Generate(ctx context.Context, history []session.Message, cfg session.GenerationConfig) (reply string, err error) {
	start := time.Now()
	defer func() { observe(ctx, NameOpenAI, o.model, start, err) }()

	params := openai.ChatCompletionNewParams{
		Model:       o.model,
		Messages:    openaiMessages(history),
		Temperature: openai.Float(cfg.Temperature),
		TopP:        openai.Float(cfg.TopP),
		// Most compatible servers only honor max_tokens.
		MaxTokens: openai.Int(int64(cfg.MaxOutputTokens)),
	}

	// top_k is not part of the OpenAI schema; compatible servers accept it as an extra field.
	var reqOpts []option.RequestOption
	if o.sendTopK {
		reqOpts = append(reqOpts, option.WithJSONSet("top_k", cfg.TopK))
	}
	resp, err := o.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", invocationError(NameOpenAI, apiErr.StatusCode, apiErr.RawJSON(), err)
		}
		return "", invocationError(NameOpenAI, 0, "", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", invocationError(NameOpenAI, 0, "", ErrEmptyReply)
	}
	return resp.Choices[0].Message.Content, nil
}

func openaiMessages(history []session.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(history))
	for _, m := range history {
		if m.Role == session.RoleModel {
			out = append(out, openai.AssistantMessage(m.Text()))
		} else {
			out = append(out, openai.UserMessage(m.Text()))
		}
	}
	return out
}
