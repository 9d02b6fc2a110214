// Package provider adapts hosted LLM APIs to session.Model.
//
// Every adapter sends the whole conversation on each call, maps the model
// role onto the API's assistant role, and reports failures as
// *session.InvocationError so callers see a single error taxonomy.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/petasbytes/code-whisperer/internal/telemetry"
	"github.com/petasbytes/code-whisperer/session"
	"github.com/tidwall/gjson"
)

// Provider names accepted by New.
const (
	NameAnthropic = "anthropic"
	NameOpenAI    = "openai"
)

// ErrUnknownProvider is returned by New for an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown provider")

// ErrEmptyReply is wrapped into an InvocationError when the API answered
// without any text.
var ErrEmptyReply = errors.New("reply contains no text")

// Config selects and configures a provider.
type Config struct {
	Name    string `yaml:"name" json:"name"`
	Model   string `yaml:"model" json:"model"`
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	// APIKey overrides the SDK's environment lookup
	// (ANTHROPIC_API_KEY / OPENAI_API_KEY) when non-empty.
	APIKey string `yaml:"-" json:"-"`
}

// New builds the session.Model for cfg.Name.
func New(cfg Config) (session.Model, error) {
	switch strings.ToLower(cfg.Name) {
	case NameAnthropic, "":
		return NewAnthropic(cfg), nil
	case NameOpenAI:
		return NewOpenAI(cfg), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Name)
}

// invocationError normalizes err. status is the HTTP status of an API error,
// or 0 when the request never got an answer.
func invocationError(provider string, status int, raw string, err error) *session.InvocationError {
	ie := &session.InvocationError{Provider: provider, StatusCode: status, Err: err}
	if raw != "" {
		// Anthropic returns the whole body, OpenAI the inner error object.
		for _, path := range []string{"error.message", "message"} {
			if msg := gjson.Get(raw, path); msg.Exists() && msg.String() != "" {
				ie.Message = msg.String()
				break
			}
		}
	}
	return ie
}

// observe emits one model_invocation event.
func observe(ctx context.Context, provider, model string, start time.Time, err error) {
	turnID, _ := telemetry.TurnIDFromContext(ctx)
	fields := map[string]any{
		"turn_id":     turnID,
		"provider":    provider,
		"model":       model,
		"duration_ms": time.Since(start).Milliseconds(),
		"error":       nil,
		"status":      0,
	}
	var ie *session.InvocationError
	if errors.As(err, &ie) {
		fields["status"] = ie.StatusCode
		fields["error"] = errorClass(ie)
	} else if err != nil {
		fields["error"] = "unknown"
	}
	telemetry.Emit(telemetry.EventModelInvocation, fields)
}

// errorClass is a coarse, payload-free label for telemetry.
func errorClass(ie *session.InvocationError) string {
	switch {
	case errors.Is(ie, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(ie, context.Canceled):
		return "canceled"
	case errors.Is(ie, ErrEmptyReply):
		return "empty_reply"
	case ie.StatusCode == 401 || ie.StatusCode == 403:
		return "auth"
	case ie.StatusCode == 429:
		return "quota"
	case ie.StatusCode >= 500:
		return "server"
	case ie.StatusCode >= 400:
		return "request"
	}
	return "transport"
}
