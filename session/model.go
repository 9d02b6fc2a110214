package session

import "context"

// Model is the remote language model. Generate receives the full history,
// ending with the user message to answer, and returns the reply text.
// Implementations should report failures as *InvocationError; any other
// error is wrapped into one by the session.
type Model interface {
	Generate(ctx context.Context, history []Message, cfg GenerationConfig) (string, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, history []Message, cfg GenerationConfig) (string, error)

func (f ModelFunc) Generate(ctx context.Context, history []Message, cfg GenerationConfig) (string, error) {
	return f(ctx, history, cfg)
}
