package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/petasbytes/code-whisperer/scoring"
)

// DefaultThreshold is the score below which Ask retries once.
const DefaultThreshold = 0.6

// Evaluation is the outcome of one Ask call.
type Evaluation struct {
	Response string  // Reply returned to the caller (the retry's, when one ran).
	Score    float64 // Keyword score of Response.
	Attempts int     // Model invocations made: 1, or 2 when the guardrail retried.

	// InitialScore is the first reply's score; equal to Score without a retry.
	InitialScore float64
}

// Retried reports whether the guardrail asked the model to double-check.
func (e Evaluation) Retried() bool {
	return e.Attempts > 1
}

type askOptions struct {
	threshold float64
}

// AskOption configures a single Ask call.
type AskOption func(*askOptions)

// WithThreshold overrides DefaultThreshold for one call.
func WithThreshold(t float64) AskOption {
	return func(o *askOptions) { o.threshold = t }
}

// Session is one conversation with a fixed generation configuration.
// Asks are serialized; History may be read concurrently.
type Session struct {
	id    string
	gen   GenerationConfig
	code  string
	model Model

	askMu sync.Mutex

	mu      sync.RWMutex
	history []Message
}

// New creates a session seeded with the personality instruction and greeting.
func New(model Model, cfg Config) (*Session, error) {
	if err := cfg.Generation.Validate(); err != nil {
		return nil, err
	}
	return newSession(model, cfg, SeedMessages(cfg.Code)), nil
}

// Resume rebuilds a session from a saved history. The history must start
// with a user message followed by a model message (the seed pair).
func Resume(model Model, cfg Config, history []Message) (*Session, error) {
	if err := cfg.Generation.Validate(); err != nil {
		return nil, err
	}
	if len(history) < 2 || history[0].Role != RoleUser || history[1].Role != RoleModel {
		return nil, fmt.Errorf("%w: missing seed pair", ErrInvalidHistory)
	}
	for i, m := range history {
		if !m.Role.Valid() {
			return nil, fmt.Errorf("%w: message %d has role %q", ErrInvalidHistory, i, m.Role)
		}
	}
	return newSession(model, cfg, cloneMessages(history)), nil
}

func newSession(model Model, cfg Config, history []Message) *Session {
	return &Session{
		id:      uuid.Must(uuid.NewV7()).String(),
		gen:     cfg.Generation,
		code:    cfg.Code,
		model:   model,
		history: history,
	}
}

// ID returns the session's unique identifier.
func (s *Session) ID() string {
	return s.id
}

// Config returns the configuration the session was created with.
func (s *Session) Config() Config {
	return Config{Generation: s.gen, Code: s.code}
}

// History returns a deep copy of the conversation so far.
func (s *Session) History() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.history)
}

// Len returns the number of messages in the history.
func (s *Session) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}

// Ask sends question to the model and scores the reply against keywords.
// When the score is below the threshold the model is asked once to
// double-check, and the second reply and its score are returned. Both
// exchanges stay in the history.
//
// A model failure is returned as an error matching ErrModelInvocationFailed
// and is never retried; the failed exchange is not appended.
func (s *Session) Ask(ctx context.Context, question string, keywords []string, opts ...AskOption) (Evaluation, error) {
	o := askOptions{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(&o)
	}

	s.askMu.Lock()
	defer s.askMu.Unlock()

	reply, err := s.exchange(ctx, question)
	if err != nil {
		return Evaluation{}, err
	}
	score := scoring.Score(reply, keywords)
	eval := Evaluation{
		Response:     reply,
		Score:        score,
		Attempts:     1,
		InitialScore: score,
	}
	if eval.Score >= o.threshold {
		return eval, nil
	}

	reply, err = s.exchange(ctx, Clarification)
	if err != nil {
		return Evaluation{}, err
	}
	return Evaluation{
		Response:     reply,
		Score:        scoring.Score(reply, keywords),
		Attempts:     2,
		InitialScore: eval.InitialScore,
	}, nil
}

// exchange invokes the model with history plus text and, on success only,
// appends the user message and the reply as a pair.
func (s *Session) exchange(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", normalize(err)
	}

	user := NewMessage(RoleUser, text)
	pending := append(s.History(), user)

	reply, err := s.model.Generate(ctx, pending, s.gen)
	if err != nil {
		return "", normalize(err)
	}

	s.mu.Lock()
	s.history = append(s.history, user, NewMessage(RoleModel, reply))
	s.mu.Unlock()
	return reply, nil
}
