package session_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/petasbytes/code-whisperer/session"
)

// fakeModel replays scripted replies and records every invocation.
type fakeModel struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   [][]session.Message
	cfgs    []session.GenerationConfig
}

func (f *fakeModel) Generate(_ context.Context, history []session.Message, cfg session.GenerationConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := len(f.calls)
	f.calls = append(f.calls, history)
	f.cfgs = append(f.cfgs, cfg)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.replies) {
		return f.replies[i], nil
	}
	return "", nil
}

func (f *fakeModel) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newSession(t *testing.T, m session.Model) *session.Session {
	t.Helper()
	s, err := session.New(m, session.Config{Generation: session.DefaultGenerationConfig()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

var addsKeywords = []string{"adds", "two", "numbers"}

func TestNew_SeedsHistory(t *testing.T) {
	s := newSession(t, &fakeModel{})
	h := s.History()
	if len(h) != 2 {
		t.Fatalf("got %d seed messages, want 2", len(h))
	}
	if h[0].Role != session.RoleUser || !strings.HasPrefix(h[0].Text(), session.PersonalityPrompt) {
		t.Fatalf("unexpected seed instruction: %+v", h[0])
	}
	if h[1].Role != session.RoleModel || h[1].Text() != session.Greeting {
		t.Fatalf("unexpected greeting: %+v", h[1])
	}
	if s.ID() == "" {
		t.Fatal("session ID is empty")
	}
}

func TestNew_SeedIncludesCode(t *testing.T) {
	cfg := session.Config{Generation: session.DefaultGenerationConfig(), Code: "def add(a, b):\n    return a + b\n"}
	s, err := session.New(&fakeModel{}, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	seed := s.History()[0].Text()
	if !strings.Contains(seed, "def add(a, b):") {
		t.Fatalf("seed does not include code: %q", seed)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	gen := session.DefaultGenerationConfig()
	gen.TopK = 0
	_, err := session.New(&fakeModel{}, session.Config{Generation: gen})
	if !errors.Is(err, session.ErrInvalidConfig) {
		t.Fatalf("want ErrInvalidConfig, got %v", err)
	}
}

func TestAsk_NoRetryWhenScoreMeetsThreshold(t *testing.T) {
	m := &fakeModel{replies: []string{"This function adds two numbers."}}
	s := newSession(t, m)

	eval, err := s.Ask(context.Background(), "What does add do?", addsKeywords)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if m.count() != 1 {
		t.Fatalf("got %d invocations, want 1", m.count())
	}
	if eval.Score != 1.0 || eval.InitialScore != 1.0 || eval.Attempts != 1 || eval.Retried() {
		t.Fatalf("unexpected evaluation: %+v", eval)
	}
	if s.Len() != 4 {
		t.Fatalf("got %d messages, want 4", s.Len())
	}
}

func TestAsk_RetriesOnceWhenScoreBelowThreshold(t *testing.T) {
	m := &fakeModel{replies: []string{"It prints something.", "It adds two numbers and returns the sum."}}
	s := newSession(t, m)

	eval, err := s.Ask(context.Background(), "What does add do?", addsKeywords)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if m.count() != 2 {
		t.Fatalf("got %d invocations, want 2", m.count())
	}
	if eval.Response != "It adds two numbers and returns the sum." || eval.Score != 1.0 || eval.Attempts != 2 {
		t.Fatalf("evaluation should reflect the second invocation only: %+v", eval)
	}
	if eval.InitialScore != 0 {
		t.Fatalf("initial score should be the first reply's, got %v", eval.InitialScore)
	}

	h := s.History()
	if len(h) != 6 {
		t.Fatalf("got %d messages, want 6", len(h))
	}
	want := []struct {
		role session.Role
		text string
	}{
		{session.RoleUser, "What does add do?"},
		{session.RoleModel, "It prints something."},
		{session.RoleUser, session.Clarification},
		{session.RoleModel, "It adds two numbers and returns the sum."},
	}
	for i, w := range want {
		got := h[i+2]
		if got.Role != w.role || got.Text() != w.text {
			t.Errorf("message %d: got %s %q, want %s %q", i+2, got.Role, got.Text(), w.role, w.text)
		}
	}

	// The retry is sent with the whole history including the first attempt.
	if n := len(m.calls[1]); n != 5 {
		t.Fatalf("retry sent %d messages, want 5", n)
	}
	if last := m.calls[1][4]; last.Text() != session.Clarification {
		t.Fatalf("retry did not end with clarification: %q", last.Text())
	}
}

func TestAsk_RetryIsRescored(t *testing.T) {
	m := &fakeModel{replies: []string{"nothing useful", "still nothing"}}
	s := newSession(t, m)

	eval, err := s.Ask(context.Background(), "q", addsKeywords)
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if eval.Score != 0 || eval.Attempts != 2 {
		t.Fatalf("want rescored 0 after retry, got %+v", eval)
	}
	if m.count() != 2 {
		t.Fatalf("got %d invocations, want at most 2", m.count())
	}
}

func TestAsk_EmptyKeywordsNeverRetry(t *testing.T) {
	m := &fakeModel{replies: []string{""}}
	s := newSession(t, m)

	eval, err := s.Ask(context.Background(), "hi", []string{})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if eval.Score != 1.0 || m.count() != 1 {
		t.Fatalf("want vacuous score without retry, got %+v after %d calls", eval, m.count())
	}
}

func TestAsk_CustomThreshold(t *testing.T) {
	m := &fakeModel{replies: []string{"it adds", "it adds two numbers"}}
	s := newSession(t, m)

	// 1/3 passes a threshold of 0.3.
	eval, err := s.Ask(context.Background(), "q", addsKeywords, session.WithThreshold(0.3))
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if m.count() != 1 || eval.Attempts != 1 {
		t.Fatalf("want no retry at threshold 0.3, got %d calls", m.count())
	}
}

func TestAsk_PassesSessionGenerationConfig(t *testing.T) {
	m := &fakeModel{replies: []string{"ok"}}
	gen := session.GenerationConfig{Temperature: 0.7, TopP: 0.85, TopK: 20, MaxOutputTokens: 512}
	s, err := session.New(m, session.Config{Generation: gen})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := s.Ask(context.Background(), "q", nil); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if m.cfgs[0] != gen {
		t.Fatalf("got config %+v, want %+v", m.cfgs[0], gen)
	}
}

func TestAsk_HistoryGrowth(t *testing.T) {
	// Ask 1: pass. Ask 2: retry. Ask 3: pass.
	m := &fakeModel{replies: []string{"bug found", "no idea", "a bug here", "bug"}}
	s := newSession(t, m)
	kw := []string{"bug"}

	retries := 0
	for i := 0; i < 3; i++ {
		eval, err := s.Ask(context.Background(), "q", kw)
		if err != nil {
			t.Fatalf("Ask %d: %v", i, err)
		}
		retries += eval.Attempts - 1
	}
	if retries != 1 {
		t.Fatalf("got %d retries, want 1", retries)
	}
	want := 2 + 2*(3+retries)
	if s.Len() != want {
		t.Fatalf("got %d messages, want %d", s.Len(), want)
	}
}

func TestAsk_InitialFailurePropagatesWithoutAppending(t *testing.T) {
	cause := errors.New("connection refused")
	m := &fakeModel{errs: []error{cause}}
	s := newSession(t, m)

	_, err := s.Ask(context.Background(), "q", addsKeywords)
	if !errors.Is(err, session.ErrModelInvocationFailed) {
		t.Fatalf("want ErrModelInvocationFailed, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not preserved: %v", err)
	}
	var ie *session.InvocationError
	if !errors.As(err, &ie) {
		t.Fatalf("want *InvocationError, got %T", err)
	}
	if m.count() != 1 {
		t.Fatalf("failure must not be retried; got %d calls", m.count())
	}
	if s.Len() != 2 {
		t.Fatalf("history changed on failure: %d messages", s.Len())
	}
}

func TestAsk_RetryFailureKeepsFirstExchange(t *testing.T) {
	m := &fakeModel{replies: []string{"weak answer"}, errs: []error{nil, errors.New("quota exceeded")}}
	s := newSession(t, m)

	_, err := s.Ask(context.Background(), "q", addsKeywords)
	if !errors.Is(err, session.ErrModelInvocationFailed) {
		t.Fatalf("want ErrModelInvocationFailed, got %v", err)
	}
	h := s.History()
	if len(h) != 4 {
		t.Fatalf("got %d messages, want 4 (seed + first exchange)", len(h))
	}
	if h[3].Role != session.RoleModel || h[3].Text() != "weak answer" {
		t.Fatalf("unexpected last message: %+v", h[3])
	}
}

func TestAsk_ProviderErrorIsKeptAsIs(t *testing.T) {
	ie := &session.InvocationError{Provider: "anthropic", StatusCode: 429, Message: "rate limited"}
	m := &fakeModel{errs: []error{ie}}
	s := newSession(t, m)

	_, err := s.Ask(context.Background(), "q", nil)
	var got *session.InvocationError
	if !errors.As(err, &got) || got != ie {
		t.Fatalf("want the provider's InvocationError, got %v", err)
	}
	if !strings.Contains(err.Error(), "status 429") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestAsk_CancelledContext(t *testing.T) {
	m := &fakeModel{replies: []string{"x"}}
	s := newSession(t, m)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Ask(ctx, "q", nil)
	if !errors.Is(err, session.ErrModelInvocationFailed) || !errors.Is(err, context.Canceled) {
		t.Fatalf("want invocation failure wrapping context.Canceled, got %v", err)
	}
	if m.count() != 0 || s.Len() != 2 {
		t.Fatalf("cancelled ask should not reach the model or touch history")
	}
}

func TestHistory_DefensiveCopy(t *testing.T) {
	s := newSession(t, &fakeModel{})
	h := s.History()
	h[0].Parts[0] = "tampered"
	h[1].Role = session.RoleUser

	again := s.History()
	if again[0].Parts[0] == "tampered" || again[1].Role != session.RoleModel {
		t.Fatal("history was mutated through a returned copy")
	}
}

func TestAsk_ConcurrentAsksDoNotInterleave(t *testing.T) {
	m := session.ModelFunc(func(_ context.Context, h []session.Message, _ session.GenerationConfig) (string, error) {
		return "answer to " + h[len(h)-1].Text(), nil
	})
	s := newSession(t, m)

	const n = 20
	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			// A keyword no reply contains forces a retry on every ask.
			if _, err := s.Ask(context.Background(), "q", []string{"never-present"}); err != nil {
				t.Errorf("Ask: %v", err)
			}
		}()
	}
	wg.Wait()

	h := s.History()
	if len(h) != 2+n*4 {
		t.Fatalf("got %d messages, want %d", len(h), 2+n*4)
	}
	for i := 2; i < len(h); i += 4 {
		if h[i].Text() != "q" || h[i+2].Text() != session.Clarification {
			t.Fatalf("asks interleaved at %d: %q / %q", i, h[i].Text(), h[i+2].Text())
		}
	}
}

func TestResume(t *testing.T) {
	history := []session.Message{
		session.NewMessage(session.RoleUser, "seed"),
		session.NewMessage(session.RoleModel, "hello"),
		session.NewMessage(session.RoleUser, "q"),
		session.NewMessage(session.RoleModel, "a"),
	}
	s, err := session.Resume(&fakeModel{}, session.Config{Generation: session.DefaultGenerationConfig()}, history)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}
	if s.Len() != 4 {
		t.Fatalf("got %d messages, want 4", s.Len())
	}

	_, err = session.Resume(&fakeModel{}, session.Config{Generation: session.DefaultGenerationConfig()}, history[1:])
	if !errors.Is(err, session.ErrInvalidHistory) {
		t.Fatalf("want ErrInvalidHistory, got %v", err)
	}
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]session.Role{"user": session.RoleUser, "model": session.RoleModel, "Assistant": session.RoleModel} {
		got, err := session.ParseRole(in)
		if err != nil || got != want {
			t.Errorf("ParseRole(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := session.ParseRole("system"); err == nil {
		t.Error("expected error for system role")
	}
}
