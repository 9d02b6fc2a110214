// Package app implements the interactive whisperer: slash commands, file
// mode, sticky keywords and confidence banners on top of session.Store.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/petasbytes/code-whisperer/internal/config"
	"github.com/petasbytes/code-whisperer/internal/fsops"
	"github.com/petasbytes/code-whisperer/internal/metrics"
	"github.com/petasbytes/code-whisperer/internal/telemetry"
	"github.com/petasbytes/code-whisperer/memory"
	"github.com/petasbytes/code-whisperer/scoring"
	"github.com/petasbytes/code-whisperer/session"
)

// ErrEmptyQuestion is returned when a file is loaded but no question was typed.
var ErrEmptyQuestion = errors.New("enter a question about the loaded file")

// Archive stores transcripts outside the local filesystem.
type Archive interface {
	Save(ctx context.Context, t memory.Transcript) error
	Load(ctx context.Context, sessionID string) (*memory.Transcript, error)
}

// Options wires an App. Store and Out are required.
type Options struct {
	Store  *session.Store
	Config config.Config
	// Code is embedded in the seed instruction of every new session.
	Code    string
	Reader  *fsops.Reader
	Archive Archive
	Out     io.Writer
	Color   bool
}

// App is one interactive user context. Handle must not be called
// concurrently.
type App struct {
	store   *session.Store
	cfg     config.Config
	code    string
	reader  *fsops.Reader
	archive Archive
	out     io.Writer
	color   bool

	// settings apply to the next session; the active one keeps its own.
	settings session.GenerationConfig
	keywords []string
	pending  *fsops.Source

	tally metrics.Tally
	mu    sync.Mutex // guards out
}

// New returns an App using opts.Config.Generation as the initial settings.
func New(opts Options) *App {
	if opts.Config.Timeout <= 0 {
		opts.Config.Timeout = config.DefaultTimeout
	}
	return &App{
		store:    opts.Store,
		cfg:      opts.Config,
		code:     opts.Code,
		reader:   opts.Reader,
		archive:  opts.Archive,
		out:      opts.Out,
		color:    opts.Color,
		settings: opts.Config.Generation,
		keywords: []string{},
	}
}

func (a *App) printf(format string, args ...any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fmt.Fprintf(a.out, format, args...)
}

// Greet prints the model's opening line.
func (a *App) Greet() {
	a.printf("%s: %s\n", a.paint(colorBlue, "Whisperer"), session.Greeting)
}

// Summary returns the guardrail totals for this App.
func (a *App) Summary() metrics.Summary {
	return a.tally.Summary()
}

// Handle processes one input line. quit reports that the user asked to
// leave. Errors are for the caller to display; the App stays usable.
func (a *App) Handle(ctx context.Context, line string) (quit bool, err error) {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "/") {
		return a.command(ctx, line)
	}
	if line == "" && a.pending == nil {
		return false, nil
	}
	_, err = a.Ask(ctx, line)
	return false, err
}

// Ask sends question (prefixed by the loaded file, if any) through the
// guardrail and prints the answer with its confidence banner.
func (a *App) Ask(ctx context.Context, question string) (session.Evaluation, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		if a.pending != nil {
			return session.Evaluation{}, fmt.Errorf("%w %s", ErrEmptyQuestion, a.pending.Path)
		}
		return session.Evaluation{}, errors.New("please provide a question")
	}

	input := question
	if a.pending != nil {
		input = a.pending.Content + "\n\n" + question
	}

	sess, err := a.store.GetOrCreate(session.Config{Generation: a.settings, Code: a.code})
	if err != nil {
		return session.Evaluation{}, err
	}

	turnID := telemetry.NewTurnID()
	ctx = telemetry.WithTurnID(ctx, turnID)
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	start := time.Now()
	eval, err := sess.Ask(ctx, input, a.keywords, session.WithThreshold(a.cfg.Threshold))
	a.tally.Observe(eval, err)

	fields := map[string]any{
		"turn_id":     turnID,
		"session_id":  sess.ID(),
		"file_mode":   a.pending != nil,
		"keywords":    len(a.keywords),
		"input":       telemetry.TextSizes(input),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Emit(telemetry.EventAskFailed, fields)
		return session.Evaluation{}, err
	}
	fields["attempts"] = eval.Attempts
	fields["score"] = eval.Score
	fields["initial_score"] = eval.InitialScore
	fields["band"] = scoring.BandFor(eval.Score).String()
	fields["reply"] = telemetry.TextSizes(eval.Response)
	telemetry.Emit(telemetry.EventAskComplete, fields)

	a.render(eval)

	if a.cfg.TranscriptPath != "" {
		if err := memory.SaveTranscript(a.cfg.TranscriptPath, memory.FromSession(sess)); err != nil {
			a.printf("warning: failed to save transcript: %v\n", err)
		}
	}
	return eval, nil
}

// Restore replaces the active session with t.
func (a *App) Restore(t *memory.Transcript) error {
	history, err := t.History()
	if err != nil {
		return err
	}
	// The seed in history already embeds the transcript's code.
	cfg := session.Config{Generation: t.Generation, Code: t.Code}
	if _, err := a.store.Resume(cfg, history); err != nil {
		return err
	}
	a.settings = t.Generation
	return nil
}

// Close saves the transcript of the active session to the archive, if one is
// configured.
func (a *App) Close(ctx context.Context) error {
	sess, ok := a.store.Current()
	if !ok || a.archive == nil {
		return nil
	}
	return a.archive.Save(ctx, memory.FromSession(sess))
}
