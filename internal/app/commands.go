package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/petasbytes/code-whisperer/memory"
	"github.com/petasbytes/code-whisperer/scoring"
	"github.com/petasbytes/code-whisperer/session"
)

const helpText = `Commands:
  /load <path>         attach a source file; questions are asked about it
  /unload              back to plain chat
  /ls [dir]            list files under the read root
  /keywords [a, b]     expected keywords for scoring (empty clears)
  /set <name> <value>  temperature | top_p | top_k | max_tokens
  /settings            show settings, keywords and loaded file
  /history             print the conversation
  /reset               start a new session with the current settings
  /save [path]         write the transcript (JSON, or YAML for .yaml/.yml)
  /resume <path>       continue a saved transcript
  /restore <id>        continue a transcript from the archive
  /stats               guardrail totals
  /help                this text
  /quit                leave
`

func (a *App) command(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		a.printf("%s", helpText)
	case "/load":
		return false, a.load(arg)
	case "/unload":
		a.pending = nil
		a.printf("Back to chat mode.\n")
	case "/ls":
		return false, a.list(arg)
	case "/keywords":
		a.keywords = scoring.ParseKeywords(arg)
		if len(a.keywords) == 0 {
			a.printf("Expected keywords cleared.\n")
		} else {
			a.printf("Expected keywords: %s\n", strings.Join(a.keywords, ", "))
		}
	case "/set":
		return false, a.set(arg)
	case "/settings":
		a.showSettings()
	case "/history":
		sess, ok := a.store.Current()
		if !ok {
			a.printf("No conversation yet.\n")
			return false, nil
		}
		a.printf("%s", FormatHistory(sess.History()))
	case "/reset":
		a.store.Reset()
		if _, err := a.store.GetOrCreate(session.Config{Generation: a.settings, Code: a.code}); err != nil {
			return false, err
		}
		a.printf("Started a new session.\n")
		a.Greet()
	case "/save":
		return false, a.save(ctx, arg)
	case "/resume":
		return false, a.resumeFile(arg)
	case "/restore":
		return false, a.restore(ctx, arg)
	case "/stats":
		a.showStats()
	default:
		return false, fmt.Errorf("unknown command %s (try /help)", name)
	}
	return false, nil
}

func (a *App) load(path string) error {
	if a.reader == nil {
		return errors.New("file loading is not configured")
	}
	if path == "" {
		return errors.New("usage: /load <path>")
	}
	src, err := a.reader.ReadSource(path)
	if err != nil {
		return err
	}
	a.pending = &src
	note := ""
	if src.Truncated {
		note = " (truncated)"
	}
	a.printf("Loaded %s%s. Ask a question about it.\n", src.Path, note)
	return nil
}

func (a *App) list(dir string) error {
	if a.reader == nil {
		return errors.New("file loading is not configured")
	}
	names, err := a.reader.List(dir)
	if err != nil {
		return err
	}
	a.printf("%s\n", strings.Join(names, "\n"))
	return nil
}

func (a *App) set(arg string) error {
	name, value, ok := strings.Cut(arg, " ")
	value = strings.TrimSpace(value)
	if !ok || value == "" {
		return errors.New("usage: /set <temperature|top_p|top_k|max_tokens> <value>")
	}

	next := a.settings
	var err error
	switch name {
	case "temperature":
		next.Temperature, err = strconv.ParseFloat(value, 64)
	case "top_p":
		next.TopP, err = strconv.ParseFloat(value, 64)
	case "top_k":
		next.TopK, err = strconv.Atoi(value)
	case "max_tokens":
		next.MaxOutputTokens, err = strconv.Atoi(value)
	default:
		return fmt.Errorf("unknown setting %q", name)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	a.settings = next

	a.printf("%s set to %s.\n", name, value)
	if sess, ok := a.store.Current(); ok && sess.Config().Generation != next {
		a.printf("The current session keeps its settings; use /reset to apply.\n")
	}
	return nil
}

func (a *App) showSettings() {
	g := a.settings
	a.printf("temperature=%v top_p=%v top_k=%d max_tokens=%d threshold=%v\n",
		g.Temperature, g.TopP, g.TopK, g.MaxOutputTokens, a.cfg.Threshold)
	if len(a.keywords) > 0 {
		a.printf("keywords: %s\n", strings.Join(a.keywords, ", "))
	}
	if a.pending != nil {
		a.printf("file: %s\n", a.pending.Path)
	}
}

func (a *App) showStats() {
	s := a.tally.Summary()
	a.printf("asks=%d failed=%d retried=%d mean=%d%% low=%d medium=%d high=%d\n",
		s.Asks, s.Failed, s.Retried, percent(s.MeanScore),
		s.Bands[scoring.BandLow], s.Bands[scoring.BandMedium], s.Bands[scoring.BandHigh])
}

func (a *App) save(ctx context.Context, path string) error {
	sess, ok := a.store.Current()
	if !ok {
		return errors.New("nothing to save yet")
	}
	t := memory.FromSession(sess)

	if path == "" {
		path = a.cfg.TranscriptPath
	}
	if path == "" && a.archive == nil {
		return errors.New("usage: /save <path>")
	}
	if path != "" {
		if err := memory.SaveTranscript(path, t); err != nil {
			return err
		}
		a.printf("Saved transcript to %s.\n", path)
	}
	if a.archive != nil {
		if err := a.archive.Save(ctx, t); err != nil {
			return err
		}
		a.printf("Archived session %s.\n", t.SessionID)
	}
	return nil
}

func (a *App) resumeFile(path string) error {
	if path == "" {
		return errors.New("usage: /resume <path>")
	}
	t, err := memory.LoadTranscript(path)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("%s: %w", path, os.ErrNotExist)
	}
	if err := a.Restore(t); err != nil {
		return err
	}
	a.printf("Resumed %d messages from %s.\n", len(t.Messages), path)
	return nil
}

func (a *App) restore(ctx context.Context, id string) error {
	if a.archive == nil {
		return errors.New("no archive configured")
	}
	if id == "" {
		return errors.New("usage: /restore <session id>")
	}
	t, err := a.archive.Load(ctx, id)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("no archived session %s", id)
	}
	if err := a.Restore(t); err != nil {
		return err
	}
	a.printf("Restored %d messages of session %s.\n", len(t.Messages), id)
	return nil
}
