package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/petasbytes/code-whisperer/internal/app"
	"github.com/petasbytes/code-whisperer/internal/config"
	"github.com/petasbytes/code-whisperer/internal/fsops"
	"github.com/petasbytes/code-whisperer/internal/provider"
	"github.com/petasbytes/code-whisperer/memory"
	"github.com/petasbytes/code-whisperer/session"
	"github.com/redis/go-redis/v9"
	"golang.org/x/term"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", config.GetEnv("CW_CONFIG", ""), "YAML config file")
	providerName := flag.String("provider", "", "Model provider (anthropic, openai)")
	model := flag.String("model", "", "Technical name of the LLM")
	apiURL := flag.String("api", "", "Base URL of the provider API")
	temperature := flag.String("temperature", "", "Sampling temperature [0, 1]")
	threshold := flag.String("threshold", "", "Guardrail score below which the answer is retried [0, 1]")
	codePath := flag.String("code", "", "Source file (under the read root) to review")
	message := flag.String("message", "", "Ask once and exit")
	keywords := flag.String("keywords", "", "Expected keywords, comma-separated")
	suitePath := flag.String("eval", "", "Run a YAML question suite and exit")
	transcript := flag.String("transcript", "", "Save and resume the conversation in this file")
	redisAddr := flag.String("redis", "", "Redis address or URL for archiving sessions")
	flag.Parse()

	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.LoadFile(*configPath)
		if err != nil {
			return err
		}
		cfg = *loaded
	}
	if err := config.FromEnv(&cfg); err != nil {
		return err
	}

	// Flags win over file and env, but only when given.
	var flagErr error
	flag.Visit(func(f *flag.Flag) {
		var err error
		switch f.Name {
		case "provider":
			cfg.Provider.Name = *providerName
		case "model":
			cfg.Provider.Model = *model
		case "api":
			cfg.Provider.BaseURL = *apiURL
		case "temperature":
			cfg.Generation.Temperature, err = strconv.ParseFloat(*temperature, 64)
		case "threshold":
			cfg.Threshold, err = strconv.ParseFloat(*threshold, 64)
		case "transcript":
			cfg.TranscriptPath = *transcript
		case "redis":
			cfg.RedisAddr = *redisAddr
		}
		if err != nil {
			flagErr = errors.Join(flagErr, fmt.Errorf("-%s: %w", f.Name, err))
		}
	})
	if flagErr != nil {
		return flagErr
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	llm, err := provider.New(cfg.Provider)
	if err != nil {
		return err
	}
	reader, err := fsops.NewReader(cfg.ReadRoot)
	if err != nil {
		return err
	}

	var code string
	if *codePath != "" {
		src, err := reader.ReadSource(*codePath)
		if err != nil {
			return fmt.Errorf("-code: %w", err)
		}
		code = src.Content
	}

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigch)
	go func() {
		<-sigch
		fmt.Fprintln(os.Stderr, "\nExiting...")
		cancel()
	}()

	var archive app.Archive
	if cfg.RedisAddr != "" {
		rdb, err := newRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		archive = memory.NewRedisArchive(rdb, cfg.RedisTTL)
	}

	interactive := *message == "" && *suitePath == "" && term.IsTerminal(int(os.Stdin.Fd()))
	var out io.Writer = os.Stdout
	var t *term.Terminal
	if interactive {
		// terminalLines may still be blocked in ReadLine when ctx is cancelled;
		// put the TTY back from here so every exit path leaves it cooked.
		fd := int(os.Stdin.Fd())
		state, err := term.GetState(fd)
		if err != nil {
			return err
		}
		defer term.Restore(fd, state)
		t = term.NewTerminal(os.Stdin, "\u001b[94mYou\u001b[0m: ")
		out = t
	}

	a := app.New(app.Options{
		Store:   session.NewStore(llm),
		Config:  cfg,
		Code:    code,
		Reader:  reader,
		Archive: archive,
		Out:     out,
		Color:   interactive,
	})
	defer func() {
		// The run context may already be cancelled; give the archive its own budget.
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := a.Close(closeCtx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to archive session: %v\n", err)
		}
	}()

	if cfg.TranscriptPath != "" {
		saved, err := memory.LoadTranscript(cfg.TranscriptPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load transcript: %v\n", err)
		} else if saved != nil {
			if err := a.Restore(saved); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to resume transcript: %v\n", err)
			}
		}
	}
	if *keywords != "" {
		if _, err := a.Handle(ctx, "/keywords "+*keywords); err != nil {
			return err
		}
	}

	switch {
	case *suitePath != "":
		suite, err := app.LoadSuite(*suitePath)
		if err != nil {
			return err
		}
		_, err = a.RunSuite(ctx, suite)
		return err
	case *message != "":
		_, err := a.Ask(ctx, *message)
		return err
	}

	a.Greet()
	if interactive {
		return repl(ctx, a, terminalLines(t), out)
	}
	return repl(ctx, a, scannerLines(os.Stdin), out)
}

func newRedis(ctx context.Context, addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		var err error
		if opts, err = redis.ParseURL(addr); err != nil {
			return nil, fmt.Errorf("invalid redis URL: %w", err)
		}
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}

// repl feeds lines to the app until quit, EOF or cancellation.
func repl(ctx context.Context, a *app.App, lines <-chan string, out io.Writer) error {
	for {
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
			if !ok {
				return nil
			}
		}
		quit, err := a.Handle(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "Error: %v\n", err)
		}
		if quit {
			s := a.Summary()
			fmt.Fprintf(out, "Bye. %d asks, %d retried, mean score %.0f%%.\n", s.Asks, s.Retried, s.MeanScore*100)
			return nil
		}
	}
}

// scannerLines reads stdin line by line (pipes, files).
func scannerLines(r io.Reader) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			ch <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: stdin read error: %v\n", err)
		}
	}()
	return ch
}

// terminalLines reads from a TTY with line editing, switching to raw mode
// only while a line is being typed.
func terminalLines(t *term.Terminal) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		fd := int(os.Stdin.Fd())
		for {
			oldState, err := term.MakeRaw(fd)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Fatal:", err)
				return
			}
			if width, height, err := term.GetSize(fd); err == nil {
				_ = t.SetSize(width, height)
			}
			line, err := t.ReadLine()
			restoreErr := term.Restore(fd, oldState)
			if err != nil {
				if err != io.EOF {
					fmt.Fprintln(os.Stderr, "Fatal:", err)
				}
				return
			}
			if restoreErr != nil {
				fmt.Fprintln(os.Stderr, "Fatal:", restoreErr)
				return
			}
			ch <- line
		}
	}()
	return ch
}
