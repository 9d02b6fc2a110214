package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/petasbytes/code-whisperer/internal/metrics"
	"github.com/petasbytes/code-whisperer/session"
	"gopkg.in/yaml.v3"
)

// AccurateAbove is the score a suite answer must exceed to count as accurate.
const AccurateAbove = 0.7

// Case is one suite question with the keywords a good answer mentions.
type Case struct {
	Question         string   `yaml:"question"`
	ExpectedKeywords []string `yaml:"expected_keywords"`
}

// Suite is a batch of questions asked in one session about the same code.
type Suite struct {
	Code  string `yaml:"code,omitempty"`
	Cases []Case `yaml:"cases"`
}

// Result is the outcome of one Case.
type Result struct {
	Question string
	Response string
	Score    float64
	Attempts int
	Err      error
}

// Accurate reports whether the answer cleared AccurateAbove.
func (r Result) Accurate() bool {
	return r.Err == nil && r.Score > AccurateAbove
}

// LoadSuite reads a YAML suite file.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite: %w", err)
	}
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse suite: %w", err)
	}
	if len(s.Cases) == 0 {
		return nil, errors.New("suite has no cases")
	}
	return &s, nil
}

// RunSuite asks every case in a fresh session seeded with the suite's code
// (or the App's, when the suite has none) and prints a report per case.
// Model failures are recorded per case and do not stop the run; a cancelled
// ctx does.
func (a *App) RunSuite(ctx context.Context, s *Suite) ([]Result, error) {
	savedCode, savedKeywords := a.code, a.keywords
	defer func() { a.code, a.keywords = savedCode, savedKeywords }()
	if s.Code != "" {
		a.code = s.Code
	}
	a.store.Reset()

	results := make([]Result, 0, len(s.Cases))
	for _, c := range s.Cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		a.keywords = c.ExpectedKeywords
		a.printf("Question: %s\n", c.Question)

		eval, err := a.Ask(ctx, c.Question)
		r := Result{Question: c.Question, Response: eval.Response, Score: eval.Score, Attempts: eval.Attempts, Err: err}
		results = append(results, r)

		switch {
		case err != nil:
			a.printf("Error: %v\n", err)
		case r.Accurate():
			a.printf("Score: %d%% - Accurate\n", percent(r.Score))
		default:
			a.printf("Score: %d%% - Possible hallucination\n", percent(r.Score))
		}
		a.printf("%s\n", separator)
	}

	var tally metrics.Tally
	for _, r := range results {
		tally.Observe(session.Evaluation{Score: r.Score, Attempts: r.Attempts}, r.Err)
	}
	sum := tally.Summary()
	a.printf("%d questions, %d failed, %d retried, mean score %d%%\n",
		sum.Asks, sum.Failed, sum.Retried, percent(sum.MeanScore))
	return results, nil
}

const separator = "--------------------------------------------------------------------------------"
