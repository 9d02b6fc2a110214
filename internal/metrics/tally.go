package metrics

import (
	"sync"

	"github.com/petasbytes/code-whisperer/scoring"
	"github.com/petasbytes/code-whisperer/session"
)

// Summary is a snapshot of a Tally.
type Summary struct {
	Asks      int
	Retried   int
	Failed    int
	MeanScore float64 // Over successful asks; 0 when there are none.
	Bands     map[scoring.Band]int
}

// RetryRate is the fraction of successful asks that needed the retry.
func (s Summary) RetryRate() float64 {
	ok := s.Asks - s.Failed
	if ok == 0 {
		return 0
	}
	return float64(s.Retried) / float64(ok)
}

// Tally accumulates guardrail outcomes. Safe for concurrent use.
type Tally struct {
	mu       sync.Mutex
	asks     int
	retried  int
	failed   int
	scoreSum float64
	bands    map[scoring.Band]int
}

// Observe records one Ask outcome. A non-nil err counts as a failure and
// eval is ignored.
func (t *Tally) Observe(eval session.Evaluation, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.asks++
	if err != nil {
		t.failed++
		return
	}
	if eval.Retried() {
		t.retried++
	}
	t.scoreSum += eval.Score
	if t.bands == nil {
		t.bands = make(map[scoring.Band]int)
	}
	t.bands[scoring.BandFor(eval.Score)]++
}

// Summary returns the current totals.
func (t *Tally) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Summary{Asks: t.asks, Retried: t.retried, Failed: t.failed, Bands: make(map[scoring.Band]int, len(t.bands))}
	for b, n := range t.bands {
		s.Bands[b] = n
	}
	if ok := t.asks - t.failed; ok > 0 {
		s.MeanScore = t.scoreSum / float64(ok)
	}
	return s
}
