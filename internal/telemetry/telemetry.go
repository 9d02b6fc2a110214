// Package telemetry writes JSONL events for offline inspection of model
// calls and guardrail outcomes. Events never carry raw prompt or answer text,
// only sizes (see TextSizes).
package telemetry

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/petasbytes/code-whisperer/internal/metrics"
)

// Event names.
const (
	EventModelInvocation = "model_invocation"
	EventAskComplete     = "ask_complete"
	EventAskFailed       = "ask_failed"
)

var writeMu sync.Mutex

// Emit appends a single JSON line to <ArtifactsDir>/events.jsonl when
// observation is enabled. It augments fields with RFC3339Nano time and the
// event name. Failures are reported on stderr and otherwise ignored.
func Emit(name string, fields map[string]any) {
	if !ObserveEnabled() {
		return
	}

	// Copy so callers' maps aren't mutated.
	m := make(map[string]any, len(fields)+2)
	maps.Copy(m, fields)
	m["time"] = time.Now().UTC().Format(time.RFC3339Nano)
	m["event"] = name

	b, err := json.Marshal(m)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: marshal: %v\n", err)
		return
	}

	dir := ArtifactsDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: mkdir %s: %v\n", dir, err)
		return
	}

	writeMu.Lock()
	defer writeMu.Unlock()

	path := filepath.Join(dir, "events.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: open %s: %v\n", path, err)
		return
	}
	defer f.Close()

	if _, err := f.Write(append(b, '\n')); err != nil {
		fmt.Fprintf(os.Stderr, "telemetry: write %s: %v\n", path, err)
	}
}

// TextSizes describes s without revealing it.
func TextSizes(s string) map[string]any {
	st := metrics.Text(s)
	return map[string]any{
		"bytes": st.Bytes,
		"runes": st.Runes,
		"words": st.Words,
		"lines": st.Lines,
	}
}
