package telemetry

import (
	"os"
)

const defaultArtifactsDir = ".whisperer"

// ObserveEnabled reports whether JSONL emission is on. The environment is
// read on every call so CW_OBSERVE_JSON can be toggled mid-run.
func ObserveEnabled() bool {
	return os.Getenv("CW_OBSERVE_JSON") == "1"
}

// ArtifactsDir is the directory events.jsonl is written to.
func ArtifactsDir() string {
	if dir := os.Getenv("CW_ARTIFACTS_DIR"); dir != "" {
		return dir
	}
	return defaultArtifactsDir
}
