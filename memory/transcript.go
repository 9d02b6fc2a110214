package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/petasbytes/code-whisperer/session"
	"gopkg.in/yaml.v3"
)

// Entry is the persisted view of a session.Message.
type Entry struct {
	Role  string   `json:"role" yaml:"role"`
	Parts []string `json:"parts" yaml:"parts"`
}

// Transcript is everything needed to resume a session.
type Transcript struct {
	SessionID  string                   `json:"session_id" yaml:"session_id"`
	Generation session.GenerationConfig `json:"generation" yaml:"generation"`
	Code       string                   `json:"code,omitempty" yaml:"code,omitempty"`
	Messages   []Entry                  `json:"messages" yaml:"messages"`
}

// FromSession snapshots s.
func FromSession(s *session.Session) Transcript {
	history := s.History()
	cfg := s.Config()
	t := Transcript{
		SessionID:  s.ID(),
		Generation: cfg.Generation,
		Code:       cfg.Code,
		Messages:   make([]Entry, 0, len(history)),
	}
	for _, m := range history {
		t.Messages = append(t.Messages, Entry{Role: string(m.Role), Parts: m.Parts})
	}
	return t
}

// History converts the entries back into session messages.
func (t Transcript) History() ([]session.Message, error) {
	out := make([]session.Message, 0, len(t.Messages))
	for i, e := range t.Messages {
		role, err := session.ParseRole(e.Role)
		if err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
		out = append(out, session.NewMessage(role, e.Parts...))
	}
	return out, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// LoadTranscript reads a transcript file. A missing file yields nil, nil.
func LoadTranscript(path string) (*Transcript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var t Transcript
	if isYAML(path) {
		err = yaml.Unmarshal(b, &t)
	} else {
		err = json.Unmarshal(b, &t)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode transcript %s: %w", path, err)
	}
	return &t, nil
}

// SaveTranscript writes t to path, creating parent directories as needed.
func SaveTranscript(path string, t Transcript) error {
	var (
		b   []byte
		err error
	)
	if isYAML(path) {
		b, err = yaml.Marshal(t)
	} else {
		b, err = json.MarshalIndent(t, "", " ")
	}
	if err != nil {
		return fmt.Errorf("failed to encode transcript: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o640)
}
