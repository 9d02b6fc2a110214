// Package metrics derives local, payload-free statistics: text sizes for
// telemetry and guardrail tallies for evaluation runs.
package metrics

import (
	"strings"
	"unicode/utf8"
)

// TextStats describes a string without carrying it.
type TextStats struct {
	Bytes int `json:"bytes"`
	Runes int `json:"runes"`
	Words int `json:"words"`
	Lines int `json:"lines"`
}

// Text computes TextStats for s. Lines is 0 for the empty string, otherwise
// one more than the number of newlines.
func Text(s string) TextStats {
	st := TextStats{
		Bytes: len(s),
		Runes: utf8.RuneCountInString(s),
		Words: len(strings.Fields(s)),
	}
	if s != "" {
		st.Lines = 1 + strings.Count(s, "\n")
	}
	return st
}
