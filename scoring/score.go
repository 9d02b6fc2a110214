// Package scoring rates model answers by keyword overlap.
//
// The score is a heuristic, not a calibrated probability: it is the share of
// expected keywords that occur (case-insensitively, as substrings) in the
// answer. An empty keyword list scores 1.0.
package scoring

import "strings"

// Score returns hits/len(keywords), where a hit is a keyword found anywhere in
// response ignoring case. Duplicate keywords are tested and counted
// independently. No word boundaries apply: "program" matches "programming".
func Score(response string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 1.0
	}
	haystack := strings.ToLower(response)
	hits := 0
	for _, kw := range keywords {
		if strings.Contains(haystack, strings.ToLower(kw)) {
			hits++
		}
	}
	return float64(hits) / float64(len(keywords))
}

// ParseKeywords splits a comma-separated list and trims each entry.
// Blank input yields an empty (non-nil) list.
func ParseKeywords(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return []string{}
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
