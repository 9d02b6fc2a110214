package app

import (
	"fmt"
	"math"
	"strings"

	"github.com/petasbytes/code-whisperer/scoring"
	"github.com/petasbytes/code-whisperer/session"
)

const (
	colorReset  = "\u001b[0m"
	colorRed    = "\u001b[91m"
	colorYellow = "\u001b[93m"
	colorGreen  = "\u001b[92m"
	colorBlue   = "\u001b[94m"
)

func (a *App) paint(color, s string) string {
	if !a.color {
		return s
	}
	return color + s + colorReset
}

func bandColor(b scoring.Band) string {
	switch b {
	case scoring.BandLow:
		return colorRed
	case scoring.BandMedium:
		return colorYellow
	}
	return colorGreen
}

func percent(score float64) int {
	return int(math.Round(score * 100))
}

// Banner is the one-line confidence summary for score.
func Banner(score float64) string {
	b := scoring.BandFor(score)
	return fmt.Sprintf("Confidence: %s (%d%%) - %s", b, percent(score), b.Advice())
}

// LowConfidenceNotice is printed when the guardrail asked for a second answer.
func LowConfidenceNotice(initial float64) string {
	return fmt.Sprintf("Low confidence (%d%%). Asked the model to double-check.", percent(initial))
}

func (a *App) render(eval session.Evaluation) {
	var sb strings.Builder
	if eval.Retried() {
		sb.WriteString(a.paint(colorYellow, LowConfidenceNotice(eval.InitialScore)))
		sb.WriteByte('\n')
	}
	sb.WriteString(a.paint(colorBlue, "Whisperer"))
	sb.WriteString(":\n```\n")
	sb.WriteString(strings.TrimSpace(eval.Response))
	sb.WriteString("\n```\n")
	sb.WriteString(a.paint(bandColor(scoring.BandFor(eval.Score)), Banner(eval.Score)))
	sb.WriteByte('\n')
	a.printf("%s", sb.String())
}

// FormatHistory renders messages as "**User:** ..." / "**Model:** ..." lines.
func FormatHistory(history []session.Message) string {
	var sb strings.Builder
	for _, m := range history {
		label := "User"
		if m.Role == session.RoleModel {
			label = "Model"
		}
		fmt.Fprintf(&sb, "**%s:** %s\n", label, m.Text())
	}
	return sb.String()
}
