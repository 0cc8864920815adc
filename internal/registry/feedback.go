package registry

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"docverify/internal/models"
)

const (
	FeedbackMatched          = "✓ Matched with official registry record"
	FeedbackTemplateMismatch = "⚠ Template Mismatch"
)

// Feedback is the summary text stored on a submitted case.
func Feedback(matched bool, verdict models.Verdict, avgPercent float64) string {
	if matched {
		if verdict == models.VerdictAuthentic {
			return FeedbackMatched
		}
		return FeedbackTemplateMismatch
	}
	return fmt.Sprintf("AI Processing complete: %s with %s%% confidence.",
		strings.ToUpper(string(verdict)), decimal.NewFromFloat(avgPercent).Round(2).String())
}
