package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/velocityfibre/fibrefield/internal/models"
)

// FeedbackWriter turns a terse admin rejection into a clear, actionable
// note for the technician who has to fix the capture in the field.
type FeedbackWriter struct {
	client *GeminiClient
}

// NewFeedbackWriter wraps a Gemini client. client may be nil; Generate
// then falls back to a plain template.
func NewFeedbackWriter(client *GeminiClient) *FeedbackWriter {
	return &FeedbackWriter{client: client}
}

// Generate writes rework instructions for a rejected capture
func (f *FeedbackWriter) Generate(ctx context.Context, c *models.Capture, requiredActions []string) (string, error) {
	if c.RejectionReason == "" {
		return "", fmt.Errorf("capture %s has no rejection reason", c.ID)
	}

	fallback := fallbackFeedback(c, requiredActions)
	if f.client == nil {
		return fallback, nil
	}

	prompt := buildFeedbackPrompt(c, requiredActions)
	text, err := f.client.GenerateContent(ctx, prompt)
	if err != nil {
		// AI is best-effort; the technician still gets usable instructions
		return fallback, nil
	}
	return strings.TrimSpace(text), nil
}

func buildFeedbackPrompt(c *models.Capture, requiredActions []string) string {
	var b strings.Builder
	b.WriteString("You are writing a short rework note for a fibre installation technician.\n")
	b.WriteString("Their home-drop capture was rejected during quality review.\n")
	b.WriteString("Write 2-4 plain sentences telling them exactly what to fix on site. No greetings, no markdown.\n\n")
	fmt.Fprintf(&b, "Capture: %s at pole %s\n", c.ID, c.PoleNumber)
	fmt.Fprintf(&b, "Rejection reason: %s\n", c.RejectionReason)
	if len(requiredActions) > 0 {
		fmt.Fprintf(&b, "Required actions: %s\n", strings.Join(requiredActions, "; "))
	}
	return b.String()
}

func fallbackFeedback(c *models.Capture, requiredActions []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Capture %s was rejected: %s.", c.ID, c.RejectionReason)
	if len(requiredActions) > 0 {
		fmt.Fprintf(&b, " Required: %s.", strings.Join(requiredActions, "; "))
	}
	b.WriteString(" Please redo the listed items and resubmit.")
	return b.String()
}
