// Package commands classifies operator utterances into coarse intents.
// The classifier is deliberately naive keyword matching; nothing routes
// through it yet.
package commands

import (
	"fmt"
	"log/slog"
	"strings"
)

// Intent is a coarse category of operator command.
type Intent string

const (
	IntentUnknown       Intent = "unknown"
	IntentReviewCode    Intent = "review_code"
	IntentGenerateEvent Intent = "generate_event"
	IntentExplainLogic  Intent = "explain_logic"
)

// ParseIntent maps command text to an intent by keyword.
// Matching is case-insensitive; unrecognized text maps to IntentUnknown.
func ParseIntent(text string) Intent {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "review"):
		return IntentReviewCode
	case strings.Contains(lower, "event"):
		return IntentGenerateEvent
	case strings.Contains(lower, "explain"), strings.Contains(lower, "logic"):
		return IntentExplainLogic
	default:
		return IntentUnknown
	}
}

// Handle is a placeholder handler that logs and summarizes the dispatch.
func Handle(intent Intent, args map[string]string) string {
	slog.Default().With("component", "commands").Info("handling intent",
		"intent", intent,
		"args", args,
	)
	if args == nil {
		args = map[string]string{}
	}
	return fmt.Sprintf("Handled %s with args=%v", intent, args)
}
