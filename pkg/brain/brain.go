// Package brain generates Leviathan's spoken replies.
//
// A reply comes from one of a closed set of backends: a local Ollama
// server, the OpenAI chat completions API, or a deterministic persona
// generator that needs no network. The backend is selected once at
// startup; runtime failures fall back to the persona in a single hop.
//
// Example usage:
//
//	provider, _ := brain.New(brain.BackendOllama)
//	defer provider.Close()
//
//	reply, _ := provider.Reply(ctx, "roast my deploy script", "")
package brain

import (
	"context"
	"fmt"
)

// Provider generates one reply for one request.
// Implementations are fallible and potentially seconds-slow; callers
// own timeouts via ctx.
type Provider interface {
	// Reply produces a reply for the request text. The extra string is
	// optional injected context (clipboard, window title); may be empty.
	Reply(ctx context.Context, text, extra string) (string, error)

	// Name identifies the backend for logging.
	Name() string

	// Close releases any resources held by the provider.
	Close() error
}

// Backend selects a reply backend.
type Backend string

const (
	// BackendOllama uses a local Ollama server's generate API.
	BackendOllama Backend = "ollama"
	// BackendOpenAI uses the OpenAI chat completions API.
	BackendOpenAI Backend = "openai"
	// BackendPersona uses the deterministic, non-networked persona.
	BackendPersona Backend = "local"
)

// New creates the configured backend wrapped with the persona fallback.
// Missing required config for the selected backend is a startup error,
// not a silent fallback.
func New(backend Backend, opts ...Option) (Provider, error) {
	persona := NewPersona()

	switch backend {
	case BackendPersona, "":
		return persona, nil
	case BackendOllama:
		p, err := NewOllama(opts...)
		if err != nil {
			return nil, err
		}
		return NewFallback(p, persona), nil
	case BackendOpenAI:
		p, err := NewOpenAI(opts...)
		if err != nil {
			return nil, err
		}
		return NewFallback(p, persona), nil
	default:
		return nil, fmt.Errorf("brain: unknown backend %q", backend)
	}
}

// SystemPrompt frames every LLM-backed reply.
const SystemPrompt = `You are **Leviathan**, a high-energy human co-host (the dragon look is visual only; do not roleplay it unless asked).
- On-camera: keep the volley moving, avoid dead air; default to 1-2 sentences unless it's a gamestate call (stay concise there).
- Useful first, playful second: answer directly, give a next step or take, then a quick wit if there's room.
- Tone: lively, clever, grounded; no pet names, no "darling," no fantasy/cosmic theatrics.
- Humor: timely and on-topic; include names/events verbatim; tease lightly, stay constructive and actionable.
- Deliver one cohesive response; avoid double-takes or "but seriously" follow-ups.`

// BuildPrompt renders the user request plus optional context into the
// prompt sent to LLM backends.
func BuildPrompt(text, extra string) string {
	ctx := ""
	if extra != "" {
		ctx = "\nContext: " + extra
	}
	return fmt.Sprintf("Request: %s%s\nProvide one cohesive reply (no follow-up takes or meta asides). Keep it concise.", text, ctx)
}
