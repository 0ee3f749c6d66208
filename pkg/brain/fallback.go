package brain

import (
	"context"
	"log/slog"
)

// Fallback wraps a primary backend with the persona as a single
// explicit second hop. A runtime failure of the primary downgrades to
// the deterministic persona reply instead of aborting the turn. There
// is no retry loop here; the primary already retries transient HTTP
// failures internally.
type Fallback struct {
	primary Provider
	persona *Persona
	logger  *slog.Logger
}

// NewFallback wraps the primary provider with the persona fallback.
func NewFallback(primary Provider, persona *Persona) *Fallback {
	return &Fallback{
		primary: primary,
		persona: persona,
		logger:  slog.Default().With("component", "brain.fallback"),
	}
}

// Reply tries the primary backend, then the persona.
func (f *Fallback) Reply(ctx context.Context, text, extra string) (string, error) {
	reply, err := f.primary.Reply(ctx, text, extra)
	if err == nil {
		return reply, nil
	}

	f.logger.Warn("backend failed, falling back to persona",
		"backend", f.primary.Name(),
		"error", err,
	)
	return f.persona.Line(text, extra), nil
}

// Name identifies the composite for logging.
func (f *Fallback) Name() string {
	return f.primary.Name() + "+persona"
}

// Close closes the primary backend.
func (f *Fallback) Close() error {
	return f.primary.Close()
}

// Verify Fallback implements Provider at compile time.
var _ Provider = (*Fallback)(nil)
