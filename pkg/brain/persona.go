package brain

import (
	"context"
	"hash/fnv"
	"strings"
)

const providerPersona = "persona"

// Persona openers and tone tags. The pairing is chosen by hashing the
// request text, so the same input always yields the same line. That
// keeps fallback replies testable and stops the co-host from sounding
// like a slot machine when a backend is flapping.
var (
	personaOpeners = []string{
		"We are Code Leviathan.",
		"The abyss answers (with a grin).",
		"Leviathan stirs; keep up.",
		"Your code tides shift; so does our mood.",
	}
	personaTones = []string{
		"Brief, with bite.",
		"Pointed, a smirk implied.",
		"Dry humor only; no flattery.",
	}
)

// Persona is the deterministic, non-networked reply generator.
// It is both a selectable backend and the fallback of last resort, so
// Reply never returns an error.
type Persona struct{}

// NewPersona creates the persona provider.
func NewPersona() *Persona {
	return &Persona{}
}

// Reply composes a persona quip around the request text.
func (p *Persona) Reply(_ context.Context, text, extra string) (string, error) {
	return p.Line(text, extra), nil
}

// Line is the error-free form of Reply, used directly by the fallback
// wrapper.
func (p *Persona) Line(text, extra string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		text = "Speak, mortal."
	}

	h := fnv.New32a()
	h.Write([]byte(text))
	sum := h.Sum32()

	opener := personaOpeners[sum%uint32(len(personaOpeners))]
	tone := personaTones[(sum/uint32(len(personaOpeners)))%uint32(len(personaTones))]

	ctx := ""
	if extra != "" {
		ctx = " Context: " + extra + "."
	}
	return opener + " " + text + ctx + " " + tone
}

// Name identifies the backend.
func (p *Persona) Name() string {
	return providerPersona
}

// Close is a no-op.
func (p *Persona) Close() error {
	return nil
}

// Verify Persona implements Provider at compile time.
var _ Provider = (*Persona)(nil)
