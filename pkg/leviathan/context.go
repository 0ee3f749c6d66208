package leviathan

import (
	"context"
	"os/exec"
	"strings"
)

// ContextProvider supplies optional extra context for a reply (clipboard
// text, active window title). A failed lookup yields an empty string,
// never an error: missing context must not break a turn.
type ContextProvider interface {
	Context(ctx context.Context) string
}

// ContextFunc adapts a function to ContextProvider.
type ContextFunc func(ctx context.Context) string

// Context calls the function.
func (f ContextFunc) Context(ctx context.Context) string {
	return f(ctx)
}

// StaticContext returns the same string for every turn.
func StaticContext(text string) ContextProvider {
	return ContextFunc(func(context.Context) string {
		return text
	})
}

// clipboardMax truncates pasted context so a copied source file does not
// blow out the prompt.
const clipboardMax = 2000

// ClipboardContext reads the system clipboard via xclip, falling back
// to pbpaste. Any failure yields empty context.
type ClipboardContext struct{}

// Context returns the current clipboard text, truncated.
func (ClipboardContext) Context(ctx context.Context) string {
	for _, candidate := range [][]string{
		{"xclip", "-selection", "clipboard", "-o"},
		{"pbpaste"},
	} {
		out, err := exec.CommandContext(ctx, candidate[0], candidate[1:]...).Output()
		if err != nil {
			continue
		}
		text := strings.TrimSpace(string(out))
		if len(text) > clipboardMax {
			text = text[:clipboardMax]
		}
		return text
	}
	return ""
}

// Verify implementations at compile time.
var (
	_ ContextProvider = (ContextFunc)(nil)
	_ ContextProvider = ClipboardContext{}
)
