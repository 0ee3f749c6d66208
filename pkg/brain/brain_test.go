package brain_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leviathanlabs/leviathan/pkg/brain"
)

func TestPersona(t *testing.T) {
	ctx := context.Background()
	persona := brain.NewPersona()

	t.Run("same input yields same reply", func(t *testing.T) {
		a, err := persona.Reply(ctx, "review my merge strategy", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		b, _ := persona.Reply(ctx, "review my merge strategy", "")
		if a != b {
			t.Errorf("expected deterministic reply, got %q vs %q", a, b)
		}
	})

	t.Run("reply embeds the request text", func(t *testing.T) {
		reply, _ := persona.Reply(ctx, "explain the outage", "")
		if !strings.Contains(reply, "explain the outage") {
			t.Errorf("expected request in reply, got %q", reply)
		}
	})

	t.Run("context is appended when present", func(t *testing.T) {
		reply, _ := persona.Reply(ctx, "what is this", "main.go")
		if !strings.Contains(reply, "Context: main.go.") {
			t.Errorf("expected context in reply, got %q", reply)
		}
	})

	t.Run("empty input gets the default prompt", func(t *testing.T) {
		reply, _ := persona.Reply(ctx, "   ", "")
		if !strings.Contains(reply, "Speak, mortal.") {
			t.Errorf("expected default prompt, got %q", reply)
		}
	})
}

func TestFallback(t *testing.T) {
	ctx := context.Background()

	t.Run("primary success passes through", func(t *testing.T) {
		primary := brain.NewMock()
		fb := brain.NewFallback(primary, brain.NewPersona())

		reply, err := fb.Reply(ctx, "hello", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply != "echo: hello" {
			t.Errorf("expected primary reply, got %q", reply)
		}
	})

	t.Run("primary failure yields the persona line", func(t *testing.T) {
		primary := brain.MockWithError(errors.New("backend down"))
		persona := brain.NewPersona()
		fb := brain.NewFallback(primary, persona)

		reply, err := fb.Reply(ctx, "hello", "")
		if err != nil {
			t.Fatalf("expected fallback, got error: %v", err)
		}
		if reply != persona.Line("hello", "") {
			t.Errorf("expected deterministic persona line, got %q", reply)
		}
	})

	t.Run("fallback is a single hop", func(t *testing.T) {
		primary := brain.MockWithError(errors.New("backend down"))
		fb := brain.NewFallback(primary, brain.NewPersona())

		fb.Reply(ctx, "hello", "")
		if primary.CallCount("Reply") != 1 {
			t.Errorf("expected exactly 1 primary call, got %d", primary.CallCount("Reply"))
		}
	})
}

func TestBuildPrompt(t *testing.T) {
	t.Run("without context", func(t *testing.T) {
		p := brain.BuildPrompt("fix it", "")
		if !strings.HasPrefix(p, "Request: fix it\n") {
			t.Errorf("unexpected prompt: %q", p)
		}
		if strings.Contains(p, "Context:") {
			t.Error("expected no context section")
		}
	})

	t.Run("with context", func(t *testing.T) {
		p := brain.BuildPrompt("fix it", "ci logs")
		if !strings.Contains(p, "\nContext: ci logs\n") {
			t.Errorf("expected context section, got %q", p)
		}
	})
}

func TestNew(t *testing.T) {
	t.Run("persona backend needs no config", func(t *testing.T) {
		p, err := brain.New(brain.BackendPersona)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Name() != "persona" {
			t.Errorf("expected persona, got %s", p.Name())
		}
	})

	t.Run("openai backend requires an API key", func(t *testing.T) {
		_, err := brain.New(brain.BackendOpenAI)
		if !errors.Is(err, brain.ErrNoAPIKey) {
			t.Errorf("expected ErrNoAPIKey, got %v", err)
		}
	})

	t.Run("unknown backend is rejected", func(t *testing.T) {
		if _, err := brain.New(brain.Backend("gemini-ultra")); err == nil {
			t.Error("expected error")
		}
	})
}

func TestOpenAI(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a chat completion", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/chat/completions" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
				t.Errorf("unexpected auth header: %s", auth)
			}
			w.Write([]byte(`{"choices":[{"message":{"content":"  A sharp take.  "}}]}`))
		}))
		defer srv.Close()

		p, err := brain.NewOpenAI(
			brain.WithAPIKey("test-key"),
			brain.WithBaseURL(srv.URL),
		)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer p.Close()

		reply, err := p.Reply(ctx, "take?", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply != "A sharp take." {
			t.Errorf("expected trimmed reply, got %q", reply)
		}
	})

	t.Run("API errors carry the status code", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":{"message":"bad key"}}`))
		}))
		defer srv.Close()

		p, _ := brain.NewOpenAI(brain.WithAPIKey("wrong"), brain.WithBaseURL(srv.URL))
		defer p.Close()

		_, err := p.Reply(ctx, "take?", "")
		var apiErr *brain.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.StatusCode != 401 || apiErr.Message != "bad key" {
			t.Errorf("unexpected APIError: %+v", apiErr)
		}
	})

	t.Run("empty content is an error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
		}))
		defer srv.Close()

		p, _ := brain.NewOpenAI(brain.WithAPIKey("k"), brain.WithBaseURL(srv.URL))
		defer p.Close()

		_, err := p.Reply(ctx, "take?", "")
		if !errors.Is(err, brain.ErrEmptyReply) {
			t.Errorf("expected ErrEmptyReply, got %v", err)
		}
	})
}

func TestOllama(t *testing.T) {
	ctx := context.Background()

	t.Run("parses a generate response", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/api/generate" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			w.Write([]byte(`{"response":"Shipped. Next."}`))
		}))
		defer srv.Close()

		p, err := brain.NewOllama(brain.WithBaseURL(srv.URL))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer p.Close()

		reply, err := p.Reply(ctx, "status?", "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reply != "Shipped. Next." {
			t.Errorf("unexpected reply: %q", reply)
		}
	})

	t.Run("server error surfaces as APIError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		p, _ := brain.NewOllama(brain.WithBaseURL(srv.URL))
		defer p.Close()

		_, err := p.Reply(ctx, "status?", "")
		var apiErr *brain.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if !apiErr.IsServerError() {
			t.Error("expected server error classification")
		}
	})
}
