package brain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leviathanlabs/leviathan/internal/httpc"
)

const providerOllama = "ollama"

// Ollama implements Provider against a local Ollama server's native
// generate API. No API key is required.
type Ollama struct {
	config  *Config
	client  *http.Client
	logger  *slog.Logger
	baseURL string
}

// NewOllama creates an Ollama-backed reply provider.
func NewOllama(opts ...Option) (*Ollama, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.Model == "" {
		cfg.Model = DefaultOllamaModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultOllamaURL
	}

	return &Ollama{
		config:  cfg,
		client:  httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "brain.ollama"),
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Reply generates one reply via the generate endpoint.
func (o *Ollama) Reply(ctx context.Context, text, extra string) (string, error) {
	start := time.Now()

	payload := map[string]interface{}{
		"model":  o.config.Model,
		"prompt": BuildPrompt(text, extra),
		"system": o.config.SystemPrompt,
		"stream": false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", WrapError(providerOllama, fmt.Errorf("marshal payload: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", WrapError(providerOllama, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", WrapError(providerOllama, fmt.Errorf("generate request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(raw),
			Provider:   providerOllama,
		}
	}

	var result struct {
		Response string `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", WrapError(providerOllama, fmt.Errorf("decode response: %w", err))
	}

	reply := strings.TrimSpace(result.Response)
	if reply == "" {
		return "", WrapError(providerOllama, ErrEmptyReply)
	}

	o.logger.Debug("reply generated",
		"chars", len(reply),
		"latency_ms", time.Since(start).Milliseconds(),
		"model", o.config.Model,
	)
	return reply, nil
}

// Name identifies the backend.
func (o *Ollama) Name() string {
	return providerOllama
}

// Close releases resources held by the provider.
func (o *Ollama) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// Verify Ollama implements Provider at compile time.
var _ Provider = (*Ollama)(nil)
