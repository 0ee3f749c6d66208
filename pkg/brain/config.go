package brain

import (
	"log/slog"
	"time"
)

// Default model IDs per backend.
const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultOllamaModel = "llama3:8b"
	DefaultOllamaURL   = "http://localhost:11434"
)

// Config holds reply backend configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Connection
	BaseURL string
	APIKey  string

	// Model and sampling
	Model       string
	Temperature float64
	MaxTokens   int

	// SystemPrompt overrides the default Leviathan persona prompt.
	SystemPrompt string

	// Timeouts
	Timeout time.Duration

	// Retry configuration
	MaxRetries int
	RetryDelay time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring reply backends.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

// WithMaxTokens sets the reply token budget.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithSystemPrompt overrides the persona system prompt.
func WithSystemPrompt(p string) Option {
	return func(c *Config) { c.SystemPrompt = p }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry configures retry behavior for failed requests.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults. Replies are deliberately
// short: this is a co-host quip, not an essay.
func DefaultConfig() *Config {
	return &Config{
		Temperature:  0.6,
		MaxTokens:    120,
		SystemPrompt: SystemPrompt,
		Timeout:      120 * time.Second,
		MaxRetries:   2,
		RetryDelay:   100 * time.Millisecond,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
