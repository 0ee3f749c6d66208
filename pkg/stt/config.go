package stt

import (
	"log/slog"
	"time"
)

// Default model identifiers.
const (
	DefaultWhisperModel      = "whisper-1"
	DefaultLocalWhisperModel = "base"
)

// Config holds transcription engine configuration.
// Use functional options (WithXxx) to set these values.
type Config struct {
	// Remote engine
	APIKey  string
	BaseURL string
	Model   string

	// Local engine
	LocalModel   string
	LocalCommand string // whisper CLI binary, defaults to "whisper"

	// Optional language hint passed to the engine
	Language string

	// Timeouts
	Timeout time.Duration

	// Observability
	Logger *slog.Logger
}

// Option is a functional option for configuring transcribers.
type Option func(*Config)

// WithAPIKey sets the API key for the remote engine.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithModel sets the remote Whisper model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithLocalModel sets the local whisper model size.
func WithLocalModel(model string) Option {
	return func(c *Config) { c.LocalModel = model }
}

// WithLocalCommand sets the local whisper CLI binary.
func WithLocalCommand(cmd string) Option {
	return func(c *Config) { c.LocalCommand = cmd }
}

// WithLanguage sets the language hint.
func WithLanguage(lang string) Option {
	return func(c *Config) { c.Language = lang }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:        DefaultWhisperModel,
		LocalModel:   DefaultLocalWhisperModel,
		LocalCommand: "whisper",
		Timeout:      120 * time.Second,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
