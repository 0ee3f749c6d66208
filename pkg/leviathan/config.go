// Package leviathan wires the voice co-host together: capture,
// transcription, reply generation, synthesis, playback, and the stream
// overlay, driven by a single-flight turn pipeline.
package leviathan

import (
	"fmt"
	"strings"
	"time"

	"github.com/leviathanlabs/leviathan/internal/config"
	"github.com/leviathanlabs/leviathan/pkg/brain"
	"github.com/leviathanlabs/leviathan/pkg/overlay"
	"github.com/leviathanlabs/leviathan/pkg/stt"
	"github.com/leviathanlabs/leviathan/pkg/tts"
)

// Default configuration values.
const (
	DefaultOverlayHost  = "127.0.0.1"
	DefaultOverlayPort  = 5005
	DefaultOverlayPath  = "overlay/state.json"
	DefaultGamestateLog = "overlay/gamestate_log.jsonl"
	DefaultStaticDir    = "web"
	DefaultLingerDelay  = time.Second
)

// Default per-stage timeouts. Capture is bounded by the recorder's own
// window on top of this.
const (
	DefaultCaptureTimeout  = 30 * time.Second
	DefaultSTTTimeout      = 120 * time.Second
	DefaultBrainTimeout    = 120 * time.Second
	DefaultTTSTimeout      = 60 * time.Second
	DefaultPlaybackTimeout = 60 * time.Second
)

// Config holds all configuration for the Leviathan application.
// Flag parsing is done in cmd/leviathan/main.go; this struct is data only.
type Config struct {
	// LogLevel is the slog level name (debug, info, warn, error).
	LogLevel string

	// Say, when non-empty, runs one direct-text turn and exits instead
	// of the push-to-talk loop.
	Say string

	// IncludeContext feeds the context provider's output to the brain.
	IncludeContext bool

	// ExtraContext is a fixed context string appended to every request.
	ExtraContext string

	// Stream uses the websocket streaming TTS path instead of buffered
	// synthesis.
	Stream bool

	// LocalOnly forces the persona brain and local STT; no network calls.
	LocalOnly bool

	// Overlay server.
	OverlayHost     string
	OverlayPort     int
	OverlayPath     string // state file mirror, empty disables
	OverlayMode     string // reply bubble style: speak | think
	OverlayFontSize int
	StaticDir       string

	// Gamestate watcher.
	GamestateLog string
	PollInterval time.Duration
	SeenCapacity int

	// Brain backend selection: local | ollama | openai.
	LLMProvider string
	OpenAIModel string
	OllamaModel string
	OllamaURL   string

	// STT.
	OpenAISTTModel    string
	LocalWhisperModel string
	RecordWindow      time.Duration

	// TTS.
	VoiceID                  string
	TTSModelID               string
	VoiceStability           float64
	VoiceSimilarity          float64
	VoiceSpeed               float64
	OptimizeStreamingLatency int
	PlaybackVolume           float64

	// Per-stage timeouts.
	CaptureTimeout  time.Duration
	STTTimeout      time.Duration
	BrainTimeout    time.Duration
	TTSTimeout      time.Duration
	PlaybackTimeout time.Duration

	// LingerDelay keeps the reply visible on the overlay after playback
	// before clearing to idle.
	LingerDelay time.Duration

	// API keys (typically from environment variables).
	OpenAIKey     string
	ElevenLabsKey string
}

// DefaultConfig returns sensible defaults for Leviathan configuration.
func DefaultConfig() Config {
	settings := tts.DefaultVoiceSettings()
	return Config{
		LogLevel:          "info",
		OverlayHost:       DefaultOverlayHost,
		OverlayPort:       DefaultOverlayPort,
		OverlayPath:       DefaultOverlayPath,
		OverlayMode:       string(overlay.ModeSpeak),
		OverlayFontSize:   30,
		StaticDir:         DefaultStaticDir,
		GamestateLog:      DefaultGamestateLog,
		PollInterval:      time.Second,
		SeenCapacity:      1000,
		LLMProvider:       string(brain.BackendPersona),
		OpenAIModel:       brain.DefaultOpenAIModel,
		OllamaModel:       brain.DefaultOllamaModel,
		OllamaURL:         brain.DefaultOllamaURL,
		OpenAISTTModel:    stt.DefaultWhisperModel,
		LocalWhisperModel: stt.DefaultLocalWhisperModel,
		RecordWindow:      stt.DefaultRecordWindow,
		VoiceID:           tts.DefaultElevenLabsVoice,
		TTSModelID:        tts.ModelMultilingualV2,
		VoiceStability:    settings.Stability,
		VoiceSimilarity:   settings.SimilarityBoost,
		VoiceSpeed:        settings.Speed,
		PlaybackVolume:    1.0,
		CaptureTimeout:    DefaultCaptureTimeout,
		STTTimeout:        DefaultSTTTimeout,
		BrainTimeout:      DefaultBrainTimeout,
		TTSTimeout:        DefaultTTSTimeout,
		PlaybackTimeout:   DefaultPlaybackTimeout,
		LingerDelay:       DefaultLingerDelay,
	}
}

// LoadEnvConfig loads configuration values from environment variables.
// Call this after flag parsing to apply environment overrides. Flags
// that were explicitly set win; env values only fill defaults.
func (c *Config) LoadEnvConfig() {
	c.OpenAIKey = config.Getenv("OPENAI_API_KEY", c.OpenAIKey)
	c.ElevenLabsKey = config.Getenv("ELEVENLABS_API_KEY", c.ElevenLabsKey)

	if c.VoiceID == "" || c.VoiceID == tts.DefaultElevenLabsVoice {
		c.VoiceID = config.Getenv("ELEVENLABS_VOICE_ID", c.VoiceID)
	}
	c.TTSModelID = config.Getenv("ELEVENLABS_MODEL_ID", c.TTSModelID)
	c.VoiceStability = config.GetenvFloat("ELEVENLABS_VOICE_STABILITY", c.VoiceStability)
	c.VoiceSimilarity = config.GetenvFloat("ELEVENLABS_VOICE_SIMILARITY", c.VoiceSimilarity)
	c.VoiceSpeed = tts.ClampSpeed(config.GetenvFloat("ELEVENLABS_VOICE_SPEED", c.VoiceSpeed))
	c.OptimizeStreamingLatency = config.GetenvInt("ELEVENLABS_OPTIMIZE_STREAMING_LATENCY", c.OptimizeStreamingLatency)
	c.PlaybackVolume = tts.ClampVolume(config.GetenvFloat("TTS_PLAYBACK_VOLUME", c.PlaybackVolume))

	c.OpenAISTTModel = config.Getenv("OPENAI_STT_MODEL", c.OpenAISTTModel)
	c.LocalWhisperModel = config.Getenv("LOCAL_WHISPER_MODEL", c.LocalWhisperModel)

	if !c.LocalOnly {
		c.LLMProvider = strings.ToLower(config.Getenv("LLM_PROVIDER", c.LLMProvider))
	}
	c.OpenAIModel = config.Getenv("OPENAI_LLM_MODEL", c.OpenAIModel)
	c.OllamaModel = config.Getenv("OLLAMA_MODEL", c.OllamaModel)
	c.OllamaURL = config.Getenv("OLLAMA_URL", c.OllamaURL)
}

// Validate checks that required configuration is present for the
// selected backends. Fatal at startup only.
func (c *Config) Validate() error {
	if c.LocalOnly {
		c.LLMProvider = string(brain.BackendPersona)
	}

	switch brain.Backend(c.LLMProvider) {
	case brain.BackendPersona, brain.BackendOllama, "":
	case brain.BackendOpenAI:
		if c.OpenAIKey == "" {
			return &ConfigError{Field: "OpenAIKey", Message: "OPENAI_API_KEY environment variable is required for the openai brain"}
		}
	default:
		return &ConfigError{Field: "LLMProvider", Message: fmt.Sprintf("unknown LLM provider %q (want local, ollama, or openai)", c.LLMProvider)}
	}

	switch overlay.Mode(c.OverlayMode) {
	case overlay.ModeSpeak, overlay.ModeThink:
	default:
		return &ConfigError{Field: "OverlayMode", Message: fmt.Sprintf("unknown overlay mode %q (want speak or think)", c.OverlayMode)}
	}

	if c.OverlayPort <= 0 || c.OverlayPort > 65535 {
		return &ConfigError{Field: "OverlayPort", Message: fmt.Sprintf("invalid overlay port %d", c.OverlayPort)}
	}
	if c.GamestateLog == "" {
		return &ConfigError{Field: "GamestateLog", Message: "gamestate log path is required"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Message
}
