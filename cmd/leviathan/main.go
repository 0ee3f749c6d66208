// Leviathan - voice co-host for live coding streams.
// Push-to-talk speech in, synthesized co-host banter and a browser
// overlay out, with automatic gamestate announcements.
package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/leviathanlabs/leviathan/internal/config"
	"github.com/leviathanlabs/leviathan/pkg/leviathan"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("❌ Failed to load .env: %v", err)
	}

	cfg := parseFlags()

	app, err := leviathan.New(cfg)
	if err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	if err := app.Init(); err != nil {
		log.Fatalf("❌ Initialization failed: %v", err)
	}
	defer app.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := app.Run(ctx); err != nil {
		log.Fatalf("❌ Runtime error: %v", err)
	}
}

// parseFlags parses command line flags and returns configuration.
// Environment overrides are applied later by leviathan.New.
func parseFlags() leviathan.Config {
	cfg := leviathan.DefaultConfig()

	say := flag.String("say", "", "Feed text to Leviathan for one spoken reply, then exit")
	extraContext := flag.String("context", "", "Fixed context string for brain replies")
	includeContext := flag.Bool("include-context", false, "Inject clipboard context into replies")
	stream := flag.Bool("stream", false, "Use streaming TTS playback")
	localOnly := flag.Bool("local-only", false, "Local whisper and persona brain only; no network calls")

	overlayHost := flag.String("overlay-host", cfg.OverlayHost, "Host for the overlay server")
	overlayPort := flag.Int("overlay-port", cfg.OverlayPort, "Port for the overlay server")
	overlayPath := flag.String("overlay-path", cfg.OverlayPath, "Overlay state mirror path (JSON), empty disables")
	overlayMode := flag.String("overlay-mode", cfg.OverlayMode, "Overlay style: speak bubble or thinking bubbles")
	overlayFontSize := flag.Int("overlay-font-size", cfg.OverlayFontSize, "Font size for overlay text")
	staticDir := flag.String("overlay-static", cfg.StaticDir, "Directory with the overlay UI assets")

	gamestateLog := flag.String("gamestate-log", cfg.GamestateLog, "Path to the gamestate JSONL log")
	pollInterval := flag.Duration("poll-interval", cfg.PollInterval, "Gamestate poll interval")

	llmProvider := flag.String("llm", cfg.LLMProvider, "Brain backend: local, ollama, or openai")
	voice := flag.String("voice", "", "ElevenLabs voice preset or ID")
	recordWindow := flag.Duration("record-window", cfg.RecordWindow, "Maximum push-to-talk capture window")
	logLevel := flag.String("log-level", cfg.LogLevel, "Log level: debug, info, warn, error")

	flag.Parse()

	cfg.Say = *say
	cfg.ExtraContext = *extraContext
	cfg.IncludeContext = *includeContext
	cfg.Stream = *stream
	cfg.LocalOnly = *localOnly
	cfg.OverlayHost = *overlayHost
	cfg.OverlayPort = *overlayPort
	cfg.OverlayPath = *overlayPath
	cfg.OverlayMode = *overlayMode
	cfg.OverlayFontSize = *overlayFontSize
	cfg.StaticDir = *staticDir
	cfg.GamestateLog = *gamestateLog
	cfg.LLMProvider = *llmProvider
	cfg.LogLevel = *logLevel

	if *voice != "" {
		cfg.VoiceID = *voice
	}
	if *pollInterval > 0 {
		cfg.PollInterval = *pollInterval
	}
	if *recordWindow > 0 && *recordWindow <= time.Minute {
		cfg.RecordWindow = *recordWindow
	}

	return cfg
}
