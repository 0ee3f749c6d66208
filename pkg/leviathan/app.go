package leviathan

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/leviathanlabs/leviathan/internal/log"
	"github.com/leviathanlabs/leviathan/pkg/brain"
	"github.com/leviathanlabs/leviathan/pkg/gamestate"
	"github.com/leviathanlabs/leviathan/pkg/overlay"
	"github.com/leviathanlabs/leviathan/pkg/stt"
	"github.com/leviathanlabs/leviathan/pkg/tts"
)

// App is the main Leviathan application orchestrator.
// It manages all components and their lifecycle.
type App struct {
	config Config

	store        *overlay.Store
	server       *overlay.Server
	events       *gamestate.Log
	watcher      *gamestate.Watcher
	orchestrator *Orchestrator

	brain   brain.Provider
	stt     stt.Transcriber
	synth   tts.Provider
	speaker tts.Speaker

	// Input reader for the push-to-talk loop; stdin unless overridden
	// in tests.
	Input io.Reader
}

// New creates a new Leviathan application with the given configuration.
func New(cfg Config) (*App, error) {
	cfg.LoadEnvConfig()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &App{config: cfg, Input: os.Stdin}, nil
}

// Init initializes all components.
// Call this after New() and before Run().
func (a *App) Init() error {
	log.Init(a.config.LogLevel)

	a.store = overlay.NewStore(a.config.OverlayFontSize)
	if a.config.OverlayPath != "" {
		a.store.MirrorToFile(a.config.OverlayPath)
	}
	a.store.Clear()

	events, err := gamestate.OpenLog(a.config.GamestateLog)
	if err != nil {
		return fmt.Errorf("gamestate log: %w", err)
	}
	a.events = events

	a.server = overlay.NewServer(overlay.ServerConfig{
		Host:      a.config.OverlayHost,
		Port:      a.config.OverlayPort,
		StaticDir: a.config.StaticDir,
		Store:     a.store,
		Events:    a.events,
	})

	if err := a.initBrain(); err != nil {
		return fmt.Errorf("brain init: %w", err)
	}
	if err := a.initSTT(); err != nil {
		return fmt.Errorf("stt init: %w", err)
	}
	if err := a.initTTS(); err != nil {
		return fmt.Errorf("tts init: %w", err)
	}

	var extra ContextProvider
	if a.config.IncludeContext {
		extra = ClipboardContext{}
	}

	a.orchestrator = NewOrchestrator(OrchestratorConfig{
		Config:      a.config,
		Store:       a.store,
		Recorder:    stt.NewExecRecorder(a.config.RecordWindow),
		Transcriber: a.stt,
		Brain:       a.brain,
		Synthesizer: a.synth,
		Speaker:     a.speaker,
		Context:     extra,
	})

	a.watcher = gamestate.NewWatcher(
		a.events,
		a.config.PollInterval,
		a.config.SeenCapacity,
		a.orchestrator.SubmitGamestate,
	)

	return nil
}

// initBrain builds the reply backend selected by LLMProvider.
func (a *App) initBrain() error {
	backend := brain.Backend(a.config.LLMProvider)

	var opts []brain.Option
	switch backend {
	case brain.BackendOpenAI:
		opts = append(opts,
			brain.WithAPIKey(a.config.OpenAIKey),
			brain.WithModel(a.config.OpenAIModel),
			brain.WithTimeout(a.config.BrainTimeout),
		)
	case brain.BackendOllama:
		opts = append(opts,
			brain.WithBaseURL(a.config.OllamaURL),
			brain.WithModel(a.config.OllamaModel),
			brain.WithTimeout(a.config.BrainTimeout),
		)
	}

	provider, err := brain.New(backend, opts...)
	if err != nil {
		return err
	}
	a.brain = provider
	log.Info("brain ready", "backend", provider.Name())
	return nil
}

// initSTT builds the transcriber chain: local whisper first, OpenAI
// Whisper as fallback when a key is present and not local-only.
func (a *App) initSTT() error {
	local, err := stt.NewLocal(stt.WithLocalModel(a.config.LocalWhisperModel))
	if err != nil {
		return err
	}

	engines := []stt.Transcriber{local}
	if !a.config.LocalOnly && a.config.OpenAIKey != "" {
		remote, err := stt.NewOpenAI(
			stt.WithAPIKey(a.config.OpenAIKey),
			stt.WithModel(a.config.OpenAISTTModel),
		)
		if err != nil {
			return err
		}
		engines = append(engines, remote)
	}

	auto, err := stt.NewAuto(engines...)
	if err != nil {
		return err
	}
	a.stt = auto
	return nil
}

// initTTS builds synthesis and playback. Without an ElevenLabs key the
// co-host runs overlay-only: replies render but nothing is spoken.
func (a *App) initTTS() error {
	if a.config.ElevenLabsKey == "" || a.config.LocalOnly {
		log.Warn("no ElevenLabs key, running overlay-only (no audio)")
		return nil
	}

	settings := tts.DefaultVoiceSettings()
	settings.Stability = a.config.VoiceStability
	settings.SimilarityBoost = a.config.VoiceSimilarity
	settings.Speed = tts.ClampSpeed(a.config.VoiceSpeed)

	eleven, err := tts.NewElevenLabs(
		tts.WithAPIKey(a.config.ElevenLabsKey),
		tts.WithVoice(tts.ResolveElevenLabsVoice(a.config.VoiceID)),
		tts.WithModel(a.config.TTSModelID),
		tts.WithOutputFormat(tts.EncodingMP3),
		tts.WithVoiceSettings(settings),
		tts.WithOptimizeStreamingLatency(a.config.OptimizeStreamingLatency),
	)
	if err != nil {
		return err
	}

	providers := []tts.Provider{eleven}
	if a.config.OpenAIKey != "" {
		fallback, err := tts.NewOpenAI(
			tts.WithAPIKey(a.config.OpenAIKey),
			tts.WithVoice(tts.VoiceOnyx),
		)
		if err == nil {
			providers = append(providers, fallback)
		}
	}

	chain, err := tts.NewChain(providers...)
	if err != nil {
		return err
	}
	a.synth = chain
	a.speaker = tts.NewFFPlay(a.config.PlaybackVolume)
	return nil
}

// Run starts the overlay server, the announcement watcher, and the
// pipeline, then drives the configured input mode until ctx ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- a.server.Start()
	}()

	go a.watcher.Run(ctx)
	go a.orchestrator.Run(ctx)

	if a.config.Say != "" {
		return a.runSay(ctx, serverErr)
	}
	return a.runListen(ctx, serverErr)
}

// runSay performs one direct-text turn and exits.
func (a *App) runSay(ctx context.Context, serverErr <-chan error) error {
	done := make(chan struct{}, 1)
	a.orchestrator.OnTurnEnd = func(string) {
		done <- struct{}{}
	}

	if err := a.orchestrator.Say(a.config.Say); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runListen is the push-to-talk loop: each line on Input starts one
// capture turn. Triggers during a running turn are dropped by the
// pipeline's single-flight policy.
func (a *App) runListen(ctx context.Context, serverErr <-chan error) error {
	log.Info("push-to-talk mode: press Enter to record, Ctrl+C to exit",
		"window", a.config.RecordWindow,
	)

	lines := make(chan struct{})
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(a.Input)
		for scanner.Scan() {
			select {
			case lines <- struct{}{}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-serverErr:
			return err
		case _, ok := <-lines:
			if !ok {
				// Input closed (e.g. piped stdin exhausted); keep
				// serving the overlay and watcher until cancelled.
				select {
				case <-ctx.Done():
					return nil
				case err := <-serverErr:
					return err
				}
			}
			if err := a.orchestrator.PushToTalk(); err != nil {
				log.Warn("trigger dropped", "error", err)
			}
		}
	}
}

// Shutdown releases all resources. Safe to call after a failed Init.
func (a *App) Shutdown() {
	if a.server != nil {
		if err := a.server.Shutdown(); err != nil {
			log.Error("server shutdown", "error", err)
		}
	}
	if a.brain != nil {
		a.brain.Close()
	}
	if a.stt != nil {
		a.stt.Close()
	}
	if a.synth != nil {
		a.synth.Close()
	}
	if a.speaker != nil {
		a.speaker.Close()
	}
}

// Orchestrator exposes the pipeline for embedding callers.
func (a *App) Orchestrator() *Orchestrator {
	return a.orchestrator
}

// Store exposes the overlay state store.
func (a *App) Store() *overlay.Store {
	return a.store
}
