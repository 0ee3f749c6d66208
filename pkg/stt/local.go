package stt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const providerWhisperLocal = "whisper-local"

// Local implements Transcriber by shelling out to a whisper CLI.
// The clip is written to a temp file, the CLI emits a .txt transcript
// next to it, and both are removed afterwards. No network required.
type Local struct {
	config *Config
	logger *slog.Logger
}

// NewLocal creates a local whisper transcriber.
func NewLocal(opts ...Option) (*Local, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &Local{
		config: cfg,
		logger: cfg.Logger.With("component", "stt.local"),
	}, nil
}

// Transcribe runs the whisper CLI over the clip.
func (l *Local) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", WrapError(providerWhisperLocal, ErrNoAudio)
	}

	dir, err := os.MkdirTemp("", "leviathan-stt-*")
	if err != nil {
		return "", WrapError(providerWhisperLocal, fmt.Errorf("temp dir: %w", err))
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "clip.wav")
	if err := os.WriteFile(wavPath, audio, 0o644); err != nil {
		return "", WrapError(providerWhisperLocal, fmt.Errorf("write clip: %w", err))
	}

	args := []string{
		wavPath,
		"--model", l.config.LocalModel,
		"--output_format", "txt",
		"--output_dir", dir,
	}
	if l.config.Language != "" {
		args = append(args, "--language", l.config.Language)
	}

	cmd := exec.CommandContext(ctx, l.config.LocalCommand, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", WrapError(providerWhisperLocal,
			fmt.Errorf("%s failed: %w: %s", l.config.LocalCommand, err, truncate(string(out), 200)))
	}

	txt, err := os.ReadFile(filepath.Join(dir, "clip.txt"))
	if err != nil {
		return "", WrapError(providerWhisperLocal, fmt.Errorf("read transcript: %w", err))
	}

	text := strings.TrimSpace(string(txt))
	l.logger.Debug("transcribed audio locally",
		"bytes", len(audio),
		"chars", len(text),
		"model", l.config.LocalModel,
	)
	return text, nil
}

// Name identifies the engine.
func (l *Local) Name() string {
	return providerWhisperLocal
}

// Close is a no-op.
func (l *Local) Close() error {
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Verify Local implements Transcriber at compile time.
var _ Transcriber = (*Local)(nil)
