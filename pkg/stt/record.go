package stt

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// DefaultRecordWindow bounds a push-to-talk capture. The recorder
// always stops at this window even if the operator keeps the key held.
const DefaultRecordWindow = 15 * time.Second

// ExecRecorder captures a timed audio window by shelling out to an
// external capture tool (ffmpeg by default). 16kHz mono WAV, which is
// what both Whisper engines want.
type ExecRecorder struct {
	Command string        // capture binary, defaults to "ffmpeg"
	Input   string        // capture device, defaults to "default"
	Window  time.Duration // maximum clip length
	logger  *slog.Logger
}

// NewExecRecorder creates a recorder with the given capture window.
// A zero window falls back to DefaultRecordWindow.
func NewExecRecorder(window time.Duration) *ExecRecorder {
	if window <= 0 {
		window = DefaultRecordWindow
	}
	return &ExecRecorder{
		Command: "ffmpeg",
		Input:   "default",
		Window:  window,
		logger:  slog.Default().With("component", "stt.recorder"),
	}
}

// Record captures one clip and returns its WAV bytes.
func (r *ExecRecorder) Record(ctx context.Context) ([]byte, error) {
	dir, err := os.MkdirTemp("", "leviathan-rec-*")
	if err != nil {
		return nil, fmt.Errorf("stt: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	wavPath := filepath.Join(dir, "capture.wav")
	seconds := strconv.FormatFloat(r.Window.Seconds(), 'f', -1, 64)

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "alsa", "-i", r.Input,
		"-t", seconds,
		"-ar", "16000", "-ac", "1",
		"-y", wavPath,
	}

	r.logger.Info("recording", "window", r.Window)
	cmd := exec.CommandContext(ctx, r.Command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("stt: capture failed: %w: %s", err, truncate(string(out), 200))
	}

	audio, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, fmt.Errorf("stt: read capture: %w", err)
	}
	r.logger.Debug("recorded clip", "bytes", len(audio))
	return audio, nil
}

// MockRecorder returns canned audio for tests.
type MockRecorder struct {
	Audio []byte
	Err   error
}

// Record returns the canned clip.
func (m *MockRecorder) Record(ctx context.Context) ([]byte, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Audio, nil
}

// Verify implementations at compile time.
var (
	_ Recorder = (*ExecRecorder)(nil)
	_ Recorder = (*MockRecorder)(nil)
)
