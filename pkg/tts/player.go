package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// Volume bounds for local playback. The filter is a multiplier,
// 1.0 is unity gain.
const (
	MinPlaybackVolume = 0.0
	MaxPlaybackVolume = 2.0
)

// playbackTimeout bounds a single clip. Replies are short; anything
// longer than this means the player process is wedged.
const playbackTimeout = 60 * time.Second

// Speaker plays a synthesized audio result on the local machine.
type Speaker interface {
	// Play blocks until the clip finishes or ctx is cancelled.
	Play(ctx context.Context, result *AudioResult) error

	// Close releases any resources held by the speaker.
	Close() error
}

// FFPlay implements Speaker by piping audio into an ffplay process.
// MP3 is fed as-is; PCM encodings get explicit format flags.
type FFPlay struct {
	// Command is the player binary, defaults to "ffplay".
	Command string

	// Volume is the gain multiplier, clamped to [MinPlaybackVolume, MaxPlaybackVolume].
	Volume float64

	// Callbacks fire around each clip. Used to gate the microphone
	// while the co-host is speaking.
	OnPlaybackStart func()
	OnPlaybackEnd   func()

	logger *slog.Logger

	mu      sync.Mutex
	playing bool
}

// NewFFPlay creates a local speaker at the given volume.
func NewFFPlay(volume float64) *FFPlay {
	return &FFPlay{
		Command: "ffplay",
		Volume:  ClampVolume(volume),
		logger:  slog.Default().With("component", "tts.player"),
	}
}

// ClampVolume constrains a volume multiplier to the accepted range.
// A zero value falls back to unity gain.
func ClampVolume(v float64) float64 {
	if v == 0 {
		return 1.0
	}
	if v < MinPlaybackVolume {
		return MinPlaybackVolume
	}
	if v > MaxPlaybackVolume {
		return MaxPlaybackVolume
	}
	return v
}

// Play pipes the clip into ffplay and waits for it to finish.
func (p *FFPlay) Play(ctx context.Context, result *AudioResult) error {
	if result == nil || len(result.Audio) == 0 {
		return nil
	}

	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return fmt.Errorf("tts: playback already in progress")
	}
	p.playing = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.playing = false
		p.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, playbackTimeout)
	defer cancel()

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-nodisp", "-autoexit",
	}
	args = append(args, formatArgs(result.Format)...)
	if vol := ClampVolume(p.Volume); vol != 1.0 {
		args = append(args, "-af", fmt.Sprintf("volume=%.2f", vol))
	}
	args = append(args, "-i", "pipe:0")

	cmd := exec.CommandContext(ctx, p.command(), args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("tts: stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("tts: start player: %w", err)
	}

	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart()
	}
	defer func() {
		if p.OnPlaybackEnd != nil {
			p.OnPlaybackEnd()
		}
	}()

	if _, err := stdin.Write(result.Audio); err != nil && err != io.ErrClosedPipe {
		cmd.Process.Kill()
		cmd.Wait()
		return fmt.Errorf("tts: write audio: %w", err)
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("tts: playback cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("tts: playback failed: %w", err)
	}

	p.logger.Debug("played clip",
		"bytes", len(result.Audio),
		"encoding", result.Format.Encoding,
	)
	return nil
}

// IsPlaying returns whether a clip is currently playing.
func (p *FFPlay) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

// Close releases resources. ffplay processes are per-clip, nothing to do.
func (p *FFPlay) Close() error {
	return nil
}

func (p *FFPlay) command() string {
	if p.Command != "" {
		return p.Command
	}
	return "ffplay"
}

// formatArgs returns the ffplay input flags for a format.
// MP3 and other containers are self-describing; raw PCM needs them.
func formatArgs(f AudioFormat) []string {
	switch f.Encoding {
	case EncodingPCM16, EncodingPCM22, EncodingPCM24, EncodingPCM44:
		channels := f.Channels
		if channels == 0 {
			channels = 1
		}
		layout := "mono"
		if channels == 2 {
			layout = "stereo"
		}
		return []string{
			"-f", "s16le",
			"-ar", strconv.Itoa(f.SampleRate),
			"-ch_layout", layout,
		}
	default:
		return nil
	}
}

// WriteArtifact saves a clip that could not be played to a temp file so
// the operator can inspect it. Returns the artifact path.
func WriteArtifact(result *AudioResult) (string, error) {
	if result == nil || len(result.Audio) == 0 {
		return "", fmt.Errorf("tts: no audio to save")
	}

	ext := ".mp3"
	switch result.Format.Encoding {
	case EncodingPCM16, EncodingPCM22, EncodingPCM24, EncodingPCM44:
		ext = ".pcm"
	case EncodingOpus:
		ext = ".opus"
	}

	f, err := os.CreateTemp("", "leviathan-reply-*"+ext)
	if err != nil {
		return "", fmt.Errorf("tts: create artifact: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(result.Audio); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("tts: write artifact: %w", err)
	}
	return filepath.Clean(f.Name()), nil
}

// MockSpeaker implements Speaker for testing.
type MockSpeaker struct {
	// PlayFunc is called when Play is invoked. If nil, succeeds.
	PlayFunc func(ctx context.Context, result *AudioResult) error

	mu    sync.Mutex
	plays []int
}

// Play records the clip size and calls PlayFunc.
func (m *MockSpeaker) Play(ctx context.Context, result *AudioResult) error {
	m.mu.Lock()
	size := 0
	if result != nil {
		size = len(result.Audio)
	}
	m.plays = append(m.plays, size)
	m.mu.Unlock()

	if m.PlayFunc != nil {
		return m.PlayFunc(ctx, result)
	}
	return nil
}

// Close is a no-op.
func (m *MockSpeaker) Close() error {
	return nil
}

// PlayCount returns the number of Play invocations.
func (m *MockSpeaker) PlayCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.plays)
}

// Reset clears recorded plays.
func (m *MockSpeaker) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plays = nil
}

// Verify implementations at compile time.
var (
	_ Speaker = (*FFPlay)(nil)
	_ Speaker = (*MockSpeaker)(nil)
)
