// Package stt turns captured audio into text.
//
// Two engines are supported: the OpenAI Whisper API and a local
// whisper CLI. The Auto transcriber prefers one and falls back to the
// other, joining both errors when neither can produce text.
package stt

import (
	"context"
)

// Transcriber converts audio bytes (WAV) to text.
// Implementations are fallible and potentially seconds-slow; callers
// own timeouts via ctx.
type Transcriber interface {
	// Transcribe returns the recognized text for the audio clip.
	Transcribe(ctx context.Context, audio []byte) (string, error)

	// Name identifies the engine for logging.
	Name() string

	// Close releases any resources held by the engine.
	Close() error
}

// Recorder captures one push-to-talk audio clip.
type Recorder interface {
	// Record blocks until a clip is available or ctx is cancelled.
	// An empty clip with nil error means nothing was captured.
	Record(ctx context.Context) ([]byte, error)
}
