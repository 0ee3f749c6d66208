package stt

import (
	"context"
	"errors"
	"log/slog"
)

// Auto tries transcription engines in order and returns the first text.
// When every engine fails the errors are joined so the operator sees
// all of them, not just the last.
type Auto struct {
	engines []Transcriber
	logger  *slog.Logger
}

// NewAuto creates an auto transcriber trying engines in the given order.
// At least one engine is required.
func NewAuto(engines ...Transcriber) (*Auto, error) {
	if len(engines) == 0 {
		return nil, ErrNoEngines
	}
	return &Auto{
		engines: engines,
		logger:  slog.Default().With("component", "stt.auto"),
	}, nil
}

// Transcribe tries each engine until one succeeds.
func (a *Auto) Transcribe(ctx context.Context, audio []byte) (string, error) {
	var errs []error

	for i, engine := range a.engines {
		text, err := engine.Transcribe(ctx, audio)
		if err == nil {
			if i > 0 {
				a.logger.Info("fallback engine succeeded", "engine", engine.Name())
			}
			return text, nil
		}

		errs = append(errs, err)
		a.logger.Warn("engine failed, trying next",
			"engine", engine.Name(),
			"error", err,
		)

		if ctx.Err() != nil {
			return "", ctx.Err()
		}
	}

	return "", errors.Join(errs...)
}

// Name identifies the composite for logging.
func (a *Auto) Name() string {
	return "auto"
}

// Close closes all engines.
func (a *Auto) Close() error {
	var lastErr error
	for _, e := range a.engines {
		if err := e.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Verify Auto implements Transcriber at compile time.
var _ Transcriber = (*Auto)(nil)
