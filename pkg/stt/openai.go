package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/leviathanlabs/leviathan/internal/httpc"
)

const (
	openAITranscriptionsURL = "https://api.openai.com/v1/audio/transcriptions"
	providerWhisperAPI      = "whisper-api"
)

// OpenAI implements Transcriber using the Whisper transcriptions API.
type OpenAI struct {
	config *Config
	client *http.Client
	logger *slog.Logger
	url    string
}

// NewOpenAI creates a Whisper API transcriber. The API key is required.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	url := openAITranscriptionsURL
	if cfg.BaseURL != "" {
		url = strings.TrimSuffix(cfg.BaseURL, "/") + "/audio/transcriptions"
	}

	return &OpenAI{
		config: cfg,
		client: httpc.NewClient(cfg.Timeout),
		logger: cfg.Logger.With("component", "stt.openai"),
		url:    url,
	}, nil
}

// Transcribe uploads the clip as multipart form data and returns the text.
func (o *OpenAI) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", WrapError(providerWhisperAPI, ErrNoAudio)
	}
	start := time.Now()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", WrapError(providerWhisperAPI, fmt.Errorf("create form file: %w", err))
	}
	if _, err := part.Write(audio); err != nil {
		return "", WrapError(providerWhisperAPI, fmt.Errorf("write audio: %w", err))
	}
	writer.WriteField("model", o.config.Model)
	if o.config.Language != "" {
		writer.WriteField("language", o.config.Language)
	}
	if err := writer.Close(); err != nil {
		return "", WrapError(providerWhisperAPI, fmt.Errorf("close form: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.url, &body)
	if err != nil {
		return "", WrapError(providerWhisperAPI, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+o.config.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", WrapError(providerWhisperAPI, fmt.Errorf("upload: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Message:    string(raw),
			Provider:   providerWhisperAPI,
		}
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", WrapError(providerWhisperAPI, fmt.Errorf("decode response: %w", err))
	}

	text := strings.TrimSpace(result.Text)
	o.logger.Debug("transcribed audio",
		"bytes", len(audio),
		"chars", len(text),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// Name identifies the engine.
func (o *OpenAI) Name() string {
	return providerWhisperAPI
}

// Close releases resources held by the engine.
func (o *OpenAI) Close() error {
	o.client.CloseIdleConnections()
	return nil
}

// Verify OpenAI implements Transcriber at compile time.
var _ Transcriber = (*OpenAI)(nil)
