package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"meetscribe/internal/config"
	"meetscribe/internal/tempfile"
)

// Transcription is the speech-to-text result for one audio file.
type Transcription struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

// Transcriber converts audio bytes into a transcript. Implementations do
// not retry; retry policy, if any, belongs to the caller.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType, filename string) (*Transcription, error)
}

// openAITranscriber calls an OpenAI-compatible /audio/transcriptions
// endpoint. It stages the audio on disk itself and cleans that staging up
// on every path, independent of any staging done upstream.
type openAITranscriber struct {
	baseURL string
	apiKey  string
	model   string
	lang    string
	client  *http.Client
	staging *tempfile.Manager
	log     *logrus.Entry
}

// NewOpenAITranscriber builds a Transcriber from config.
func NewOpenAITranscriber(cfg config.OpenAIConfig, log *logrus.Entry) Transcriber {
	return &openAITranscriber{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.TranscribeModel,
		lang:    cfg.Language,
		client:  &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second},
		staging: tempfile.NewManager("", log),
		log:     log,
	}
}

func (t *openAITranscriber) Transcribe(ctx context.Context, audio []byte, contentType, filename string) (*Transcription, error) {
	staged, err := t.staging.Stage(audio, filename)
	if err != nil {
		return nil, transcriptionError(err)
	}
	defer staged.Cleanup()

	result, err := t.request(ctx, staged.Path, filename)
	if err != nil {
		return nil, transcriptionError(err)
	}
	if strings.TrimSpace(result.Text) == "" {
		return nil, transcriptionError(fmt.Errorf("backend returned empty transcript"))
	}
	return result, nil
}

func (t *openAITranscriber) request(ctx context.Context, stagedPath, filename string) (*Transcription, error) {
	f, err := os.Open(stagedPath)
	if err != nil {
		return nil, fmt.Errorf("open staged audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)

	if err := w.WriteField("model", t.model); err != nil {
		return nil, err
	}
	if t.lang != "" {
		if err := w.WriteField("language", t.lang); err != nil {
			return nil, err
		}
	}
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("read staged audio: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcription backend returned %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var result Transcription
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}
	return &result, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
