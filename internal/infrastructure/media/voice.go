package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"go.uber.org/zap"

	"github.com/zeroxtech/zeno/internal/application/settings"
	"github.com/zeroxtech/zeno/internal/infrastructure/llm"
	"github.com/zeroxtech/zeno/internal/infrastructure/llm/openai"
	apperrors "github.com/zeroxtech/zeno/pkg/errors"
)

const (
	whisperModel    = "whisper-1"
	whisperLanguage = "it"
	whisperBaseURL  = "https://api.openai.com"
)

// Transcriber turns WhatsApp voice notes into Italian text via the
// OpenAI Whisper API. All failures are TranscriptionError so the
// pipeline can take the apology-and-stop path.
type Transcriber struct {
	baseURL  string
	settings *settings.Service
	client   *http.Client
	logger   *zap.Logger
}

func NewTranscriber(s *settings.Service, logger *zap.Logger) *Transcriber {
	return &Transcriber{
		baseURL:  whisperBaseURL,
		settings: s,
		client:   llm.NewHTTPClient(),
		logger:   logger.With(zap.String("component", "transcriber")),
	}
}

// Transcribe uploads the raw audio (gateway-native ogg container) and
// returns the transcribed text.
func (t *Transcriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	apiKey := t.settings.APIKey(ctx, "openai")
	if apiKey == "" {
		return "", apperrors.NewTranscriptionError(
			fmt.Errorf("OpenAI API key required for voice transcription"))
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "audio.ogg")
	if err != nil {
		return "", apperrors.NewTranscriptionError(err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", apperrors.NewTranscriptionError(err)
	}
	if err := writer.WriteField("model", whisperModel); err != nil {
		return "", apperrors.NewTranscriptionError(err)
	}
	if err := writer.WriteField("language", whisperLanguage); err != nil {
		return "", apperrors.NewTranscriptionError(err)
	}
	if err := writer.Close(); err != nil {
		return "", apperrors.NewTranscriptionError(err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", t.baseURL+"/v1/audio/transcriptions", &buf)
	if err != nil {
		return "", apperrors.NewTranscriptionError(err)
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return "", apperrors.NewTranscriptionError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewTranscriptionError(err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", apperrors.NewTranscriptionError(
			fmt.Errorf("Whisper API error %d: %s", resp.StatusCode, string(respBody)))
	}

	var transcription openai.TranscriptionResponse
	if err := json.Unmarshal(respBody, &transcription); err != nil {
		return "", apperrors.NewTranscriptionError(err)
	}

	t.logger.Debug("Voice note transcribed", zap.Int("audio_bytes", len(audio)))
	return transcription.Text, nil
}
