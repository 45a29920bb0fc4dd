package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/foxseedlab/chunkscribe/internal/logging"
	"github.com/foxseedlab/chunkscribe/internal/transcriber"
	"github.com/sashabaranov/go-openai"
)

type WhisperConfig struct {
	APIKey   string
	BaseURL  string
	Model    string
	Language string
}

type WhisperTranscriber struct {
	client          *openai.Client
	model           string
	defaultLanguage string
}

func NewWhisperTranscriber(cfg WhisperConfig) *WhisperTranscriber {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = openai.Whisper1
	}
	return &WhisperTranscriber{
		client:          openai.NewClientWithConfig(clientCfg),
		model:           model,
		defaultLanguage: cfg.Language,
	}
}

func (t *WhisperTranscriber) Name() string {
	return "openai"
}

func (t *WhisperTranscriber) Transcribe(ctx context.Context, in transcriber.ChunkInput) (string, error) {
	model := in.Model
	if model == "" {
		model = t.model
	}
	language := in.Language
	if language == "" {
		language = t.defaultLanguage
	}
	logger := logging.WithChunk(in.StreamID, in.Index)
	logger.Debug().
		Str("provider", t.Name()).
		Str("model", model).
		Str("path", in.Path).
		Msg("sending chunk to whisper")

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: in.Path,
		Language: language,
		Format:   openai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", transcriber.NewProviderError(t.Name(), in, classifyWhisperError(err), err)
	}
	return resp.Text, nil
}

func classifyWhisperError(err error) transcriber.Reason {
	if reason, ok := transcriber.ContextReason(err); ok {
		return reason
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return reasonForHTTPStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reasonForHTTPStatus(reqErr.HTTPStatusCode)
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return transcriber.ReasonMalformedResponse
	}

	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return transcriber.ReasonTransport
	}
	return transcriber.ReasonUnknown
}

// reasonForHTTPStatus is shared by the HTTP based adapters.
func reasonForHTTPStatus(code int) transcriber.Reason {
	switch {
	case code == http.StatusTooManyRequests:
		return transcriber.ReasonQuota
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return transcriber.ReasonAuth
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return transcriber.ReasonTimeout
	case code >= 400 && code < 500:
		return transcriber.ReasonInvalidRequest
	case code >= 500:
		return transcriber.ReasonTransport
	default:
		return transcriber.ReasonUnknown
	}
}
