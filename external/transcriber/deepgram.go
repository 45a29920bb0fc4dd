package transcriber

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/foxseedlab/chunkscribe/internal/logging"
	"github.com/foxseedlab/chunkscribe/internal/transcriber"
	"github.com/gorilla/websocket"
)

const (
	DefaultDeepgramEndpoint = "wss://api.deepgram.com/v1/listen"

	deepgramFrameBytes       = 8192
	deepgramHandshakeTimeout = 30 * time.Second
)

var errMalformedDeepgramMessage = errors.New("malformed deepgram message")

type DeepgramConfig struct {
	APIKey   string
	Endpoint string
	Model    string
	Language string
}

// DeepgramTranscriber streams a chunk file over the live listen websocket and collects the
// final results until Deepgram sends its closing metadata.
type DeepgramTranscriber struct {
	apiKey          string
	endpoint        string
	model           string
	defaultLanguage string
	dialer          *websocket.Dialer
}

type deepgramMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func NewDeepgramTranscriber(cfg DeepgramConfig) *DeepgramTranscriber {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultDeepgramEndpoint
	}
	return &DeepgramTranscriber{
		apiKey:          cfg.APIKey,
		endpoint:        endpoint,
		model:           strings.TrimSpace(cfg.Model),
		defaultLanguage: cfg.Language,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: deepgramHandshakeTimeout,
		},
	}
}

func (t *DeepgramTranscriber) Name() string {
	return "deepgram"
}

func (t *DeepgramTranscriber) Transcribe(ctx context.Context, in transcriber.ChunkInput) (string, error) {
	model := in.Model
	if model == "" {
		model = t.model
	}
	language := in.Language
	if language == "" {
		language = t.defaultLanguage
	}

	content, err := os.ReadFile(in.Path)
	if err != nil {
		return "", transcriber.NewProviderError(t.Name(), in, transcriber.ReasonInvalidRequest, err)
	}
	listenURL, err := t.listenURL(model, language)
	if err != nil {
		return "", transcriber.NewProviderError(t.Name(), in, transcriber.ReasonInvalidRequest, err)
	}

	header := http.Header{
		"Authorization": {fmt.Sprintf("Token %s", t.apiKey)},
	}
	conn, resp, err := t.dialer.DialContext(ctx, listenURL, header)
	if err != nil {
		reason, ok := transcriber.ContextReason(err)
		switch {
		case ok:
		case resp != nil:
			reason = reasonForHTTPStatus(resp.StatusCode)
		default:
			reason = transcriber.ReasonTransport
		}
		return "", transcriber.NewProviderError(t.Name(), in, reason, fmt.Errorf("dial deepgram: %w", err))
	}
	defer func() {
		_ = conn.Close()
	}()
	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	logger := logging.WithChunk(in.StreamID, in.Index)
	logger.Debug().
		Str("provider", t.Name()).
		Str("model", model).
		Int("bytes", len(content)).
		Msg("streaming chunk to deepgram")

	sent := make(chan error, 1)
	go func() {
		sent <- sendDeepgramAudio(conn, content)
	}()

	text, readErr := collectDeepgramResults(conn)
	_ = conn.Close()
	sendErr := <-sent

	if err := ctx.Err(); err != nil {
		reason, _ := transcriber.ContextReason(err)
		return "", transcriber.NewProviderError(t.Name(), in, reason, err)
	}
	if readErr != nil {
		return "", transcriber.NewProviderError(t.Name(), in, classifyDeepgramError(readErr), readErr)
	}
	if sendErr != nil {
		logger.Debug().Err(sendErr).Msg("deepgram writer stopped after results were complete")
	}
	return text, nil
}

func (t *DeepgramTranscriber) listenURL(model, language string) (string, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse deepgram endpoint: %w", err)
	}
	q := u.Query()
	if model != "" {
		q.Set("model", model)
	}
	q.Set("punctuate", "true")
	q.Set("smart_format", "true")
	if language != "" {
		q.Set("language", language)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func sendDeepgramAudio(conn *websocket.Conn, content []byte) error {
	for start := 0; start < len(content); start += deepgramFrameBytes {
		end := min(start+deepgramFrameBytes, len(content))
		if err := conn.WriteMessage(websocket.BinaryMessage, content[start:end]); err != nil {
			return fmt.Errorf("write audio frame: %w", err)
		}
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("write close stream: %w", err)
	}
	return nil
}

func collectDeepgramResults(conn *websocket.Conn) (string, error) {
	var finals []string
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return strings.Join(finals, " "), nil
			}
			return "", err
		}

		var msg deepgramMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			return "", fmt.Errorf("%w: %v", errMalformedDeepgramMessage, err)
		}
		switch msg.Type {
		case "Results":
			if !msg.IsFinal || len(msg.Channel.Alternatives) == 0 {
				continue
			}
			if text := strings.TrimSpace(msg.Channel.Alternatives[0].Transcript); text != "" {
				finals = append(finals, text)
			}
		case "Metadata":
			return strings.Join(finals, " "), nil
		}
	}
}

func classifyDeepgramError(err error) transcriber.Reason {
	if errors.Is(err, errMalformedDeepgramMessage) {
		return transcriber.ReasonMalformedResponse
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) && closeErr.Code == websocket.ClosePolicyViolation {
		return transcriber.ReasonInvalidRequest
	}
	return transcriber.ReasonTransport
}
