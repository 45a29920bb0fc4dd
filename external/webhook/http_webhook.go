package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/foxseedlab/chunkscribe/internal/notify"
)

const (
	deliveryTimeout      = 30 * time.Second
	errorBodyLimit       = 512
	transcriptSchema     = 1
	transcriptEventType  = "transcript.completed"
	headerStreamID       = "X-Chunkscribe-Stream"
	headerIdempotencyKey = "Idempotency-Key"
)

type transcriptPayload struct {
	SchemaVersion int    `json:"schema_version"`
	EventType     string `json:"event_type"`
	notify.TranscriptEvent
}

// HTTPSender posts each TranscriptEvent as JSON. An empty URL turns it into a no-op.
type HTTPSender struct {
	endpoint string
	client   *http.Client
}

func NewHTTPSender(endpoint string) *HTTPSender {
	return &HTTPSender{
		endpoint: strings.TrimSpace(endpoint),
		client:   &http.Client{Timeout: deliveryTimeout},
	}
}

func (s *HTTPSender) NotifyTranscript(ctx context.Context, event notify.TranscriptEvent) error {
	if s.endpoint == "" {
		return nil
	}

	body, err := json.Marshal(transcriptPayload{
		SchemaVersion:   transcriptSchema,
		EventType:       transcriptEventType,
		TranscriptEvent: event,
	})
	if err != nil {
		return fmt.Errorf("encode transcript event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerStreamID, event.StreamID)
	if event.RunID != "" {
		req.Header.Set(headerIdempotencyKey, event.RunID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver webhook: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode/100 == 2 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if msg := strings.TrimSpace(string(snippet)); msg != "" {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("webhook returned status %d", resp.StatusCode)
}
