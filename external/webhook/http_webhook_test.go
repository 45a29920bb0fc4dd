package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/foxseedlab/chunkscribe/internal/notify"
)

func testEvent() notify.TranscriptEvent {
	return notify.TranscriptEvent{
		RunID:          "run-1",
		StreamID:       "talk",
		Source:         "https://www.youtube.com/watch?v=talk",
		Provider:       "openai",
		ChunkCount:     3,
		DurationMs:     5000,
		TranscriptFile: "talk_full_transcript.txt",
		Transcript:     "one\ntwo\nthree",
		CompletedAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestNotifyTranscript_EmptyWebhookURL(t *testing.T) {
	sender := NewHTTPSender("")
	if err := sender.NotifyTranscript(context.Background(), testEvent()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}

func TestNotifyTranscript_Success(t *testing.T) {
	type received struct {
		method, contentType, stream, key string
		event                            transcriptPayload
		decodeErr                        error
	}
	got := make(chan received, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var rec received
		rec.method = r.Method
		rec.contentType = r.Header.Get("Content-Type")
		rec.stream = r.Header.Get("X-Chunkscribe-Stream")
		rec.key = r.Header.Get("Idempotency-Key")
		rec.decodeErr = json.NewDecoder(r.Body).Decode(&rec.event)
		got <- rec
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	if err := sender.NotifyTranscript(context.Background(), testEvent()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	rec := <-got
	if rec.method != http.MethodPost {
		t.Fatalf("unexpected method: %s", rec.method)
	}
	if rec.contentType != "application/json" || rec.stream != "talk" || rec.key != "run-1" {
		t.Fatalf("unexpected headers: content-type=%q stream=%q key=%q", rec.contentType, rec.stream, rec.key)
	}
	if rec.decodeErr != nil {
		t.Fatalf("failed to decode body: %v", rec.decodeErr)
	}
	if rec.event.SchemaVersion != 1 || rec.event.EventType != "transcript.completed" {
		t.Fatalf("unexpected envelope: version=%d type=%q", rec.event.SchemaVersion, rec.event.EventType)
	}
	if rec.event.RunID != "run-1" || rec.event.ChunkCount != 3 || rec.event.Transcript != "one\ntwo\nthree" {
		t.Fatalf("unexpected event: %+v", rec.event)
	}
}

func TestNotifyTranscript_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("missing field stream_id\n"))
	}))
	defer server.Close()

	sender := NewHTTPSender(server.URL)
	err := sender.NotifyTranscript(context.Background(), testEvent())
	if err == nil || !strings.Contains(err.Error(), "400: missing field stream_id") {
		t.Fatalf("expected status and body in error, got %v", err)
	}
}
