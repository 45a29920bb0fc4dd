package discord

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/foxseedlab/chunkscribe/internal/notify"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestSession(t *testing.T, rt roundTripFunc) *discordgo.Session {
	t.Helper()
	s, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	if rt != nil {
		s.Client = &http.Client{Transport: rt}
	}
	return s
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": {"application/json"}},
	}
}

func TestNotifyTranscript_Unconfigured(t *testing.T) {
	n, err := NewNotifier("", "chan-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := n.NotifyTranscript(context.Background(), notify.TranscriptEvent{StreamID: "talk"}); err != nil {
		t.Fatalf("expected no-op, got %v", err)
	}
}

func TestNotifyTranscript_UploadsTranscriptFile(t *testing.T) {
	var gotPath, gotBody string
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		gotPath = req.URL.Path
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		gotBody = string(b)
		return jsonResponse(http.StatusOK, `{"id":"msg-1","channel_id":"chan-1"}`), nil
	})

	n := &Notifier{session: s, channelID: "chan-1"}
	err := n.NotifyTranscript(context.Background(), notify.TranscriptEvent{
		StreamID:       "talk",
		Source:         "talk.mp3",
		Provider:       "openai",
		ChunkCount:     1,
		DurationMs:     90_000,
		TranscriptFile: "/data/extracted_transcripts/talk_full_transcript.txt",
		Transcript:     "hello world",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/channels/chan-1/messages") {
		t.Fatalf("unexpected request path: %s", gotPath)
	}
	for _, want := range []string{`filename="talk_full_transcript.txt"`, "hello world", "1 chunk, 1.5 min, openai"} {
		if !strings.Contains(gotBody, want) {
			t.Fatalf("expected %q in request body:\n%s", want, gotBody)
		}
	}
}

func TestNotifyTranscript_UnknownChannel(t *testing.T) {
	s := newTestSession(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{"message":"Unknown Channel","code":10003}`), nil
	})

	n := &Notifier{session: s, channelID: "gone"}
	err := n.NotifyTranscript(context.Background(), notify.TranscriptEvent{StreamID: "talk", Transcript: "x"})
	if err == nil || !strings.Contains(err.Error(), "discord channel gone not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}
