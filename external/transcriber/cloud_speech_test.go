package transcriber

import (
	"context"
	"errors"
	"testing"

	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/chunkscribe/internal/transcriber"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeSpeech struct {
	dials    int
	closes   int
	requests []*speechpb.RecognizeRequest
	resp     *speechpb.RecognizeResponse
	err      error
}

func (f *fakeSpeech) install(t *CloudSpeechTranscriber) {
	t.dial = func(context.Context) (recognizeFunc, func() error, error) {
		f.dials++
		recognize := func(_ context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			f.requests = append(f.requests, req)
			return f.resp, f.err
		}
		return recognize, func() error {
			f.closes++
			return nil
		}, nil
	}
}

func speechResult(text string) *speechpb.SpeechRecognitionResult {
	return &speechpb.SpeechRecognitionResult{
		Alternatives: []*speechpb.SpeechRecognitionAlternative{{Transcript: text}},
	}
}

func TestCloudSpeechTranscriber_JoinsResults(t *testing.T) {
	tr := NewCloudSpeechTranscriber(CloudSpeechConfig{ProjectID: "proj", Location: "asia-northeast1", Model: "long"})
	fake := &fakeSpeech{resp: &speechpb.RecognizeResponse{Results: []*speechpb.SpeechRecognitionResult{
		speechResult(" first part "),
		{},
		speechResult("second part"),
	}}}
	fake.install(tr)

	path := writeChunkFile(t, 32)
	for i := 1; i <= 2; i++ {
		text, err := tr.Transcribe(context.Background(), transcriber.ChunkInput{StreamID: "talk", Index: i, Path: path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if text != "first part second part" {
			t.Fatalf("unexpected text: %q", text)
		}
	}

	if fake.dials != 1 {
		t.Fatalf("expected the client to be dialed once, got %d", fake.dials)
	}
	req := fake.requests[0]
	if req.GetRecognizer() != "projects/proj/locations/asia-northeast1/recognizers/_" {
		t.Fatalf("unexpected recognizer: %s", req.GetRecognizer())
	}
	if req.GetConfig().GetModel() != "long" {
		t.Fatalf("unexpected model: %s", req.GetConfig().GetModel())
	}
	if langs := req.GetConfig().GetLanguageCodes(); len(langs) != 1 || langs[0] != "en-US" {
		t.Fatalf("expected fallback language, got %v", langs)
	}
	if len(req.GetContent()) != 32 {
		t.Fatalf("expected inline content of 32 bytes, got %d", len(req.GetContent()))
	}

	if err := tr.Close(); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := tr.Close(); err != nil {
		t.Fatalf("unexpected second close error: %v", err)
	}
	if fake.closes != 1 {
		t.Fatalf("expected one close, got %d", fake.closes)
	}
}

func TestCloudSpeechTranscriber_ClassifiesStatus(t *testing.T) {
	cases := []struct {
		code codes.Code
		want transcriber.Reason
	}{
		{code: codes.ResourceExhausted, want: transcriber.ReasonQuota},
		{code: codes.PermissionDenied, want: transcriber.ReasonAuth},
		{code: codes.InvalidArgument, want: transcriber.ReasonInvalidRequest},
		{code: codes.DeadlineExceeded, want: transcriber.ReasonTimeout},
		{code: codes.Unavailable, want: transcriber.ReasonTransport},
		{code: codes.Internal, want: transcriber.ReasonUnknown},
	}
	path := writeChunkFile(t, 8)
	for _, tc := range cases {
		tr := NewCloudSpeechTranscriber(CloudSpeechConfig{ProjectID: "proj", Language: "ja-JP"})
		(&fakeSpeech{err: status.Error(tc.code, "boom")}).install(tr)

		_, err := tr.Transcribe(context.Background(), transcriber.ChunkInput{StreamID: "talk", Index: 3, Path: path})
		var perr *transcriber.ProviderError
		if !errors.As(err, &perr) {
			t.Fatalf("%s: expected ProviderError, got %v", tc.code, err)
		}
		if perr.Reason != tc.want || perr.Provider != "google" || perr.ChunkIndex != 3 {
			t.Fatalf("%s: unexpected provider error: %+v", tc.code, perr)
		}
	}
}

func TestCloudSpeechTranscriber_DialFailure(t *testing.T) {
	tr := NewCloudSpeechTranscriber(CloudSpeechConfig{ProjectID: "proj"})
	tr.dial = func(context.Context) (recognizeFunc, func() error, error) {
		return nil, nil, errors.New("detect credentials: no key")
	}
	_, err := tr.Transcribe(context.Background(), transcriber.ChunkInput{StreamID: "talk", Index: 1, Path: writeChunkFile(t, 8)})
	var perr *transcriber.ProviderError
	if !errors.As(err, &perr) || perr.Reason != transcriber.ReasonUnknown {
		t.Fatalf("expected unknown provider error, got %v", err)
	}
}

func TestCloudSpeechTranscriber_MissingFile(t *testing.T) {
	tr := NewCloudSpeechTranscriber(CloudSpeechConfig{ProjectID: "proj"})
	fake := &fakeSpeech{}
	fake.install(tr)
	_, err := tr.Transcribe(context.Background(), transcriber.ChunkInput{StreamID: "talk", Index: 1, Path: "/does/not/exist.wav"})
	var perr *transcriber.ProviderError
	if !errors.As(err, &perr) || perr.Reason != transcriber.ReasonInvalidRequest {
		t.Fatalf("expected invalid request provider error, got %v", err)
	}
	if fake.dials != 0 {
		t.Fatalf("expected no dial for a missing file, got %d", fake.dials)
	}
}
