package transcriber

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"cloud.google.com/go/auth/credentials"
	speech "cloud.google.com/go/speech/apiv2"
	speechpb "cloud.google.com/go/speech/apiv2/speechpb"
	"github.com/foxseedlab/chunkscribe/internal/logging"
	"github.com/foxseedlab/chunkscribe/internal/transcriber"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	speechAPIEndpointPort  = 443
	// Recognize requires at least one language code.
	speechFallbackLanguage = "en-US"
)

type CloudSpeechConfig struct {
	ProjectID       string
	CredentialsJSON string
	Language        string
	Location        string
	Model           string
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

type speechDialer func(ctx context.Context) (recognizeFunc, func() error, error)

// CloudSpeechTranscriber sends each chunk inline to the synchronous Recognize RPC.
// The gRPC client is created on first use and reused for later chunks.
type CloudSpeechTranscriber struct {
	projectID       string
	defaultLanguage string
	location        string
	model           string

	dial speechDialer

	mu        sync.Mutex
	recognize recognizeFunc
	closeFn   func() error
}

func NewCloudSpeechTranscriber(cfg CloudSpeechConfig) *CloudSpeechTranscriber {
	location := strings.TrimSpace(cfg.Location)
	if location == "" {
		location = "global"
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = speechFallbackLanguage
	}
	t := &CloudSpeechTranscriber{
		projectID:       cfg.ProjectID,
		defaultLanguage: language,
		location:        location,
		model:           strings.TrimSpace(cfg.Model),
	}
	t.dial = func(ctx context.Context) (recognizeFunc, func() error, error) {
		return dialCloudSpeech(ctx, cfg.CredentialsJSON, location)
	}
	return t
}

func dialCloudSpeech(ctx context.Context, credentialsJSON, location string) (recognizeFunc, func() error, error) {
	creds, err := credentials.DetectDefault(&credentials.DetectOptions{
		CredentialsJSON: []byte(credentialsJSON),
		Scopes:          []string{"https://www.googleapis.com/auth/cloud-platform"},
	})
	if err != nil {
		return nil, nil, fmt.Errorf("detect credentials: %w", err)
	}

	opts := []option.ClientOption{
		option.WithAuthCredentials(creds),
	}
	if location != "global" {
		opts = append(opts, option.WithEndpoint(fmt.Sprintf("%s-speech.googleapis.com:%d", location, speechAPIEndpointPort)))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}
	recognize := func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return client.Recognize(ctx, req)
	}
	return recognize, client.Close, nil
}

func (t *CloudSpeechTranscriber) Name() string {
	return "google"
}

func (t *CloudSpeechTranscriber) Transcribe(ctx context.Context, in transcriber.ChunkInput) (string, error) {
	language := in.Language
	if language == "" {
		language = t.defaultLanguage
	}
	model := in.Model
	if model == "" {
		model = t.model
	}

	content, err := os.ReadFile(in.Path)
	if err != nil {
		return "", transcriber.NewProviderError(t.Name(), in, transcriber.ReasonInvalidRequest, err)
	}

	recognize, err := t.client(ctx)
	if err != nil {
		return "", transcriber.NewProviderError(t.Name(), in, classifySpeechError(err), err)
	}

	logger := logging.WithChunk(in.StreamID, in.Index)
	logger.Debug().
		Str("provider", t.Name()).
		Str("location", t.location).
		Str("model", model).
		Str("language", language).
		Int("bytes", len(content)).
		Msg("sending chunk to cloud speech")

	resp, err := recognize(ctx, &speechpb.RecognizeRequest{
		Recognizer: fmt.Sprintf("projects/%s/locations/%s/recognizers/_", t.projectID, t.location),
		Config: &speechpb.RecognitionConfig{
			Model:         model,
			LanguageCodes: []string{language},
			DecodingConfig: &speechpb.RecognitionConfig_AutoDecodingConfig{
				AutoDecodingConfig: &speechpb.AutoDetectDecodingConfig{},
			},
			Features: &speechpb.RecognitionFeatures{EnableAutomaticPunctuation: true},
		},
		AudioSource: &speechpb.RecognizeRequest_Content{Content: content},
	})
	if err != nil {
		return "", transcriber.NewProviderError(t.Name(), in, classifySpeechError(err), err)
	}
	if resp == nil {
		return "", transcriber.NewProviderError(t.Name(), in, transcriber.ReasonMalformedResponse, fmt.Errorf("empty recognize response"))
	}

	parts := make([]string, 0, len(resp.GetResults()))
	for _, result := range resp.GetResults() {
		if len(result.GetAlternatives()) == 0 {
			continue
		}
		if text := strings.TrimSpace(result.GetAlternatives()[0].GetTranscript()); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " "), nil
}

func (t *CloudSpeechTranscriber) client(ctx context.Context) (recognizeFunc, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.recognize != nil {
		return t.recognize, nil
	}
	// The client outlives this chunk's deadline.
	recognize, closeFn, err := t.dial(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	t.recognize = recognize
	t.closeFn = closeFn
	return recognize, nil
}

func (t *CloudSpeechTranscriber) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closeFn == nil {
		return nil
	}
	err := t.closeFn()
	t.recognize = nil
	t.closeFn = nil
	return err
}

func classifySpeechError(err error) transcriber.Reason {
	if reason, ok := transcriber.ContextReason(err); ok {
		return reason
	}
	st, ok := status.FromError(err)
	if !ok {
		return transcriber.ReasonUnknown
	}
	switch st.Code() {
	case codes.DeadlineExceeded:
		return transcriber.ReasonTimeout
	case codes.Canceled:
		return transcriber.ReasonCanceled
	case codes.ResourceExhausted:
		return transcriber.ReasonQuota
	case codes.Unauthenticated, codes.PermissionDenied:
		return transcriber.ReasonAuth
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange, codes.NotFound:
		return transcriber.ReasonInvalidRequest
	case codes.Unavailable, codes.Aborted:
		return transcriber.ReasonTransport
	default:
		return transcriber.ReasonUnknown
	}
}
