package transcriber

import (
	"fmt"

	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/transcriber"
	"github.com/samber/do/v2"
)

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (transcriber.Transcriber, error) {
		c := do.MustInvoke[*config.Config](i)
		switch c.TranscriptionProvider {
		case config.ProviderOpenAI:
			return NewWhisperTranscriber(WhisperConfig{
				APIKey:   c.OpenAIAPIKey,
				BaseURL:  c.OpenAIBaseURL,
				Model:    c.TranscriptionModel,
				Language: c.TranscriptionLanguage,
			}), nil
		case config.ProviderGoogle:
			return NewCloudSpeechTranscriber(CloudSpeechConfig{
				ProjectID:       c.GoogleCloudProjectID,
				CredentialsJSON: c.GoogleCloudCredentialsJSON,
				Language:        c.TranscriptionLanguage,
				Location:        c.GoogleCloudSpeechLocation,
				Model:           c.GoogleCloudSpeechModel,
			}), nil
		case config.ProviderDeepgram:
			return NewDeepgramTranscriber(DeepgramConfig{
				APIKey:   c.DeepgramAPIKey,
				Model:    c.DeepgramModel,
				Language: c.TranscriptionLanguage,
			}), nil
		default:
			return nil, fmt.Errorf("unknown transcription provider %q", c.TranscriptionProvider)
		}
	})
}
