package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	internalconfig "github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/joho/godotenv"
)

const defaultDotEnvPath = ".env"

type envConfig struct {
	Env       string `env:"ENV" envDefault:"production"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ChunkLengthMs         int64         `env:"CHUNK_LENGTH_MS" envDefault:"2400000"`
	ChunkOverlapMs        int64         `env:"CHUNK_OVERLAP_MS" envDefault:"1000"`
	ProviderMaxUploadMB   float64       `env:"PROVIDER_MAX_UPLOAD_MB" envDefault:"25"`
	ProviderMaxDurationMs int64         `env:"PROVIDER_MAX_DURATION_MS" envDefault:"0"`
	ProviderTimeout       time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"5m"`
	ChunkFormat           string        `env:"CHUNK_FORMAT" envDefault:"m4a"`
	ChunkBitrateKbps      int           `env:"CHUNK_BITRATE_KBPS" envDefault:"64"`

	TranscriptionProvider string `env:"TRANSCRIPTION_PROVIDER" envDefault:"openai"`
	TranscriptionModel    string `env:"TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	TranscriptionLanguage string `env:"TRANSCRIPTION_LANGUAGE"`

	OpenAIAPIKey               string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL              string `env:"OPENAI_BASE_URL"`
	GoogleCloudProjectID       string `env:"GOOGLE_CLOUD_PROJECT_ID"`
	GoogleCloudCredentialsJSON string `env:"GOOGLE_CLOUD_CREDENTIALS_JSON"`
	GoogleCloudSpeechLocation  string `env:"GOOGLE_CLOUD_SPEECH_LOCATION" envDefault:"global"`
	GoogleCloudSpeechModel     string `env:"GOOGLE_CLOUD_SPEECH_MODEL" envDefault:"long"`
	DeepgramAPIKey             string `env:"DEEPGRAM_API_KEY"`
	DeepgramModel              string `env:"DEEPGRAM_MODEL" envDefault:"nova-2"`

	DataDir                 string `env:"DATA_DIR" envDefault:"data/raw"`
	AudioSegmentsDir        string `env:"AUDIO_SEGMENTS_DIR"`
	TranscriptsDir          string `env:"TRANSCRIPTS_DIR"`
	SearchResultsDir        string `env:"SEARCH_RESULTS_DIR"`
	ScratchDir              string `env:"SCRATCH_DIR"`
	KeepChunks              bool   `env:"KEEP_CHUNKS" envDefault:"true"`
	WriteSegmentTranscripts bool   `env:"WRITE_SEGMENT_TRANSCRIPTS" envDefault:"false"`
	FetchFormat             string `env:"FETCH_FORMAT" envDefault:"m4a"`
	YTDLPPath               string `env:"YTDLP_PATH" envDefault:"yt-dlp"`
	FFmpegPath              string `env:"FFMPEG_PATH" envDefault:"ffmpeg"`

	YouTubeAPIKey     string `env:"YOUTUBE_API_KEY"`
	YouTubeMaxResults int    `env:"YOUTUBE_MAX_RESULTS" envDefault:"50"`
	YouTubeMaxPages   int    `env:"YOUTUBE_MAX_PAGES" envDefault:"1"`

	DatabaseURL          string   `env:"DATABASE_URL"`
	TranscriptWebhookURL string   `env:"TRANSCRIPT_WEBHOOK_URL"`
	DiscordToken         string   `env:"DISCORD_TOKEN"`
	DiscordChannelID     string   `env:"DISCORD_CHANNEL_ID"`
	KafkaBrokers         []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaTopic           string   `env:"KAFKA_TOPIC" envDefault:"transcripts.completed"`
	MetricsTextfile      string   `env:"METRICS_TEXTFILE"`
}

// Load reads .env (when present) into the process environment and parses it.
// Variables already set in the environment win over .env entries.
func Load() (*internalconfig.Config, error) {
	if err := loadDotEnv(dotEnvPath()); err != nil {
		return nil, err
	}
	return parse(env.Options{})
}

// LoadFrom parses the given variables instead of the process environment.
func LoadFrom(environ map[string]string) (*internalconfig.Config, error) {
	return parse(env.Options{Environment: environ})
}

func dotEnvPath() string {
	if p := os.Getenv("DOTENV_PATH"); p != "" {
		return p
	}
	return defaultDotEnvPath
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func parse(opts env.Options) (*internalconfig.Config, error) {
	var raw envConfig
	if err := env.ParseWithOptions(&raw, opts); err != nil {
		return nil, fmt.Errorf("environment variables are invalid or missing: %w", err)
	}

	cfg := &internalconfig.Config{
		Env:                        raw.Env,
		LogFormat:                  raw.LogFormat,
		ChunkLengthMs:              raw.ChunkLengthMs,
		ChunkOverlapMs:             raw.ChunkOverlapMs,
		ProviderMaxUploadMB:        raw.ProviderMaxUploadMB,
		ProviderMaxDurationMs:      raw.ProviderMaxDurationMs,
		ProviderTimeout:            raw.ProviderTimeout,
		ChunkFormat:                raw.ChunkFormat,
		ChunkBitrateKbps:           raw.ChunkBitrateKbps,
		TranscriptionProvider:      raw.TranscriptionProvider,
		TranscriptionModel:         raw.TranscriptionModel,
		TranscriptionLanguage:      raw.TranscriptionLanguage,
		OpenAIAPIKey:               raw.OpenAIAPIKey,
		OpenAIBaseURL:              raw.OpenAIBaseURL,
		GoogleCloudProjectID:       raw.GoogleCloudProjectID,
		GoogleCloudCredentialsJSON: raw.GoogleCloudCredentialsJSON,
		GoogleCloudSpeechLocation:  raw.GoogleCloudSpeechLocation,
		GoogleCloudSpeechModel:     raw.GoogleCloudSpeechModel,
		DeepgramAPIKey:             raw.DeepgramAPIKey,
		DeepgramModel:              raw.DeepgramModel,
		DataDir:                    raw.DataDir,
		AudioSegmentsDir:           orDefaultDir(raw.AudioSegmentsDir, raw.DataDir, "extracted_audio_segments"),
		TranscriptsDir:             orDefaultDir(raw.TranscriptsDir, raw.DataDir, "extracted_transcripts"),
		SearchResultsDir:           orDefaultDir(raw.SearchResultsDir, raw.DataDir, "extracted_json_data"),
		ScratchDir:                 raw.ScratchDir,
		KeepChunks:                 raw.KeepChunks,
		WriteSegmentTranscripts:    raw.WriteSegmentTranscripts,
		FetchFormat:                raw.FetchFormat,
		YTDLPPath:                  raw.YTDLPPath,
		FFmpegPath:                 raw.FFmpegPath,
		YouTubeAPIKey:              raw.YouTubeAPIKey,
		YouTubeMaxResults:          raw.YouTubeMaxResults,
		YouTubeMaxPages:            raw.YouTubeMaxPages,
		DatabaseURL:                raw.DatabaseURL,
		TranscriptWebhookURL:       raw.TranscriptWebhookURL,
		DiscordToken:               raw.DiscordToken,
		DiscordChannelID:           raw.DiscordChannelID,
		KafkaBrokers:               raw.KafkaBrokers,
		KafkaTopic:                 raw.KafkaTopic,
		MetricsTextfile:            raw.MetricsTextfile,
	}
	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func orDefaultDir(value, dataDir, name string) string {
	if value != "" {
		return value
	}
	if dataDir == "" {
		return ""
	}
	return filepath.Join(dataDir, name)
}
