package config

import (
	"fmt"
	"strings"
	"time"
)

const (
	ProviderOpenAI   = "openai"
	ProviderGoogle   = "google"
	ProviderDeepgram = "deepgram"

	FetchFormatM4A  = "m4a"
	FetchFormatOpus = "opus"
	FetchFormatWAV  = "wav"

	ChunkFormatM4A  = "m4a"
	ChunkFormatOpus = "opus"
	ChunkFormatWAV  = "wav"
)

// Chunks are cut from canonical 16-bit mono 16 kHz audio.
const (
	pcmBytesPerSecond           = 32_000
	chunkContainerOverheadBytes = 64 * 1024
)

// Cloud Speech synchronous Recognize rejects inline audio longer than one minute.
const googleSyncRecognizeLimitMs = 60_000

type Config struct {
	Env       string
	LogFormat string

	ChunkLengthMs         int64
	ChunkOverlapMs        int64
	ProviderMaxUploadMB   float64
	ProviderMaxDurationMs int64
	ProviderTimeout       time.Duration
	ChunkFormat           string
	ChunkBitrateKbps      int

	TranscriptionProvider string
	TranscriptionModel    string
	TranscriptionLanguage string

	OpenAIAPIKey               string
	OpenAIBaseURL              string
	GoogleCloudProjectID       string
	GoogleCloudCredentialsJSON string
	GoogleCloudSpeechLocation  string
	GoogleCloudSpeechModel     string
	DeepgramAPIKey             string
	DeepgramModel              string

	DataDir                 string
	AudioSegmentsDir        string
	TranscriptsDir          string
	SearchResultsDir        string
	ScratchDir              string
	KeepChunks              bool
	WriteSegmentTranscripts bool
	FetchFormat             string
	YTDLPPath               string
	FFmpegPath              string

	YouTubeAPIKey     string
	YouTubeMaxResults int
	YouTubeMaxPages   int

	DatabaseURL          string
	TranscriptWebhookURL string
	DiscordToken         string
	DiscordChannelID     string
	KafkaBrokers         []string
	KafkaTopic           string
	MetricsTextfile      string
}

func (c *Config) Validate() error {
	for _, req := range c.requiredFieldChecks() {
		if req.value == "" {
			return fmt.Errorf("%s is required", req.name)
		}
	}
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	if err := c.validateProvider(); err != nil {
		return err
	}
	switch c.FetchFormat {
	case FetchFormatM4A, FetchFormatOpus, FetchFormatWAV:
	default:
		return fmt.Errorf("FETCH_FORMAT must be one of m4a, opus, wav, got %q", c.FetchFormat)
	}
	if c.YouTubeMaxResults <= 0 || c.YouTubeMaxResults > 50 {
		return fmt.Errorf("YOUTUBE_MAX_RESULTS must be between 1 and 50, got %d", c.YouTubeMaxResults)
	}
	if c.YouTubeMaxPages <= 0 {
		return fmt.Errorf("YOUTUBE_MAX_PAGES must be positive, got %d", c.YouTubeMaxPages)
	}
	if c.DatabaseURL != "" && c.DatabaseDriver() == "" {
		return fmt.Errorf("DATABASE_URL must start with postgres://, postgresql:// or sqlite:")
	}
	if (c.DiscordToken == "") != (c.DiscordChannelID == "") {
		return fmt.Errorf("DISCORD_TOKEN and DISCORD_CHANNEL_ID must be set together")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	if c.ChunkOverlapMs <= 0 {
		return fmt.Errorf("CHUNK_OVERLAP_MS must be positive, got %d", c.ChunkOverlapMs)
	}
	if c.ChunkLengthMs <= c.ChunkOverlapMs {
		return fmt.Errorf("CHUNK_LENGTH_MS must be greater than CHUNK_OVERLAP_MS, got %d <= %d", c.ChunkLengthMs, c.ChunkOverlapMs)
	}
	if c.ProviderMaxUploadMB <= 0 {
		return fmt.Errorf("PROVIDER_MAX_UPLOAD_MB must be positive, got %v", c.ProviderMaxUploadMB)
	}
	if c.ProviderMaxDurationMs < 0 {
		return fmt.Errorf("PROVIDER_MAX_DURATION_MS must not be negative, got %d", c.ProviderMaxDurationMs)
	}
	if c.ProviderMaxDurationMs > 0 && c.ChunkLengthMs > c.ProviderMaxDurationMs {
		return fmt.Errorf("CHUNK_LENGTH_MS must not exceed PROVIDER_MAX_DURATION_MS, got %d > %d", c.ChunkLengthMs, c.ProviderMaxDurationMs)
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive, got %s", c.ProviderTimeout)
	}
	switch c.ChunkFormat {
	case ChunkFormatM4A, ChunkFormatOpus:
		if c.ChunkBitrateKbps <= 0 {
			return fmt.Errorf("CHUNK_BITRATE_KBPS must be positive, got %d", c.ChunkBitrateKbps)
		}
	case ChunkFormatWAV:
	default:
		return fmt.Errorf("CHUNK_FORMAT must be one of m4a, opus, wav, got %q", c.ChunkFormat)
	}
	if est := c.ChunkBytesEstimate(); est > c.MaxUploadBytes() {
		return fmt.Errorf(
			"CHUNK_LENGTH_MS=%d as %s produces chunks of about %d bytes, over the PROVIDER_MAX_UPLOAD_MB limit of %d bytes",
			c.ChunkLengthMs, c.ChunkFormat, est, c.MaxUploadBytes(),
		)
	}
	return nil
}

// ChunkBytesEstimate is the upper bound on the size of one full-length chunk file.
func (c *Config) ChunkBytesEstimate() int64 {
	perSecond := int64(pcmBytesPerSecond)
	if c.ChunkFormat != ChunkFormatWAV {
		perSecond = int64(c.ChunkBitrateKbps) * 1000 / 8
	}
	return c.ChunkLengthMs*perSecond/1000 + chunkContainerOverheadBytes
}

func (c *Config) validateProvider() error {
	switch c.TranscriptionProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when TRANSCRIPTION_PROVIDER=openai")
		}
	case ProviderGoogle:
		if c.GoogleCloudProjectID == "" || c.GoogleCloudCredentialsJSON == "" {
			return fmt.Errorf("GOOGLE_CLOUD_PROJECT_ID and GOOGLE_CLOUD_CREDENTIALS_JSON are required when TRANSCRIPTION_PROVIDER=google")
		}
		if c.ProviderMaxDurationMs <= 0 || c.ProviderMaxDurationMs > googleSyncRecognizeLimitMs {
			return fmt.Errorf("PROVIDER_MAX_DURATION_MS must be between 1 and %d when TRANSCRIPTION_PROVIDER=google", googleSyncRecognizeLimitMs)
		}
	case ProviderDeepgram:
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required when TRANSCRIPTION_PROVIDER=deepgram")
		}
		// The listen socket is paced close to real time, so a chunk needs its own length in wall time.
		if time.Duration(c.ChunkLengthMs)*time.Millisecond > c.ProviderTimeout {
			return fmt.Errorf(
				"PROVIDER_TIMEOUT (%s) must cover CHUNK_LENGTH_MS (%d) when TRANSCRIPTION_PROVIDER=deepgram",
				c.ProviderTimeout, c.ChunkLengthMs,
			)
		}
	default:
		return fmt.Errorf("TRANSCRIPTION_PROVIDER must be one of openai, google, deepgram, got %q", c.TranscriptionProvider)
	}
	return nil
}

// ValidateCollector checks the settings only the YouTube collector needs.
func (c *Config) ValidateCollector() error {
	if c.YouTubeAPIKey == "" {
		return fmt.Errorf("YOUTUBE_API_KEY is required")
	}
	return nil
}

type requiredEnvField struct {
	name  string
	value string
}

func (c *Config) requiredFieldChecks() []requiredEnvField {
	return []requiredEnvField{
		{name: "TRANSCRIPTION_PROVIDER", value: c.TranscriptionProvider},
		{name: "DATA_DIR", value: c.DataDir},
		{name: "AUDIO_SEGMENTS_DIR", value: c.AudioSegmentsDir},
		{name: "TRANSCRIPTS_DIR", value: c.TranscriptsDir},
		{name: "SEARCH_RESULTS_DIR", value: c.SearchResultsDir},
		{name: "SCRATCH_DIR", value: c.ScratchDir},
		{name: "FETCH_FORMAT", value: c.FetchFormat},
	}
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.ProviderMaxUploadMB * 1024 * 1024)
}

// DatabaseDriver reports which ledger backend DATABASE_URL selects, or "" when none does.
func (c *Config) DatabaseDriver() string {
	switch {
	case strings.HasPrefix(c.DatabaseURL, "postgres://"), strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(c.DatabaseURL, "sqlite:"):
		return "sqlite"
	default:
		return ""
	}
}

func (c *Config) SQLitePath() string {
	return strings.TrimPrefix(c.DatabaseURL, "sqlite:")
}
