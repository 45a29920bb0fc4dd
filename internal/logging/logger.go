// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

func Init(cfg Config) {
	InitWithWriter(cfg, os.Stdout)
}

// InitWithWriter is Init with an explicit sink; console output is only used for Format "console".
func InitWithWriter(cfg Config, w io.Writer) {
	zerolog.TimeFieldFormat = time.RFC3339

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := w
	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(output).
		With().
		Timestamp().
		Logger()
}

func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}

func WithStream(streamID string) zerolog.Logger {
	return log.With().
		Str("stream_id", streamID).
		Logger()
}

func WithChunk(streamID string, chunkIndex int) zerolog.Logger {
	return log.With().
		Str("stream_id", streamID).
		Int("chunk_index", chunkIndex).
		Logger()
}
