// Package events publishes transcript-completed events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/foxseedlab/chunkscribe/internal/logging"
	"github.com/foxseedlab/chunkscribe/internal/notify"
	"github.com/segmentio/kafka-go"
)

const eventTypeTranscriptCompleted = "transcript.completed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
}

// Publisher writes one message per transcript keyed by stream id. Without brokers it only
// logs the event.
type Publisher struct {
	writer  messageWriter
	topic   string
	enabled bool
}

func New(cfg Config) *Publisher {
	logger := logging.WithComponent("events")
	if len(cfg.Brokers) == 0 {
		logger.Info().Msg("kafka disabled, using log-only mode")
		return &Publisher{topic: cfg.Topic}
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
		Transport:    &kafka.Transport{DialTimeout: 10 * time.Second},
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.Topic).
		Msg("kafka publisher initialized")

	return &Publisher{writer: writer, topic: cfg.Topic, enabled: true}
}

func (p *Publisher) NotifyTranscript(ctx context.Context, event notify.TranscriptEvent) error {
	logger := logging.WithStream(event.StreamID)
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Error().Err(err).Str("topic", p.topic).Msg("failed to marshal event")
		return err
	}

	logger.Debug().
		Str("topic", p.topic).
		Str("run_id", event.RunID).
		Int("payload_bytes", len(payload)).
		Msg("publishing transcript event")

	if !p.enabled || p.writer == nil {
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.StreamID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "eventType", Value: []byte(eventTypeTranscriptCompleted)},
			{Key: "runId", Value: []byte(event.RunID)},
			{Key: "provider", Value: []byte(event.Provider)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		logger.Error().
			Err(err).
			Str("topic", p.topic).
			Msg("failed to write to kafka")
		return err
	}
	return nil
}

func (p *Publisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
