// Package notify fans a completed transcript out to the configured sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// TranscriptEvent describes one stream whose full transcript was just written.
type TranscriptEvent struct {
	RunID          string    `json:"run_id"`
	StreamID       string    `json:"stream_id"`
	Source         string    `json:"source"`
	Provider       string    `json:"provider"`
	ChunkCount     int       `json:"chunk_count"`
	DurationMs     int64     `json:"duration_ms"`
	TranscriptFile string    `json:"transcript_file"`
	Transcript     string    `json:"transcript"`
	CompletedAt    time.Time `json:"completed_at"`
}

type Notifier interface {
	NotifyTranscript(ctx context.Context, event TranscriptEvent) error
}

// Names the sinks are registered under in the injector.
const (
	NotifierWebhook = "notifier.webhook"
	NotifierDiscord = "notifier.discord"
	NotifierKafka   = "notifier.kafka"
)

type namedNotifier struct {
	name     string
	notifier Notifier
}

// Fanout delivers every event to all sinks, even after one of them fails.
type Fanout struct {
	sinks []namedNotifier
}

func NewFanout() *Fanout {
	return &Fanout{}
}

func (f *Fanout) Add(name string, n Notifier) {
	if n == nil {
		return
	}
	f.sinks = append(f.sinks, namedNotifier{name: name, notifier: n})
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

func (f *Fanout) NotifyTranscript(ctx context.Context, event TranscriptEvent) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.notifier.NotifyTranscript(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) Close() error {
	var errs []error
	for _, s := range f.sinks {
		c, ok := s.notifier.(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}
