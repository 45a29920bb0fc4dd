// Package pipeline drives one source at a time through fetch, segmentation, transcription and
// reassembly, and records the outcome in the run ledger.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/foxseedlab/chunkscribe/internal/audio"
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/logging"
	"github.com/foxseedlab/chunkscribe/internal/metrics"
	"github.com/foxseedlab/chunkscribe/internal/notify"
	"github.com/foxseedlab/chunkscribe/internal/repository"
	"github.com/foxseedlab/chunkscribe/internal/segment"
	"github.com/foxseedlab/chunkscribe/internal/source"
	"github.com/foxseedlab/chunkscribe/internal/transcriber"
	"github.com/foxseedlab/chunkscribe/internal/transcript"
	"github.com/google/uuid"
)

var ErrNoChunks = errors.New("segmentation produced no chunks")

// Failure reasons recorded in the ledger for errors that are not provider faults.
const (
	reasonInvalidParameters = "invalid_parameters"
	reasonChunkPersistence  = "chunk_persistence"
	reasonSource            = "source"
	reasonInternal          = "internal"
)

// Result is the outcome of one source. Err is nil for completed and skipped streams.
type Result struct {
	StreamID   string
	Source     string
	RunID      string
	Transcript *transcript.Transcript
	ChunkCount int
	DurationMs int64
	Skipped    bool
	Err        error
}

type Pipeline struct {
	cfg         *config.Config
	fetcher     source.Fetcher
	decoder     audio.Decoder
	segmenter   *segment.Segmenter
	transcriber transcriber.Transcriber
	store       transcript.Store
	repo        repository.Repository
	notifier    notify.Notifier
	metrics     *metrics.Metrics

	now   func() time.Time
	newID func() string
}

func New(
	cfg *config.Config,
	fetcher source.Fetcher,
	decoder audio.Decoder,
	segmenter *segment.Segmenter,
	stt transcriber.Transcriber,
	store transcript.Store,
	repo repository.Repository,
	notifier notify.Notifier,
	m *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		cfg:         cfg,
		fetcher:     fetcher,
		decoder:     decoder,
		segmenter:   segmenter,
		transcriber: stt,
		store:       store,
		repo:        repo,
		notifier:    notifier,
		metrics:     m,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// RunAll processes raw source arguments one after another. Once ctx is done, every remaining
// source is reported with the context error without being started.
func (p *Pipeline) RunAll(ctx context.Context, raws []string) []Result {
	results := make([]Result, 0, len(raws))
	for _, raw := range raws {
		if err := ctx.Err(); err != nil {
			p.metrics.RecordStream(metrics.OutcomeCanceled, 0)
			results = append(results, Result{Source: raw, Err: err})
			continue
		}
		src, err := source.Parse(raw)
		if err != nil {
			logger := logging.WithComponent("pipeline")
			logger.Error().Err(err).Str("source", raw).Msg("failed to resolve source")
			p.metrics.RecordStream(metrics.OutcomeFailed, 0)
			results = append(results, Result{Source: raw, Err: err})
			continue
		}
		results = append(results, p.Run(ctx, src))
	}
	return results
}

// Run transcribes one source. A transcript is written only when every chunk succeeded; an
// existing transcript for the stream makes the run a skipped no-op.
func (p *Pipeline) Run(ctx context.Context, src source.Source) Result {
	started := p.now()
	res := p.run(ctx, src)

	outcome := metrics.OutcomeCompleted
	switch {
	case res.Skipped:
		outcome = metrics.OutcomeSkipped
	case errors.Is(res.Err, context.Canceled):
		outcome = metrics.OutcomeCanceled
	case res.Err != nil:
		outcome = metrics.OutcomeFailed
	}
	p.metrics.RecordStream(outcome, p.now().Sub(started).Seconds())
	return res
}

func (p *Pipeline) run(ctx context.Context, src source.Source) Result {
	res := Result{StreamID: src.StreamID, Source: src.Raw}
	logger := logging.WithStream(src.StreamID)

	exists, err := p.store.Exists(ctx, src.StreamID)
	if err != nil {
		res.Err = fmt.Errorf("check existing transcript: %w", err)
		logger.Error().Err(res.Err).Msg("stream failed")
		return res
	}
	if exists {
		logger.Info().Str("source", src.Raw).Msg("transcript already exists; skipping stream")
		res.Skipped = true
		return res
	}

	run, err := p.repo.CreateRun(ctx, repository.CreateRunInput{
		ID:        p.newID(),
		StreamID:  src.StreamID,
		Source:    src.Raw,
		Provider:  p.transcriber.Name(),
		Model:     p.model(),
		StartedAt: p.now(),
	})
	if err != nil {
		res.Err = fmt.Errorf("create run: %w", err)
		logger.Error().Err(res.Err).Msg("stream failed")
		return res
	}
	res.RunID = run.ID
	logger = logger.With().Str("run_id", run.ID).Logger()
	logger.Info().Str("source", src.Raw).Str("provider", p.transcriber.Name()).Msg("stream started")

	st := &streamRun{Pipeline: p, src: src, runID: run.ID}
	t, saved, err := st.transcribe(ctx)
	res.ChunkCount = len(st.chunks)
	res.DurationMs = st.durationMs
	if err != nil {
		res.Err = err
		p.failRun(ctx, run.ID, st.lastChunk, err)
		logger.Error().
			Err(err).
			Int("last_chunk_index", st.lastChunk).
			Msg("stream failed; no transcript written")
		return res
	}
	if !saved {
		// Another run published the transcript first.
		logger.Info().Msg("transcript appeared during run; keeping existing file")
		res.Skipped = true
		p.completeRun(ctx, st, t)
		return res
	}

	res.Transcript = t
	p.metrics.RecordTranscript(len(t.Text))
	p.completeRun(ctx, st, t)
	p.notify(ctx, st, t)
	logger.Info().
		Int("chunks", len(st.chunks)).
		Int64("duration_ms", st.durationMs).
		Int("transcript_chars", len(t.Text)).
		Msg("stream completed")
	return res
}

// model is the model id sent with every chunk for the configured provider.
func (p *Pipeline) model() string {
	switch p.cfg.TranscriptionProvider {
	case config.ProviderGoogle:
		return p.cfg.GoogleCloudSpeechModel
	case config.ProviderDeepgram:
		return p.cfg.DeepgramModel
	default:
		return p.cfg.TranscriptionModel
	}
}

func (p *Pipeline) transcriptPath(streamID string) string {
	return filepath.Join(p.cfg.TranscriptsDir, transcript.FileName(streamID))
}

// streamRun holds the state of one stream while it moves through the stages.
type streamRun struct {
	*Pipeline
	src   source.Source
	runID string

	durationMs int64
	chunks     []segment.Chunk
	segmented  bool
	lastChunk  int
}

func (s *streamRun) transcribe(ctx context.Context) (*transcript.Transcript, bool, error) {
	localPath, cleanup, err := s.resolve(ctx)
	if err != nil {
		return nil, false, err
	}
	defer cleanup()

	stream, err := s.decoder.Decode(ctx, s.src.StreamID, localPath)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", s.src.Raw, err)
	}
	s.durationMs = stream.DurationMs()

	if err := s.chunk(ctx, stream, localPath); err != nil {
		return nil, false, err
	}
	defer s.removeChunks()

	assembly := transcript.NewAssembly(s.src.StreamID, len(s.chunks))
	for _, c := range s.chunks {
		text, err := s.transcribeChunk(ctx, c)
		if err != nil {
			return nil, false, err
		}
		if err := assembly.Put(transcript.Segment{ChunkIndex: c.Index, Text: text, Succeeded: true}); err != nil {
			return nil, false, err
		}
		s.lastChunk = c.Index
	}

	t, err := assembly.Reassemble()
	if err != nil {
		return nil, false, err
	}
	saved, err := s.store.Save(ctx, t)
	if err != nil {
		if !saved {
			return nil, false, fmt.Errorf("save transcript: %w", err)
		}
		logger := logging.WithStream(s.src.StreamID)
		logger.Warn().Err(err).Msg("transcript published but a follow-up write failed")
	}
	return t, saved, nil
}

// resolve returns a local path for the source, downloading remote sources into the scratch
// dir. cleanup removes the download.
func (s *streamRun) resolve(ctx context.Context) (string, func(), error) {
	if !s.src.IsRemote() {
		return s.src.Location, func() {}, nil
	}
	if err := os.MkdirAll(s.cfg.ScratchDir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create scratch dir: %w", err)
	}
	path, err := s.fetcher.Fetch(ctx, s.src, s.cfg.ScratchDir)
	if err != nil {
		return "", nil, fmt.Errorf("fetch %s: %w", s.src.Raw, err)
	}
	return path, func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger := logging.WithStream(s.src.StreamID)
			logger.Warn().Err(err).Str("path", path).Msg("failed to remove downloaded audio")
		}
	}, nil
}

// chunk fills s.chunks. A source that fits the provider's upload and duration limits is sent
// whole as chunk 1 and the segmenter is skipped.
func (s *streamRun) chunk(ctx context.Context, stream *audio.Stream, localPath string) error {
	info, err := os.Stat(localPath)
	if err != nil {
		return fmt.Errorf("stat %s: %w", localPath, err)
	}
	fitsDuration := s.cfg.ProviderMaxDurationMs == 0 || stream.DurationMs() <= s.cfg.ProviderMaxDurationMs
	if info.Size() <= s.cfg.MaxUploadBytes() && fitsDuration && stream.DurationMs() > 0 {
		s.chunks = []segment.Chunk{{
			Window: segment.Window{Index: 1, StartMs: 0, EndMs: stream.DurationMs()},
			Path:   localPath,
		}}
		s.metrics.RecordShortCircuit()
		logger := logging.WithStream(s.src.StreamID)
		logger.Info().
			Int64("size_bytes", info.Size()).
			Int64("max_upload_bytes", s.cfg.MaxUploadBytes()).
			Msg("source fits provider limits; sending without segmenting")
		return nil
	}

	chunks, err := s.segmenter.Segment(ctx, stream)
	if err != nil {
		return err
	}
	s.segmented = true
	s.chunks = chunks
	s.metrics.RecordChunks(len(chunks))
	if len(chunks) == 0 {
		return ErrNoChunks
	}
	return nil
}

func (s *streamRun) transcribeChunk(ctx context.Context, c segment.Chunk) (string, error) {
	provider := s.transcriber.Name()
	in := transcriber.ChunkInput{
		StreamID: s.src.StreamID,
		Index:    c.Index,
		Path:     c.Path,
		Model:    s.model(),
		Language: s.cfg.TranscriptionLanguage,
	}
	if err := ctx.Err(); err != nil {
		return "", transcriber.AsProviderError(provider, in, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()
	started := s.now()
	text, err := s.transcriber.Transcribe(callCtx, in)
	elapsed := s.now().Sub(started).Seconds()
	if err != nil {
		perr := transcriber.AsProviderError(provider, in, err)
		s.metrics.RecordTranscription(provider, string(perr.Reason), elapsed)
		return "", perr
	}
	s.metrics.RecordTranscription(provider, metrics.OutcomeSuccess, elapsed)

	logger := logging.WithChunk(s.src.StreamID, c.Index)
	logger.Info().
		Str("provider", provider).
		Int("chunks", len(s.chunks)).
		Int("chars", len(text)).
		Float64("seconds", elapsed).
		Msg("chunk transcribed")
	return text, nil
}

// removeChunks deletes segmenter output unless chunks are kept. The source file sent whole on
// the short-circuit path is never removed here.
func (s *streamRun) removeChunks() {
	if s.cfg.KeepChunks || !s.segmented {
		return
	}
	for _, c := range s.chunks {
		if err := os.Remove(c.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger := logging.WithChunk(s.src.StreamID, c.Index)
			logger.Warn().Err(err).Str("path", c.Path).Msg("failed to remove chunk file")
		}
	}
}

// Ledger and notification failures happen after the transcript is on disk, so they are logged
// and never change the stream's Result.

func (p *Pipeline) completeRun(ctx context.Context, s *streamRun, t *transcript.Transcript) {
	segments := make([]repository.TranscriptSegment, 0, len(t.Segments))
	for i, seg := range t.Segments {
		w := s.chunks[i].Window
		segments = append(segments, repository.TranscriptSegment{
			RunID:      s.runID,
			ChunkIndex: seg.ChunkIndex,
			StartMs:    w.StartMs,
			EndMs:      w.EndMs,
			Content:    seg.Text,
		})
	}
	if err := p.repo.CompleteRun(context.WithoutCancel(ctx), repository.CompleteRunInput{
		RunID:          s.runID,
		EndedAt:        p.now(),
		DurationMs:     s.durationMs,
		ChunkCount:     len(s.chunks),
		TranscriptText: t.Text,
		Segments:       segments,
	}); err != nil {
		logger := logging.WithStream(s.src.StreamID)
		logger.Error().Err(err).Str("run_id", s.runID).Msg("failed to mark run completed")
	}
}

func (p *Pipeline) failRun(ctx context.Context, runID string, lastChunk int, cause error) {
	if err := p.repo.FailRun(context.WithoutCancel(ctx), repository.FailRunInput{
		RunID:          runID,
		EndedAt:        p.now(),
		Reason:         FailureReason(cause),
		ErrorMessage:   cause.Error(),
		LastChunkIndex: lastChunk,
	}); err != nil {
		logger := logging.WithComponent("pipeline")
		logger.Error().Err(err).Str("run_id", runID).Msg("failed to mark run failed")
	}
}

func (p *Pipeline) notify(ctx context.Context, s *streamRun, t *transcript.Transcript) {
	err := p.notifier.NotifyTranscript(ctx, notify.TranscriptEvent{
		RunID:          s.runID,
		StreamID:       s.src.StreamID,
		Source:         s.src.Raw,
		Provider:       p.transcriber.Name(),
		ChunkCount:     len(s.chunks),
		DurationMs:     s.durationMs,
		TranscriptFile: p.transcriptPath(s.src.StreamID),
		Transcript:     t.Text,
		CompletedAt:    p.now(),
	})
	if err != nil {
		p.metrics.RecordNotifyError()
		logger := logging.WithStream(s.src.StreamID)
		logger.Error().Err(err).Str("run_id", s.runID).Msg("failed to deliver transcript notification")
	}
}

// FailureReason maps a stream error onto the short reason stored with a failed run.
func FailureReason(err error) string {
	var perr *transcriber.ProviderError
	var invalid *segment.InvalidParametersError
	var persist *segment.ChunkPersistenceError
	switch {
	case errors.As(err, &perr):
		return string(perr.Reason)
	case errors.As(err, &invalid):
		return reasonInvalidParameters
	case errors.As(err, &persist):
		return reasonChunkPersistence
	case errors.Is(err, audio.ErrUnsupportedFormat), errors.Is(err, source.ErrUnsupportedSource):
		return reasonSource
	}
	if reason, ok := transcriber.ContextReason(err); ok {
		return string(reason)
	}
	return reasonInternal
}
