package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/foxseedlab/chunkscribe/internal/repository"
)

func newTestSQLite(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLiteRepository(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	return repo
}

func TestSQLiteRepository_CompleteRun(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 500_000_000, time.UTC)

	run, err := repo.CreateRun(ctx, repository.CreateRunInput{
		ID:        "run-1",
		StreamID:  "talk",
		Source:    "/audio/talk.mp3",
		Provider:  "openai",
		Model:     "whisper-1",
		StartedAt: started,
	})
	if err != nil {
		t.Fatalf("create run: %v", err)
	}
	if run.Status != repository.RunStatusRunning || !run.StartedAt.Equal(started) || run.EndedAt != nil {
		t.Fatalf("unexpected created run: %+v", run)
	}

	err = repo.CompleteRun(ctx, repository.CompleteRunInput{
		RunID:          "run-1",
		EndedAt:        started.Add(time.Minute),
		DurationMs:     5000,
		ChunkCount:     2,
		TranscriptText: "one\ntwo",
		Segments: []repository.TranscriptSegment{
			{ChunkIndex: 2, StartMs: 1500, EndMs: 5000, Content: "two"},
			{ChunkIndex: 1, StartMs: 0, EndMs: 2000, Content: "one"},
		},
	})
	if err != nil {
		t.Fatalf("complete run: %v", err)
	}

	latest, err := repo.GetLatestRunByStream(ctx, "talk")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest.Status != repository.RunStatusCompleted || latest.ChunkCount != 2 || latest.TranscriptText != "one\ntwo" {
		t.Fatalf("unexpected completed run: %+v", latest)
	}
	if latest.EndedAt == nil || !latest.EndedAt.Equal(started.Add(time.Minute)) {
		t.Fatalf("unexpected ended_at: %v", latest.EndedAt)
	}

	segs, err := repo.ListSegmentsByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("list segments: %v", err)
	}
	if len(segs) != 2 || segs[0].ChunkIndex != 1 || segs[1].Content != "two" || segs[1].StartMs != 1500 {
		t.Fatalf("unexpected segments: %+v", segs)
	}
}

func TestSQLiteRepository_FailRun(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-old", "run-new"} {
		if _, err := repo.CreateRun(ctx, repository.CreateRunInput{
			ID:        id,
			StreamID:  "talk",
			Source:    "talk.wav",
			Provider:  "deepgram",
			StartedAt: started.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	if err := repo.FailRun(ctx, repository.FailRunInput{
		RunID:          "run-new",
		EndedAt:        started.Add(2 * time.Hour),
		Reason:         "quota",
		ErrorMessage:   "deepgram transcription of chunk 2 failed",
		LastChunkIndex: 1,
	}); err != nil {
		t.Fatalf("fail run: %v", err)
	}

	latest, err := repo.GetLatestRunByStream(ctx, "talk")
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest.ID != "run-new" || latest.Status != repository.RunStatusFailed {
		t.Fatalf("unexpected latest run: %+v", latest)
	}
	if latest.FailureReason != "quota" || latest.LastChunkIndex != 1 {
		t.Fatalf("unexpected failure details: %+v", latest)
	}
}

func TestSQLiteRepository_Missing(t *testing.T) {
	repo := newTestSQLite(t)
	ctx := context.Background()

	run, err := repo.GetLatestRunByStream(ctx, "nobody")
	if err != nil || run != nil {
		t.Fatalf("expected nil run without error, got %+v, %v", run, err)
	}
	err = repo.CompleteRun(ctx, repository.CompleteRunInput{RunID: "ghost", EndedAt: time.Now()})
	if !errors.Is(err, errRunNotFound) {
		t.Fatalf("expected errRunNotFound, got %v", err)
	}
}

func TestNoopRepository(t *testing.T) {
	var repo repository.Repository = NoopRepository{}
	ctx := context.Background()
	run, err := repo.CreateRun(ctx, repository.CreateRunInput{ID: "run-1", StreamID: "talk"})
	if err != nil || run.ID != "run-1" || run.Status != repository.RunStatusRunning {
		t.Fatalf("unexpected noop run: %+v, %v", run, err)
	}
	if latest, err := repo.GetLatestRunByStream(ctx, "talk"); err != nil || latest != nil {
		t.Fatalf("expected nothing recorded, got %+v, %v", latest, err)
	}
}
