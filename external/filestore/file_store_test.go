package filestore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/foxseedlab/chunkscribe/internal/transcript"
)

func TestSave_WritesFullTranscript(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, false)

	saved, err := store.Save(context.Background(), &transcript.Transcript{StreamID: "vid", Text: "a\nb"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !saved {
		t.Fatal("expected transcript to be saved")
	}
	body, err := os.ReadFile(filepath.Join(dir, "vid_full_transcript.txt"))
	if err != nil {
		t.Fatalf("failed to read transcript: %v", err)
	}
	if string(body) != "a\nb" {
		t.Fatalf("unexpected body: %q", body)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to list dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the transcript in %s, got %d entries", dir, len(entries))
	}
}

func TestSave_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, false)
	ctx := context.Background()

	if _, err := store.Save(ctx, &transcript.Transcript{StreamID: "vid", Text: "first"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	info, err := os.Stat(store.Path("vid"))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}

	saved, err := store.Save(ctx, &transcript.Transcript{StreamID: "vid", Text: "second"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if saved {
		t.Fatal("expected second save to be a no-op")
	}
	body, err := os.ReadFile(store.Path("vid"))
	if err != nil {
		t.Fatalf("failed to read transcript: %v", err)
	}
	if string(body) != "first" {
		t.Fatalf("transcript was overwritten: %q", body)
	}
	after, err := os.Stat(store.Path("vid"))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if !after.ModTime().Equal(info.ModTime()) {
		t.Fatal("expected transcript to be untouched")
	}
}

func TestExists(t *testing.T) {
	store := NewFileStore(t.TempDir(), false)
	ctx := context.Background()

	ok, err := store.Exists(ctx, "vid")
	if err != nil || ok {
		t.Fatalf("expected missing transcript, got ok=%v err=%v", ok, err)
	}
	if _, err := store.Save(ctx, &transcript.Transcript{StreamID: "vid", Text: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ok, err = store.Exists(ctx, "vid")
	if err != nil || !ok {
		t.Fatalf("expected existing transcript, got ok=%v err=%v", ok, err)
	}
}

func TestSave_WritesSegmentTranscripts(t *testing.T) {
	dir := t.TempDir()
	store := NewFileStore(dir, true)

	_, err := store.Save(context.Background(), &transcript.Transcript{
		StreamID: "vid",
		Text:     "one\ntwo",
		Segments: []transcript.Segment{
			{ChunkIndex: 1, Text: "one", Succeeded: true},
			{ChunkIndex: 2, Text: "two", Succeeded: true},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, err := os.ReadFile(filepath.Join(dir, "vid_segment_02_transcript.txt"))
	if err != nil {
		t.Fatalf("failed to read segment transcript: %v", err)
	}
	if string(body) != "two" {
		t.Fatalf("unexpected segment body: %q", body)
	}
}

func TestSave_SegmentWriteFailureKeepsPublishedTranscript(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "vid_segment_02_transcript.txt"), 0o755); err != nil {
		t.Fatalf("failed to create blocking dir: %v", err)
	}
	store := NewFileStore(dir, true)

	saved, err := store.Save(context.Background(), &transcript.Transcript{
		StreamID: "vid",
		Text:     "one\ntwo",
		Segments: []transcript.Segment{
			{ChunkIndex: 1, Text: "one", Succeeded: true},
			{ChunkIndex: 2, Text: "two", Succeeded: true},
		},
	})
	if err == nil {
		t.Fatal("expected segment write error")
	}
	if !saved {
		t.Fatal("expected saved=true once the full transcript is published")
	}
	exists, err := store.Exists(context.Background(), "vid")
	if err != nil || !exists {
		t.Fatalf("expected full transcript to exist, got exists=%v err=%v", exists, err)
	}
}

func TestSave_CreatesMissingDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "transcripts")
	store := NewFileStore(dir, false)
	if _, err := store.Save(context.Background(), &transcript.Transcript{StreamID: "vid", Text: "x"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := os.Stat(store.Path("vid")); err != nil {
		t.Fatalf("expected transcript file: %v", err)
	}
}
