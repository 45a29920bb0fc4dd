package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	m := New()
	m.RecordStream(OutcomeCompleted, 12)
	m.RecordStream(OutcomeCompleted, 30)
	m.RecordStream(OutcomeSkipped, 0)
	m.RecordChunks(4)
	m.RecordShortCircuit()
	m.RecordTranscription("openai", OutcomeSuccess, 1.5)
	m.RecordTranscription("openai", "quota", 0.2)
	m.RecordTranscript(120)

	if got := testutil.ToFloat64(m.StreamsTotal.WithLabelValues(OutcomeCompleted)); got != 2 {
		t.Fatalf("expected 2 completed streams, got %v", got)
	}
	if got := testutil.ToFloat64(m.StreamsTotal.WithLabelValues(OutcomeSkipped)); got != 1 {
		t.Fatalf("expected 1 skipped stream, got %v", got)
	}
	if got := testutil.ToFloat64(m.ChunksCreated); got != 4 {
		t.Fatalf("expected 4 chunks, got %v", got)
	}
	if got := testutil.ToFloat64(m.ChunkTranscriptions.WithLabelValues("openai", "quota")); got != 1 {
		t.Fatalf("expected 1 quota failure, got %v", got)
	}
	if got := testutil.CollectAndCount(m.ProviderLatency); got != 1 {
		t.Fatalf("expected one latency series, got %d", got)
	}
	if got := testutil.ToFloat64(m.TranscriptChars); got != 120 {
		t.Fatalf("expected 120 characters, got %v", got)
	}
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordChunks(3)
	if got := testutil.ToFloat64(b.ChunksCreated); got != 0 {
		t.Fatalf("expected independent registries, got %v", got)
	}
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.RecordChunks(2)

	if err := m.WriteTextfile(""); err != nil {
		t.Fatalf("expected no-op for empty path, got %v", err)
	}

	path := filepath.Join(t.TempDir(), "chunkscribe.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read textfile: %v", err)
	}
	if !strings.Contains(string(b), "chunkscribe_chunks_created_total 2") {
		t.Fatalf("unexpected textfile contents:\n%s", b)
	}
}
