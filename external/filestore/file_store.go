package filestore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/foxseedlab/chunkscribe/internal/transcript"
)

type FileStore struct {
	dir           string
	writeSegments bool
}

func NewFileStore(dir string, writeSegments bool) *FileStore {
	return &FileStore{dir: dir, writeSegments: writeSegments}
}

func (s *FileStore) Path(streamID string) string {
	return filepath.Join(s.dir, transcript.FileName(streamID))
}

func (s *FileStore) Exists(_ context.Context, streamID string) (bool, error) {
	_, err := os.Stat(s.Path(streamID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Save writes the transcript through a temp file and hard-links it into place, so a reader
// never sees a partial transcript and an existing one is never replaced.
func (s *FileStore) Save(_ context.Context, t *transcript.Transcript) (bool, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return false, fmt.Errorf("create transcripts dir: %w", err)
	}
	target := s.Path(t.StreamID)
	if _, err := os.Stat(target); err == nil {
		return false, nil
	}

	tmp, err := os.CreateTemp(s.dir, "."+t.StreamID+"-*.tmp")
	if err != nil {
		return false, fmt.Errorf("create temp transcript: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()
	if _, err := tmp.WriteString(t.Text); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("write transcript: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close transcript: %w", err)
	}
	if err := os.Link(tmpPath, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("publish transcript: %w", err)
	}

	if s.writeSegments {
		if err := s.saveSegments(t); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (s *FileStore) saveSegments(t *transcript.Transcript) error {
	for _, seg := range t.Segments {
		p := filepath.Join(s.dir, transcript.SegmentFileName(t.StreamID, seg.ChunkIndex))
		if err := os.WriteFile(p, []byte(seg.Text), 0o644); err != nil {
			return fmt.Errorf("write segment transcript %d: %w", seg.ChunkIndex, err)
		}
	}
	return nil
}
