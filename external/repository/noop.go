package repository

import (
	"context"

	"github.com/foxseedlab/chunkscribe/internal/repository"
)

// NoopRepository is used when DATABASE_URL is empty.
type NoopRepository struct{}

func (NoopRepository) CreateRun(_ context.Context, input repository.CreateRunInput) (*repository.Run, error) {
	return &repository.Run{
		ID:        input.ID,
		StreamID:  input.StreamID,
		Source:    input.Source,
		Provider:  input.Provider,
		Model:     input.Model,
		Status:    repository.RunStatusRunning,
		StartedAt: input.StartedAt,
	}, nil
}

func (NoopRepository) CompleteRun(context.Context, repository.CompleteRunInput) error {
	return nil
}

func (NoopRepository) FailRun(context.Context, repository.FailRunInput) error {
	return nil
}

func (NoopRepository) GetLatestRunByStream(context.Context, string) (*repository.Run, error) {
	return nil, nil
}

func (NoopRepository) ListSegmentsByRunID(context.Context, string) ([]repository.TranscriptSegment, error) {
	return nil, nil
}

func (NoopRepository) Close() error {
	return nil
}
