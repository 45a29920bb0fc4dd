package main

import (
	"context"
	"fmt"
	"os"

	"github.com/foxseedlab/chunkscribe/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
)

// runStatus prints the latest ledger run for a stream and its recorded segment windows.
func runStatus(ctx context.Context, injector do.Injector, args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
	streamID := args[0]

	repo, err := do.Invoke[repository.Repository](injector)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve repository")
		return 1
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error().Err(err).Msg("repository close failed")
		}
	}()

	run, err := repo.GetLatestRunByStream(ctx, streamID)
	if err != nil {
		log.Error().Err(err).Str("stream_id", streamID).Msg("failed to load latest run")
		return 1
	}
	if run == nil {
		fmt.Printf("no runs recorded for %s\n", streamID)
		return 1
	}

	var segs []repository.TranscriptSegment
	if run.Status == repository.RunStatusCompleted {
		segs, err = repo.ListSegmentsByRunID(ctx, run.ID)
		if err != nil {
			log.Error().Err(err).Str("run_id", run.ID).Msg("failed to load segments")
			return 1
		}
	}
	fmt.Println(renderStatus(run, segs))
	if run.Status == repository.RunStatusFailed {
		return 1
	}
	return 0
}
