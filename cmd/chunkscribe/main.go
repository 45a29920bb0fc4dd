package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	audioimpl "github.com/foxseedlab/chunkscribe/external/audio"
	configloader "github.com/foxseedlab/chunkscribe/external/config"
	"github.com/foxseedlab/chunkscribe/external/discord"
	"github.com/foxseedlab/chunkscribe/external/events"
	"github.com/foxseedlab/chunkscribe/external/fetcher"
	"github.com/foxseedlab/chunkscribe/external/filestore"
	repositoryimpl "github.com/foxseedlab/chunkscribe/external/repository"
	transcriberimpl "github.com/foxseedlab/chunkscribe/external/transcriber"
	webhookimpl "github.com/foxseedlab/chunkscribe/external/webhook"
	"github.com/foxseedlab/chunkscribe/external/youtube"
	"github.com/foxseedlab/chunkscribe/internal/collector"
	"github.com/foxseedlab/chunkscribe/internal/config"
	"github.com/foxseedlab/chunkscribe/internal/logging"
	"github.com/foxseedlab/chunkscribe/internal/metrics"
	"github.com/foxseedlab/chunkscribe/internal/notify"
	"github.com/foxseedlab/chunkscribe/internal/pipeline"
	"github.com/foxseedlab/chunkscribe/internal/repository"
	"github.com/foxseedlab/chunkscribe/internal/segment"
	"github.com/foxseedlab/chunkscribe/internal/transcriber"
	"github.com/rs/zerolog/log"
	"github.com/samber/do/v2"
)

const usage = `usage:
  chunkscribe transcribe [-collected] SOURCE...
  chunkscribe collect -q "name=term1,term2" [-q ...]
  chunkscribe status STREAM_ID
  chunkscribe plan -duration-ms N [-chunk-length-ms N] [-overlap-ms N]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, args := os.Args[1], os.Args[2:]

	// plan is a pure computation and runs without configuration.
	if cmd == "plan" {
		os.Exit(runPlan(args))
	}
	if cmd != "transcribe" && cmd != "collect" && cmd != "status" {
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s\n", cmd, usage)
		os.Exit(2)
	}

	log.Info().Msg("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	log.Info().Str("env", cfg.Env).Str("provider", cfg.TranscriptionProvider).Msg("startup: configuration loaded")

	log.Info().Msg("startup: building dependency graph")
	injector := setupDI(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	var code int
	switch cmd {
	case "transcribe":
		code = runTranscribe(ctx, cfg, injector, args)
	case "collect":
		code = runCollect(ctx, injector, args)
	case "status":
		code = runStatus(ctx, injector, args)
	}
	stop()
	os.Exit(code)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		log.Error().Err(err).Msg("config validation failed")
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	level := "info"
	if cfg.IsDevelopment() {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: cfg.LogFormat})
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	metrics.RegisterDI(injector)
	repositoryimpl.RegisterDI(injector)
	audioimpl.RegisterDI(injector)
	fetcher.RegisterDI(injector)
	filestore.RegisterDI(injector)
	transcriberimpl.RegisterDI(injector)
	webhookimpl.RegisterDI(injector)
	discord.RegisterDI(injector)
	events.RegisterDI(injector)
	notify.RegisterDI(injector)
	pipeline.RegisterDI(injector)
	youtube.RegisterDI(injector)
	collector.RegisterDI(injector)

	return injector
}

func runTranscribe(ctx context.Context, cfg *config.Config, injector do.Injector, args []string) int {
	fs := flag.NewFlagSet("transcribe", flag.ContinueOnError)
	useCollected := fs.Bool("collected", false, "also transcribe every video stored by collect")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	sources := fs.Args()
	if *useCollected {
		videos, err := collector.LoadVideos(cfg.SearchResultsDir)
		if err != nil {
			log.Error().Err(err).Str("dir", cfg.SearchResultsDir).Msg("failed to load collected videos")
			return 1
		}
		for _, v := range videos {
			sources = append(sources, v.URL)
		}
		log.Info().Int("videos", len(videos)).Msg("loaded collected videos")
	}
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	p, err := do.Invoke[*pipeline.Pipeline](injector)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve pipeline")
		return 1
	}
	defer closeResolved(injector)

	log.Info().Int("sources", len(sources)).Msg("transcription run started")
	results := p.RunAll(ctx, sources)
	fmt.Println(renderSummary(results))

	m := do.MustInvoke[*metrics.Metrics](injector)
	if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
		log.Error().Err(err).Str("path", cfg.MetricsTextfile).Msg("failed to write metrics")
	}

	for _, r := range results {
		if r.Err != nil {
			return 1
		}
	}
	return 0
}

// closeResolved releases the services the pipeline opened.
func closeResolved(injector do.Injector) {
	if stt, err := do.Invoke[transcriber.Transcriber](injector); err == nil {
		if c, ok := stt.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Error().Err(err).Msg("transcriber close failed")
			}
		}
	}
	if n, err := do.Invoke[notify.Notifier](injector); err == nil {
		if c, ok := n.(io.Closer); ok {
			if err := c.Close(); err != nil {
				log.Error().Err(err).Msg("notifier close failed")
			}
		}
	}
	if repo, err := do.Invoke[repository.Repository](injector); err == nil {
		if err := repo.Close(); err != nil {
			log.Error().Err(err).Msg("repository close failed")
		}
	}
}

type queryFlags []string

func (q *queryFlags) String() string {
	return strings.Join(*q, " ")
}

func (q *queryFlags) Set(v string) error {
	*q = append(*q, v)
	return nil
}

func runCollect(ctx context.Context, injector do.Injector, args []string) int {
	fs := flag.NewFlagSet("collect", flag.ContinueOnError)
	var queries queryFlags
	fs.Var(&queries, "q", `query group "name=term1,term2"; repeatable`)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if len(queries) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	groups := make([]collector.QueryGroup, 0, len(queries))
	for _, q := range queries {
		g, err := collector.ParseQueryGroup(q)
		if err != nil {
			log.Error().Err(err).Msg("invalid query group")
			return 2
		}
		groups = append(groups, g)
	}

	c, err := do.Invoke[*collector.Collector](injector)
	if err != nil {
		log.Error().Err(err).Msg("failed to resolve collector")
		return 1
	}
	files, err := c.Collect(ctx, groups)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Int("pages", len(files)).Msg("collect interrupted")
		} else {
			log.Error().Err(err).Int("pages", len(files)).Msg("collect failed")
		}
		return 1
	}
	log.Info().Int("groups", len(groups)).Int("pages", len(files)).Msg("collect completed")
	return 0
}

func runPlan(args []string) int {
	fs := flag.NewFlagSet("plan", flag.ContinueOnError)
	duration := fs.Int64("duration-ms", 0, "stream duration in milliseconds")
	length := fs.Int64("chunk-length-ms", segment.DefaultChunkLengthMs, "chunk length in milliseconds")
	overlap := fs.Int64("overlap-ms", segment.DefaultOverlapMs, "overlap between chunks in milliseconds")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	windows, err := segment.Plan(*duration, segment.Params{ChunkLengthMs: *length, OverlapMs: *overlap})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	fmt.Println(renderPlan(*duration, windows))
	return 0
}
