package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tubesum/internal/config"
	"tubesum/internal/pipeline"
	"tubesum/internal/summarizer"
	"tubesum/internal/transcript"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		timeout = flag.Duration("timeout", 10*time.Minute, "Upper bound for fetching and summarizing one video")
		backend = flag.String("summarizer", "", "Summarizer backend (bart, openai, gemini); overrides SUMMARIZER")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <youtube link>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	level := new(slog.LevelVar)
	log := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	if flag.NArg() != 1 {
		flag.Usage()
		return 2
	}
	rawLink := strings.TrimSpace(flag.Arg(0))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return 1
	}
	level.Set(cfg.LogLevel)

	if *backend != "" {
		cfg.Summarizer = config.Backend(strings.ToLower(strings.TrimSpace(*backend)))
	}

	if err = cfg.Validate(); err != nil {
		log.ErrorContext(ctx, "Config is invalid",
			"error", err,
			"summarizer", cfg.Summarizer)

		return 1
	}

	s, err := summarizer.NewBackend(ctx, summarizer.BackendConfig{
		Backend: string(cfg.Summarizer),
		BART: summarizer.BARTConfig{
			ModelDir:          cfg.BARTModelDir,
			SharedLibraryPath: cfg.ONNXRuntimeLib,
		},
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
	}, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize summarizer",
			"error", err,
			"summarizer", cfg.Summarizer)

		return 1
	}
	defer func() {
		if closeErr := summarizer.Close(s); closeErr != nil {
			log.ErrorContext(ctx, "Failed to close summarizer",
				"error", closeErr)
		}
	}()

	source := transcript.NewYouTube(&http.Client{Timeout: cfg.HTTPTimeout}, cfg.TranscriptLanguages, log)
	p := pipeline.New(source, s, log)

	summary, err := p.Produce(ctx, rawLink)
	if err != nil {
		fmt.Fprintln(os.Stderr, pipeline.Message(err))
		return 1
	}

	fmt.Fprintln(os.Stdout, summary.Text)

	return 0
}
