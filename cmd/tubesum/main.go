package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tubesum/internal/bot"
	"tubesum/internal/config"
	"tubesum/internal/database"
	"tubesum/internal/pipeline"
	"tubesum/internal/scheduler"
	"tubesum/internal/summarizer"
	"tubesum/internal/transcript"
)

func main() {
	level := new(slog.LevelVar)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	start := time.Now()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.ErrorContext(ctx, "Failed to load config",
			"error", err)

		return
	}
	level.Set(cfg.LogLevel)

	if err = cfg.ValidateBot(); err != nil {
		log.ErrorContext(ctx, "Config is invalid",
			"error", err,
			"summarizer", cfg.Summarizer)

		return
	}

	db, err := database.New(ctx, cfg.DBPath, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize db",
			"error", err,
			"dbPath", cfg.DBPath)

		return
	}
	defer func() {
		if err = db.Close(); err != nil {
			log.ErrorContext(ctx, "Failed to close db",
				"error", err,
				"dbPath", cfg.DBPath)
		}
	}()
	log.InfoContext(ctx, "DB is initialized",
		"dbPath", cfg.DBPath)

	s, err := summarizer.NewBackend(ctx, backendConfig(cfg), log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize summarizer",
			"error", err,
			"summarizer", cfg.Summarizer)

		return
	}
	defer func() {
		if err = summarizer.Close(s); err != nil {
			log.ErrorContext(ctx, "Failed to close summarizer",
				"error", err,
				"summarizer", cfg.Summarizer)
		}
	}()
	log.InfoContext(ctx, "Summarizer is initialized",
		"summarizer", cfg.Summarizer)

	source := transcript.NewYouTube(
		&http.Client{Timeout: cfg.HTTPTimeout},
		cfg.TranscriptLanguages,
		log,
	)

	botInst, err := bot.New(cfg.Token, db, pipeline.New(source, s, log), cfg.AllowedUsers, log)
	if err != nil {
		log.ErrorContext(ctx, "Failed to initialize bot",
			"error", err,
			"allowedUsersCount", len(cfg.AllowedUsers))

		return
	}
	log.InfoContext(ctx, "Bot is initialized",
		"allowedUsersCount", len(cfg.AllowedUsers))

	sched := scheduler.New(ctx, db, cfg.HistoryRetention, log)

	if err = sched.Start(); err != nil {
		log.ErrorContext(ctx, "Failed to start scheduler",
			"error", err,
			"spec", scheduler.PruneSpec,
			"timezone", scheduler.Timezone)

		return
	}
	defer sched.Stop()
	log.InfoContext(ctx, "Scheduler is started",
		"spec", scheduler.PruneSpec,
		"timezone", scheduler.Timezone,
		"retention", cfg.HistoryRetention)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		botInst.Start(ctx)
	}()
	log.InfoContext(ctx, "Bot is started",
		"updateTimeoutSeconds", bot.BotUpdateTimeout)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	sig := <-c
	log.InfoContext(ctx, "Shutdown signal is received",
		"signal", sig.String())
	cancel()

	botInst.Stop()
	<-stopped
	log.InfoContext(ctx, "Bot is stopped",
		"signal", sig.String(),
		"uptimeSeconds", time.Since(start).Seconds())
}

func backendConfig(cfg config.Config) summarizer.BackendConfig {
	return summarizer.BackendConfig{
		Backend: string(cfg.Summarizer),
		BART: summarizer.BARTConfig{
			ModelDir:          cfg.BARTModelDir,
			SharedLibraryPath: cfg.ONNXRuntimeLib,
		},
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
	}
}
