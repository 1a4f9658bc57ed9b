package config_test

import (
	"log/slog"
	"os"
	"slices"
	"testing"
	"time"

	"tubesum/internal/config"
	"tubesum/internal/summarizer"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"TOKEN", "ALLOWED_USERS", "DB_PATH", "LOG_LEVEL", "SUMMARIZER",
		"BART_MODEL_DIR", "TRANSCRIPT_LANGUAGES", "HTTP_TIMEOUT", "HISTORY_RETENTION",
	} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.DBPath != "db.sqlite" {
		t.Errorf("DBPath = %q, want db.sqlite", cfg.DBPath)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel = %v, want info", cfg.LogLevel)
	}
	if cfg.Summarizer != config.BackendBART {
		t.Errorf("Summarizer = %q, want bart", cfg.Summarizer)
	}
	if cfg.BARTModelDir != "models/bart-large-cnn" {
		t.Errorf("BARTModelDir = %q", cfg.BARTModelDir)
	}
	if !slices.Equal(cfg.TranscriptLanguages, []string{"en"}) {
		t.Errorf("TranscriptLanguages = %v, want [en]", cfg.TranscriptLanguages)
	}
	if cfg.HTTPTimeout != 20*time.Second {
		t.Errorf("HTTPTimeout = %v, want 20s", cfg.HTTPTimeout)
	}
	if cfg.HistoryRetention != 720*time.Hour {
		t.Errorf("HistoryRetention = %v, want 720h", cfg.HistoryRetention)
	}

	if err = cfg.Validate(); err != nil {
		t.Errorf("Validate returned error for defaults: %v", err)
	}

	if err = cfg.ValidateBot(); err == nil {
		t.Errorf("ValidateBot must require TOKEN")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TOKEN", "123:abc")
	t.Setenv("ALLOWED_USERS", "1,2")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SUMMARIZER", " OpenAI ")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("TRANSCRIPT_LANGUAGES", "de,en")
	t.Setenv("HTTP_TIMEOUT", "5s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if !slices.Equal(cfg.AllowedUsers, []int64{1, 2}) {
		t.Errorf("AllowedUsers = %v, want [1 2]", cfg.AllowedUsers)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v, want debug", cfg.LogLevel)
	}
	if cfg.Summarizer != config.BackendOpenAI {
		t.Errorf("Summarizer = %q, want openai", cfg.Summarizer)
	}
	if !slices.Equal(cfg.TranscriptLanguages, []string{"de", "en"}) {
		t.Errorf("TranscriptLanguages = %v, want [de en]", cfg.TranscriptLanguages)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Errorf("HTTPTimeout = %v, want 5s", cfg.HTTPTimeout)
	}

	if err = cfg.ValidateBot(); err != nil {
		t.Errorf("ValidateBot returned error: %v", err)
	}
}

func TestLoadRejectsMalformedValues(t *testing.T) {
	t.Setenv("ALLOWED_USERS", "1,abc")

	if _, err := config.Load(); err == nil {
		t.Fatalf("expected error for non-numeric ALLOWED_USERS")
	}
}

func TestValidate(t *testing.T) {
	base := config.Config{
		Summarizer:       config.BackendBART,
		BARTModelDir:     "models",
		HTTPTimeout:      time.Second,
		HistoryRetention: time.Hour,
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"valid bart", func(*config.Config) {}, false},
		{"bart without model dir", func(c *config.Config) { c.BARTModelDir = " " }, true},
		{"openai without key", func(c *config.Config) { c.Summarizer = config.BackendOpenAI }, true},
		{"openai with key", func(c *config.Config) {
			c.Summarizer = config.BackendOpenAI
			c.OpenAIAPIKey = "key"
		}, false},
		{"gemini without key", func(c *config.Config) { c.Summarizer = config.BackendGemini }, true},
		{"unknown backend", func(c *config.Config) { c.Summarizer = "t5" }, true},
		{"zero timeout", func(c *config.Config) { c.HTTPTimeout = 0 }, true},
		{"zero retention", func(c *config.Config) { c.HistoryRetention = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)

			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestBackendsMatchSummarizer(t *testing.T) {
	tests := []struct {
		got  config.Backend
		want string
	}{
		{config.BackendBART, summarizer.BackendBART},
		{config.BackendOpenAI, summarizer.BackendOpenAI},
		{config.BackendGemini, summarizer.BackendGemini},
	}

	for _, tt := range tests {
		if string(tt.got) != tt.want {
			t.Errorf("config backend %q does not match summarizer backend %q", tt.got, tt.want)
		}
	}

	t.Setenv("SUMMARIZER", "")
	if err := os.Unsetenv("SUMMARIZER"); err != nil {
		t.Fatalf("unset SUMMARIZER: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if string(cfg.Summarizer) != summarizer.BackendBART {
		t.Fatalf("default summarizer = %q, want %q", cfg.Summarizer, summarizer.BackendBART)
	}
}
