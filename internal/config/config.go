package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"tubesum/internal/summarizer"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Backend string

const (
	BackendBART   Backend = summarizer.BackendBART
	BackendOpenAI Backend = summarizer.BackendOpenAI
	BackendGemini Backend = summarizer.BackendGemini
)

type Config struct {
	Token        string     `env:"TOKEN"`
	AllowedUsers []int64    `env:"ALLOWED_USERS"`
	DBPath       string     `env:"DB_PATH"       envDefault:"db.sqlite"`
	LogLevel     slog.Level `env:"LOG_LEVEL"     envDefault:"info"`

	Summarizer     Backend `env:"SUMMARIZER"      envDefault:"bart"`
	BARTModelDir   string  `env:"BART_MODEL_DIR"  envDefault:"models/bart-large-cnn"`
	ONNXRuntimeLib string  `env:"ONNXRUNTIME_LIB"`
	OpenAIAPIKey   string  `env:"OPENAI_API_KEY"`
	OpenAIModel    string  `env:"OPENAI_MODEL"    envDefault:"gpt-5-mini"`
	GeminiAPIKey   string  `env:"GEMINI_API_KEY"`
	GeminiModel    string  `env:"GEMINI_MODEL"    envDefault:"gemini-2.5-flash"`

	TranscriptLanguages []string      `env:"TRANSCRIPT_LANGUAGES" envDefault:"en"`
	HTTPTimeout         time.Duration `env:"HTTP_TIMEOUT"         envDefault:"20s"`
	HistoryRetention    time.Duration `env:"HISTORY_RETENTION"    envDefault:"720h"`
}

// Load reads an optional .env file from the working directory, then parses
// the environment. Variables already set take precedence over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	cfg.Summarizer = Backend(strings.ToLower(strings.TrimSpace(string(cfg.Summarizer))))

	return cfg, nil
}

// Validate checks the settings the selected summarizer backend depends on.
func (c Config) Validate() error {
	var errs []error

	switch c.Summarizer {
	case BackendBART:
		if strings.TrimSpace(c.BARTModelDir) == "" {
			errs = append(errs, errors.New("BART_MODEL_DIR is required for the bart summarizer"))
		}
	case BackendOpenAI:
		if strings.TrimSpace(c.OpenAIAPIKey) == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for the openai summarizer"))
		}
	case BackendGemini:
		if strings.TrimSpace(c.GeminiAPIKey) == "" {
			errs = append(errs, errors.New("GEMINI_API_KEY is required for the gemini summarizer"))
		}
	default:
		errs = append(errs, fmt.Errorf("SUMMARIZER must be one of bart, openai, gemini: got %q", c.Summarizer))
	}

	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}

	if c.HistoryRetention <= 0 {
		errs = append(errs, errors.New("HISTORY_RETENTION must be positive"))
	}

	return errors.Join(errs...)
}

// ValidateBot additionally requires the Telegram token.
func (c Config) ValidateBot() error {
	err := c.Validate()

	if strings.TrimSpace(c.Token) == "" {
		err = errors.Join(err, errors.New("TOKEN is required"))
	}

	return err
}
