package summarizer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	BackendBART   = "bart"
	BackendOpenAI = "openai"
	BackendGemini = "gemini"
)

type BackendConfig struct {
	Backend      string
	BART         BARTConfig
	OpenAIAPIKey string
	OpenAIModel  string
	GeminiAPIKey string
	GeminiModel  string
}

// NewBackend builds the summarizer selected by cfg.Backend. The result may
// hold native resources; release them with Close when it implements io.Closer.
func NewBackend(ctx context.Context, cfg BackendConfig, log *slog.Logger) (Summarizer, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))

	switch backend {
	case BackendBART, "":
		s, err := NewBARTSummarizer(cfg.BART, log)
		if err != nil {
			return nil, fmt.Errorf("create BART summarizer: %w", err)
		}
		return s, nil

	case BackendOpenAI:
		s, err := NewOpenAISummarizer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, fmt.Errorf("create OpenAI summarizer: %w", err)
		}
		return s, nil

	case BackendGemini:
		s, err := NewGeminiSummarizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, fmt.Errorf("create Gemini summarizer: %w", err)
		}
		return s, nil

	default:
		return nil, fmt.Errorf("unknown summarizer backend: %q", cfg.Backend)
	}
}

// Close releases s if it holds resources.
func Close(s Summarizer) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
