package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiSummarizer produces summaries with the Gemini API.
type GeminiSummarizer struct {
	client *genai.Client
	model  string
}

func NewGeminiSummarizer(ctx context.Context, apiKey string, model string) (*GeminiSummarizer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &GeminiSummarizer{client: client, model: model}, nil
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, input Input) (string, error) {
	text := truncateWords(input.Text, input.Params.MaxInputTokens)
	if text == "" {
		return "", ErrEmptyInput
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(
			fmt.Sprintf(videoSummaryPrompt, input.Params.MinLength, input.Params.MaxLength),
			genai.RoleUser,
		),
		MaxOutputTokens: int32(input.Params.MaxLength),
		CandidateCount:  1,
	}

	result, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(text), config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini")
	}

	candidate := result.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		return "", fmt.Errorf("response is incomplete (reason = %s, maxOutputTokens = %d)",
			candidate.FinishReason, input.Params.MaxLength)
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil && part.Text != "" {
			b.WriteString(part.Text)
		}
	}

	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("output text is missing (finishReason = %s)", candidate.FinishReason)
	}

	return b.String(), nil
}
