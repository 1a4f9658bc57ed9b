package summarizer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
)

const (
	DefaultOpenAIModel = openai.ChatModelGPT5Mini

	videoSummaryPrompt = `Summarize the transcript of a video.

Rules:
- Write at least %d tokens and never more than %d tokens.
- Cover the main points in the order they appear.
- Plain prose, no lists, no headings.
- Neutral tone, same language as the transcript.`
)

// OpenAISummarizer calls OpenAI's Responses API to produce summaries.
type OpenAISummarizer struct {
	client openai.Client
	model  string
}

// NewOpenAISummarizer builds a new summarizer instance.
func NewOpenAISummarizer(apiKey string, model string, opts ...option.RequestOption) (*OpenAISummarizer, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultOpenAIModel
	}

	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)

	return &OpenAISummarizer{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

func (s *OpenAISummarizer) Summarize(
	ctx context.Context,
	input Input,
) (string, error) {
	text := truncateWords(input.Text, input.Params.MaxInputTokens)
	if text == "" {
		return "", ErrEmptyInput
	}

	userPromptBuilder := strings.Builder{}
	if sourceURL := strings.TrimSpace(input.SourceURL); sourceURL != "" {
		userPromptBuilder.WriteString("Source:\n")
		userPromptBuilder.WriteString(sourceURL)
		userPromptBuilder.WriteString("\n")
	}
	userPromptBuilder.WriteString("Transcript:\n")
	userPromptBuilder.WriteString(text)

	resp, err := s.client.Responses.New(ctx, responses.ResponseNewParams{
		Model:           s.model,
		MaxOutputTokens: openai.Int(int64(input.Params.MaxLength)),
		Reasoning: responses.ReasoningParam{
			Effort: openai.ReasoningEffortLow,
		},
		Instructions: openai.String(fmt.Sprintf(videoSummaryPrompt, input.Params.MinLength, input.Params.MaxLength)),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(userPromptBuilder.String()),
		},
	})
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}

	if resp.Status == "incomplete" {
		return "", fmt.Errorf(
			"response is incomplete (reason = %s, maxOutputTokens = %d)",
			resp.IncompleteDetails.Reason,
			input.Params.MaxLength,
		)
	}

	summary := resp.OutputText()
	if strings.TrimSpace(summary) == "" {
		return "", fmt.Errorf("output text is missing (status = %s)", resp.Status)
	}

	return summary, nil
}
