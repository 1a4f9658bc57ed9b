package summarizer

import (
	"context"
	"errors"
	"strings"
)

var ErrEmptyInput = errors.New("input is empty")

// Params is the generation policy. It is fixed for the whole service; see DefaultParams.
type Params struct {
	// MaxInputTokens caps the encoded input; longer inputs are truncated.
	MaxInputTokens int
	MaxLength      int
	MinLength      int
	LengthPenalty  float64
	NumBeams       int
	EarlyStopping  bool
}

// DefaultParams returns the generation policy every summary is produced with.
func DefaultParams() Params {
	return Params{
		MaxInputTokens: 1024,
		MaxLength:      1200,
		MinLength:      120,
		LengthPenalty:  2.0,
		NumBeams:       4,
		EarlyStopping:  true,
	}
}

// Input describes the payload for a summary request.
type Input struct {
	// Text contains the transcript text to summarise.
	Text string
	// SourceURL is optional metadata that helps the model reference the origin.
	SourceURL string
	Params    Params
}

// Summarizer produces a single summary for a given input text.
type Summarizer interface {
	Summarize(ctx context.Context, input Input) (string, error)
}

// truncateWords keeps at most limit whitespace-separated words of text.
// Remote backends use it as their encode step since their tokenizers are not
// available locally.
func truncateWords(text string, limit int) string {
	if limit <= 0 {
		return text
	}

	words := strings.Fields(text)
	if len(words) <= limit {
		return strings.Join(words, " ")
	}

	return strings.Join(words[:limit], " ")
}
