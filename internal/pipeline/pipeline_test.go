package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"tubesum/internal/domain"
	"tubesum/internal/pipeline"
	"tubesum/internal/summarizer"
)

type stubSource struct {
	segments []domain.Segment
	err      error
	calls    []string
}

func (s *stubSource) Fetch(_ context.Context, videoID string) ([]domain.Segment, error) {
	s.calls = append(s.calls, videoID)
	return s.segments, s.err
}

type echoSummarizer struct {
	inputs []summarizer.Input
	err    error
	panic  any
}

func (s *echoSummarizer) Summarize(_ context.Context, input summarizer.Input) (string, error) {
	s.inputs = append(s.inputs, input)
	if s.panic != nil {
		panic(s.panic)
	}
	if s.err != nil {
		return "", s.err
	}
	return input.Text, nil
}

func segments(texts ...string) []domain.Segment {
	out := make([]domain.Segment, len(texts))
	for i, text := range texts {
		out[i] = domain.Segment{Text: text, Start: float64(i), Duration: 1}
	}
	return out
}

func newPipeline(source *stubSource, s *echoSummarizer) *pipeline.Pipeline {
	return pipeline.New(source, s, slog.New(slog.DiscardHandler))
}

func TestProduceJoinsSegmentsWithSingleSpace(t *testing.T) {
	source := &stubSource{segments: segments("Hello", "world")}
	gen := &echoSummarizer{}

	summary, err := newPipeline(source, gen).Produce(context.Background(), "https://youtu.be/abc123")
	if err != nil {
		t.Fatalf("Produce returned error: %v", err)
	}

	if len(gen.inputs) != 1 || gen.inputs[0].Text != "Hello world" {
		t.Fatalf("expected summarizer input %q, got %+v", "Hello world", gen.inputs)
	}

	if summary.VideoID != "abc123" || summary.Text != "Hello world" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestProduceRejectsInvalidLink(t *testing.T) {
	source := &stubSource{}
	gen := &echoSummarizer{}
	p := newPipeline(source, gen)

	_, err := p.Produce(context.Background(), "not a link")
	if !errors.Is(err, &pipeline.Error{Kind: pipeline.KindInvalidLinkFormat}) {
		t.Fatalf("expected invalid link format error, got %v", err)
	}

	if msg := pipeline.Message(err); !strings.Contains(msg, "Invalid") {
		t.Fatalf("expected message to mention Invalid, got %q", msg)
	}

	if got := p.ProduceSummary(context.Background(), "not a link"); !strings.HasPrefix(got, "Error: Invalid link format.") {
		t.Fatalf("unexpected ProduceSummary result: %q", got)
	}

	if len(source.calls) != 0 || len(gen.inputs) != 0 {
		t.Fatalf("collaborators must not be called for an invalid link")
	}
}

func TestProduceReportsTranscriptFailure(t *testing.T) {
	cause := errors.New("simulated network error")
	source := &stubSource{err: cause}
	gen := &echoSummarizer{}
	p := newPipeline(source, gen)

	_, err := p.Produce(context.Background(), "https://youtu.be/abc123")
	if !errors.Is(err, &pipeline.Error{Kind: pipeline.KindTranscriptRetrievalFailed}) {
		t.Fatalf("expected transcript retrieval error, got %v", err)
	}

	if !errors.Is(err, cause) {
		t.Fatalf("expected cause to be wrapped, got %v", err)
	}

	want := "Error retrieving transcript: simulated network error"
	if got := p.ProduceSummary(context.Background(), "https://youtu.be/abc123"); got != want {
		t.Fatalf("ProduceSummary = %q, want %q", got, want)
	}

	if len(source.calls) == 0 || source.calls[0] != "abc123" {
		t.Fatalf("expected transcript to be requested for abc123, got %v", source.calls)
	}

	if len(gen.inputs) != 0 {
		t.Fatalf("summarizer must not be called when the transcript fails")
	}
}

func TestProducePassesFixedParamsAndEchoesOutput(t *testing.T) {
	source := &stubSource{segments: segments("A", "B", "C")}
	gen := &echoSummarizer{}
	link := "https://www.youtube.com/watch?v=XYZ789"

	got := newPipeline(source, gen).ProduceSummary(context.Background(), link)
	if got != "A B C" {
		t.Fatalf("ProduceSummary = %q, want %q", got, "A B C")
	}

	if len(gen.inputs) != 1 {
		t.Fatalf("expected exactly one summarizer call, got %d", len(gen.inputs))
	}

	input := gen.inputs[0]
	want := summarizer.Params{
		MaxInputTokens: 1024,
		MaxLength:      1200,
		MinLength:      120,
		LengthPenalty:  2.0,
		NumBeams:       4,
		EarlyStopping:  true,
	}

	if input.Params != want {
		t.Fatalf("summarizer params = %+v, want %+v", input.Params, want)
	}

	if input.Text != "A B C" || input.SourceURL != link {
		t.Fatalf("unexpected summarizer input: %+v", input)
	}

	if source.calls[0] != "XYZ789" {
		t.Fatalf("expected video id XYZ789, got %v", source.calls)
	}
}

func TestProduceReportsGenerationFailure(t *testing.T) {
	source := &stubSource{segments: segments("A")}
	gen := &echoSummarizer{err: errors.New("model exploded")}

	_, err := newPipeline(source, gen).Produce(context.Background(), "youtube.com/embed/abc")
	if !errors.Is(err, &pipeline.Error{Kind: pipeline.KindSummaryGenerationFailed}) {
		t.Fatalf("expected summary generation error, got %v", err)
	}

	if got := pipeline.Message(err); got != "Error generating summary: model exploded" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestProduceRecoversFromPanic(t *testing.T) {
	source := &stubSource{segments: segments("A")}
	gen := &echoSummarizer{panic: "boom"}

	summary, err := newPipeline(source, gen).Produce(context.Background(), "youtu.be/abc")
	if !errors.Is(err, &pipeline.Error{Kind: pipeline.KindUnexpectedFailure}) {
		t.Fatalf("expected unexpected failure, got %v", err)
	}

	if summary != (pipeline.Summary{}) {
		t.Fatalf("expected empty summary, got %+v", summary)
	}

	if got := pipeline.Message(err); got != "An unexpected error occurred: boom" {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestKindsAreDistinct(t *testing.T) {
	err := &pipeline.Error{Kind: pipeline.KindTranscriptRetrievalFailed}

	if errors.Is(err, &pipeline.Error{Kind: pipeline.KindSummaryGenerationFailed}) {
		t.Fatalf("errors of different kinds must not match")
	}
}
