// Package pipeline turns a video link into a summary of its transcript.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"tubesum/internal/link"
	"tubesum/internal/summarizer"
	"tubesum/internal/transcript"
)

type Summary struct {
	VideoID string
	Text    string
}

type Pipeline struct {
	source     transcript.Source
	summarizer summarizer.Summarizer
	log        *slog.Logger
}

func New(source transcript.Source, s summarizer.Summarizer, log *slog.Logger) *Pipeline {
	return &Pipeline{
		source:     source,
		summarizer: s,
		log:        log,
	}
}

// Produce validates the link, fetches the transcript and summarises it.
// Every failure, including a panic in a collaborator, is returned as *Error.
func (p *Pipeline) Produce(ctx context.Context, rawLink string) (summary Summary, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.log.ErrorContext(ctx, "Recovered from panic in pipeline",
				"panic", r,
				"link", rawLink)

			summary = Summary{}
			err = &Error{Kind: KindUnexpectedFailure, Err: fmt.Errorf("%v", r)}
		}
	}()

	if !link.IsValid(rawLink) {
		return Summary{}, &Error{Kind: KindInvalidLinkFormat, Err: errInvalidLinkFormat}
	}

	videoID, ok := link.ExtractID(rawLink)
	if !ok {
		return Summary{}, &Error{Kind: KindIdentifierExtractionFailed, Err: errNoIdentifier}
	}

	start := time.Now()

	segments, err := p.source.Fetch(ctx, videoID)
	if err != nil {
		p.log.WarnContext(ctx, "Failed to fetch transcript",
			"error", err,
			"videoID", videoID)

		return Summary{}, &Error{Kind: KindTranscriptRetrievalFailed, Err: err}
	}

	texts := make([]string, len(segments))
	for i, s := range segments {
		texts[i] = s.Text
	}
	text := strings.Join(texts, " ")

	p.log.DebugContext(ctx, "Transcript is fetched",
		"videoID", videoID,
		"segments", len(segments),
		"chars", len(text),
		"elapsed", time.Since(start))

	out, err := p.summarizer.Summarize(ctx, summarizer.Input{
		Text:      text,
		SourceURL: rawLink,
		Params:    summarizer.DefaultParams(),
	})
	if err != nil {
		p.log.WarnContext(ctx, "Failed to generate summary",
			"error", err,
			"videoID", videoID)

		return Summary{}, &Error{Kind: KindSummaryGenerationFailed, Err: err}
	}

	p.log.InfoContext(ctx, "Summary is produced",
		"videoID", videoID,
		"elapsed", time.Since(start))

	return Summary{VideoID: videoID, Text: out}, nil
}

// ProduceSummary returns either the summary text or a display-ready error
// message.
func (p *Pipeline) ProduceSummary(ctx context.Context, rawLink string) string {
	summary, err := p.Produce(ctx, rawLink)
	if err != nil {
		return Message(err)
	}

	return summary.Text
}
