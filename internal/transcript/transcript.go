// Package transcript retrieves caption transcripts of YouTube videos.
package transcript

import (
	"context"
	"errors"
	"fmt"

	"tubesum/internal/domain"
)

var (
	ErrVideoUnavailable    = errors.New("video is unavailable")
	ErrVideoUnplayable     = errors.New("video is unplayable")
	ErrAgeRestricted       = errors.New("video is age restricted")
	ErrTranscriptsDisabled = errors.New("subtitles are disabled for this video")
	ErrNoTranscriptFound   = errors.New("no transcript found for the requested languages")
	ErrEmptyTranscript     = errors.New("transcript is empty")
	ErrTooManyRequests     = errors.New("YouTube is receiving too many requests from this IP")
	ErrRequestBlocked      = errors.New("YouTube is blocking requests from this IP")
	ErrAPIKeyNotFound      = errors.New("innertube API key is not found on the watch page")
)

// Source returns the ordered caption segments of a video.
type Source interface {
	Fetch(ctx context.Context, videoID string) ([]domain.Segment, error)
}

// Error is returned by Source implementations in this package.
type Error struct {
	VideoID string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("could not retrieve a transcript for video %s: %v", e.VideoID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
