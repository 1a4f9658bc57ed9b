package pipeline

import (
	"errors"
	"fmt"
)

// Kind categorises a failed summary request.
type Kind int

const (
	KindUnexpectedFailure Kind = iota
	KindInvalidLinkFormat
	KindIdentifierExtractionFailed
	KindTranscriptRetrievalFailed
	KindSummaryGenerationFailed
)

var (
	errInvalidLinkFormat = errors.New("invalid link format")
	errNoIdentifier      = errors.New("unable to extract identifier from the link")
)

func (k Kind) String() string {
	switch k {
	case KindInvalidLinkFormat:
		return "invalid_link_format"
	case KindIdentifierExtractionFailed:
		return "identifier_extraction_failed"
	case KindTranscriptRetrievalFailed:
		return "transcript_retrieval_failed"
	case KindSummaryGenerationFailed:
		return "summary_generation_failed"
	default:
		return "unexpected_failure"
	}
}

// Error is the failure half of a pipeline result.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}

	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: k})
// checks the category regardless of the cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}

	return t.Kind == e.Kind
}

// Message renders err the way it is shown to end users.
func Message(err error) string {
	var perr *Error
	if !errors.As(err, &perr) {
		return fmt.Sprintf("An unexpected error occurred: %v", err)
	}

	switch perr.Kind {
	case KindInvalidLinkFormat:
		return "Error: Invalid link format. Please provide a valid YouTube video link."
	case KindIdentifierExtractionFailed:
		return "Error: Unable to extract identifier from the link."
	case KindTranscriptRetrievalFailed:
		return fmt.Sprintf("Error retrieving transcript: %v", perr.Err)
	case KindSummaryGenerationFailed:
		return fmt.Sprintf("Error generating summary: %v", perr.Err)
	default:
		return fmt.Sprintf("An unexpected error occurred: %v", perr.Err)
	}
}
