package engine

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures so callers can switch on kind.
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindInvalidIdentifier
	KindUpstreamUnavailable
	KindMarkupUnrecognized
	KindNoCaptions
	KindTranscriptUnparsable
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidIdentifier:
		return "invalid_identifier"
	case KindUpstreamUnavailable:
		return "upstream_unavailable"
	case KindMarkupUnrecognized:
		return "markup_unrecognized"
	case KindNoCaptions:
		return "no_captions"
	case KindTranscriptUnparsable:
		return "transcript_unparsable"
	}
	return "internal"
}

// safeMessages are the caller-facing texts; causes stay in logs.
var safeMessages = map[ErrorKind]string{
	KindInternal:             "Failed to process transcripts",
	KindInvalidIdentifier:    "No valid video IDs provided",
	KindUpstreamUnavailable:  "Failed to fetch video. This might be a YouTube rate limit.",
	KindMarkupUnrecognized:   "Could not find player response data",
	KindNoCaptions:           "No captions available for this video",
	KindTranscriptUnparsable: "Failed to parse transcript data",
}

// TranscriptError is a classified pipeline failure.
type TranscriptError struct {
	Kind    ErrorKind
	Message string // safe to show to callers
	Err     error  // underlying cause, may be nil
}

func (e *TranscriptError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *TranscriptError) Unwrap() error { return e.Err }

// Is matches any TranscriptError of the same kind, so the sentinels below work with errors.Is.
func (e *TranscriptError) Is(target error) bool {
	t, ok := target.(*TranscriptError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrInvalidIdentifier    = &TranscriptError{Kind: KindInvalidIdentifier, Message: safeMessages[KindInvalidIdentifier]}
	ErrUpstreamUnavailable  = &TranscriptError{Kind: KindUpstreamUnavailable, Message: safeMessages[KindUpstreamUnavailable]}
	ErrMarkupUnrecognized   = &TranscriptError{Kind: KindMarkupUnrecognized, Message: safeMessages[KindMarkupUnrecognized]}
	ErrNoCaptions           = &TranscriptError{Kind: KindNoCaptions, Message: safeMessages[KindNoCaptions]}
	ErrTranscriptUnparsable = &TranscriptError{Kind: KindTranscriptUnparsable, Message: safeMessages[KindTranscriptUnparsable]}
)

// NewError wraps cause with the kind's safe message.
func NewError(kind ErrorKind, cause error) *TranscriptError {
	return &TranscriptError{Kind: kind, Message: safeMessages[kind], Err: cause}
}

// KindOf classifies err. Unclassified errors are KindInternal.
func KindOf(err error) ErrorKind {
	var te *TranscriptError
	if errors.As(err, &te) {
		return te.Kind
	}
	return KindInternal
}

// SafeMessage returns the caller-facing message for err.
func SafeMessage(err error) string {
	var te *TranscriptError
	if errors.As(err, &te) && te.Message != "" {
		return te.Message
	}
	return safeMessages[KindInternal]
}
