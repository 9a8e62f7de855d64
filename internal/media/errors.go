package media

import "errors"

// Failure kinds surfaced by packet sources. Callers match them with
// errors.Is; the wrapped message carries the source identifier and cause.
var (
	// ErrInvalidArgument reports an empty or malformed source identifier.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrSourceUnavailable reports that a file or live source could not be opened.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrNoStreamInfo reports that container metadata could not be resolved.
	ErrNoStreamInfo = errors.New("no stream information")
	// ErrNoUsableStream reports that neither a video nor an audio stream was found.
	ErrNoUsableStream = errors.New("no usable stream")
	// ErrInvalidState reports an operation that is not legal in the current
	// lifecycle state, such as preparing a running puller.
	ErrInvalidState = errors.New("invalid state")
	// ErrClosed reports use of a source after Close.
	ErrClosed = errors.New("source closed")
)
