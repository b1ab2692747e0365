package segchat

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or message failed validation.
	ErrValidation = errors.New("validation error")

	// ErrUserInput indicates a missing or malformed caller-supplied value.
	// Surfaced immediately; no session state is touched.
	ErrUserInput = errors.New("invalid user input")

	// ErrSessionNotFound indicates an operation against an unknown session id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrCacheMiss indicates a confirmation step with no prior detection
	// cached for the session.
	ErrCacheMiss = errors.New("no cached detection: run detect first")

	// ErrImageDecode indicates the supplied image bytes could not be decoded.
	ErrImageDecode = errors.New("image decode error")

	// ErrArtifactNotFound indicates a load of an unknown artifact reference.
	ErrArtifactNotFound = errors.New("artifact not found")

	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")
)

// UpstreamError wraps a failure from an external model service: the
// detector, the segmenter, or the reasoning engine. Callers retry by
// re-sending the turn; nothing is retried automatically.
type UpstreamError struct {
	Service string
	Err     error
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error { return e.Err }
