package faceid

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedImageFormat: the input is not a base64 JPEG/PNG data URL.
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
	// ErrNoFaceDetected: the extractor found zero faces. Retryable by recapturing.
	ErrNoFaceDetected = errors.New("no face detected")
	// ErrFaceAlreadyEnrolled: enrollment probe is within the duplicate threshold
	// of an existing identity.
	ErrFaceAlreadyEnrolled = errors.New("face already enrolled")
	// ErrNoMatchFound: login probe is not within the recognition threshold of
	// any identity. Deliberately carries no detail.
	ErrNoMatchFound = errors.New("recognition failed")
	// ErrExtractorUnavailable: the model failed to load, failed to run, or
	// timed out. Transient, safe to retry.
	ErrExtractorUnavailable = errors.New("face extractor unavailable")
	// ErrInvalidCredentials: password login failed.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrIdentityNotFound is returned by admin operations on unknown ids.
	ErrIdentityNotFound = errors.New("identity not found")
)

// ProfileError reports the first profile field that failed validation.
// Conflict is set when the value is well-formed but already taken.
type ProfileError struct {
	Field    string
	Reason   string
	Conflict bool
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("invalid profile: %s %s", e.Field, e.Reason)
}

// Outcome maps an orchestrator error to a short label for metrics and audit
// events.
func Outcome(err error) string {
	var pe *ProfileError
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnsupportedImageFormat):
		return "unsupported_image"
	case errors.Is(err, ErrNoFaceDetected):
		return "no_face"
	case errors.Is(err, ErrFaceAlreadyEnrolled):
		return "duplicate"
	case errors.Is(err, ErrNoMatchFound):
		return "no_match"
	case errors.Is(err, ErrExtractorUnavailable):
		return "extractor_unavailable"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.As(err, &pe):
		if pe.Conflict {
			return "profile_conflict"
		}
		return "invalid_profile"
	default:
		return "error"
	}
}
