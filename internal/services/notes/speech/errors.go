package speech

import (
	"errors"
	"fmt"
)

// Reason classifies why synthesis failed.
type Reason string

const (
	ReasonEmptyText       Reason = "empty_text"
	ReasonTempFile        Reason = "temp_file"
	ReasonEngine          Reason = "engine"
	ReasonMissingArtifact Reason = "missing_artifact"
	ReasonShortArtifact   Reason = "short_artifact"
)

// SynthesisError reports a failed synthesis. Callers treat every
// SynthesisError as recoverable.
type SynthesisError struct {
	Reason Reason
	Err    error
}

func (e *SynthesisError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("speech synthesis failed: %s", e.Reason)
	}
	return fmt.Sprintf("speech synthesis failed: %s: %v", e.Reason, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

// IsSynthesisError reports whether err carries a SynthesisError.
func IsSynthesisError(err error) bool {
	var synthErr *SynthesisError
	return errors.As(err, &synthErr)
}

// ReasonOf returns the failure reason of err, or "" when err is not a SynthesisError.
func ReasonOf(err error) Reason {
	var synthErr *SynthesisError
	if errors.As(err, &synthErr) {
		return synthErr.Reason
	}
	return ""
}

func synthesisError(reason Reason, err error) error {
	return &SynthesisError{Reason: reason, Err: err}
}
