package ai

import (
	"errors"
	"fmt"
)

// Stage codes carried by adapter errors so callers can tell which part of
// the pipeline broke without string-matching messages.
const (
	CodeTranscriptionFailed = "TRANSCRIPTION_FAILED"
	CodeSummarizationFailed = "SUMMARIZATION_FAILED"
)

// Error is a stage-typed adapter failure wrapping the underlying cause.
type Error struct {
	Code  string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Code
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func transcriptionError(cause error) *Error {
	return &Error{Code: CodeTranscriptionFailed, Cause: cause}
}

func summarizationError(cause error) *Error {
	return &Error{Code: CodeSummarizationFailed, Cause: cause}
}

// IsCode reports whether err is an adapter error with the given code.
func IsCode(err error, code string) bool {
	var aiErr *Error
	return errors.As(err, &aiErr) && aiErr.Code == code
}
