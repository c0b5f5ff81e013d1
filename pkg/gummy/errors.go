package gummy

import (
	"errors"
	"fmt"
)

// codeTooLongSpeech is the server error code returned when the streamed audio
// exceeds the per-session duration limit.
const codeTooLongSpeech = "TOO_LONG_SPEECH"

// ErrSpeechTooLong matches both the client-side duration precondition failure
// and a server-reported TOO_LONG_SPEECH task failure, so callers can handle
// excessive audio length with a single errors.Is check.
var ErrSpeechTooLong = errors.New("audio exceeds the maximum session duration")

// ErrClosedPrematurely reports that the connection closed before the server
// delivered a terminal task-finished or task-failed event.
var ErrClosedPrematurely = errors.New("connection closed before a terminal event")

// ConfigError reports invalid session parameters. It is returned before any
// network I/O takes place.
type ConfigError struct {
	// Field names the offending parameter.
	Field string

	// Reason is a human-readable explanation.
	Reason string

	// cause optionally links the error to a sentinel (e.g., ErrSpeechTooLong
	// for duration precondition failures).
	cause error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("gummy: invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.cause }

// TaskError is a server-reported task-failed event. Code is preserved
// verbatim so callers can special-case known failure codes.
type TaskError struct {
	Code    string
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("gummy: task failed: %s: %s", e.Code, e.Message)
}

// Is lets errors.Is(err, ErrSpeechTooLong) succeed for the TOO_LONG_SPEECH
// server code.
func (e *TaskError) Is(target error) bool {
	return target == ErrSpeechTooLong && e.Code == codeTooLongSpeech
}
