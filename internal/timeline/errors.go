package timeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidOption is returned by New when an option value is out of range.
var ErrInvalidOption = errors.New("invalid option")

// ErrorCode categorizes store errors.
type ErrorCode string

const (
	// ErrCodeReducerPanic indicates the reducer panicked while folding an event.
	ErrCodeReducerPanic ErrorCode = "REDUCER_PANIC"

	// ErrCodeListenerPanic indicates a subscriber panicked during notification.
	ErrCodeListenerPanic ErrorCode = "LISTENER_PANIC"

	// ErrCodeIndexOutOfRange indicates a snapshot cursor outside its log.
	ErrCodeIndexOutOfRange ErrorCode = "INDEX_OUT_OF_RANGE"

	// ErrCodeMissingID indicates a snapshot event without an ID.
	ErrCodeMissingID ErrorCode = "MISSING_ID"

	// ErrCodeDuplicateID indicates two snapshot events share an ID.
	ErrCodeDuplicateID ErrorCode = "DUPLICATE_ID"

	// ErrCodeTypeMismatch indicates an event whose type tag disagrees with its payload.
	ErrCodeTypeMismatch ErrorCode = "TYPE_MISMATCH"

	// ErrCodeInvalidSeed indicates a compaction seed that cannot belong to the log.
	ErrCodeInvalidSeed ErrorCode = "INVALID_SEED"

	// ErrCodeReplayFailed indicates the reducer failed while rebuilding the log.
	ErrCodeReplayFailed ErrorCode = "REPLAY_FAILED"

	// ErrCodeStateMismatch indicates the replayed state differs from the snapshot state.
	ErrCodeStateMismatch ErrorCode = "STATE_MISMATCH"
)

// ReducerError reports a reducer panic.
//
// The store is unchanged when Append returns a ReducerError: the reducer is
// applied before the event is committed.
type ReducerError struct {
	// Position is the log position the event was being folded at.
	Position int

	// EventID and EventType identify the event.
	EventID   string
	EventType string

	// Recovered is the value passed to panic.
	Recovered any
}

// Error implements the error interface.
func (e *ReducerError) Error() string {
	return fmt.Sprintf("%s: reducer panicked at position %d (event=%s, type=%s): %v",
		ErrCodeReducerPanic, e.Position, e.EventID, e.EventType, e.Recovered)
}

// Unwrap returns the recovered value when it is an error.
func (e *ReducerError) Unwrap() error {
	if err, ok := e.Recovered.(error); ok {
		return err
	}
	return nil
}

// RestoreError reports a snapshot that cannot be restored.
// The store is unchanged when Restore returns a RestoreError.
type RestoreError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *RestoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *RestoreError) Unwrap() error {
	return e.Err
}

func newRestoreError(code ErrorCode, err error, format string, args ...any) *RestoreError {
	return &RestoreError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// ListenerError reports one or more subscriber panics.
//
// Unlike the other errors in this package, a ListenerError does NOT mean the
// operation failed. The mutation was committed, every other listener ran, and
// State() already reflects the change.
type ListenerError struct {
	// Operation is the store operation that triggered the notification.
	Operation string

	// Panics holds the recovered values in listener registration order.
	Panics []any
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	parts := make([]string, len(e.Panics))
	for i, p := range e.Panics {
		parts[i] = fmt.Sprint(p)
	}
	return fmt.Sprintf("%s: %d listener(s) panicked after %s: %s",
		ErrCodeListenerPanic, len(e.Panics), e.Operation, strings.Join(parts, "; "))
}

// IsReducerError returns true if the error is a reducer panic.
// Uses errors.As to handle wrapped errors.
func IsReducerError(err error) bool {
	var re *ReducerError
	return errors.As(err, &re)
}

// IsListenerError returns true if the error only reports listener panics.
// Uses errors.As to handle wrapped errors.
func IsListenerError(err error) bool {
	var le *ListenerError
	return errors.As(err, &le)
}

// IsRestoreError returns true if the error is a restore failure with the
// given code. An empty code matches any restore failure.
func IsRestoreError(err error, code ErrorCode) bool {
	var re *RestoreError
	if errors.As(err, &re) {
		return code == "" || re.Code == code
	}
	return false
}
