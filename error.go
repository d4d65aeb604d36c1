package authbridge

import (
	"errors"
	"fmt"
)

var (
	// ErrAborted indicates the popup was closed or navigated away before the user decided.
	ErrAborted = errors.New("auth request aborted")
	// ErrTimeout indicates the request was not answered in time.
	ErrTimeout = errors.New("auth request timed out")
	// ErrRejected indicates the popup answered with an error result.
	ErrRejected = errors.New("auth request rejected")
	// ErrNotFound indicates no request exists for the given auth id.
	ErrNotFound = errors.New("auth request not found")
	// ErrInvalidTransition indicates an attempt to leave a terminal status.
	ErrInvalidTransition = errors.New("invalid auth request status transition")
	// ErrDuplicateRequest indicates a pending request already uses the auth id.
	ErrDuplicateRequest = errors.New("duplicate auth request")
	// ErrInvalidMessage indicates a message failed boundary validation.
	ErrInvalidMessage = errors.New("invalid message")
	// ErrUnknownAuthType indicates an unsupported request type.
	ErrUnknownAuthType = errors.New("unknown auth type")
)

// ResultError is returned to the requester when the popup answers with error=true.
type ResultError struct {
	Type    AuthType
	AuthID  string
	Message string
	// Data holds the structured error payload, if any.
	Data []byte
}

// Error returns the error message
func (e *ResultError) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return fmt.Sprintf("%s auth request %s rejected: %s", e.Type, e.AuthID, e.Message)
	}
	return fmt.Sprintf("%s auth request %s rejected: %s", e.Type, e.AuthID, string(e.Data))
}

// Is makes errors.Is(err, ErrRejected) succeed, and ErrAborted for aborted replies.
func (e *ResultError) Is(target error) bool {
	if target == ErrRejected {
		return true
	}
	return target == ErrAborted && e.Message == AbortedMessage
}

// IsRejected returns true if err is or wraps a popup rejection.
func IsRejected(err error) bool {
	var target *ResultError
	return errors.As(err, &target)
}
