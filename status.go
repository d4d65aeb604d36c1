package authbridge

import "fmt"

// Status is the lifecycle state of an authorization request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusAborted  Status = "aborted"
	StatusError    Status = "error"
)

// IsValid returns true for known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusAborted, StatusError:
		return true
	}
	return false
}

// IsTerminal returns true once no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s.IsValid() && s != StatusPending
}

// Transition validates a status change; only pending can move, and only to a terminal status.
func (s Status) Transition(to Status) error {
	if !to.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, to)
	}
	if s != StatusPending || !to.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, to)
	}
	return nil
}
