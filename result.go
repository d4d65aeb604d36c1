package authbridge

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	// AbortedMessage is the error message of replies for abandoned requests.
	AbortedMessage = "aborted"
	// RejectedMessage is the default error message of user rejections.
	RejectedMessage = "User rejected the request"
)

// Result is the reply of the popup to an authorization request.
type Result struct {
	Type   AuthType        `json:"type"`
	AuthID string          `json:"authID"`
	Error  bool            `json:"error"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// NewResult builds a reply; the result is an error when errorMessage is set,
// and data defaults to the error message when no payload is given.
func NewResult(authType AuthType, authID string, errorMessage string, data interface{}) (*Result, error) {
	ret := &Result{Type: authType, AuthID: authID, Error: errorMessage != ""}
	if data == nil && errorMessage != "" {
		data = errorMessage
	}
	if data == nil {
		return ret, nil
	}
	var err error
	switch actual := data.(type) {
	case json.RawMessage:
		ret.Data = actual
	case []byte:
		ret.Data, err = json.Marshal(string(actual))
	default:
		ret.Data, err = json.Marshal(actual)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s result data: %w", authType, err)
	}
	return ret, nil
}

// Validate checks the required fields.
func (r *Result) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: result is nil", ErrInvalidMessage)
	}
	if r.AuthID == "" {
		return fmt.Errorf("%w: result authID is required", ErrInvalidMessage)
	}
	if r.Type == "" {
		return fmt.Errorf("%w: result type is required", ErrInvalidMessage)
	}
	return nil
}

// Decode unmarshals the result payload into target.
func (r *Result) Decode(target interface{}) error {
	if len(r.Data) == 0 {
		return errors.New("result has no data")
	}
	return json.Unmarshal(r.Data, target)
}

// Message returns the payload when it is a JSON string.
func (r *Result) Message() string {
	var message string
	if len(r.Data) == 0 || json.Unmarshal(r.Data, &message) != nil {
		return ""
	}
	return message
}

// Err returns a *ResultError for error results and nil otherwise.
func (r *Result) Err() error {
	if !r.Error {
		return nil
	}
	ret := &ResultError{Type: r.Type, AuthID: r.AuthID, Message: r.Message()}
	if ret.Message == "" {
		ret.Data = r.Data
	}
	return ret
}

// IsErrorResult returns true if data is an error shaped result.
func IsErrorResult(data []byte) bool {
	result := &Result{}
	if err := json.Unmarshal(data, result); err != nil {
		return false
	}
	return result.Validate() == nil && result.Error && len(result.Data) > 0
}
