package authbridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/viant/authbridge/internal/pointer"
)

// Request is an authorization request record as queued by the popup.
// It combines the type specific Data with the fields common to every variant.
type Request struct {
	Data Data
	// URL is the origin of the requesting page or app.
	URL string
	// TabID is the originating tab.
	TabID int
	// AuthID correlates the request with its reply.
	AuthID string
	// RequestedAt is a unix timestamp in milliseconds.
	RequestedAt int64
	// CompletedAt is set on the terminal transition.
	CompletedAt *int64
	Status      Status
}

type commonFields struct {
	Type        AuthType `json:"type"`
	URL         string   `json:"url"`
	TabID       int      `json:"tabID"`
	AuthID      string   `json:"authID"`
	RequestedAt int64    `json:"requestedAt"`
	CompletedAt *int64   `json:"completedAt,omitempty"`
	Status      Status   `json:"status"`
}

// NewRequest creates a pending request for the given payload and requesting app.
func NewRequest(data Data, app AppContext, authID string, now time.Time) *Request {
	return &Request{
		Data:        data,
		URL:         app.URL,
		TabID:       app.TabID,
		AuthID:      authID,
		RequestedAt: now.UnixMilli(),
		Status:      StatusPending,
	}
}

// Type returns the request type or an empty type when no payload is set.
func (r *Request) Type() AuthType {
	if r == nil || r.Data == nil {
		return ""
	}
	return r.Data.AuthType()
}

// IsUnlock returns true for the singleton unlock request.
func (r *Request) IsUnlock() bool {
	return r.Type() == AuthTypeUnlock
}

// Validate checks the record invariants.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidMessage)
	}
	if r.Data == nil {
		return fmt.Errorf("%w: request data is required", ErrInvalidMessage)
	}
	if r.AuthID == "" {
		return fmt.Errorf("%w: authID is required", ErrInvalidMessage)
	}
	if !r.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidMessage, r.Status)
	}
	if r.IsUnlock() != (r.AuthID == UnlockAuthID) {
		return fmt.Errorf("%w: authID %q is reserved for unlock requests", ErrInvalidMessage, UnlockAuthID)
	}
	return nil
}

// SetStatus applies a terminal transition and records the completion time.
func (r *Request) SetStatus(status Status, at time.Time) error {
	if err := r.Status.Transition(status); err != nil {
		return fmt.Errorf("auth request %s: %w", r.AuthID, err)
	}
	r.Status = status
	r.CompletedAt = pointer.Ref(at.UnixMilli())
	return nil
}

// Clone returns a deep copy of the request.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	data, err := json.Marshal(r)
	if err != nil {
		dup := *r
		return &dup
	}
	dup := &Request{}
	if err = json.Unmarshal(data, dup); err != nil {
		dup := *r
		return &dup
	}
	return dup
}

// MarshalJSON flattens the payload and the common fields into one object.
func (r *Request) MarshalJSON() ([]byte, error) {
	if r.Data == nil {
		return nil, fmt.Errorf("%w: request data is required", ErrInvalidMessage)
	}
	payload, err := json.Marshal(r.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s request data: %w", r.Data.AuthType(), err)
	}
	fields := map[string]json.RawMessage{}
	if err = json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("failed to flatten %s request data: %w", r.Data.AuthType(), err)
	}
	common, err := json.Marshal(commonFields{
		Type:        r.Data.AuthType(),
		URL:         r.URL,
		TabID:       r.TabID,
		AuthID:      r.AuthID,
		RequestedAt: r.RequestedAt,
		CompletedAt: r.CompletedAt,
		Status:      r.Status,
	})
	if err != nil {
		return nil, err
	}
	if err = json.Unmarshal(common, &fields); err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalJSON decodes a flattened request, selecting the payload by its type.
func (r *Request) UnmarshalJSON(data []byte) error {
	common := commonFields{}
	if err := json.Unmarshal(data, &common); err != nil {
		return err
	}
	if common.Type == "" {
		return errors.New("field type in Request: required")
	}
	payload, err := NewData(common.Type)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(data, payload); err != nil {
		return fmt.Errorf("failed to decode %s request data: %w", common.Type, err)
	}
	r.Data = payload
	r.URL = common.URL
	r.TabID = common.TabID
	r.AuthID = common.AuthID
	r.RequestedAt = common.RequestedAt
	r.CompletedAt = common.CompletedAt
	r.Status = common.Status
	return nil
}
