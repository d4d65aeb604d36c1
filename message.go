package authbridge

import (
	"fmt"
)

// Channel is a logical message bus channel.
type Channel string

const (
	// ChannelAuthRequest carries requests from the background to the popup.
	ChannelAuthRequest Channel = "auth_request"
	// ChannelAuthResult carries replies from the popup to the background.
	ChannelAuthResult Channel = "auth_result"
	// ChannelAuthAbort tells the popup a request was abandoned by its requester.
	ChannelAuthAbort Channel = "auth_abort"
)

// ContextKind identifies an execution context on the bus.
type ContextKind string

const (
	ContextBackground ContextKind = "background"
	ContextPopup      ContextKind = "popup"
	ContextContent    ContextKind = "content"
)

// Endpoint addresses a sender or destination of a message.
type Endpoint struct {
	Context ContextKind `json:"context"`
	TabID   int         `json:"tabId"`
}

// Background is the endpoint of the background context.
var Background = Endpoint{Context: ContextBackground, TabID: NoTab}

// PopupTab returns the endpoint of the popup running in the given tab.
func PopupTab(tabID int) Endpoint {
	return Endpoint{Context: ContextPopup, TabID: tabID}
}

// Abort notifies the popup that a pending request was abandoned.
type Abort struct {
	Type   AuthType `json:"type"`
	AuthID string   `json:"authID"`
	Reason string   `json:"reason,omitempty"`
}

// Message is the closed envelope exchanged between contexts; exactly one
// payload matching the channel is set.
type Message struct {
	Channel     Channel  `json:"channel"`
	Sender      Endpoint `json:"sender"`
	Destination Endpoint `json:"destination"`
	Request     *Request `json:"request,omitempty"`
	Result      *Result  `json:"result,omitempty"`
	Abort       *Abort   `json:"abort,omitempty"`
}

// Validate rejects unknown channels and payloads that do not match the channel.
func (m *Message) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}
	switch m.Channel {
	case ChannelAuthRequest:
		if m.Result != nil || m.Abort != nil {
			return fmt.Errorf("%w: unexpected payload on %s", ErrInvalidMessage, m.Channel)
		}
		return m.Request.Validate()
	case ChannelAuthResult:
		if m.Request != nil || m.Abort != nil {
			return fmt.Errorf("%w: unexpected payload on %s", ErrInvalidMessage, m.Channel)
		}
		return m.Result.Validate()
	case ChannelAuthAbort:
		if m.Request != nil || m.Result != nil {
			return fmt.Errorf("%w: unexpected payload on %s", ErrInvalidMessage, m.Channel)
		}
		if m.Abort == nil || m.Abort.AuthID == "" {
			return fmt.Errorf("%w: abort authID is required", ErrInvalidMessage)
		}
		return nil
	}
	return fmt.Errorf("%w: unknown channel %q", ErrInvalidMessage, m.Channel)
}

// AuthID returns the correlation id carried by the payload.
func (m *Message) AuthID() string {
	switch {
	case m.Request != nil:
		return m.Request.AuthID
	case m.Result != nil:
		return m.Result.AuthID
	case m.Abort != nil:
		return m.Abort.AuthID
	}
	return ""
}

// NewRequestMessage creates an auth_request message.
func NewRequestMessage(sender, destination Endpoint, request *Request) *Message {
	return &Message{
		Channel:     ChannelAuthRequest,
		Sender:      sender,
		Destination: destination,
		Request:     request,
	}
}

// NewResultMessage creates an auth_result message.
func NewResultMessage(sender, destination Endpoint, result *Result) *Message {
	return &Message{
		Channel:     ChannelAuthResult,
		Sender:      sender,
		Destination: destination,
		Result:      result,
	}
}

// NewAbortMessage creates an auth_abort message.
func NewAbortMessage(sender, destination Endpoint, abort *Abort) *Message {
	return &Message{
		Channel:     ChannelAuthAbort,
		Sender:      sender,
		Destination: destination,
		Abort:       abort,
	}
}
