package transport

import (
	"context"

	"github.com/viant/authbridge"
)

// Handler handles an inbound message. Messages failing validation never reach a handler.
type Handler func(ctx context.Context, message *authbridge.Message)

// Subscription represents a registered handler.
type Subscription interface {
	Close() error
}

// Bus is the cross context message bus. Delivery is asynchronous and
// unordered across senders; receivers filter by destination.
type Bus interface {
	// Send dispatches message to every subscriber of its channel.
	Send(ctx context.Context, message *authbridge.Message) error
	// Subscribe registers handler for channel.
	Subscribe(ctx context.Context, channel authbridge.Channel, handler Handler) (Subscription, error)
}

// SubscriptionFunc adapts a function to Subscription.
type SubscriptionFunc func() error

// Close calls f.
func (f SubscriptionFunc) Close() error { return f() }
