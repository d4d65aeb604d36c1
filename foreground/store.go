package foreground

import (
	"context"

	"github.com/viant/authbridge"
)

// Store persists the requests shown by the popup. Implementations return
// authbridge.ErrNotFound for unknown auth ids and are safe for concurrent use.
type Store interface {
	// Put inserts or replaces a request.
	Put(ctx context.Context, request *authbridge.Request) error
	// Get returns a copy of the request.
	Get(ctx context.Context, authID string) (*authbridge.Request, error)
	// List returns copies of all requests in arrival order.
	List(ctx context.Context) ([]*authbridge.Request, error)
	// Delete removes a request.
	Delete(ctx context.Context, authID string) error
}
