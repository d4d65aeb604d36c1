package foreground

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/viant/authbridge"
	"github.com/viant/authbridge/transport"
)

// Listener feeds the queue with requests and aborts addressed to its popup tab.
type Listener struct {
	bus           transport.Bus
	queue         *Queue
	tabID         int
	logger        *slog.Logger
	mux           sync.Mutex
	subscriptions []transport.Subscription
}

// Start subscribes to the auth_request and auth_abort channels.
func (l *Listener) Start(ctx context.Context) error {
	l.mux.Lock()
	defer l.mux.Unlock()
	if len(l.subscriptions) > 0 {
		return nil
	}
	for channel, handler := range map[authbridge.Channel]transport.Handler{
		authbridge.ChannelAuthRequest: l.onRequest,
		authbridge.ChannelAuthAbort:   l.onAbort,
	} {
		subscription, err := l.bus.Subscribe(ctx, channel, handler)
		if err != nil {
			l.closeAll()
			return err
		}
		l.subscriptions = append(l.subscriptions, subscription)
	}
	return nil
}

// Close unsubscribes the listener.
func (l *Listener) Close() error {
	l.mux.Lock()
	defer l.mux.Unlock()
	return l.closeAll()
}

func (l *Listener) closeAll() error {
	var errs []error
	for _, subscription := range l.subscriptions {
		errs = append(errs, subscription.Close())
	}
	l.subscriptions = nil
	return errors.Join(errs...)
}

func (l *Listener) addressed(message *authbridge.Message) bool {
	if message.Destination == authbridge.PopupTab(l.tabID) {
		return true
	}
	l.logger.Debug("ignoring message for another tab", "channel", message.Channel, "auth_id", message.AuthID(), "destination", message.Destination)
	return false
}

func (l *Listener) onRequest(ctx context.Context, message *authbridge.Message) {
	if !l.addressed(message) {
		return
	}
	if err := l.queue.Enqueue(ctx, message.Request); err != nil {
		l.logger.Warn("failed to enqueue request", "auth_id", message.Request.AuthID, "error", err)
	}
}

func (l *Listener) onAbort(ctx context.Context, message *authbridge.Message) {
	if !l.addressed(message) {
		return
	}
	abort := message.Abort
	if err := l.queue.Abort(ctx, abort.AuthID, abort.Reason); err != nil {
		l.logger.Debug("ignoring abort", "auth_id", abort.AuthID, "error", err)
	}
}

// NewListener creates a Listener for the popup running in tabID.
func NewListener(bus transport.Bus, queue *Queue, tabID int, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{bus: bus, queue: queue, tabID: tabID, logger: logger}
}
