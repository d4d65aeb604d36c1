// Package background issues authorization requests to the popup and waits for the user's decision.
package background

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/viant/authbridge"
	"github.com/viant/authbridge/idgen"
	"github.com/viant/authbridge/keepalive"
	"github.com/viant/authbridge/popup"
	"github.com/viant/authbridge/transport"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/viant/authbridge/background"

// Coordinator correlates outgoing authorization requests with popup replies.
type Coordinator struct {
	bus       transport.Bus
	popups    *popup.Manager
	keepAlive *keepalive.Supervisor
	ids       idgen.Generator
	trips     *trips
	timeout   time.Duration
	logger    *slog.Logger
	metrics   *Metrics
	tracer    trace.Tracer
	events    popup.TabEvents
	now       func() time.Time

	mux          sync.Mutex
	subscription transport.Subscription
	unsubscribe  []func()
}

// Start subscribes to replies and, when configured, tab events.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mux.Lock()
	defer c.mux.Unlock()
	if c.subscription != nil {
		return nil
	}
	subscription, err := c.bus.Subscribe(ctx, authbridge.ChannelAuthResult, c.onResult)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", authbridge.ChannelAuthResult, err)
	}
	c.subscription = subscription
	if c.events != nil {
		c.unsubscribe = append(c.unsubscribe,
			c.events.OnTabRemoved(c.onTabRemoved),
			c.events.OnTabUpdated(c.onTabUpdated),
		)
	}
	return nil
}

// Close unsubscribes from replies and tab events. Pending requests keep
// waiting until their timeout or context ends.
func (c *Coordinator) Close() error {
	c.mux.Lock()
	defer c.mux.Unlock()
	for _, unsubscribe := range c.unsubscribe {
		unsubscribe()
	}
	c.unsubscribe = nil
	if c.subscription == nil {
		return nil
	}
	err := c.subscription.Close()
	c.subscription = nil
	return err
}

// Request shows an authorization request to the user and waits for the reply.
// An error reply is returned as *authbridge.ResultError.
func (c *Coordinator) Request(ctx context.Context, data authbridge.Data, app authbridge.AppContext) (result *authbridge.Result, err error) {
	if data == nil {
		return nil, fmt.Errorf("%w: request data is required", authbridge.ErrInvalidMessage)
	}
	authType := data.AuthType()
	ctx, span := c.tracer.Start(ctx, "authbridge.request", trace.WithAttributes(
		attribute.String("auth.type", string(authType)),
		attribute.String("app.url", app.URL),
	))
	c.metrics.requested(authType)
	defer func() {
		c.metrics.completed(authType, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, Outcome(err))
		}
		span.End()
	}()

	popupTabID, err := c.popups.EnsurePopup(ctx)
	if err != nil {
		return nil, err
	}
	authID := authbridge.UnlockAuthID
	if authType != authbridge.AuthTypeUnlock {
		authID = c.ids.Next()
	}
	span.SetAttributes(attribute.String("auth.id", authID), attribute.Int("popup.tab_id", popupTabID))
	logger := c.logger.With("auth_id", authID, "auth_type", authType, "popup_tab_id", popupTabID)

	aTrip, joined, err := c.trips.add(authID, authType, popupTabID)
	if err != nil {
		return nil, err
	}
	c.metrics.pending(c.trips.size())
	defer func() { c.finish(ctx, aTrip, err, logger) }()

	request := authbridge.NewRequest(data, app, authID, c.now())
	if err = c.bus.Send(ctx, authbridge.NewRequestMessage(authbridge.Background, authbridge.PopupTab(aTrip.popupTabID), request)); err != nil {
		return nil, fmt.Errorf("failed to send %s request: %w", authType, err)
	}
	if err = c.keepAlive.Start(ctx, aTrip.keepAliveID); err != nil {
		return nil, err
	}
	logger.Info("waiting for auth result", "joined", joined)
	if result, err = aTrip.wait(ctx, c.timeout); err != nil {
		return nil, err
	}
	if err = result.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Pending returns the number of requests waiting for a reply.
func (c *Coordinator) Pending() int {
	return c.trips.size()
}

// finish releases a waiter; the last waiter stops keep-alive and, when the
// request was abandoned, tells the popup to drop it.
func (c *Coordinator) finish(ctx context.Context, aTrip *trip, cause error, logger *slog.Logger) {
	remaining := c.trips.release(aTrip)
	c.metrics.pending(c.trips.size())
	if remaining > 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := c.keepAlive.Stop(ctx, aTrip.keepAliveID); err != nil {
		logger.Warn("failed to stop keep-alive", "error", err)
	}
	if cause == nil || !aTrip.complete(nil, cause) {
		return
	}
	reason := Outcome(cause)
	abort := &authbridge.Abort{Type: aTrip.authType, AuthID: aTrip.authID, Reason: reason}
	if err := c.bus.Send(ctx, authbridge.NewAbortMessage(authbridge.Background, authbridge.PopupTab(aTrip.popupTabID), abort)); err != nil {
		logger.Warn("failed to send abort", "reason", reason, "error", err)
		return
	}
	logger.Info("request abandoned", "reason", reason)
}

func (c *Coordinator) onResult(_ context.Context, message *authbridge.Message) {
	result := message.Result
	aTrip, ok := c.trips.match(result.AuthID)
	if !ok {
		c.logger.Debug("ignoring result for unknown request", "auth_id", result.AuthID, "auth_type", result.Type)
		return
	}
	if result.Type != aTrip.authType {
		c.logger.Debug("ignoring result with mismatched type", "auth_id", result.AuthID, "auth_type", result.Type, "expected", aTrip.authType)
		return
	}
	if message.Sender.Context != authbridge.ContextPopup || message.Sender.TabID != aTrip.popupTabID {
		c.logger.Debug("ignoring result from unexpected sender", "auth_id", result.AuthID, "sender", message.Sender)
		return
	}
	if aTrip.complete(result, nil) {
		c.logger.Debug("auth result received", "auth_id", result.AuthID, "error", result.Error)
	}
}

func (c *Coordinator) onTabRemoved(tabID int) {
	c.popups.Forget(tabID)
	c.abortTab(tabID, "popup closed")
}

func (c *Coordinator) onTabUpdated(tab popup.Tab) {
	if tab.ID != c.popups.Current() || c.popups.IsAuthTab(&tab) {
		return
	}
	c.popups.Forget(tab.ID)
	c.abortTab(tab.ID, "popup navigated away")
}

func (c *Coordinator) abortTab(tabID int, reason string) {
	for _, aTrip := range c.trips.forTab(tabID) {
		if aTrip.complete(nil, fmt.Errorf("%w: %s", authbridge.ErrAborted, reason)) {
			c.logger.Info("request aborted", "auth_id", aTrip.authID, "auth_type", aTrip.authType, "popup_tab_id", tabID, "reason", reason)
		}
	}
}

// New creates a Coordinator; call Start before issuing requests.
func New(bus transport.Bus, popups *popup.Manager, keepAlive *keepalive.Supervisor, options ...Option) *Coordinator {
	ret := &Coordinator{
		bus:       bus,
		popups:    popups,
		keepAlive: keepAlive,
		ids:       idgen.New(),
		trips:     newTrips(),
		timeout:   authbridge.DefaultRequestTimeout,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, option := range options {
		option(ret)
	}
	ret.logger = ret.logger.With("coordinator_id", uuid.NewString()[:8])
	return ret
}
