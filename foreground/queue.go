// Package foreground holds the popup side of the authorization protocol: the
// request queue shown to the user and the replies sent back to the background.
package foreground

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"github.com/viant/authbridge"
	"github.com/viant/authbridge/lock"
)

// Queue orders the requests shown by the popup and resolves them on the user's behalf.
// The selection is kept by auth id, so entries leaving the store do not move it to another request.
type Queue struct {
	store    Store
	replier  *Replier
	mux      *lock.Mutex
	selected string
	logger  *slog.Logger
	now     func() time.Time
	changed func()
}

// Enqueue appends a pending request. A request reusing the unlock id replaces the unlock slot.
func (q *Queue) Enqueue(ctx context.Context, request *authbridge.Request) error {
	if err := request.Validate(); err != nil {
		return err
	}
	if request.Status != authbridge.StatusPending {
		return fmt.Errorf("%w: %s request %s is %s", authbridge.ErrInvalidMessage, request.Type(), request.AuthID, request.Status)
	}
	err := q.mutate(ctx, func(requests []*authbridge.Request) error {
		_, found := lo.Find(requests, func(r *authbridge.Request) bool { return r.AuthID == request.AuthID })
		if found && !request.IsUnlock() {
			return fmt.Errorf("%w: %s", authbridge.ErrDuplicateRequest, request.AuthID)
		}
		if err := q.store.Put(ctx, request); err != nil {
			return err
		}
		if current := q.position(requests); current < 0 || requests[current].Status.IsTerminal() {
			q.selected = request.AuthID
		}
		q.logger.Debug("request enqueued", "auth_id", request.AuthID, "auth_type", request.Type(), "tab_id", request.TabID, "replaced", found)
		return nil
	})
	return err
}

// Requests returns all requests in arrival order, resolved ones included.
func (q *Queue) Requests(ctx context.Context) ([]*authbridge.Request, error) {
	return q.store.List(ctx)
}

// Pending returns the requests still waiting for a decision.
func (q *Queue) Pending(ctx context.Context) ([]*authbridge.Request, error) {
	requests, err := q.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(requests, func(r *authbridge.Request, _ int) bool { return r.Status == authbridge.StatusPending }), nil
}

// Get returns the request with authID.
func (q *Queue) Get(ctx context.Context, authID string) (*authbridge.Request, error) {
	return q.store.Get(ctx, authID)
}

// Current returns the selected request and its index.
func (q *Queue) Current(ctx context.Context) (*authbridge.Request, int, error) {
	release, err := q.mux.Lock(ctx)
	if err != nil {
		return nil, -1, err
	}
	defer release()
	requests, err := q.store.List(ctx)
	if err != nil {
		return nil, -1, err
	}
	if len(requests) == 0 {
		return nil, -1, fmt.Errorf("%w: queue is empty", authbridge.ErrNotFound)
	}
	position := q.position(requests)
	return requests[position], position, nil
}

// Select makes the request with authID the current one.
func (q *Queue) Select(ctx context.Context, authID string) error {
	return q.mutate(ctx, func(requests []*authbridge.Request) error {
		if _, found := lo.Find(requests, func(r *authbridge.Request) bool { return r.AuthID == authID }); !found {
			return fmt.Errorf("%w: %s", authbridge.ErrNotFound, authID)
		}
		q.selected = authID
		return nil
	})
}

// Accept resolves the request as accepted with data as the reply payload.
func (q *Queue) Accept(ctx context.Context, authID string, data interface{}) error {
	return q.resolve(ctx, authID, authbridge.StatusAccepted, "", data)
}

// Reject resolves the request as rejected; an empty message uses the default rejection message.
func (q *Queue) Reject(ctx context.Context, authID string, message string) error {
	if message == "" {
		message = authbridge.RejectedMessage
	}
	return q.resolve(ctx, authID, authbridge.StatusRejected, message, nil)
}

// Resolve moves a pending request to a terminal status and replies to the background.
// Non accepted statuses reply with an error result; a string data becomes the error message.
func (q *Queue) Resolve(ctx context.Context, authID string, status authbridge.Status, data interface{}) error {
	errorMessage := ""
	switch status {
	case authbridge.StatusRejected:
		errorMessage = authbridge.RejectedMessage
	case authbridge.StatusAborted:
		errorMessage = authbridge.AbortedMessage
	case authbridge.StatusError:
		errorMessage = "error"
	}
	if message, ok := data.(string); ok && errorMessage != "" {
		errorMessage, data = message, nil
	}
	return q.resolve(ctx, authID, status, errorMessage, data)
}

func (q *Queue) resolve(ctx context.Context, authID string, status authbridge.Status, errorMessage string, data interface{}) error {
	return q.mutate(ctx, func(requests []*authbridge.Request) error {
		_, position, found := lo.FindIndexOf(requests, func(r *authbridge.Request) bool { return r.AuthID == authID })
		if !found {
			return fmt.Errorf("%w: %s", authbridge.ErrNotFound, authID)
		}
		request := requests[position]
		if err := request.SetStatus(status, q.now()); err != nil {
			return err
		}
		if err := q.replier.Reply(ctx, request.Type(), authID, errorMessage, data); err != nil {
			return err
		}
		if err := q.store.Put(ctx, request); err != nil {
			return err
		}
		q.selected = requests[nextPending(requests, position)].AuthID
		q.logger.Info("request resolved", "auth_id", authID, "auth_type", request.Type(), "status", status)
		return nil
	})
}

// Abort marks a pending request aborted without replying; the requester has already given up.
func (q *Queue) Abort(ctx context.Context, authID string, reason string) error {
	return q.mutate(ctx, func(requests []*authbridge.Request) error {
		_, position, found := lo.FindIndexOf(requests, func(r *authbridge.Request) bool { return r.AuthID == authID })
		if !found {
			return fmt.Errorf("%w: %s", authbridge.ErrNotFound, authID)
		}
		request := requests[position]
		if err := request.SetStatus(authbridge.StatusAborted, q.now()); err != nil {
			return err
		}
		if err := q.store.Put(ctx, request); err != nil {
			return err
		}
		if authID == q.selected {
			q.selected = requests[nextPending(requests, position)].AuthID
		}
		q.logger.Info("request aborted by requester", "auth_id", authID, "auth_type", request.Type(), "reason", reason)
		return nil
	})
}

// Prune removes resolved requests completed more than olderThan ago and returns how many were removed.
func (q *Queue) Prune(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := q.now().Add(-olderThan).UnixMilli()
	removed := 0
	err := q.mutate(ctx, func(requests []*authbridge.Request) error {
		var kept []*authbridge.Request
		for _, request := range requests {
			if request.Status.IsTerminal() && request.CompletedAt != nil && *request.CompletedAt <= cutoff {
				if err := q.store.Delete(ctx, request.AuthID); err != nil && !errors.Is(err, authbridge.ErrNotFound) {
					return err
				}
				removed++
				continue
			}
			kept = append(kept, request)
		}
		q.position(kept)
		return nil
	})
	return removed, err
}

// Close aborts every pending request, replying with the aborted error so requesters stop waiting.
func (q *Queue) Close(ctx context.Context) error {
	return q.mutate(ctx, func(requests []*authbridge.Request) error {
		var errs []error
		for _, request := range requests {
			if request.Status != authbridge.StatusPending {
				continue
			}
			if err := request.SetStatus(authbridge.StatusAborted, q.now()); err != nil {
				errs = append(errs, err)
				continue
			}
			if err := q.replier.Reply(ctx, request.Type(), request.AuthID, authbridge.AbortedMessage, nil); err != nil {
				errs = append(errs, err)
				continue
			}
			if err := q.store.Put(ctx, request); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Restore reloads the queue from the store and selects the earliest pending request.
func (q *Queue) Restore(ctx context.Context) (int, error) {
	pending := 0
	err := q.mutate(ctx, func(requests []*authbridge.Request) error {
		q.selected = ""
		for _, request := range requests {
			if request.Status == authbridge.StatusPending {
				pending++
			}
		}
		q.position(requests)
		return nil
	})
	return pending, err
}

// mutate runs fn under the queue lock with the current requests and notifies
// the change listener on success.
func (q *Queue) mutate(ctx context.Context, fn func(requests []*authbridge.Request) error) error {
	release, err := q.mux.Lock(ctx)
	if err != nil {
		return err
	}
	requests, err := q.store.List(ctx)
	if err == nil {
		err = fn(requests)
	}
	release()
	if err == nil && q.changed != nil {
		q.changed()
	}
	return err
}

// position returns the index of the selected request. When the selection is no
// longer in requests it moves to the earliest pending one, or the first entry.
func (q *Queue) position(requests []*authbridge.Request) int {
	if len(requests) == 0 {
		return -1
	}
	if _, index, found := lo.FindIndexOf(requests, func(r *authbridge.Request) bool { return r.AuthID == q.selected }); found {
		return index
	}
	_, index, found := lo.FindIndexOf(requests, func(r *authbridge.Request) bool { return r.Status == authbridge.StatusPending })
	if !found {
		index = 0
	}
	q.selected = requests[index].AuthID
	return index
}

// nextPending returns the first pending index after from, wrapping around, or from when none is left.
func nextPending(requests []*authbridge.Request, from int) int {
	for i := 1; i < len(requests); i++ {
		candidate := (from + i) % len(requests)
		if requests[candidate].Status == authbridge.StatusPending {
			return candidate
		}
	}
	return from
}

// NewQueue creates a Queue replying through replier.
func NewQueue(replier *Replier, options ...Option) *Queue {
	ret := &Queue{
		store:   NewMemoryStore(),
		replier: replier,
		mux:     lock.New(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}
