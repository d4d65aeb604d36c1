package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/authbridge"
)

// trip is a request waiting for its reply from the popup.
type trip struct {
	authID string
	// keepAliveID differs from authID for an unlock trip started while the previous one is still held.
	keepAliveID string
	authType    authbridge.AuthType
	popupTabID int
	waiters    int
	result     *authbridge.Result
	err        error
	done       chan struct{}
	once       sync.Once
}

func newTrip(authID string, authType authbridge.AuthType, popupTabID int) *trip {
	return &trip{
		authID:      authID,
		keepAliveID: authID,
		authType:    authType,
		popupTabID:  popupTabID,
		waiters:     1,
		done:        make(chan struct{}),
	}
}

// complete sets the outcome; only the first call has an effect.
func (t *trip) complete(result *authbridge.Result, err error) bool {
	completed := false
	t.once.Do(func() {
		t.result = result
		t.err = err
		close(t.done)
		completed = true
	})
	return completed
}

func (t *trip) completed() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// wait blocks until the trip completes, ctx is done or timeout elapses; zero timeout waits indefinitely.
func (t *trip) wait(ctx context.Context, timeout time.Duration) (*authbridge.Result, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-expired:
		return nil, fmt.Errorf("%w: %s request %s after %s", authbridge.ErrTimeout, t.authType, t.authID, timeout)
	case <-t.done:
		return t.result, t.err
	}
}

// trips indexes pending trips by auth id.
type trips struct {
	mux         sync.Mutex
	byID        map[string]*trip
	generations uint64
}

// add registers a trip. A pending unlock trip is joined instead of duplicated;
// a completed one is replaced even while its waiters are still leaving.
func (r *trips) add(authID string, authType authbridge.AuthType, popupTabID int) (*trip, bool, error) {
	r.mux.Lock()
	defer r.mux.Unlock()
	ret := newTrip(authID, authType, popupTabID)
	if existing, ok := r.byID[authID]; ok {
		if authID != authbridge.UnlockAuthID {
			return nil, false, fmt.Errorf("%w: %s", authbridge.ErrDuplicateRequest, authID)
		}
		if !existing.completed() {
			existing.waiters++
			return existing, true, nil
		}
		r.generations++
		ret.keepAliveID = fmt.Sprintf("%s#%d", authID, r.generations)
	}
	r.byID[authID] = ret
	return ret, false, nil
}

func (r *trips) match(authID string) (*trip, bool) {
	r.mux.Lock()
	defer r.mux.Unlock()
	ret, ok := r.byID[authID]
	return ret, ok
}

// release drops one waiter and evicts the trip after the last one; it returns the remaining waiters.
func (r *trips) release(t *trip) int {
	r.mux.Lock()
	defer r.mux.Unlock()
	t.waiters--
	if t.waiters > 0 {
		return t.waiters
	}
	if r.byID[t.authID] == t {
		delete(r.byID, t.authID)
	}
	return 0
}

func (r *trips) forTab(popupTabID int) []*trip {
	r.mux.Lock()
	defer r.mux.Unlock()
	var ret []*trip
	for _, t := range r.byID {
		if t.popupTabID == popupTabID {
			ret = append(ret, t)
		}
	}
	return ret
}

func (r *trips) size() int {
	r.mux.Lock()
	defer r.mux.Unlock()
	return len(r.byID)
}

func newTrips() *trips {
	return &trips{byID: map[string]*trip{}}
}
