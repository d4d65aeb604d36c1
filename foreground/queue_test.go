package foreground

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/authbridge"
	"github.com/viant/authbridge/transport"
)

const popupTabID = 7

// mockBus records sent messages.
type mockBus struct {
	mutex   sync.Mutex
	sent    []*authbridge.Message
	sendErr error
}

func (m *mockBus) Send(_ context.Context, message *authbridge.Message) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, message)
	return nil
}

func (m *mockBus) Subscribe(context.Context, authbridge.Channel, transport.Handler) (transport.Subscription, error) {
	return transport.SubscriptionFunc(func() error { return nil }), nil
}

func (m *mockBus) results() []*authbridge.Result {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var ret []*authbridge.Result
	for _, message := range m.sent {
		ret = append(ret, message.Result)
	}
	return ret
}

var clock = time.UnixMilli(1700000000000)

func newRequest(data authbridge.Data, authID string, offset int) *authbridge.Request {
	return authbridge.NewRequest(data, authbridge.AppContext{URL: "https://example.com", TabID: 1}, authID, clock.Add(time.Duration(offset)*time.Millisecond))
}

func newQueue(bus *mockBus, options ...Option) *Queue {
	options = append([]Option{WithClock(func() time.Time { return clock.Add(time.Second) })}, options...)
	return NewQueue(NewReplier(bus, popupTabID), options...)
}

func currentID(t *testing.T, queue *Queue) string {
	t.Helper()
	request, _, err := queue.Current(context.Background())
	require.NoError(t, err)
	return request.AuthID
}

func TestQueue_Enqueue(t *testing.T) {
	ctx := context.Background()
	queue := newQueue(&mockBus{})

	_, _, err := queue.Current(ctx)
	assert.ErrorIs(t, err, authbridge.ErrNotFound)

	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.ConnectData{}, "a1", 0)))
	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.SignData{}, "a2", 1)))
	assert.Equal(t, "a1", currentID(t, queue), "earliest pending stays selected")

	err = queue.Enqueue(ctx, newRequest(&authbridge.SignData{}, "a2", 2))
	assert.ErrorIs(t, err, authbridge.ErrDuplicateRequest)

	err = queue.Enqueue(ctx, newRequest(&authbridge.UnlockData{}, "a3", 3))
	assert.ErrorIs(t, err, authbridge.ErrInvalidMessage)

	accepted := newRequest(&authbridge.TokenData{}, "a4", 4)
	accepted.Status = authbridge.StatusAccepted
	assert.ErrorIs(t, queue.Enqueue(ctx, accepted), authbridge.ErrInvalidMessage)

	requests, err := queue.Requests(ctx)
	require.NoError(t, err)
	assert.Len(t, requests, 2)
}

func TestQueue_UnlockSlot(t *testing.T) {
	ctx := context.Background()
	queue := newQueue(&mockBus{})

	first := newRequest(&authbridge.UnlockData{}, authbridge.UnlockAuthID, 0)
	first.URL = "https://first.example.com"
	second := newRequest(&authbridge.UnlockData{}, authbridge.UnlockAuthID, 1)
	second.URL = "https://second.example.com"
	require.NoError(t, queue.Enqueue(ctx, first))
	require.NoError(t, queue.Enqueue(ctx, second))

	requests, err := queue.Requests(ctx)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "https://second.example.com", requests[0].URL)
}

func TestQueue_Resolve(t *testing.T) {
	ctx := context.Background()
	bus := &mockBus{}
	changes := 0
	queue := newQueue(bus, WithChangeListener(func() { changes++ }))
	for i, authID := range []string{"a1", "a2", "a3"} {
		require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.SignData{Address: authID}, authID, i)))
	}
	require.NoError(t, queue.Select(ctx, "a2"))
	assert.ErrorIs(t, queue.Select(ctx, "missing"), authbridge.ErrNotFound)

	require.NoError(t, queue.Accept(ctx, "a2", map[string]string{"signature": "sig"}))
	assert.Equal(t, "a3", currentID(t, queue), "selection advances to the next pending request")

	require.NoError(t, queue.Reject(ctx, "a3", ""))
	assert.Equal(t, "a1", currentID(t, queue), "selection wraps around")

	require.NoError(t, queue.Resolve(ctx, "a1", authbridge.StatusError, "signing failed"))
	_, index, err := queue.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, index)

	assert.ErrorIs(t, queue.Accept(ctx, "a1", nil), authbridge.ErrInvalidTransition)
	assert.ErrorIs(t, queue.Accept(ctx, "missing", nil), authbridge.ErrNotFound)

	results := bus.results()
	require.Len(t, results, 3)
	assert.Equal(t, "a2", results[0].AuthID)
	assert.False(t, results[0].Error)
	assert.JSONEq(t, `{"signature":"sig"}`, string(results[0].Data))
	assert.True(t, results[1].Error)
	assert.Equal(t, authbridge.RejectedMessage, results[1].Message())
	assert.True(t, results[2].Error)
	assert.Equal(t, "signing failed", results[2].Message())
	for _, message := range bus.sent {
		assert.Equal(t, authbridge.PopupTab(popupTabID), message.Sender)
		assert.Equal(t, authbridge.Background, message.Destination)
	}

	request, err := queue.Get(ctx, "a2")
	require.NoError(t, err)
	assert.Equal(t, authbridge.StatusAccepted, request.Status)
	assert.EqualValues(t, clock.Add(time.Second).UnixMilli(), *request.CompletedAt)

	pending, err := queue.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Equal(t, 7, changes)
}

func TestQueue_ResolveReplyFailure(t *testing.T) {
	ctx := context.Background()
	bus := &mockBus{}
	queue := newQueue(bus)
	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.ConnectData{}, "a1", 0)))

	failure := errors.New("bus down")
	bus.sendErr = failure
	assert.ErrorIs(t, queue.Accept(ctx, "a1", true), failure)
	request, err := queue.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, authbridge.StatusPending, request.Status, "the request stays pending when the reply fails")

	bus.sendErr = nil
	require.NoError(t, queue.Accept(ctx, "a1", true))
}

func TestQueue_Abort(t *testing.T) {
	ctx := context.Background()
	bus := &mockBus{}
	queue := newQueue(bus)
	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.ConnectData{}, "a1", 0)))
	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.ConnectData{}, "a2", 1)))

	require.NoError(t, queue.Abort(ctx, "a1", "timeout"))
	assert.Equal(t, "a2", currentID(t, queue))
	assert.Empty(t, bus.results(), "abort does not reply")
	assert.ErrorIs(t, queue.Abort(ctx, "a1", "timeout"), authbridge.ErrInvalidTransition)
	assert.ErrorIs(t, queue.Abort(ctx, "missing", "timeout"), authbridge.ErrNotFound)
}

func TestQueue_Prune(t *testing.T) {
	ctx := context.Background()
	now := clock.Add(time.Hour)
	queue := NewQueue(NewReplier(&mockBus{}, popupTabID), WithClock(func() time.Time { return now }))
	for i, authID := range []string{"a1", "a2", "a3", "a4"} {
		require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.TokenData{TokenID: authID}, authID, i)))
	}
	now = clock
	require.NoError(t, queue.Accept(ctx, "a1", true))
	require.NoError(t, queue.Accept(ctx, "a2", true))
	now = clock.Add(time.Hour)
	require.NoError(t, queue.Reject(ctx, "a4", ""))
	require.NoError(t, queue.Select(ctx, "a4"))

	removed, err := queue.Prune(ctx, 30*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	request, index, err := queue.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a4", request.AuthID)
	assert.Equal(t, 1, index)

	removed, err = queue.Prune(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	request, index, err = queue.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a3", request.AuthID)
	assert.Equal(t, 0, index, "index is clamped after the selected entry is pruned")
}

func TestQueue_CloseAndRestore(t *testing.T) {
	ctx := context.Background()
	bus := &mockBus{}
	store := NewMemoryStore()
	queue := newQueue(bus, WithStore(store))
	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.ConnectData{}, "a1", 0)))
	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.SignData{}, "a2", 1)))
	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.SignData{}, "a3", 2)))
	require.NoError(t, queue.Accept(ctx, "a1", true))

	restored := newQueue(&mockBus{}, WithStore(store))
	count, err := restored.Restore(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, "a2", currentID(t, restored))

	require.NoError(t, queue.Close(ctx))
	results := bus.results()
	require.Len(t, results, 3)
	for _, result := range results[1:] {
		assert.True(t, result.Error)
		assert.ErrorIs(t, result.Err(), authbridge.ErrAborted)
	}
	pending, err := queue.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestQueue_SelectionFollowsAuthID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	queue := newQueue(&mockBus{}, WithStore(store))

	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.UnlockData{}, authbridge.UnlockAuthID, 0)))
	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.ConnectData{}, "a1", 0)))
	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.SignData{}, "a2", 0)))
	require.NoError(t, queue.Select(ctx, authbridge.UnlockAuthID))

	require.NoError(t, queue.Enqueue(ctx, newRequest(&authbridge.UnlockData{}, authbridge.UnlockAuthID, 5)))
	request, index, err := queue.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, authbridge.UnlockAuthID, request.AuthID, "a replaced unlock keeps the selection")
	assert.Equal(t, 0, index)

	require.NoError(t, queue.Select(ctx, "a2"))
	require.NoError(t, store.Delete(ctx, authbridge.UnlockAuthID))
	request, index, err = queue.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, "a2", request.AuthID, "entries leaving the store do not move the selection")
	assert.Equal(t, 1, index)

	require.NoError(t, store.Delete(ctx, "a2"))
	assert.Equal(t, "a1", currentID(t, queue), "a removed selection falls back to the earliest pending request")
}
