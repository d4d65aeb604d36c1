package background

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/viant/authbridge"
	"github.com/viant/authbridge/idgen"
	"github.com/viant/authbridge/keepalive"
	"github.com/viant/authbridge/popup"
	"github.com/viant/authbridge/transport/memory"
)

const authURL = "chrome-extension://wallet/popup.html"

// mockWindows is an in-memory windowing system with tab events.
type mockWindows struct {
	mutex     sync.Mutex
	tabs      map[int]*popup.Tab
	seq       int
	createErr error
	updated   []func(tab popup.Tab)
	removed   []func(tabID int)
}

func (m *mockWindows) CreateWindow(_ context.Context, options *popup.WindowOptions) (*popup.Tab, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.seq++
	tab := &popup.Tab{ID: m.seq, WindowID: m.seq, URL: options.URL}
	m.tabs[tab.ID] = tab
	ret := *tab
	return &ret, nil
}

func (m *mockWindows) GetTab(_ context.Context, tabID int) (*popup.Tab, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	tab, ok := m.tabs[tabID]
	if !ok {
		return nil, popup.ErrTabNotFound
	}
	ret := *tab
	return &ret, nil
}

func (m *mockWindows) OnTabUpdated(listener func(tab popup.Tab)) func() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.updated = append(m.updated, listener)
	return func() {}
}

func (m *mockWindows) OnTabRemoved(listener func(tabID int)) func() {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.removed = append(m.removed, listener)
	return func() {}
}

func (m *mockWindows) removeTab(tabID int) {
	m.mutex.Lock()
	delete(m.tabs, tabID)
	listeners := append([]func(int){}, m.removed...)
	m.mutex.Unlock()
	for _, listener := range listeners {
		listener(tabID)
	}
}

func (m *mockWindows) navigateTab(tabID int, URL string) {
	m.mutex.Lock()
	m.tabs[tabID].URL = URL
	tab := *m.tabs[tabID]
	listeners := append([]func(popup.Tab){}, m.updated...)
	m.mutex.Unlock()
	for _, listener := range listeners {
		listener(tab)
	}
}

type outcome struct {
	result *authbridge.Result
	err    error
}

type harness struct {
	bus         *memory.Bus
	windows     *mockWindows
	popups      *popup.Manager
	alarms      *keepalive.MemoryAlarms
	keepAlive   *keepalive.Supervisor
	coordinator *Coordinator
	requests    chan *authbridge.Message
	aborts      chan *authbridge.Message
}

func newHarness(t *testing.T, options ...Option) *harness {
	t.Helper()
	ctx := context.Background()
	ret := &harness{
		bus:      memory.New(),
		windows:  &mockWindows{tabs: map[int]*popup.Tab{}},
		alarms:   keepalive.NewMemoryAlarms(),
		requests: make(chan *authbridge.Message, 16),
		aborts:   make(chan *authbridge.Message, 16),
	}
	ret.popups = popup.NewManager(ret.windows, authURL)
	ret.keepAlive = keepalive.New(ret.alarms, keepalive.WithInterval(time.Millisecond))
	var seq int64
	ids := idgen.Func(func() string { return fmt.Sprintf("id-%d", atomic.AddInt64(&seq, 1)) })
	options = append([]Option{WithIDGenerator(ids), WithTabEvents(ret.windows)}, options...)
	ret.coordinator = New(ret.bus, ret.popups, ret.keepAlive, options...)
	require.NoError(t, ret.coordinator.Start(ctx))
	_, err := ret.bus.Subscribe(ctx, authbridge.ChannelAuthRequest, func(ctx context.Context, message *authbridge.Message) {
		ret.requests <- message
	})
	require.NoError(t, err)
	_, err = ret.bus.Subscribe(ctx, authbridge.ChannelAuthAbort, func(ctx context.Context, message *authbridge.Message) {
		ret.aborts <- message
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = ret.coordinator.Close()
		_ = ret.bus.Close()
	})
	return ret
}

func (h *harness) request(ctx context.Context, data authbridge.Data) <-chan outcome {
	ret := make(chan outcome, 1)
	go func() {
		result, err := h.coordinator.Request(ctx, data, authbridge.AppContext{URL: "https://example.com", TabID: 42})
		ret <- outcome{result: result, err: err}
	}()
	return ret
}

func (h *harness) nextRequest(t *testing.T) *authbridge.Message {
	t.Helper()
	select {
	case message := <-h.requests:
		return message
	case <-time.After(time.Second):
		t.Fatal("no auth request sent")
	}
	return nil
}

func (h *harness) reply(t *testing.T, tabID int, authType authbridge.AuthType, authID string, errorMessage string, data interface{}) {
	t.Helper()
	result, err := authbridge.NewResult(authType, authID, errorMessage, data)
	require.NoError(t, err)
	require.NoError(t, h.bus.Send(context.Background(), authbridge.NewResultMessage(authbridge.PopupTab(tabID), authbridge.Background, result)))
}

func (h *harness) running(t *testing.T) bool {
	running, err := h.keepAlive.Running(context.Background())
	require.NoError(t, err)
	return running
}

func await(t *testing.T, outcomes <-chan outcome) outcome {
	t.Helper()
	select {
	case ret := <-outcomes:
		return ret
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete")
	}
	return outcome{}
}

func pending(t *testing.T, outcomes <-chan outcome) {
	t.Helper()
	select {
	case ret := <-outcomes:
		t.Fatalf("request completed unexpectedly: %+v", ret)
	case <-time.After(20 * time.Millisecond):
	}
}
