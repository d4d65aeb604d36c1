package popup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/authbridge"
)

const authURL = "chrome-extension://wallet/popup.html"

// mockWindows is an in-memory Windows.
type mockWindows struct {
	mutex     sync.Mutex
	tabs      map[int]*Tab
	seq       int
	created   []*WindowOptions
	createErr error
	delay     time.Duration
}

func (m *mockWindows) CreateWindow(_ context.Context, options *WindowOptions) (*Tab, error) {
	time.Sleep(m.delay)
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	m.seq++
	m.created = append(m.created, options)
	tab := &Tab{ID: 100 + m.seq, WindowID: m.seq, URL: options.URL}
	m.tabs[tab.ID] = tab
	ret := *tab
	return &ret, nil
}

func (m *mockWindows) GetTab(_ context.Context, tabID int) (*Tab, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	tab, ok := m.tabs[tabID]
	if !ok {
		return nil, ErrTabNotFound
	}
	ret := *tab
	return &ret, nil
}

func (m *mockWindows) closeTab(tabID int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.tabs, tabID)
}

func (m *mockWindows) navigate(tabID int, URL string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.tabs[tabID].URL = URL
}

func (m *mockWindows) createdCount() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.created)
}

func newMockWindows() *mockWindows {
	return &mockWindows{tabs: map[int]*Tab{}}
}

func TestManager_EnsurePopup(t *testing.T) {
	ctx := context.Background()

	t.Run("reuse", func(t *testing.T) {
		windows := newMockWindows()
		manager := NewManager(windows, authURL)
		first, err := manager.EnsurePopup(ctx)
		require.NoError(t, err)
		second, err := manager.EnsurePopup(ctx)
		require.NoError(t, err)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, windows.createdCount())
		options := windows.created[0]
		assert.Equal(t, authURL+"#/", options.URL)
		assert.Equal(t, authbridge.DefaultPopupWidth, options.Width)
		assert.Equal(t, authbridge.DefaultPopupHeight, options.Height)
		assert.True(t, options.Focused)
		assert.Equal(t, WindowTypePopup, options.Type)
	})

	t.Run("recreate closed tab", func(t *testing.T) {
		windows := newMockWindows()
		manager := NewManager(windows, authURL, WithSize(400, 600))
		first, err := manager.EnsurePopup(ctx)
		require.NoError(t, err)
		windows.closeTab(first)
		second, err := manager.EnsurePopup(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
		assert.Equal(t, second, manager.Current())
		assert.Equal(t, 2, windows.createdCount())
		assert.Equal(t, 400, windows.created[1].Width)
	})

	t.Run("recreate navigated tab", func(t *testing.T) {
		windows := newMockWindows()
		manager := NewManager(windows, authURL)
		first, err := manager.EnsurePopup(ctx)
		require.NoError(t, err)
		windows.navigate(first, "https://elsewhere.example.com")
		second, err := manager.EnsurePopup(ctx)
		require.NoError(t, err)
		assert.NotEqual(t, first, second)
		assert.Equal(t, 2, windows.createdCount())
	})

	t.Run("create failure keeps recorded tab", func(t *testing.T) {
		windows := newMockWindows()
		var createdTabs []*Tab
		manager := NewManager(windows, authURL, WithCreatedListener(func(tab *Tab) { createdTabs = append(createdTabs, tab) }))
		first, err := manager.EnsurePopup(ctx)
		require.NoError(t, err)
		windows.closeTab(first)
		failure := errors.New("no display")
		windows.createErr = failure
		_, err = manager.EnsurePopup(ctx)
		assert.ErrorIs(t, err, failure)
		assert.Equal(t, first, manager.Current())
		assert.Len(t, createdTabs, 1)
	})

	t.Run("concurrent callers create one window", func(t *testing.T) {
		windows := newMockWindows()
		windows.delay = 5 * time.Millisecond
		manager := NewManager(windows, authURL)
		var wg sync.WaitGroup
		ids := make([]int, 10)
		for i := range ids {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				id, err := manager.EnsurePopup(ctx)
				assert.NoError(t, err)
				ids[i] = id
			}(i)
		}
		wg.Wait()
		assert.Equal(t, 1, windows.createdCount())
		for _, id := range ids {
			assert.Equal(t, ids[0], id)
		}
	})
}

func TestManager_Wait(t *testing.T) {
	windows := newMockWindows()
	manager := NewManager(windows, authURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := manager.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	done := make(chan int, 1)
	go func() {
		tabID, err := manager.Wait(context.Background())
		assert.NoError(t, err)
		done <- tabID
	}()
	created, err := manager.EnsurePopup(context.Background())
	require.NoError(t, err)
	select {
	case tabID := <-done:
		assert.Equal(t, created, tabID)
	case <-time.After(time.Second):
		t.Fatal("Wait was not notified")
	}
}

func TestManager_Forget(t *testing.T) {
	windows := newMockWindows()
	manager := NewManager(windows, authURL)
	tabID, err := manager.EnsurePopup(context.Background())
	require.NoError(t, err)

	assert.False(t, manager.Forget(tabID+1))
	assert.Equal(t, tabID, manager.Current())
	assert.True(t, manager.Forget(tabID))
	assert.Equal(t, authbridge.NoTab, manager.Current())
	assert.False(t, manager.IsAuthTab(nil))
	assert.True(t, manager.IsAuthTab(&Tab{URL: authURL + "#/connect/a1"}))
}
