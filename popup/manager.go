// Package popup guarantees a single shared authorization popup window.
package popup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/viant/authbridge"
	"github.com/viant/authbridge/lock"
)

// WindowTypePopup is the window type of the auth popup.
const WindowTypePopup = "popup"

// Manager creates or reuses the authorization popup. The recorded tab id is
// only written while holding the popup mutex.
type Manager struct {
	windows Windows
	mux     *lock.Mutex
	url     string
	width   int
	height  int
	logger  *slog.Logger
	created func(tab *Tab)

	state sync.Mutex
	tabID int
	ready chan struct{}
}

// EnsurePopup returns the popup tab id, creating the popup window when the
// recorded tab is missing or no longer shows the auth UI.
func (m *Manager) EnsurePopup(ctx context.Context) (int, error) {
	release, err := m.mux.Lock(ctx)
	if err != nil {
		return authbridge.NoTab, err
	}
	defer release()

	if current := m.Current(); current != authbridge.NoTab {
		tab, err := m.windows.GetTab(ctx, current)
		if err == nil && m.IsAuthTab(tab) {
			m.logger.Debug("reuse popup", "popup_tab_id", current)
			return current, nil
		}
		m.logger.Debug("popup tab is gone", "popup_tab_id", current, "error", err)
	}

	tab, err := m.windows.CreateWindow(ctx, &WindowOptions{
		URL:     m.url + "#/",
		Width:   m.width,
		Height:  m.height,
		Focused: true,
		Type:    WindowTypePopup,
	})
	if err != nil {
		return authbridge.NoTab, fmt.Errorf("failed to create auth popup: %w", err)
	}
	m.setTab(tab.ID)
	m.logger.Info("created popup", "popup_tab_id", tab.ID, "url", tab.URL)
	if m.created != nil {
		m.created(tab)
	}
	return tab.ID, nil
}

// IsAuthTab returns true when tab shows the auth UI.
func (m *Manager) IsAuthTab(tab *Tab) bool {
	return tab != nil && strings.HasPrefix(tab.URL, m.url)
}

// URL returns the auth UI root.
func (m *Manager) URL() string {
	return m.url
}

// Current returns the recorded popup tab id, or NoTab. The value is only a
// hint outside EnsurePopup.
func (m *Manager) Current() int {
	m.state.Lock()
	defer m.state.Unlock()
	return m.tabID
}

// Wait blocks until a popup tab is recorded.
func (m *Manager) Wait(ctx context.Context) (int, error) {
	for {
		m.state.Lock()
		tabID, ready := m.tabID, m.ready
		m.state.Unlock()
		if tabID != authbridge.NoTab {
			return tabID, nil
		}
		select {
		case <-ctx.Done():
			return authbridge.NoTab, ctx.Err()
		case <-ready:
		}
	}
}

// Forget clears the recorded tab if it equals tabID, so the next EnsurePopup creates a new popup.
func (m *Manager) Forget(tabID int) bool {
	m.state.Lock()
	defer m.state.Unlock()
	if tabID == authbridge.NoTab || m.tabID != tabID {
		return false
	}
	m.tabID = authbridge.NoTab
	m.ready = make(chan struct{})
	return true
}

func (m *Manager) setTab(tabID int) {
	m.state.Lock()
	defer m.state.Unlock()
	if m.tabID == authbridge.NoTab {
		close(m.ready)
	}
	m.tabID = tabID
}

// NewManager creates a popup manager for the auth UI served at url.
func NewManager(windows Windows, url string, options ...Option) *Manager {
	ret := &Manager{
		windows: windows,
		mux:     lock.New(),
		url:     url,
		width:   authbridge.DefaultPopupWidth,
		height:  authbridge.DefaultPopupHeight,
		logger:  slog.Default(),
		tabID:   authbridge.NoTab,
		ready:   make(chan struct{}),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}
