package popup

import (
	"context"
	"errors"
)

// ErrTabNotFound indicates the queried tab does not exist.
var ErrTabNotFound = errors.New("tab not found")

// Tab is a tab of the windowing system.
type Tab struct {
	ID       int    `json:"id"`
	WindowID int    `json:"windowId"`
	URL      string `json:"url"`
}

// WindowOptions describes a window to create.
type WindowOptions struct {
	URL     string
	Width   int
	Height  int
	Focused bool
	Type    string
}

// Windows is the windowing collaborator used to create and look up the popup.
type Windows interface {
	CreateWindow(ctx context.Context, options *WindowOptions) (*Tab, error)
	// GetTab returns ErrTabNotFound when the tab does not exist.
	GetTab(ctx context.Context, tabID int) (*Tab, error)
}

// TabEvents notifies about tab changes; the returned function unsubscribes.
type TabEvents interface {
	OnTabUpdated(listener func(tab Tab)) func()
	OnTabRemoved(listener func(tabID int)) func()
}
