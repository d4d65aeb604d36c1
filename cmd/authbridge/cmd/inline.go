package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/authbridge/popup"
)

// inlineWindows runs popups as goroutines of the host process; used with the in-process bus.
type inlineWindows struct {
	run func(ctx context.Context, tabID int) error

	mux      sync.Mutex
	ctx      context.Context
	seq      int
	tabs     map[int]popup.Tab
	listener int
	removed  map[int]func(tabID int)
}

func (w *inlineWindows) CreateWindow(_ context.Context, options *popup.WindowOptions) (*popup.Tab, error) {
	w.mux.Lock()
	w.seq++
	tab := popup.Tab{ID: w.seq, WindowID: w.seq, URL: options.URL}
	w.tabs[tab.ID] = tab
	ctx := w.ctx
	w.mux.Unlock()
	go func() {
		_ = w.run(ctx, tab.ID)
		w.remove(tab.ID)
	}()
	return &tab, nil
}

func (w *inlineWindows) GetTab(_ context.Context, tabID int) (*popup.Tab, error) {
	w.mux.Lock()
	defer w.mux.Unlock()
	tab, ok := w.tabs[tabID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", popup.ErrTabNotFound, tabID)
	}
	return &tab, nil
}

// OnTabUpdated never fires; inline popups do not navigate.
func (w *inlineWindows) OnTabUpdated(func(tab popup.Tab)) func() {
	return func() {}
}

func (w *inlineWindows) OnTabRemoved(listener func(tabID int)) func() {
	w.mux.Lock()
	defer w.mux.Unlock()
	w.listener++
	id := w.listener
	w.removed[id] = listener
	return func() {
		w.mux.Lock()
		defer w.mux.Unlock()
		delete(w.removed, id)
	}
}

func (w *inlineWindows) remove(tabID int) {
	w.mux.Lock()
	delete(w.tabs, tabID)
	listeners := make([]func(int), 0, len(w.removed))
	for _, listener := range w.removed {
		listeners = append(listeners, listener)
	}
	w.mux.Unlock()
	for _, listener := range listeners {
		listener(tabID)
	}
}

func newInlineWindows(ctx context.Context, run func(ctx context.Context, tabID int) error) *inlineWindows {
	return &inlineWindows{
		run:     run,
		ctx:     ctx,
		tabs:    map[int]popup.Tab{},
		removed: map[int]func(tabID int){},
	}
}
