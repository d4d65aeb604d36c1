// Package process implements the popup windowing collaborator by running the
// popup UI as a process, locally or on a remote host over ssh.
package process

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/viant/authbridge/internal/collection"
	"github.com/viant/authbridge/popup"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	"github.com/viant/gosh/runner/ssh"
	"github.com/viant/scy/cred/secret"
	cssh "golang.org/x/crypto/ssh"
)

// Environment variables passed to the popup process.
const (
	EnvTabID  = "AUTHBRIDGE_TAB_ID"
	EnvURL    = "AUTHBRIDGE_POPUP_URL"
	EnvWidth  = "AUTHBRIDGE_POPUP_WIDTH"
	EnvHeight = "AUTHBRIDGE_POPUP_HEIGHT"
)

// NavigatePrefix starts a popup stdout line reporting a new URL.
const NavigatePrefix = "navigate "

// RunnerFactory creates the runner of one popup process.
type RunnerFactory func(ctx context.Context) (runner.Runner, error)

// Windows launches one process per popup window; a tab lives as long as its process.
type Windows struct {
	command   string
	host      string
	secret    secret.Resource
	sshConfig *cssh.ClientConfig
	env       map[string]string
	factory   RunnerFactory
	logger    *slog.Logger

	mux      sync.Mutex
	seq      int
	windows  map[int]*window
	listener uint64
	updated  *collection.SyncMap[uint64, func(tab popup.Tab)]
	removed  *collection.SyncMap[uint64, func(tabID int)]
}

type window struct {
	tab    popup.Tab
	runner runner.Runner
	cancel context.CancelFunc
}

// CreateWindow starts the popup command and returns its tab.
func (w *Windows) CreateWindow(ctx context.Context, options *popup.WindowOptions) (*popup.Tab, error) {
	aRunner, err := w.newRunner(ctx)
	if err != nil {
		return nil, err
	}
	w.mux.Lock()
	w.seq++
	tab := popup.Tab{ID: w.seq, WindowID: w.seq, URL: options.URL}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w.windows[tab.ID] = &window{tab: tab, runner: aRunner, cancel: cancel}
	w.mux.Unlock()

	env := map[string]string{
		EnvTabID:  strconv.Itoa(tab.ID),
		EnvURL:    options.URL,
		EnvWidth:  strconv.Itoa(options.Width),
		EnvHeight: strconv.Itoa(options.Height),
	}
	for k, v := range w.env {
		env[k] = v
	}
	go w.run(runCtx, aRunner, tab.ID, env)
	w.logger.Debug("popup process started", "tab_id", tab.ID, "command", w.command, "host", w.host)
	ret := tab
	return &ret, nil
}

// GetTab returns the tab of a running popup process.
func (w *Windows) GetTab(_ context.Context, tabID int) (*popup.Tab, error) {
	w.mux.Lock()
	defer w.mux.Unlock()
	aWindow, ok := w.windows[tabID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", popup.ErrTabNotFound, tabID)
	}
	ret := aWindow.tab
	return &ret, nil
}

// Navigate changes the URL of a tab and notifies the update listeners.
func (w *Windows) Navigate(tabID int, URL string) error {
	w.mux.Lock()
	aWindow, ok := w.windows[tabID]
	var tab popup.Tab
	if ok {
		aWindow.tab.URL = URL
		tab = aWindow.tab
	}
	w.mux.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", popup.ErrTabNotFound, tabID)
	}
	w.updated.Range(func(_ uint64, listener func(tab popup.Tab)) bool {
		listener(tab)
		return true
	})
	return nil
}

// Close terminates the popup process of tabID.
func (w *Windows) Close(tabID int) error {
	w.mux.Lock()
	aWindow, ok := w.windows[tabID]
	w.mux.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", popup.ErrTabNotFound, tabID)
	}
	aWindow.cancel()
	return aWindow.runner.Close()
}

// OnTabUpdated registers a listener for URL changes.
func (w *Windows) OnTabUpdated(listener func(tab popup.Tab)) func() {
	id := atomic.AddUint64(&w.listener, 1)
	w.updated.Put(id, listener)
	return func() { w.updated.Delete(id) }
}

// OnTabRemoved registers a listener for terminated popup processes.
func (w *Windows) OnTabRemoved(listener func(tabID int)) func() {
	id := atomic.AddUint64(&w.listener, 1)
	w.removed.Put(id, listener)
	return func() { w.removed.Delete(id) }
}

func (w *Windows) run(ctx context.Context, aRunner runner.Runner, tabID int, env map[string]string) {
	output, code, err := aRunner.Run(ctx, w.command, runner.WithEnvironment(env), runner.WithListener(w.stdoutListener(tabID)))
	if err != nil && ctx.Err() == nil {
		w.logger.Warn("popup process failed", "tab_id", tabID, "error", err)
	} else if code > 0 {
		w.logger.Warn("popup process exited", "tab_id", tabID, "code", code, "output", output)
	}
	w.remove(tabID)
}

func (w *Windows) remove(tabID int) {
	w.mux.Lock()
	aWindow, ok := w.windows[tabID]
	delete(w.windows, tabID)
	w.mux.Unlock()
	if !ok {
		return
	}
	aWindow.cancel()
	w.logger.Debug("popup process removed", "tab_id", tabID)
	w.removed.Range(func(_ uint64, listener func(tabID int)) bool {
		listener(tabID)
		return true
	})
}

// stdoutListener reports "navigate <url>" lines as tab updates.
func (w *Windows) stdoutListener(tabID int) runner.Listener {
	var builder strings.Builder
	return func(stdout string, hasMore bool) {
		builder.WriteString(stdout)
		for {
			pending := builder.String()
			index := strings.Index(pending, "\n")
			if index == -1 {
				return
			}
			line := strings.TrimSpace(pending[:index])
			builder.Reset()
			builder.WriteString(pending[index+1:])
			if URL, ok := strings.CutPrefix(line, NavigatePrefix); ok {
				if err := w.Navigate(tabID, strings.TrimSpace(URL)); err != nil {
					w.logger.Debug("ignoring navigation", "tab_id", tabID, "error", err)
				}
			}
		}
	}
}

func (w *Windows) newRunner(ctx context.Context) (runner.Runner, error) {
	if w.factory != nil {
		return w.factory(ctx)
	}
	if err := w.ensureSSHConfig(ctx); err != nil {
		return nil, err
	}
	options := []runner.Option{runner.AsPipeline()}
	if w.sshConfig != nil {
		return ssh.New(w.host, w.sshConfig, options...), nil
	}
	return local.New(options...), nil
}

func (w *Windows) ensureSSHConfig(ctx context.Context) error {
	if w.sshConfig != nil || w.host == "" {
		return nil
	}
	if w.secret == "" {
		return fmt.Errorf("ssh secret is required for popup host: %s", w.host)
	}
	cred, err := secret.New().GetCredentials(ctx, string(w.secret))
	if err != nil {
		return fmt.Errorf("failed to load ssh credentials for %s: %w", w.host, err)
	}
	config, err := cred.SSH.Config(ctx)
	if err != nil {
		return err
	}
	w.mux.Lock()
	w.sshConfig = config
	w.mux.Unlock()
	return nil
}

// New creates Windows running command for every popup.
func New(command string, options ...Option) *Windows {
	ret := &Windows{
		command: command,
		logger:  slog.Default(),
		windows: map[int]*window{},
		updated: collection.NewSyncMap[uint64, func(tab popup.Tab)](),
		removed: collection.NewSyncMap[uint64, func(tabID int)](),
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}
