package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/viant/authbridge"
	"github.com/viant/authbridge/foreground"
	"github.com/viant/authbridge/transport"
	"github.com/viant/authbridge/window/process"
)

var popupCmd = &cobra.Command{
	Use:   "popup",
	Short: "Run the terminal popup that lists and resolves authorization requests",
	Long: `Run the popup UI in the terminal. The background host starts this command
for every popup window with AUTHBRIDGE_TAB_ID and AUTHBRIDGE_POPUP_URL set.

Examples:
  # Approve or reject interactively
  authbridge popup --tab 1 -c config.yaml

  # Reject everything (useful for smoke tests)
  authbridge popup --tab 1 --auto reject`,
	RunE: runPopupCmd,
}

var (
	popupTabID int
	popupAuto  string
)

const (
	autoAccept = "accept"
	autoReject = "reject"
)

func init() {
	rootCmd.AddCommand(popupCmd)
	popupCmd.Flags().IntVar(&popupTabID, "tab", envInt(process.EnvTabID, 1), "Popup tab id")
	popupCmd.Flags().StringVar(&popupAuto, "auto", "", "Decide without prompting: accept or reject")
}

func runPopupCmd(cmd *cobra.Command, args []string) error {
	if configURL == "" {
		configURL = os.Getenv("AUTHBRIDGE_CONFIG")
	}
	decide, err := decider(popupAuto)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	if !rt.distributed() {
		return fmt.Errorf("popup process requires redis.url to reach the background host")
	}
	aPopup := &terminalPopup{bus: rt.bus, tabID: popupTabID, store: rt.store(), logger: rt.logger, decide: decide}
	return aPopup.run(ctx)
}

// terminalPopup shows the queue in the terminal and asks the user to decide on each pending request.
type terminalPopup struct {
	bus    transport.Bus
	tabID  int
	store  foreground.Store
	logger *slog.Logger
	decide func(request *authbridge.Request) (bool, error)
}

func (p *terminalPopup) run(ctx context.Context) error {
	changes := make(chan struct{}, 1)
	notify := func() {
		select {
		case changes <- struct{}{}:
		default:
		}
	}
	queue := foreground.NewQueue(foreground.NewReplier(p.bus, p.tabID),
		foreground.WithStore(p.store),
		foreground.WithLogger(p.logger),
		foreground.WithChangeListener(notify),
	)
	listener := foreground.NewListener(p.bus, queue, p.tabID, p.logger)
	if err := listener.Start(ctx); err != nil {
		return err
	}
	defer listener.Close()
	defer func() {
		if err := queue.Close(context.WithoutCancel(ctx)); err != nil {
			p.logger.Warn("failed to abort pending requests", "error", err)
		}
	}()
	if _, err := queue.Restore(ctx); err != nil {
		return err
	}
	notify()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
		}
		if err := p.process(ctx, queue); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
}

func (p *terminalPopup) process(ctx context.Context, queue *foreground.Queue) error {
	for {
		request, _, err := queue.Current(ctx)
		if errors.Is(err, authbridge.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if request.Status != authbridge.StatusPending {
			return nil
		}
		if err = p.render(ctx, queue); err != nil {
			return err
		}
		approved, err := p.decide(request)
		if err != nil {
			return err
		}
		if approved {
			err = queue.Accept(ctx, request.AuthID, acceptPayload(request))
		} else {
			err = queue.Reject(ctx, request.AuthID, "")
		}
		if errors.Is(err, authbridge.ErrInvalidTransition) {
			p.logger.Info("request no longer pending", "auth_id", request.AuthID)
			continue
		}
		if err != nil {
			return err
		}
	}
}

func (p *terminalPopup) render(ctx context.Context, queue *foreground.Queue) error {
	requests, err := queue.Requests(ctx)
	if err != nil {
		return err
	}
	rows := [][]string{{"#", "Type", "Domain", "Route", "Status"}}
	for i, request := range requests {
		domain, err := authbridge.AppContext{URL: request.URL}.Domain()
		if err != nil {
			domain = request.URL
		}
		rows = append(rows, []string{strconv.Itoa(i + 1), string(request.Type()), domain, authbridge.Route(request.Type(), request.AuthID), string(request.Status)})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}

func decider(auto string) (func(request *authbridge.Request) (bool, error), error) {
	switch auto {
	case autoAccept:
		return func(*authbridge.Request) (bool, error) { return true, nil }, nil
	case autoReject:
		return func(*authbridge.Request) (bool, error) { return false, nil }, nil
	case "":
		return func(request *authbridge.Request) (bool, error) {
			domain, err := authbridge.AppContext{URL: request.URL}.Domain()
			if err != nil {
				domain = request.URL
			}
			confirm := pterm.DefaultInteractiveConfirm
			confirm.DefaultText = fmt.Sprintf("Approve %s request from %s?", request.Type(), domain)
			return confirm.Show()
		}, nil
	}
	return nil, fmt.Errorf("unsupported --auto value %q, expected %s or %s", auto, autoAccept, autoReject)
}

// acceptPayload is the reply data of an approved request.
func acceptPayload(request *authbridge.Request) interface{} {
	switch data := request.Data.(type) {
	case *authbridge.ConnectData:
		return map[string]interface{}{"permissions": data.Permissions}
	case *authbridge.UnlockData:
		return true
	}
	return map[string]interface{}{"approved": true}
}

func envInt(key string, fallback int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return value
}
