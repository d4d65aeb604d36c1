package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"github.com/pterm/pterm"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/viant/authbridge"
	"github.com/viant/authbridge/background"
	"github.com/viant/authbridge/popup"
)

var requestCmd = &cobra.Command{
	Use:   "request <type>",
	Short: "Issue one authorization request and wait for the decision",
	Long: `Issue one authorization request and print the popup reply.

Types: ` + strings.Join(lo.Map(authbridge.AuthTypes, func(t authbridge.AuthType, _ int) string { return string(t) }), ", ") + `

Examples:
  authbridge request connect --url https://app.example.com --data '{"permissions":["ACCESS_ADDRESS"]}'
  authbridge request unlock --auto accept`,
	Args: cobra.ExactArgs(1),
	RunE: runRequestCmd,
}

var (
	requestURL   string
	requestTabID int
	requestData  string
	requestAuto  string
)

func init() {
	rootCmd.AddCommand(requestCmd)
	requestCmd.Flags().StringVar(&requestURL, "url", "https://localhost", "Origin of the requesting app")
	requestCmd.Flags().IntVar(&requestTabID, "tab", 0, "Originating tab id")
	requestCmd.Flags().StringVar(&requestData, "data", "{}", "Request payload as JSON")
	requestCmd.Flags().StringVar(&requestAuto, "auto", "", "Inline popup decision without prompting: accept or reject")
}

func runRequestCmd(cmd *cobra.Command, args []string) error {
	authType := authbridge.AuthType(args[0])
	if !lo.Contains(authbridge.AuthTypes, authType) {
		return fmt.Errorf("%w: %q", authbridge.ErrUnknownAuthType, authType)
	}
	data, err := decodeData(authType, []byte(requestData))
	if err != nil {
		return err
	}
	decide, err := decider(requestAuto)
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
	coordinator, err := newHostCoordinator(ctx, rt, decide)
	if err != nil {
		return err
	}
	result, err := coordinator.Request(ctx, data, authbridge.AppContext{URL: requestURL, TabID: requestTabID})
	if err != nil {
		pterm.Error.Printfln("%s request %s: %v", authType, background.Outcome(err), err)
		return err
	}
	pterm.Success.Printfln("%s request accepted: %s", authType, string(result.Data))
	return nil
}

// newHostCoordinator starts a coordinator whose popups are processes when Redis is
// configured and inline goroutines otherwise.
func newHostCoordinator(ctx context.Context, rt *runtime, decide func(*authbridge.Request) (bool, error)) (*background.Coordinator, error) {
	var windows interface {
		popup.Windows
		popup.TabEvents
	}
	if rt.distributed() {
		windows = rt.processWindows()
	} else {
		store := rt.store()
		windows = newInlineWindows(ctx, func(ctx context.Context, tabID int) error {
			aPopup := &terminalPopup{bus: rt.bus, tabID: tabID, store: store, logger: rt.logger, decide: decide}
			return aPopup.run(ctx)
		})
	}
	return rt.coordinator(ctx, windows, windows)
}

// decodeData decodes a JSON payload into the data variant of authType.
func decodeData(authType authbridge.AuthType, raw []byte) (authbridge.Data, error) {
	ret, err := authbridge.NewData(authType)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return ret, nil
	}
	if err = json.Unmarshal(raw, ret); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", authType, err)
	}
	return ret, nil
}
