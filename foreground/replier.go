package foreground

import (
	"context"
	"fmt"

	"github.com/viant/authbridge"
	"github.com/viant/authbridge/transport"
)

// Replier sends the user's decision back to the background.
type Replier struct {
	bus   transport.Bus
	tabID int
}

// Reply builds a result and sends it on the auth_result channel. The result is
// an error when errorMessage is set; data defaults to errorMessage.
func (r *Replier) Reply(ctx context.Context, authType authbridge.AuthType, authID string, errorMessage string, data interface{}) error {
	result, err := authbridge.NewResult(authType, authID, errorMessage, data)
	if err != nil {
		return err
	}
	message := authbridge.NewResultMessage(authbridge.PopupTab(r.tabID), authbridge.Background, result)
	if err = r.bus.Send(ctx, message); err != nil {
		return fmt.Errorf("failed to reply to %s request %s: %w", authType, authID, err)
	}
	return nil
}

// TabID returns the popup tab the replies are sent from.
func (r *Replier) TabID() int {
	return r.tabID
}

// NewReplier creates a Replier for the popup running in tabID.
func NewReplier(bus transport.Bus, tabID int) *Replier {
	return &Replier{bus: bus, tabID: tabID}
}
