package foreground

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/authbridge"
	"github.com/viant/authbridge/transport/memory"
)

func TestListener(t *testing.T) {
	ctx := context.Background()
	bus := memory.New()
	defer bus.Close()
	queue := NewQueue(NewReplier(bus, popupTabID))
	listener := NewListener(bus, queue, popupTabID, nil)
	require.NoError(t, listener.Start(ctx))
	require.NoError(t, listener.Start(ctx))

	mine := newRequest(&authbridge.ConnectData{}, "a1", 0)
	other := newRequest(&authbridge.ConnectData{}, "a2", 1)
	require.NoError(t, bus.Send(ctx, authbridge.NewRequestMessage(authbridge.Background, authbridge.PopupTab(popupTabID+1), other)))
	require.NoError(t, bus.Send(ctx, authbridge.NewRequestMessage(authbridge.Background, authbridge.PopupTab(popupTabID), mine)))

	require.Eventually(t, func() bool {
		requests, err := queue.Requests(ctx)
		return err == nil && len(requests) == 1
	}, time.Second, time.Millisecond)
	requests, _ := queue.Requests(ctx)
	assert.Equal(t, "a1", requests[0].AuthID, "requests for other tabs are ignored")

	abort := &authbridge.Abort{Type: authbridge.AuthTypeConnect, AuthID: "a1", Reason: "timeout"}
	require.NoError(t, bus.Send(ctx, authbridge.NewAbortMessage(authbridge.Background, authbridge.PopupTab(popupTabID+1), abort)))
	time.Sleep(10 * time.Millisecond)
	request, err := queue.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, authbridge.StatusPending, request.Status)

	require.NoError(t, bus.Send(ctx, authbridge.NewAbortMessage(authbridge.Background, authbridge.PopupTab(popupTabID), abort)))
	require.Eventually(t, func() bool {
		request, err := queue.Get(ctx, "a1")
		return err == nil && request.Status == authbridge.StatusAborted
	}, time.Second, time.Millisecond)

	require.NoError(t, listener.Close())
	require.NoError(t, bus.Send(ctx, authbridge.NewRequestMessage(authbridge.Background, authbridge.PopupTab(popupTabID), newRequest(&authbridge.SignData{}, "a3", 2))))
	time.Sleep(10 * time.Millisecond)
	requests, _ = queue.Requests(ctx)
	assert.Len(t, requests, 1)
}
