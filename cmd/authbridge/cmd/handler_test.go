package cmd

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/authbridge"
)

type mockRequester struct {
	data    authbridge.Data
	app     authbridge.AppContext
	result  *authbridge.Result
	err     error
	pending int
}

func (m *mockRequester) Request(_ context.Context, data authbridge.Data, app authbridge.AppContext) (*authbridge.Result, error) {
	m.data = data
	m.app = app
	return m.result, m.err
}

func (m *mockRequester) Pending() int { return m.pending }

func TestRequestHandler_Request(t *testing.T) {
	accepted, _ := authbridge.NewResult(authbridge.AuthTypeConnect, "a1", "", map[string][]string{"permissions": {"ACCESS_ADDRESS"}})
	rejected, _ := authbridge.NewResult(authbridge.AuthTypeConnect, "a1", authbridge.RejectedMessage, nil)
	aborted, _ := authbridge.NewResult(authbridge.AuthTypeConnect, "a1", authbridge.AbortedMessage, nil)

	testCases := []struct {
		name           string
		body           string
		requester      *mockRequester
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "accepted",
			body:           `{"type":"connect","permissions":["ACCESS_ADDRESS"],"url":"https://example.com","tabID":3}`,
			requester:      &mockRequester{result: accepted},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"type":"connect","authID":"a1","error":false,"data":{"permissions":["ACCESS_ADDRESS"]}}`,
		},
		{
			name:           "rejected",
			body:           `{"type":"connect","url":"https://example.com"}`,
			requester:      &mockRequester{err: rejected.Err()},
			expectedStatus: http.StatusForbidden,
			expectedBody:   `{"error":"connect auth request a1 rejected: User rejected the request","outcome":"rejected"}`,
		},
		{
			name:           "aborted",
			body:           `{"type":"connect","url":"https://example.com"}`,
			requester:      &mockRequester{err: aborted.Err()},
			expectedStatus: http.StatusGone,
			expectedBody:   `{"error":"connect auth request a1 rejected: aborted","outcome":"aborted"}`,
		},
		{
			name:           "timeout",
			body:           `{"type":"unlock"}`,
			requester:      &mockRequester{err: authbridge.ErrTimeout},
			expectedStatus: http.StatusGatewayTimeout,
			expectedBody:   `{"error":"auth request timed out","outcome":"timeout"}`,
		},
		{
			name:           "unknown type",
			body:           `{"type":"teleport"}`,
			requester:      &mockRequester{},
			expectedStatus: http.StatusBadRequest,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			handler := newRequestHandler(tc.requester, slog.Default())
			recorder := httptest.NewRecorder()
			handler.request(recorder, httptest.NewRequest(http.MethodPost, "/auth/request", strings.NewReader(tc.body)))
			assert.Equal(t, tc.expectedStatus, recorder.Code)
			if tc.expectedBody != "" {
				assert.JSONEq(t, tc.expectedBody, recorder.Body.String())
			}
		})
	}
}

func TestRequestHandler_PassesAppContext(t *testing.T) {
	requester := &mockRequester{result: &authbridge.Result{Type: authbridge.AuthTypeSign, AuthID: "a1"}}
	handler := newRequestHandler(requester, slog.Default())
	recorder := httptest.NewRecorder()
	body := `{"type":"sign","address":"addr","transaction":{"id":"tx"},"url":"https://app.example.com","tabID":9}`
	handler.request(recorder, httptest.NewRequest(http.MethodPost, "/auth/request", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, recorder.Code)

	data, ok := requester.data.(*authbridge.SignData)
	require.True(t, ok)
	assert.Equal(t, "addr", data.Address)
	assert.Equal(t, authbridge.AppContext{URL: "https://app.example.com", TabID: 9}, requester.app)
}

func TestRequestHandler_Pending(t *testing.T) {
	handler := newRequestHandler(&mockRequester{pending: 2}, slog.Default())
	recorder := httptest.NewRecorder()
	handler.pending(recorder, httptest.NewRequest(http.MethodGet, "/auth/pending", nil))
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.JSONEq(t, `{"pending":2}`, recorder.Body.String())
}

func TestDecodeData(t *testing.T) {
	data, err := decodeData(authbridge.AuthTypeConnect, []byte(`{"permissions":["ACCESS_ADDRESS"],"appInfo":{"name":"App"}}`))
	require.NoError(t, err)
	connect := data.(*authbridge.ConnectData)
	assert.Equal(t, []string{"ACCESS_ADDRESS"}, connect.Permissions)
	assert.Equal(t, "App", connect.AppInfo.Name)

	_, err = decodeData(authbridge.AuthTypeConnect, []byte(`{"permissions":1}`))
	assert.Error(t, err)
	_, err = decodeData("teleport", nil)
	assert.ErrorIs(t, err, authbridge.ErrUnknownAuthType)
}

func TestAcceptPayload(t *testing.T) {
	connect := &authbridge.Request{Data: &authbridge.ConnectData{Permissions: []string{"ACCESS_ADDRESS"}}}
	assert.Equal(t, map[string]interface{}{"permissions": []string{"ACCESS_ADDRESS"}}, acceptPayload(connect))
	assert.Equal(t, true, acceptPayload(&authbridge.Request{Data: &authbridge.UnlockData{}}))
	assert.Equal(t, map[string]interface{}{"approved": true}, acceptPayload(&authbridge.Request{Data: &authbridge.SignData{}}))
}
