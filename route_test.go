package authbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoute(t *testing.T) {
	testCases := []struct {
		authType AuthType
		authID   string
		expected string
	}{
		{authType: AuthTypeConnect, authID: "a1", expected: "#/connect/a1"},
		{authType: AuthTypeBatchSignDataItem, authID: "b2", expected: "#/batchSignDataItem/b2"},
		{authType: AuthTypeUnlock, authID: UnlockAuthID, expected: "#/unlock"},
	}
	for _, tc := range testCases {
		route := Route(tc.authType, tc.authID)
		assert.Equal(t, tc.expected, route)
		authType, authID, err := ParseRoute(route)
		require.NoError(t, err, route)
		assert.Equal(t, tc.authType, authType)
		assert.Equal(t, tc.authID, authID)
	}
}

func TestParseRoute_Invalid(t *testing.T) {
	for _, route := range []string{"", "#/", "#/connect", "#/connect/", "#/teleport/a1", "#/unlock/a1", "#/sign/a1/extra"} {
		_, _, err := ParseRoute(route)
		assert.Error(t, err, route)
	}
}
