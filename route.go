package authbridge

import (
	"fmt"
	"strings"
)

// Route returns the popup route addressing a request.
func Route(authType AuthType, authID string) string {
	if authType == AuthTypeUnlock {
		return "#/unlock"
	}
	return "#/" + string(authType) + "/" + authID
}

// ParseRoute is the inverse of Route.
func ParseRoute(route string) (AuthType, string, error) {
	path := strings.TrimPrefix(strings.TrimPrefix(route, "#"), "/")
	if path == string(AuthTypeUnlock) {
		return AuthTypeUnlock, UnlockAuthID, nil
	}
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] == "" {
		return "", "", fmt.Errorf("invalid auth route: %q", route)
	}
	authType := AuthType(parts[0])
	if _, err := NewData(authType); err != nil || authType == AuthTypeUnlock {
		return "", "", fmt.Errorf("invalid auth route: %q: %w", route, ErrUnknownAuthType)
	}
	return authType, parts[1], nil
}
