package authbridge

import "time"

// UnlockAuthID is the fixed correlation id reserved for unlock requests.
// Only one unlock flow can be outstanding, so it never gets a generated id.
const UnlockAuthID = "unlock-auth-request"

// KeepAliveAlarm is the alarm name scheduled while requests are outstanding.
const KeepAliveAlarm = "keep-alive"

const (
	// DefaultKeepAliveInterval is the cadence of keep-alive wake events.
	DefaultKeepAliveInterval = 20 * time.Second
	// DefaultRequestTimeout bounds how long a request waits for the user.
	DefaultRequestTimeout = 15 * time.Minute
	// DefaultPopupWidth and DefaultPopupHeight are the auth window dimensions.
	DefaultPopupWidth  = 385
	DefaultPopupHeight = 720
)

// NoTab marks the absence of a tab id.
const NoTab = -1
