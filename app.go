package authbridge

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// AppContext describes the page or app a request is made on behalf of.
type AppContext struct {
	URL   string `json:"url"`
	TabID int    `json:"tabID"`
}

// Origin returns scheme://host[:port] of the requesting page.
func (a AppContext) Origin() (string, error) {
	u, err := url.Parse(a.URL)
	if err != nil {
		return "", fmt.Errorf("invalid app url %q: %w", a.URL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid app url %q: missing scheme or host", a.URL)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Domain returns eTLD+1 of the requesting page (app.example.co.uk -> example.co.uk);
// IPs and localhost are returned as is.
func (a AppContext) Domain() (string, error) {
	u, err := url.Parse(a.URL)
	if err != nil {
		return "", fmt.Errorf("invalid app url %q: %w", a.URL, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("invalid app url %q: missing host", a.URL)
	}
	if net.ParseIP(host) != nil || isLocalhost(host) {
		return host, nil
	}
	return publicsuffix.EffectiveTLDPlusOne(host)
}

func isLocalhost(h string) bool {
	h = strings.ToLower(h)
	return h == "localhost" || strings.HasSuffix(h, ".localhost")
}
