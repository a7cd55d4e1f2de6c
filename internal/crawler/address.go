package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// NormalizeAddress validates a strategy address and puts it in canonical form:
// lowercase scheme and host, no default port, no fragment. Only absolute http
// and https addresses are accepted.
func NormalizeAddress(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", fmt.Errorf("parse address: %w", err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("address %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("address %q: host is required", raw)
	}
	u.Host = strings.ToLower(u.Host)
	if u.Scheme == "http" {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	} else {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}
