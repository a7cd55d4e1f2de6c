// Package detector recognizes responses where the site served a verification or
// login surface instead of content.
package detector

import "strings"

// DefaultMarkers are the final-address substrings that indicate a detection redirect.
var DefaultMarkers = []string{"verify", "login"}

// Redirect matches final addresses against a marker list.
type Redirect struct {
	markers []string
}

// NewRedirect builds a matcher. Empty input falls back to DefaultMarkers.
func NewRedirect(markers []string) *Redirect {
	cleaned := make([]string, 0, len(markers))
	seen := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		cleaned = append(cleaned, m)
	}
	if len(cleaned) == 0 {
		cleaned = append(cleaned, DefaultMarkers...)
	}
	return &Redirect{markers: cleaned}
}

// Matches reports whether address contains any marker, case-insensitively.
func (r *Redirect) Matches(address string) bool {
	if r == nil || address == "" {
		return false
	}
	lower := strings.ToLower(address)
	for _, m := range r.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Markers returns a copy of the active marker list.
func (r *Redirect) Markers() []string {
	return append([]string(nil), r.markers...)
}

var defaultRedirect = NewRedirect(nil)

// LooksLikeDetectionRedirect applies the default markers to a final address.
func LooksLikeDetectionRedirect(address string) bool {
	return defaultRedirect.Matches(address)
}
