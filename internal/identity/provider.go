// Package identity supplies randomized browser header bundles and the configured
// session credentials for each outgoing request.
package identity

import (
	"fmt"
	"math/rand/v2"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
)

// Provider hands out header bundles and credentials. It never fails.
type Provider struct {
	mu          sync.Mutex
	rnd         *rand.Rand
	pools       map[crawler.IdentityProfile][]http.Header
	credentials map[string]string
}

// Option customizes a Provider.
type Option func(*Provider)

// WithRand fixes the random source (for deterministic tests).
func WithRand(rnd *rand.Rand) Option {
	return func(p *Provider) {
		if rnd != nil {
			p.rnd = rnd
		}
	}
}

// WithPool replaces the header pool for one profile.
func WithPool(profile crawler.IdentityProfile, pool []http.Header) Option {
	return func(p *Provider) {
		if len(pool) > 0 {
			p.pools[profile] = pool
		}
	}
}

// New builds a Provider from a raw semicolon-delimited credential string.
func New(rawCredentials string, opts ...Option) *Provider {
	p := &Provider{
		rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		pools: map[crawler.IdentityProfile][]http.Header{
			crawler.ProfileDesktop: desktopPool(),
			crawler.ProfileMobile:  mobilePool(),
		},
		credentials: ParseCredentials(rawCredentials),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NextHeaders returns a randomly chosen bundle for profile. Unknown profiles use desktop.
func (p *Provider) NextHeaders(profile crawler.IdentityProfile) http.Header {
	pool, ok := p.pools[profile]
	if !ok || len(pool) == 0 {
		pool = p.pools[crawler.ProfileDesktop]
	}
	p.mu.Lock()
	idx := p.rnd.IntN(len(pool))
	p.mu.Unlock()
	return pool[idx].Clone()
}

// Credentials returns a copy of the configured session tokens. Empty is valid.
func (p *Provider) Credentials() map[string]string {
	out := make(map[string]string, len(p.credentials))
	for k, v := range p.credentials {
		out[k] = v
	}
	return out
}

// HasCredentials reports whether any session token is configured.
func (p *Provider) HasCredentials() bool {
	return len(p.credentials) > 0
}

// RequestContext bundles fresh headers and credentials for one fetch.
func (p *Provider) RequestContext(profile crawler.IdentityProfile) crawler.RequestContext {
	return crawler.RequestContext{
		Headers:     p.NextHeaders(profile),
		Credentials: p.Credentials(),
	}
}

// ParseCredentials parses "k1=v1; k2=v2". Items without '=' or with empty keys are skipped.
func ParseCredentials(raw string) map[string]string {
	out := make(map[string]string)
	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// CookieHeader renders credentials as a Cookie header value in key order.
func CookieHeader(credentials map[string]string) string {
	if len(credentials) == 0 {
		return ""
	}
	keys := make([]string, 0, len(credentials))
	for k := range credentials {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+credentials[k])
	}
	return strings.Join(parts, "; ")
}

// RequestHeaders merges a request context's header bundle with its Cookie header.
func RequestHeaders(rc crawler.RequestContext) http.Header {
	hdr := rc.Headers.Clone()
	if hdr == nil {
		hdr = make(http.Header)
	}
	if cookie := CookieHeader(rc.Credentials); cookie != "" {
		hdr.Set("Cookie", cookie)
	}
	return hdr
}

// LoadCredentialFile reads the cookie string from an INI side store
// (section "requests", key "cookie").
func LoadCredentialFile(path string) (string, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("ini")
	if err := v.ReadInConfig(); err != nil {
		return "", fmt.Errorf("read credential file %s: %w", path, err)
	}
	return strings.TrimSpace(v.GetString("requests.cookie")), nil
}
