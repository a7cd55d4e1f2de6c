// Package crawler defines core types shared across subsystems.
package crawler

import (
	"net/http"
	"strings"
	"time"
)

// DataSource tags a record batch with the strategy family that produced it.
type DataSource string

// Data source values persisted alongside every record.
const (
	DataSourcePrimary   DataSource = "primary"
	DataSourceAlternate DataSource = "alternate"
	DataSourceMobile    DataSource = "mobile"
)

// Valid reports whether the source is one of the known tags.
func (s DataSource) Valid() bool {
	switch s {
	case DataSourcePrimary, DataSourceAlternate, DataSourceMobile:
		return true
	default:
		return false
	}
}

// IdentityProfile selects the family of browser headers used for a strategy.
type IdentityProfile string

// Identity profiles understood by the identity provider.
const (
	ProfileDesktop IdentityProfile = "desktop"
	ProfileMobile  IdentityProfile = "mobile"
)

// Valid reports whether the profile is known.
func (p IdentityProfile) Valid() bool {
	return p == ProfileDesktop || p == ProfileMobile
}

// FetchStatus classifies the terminal outcome of a logical fetch.
type FetchStatus string

// Fetch outcomes produced by the request orchestrator.
const (
	FetchStatusOK                FetchStatus = "ok"
	FetchStatusHTTPError         FetchStatus = "http_error"
	FetchStatusNetworkError      FetchStatus = "network_error"
	FetchStatusDetectionRedirect FetchStatus = "detection_redirect"
	FetchStatusTimeout           FetchStatus = "timeout"
)

// RecordCandidate is a provisional extracted entity. Optional fields are nil when absent.
type RecordCandidate struct {
	Name           string   `json:"name"`
	ShopID         *string  `json:"shop_id,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	Address        *string  `json:"address,omitempty"`
	Category       *string  `json:"category,omitempty"`
	PricePerPerson *int     `json:"price_per_person,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
}

// Promotable reports whether the candidate carries a usable name.
func (c RecordCandidate) Promotable() bool {
	return strings.TrimSpace(c.Name) != ""
}

// Record is a promoted candidate plus provenance.
type Record struct {
	RecordCandidate
	CrawlTime  time.Time  `json:"crawl_time"`
	DataSource DataSource `json:"data_source"`
	RunID      string     `json:"run_id,omitempty"`
}

// Promote turns candidates into records, dropping the ones without a name.
func Promote(candidates []RecordCandidate, crawledAt time.Time, source DataSource, runID string) []Record {
	out := make([]Record, 0, len(candidates))
	for _, c := range candidates {
		if !c.Promotable() {
			continue
		}
		c.Name = strings.TrimSpace(c.Name)
		out = append(out, Record{
			RecordCandidate: c,
			CrawlTime:       crawledAt,
			DataSource:      source,
			RunID:           runID,
		})
	}
	return out
}

// Range is an inclusive jitter window.
type Range struct {
	Min time.Duration `mapstructure:"min" json:"min"`
	Max time.Duration `mapstructure:"max" json:"max"`
}

// Strategy is an ordered group of addresses tried with one identity profile.
type Strategy struct {
	Name        string          `mapstructure:"name"`
	Source      DataSource      `mapstructure:"source"`
	Profile     IdentityProfile `mapstructure:"profile"`
	Addresses   []string        `mapstructure:"addresses"`
	MaxAttempts int             `mapstructure:"max_attempts"`
	Pacing      Range           `mapstructure:"pacing"`
	RetryDelay  Range           `mapstructure:"retry_delay"`
}

// FetchOptions bounds a single logical fetch.
type FetchOptions struct {
	MaxAttempts int
	Pacing      Range
	RetryDelay  Range
}

// Options derives the fetch options for this strategy.
func (s Strategy) Options() FetchOptions {
	return FetchOptions{
		MaxAttempts: s.MaxAttempts,
		Pacing:      s.Pacing,
		RetryDelay:  s.RetryDelay,
	}
}

// RequestContext is the identity applied to one fetch. It is built per call and never shared.
type RequestContext struct {
	Headers     http.Header
	Credentials map[string]string
}

// FetchRequest is what a transport needs for one GET.
type FetchRequest struct {
	URL     string
	Headers http.Header
	Timeout time.Duration
}

// FetchResponse is the raw result of one GET after redirects.
type FetchResponse struct {
	URL        string
	FinalURL   string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// FetchResult is the terminal outcome of a logical fetch across all attempts.
type FetchResult struct {
	Status       FetchStatus
	StatusCode   int
	Address      string
	FinalAddress string
	Body         []byte
	Attempts     int
	Err          error
}

// OK reports whether the result carries a usable body.
func (r FetchResult) OK() bool {
	return r.Status == FetchStatusOK
}
