package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "example.com:8080", "example.com"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitAndObserve(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if fetchAttemptsTotal == nil || extractedCandidatesTotal == nil ||
		runsTotal == nil || recordsPersistedTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveFetchAttempt("https://m.example.com/list", "timeout", time.Second)
	if val := testutil.ToFloat64(fetchAttemptsTotal.WithLabelValues("m.example.com", "timeout")); val != 1 {
		t.Errorf("expected one timeout attempt, got %f", val)
	}

	ObserveExtraction("structural", 3)
	ObserveExtraction("structural", 0)
	if val := testutil.ToFloat64(extractedCandidatesTotal.WithLabelValues("structural")); val != 3 {
		t.Errorf("expected 3 structural candidates, got %f", val)
	}

	ObservePersisted("mobile", 2)
	if val := testutil.ToFloat64(recordsPersistedTotal.WithLabelValues("mobile")); val != 2 {
		t.Errorf("expected 2 persisted records, got %f", val)
	}

	ObserveRun("empty")
	if val := testutil.ToFloat64(runsTotal.WithLabelValues("empty")); val != 1 {
		t.Errorf("expected 1 empty run, got %f", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://google.com", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
