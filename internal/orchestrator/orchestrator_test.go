package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
	collyfetcher "github.com/JakeFAU/listing-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/listing-crawler/internal/pacing"
)

type step struct {
	resp crawler.FetchResponse
	err  error
}

type scriptedTransport struct {
	mu       sync.Mutex
	steps    []step
	requests []crawler.FetchRequest
}

func (s *scriptedTransport) Get(_ context.Context, req crawler.FetchRequest) (crawler.FetchResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.steps) == 0 {
		return crawler.FetchResponse{}, errors.New("no scripted response")
	}
	next := s.steps[0]
	if len(s.steps) > 1 {
		s.steps = s.steps[1:]
	}
	return next.resp, next.err
}

func (s *scriptedTransport) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// fixedJitter always returns Min so sleeps are predictable.
type fixedJitter struct{}

func (fixedJitter) Sample(r crawler.Range) time.Duration { return r.Min }

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var testOpts = crawler.FetchOptions{
	MaxAttempts: 3,
	Pacing:      crawler.Range{Min: 8 * time.Second, Max: 15 * time.Second},
	RetryDelay:  crawler.Range{Min: 15 * time.Second, Max: 30 * time.Second},
}

func newTestOrchestrator(t *testing.T, tr crawler.Transport, sleeper pacing.Sleeper) *Orchestrator {
	t.Helper()
	o, err := New(Config{Transport: tr, Sleeper: sleeper, Jitter: fixedJitter{}})
	require.NoError(t, err)
	return o
}

func okResponse(address, body string) step {
	return step{resp: crawler.FetchResponse{URL: address, FinalURL: address, StatusCode: http.StatusOK, Body: []byte(body)}}
}

func TestFetchShortCircuitsOnSuccess(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{steps: []step{okResponse("https://m.example.com/list", "<html/>")}}
	sleeper := &pacing.RecordingSleeper{}
	o := newTestOrchestrator(t, tr, sleeper)

	res := o.Fetch(context.Background(), "https://m.example.com/list", crawler.RequestContext{}, testOpts)
	require.True(t, res.OK())
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, "<html/>", string(res.Body))
	assert.Equal(t, 1, tr.calls())
	assert.Equal(t, []time.Duration{8 * time.Second}, sleeper.Sleeps())
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{steps: []step{
		{err: fmt.Errorf("dial: %w", errors.New("connection refused"))},
		okResponse("https://example.com/a", "ok"),
	}}
	sleeper := &pacing.RecordingSleeper{}
	o := newTestOrchestrator(t, tr, sleeper)

	res := o.Fetch(context.Background(), "https://example.com/a", crawler.RequestContext{}, testOpts)
	require.True(t, res.OK())
	assert.Equal(t, 2, res.Attempts)
	assert.Equal(t, []time.Duration{8 * time.Second, 15 * time.Second, 8 * time.Second}, sleeper.Sleeps())
}

func TestFetchNeverExceedsMaxAttempts(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{steps: []step{{resp: crawler.FetchResponse{StatusCode: http.StatusForbidden}}}}
	sleeper := &pacing.RecordingSleeper{}
	o := newTestOrchestrator(t, tr, sleeper)

	res := o.Fetch(context.Background(), "https://example.com/a", crawler.RequestContext{}, testOpts)
	assert.Equal(t, crawler.FetchStatusHTTPError, res.Status)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.ErrorIs(t, res.Err, crawler.ErrHTTPStatus)
	assert.Equal(t, 3, tr.calls())
	assert.Equal(t, 3, res.Attempts)
	// pacing, retry, pacing, retry, pacing: no retry sleep after the last attempt.
	assert.Len(t, sleeper.Sleeps(), 5)
}

func TestFetchSustainedNetworkFailureStopsAtMaxAttempts(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{steps: []step{{err: errors.New("connection refused")}}}
	sleeper := &pacing.RecordingSleeper{}
	o := newTestOrchestrator(t, tr, sleeper)

	res := o.Fetch(context.Background(), "https://example.com/a", crawler.RequestContext{}, testOpts)
	assert.False(t, res.OK())
	assert.Equal(t, crawler.FetchStatusNetworkError, res.Status)
	assert.ErrorIs(t, res.Err, crawler.ErrTransientNetwork)
	assert.Nil(t, res.Body)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, tr.calls())
	assert.Equal(t, []time.Duration{
		8 * time.Second, 15 * time.Second,
		8 * time.Second, 15 * time.Second,
		8 * time.Second,
	}, sleeper.Sleeps())
}

func TestFetchRecurringVerifyRedirectThroughColly(t *testing.T) {
	t.Parallel()

	var (
		mu   sync.Mutex
		hits int
	)
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
		http.Redirect(w, r, "/verify/center", http.StatusFound)
	})
	mux.HandleFunc("/verify/center", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("challenge"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	o := newTestOrchestrator(t, collyfetcher.New(collyfetcher.Config{Timeout: 5 * time.Second}), &pacing.RecordingSleeper{})

	res := o.Fetch(context.Background(), srv.URL+"/list", crawler.RequestContext{}, testOpts)
	assert.Equal(t, crawler.FetchStatusDetectionRedirect, res.Status)
	assert.ErrorIs(t, res.Err, crawler.ErrDetection)
	assert.Equal(t, srv.URL+"/verify/center", res.FinalAddress)
	assert.Equal(t, 3, res.Attempts)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, hits)
}

func TestFetchDetectionRedirectIsSoftFailure(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{steps: []step{{resp: crawler.FetchResponse{
		FinalURL:   "https://verify.example.com/v1/center",
		StatusCode: http.StatusOK,
		Body:       []byte("captcha"),
	}}}}
	o := newTestOrchestrator(t, tr, &pacing.RecordingSleeper{})

	res := o.Fetch(context.Background(), "https://example.com/list", crawler.RequestContext{}, testOpts)
	assert.Equal(t, crawler.FetchStatusDetectionRedirect, res.Status)
	assert.ErrorIs(t, res.Err, crawler.ErrDetection)
	assert.Nil(t, res.Body)
	assert.Equal(t, 3, tr.calls())
}

func TestFetchClassifiesTimeouts(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want crawler.FetchStatus
	}{
		{"net timeout", fmt.Errorf("get: %w", timeoutErr{}), crawler.FetchStatusTimeout},
		{"deadline", fmt.Errorf("colly fetch canceled: %w", context.DeadlineExceeded), crawler.FetchStatusTimeout},
		{"refused", errors.New("connection refused"), crawler.FetchStatusNetworkError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tr := &scriptedTransport{steps: []step{{err: tc.err}}}
			o := newTestOrchestrator(t, tr, &pacing.RecordingSleeper{})
			res := o.Fetch(context.Background(), "https://example.com", crawler.RequestContext{}, crawler.FetchOptions{MaxAttempts: 1})
			assert.Equal(t, tc.want, res.Status)
			assert.ErrorIs(t, res.Err, crawler.ErrTransientNetwork)
			assert.Equal(t, 1, tr.calls())
		})
	}
}

func TestFetchSendsIdentityHeaders(t *testing.T) {
	t.Parallel()

	tr := &scriptedTransport{steps: []step{okResponse("https://example.com", "ok")}}
	o := newTestOrchestrator(t, tr, &pacing.RecordingSleeper{})
	rc := crawler.RequestContext{
		Headers:     http.Header{"User-Agent": {"ua"}},
		Credentials: map[string]string{"sid": "1"},
	}

	o.Fetch(context.Background(), "https://example.com", rc, crawler.FetchOptions{MaxAttempts: 1})
	require.Len(t, tr.requests, 1)
	assert.Equal(t, "ua", tr.requests[0].Headers.Get("User-Agent"))
	assert.Equal(t, "sid=1", tr.requests[0].Headers.Get("Cookie"))
	assert.Equal(t, defaultTimeout, tr.requests[0].Timeout)
}

func TestFetchStopsWhenContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tr := &scriptedTransport{steps: []step{okResponse("https://example.com", "ok")}}
	o := newTestOrchestrator(t, tr, &pacing.RecordingSleeper{})

	res := o.Fetch(ctx, "https://example.com", crawler.RequestContext{}, testOpts)
	assert.False(t, res.OK())
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Equal(t, 0, tr.calls())
}

func TestNewRequiresTransport(t *testing.T) {
	t.Parallel()

	_, err := New(Config{})
	require.Error(t, err)
}
