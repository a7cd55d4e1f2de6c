// Package orchestrator runs one logical fetch as a bounded sequence of paced,
// classified GET attempts.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
	"github.com/JakeFAU/listing-crawler/internal/detector"
	"github.com/JakeFAU/listing-crawler/internal/identity"
	"github.com/JakeFAU/listing-crawler/internal/metrics"
	"github.com/JakeFAU/listing-crawler/internal/pacing"
)

// Defaults applied when FetchOptions leaves a field zero.
var (
	DefaultPacing     = crawler.Range{Min: 8 * time.Second, Max: 15 * time.Second}
	DefaultRetryDelay = crawler.Range{Min: 15 * time.Second, Max: 30 * time.Second}
)

const (
	defaultMaxAttempts = 3
	defaultTimeout     = 20 * time.Second
)

// Config bundles orchestrator collaborators.
type Config struct {
	Transport crawler.Transport
	Sleeper   pacing.Sleeper
	Jitter    pacing.Jitter
	Detector  *detector.Redirect
	Timeout   time.Duration
	Logger    *zap.Logger
}

// Orchestrator implements crawler.Fetcher.
type Orchestrator struct {
	transport crawler.Transport
	sleeper   pacing.Sleeper
	jitter    pacing.Jitter
	detector  *detector.Redirect
	timeout   time.Duration
	logger    *zap.Logger
}

// New validates cfg and builds an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Transport == nil {
		return nil, errors.New("orchestrator requires a transport")
	}
	if cfg.Sleeper == nil {
		cfg.Sleeper = pacing.TimerSleeper{}
	}
	if cfg.Jitter == nil {
		cfg.Jitter = pacing.NewUniformJitter(nil)
	}
	if cfg.Detector == nil {
		cfg.Detector = detector.NewRedirect(nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Orchestrator{
		transport: cfg.Transport,
		sleeper:   cfg.Sleeper,
		jitter:    cfg.Jitter,
		detector:  cfg.Detector,
		timeout:   cfg.Timeout,
		logger:    cfg.Logger,
	}, nil
}

// Fetch performs up to opts.MaxAttempts GETs and returns exactly one terminal result.
func (o *Orchestrator) Fetch(
	ctx context.Context,
	address string,
	rc crawler.RequestContext,
	opts crawler.FetchOptions,
) crawler.FetchResult {
	opts = withDefaults(opts)
	headers := identity.RequestHeaders(rc)
	logger := o.logger.With(zap.String("address", address))

	result := crawler.FetchResult{
		Status:  crawler.FetchStatusNetworkError,
		Address: address,
		Err:     crawler.ErrTransientNetwork,
	}
	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		o.sleeper.Sleep(ctx, o.jitter.Sample(opts.Pacing))
		if err := ctx.Err(); err != nil {
			result.Err = fmt.Errorf("%w: %w", crawler.ErrTransientNetwork, err)
			logger.Warn("fetch aborted", zap.Int("attempt", attempt), zap.Error(err))
			return result
		}

		resp, err := o.transport.Get(ctx, crawler.FetchRequest{
			URL:     address,
			Headers: headers.Clone(),
			Timeout: o.timeout,
		})
		result = o.classify(address, resp, err)
		result.Attempts = attempt
		metrics.ObserveFetchAttempt(address, string(result.Status), resp.Duration)

		if result.OK() {
			logger.Info("fetch succeeded",
				zap.Int("attempt", attempt),
				zap.String("final_address", result.FinalAddress),
				zap.Int("bytes", len(result.Body)),
			)
			return result
		}
		logger.Warn("fetch attempt failed",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", opts.MaxAttempts),
			zap.String("status", string(result.Status)),
			zap.Int("status_code", result.StatusCode),
			zap.Error(result.Err),
		)

		if attempt < opts.MaxAttempts {
			o.sleeper.Sleep(ctx, o.jitter.Sample(opts.RetryDelay))
		}
	}
	return result
}

func (o *Orchestrator) classify(address string, resp crawler.FetchResponse, err error) crawler.FetchResult {
	result := crawler.FetchResult{Address: address}
	if err != nil {
		if isTimeout(err) {
			result.Status = crawler.FetchStatusTimeout
		} else {
			result.Status = crawler.FetchStatusNetworkError
		}
		result.Err = fmt.Errorf("%w: %w", crawler.ErrTransientNetwork, err)
		return result
	}

	result.StatusCode = resp.StatusCode
	result.FinalAddress = resp.FinalURL
	if result.FinalAddress == "" {
		result.FinalAddress = address
	}

	switch {
	case o.detector.Matches(result.FinalAddress):
		result.Status = crawler.FetchStatusDetectionRedirect
		result.Err = fmt.Errorf("%w: redirected to %s", crawler.ErrDetection, result.FinalAddress)
	case resp.StatusCode == http.StatusOK:
		result.Status = crawler.FetchStatusOK
		result.Body = resp.Body
	default:
		result.Status = crawler.FetchStatusHTTPError
		result.Err = fmt.Errorf("%w: %d", crawler.ErrHTTPStatus, resp.StatusCode)
	}
	return result
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func withDefaults(opts crawler.FetchOptions) crawler.FetchOptions {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.Pacing == (crawler.Range{}) {
		opts.Pacing = DefaultPacing
	}
	if opts.RetryDelay == (crawler.Range{}) {
		opts.RetryDelay = DefaultRetryDelay
	}
	return opts
}
