// Package app builds the long-lived crawler services from configuration and owns
// their shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	gcsstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-crawler/internal/config"
	"github.com/JakeFAU/listing-crawler/internal/crawler"
	"github.com/JakeFAU/listing-crawler/internal/detector"
	"github.com/JakeFAU/listing-crawler/internal/extract"
	collyfetcher "github.com/JakeFAU/listing-crawler/internal/fetcher/colly"
	"github.com/JakeFAU/listing-crawler/internal/identity"
	"github.com/JakeFAU/listing-crawler/internal/metrics"
	"github.com/JakeFAU/listing-crawler/internal/orchestrator"
	"github.com/JakeFAU/listing-crawler/internal/pacing"
	"github.com/JakeFAU/listing-crawler/internal/planner"
	memorypublisher "github.com/JakeFAU/listing-crawler/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/listing-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/listing-crawler/internal/storage/gcs"
	"github.com/JakeFAU/listing-crawler/internal/storage/local"
	"github.com/JakeFAU/listing-crawler/internal/storage/memory"
	"github.com/JakeFAU/listing-crawler/internal/storage/postgres"
	"github.com/JakeFAU/listing-crawler/internal/storage/sqlite"
)

// Options adjusts how New wires services. Zero values use production defaults.
type Options struct {
	// DryRun skips the record store and the publisher.
	DryRun bool
	// Transport replaces the colly transport.
	Transport crawler.Transport
	// Sleeper replaces the timer-based sleeper.
	Sleeper pacing.Sleeper
}

// App holds the wired services for one CLI invocation.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	identity  *identity.Provider
	engine    *extract.Engine
	planner   *planner.Planner
	store     crawler.RecordStore
	blobs     crawler.BlobStore
	publisher crawler.Publisher

	closeOnce sync.Once
	closers   []func()
}

// New wires every component described by cfg. On failure, anything already
// opened is closed before returning.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts Options) (app *App, err error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	rawCredentials, err := cfg.Identity.Resolve()
	if err != nil {
		return nil, err
	}
	a.identity = identity.New(rawCredentials)
	if !a.identity.HasCredentials() {
		logger.Warn("no session credentials configured; requests go out without cookies")
	}

	transport := opts.Transport
	if transport == nil {
		transport = collyfetcher.New(collyfetcher.Config{
			Timeout:     cfg.HTTP.Timeout,
			MaxBodySize: cfg.HTTP.MaxBodySize,
		})
	}
	orch, err := orchestrator.New(orchestrator.Config{
		Transport: transport,
		Sleeper:   opts.Sleeper,
		Detector:  detector.NewRedirect(cfg.Detection.Markers),
		Timeout:   cfg.HTTP.Timeout,
		Logger:    logger.Named("orchestrator"),
	})
	if err != nil {
		return nil, fmt.Errorf("init orchestrator: %w", err)
	}
	a.engine = extract.NewEngine(logger.Named("extract"))

	if opts.DryRun {
		logger.Info("dry run: records will not be persisted or announced")
	} else {
		if a.store, err = a.buildStore(ctx); err != nil {
			return nil, err
		}
		if a.publisher, err = a.buildPublisher(ctx); err != nil {
			return nil, err
		}
	}
	if a.blobs, err = a.buildBlobs(ctx); err != nil {
		return nil, err
	}

	a.planner, err = planner.New(planner.Config{
		Identity:       a.identity,
		Fetcher:        orch,
		Extractor:      a.engine,
		Store:          a.store,
		Blobs:          a.blobs,
		Publisher:      a.publisher,
		Logger:         logger.Named("planner"),
		ArtifactPrefix: cfg.Artifacts.Prefix,
		Topic:          cfg.Publisher.Topic,
	})
	if err != nil {
		return nil, fmt.Errorf("init planner: %w", err)
	}
	return a, nil
}

func (a *App) buildStore(ctx context.Context) (crawler.RecordStore, error) {
	sc := a.cfg.Storage
	var store crawler.RecordStore
	switch sc.Backend {
	case config.BackendPostgres:
		pg, err := postgres.NewRecordStore(ctx, postgres.RecordStoreConfig{
			DSN:             sc.Postgres.DSN,
			Table:           sc.Postgres.Table,
			MaxConns:        sc.Postgres.MaxConns,
			MinConns:        sc.Postgres.MinConns,
			MaxConnLifetime: sc.Postgres.MaxConnLifetime,
			CreateSchema:    sc.Postgres.CreateSchema,
		})
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		store = pg
	case config.BackendSQLite:
		lite, err := sqlite.Open(ctx, sc.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("init sqlite store: %w", err)
		}
		store = lite
	case config.BackendMemory:
		store = memory.NewRecordStore()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
	a.logger.Info("record store ready", zap.String("backend", sc.Backend))
	a.closers = append(a.closers, store.Close)
	return store, nil
}

func (a *App) buildBlobs(ctx context.Context) (crawler.BlobStore, error) {
	ac := a.cfg.Artifacts
	switch ac.Backend {
	case config.BackendNone, "":
		return nil, nil
	case config.BackendMemory:
		return memory.NewBlobStore(), nil
	case config.BackendLocal:
		store, err := local.New(local.Config{BaseDir: ac.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local artifacts: %w", err)
		}
		return store, nil
	case config.BackendGCS:
		client, err := gcsstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, func() {
			if err := client.Close(); err != nil {
				a.logger.Warn("error closing gcs client", zap.Error(err))
			}
		})
		// The artifact path already carries the configured prefix.
		store, err := gcs.New(client, gcs.Config{Bucket: ac.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init gcs artifacts: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown artifacts backend %q", ac.Backend)
	}
}

func (a *App) buildPublisher(ctx context.Context) (crawler.Publisher, error) {
	pc := a.cfg.Publisher
	switch pc.Backend {
	case config.BackendNone, "":
		return nil, nil
	case config.BackendMemory:
		return memorypublisher.New(), nil
	case config.BackendPubSub:
		client, err := pubsub.NewClient(ctx, pc.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("create pubsub client: %w", err)
		}
		pub, err := pubsubpublisher.New(client)
		if err != nil {
			_ = client.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() {
			pub.Close()
			if err := client.Close(); err != nil {
				a.logger.Warn("error closing pubsub client", zap.Error(err))
			}
		})
		return pub, nil
	default:
		return nil, fmt.Errorf("unknown publisher backend %q", pc.Backend)
	}
}

// Store returns the configured record store, or nil in a dry run.
func (a *App) Store() crawler.RecordStore {
	return a.store
}

// Publisher returns the configured run-event publisher, or nil when disabled.
func (a *App) Publisher() crawler.Publisher {
	return a.publisher
}

// Crawl runs the configured strategies once. While it runs, the metrics
// listener is served on metrics.addr when one is set.
func (a *App) Crawl(ctx context.Context) (planner.Result, error) {
	serveCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	if a.cfg.Metrics.Addr != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := metrics.Serve(serveCtx, a.cfg.Metrics.Addr, a.logger); err != nil {
				a.logger.Warn("metrics listener stopped", zap.Error(err))
			}
		}()
	}
	defer func() {
		stop()
		wg.Wait()
	}()

	result, err := a.planner.Run(ctx, a.cfg.ResolvedStrategies())
	if err != nil {
		return result, err
	}
	if result.Empty() {
		return result, fmt.Errorf("%w after %d strategies and %d addresses",
			crawler.ErrNoData, result.StrategiesTried, result.AddressesTried)
	}
	return result, nil
}

// IsNoData reports whether err only signals an empty run.
func IsNoData(err error) bool {
	return errors.Is(err, crawler.ErrNoData)
}

// Close releases clients in reverse order of creation. Safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		for i := len(a.closers) - 1; i >= 0; i-- {
			a.closers[i]()
		}
		a.closers = nil
	})
}
