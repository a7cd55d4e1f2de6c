// Package planner walks the configured strategies in order and stops at the
// first address whose page yields records.
package planner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/listing-crawler/internal/clock/system"
	"github.com/JakeFAU/listing-crawler/internal/crawler"
	"github.com/JakeFAU/listing-crawler/internal/hash/sha256"
	"github.com/JakeFAU/listing-crawler/internal/id/uuid"
	"github.com/JakeFAU/listing-crawler/internal/metrics"
)

// Run outcomes, used as metric labels.
const (
	OutcomeRecords      = "records"
	OutcomeEmpty        = "empty"
	OutcomePersistError = "persist_error"
)

// Config wires planner collaborators. Store, Blobs and Publisher are optional.
type Config struct {
	Identity  crawler.IdentitySource
	Fetcher   crawler.Fetcher
	Extractor crawler.Extractor
	Store     crawler.RecordStore
	Blobs     crawler.BlobStore
	Publisher crawler.Publisher
	Clock     crawler.Clock
	IDs       crawler.IDGenerator
	Logger    *zap.Logger

	ArtifactPrefix string
	Topic          string
}

// Result describes a finished run.
type Result struct {
	RunID           string
	Records         []crawler.Record
	Source          crawler.DataSource
	Strategy        string
	Address         string
	StrategiesTried int
	AddressesTried  int
	Persisted       int
}

// Empty reports whether the run produced no records.
func (r Result) Empty() bool {
	return len(r.Records) == 0
}

// Planner coordinates fetch, extraction, persistence and notification.
type Planner struct {
	identity  crawler.IdentitySource
	fetcher   crawler.Fetcher
	extractor crawler.Extractor
	store     crawler.RecordStore
	blobs     crawler.BlobStore
	publisher crawler.Publisher
	clock     crawler.Clock
	ids       crawler.IDGenerator
	keys      *sha256.Hasher
	logger    *zap.Logger

	artifactPrefix string
	topic          string
}

// New validates cfg and builds a Planner.
func New(cfg Config) (*Planner, error) {
	if cfg.Identity == nil {
		return nil, errors.New("planner requires an identity source")
	}
	if cfg.Fetcher == nil {
		return nil, errors.New("planner requires a fetcher")
	}
	if cfg.Extractor == nil {
		return nil, errors.New("planner requires an extractor")
	}
	if cfg.Clock == nil {
		cfg.Clock = system.New()
	}
	if cfg.IDs == nil {
		cfg.IDs = uuid.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Planner{
		identity:       cfg.Identity,
		fetcher:        cfg.Fetcher,
		extractor:      cfg.Extractor,
		store:          cfg.Store,
		blobs:          cfg.Blobs,
		publisher:      cfg.Publisher,
		clock:          cfg.Clock,
		ids:            cfg.IDs,
		keys:           sha256.New(),
		logger:         cfg.Logger,
		artifactPrefix: cfg.ArtifactPrefix,
		topic:          cfg.Topic,
	}, nil
}

// Run tries strategies in order. An empty result is not an error; only a
// persistence failure is returned.
func (p *Planner) Run(ctx context.Context, strategies []crawler.Strategy) (Result, error) {
	startedAt := p.clock.Now()
	runID, err := p.ids.NewID()
	if err != nil {
		p.logger.Warn("run id generation failed", zap.Error(err))
	}
	logger := p.logger.With(zap.String("run_id", runID))
	result := Result{RunID: runID}

	p.search(ctx, logger, strategies, &result)

	var runErr error
	outcome := OutcomeEmpty
	if !result.Empty() {
		outcome = OutcomeRecords
		if runErr = p.persist(ctx, logger, &result); runErr != nil {
			outcome = OutcomePersistError
		}
	} else {
		logger.Warn("no data obtained",
			zap.Int("strategies_tried", result.StrategiesTried),
			zap.Int("addresses_tried", result.AddressesTried),
		)
	}
	metrics.ObserveRun(outcome)
	p.notify(ctx, logger, result, startedAt, runErr)
	return result, runErr
}

func (p *Planner) search(ctx context.Context, logger *zap.Logger, strategies []crawler.Strategy, result *Result) {
	for _, strategy := range strategies {
		result.StrategiesTried++
		strategyLog := logger.With(zap.String("strategy", strategy.Name), zap.String("source", string(strategy.Source)))
		for _, address := range strategy.Addresses {
			if ctx.Err() != nil {
				strategyLog.Warn("run canceled", zap.Error(ctx.Err()))
				return
			}
			result.AddressesTried++
			if records := p.tryAddress(ctx, strategyLog, result.RunID, strategy, address); len(records) > 0 {
				result.Records = records
				result.Source = strategy.Source
				result.Strategy = strategy.Name
				result.Address = address
				return
			}
		}
		strategyLog.Info("strategy exhausted")
	}
}

func (p *Planner) tryAddress(
	ctx context.Context,
	logger *zap.Logger,
	runID string,
	strategy crawler.Strategy,
	address string,
) []crawler.Record {
	logger = logger.With(zap.String("address", address))
	rc := p.identity.RequestContext(strategy.Profile)
	fetched := p.fetcher.Fetch(ctx, address, rc, strategy.Options())
	if !fetched.OK() {
		logger.Warn("address failed",
			zap.String("status", string(fetched.Status)),
			zap.Int("attempts", fetched.Attempts),
			zap.Error(fetched.Err),
		)
		return nil
	}
	p.saveArtifact(ctx, logger, runID, strategy.Source, fetched)

	candidates := p.extractor.Extract(fetched.Body)
	records := crawler.Promote(candidates, p.clock.Now(), strategy.Source, runID)
	if len(records) == 0 {
		logger.Info("extraction miss", zap.Int("bytes", len(fetched.Body)))
		return nil
	}
	logger.Info("records extracted", zap.Int("count", len(records)))
	return records
}

// ArtifactPath builds <prefix>/<run_id>/<source>/<digest>.html.
func (p *Planner) ArtifactPath(runID string, source crawler.DataSource, finalAddress string) string {
	return path.Join(p.artifactPrefix, runID, string(source), p.keys.Key(finalAddress)+".html")
}

func (p *Planner) saveArtifact(
	ctx context.Context,
	logger *zap.Logger,
	runID string,
	source crawler.DataSource,
	fetched crawler.FetchResult,
) {
	if p.blobs == nil {
		return
	}
	final := fetched.FinalAddress
	if final == "" {
		final = fetched.Address
	}
	uri, err := p.blobs.PutObject(ctx, p.ArtifactPath(runID, source, final), "text/html; charset=utf-8", bytes.NewReader(fetched.Body))
	if err != nil {
		logger.Warn("artifact write failed", zap.Error(err))
		return
	}
	logger.Debug("artifact written", zap.String("uri", uri))
}

func (p *Planner) persist(ctx context.Context, logger *zap.Logger, result *Result) error {
	if p.store == nil {
		logger.Info("no record store configured, skipping persistence", zap.Int("records", len(result.Records)))
		return nil
	}
	n, err := p.store.Replace(ctx, result.Records, result.Source)
	if err != nil {
		logger.Error("persist failed", zap.String("source", string(result.Source)), zap.Error(err))
		return fmt.Errorf("%w: %w", crawler.ErrPersistence, err)
	}
	result.Persisted = n
	metrics.ObservePersisted(string(result.Source), n)
	logger.Info("records persisted", zap.String("source", string(result.Source)), zap.Int("count", n))
	return nil
}

func (p *Planner) notify(ctx context.Context, logger *zap.Logger, result Result, startedAt time.Time, runErr error) {
	if p.publisher == nil {
		return
	}
	event := crawler.RunEvent{
		RunID:           result.RunID,
		Source:          result.Source,
		Strategy:        result.Strategy,
		Address:         result.Address,
		Records:         len(result.Records),
		Persisted:       result.Persisted,
		StrategiesTried: result.StrategiesTried,
		AddressesTried:  result.AddressesTried,
		StartedAt:       startedAt,
		FinishedAt:      p.clock.Now(),
	}
	if runErr != nil {
		event.Error = runErr.Error()
	}
	id, err := p.publisher.Publish(ctx, p.topic, event)
	if err != nil {
		logger.Warn("run event publish failed", zap.Error(err))
		return
	}
	logger.Debug("run event published", zap.String("message_id", id))
}
