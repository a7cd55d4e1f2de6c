// Package extract turns listing pages into record candidates using an HTML
// selector cascade with an embedded-state fallback.
package extract

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
	"github.com/JakeFAU/listing-crawler/internal/metrics"
)

// Extraction stages, used as metric labels.
const (
	StageStructural = "structural"
	StageEmbedded   = "embedded"
)

// Engine implements crawler.Extractor.
type Engine struct {
	logger *zap.Logger
}

// NewEngine builds an Engine. A nil logger is replaced with a no-op.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger}
}

// Extract runs the structural cascade, then the embedded fallback only when the
// first stage found nothing. Every returned candidate has a non-empty name.
func (e *Engine) Extract(body []byte) []crawler.RecordCandidate {
	if len(body) == 0 {
		return nil
	}
	type staged struct {
		stage      string
		candidates []crawler.RecordCandidate
	}
	run := func(stage string, fn func([]byte) []crawler.RecordCandidate) func() (staged, bool) {
		return func() (staged, bool) {
			c := fn(body)
			return staged{stage: stage, candidates: c}, len(c) > 0
		}
	}
	result, ok := FirstSuccess(
		run(StageStructural, Structural),
		run(StageEmbedded, Embedded),
	)
	if !ok {
		e.logger.Debug("no candidates extracted", zap.Int("bytes", len(body)))
		return nil
	}
	stage, found := result.stage, result.candidates
	metrics.ObserveExtraction(stage, len(found))
	e.logger.Debug("candidates extracted", zap.String("stage", stage), zap.Int("count", len(found)))
	return found
}
