// Package pacing provides the jittered sleeps that throttle and back off requests.
package pacing

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/JakeFAU/listing-crawler/internal/crawler"
)

// Sleeper pauses the caller. Implementations return early when ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration)
}

// Jitter samples durations uniformly from a range.
type Jitter interface {
	Sample(r crawler.Range) time.Duration
}

// TimerSleeper sleeps using a timer and aborts on context cancellation.
type TimerSleeper struct{}

// Sleep blocks for d or until ctx is done.
func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// UniformJitter draws from [Min, Max] using its own random source.
type UniformJitter struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewUniformJitter seeds a jitter source. A nil rnd uses a randomly seeded PCG.
func NewUniformJitter(rnd *rand.Rand) *UniformJitter {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &UniformJitter{rnd: rnd}
}

// Sample returns a duration in [r.Min, r.Max]. Inverted or empty ranges return Min.
func (j *UniformJitter) Sample(r crawler.Range) time.Duration {
	if r.Max <= r.Min {
		return max(r.Min, 0)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	span := int64(r.Max - r.Min)
	return r.Min + time.Duration(j.rnd.Int64N(span+1))
}

// RecordingSleeper records requested sleeps without blocking.
type RecordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

// Sleep records d and returns immediately.
func (s *RecordingSleeper) Sleep(_ context.Context, d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleeps = append(s.sleeps, d)
}

// Sleeps returns a copy of every recorded duration in call order.
func (s *RecordingSleeper) Sleeps() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}
