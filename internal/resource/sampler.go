// Package resource implements host resource sampling and classification.
// A Sampler polls a metrics provider on a fixed interval into a bounded ring
// buffer; a Classifier maps a smoothed window of that buffer onto the four
// discrete resource levels used by the control loop.
package resource

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/intelworks/tool-runtime-manager/internal/config"
	"github.com/intelworks/tool-runtime-manager/internal/types"
)

// Sampler periodically reads host utilization into a fixed-capacity ring
// buffer. A failing or hanging provider never stops the loop: the read is
// bounded by a timeout and the previous sample's values are recorded again,
// flagged stale, until the provider recovers.
type Sampler struct {
	provider types.MetricsProvider
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger

	mu    sync.RWMutex
	ring  []types.ResourceSample
	next  int
	count int

	lastGood types.ResourceSample
	haveGood bool

	staleSamples atomic.Uint64
	running      atomic.Bool
}

// NewSampler creates a sampler over the given provider.
func NewSampler(cfg config.MonitoringConfig, provider types.MetricsProvider, logger *zap.Logger) *Sampler {
	return &Sampler{
		provider: provider,
		interval: cfg.SampleInterval,
		timeout:  cfg.SampleTimeout,
		logger:   logger,
		ring:     make([]types.ResourceSample, cfg.HistorySize),
	}
}

// Run samples on the configured interval until ctx is cancelled. One sample
// is taken immediately so the classifier has data before the first tick of
// the control loop.
func (s *Sampler) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	s.SampleOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SampleOnce(ctx)
		}
	}
}

// SampleOnce performs a single bounded provider read and appends the result
// to the ring buffer, evicting the oldest sample at capacity.
func (s *Sampler) SampleOnce(ctx context.Context) types.ResourceSample {
	readCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cpu, memory, gpu, err := s.provider.Sample(readCtx)

	sample := types.ResourceSample{Timestamp: time.Now()}
	if err != nil {
		// Hold last-known-good rather than propagating the failure.
		s.mu.RLock()
		if s.haveGood {
			sample.CPUPercent = s.lastGood.CPUPercent
			sample.MemoryPercent = s.lastGood.MemoryPercent
			sample.GPUPercent = s.lastGood.GPUPercent
		}
		s.mu.RUnlock()
		sample.Stale = true
		s.staleSamples.Add(1)
		s.logger.Warn("Metrics provider read failed, holding last good sample",
			zap.String("provider", s.provider.Platform()),
			zap.Error(err))
	} else {
		sample.CPUPercent = cpu
		sample.MemoryPercent = memory
		sample.GPUPercent = gpu
	}

	s.mu.Lock()
	s.ring[s.next] = sample
	s.next = (s.next + 1) % len(s.ring)
	if s.count < len(s.ring) {
		s.count++
	}
	if !sample.Stale {
		s.lastGood = sample
		s.haveGood = true
	}
	s.mu.Unlock()

	return sample
}

// History returns the buffered samples in chronological order.
func (s *Sampler) History() []types.ResourceSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.ResourceSample, 0, s.count)
	start := s.next - s.count
	if start < 0 {
		start += len(s.ring)
	}
	for i := 0; i < s.count; i++ {
		out = append(out, s.ring[(start+i)%len(s.ring)])
	}
	return out
}

// Latest returns the most recent sample, if any.
func (s *Sampler) Latest() (types.ResourceSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.count == 0 {
		return types.ResourceSample{}, false
	}
	idx := s.next - 1
	if idx < 0 {
		idx += len(s.ring)
	}
	return s.ring[idx], true
}

// StaleSamples returns the number of provider failures absorbed so far.
func (s *Sampler) StaleSamples() uint64 {
	return s.staleSamples.Load()
}

// Running reports whether the sampling loop is active.
func (s *Sampler) Running() bool {
	return s.running.Load()
}
