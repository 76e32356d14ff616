// Package health computes the aggregated operational view of the manager and
// runs the recovery sweep that moves failed tools back toward service.
package health

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/intelworks/tool-runtime-manager/internal/config"
	"github.com/intelworks/tool-runtime-manager/internal/registry"
	"github.com/intelworks/tool-runtime-manager/internal/resource"
	"github.com/intelworks/tool-runtime-manager/internal/types"
)

// ScalerState exposes the auto-scaler facts the health report needs without
// importing the control loop.
type ScalerState interface {
	Enabled() bool
}

// Monitor aggregates registry, sampler and classifier state into health
// reports, and periodically sweeps error-state tools for recovery.
type Monitor struct {
	registry   *registry.Registry
	sampler    *resource.Sampler
	classifier *resource.Classifier
	scaler     ScalerState
	logger     *zap.Logger

	sweepInterval       time.Duration
	maxRecoveryAttempts int
	penaltyPerTool      int
	penaltyCap          int
}

// New creates a health monitor.
func New(cfg config.HealthConfig, reg *registry.Registry, sampler *resource.Sampler, classifier *resource.Classifier, scaler ScalerState, logger *zap.Logger) *Monitor {
	return &Monitor{
		registry:            reg,
		sampler:             sampler,
		classifier:          classifier,
		scaler:              scaler,
		logger:              logger,
		sweepInterval:       cfg.SweepInterval,
		maxRecoveryAttempts: cfg.MaxRecoveryAttempts,
		penaltyPerTool:      cfg.ErrorPenaltyPerTool,
		penaltyCap:          cfg.ErrorPenaltyCap,
	}
}

// Report computes the current health report on demand. It reads one registry
// snapshot, so the counts within a report are mutually consistent.
func (m *Monitor) Report() types.HealthReport {
	snap := m.registry.Snapshot()
	tools := snap.List()

	report := types.HealthReport{
		TotalTools:         len(tools),
		ResourceLevel:      m.classifier.CurrentLevel(),
		StaleSamples:       m.sampler.StaleSamples(),
		MonitoringActive:   m.sampler.Running(),
		AutoScalingEnabled: m.scaler.Enabled(),
		Tools:              tools,
		GeneratedAt:        time.Now(),
	}

	for _, st := range tools {
		switch st.Lifecycle {
		case types.LifecycleEnabled:
			report.ActiveTools++
		case types.LifecyclePaused:
			report.PausedTools++
		case types.LifecycleError:
			report.ErrorTools++
			if st.ConsecutiveErrors >= m.maxRecoveryAttempts {
				report.FatalTools = append(report.FatalTools, st.Name)
			}
		}
	}
	sort.Strings(report.FatalTools)

	report.HealthScore = m.score(report.TotalTools, report.ActiveTools, report.ErrorTools)
	return report
}

// score maps tool counts to a 0-100 health score. An empty registry is
// healthy by definition.
func (m *Monitor) score(total, active, errored int) int {
	if total == 0 {
		return 100
	}
	score := (100 * active) / total
	penalty := errored * m.penaltyPerTool
	if penalty > m.penaltyCap {
		penalty = m.penaltyCap
	}
	score -= penalty
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Run executes the recovery sweep until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Sweep retries recoverable error-state tools: each is cleared to disabled
// and re-enabled with reason error_recovery, which preserves the error
// counter so the retry cap holds if the tool keeps failing. Tools that have
// exhausted their attempts are left in error and reported as fatal.
func (m *Monitor) Sweep(ctx context.Context) {
	snap := m.registry.Snapshot()
	for _, st := range snap.List() {
		if st.Lifecycle != types.LifecycleError {
			continue
		}
		if st.ConsecutiveErrors >= m.maxRecoveryAttempts {
			m.logger.Error("Tool exhausted recovery attempts, operator intervention required",
				zap.String("tool", st.Name),
				zap.Int("consecutive_errors", st.ConsecutiveErrors))
			continue
		}
		if err := m.registry.Transition(ctx, st.Name, types.LifecycleDisabled, types.ReasonErrorRecovery); err != nil {
			m.logger.Warn("Recovery transition failed",
				zap.String("tool", st.Name), zap.Error(err))
			continue
		}
		if err := m.registry.Transition(ctx, st.Name, types.LifecycleEnabled, types.ReasonErrorRecovery); err != nil {
			// Dependencies may not be enabled yet; the tool stays
			// disabled until an operator or bulk enable brings it back.
			m.logger.Warn("Recovery re-enable deferred",
				zap.String("tool", st.Name), zap.Error(err))
			continue
		}
		m.logger.Info("Retrying tool after error",
			zap.String("tool", st.Name),
			zap.Int("attempt", st.ConsecutiveErrors))
	}
}
