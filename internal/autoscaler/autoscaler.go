// Package autoscaler implements the control loop that adjusts tool
// availability in response to the classified host resource level.
//
// Each tick reads the current resource level, takes one immutable registry
// snapshot, plans transitions for the auto-scale-eligible tools and commits
// them in a single atomic batch. Ticks are strictly serialized: the loop
// never overlaps two ticks, and concurrent API callers observe either the
// pre-tick or the fully post-tick registry.
//
// Level rules, in priority order within a tick:
//
//   - critical: enabled tools with priority <= 3 are disabled (shed), then
//     every remaining enabled tool below the critical priority is paused.
//   - high: enabled tools with priority <= 5 are paused.
//   - low: paused tools are resumed and tools the scaler shed to disabled
//     are re-enabled, subject to the dependency invariant; tools whose
//     dependencies are not yet enabled are retried on a later tick. Tools
//     an operator disabled stay disabled.
//   - medium: the steady-state band; no forced transitions.
//
// Tools in the error state are excluded from every rule until the health
// monitor recovers them, and tools at or above priority 9 are never shed or
// throttled. A minimum dwell time between automatic transitions of the same
// tool guards against flapping near a threshold.
package autoscaler

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/intelworks/tool-runtime-manager/internal/config"
	"github.com/intelworks/tool-runtime-manager/internal/registry"
	"github.com/intelworks/tool-runtime-manager/internal/resource"
	"github.com/intelworks/tool-runtime-manager/internal/types"
)

// TickStats summarizes one completed tick for observability sinks.
type TickStats struct {
	Seq     uint64
	Level   types.ResourceLevel
	Planned int
	Applied int
	Failed  int
	Skipped bool // true when the global kill-switch suppressed application
}

// Scaler is the auto-scaling control loop.
type Scaler struct {
	registry   *registry.Registry
	classifier *resource.Classifier
	logger     *zap.Logger

	tickInterval time.Duration
	dwellTime    time.Duration

	enabled atomic.Bool
	tickSeq atomic.Uint64

	// OnTick, when set before Run, receives stats after every tick.
	OnTick func(TickStats)
}

// New creates a scaler. The global kill-switch starts in the state declared
// by the configuration.
func New(cfg config.ScalingConfig, reg *registry.Registry, classifier *resource.Classifier, logger *zap.Logger) *Scaler {
	s := &Scaler{
		registry:     reg,
		classifier:   classifier,
		logger:       logger,
		tickInterval: cfg.TickInterval,
		dwellTime:    cfg.DwellTime,
	}
	s.enabled.Store(cfg.ScalingEnabled())
	return s
}

// SetEnabled flips the global kill-switch. When disabled the tick keeps
// running for observability but applies no transitions.
func (s *Scaler) SetEnabled(enabled bool) {
	prev := s.enabled.Swap(enabled)
	if prev != enabled {
		s.logger.Info("Auto-scaling toggled", zap.Bool("enabled", enabled))
	}
}

// Enabled reports the kill-switch state.
func (s *Scaler) Enabled() bool {
	return s.enabled.Load()
}

// TickCount returns the number of completed ticks.
func (s *Scaler) TickCount() uint64 {
	return s.tickSeq.Load()
}

// Run executes the control loop until ctx is cancelled.
func (s *Scaler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick performs one control loop iteration and returns its stats. Exported
// so tests and the recovery path can drive the loop deterministically.
func (s *Scaler) Tick(ctx context.Context) TickStats {
	seq := s.tickSeq.Add(1)
	level := s.classifier.CurrentLevel()
	snap := s.registry.Snapshot()

	plan := s.plan(level, snap)

	stats := TickStats{Seq: seq, Level: level, Planned: len(plan)}

	if !s.enabled.Load() {
		stats.Skipped = true
		if len(plan) > 0 {
			s.logger.Info("Auto-scaling disabled, suppressing planned transitions",
				zap.Uint64("tick", seq),
				zap.String("level", string(level)),
				zap.Int("planned", len(plan)))
		}
		s.emit(stats)
		return stats
	}

	if len(plan) > 0 {
		results, err := s.registry.ApplyBestEffort(ctx, plan)
		if err != nil {
			s.logger.Error("Tick could not acquire registry", zap.Uint64("tick", seq), zap.Error(err))
			stats.Failed = len(plan)
			s.emit(stats)
			return stats
		}
		for name, res := range results {
			if res != nil {
				stats.Failed++
				s.logger.Warn("Transition rejected",
					zap.Uint64("tick", seq),
					zap.String("tool", name),
					zap.Error(res))
			} else {
				stats.Applied++
			}
		}
	}

	if stats.Applied > 0 {
		s.logger.Info("Tick applied transitions",
			zap.Uint64("tick", seq),
			zap.String("level", string(level)),
			zap.Int("applied", stats.Applied),
			zap.Int("failed", stats.Failed))
	} else {
		s.logger.Debug("Tick complete",
			zap.Uint64("tick", seq),
			zap.String("level", string(level)))
	}

	s.emit(stats)
	return stats
}

func (s *Scaler) emit(stats TickStats) {
	if s.OnTick != nil {
		s.OnTick(stats)
	}
}

// plan computes the transitions for one tick against an immutable snapshot.
// Pure: no side effects, deterministic for a given snapshot and level.
func (s *Scaler) plan(level types.ResourceLevel, snap *registry.Snapshot) []registry.Transition {
	now := time.Now()

	// eligible reports whether the auto-scaler may touch the tool at all.
	eligible := func(st types.ToolStatus) bool {
		if !st.AutoScale || st.Lifecycle == types.LifecycleError {
			return false
		}
		if s.dwellTime > 0 && now.Sub(st.LastTransitionAt) < s.dwellTime {
			return false
		}
		return true
	}

	tools := snap.List()
	var plan []registry.Transition

	switch level {
	case types.LevelCritical:
		handled := make(map[string]bool)
		// Shed the lowest-value tools outright.
		for _, st := range tools {
			if eligible(st) && st.Lifecycle == types.LifecycleEnabled && st.Priority <= config.ShedPriorityCeiling {
				plan = append(plan, registry.Transition{Name: st.Name, To: types.LifecycleDisabled, Reason: types.ReasonAutoscaleDown})
				handled[st.Name] = true
			}
		}
		// Throttle everything else that is not priority-exempt.
		for _, st := range tools {
			if handled[st.Name] {
				continue
			}
			if eligible(st) && st.Lifecycle == types.LifecycleEnabled && st.Priority < config.CriticalToolPriority {
				plan = append(plan, registry.Transition{Name: st.Name, To: types.LifecyclePaused, Reason: types.ReasonAutoscaleDown})
			}
		}

	case types.LevelHigh:
		for _, st := range tools {
			if eligible(st) && st.Lifecycle == types.LifecycleEnabled &&
				st.Priority <= config.ThrottlePriorityCeiling && st.Priority < config.CriticalToolPriority {
				plan = append(plan, registry.Transition{Name: st.Name, To: types.LifecyclePaused, Reason: types.ReasonAutoscaleDown})
			}
		}

	case types.LevelLow:
		plan = s.planResume(tools, eligible)

	case types.LevelMedium:
		// Steady-state band: no forced transitions.
	}

	return plan
}

// planResume orders resumable tools so that dependencies are enabled before
// their dependents within the same tick. Paused tools are resumed, and tools
// the scaler itself shed to disabled are re-enabled; tools an operator
// disabled keep their state. Tools whose dependencies cannot be satisfied
// this tick are left as they are for a later retry.
func (s *Scaler) planResume(tools []types.ToolStatus, eligible func(types.ToolStatus) bool) []registry.Transition {
	projected := make(map[string]bool)
	for _, st := range tools {
		if st.Lifecycle == types.LifecycleEnabled {
			projected[st.Name] = true
		}
	}

	resumable := func(st types.ToolStatus) bool {
		if st.Lifecycle == types.LifecyclePaused {
			return true
		}
		return st.Lifecycle == types.LifecycleDisabled && st.TransitionReason == types.ReasonAutoscaleDown
	}

	var candidates []types.ToolStatus
	for _, st := range tools {
		if eligible(st) && resumable(st) {
			candidates = append(candidates, st)
		}
	}
	// Resume higher-priority tools first when ordering is otherwise free.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Priority > candidates[j].Priority
	})

	var plan []registry.Transition
	for progressed := true; progressed && len(candidates) > 0; {
		progressed = false
		var remaining []types.ToolStatus
		for _, st := range candidates {
			satisfied := true
			for _, dep := range st.Dependencies {
				if !projected[dep] {
					satisfied = false
					break
				}
			}
			if satisfied {
				plan = append(plan, registry.Transition{Name: st.Name, To: types.LifecycleEnabled, Reason: types.ReasonAutoscaleUp})
				projected[st.Name] = true
				progressed = true
			} else {
				remaining = append(remaining, st)
			}
		}
		candidates = remaining
	}
	return plan
}
