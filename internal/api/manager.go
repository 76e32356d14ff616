// Package api exposes the manager's control surface: a typed operations
// layer used by the HTTP server (and by tests), and the HTTP server itself.
//
// Every write goes through the registry's fair write lock with a bounded
// wait, so an API caller can fail with a timeout instead of blocking behind
// a busy control loop.
package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/intelworks/tool-runtime-manager/internal/autoscaler"
	"github.com/intelworks/tool-runtime-manager/internal/config"
	"github.com/intelworks/tool-runtime-manager/internal/health"
	"github.com/intelworks/tool-runtime-manager/internal/registry"
	"github.com/intelworks/tool-runtime-manager/internal/types"
)

// DefaultLockWait bounds how long an API write waits for the registry lock.
const DefaultLockWait = 2 * time.Second

// Manager is the typed operations layer over the registry, health monitor
// and auto-scaler.
type Manager struct {
	registry *registry.Registry
	health   *health.Monitor
	scaler   *autoscaler.Scaler
	logger   *zap.Logger
	lockWait time.Duration
}

// NewManager creates the operations layer.
func NewManager(reg *registry.Registry, hm *health.Monitor, scaler *autoscaler.Scaler, logger *zap.Logger) *Manager {
	return &Manager{
		registry: reg,
		health:   hm,
		scaler:   scaler,
		logger:   logger,
		lockWait: DefaultLockWait,
	}
}

// bounded derives a context that caps the registry lock wait.
func (m *Manager) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, m.lockWait)
}

// Enable transitions a tool to enabled. Fails with DependencyUnmetError when
// any dependency is not enabled; the caller may enable dependencies first or
// use BulkEnable with the dependency included.
func (m *Manager) Enable(ctx context.Context, name string) error {
	ctx, cancel := m.bounded(ctx)
	defer cancel()
	return m.registry.Transition(ctx, name, types.LifecycleEnabled, types.ReasonManual)
}

// Disable transitions a tool to disabled, cascading enabled dependents to
// paused.
func (m *Manager) Disable(ctx context.Context, name string) error {
	ctx, cancel := m.bounded(ctx)
	defer cancel()
	return m.registry.Transition(ctx, name, types.LifecycleDisabled, types.ReasonManual)
}

// Pause transitions an enabled tool to paused.
func (m *Manager) Pause(ctx context.Context, name string) error {
	ctx, cancel := m.bounded(ctx)
	defer cancel()
	return m.registry.Transition(ctx, name, types.LifecyclePaused, types.ReasonManual)
}

// Resume transitions a paused tool back to enabled.
func (m *Manager) Resume(ctx context.Context, name string) error {
	ctx, cancel := m.bounded(ctx)
	defer cancel()
	return m.registry.Transition(ctx, name, types.LifecycleEnabled, types.ReasonManual)
}

// ReportError records a tool-side failure signal, moving the tool to the
// error state where the auto-scaler leaves it alone until recovery.
func (m *Manager) ReportError(ctx context.Context, name string) error {
	ctx, cancel := m.bounded(ctx)
	defer cancel()
	return m.registry.Transition(ctx, name, types.LifecycleError, types.ReasonToolFailure)
}

// BulkEnable enables tools best-effort, returning a per-tool result. The
// batch is ordered as given, so listing a dependency before its dependent
// enables both in one call.
func (m *Manager) BulkEnable(ctx context.Context, names []string) (map[string]error, error) {
	return m.bulk(ctx, names, types.LifecycleEnabled)
}

// BulkDisable disables tools best-effort, returning a per-tool result.
func (m *Manager) BulkDisable(ctx context.Context, names []string) (map[string]error, error) {
	return m.bulk(ctx, names, types.LifecycleDisabled)
}

func (m *Manager) bulk(ctx context.Context, names []string, to types.LifecycleState) (map[string]error, error) {
	ctx, cancel := m.bounded(ctx)
	defer cancel()

	transitions := make([]registry.Transition, 0, len(names))
	for _, name := range names {
		transitions = append(transitions, registry.Transition{
			Name:   name,
			To:     to,
			Reason: types.ReasonManual,
		})
	}
	return m.registry.ApplyBestEffort(ctx, transitions)
}

// UpdateConfig merges a partial configuration change into a tool. The merge
// is validated before commit; a rejected update changes nothing.
func (m *Manager) UpdateConfig(ctx context.Context, name string, update registry.ConfigUpdate) error {
	ctx, cancel := m.bounded(ctx)
	defer cancel()
	return m.registry.UpdateConfig(ctx, name, update)
}

// Register adds a tool at runtime.
func (m *Manager) Register(ctx context.Context, cfg config.ToolConfig) error {
	ctx, cancel := m.bounded(ctx)
	defer cancel()
	return m.registry.Register(ctx, cfg)
}

// Unregister removes a tool at runtime, cascading its enabled dependents to
// paused.
func (m *Manager) Unregister(ctx context.Context, name string) error {
	ctx, cancel := m.bounded(ctx)
	defer cancel()
	return m.registry.Unregister(ctx, name)
}

// Status returns the current status of one tool.
func (m *Manager) Status(name string) (types.ToolStatus, error) {
	snap := m.registry.Snapshot()
	st, ok := snap.Tools[name]
	if !ok {
		return types.ToolStatus{}, registry.ErrToolNotFound
	}
	return st, nil
}

// StatusAll returns the status of every tool, sorted by name.
func (m *Manager) StatusAll() []types.ToolStatus {
	return m.registry.Snapshot().List()
}

// SetAutoScaling flips the auto-scaler's global kill-switch.
func (m *Manager) SetAutoScaling(enabled bool) {
	m.scaler.SetEnabled(enabled)
	m.logger.Info("Auto-scaling set via API", zap.Bool("enabled", enabled))
}

// AutoScalingEnabled reports the kill-switch state.
func (m *Manager) AutoScalingEnabled() bool {
	return m.scaler.Enabled()
}

// Health computes the current health report.
func (m *Manager) Health() types.HealthReport {
	return m.health.Report()
}
