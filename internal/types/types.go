package types

import (
	"context"
	"time"
)

// LifecycleState represents the logical availability state of a managed tool.
type LifecycleState string

const (
	LifecycleDisabled LifecycleState = "disabled"
	LifecycleEnabled  LifecycleState = "enabled"
	LifecyclePaused   LifecycleState = "paused"
	LifecycleError    LifecycleState = "error"
)

// Valid reports whether s is one of the four known lifecycle states.
func (s LifecycleState) Valid() bool {
	switch s {
	case LifecycleDisabled, LifecycleEnabled, LifecyclePaused, LifecycleError:
		return true
	}
	return false
}

// TransitionReason records why a tool changed lifecycle state.
type TransitionReason string

const (
	ReasonManual          TransitionReason = "manual"
	ReasonAutoscaleUp     TransitionReason = "autoscale_up"
	ReasonAutoscaleDown   TransitionReason = "autoscale_down"
	ReasonDependencyUnmet TransitionReason = "dependency_unmet"
	ReasonErrorRecovery   TransitionReason = "error_recovery"
	ReasonToolFailure     TransitionReason = "tool_failure"
)

// ResourceLevel is the discretized host load classification.
type ResourceLevel string

const (
	LevelLow      ResourceLevel = "low"
	LevelMedium   ResourceLevel = "medium"
	LevelHigh     ResourceLevel = "high"
	LevelCritical ResourceLevel = "critical"
)

// Severity returns an ordering for resource levels, low (0) to critical (3).
func (l ResourceLevel) Severity() int {
	switch l {
	case LevelLow:
		return 0
	case LevelMedium:
		return 1
	case LevelHigh:
		return 2
	case LevelCritical:
		return 3
	}
	return -1
}

// ResourceSample is one instantaneous reading of host utilization.
type ResourceSample struct {
	Timestamp     time.Time `json:"timestamp"`
	CPUPercent    float64   `json:"cpu_percent"`
	MemoryPercent float64   `json:"memory_percent"`
	GPUPercent    float64   `json:"gpu_percent"`
	Stale         bool      `json:"stale"`
}

// MetricsProvider reads current host utilization. Implementations may fail
// transiently; callers hold the last good sample instead of propagating the
// error.
type MetricsProvider interface {
	// Sample returns the current CPU, memory and GPU utilization as
	// percentages. GPU is 0 when GPUSupported reports false.
	Sample(ctx context.Context) (cpu, memory, gpu float64, err error)

	// GPUSupported reports whether GPU utilization is available.
	GPUSupported() bool

	// Platform returns a short identifier for the underlying source.
	Platform() string
}

// ToolNotifier is the outbound lifecycle signal implemented by tool-side
// collaborators. Delivery is fire-and-forget: the manager never waits for a
// tool to acknowledge a signal.
type ToolNotifier interface {
	OnPause(name string)
	OnResume(name string)
	OnDisable(name string)
}

// ToolStatus is the externally visible view of one registered tool.
type ToolStatus struct {
	Name              string           `json:"name"`
	Lifecycle         LifecycleState   `json:"lifecycle"`
	Priority          int              `json:"priority"`
	AutoScale         bool             `json:"auto_scale"`
	Dependencies      []string         `json:"dependencies,omitempty"`
	MaxCPUPercent     float64          `json:"max_cpu_percent"`
	MaxMemoryMB       int              `json:"max_memory_mb"`
	MaxGPUPercent     float64          `json:"max_gpu_percent"`
	LastTransitionAt  time.Time        `json:"last_transition_at"`
	TransitionReason  TransitionReason `json:"last_transition_reason"`
	ConsecutiveErrors int              `json:"consecutive_errors"`
}

// HealthReport is the aggregated operational view over the registry and the
// resource classifier. Computed on demand, never persisted.
type HealthReport struct {
	HealthScore        int           `json:"health_score"`
	TotalTools         int           `json:"total_tools"`
	ActiveTools        int           `json:"active_tools"`
	PausedTools        int           `json:"paused_tools"`
	ErrorTools         int           `json:"error_tools"`
	ResourceLevel      ResourceLevel `json:"resource_level"`
	StaleSamples       uint64        `json:"stale_samples"`
	MonitoringActive   bool          `json:"monitoring_active"`
	AutoScalingEnabled bool          `json:"auto_scaling_enabled"`
	FatalTools         []string      `json:"fatal_tools,omitempty"`
	Tools              []ToolStatus  `json:"tools"`
	GeneratedAt        time.Time     `json:"generated_at"`
}
