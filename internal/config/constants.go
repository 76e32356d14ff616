package config

import "time"

// Default configuration path used when none is supplied on the command line.
const DefaultConfigPath = "/opt/tool-runtime-manager/config.yaml"

// Tool priority bounds. Priority 10 tools are never auto-disabled; priority
// 1-2 tools are the first shed under resource pressure.
const (
	MinToolPriority = 1
	MaxToolPriority = 10

	// Tools at or above this priority are exempt from auto-scaler
	// shedding and throttling.
	CriticalToolPriority = 9

	// Priority ceilings for the shed and throttle rules.
	ShedPriorityCeiling     = 3
	ThrottlePriorityCeiling = 5
)

// Monitoring defaults.
const (
	DefaultSampleInterval   = 10 * time.Second
	DefaultSampleTimeout    = 3 * time.Second
	DefaultHistorySize      = 60
	DefaultSmoothingSamples = 3

	DefaultMediumThreshold   = 50.0
	DefaultHighThreshold     = 70.0
	DefaultCriticalThreshold = 90.0
)

// Control loop defaults. The dwell time is a conservative anti-flap guard:
// a tool is never auto-transitioned twice within this window.
const (
	DefaultTickInterval = 10 * time.Second
	DefaultDwellTime    = 30 * time.Second
)

// Health monitor defaults.
const (
	DefaultSweepInterval       = 30 * time.Second
	DefaultMaxRecoveryAttempts = 3
	DefaultErrorPenaltyPerTool = 10
	DefaultErrorPenaltyCap     = 30
)

// Per-tool defaults.
const (
	DefaultHealthCheckInterval = 30 * time.Second
	DefaultStartupTimeout      = 60 * time.Second
)

// Storage defaults.
const (
	DefaultEventRetention  = 7 * 24 * time.Hour
	DefaultCleanupInterval = time.Hour
)

// Server defaults.
const DefaultAPIMaxRequests = 50
