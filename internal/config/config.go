package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Tools      []ToolConfig     `yaml:"tools"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Scaling    ScalingConfig    `yaml:"scaling"`
	Health     HealthConfig     `yaml:"health"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	BindAddress string    `yaml:"bind_address"`
	MetricsPath string    `yaml:"metrics_path"`
	HealthPath  string    `yaml:"health_path"`
	API         APIConfig `yaml:"api"`
}

// APIConfig contains admin API settings
type APIConfig struct {
	Enabled     bool   `yaml:"enabled"`
	BasePath    string `yaml:"base_path"`
	MaxRequests int    `yaml:"max_requests"` // requests per second, per client
}

// ToolConfig declares one managed tool: its priority, advisory resource
// budget, auto-scaling eligibility and dependencies. Entries failing
// ValidateTool are logged and skipped at registry construction rather than
// aborting startup.
type ToolConfig struct {
	Name          string   `yaml:"name"`
	Priority      int      `yaml:"priority"`
	MaxCPUPercent float64  `yaml:"max_cpu_percent"`
	MaxMemoryMB   int      `yaml:"max_memory_mb"`
	MaxGPUPercent float64  `yaml:"max_gpu_percent"`
	AutoScale     *bool    `yaml:"auto_scale"` // default true
	InitialState  string   `yaml:"initial_state"`
	Dependencies  []string `yaml:"dependencies"`

	HealthCheckInterval time.Duration `yaml:"health_check_interval"`
	StartupTimeout      time.Duration `yaml:"startup_timeout"`
}

// AutoScaleEnabled returns the auto_scale flag with its default applied.
func (t *ToolConfig) AutoScaleEnabled() bool {
	return t.AutoScale == nil || *t.AutoScale
}

// MonitoringConfig contains resource sampling and classification settings
type MonitoringConfig struct {
	SampleInterval   time.Duration   `yaml:"sample_interval"`
	SampleTimeout    time.Duration   `yaml:"sample_timeout"`
	HistorySize      int             `yaml:"history_size"`
	SmoothingSamples int             `yaml:"smoothing_samples"`
	Thresholds       ThresholdConfig `yaml:"thresholds"`
}

// ThresholdConfig defines the half-open resource level boundaries. A smoothed
// utilization u maps to low when u < Medium, medium when Medium <= u < High,
// high when High <= u < Critical and critical when u >= Critical.
type ThresholdConfig struct {
	Medium   float64 `yaml:"medium"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
}

// ScalingConfig contains control loop settings
type ScalingConfig struct {
	Enabled      *bool         `yaml:"enabled"` // default true
	TickInterval time.Duration `yaml:"tick_interval"`
	DwellTime    time.Duration `yaml:"dwell_time"`
}

// ScalingEnabled returns the enabled flag with its default applied.
func (s *ScalingConfig) ScalingEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// HealthConfig contains health monitor settings
type HealthConfig struct {
	SweepInterval       time.Duration `yaml:"sweep_interval"`
	MaxRecoveryAttempts int           `yaml:"max_recovery_attempts"`
	ErrorPenaltyPerTool int           `yaml:"error_penalty_per_tool"`
	ErrorPenaltyCap     int           `yaml:"error_penalty_cap"`
}

// StorageConfig contains transition audit storage settings
type StorageConfig struct {
	DatabasePath    string        `yaml:"database_path"`
	Retention       time.Duration `yaml:"retention"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	Enabled        bool                    `yaml:"enabled"`
	ServiceName    string                  `yaml:"service_name"`
	ServiceVersion string                  `yaml:"service_version"`
	Environment    string                  `yaml:"environment"`
	Exporter       TelemetryExporterConfig `yaml:"exporter"`
	Sampling       TelemetrySamplingConfig `yaml:"sampling"`
}

// TelemetryExporterConfig configures telemetry exporters
type TelemetryExporterConfig struct {
	Type     string            `yaml:"type"` // "stdout", "otlp"
	Endpoint string            `yaml:"endpoint,omitempty"`
	Headers  map[string]string `yaml:"headers,omitempty"`
}

// TelemetrySamplingConfig configures trace sampling
type TelemetrySamplingConfig struct {
	Rate float64 `yaml:"rate"` // 0.0 to 1.0
}

// LoadDefault creates a zero-configuration setup with all defaults. No tools
// are registered; they are expected to arrive via config reload or the API.
func LoadDefault() (*Config, error) {
	var config Config
	applyDefaults(&config)
	config.Telemetry.Enabled = true

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid default configuration: %w", err)
	}
	return &config, nil
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Server.BindAddress == "" {
		cfg.Server.BindAddress = "0.0.0.0:9190"
	}
	if cfg.Server.MetricsPath == "" {
		cfg.Server.MetricsPath = "/metrics"
	}
	if cfg.Server.HealthPath == "" {
		cfg.Server.HealthPath = "/health"
	}
	if cfg.Server.API.BasePath == "" {
		cfg.Server.API.BasePath = "/api/v1"
	}
	if cfg.Server.API.MaxRequests == 0 {
		cfg.Server.API.MaxRequests = DefaultAPIMaxRequests
	}

	if cfg.Monitoring.SampleInterval == 0 {
		cfg.Monitoring.SampleInterval = DefaultSampleInterval
	}
	if cfg.Monitoring.SampleTimeout == 0 {
		cfg.Monitoring.SampleTimeout = DefaultSampleTimeout
	}
	if cfg.Monitoring.HistorySize == 0 {
		cfg.Monitoring.HistorySize = DefaultHistorySize
	}
	if cfg.Monitoring.SmoothingSamples == 0 {
		cfg.Monitoring.SmoothingSamples = DefaultSmoothingSamples
	}
	if cfg.Monitoring.Thresholds.Medium == 0 {
		cfg.Monitoring.Thresholds.Medium = DefaultMediumThreshold
	}
	if cfg.Monitoring.Thresholds.High == 0 {
		cfg.Monitoring.Thresholds.High = DefaultHighThreshold
	}
	if cfg.Monitoring.Thresholds.Critical == 0 {
		cfg.Monitoring.Thresholds.Critical = DefaultCriticalThreshold
	}

	if cfg.Scaling.TickInterval == 0 {
		cfg.Scaling.TickInterval = DefaultTickInterval
	}
	if cfg.Scaling.DwellTime == 0 {
		cfg.Scaling.DwellTime = DefaultDwellTime
	}

	if cfg.Health.SweepInterval == 0 {
		cfg.Health.SweepInterval = DefaultSweepInterval
	}
	if cfg.Health.MaxRecoveryAttempts == 0 {
		cfg.Health.MaxRecoveryAttempts = DefaultMaxRecoveryAttempts
	}
	if cfg.Health.ErrorPenaltyPerTool == 0 {
		cfg.Health.ErrorPenaltyPerTool = DefaultErrorPenaltyPerTool
	}
	if cfg.Health.ErrorPenaltyCap == 0 {
		cfg.Health.ErrorPenaltyCap = DefaultErrorPenaltyCap
	}

	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = ":memory:"
	}
	if cfg.Storage.Retention == 0 {
		cfg.Storage.Retention = DefaultEventRetention
	}
	if cfg.Storage.CleanupInterval == 0 {
		cfg.Storage.CleanupInterval = DefaultCleanupInterval
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "tool-runtime-manager"
	}
	if cfg.Telemetry.ServiceVersion == "" {
		cfg.Telemetry.ServiceVersion = "1.0.0"
	}
	if cfg.Telemetry.Environment == "" {
		cfg.Telemetry.Environment = "development"
	}
	if cfg.Telemetry.Exporter.Type == "" {
		cfg.Telemetry.Exporter.Type = "stdout"
	}
	if cfg.Telemetry.Sampling.Rate == 0 {
		cfg.Telemetry.Sampling.Rate = 0.1
	}

	// Per-tool defaults
	for i := range cfg.Tools {
		tool := &cfg.Tools[i]
		if tool.InitialState == "" {
			tool.InitialState = "disabled"
		}
		if tool.HealthCheckInterval == 0 {
			tool.HealthCheckInterval = DefaultHealthCheckInterval
		}
		if tool.StartupTimeout == 0 {
			tool.StartupTimeout = DefaultStartupTimeout
		}
	}
}

// ValidationError represents a structured validation error
type ValidationError struct {
	Field      string      // Configuration field path (e.g., "tools[0].priority")
	Value      interface{} // Invalid value
	Message    string      // Human-readable error message
	Suggestion string      // Suggested fix
}

// ValidationResult contains the results of configuration validation
type ValidationResult struct {
	Valid    bool              // Overall validation status
	Errors   []ValidationError // List of validation errors
	Warnings []ValidationError // List of validation warnings
}

// Error implements the error interface for ValidationResult
func (vr *ValidationResult) Error() string {
	if len(vr.Errors) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d error(s):\n", len(vr.Errors)))

	for i, err := range vr.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s", i+1, err.Field, err.Message))
		if err.Suggestion != "" {
			sb.WriteString(fmt.Sprintf(" (suggestion: %s)", err.Suggestion))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// validate checks the configuration for required fields and consistency
func validate(cfg *Config) error {
	result := GetValidationResult(cfg)
	if !result.Valid {
		return result
	}
	return nil
}

// GetValidationResult performs comprehensive validation and returns detailed
// results. Per-tool problems are reported as warnings: invalid tool entries
// are skipped at registry construction instead of failing the whole load.
func GetValidationResult(cfg *Config) *ValidationResult {
	result := &ValidationResult{Valid: true}

	validateServerConfig(&cfg.Server, result)
	validateMonitoringConfig(&cfg.Monitoring, result)
	validateScalingConfig(&cfg.Scaling, result)
	validateHealthConfig(&cfg.Health, result)
	validateToolsConfig(cfg.Tools, result)
	validateLoggingConfig(&cfg.Logging, result)
	validateTelemetryConfig(&cfg.Telemetry, result)

	result.Valid = len(result.Errors) == 0
	return result
}

// validateServerConfig validates server configuration
func validateServerConfig(cfg *ServerConfig, result *ValidationResult) {
	if cfg.BindAddress == "" {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "server.bind_address",
			Value:      cfg.BindAddress,
			Message:    "bind address cannot be empty",
			Suggestion: "use '0.0.0.0:9190' for all interfaces or '127.0.0.1:9190' for localhost only",
		})
	} else if err := validateNetworkAddress(cfg.BindAddress); err != nil {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "server.bind_address",
			Value:      cfg.BindAddress,
			Message:    fmt.Sprintf("invalid bind address: %v", err),
			Suggestion: "use format 'host:port' e.g., '0.0.0.0:9190'",
		})
	}

	for _, p := range []struct {
		field string
		value string
	}{
		{"server.metrics_path", cfg.MetricsPath},
		{"server.health_path", cfg.HealthPath},
	} {
		if p.value == "" || !strings.HasPrefix(p.value, "/") {
			result.Errors = append(result.Errors, ValidationError{
				Field:      p.field,
				Value:      p.value,
				Message:    "path must start with '/'",
				Suggestion: "use an absolute HTTP path",
			})
		}
	}

	if cfg.API.Enabled {
		if cfg.API.BasePath == "" || !strings.HasPrefix(cfg.API.BasePath, "/") {
			result.Errors = append(result.Errors, ValidationError{
				Field:      "server.api.base_path",
				Value:      cfg.API.BasePath,
				Message:    "API base path must start with '/'",
				Suggestion: "use '/api/v1'",
			})
		}
		if cfg.API.MaxRequests <= 0 {
			result.Errors = append(result.Errors, ValidationError{
				Field:      "server.api.max_requests",
				Value:      cfg.API.MaxRequests,
				Message:    "max requests must be positive",
				Suggestion: "use a value like 50 for rate limiting",
			})
		}
	}
}

// validateMonitoringConfig validates sampling and threshold configuration
func validateMonitoringConfig(cfg *MonitoringConfig, result *ValidationResult) {
	if err := validateDuration(cfg.SampleInterval, time.Second, 5*time.Minute, "monitoring.sample_interval"); err != nil {
		result.Errors = append(result.Errors, *err)
	}
	if err := validateDuration(cfg.SampleTimeout, 100*time.Millisecond, time.Minute, "monitoring.sample_timeout"); err != nil {
		result.Errors = append(result.Errors, *err)
	}
	if cfg.SampleTimeout >= cfg.SampleInterval {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "monitoring.sample_timeout",
			Value:      cfg.SampleTimeout.String(),
			Message:    "sample timeout must be less than sample interval",
			Suggestion: fmt.Sprintf("use a timeout < %s", cfg.SampleInterval),
		})
	}

	if cfg.HistorySize < 2 || cfg.HistorySize > 10000 {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "monitoring.history_size",
			Value:      cfg.HistorySize,
			Message:    "history size must be between 2 and 10000",
			Suggestion: "use a value like 60 (10 minutes at a 10s interval)",
		})
	}
	if cfg.SmoothingSamples < 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "monitoring.smoothing_samples",
			Value:      cfg.SmoothingSamples,
			Message:    "smoothing window must be at least 1 sample",
			Suggestion: "use 3 samples to absorb single-sample noise",
		})
	} else if cfg.SmoothingSamples > cfg.HistorySize {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "monitoring.smoothing_samples",
			Value:      cfg.SmoothingSamples,
			Message:    "smoothing window cannot exceed history size",
			Suggestion: fmt.Sprintf("use a value <= %d", cfg.HistorySize),
		})
	}

	t := cfg.Thresholds
	for _, p := range []struct {
		field string
		value float64
	}{
		{"monitoring.thresholds.medium", t.Medium},
		{"monitoring.thresholds.high", t.High},
		{"monitoring.thresholds.critical", t.Critical},
	} {
		if err := validatePercentage(p.value, p.field); err != nil {
			result.Errors = append(result.Errors, *err)
		}
	}
	if !(t.Medium < t.High && t.High < t.Critical) {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "monitoring.thresholds",
			Value:      fmt.Sprintf("medium=%.1f high=%.1f critical=%.1f", t.Medium, t.High, t.Critical),
			Message:    "thresholds must be strictly increasing (medium < high < critical)",
			Suggestion: "use e.g. medium=50, high=70, critical=90",
		})
	}
}

// validateScalingConfig validates control loop configuration
func validateScalingConfig(cfg *ScalingConfig, result *ValidationResult) {
	if err := validateDuration(cfg.TickInterval, time.Second, 10*time.Minute, "scaling.tick_interval"); err != nil {
		result.Errors = append(result.Errors, *err)
	}
	if err := validateDuration(cfg.DwellTime, 0, time.Hour, "scaling.dwell_time"); err != nil {
		result.Errors = append(result.Errors, *err)
	}
	if cfg.DwellTime > 0 && cfg.DwellTime < cfg.TickInterval {
		result.Warnings = append(result.Warnings, ValidationError{
			Field:      "scaling.dwell_time",
			Value:      cfg.DwellTime.String(),
			Message:    "dwell time shorter than the tick interval provides no anti-flap protection",
			Suggestion: fmt.Sprintf("use a value >= %s", cfg.TickInterval),
		})
	}
}

// validateHealthConfig validates health monitor configuration
func validateHealthConfig(cfg *HealthConfig, result *ValidationResult) {
	if err := validateDuration(cfg.SweepInterval, time.Second, time.Hour, "health.sweep_interval"); err != nil {
		result.Errors = append(result.Errors, *err)
	}
	if cfg.MaxRecoveryAttempts < 1 || cfg.MaxRecoveryAttempts > 100 {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "health.max_recovery_attempts",
			Value:      cfg.MaxRecoveryAttempts,
			Message:    "max recovery attempts must be between 1 and 100",
			Suggestion: "use a small bound like 3",
		})
	}
	if cfg.ErrorPenaltyPerTool < 0 || cfg.ErrorPenaltyCap < 0 {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "health.error_penalty_per_tool",
			Value:      cfg.ErrorPenaltyPerTool,
			Message:    "error penalties cannot be negative",
			Suggestion: "use 10 points per tool, capped at 30",
		})
	}
}

// ValidateTool checks a single tool entry against the registration rules:
// priority must be within 1-10 and resource budgets non-negative. Entries
// failing this check are logged and skipped rather than aborting startup.
func ValidateTool(t *ToolConfig) error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if t.Priority < MinToolPriority || t.Priority > MaxToolPriority {
		return fmt.Errorf("priority %d out of range [%d, %d]", t.Priority, MinToolPriority, MaxToolPriority)
	}
	if t.MaxCPUPercent < 0 || t.MaxGPUPercent < 0 {
		return fmt.Errorf("resource percentages cannot be negative")
	}
	if t.MaxMemoryMB < 0 {
		return fmt.Errorf("max memory cannot be negative")
	}
	switch t.InitialState {
	case "", "disabled", "enabled", "paused":
	default:
		return fmt.Errorf("invalid initial state %q", t.InitialState)
	}
	for _, dep := range t.Dependencies {
		if dep == t.Name {
			return fmt.Errorf("tool cannot depend on itself")
		}
	}
	return nil
}

// validateToolsConfig validates tool entries. Individual entry problems are
// warnings: load succeeds and the registry skips the offending entries.
func validateToolsConfig(tools []ToolConfig, result *ValidationResult) {
	names := make(map[string]bool)

	for i := range tools {
		tool := &tools[i]
		fieldPrefix := fmt.Sprintf("tools[%d]", i)

		if err := ValidateTool(tool); err != nil {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:      fieldPrefix,
				Value:      tool.Name,
				Message:    fmt.Sprintf("invalid tool entry (will be skipped): %v", err),
				Suggestion: "fix the entry; priority must be 1-10 and limits non-negative",
			})
			continue
		}

		if names[tool.Name] {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:      fieldPrefix + ".name",
				Value:      tool.Name,
				Message:    fmt.Sprintf("duplicate tool name '%s' (later entry will be skipped)", tool.Name),
				Suggestion: "use unique names for each tool",
			})
		}
		names[tool.Name] = true
	}

	// Dependencies on names absent from the (valid) tool set can never be
	// satisfied; surface them early.
	for i := range tools {
		tool := &tools[i]
		for _, dep := range tool.Dependencies {
			if !names[dep] {
				result.Warnings = append(result.Warnings, ValidationError{
					Field:      fmt.Sprintf("tools[%d].dependencies", i),
					Value:      dep,
					Message:    fmt.Sprintf("tool '%s' depends on unknown tool '%s'", tool.Name, dep),
					Suggestion: "declare the dependency as a tool or remove it",
				})
			}
		}
	}
}

// validateLoggingConfig validates logging configuration
func validateLoggingConfig(cfg *LoggingConfig, result *ValidationResult) {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:      "logging.level",
			Value:      cfg.Level,
			Message:    fmt.Sprintf("invalid log level '%s'", cfg.Level),
			Suggestion: "use 'debug', 'info', 'warn' or 'error'",
		})
	}
	switch cfg.Format {
	case "json", "console":
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:      "logging.format",
			Value:      cfg.Format,
			Message:    fmt.Sprintf("invalid log format '%s'", cfg.Format),
			Suggestion: "use 'json' or 'console'",
		})
	}
}

// validateTelemetryConfig validates telemetry configuration
func validateTelemetryConfig(cfg *TelemetryConfig, result *ValidationResult) {
	if !cfg.Enabled {
		return
	}

	switch cfg.Exporter.Type {
	case "stdout":
	case "otlp":
		if cfg.Exporter.Endpoint == "" {
			result.Errors = append(result.Errors, ValidationError{
				Field:      "telemetry.exporter.endpoint",
				Value:      cfg.Exporter.Endpoint,
				Message:    "OTLP endpoint is required when exporter type is 'otlp'",
				Suggestion: "use e.g. 'localhost:4318'",
			})
		}
	default:
		result.Errors = append(result.Errors, ValidationError{
			Field:      "telemetry.exporter.type",
			Value:      cfg.Exporter.Type,
			Message:    fmt.Sprintf("unsupported exporter type '%s'", cfg.Exporter.Type),
			Suggestion: "use 'stdout' or 'otlp'",
		})
	}

	if cfg.Sampling.Rate < 0 || cfg.Sampling.Rate > 1 {
		result.Errors = append(result.Errors, ValidationError{
			Field:      "telemetry.sampling.rate",
			Value:      cfg.Sampling.Rate,
			Message:    "sampling rate must be between 0.0 and 1.0",
			Suggestion: "use 0.1 for 10% sampling",
		})
	}
}

// validateNetworkAddress validates a network address in host:port format
func validateNetworkAddress(address string) error {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return fmt.Errorf("invalid address format: %w", err)
	}
	if host == "" {
		return fmt.Errorf("host cannot be empty")
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid port number: %w", err)
	}
	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// validateDuration validates a duration is within acceptable bounds
func validateDuration(d time.Duration, min, max time.Duration, fieldName string) *ValidationError {
	if d < min {
		return &ValidationError{
			Field:      fieldName,
			Value:      d.String(),
			Message:    fmt.Sprintf("duration %s is below minimum %s", d, min),
			Suggestion: fmt.Sprintf("use a value >= %s", min),
		}
	}
	if max > 0 && d > max {
		return &ValidationError{
			Field:      fieldName,
			Value:      d.String(),
			Message:    fmt.Sprintf("duration %s is above maximum %s", d, max),
			Suggestion: fmt.Sprintf("use a value <= %s", max),
		}
	}
	return nil
}

// validatePercentage validates a percentage value (0-100)
func validatePercentage(value float64, fieldName string) *ValidationError {
	if value < 0 || value > 100 {
		return &ValidationError{
			Field:      fieldName,
			Value:      value,
			Message:    "percentage must be between 0 and 100",
			Suggestion: "use a value between 0.0 and 100.0",
		}
	}
	return nil
}
