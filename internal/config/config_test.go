package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefault(t *testing.T) {
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault failed: %v", err)
	}

	if cfg.Server.BindAddress != "0.0.0.0:9190" {
		t.Errorf("BindAddress = %s", cfg.Server.BindAddress)
	}
	if cfg.Monitoring.SampleInterval != DefaultSampleInterval {
		t.Errorf("SampleInterval = %s, want %s", cfg.Monitoring.SampleInterval, DefaultSampleInterval)
	}
	if cfg.Monitoring.Thresholds.Critical != DefaultCriticalThreshold {
		t.Errorf("Critical threshold = %v, want %v", cfg.Monitoring.Thresholds.Critical, DefaultCriticalThreshold)
	}
	if cfg.Scaling.DwellTime != DefaultDwellTime {
		t.Errorf("DwellTime = %s, want %s", cfg.Scaling.DwellTime, DefaultDwellTime)
	}
	if !cfg.Scaling.ScalingEnabled() {
		t.Error("scaling disabled by default")
	}
	if len(cfg.Tools) != 0 {
		t.Errorf("default config has %d tools, want 0", len(cfg.Tools))
	}
}

func TestLoadAppliesDefaultsAndValues(t *testing.T) {
	path := writeConfig(t, `
monitoring:
  sample_interval: 5s
  thresholds:
    medium: 40
    high: 60
    critical: 80
tools:
  - name: indexer
    priority: 2
    initial_state: enabled
  - name: search
    priority: 6
    dependencies: [indexer]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Monitoring.SampleInterval != 5*time.Second {
		t.Errorf("SampleInterval = %s, want 5s", cfg.Monitoring.SampleInterval)
	}
	if cfg.Monitoring.Thresholds.High != 60 {
		t.Errorf("High threshold = %v, want 60", cfg.Monitoring.Thresholds.High)
	}
	// Untouched sections fall back to defaults.
	if cfg.Scaling.TickInterval != DefaultTickInterval {
		t.Errorf("TickInterval = %s, want default %s", cfg.Scaling.TickInterval, DefaultTickInterval)
	}
	if cfg.Health.MaxRecoveryAttempts != DefaultMaxRecoveryAttempts {
		t.Errorf("MaxRecoveryAttempts = %d, want %d", cfg.Health.MaxRecoveryAttempts, DefaultMaxRecoveryAttempts)
	}

	if len(cfg.Tools) != 2 {
		t.Fatalf("tools = %d, want 2", len(cfg.Tools))
	}
	indexer := cfg.Tools[0]
	if indexer.InitialState != "enabled" {
		t.Errorf("indexer initial state = %s", indexer.InitialState)
	}
	if !indexer.AutoScaleEnabled() {
		t.Error("auto_scale default should be true")
	}
	search := cfg.Tools[1]
	if search.InitialState != "disabled" {
		t.Errorf("search initial state = %s, want default disabled", search.InitialState)
	}
	if search.HealthCheckInterval != DefaultHealthCheckInterval {
		t.Errorf("search health check interval = %s, want default", search.HealthCheckInterval)
	}
}

func TestLoadRejectsBadThresholds(t *testing.T) {
	path := writeConfig(t, `
monitoring:
  thresholds:
    medium: 80
    high: 60
    critical: 90
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted non-increasing thresholds")
	} else if !strings.Contains(err.Error(), "monitoring.thresholds") {
		t.Errorf("error does not name the field: %v", err)
	}
}

func TestInvalidToolEntryIsWarningNotError(t *testing.T) {
	path := writeConfig(t, `
tools:
  - name: good
    priority: 5
  - name: bad
    priority: 42
  - name: good
    priority: 5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed on invalid tool entry, want warning: %v", err)
	}

	result := GetValidationResult(cfg)
	if !result.Valid {
		t.Fatalf("config invalid: %v", result.Errors)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("warnings = %d, want 2 (bad priority + duplicate)", len(result.Warnings))
	}
	if !strings.Contains(result.Warnings[0].Message, "skipped") {
		t.Errorf("warning does not mention skipping: %s", result.Warnings[0].Message)
	}
}

func TestUnknownDependencyIsWarning(t *testing.T) {
	path := writeConfig(t, `
tools:
  - name: search
    priority: 6
    dependencies: [missing]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	result := GetValidationResult(cfg)
	if len(result.Warnings) == 0 {
		t.Fatal("expected warning for unknown dependency")
	}
	if !strings.Contains(result.Warnings[0].Message, "unknown tool") {
		t.Errorf("warning = %s", result.Warnings[0].Message)
	}
}

func TestValidateTool(t *testing.T) {
	tests := []struct {
		name  string
		tool  ToolConfig
		valid bool
	}{
		{"minimal", ToolConfig{Name: "a", Priority: 1}, true},
		{"full", ToolConfig{Name: "a", Priority: 10, MaxCPUPercent: 50, MaxMemoryMB: 1024, InitialState: "paused"}, true},
		{"empty name", ToolConfig{Name: "  ", Priority: 5}, false},
		{"priority zero", ToolConfig{Name: "a", Priority: 0}, false},
		{"priority eleven", ToolConfig{Name: "a", Priority: 11}, false},
		{"negative memory", ToolConfig{Name: "a", Priority: 5, MaxMemoryMB: -1}, false},
		{"negative gpu", ToolConfig{Name: "a", Priority: 5, MaxGPUPercent: -0.1}, false},
		{"bad state", ToolConfig{Name: "a", Priority: 5, InitialState: "sleeping"}, false},
		{"self dependency", ToolConfig{Name: "a", Priority: 5, Dependencies: []string{"a"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTool(&tt.tool)
			if tt.valid && err != nil {
				t.Errorf("ValidateTool rejected valid config: %v", err)
			}
			if !tt.valid && err == nil {
				t.Errorf("ValidateTool accepted invalid config %+v", tt.tool)
			}
		})
	}
}

func TestValidationResultError(t *testing.T) {
	result := &ValidationResult{
		Errors: []ValidationError{
			{Field: "scaling.tick_interval", Message: "too short", Suggestion: "use 10s"},
		},
	}
	msg := result.Error()
	if !strings.Contains(msg, "scaling.tick_interval") || !strings.Contains(msg, "use 10s") {
		t.Errorf("Error() = %q, missing field or suggestion", msg)
	}
}

func TestSampleTimeoutMustBeBelowInterval(t *testing.T) {
	path := writeConfig(t, `
monitoring:
  sample_interval: 2s
  sample_timeout: 3s
`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load accepted timeout >= interval")
	}
}

func TestDwellBelowTickWarns(t *testing.T) {
	path := writeConfig(t, `
scaling:
  tick_interval: 30s
  dwell_time: 5s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	result := GetValidationResult(cfg)
	found := false
	for _, w := range result.Warnings {
		if w.Field == "scaling.dwell_time" {
			found = true
		}
	}
	if !found {
		t.Error("expected anti-flap warning for dwell_time < tick_interval")
	}
}
