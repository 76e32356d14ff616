package platform

import (
	"context"
	"errors"
	"testing"
)

func TestNewProviderSelection(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		platform string
		wantErr  bool
	}{
		{"nil config", nil, "gopsutil", false},
		{"default", &Config{}, "gopsutil", false},
		{"gopsutil by name", &Config{PreferredProvider: "gopsutil"}, "gopsutil", false},
		{"host alias", &Config{PreferredProvider: "host"}, "gopsutil", false},
		{"mock by name", &Config{PreferredProvider: "mock"}, "mock", false},
		{"mock override", &Config{PreferredProvider: "gopsutil", EnableMockProvider: true}, "mock", false},
		{"unknown", &Config{PreferredProvider: "hypervisor"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error for unknown provider")
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider failed: %v", err)
			}
			if p.Platform() != tt.platform {
				t.Errorf("Platform() = %s, want %s", p.Platform(), tt.platform)
			}
		})
	}
}

func TestMockProviderReadings(t *testing.T) {
	m := NewMockProvider()
	m.Set(42, 55, 10)
	m.SetGPUSupported(true)

	cpu, mem, gpu, err := m.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample failed: %v", err)
	}
	if cpu != 42 || mem != 55 || gpu != 10 {
		t.Errorf("readings = %v/%v/%v, want 42/55/10", cpu, mem, gpu)
	}
	if !m.GPUSupported() {
		t.Error("GPU support not reported")
	}
}

func TestMockProviderQueuedFailures(t *testing.T) {
	m := NewMockProvider()
	m.Set(30, 40, 0)
	failure := errors.New("sensor offline")
	m.Fail(failure, failure)

	for i := 0; i < 2; i++ {
		if _, _, _, err := m.Sample(context.Background()); !errors.Is(err, failure) {
			t.Fatalf("Sample %d err = %v, want queued failure", i, err)
		}
	}
	cpu, _, _, err := m.Sample(context.Background())
	if err != nil {
		t.Fatalf("Sample after queue drained failed: %v", err)
	}
	if cpu != 30 {
		t.Errorf("cpu = %v, want 30", cpu)
	}
	if m.SampleCount() != 3 {
		t.Errorf("SampleCount = %d, want 3", m.SampleCount())
	}
}
