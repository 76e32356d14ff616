package resource

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/intelworks/tool-runtime-manager/internal/platform"
	"github.com/intelworks/tool-runtime-manager/internal/types"
)

func sampleOf(cpu, memory, gpu float64) types.ResourceSample {
	return types.ResourceSample{CPUPercent: cpu, MemoryPercent: memory, GPUPercent: gpu}
}

func TestClassifyThresholds(t *testing.T) {
	c := NewClassifier(testMonitoringConfig(8, 3), nil)

	tests := []struct {
		name    string
		history []types.ResourceSample
		want    types.ResourceLevel
	}{
		{"empty history", nil, types.LevelLow},
		{"idle", []types.ResourceSample{sampleOf(5, 10, 0)}, types.LevelLow},
		{"just below medium", []types.ResourceSample{sampleOf(49.9, 0, 0)}, types.LevelLow},
		{"medium boundary", []types.ResourceSample{sampleOf(50, 0, 0)}, types.LevelMedium},
		{"high boundary", []types.ResourceSample{sampleOf(70, 0, 0)}, types.LevelHigh},
		{"just below critical", []types.ResourceSample{sampleOf(89.9, 0, 0)}, types.LevelHigh},
		{"critical boundary", []types.ResourceSample{sampleOf(90, 0, 0)}, types.LevelCritical},
		{"memory drives level", []types.ResourceSample{sampleOf(10, 95, 0)}, types.LevelCritical},
		{"gpu drives level", []types.ResourceSample{sampleOf(10, 10, 75)}, types.LevelHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.Classify(tt.history); got != tt.want {
				t.Errorf("Classify() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestClassifySmoothsOverWindow(t *testing.T) {
	c := NewClassifier(testMonitoringConfig(8, 3), nil)

	// A single 95% spike inside a calm window averages out below critical.
	history := []types.ResourceSample{
		sampleOf(20, 0, 0),
		sampleOf(95, 0, 0),
		sampleOf(20, 0, 0),
	}
	if got := c.Classify(history); got != types.LevelLow {
		t.Errorf("Classify(spike) = %s, want low (mean 45)", got)
	}

	// Only the last K samples count: old spikes fall out of the window.
	history = []types.ResourceSample{
		sampleOf(95, 0, 0),
		sampleOf(10, 0, 0),
		sampleOf(10, 0, 0),
		sampleOf(10, 0, 0),
	}
	if got := c.Classify(history); got != types.LevelLow {
		t.Errorf("Classify(old spike) = %s, want low", got)
	}
}

func TestCurrentLevelFromSampler(t *testing.T) {
	provider := platform.NewMockProvider()
	s := NewSampler(testMonitoringConfig(8, 3), provider, zap.NewNop())
	c := NewClassifier(testMonitoringConfig(8, 3), s)

	if got := c.CurrentLevel(); got != types.LevelLow {
		t.Errorf("CurrentLevel() = %s, want low before sampling", got)
	}

	provider.Set(95, 40, 0)
	for i := 0; i < 3; i++ {
		s.SampleOnce(context.Background())
	}
	if got := c.CurrentLevel(); got != types.LevelCritical {
		t.Errorf("CurrentLevel() = %s, want critical", got)
	}

	cpu, memory, gpu := c.Utilization()
	if cpu != 95 || memory != 40 || gpu != 0 {
		t.Errorf("Utilization() = %v/%v/%v, want 95/40/0", cpu, memory, gpu)
	}
}
