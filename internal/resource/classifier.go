package resource

import (
	"github.com/intelworks/tool-runtime-manager/internal/config"
	"github.com/intelworks/tool-runtime-manager/internal/types"
)

// Classifier maps the sampler's recent history onto a discrete resource
// level. It is a pure function over a history snapshot: deterministic and
// side-effect free.
type Classifier struct {
	sampler    *Sampler
	thresholds config.ThresholdConfig
	window     int
}

// NewClassifier creates a classifier over the given sampler.
func NewClassifier(cfg config.MonitoringConfig, sampler *Sampler) *Classifier {
	return &Classifier{
		sampler:    sampler,
		thresholds: cfg.Thresholds,
		window:     cfg.SmoothingSamples,
	}
}

// CurrentLevel computes the smoothed mean of the last K samples per metric,
// takes the max across CPU, memory and GPU, and maps it to a level by the
// configured half-open thresholds. An empty history classifies as low.
func (c *Classifier) CurrentLevel() types.ResourceLevel {
	return c.Classify(c.sampler.History())
}

// Classify applies the classification to an explicit history snapshot.
func (c *Classifier) Classify(history []types.ResourceSample) types.ResourceLevel {
	cpu, memory, gpu := c.smoothed(history)

	usage := cpu
	if memory > usage {
		usage = memory
	}
	if gpu > usage {
		usage = gpu
	}

	switch {
	case usage >= c.thresholds.Critical:
		return types.LevelCritical
	case usage >= c.thresholds.High:
		return types.LevelHigh
	case usage >= c.thresholds.Medium:
		return types.LevelMedium
	default:
		return types.LevelLow
	}
}

// Utilization returns the smoothed per-metric utilization over the current
// window, for reporting.
func (c *Classifier) Utilization() (cpu, memory, gpu float64) {
	return c.smoothed(c.sampler.History())
}

func (c *Classifier) smoothed(history []types.ResourceSample) (cpu, memory, gpu float64) {
	if len(history) == 0 {
		return 0, 0, 0
	}

	window := history
	if len(window) > c.window {
		window = window[len(window)-c.window:]
	}

	for _, s := range window {
		cpu += s.CPUPercent
		memory += s.MemoryPercent
		gpu += s.GPUPercent
	}
	n := float64(len(window))
	return cpu / n, memory / n, gpu / n
}
