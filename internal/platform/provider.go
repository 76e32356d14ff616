// Package platform provides host metrics providers for the resource sampler.
// The default provider reads CPU and memory utilization through gopsutil and
// treats GPU utilization as unavailable; deployments with accelerators can
// plug in their own types.MetricsProvider implementation.
package platform

import (
	"fmt"
	"time"

	"github.com/intelworks/tool-runtime-manager/internal/types"
)

// Config controls provider construction.
type Config struct {
	// PreferredProvider selects an implementation by name; empty selects
	// the gopsutil-backed host provider.
	PreferredProvider string

	// CPUSampleWindow is the measurement window passed to the CPU counter.
	// Zero means an instantaneous (non-blocking) reading.
	CPUSampleWindow time.Duration

	// EnableMockProvider forces the deterministic mock, used by tests.
	EnableMockProvider bool
}

// DefaultProvider creates a metrics provider for the current host.
func DefaultProvider() (types.MetricsProvider, error) {
	return NewProvider(&Config{})
}

// NewProvider creates a metrics provider with the specified configuration.
func NewProvider(config *Config) (types.MetricsProvider, error) {
	if config == nil {
		config = &Config{}
	}

	if config.EnableMockProvider {
		return NewMockProvider(), nil
	}

	switch config.PreferredProvider {
	case "", "gopsutil", "host":
		return newHostProvider(config), nil
	case "mock":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unknown metrics provider %q", config.PreferredProvider)
	}
}
