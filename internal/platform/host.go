package platform

import (
	"context"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// hostProvider reads real host utilization through gopsutil. GPU utilization
// is not available from gopsutil and is reported as unsupported.
type hostProvider struct {
	cpuWindow time.Duration
}

func newHostProvider(config *Config) *hostProvider {
	return &hostProvider{cpuWindow: config.CPUSampleWindow}
}

// Sample reads current CPU and memory utilization. With a zero CPU window the
// CPU reading is the instantaneous delta since the previous call, which is
// what a periodic sampler wants; a non-zero window blocks for that duration.
func (p *hostProvider) Sample(ctx context.Context) (float64, float64, float64, error) {
	cpuPercents, err := cpu.PercentWithContext(ctx, p.cpuWindow, false)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("cpu sample failed: %w", err)
	}
	if len(cpuPercents) == 0 {
		return 0, 0, 0, fmt.Errorf("cpu sample returned no data")
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("memory sample failed: %w", err)
	}

	return cpuPercents[0], vm.UsedPercent, 0, nil
}

func (p *hostProvider) GPUSupported() bool { return false }

func (p *hostProvider) Platform() string { return "gopsutil" }
