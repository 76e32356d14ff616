package platform

import (
	"context"
	"sync"
)

// MockProvider is a deterministic metrics provider for tests. Readings are
// set explicitly; a queued error is returned once per Fail call.
type MockProvider struct {
	mu      sync.Mutex
	cpu     float64
	memory  float64
	gpu     float64
	hasGPU  bool
	errs    []error
	samples int
}

// NewMockProvider creates a mock provider reporting an idle host.
func NewMockProvider() *MockProvider {
	return &MockProvider{cpu: 5.0, memory: 10.0}
}

// Set replaces the readings returned by subsequent Sample calls.
func (m *MockProvider) Set(cpu, memory, gpu float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cpu, m.memory, m.gpu = cpu, memory, gpu
}

// SetGPUSupported toggles GPU availability.
func (m *MockProvider) SetGPUSupported(supported bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hasGPU = supported
}

// Fail queues errors to be returned by the next len(errs) Sample calls.
func (m *MockProvider) Fail(errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs = append(m.errs, errs...)
}

// SampleCount returns the number of Sample calls observed.
func (m *MockProvider) SampleCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.samples
}

func (m *MockProvider) Sample(ctx context.Context) (float64, float64, float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.samples++
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		return 0, 0, 0, err
	}
	return m.cpu, m.memory, m.gpu, nil
}

func (m *MockProvider) GPUSupported() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hasGPU
}

func (m *MockProvider) Platform() string { return "mock" }
