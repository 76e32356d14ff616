// Package app is the composition root: it wires the sampler, classifier,
// registry, control loop, health monitor, storage and control API together
// and owns their lifecycle.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/intelworks/tool-runtime-manager/internal/api"
	"github.com/intelworks/tool-runtime-manager/internal/autoscaler"
	"github.com/intelworks/tool-runtime-manager/internal/config"
	"github.com/intelworks/tool-runtime-manager/internal/health"
	"github.com/intelworks/tool-runtime-manager/internal/platform"
	"github.com/intelworks/tool-runtime-manager/internal/prometheus"
	"github.com/intelworks/tool-runtime-manager/internal/registry"
	"github.com/intelworks/tool-runtime-manager/internal/resource"
	"github.com/intelworks/tool-runtime-manager/internal/storage"
	"github.com/intelworks/tool-runtime-manager/internal/telemetry"
	"github.com/intelworks/tool-runtime-manager/internal/types"
)

// Manager coordinates all system components.
type Manager struct {
	config     *config.Config
	configPath string
	logger     *zap.Logger

	registry   *registry.Registry
	sampler    *resource.Sampler
	classifier *resource.Classifier
	scaler     *autoscaler.Scaler
	monitor    *health.Monitor
	store      *storage.Store
	exporter   *prometheus.Exporter
	operations *api.Manager
	server     *api.Server

	telemetryService *telemetry.Service
	eventEmitter     *telemetry.EventEmitter

	mu         sync.RWMutex
	running    bool
	startTime  time.Time
	lastReload time.Time
}

// NewManager wires all components from the configuration. configPath is kept
// for SIGHUP reloads; pass "" when the config did not come from a file.
func NewManager(cfg *config.Config, configPath string, logger *zap.Logger) (*Manager, error) {
	provider, err := platform.DefaultProvider()
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics provider: %w", err)
	}
	return newManager(cfg, configPath, provider, logger)
}

// NewManagerWithProvider wires all components with an explicit metrics
// provider. Used by tests to substitute the mock provider.
func NewManagerWithProvider(cfg *config.Config, provider types.MetricsProvider, logger *zap.Logger) (*Manager, error) {
	return newManager(cfg, "", provider, logger)
}

func newManager(cfg *config.Config, configPath string, provider types.MetricsProvider, logger *zap.Logger) (*Manager, error) {
	m := &Manager{
		config:     cfg,
		configPath: configPath,
		logger:     logger,
	}

	m.sampler = resource.NewSampler(cfg.Monitoring, provider, logger.Named("sampler"))
	m.classifier = resource.NewClassifier(cfg.Monitoring, m.sampler)
	m.registry = registry.NewFromConfig(cfg.Tools, logger.Named("registry"))
	m.scaler = autoscaler.New(cfg.Scaling, m.registry, m.classifier, logger.Named("autoscaler"))
	m.monitor = health.New(cfg.Health, m.registry, m.sampler, m.classifier, m.scaler, logger.Named("health"))

	telemetryService, err := telemetry.NewService(cfg.Telemetry, logger.Named("telemetry"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	m.telemetryService = telemetryService
	m.eventEmitter = telemetry.NewEventEmitter(telemetryService, logger.Named("events"))

	store, err := storage.New(cfg.Storage, logger.Named("storage"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize event storage: %w", err)
	}
	m.store = store

	m.exporter = prometheus.NewExporter(m.registry, m.sampler, m.classifier, m.scaler, m.monitor, logger.Named("prometheus"))

	// Fan committed transitions out to the audit trail, traces and metrics.
	m.registry.AddObserver(m.store.Observer())
	m.registry.AddObserver(m.eventEmitter.Observer())
	m.registry.AddObserver(m.exporter.Observer())

	emitTick := m.eventEmitter.OnTick()
	countTick := m.exporter.OnTick()
	m.scaler.OnTick = func(stats autoscaler.TickStats) {
		emitTick(stats)
		countTick(stats)
	}

	m.operations = api.NewManager(m.registry, m.monitor, m.scaler, logger.Named("api"))
	m.server = api.NewServer(cfg.Server, m.operations, m.store, m.exporter.Handler(), logger.Named("server"))

	return m, nil
}

// Registry exposes the tool registry, primarily for tests.
func (m *Manager) Registry() *registry.Registry { return m.registry }

// Operations exposes the typed control surface.
func (m *Manager) Operations() *api.Manager { return m.operations }

// Health computes the current health report.
func (m *Manager) Health() types.HealthReport { return m.monitor.Report() }

// IsRunning reports whether Run is active.
func (m *Manager) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// Run starts every component and blocks until ctx is cancelled or a
// component fails.
func (m *Manager) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("manager is already running")
	}
	m.running = true
	m.startTime = time.Now()
	m.mu.Unlock()

	// Declared initial states are applied before the loops start so the
	// first tick sees the configured world.
	m.registry.ApplyInitialStates(ctx)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		m.logger.Info("Starting resource sampler")
		return m.sampler.Run(gCtx)
	})
	g.Go(func() error {
		m.logger.Info("Starting auto-scaler")
		return m.scaler.Run(gCtx)
	})
	g.Go(func() error {
		m.logger.Info("Starting health recovery sweep")
		return m.monitor.Run(gCtx)
	})
	g.Go(func() error {
		m.logger.Info("Starting audit retention loop")
		return m.store.Run(gCtx)
	})
	g.Go(func() error {
		return m.server.Run(gCtx)
	})

	m.logger.Info("Manager started",
		zap.Int("tools", len(m.registry.Snapshot().Tools)),
		zap.String("bind_address", m.config.Server.BindAddress))

	err := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if stopErr := m.telemetryService.Stop(shutdownCtx); stopErr != nil {
		m.logger.Error("Failed to stop telemetry", zap.Error(stopErr))
	}
	if closeErr := m.store.Close(); closeErr != nil {
		m.logger.Error("Failed to close event storage", zap.Error(closeErr))
	}

	m.mu.Lock()
	m.running = false
	m.mu.Unlock()

	if err != nil && err != context.Canceled {
		m.logger.Error("Manager stopped with error", zap.Error(err))
		return err
	}
	m.logger.Info("Manager stopped gracefully")
	return nil
}

// Reload re-reads the configuration file and applies the safely reloadable
// parts: the tool set (new entries registered, removed entries unregistered,
// changed entries merged) and the scaling kill-switch. Sampling intervals and
// the server address require a restart.
func (m *Manager) Reload(ctx context.Context) error {
	if m.configPath == "" {
		return fmt.Errorf("no config file to reload")
	}
	m.logger.Info("Reloading configuration", zap.String("path", m.configPath))

	newConfig, err := config.Load(m.configPath)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}

	if err := m.reconcileTools(ctx, newConfig.Tools); err != nil {
		return err
	}
	m.scaler.SetEnabled(newConfig.Scaling.ScalingEnabled())

	m.mu.Lock()
	m.config = newConfig
	m.lastReload = time.Now()
	m.mu.Unlock()

	m.logger.Info("Configuration reloaded")
	return nil
}

// reconcileTools diffs the configured tool set against the registry.
func (m *Manager) reconcileTools(ctx context.Context, tools []config.ToolConfig) error {
	snap := m.registry.Snapshot()

	desired := make(map[string]config.ToolConfig, len(tools))
	for i := range tools {
		cfg := tools[i]
		if err := config.ValidateTool(&cfg); err != nil {
			m.logger.Warn("Skipping tool entry on reload",
				zap.String("tool", cfg.Name), zap.Error(err))
			continue
		}
		desired[cfg.Name] = cfg
	}

	for name := range snap.Tools {
		if _, ok := desired[name]; ok {
			continue
		}
		if err := m.registry.Unregister(ctx, name); err != nil {
			m.logger.Warn("Failed to unregister removed tool",
				zap.String("tool", name), zap.Error(err))
		}
	}

	for name, cfg := range desired {
		if _, ok := snap.Tools[name]; !ok {
			if err := m.registry.Register(ctx, cfg); err != nil {
				m.logger.Warn("Failed to register new tool",
					zap.String("tool", name), zap.Error(err))
			}
			continue
		}
		update := registry.ConfigUpdate{
			Priority:            &cfg.Priority,
			MaxCPUPercent:       &cfg.MaxCPUPercent,
			MaxMemoryMB:         &cfg.MaxMemoryMB,
			MaxGPUPercent:       &cfg.MaxGPUPercent,
			Dependencies:        &cfg.Dependencies,
			HealthCheckInterval: &cfg.HealthCheckInterval,
			StartupTimeout:      &cfg.StartupTimeout,
		}
		if cfg.AutoScale != nil {
			update.AutoScale = cfg.AutoScale
		}
		if err := m.registry.UpdateConfig(ctx, name, update); err != nil {
			m.logger.Warn("Failed to update tool on reload",
				zap.String("tool", name), zap.Error(err))
		}
	}
	return nil
}
