package autoscaler

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/intelworks/tool-runtime-manager/internal/config"
	"github.com/intelworks/tool-runtime-manager/internal/platform"
	"github.com/intelworks/tool-runtime-manager/internal/registry"
	"github.com/intelworks/tool-runtime-manager/internal/resource"
	"github.com/intelworks/tool-runtime-manager/internal/types"
)

// env bundles a scaler with the knobs tests turn: the mock provider driving
// the classified level and the registry holding tool state.
type env struct {
	provider *platform.MockProvider
	sampler  *resource.Sampler
	registry *registry.Registry
	scaler   *Scaler
}

func newEnv(t *testing.T, dwell time.Duration, tools ...config.ToolConfig) *env {
	t.Helper()

	monitoring := config.MonitoringConfig{
		SampleInterval:   time.Second,
		SampleTimeout:    100 * time.Millisecond,
		HistorySize:      16,
		SmoothingSamples: 3,
		Thresholds:       config.ThresholdConfig{Medium: 50, High: 70, Critical: 90},
	}

	provider := platform.NewMockProvider()
	sampler := resource.NewSampler(monitoring, provider, zap.NewNop())
	classifier := resource.NewClassifier(monitoring, sampler)

	reg := registry.New(zap.NewNop())
	for _, cfg := range tools {
		if err := reg.Register(context.Background(), cfg); err != nil {
			t.Fatalf("Register(%s) failed: %v", cfg.Name, err)
		}
	}

	scaling := config.ScalingConfig{TickInterval: time.Second, DwellTime: dwell}
	scaler := New(scaling, reg, classifier, zap.NewNop())

	return &env{provider: provider, sampler: sampler, registry: reg, scaler: scaler}
}

// setLevel drives the classifier to the wanted level by filling the
// smoothing window with a single utilization value.
func (e *env) setLevel(t *testing.T, cpu float64) {
	t.Helper()
	e.provider.Set(cpu, 0, 0)
	for i := 0; i < 3; i++ {
		e.sampler.SampleOnce(context.Background())
	}
}

func (e *env) enable(t *testing.T, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := e.registry.Transition(context.Background(), name, types.LifecycleEnabled, types.ReasonManual); err != nil {
			t.Fatalf("enable %s: %v", name, err)
		}
	}
}

func (e *env) lifecycle(t *testing.T, name string) types.LifecycleState {
	t.Helper()
	st, ok := e.registry.Snapshot().Tools[name]
	if !ok {
		t.Fatalf("tool %s not in snapshot", name)
	}
	return st.Lifecycle
}

func TestSheddingScenario(t *testing.T) {
	// Three enabled tools A(2), B(6), C(9) under critical load: A is
	// disabled, B is paused, C stays enabled.
	e := newEnv(t, 0,
		config.ToolConfig{Name: "A", Priority: 2},
		config.ToolConfig{Name: "B", Priority: 6},
		config.ToolConfig{Name: "C", Priority: 9},
	)
	e.enable(t, "A", "B", "C")
	e.setLevel(t, 95)

	stats := e.scaler.Tick(context.Background())
	if stats.Level != types.LevelCritical {
		t.Fatalf("level = %s, want critical", stats.Level)
	}
	if stats.Failed > 0 {
		t.Fatalf("tick had %d failed transitions", stats.Failed)
	}

	if got := e.lifecycle(t, "A"); got != types.LifecycleDisabled {
		t.Errorf("A = %s, want disabled", got)
	}
	if got := e.lifecycle(t, "B"); got != types.LifecyclePaused {
		t.Errorf("B = %s, want paused", got)
	}
	if got := e.lifecycle(t, "C"); got != types.LifecycleEnabled {
		t.Errorf("C = %s, want enabled", got)
	}
}

func TestHighPausesLowPriorityOnly(t *testing.T) {
	e := newEnv(t, 0,
		config.ToolConfig{Name: "low", Priority: 4},
		config.ToolConfig{Name: "edge", Priority: 5},
		config.ToolConfig{Name: "mid", Priority: 6},
	)
	e.enable(t, "low", "edge", "mid")
	e.setLevel(t, 75)

	e.scaler.Tick(context.Background())

	if got := e.lifecycle(t, "low"); got != types.LifecyclePaused {
		t.Errorf("low = %s, want paused", got)
	}
	if got := e.lifecycle(t, "edge"); got != types.LifecyclePaused {
		t.Errorf("edge = %s, want paused", got)
	}
	if got := e.lifecycle(t, "mid"); got != types.LifecycleEnabled {
		t.Errorf("mid = %s, want enabled", got)
	}
}

func TestMediumIsSteadyState(t *testing.T) {
	e := newEnv(t, 0,
		config.ToolConfig{Name: "a", Priority: 2},
		config.ToolConfig{Name: "b", Priority: 8},
	)
	e.enable(t, "a", "b")
	e.setLevel(t, 60)

	stats := e.scaler.Tick(context.Background())
	if stats.Planned != 0 {
		t.Errorf("planned %d transitions at medium, want 0", stats.Planned)
	}
}

func TestPriorityMonotonicity(t *testing.T) {
	// After any tick, availability must not decrease with priority.
	var tools []config.ToolConfig
	names := []string{"p1", "p2", "p3", "p4", "p5", "p6", "p7", "p8", "p9", "p10"}
	for i, name := range names {
		tools = append(tools, config.ToolConfig{Name: name, Priority: i + 1})
	}
	e := newEnv(t, 0, tools...)
	e.enable(t, names...)

	rank := map[types.LifecycleState]int{
		types.LifecycleDisabled: 0,
		types.LifecyclePaused:   1,
		types.LifecycleEnabled:  2,
	}

	for _, cpu := range []float64{95, 75, 60, 10} {
		e.setLevel(t, cpu)
		e.scaler.Tick(context.Background())

		prev := -1
		for i, name := range names {
			got := rank[e.lifecycle(t, name)]
			if got < prev {
				t.Errorf("cpu=%v: priority %d is %s while priority %d is more available",
					cpu, i+1, e.lifecycle(t, name), i)
			}
			prev = got
		}
	}
}

func TestCriticalToolNeverTouched(t *testing.T) {
	e := newEnv(t, 0,
		config.ToolConfig{Name: "core", Priority: 9},
		config.ToolConfig{Name: "top", Priority: 10},
	)
	e.enable(t, "core", "top")

	for _, cpu := range []float64{95, 75, 10, 95, 95} {
		e.setLevel(t, cpu)
		e.scaler.Tick(context.Background())
		for _, name := range []string{"core", "top"} {
			if got := e.lifecycle(t, name); got != types.LifecycleEnabled {
				t.Fatalf("cpu=%v: %s = %s, want enabled", cpu, name, got)
			}
		}
	}
}

func TestResumeFixedPointUnderLow(t *testing.T) {
	e := newEnv(t, 0,
		config.ToolConfig{Name: "a", Priority: 3},
		config.ToolConfig{Name: "b", Priority: 5},
		config.ToolConfig{Name: "c", Priority: 7, Dependencies: []string{"b"}},
	)
	e.enable(t, "a", "b", "c")

	// Pause everything via a high tick, then recover.
	e.setLevel(t, 75)
	e.scaler.Tick(context.Background())

	e.setLevel(t, 10)
	e.scaler.Tick(context.Background())

	for _, name := range []string{"a", "b", "c"} {
		if got := e.lifecycle(t, name); got != types.LifecycleEnabled {
			t.Errorf("%s = %s, want enabled after low tick", name, got)
		}
	}

	// Repeated ticks under stable low reach a fixed point.
	for i := 0; i < 5; i++ {
		stats := e.scaler.Tick(context.Background())
		if stats.Planned != 0 {
			t.Fatalf("tick %d planned %d transitions, want fixed point", i, stats.Planned)
		}
	}
}

func TestCriticalShedRecoversUnderLow(t *testing.T) {
	// A is shed to disabled at critical, cascading its dependent D to
	// paused. Sustained low must bring both back without operator help,
	// while a manually disabled tool stays down.
	e := newEnv(t, 0,
		config.ToolConfig{Name: "A", Priority: 2},
		config.ToolConfig{Name: "D", Priority: 6, Dependencies: []string{"A"}},
		config.ToolConfig{Name: "parked", Priority: 2},
	)
	e.enable(t, "A", "D")

	e.setLevel(t, 95)
	e.scaler.Tick(context.Background())
	if got := e.lifecycle(t, "A"); got != types.LifecycleDisabled {
		t.Fatalf("A = %s, want disabled after critical tick", got)
	}
	if got := e.lifecycle(t, "D"); got != types.LifecyclePaused {
		t.Fatalf("D = %s, want paused after critical tick", got)
	}

	e.setLevel(t, 10)
	e.scaler.Tick(context.Background())
	if got := e.lifecycle(t, "A"); got != types.LifecycleEnabled {
		t.Errorf("A = %s, want re-enabled under low", got)
	}
	if got := e.lifecycle(t, "D"); got != types.LifecycleEnabled {
		t.Errorf("D = %s, want resumed under low", got)
	}
	if got := e.lifecycle(t, "parked"); got != types.LifecycleDisabled {
		t.Errorf("parked = %s, want disabled (operator choice survives)", got)
	}

	for i := 0; i < 5; i++ {
		stats := e.scaler.Tick(context.Background())
		if stats.Planned != 0 {
			t.Fatalf("tick %d planned %d transitions, want fixed point", i, stats.Planned)
		}
	}
}

func TestUnmetDependencyResumption(t *testing.T) {
	// D is paused and depends on A, which is disabled. D must stay paused
	// until A is enabled, then resume on a later tick.
	e := newEnv(t, 0,
		config.ToolConfig{Name: "A", Priority: 5},
		config.ToolConfig{Name: "D", Priority: 5, Dependencies: []string{"A"}},
	)
	e.enable(t, "A", "D")
	if err := e.registry.Transition(context.Background(), "A", types.LifecycleDisabled, types.ReasonManual); err != nil {
		t.Fatalf("disable A: %v", err)
	}
	// A's disable cascaded D to paused.
	if got := e.lifecycle(t, "D"); got != types.LifecyclePaused {
		t.Fatalf("D = %s, want paused after dependency loss", got)
	}

	e.setLevel(t, 10)
	e.scaler.Tick(context.Background())
	if got := e.lifecycle(t, "D"); got != types.LifecyclePaused {
		t.Errorf("D = %s, want still paused while A is disabled", got)
	}

	e.enable(t, "A")
	e.scaler.Tick(context.Background())
	if got := e.lifecycle(t, "D"); got != types.LifecycleEnabled {
		t.Errorf("D = %s, want enabled after A came back", got)
	}
}

func TestResumeOrdersDependenciesWithinTick(t *testing.T) {
	e := newEnv(t, 0,
		config.ToolConfig{Name: "base", Priority: 4},
		config.ToolConfig{Name: "leaf", Priority: 8, Dependencies: []string{"base"}},
	)
	e.enable(t, "base", "leaf")

	e.setLevel(t, 95)
	e.scaler.Tick(context.Background()) // both below 9: paused

	e.setLevel(t, 10)
	stats := e.scaler.Tick(context.Background())
	if stats.Failed > 0 {
		t.Fatalf("resume tick failed %d transitions", stats.Failed)
	}
	for _, name := range []string{"base", "leaf"} {
		if got := e.lifecycle(t, name); got != types.LifecycleEnabled {
			t.Errorf("%s = %s, want enabled in one tick", name, got)
		}
	}
}

func TestErrorExclusionAcrossTicks(t *testing.T) {
	e := newEnv(t, 0, config.ToolConfig{Name: "flaky", Priority: 2})
	e.enable(t, "flaky")
	if err := e.registry.Transition(context.Background(), "flaky", types.LifecycleError, types.ReasonToolFailure); err != nil {
		t.Fatalf("push to error: %v", err)
	}

	levels := []float64{95, 75, 10, 60}
	for i := 0; i < 12; i++ {
		e.setLevel(t, levels[i%len(levels)])
		e.scaler.Tick(context.Background())
		if got := e.lifecycle(t, "flaky"); got != types.LifecycleError {
			t.Fatalf("tick %d: flaky = %s, want error", i, got)
		}
	}
}

func TestAutoScaleOptOut(t *testing.T) {
	off := false
	e := newEnv(t, 0,
		config.ToolConfig{Name: "managed", Priority: 2},
		config.ToolConfig{Name: "pinned", Priority: 2, AutoScale: &off},
	)
	e.enable(t, "managed", "pinned")
	e.setLevel(t, 95)

	e.scaler.Tick(context.Background())

	if got := e.lifecycle(t, "managed"); got != types.LifecycleDisabled {
		t.Errorf("managed = %s, want disabled", got)
	}
	if got := e.lifecycle(t, "pinned"); got != types.LifecycleEnabled {
		t.Errorf("pinned = %s, want enabled (auto_scale=false)", got)
	}
}

func TestKillSwitchSuppressesApplication(t *testing.T) {
	e := newEnv(t, 0, config.ToolConfig{Name: "a", Priority: 2})
	e.enable(t, "a")
	e.setLevel(t, 95)

	e.scaler.SetEnabled(false)
	stats := e.scaler.Tick(context.Background())

	if !stats.Skipped {
		t.Error("tick not marked skipped with kill-switch off")
	}
	if stats.Planned == 0 {
		t.Error("tick should still plan transitions for observability")
	}
	if got := e.lifecycle(t, "a"); got != types.LifecycleEnabled {
		t.Errorf("a = %s, want enabled (nothing applied)", got)
	}

	e.scaler.SetEnabled(true)
	e.scaler.Tick(context.Background())
	if got := e.lifecycle(t, "a"); got != types.LifecycleDisabled {
		t.Errorf("a = %s, want disabled after re-enabling", got)
	}
}

func TestDwellTimeDampsFlapping(t *testing.T) {
	e := newEnv(t, time.Hour, config.ToolConfig{Name: "a", Priority: 2})
	e.enable(t, "a") // transition timestamp is now
	e.setLevel(t, 95)

	stats := e.scaler.Tick(context.Background())
	if stats.Planned != 0 {
		t.Errorf("planned %d transitions within dwell window, want 0", stats.Planned)
	}
	if got := e.lifecycle(t, "a"); got != types.LifecycleEnabled {
		t.Errorf("a = %s, want enabled", got)
	}
}

func TestTickCounter(t *testing.T) {
	e := newEnv(t, 0)
	e.setLevel(t, 10)

	var seen []TickStats
	e.scaler.OnTick = func(stats TickStats) { seen = append(seen, stats) }

	for i := 0; i < 3; i++ {
		e.scaler.Tick(context.Background())
	}
	if got := e.scaler.TickCount(); got != 3 {
		t.Errorf("TickCount = %d, want 3", got)
	}
	if len(seen) != 3 || seen[2].Seq != 3 {
		t.Errorf("OnTick stats = %+v, want 3 entries ending at seq 3", seen)
	}
}
