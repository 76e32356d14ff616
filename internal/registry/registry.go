// Package registry holds the authoritative mapping of tool name to
// configuration and lifecycle state. All mutations are serialized through a
// single fair write lock with context-bounded acquisition; readers observe
// an immutable snapshot published atomically after each commit, so a status
// query concurrent with an auto-scaler tick sees either the pre-tick or the
// fully post-tick registry, never a partial one.
package registry

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/intelworks/tool-runtime-manager/internal/config"
	"github.com/intelworks/tool-runtime-manager/internal/types"
)

// tool is one registered entry. Touched only while holding the write lock.
type tool struct {
	config            config.ToolConfig
	autoScale         bool
	lifecycle         types.LifecycleState
	lastTransitionAt  time.Time
	lastReason        types.TransitionReason
	consecutiveErrors int
	notifier          types.ToolNotifier
}

// Transition is one requested lifecycle change.
type Transition struct {
	Name   string
	To     types.LifecycleState
	Reason types.TransitionReason
}

// Event describes one committed lifecycle change, for audit sinks.
type Event struct {
	Seq       uint64
	Tool      string
	From      types.LifecycleState
	To        types.LifecycleState
	Reason    types.TransitionReason
	Timestamp time.Time
}

// Observer receives committed transition events. Observers must not call
// back into the registry's write path.
type Observer func(Event)

// Snapshot is an immutable view of the registry at one commit point.
type Snapshot struct {
	Seq         uint64
	Tools       map[string]types.ToolStatus
	GeneratedAt time.Time
}

// List returns the snapshot's tool statuses sorted by name.
func (s *Snapshot) List() []types.ToolStatus {
	out := make([]types.ToolStatus, 0, len(s.Tools))
	for _, st := range s.Tools {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Registry is the shared mutable state of the manager.
type Registry struct {
	logger *zap.Logger

	// writeLock serializes every mutation. semaphore.Weighted queues
	// waiters FIFO, so the auto-scaler tick cannot be starved by API
	// callers, and Acquire honors context deadlines for bounded waits.
	writeLock *semaphore.Weighted

	tools      map[string]*tool
	dependents map[string]map[string]bool // reverse dependency edges

	snapshot  atomic.Pointer[Snapshot]
	seq       atomic.Uint64
	observers []Observer
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	r := &Registry{
		logger:     logger,
		writeLock:  semaphore.NewWeighted(1),
		tools:      make(map[string]*tool),
		dependents: make(map[string]map[string]bool),
	}
	r.publish()
	return r
}

// NewFromConfig creates a registry from configured tool entries. Invalid
// entries and duplicates are logged and skipped rather than aborting
// startup. The returned registry has every tool in its declared initial
// state except enabled, which is applied separately by ApplyInitialStates
// so that dependency ordering is honored.
func NewFromConfig(tools []config.ToolConfig, logger *zap.Logger) *Registry {
	r := New(logger)
	for i := range tools {
		cfg := tools[i]
		if err := r.Register(context.Background(), cfg); err != nil {
			logger.Warn("Skipping tool entry",
				zap.String("tool", cfg.Name),
				zap.Error(err))
		}
	}
	return r
}

// Register adds a tool. The lifecycle starts disabled, or paused when the
// static configuration declares it; an enabled initial state is deferred to
// ApplyInitialStates. The wait for the write lock is bounded by ctx.
func (r *Registry) Register(ctx context.Context, cfg config.ToolConfig) error {
	if err := config.ValidateTool(&cfg); err != nil {
		return err
	}

	if err := r.acquire(ctx); err != nil {
		return err
	}
	defer r.release()

	if _, ok := r.tools[cfg.Name]; ok {
		return ErrToolExists
	}

	initial := types.LifecycleDisabled
	if cfg.InitialState == "paused" {
		initial = types.LifecyclePaused
	}

	r.tools[cfg.Name] = &tool{
		config:           cfg,
		autoScale:        cfg.AutoScaleEnabled(),
		lifecycle:        initial,
		lastTransitionAt: time.Now(),
		lastReason:       types.ReasonManual,
	}
	for _, dep := range cfg.Dependencies {
		if r.dependents[dep] == nil {
			r.dependents[dep] = make(map[string]bool)
		}
		r.dependents[dep][cfg.Name] = true
	}
	r.finish(nil)
	return nil
}

// Unregister removes a tool. Enabled dependents are cascaded to paused
// first, exactly as if the tool had been disabled.
func (r *Registry) Unregister(ctx context.Context, name string) error {
	if err := r.acquire(ctx); err != nil {
		return err
	}
	defer r.release()

	t, ok := r.tools[name]
	if !ok {
		return ErrToolNotFound
	}

	var events []Event
	if t.lifecycle == types.LifecycleEnabled {
		events = r.cascadeDependents(name)
		r.applyEvents(events)
	}
	delete(r.tools, name)
	delete(r.dependents, name)
	for _, deps := range r.dependents {
		delete(deps, name)
	}
	r.finish(events)
	return nil
}

// SetNotifier attaches the tool-side lifecycle collaborator. The wait for
// the write lock is bounded by ctx.
func (r *Registry) SetNotifier(ctx context.Context, name string, n types.ToolNotifier) error {
	if err := r.acquire(ctx); err != nil {
		return err
	}
	defer r.release()

	t, ok := r.tools[name]
	if !ok {
		return ErrToolNotFound
	}
	t.notifier = n
	return nil
}

// AddObserver registers an audit sink for committed transitions.
func (r *Registry) AddObserver(obs Observer) {
	if err := r.writeLock.Acquire(context.Background(), 1); err != nil {
		return
	}
	defer r.release()
	r.observers = append(r.observers, obs)
}

// Snapshot returns the current immutable registry view. Never nil.
func (r *Registry) Snapshot() *Snapshot {
	return r.snapshot.Load()
}

// Transition applies a single lifecycle change. The wait for the write lock
// is bounded by ctx; ErrLockTimeout is returned when it expires.
func (r *Registry) Transition(ctx context.Context, name string, to types.LifecycleState, reason types.TransitionReason) error {
	return r.Apply(ctx, []Transition{{Name: name, To: to, Reason: reason}})
}

// Apply commits a batch of transitions atomically: either every transition
// (and its dependency cascades) is validated and applied in order, or none
// is, and the published snapshot moves in one step.
func (r *Registry) Apply(ctx context.Context, transitions []Transition) error {
	if len(transitions) == 0 {
		return nil
	}
	if err := r.acquire(ctx); err != nil {
		return err
	}
	defer r.release()

	staged, err := r.stage(transitions)
	if err != nil {
		return err
	}
	r.commit(staged)
	return nil
}

// ApplyBestEffort commits each transition independently, collecting a
// per-tool result instead of failing the batch on the first error. All
// successful transitions land in one atomic commit.
func (r *Registry) ApplyBestEffort(ctx context.Context, transitions []Transition) (map[string]error, error) {
	results := make(map[string]error, len(transitions))
	if err := r.acquire(ctx); err != nil {
		return nil, err
	}
	defer r.release()

	var all []Event
	for _, tr := range transitions {
		staged, err := r.stage([]Transition{tr})
		if err != nil {
			results[tr.Name] = err
			continue
		}
		// Commit incrementally so later entries in the batch observe
		// earlier successes (e.g. bulk-enabling a dependency chain).
		r.applyEvents(staged)
		all = append(all, staged...)
		results[tr.Name] = nil
	}
	r.finish(all)
	return results, nil
}

// UpdateConfig merges a partial configuration update into a tool's config.
// The merged result is validated before commit; a rejected update leaves the
// prior configuration untouched.
func (r *Registry) UpdateConfig(ctx context.Context, name string, update ConfigUpdate) error {
	if err := r.acquire(ctx); err != nil {
		return err
	}
	defer r.release()

	t, ok := r.tools[name]
	if !ok {
		return ErrToolNotFound
	}

	merged := t.config
	update.applyTo(&merged)
	if err := config.ValidateTool(&merged); err != nil {
		return err
	}

	// A dependency change must not break the invariant for a currently
	// enabled tool.
	if t.lifecycle == types.LifecycleEnabled {
		if missing := r.unmetDependencies(merged.Dependencies); len(missing) > 0 {
			return &DependencyUnmetError{Tool: name, Missing: missing}
		}
	}

	// Rebuild reverse edges for this tool.
	for _, deps := range r.dependents {
		delete(deps, name)
	}
	for _, dep := range merged.Dependencies {
		if r.dependents[dep] == nil {
			r.dependents[dep] = make(map[string]bool)
		}
		r.dependents[dep][name] = true
	}

	t.config = merged
	if update.AutoScale != nil {
		t.autoScale = *update.AutoScale
	}
	r.finish(nil)
	return nil
}

// ApplyInitialStates enables the tools whose configuration declares an
// enabled initial state, in dependency order. A tool whose dependencies
// cannot be satisfied is logged and left disabled.
func (r *Registry) ApplyInitialStates(ctx context.Context) {
	var pending []string
	if err := r.acquire(ctx); err != nil {
		return
	}
	for name, t := range r.tools {
		if t.config.InitialState == "enabled" && t.lifecycle == types.LifecycleDisabled {
			pending = append(pending, name)
		}
	}
	r.release()
	sort.Strings(pending)

	// Iterate until a pass makes no progress; this resolves dependency
	// chains without an explicit topological sort.
	for len(pending) > 0 {
		var next []string
		progressed := false
		for _, name := range pending {
			err := r.Transition(ctx, name, types.LifecycleEnabled, types.ReasonManual)
			switch {
			case err == nil:
				progressed = true
			case isDependencyUnmet(err):
				next = append(next, name)
			default:
				r.logger.Warn("Could not apply initial state",
					zap.String("tool", name), zap.Error(err))
			}
		}
		if !progressed {
			for _, name := range next {
				r.logger.Warn("Initial enable deferred: dependencies unmet",
					zap.String("tool", name))
			}
			return
		}
		pending = next
	}
}

// ConfigUpdate is a partial tool configuration change. Nil fields are left
// unchanged.
type ConfigUpdate struct {
	Priority            *int           `json:"priority,omitempty"`
	MaxCPUPercent       *float64       `json:"max_cpu_percent,omitempty"`
	MaxMemoryMB         *int           `json:"max_memory_mb,omitempty"`
	MaxGPUPercent       *float64       `json:"max_gpu_percent,omitempty"`
	AutoScale           *bool          `json:"auto_scale,omitempty"`
	Dependencies        *[]string      `json:"dependencies,omitempty"`
	HealthCheckInterval *time.Duration `json:"health_check_interval,omitempty"`
	StartupTimeout      *time.Duration `json:"startup_timeout,omitempty"`
}

func (u ConfigUpdate) applyTo(cfg *config.ToolConfig) {
	if u.Priority != nil {
		cfg.Priority = *u.Priority
	}
	if u.MaxCPUPercent != nil {
		cfg.MaxCPUPercent = *u.MaxCPUPercent
	}
	if u.MaxMemoryMB != nil {
		cfg.MaxMemoryMB = *u.MaxMemoryMB
	}
	if u.MaxGPUPercent != nil {
		cfg.MaxGPUPercent = *u.MaxGPUPercent
	}
	if u.AutoScale != nil {
		cfg.AutoScale = u.AutoScale
	}
	if u.Dependencies != nil {
		cfg.Dependencies = append([]string(nil), (*u.Dependencies)...)
	}
	if u.HealthCheckInterval != nil {
		cfg.HealthCheckInterval = *u.HealthCheckInterval
	}
	if u.StartupTimeout != nil {
		cfg.StartupTimeout = *u.StartupTimeout
	}
}

// --- internal machinery (write lock held) ---

func (r *Registry) acquire(ctx context.Context) error {
	if err := r.writeLock.Acquire(ctx, 1); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return ErrLockTimeout
		}
		return err
	}
	return nil
}

func (r *Registry) release() {
	r.writeLock.Release(1)
}

// stage validates a batch of transitions against the current state without
// committing; it returns the events to apply, including dependency cascades.
func (r *Registry) stage(transitions []Transition) ([]Event, error) {
	// Work on a scratch view of lifecycle states so later transitions in
	// the batch observe earlier ones, without touching committed state.
	scratch := make(map[string]types.LifecycleState, len(r.tools))
	for name, t := range r.tools {
		scratch[name] = t.lifecycle
	}

	var events []Event
	record := func(name string, to types.LifecycleState, reason types.TransitionReason) {
		events = append(events, Event{
			Tool:   name,
			From:   scratch[name],
			To:     to,
			Reason: reason,
		})
		scratch[name] = to
	}

	var cascade func(name string)
	cascade = func(name string) {
		for dep := range r.dependents[name] {
			if scratch[dep] == types.LifecycleEnabled {
				record(dep, types.LifecyclePaused, types.ReasonDependencyUnmet)
				cascade(dep)
			}
		}
	}

	for _, tr := range transitions {
		t, ok := r.tools[tr.Name]
		if !ok {
			return nil, ErrToolNotFound
		}
		from := scratch[tr.Name]
		if from == tr.To {
			continue // idempotent no-op
		}

		switch tr.To {
		case types.LifecycleEnabled:
			if from == types.LifecycleError {
				return nil, ErrToolInError
			}
			var missing []string
			for _, dep := range t.config.Dependencies {
				if scratch[dep] != types.LifecycleEnabled {
					missing = append(missing, dep)
				}
			}
			if len(missing) > 0 {
				return nil, &DependencyUnmetError{Tool: tr.Name, Missing: missing}
			}
			record(tr.Name, tr.To, tr.Reason)

		case types.LifecyclePaused:
			if from != types.LifecycleEnabled {
				return nil, &InvalidTransitionError{Tool: tr.Name, From: from, To: tr.To}
			}
			record(tr.Name, tr.To, tr.Reason)
			cascade(tr.Name)

		case types.LifecycleDisabled:
			if from == types.LifecycleError && tr.Reason != types.ReasonErrorRecovery && tr.Reason != types.ReasonManual {
				return nil, ErrToolInError
			}
			wasEnabled := from == types.LifecycleEnabled
			record(tr.Name, tr.To, tr.Reason)
			if wasEnabled {
				cascade(tr.Name)
			}

		case types.LifecycleError:
			if from != types.LifecycleEnabled {
				return nil, &InvalidTransitionError{Tool: tr.Name, From: from, To: tr.To}
			}
			record(tr.Name, tr.To, tr.Reason)
			cascade(tr.Name)

		default:
			return nil, &InvalidTransitionError{Tool: tr.Name, From: from, To: tr.To}
		}
	}

	return events, nil
}

// applyEvents mutates committed state according to staged events.
func (r *Registry) applyEvents(events []Event) {
	now := time.Now()
	for i := range events {
		ev := &events[i]
		t := r.tools[ev.Tool]
		t.lifecycle = ev.To
		t.lastTransitionAt = now
		t.lastReason = ev.Reason
		ev.Timestamp = now

		switch ev.To {
		case types.LifecycleEnabled:
			// A recovery retry keeps the counter so the retry cap is
			// reached if the tool keeps failing.
			if ev.Reason != types.ReasonErrorRecovery {
				t.consecutiveErrors = 0
			}
		case types.LifecycleError:
			t.consecutiveErrors++
		}
	}
}

// commit applies staged events and finishes the write.
func (r *Registry) commit(events []Event) {
	r.applyEvents(events)
	r.finish(events)
}

// finish publishes a new snapshot and emits events to observers and tool
// notifiers. Called with the write lock held; notification is fire and
// forget so a slow tool cannot extend the critical section.
func (r *Registry) finish(events []Event) {
	seq := r.seq.Add(1)
	r.publishSeq(seq)

	for i := range events {
		events[i].Seq = seq
	}

	observers := r.observers
	notifiers := make([]func(), 0, len(events))
	for _, ev := range events {
		t := r.tools[ev.Tool]
		if t == nil || t.notifier == nil {
			continue
		}
		n, name := t.notifier, ev.Tool
		switch ev.To {
		case types.LifecyclePaused:
			notifiers = append(notifiers, func() { n.OnPause(name) })
		case types.LifecycleEnabled:
			notifiers = append(notifiers, func() { n.OnResume(name) })
		case types.LifecycleDisabled:
			notifiers = append(notifiers, func() { n.OnDisable(name) })
		}
	}

	evs := events
	go func() {
		for _, fn := range notifiers {
			fn()
		}
		for _, obs := range observers {
			for _, ev := range evs {
				obs(ev)
			}
		}
	}()
}

func (r *Registry) publish() {
	r.publishSeq(r.seq.Load())
}

func (r *Registry) publishSeq(seq uint64) {
	snap := &Snapshot{
		Seq:         seq,
		Tools:       make(map[string]types.ToolStatus, len(r.tools)),
		GeneratedAt: time.Now(),
	}
	for name, t := range r.tools {
		snap.Tools[name] = types.ToolStatus{
			Name:              name,
			Lifecycle:         t.lifecycle,
			Priority:          t.config.Priority,
			AutoScale:         t.autoScale,
			Dependencies:      append([]string(nil), t.config.Dependencies...),
			MaxCPUPercent:     t.config.MaxCPUPercent,
			MaxMemoryMB:       t.config.MaxMemoryMB,
			MaxGPUPercent:     t.config.MaxGPUPercent,
			LastTransitionAt:  t.lastTransitionAt,
			TransitionReason:  t.lastReason,
			ConsecutiveErrors: t.consecutiveErrors,
		}
	}
	r.snapshot.Store(snap)
}

// cascadeDependents stages pausing of the enabled dependents of name,
// recursively. Write lock must be held; the caller applies the events.
func (r *Registry) cascadeDependents(name string) []Event {
	scratch := make(map[string]types.LifecycleState, len(r.tools))
	for n, t := range r.tools {
		scratch[n] = t.lifecycle
	}

	var events []Event
	var walk func(string)
	walk = func(n string) {
		for dep := range r.dependents[n] {
			if scratch[dep] == types.LifecycleEnabled {
				events = append(events, Event{
					Tool:   dep,
					From:   scratch[dep],
					To:     types.LifecyclePaused,
					Reason: types.ReasonDependencyUnmet,
				})
				scratch[dep] = types.LifecyclePaused
				walk(dep)
			}
		}
	}
	walk(name)
	return events
}

func (r *Registry) unmetDependencies(deps []string) []string {
	var missing []string
	for _, dep := range deps {
		t, ok := r.tools[dep]
		if !ok || t.lifecycle != types.LifecycleEnabled {
			missing = append(missing, dep)
		}
	}
	return missing
}

func isDependencyUnmet(err error) bool {
	var depErr *DependencyUnmetError
	return errors.As(err, &depErr)
}
