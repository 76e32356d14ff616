package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/intelworks/tool-runtime-manager/internal/autoscaler"
	"github.com/intelworks/tool-runtime-manager/internal/registry"
	"github.com/intelworks/tool-runtime-manager/internal/types"
)

// EventEmitter turns committed transitions and control loop ticks into spans
// and structured log lines. It is a fan-out point: attach Observer() to the
// registry and OnTick() to the scaler.
type EventEmitter struct {
	service *Service
	logger  *zap.Logger
}

// NewEventEmitter creates an emitter bound to the telemetry service.
func NewEventEmitter(service *Service, logger *zap.Logger) *EventEmitter {
	return &EventEmitter{
		service: service,
		logger:  logger,
	}
}

// Observer adapts the emitter into a registry audit sink.
func (e *EventEmitter) Observer() registry.Observer {
	return func(ev registry.Event) {
		e.EmitTransition(context.Background(), ev)
	}
}

// EmitTransition records one committed lifecycle change.
func (e *EventEmitter) EmitTransition(ctx context.Context, ev registry.Event) {
	_, span := e.service.Tracer().Start(ctx, "tool.transition",
		oteltrace.WithAttributes(
			attribute.String("tool.name", ev.Tool),
			attribute.String("transition.from", string(ev.From)),
			attribute.String("transition.to", string(ev.To)),
			attribute.String("transition.reason", string(ev.Reason)),
			attribute.Int64("registry.seq", int64(ev.Seq)),
		))
	span.End()

	fields := []zap.Field{
		zap.String("tool", ev.Tool),
		zap.String("from", string(ev.From)),
		zap.String("to", string(ev.To)),
		zap.String("reason", string(ev.Reason)),
		zap.Uint64("seq", ev.Seq),
	}
	if ev.To == types.LifecycleError {
		e.logger.Warn("Tool entered error state", fields...)
		return
	}
	e.logger.Info("Tool transition", fields...)
}

// OnTick adapts the emitter into an auto-scaler tick sink.
func (e *EventEmitter) OnTick() func(autoscaler.TickStats) {
	return func(stats autoscaler.TickStats) {
		_, span := e.service.Tracer().Start(context.Background(), "autoscaler.tick",
			oteltrace.WithAttributes(
				attribute.Int64("tick.seq", int64(stats.Seq)),
				attribute.String("resource.level", string(stats.Level)),
				attribute.Int("tick.planned", stats.Planned),
				attribute.Int("tick.applied", stats.Applied),
				attribute.Int("tick.failed", stats.Failed),
				attribute.Bool("tick.skipped", stats.Skipped),
			))
		span.End()
	}
}
