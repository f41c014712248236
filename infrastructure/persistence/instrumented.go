package persistence

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"projectgraph/application/ports"
	"projectgraph/domain/core/aggregates"
	"projectgraph/pkg/observability"
)

// Instrumented wraps an adapter with spans, metrics and debug logging.
type Instrumented struct {
	next    ports.PersistenceAdapter
	tracer  trace.Tracer
	metrics *observability.Collector
	logger  *zap.Logger
}

// Instrument decorates next. Any of tracer, metrics and logger may be nil.
func Instrument(next ports.PersistenceAdapter, tracer trace.Tracer, metrics *observability.Collector, logger *zap.Logger) *Instrumented {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumented{next: next, tracer: tracer, metrics: metrics, logger: logger}
}

// Unwrap returns the decorated adapter.
func (i *Instrumented) Unwrap() ports.PersistenceAdapter { return i.next }

func (i *Instrumented) start(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(ok bool, err error)) {
	began := time.Now()
	var span trace.Span
	if i.tracer != nil {
		ctx, span = i.tracer.Start(ctx, "persistence."+op, trace.WithAttributes(
			append(attrs, attribute.String("persistence.backend", i.next.Name()))...))
	}
	return ctx, func(ok bool, err error) {
		elapsed := time.Since(began)
		i.metrics.ObservePersistence(i.next.Name(), op, ok, elapsed)
		i.logger.Debug("Persistence call",
			zap.String("backend", i.next.Name()),
			zap.String("operation", op),
			zap.Bool("ok", ok),
			zap.Duration("elapsed", elapsed))
		if span == nil {
			return
		}
		if err != nil {
			span.RecordError(err)
		}
		if !ok {
			span.SetStatus(codes.Error, op+" failed")
		}
		span.End()
	}
}

func (i *Instrumented) Save(ctx context.Context, graph *aggregates.Graph) bool {
	var id string
	if graph != nil {
		id = graph.ID
	}
	ctx, done := i.start(ctx, "save", attribute.String("graph.id", id))
	ok := i.next.Save(ctx, graph)
	done(ok, nil)
	return ok
}

func (i *Instrumented) Load(ctx context.Context, locator string) *aggregates.Graph {
	ctx, done := i.start(ctx, "load", attribute.String("graph.locator", locator))
	g := i.next.Load(ctx, locator)
	done(g != nil, nil)
	return g
}

func (i *Instrumented) ExportGraph(ctx context.Context, graph *aggregates.Graph, format ports.ExportFormat) ([]byte, error) {
	ctx, done := i.start(ctx, "export", attribute.String("format", string(format)))
	data, err := i.next.ExportGraph(ctx, graph, format)
	done(err == nil, err)
	return data, err
}

func (i *Instrumented) ImportGraph(ctx context.Context, data []byte, format ports.ExportFormat) (*aggregates.Graph, error) {
	ctx, done := i.start(ctx, "import", attribute.String("format", string(format)))
	g, err := i.next.ImportGraph(ctx, data, format)
	done(err == nil, err)
	return g, err
}

func (i *Instrumented) ListGraphs(ctx context.Context) []ports.GraphSummary {
	ctx, done := i.start(ctx, "list")
	out := i.next.ListGraphs(ctx)
	done(out != nil, nil)
	return out
}

func (i *Instrumented) DeleteGraph(ctx context.Context, id string) bool {
	ctx, done := i.start(ctx, "delete", attribute.String("graph.id", id))
	ok := i.next.DeleteGraph(ctx, id)
	done(ok, nil)
	return ok
}

func (i *Instrumented) ListBackups(ctx context.Context, graphID string) []ports.BackupInfo {
	ctx, done := i.start(ctx, "list_backups", attribute.String("graph.id", graphID))
	out := i.next.ListBackups(ctx, graphID)
	done(out != nil, nil)
	return out
}

func (i *Instrumented) Name() string { return i.next.Name() }

func (i *Instrumented) Close() error { return i.next.Close() }

var _ ports.PersistenceAdapter = (*Instrumented)(nil)
