package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/farmconf/internal/domain"
)

const tracerName = "github.com/neomorfeo/farmconf/internal/adapter/otel"

// RegistryStore is the full registry surface: wiki writes plus the list
// generation read shapes.
type RegistryStore interface {
	domain.WikiRepository
	domain.Registry
}

// TracingRegistry wraps a RegistryStore with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRegistry struct {
	next   RegistryStore
	tracer trace.Tracer
}

var _ RegistryStore = (*TracingRegistry)(nil)

// NewTracingRegistry creates a tracing decorator around the given registry.
func NewTracingRegistry(next RegistryStore) *TracingRegistry {
	return &TracingRegistry{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRegistry) Create(ctx context.Context, wiki domain.Wiki) error {
	ctx, span := r.tracer.Start(ctx, "WikiRepository.Create",
		trace.WithAttributes(
			attribute.String("wiki.dbname", wiki.DBName),
			attribute.String("wiki.cluster", wiki.Cluster),
		),
	)
	defer span.End()

	err := r.next.Create(ctx, wiki)
	recordError(span, err)
	return err
}

func (r *TracingRegistry) Get(ctx context.Context, dbname string) (domain.Wiki, error) {
	ctx, span := r.tracer.Start(ctx, "WikiRepository.Get",
		trace.WithAttributes(attribute.String("wiki.dbname", dbname)),
	)
	defer span.End()

	wiki, err := r.next.Get(ctx, dbname)
	if err == nil {
		span.SetAttributes(attribute.String("wiki.status", string(wiki.Status)))
	}
	recordError(span, err)
	return wiki, err
}

func (r *TracingRegistry) List(ctx context.Context, filter domain.ListFilter) ([]domain.Wiki, error) {
	attrs := []attribute.KeyValue{
		attribute.Int("filter.limit", filter.Limit),
		attribute.Int("filter.offset", filter.Offset),
	}
	if filter.Status != nil {
		attrs = append(attrs, attribute.String("filter.status", string(*filter.Status)))
	}

	ctx, span := r.tracer.Start(ctx, "WikiRepository.List", trace.WithAttributes(attrs...))
	defer span.End()

	wikis, err := r.next.List(ctx, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(wikis)))
	}
	recordError(span, err)
	return wikis, err
}

func (r *TracingRegistry) Update(ctx context.Context, wiki domain.Wiki) error {
	ctx, span := r.tracer.Start(ctx, "WikiRepository.Update",
		trace.WithAttributes(
			attribute.String("wiki.dbname", wiki.DBName),
			attribute.String("wiki.status", string(wiki.Status)),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, wiki)
	recordError(span, err)
	return err
}

func (r *TracingRegistry) ActiveWikis(ctx context.Context) ([]domain.Wiki, error) {
	ctx, span := r.tracer.Start(ctx, "Registry.ActiveWikis")
	defer span.End()

	wikis, err := r.next.ActiveWikis(ctx)
	return r.counted(span, wikis, err)
}

func (r *TracingRegistry) CombiWikis(ctx context.Context, version string) ([]domain.Wiki, error) {
	ctx, span := r.tracer.Start(ctx, "Registry.CombiWikis",
		trace.WithAttributes(attribute.String("wiki.version", version)),
	)
	defer span.End()

	wikis, err := r.next.CombiWikis(ctx, version)
	return r.counted(span, wikis, err)
}

func (r *TracingRegistry) DeletedWikis(ctx context.Context) ([]domain.Wiki, error) {
	ctx, span := r.tracer.Start(ctx, "Registry.DeletedWikis")
	defer span.End()

	wikis, err := r.next.DeletedWikis(ctx)
	return r.counted(span, wikis, err)
}

func (r *TracingRegistry) counted(span trace.Span, wikis []domain.Wiki, err error) ([]domain.Wiki, error) {
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(wikis)))
	}
	recordError(span, err)
	return wikis, err
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}
