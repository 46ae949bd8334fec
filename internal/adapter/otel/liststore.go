package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/farmconf/internal/domain"
)

// TracingListStore wraps a domain.ListStore with OpenTelemetry tracing.
type TracingListStore struct {
	next   domain.ListStore
	tracer trace.Tracer
}

var _ domain.ListStore = (*TracingListStore)(nil)

// NewTracingListStore creates a tracing decorator around the given store.
func NewTracingListStore(next domain.ListStore) *TracingListStore {
	return &TracingListStore{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (s *TracingListStore) Read(ctx context.Context, name string) (domain.ListFile, error) {
	ctx, span := s.tracer.Start(ctx, "ListStore.Read",
		trace.WithAttributes(attribute.String("list.name", name)),
	)
	defer span.End()

	list, err := s.next.Read(ctx, name)
	if err == nil {
		span.SetAttributes(attribute.Int("list.entries", len(list.Entries())))
	}
	recordError(span, err)
	return list, err
}

func (s *TracingListStore) Write(ctx context.Context, name string, list domain.ListFile) error {
	ctx, span := s.tracer.Start(ctx, "ListStore.Write",
		trace.WithAttributes(
			attribute.String("list.name", name),
			attribute.Int("list.entries", len(list.Entries())),
		),
	)
	defer span.End()

	err := s.next.Write(ctx, name, list)
	recordError(span, err)
	return err
}

func (s *TracingListStore) WriteSet(ctx context.Context, lists map[string]domain.ListFile) error {
	ctx, span := s.tracer.Start(ctx, "ListStore.WriteSet",
		trace.WithAttributes(attribute.Int("list.count", len(lists))),
	)
	defer span.End()

	err := s.next.WriteSet(ctx, lists)
	recordError(span, err)
	return err
}
