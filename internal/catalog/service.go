// Package catalog mediates between the editor UI and the external product
// API. Every operation returns a Result instead of an error: validation,
// sanitization, backend rejections and transport failures all end up as a
// failed Result with a human-readable message.
package catalog

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/catalog-editor/internal/backend"
	"github.com/xenking/catalog-editor/internal/domain/product"
)

// ListingScope is the cache scope invalidated after every successful mutation.
const ListingScope = "/products"

// Backend performs raw calls against the product API.
type Backend interface {
	Do(ctx context.Context, req backend.Request) (*backend.Response, error)
}

// Invalidator receives the signal that held listing snapshots are stale.
// Implementations must not block.
type Invalidator interface {
	Invalidate(ctx context.Context, scope string)
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider used for operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracer = tp.Tracer("catalog") }
}

// WithMeterProvider sets the meter provider used for operation counters.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meter = mp.Meter("catalog") }
}

// Service implements the catalog queries and the mutation pipeline
// (validate, sanitize, call, map, invalidate).
type Service struct {
	backend     Backend
	invalidator Invalidator

	tracer        trace.Tracer
	meter         metric.Meter
	operations    metric.Int64Counter
	invalidations metric.Int64Counter
}

// NewService creates a Service. Without telemetry options the global OTel
// providers are used.
func NewService(b Backend, inv Invalidator, opts ...Option) (*Service, error) {
	s := &Service{
		backend:     b,
		invalidator: inv,
		tracer:      otel.GetTracerProvider().Tracer("catalog"),
		meter:       otel.GetMeterProvider().Meter("catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}

	var err error
	if s.operations, err = s.meter.Int64Counter("catalog.operations",
		metric.WithDescription("Catalog operations by outcome"),
	); err != nil {
		return nil, errors.Wrap(err, "create operations counter")
	}
	if s.invalidations, err = s.meter.Int64Counter("catalog.invalidations",
		metric.WithDescription("Listing cache invalidation signals sent"),
	); err != nil {
		return nil, errors.Wrap(err, "create invalidations counter")
	}

	return s, nil
}

// ListProducts fetches the current product list. It never serves cached data.
func (s *Service) ListProducts(ctx context.Context) Result[[]product.Product] {
	ctx, span := s.tracer.Start(ctx, "catalog.ListProducts")
	defer span.End()

	resp, err := s.backend.Do(ctx, backend.Request{Method: http.MethodGet})
	res := mapResponse(OpList, resp, err, product.DecodeProducts)
	s.observe(ctx, span, OpList, res.Success, res.Kind, res.Error)
	return res
}

// GetProduct fetches a single product by id.
func (s *Service) GetProduct(ctx context.Context, rawID string) Result[product.Product] {
	ctx, span := s.tracer.Start(ctx, "catalog.GetProduct")
	defer span.End()

	id, err := product.ParseID(rawID)
	if err != nil {
		return s.reject(ctx, span, OpGet, KindInvalidID, err.Error())
	}

	resp, err := s.backend.Do(ctx, backend.Request{Method: http.MethodGet, ID: id})
	res := mapResponse(OpGet, resp, err, product.DecodeProduct)
	s.observe(ctx, span, OpGet, res.Success, res.Kind, res.Error)
	return res
}

// CreateProduct validates c and asks the product API to create it.
func (s *Service) CreateProduct(ctx context.Context, c product.Candidate) Result[product.Product] {
	ctx, span := s.tracer.Start(ctx, "catalog.CreateProduct")
	defer span.End()

	in, err := c.Validate()
	if err != nil {
		return s.reject(ctx, span, OpCreate, KindValidation, err.Error())
	}

	resp, err := s.backend.Do(ctx, backend.Request{
		Method: http.MethodPost,
		Body:   product.MarshalInput(in, ""),
	})
	return s.complete(ctx, span, OpCreate, mapResponse(OpCreate, resp, err, product.DecodeProduct))
}

// UpdateProduct validates c, sanitizes rawID and replaces the product.
func (s *Service) UpdateProduct(ctx context.Context, rawID string, c product.Candidate) Result[product.Product] {
	ctx, span := s.tracer.Start(ctx, "catalog.UpdateProduct")
	defer span.End()

	in, err := c.Validate()
	if err != nil {
		return s.reject(ctx, span, OpUpdate, KindValidation, err.Error())
	}
	id, err := product.ParseID(rawID)
	if err != nil {
		return s.reject(ctx, span, OpUpdate, KindInvalidID, err.Error())
	}

	resp, err := s.backend.Do(ctx, backend.Request{
		Method: http.MethodPut,
		ID:     id,
		Body:   product.MarshalInput(in, id),
	})
	return s.complete(ctx, span, OpUpdate, mapResponse(OpUpdate, resp, err, product.DecodeProduct))
}

// DeleteProduct sanitizes rawID and deletes the product. Data is always nil
// on success. Deleting a product that no longer exists fails with
// KindNotFound.
func (s *Service) DeleteProduct(ctx context.Context, rawID string) Result[product.Product] {
	ctx, span := s.tracer.Start(ctx, "catalog.DeleteProduct")
	defer span.End()

	id, err := product.ParseID(rawID)
	if err != nil {
		return s.reject(ctx, span, OpDelete, KindInvalidID, err.Error())
	}

	resp, err := s.backend.Do(ctx, backend.Request{Method: http.MethodDelete, ID: id})
	return s.complete(ctx, span, OpDelete, mapResponse[product.Product](OpDelete, resp, err, nil))
}

// complete finishes a mutation: the listing scope is invalidated only when
// the mapped result is a success.
func (s *Service) complete(ctx context.Context, span trace.Span, op Operation, res Result[product.Product]) Result[product.Product] {
	if res.Success {
		s.invalidator.Invalidate(ctx, ListingScope)
		s.invalidations.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", ListingScope)))
	}
	s.observe(ctx, span, op, res.Success, res.Kind, res.Error)
	return res
}

// reject records a pre-flight failure; no request was sent.
func (s *Service) reject(ctx context.Context, span trace.Span, op Operation, kind ErrorKind, msg string) Result[product.Product] {
	s.observe(ctx, span, op, false, kind, msg)
	return fail[product.Product](kind, msg)
}

func (s *Service) observe(ctx context.Context, span trace.Span, op Operation, success bool, kind ErrorKind, msg string) {
	outcome := "ok"
	if !success {
		outcome = string(kind)
	}
	attrs := []attribute.KeyValue{
		attribute.String("op", string(op)),
		attribute.String("outcome", outcome),
	}
	s.operations.Add(ctx, 1, metric.WithAttributes(attrs...))
	span.SetAttributes(attrs...)

	lg := zctx.From(ctx).With(zap.String("op", string(op)))
	switch {
	case success:
		span.SetStatus(codes.Ok, "")
		lg.Info("Catalog operation succeeded")
	case kind == KindTransport:
		span.SetStatus(codes.Error, msg)
		lg.Error("Product API unreachable", zap.String("error", msg))
	case kind == KindValidation || kind == KindInvalidID:
		span.SetStatus(codes.Error, msg)
		lg.Info("Catalog operation rejected", zap.String("kind", string(kind)), zap.String("error", msg))
	default:
		span.SetStatus(codes.Error, msg)
		lg.Warn("Product API rejected operation", zap.String("kind", string(kind)), zap.String("error", msg))
	}
}
