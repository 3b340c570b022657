package observability

import (
	"context"
	"time"

	"productapi/internal/models"
	"productapi/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedStorage wraps a storage.Storage implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedStorage creates a new storage wrapper that records trace spans,
// operation latency histograms, and error counters for every storage method call.
func NewInstrumentedStorage(inner storage.Storage) (*InstrumentedStorage, error) {
	tracer := otel.Tracer("productapi/storage")
	meter := otel.Meter("productapi/storage")

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of storage operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "storage."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStorage) CreateProduct(ctx context.Context, product *models.Product) error {
	ctx, span := s.startSpan(ctx, "CreateProduct", attribute.String("product_id", product.ID))
	start := time.Now()
	err := s.inner.CreateProduct(ctx, product)
	s.record(ctx, span, "CreateProduct", start, err)
	return err
}

func (s *InstrumentedStorage) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	ctx, span := s.startSpan(ctx, "GetProduct", attribute.String("product_id", id))
	start := time.Now()
	result, err := s.inner.GetProduct(ctx, id)
	s.record(ctx, span, "GetProduct", start, err)
	return result, err
}

func (s *InstrumentedStorage) UpdateProduct(ctx context.Context, product *models.Product) error {
	ctx, span := s.startSpan(ctx, "UpdateProduct", attribute.String("product_id", product.ID))
	start := time.Now()
	err := s.inner.UpdateProduct(ctx, product)
	s.record(ctx, span, "UpdateProduct", start, err)
	return err
}

func (s *InstrumentedStorage) DeleteProduct(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "DeleteProduct", attribute.String("product_id", id))
	start := time.Now()
	err := s.inner.DeleteProduct(ctx, id)
	s.record(ctx, span, "DeleteProduct", start, err)
	return err
}

func (s *InstrumentedStorage) SearchProducts(ctx context.Context, req *models.ProductSearchRequest) ([]*models.Product, int, error) {
	ctx, span := s.startSpan(ctx, "SearchProducts",
		attribute.String("query", req.Query),
		attribute.String("category", req.Category),
		attribute.Int("page", req.Page),
	)
	start := time.Now()
	result, total, err := s.inner.SearchProducts(ctx, req)
	s.record(ctx, span, "SearchProducts", start, err)
	return result, total, err
}

func (s *InstrumentedStorage) CreateUser(ctx context.Context, user *models.User) error {
	ctx, span := s.startSpan(ctx, "CreateUser", attribute.String("user_id", user.ID))
	start := time.Now()
	err := s.inner.CreateUser(ctx, user)
	s.record(ctx, span, "CreateUser", start, err)
	return err
}

func (s *InstrumentedStorage) GetUser(ctx context.Context, id string) (*models.User, error) {
	ctx, span := s.startSpan(ctx, "GetUser", attribute.String("user_id", id))
	start := time.Now()
	result, err := s.inner.GetUser(ctx, id)
	s.record(ctx, span, "GetUser", start, err)
	return result, err
}

func (s *InstrumentedStorage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	ctx, span := s.startSpan(ctx, "GetUserByUsername")
	start := time.Now()
	result, err := s.inner.GetUserByUsername(ctx, username)
	s.record(ctx, span, "GetUserByUsername", start, err)
	return result, err
}

func (s *InstrumentedStorage) UpdateUser(ctx context.Context, user *models.User) error {
	ctx, span := s.startSpan(ctx, "UpdateUser", attribute.String("user_id", user.ID))
	start := time.Now()
	err := s.inner.UpdateUser(ctx, user)
	s.record(ctx, span, "UpdateUser", start, err)
	return err
}

func (s *InstrumentedStorage) CreateToken(ctx context.Context, token *models.Token) error {
	ctx, span := s.startSpan(ctx, "CreateToken", attribute.String("user_id", token.UserID))
	start := time.Now()
	err := s.inner.CreateToken(ctx, token)
	s.record(ctx, span, "CreateToken", start, err)
	return err
}

func (s *InstrumentedStorage) GetTokenByHash(ctx context.Context, hash string) (*models.Token, error) {
	ctx, span := s.startSpan(ctx, "GetTokenByHash")
	start := time.Now()
	result, err := s.inner.GetTokenByHash(ctx, hash)
	s.record(ctx, span, "GetTokenByHash", start, err)
	return result, err
}

func (s *InstrumentedStorage) DeleteToken(ctx context.Context, id string) error {
	ctx, span := s.startSpan(ctx, "DeleteToken")
	start := time.Now()
	err := s.inner.DeleteToken(ctx, id)
	s.record(ctx, span, "DeleteToken", start, err)
	return err
}

func (s *InstrumentedStorage) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	ctx, span := s.startSpan(ctx, "DeleteExpiredTokens")
	start := time.Now()
	removed, err := s.inner.DeleteExpiredTokens(ctx, now)
	s.record(ctx, span, "DeleteExpiredTokens", start, err)
	return removed, err
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
