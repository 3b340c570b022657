package observability

import (
	"context"

	"productapi/internal/ratelimit"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// RateLimitStats records admission decisions as OpenTelemetry counters,
// labelled by key source, outcome and route. It satisfies
// ratelimit.DecisionStats so it can sit alongside or instead of the
// Redis-backed sink.
type RateLimitStats struct {
	decisions metric.Int64Counter
}

// NewRateLimitStats creates a decision sink backed by the global meter.
func NewRateLimitStats() (*RateLimitStats, error) {
	meter := otel.Meter("productapi/ratelimit")

	decisions, err := meter.Int64Counter(
		"ratelimit.decisions",
		metric.WithDescription("Number of rate limit admission decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}

	return &RateLimitStats{decisions: decisions}, nil
}

// Record counts one admission decision.
func (s *RateLimitStats) Record(ctx context.Context, d ratelimit.Decision) error {
	outcome := "denied"
	if d.Allowed {
		outcome = "allowed"
	}

	s.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", d.Source),
		attribute.String("outcome", outcome),
		attribute.String("method", d.Method),
		attribute.String("route", d.Path),
	))
	return nil
}

var _ ratelimit.DecisionStats = (*RateLimitStats)(nil)
