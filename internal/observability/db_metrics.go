package observability

import (
	"context"
	"errors"
	"time"

	"github.com/geocoder89/ratingportal/internal/actorctx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const dbTracerName = "github.com/geocoder89/ratingportal/internal/repo/postgres"

// ObserveDB runs one repository operation inside a client span and records
// its latency and, on failure, its error class. The span carries the caller's
// user id when the request is authenticated.
func (p *Prom) ObserveDB(ctx context.Context, op string, fn func(context.Context) error) error {
	attrs := []attribute.KeyValue{
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation", op),
	}
	if id, ok := actorctx.UserIDFrom(ctx); ok {
		attrs = append(attrs, attribute.Int64("enduser.id", id))
	}

	ctx, span := otel.Tracer(dbTracerName).Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)

	status := "ok"
	if err != nil {
		status = "error"
		class := classifyDBErr(err)
		p.DbErrorsTotal.WithLabelValues(op, class).Inc()

		span.SetAttributes(attribute.String("db.error_class", class))
		// A missing row is an answer, not a failed query.
		if class != "not_found" {
			span.RecordError(err)
			span.SetStatus(codes.Error, class)
		}
	}
	p.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

func classifyDBErr(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "23503":
			return "foreign_key_violation"
		case "23514":
			return "check_violation"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	var connErr *pgconn.ConnectError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return "not_found"
	case errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &connErr):
		return "connection"
	default:
		return "unknown"
	}
}
