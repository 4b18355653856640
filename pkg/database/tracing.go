package database

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/utafrali/storefront/pkg/database"

// QueryTracer starts client spans around repository statements and warns
// about statements slower than SlowThreshold. The zero value traces
// without slow-query logging.
type QueryTracer struct {
	System        string
	SlowThreshold time.Duration
	Logger        *slog.Logger
}

// Start opens a span named "db.<operation>". Call the returned func with
// the operation's error when it completes.
func (qt QueryTracer) Start(ctx context.Context, operation, statement string) (context.Context, func(error)) {
	system := qt.System
	if system == "" {
		system = "postgresql"
	}
	start := time.Now()
	ctx, span := otel.Tracer(tracerName).Start(ctx, "db."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", system),
			attribute.String("db.operation", operation),
			attribute.String("db.statement", statement),
		),
	)

	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()

		if qt.SlowThreshold <= 0 || qt.Logger == nil {
			return
		}
		if elapsed := time.Since(start); elapsed >= qt.SlowThreshold {
			qt.Logger.WarnContext(ctx, "slow query",
				slog.String("operation", operation),
				slog.Duration("duration", elapsed),
			)
		}
	}
}
