package sqlstore

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"
	"time"

	"github.com/gocraft/dbr/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/leengari/tablestore/internal/metrics"
)

const maxLoggedSQL = 256

// eventReceiver bridges dbr instrumentation to slog, Prometheus and
// OpenTelemetry. It is installed on the engine's session.
type eventReceiver struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

var (
	_ dbr.EventReceiver        = (*eventReceiver)(nil)
	_ dbr.TracingEventReceiver = (*eventReceiver)(nil)
)

func (r *eventReceiver) Event(eventName string) {
	r.logger.Debug("sql_event", "event", eventName)
}

func (r *eventReceiver) EventKv(eventName string, kvs map[string]string) {
	r.logger.Debug("sql_event", "event", eventName, "sql", truncateSQL(kvs["sql"]))
}

func (r *eventReceiver) EventErr(eventName string, err error) error {
	r.metrics.IncStatementErrors(statementOp(eventName))
	r.logger.Warn("sql_error", "event", eventName, "error", err)
	return err
}

func (r *eventReceiver) EventErrKv(eventName string, err error, kvs map[string]string) error {
	r.metrics.IncStatementErrors(statementOp(eventName))
	r.logger.Warn("sql_error", "event", eventName, "sql", truncateSQL(kvs["sql"]), "error", err)
	return err
}

func (r *eventReceiver) Timing(eventName string, nanoseconds int64) {
	r.metrics.ObserveStatement(statementOp(eventName), time.Duration(nanoseconds))
}

func (r *eventReceiver) TimingKv(eventName string, nanoseconds int64, kvs map[string]string) {
	d := time.Duration(nanoseconds)
	r.metrics.ObserveStatement(statementOp(eventName), d)
	r.logger.Debug("sql_statement", "event", eventName, "duration", d, "sql", truncateSQL(kvs["sql"]))
}

func (r *eventReceiver) SpanStart(ctx context.Context, eventName, query string) context.Context {
	ctx, _ = r.tracer.Start(ctx, eventName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.statement", truncateSQL(query))),
	)
	return ctx
}

func (r *eventReceiver) SpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func (r *eventReceiver) SpanFinish(ctx context.Context) {
	trace.SpanFromContext(ctx).End()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// exec runs a raw statement with the same instrumentation dbr applies to
// built statements.
func (r *eventReceiver) exec(ctx context.Context, runner execer, query string) error {
	ctx = r.SpanStart(ctx, "dbr.exec", query)
	defer r.SpanFinish(ctx)

	start := time.Now()
	_, err := runner.ExecContext(ctx, query)
	kvs := map[string]string{"sql": query}
	r.TimingKv("dbr.exec", time.Since(start).Nanoseconds(), kvs)
	if err != nil {
		r.SpanError(ctx, err)
		return r.EventErrKv("dbr.exec.exec", err, kvs)
	}
	return nil
}

// statementOp reduces a dbr event name such as "dbr.insert.exec" to the
// statement kind.
func statementOp(eventName string) string {
	op := strings.TrimPrefix(eventName, "dbr.")
	op, _, _ = strings.Cut(op, ".")
	return op
}

// truncateSQL keeps interpolated blob literals out of logs and spans.
func truncateSQL(query string) string {
	if len(query) <= maxLoggedSQL {
		return query
	}
	return query[:maxLoggedSQL] + "..."
}
