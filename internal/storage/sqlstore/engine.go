// Package sqlstore implements the table storage engine over a relational
// store reached through a dbr connection.
package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gocraft/dbr/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainerrors "github.com/leengari/tablestore/internal/domain/errors"
	"github.com/leengari/tablestore/internal/domain/schema"
	"github.com/leengari/tablestore/internal/domain/transaction"
	"github.com/leengari/tablestore/internal/metrics"
	"github.com/leengari/tablestore/internal/ndarray"
	"github.com/leengari/tablestore/internal/storage/dialect"
	"github.com/leengari/tablestore/internal/storage/engine"
)

const (
	tracerName = "github.com/leengari/tablestore/internal/storage/sqlstore"

	DefaultBatchMemSize int64 = 30_000_000
	DefaultSampleRows         = 1
	DefaultCacheSize          = 256
)

// Engine stores tables in a relational database. It owns one dbr session on
// the caller's connection and never closes the connection.
type Engine struct {
	engine.Observers

	conn    *dbr.Connection
	sess    *dbr.Session
	dialect *dialect.Dialect
	handles *handleRegistry
	recv    *eventReceiver

	codec        ndarray.Codec
	batchMemSize int64
	sampleRows   int

	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

var _ engine.StorageEngine = (*Engine)(nil)

type options struct {
	logger         *slog.Logger
	metrics        *metrics.Metrics
	registerer     prometheus.Registerer
	tracerProvider trace.TracerProvider
	codec          ndarray.Codec
	batchMemSize   int64
	sampleRows     int
	cacheSize      int
	observers      []engine.Observer
}

// Option configures an Engine.
type Option func(*options)

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records into an existing collector set.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithRegisterer creates a collector set registered with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracerProvider = tp }
}

// WithArrayCodec sets the codec used for newly written array blobs.
func WithArrayCodec(c ndarray.Codec) Option {
	return func(o *options) { o.codec = c }
}

// WithBatchMemSize sets the ceiling used when Read is given a non-positive one.
func WithBatchMemSize(n int64) Option {
	return func(o *options) { o.batchMemSize = n }
}

// WithSampleRows sets how many rows are measured before the row size
// estimate is fixed for a scan.
func WithSampleRows(n int) Option {
	return func(o *options) { o.sampleRows = n }
}

func WithCacheSize(n int) Option {
	return func(o *options) { o.cacheSize = n }
}

func WithObserver(obs engine.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// New creates an engine on conn. The dialect is taken from conn.Dialect.
func New(conn *dbr.Connection, opts ...Option) (*Engine, error) {
	o := options{
		logger:       slog.Default(),
		codec:        ndarray.Default,
		batchMemSize: DefaultBatchMemSize,
		sampleRows:   DefaultSampleRows,
		cacheSize:    DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.batchMemSize <= 0 || o.sampleRows <= 0 || o.cacheSize <= 0 {
		return nil, fmt.Errorf("batch mem size, sample rows and cache size must be positive")
	}

	d, err := dialect.ForConnection(conn)
	if err != nil {
		return nil, err
	}

	m := o.metrics
	if m == nil && o.registerer != nil {
		if m, err = metrics.New("tablestore", o.registerer); err != nil {
			return nil, err
		}
	}

	tp := o.tracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	e := &Engine{
		conn:         conn,
		dialect:      d,
		codec:        o.codec,
		batchMemSize: o.batchMemSize,
		sampleRows:   o.sampleRows,
		logger:       o.logger.With("component", "sqlstore", "dialect", d.Name),
		metrics:      m,
		tracer:       tp.Tracer(tracerName),
	}
	e.recv = &eventReceiver{logger: e.logger, metrics: m, tracer: e.tracer}
	e.sess = conn.NewSession(e.recv)

	if e.handles, err = newHandleRegistry(o.cacheSize, e.introspect); err != nil {
		return nil, err
	}
	for _, obs := range o.observers {
		e.AddObserver(obs)
	}
	return e, nil
}

// Dialect reports the dialect the engine renders statements for.
func (e *Engine) Dialect() *dialect.Dialect { return e.dialect }

func (e *Engine) startOp(ctx context.Context, op, table string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "tablestore."+op, trace.WithAttributes(attribute.String("table", table)))
}

func (e *Engine) finishOp(span trace.Span, op string, start time.Time, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
	e.metrics.ObserveOperation(op, start, err)
}

// Handle resolves the physical table for name, introspecting the store on a
// registry miss.
func (e *Engine) Handle(ctx context.Context, name string) (*schema.PhysicalTable, error) {
	return e.handles.Get(ctx, name)
}

func (e *Engine) introspect(ctx context.Context, name string) (*schema.PhysicalTable, error) {
	rows, err := e.sess.SelectBySql(e.dialect.ProbeSQL(name)).RowsContext(ctx)
	if err != nil {
		if e.dialect.MissingRelation(err) {
			return nil, &domainerrors.TableNotFoundError{Table: name, Err: err}
		}
		return nil, domainerrors.NewStoreError("introspect", name, err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, domainerrors.NewStoreError("introspect", name, err)
	}
	p := &schema.PhysicalTable{Name: name, Columns: make([]schema.PhysicalColumn, 0, len(colTypes))}
	for _, ct := range colTypes {
		col := schema.PhysicalColumn{
			Name:    ct.Name(),
			SQLType: ct.DatabaseTypeName(),
			Logical: dialect.LogicalType(ct.DatabaseTypeName()),
		}
		if col.Name == schema.IdentifierColumn {
			col.Logical = schema.ColumnTypeInt
			col.PrimaryKey = true
			col.AutoIncrement = true
		}
		p.Columns = append(p.Columns, col)
	}
	e.logger.Debug("introspected table", "table", name, "columns", len(p.Columns))
	return p, nil
}

// exists reports whether the store has a relation called name, bypassing the
// registry.
func (e *Engine) exists(ctx context.Context, name string) bool {
	rows, err := e.sess.SelectBySql(e.dialect.ProbeSQL(name)).RowsContext(ctx)
	if err != nil {
		return false
	}
	rows.Close()
	return true
}

// Create derives the physical schema of t, creates the relation in one
// transaction and caches its handle.
func (e *Engine) Create(ctx context.Context, t schema.Table) (p *schema.PhysicalTable, err error) {
	start := time.Now()
	ctx, span := e.startOp(ctx, "create", t.Name)
	defer func() { e.finishOp(span, "create", start, err) }()

	p, err = e.dialect.PhysicalSchema(t)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", t.Name, err)
	}
	if e.handles.Contains(t.Name) {
		return nil, &domainerrors.SchemaConflictError{Table: t.Name}
	}

	tx, err := transaction.Begin(ctx, e.sess)
	if err != nil {
		return nil, domainerrors.NewStoreError("create", t.Name, err)
	}
	if err = e.recv.exec(ctx, tx.Tx(), e.dialect.CreateTableSQL(p)); err == nil {
		tx.Record(transaction.ChangeTypeCreate, t.Name, nil)
		err = tx.Commit()
	}
	if err != nil {
		err = tx.Close(err)
		if e.exists(ctx, t.Name) {
			return nil, &domainerrors.SchemaConflictError{Table: t.Name, Err: err}
		}
		return nil, domainerrors.NewStoreError("create", t.Name, err)
	}

	e.handles.Put(p)
	e.logger.Info("table created", "table", t.Name, "columns", len(p.Columns), "tx_id", tx.ID)
	e.Notify(engine.Event{Type: engine.EventCreate, Table: t.Name, TxID: tx.ID, Rows: -1, Duration: time.Since(start)})
	return p, nil
}

// Drop removes the relation and always forgets the cached handle. Errors
// are logged; the result reports whether the relation was dropped.
func (e *Engine) Drop(ctx context.Context, t schema.Table) bool {
	start := time.Now()
	ctx, span := e.startOp(ctx, "drop", t.Name)

	e.handles.Forget(t.Name)

	var txID string
	err := func() error {
		tx, err := transaction.Begin(ctx, e.sess)
		if err != nil {
			return err
		}
		txID = tx.ID
		if err := e.recv.exec(ctx, tx.Tx(), e.dialect.DropTableSQL(t.Name)); err != nil {
			return tx.Close(err)
		}
		if err := tx.Commit(); err != nil {
			return tx.Close(err)
		}
		return nil
	}()
	e.finishOp(span, "drop", start, err)

	if err != nil {
		err = domainerrors.NewStoreError("drop", t.Name, err)
		e.logger.Warn("drop failed", "table", t.Name, "error", err)
	} else {
		e.logger.Info("table dropped", "table", t.Name, "tx_id", txID)
	}
	e.Notify(engine.Event{Type: engine.EventDrop, Table: t.Name, TxID: txID, Rows: -1, Duration: time.Since(start), Err: err})
	return err == nil
}

// Rename is not supported for stored tables.
func (e *Engine) Rename(_ context.Context, t schema.Table, newName string) error {
	return &domainerrors.UnsupportedOperationError{
		Operation: "rename",
		Table:     t.Name,
		Reason:    fmt.Sprintf("cannot rename to %s: structured tables cannot be renamed", newName),
	}
}
