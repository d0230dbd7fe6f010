package sqlstore

import (
	"context"
	"iter"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"github.com/leengari/tablestore/internal/domain/data"
	domainerrors "github.com/leengari/tablestore/internal/domain/errors"
	"github.com/leengari/tablestore/internal/domain/schema"
	"github.com/leengari/tablestore/internal/storage/engine"
)

// Read scans the whole table and yields batches whose estimated size reaches
// batchMemSize, plus a final partial batch. A non-positive batchMemSize uses
// the engine default.
//
// The query runs when the sequence is first ranged over. The sequence is
// forward-only: ranging over it again yields nothing.
func (e *Engine) Read(ctx context.Context, t schema.Table, batchMemSize int64) (iter.Seq2[*data.Batch, error], error) {
	p, err := e.Handle(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	if batchMemSize <= 0 {
		batchMemSize = e.batchMemSize
	}

	readCols := t.ReadColumns()
	s := &scan{
		engine:  e,
		table:   t,
		handle:  p,
		columns: readCols,
		names:   make([]string, len(readCols)),
		ceiling: batchMemSize,
		id:      uuid.New().String(),
	}
	for i, col := range readCols {
		s.names[i] = col.Name
	}

	var used atomic.Bool
	return func(yield func(*data.Batch, error) bool) {
		if used.Swap(true) {
			return
		}
		s.run(ctx, yield)
	}, nil
}

type scan struct {
	engine  *Engine
	table   schema.Table
	handle  *schema.PhysicalTable
	columns []schema.Column
	names   []string
	ceiling int64
	id      string

	estimate int64
	rows     int
	batches  int
}

func (s *scan) run(ctx context.Context, yield func(*data.Batch, error) bool) {
	e := s.engine
	start := time.Now()
	ctx, span := e.startOp(ctx, "read", s.table.Name)
	var err error
	defer func() {
		span.SetAttributes(
			attribute.Int("rows", s.rows),
			attribute.Int("batches", s.batches),
			attribute.Int64("row_size_estimate", s.estimate),
		)
		e.finishOp(span, "read", start, err)
		e.logger.Debug("scan finished", "table", s.table.Name, "scan_id", s.id,
			"rows", s.rows, "batches", s.batches, "row_size_estimate", s.estimate)
	}()

	rows, err := e.sess.SelectBySql(e.dialect.SelectSQL(s.table.Name, s.names)).RowsContext(ctx)
	if err != nil {
		err = domainerrors.NewStoreError("read", s.table.Name, err)
		yield(nil, err)
		return
	}
	defer rows.Close()

	acc := data.NewBatch(s.names)
	for rows.Next() {
		raw := make(map[string]interface{}, len(s.names))
		if err = sqlx.MapScan(rows, raw); err != nil {
			err = domainerrors.NewStoreError("read", s.table.Name, err)
			yield(nil, err)
			return
		}
		var row data.Row
		if row, err = s.decode(raw); err != nil {
			yield(nil, err)
			return
		}
		acc.Append(row)
		s.rows++

		if s.estimate == 0 && acc.Len() >= e.sampleRows {
			s.estimate = max(acc.SizeBytes()/int64(acc.Len()), 1)
			e.metrics.SetRowSizeEstimate(s.table.Name, s.estimate)
		}
		if s.estimate > 0 && int64(acc.Len())*s.estimate >= s.ceiling {
			if !s.emit(acc, yield) {
				return
			}
			acc = data.NewBatch(s.names)
		}
	}
	if err = rows.Err(); err != nil {
		err = domainerrors.NewStoreError("read", s.table.Name, err)
		yield(nil, err)
		return
	}
	if !acc.Empty() {
		s.emit(acc, yield)
	}
}

func (s *scan) emit(b *data.Batch, yield func(*data.Batch, error) bool) bool {
	e := s.engine
	s.batches++
	e.metrics.AddRead(s.table.Name, b.Len())
	e.metrics.IncBatches(s.table.Name)
	e.Notify(engine.Event{Type: engine.EventBatch, Table: s.table.Name, TxID: s.id, Rows: int64(b.Len())})
	return yield(b, nil)
}

// decode aligns a scanned row with the logical columns by name.
func (s *scan) decode(raw map[string]interface{}) (data.Row, error) {
	row := make(data.Row, len(s.columns))
	for _, col := range s.columns {
		v, err := decodeValue(s.table.Name, col.Name, col.Type, raw[col.Name])
		if err != nil {
			return nil, err
		}
		row[col.Name] = v
	}
	return row, nil
}
