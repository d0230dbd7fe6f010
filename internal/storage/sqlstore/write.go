package sqlstore

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/leengari/tablestore/internal/domain/data"
	domainerrors "github.com/leengari/tablestore/internal/domain/errors"
	"github.com/leengari/tablestore/internal/domain/schema"
	"github.com/leengari/tablestore/internal/domain/transaction"
	"github.com/leengari/tablestore/internal/storage/engine"
)

// insertColumns drops the identifier from the batch layout; the store
// assigns it.
func insertColumns(columns []string) []string {
	out := make([]string, 0, len(columns))
	for _, col := range columns {
		if col == schema.IdentifierColumn {
			continue
		}
		out = append(out, col)
	}
	return out
}

// Write appends every row of batch to the table in one bulk insert and
// commits once. Values are paired with columns by name.
func (e *Engine) Write(ctx context.Context, t schema.Table, batch *data.Batch) (err error) {
	start := time.Now()
	ctx, span := e.startOp(ctx, "write", t.Name)
	defer func() { e.finishOp(span, "write", start, err) }()

	p, err := e.Handle(ctx, t.Name)
	if err != nil {
		return err
	}
	if batch == nil {
		batch = data.NewBatch(nil)
	}
	span.SetAttributes(attribute.Int("rows", batch.Len()))

	cols := insertColumns(batch.Columns())
	types := make([]schema.ColumnType, len(cols))
	for i, col := range cols {
		types[i] = columnType(t, p, col)
	}

	records := make([][]interface{}, 0, batch.Len())
	for _, row := range batch.Rows() {
		vals := make([]interface{}, len(cols))
		for i, col := range cols {
			if vals[i], err = e.encodeValue(t.Name, col, types[i], row[col]); err != nil {
				return err
			}
		}
		records = append(records, vals)
	}

	tx, err := transaction.Begin(ctx, e.sess)
	if err != nil {
		return domainerrors.NewStoreError("write", t.Name, err)
	}
	if err = e.insert(ctx, tx, t.Name, cols, records); err == nil {
		err = tx.Commit()
	}
	if err != nil {
		return domainerrors.NewStoreError("write", t.Name, tx.Close(err))
	}

	e.metrics.AddWritten(t.Name, len(records))
	e.logger.Debug("batch written", "table", t.Name, "rows", len(records), "tx_id", tx.ID)
	e.Notify(engine.Event{
		Type:     engine.EventWrite,
		Table:    t.Name,
		TxID:     tx.ID,
		Rows:     int64(len(records)),
		Duration: time.Since(start),
	})
	return nil
}

func (e *Engine) insert(ctx context.Context, tx *transaction.Transaction, table string, cols []string, records [][]interface{}) error {
	if len(records) == 0 {
		return nil
	}
	if len(cols) == 0 {
		for range records {
			if err := e.recv.exec(ctx, tx.Tx(), e.dialect.InsertDefaultsSQL(table)); err != nil {
				return err
			}
		}
		tx.Record(transaction.ChangeTypeInsert, table, nil)
		return nil
	}

	stmt := tx.Tx().InsertInto(table).Columns(cols...)
	for _, vals := range records {
		stmt.Values(vals...)
	}
	res, err := stmt.ExecContext(ctx)
	if err != nil {
		return err
	}
	tx.Record(transaction.ChangeTypeInsert, table, res)
	return nil
}
