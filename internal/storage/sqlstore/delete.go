package sqlstore

import (
	"context"
	"sort"
	"time"

	"github.com/gocraft/dbr/v2"

	domainerrors "github.com/leengari/tablestore/internal/domain/errors"
	"github.com/leengari/tablestore/internal/domain/schema"
	"github.com/leengari/tablestore/internal/domain/transaction"
	"github.com/leengari/tablestore/internal/ndarray"
	"github.com/leengari/tablestore/internal/storage/engine"
)

// Delete removes every row where each predicate column equals its value.
// Predicate columns are checked against the physical table before any
// statement is issued. An empty predicate deletes every row.
func (e *Engine) Delete(ctx context.Context, t schema.Table, predicate map[string]interface{}) (err error) {
	start := time.Now()
	ctx, span := e.startOp(ctx, "delete", t.Name)
	defer func() { e.finishOp(span, "delete", start, err) }()

	p, err := e.Handle(ctx, t.Name)
	if err != nil {
		return err
	}

	cond, err := e.buildPredicate(t, p, predicate)
	if err != nil {
		return err
	}

	tx, err := transaction.Begin(ctx, e.sess)
	if err != nil {
		return domainerrors.NewStoreError("delete", t.Name, err)
	}
	stmt := tx.Tx().DeleteFrom(t.Name)
	if cond != nil {
		stmt = stmt.Where(cond)
	}
	res, err := stmt.ExecContext(ctx)
	var affected int64
	if err == nil {
		affected = tx.Record(transaction.ChangeTypeDelete, t.Name, res)
		err = tx.Commit()
	}
	if err != nil {
		return domainerrors.NewStoreError("delete", t.Name, tx.Close(err))
	}

	e.metrics.AddDeleted(t.Name, affected)
	e.logger.Info("rows deleted", "table", t.Name, "rows", affected, "tx_id", tx.ID)
	e.Notify(engine.Event{
		Type:     engine.EventDelete,
		Table:    t.Name,
		TxID:     tx.ID,
		Rows:     affected,
		Duration: time.Since(start),
	})
	return nil
}

// buildPredicate validates the predicate columns and renders the equality
// conjunction. It returns nil for an empty predicate.
func (e *Engine) buildPredicate(t schema.Table, p *schema.PhysicalTable, predicate map[string]interface{}) (dbr.Builder, error) {
	if len(predicate) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(predicate))
	for name := range predicate {
		if name == schema.IdentifierColumn || !p.HasColumn(name) {
			return nil, &domainerrors.InvalidPredicateColumnError{TableName: t.Name, ColumnName: name}
		}
		names = append(names, name)
	}
	sort.Strings(names)

	conds := make([]dbr.Builder, 0, len(names))
	for _, name := range names {
		typ := columnType(t, p, name)
		if typ == schema.ColumnTypeNDArray && predicate[name] != nil {
			cond, err := e.arrayPredicate(t.Name, name, predicate[name])
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
			continue
		}
		v, err := e.encodeValue(t.Name, name, typ, predicate[name])
		if err != nil {
			return nil, err
		}
		// dbr.Eq expands slices into IN lists, so blobs are compared explicitly.
		if blob, ok := v.([]byte); ok {
			conds = append(conds, dbr.Expr(e.dialect.Quote(name)+" = ?", blob))
			continue
		}
		conds = append(conds, dbr.Eq(name, v))
	}
	return dbr.And(conds...), nil
}

// arrayPredicate matches a stored array whatever codec wrote it: the value is
// encoded under every codec and any of the blobs may match.
func (e *Engine) arrayPredicate(table, column string, v interface{}) (dbr.Builder, error) {
	arr, err := ndarray.FromSlice(v)
	if err != nil {
		return nil, &domainerrors.CodecError{Table: table, Column: column, Value: v, Err: err}
	}
	blobs, err := ndarray.EncodeAll(arr)
	if err != nil {
		return nil, &domainerrors.CodecError{Table: table, Column: column, Value: v, Err: err}
	}
	quoted := e.dialect.Quote(column)
	alts := make([]dbr.Builder, len(blobs))
	for i, blob := range blobs {
		alts[i] = dbr.Expr(quoted+" = ?", blob)
	}
	return dbr.Or(alts...), nil
}
