package transaction

import (
	"context"
	"database/sql"
	"errors"
	"sync/atomic"
	"time"

	"github.com/gocraft/dbr/v2"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// txIDCounter is an atomic counter for generating numeric transaction IDs
var txIDCounter uint64

// ChangeType represents the type of modification
type ChangeType string

const (
	ChangeTypeCreate ChangeType = "CREATE"
	ChangeTypeInsert ChangeType = "INSERT"
	ChangeTypeDelete ChangeType = "DELETE"
)

// Change records one statement issued inside a transaction
type Change struct {
	Type  ChangeType
	Table string
	Rows  int64 // rows affected, -1 when the driver does not report it
}

// Transaction wraps a store transaction with an identity and a change log.
// Each engine mutation runs in exactly one Transaction and commits it once.
type Transaction struct {
	ID        string    // Unique transaction identifier, used in logs and events
	TxID      uint64    // Monotonic numeric ID
	Active    bool      // Whether the transaction is still open
	Committed bool      // Whether Commit succeeded
	StartTime time.Time // When the transaction began
	Changes   []Change  // Statements issued

	tx *dbr.Tx
}

// Begin starts a store transaction on the session.
func Begin(ctx context.Context, sess *dbr.Session) (*Transaction, error) {
	tx, err := sess.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		ID:        uuid.New().String(),
		TxID:      atomic.AddUint64(&txIDCounter, 1),
		Active:    true,
		StartTime: time.Now(),
		Changes:   make([]Change, 0),
		tx:        tx,
	}, nil
}

// Tx exposes the underlying dbr transaction for statement building.
func (t *Transaction) Tx() *dbr.Tx {
	return t.tx
}

// Record appends a change to the log. res may be nil.
func (t *Transaction) Record(typ ChangeType, table string, res sql.Result) int64 {
	rows := int64(-1)
	if res != nil {
		if n, err := res.RowsAffected(); err == nil {
			rows = n
		}
	}
	t.Changes = append(t.Changes, Change{Type: typ, Table: table, Rows: rows})
	return rows
}

// Commit commits the transaction. Committing twice is an error.
func (t *Transaction) Commit() error {
	if !t.Active {
		return sql.ErrTxDone
	}
	if err := t.tx.Commit(); err != nil {
		return err
	}
	t.Active = false
	t.Committed = true
	return nil
}

// Close rolls back the transaction unless it was committed. The returned
// error combines cause with any rollback failure.
func (t *Transaction) Close(cause error) error {
	if !t.Active {
		return cause
	}
	t.Active = false
	rbErr := t.tx.Rollback()
	if errors.Is(rbErr, sql.ErrTxDone) {
		rbErr = nil
	}
	return multierr.Append(cause, rbErr)
}

// Duration reports how long the transaction has been open
func (t *Transaction) Duration() time.Duration {
	return time.Since(t.StartTime)
}
