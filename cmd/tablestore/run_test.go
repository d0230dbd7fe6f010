package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/leengari/tablestore/internal/domain/errors"
	"github.com/leengari/tablestore/internal/domain/schema"
)

type harness struct {
	t   *testing.T
	dsn string
}

func (h *harness) run(stdin string, args ...string) (string, error) {
	h.t.Helper()
	var out bytes.Buffer
	full := append([]string{"-dialect", "sqlite", "-dsn", h.dsn}, args...)
	err := run(context.Background(), full, strings.NewReader(stdin), &out)
	return out.String(), err
}

func TestCLIRoundTrip(t *testing.T) {
	h := &harness{t: t, dsn: filepath.Join(t.TempDir(), "cli.db")}
	cols := "col_a:INT,col_b:NDARRAY"

	out, err := h.run("", "create", "-table", "T", "-columns", cols)
	require.NoError(t, err)
	var created schema.PhysicalTable
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	assert.Equal(t, "T", created.Name)
	assert.Len(t, created.Columns, 3)

	input := `{"col_a": 5, "col_b": [[1, 2], [3, 4]]}
{"col_a": 6, "col_b": [0.5]}
`
	out, err = h.run(input, "write", "-table", "T", "-columns", cols, "-chunk", "1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"written": 2}`, out)

	out, err = h.run("", "read", "-table", "T", "-columns", cols)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 1)
	assert.JSONEq(t, `{"rows": [
		{"_row_id": 1, "col_a": 5, "col_b": [[1, 2], [3, 4]]},
		{"_row_id": 2, "col_a": 6, "col_b": [0.5]}
	]}`, lines[0])

	_, err = h.run("", "delete", "-table", "T", "-columns", cols, "-where", `{"col_a": 5}`)
	require.NoError(t, err)

	out, err = h.run("", "read", "-table", "T", "-columns", cols, "-batch-mem-size", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))

	_, err = h.run("", "rename", "-table", "T", "-to", "U")
	assert.ErrorIs(t, err, domainerrors.ErrUnsupportedOperation)

	out, err = h.run("", "drop", "-table", "T")
	require.NoError(t, err)
	assert.JSONEq(t, `{"dropped": true}`, out)

	out, err = h.run("", "drop", "-table", "T")
	require.NoError(t, err)
	assert.JSONEq(t, `{"dropped": false}`, out)
}

func TestCLIMetricsOut(t *testing.T) {
	dir := t.TempDir()
	h := &harness{t: t, dsn: filepath.Join(dir, "cli.db")}
	prom := filepath.Join(dir, "tablestore.prom")

	_, err := h.run("", "create", "-table", "T", "-columns", "col_a:INT")
	require.NoError(t, err)
	_, err = os.Stat(prom)
	assert.True(t, os.IsNotExist(err), "no metrics file without the flag")

	_, err = h.run("{\"col_a\": 1}\n{\"col_a\": 2}\n", "-metrics-out", prom, "write", "-table", "T", "-columns", "col_a:INT")
	require.NoError(t, err)

	text, err := os.ReadFile(prom)
	require.NoError(t, err)
	assert.Contains(t, string(text), `tablestore_rows_written_total{table="T"} 2`)
	assert.Contains(t, string(text), "tablestore_statement_duration_seconds")
}

func TestCLIErrors(t *testing.T) {
	h := &harness{t: t, dsn: filepath.Join(t.TempDir(), "cli.db")}

	_, err := h.run("")
	assert.Error(t, err)

	_, err = h.run("", "explode")
	assert.Error(t, err)

	_, err = h.run("", "create", "-columns", "a:INT")
	assert.Error(t, err)

	_, err = h.run("", "read", "-table", "nope")
	assert.ErrorIs(t, err, domainerrors.ErrTableNotFound)

	_, err = h.run("", "create", "-table", "T", "-columns", "a:INT")
	require.NoError(t, err)
	_, err = h.run("", "delete", "-table", "T", "-where", `{"b": 1}`)
	assert.ErrorIs(t, err, domainerrors.ErrInvalidPredicateColumn)

	_, err = h.run("{not json", "write", "-table", "T", "-columns", "a:INT")
	assert.Error(t, err)
}

func TestParseTable(t *testing.T) {
	tbl, err := parseTable("t", "a:INT, b:ndarray,c:text")
	require.NoError(t, err)
	require.Len(t, tbl.Columns, 3)
	assert.Equal(t, schema.ColumnTypeNDArray, tbl.Columns[1].Type)
	assert.Equal(t, "c", tbl.Columns[2].Name)

	tbl, err = parseTable("t", "")
	require.NoError(t, err)
	assert.Empty(t, tbl.Columns)

	for _, bad := range []string{"a", "a:VECTOR", "a:INT,a:TEXT"} {
		_, err := parseTable("t", bad)
		assert.Error(t, err, bad)
	}
	_, err = parseTable("", "a:INT")
	assert.Error(t, err)
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig("", "postgres", "postgres://u@h/db")
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Store.Dialect)
	assert.Equal(t, "postgres://u@h/db", cfg.Store.DSN)

	_, err = loadConfig("", "oracle", "")
	assert.Error(t, err)
}
