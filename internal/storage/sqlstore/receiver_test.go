package sqlstore

import (
	"context"
	"log/slog"
	"strings"
	"testing"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/leengari/tablestore/internal/metrics"
	"github.com/leengari/tablestore/internal/testutil"
)

func TestStatementOp(t *testing.T) {
	tests := map[string]string{
		"dbr.insert":            "insert",
		"dbr.insert.exec":       "insert",
		"dbr.select.load.query": "select",
		"dbr.exec":              "exec",
		"dbr.exec.exec":         "exec",
		"dbr.begin.error":       "begin",
		"unprefixed":            "unprefixed",
	}
	for in, want := range tests {
		assert.Equal(t, want, statementOp(in), in)
	}
}

func TestReceiverCountsFailedStatements(t *testing.T) {
	ctx := context.Background()
	conn := testutil.OpenSQLite(t)
	m, err := metrics.New("ts", nil)
	require.NoError(t, err)
	r := &eventReceiver{
		logger:  slog.New(slog.DiscardHandler),
		metrics: m,
		tracer:  noop.NewTracerProvider().Tracer("test"),
	}

	require.NoError(t, r.exec(ctx, conn.DB, "CREATE TABLE ok_t (a INTEGER)"))
	assert.Equal(t, 0.0, promtestutil.ToFloat64(m.StmtErrors.WithLabelValues("exec")))

	assert.Error(t, r.exec(ctx, conn.DB, "DROP TABLE missing_t"))
	assert.Equal(t, 1.0, promtestutil.ToFloat64(m.StmtErrors.WithLabelValues("exec")))
	assert.Equal(t, 1, promtestutil.CollectAndCount(m.StmtDuration), "timings share one label set")
}

func TestTruncateSQL(t *testing.T) {
	short := "SELECT 1"
	assert.Equal(t, short, truncateSQL(short))

	long := strings.Repeat("x", maxLoggedSQL+10)
	got := truncateSQL(long)
	assert.Len(t, got, maxLoggedSQL+3)
	assert.True(t, strings.HasSuffix(got, "..."))
}
