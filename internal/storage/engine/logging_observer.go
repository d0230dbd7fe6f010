package engine

import (
	"context"
	"log/slog"
)

// LoggingObserver logs every event using structured logging
type LoggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates a logging observer. A nil logger means
// slog.Default().
func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger}
}

// OnEvent implements the Observer interface
func (lo *LoggingObserver) OnEvent(event Event) {
	level := slog.LevelInfo
	if event.Type == EventBatch {
		level = slog.LevelDebug
	}
	attrs := []any{
		"event", event.Type,
		"table", event.Table,
		"tx_id", event.TxID,
		"rows", event.Rows,
		"duration", event.Duration,
	}
	if event.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, "error", event.Err)
	}
	lo.logger.Log(context.Background(), level, "storage_lifecycle", attrs...)
}
