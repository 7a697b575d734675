package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/siteaudit/internal/progress"
)

// LogSink writes each event as a structured log line.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs every event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("scan_id", evt.ScanID),
			zap.String("stage", string(evt.Stage)),
			zap.String("site", evt.Site),
			zap.Time("ts", evt.TS),
		}
		if evt.Pages > 0 {
			fields = append(fields, zap.Int64("pages", evt.Pages))
		}
		if evt.Stage == progress.StageScanDone {
			fields = append(fields, zap.Int64("checks", evt.Checks), zap.Int("score", evt.Score), zap.Duration("dur", evt.Dur))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Info("scan progress", fields...)
	}
	return nil
}

// Close implements progress.Sink.
func (s *LogSink) Close(context.Context) error {
	return nil
}
