package sinks

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/JakeFAU/rsr-sign-scraper/internal/progress"
)

// LogSink logs each event. Run milestones and failures log at info/warn;
// per-CID steps log at debug.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch using structured fields.
func (s *LogSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		fields := []zap.Field{
			zap.String("run_id", evt.RunID),
			zap.String("stage", string(evt.Stage)),
		}
		if evt.CID > 0 {
			fields = append(fields, zap.Int("cid", evt.CID))
		}
		if evt.URL != "" {
			fields = append(fields, zap.String("url", evt.URL))
		}
		if evt.StatusClass != "" {
			fields = append(fields, zap.String("status_class", string(evt.StatusClass)))
		}
		if evt.Bytes > 0 {
			fields = append(fields, zap.Int64("bytes", evt.Bytes))
		}
		if evt.Dur > 0 {
			fields = append(fields, zap.Duration("dur", evt.Dur))
		}
		if evt.Stage == progress.StageRunStart {
			fields = append(fields, zap.Int("planned", evt.Planned))
		}
		if evt.Note != "" {
			fields = append(fields, zap.String("note", evt.Note))
		}
		s.logger.Log(levelFor(evt.Stage), "progress event", fields...)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}

func levelFor(stage progress.Stage) zapcore.Level {
	switch stage {
	case progress.StageRunStart, progress.StageRunDone:
		return zapcore.InfoLevel
	case progress.StageFailed, progress.StageImageFailed, progress.StageRunAborted:
		return zapcore.WarnLevel
	default:
		return zapcore.DebugLevel
	}
}
