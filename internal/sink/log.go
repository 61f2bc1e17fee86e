package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/ayusman/repwatch/internal/logging"
)

// LogSink writes results to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink. A nil logger discards everything.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logging.OrNop(logger)}
}

// Show logs triggered results at info level and the rest at debug level.
func (s *LogSink) Show(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("session", ev.SessionID),
		zap.Int("seq", ev.Result.Seq),
		zap.Float64("sample", ev.Sample),
	}
	if ev.Result.HasStdDev {
		fields = append(fields, zap.Float64("std_dev", ev.Result.StdDev))
	}

	if !ev.Result.Triggered {
		s.logger.Debug("sample", fields...)
		return nil
	}

	fields = append(fields,
		zap.Int("events", ev.Result.EventCount),
		zap.Bool("episode_start", ev.Result.EpisodeStart),
	)
	s.logger.Info("Repetitive movement detected", fields...)
	return nil
}

// Report logs the final count.
func (s *LogSink) Report(_ context.Context, sum Summary) error {
	s.logger.Info("Total repetitive motion instances detected",
		zap.String("session", sum.SessionID),
		zap.Int("events", sum.Events),
		zap.Int("episodes", sum.Episodes),
		zap.Int("samples", sum.Samples),
		zap.Int("invalid_samples", sum.InvalidSamples),
		zap.Int("missing_poses", sum.MissingPoses),
		zap.Duration("duration", sum.EndedAt.Sub(sum.StartedAt)),
	)
	return nil
}
