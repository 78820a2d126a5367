package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Status is one announcement made while a run progresses.
type Status struct {
	RunID   string    `json:"runId"`
	Stage   string    `json:"stage,omitempty"`
	Message string    `json:"message"`
	OK      bool      `json:"ok"`
	Time    time.Time `json:"time"`
}

// Reporter receives status announcements. A reporter error never affects the run.
type Reporter interface {
	Publish(ctx context.Context, s Status) error
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context, s Status) error

func (f ReporterFunc) Publish(ctx context.Context, s Status) error { return f(ctx, s) }

// LogReporter writes statuses to a zap logger.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter creates a reporter logging under the "status" name.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger.Named("status")}
}

func (r *LogReporter) Publish(_ context.Context, s Status) error {
	fields := []zap.Field{zap.String("run_id", s.RunID), zap.String("stage", s.Stage)}
	if s.OK {
		r.logger.Info(s.Message, fields...)
	} else {
		r.logger.Error(s.Message, fields...)
	}
	return nil
}

// MultiReporter fans a status out to several reporters.
type MultiReporter struct {
	logger    *zap.Logger
	reporters []Reporter
}

// NewMultiReporter skips nil entries.
func NewMultiReporter(logger *zap.Logger, reporters ...Reporter) *MultiReporter {
	m := &MultiReporter{logger: logger}
	for _, r := range reporters {
		if r != nil {
			m.reporters = append(m.reporters, r)
		}
	}
	return m
}

func (m *MultiReporter) Publish(ctx context.Context, s Status) error {
	for _, r := range m.reporters {
		if err := r.Publish(ctx, s); err != nil {
			m.logger.Warn("Status reporter failed.", zap.Error(err))
		}
	}
	return nil
}
