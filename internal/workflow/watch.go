package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// Watch runs the workflow once immediately and then on spec until ctx is
// done. A run still in progress when the next one is due is not overlapped;
// the late tick is skipped.
func (m *Manager) Watch(ctx context.Context, spec string, cleanupDays int) error {
	logger := cronLogger{logger: m.logger}
	c := cron.New(
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	job := cron.FuncJob(func() {
		if err := m.Run(ctx, cleanupDays); err != nil {
			m.logger.Error("scheduled workflow failed", "error", err)
		}
	})
	if _, err := c.AddJob(spec, job); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	m.logger.Info("watching", "schedule", spec)
	job.Run()

	c.Start()
	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	m.logger.Info("watch stopped")
	return nil
}
