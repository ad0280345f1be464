package stages

import (
	"fmt"

	"github.com/robfig/cron/v3"

	"cropdata/internal/logger"
)

// cronLogger routes scheduler messages through the pipeline logger. Tick
// bookkeeping is debug noise; errors stay errors.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}

// NonOverlapping wraps job so a tick that fires while the previous run is
// still going is skipped. Every run writes the same artifacts, so two must
// never run at once.
func NonOverlapping(log *logger.Logger, job func()) cron.Job {
	cl := cronLogger{log: log}

	return cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(job))
}

// NewScheduler registers job on a standard five-field cron expression. The
// caller starts and stops the returned scheduler.
func NewScheduler(spec string, log *logger.Logger, job func()) (*cron.Cron, error) {
	c := cron.New(cron.WithLogger(cronLogger{log: log}))

	if _, err := c.AddJob(spec, NonOverlapping(log, job)); err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}

	return c, nil
}
