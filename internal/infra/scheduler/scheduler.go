package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"promo_rotation_bot/internal/app"
)

const DefaultCycleInterval = 60 * time.Second

// CycleRunner runs one distribution cycle. app.DistributionService implements it.
type CycleRunner interface {
	RunCycle(ctx context.Context) (*app.CycleReport, error)
}

// DistributionScheduler fires the distribution cycle on a fixed interval.
// A tick that lands while the previous cycle is still running is skipped.
type DistributionScheduler struct {
	cronEngine *cron.Cron
	runner     CycleRunner
	logger     *logrus.Entry
	interval   time.Duration
	entryID    cron.EntryID
}

func NewDistributionScheduler(runner CycleRunner, logger *logrus.Entry, interval time.Duration) *DistributionScheduler {
	if interval <= 0 {
		interval = DefaultCycleInterval
	}
	cl := cronLogger{entry: logger.WithField("component", "cron")}
	return &DistributionScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			// Recover must sit inside the skip guard, or a panic keeps the guard held forever.
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		runner:   runner,
		logger:   logger,
		interval: interval,
	}
}

func (s *DistributionScheduler) Start() {
	s.logger.WithField("interval", s.interval.String()).Info("Starting distribution scheduler")
	s.entryID = s.cronEngine.Schedule(cron.Every(s.interval), cron.FuncJob(s.tick))
	s.cronEngine.Start()
}

// Stop stops firing new cycles and waits for the running one to finish.
func (s *DistributionScheduler) Stop() {
	s.logger.Info("Stopping distribution scheduler...")
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.logger.Info("Distribution scheduler gracefully stopped.")
}

// NextRun returns when the next cycle is due, or the zero time before Start.
func (s *DistributionScheduler) NextRun() time.Time {
	return s.cronEngine.Entry(s.entryID).Next
}

func (s *DistributionScheduler) tick() {
	// A cycle is never cancelled mid-way; it always runs to its flush.
	report, err := s.runner.RunCycle(context.Background())
	switch {
	case errors.Is(err, app.ErrCycleInProgress):
		s.logger.Info("Previous distribution cycle still running, tick skipped")
	case err != nil:
		s.logger.WithError(err).Warn("Distribution tick ended with an error")
	case report != nil && report.Skipped:
		s.logger.WithField("cycle_id", report.ID).Debug("Distribution tick skipped: not enough parties")
	}
}

// cronLogger adapts logrus to cron.Logger.
type cronLogger struct {
	entry *logrus.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(kvFields(keysAndValues)).WithError(err).Error(msg)
}

func kvFields(kv []interface{}) logrus.Fields {
	fields := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		fields[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return fields
}
