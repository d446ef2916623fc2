package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// PurgeSchedule runs the workspace idle purge every ten minutes.
const PurgeSchedule = "*/10 * * * *"

// Exporter copies the previous day's records to the export target.
type Exporter interface {
	ExportPreviousDay(ctx context.Context) (int, error)
}

// Purger drops idle workspace entries.
type Purger interface {
	Purge() int
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron     *cron.Cron
	exporter Exporter
	purger   Purger
	schedule string
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler instance. exporter may be nil when no
// export target is configured. Schedules are evaluated in loc.
func NewScheduler(exportSchedule string, loc *time.Location, exporter Exporter, purger Purger, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}

	// robfig/cron/v3 default parser is standard cron (5 fields: min, hour, dom, month, dow).
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:     c,
		exporter: exporter,
		purger:   purger,
		schedule: exportSchedule,
		logger:   logger,
	}
}

// Start registers the jobs and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler")

	if s.exporter != nil {
		if _, err := s.cron.AddFunc(s.schedule, s.exportRecords); err != nil {
			return fmt.Errorf("schedule record export %q: %w", s.schedule, err)
		}
		s.logger.Info("record export scheduled", zap.String("schedule", s.schedule))
	}

	if s.purger != nil {
		if _, err := s.cron.AddFunc(PurgeSchedule, s.purgeWorkspace); err != nil {
			return fmt.Errorf("schedule workspace purge: %w", err)
		}
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

// Entries returns the number of registered jobs.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) exportRecords() {
	s.logger.Info("exporting previous day records")
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := s.exporter.ExportPreviousDay(ctx)
	if err != nil {
		s.logger.Error("failed to export records", zap.Error(err))
		return
	}
	s.logger.Info("records export finished", zap.Int("rows", n))
}

func (s *Scheduler) purgeWorkspace() {
	s.purger.Purge()
}
