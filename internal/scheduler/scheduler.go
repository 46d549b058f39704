package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Jobs are the actions the scheduler triggers.
type Jobs interface {
	ScheduleDailyReminders(ctx context.Context, force bool) (string, error)
	SchedulePreviousMonthReports(ctx context.Context) (string, error)
}

type ExportCleaner interface {
	CleanupExports(ctx context.Context, now time.Time, retention time.Duration) (int, error)
}

const (
	// Every 5 minutes; the reminder job itself decides whether it is due.
	SpecReminderCheck = "0 */5 * * * *"
	// 09:00 on the first of every month.
	SpecMonthlyReports = "0 0 9 1 * *"
	SpecExportCleanup  = "0 30 * * * *"
)

// CronService runs the periodic jobs in the display time zone.
type CronService struct {
	cron      *cron.Cron
	jobs      Jobs
	cleaner   ExportCleaner
	retention time.Duration
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewCronService(jobs Jobs, cleaner ExportCleaner, retention time.Duration, loc *time.Location, logger *logrus.Logger) *CronService {
	if loc == nil {
		loc = time.UTC
	}
	return &CronService{
		cron:      cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		jobs:      jobs,
		cleaner:   cleaner,
		retention: retention,
		timeout:   time.Minute,
		logger:    logger,
	}
}

func (s *CronService) Start() error {
	entries := []struct {
		spec string
		name string
		run  func(ctx context.Context) error
	}{
		{SpecReminderCheck, "daily reminder check", s.reminderCheckJob},
		{SpecMonthlyReports, "monthly reports", s.monthlyReportsJob},
		{SpecExportCleanup, "export cleanup", s.exportCleanupJob},
	}
	for _, e := range entries {
		e := e
		if _, err := s.cron.AddFunc(e.spec, func() { s.run(e.name, e.run) }); err != nil {
			return fmt.Errorf("schedule %s: %w", e.name, err)
		}
		s.logger.WithFields(logrus.Fields{"job": e.name, "spec": e.spec}).Info("scheduled")
	}
	s.cron.Start()
	return nil
}

// Stop waits for running jobs to finish.
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("cron service stopped")
}

func (s *CronService) run(name string, job func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		s.logger.WithError(err).WithField("job", name).Error("cron job failed")
		return
	}
	s.logger.WithFields(logrus.Fields{"job": name, "duration": time.Since(start).String()}).Debug("cron job done")
}

func (s *CronService) reminderCheckJob(ctx context.Context) error {
	_, err := s.jobs.ScheduleDailyReminders(ctx, false)
	return err
}

func (s *CronService) monthlyReportsJob(ctx context.Context) error {
	_, err := s.jobs.SchedulePreviousMonthReports(ctx)
	return err
}

func (s *CronService) exportCleanupJob(ctx context.Context) error {
	n, err := s.cleaner.CleanupExports(ctx, time.Now(), s.retention)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.WithField("removed", n).Info("expired exports removed")
	}
	return nil
}
