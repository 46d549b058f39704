package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"parkease/internal/queue"
)

// NotificationService enqueues mail jobs. The jobs themselves run on the
// task worker.
type NotificationService struct {
	publisher queue.Publisher
	settings  *SettingsService
	loc       *time.Location
	logger    *logrus.Logger
	now       func() time.Time
}

func NewNotificationService(publisher queue.Publisher, settings *SettingsService, loc *time.Location, logger *logrus.Logger) *NotificationService {
	if loc == nil {
		loc = time.UTC
	}
	return &NotificationService{publisher: publisher, settings: settings, loc: loc, logger: logger, now: time.Now}
}

func (s *NotificationService) SetClock(now func() time.Time) {
	s.now = now
}

// ScheduleDailyReminders snapshots the reminder settings and enqueues the
// daily job. With force the job ignores the time window and the last-run date.
func (s *NotificationService) ScheduleDailyReminders(ctx context.Context, force bool) (string, error) {
	settings, err := s.settings.ReminderSettings(ctx)
	if err != nil {
		return "", err
	}
	return s.publish(ctx, queue.KindDailyReminders, queue.DailyRemindersPayload{
		Settings: settings,
		Now:      s.now(),
		Force:    force,
	})
}

func (s *NotificationService) ScheduleMonthlyReport(ctx context.Context, userID, month, year int) (string, error) {
	if userID <= 0 {
		return "", newError(ErrInvalidInput, "user_id is required")
	}
	month, year, err := s.resolveMonth(month, year)
	if err != nil {
		return "", err
	}
	return s.publish(ctx, queue.KindMonthlyReport, queue.MonthlyReportPayload{UserID: userID, Month: month, Year: year})
}

func (s *NotificationService) ScheduleAllMonthlyReports(ctx context.Context, month, year int) (string, error) {
	month, year, err := s.resolveMonth(month, year)
	if err != nil {
		return "", err
	}
	return s.publish(ctx, queue.KindAllMonthlyReports, queue.AllMonthlyReportsPayload{Month: month, Year: year})
}

// SchedulePreviousMonthReports is the first-of-month run: it reports on the month that just ended.
func (s *NotificationService) SchedulePreviousMonthReports(ctx context.Context) (string, error) {
	now := s.now().In(s.loc)
	prev := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, -1, 0)
	return s.ScheduleAllMonthlyReports(ctx, int(prev.Month()), prev.Year())
}

// resolveMonth fills a zero month or year from the current date.
func (s *NotificationService) resolveMonth(month, year int) (int, int, error) {
	now := s.now().In(s.loc)
	if month == 0 {
		month = int(now.Month())
	}
	if year == 0 {
		year = now.Year()
	}
	if month < 1 || month > 12 {
		return 0, 0, ErrInvalidMonth
	}
	return month, year, nil
}

func (s *NotificationService) publish(ctx context.Context, kind queue.Kind, payload any) (string, error) {
	task, err := queue.NewTask(kind, payload)
	if err != nil {
		return "", err
	}
	if err := s.publisher.Publish(ctx, task); err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{"task_id": task.ID, "kind": kind}).Info("task enqueued")
	return task.ID, nil
}
