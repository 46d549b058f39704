package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"parkease/internal/domain"
	"parkease/internal/mailer"
	"parkease/internal/queue"
	"parkease/internal/repository"
)

// MonthlyReporter builds the per-user monthly summary.
type MonthlyReporter interface {
	MonthlyReport(ctx context.Context, userID, month, year int) (*domain.MonthlyReport, error)
}

// ReminderRecorder persists the date of the last completed reminder run.
type ReminderRecorder interface {
	MarkReminderRun(ctx context.Context, date string) error
}

type Options struct {
	ExportDir      string
	ReminderWindow time.Duration
	Location       *time.Location
	// AppURL is linked from the emails.
	AppURL string
	// PublishTimeout bounds each fan-out publish. The in-process queue runs the
	// fan-out on one of its own workers, so a full buffer would otherwise wait forever.
	PublishTimeout time.Duration
}

// Worker executes queued tasks. Jobs read the store and send mail; the only
// writes are job rows, export files and the reminder run date.
type Worker struct {
	reportRepo  repository.ReportRepository
	userRepo    repository.UserRepository
	sessionRepo repository.ParkingSessionRepository
	jobRepo     repository.JobRepository
	reports     MonthlyReporter
	recorder    ReminderRecorder
	mail        mailer.Sender
	publisher   queue.Publisher
	opts        Options
	logger      *logrus.Logger
}

func NewWorker(
	reportRepo repository.ReportRepository,
	userRepo repository.UserRepository,
	sessionRepo repository.ParkingSessionRepository,
	jobRepo repository.JobRepository,
	reports MonthlyReporter,
	recorder ReminderRecorder,
	mail mailer.Sender,
	publisher queue.Publisher,
	opts Options,
	logger *logrus.Logger,
) *Worker {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.ReminderWindow <= 0 {
		opts.ReminderWindow = 5 * time.Minute
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	return &Worker{
		reportRepo:  reportRepo,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		jobRepo:     jobRepo,
		reports:     reports,
		recorder:    recorder,
		mail:        mail,
		publisher:   publisher,
		opts:        opts,
		logger:      logger,
	}
}

// SetPublisher wires the queue used for fan-out once it exists.
func (w *Worker) SetPublisher(p queue.Publisher) {
	w.publisher = p
}

func (w *Worker) HandleTask(ctx context.Context, task queue.Task) error {
	switch task.Kind {
	case queue.KindDailyReminders:
		var p queue.DailyRemindersPayload
		if err := task.Decode(&p); err != nil {
			return err
		}
		_, err := w.RunDailyReminders(ctx, p)
		return err

	case queue.KindReminderEmail:
		var p queue.ReminderEmailPayload
		if err := task.Decode(&p); err != nil {
			return err
		}
		return w.perUser(task, p.UserID, w.SendReminder(ctx, p.UserID))

	case queue.KindMonthlyReport:
		var p queue.MonthlyReportPayload
		if err := task.Decode(&p); err != nil {
			return err
		}
		_, err := w.SendMonthlyReport(ctx, p.UserID, p.Month, p.Year)
		return w.perUser(task, p.UserID, err)

	case queue.KindAllMonthlyReports:
		var p queue.AllMonthlyReportsPayload
		if err := task.Decode(&p); err != nil {
			return err
		}
		_, err := w.FanOutMonthlyReports(ctx, p.Month, p.Year)
		return err

	case queue.KindExportHistory:
		var p queue.ExportHistoryPayload
		if err := task.Decode(&p); err != nil {
			return err
		}
		return w.RunExport(ctx, p.JobID)
	}
	return fmt.Errorf("unknown task kind %q", task.Kind)
}

// perUser logs a single-user failure and swallows it so the message is not redelivered.
func (w *Worker) perUser(task queue.Task, userID int, err error) error {
	if err != nil {
		w.logger.WithError(err).WithFields(logrus.Fields{"task_id": task.ID, "kind": task.Kind, "user_id": userID}).
			Error("notification failed")
	}
	return nil
}

// BatchResult counts per-user outcomes of a fan-out job.
type BatchResult struct {
	Skipped string `json:"skipped,omitempty"`
	Sent    int    `json:"sent"`
	Failed  int    `json:"failed"`
}

func (w *Worker) publish(ctx context.Context, kind queue.Kind, payload any) error {
	if w.publisher == nil {
		return fmt.Errorf("no task publisher configured")
	}
	task, err := queue.NewTask(kind, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, w.opts.PublishTimeout)
	defer cancel()
	return w.publisher.Publish(ctx, task)
}

// fanOut queues one task per user. Once a publish times out the rest are
// counted as failed rather than each waiting out its own timeout.
func (w *Worker) fanOut(ctx context.Context, users []domain.User, kind queue.Kind, payload func(userID int) any, entry *logrus.Entry) BatchResult {
	var res BatchResult
	for i, u := range users {
		err := w.publish(ctx, kind, payload(u.ID))
		if err == nil {
			res.Sent++
			continue
		}
		res.Failed++
		entry.WithError(err).WithField("user_id", u.ID).Error("could not queue task")
		if errors.Is(err, context.DeadlineExceeded) {
			res.Failed += len(users) - i - 1
			entry.WithField("dropped", len(users)-i-1).Warn("task queue full, abandoning fan-out")
			break
		}
	}
	return res
}
