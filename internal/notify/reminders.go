package notify

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"parkease/internal/domain"
	"parkease/internal/mailer"
	"parkease/internal/queue"
)

const reminderSubject = "Daily Parking Reminder - Book Your Spot!"

// ReminderDue reports whether the daily reminders should go out at now:
// inside [reminder time, reminder time + window) in loc, and not yet sent today.
func ReminderDue(settings domain.ReminderSettings, now time.Time, loc *time.Location, window time.Duration) bool {
	local := now.In(loc)
	if settings.LastRun == local.Format("2006-01-02") {
		return false
	}
	start := time.Date(local.Year(), local.Month(), local.Day(), settings.Hour, settings.Minute, 0, 0, loc)
	return !local.Before(start) && local.Before(start.Add(window))
}

// RunDailyReminders queues one reminder per role=user account with no session
// started today, then records today as the last run.
func (w *Worker) RunDailyReminders(ctx context.Context, p queue.DailyRemindersPayload) (BatchResult, error) {
	loc := w.opts.Location
	now := p.Now
	if now.IsZero() {
		now = time.Now()
	}
	local := now.In(loc)
	today := local.Format("2006-01-02")
	entry := w.logger.WithFields(logrus.Fields{"date": today, "reminder_time": p.Settings.Clock(), "forced": p.Force})

	if !p.Force && !ReminderDue(p.Settings, now, loc, w.opts.ReminderWindow) {
		entry.Debug("daily reminders not due")
		return BatchResult{Skipped: "not due"}, nil
	}

	lots, err := w.reportRepo.CountLots(ctx)
	if err != nil {
		return BatchResult{}, err
	}
	if lots == 0 {
		entry.Info("no parking lots, skipping daily reminders")
		return BatchResult{Skipped: "no parking lots"}, nil
	}

	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	users, err := w.reportRepo.UsersWithoutSessionSince(ctx, dayStart)
	if err != nil {
		return BatchResult{}, err
	}

	res := w.fanOut(ctx, users, queue.KindReminderEmail, func(userID int) any {
		return queue.ReminderEmailPayload{UserID: userID}
	}, entry)

	if err := w.recorder.MarkReminderRun(ctx, today); err != nil {
		return res, err
	}
	entry.WithFields(logrus.Fields{"queued": res.Sent, "failed": res.Failed}).Info("daily reminders dispatched")
	return res, nil
}

// SendReminder mails one user the list of lots with free spots.
func (w *Worker) SendReminder(ctx context.Context, userID int) error {
	user, err := w.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	lots, err := w.reportRepo.OccupancyPerLot(ctx)
	if err != nil {
		return err
	}

	body, err := renderReminder(reminderView{
		FullName: user.FullName,
		Lots:     lots,
		AppURL:   w.opts.AppURL,
	})
	if err != nil {
		return err
	}
	return w.mail.Send(ctx, mailer.Message{To: user.Email, Subject: reminderSubject, HTMLBody: body})
}
