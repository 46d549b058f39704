package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"parkease/internal/domain"
	"parkease/internal/mailer"
	"parkease/internal/queue"
)

func monthlySubject(r *domain.MonthlyReport) string {
	return fmt.Sprintf("Your %s %d Parking Activity Report", r.MonthName, r.Year)
}

// SendMonthlyReport mails one user's report. A month without bookings sends
// nothing and returns a nil report.
func (w *Worker) SendMonthlyReport(ctx context.Context, userID, month, year int) (*domain.MonthlyReport, error) {
	report, err := w.reports.MonthlyReport(ctx, userID, month, year)
	if err != nil {
		return nil, err
	}
	entry := w.logger.WithFields(logrus.Fields{"user_id": userID, "month": month, "year": year})
	if report.TotalBookings == 0 {
		entry.Info("no parking activity, monthly report skipped")
		return nil, nil
	}

	body, err := renderMonthly(monthlyView{MonthlyReport: report, AppURL: w.opts.AppURL})
	if err != nil {
		return nil, err
	}
	if err := w.mail.Send(ctx, mailer.Message{To: report.Email, Subject: monthlySubject(report), HTMLBody: body}); err != nil {
		return nil, err
	}
	entry.WithField("bookings", report.TotalBookings).Info("monthly report sent")
	return report, nil
}

// FanOutMonthlyReports queues one monthly_report task per role=user account.
func (w *Worker) FanOutMonthlyReports(ctx context.Context, month, year int) (BatchResult, error) {
	users, err := w.userRepo.ListByRole(ctx, domain.RoleUser)
	if err != nil {
		return BatchResult{}, err
	}

	entry := w.logger.WithFields(logrus.Fields{"month": month, "year": year})
	res := w.fanOut(ctx, users, queue.KindMonthlyReport, func(userID int) any {
		return queue.MonthlyReportPayload{UserID: userID, Month: month, Year: year}
	}, entry)
	entry.WithFields(logrus.Fields{"queued": res.Sent, "failed": res.Failed}).Info("monthly reports dispatched")
	return res, nil
}
