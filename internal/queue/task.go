package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parkease/internal/domain"
)

type Kind string

const (
	KindDailyReminders    Kind = "daily_reminders"
	KindReminderEmail     Kind = "reminder_email"
	KindMonthlyReport     Kind = "monthly_report"
	KindAllMonthlyReports Kind = "all_monthly_reports"
	KindExportHistory     Kind = "export_history"
)

// Task is the unit of background work, serialized as JSON on the wire.
type Task struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

func NewTask(kind Kind, payload any) (Task, error) {
	task := Task{ID: uuid.NewString(), Kind: kind, EnqueuedAt: time.Now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return Task{}, fmt.Errorf("encode %s payload: %w", kind, err)
		}
		task.Payload = raw
	}
	return task, nil
}

func (t Task) Decode(v any) error {
	if len(t.Payload) == 0 {
		return fmt.Errorf("task %s (%s) has no payload", t.ID, t.Kind)
	}
	if err := json.Unmarshal(t.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", t.Kind, err)
	}
	return nil
}

type Publisher interface {
	Publish(ctx context.Context, task Task) error
}

type Handler interface {
	HandleTask(ctx context.Context, task Task) error
}

type HandlerFunc func(ctx context.Context, task Task) error

func (f HandlerFunc) HandleTask(ctx context.Context, task Task) error {
	return f(ctx, task)
}

// DailyRemindersPayload carries everything the reminder job decides on.
type DailyRemindersPayload struct {
	Settings domain.ReminderSettings `json:"settings"`
	Now      time.Time               `json:"now"`
	// Force skips the time-window and once-a-day checks.
	Force bool `json:"force"`
}

type ReminderEmailPayload struct {
	UserID int `json:"user_id"`
}

type MonthlyReportPayload struct {
	UserID int `json:"user_id"`
	Month  int `json:"month"`
	Year   int `json:"year"`
}

type AllMonthlyReportsPayload struct {
	Month int `json:"month"`
	Year  int `json:"year"`
}

type ExportHistoryPayload struct {
	JobID string `json:"job_id"`
}
