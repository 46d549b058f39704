package domain

import "fmt"

const (
	ConfigReminderHour    = "reminder_hour"
	ConfigReminderMinute  = "reminder_minute"
	ConfigReminderLastRun = "reminder_last_run"
)

// ReminderSettings is passed explicitly into the daily reminder job.
// LastRun is the display-zone calendar date (YYYY-MM-DD) of the last completed run.
type ReminderSettings struct {
	Hour    int    `json:"hour"`
	Minute  int    `json:"minute"`
	LastRun string `json:"last_run,omitempty"`
}

func (s ReminderSettings) Clock() string {
	return fmt.Sprintf("%02d:%02d", s.Hour, s.Minute)
}

type UpdateReminderTimeDTO struct {
	Hour   *int `json:"hour" binding:"required,min=0,max=23"`
	Minute *int `json:"minute" binding:"required,min=0,max=59"`
}
