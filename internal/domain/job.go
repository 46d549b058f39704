package domain

import "time"

type JobKind string

const (
	JobExportHistory JobKind = "export_history"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Finished() bool {
	return s == JobSucceeded || s == JobFailed
}

type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatXLSX ExportFormat = "xlsx"
)

type Job struct {
	ID        string       `json:"id"`
	Kind      JobKind      `json:"kind"`
	UserID    int          `json:"user_id"`
	Format    ExportFormat `json:"format"`
	Status    JobStatus    `json:"status"`
	Filename  string       `json:"filename,omitempty"`
	Error     string       `json:"error,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type ExportStatusDTO struct {
	JobID       string    `json:"task_id"`
	Status      JobStatus `json:"status"`
	Ready       bool      `json:"ready"`
	DownloadURL string    `json:"download_url,omitempty"`
	Error       string    `json:"error,omitempty"`
}
