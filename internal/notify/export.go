package notify

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"parkease/internal/domain"
)

var exportHeader = []string{"id", "spot_id", "lot_name", "start", "end", "cost", "status"}

// ErrNoHistory fails an export for a user without any sessions.
var ErrNoHistory = errors.New("no parking history found")

func exportFilename(job *domain.Job) string {
	return fmt.Sprintf("user_%d_parking_history_%s.%s", job.UserID, job.ID, job.Format)
}

// RunExport writes the user's full history for a pending job and records the
// outcome on the job row. A job that already finished is left alone.
func (w *Worker) RunExport(ctx context.Context, jobID string) error {
	job, err := w.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.Finished() {
		return nil
	}
	entry := w.logger.WithFields(logrus.Fields{"job_id": job.ID, "user_id": job.UserID, "format": job.Format})

	if err := w.jobRepo.UpdateStatus(ctx, job.ID, domain.JobRunning, "", ""); err != nil {
		return err
	}

	filename, runErr := w.writeExport(ctx, job)
	if runErr != nil {
		entry.WithError(runErr).Warn("export failed")
		return w.jobRepo.UpdateStatus(ctx, job.ID, domain.JobFailed, "", runErr.Error())
	}
	entry.WithField("filename", filename).Info("export written")
	return w.jobRepo.UpdateStatus(ctx, job.ID, domain.JobSucceeded, filename, "")
}

func (w *Worker) writeExport(ctx context.Context, job *domain.Job) (string, error) {
	records, err := w.sessionRepo.FindRecordsByUser(ctx, job.UserID, time.Time{}, time.Time{})
	if err != nil {
		return "", err
	}
	if len(records) == 0 {
		return "", ErrNoHistory
	}
	if err := os.MkdirAll(w.opts.ExportDir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, exportRow(rec, w.opts.Location))
	}

	filename := exportFilename(job)
	path := filepath.Join(w.opts.ExportDir, filename)
	switch job.Format {
	case domain.FormatXLSX:
		err = writeXLSX(path, rows)
	default:
		err = writeCSV(path, rows)
	}
	if err != nil {
		return "", err
	}
	return filename, nil
}

func exportRow(rec domain.SessionRecord, loc *time.Location) []string {
	released, cost := "", ""
	if rec.EndTime.Valid {
		released = rec.EndTime.Time.In(loc).Format("2006-01-02 03:04 PM")
	}
	if rec.Cost.Valid {
		cost = strconv.FormatFloat(rec.Cost.Float64, 'f', 2, 64)
	}
	return []string{
		strconv.Itoa(rec.ID),
		strconv.Itoa(rec.SpotID),
		rec.LotName,
		rec.StartTime.In(loc).Format("2006-01-02 03:04 PM"),
		released,
		cost,
		string(rec.Status),
	}
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}

func writeXLSX(path string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Parking History"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("drop default sheet: %w", err)
	}

	write := func(rowNum int, values []string) error {
		cell, err := excelize.CoordinatesToCellName(1, rowNum)
		if err != nil {
			return err
		}
		row := make([]interface{}, len(values))
		for i, v := range values {
			row[i] = v
		}
		return f.SetSheetRow(sheet, cell, &row)
	}

	if err := write(1, exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range rows {
		if err := write(i+2, r); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// CleanupExports deletes finished jobs older than retention together with their files.
func (w *Worker) CleanupExports(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	jobs, err := w.jobRepo.DeleteFinishedBefore(ctx, now.Add(-retention))
	if err != nil {
		return 0, err
	}
	for _, job := range jobs {
		if job.Filename == "" {
			continue
		}
		path := filepath.Join(w.opts.ExportDir, filepath.Base(job.Filename))
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			w.logger.WithError(err).WithField("path", path).Warn("could not remove export file")
		}
	}
	return len(jobs), nil
}
