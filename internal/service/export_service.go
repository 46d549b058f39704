package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"parkease/internal/domain"
	"parkease/internal/queue"
	"parkease/internal/repository"
)

// ExportService turns history export requests into background jobs and
// serves their results to the owning user.
type ExportService struct {
	jobRepo   repository.JobRepository
	publisher queue.Publisher
	dir       string
	logger    *logrus.Logger
}

func NewExportService(jobRepo repository.JobRepository, publisher queue.Publisher, dir string, logger *logrus.Logger) *ExportService {
	return &ExportService{jobRepo: jobRepo, publisher: publisher, dir: dir, logger: logger}
}

func (s *ExportService) RequestExport(ctx context.Context, userID int, format domain.ExportFormat) (*domain.Job, error) {
	if format == "" {
		format = domain.FormatCSV
	}
	if format != domain.FormatCSV && format != domain.FormatXLSX {
		return nil, newError(ErrInvalidInput, "Format must be csv or xlsx")
	}

	job, err := s.jobRepo.Create(ctx, &domain.Job{
		ID:     uuid.NewString(),
		Kind:   domain.JobExportHistory,
		UserID: userID,
		Format: format,
		Status: domain.JobPending,
	})
	if err != nil {
		return nil, err
	}

	task, err := queue.NewTask(queue.KindExportHistory, queue.ExportHistoryPayload{JobID: job.ID})
	if err == nil {
		err = s.publisher.Publish(ctx, task)
	}
	if err != nil {
		if uerr := s.jobRepo.UpdateStatus(ctx, job.ID, domain.JobFailed, "", "could not enqueue export"); uerr != nil {
			s.logger.WithError(uerr).WithField("job_id", job.ID).Error("failed to mark export job failed")
		}
		return nil, fmt.Errorf("enqueue export %s: %w", job.ID, err)
	}

	s.logger.WithFields(logrus.Fields{"job_id": job.ID, "user_id": userID, "format": format}).Info("export requested")
	return job, nil
}

func (s *ExportService) ownedJob(ctx context.Context, userID int, jobID string) (*domain.Job, error) {
	if _, err := uuid.Parse(jobID); err != nil {
		return nil, ErrJobNotFound
	}
	job, err := s.jobRepo.FindByID(ctx, jobID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	if job.UserID != userID {
		return nil, ErrAccessDenied
	}
	return job, nil
}

func (s *ExportService) Status(ctx context.Context, userID int, jobID string) (*domain.ExportStatusDTO, error) {
	job, err := s.ownedJob(ctx, userID, jobID)
	if err != nil {
		return nil, err
	}
	status := &domain.ExportStatusDTO{
		JobID:  job.ID,
		Status: job.Status,
		Ready:  job.Status.Finished(),
		Error:  job.Error,
	}
	if job.Status == domain.JobSucceeded {
		status.DownloadURL = "/api/parking/download-csv/" + job.ID
	}
	return status, nil
}

// DownloadPath returns the file of a finished export owned by userID.
func (s *ExportService) DownloadPath(ctx context.Context, userID int, jobID string) (string, error) {
	job, err := s.ownedJob(ctx, userID, jobID)
	if err != nil {
		return "", err
	}
	if job.Status != domain.JobSucceeded || job.Filename == "" {
		return "", ErrExportMissing
	}
	path := filepath.Join(s.dir, filepath.Base(job.Filename))
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrExportMissing
		}
		return "", err
	}
	return path, nil
}
