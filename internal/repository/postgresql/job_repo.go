package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type pgJobRepository struct {
	db *sql.DB
}

func NewPgJobRepository(db *sql.DB) repository.JobRepository {
	return &pgJobRepository{db: db}
}

const jobColumns = `id, kind, user_id, format, status, filename, error, created_at, updated_at`

func scanJob(row rowScanner) (*domain.Job, error) {
	job := &domain.Job{}
	if err := row.Scan(&job.ID, &job.Kind, &job.UserID, &job.Format, &job.Status,
		&job.Filename, &job.Error, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return nil, err
	}
	job.CreatedAt = job.CreatedAt.In(time.UTC)
	job.UpdatedAt = job.UpdatedAt.In(time.UTC)
	return job, nil
}

func (r *pgJobRepository) Create(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	query := `INSERT INTO jobs (id, kind, user_id, format, status)
	           VALUES ($1, $2, $3, $4, $5)
	           RETURNING created_at, updated_at`
	err := conn(ctx, r.db).QueryRowContext(ctx, query, job.ID, job.Kind, job.UserID, job.Format, job.Status).
		Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("JobRepository.Create: %w", err)
	}
	job.CreatedAt = job.CreatedAt.In(time.UTC)
	job.UpdatedAt = job.UpdatedAt.In(time.UTC)
	return job, nil
}

func (r *pgJobRepository) FindByID(ctx context.Context, id string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`
	job, err := scanJob(conn(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("JobRepository.FindByID: %w", err)
	}
	return job, nil
}

func (r *pgJobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, filename, errMsg string) error {
	query := `UPDATE jobs SET status = $2, filename = $3, error = $4, updated_at = CURRENT_TIMESTAMP WHERE id = $1`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, id, status, filename, errMsg)
	if err != nil {
		return fmt.Errorf("JobRepository.UpdateStatus: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("JobRepository.UpdateStatus (checking rows): %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgJobRepository) DeleteFinishedBefore(ctx context.Context, t time.Time) ([]domain.Job, error) {
	query := `DELETE FROM jobs WHERE status IN ('succeeded', 'failed') AND updated_at < $1
	           RETURNING ` + jobColumns
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, t)
	if err != nil {
		return nil, fmt.Errorf("JobRepository.DeleteFinishedBefore: %w", err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("JobRepository.DeleteFinishedBefore (scanning row): %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("JobRepository.DeleteFinishedBefore (rows error): %w", err)
	}
	return jobs, nil
}
