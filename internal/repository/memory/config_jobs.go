package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"parkease/internal/domain"
	"parkease/internal/repository"
)

type appConfigRepository struct{ s *Store }

func NewAppConfigRepository(s *Store) repository.AppConfigRepository {
	return &appConfigRepository{s: s}
}

func (r *appConfigRepository) Get(ctx context.Context, key string) (string, error) {
	defer r.s.lock(ctx)()
	v, ok := r.s.t.config[key]
	if !ok {
		return "", repository.ErrNotFound
	}
	return v, nil
}

func (r *appConfigRepository) Set(ctx context.Context, key, value string) error {
	defer r.s.lock(ctx)()
	r.s.t.config[key] = value
	return nil
}

type jobRepository struct{ s *Store }

func NewJobRepository(s *Store) repository.JobRepository {
	return &jobRepository{s: s}
}

func (r *jobRepository) Create(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	defer r.s.lock(ctx)()
	if _, exists := r.s.t.jobs[job.ID]; exists {
		return nil, fmt.Errorf("%w: job %s", repository.ErrDuplicateEntry, job.ID)
	}
	job.CreatedAt = r.s.now()
	job.UpdatedAt = job.CreatedAt
	r.s.t.jobs[job.ID] = *job
	return job, nil
}

func (r *jobRepository) FindByID(ctx context.Context, id string) (*domain.Job, error) {
	defer r.s.lock(ctx)()
	j, ok := r.s.t.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &j, nil
}

func (r *jobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, filename, errMsg string) error {
	defer r.s.lock(ctx)()
	j, ok := r.s.t.jobs[id]
	if !ok {
		return repository.ErrNotFound
	}
	j.Status = status
	j.Filename = filename
	j.Error = errMsg
	j.UpdatedAt = r.s.now()
	r.s.t.jobs[id] = j
	return nil
}

func (r *jobRepository) DeleteFinishedBefore(ctx context.Context, t time.Time) ([]domain.Job, error) {
	defer r.s.lock(ctx)()
	removed := []domain.Job{}
	for id, j := range r.s.t.jobs {
		if j.Status.Finished() && j.UpdatedAt.Before(t) {
			removed = append(removed, j)
			delete(r.s.t.jobs, id)
		}
	}
	sort.Slice(removed, func(i, k int) bool { return removed[i].ID < removed[k].ID })
	return removed, nil
}
