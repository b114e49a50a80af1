package memory

import (
	"context"
	"primerid/api/models/constants"
	"primerid/api/models/jobs"
	"primerid/api/repositories"
	"sync"
	"time"

	. "github.com/ahmetb/go-linq"
	"github.com/google/uuid"
)

// JobRepository keeps jobs in process; used for local runs and tests.
type JobRepository struct {
	mu   sync.RWMutex
	jobs map[string]jobs.Job

	Now func() time.Time
}

func NewJobRepository() *JobRepository {
	return &JobRepository{
		jobs: map[string]jobs.Job{},
		Now:  time.Now,
	}
}

func (r *JobRepository) Create(_ context.Context, job jobs.Job) (jobs.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job.Id = uuid.NewString()
	job.CreatedAt = r.Now().UTC()
	r.jobs[job.Id] = job

	return job, nil
}

func (r *JobRepository) FindUnique(_ context.Context, p constants.Pipeline, id string) (jobs.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[id]
	if !ok || job.Pipeline != p {
		return jobs.Job{}, repositories.ErrNotFound
	}
	return job, nil
}

func (r *JobRepository) Update(_ context.Context, p constants.Pipeline, id string, fields map[string]interface{}) (jobs.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.Pipeline != p {
		return jobs.Job{}, repositories.ErrNotFound
	}

	updated, err := jobs.ApplyPatch(job, fields)
	if err != nil {
		return jobs.Job{}, err
	}
	r.jobs[id] = updated

	return updated, nil
}

func (r *JobRepository) FindMany(_ context.Context, filter jobs.Filter) ([]jobs.Job, error) {
	r.mu.RLock()
	all := make([]jobs.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		all = append(all, j)
	}
	r.mu.RUnlock()

	out := []jobs.Job{}
	From(all).
		WhereT(func(j jobs.Job) bool { return filter.Matches(j) }).
		OrderByDescendingT(func(j jobs.Job) int64 { return j.CreatedAt.UnixNano() }).
		ThenByT(func(j jobs.Job) string { return j.Id }).
		ToSlice(&out)

	return out, nil
}
