package repositories

import (
	"context"
	"errors"
	"primerid/api/models/constants"
	"primerid/api/models/jobs"
)

var ErrNotFound = errors.New("job not found")

// JobRepository is the persistence boundary every store implements.
// FindMany returns jobs sorted by creation, newest first.
type JobRepository interface {
	Create(ctx context.Context, job jobs.Job) (jobs.Job, error)
	FindUnique(ctx context.Context, p constants.Pipeline, id string) (jobs.Job, error)
	Update(ctx context.Context, p constants.Pipeline, id string, fields map[string]interface{}) (jobs.Job, error)
	FindMany(ctx context.Context, filter jobs.Filter) ([]jobs.Job, error)
}
