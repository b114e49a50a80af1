package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"primerid/api/models/constants"
	"primerid/api/models/jobs"
	"primerid/api/repositories"
	"primerid/api/repositories/postgres/migrations"
	"primerid/api/utils"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratePostgres "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

const selectColumns = "SELECT id, pipeline, created_at, payload FROM jobs"

type JobRepository struct {
	db *sql.DB
}

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return db, nil
}

// Migrate brings the schema up to date; already current is not an error.
func Migrate(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratePostgres.WithInstance(db, &migratePostgres.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Create(ctx context.Context, job jobs.Job) (jobs.Job, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("marshal job: %w", err)
	}

	row := r.db.QueryRowContext(ctx,
		`INSERT INTO jobs (pipeline, submit, pending, processing_error, payload) VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at`,
		string(job.Pipeline), job.Submit, job.Pending, job.ProcessingError, payload)
	if err := row.Scan(&job.Id, &job.CreatedAt); err != nil {
		return jobs.Job{}, fmt.Errorf("insert job: %w", err)
	}
	return job, nil
}

func (r *JobRepository) FindUnique(ctx context.Context, p constants.Pipeline, id string) (jobs.Job, error) {
	// the id column is a uuid; anything else would be a query error
	if !utils.IsValidUUID(id) {
		return jobs.Job{}, repositories.ErrNotFound
	}
	row := r.db.QueryRowContext(ctx, selectColumns+` WHERE pipeline = $1 AND id = $2`, string(p), id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return jobs.Job{}, repositories.ErrNotFound
	}
	return job, err
}

func (r *JobRepository) Update(ctx context.Context, p constants.Pipeline, id string, fields map[string]interface{}) (jobs.Job, error) {
	if !utils.IsValidUUID(id) {
		return jobs.Job{}, repositories.ErrNotFound
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	job, err := scanJob(tx.QueryRowContext(ctx, selectColumns+` WHERE pipeline = $1 AND id = $2 FOR UPDATE`, string(p), id))
	if errors.Is(err, sql.ErrNoRows) {
		return jobs.Job{}, repositories.ErrNotFound
	}
	if err != nil {
		return jobs.Job{}, err
	}

	updated, err := jobs.ApplyPatch(job, fields)
	if err != nil {
		return jobs.Job{}, err
	}
	payload, err := json.Marshal(updated)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("marshal job: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE jobs SET submit = $1, pending = $2, processing_error = $3, payload = $4 WHERE id = $5`,
		updated.Submit, updated.Pending, updated.ProcessingError, payload, id); err != nil {
		return jobs.Job{}, fmt.Errorf("update job: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return jobs.Job{}, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

func (r *JobRepository) FindMany(ctx context.Context, filter jobs.Filter) ([]jobs.Job, error) {
	query, args := buildFindManyQuery(filter)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	out := []jobs.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func buildFindManyQuery(filter jobs.Filter) (string, []interface{}) {
	where := []string{}
	args := []interface{}{}

	if filter.Pipeline != "" {
		args = append(args, string(filter.Pipeline))
		where = append(where, fmt.Sprintf("pipeline = $%d", len(args)))
	}
	if filter.OnlyListable {
		where = append(where, "(submit OR pending) AND NOT processing_error")
	}
	if !filter.Stale.IsZero() {
		args = append(args, filter.Stale)
		where = append(where, fmt.Sprintf("NOT submit AND created_at < $%d", len(args)))
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY created_at DESC", args
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(s scanner) (jobs.Job, error) {
	var (
		id        string
		p         string
		createdAt time.Time
		payload   []byte
	)
	if err := s.Scan(&id, &p, &createdAt, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return jobs.Job{}, err
		}
		return jobs.Job{}, fmt.Errorf("scan job: %w", err)
	}

	var job jobs.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return jobs.Job{}, fmt.Errorf("decode payload: %w", err)
	}
	job.Id = id
	job.Pipeline = constants.Pipeline(p)
	job.CreatedAt = createdAt
	return job, nil
}
