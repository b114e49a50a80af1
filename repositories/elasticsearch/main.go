package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"primerid/api/models"
	"primerid/api/models/constants"
	"primerid/api/models/jobs"
	"primerid/api/repositories"

	"github.com/Jeffail/gabs"
	"github.com/elastic/go-elasticsearch/v7"
	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/google/uuid"
)

const maxListSize = 10000

// JobRepository stores one index per pipeline, `{prefix}{pipeline}`.
type JobRepository struct {
	es  *elasticsearch.Client
	cfg *models.Config
}

func NewJobRepository(es *elasticsearch.Client, cfg *models.Config) *JobRepository {
	return &JobRepository{es: es, cfg: cfg}
}

func (r *JobRepository) index(p constants.Pipeline) string {
	if p == "" {
		return r.cfg.Elasticsearch.IndexPrefix + "*"
	}
	return r.cfg.Elasticsearch.IndexPrefix + string(p)
}

func (r *JobRepository) Create(ctx context.Context, job jobs.Job) (jobs.Job, error) {
	job.Id = uuid.NewString()
	job.CreatedAt = time.Now().UTC()

	// Marshal the struct to JSON and check for errors
	b, err := json.Marshal(job)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("marshal job: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      r.index(job.Pipeline),
		DocumentID: job.Id,
		Body:       bytes.NewReader(b),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, r.es)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("index job: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return jobs.Job{}, fmt.Errorf("index job: %s", res.Status())
	}
	return job, nil
}

func (r *JobRepository) FindUnique(ctx context.Context, p constants.Pipeline, id string) (jobs.Job, error) {
	res, err := r.es.Get(r.index(p), id, r.es.Get.WithContext(ctx))
	if err != nil {
		return jobs.Job{}, fmt.Errorf("get job: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return jobs.Job{}, repositories.ErrNotFound
	}
	if res.IsError() {
		return jobs.Job{}, fmt.Errorf("get job: %s", res.Status())
	}

	parsed, err := gabs.ParseJSONBuffer(res.Body)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("parse job: %w", err)
	}
	if found, _ := parsed.Path("found").Data().(bool); !found {
		return jobs.Job{}, repositories.ErrNotFound
	}
	return decodeHit(parsed)
}

func (r *JobRepository) Update(ctx context.Context, p constants.Pipeline, id string, fields map[string]interface{}) (jobs.Job, error) {
	// validate the patch against the model before it reaches the index
	current, err := r.FindUnique(ctx, p, id)
	if err != nil {
		return jobs.Job{}, err
	}
	updated, err := jobs.ApplyPatch(current, fields)
	if err != nil {
		return jobs.Job{}, err
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(map[string]interface{}{"doc": updated}); err != nil {
		return jobs.Job{}, fmt.Errorf("encode update: %w", err)
	}

	res, err := r.es.Update(r.index(p), id, &buf,
		r.es.Update.WithContext(ctx),
		r.es.Update.WithRefresh("true"),
	)
	if err != nil {
		return jobs.Job{}, fmt.Errorf("update job: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return jobs.Job{}, repositories.ErrNotFound
	}
	if res.IsError() {
		return jobs.Job{}, fmt.Errorf("update job: %s", res.Status())
	}
	return updated, nil
}

func (r *JobRepository) FindMany(ctx context.Context, filter jobs.Filter) ([]jobs.Job, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(buildFindManyQuery(filter)); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	if r.cfg.Debug {
		// view the outbound elasticsearch query
		fmt.Println(buf.String())
	}

	// Perform the search request.
	res, err := r.es.Search(
		r.es.Search.WithContext(ctx),
		r.es.Search.WithIndex(r.index(filter.Pipeline)),
		r.es.Search.WithBody(&buf),
		r.es.Search.WithSize(maxListSize),
		r.es.Search.WithIgnoreUnavailable(true),
		r.es.Search.WithAllowNoIndices(true),
	)
	if err != nil {
		return nil, fmt.Errorf("search jobs: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search jobs: %s", res.Status())
	}

	parsed, err := gabs.ParseJSONBuffer(res.Body)
	if err != nil {
		return nil, fmt.Errorf("parse hits: %w", err)
	}

	out := []jobs.Job{}
	if !parsed.Exists("hits", "hits") {
		return out, nil
	}
	hits, err := parsed.S("hits", "hits").Children()
	if err != nil {
		return nil, fmt.Errorf("read hits: %w", err)
	}
	for _, hit := range hits {
		job, err := decodeHit(hit)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

func buildFindManyQuery(filter jobs.Filter) map[string]interface{} {
	must := []map[string]interface{}{}
	mustNot := []map[string]interface{}{}

	if filter.Pipeline != "" {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"pipeline": filter.Pipeline},
		})
	}
	if filter.OnlyListable {
		must = append(must, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []map[string]interface{}{
					{"term": map[string]interface{}{"submit": true}},
					{"term": map[string]interface{}{"pending": true}},
				},
				"minimum_should_match": 1,
			},
		})
		mustNot = append(mustNot, map[string]interface{}{
			"term": map[string]interface{}{"processingError": true},
		})
	}
	if !filter.Stale.IsZero() {
		must = append(must,
			map[string]interface{}{"term": map[string]interface{}{"submit": false}},
			map[string]interface{}{"range": map[string]interface{}{
				"createdAt": map[string]interface{}{"lt": filter.Stale.UTC().Format(time.RFC3339Nano)},
			}},
		)
	}
	// an empty `must` acts as a wildcard query

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []map[string]interface{}{{
					"bool": map[string]interface{}{
						"must":     must,
						"must_not": mustNot,
					},
				}},
			},
		},
		"sort": []map[string]interface{}{
			{"createdAt": map[string]string{"order": "desc"}},
		},
	}
}

func decodeHit(hit *gabs.Container) (jobs.Job, error) {
	var job jobs.Job
	if err := json.Unmarshal(hit.S("_source").Bytes(), &job); err != nil {
		return jobs.Job{}, fmt.Errorf("decode job: %w", err)
	}
	if id, ok := hit.S("_id").Data().(string); ok {
		job.Id = id
	}
	return job, nil
}
