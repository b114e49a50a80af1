package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"primerid/api/models"
	"primerid/api/models/constants/pipeline"
	"primerid/api/models/jobs"
	"primerid/api/repositories"
	"strings"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setUpRepository(t *testing.T, handler http.HandlerFunc) *JobRepository {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)

	cfg := &models.Config{}
	cfg.Elasticsearch.IndexPrefix = "primerid-"
	return NewJobRepository(es, cfg)
}

func TestElasticsearchJobRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("should index into the pipeline index", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]interface{}
		repo := setUpRepository(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			b, _ := io.ReadAll(r.Body)
			json.Unmarshal(b, &gotBody)
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`{"result":"created","_version":1}`))
		})

		job, err := repo.Create(ctx, jobs.Job{Pipeline: pipeline.OGV, Email: "a@b.c"})
		require.NoError(t, err)
		assert.NotEmpty(t, job.Id)
		assert.False(t, job.CreatedAt.IsZero())
		assert.Equal(t, "/primerid-ogv/_doc/"+job.Id, gotPath)
		assert.Equal(t, "a@b.c", gotBody["email"])
	})

	t.Run("should map a missing document to not found", func(t *testing.T) {
		repo := setUpRepository(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"_index":"primerid-tcsdr","_id":"x","found":false}`))
		})

		_, err := repo.FindUnique(ctx, pipeline.TCSDR, "x")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("should decode a found document", func(t *testing.T) {
		repo := setUpRepository(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/primerid-tcsdr/_doc/abc", r.URL.Path)
			w.Write([]byte(`{"_index":"primerid-tcsdr","_id":"abc","found":true,"_source":{"pipeline":"tcsdr","email":"a@b.c","submit":true}}`))
		})

		job, err := repo.FindUnique(ctx, pipeline.TCSDR, "abc")
		require.NoError(t, err)
		assert.Equal(t, "abc", job.Id)
		assert.Equal(t, "a@b.c", job.Email)
		assert.True(t, job.Submit)
	})

	t.Run("should decode search hits in order", func(t *testing.T) {
		var gotQuery string
		repo := setUpRepository(t, func(w http.ResponseWriter, r *http.Request) {
			b, _ := io.ReadAll(r.Body)
			gotQuery = string(b)
			w.Write([]byte(`{"hits":{"total":{"value":2},"hits":[
				{"_id":"new","_source":{"pipeline":"splicing","pending":true}},
				{"_id":"old","_source":{"pipeline":"splicing","submit":true}}]}}`))
		})

		listed, err := repo.FindMany(ctx, jobs.Filter{Pipeline: pipeline.Splicing, OnlyListable: true})
		require.NoError(t, err)
		require.Len(t, listed, 2)
		assert.Equal(t, "new", listed[0].Id)
		assert.Equal(t, "old", listed[1].Id)
		assert.True(t, strings.Contains(gotQuery, `"processingError":true`))
		assert.True(t, strings.Contains(gotQuery, `"minimum_should_match":1`))
	})

	t.Run("should build a stale query without a pipeline", func(t *testing.T) {
		q := buildFindManyQuery(jobs.Filter{Stale: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
		b, _ := json.Marshal(q)
		assert.Contains(t, string(b), `"lt":"2024-01-01T00:00:00Z"`)
		assert.Contains(t, string(b), `"submit":false`)
		assert.NotContains(t, string(b), `"pipeline"`)
	})
}
