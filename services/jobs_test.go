package services

import (
	"context"
	"errors"
	"primerid/api/client/forms"
	"primerid/api/models"
	"primerid/api/models/constants/pipeline"
	"primerid/api/models/jobs"
	"primerid/api/repositories"
	"primerid/api/repositories/memory"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSigner struct {
	paths []string
	fail  bool
}

func (f *fakeSigner) SignedUploadURL(_ context.Context, bucket string, objectPath string, contentType string, _ time.Time) (string, error) {
	if f.fail {
		return "", errors.New("credentials expired")
	}
	f.paths = append(f.paths, bucket+"/"+objectPath)
	return "https://storage.test/" + bucket + "/" + objectPath + "?ct=" + contentType, nil
}

type fakeVersions map[string]bool

func (f fakeVersions) HasVersion(_ context.Context, v string) (bool, error) {
	return f[v], nil
}

func testConfig() *models.Config {
	cfg := &models.Config{}
	cfg.Storage.DevPrefix = "dev/"
	cfg.Storage.SignedUrlTtl = 24 * time.Hour
	cfg.Storage.Buckets.TCSDR = "tcs-dr"
	cfg.Storage.Buckets.OGV = "ogv-dating"
	cfg.Storage.Buckets.Splicing = "hiv-splicing"
	return cfg
}

func intPtr(i int) *int { return &i }

func validTcsJob() jobs.Job {
	p := jobs.NewPrimer()
	p.Region = "RT"
	p.Forward = "GCCTCCCTCGCGCCATCAGAGATGTGTTTAGTGCCTGTGTCA"
	p.Cdna = "GTGACTGGAGTTCAGACGTGTGCTCTTCCGATCTNNNNNNNNNNNCAGTCACTATAGGTAC"
	return jobs.Job{
		Email:   "tester@test.com",
		JobID:   "my first job",
		Primers: []jobs.Primer{p},
		Uploads: []jobs.Upload{
			{FileName: "sample_R1.fastq.gz"},
			{FileName: "sample_R2.fastq.gz"},
		},
	}
}

func newJobService(signer *fakeSigner) (*JobService, *memory.JobRepository) {
	repo := memory.NewJobRepository()
	return NewJobService(repo, signer, fakeVersions{"v1": true}, testConfig(), log.New("test")), repo
}

func TestJobServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("should create an uncommitted tcs job with one signed url per file", func(t *testing.T) {
		signer := &fakeSigner{}
		svc, _ := newJobService(signer)

		res, err := svc.Create(ctx, pipeline.TCSDR, validTcsJob())
		require.NoError(t, err)

		assert.NotEmpty(t, res.Id)
		assert.False(t, res.Submit)
		assert.Equal(t, "my_first_job", res.JobID)
		assert.Equal(t, "tar", string(res.ResultsFormat))
		assert.Equal(t, 0.02, res.ErrorRate)
		assert.Equal(t, 300, res.PlatformFormat)
		require.Len(t, res.SignedURLs, 2)
		assert.Equal(t, "sample_R1.fastq.gz", res.SignedURLs[0].FileName)
		assert.Equal(t, "sample", res.SignedURLs[0].PoolName)
		assert.Equal(t, "tcs-dr/dev/"+res.Id+"/sample/sample_R1.fastq.gz", signer.paths[0])
	})

	t.Run("should drop the dev prefix in production", func(t *testing.T) {
		signer := &fakeSigner{}
		svc, _ := newJobService(signer)
		svc.cfg.Api.Production = true

		res, err := svc.Create(ctx, pipeline.TCSDR, validTcsJob())
		require.NoError(t, err)
		assert.Equal(t, "tcs-dr/"+res.Id+"/sample/sample_R1.fastq.gz", signer.paths[0])
	})

	t.Run("should create htsf jobs already submittable", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		job := validTcsJob()
		job.Uploads = nil
		job.Htsf = "/proj/lab/run42"
		job.PoolName = "run42"

		res, err := svc.Create(ctx, pipeline.TCSDR, job)
		require.NoError(t, err)
		assert.True(t, res.Submit)
		assert.Empty(t, res.SignedURLs)
	})

	t.Run("should reject uploads together with htsf", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		job := validTcsJob()
		job.Htsf = "/proj/lab/run42"
		job.PoolName = "run42"

		_, err := svc.Create(ctx, pipeline.TCSDR, job)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Messages, MsgUploadsAndHtsf)
	})

	t.Run("should validate email and primers server side", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		job := validTcsJob()
		job.Email = "  "
		job.Primers[0].Cdna = "GTGACTGG"

		_, err := svc.Create(ctx, pipeline.TCSDR, job)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Messages, MsgEmailRequired)
		assert.Contains(t, verr.Messages, "Primer RT cdna: "+jobs.MsgPrimerIdMissing)
	})

	t.Run("should check dr versions against the catalog", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		job := validTcsJob()
		job.Primers = nil
		job.IsDR = true
		job.DrVersion = "v9"

		_, err := svc.Create(ctx, pipeline.TCSDR, job)
		assert.ErrorContains(t, err, `Unknown DR version "v9".`)

		job.DrVersion = "v1"
		_, err = svc.Create(ctx, pipeline.TCSDR, job)
		assert.NoError(t, err)
	})

	t.Run("should require weeks for every ogv subject", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		job := jobs.Job{
			Email:      "tester@test.com",
			Uploads:    []jobs.Upload{{FileName: "CAP188_ENV_2_all_hap.fasta"}, {FileName: "CAP210_ENV.fasta"}},
			Conversion: map[string]int{"CAP210": 12},
		}

		_, err := svc.Create(ctx, pipeline.OGV, job)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, []string{MsgWeeksRequired + " for CAP188."}, verr.Messages)

		job.Conversion["CAP188"] = 30
		res, err := svc.Create(ctx, pipeline.OGV, job)
		require.NoError(t, err)
		assert.Equal(t, "CAP188", res.Uploads[0].LibName)
	})

	t.Run("should default splicing parameters", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		res, err := svc.Create(ctx, pipeline.Splicing, jobs.Job{
			Email:   "tester@test.com",
			Uploads: []jobs.Upload{{FileName: "lib_R1.fastq.gz"}, {FileName: "lib_R2.fastq.gz"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "NL43", res.Strain)
		assert.Nil(t, res.Distance)
		assert.Equal(t, "hiv-splicing-results", res.JobID)
	})

	t.Run("should keep the splicing distance the form parsed", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		job := jobs.Job{
			Email:   "tester@test.com",
			Uploads: []jobs.Upload{{FileName: "lib_R1.fastq.gz"}, {FileName: "lib_R2.fastq.gz"}},
		}

		cfg := forms.NewSpliceConfig()
		cfg.Distance = "12bp"
		cfg.Apply(&job)
		res, err := svc.Create(ctx, pipeline.Splicing, job)
		require.NoError(t, err)
		assert.Equal(t, 12, *res.Distance)

		cfg.Distance = "abc"
		cfg.Apply(&job)
		res, err = svc.Create(ctx, pipeline.Splicing, job)
		require.NoError(t, err)
		assert.Nil(t, res.Distance)

		job.Distance = intPtr(-1)
		_, err = svc.Create(ctx, pipeline.Splicing, job)
		assert.ErrorContains(t, err, "Distance must be zero or greater.")
	})

	t.Run("should accept single-end splicing uploads", func(t *testing.T) {
		signer := &fakeSigner{}
		svc, _ := newJobService(signer)
		res, err := svc.Create(ctx, pipeline.Splicing, jobs.Job{
			Email:   "tester@test.com",
			Uploads: []jobs.Upload{{FileName: "sampleA.fasta"}},
		})
		require.NoError(t, err)
		require.Len(t, res.SignedURLs, 1)
		assert.Equal(t, "sampleA.fasta", res.SignedURLs[0].FileName)
		assert.Equal(t, "hiv-splicing/dev/"+res.Id+"/samplea.fasta/sampleA.fasta", signer.paths[0])
	})

	t.Run("should require sequences for sequence pipelines", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		_, err := svc.Create(ctx, pipeline.Coreceptor, jobs.Job{Email: "tester@test.com", Sequences: "  \n"})
		assert.ErrorContains(t, err, MsgSequenceRequired)

		res, err := svc.Create(ctx, pipeline.Intactness, jobs.Job{Email: "tester@test.com", Sequences: " >s1\nACGT\n"})
		require.NoError(t, err)
		assert.True(t, res.Submit)
		assert.Equal(t, ">s1\nACGT", res.Sequences)
	})

	t.Run("should ignore worker flags on create", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		res, err := svc.Create(ctx, pipeline.Intactness, jobs.Job{Email: "a@b.c", Sequences: ">s\nA", Pending: true, ProcessingError: true})
		require.NoError(t, err)
		assert.False(t, res.Pending)
		assert.False(t, res.ProcessingError)
	})

	t.Run("should surface signing failures and leave the row uncommitted", func(t *testing.T) {
		svc, repo := newJobService(&fakeSigner{fail: true})
		_, err := svc.Create(ctx, pipeline.TCSDR, validTcsJob())

		var serr *StorageError
		require.ErrorAs(t, err, &serr)

		all, _ := repo.FindMany(ctx, jobs.Filter{Pipeline: pipeline.TCSDR})
		require.Len(t, all, 1)
		assert.False(t, all[0].Submit)
	})
}

func TestJobServiceCommitAndPatch(t *testing.T) {
	ctx := context.Background()

	t.Run("should commit idempotently", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		res, err := svc.Create(ctx, pipeline.TCSDR, validTcsJob())
		require.NoError(t, err)

		first, err := svc.Commit(ctx, pipeline.TCSDR, res.Id)
		require.NoError(t, err)
		assert.True(t, first.Submit)

		second, err := svc.Commit(ctx, pipeline.TCSDR, res.Id)
		require.NoError(t, err)
		assert.True(t, second.Submit)
	})

	t.Run("should report unknown jobs", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		_, err := svc.Commit(ctx, pipeline.OGV, "missing")
		assert.ErrorIs(t, err, repositories.ErrNotFound)
	})

	t.Run("should only patch whitelisted fields", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		res, _ := svc.Create(ctx, pipeline.Intactness, jobs.Job{Email: "a@b.c", Sequences: ">s\nA"})

		_, err := svc.Patch(ctx, pipeline.Intactness, res.Id, map[string]interface{}{"email": "x@y.z"})
		var verr *ValidationError
		assert.ErrorAs(t, err, &verr)

		_, err = svc.Patch(ctx, pipeline.Intactness, res.Id, map[string]interface{}{"results": "gs://x"})
		assert.ErrorAs(t, err, &verr)

		patched, err := svc.Patch(ctx, pipeline.Intactness, res.Id, map[string]interface{}{"pending": true})
		require.NoError(t, err)
		assert.True(t, patched.Pending)
		assert.Equal(t, "a@b.c", patched.Email)
	})

	t.Run("should accept results on other pipelines", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		res, _ := svc.Create(ctx, pipeline.Coreceptor, jobs.Job{Email: "a@b.c", Sequences: ">s\nA"})

		patched, err := svc.Patch(ctx, pipeline.Coreceptor, res.Id, map[string]interface{}{"results": "gs://bucket/out.tar", "complete": true})
		require.NoError(t, err)
		assert.Equal(t, "gs://bucket/out.tar", patched.Results)
		assert.True(t, patched.Complete)
	})

	t.Run("should never revert a submitted job", func(t *testing.T) {
		svc, _ := newJobService(&fakeSigner{})
		res, _ := svc.Create(ctx, pipeline.Coreceptor, jobs.Job{Email: "a@b.c", Sequences: ">s\nA"})

		_, err := svc.Patch(ctx, pipeline.Coreceptor, res.Id, map[string]interface{}{"submit": false})
		assert.ErrorContains(t, err, ErrSubmitRevert.Error())
	})
}

func TestJobServiceListing(t *testing.T) {
	ctx := context.Background()
	svc, repo := newJobService(&fakeSigner{})

	clock := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	repo.Now = func() time.Time {
		clock = clock.Add(time.Hour)
		return clock
	}

	staleJob, err := svc.Create(ctx, pipeline.TCSDR, validTcsJob())
	require.NoError(t, err)
	clock = clock.Add(48 * time.Hour)
	committed, _ := svc.Create(ctx, pipeline.TCSDR, validTcsJob())
	svc.Commit(ctx, pipeline.TCSDR, committed.Id)

	t.Run("should list committed jobs as summaries", func(t *testing.T) {
		listed, err := svc.ListPublic(ctx, pipeline.TCSDR)
		require.NoError(t, err)
		require.Len(t, listed, 1)
		assert.Equal(t, committed.Id, listed[0].Id)
		assert.Equal(t, 2, listed[0].UploadCount)
	})

	t.Run("should dump everything for admins", func(t *testing.T) {
		all, err := svc.ListAll(ctx, pipeline.TCSDR)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, committed.Id, all[0].Id)
	})

	t.Run("should find stale uncommitted jobs", func(t *testing.T) {
		svc.Now = func() time.Time { return clock }
		stale, err := svc.ListStale(ctx)
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, staleJob.Id, stale[0].Id)
	})
}

func TestNormalizeDropboxURL(t *testing.T) {
	assert.Equal(t, "https://www.dropbox.com/s/abc/file.zip?dl=1", NormalizeDropboxURL("https://www.dropbox.com/s/abc/file.zip?dl=0"))
	assert.Equal(t, "https://example.com/x?dl=0", NormalizeDropboxURL("https://example.com/x?dl=0"))
}
