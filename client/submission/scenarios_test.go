package submission

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"primerid/api/client/forms"
	"primerid/api/client/staging"
	"primerid/api/client/uploads"
	"primerid/api/models"
	"primerid/api/models/constants"
	"primerid/api/models/constants/pipeline"
	"primerid/api/models/dtos"
	"primerid/api/models/jobs"
	"primerid/api/models/viralseq"
	"primerid/api/repositories/memory"
	"primerid/api/services"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serviceApi runs the job service in process instead of over HTTP.
type serviceApi struct {
	svc     *services.JobService
	creates int
}

func (s *serviceApi) Create(ctx context.Context, p constants.Pipeline, job jobs.Job) (jobs.CreateJobResponse, error) {
	s.creates++
	return s.svc.Create(ctx, p, job)
}

func (s *serviceApi) Commit(ctx context.Context, p constants.Pipeline, id string) (dtos.CommitResponseDto, error) {
	j, err := s.svc.Commit(ctx, p, id)
	return dtos.CommitResponseDto{Id: j.Id, Submit: j.Submit}, err
}

// objectStore accepts signed PUTs and refuses object paths ending in deny.
type objectStore struct {
	mu      sync.Mutex
	objects map[string]int
	deny    string
}

func (o *objectStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	if o.deny != "" && strings.HasSuffix(r.URL.Path, o.deny) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	o.mu.Lock()
	o.objects[r.URL.Path] = len(body)
	o.mu.Unlock()
}

type urlSigner struct{ base string }

func (u urlSigner) SignedUploadURL(_ context.Context, bucket string, objectPath string, _ string, _ time.Time) (string, error) {
	return u.base + "/" + bucket + "/" + objectPath, nil
}

type portal struct {
	api   *serviceApi
	repo  *memory.JobRepository
	store *objectStore
}

func newPortal(t *testing.T) *portal {
	store := &objectStore{objects: map[string]int{}}
	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)

	cfg := &models.Config{}
	cfg.Storage.DevPrefix = "dev/"
	cfg.Storage.SignedUrlTtl = 24 * time.Hour
	cfg.Storage.Buckets.TCSDR = "tcs-dr"
	cfg.Storage.Buckets.OGV = "ogv-dating"

	repo := memory.NewJobRepository()
	svc := services.NewJobService(repo, urlSigner{base: srv.URL}, nil, cfg, log.New("test"))
	return &portal{api: &serviceApi{svc: svc}, repo: repo, store: store}
}

const tcsParams = `{
  "primer_pairs": [{
    "region": "RT",
    "forward": "GCCTCCCTCGCGCCATCAGAGATGTGTTTAGTGCCTGTGTCA",
    "cdna": "GTGACTGGAGTTCAGACGTGTGCTCTTCCGATCTNNNNNNNNNNNCAGTCACTATAGGTAC",
    "majority": 0.5,
    "indel": true,
    "end_join": true,
    "end_join_option": 1,
    "TCS_QC": false,
    "trim": false
  }],
  "platform_error_rate": 0.02,
  "platform_format": 300,
  "email": "tester@test.com"
}`

func tcsSubmission(t *testing.T) (jobs.Job, []staging.File) {
	var params viralseq.Params
	require.NoError(t, json.Unmarshal([]byte(tcsParams), &params))
	p := viralseq.FromCLI(params)

	stage := staging.New(staging.PolicyFor(pipeline.TCSDR))
	require.NoError(t, stage.AddFiles([]staging.File{
		staging.FromBytes("sample_R1.fastq.gz", "", []byte("read-one-content")),
		staging.FromBytes("sample_R2.fastq.gz", "", []byte("read-two-content")),
	}))
	require.True(t, stage.CanContinue())

	shared := forms.NewShared()
	shared.Email = p.Email
	shared.JobID = "scenario a"

	job := jobs.Job{Primers: p.Primers, ErrorRate: p.ErrorRate, PlatformFormat: p.PlatformFormat}
	shared.Apply(&job, stage.Uploads())
	return job, stage.Files()
}

func TestScenarioTcsFromCliParams(t *testing.T) {
	portal := newPortal(t)
	job, files := tcsSubmission(t)

	var mu sync.Mutex
	progress := map[string]int{}
	up := uploads.New()
	up.OnProgress = func(name string, pct int) {
		mu.Lock()
		progress[name] = pct
		mu.Unlock()
	}

	c := New(pipeline.TCSDR, job, files, portal.api, up)
	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, Submitted, c.State())

	stored, err := portal.repo.FindUnique(context.Background(), pipeline.TCSDR, c.JobId())
	require.NoError(t, err)
	assert.True(t, stored.Submit)
	assert.Equal(t, "scenario_a", stored.JobID)
	assert.True(t, stored.Primers[0].EndJoin)

	assert.Equal(t, map[string]int{"sample_R1.fastq.gz": 100, "sample_R2.fastq.gz": 100}, progress)
	assert.Equal(t, len("read-one-content"), portal.store.objects["/tcs-dr/dev/"+c.JobId()+"/sample/sample_R1.fastq.gz"])
	assert.Len(t, portal.store.objects, 2)
}

func TestScenarioOgvMissingWeeks(t *testing.T) {
	portal := newPortal(t)
	wpi := []byte(">CAP_1_2WPI\nACGT\n")

	stage := staging.New(staging.PolicyFor(pipeline.OGV))
	require.NoError(t, stage.AddFiles([]staging.File{
		staging.FromBytes("CAP188_env.fasta", "", wpi),
		staging.FromBytes("CAP210_env.fasta", "", wpi),
	}))
	subjects := stage.Groups()
	require.Equal(t, []string{"CAP188", "CAP210"}, subjects)

	conv := forms.NewConversion()
	conv.Set("CAP210", "24")

	err := conv.TryAdvance(subjects)
	var ve *forms.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, map[string]string{"CAP188": forms.MsgWeeksRequired}, conv.Errors(subjects))

	job := jobs.Job{Email: "a@b.c", Uploads: stage.Uploads(), Conversion: conv.Values(subjects)}
	c := New(pipeline.OGV, job, stage.Files(), portal.api, uploads.New())
	c.Validate = func(jobs.Job) error { return conv.TryAdvance(subjects) }

	assert.Error(t, c.Submit(context.Background()))
	assert.Zero(t, portal.api.creates)
	assert.Equal(t, Reviewing, c.State())

	// the server refuses the same payload on its own
	_, err = portal.api.Create(context.Background(), pipeline.OGV, job)
	var sve *services.ValidationError
	require.True(t, errors.As(err, &sve))
	assert.Contains(t, sve.Messages[0], "CAP188")
}

func TestScenarioCoreceptorWrongExtension(t *testing.T) {
	portal := newPortal(t)

	stage := staging.New(staging.PolicyFor(pipeline.Coreceptor))
	stage.AddFiles([]staging.File{
		staging.FromBytes("invalid.fastq", "", []byte("@read\nACGT\n+\nIIII\n")),
		staging.FromBytes("v3.fasta", "", []byte(">seq1\nTGTACAAGACCCAACAACAATACAAGAAAAAGTATACATATAGGACCAGGGAGAGCATTTTATGCAACAGGAGAAATAATAGGAGATATAAGACAAGCACATTGT\n")),
	})

	assert.Equal(t, []string{staging.MsgUnsupportedExtension}, stage.Errors()["invalid.fastq"])
	assert.Len(t, stage.Files(), 2)
	require.True(t, stage.CanContinue())

	job := jobs.Job{Email: "a@b.c", Sequences: stage.SequenceText()}
	c := New(pipeline.Coreceptor, job, nil, portal.api, uploads.New())
	require.NoError(t, c.Submit(context.Background()))

	stored, err := portal.repo.FindUnique(context.Background(), pipeline.Coreceptor, c.JobId())
	require.NoError(t, err)
	assert.True(t, stored.Submit)
	assert.True(t, strings.HasPrefix(stored.Sequences, ">seq1\nTGTACA"))
}

func TestScenarioRefusedUpload(t *testing.T) {
	portal := newPortal(t)
	portal.store.deny = "sample_R2.fastq.gz"
	job, files := tcsSubmission(t)

	up := uploads.New()
	c := New(pipeline.TCSDR, job, files, portal.api, up)

	err := c.Submit(context.Background())
	var ue *UploadError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, Failed, c.State())
	assert.Equal(t, MsgUploadFailed, c.Banner())
	assert.Equal(t, uploads.Done, up.Status("sample_R1.fastq.gz").State)
	assert.Equal(t, uploads.Failed, up.Status("sample_R2.fastq.gz").State)

	stored, err := portal.repo.FindUnique(context.Background(), pipeline.TCSDR, c.JobId())
	require.NoError(t, err)
	assert.False(t, stored.Submit)
}
