package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"primerid/api/models"
	"primerid/api/models/constants"
	"primerid/api/models/constants/genome"
	"primerid/api/models/constants/pipeline"
	platformFormat "primerid/api/models/constants/platform-format"
	resultsFormat "primerid/api/models/constants/results-format"
	"primerid/api/models/jobs"
	"primerid/api/repositories"
	"primerid/api/services/storage"
	"primerid/api/utils"

	"github.com/mitchellh/mapstructure"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

const (
	DefaultErrorRate = 0.02

	MsgEmailRequired     = "Email is required."
	MsgSequenceRequired  = "Sequence is required."
	MsgFilesRequired     = "Please upload files or provide an HTSF location."
	MsgUploadsAndHtsf    = "Please choose either file uploads or an HTSF location, not both."
	MsgPoolNameRequired  = "Pool name is required with an HTSF location."
	MsgHtsfNotSupported  = "HTSF locations are only accepted for TCS/DR jobs."
	MsgPrimersRequired   = "At least one primer is required."
	MsgDrVersionRequired = "Please choose a DR version."
	MsgWeeksRequired     = "Please set the number of weeks since start of ART"

	MsgNetworkError  = "Network error. Please try again."
	MsgDatabaseError = "Database error. Please try again."
	MsgSigningError  = "Failed to create Signed URL's."
)

var (
	ErrSubmitRevert = errors.New("a submitted job cannot be reverted")
)

// ValidationError carries every message a payload failed on.
type ValidationError struct {
	Messages []string
}

func (v *ValidationError) Error() string {
	return strings.Join(v.Messages, " ")
}

type StorageError struct {
	Err error
}

func (s *StorageError) Error() string { return MsgSigningError + " " + s.Err.Error() }
func (s *StorageError) Unwrap() error { return s.Err }

// VersionChecker tells whether a DR parameter version exists.
type VersionChecker interface {
	HasVersion(ctx context.Context, version string) (bool, error)
}

type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

type JobService struct {
	repo     repositories.JobRepository
	signer   storage.Signer
	versions VersionChecker
	cfg      *models.Config
	logger   Logger

	Now func() time.Time
}

func NewJobService(repo repositories.JobRepository, signer storage.Signer, versions VersionChecker, cfg *models.Config, logger Logger) *JobService {
	return &JobService{
		repo:     repo,
		signer:   signer,
		versions: versions,
		cfg:      cfg,
		logger:   logger,
		Now:      time.Now,
	}
}

func (s *JobService) Create(ctx context.Context, p constants.Pipeline, job jobs.Job) (jobs.CreateJobResponse, error) {
	job = s.normalize(p, job)
	if err := s.validate(ctx, job); err != nil {
		return jobs.CreateJobResponse{}, err
	}

	created, err := s.repo.Create(ctx, job)
	if err != nil {
		s.logger.Errorf("create %s job: %v", p, err)
		return jobs.CreateJobResponse{}, err
	}
	s.logger.Infof("created %s job %s with %d upload(s)", p, created.Id, created.UploadCount())

	signed, err := s.signUploads(ctx, created)
	if err != nil {
		s.logger.Errorf("sign uploads for %s job %s: %v", p, created.Id, err)
		return jobs.CreateJobResponse{}, &StorageError{Err: err}
	}

	return jobs.CreateJobResponse{Job: created, SignedURLs: signed}, nil
}

func (s *JobService) Get(ctx context.Context, p constants.Pipeline, id string) (jobs.Job, error) {
	return s.repo.FindUnique(ctx, p, id)
}

// Commit flips submit to true; committing twice is a no-op.
func (s *JobService) Commit(ctx context.Context, p constants.Pipeline, id string) (jobs.Job, error) {
	job, err := s.repo.FindUnique(ctx, p, id)
	if err != nil {
		return jobs.Job{}, err
	}
	if job.Submit {
		return job, nil
	}

	committed, err := s.repo.Update(ctx, p, id, map[string]interface{}{"submit": true})
	if err != nil {
		s.logger.Errorf("commit %s job %s: %v", p, id, err)
		return jobs.Job{}, err
	}
	s.logger.Infof("committed %s job %s", p, id)
	return committed, nil
}

// workerPatch is what the shared-secret PATCH may touch.
type workerPatch struct {
	Submit          *bool   `mapstructure:"submit"`
	Pending         *bool   `mapstructure:"pending"`
	ProcessingError *bool   `mapstructure:"processingError"`
	Complete        *bool   `mapstructure:"complete"`
	Results         *string `mapstructure:"results"`
}

type intactnessPatch struct {
	Submit          *bool `mapstructure:"submit"`
	Pending         *bool `mapstructure:"pending"`
	ProcessingError *bool `mapstructure:"processingError"`
}

func (s *JobService) Patch(ctx context.Context, p constants.Pipeline, id string, raw map[string]interface{}) (jobs.Job, error) {
	fields, err := decodePatch(p, raw)
	if err != nil {
		return jobs.Job{}, &ValidationError{Messages: []string{err.Error()}}
	}
	if len(fields) == 0 {
		return jobs.Job{}, &ValidationError{Messages: []string{"Nothing to update."}}
	}

	if submit, ok := fields["submit"]; ok && !submit.(bool) {
		current, err := s.repo.FindUnique(ctx, p, id)
		if err != nil {
			return jobs.Job{}, err
		}
		if current.Submit {
			return jobs.Job{}, &ValidationError{Messages: []string{ErrSubmitRevert.Error()}}
		}
	}

	return s.repo.Update(ctx, p, id, fields)
}

func decodePatch(p constants.Pipeline, raw map[string]interface{}) (map[string]interface{}, error) {
	fields := map[string]interface{}{}

	decode := func(result interface{}) error {
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			ErrorUnused: true,
			Result:      result,
		})
		if err != nil {
			return err
		}
		return decoder.Decode(raw)
	}

	setBool := func(key string, v *bool) {
		if v != nil {
			fields[key] = *v
		}
	}

	if p == pipeline.Intactness {
		var patch intactnessPatch
		if err := decode(&patch); err != nil {
			return nil, err
		}
		setBool("submit", patch.Submit)
		setBool("pending", patch.Pending)
		setBool("processingError", patch.ProcessingError)
		return fields, nil
	}

	var patch workerPatch
	if err := decode(&patch); err != nil {
		return nil, err
	}
	setBool("submit", patch.Submit)
	setBool("pending", patch.Pending)
	setBool("processingError", patch.ProcessingError)
	setBool("complete", patch.Complete)
	if patch.Results != nil {
		fields["results"] = *patch.Results
	}
	return fields, nil
}

// ListPublic is the worker polling view, stripped to summaries.
func (s *JobService) ListPublic(ctx context.Context, p constants.Pipeline) ([]jobs.PublicJobSummary, error) {
	found, err := s.repo.FindMany(ctx, jobs.Filter{Pipeline: p, OnlyListable: true})
	if err != nil {
		return nil, err
	}
	return lo.Map(found, func(j jobs.Job, _ int) jobs.PublicJobSummary { return j.Summary() }), nil
}

func (s *JobService) ListAll(ctx context.Context, p constants.Pipeline) ([]jobs.Job, error) {
	return s.repo.FindMany(ctx, jobs.Filter{Pipeline: p})
}

// ListStale returns uncommitted jobs whose signed URLs have expired.
func (s *JobService) ListStale(ctx context.Context) ([]jobs.Job, error) {
	return s.repo.FindMany(ctx, jobs.Filter{Stale: s.Now().Add(-s.cfg.Storage.SignedUrlTtl)})
}

func (s *JobService) normalize(p constants.Pipeline, job jobs.Job) jobs.Job {
	job.Pipeline = p
	job.Email = strings.TrimSpace(job.Email)

	job.JobID = utils.SanitizeJobLabel(job.JobID)
	if job.JobID == "" {
		job.JobID = pipeline.DefaultJobLabel(p)
	}
	if job.ResultsFormat == "" {
		job.ResultsFormat = resultsFormat.Tar
	} else {
		job.ResultsFormat = resultsFormat.CastToResultsFormat(string(job.ResultsFormat))
	}

	// worker owned
	job.Pending = false
	job.Complete = false
	job.ProcessingError = false
	job.Results = ""

	job.Uploads = lo.Map(job.Uploads, func(u jobs.Upload, _ int) jobs.Upload {
		u.FileName = strings.TrimSpace(u.FileName)
		if u.Group() == "" {
			switch p {
			case pipeline.OGV:
				u.LibName = jobs.SubjectFromFilename(u.FileName)
			case pipeline.TCSDR, pipeline.Splicing:
				u.PoolName = jobs.LibraryLabel(u.FileName)
			}
		}
		if u.Type == "" {
			u.Type = storage.DefaultContentType
		}
		return u
	})
	job.Htsf = strings.TrimSpace(job.Htsf)
	job.PoolName = strings.TrimSpace(job.PoolName)
	if job.Dropbox != "" {
		job.Dropbox = NormalizeDropboxURL(job.Dropbox)
	}

	switch p {
	case pipeline.TCSDR:
		if job.ErrorRate == 0 {
			job.ErrorRate = DefaultErrorRate
		}
		if job.PlatformFormat == 0 {
			job.PlatformFormat = platformFormat.Default
		}
		job.Primers = lo.Map(job.Primers, func(pr jobs.Primer, _ int) jobs.Primer { return pr.Normalized() })
	case pipeline.Splicing:
		if job.Strain == "" {
			job.Strain = string(genome.NL43)
		}
		job.Sequence = strings.TrimSpace(job.Sequence)
	case pipeline.Intactness, pipeline.Coreceptor:
		job.Sequences = strings.TrimSpace(job.Sequences)
	}

	// uploads still to come keep the job out of the worker's reach
	job.Submit = len(job.Uploads) == 0

	return job
}

func (s *JobService) validate(ctx context.Context, job jobs.Job) error {
	msgs := []string{}
	p := job.Pipeline

	if job.Email == "" {
		msgs = append(msgs, MsgEmailRequired)
	}
	if job.ResultsFormat == resultsFormat.Unknown {
		msgs = append(msgs, "Results format must be tar or zip.")
	}

	// file source
	hasUploads := len(job.Uploads) > 0
	hasHtsf := job.Htsf != ""
	switch {
	case hasUploads && hasHtsf:
		msgs = append(msgs, MsgUploadsAndHtsf)
	case hasHtsf && !pipeline.AllowsHtsf(p):
		msgs = append(msgs, MsgHtsfNotSupported)
	case hasHtsf && job.PoolName == "":
		msgs = append(msgs, MsgPoolNameRequired)
	case hasUploads && !pipeline.UsesUploads(p):
		msgs = append(msgs, fmt.Sprintf("%s jobs do not accept file uploads.", p))
	case !hasUploads && !hasHtsf && job.Dropbox == "" && pipeline.UsesUploads(p):
		msgs = append(msgs, MsgFilesRequired)
	}

	names := lo.Map(job.Uploads, func(u jobs.Upload, _ int) string { return u.FileName })
	if lo.Contains(names, "") {
		msgs = append(msgs, "Every upload needs a file name.")
	}
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		msgs = append(msgs, fmt.Sprintf("Duplicate file names: %s", strings.Join(dups, ", ")))
	}

	switch p {
	case pipeline.TCSDR:
		msgs = append(msgs, s.validateTcsDr(ctx, job)...)
	case pipeline.OGV:
		subjects := lo.Uniq(lo.Map(job.Uploads, func(u jobs.Upload, _ int) string { return u.Group() }))
		for _, subject := range subjects {
			if weeks, ok := job.Conversion[subject]; !ok || weeks <= 0 {
				msgs = append(msgs, fmt.Sprintf("%s for %s.", MsgWeeksRequired, subject))
			}
		}
	case pipeline.Splicing:
		// a missing or unparseable distance is stored as null
		if job.Distance != nil && *job.Distance < 0 {
			msgs = append(msgs, "Distance must be zero or greater.")
		}
		if hasUploads {
			for name, msg := range jobs.ValidatePairedReads(names) {
				msgs = append(msgs, fmt.Sprintf("%s (%s)", msg, name))
			}
		}
	case pipeline.Intactness, pipeline.Coreceptor:
		if job.Sequences == "" {
			msgs = append(msgs, MsgSequenceRequired)
		}
	}

	if len(msgs) > 0 {
		return &ValidationError{Messages: msgs}
	}
	return nil
}

func (s *JobService) validateTcsDr(ctx context.Context, job jobs.Job) []string {
	msgs := []string{}

	if !platformFormat.IsKnownPlatformFormat(job.PlatformFormat) {
		msgs = append(msgs, fmt.Sprintf("Platform format must be one of %v.", platformFormat.All))
	}
	if job.ErrorRate <= 0 || job.ErrorRate >= 1 {
		msgs = append(msgs, "Platform error rate must be between 0 and 1.")
	}

	if job.IsDR {
		if job.DrVersion == "" {
			msgs = append(msgs, MsgDrVersionRequired)
		} else if s.versions != nil {
			ok, err := s.versions.HasVersion(ctx, job.DrVersion)
			if err != nil {
				s.logger.Warnf("dr version lookup for %q: %v", job.DrVersion, err)
			} else if !ok {
				msgs = append(msgs, fmt.Sprintf("Unknown DR version %q.", job.DrVersion))
			}
		}
		return msgs
	}

	if len(job.Primers) == 0 {
		return append(msgs, MsgPrimersRequired)
	}
	for i, pr := range job.Primers {
		label := pr.Region
		if label == "" {
			label = "#" + cast.ToString(i+1)
		}
		for field, msg := range pr.Validate() {
			msgs = append(msgs, fmt.Sprintf("Primer %s %s: %s", label, field, msg))
		}
	}
	return msgs
}

func (s *JobService) signUploads(ctx context.Context, job jobs.Job) ([]jobs.SignedUpload, error) {
	signed := make([]jobs.SignedUpload, 0, len(job.Uploads))
	if len(job.Uploads) == 0 {
		return signed, nil
	}
	if s.signer == nil {
		return nil, errors.New("no signer configured")
	}

	devPrefix := ""
	if !s.cfg.Api.Production {
		devPrefix = s.cfg.Storage.DevPrefix
	}
	expiresAt := s.Now().Add(s.cfg.Storage.SignedUrlTtl)
	bucket := s.bucket(job.Pipeline)

	for _, u := range job.Uploads {
		objectPath := storage.ObjectPath(devPrefix, job.Id, u.Group(), u.FileName)
		signedURL, err := s.signer.SignedUploadURL(ctx, bucket, objectPath, u.Type, expiresAt)
		if err != nil {
			return nil, err
		}
		signed = append(signed, jobs.SignedUpload{Upload: u, SignedURL: signedURL})
	}
	return signed, nil
}

func (s *JobService) bucket(p constants.Pipeline) string {
	switch p {
	case pipeline.OGV:
		return s.cfg.Storage.Buckets.OGV
	case pipeline.Splicing:
		return s.cfg.Storage.Buckets.Splicing
	default:
		return s.cfg.Storage.Buckets.TCSDR
	}
}

// NormalizeDropboxURL forces direct downloads on dropbox share links.
func NormalizeDropboxURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || !strings.Contains(u.Host, "dropbox") {
		return raw
	}
	q := u.Query()
	q.Set("dl", "1")
	u.RawQuery = q.Encode()
	return u.String()
}
