// Package submission drives the confirmation step shared by every
// pipeline: create the job, upload its files, then commit it.
package submission

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"primerid/api/client/apiclient"
	"primerid/api/client/staging"
	"primerid/api/client/uploads"
	"primerid/api/models/constants"
	"primerid/api/models/dtos"
	"primerid/api/models/jobs"

	"github.com/samber/lo"
)

type State int

const (
	Reviewing State = iota
	Submitting
	UploadingFiles
	Committing
	Submitted
	Failed
)

func (s State) String() string {
	return [...]string{"reviewing", "submitting", "uploadingFiles", "committing", "submitted", "failed"}[s]
}

const (
	MsgGeneric      = apiclient.GenericErrorMessage
	MsgUploadFailed = "Failed to upload files. Please refresh and try again."
)

var (
	ErrBusy              = errors.New("a submission is already in progress")
	ErrAlreadySubmitted  = errors.New("job already submitted")
	ErrMissingSignedURLs = errors.New("the server did not return a signed URL for every file")
)

// UploadError lists the files whose PUT did not succeed.
type UploadError struct {
	Files []string
}

func (u *UploadError) Error() string {
	return fmt.Sprintf("%s (%s)", MsgUploadFailed, strings.Join(u.Files, ", "))
}

type Api interface {
	Create(ctx context.Context, p constants.Pipeline, job jobs.Job) (jobs.CreateJobResponse, error)
	Commit(ctx context.Context, p constants.Pipeline, id string) (dtos.CommitResponseDto, error)
}

type Uploader interface {
	UploadAll(ctx context.Context, files []staging.File, signed []jobs.SignedUpload) bool
	Status(fileName string) uploads.FileStatus
}

// Controller is one confirmation dialog. It may be retried after a
// failure; files already uploaded for the same job are not sent again.
type Controller struct {
	Pipeline constants.Pipeline
	Job      jobs.Job
	Files    []staging.File

	// Validate runs before anything touches the network.
	Validate func(jobs.Job) error
	// OnStateChange runs with the controller locked and must not call into it.
	OnStateChange func(State)

	api      Api
	uploader Uploader

	mu      sync.Mutex
	state   State
	err     error
	attempt int
	cancel  context.CancelFunc

	created  *jobs.CreateJobResponse
	uploaded map[string]bool
}

func New(p constants.Pipeline, job jobs.Job, files []staging.File, api Api, uploader Uploader) *Controller {
	return &Controller{
		Pipeline: p,
		Job:      job,
		Files:    files,
		api:      api,
		uploader: uploader,
		uploaded: map[string]bool{},
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// JobId is the created job's id, empty until a create succeeded.
func (c *Controller) JobId() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.created == nil {
		return ""
	}
	return c.created.Id
}

// Banner is the message shown for the last failure.
func (c *Controller) Banner() string {
	err := c.Err()
	var ue *UploadError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &ue):
		return MsgUploadFailed
	default:
		return apiclient.Message(err)
	}
}

// Back leaves the dialog so the form can be edited. An in-flight attempt
// is cancelled and its outcome ignored; the next Submit creates a new job.
func (c *Controller) Back() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Submitted {
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.attempt++
	c.err = nil
	c.created = nil
	c.uploaded = map[string]bool{}
	c.setState(Reviewing)
}

// Submit runs create, upload and commit. It returns nil once the job is
// committed.
func (c *Controller) Submit(ctx context.Context) error {
	if c.Validate != nil {
		if err := c.Validate(c.Job); err != nil {
			return err
		}
	}

	c.mu.Lock()
	switch c.state {
	case Submitted:
		c.mu.Unlock()
		return ErrAlreadySubmitted
	case Submitting, UploadingFiles, Committing:
		c.mu.Unlock()
		return ErrBusy
	}
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.attempt++
	attempt := c.attempt
	c.err = nil
	c.setState(Submitting)
	created := c.created
	c.mu.Unlock()
	defer cancel()

	if created == nil {
		res, err := c.api.Create(ctx, c.Pipeline, c.Job)
		if err != nil {
			return c.fail(attempt, err)
		}
		created = &res
		if !c.advance(attempt, func() {
			c.created = created
			c.uploaded = map[string]bool{}
		}) {
			return context.Canceled
		}
	}

	if len(c.Job.Uploads) > 0 {
		signed, err := c.pendingUploads(created)
		if err != nil {
			c.mu.Lock()
			if c.attempt == attempt {
				c.created = nil
			}
			c.mu.Unlock()
			return c.fail(attempt, err)
		}

		if len(signed) > 0 {
			if !c.transition(attempt, UploadingFiles) {
				return context.Canceled
			}
			ok := c.uploader.UploadAll(ctx, c.Files, signed)

			var failed []string
			c.advance(attempt, func() {
				for _, s := range signed {
					if c.uploader.Status(s.FileName).State == uploads.Done {
						c.uploaded[s.FileName] = true
					} else {
						failed = append(failed, s.FileName)
					}
				}
			})

			if !ok {
				return c.fail(attempt, &UploadError{Files: failed})
			}
		}
	}

	if !c.transition(attempt, Committing) {
		return context.Canceled
	}
	if _, err := c.api.Commit(ctx, c.Pipeline, created.Id); err != nil {
		return c.fail(attempt, err)
	}
	if !c.transition(attempt, Submitted) {
		return context.Canceled
	}
	return nil
}

// pendingUploads pairs every declared upload with its signed URL and
// drops the ones already sent for this job.
func (c *Controller) pendingUploads(created *jobs.CreateJobResponse) ([]jobs.SignedUpload, error) {
	byName := lo.SliceToMap(created.SignedURLs, func(s jobs.SignedUpload) (string, jobs.SignedUpload) {
		return s.FileName, s
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	var pending []jobs.SignedUpload
	for _, u := range c.Job.Uploads {
		s, ok := byName[u.FileName]
		if !ok || s.SignedURL == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingSignedURLs, u.FileName)
		}
		if !c.uploaded[u.FileName] {
			pending = append(pending, s)
		}
	}
	return pending, nil
}

func (c *Controller) fail(attempt int, err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt != attempt {
		return context.Canceled
	}
	c.err = err
	c.setState(Failed)
	return err
}

func (c *Controller) transition(attempt int, s State) bool {
	return c.advance(attempt, func() { c.setState(s) })
}

// advance applies fn only while attempt is still the current one.
func (c *Controller) advance(attempt int, fn func()) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attempt != attempt {
		return false
	}
	fn()
	return true
}

// setState is called with mu held.
func (c *Controller) setState(s State) {
	c.state = s
	if c.OnStateChange != nil {
		c.OnStateChange(s)
	}
}
