package sanitation

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"primerid/api/models"
	"primerid/api/models/jobs"
)

type (
	// StaleLister is the part of the job service sanitation needs.
	StaleLister interface {
		ListStale(ctx context.Context) ([]jobs.Job, error)
	}

	Logger interface {
		Infof(format string, args ...interface{})
		Warnf(format string, args ...interface{})
		Errorf(format string, args ...interface{})
	}

	SanitationService struct {
		Initialized bool
		Jobs        StaleLister
		Config      *models.Config
		Logger      Logger

		scheduler *gocron.Scheduler
	}
)

func NewSanitationService(lister StaleLister, cfg *models.Config, logger Logger) *SanitationService {
	ss := &SanitationService{
		Initialized: false,
		Jobs:        lister,
		Config:      cfg,
		Logger:      logger,
	}

	ss.Init()

	return ss
}

func (ss *SanitationService) Init() {
	// initialization if necessary
	if !ss.Initialized && ss.Config.Sanitation.Enabled {
		// - spin up a go routine that will periodically report
		//   jobs whose uploads never completed ; their signed urls
		//   have expired so the client can no longer commit them
		ss.scheduler = gocron.NewScheduler(time.UTC)

		_, err := ss.scheduler.Every(1).Days().At(ss.Config.Sanitation.At).Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			ss.RunOnce(ctx)
		})
		if err != nil {
			ss.Logger.Errorf("schedule sanitation: %v", err)
			return
		}

		// starts the scheduler in blocking mode, which blocks
		// the current execution path
		go ss.scheduler.StartBlocking()

		ss.Initialized = true
		fmt.Println("Sanitation Service Initialized ..")
	}
}

// RunOnce reports stale uncommitted jobs. Nothing is deleted.
func (ss *SanitationService) RunOnce(ctx context.Context) ([]jobs.Job, error) {
	ss.Logger.Infof("[%s] - Running stale job report..", time.Now())

	stale, err := ss.Jobs.ListStale(ctx)
	if err != nil {
		ss.Logger.Errorf("[%s] - Error listing stale jobs : %v..", time.Now(), err)
		return nil, err
	}
	for _, j := range stale {
		ss.Logger.Warnf("stale %s job %s created %s never committed (%d upload(s))",
			j.Pipeline, j.Id, j.CreatedAt.Format(time.RFC3339), j.UploadCount())
	}
	ss.Logger.Infof("[%s] - Stale jobs found : %d..", time.Now(), len(stale))

	return stale, nil
}

func (ss *SanitationService) Stop() {
	if ss.scheduler != nil {
		ss.scheduler.Stop()
	}
}
