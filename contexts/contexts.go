package contexts

import (
	"context"
	"primerid/api/models"
	"primerid/api/models/constants"
	"primerid/api/models/dtos"
	"primerid/api/models/jobs"

	"github.com/Jeffail/gabs"
	"github.com/labstack/echo"
)

type (
	// "Helper" Context to pass into routes that need
	//  the job service and other variables
	PortalContext struct {
		echo.Context
		Config    *models.Config
		Jobs      JobService
		Catalog   DrCatalog
		Validator FileNameValidator

		// set by the Mandate* middleware
		Pipeline constants.Pipeline
		JobId    string
	}

	JobService interface {
		Create(ctx context.Context, p constants.Pipeline, job jobs.Job) (jobs.CreateJobResponse, error)
		Get(ctx context.Context, p constants.Pipeline, id string) (jobs.Job, error)
		Commit(ctx context.Context, p constants.Pipeline, id string) (jobs.Job, error)
		Patch(ctx context.Context, p constants.Pipeline, id string, fields map[string]interface{}) (jobs.Job, error)
		ListPublic(ctx context.Context, p constants.Pipeline) ([]jobs.PublicJobSummary, error)
		ListAll(ctx context.Context, p constants.Pipeline) ([]jobs.Job, error)
	}

	DrCatalog interface {
		Enabled() bool
		Catalog(ctx context.Context) (*gabs.Container, error)
	}

	FileNameValidator interface {
		Validate(ctx context.Context, fileNames []string) (dtos.ValidateFilesResponseDto, error)
	}
)
