package jobs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"primerid/api/contexts"
	"primerid/api/models/dtos"
	"primerid/api/models/dtos/errors"
	jobModels "primerid/api/models/jobs"
	"primerid/api/mvc"

	"github.com/labstack/echo"
)

func CreateJob(c echo.Context) error {
	fmt.Printf("[%s] - CreateJob hit!\n", time.Now())
	gc := c.(*contexts.PortalContext)

	var job jobModels.Job
	if err := json.NewDecoder(c.Request().Body).Decode(&job); err != nil {
		return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("Invalid job payload."))
	}

	ctx, cancel := mvc.RequestContext(c)
	defer cancel()

	res, err := gc.Jobs.Create(ctx, gc.Pipeline, job)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// ListJobs is what the worker polls: committed or pending jobs, summarized.
func ListJobs(c echo.Context) error {
	fmt.Printf("[%s] - ListJobs hit!\n", time.Now())
	gc := c.(*contexts.PortalContext)

	ctx, cancel := mvc.RequestContext(c)
	defer cancel()

	summaries, err := gc.Jobs.ListPublic(ctx, gc.Pipeline)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}
	return c.JSON(http.StatusOK, summaries)
}

func ListAllJobs(c echo.Context) error {
	fmt.Printf("[%s] - ListAllJobs hit!\n", time.Now())
	gc := c.(*contexts.PortalContext)

	ctx, cancel := mvc.RequestContext(c)
	defer cancel()

	all, err := gc.Jobs.ListAll(ctx, gc.Pipeline)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}
	return c.JSON(http.StatusOK, all)
}

func GetJob(c echo.Context) error {
	fmt.Printf("[%s] - GetJob hit!\n", time.Now())
	gc := c.(*contexts.PortalContext)

	ctx, cancel := mvc.RequestContext(c)
	defer cancel()

	job, err := gc.Jobs.Get(ctx, gc.Pipeline, gc.JobId)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

func PatchJob(c echo.Context) error {
	fmt.Printf("[%s] - PatchJob hit!\n", time.Now())
	gc := c.(*contexts.PortalContext)

	var fields map[string]interface{}
	if err := json.NewDecoder(c.Request().Body).Decode(&fields); err != nil {
		return c.JSON(http.StatusBadRequest, errors.CreateSimpleBadRequest("Invalid patch payload."))
	}

	ctx, cancel := mvc.RequestContext(c)
	defer cancel()

	job, err := gc.Jobs.Patch(ctx, gc.Pipeline, gc.JobId, fields)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

// CommitJob marks a job submittable once its uploads are in; repeat calls succeed.
func CommitJob(c echo.Context) error {
	fmt.Printf("[%s] - CommitJob hit!\n", time.Now())
	gc := c.(*contexts.PortalContext)

	ctx, cancel := mvc.RequestContext(c)
	defer cancel()

	job, err := gc.Jobs.Commit(ctx, gc.Pipeline, gc.JobId)
	if err != nil {
		return mvc.RespondWithError(c, err)
	}
	return c.JSON(http.StatusOK, dtos.CommitResponseDto{Id: job.Id, Submit: job.Submit})
}
